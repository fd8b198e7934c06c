package storage

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(nil, "", t.TempDir(), logger)
}

type record struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestPutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	want := record{Name: "hello", Count: 3}
	if err := s.Put(ctx, "session", &want); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	var got record
	if err := s.Get(ctx, "session", &got); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != want {
		t.Errorf("Get() = %+v, want %+v", got, want)
	}
}

func TestPutReplacesPreviousValue(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	if err := s.Put(ctx, "counter", &record{Count: 1}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := s.Put(ctx, "counter", &record{Count: 2}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	var got record
	if err := s.Get(ctx, "counter", &got); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Count != 2 {
		t.Errorf("Count = %d, want 2", got.Count)
	}
}

func TestGetMissingKey(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	var got record
	err := s.Get(ctx, "never-written", &got)
	if !IsNotFound(err) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	if err := s.Put(ctx, "session", &record{Name: "x"}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := s.Delete(ctx, "session"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	var got record
	if err := s.Get(ctx, "session", &got); !IsNotFound(err) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}

	// Deleting again is not an error.
	if err := s.Delete(ctx, "session"); err != nil {
		t.Errorf("Delete() of missing key error = %v", err)
	}
}

func TestInvalidKeysRejected(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	tests := []struct {
		name string
		key  string
	}{
		{name: "empty", key: ""},
		{name: "path traversal", key: "../escape"},
		{name: "slash", key: "a/b"},
		{name: "space", key: "a b"},
		{name: "too long", key: string(make([]byte, 201))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.Put(ctx, tt.key, &record{}); err == nil {
				t.Errorf("Put(%q) succeeded, want error", tt.key)
			}
			var got record
			if err := s.Get(ctx, tt.key, &got); err == nil || IsNotFound(err) {
				t.Errorf("Get(%q) error = %v, want invalid-key error", tt.key, err)
			}
		})
	}
}

func TestList(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	for _, key := range []string{"post_a_reactions", "post_b_reactions", "session"} {
		if err := s.Put(ctx, key, &record{}); err != nil {
			t.Fatalf("Put(%q) error = %v", key, err)
		}
	}

	keys, err := s.List(ctx, "post_")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	sort.Strings(keys)

	want := []string{"post_a_reactions", "post_b_reactions"}
	if len(keys) != len(want) {
		t.Fatalf("List() = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("List()[%d] = %q, want %q", i, keys[i], want[i])
		}
	}
}

func TestListSkipsForeignFiles(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := t.TempDir()
	s := New(nil, "", dir, logger)

	if err := s.Put(ctx, "session", &record{}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	keys, err := s.List(ctx, "")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(keys) != 1 || keys[0] != "session" {
		t.Errorf("List() = %v, want [session]", keys)
	}
}
