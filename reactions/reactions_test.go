package reactions

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"blogfront/storage"
)

func testLedger(t *testing.T) (*Ledger, *storage.Store) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := storage.New(nil, "", t.TempDir(), logger)
	return NewLedger(store, "my-post", NewEffectQueue(), logger), store
}

func TestTypeValid(t *testing.T) {
	for _, typ := range Types {
		if !typ.Valid() {
			t.Errorf("Valid(%q) = false, want true", typ)
		}
	}
	if Type("angry").Valid() {
		t.Error(`Valid("angry") = true, want false`)
	}
	if Type("").Valid() {
		t.Error(`Valid("") = true, want false`)
	}
}

func TestReactTransitions(t *testing.T) {
	ctx := context.Background()
	l, _ := testLedger(t)
	if err := l.Load(ctx, nil); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	// First reaction: count goes up, choice recorded.
	if err := l.React(ctx, "c1", Like); err != nil {
		t.Fatalf("React() error = %v", err)
	}
	if got := l.Count("c1", Like); got != 1 {
		t.Errorf("Count(like) = %d, want 1", got)
	}
	if choice, ok := l.Choice("c1"); !ok || choice != Like {
		t.Errorf("Choice() = (%q, %v), want (like, true)", choice, ok)
	}

	// Switching retracts the old choice and applies the new one.
	if err := l.React(ctx, "c1", Love); err != nil {
		t.Fatalf("React() error = %v", err)
	}
	if got := l.Count("c1", Like); got != 0 {
		t.Errorf("Count(like) after switch = %d, want 0", got)
	}
	if got := l.Count("c1", Love); got != 1 {
		t.Errorf("Count(love) after switch = %d, want 1", got)
	}
	if choice, _ := l.Choice("c1"); choice != Love {
		t.Errorf("Choice() after switch = %q, want love", choice)
	}

	// Re-selecting the active choice retracts it.
	if err := l.React(ctx, "c1", Love); err != nil {
		t.Fatalf("React() error = %v", err)
	}
	if got := l.Count("c1", Love); got != 0 {
		t.Errorf("Count(love) after toggle off = %d, want 0", got)
	}
	if _, ok := l.Choice("c1"); ok {
		t.Error("Choice() after toggle off still set")
	}
}

func TestReactRejectsUnknownType(t *testing.T) {
	ctx := context.Background()
	l, _ := testLedger(t)
	if err := l.Load(ctx, nil); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := l.React(ctx, "c1", Type("angry")); err == nil {
		t.Error("React() with unknown type succeeded, want error")
	}
}

func TestCountNeverGoesNegative(t *testing.T) {
	ctx := context.Background()
	l, store := testLedger(t)

	// A stored choice with no matching count, e.g. state written by an
	// older profile. Retracting it must floor at zero.
	if err := store.Put(ctx, "user_reactions_my-post", map[string]Type{"c1": Like}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := l.Load(ctx, nil); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if err := l.React(ctx, "c1", Like); err != nil {
		t.Fatalf("React() error = %v", err)
	}
	if got := l.Count("c1", Like); got != 0 {
		t.Errorf("Count() = %d, want 0", got)
	}
}

func TestServerCountsSeedOnlyOnce(t *testing.T) {
	ctx := context.Background()
	l, store := testLedger(t)

	seed := map[string]map[Type]int{
		"c1": {Like: 5, Love: 2},
		"c2": {Type("angry"): 3, Celebrate: -1}, // invalid entries are dropped
	}
	if err := l.Load(ctx, seed); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := l.Count("c1", Like); got != 5 {
		t.Errorf("Count(c1, like) = %d, want 5", got)
	}
	if got := l.Counts("c2"); len(got) != 0 {
		t.Errorf("Counts(c2) = %v, want empty", got)
	}

	if err := l.React(ctx, "c1", Like); err != nil {
		t.Fatalf("React() error = %v", err)
	}

	// A later load against the same storage ignores server counts
	// entirely: local state wins.
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reloaded := NewLedger(store, "my-post", NewEffectQueue(), logger)
	if err := reloaded.Load(ctx, map[string]map[Type]int{"c1": {Like: 99}}); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := reloaded.Count("c1", Like); got != 6 {
		t.Errorf("Count(c1, like) after reload = %d, want 6", got)
	}
	if choice, ok := reloaded.Choice("c1"); !ok || choice != Like {
		t.Errorf("Choice(c1) after reload = (%q, %v), want (like, true)", choice, ok)
	}
}

func TestLedgersAreIsolatedPerPost(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := storage.New(nil, "", t.TempDir(), logger)

	first := NewLedger(store, "first-post", NewEffectQueue(), logger)
	second := NewLedger(store, "second-post", NewEffectQueue(), logger)
	if err := first.Load(ctx, nil); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := second.Load(ctx, nil); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if err := first.React(ctx, "c1", Celebrate); err != nil {
		t.Fatalf("React() error = %v", err)
	}
	if got := second.Count("c1", Celebrate); got != 0 {
		t.Errorf("Count() on other post = %d, want 0", got)
	}
}

func TestReactQueuesEffect(t *testing.T) {
	ctx := context.Background()
	l, _ := testLedger(t)
	if err := l.Load(ctx, nil); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if err := l.React(ctx, "c1", Love); err != nil {
		t.Fatalf("React() error = %v", err)
	}

	active := l.effects.Active()
	if len(active) != 1 {
		t.Fatalf("Active() = %d effects, want 1", len(active))
	}
	e := active[0]
	if e.Kind != KindReaction || e.Target != "c1" || e.Label != string(Love) {
		t.Errorf("effect = %+v, want reaction on c1 with label love", e)
	}
	if e.ID == "" {
		t.Error("effect has empty id")
	}

	// Toggling off queues nothing new.
	if err := l.React(ctx, "c1", Love); err != nil {
		t.Fatalf("React() error = %v", err)
	}
	if got := len(l.effects.Active()); got != 1 {
		t.Errorf("Active() after toggle off = %d effects, want 1", got)
	}
}

func TestEffectQueueExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	q := NewEffectQueue()
	q.now = func() time.Time { return now }

	short := q.Add(KindReaction, "c1", "like", time.Second)
	long := q.Add(KindCelebration, "p1", "", 3*time.Second)
	if short.ID == long.ID {
		t.Error("effects share an id")
	}

	if got := len(q.Active()); got != 2 {
		t.Fatalf("Active() = %d effects, want 2", got)
	}

	now = now.Add(1500 * time.Millisecond)
	active := q.Active()
	if len(active) != 1 || active[0].Kind != KindCelebration {
		t.Fatalf("Active() after 1.5s = %+v, want only the celebration", active)
	}

	now = now.Add(2 * time.Second)
	if got := len(q.Active()); got != 0 {
		t.Errorf("Active() after expiry = %d effects, want 0", got)
	}
}
