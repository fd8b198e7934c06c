// Package reactions keeps per-comment reaction state for the current
// browser profile. The ledger never contacts the server: counts live in
// local storage, which makes them per-browser rather than per-account.
package reactions

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"blogfront/storage"
)

// Type is one of the three fixed reaction sentiments.
type Type string

const (
	Like      Type = "like"
	Love      Type = "love"
	Celebrate Type = "celebrate"
)

// Types lists every reaction type in display order.
var Types = []Type{Like, Love, Celebrate}

// Valid reports whether t is a known reaction type.
func (t Type) Valid() bool {
	return t == Like || t == Love || t == Celebrate
}

// effectTTL is how long a reaction animation entry stays visible.
const effectTTL = time.Second

// Ledger tracks reaction counts and the user's single choice per comment
// for one post. Every transition persists both tables synchronously.
type Ledger struct {
	store  *storage.Store
	logger *slog.Logger
	slug   string

	mu      sync.Mutex
	counts  map[string]map[Type]int
	choices map[string]Type
	effects *EffectQueue
}

// NewLedger creates a ledger scoped to the post with the given slug.
func NewLedger(store *storage.Store, slug string, effects *EffectQueue, logger *slog.Logger) *Ledger {
	return &Ledger{
		store:   store,
		logger:  logger,
		slug:    slug,
		counts:  make(map[string]map[Type]int),
		choices: make(map[string]Type),
		effects: effects,
	}
}

func (l *Ledger) countsKey() string {
	return fmt.Sprintf("post_%s_reactions", l.slug)
}

func (l *Ledger) choicesKey() string {
	return fmt.Sprintf("user_reactions_%s", l.slug)
}

// Load populates the ledger from local storage. Server-supplied counts
// seed local state only when no local counts exist yet for this post;
// once seeded, local storage wins and server counts are ignored.
func (l *Ledger) Load(ctx context.Context, serverCounts map[string]map[Type]int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var counts map[string]map[Type]int
	err := l.store.Get(ctx, l.countsKey(), &counts)
	switch {
	case storage.IsNotFound(err):
		counts = make(map[string]map[Type]int)
		for commentID, byType := range serverCounts {
			seeded := make(map[Type]int, len(byType))
			for t, n := range byType {
				if !t.Valid() || n < 0 {
					continue
				}
				seeded[t] = n
			}
			if len(seeded) > 0 {
				counts[commentID] = seeded
			}
		}
		l.counts = counts
		if err := l.persistCountsLocked(ctx); err != nil {
			return err
		}
		l.logger.Info("Seeded reaction counts from server", "slug", l.slug, "comments", len(counts))
	case err != nil:
		return fmt.Errorf("load reaction counts: %w", err)
	default:
		l.counts = counts
	}

	var choices map[string]Type
	if err := l.store.Get(ctx, l.choicesKey(), &choices); err != nil {
		if !storage.IsNotFound(err) {
			return fmt.Errorf("load reaction choices: %w", err)
		}
		choices = make(map[string]Type)
	}
	l.choices = choices
	return nil
}

// React applies one user action on a comment and persists the result
// before returning.
//
// Transitions: no choice → T increments T; re-selecting the current
// choice retracts it; selecting a different type retracts the old one and
// applies the new one atomically. Counts never go below zero.
func (l *Ledger) React(ctx context.Context, commentID string, t Type) error {
	if !t.Valid() {
		return fmt.Errorf("unknown reaction type %q", t)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	prev, had := l.choices[commentID]
	switch {
	case had && prev == t:
		// Toggle off.
		l.decrementLocked(commentID, t)
		delete(l.choices, commentID)
	case had:
		// Switch: retract the old choice, apply the new one.
		l.decrementLocked(commentID, prev)
		l.incrementLocked(commentID, t)
		l.choices[commentID] = t
		l.effects.Add(KindReaction, commentID, string(t), effectTTL)
	default:
		l.incrementLocked(commentID, t)
		l.choices[commentID] = t
		l.effects.Add(KindReaction, commentID, string(t), effectTTL)
	}

	if err := l.persistCountsLocked(ctx); err != nil {
		return err
	}
	if err := l.store.Put(ctx, l.choicesKey(), l.choices); err != nil {
		return fmt.Errorf("persist reaction choices: %w", err)
	}
	return nil
}

func (l *Ledger) incrementLocked(commentID string, t Type) {
	byType := l.counts[commentID]
	if byType == nil {
		byType = make(map[Type]int)
		l.counts[commentID] = byType
	}
	byType[t]++
}

func (l *Ledger) decrementLocked(commentID string, t Type) {
	byType := l.counts[commentID]
	if byType == nil || byType[t] <= 0 {
		return // floor at zero
	}
	byType[t]--
}

func (l *Ledger) persistCountsLocked(ctx context.Context) error {
	if err := l.store.Put(ctx, l.countsKey(), l.counts); err != nil {
		return fmt.Errorf("persist reaction counts: %w", err)
	}
	return nil
}

// Count returns the current count for one comment and type.
func (l *Ledger) Count(commentID string, t Type) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.counts[commentID][t]
}

// Counts returns a copy of the count table for one comment.
func (l *Ledger) Counts(commentID string) map[Type]int {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[Type]int, len(Types))
	for t, n := range l.counts[commentID] {
		out[t] = n
	}
	return out
}

// Choice returns the user's active reaction on a comment, if any.
func (l *Ledger) Choice(commentID string) (Type, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.choices[commentID]
	return t, ok
}
