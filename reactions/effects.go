package reactions

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Effect kinds. Effects are purely cosmetic; dropping them never affects
// data correctness.
const (
	// KindReaction is the short pop shown when a reaction is applied.
	KindReaction = "reaction"
	// KindCelebration is the multi-stage animation shown when a post
	// transitions into the liked state.
	KindCelebration = "celebration"
)

// Effect is a transient visual event. Each carries a fresh unique id and
// expires after a fixed delay regardless of further user action.
type Effect struct {
	ID        string
	Kind      string
	Target    string // comment or post id
	Label     string // reaction type for KindReaction, empty otherwise
	ExpiresAt time.Time
}

// EffectQueue holds pending effects and drops them as they expire. It is
// independent of application state so the data model can be tested
// without it.
type EffectQueue struct {
	mu    sync.Mutex
	items []Effect
	now   func() time.Time
}

// NewEffectQueue creates an empty queue.
func NewEffectQueue() *EffectQueue {
	return &EffectQueue{now: time.Now}
}

// Add queues a fire-and-forget effect with the given lifetime.
func (q *EffectQueue) Add(kind, target, label string, ttl time.Duration) Effect {
	q.mu.Lock()
	defer q.mu.Unlock()

	e := Effect{
		ID:        uuid.NewString(),
		Kind:      kind,
		Target:    target,
		Label:     label,
		ExpiresAt: q.now().Add(ttl),
	}
	q.items = append(q.items, e)
	return e
}

// Active prunes expired entries and returns the rest.
func (q *EffectQueue) Active() []Effect {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	live := q.items[:0]
	for _, e := range q.items {
		if e.ExpiresAt.After(now) {
			live = append(live, e)
		}
	}
	q.items = live

	out := make([]Effect, len(live))
	copy(out, live)
	return out
}
