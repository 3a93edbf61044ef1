package store

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/rcliao/happy-days/internal/model"
)

// idAllocator hands out ULIDs that strictly increase for the lifetime of the
// process, even within one millisecond or when the wall clock steps back.
type idAllocator struct {
	mu      sync.Mutex
	now     func() time.Time
	entropy *ulid.MonotonicEntropy
	last    ulid.ULID
}

func newIDAllocator(now func() time.Time) *idAllocator {
	return &idAllocator{
		now:     now,
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}
}

func (a *idAllocator) next() (model.ID, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	ms := ulid.Timestamp(a.now())
	if last := a.last.Time(); ms < last {
		ms = last
	}
	id, err := ulid.New(ms, a.entropy)
	if errors.Is(err, ulid.ErrMonotonicOverflow) {
		id, err = ulid.New(ms+1, a.entropy)
	}
	if err == nil && id.Compare(a.last) <= 0 {
		// last came from observe(), so the entropy source never saw it
		id, err = ulid.New(a.last.Time()+1, a.entropy)
	}
	if err != nil {
		return "", fmt.Errorf("allocate id: %w", err)
	}
	a.last = id
	return model.ID(id.String()), nil
}

// observe raises the floor so later IDs sort after id.
func (a *idAllocator) observe(id model.ID) {
	u, err := ulid.ParseStrict(string(id))
	if err != nil {
		return
	}
	a.mu.Lock()
	if u.Compare(a.last) > 0 {
		a.last = u
	}
	a.mu.Unlock()
}
