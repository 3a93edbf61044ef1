package narration

import (
	"sync"

	"github.com/rcliao/happy-days/internal/model"
)

// keyedMutex serializes work per memory. Entries are dropped once unused.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[model.ID]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[model.ID]*refMutex)}
}

// lock blocks until id is free and returns the matching unlock.
func (k *keyedMutex) lock(id model.ID) func() {
	k.mu.Lock()
	m, ok := k.locks[id]
	if !ok {
		m = &refMutex{}
		k.locks[id] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, id)
		}
		k.mu.Unlock()
	}
}

func (k *keyedMutex) len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
