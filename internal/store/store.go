// Package store provides the memory store: a directory of artifacts in which
// the presence of a thumbnail defines that a memory exists.
package store

import (
	"context"
	"errors"

	"github.com/rcliao/happy-days/internal/model"
)

// ErrStorageUnavailable is returned when the storage directory cannot be read.
var ErrStorageUnavailable = errors.New("storage unavailable")

// ErrNotFound is returned for an identifier that is not in the store.
var ErrNotFound = errors.New("memory not found")

// Store defines the memory storage interface.
type Store interface {
	// Load rebuilds the memory list from the storage directory, ascending by ID.
	Load(ctx context.Context) ([]model.Memory, error)

	// Create stores an imported image as a new memory. Returns the created memory.
	Create(ctx context.Context, image []byte) (*model.Memory, error)

	// Get returns a memory from the in-memory list.
	Get(id model.ID) (model.Memory, bool)

	// Memories returns a copy of the in-memory list.
	Memories() []model.Memory
}
