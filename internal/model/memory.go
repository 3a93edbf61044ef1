// Package model defines the core memory data types.
package model

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// ID identifies a memory. IDs are ULID strings, so lexicographic order is
// allocation order.
type ID string

// ParseID validates s as a memory identifier.
func ParseID(s string) (ID, error) {
	if _, err := ulid.ParseStrict(s); err != nil {
		return "", err
	}
	return ID(s), nil
}

// Time returns the creation time encoded in the identifier, or the zero time
// if id is not a valid ULID.
func (id ID) Time() time.Time {
	u, err := ulid.ParseStrict(string(id))
	if err != nil {
		return time.Time{}
	}
	return ulid.Time(u.Time()).UTC()
}

func (id ID) String() string { return string(id) }

// Artifacts holds the on-disk locations of a memory's four artifacts.
type Artifacts struct {
	Image      string `json:"image"`
	Thumbnail  string `json:"thumbnail"`
	Audio      string `json:"audio"`
	Transcript string `json:"transcript"`
}

// Memory is an imported image with optional narration and transcript.
// Only the image and thumbnail are guaranteed to exist.
type Memory struct {
	ID        ID        `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Artifacts Artifacts `json:"artifacts"`
}

// Details is a Memory plus the state of its optional artifacts.
type Details struct {
	Memory
	HasAudio   bool   `json:"has_audio"`
	Transcript string `json:"transcript,omitempty"`
}
