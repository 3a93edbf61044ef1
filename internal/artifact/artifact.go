// Package artifact maps memory identifiers to their files and provides the
// write-temp-then-rename primitives every artifact mutation goes through.
//
// Storage layout, one directory, four files per memory:
//
//	<id>.jpg    image
//	<id>.thumb  thumbnail, its presence marks the memory as existing
//	<id>.wav    narration audio (optional)
//	<id>.txt    transcript (optional)
//
// Names starting with "." are reserved for temporary files and the search index.
package artifact

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"

	"github.com/rcliao/happy-days/internal/model"
)

// Artifact file extensions.
const (
	ImageExt      = ".jpg"
	ThumbnailExt  = ".thumb"
	AudioExt      = ".wav"
	TranscriptExt = ".txt"
)

// ErrPersist is wrapped by every failed artifact write or rename.
var ErrPersist = errors.New("persist artifact")

// Layout addresses artifacts inside a storage directory.
type Layout struct {
	Dir string
}

// Paths returns the four artifact locations for id.
func (l Layout) Paths(id model.ID) model.Artifacts {
	base := filepath.Join(l.Dir, string(id))
	return model.Artifacts{
		Image:      base + ImageExt,
		Thumbnail:  base + ThumbnailExt,
		Audio:      base + AudioExt,
		Transcript: base + TranscriptExt,
	}
}

// CapturePath returns a hidden temporary path for a capture session. It lives
// in the storage directory so committing it is a same-filesystem rename.
func (l Layout) CapturePath(session string) string {
	return filepath.Join(l.Dir, ".capture-"+session+AudioExt)
}

// Hidden reports whether a directory entry name is reserved (temp files, index).
func Hidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// IDFromThumbnail extracts the identifier from a thumbnail file name.
func IDFromThumbnail(name string) (model.ID, bool) {
	if Hidden(name) || !strings.HasSuffix(name, ThumbnailExt) {
		return "", false
	}
	id, err := model.ParseID(strings.TrimSuffix(name, ThumbnailExt))
	if err != nil {
		return "", false
	}
	return id, true
}

// WriteFile atomically replaces path with data. Readers see either the old
// content or the new content, never a partial file.
func WriteFile(path string, data []byte) error {
	err := renameio.WriteFile(path, data, 0o644, renameio.WithTempDir(filepath.Dir(path)))
	if err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrPersist, filepath.Base(path), err)
	}
	return nil
}

// Replace moves src over dst in a single rename. dst is never observed absent
// if it existed before.
func Replace(src, dst string) error {
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("%w: rename %s: %v", ErrPersist, filepath.Base(dst), err)
	}
	return nil
}

// Exists reports whether path names an existing regular file.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
