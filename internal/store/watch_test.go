package store

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherReportsThumbnailsAndTranscripts(t *testing.T) {
	dir := t.TempDir()

	var mu sync.Mutex
	var changes []Change
	w, err := NewWatcher(dir, 50*time.Millisecond, func(c Change) {
		mu.Lock()
		changes = append(changes, c)
		mu.Unlock()
	}, nil)
	require.NoError(t, err)
	w.Start()
	defer w.Stop()

	id := "01HZX3J4K5M6N7P8Q9R0S1T2V3"
	require.NoError(t, os.WriteFile(filepath.Join(dir, id+".jpg"), []byte("i"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, id+".thumb"), []byte("t"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, id+".txt"), []byte("hello"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".ignored.txt"), []byte("x"), 0o644))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(changes) > 0
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	var thumbs, texts []string
	for _, c := range changes {
		thumbs = append(thumbs, c.Thumbnails...)
		texts = append(texts, c.Transcripts...)
	}
	assert.Contains(t, thumbs, id+".thumb")
	assert.Contains(t, texts, id+".txt")
	assert.NotContains(t, texts, ".ignored.txt")
}

func TestWatcherMissingDir(t *testing.T) {
	_, err := NewWatcher(filepath.Join(t.TempDir(), "missing"), 0, func(Change) {}, nil)
	assert.Error(t, err)
}
