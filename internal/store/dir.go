package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rcliao/happy-days/internal/artifact"
	"github.com/rcliao/happy-days/internal/model"
	"github.com/rcliao/happy-days/internal/thumbnail"
)

// DirStore implements Store on a directory of artifact files. There is no
// persisted index: Load rebuilds membership from the thumbnails on disk.
type DirStore struct {
	layout    artifact.Layout
	width     int
	logger    *zap.Logger
	ids       *idAllocator
	writeFile func(path string, data []byte) error

	mu       sync.RWMutex
	memories []model.Memory
}

// Option configures a DirStore.
type Option func(*DirStore)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *DirStore) { s.logger = l }
}

// WithThumbnailWidth sets the thumbnail width in pixels.
func WithThumbnailWidth(w int) Option {
	return func(s *DirStore) { s.width = w }
}

// WithClock sets the time source used for identifiers.
func WithClock(now func() time.Time) Option {
	return func(s *DirStore) { s.ids = newIDAllocator(now) }
}

// Open creates the storage directory if needed and returns an empty store.
// Call Load to populate it.
func Open(dir string, opts ...Option) (*DirStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create dir: %v", ErrStorageUnavailable, err)
	}

	s := &DirStore{
		layout:    artifact.Layout{Dir: dir},
		width:     thumbnail.DefaultWidth,
		logger:    zap.NewNop(),
		ids:       newIDAllocator(time.Now),
		writeFile: artifact.WriteFile,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Layout returns the artifact layout of the storage directory.
func (s *DirStore) Layout() artifact.Layout {
	return s.layout
}

func (s *DirStore) Load(ctx context.Context) ([]model.Memory, error) {
	if err := ctx.Err(); err != nil {
		return []model.Memory{}, err
	}

	// Holding mu across the scan orders it against Create's insert: a memory
	// whose thumbnail lands after ReadDir is inserted once the scan is stored.
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.layout.Dir)
	if err != nil {
		s.memories = nil
		return []model.Memory{}, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	memories := make([]model.Memory, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		id, ok := artifact.IDFromThumbnail(e.Name())
		if !ok {
			if !artifact.Hidden(e.Name()) && strings.HasSuffix(e.Name(), artifact.ThumbnailExt) {
				s.logger.Debug("skipping thumbnail with foreign name", zap.String("path", e.Name()))
			}
			continue
		}
		memories = append(memories, s.memory(id))
	}
	// ReadDir already sorts by name; sort by ID so the order does not depend on it.
	sort.Slice(memories, func(i, j int) bool { return memories[i].ID < memories[j].ID })

	if n := len(memories); n > 0 {
		s.ids.observe(memories[n-1].ID)
	}

	s.memories = memories

	s.logger.Debug("loaded memories", zap.Int("count", len(memories)))
	return append([]model.Memory{}, memories...), nil
}

func (s *DirStore) Create(ctx context.Context, image []byte) (*model.Memory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, err := thumbnail.Decode(image)
	if err != nil {
		return nil, err
	}
	thumb, err := thumbnail.Generate(img, s.width)
	if err != nil {
		return nil, err
	}
	imageData, err := thumbnail.Encode(img)
	if err != nil {
		return nil, err
	}
	thumbData, err := thumbnail.Encode(thumb)
	if err != nil {
		return nil, err
	}

	id, err := s.ids.next()
	if err != nil {
		return nil, err
	}
	mem := s.memory(id)

	// The thumbnail goes last: once it exists the memory exists.
	if err := s.writeFile(mem.Artifacts.Image, imageData); err != nil {
		s.logger.Error("write image failed", zap.String("memory_id", id.String()), zap.Error(err))
		return nil, err
	}
	if err := s.writeFile(mem.Artifacts.Thumbnail, thumbData); err != nil {
		s.logger.Error("write thumbnail failed", zap.String("memory_id", id.String()), zap.Error(err))
		s.cleanup(mem.Artifacts.Thumbnail, mem.Artifacts.Image)
		return nil, err
	}

	s.insert(mem)

	s.logger.Info("memory created", zap.String("memory_id", id.String()))
	return &mem, nil
}

// insert adds mem at its sorted position. Concurrent creates finish in any
// order, and a Load that ran after the thumbnail was written already has it.
func (s *DirStore) insert(mem model.Memory) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := sort.Search(len(s.memories), func(i int) bool { return s.memories[i].ID >= mem.ID })
	if i < len(s.memories) && s.memories[i].ID == mem.ID {
		return
	}
	s.memories = slices.Insert(s.memories, i, mem)
}

func (s *DirStore) Get(id model.ID) (model.Memory, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := sort.Search(len(s.memories), func(i int) bool { return s.memories[i].ID >= id })
	if i < len(s.memories) && s.memories[i].ID == id {
		return s.memories[i], true
	}
	return model.Memory{}, false
}

func (s *DirStore) Memories() []model.Memory {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Memory{}, s.memories...)
}

// Describe reports the optional artifacts of a memory.
func (s *DirStore) Describe(id model.ID) (model.Details, error) {
	mem, ok := s.Get(id)
	if !ok {
		return model.Details{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	d := model.Details{Memory: mem, HasAudio: artifact.Exists(mem.Artifacts.Audio)}
	text, err := os.ReadFile(mem.Artifacts.Transcript)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return d, fmt.Errorf("read transcript: %w", err)
	}
	d.Transcript = strings.TrimSpace(string(text))
	return d, nil
}

func (s *DirStore) memory(id model.ID) model.Memory {
	return model.Memory{ID: id, CreatedAt: id.Time(), Artifacts: s.layout.Paths(id)}
}

func (s *DirStore) cleanup(paths ...string) {
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.logger.Error("cleanup failed", zap.String("path", p), zap.Error(err))
		}
	}
}
