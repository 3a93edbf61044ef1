// Package index keeps a SQLite full-text index of committed transcripts.
// The transcript files are authoritative; the index can always be rebuilt
// from them with Reindex.
package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/rcliao/happy-days/internal/artifact"
	"github.com/rcliao/happy-days/internal/model"
	"github.com/rcliao/happy-days/internal/narration"
)

// Index is a transcript search index.
type Index struct {
	db     *sql.DB
	path   string
	logger *zap.Logger
}

// Open opens or creates the index database at path.
func Open(path string, logger *zap.Logger) (*Index, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}

	ix := &Index{db: db, path: path, logger: logger}
	if err := ix.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return ix, nil
}

func (ix *Index) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS transcripts (
		memory_id   TEXT PRIMARY KEY,
		text        TEXT NOT NULL,
		generation  INTEGER NOT NULL DEFAULT 0,
		updated_at  TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_transcripts_updated ON transcripts(updated_at DESC);

	CREATE VIRTUAL TABLE IF NOT EXISTS transcripts_fts USING fts5(
		text,
		content=transcripts,
		content_rowid=rowid
	);

	CREATE TRIGGER IF NOT EXISTS transcripts_ai AFTER INSERT ON transcripts BEGIN
		INSERT INTO transcripts_fts(rowid, text) VALUES (new.rowid, new.text);
	END;
	CREATE TRIGGER IF NOT EXISTS transcripts_ad AFTER DELETE ON transcripts BEGIN
		INSERT INTO transcripts_fts(transcripts_fts, rowid, text) VALUES('delete', old.rowid, old.text);
	END;
	CREATE TRIGGER IF NOT EXISTS transcripts_au AFTER UPDATE ON transcripts BEGIN
		INSERT INTO transcripts_fts(transcripts_fts, rowid, text) VALUES('delete', old.rowid, old.text);
		INSERT INTO transcripts_fts(rowid, text) VALUES (new.rowid, new.text);
	END;
	`
	_, err := ix.db.Exec(schema)
	return err
}

// Put indexes text as the memory's transcript, replacing any previous one.
func (ix *Index) Put(ctx context.Context, id model.ID, text string, generation uint64) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := ix.db.ExecContext(ctx,
		`INSERT INTO transcripts (memory_id, text, generation, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(memory_id) DO UPDATE SET
		   text = excluded.text, generation = excluded.generation, updated_at = excluded.updated_at`,
		string(id), strings.TrimSpace(text), int64(generation), now)
	if err != nil {
		return fmt.Errorf("index transcript %s: %w", id, err)
	}
	return nil
}

// Remove drops the memory from the index.
func (ix *Index) Remove(ctx context.Context, id model.ID) error {
	_, err := ix.db.ExecContext(ctx, `DELETE FROM transcripts WHERE memory_id = ?`, string(id))
	return err
}

// Get returns the indexed transcript for id.
func (ix *Index) Get(ctx context.Context, id model.ID) (string, bool, error) {
	var text string
	err := ix.db.QueryRowContext(ctx, `SELECT text FROM transcripts WHERE memory_id = ?`, string(id)).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return text, true, nil
}

// Reindex rebuilds the index from the transcript files of memories.
// Memories without a transcript are left out. Returns the number indexed.
func (ix *Index) Reindex(ctx context.Context, layout artifact.Layout, memories []model.Memory) (int, error) {
	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM transcripts`); err != nil {
		return 0, fmt.Errorf("clear index: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	n := 0
	for _, m := range memories {
		b, err := os.ReadFile(layout.Paths(m.ID).Transcript)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			ix.logger.Warn("skip unreadable transcript", zap.String("memory_id", m.ID.String()), zap.Error(err))
			continue
		}
		text := strings.TrimSpace(string(b))
		if text == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO transcripts (memory_id, text, generation, updated_at) VALUES (?, ?, 0, ?)`,
			string(m.ID), text, now); err != nil {
			return 0, fmt.Errorf("index transcript %s: %w", m.ID, err)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return n, nil
}

// Publish keeps the index current with committed transcripts.
func (ix *Index) Publish(e narration.Event) {
	if e.Kind != narration.TranscriptCommitted {
		return
	}
	if err := ix.Put(context.Background(), e.MemoryID, e.Text, e.Generation); err != nil {
		ix.logger.Error("index transcript", zap.String("memory_id", e.MemoryID.String()), zap.Error(err))
	}
}

func (ix *Index) Close() error {
	return ix.db.Close()
}
