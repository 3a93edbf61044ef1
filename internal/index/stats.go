package index

import (
	"context"
	"database/sql"
	"os"
	"time"
)

// Stats holds index statistics.
type Stats struct {
	IndexPath      string     `json:"index_path"`
	IndexSizeBytes int64      `json:"index_size_bytes"`
	Transcripts    int        `json:"transcripts"`
	LastUpdated    *time.Time `json:"last_updated,omitempty"`
}

// Stats returns index statistics.
func (ix *Index) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{IndexPath: ix.path}

	if info, err := os.Stat(ix.path); err == nil {
		st.IndexSizeBytes = info.Size()
	}

	if err := ix.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transcripts`).Scan(&st.Transcripts); err != nil {
		return st, err
	}

	var last sql.NullString
	if err := ix.db.QueryRowContext(ctx, `SELECT MAX(updated_at) FROM transcripts`).Scan(&last); err != nil {
		return st, err
	}
	if last.Valid {
		if t, err := time.Parse(time.RFC3339, last.String); err == nil {
			st.LastUpdated = &t
		}
	}
	return st, nil
}
