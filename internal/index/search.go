package index

import (
	"context"
	"errors"
	"strings"

	"github.com/rcliao/happy-days/internal/model"
)

// ErrEmptyQuery is returned when a query has no searchable terms.
var ErrEmptyQuery = errors.New("empty search query")

// SearchParams holds parameters for searching transcripts.
type SearchParams struct {
	Query string
	Limit int
}

// SearchResult is a matching memory with a highlighted excerpt.
type SearchResult struct {
	MemoryID model.ID `json:"memory_id"`
	Snippet  string   `json:"snippet"`
	Score    float64  `json:"score"`
}

// Search returns memories whose transcript contains every query term, best
// match first.
func (ix *Index) Search(ctx context.Context, p SearchParams) ([]SearchResult, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}
	match := matchExpr(p.Query)
	if match == "" {
		return nil, ErrEmptyQuery
	}

	rows, err := ix.db.QueryContext(ctx, `
		SELECT t.memory_id,
		       snippet(transcripts_fts, 0, '[', ']', '...', 12),
		       bm25(transcripts_fts) AS score
		FROM transcripts_fts
		JOIN transcripts t ON t.rowid = transcripts_fts.rowid
		WHERE transcripts_fts MATCH ?
		ORDER BY score, t.memory_id
		LIMIT ?`, match, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []SearchResult{}
	for rows.Next() {
		var r SearchResult
		var id string
		if err := rows.Scan(&id, &r.Snippet, &r.Score); err != nil {
			return nil, err
		}
		r.MemoryID = model.ID(id)
		results = append(results, r)
	}
	return results, rows.Err()
}

// matchExpr turns free text into an FTS5 expression: every word becomes a
// quoted phrase so punctuation in user input is never parsed as syntax.
func matchExpr(query string) string {
	var terms []string
	for _, f := range strings.Fields(query) {
		f = strings.ReplaceAll(f, `"`, "")
		if f == "" {
			continue
		}
		terms = append(terms, `"`+f+`"`)
	}
	return strings.Join(terms, " ")
}
