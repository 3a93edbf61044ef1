package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rcliao/happy-days/internal/artifact"
	"github.com/rcliao/happy-days/internal/model"
	"github.com/rcliao/happy-days/internal/narration"
)

const (
	idA = model.ID("01ARZ3NDEKTSV4RRFFQ69G5FAV")
	idB = model.ID("01BX5ZZKBKACTAV9WEVGEMMVRZ")
	idC = model.ID("01BX5ZZKBKACTAV9WEVGEMMVS0")
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	ix, err := Open(filepath.Join(t.TempDir(), ".index.db"), nil)
	if err != nil {
		t.Fatalf("open index: %v", err)
	}
	t.Cleanup(func() { ix.Close() })
	return ix
}

func TestPutAndGet(t *testing.T) {
	ctx := context.Background()
	ix := newTestIndex(t)

	if err := ix.Put(ctx, idA, "  walking on the beach\n", 1); err != nil {
		t.Fatalf("put: %v", err)
	}
	text, ok, err := ix.Get(ctx, idA)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if text != "walking on the beach" {
		t.Errorf("expected trimmed text, got %q", text)
	}

	if _, ok, _ := ix.Get(ctx, idB); ok {
		t.Error("expected no transcript for unindexed memory")
	}
}

func TestPutReplaces(t *testing.T) {
	ctx := context.Background()
	ix := newTestIndex(t)

	ix.Put(ctx, idA, "first take about the mountains", 1)
	ix.Put(ctx, idA, "second take about the river", 2)

	results, err := ix.Search(ctx, SearchParams{Query: "mountains"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Fatalf("old transcript still searchable: %+v", results)
	}

	results, err = ix.Search(ctx, SearchParams{Query: "river"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].MemoryID != idA {
		t.Fatalf("expected %s, got %+v", idA, results)
	}
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	ix := newTestIndex(t)

	ix.Put(ctx, idA, "birthday cake", 1)
	if err := ix.Remove(ctx, idA); err != nil {
		t.Fatal(err)
	}
	results, _ := ix.Search(ctx, SearchParams{Query: "cake"})
	if len(results) != 0 {
		t.Fatalf("expected 0 results, got %d", len(results))
	}
}

func TestReindexFromFiles(t *testing.T) {
	ctx := context.Background()
	ix := newTestIndex(t)
	layout := artifact.Layout{Dir: t.TempDir()}

	write := func(id model.ID, text string) {
		if err := os.WriteFile(layout.Paths(id).Transcript, []byte(text), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write(idA, "grandma's garden in spring\n")
	write(idC, "   \n")

	// Stale entry that no longer has a transcript file.
	ix.Put(ctx, idB, "stale entry", 3)

	memories := []model.Memory{{ID: idA}, {ID: idB}, {ID: idC}}
	n, err := ix.Reindex(ctx, layout, memories)
	if err != nil {
		t.Fatalf("reindex: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 indexed transcript, got %d", n)
	}

	if _, ok, _ := ix.Get(ctx, idB); ok {
		t.Error("reindex kept a stale entry")
	}
	results, _ := ix.Search(ctx, SearchParams{Query: "garden"})
	if len(results) != 1 || results[0].MemoryID != idA {
		t.Fatalf("expected %s, got %+v", idA, results)
	}
}

func TestPublish(t *testing.T) {
	ctx := context.Background()
	ix := newTestIndex(t)

	var sink narration.EventSink = ix
	sink.Publish(narration.Event{Kind: narration.TranscriptDiscarded, MemoryID: idA, Text: "ignored"})
	sink.Publish(narration.Event{Kind: narration.TranscriptCommitted, MemoryID: idB, Generation: 2, Text: "first snow of the year"})

	if _, ok, _ := ix.Get(ctx, idA); ok {
		t.Error("discarded transcript was indexed")
	}
	text, ok, _ := ix.Get(ctx, idB)
	if !ok || text != "first snow of the year" {
		t.Errorf("expected committed transcript, got %q (ok=%v)", text, ok)
	}
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	ix := newTestIndex(t)

	st, err := ix.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.Transcripts != 0 || st.LastUpdated != nil {
		t.Errorf("expected empty stats, got %+v", st)
	}

	ix.Put(ctx, idA, "one", 1)
	ix.Put(ctx, idB, "two", 1)

	st, err = ix.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.Transcripts != 2 {
		t.Errorf("expected 2 transcripts, got %d", st.Transcripts)
	}
	if st.LastUpdated == nil {
		t.Error("expected last updated time")
	}
	if st.IndexSizeBytes <= 0 {
		t.Errorf("expected non-zero index size, got %d", st.IndexSizeBytes)
	}
}

func TestReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", ".index.db")

	ix, err := Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	ix.Put(ctx, idA, "persisted across opens", 1)
	ix.Close()

	ix, err = Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer ix.Close()

	results, err := ix.Search(ctx, SearchParams{Query: "persisted"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
}
