package index

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestIndex(t *testing.T) *SQLiteIndex {
	t.Helper()
	idx, err := NewSQLiteIndex(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("create index: %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

func pointer(seed string) string {
	// 64 lowercase hex chars derived from the seed for readable tests.
	out := make([]byte, 0, 64)
	for i := 0; len(out) < 64; i++ {
		c := seed[i%len(seed)]
		out = append(out, "0123456789abcdef"[c%16])
	}
	return "cascade://" + string(out)
}

func TestAddAndGetByPointer(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t)

	id, err := idx.Add(ctx, AddParams{
		Pointer:         pointer("one"),
		ContentHash:     "hash1",
		ArtifactType:    "artifact_only",
		Tags:            []string{"production", "bug"},
		SourceSessionID: "sess-1",
		SourceTool:      "debugger",
		Title:           "Bug fix: JWT validation",
		Snippet:         "Fixed auth bug | Rolled back to v2.3.1",
		Meta:            map[string]any{"memory_card": map[string]any{"title": "Bug fix: JWT validation"}},
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if id == "" {
		t.Error("expected non-empty record id")
	}

	rec, err := idx.GetByPointer(ctx, pointer("one"))
	if err != nil {
		t.Fatalf("get by pointer: %v", err)
	}
	if rec == nil {
		t.Fatal("expected record, got nil")
	}
	if rec.Title != "Bug fix: JWT validation" || rec.ArtifactType != "artifact_only" {
		t.Errorf("unexpected record: %+v", rec)
	}
	if len(rec.Tags) != 2 || rec.Tags[0] != "production" {
		t.Errorf("tags not preserved: %v", rec.Tags)
	}

	missing, err := idx.GetByPointer(ctx, pointer("nope"))
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for unknown pointer")
	}
}

func TestDuplicatePointer(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t)

	p := AddParams{Pointer: pointer("dup"), ContentHash: "h", ArtifactType: "artifact_only"}
	if _, err := idx.Add(ctx, p); err != nil {
		t.Fatalf("first add: %v", err)
	}
	_, err := idx.Add(ctx, p)
	if !errors.Is(err, ErrDuplicatePointer) {
		t.Fatalf("expected ErrDuplicatePointer, got %v", err)
	}
}

func TestQueryByTags(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t)

	idx.Add(ctx, AddParams{Pointer: pointer("a"), ContentHash: "h", Tags: []string{"demo", "test"}, Title: "A"})
	idx.Add(ctx, AddParams{Pointer: pointer("b"), ContentHash: "h", Tags: []string{"other"}, Title: "B"})

	hits, err := idx.Query(ctx, QueryParams{Tags: []string{"demo"}})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(hits) != 1 || hits[0].Pointer != pointer("a") {
		t.Fatalf("expected single demo hit, got %+v", hits)
	}
}

func TestQueryFreeTextRanking(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t)

	idx.Add(ctx, AddParams{
		Pointer: pointer("jwt"), ContentHash: "h",
		Title: "Bug fix: JWT validation", Snippet: "Fixed JWT auth bug",
	})
	idx.Add(ctx, AddParams{
		Pointer: pointer("db"), ContentHash: "h",
		Title: "Database migration notes", Snippet: "Schema rollout plan",
	})

	hits, err := idx.Query(ctx, QueryParams{Text: "jwt"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(hits))
	}
	if hits[0].Pointer != pointer("jwt") {
		t.Errorf("wrong hit: %+v", hits[0])
	}
	if hits[0].Score <= 0 {
		t.Errorf("expected positive relevance score, got %f", hits[0].Score)
	}
}

func TestQueryRelevanceOrder(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t)

	// Sparse match first so relevance ordering cannot be confused with
	// insertion or recency order.
	idx.Add(ctx, AddParams{
		Pointer: pointer("sparse"), ContentHash: "h",
		Title:   "Weekly infrastructure review",
		Snippet: "Covered capacity planning, the on-call rotation, a jwt library upgrade, and the quarterly budget",
	})
	idx.Add(ctx, AddParams{
		Pointer: pointer("dense"), ContentHash: "h",
		Title:   "JWT validation bug",
		Snippet: "Fixed jwt signature check, rotated jwt signing keys, added jwt expiry tests",
	})

	hits, err := idx.Query(ctx, QueryParams{Text: "jwt"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].Pointer != pointer("dense") {
		t.Errorf("expected denser match first, got %s", hits[0].Pointer)
	}
	if hits[0].Score < hits[1].Score {
		t.Errorf("best match scored lower: %f < %f", hits[0].Score, hits[1].Score)
	}
}

func TestQueryRecencyOrder(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t)

	// Insert with distinct created_at by spacing the wall clock.
	idx.Add(ctx, AddParams{Pointer: pointer("old"), ContentHash: "h", Title: "older"})
	time.Sleep(1100 * time.Millisecond)
	idx.Add(ctx, AddParams{Pointer: pointer("new"), ContentHash: "h", Title: "newer"})

	hits, err := idx.Query(ctx, QueryParams{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].Pointer != pointer("new") {
		t.Errorf("expected newest first, got %s", hits[0].Pointer)
	}
}

func TestQueryTimeRange(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t)

	idx.Add(ctx, AddParams{Pointer: pointer("now"), ContentHash: "h", Title: "current"})

	now := time.Now().UTC()
	hits, err := idx.Query(ctx, QueryParams{Since: now.Add(-time.Minute), Until: now.Add(time.Minute)})
	if err != nil {
		t.Fatalf("query window: %v", err)
	}
	if len(hits) != 1 {
		t.Errorf("expected 1 hit inside window, got %d", len(hits))
	}

	hits, err = idx.Query(ctx, QueryParams{Until: now.Add(-time.Hour)})
	if err != nil {
		t.Fatalf("query past window: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("expected 0 hits before window, got %d", len(hits))
	}
}

func TestDeleteAndCount(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t)

	idx.Add(ctx, AddParams{Pointer: pointer("x"), ContentHash: "h", Tags: []string{"keep"}})
	idx.Add(ctx, AddParams{Pointer: pointer("y"), ContentHash: "h", Tags: []string{"keep"}})

	n, err := idx.Count(ctx, []string{"keep"})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Errorf("expected count 2, got %d", n)
	}

	deleted, err := idx.Delete(ctx, pointer("x"))
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !deleted {
		t.Error("expected delete to report true")
	}

	deleted, _ = idx.Delete(ctx, pointer("x"))
	if deleted {
		t.Error("second delete should report false")
	}

	if n, _ = idx.Count(ctx, nil); n != 1 {
		t.Errorf("expected 1 record after delete, got %d", n)
	}
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "index.db")
	idx, err := NewSQLiteIndex(dbPath)
	if err != nil {
		t.Fatalf("create index: %v", err)
	}
	defer idx.Close()

	idx.Add(ctx, AddParams{Pointer: pointer("s1"), ContentHash: "h", ArtifactType: "artifact_only"})
	idx.Add(ctx, AddParams{Pointer: pointer("s2"), ContentHash: "h", ArtifactType: "raw_plus_artifact"})

	st, err := idx.Stats(ctx, dbPath)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.TotalRecords != 2 {
		t.Errorf("expected 2 records, got %d", st.TotalRecords)
	}
	if st.ByType["artifact_only"] != 1 || st.ByType["raw_plus_artifact"] != 1 {
		t.Errorf("unexpected type counts: %v", st.ByType)
	}
}
