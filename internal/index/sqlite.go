package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"
)

// SQLiteIndex implements the local index using SQLite with FTS5.
type SQLiteIndex struct {
	db      *sql.DB
	entropy *rand.Rand
}

// NewSQLiteIndex opens or creates an index database at the given path.
func NewSQLiteIndex(dbPath string) (*SQLiteIndex, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	idx := &SQLiteIndex{
		db:      db,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	if err := idx.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return idx, nil
}

func (idx *SQLiteIndex) newID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), idx.entropy).String()
}

func (idx *SQLiteIndex) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS memories (
		id                TEXT PRIMARY KEY,
		pointer           TEXT NOT NULL UNIQUE,
		content_hash      TEXT NOT NULL,
		artifact_type     TEXT NOT NULL DEFAULT 'artifact_only',
		tags              TEXT,
		created_at        TEXT NOT NULL,
		source_session_id TEXT,
		source_tool       TEXT,
		title             TEXT,
		snippet           TEXT,
		meta              TEXT,
		searchable        TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_memories_created ON memories(created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_memories_session ON memories(source_session_id);

	CREATE VIRTUAL TABLE IF NOT EXISTS memories_fts USING fts5(
		title,
		snippet,
		searchable,
		content=memories,
		content_rowid=rowid
	);
	`
	if _, err := idx.db.Exec(schema); err != nil {
		return err
	}

	// FTS5 triggers for automatic sync
	idx.db.Exec(`CREATE TRIGGER IF NOT EXISTS memories_ai AFTER INSERT ON memories BEGIN
		INSERT INTO memories_fts(rowid, title, snippet, searchable)
		VALUES (new.rowid, new.title, new.snippet, new.searchable);
	END`)
	idx.db.Exec(`CREATE TRIGGER IF NOT EXISTS memories_ad AFTER DELETE ON memories BEGIN
		INSERT INTO memories_fts(memories_fts, rowid, title, snippet, searchable)
		VALUES('delete', old.rowid, old.title, old.snippet, old.searchable);
	END`)

	return nil
}

// Add inserts a new record and returns its ID. Fails with
// ErrDuplicatePointer when the pointer is already indexed.
func (idx *SQLiteIndex) Add(ctx context.Context, p AddParams) (string, error) {
	now := time.Now().UTC()
	id := idx.newID()

	artifactType := p.ArtifactType
	if artifactType == "" {
		artifactType = "artifact_only"
	}

	var tagsJSON *string
	if len(p.Tags) > 0 {
		b, _ := json.Marshal(p.Tags)
		s := string(b)
		tagsJSON = &s
	}
	var metaJSON *string
	if len(p.Meta) > 0 {
		b, _ := json.Marshal(p.Meta)
		s := string(b)
		metaJSON = &s
	}

	// Flattened text column backing free-text search.
	searchable := strings.Join([]string{p.Title, p.Snippet, strings.Join(p.Tags, " "), p.SourceTool}, " ")

	// Duplicate detection rides on the UNIQUE constraint itself so two
	// concurrent adds of the same pointer cannot both slip past a pre-check.
	_, err := idx.db.ExecContext(ctx,
		`INSERT INTO memories (id, pointer, content_hash, artifact_type, tags, created_at,
		                       source_session_id, source_tool, title, snippet, meta, searchable)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, p.Pointer, p.ContentHash, artifactType, tagsJSON, now.Format(time.RFC3339),
		nullable(p.SourceSessionID), nullable(p.SourceTool), nullable(p.Title),
		nullable(p.Snippet), metaJSON, searchable)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: memories.pointer") {
			return "", fmt.Errorf("%w: %s", ErrDuplicatePointer, p.Pointer)
		}
		return "", fmt.Errorf("insert record: %w", err)
	}
	return id, nil
}

// Query returns records matching the filters. With free text, results are
// ranked by BM25 relevance, best match first. BM25 rank is negative and more
// negative for better matches; abs(rank)/(1+abs(rank)) maps it to a [0,1)
// score that grows with relevance, recency breaking ties. Without free text,
// newest first.
func (idx *SQLiteIndex) Query(ctx context.Context, p QueryParams) ([]MemoryRecord, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 10
	}

	where, args := buildFilters(p)

	var query string
	if p.Text != "" {
		query = fmt.Sprintf(`
			SELECT m.id, m.pointer, m.content_hash, m.artifact_type, m.tags, m.created_at,
			       m.source_session_id, m.source_tool, m.title, m.snippet, m.meta,
			       abs(memories_fts.rank) / (1.0 + abs(memories_fts.rank)) AS score
			FROM memories_fts
			JOIN memories m ON m.rowid = memories_fts.rowid
			WHERE memories_fts MATCH ? AND %s
			ORDER BY score DESC, m.created_at DESC
			LIMIT ? OFFSET ?`, strings.Join(where, " AND "))
		args = append([]any{ftsQuery(p.Text)}, args...)
	} else {
		query = fmt.Sprintf(`
			SELECT m.id, m.pointer, m.content_hash, m.artifact_type, m.tags, m.created_at,
			       m.source_session_id, m.source_tool, m.title, m.snippet, m.meta,
			       0.0 AS score
			FROM memories m
			WHERE %s
			ORDER BY m.created_at DESC
			LIMIT ? OFFSET ?`, strings.Join(where, " AND "))
	}
	args = append(args, limit, p.Offset)

	rows, err := idx.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []MemoryRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// GetByPointer returns the record for a pointer, or nil if not indexed.
func (idx *SQLiteIndex) GetByPointer(ctx context.Context, pointer string) (*MemoryRecord, error) {
	rows, err := idx.db.QueryContext(ctx, `
		SELECT m.id, m.pointer, m.content_hash, m.artifact_type, m.tags, m.created_at,
		       m.source_session_id, m.source_tool, m.title, m.snippet, m.meta, 0.0 AS score
		FROM memories m WHERE m.pointer = ?`, pointer)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	r, err := scanRecord(rows)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Delete removes the index row only; the underlying blob is never deleted.
func (idx *SQLiteIndex) Delete(ctx context.Context, pointer string) (bool, error) {
	res, err := idx.db.ExecContext(ctx, `DELETE FROM memories WHERE pointer = ?`, pointer)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Count returns the number of records matching the tag filter.
func (idx *SQLiteIndex) Count(ctx context.Context, tags []string) (int, error) {
	where, args := buildFilters(QueryParams{Tags: tags})
	var n int
	err := idx.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM memories m WHERE `+strings.Join(where, " AND "), args...).Scan(&n)
	return n, err
}

// Close closes the index database.
func (idx *SQLiteIndex) Close() error {
	return idx.db.Close()
}

// buildFilters assembles the shared WHERE clauses for the non-text axes.
func buildFilters(p QueryParams) (where []string, args []any) {
	where = []string{"1=1"}

	if len(p.Tags) > 0 {
		// Substring match on the tags JSON; any tag matches.
		conds := make([]string, 0, len(p.Tags))
		for _, tag := range p.Tags {
			conds = append(conds, "m.tags LIKE ?")
			args = append(args, "%"+tag+"%")
		}
		where = append(where, "("+strings.Join(conds, " OR ")+")")
	}
	if p.SessionID != "" {
		where = append(where, "m.source_session_id = ?")
		args = append(args, p.SessionID)
	}
	if !p.Since.IsZero() {
		where = append(where, "m.created_at >= ?")
		args = append(args, p.Since.UTC().Format(time.RFC3339))
	}
	if !p.Until.IsZero() {
		where = append(where, "m.created_at <= ?")
		args = append(args, p.Until.UTC().Format(time.RFC3339))
	}
	return where, args
}

// ftsQuery turns free text into an FTS5 match expression: each term quoted,
// terms combined implicitly with AND.
func ftsQuery(text string) string {
	terms := strings.Fields(text)
	quoted := make([]string, 0, len(terms))
	for _, t := range terms {
		quoted = append(quoted, `"`+strings.ReplaceAll(t, `"`, `""`)+`"`)
	}
	return strings.Join(quoted, " ")
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (MemoryRecord, error) {
	var r MemoryRecord
	var tagsJSON, sessionID, sourceTool, title, snippet, meta sql.NullString
	var createdAt string

	err := row.Scan(
		&r.ID, &r.Pointer, &r.ContentHash, &r.ArtifactType, &tagsJSON, &createdAt,
		&sessionID, &sourceTool, &title, &snippet, &meta, &r.Score,
	)
	if err != nil {
		return r, err
	}

	r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	if tagsJSON.Valid {
		json.Unmarshal([]byte(tagsJSON.String), &r.Tags)
	}
	if sessionID.Valid {
		r.SourceSessionID = sessionID.String
	}
	if sourceTool.Valid {
		r.SourceTool = sourceTool.String
	}
	if title.Valid {
		r.Title = title.String
	}
	if snippet.Valid {
		r.Snippet = snippet.String
	}
	if meta.Valid {
		json.Unmarshal([]byte(meta.String), &r.Meta)
	}
	return r, nil
}
