package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/semhist/semhist/engine"
	"github.com/semhist/semhist/vector"
)

// DefaultMaxEntries caps the page store when no explicit capacity is given.
const DefaultMaxEntries = 1000

var migrations = []engine.Migration{
	{
		Version: 1,
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS pages (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    url        TEXT NOT NULL,
    title      TEXT NOT NULL DEFAULT '',
    summary    TEXT NOT NULL DEFAULT '',
    timestamp  INTEGER NOT NULL,
    word_count INTEGER NOT NULL DEFAULT 0,
    embedding  BLOB
)`,
			`CREATE INDEX IF NOT EXISTS pages_timestamp ON pages(timestamp)`,
		},
	},
}

// StorageError wraps a failed store operation with the operation name so
// callers can report which stage of persistence broke.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

// Page is a fully hydrated stored page.
type Page struct {
	ID        int64
	URL       string
	Title     string
	Summary   string
	Timestamp int64
	WordCount int
	Embedding []float32
}

// PageInfo is the reduced projection used for listings, without the
// embedding payload.
type PageInfo struct {
	ID        int64  `json:"id"`
	URL       string `json:"url"`
	Title     string `json:"title"`
	Summary   string `json:"summary"`
	Timestamp int64  `json:"timestamp"`
	WordCount int    `json:"wordCount"`
}

// SimilarPage is a PageInfo with its similarity score against a reference
// page.
type SimilarPage struct {
	PageInfo
	Score float64 `json:"score"`
}

// PageStore stores pages in SQLite with a bounded capacity.
type PageStore struct {
	db         *sql.DB
	maxEntries int
	log        *slog.Logger
}

// Open ensures the pages schema exists and returns a store bounded at
// maxEntries. maxEntries < 1 falls back to DefaultMaxEntries.
func Open(ctx context.Context, db *sql.DB, maxEntries int, log *slog.Logger) (*PageStore, error) {
	if db == nil {
		return nil, fmt.Errorf("store: db is nil")
	}
	if maxEntries < 1 {
		maxEntries = DefaultMaxEntries
	}
	if log == nil {
		log = slog.Default()
	}
	if err := engine.Migrate(ctx, db, "pages", migrations); err != nil {
		return nil, err
	}
	return &PageStore{db: db, maxEntries: maxEntries, log: log}, nil
}

// MaxEntries reports the configured capacity.
func (s *PageStore) MaxEntries() int { return s.maxEntries }

// Insert stores a page and returns its assigned id. The id is valid only
// because the transaction committed; a commit failure returns an error and
// no id.
func (s *PageStore) Insert(ctx context.Context, p Page) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, storageErr("insert", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO pages(url, title, summary, timestamp, word_count, embedding)
		 VALUES(?, ?, ?, ?, ?, ?)`,
		p.URL, p.Title, p.Summary, p.Timestamp, p.WordCount, vector.Encode(p.Embedding))
	if err != nil {
		return 0, storageErr("insert", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, storageErr("insert", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, storageErr("insert", err)
	}
	return id, nil
}

// Count returns the number of stored pages.
func (s *PageStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pages`).Scan(&n); err != nil {
		return 0, storageErr("count", err)
	}
	return n, nil
}

// PruneIfOverCapacity deletes the oldest pages until the store fits its
// capacity and returns how many rows were removed. Age is ordered by
// timestamp, then id, so pages sharing a timestamp prune deterministically.
// A single failed delete is logged and skipped; pruning continues with the
// next candidate. Running at or under capacity is a no-op.
func (s *PageStore) PruneIfOverCapacity(ctx context.Context) (int, error) {
	n, err := s.Count(ctx)
	if err != nil {
		return 0, err
	}
	over := n - s.maxEntries
	if over <= 0 {
		return 0, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM pages ORDER BY timestamp ASC, id ASC LIMIT ?`, over)
	if err != nil {
		return 0, storageErr("prune", err)
	}
	ids := make([]int64, 0, over)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, storageErr("prune", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, storageErr("prune", err)
	}

	removed := 0
	for _, id := range ids {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM pages WHERE id = ?`, id); err != nil {
			s.log.Warn("prune delete failed, skipping page", "id", id, "error", err)
			continue
		}
		removed++
	}
	return removed, nil
}

// ScanAll returns every stored page, embeddings included, newest first.
func (s *PageStore) ScanAll(ctx context.Context) ([]Page, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, url, title, summary, timestamp, word_count, embedding
		 FROM pages ORDER BY timestamp DESC, id DESC`)
	if err != nil {
		return nil, storageErr("scan", err)
	}
	defer rows.Close()

	var pages []Page
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, storageErr("scan", err)
		}
		pages = append(pages, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("scan", err)
	}
	return pages, nil
}

// GetRecent returns up to limit pages, newest first, without embeddings.
func (s *PageStore) GetRecent(ctx context.Context, limit int) ([]PageInfo, error) {
	if limit < 1 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, url, title, summary, timestamp, word_count
		 FROM pages ORDER BY timestamp DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, storageErr("recent", err)
	}
	defer rows.Close()

	var infos []PageInfo
	for rows.Next() {
		var info PageInfo
		if err := rows.Scan(&info.ID, &info.URL, &info.Title, &info.Summary,
			&info.Timestamp, &info.WordCount); err != nil {
			return nil, storageErr("recent", err)
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("recent", err)
	}
	return infos, nil
}

// GetByID loads one page. Returns (nil, nil) when the id does not exist.
func (s *PageStore) GetByID(ctx context.Context, id int64) (*Page, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, url, title, summary, timestamp, word_count, embedding
		 FROM pages WHERE id = ?`, id)
	p, err := scanPage(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("get", err)
	}
	return &p, nil
}

// MostSimilar returns up to limit pages ranked by cosine similarity to the
// page with the given id, excluding that page and pages without embeddings.
// Requires engine.RegisterVectorFunctions to have run before the database
// was opened.
func (s *PageStore) MostSimilar(ctx context.Context, id int64, limit int) ([]SimilarPage, error) {
	if limit < 1 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT p.id, p.url, p.title, p.summary, p.timestamp, p.word_count,
		        hist_cosine(p.embedding, ref.embedding) AS score
		 FROM pages p, (SELECT embedding FROM pages WHERE id = ?) ref
		 WHERE p.id != ? AND p.embedding IS NOT NULL AND ref.embedding IS NOT NULL
		 ORDER BY score DESC LIMIT ?`, id, id, limit)
	if err != nil {
		return nil, storageErr("similar", err)
	}
	defer rows.Close()

	var result []SimilarPage
	for rows.Next() {
		var sp SimilarPage
		if err := rows.Scan(&sp.ID, &sp.URL, &sp.Title, &sp.Summary,
			&sp.Timestamp, &sp.WordCount, &sp.Score); err != nil {
			return nil, storageErr("similar", err)
		}
		result = append(result, sp)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("similar", err)
	}
	return result, nil
}

// Clear removes every page. The id sequence is not reset, so ids keep
// increasing across a clear.
func (s *PageStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM pages`); err != nil {
		return storageErr("clear", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPage(row rowScanner) (Page, error) {
	var p Page
	var blob []byte
	if err := row.Scan(&p.ID, &p.URL, &p.Title, &p.Summary,
		&p.Timestamp, &p.WordCount, &blob); err != nil {
		return Page{}, err
	}
	if len(blob) > 0 {
		vec, err := vector.Decode(blob)
		if err != nil {
			return Page{}, err
		}
		p.Embedding = vec
	}
	return p, nil
}
