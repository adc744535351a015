package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)
)

// SQLiteMetadataStore implements MetadataStore using SQLite in WAL mode.
// Metadata is shared across tenants in one database; every statement is
// scoped by tenant_id.
type SQLiteMetadataStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	closed bool
}

var _ MetadataStore = (*SQLiteMetadataStore)(nil)

// NewSQLiteMetadataStore opens or creates the metadata database.
// An empty path creates an in-memory store for testing.
func NewSQLiteMetadataStore(path string) (*SQLiteMetadataStore, error) {
	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create directory: %w", err)
		}
		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open metadata database: %w", err)
	}

	// Single writer prevents lock contention with modernc.org/sqlite.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// modernc.org/sqlite ignores DSN pragma params; set them explicitly.
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	s := &SQLiteMetadataStore{db: db, path: path}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteMetadataStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS documents (
		tenant_id  TEXT NOT NULL,
		doc_id     TEXT NOT NULL,
		title      TEXT NOT NULL DEFAULT '',
		source     TEXT NOT NULL DEFAULT '',
		timestamp  INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (tenant_id, doc_id)
	);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveDocuments upserts display metadata for the given documents.
func (s *SQLiteMetadataStore) SaveDocuments(ctx context.Context, docs []*Document) error {
	if len(docs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("metadata store is closed")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO documents (tenant_id, doc_id, title, source, timestamp)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, doc := range docs {
		if _, err := stmt.ExecContext(ctx,
			doc.TenantID, doc.ID, doc.Title, doc.Source, doc.Timestamp.Unix()); err != nil {
			return fmt.Errorf("insert document %s: %w", doc.ID, err)
		}
	}

	return tx.Commit()
}

// GetDocuments fetches metadata for the given document IDs within one tenant.
// IDs with no stored metadata are simply absent from the result map.
func (s *SQLiteMetadataStore) GetDocuments(ctx context.Context, tenantID string, docIDs []string) (map[string]*DocumentMeta, error) {
	result := make(map[string]*DocumentMeta, len(docIDs))
	if len(docIDs) == 0 {
		return result, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("metadata store is closed")
	}

	placeholders := strings.Repeat("?,", len(docIDs))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, 0, len(docIDs)+1)
	args = append(args, tenantID)
	for _, id := range docIDs {
		args = append(args, id)
	}

	query := fmt.Sprintf(`
		SELECT doc_id, title, source, timestamp
		FROM documents
		WHERE tenant_id = ? AND doc_id IN (%s)`, placeholders)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var meta DocumentMeta
		var ts int64
		if err := rows.Scan(&meta.DocID, &meta.Title, &meta.Source, &ts); err != nil {
			return nil, fmt.Errorf("scan document row: %w", err)
		}
		meta.Timestamp = time.Unix(ts, 0).UTC()
		result[meta.DocID] = &meta
	}
	return result, rows.Err()
}

// DeleteDocuments removes metadata for the given document IDs.
func (s *SQLiteMetadataStore) DeleteDocuments(ctx context.Context, tenantID string, docIDs []string) error {
	if len(docIDs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("metadata store is closed")
	}

	placeholders := strings.Repeat("?,", len(docIDs))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, 0, len(docIDs)+1)
	args = append(args, tenantID)
	for _, id := range docIDs {
		args = append(args, id)
	}

	query := fmt.Sprintf(`DELETE FROM documents WHERE tenant_id = ? AND doc_id IN (%s)`, placeholders)
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete documents: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *SQLiteMetadataStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
