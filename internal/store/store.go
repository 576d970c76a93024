// Package store persists tree index records and a local node/edge graph in an
// embedded SQLite database.
package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/dgallion1/treeindex/internal/doctree"
)

// ErrNotFound is returned when no record exists for a document.
var ErrNotFound = errors.New("tree index not found")

// Store is the SQLite storage collaborator.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", "file:"+path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)")
	if err != nil {
		return nil, fmt.Errorf("open store db: %w", err)
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate store db: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// ContentHash is the dedup key for document content.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// SaveTreeIndex inserts or replaces the record for documentID. A rebuild keeps
// the record id and creation time and increments the version.
func (s *Store) SaveTreeIndex(ctx context.Context, documentID string, tree *doctree.TreeNode, rawContent string, meta doctree.Metadata) (*doctree.Record, error) {
	if documentID == "" {
		return nil, fmt.Errorf("document id is required")
	}
	if tree == nil {
		return nil, fmt.Errorf("tree is required")
	}
	treeJSON, err := json.Marshal(tree)
	if err != nil {
		return nil, fmt.Errorf("marshal tree: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	hash := ContentHash(rawContent)

	var id string
	var version int
	err = tx.QueryRowContext(ctx, `SELECT id, version FROM tree_indexes WHERE document_id = ?`, documentID).Scan(&id, &version)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		id = uuid.New().String()
		_, err = tx.ExecContext(ctx,
			`INSERT INTO tree_indexes (id, document_id, title, tree_json, full_content, node_count, model, provider, method, content_hash, version, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`,
			id, documentID, meta.Title, string(treeJSON), rawContent, meta.NodeCount, meta.Model, meta.Provider, meta.Method, hash, now, now,
		)
		if err != nil {
			return nil, fmt.Errorf("insert tree index: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("lookup tree index: %w", err)
	default:
		_, err = tx.ExecContext(ctx,
			`UPDATE tree_indexes SET title = ?, tree_json = ?, full_content = ?, node_count = ?, model = ?, provider = ?, method = ?, content_hash = ?, version = ?, updated_at = ?
			 WHERE id = ?`,
			meta.Title, string(treeJSON), rawContent, meta.NodeCount, meta.Model, meta.Provider, meta.Method, hash, version+1, now, id,
		)
		if err != nil {
			return nil, fmt.Errorf("update tree index: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.GetTreeIndex(ctx, documentID)
}

const recordColumns = `id, document_id, title, tree_json, full_content, node_count, model, provider, method, content_hash, version, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*doctree.Record, error) {
	var rec doctree.Record
	var treeJSON, createdAt, updatedAt string
	err := row.Scan(&rec.ID, &rec.DocumentID, &rec.Title, &treeJSON, &rec.FullContent, &rec.NodeCount,
		&rec.Model, &rec.Provider, &rec.Method, &rec.ContentHash, &rec.Version, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan tree index: %w", err)
	}
	var tree doctree.TreeNode
	if err := json.Unmarshal([]byte(treeJSON), &tree); err != nil {
		return nil, fmt.Errorf("decode tree for %s: %w", rec.DocumentID, err)
	}
	rec.Tree = &tree
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	rec.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return &rec, nil
}

// GetTreeIndex returns the record for documentID or ErrNotFound.
func (s *Store) GetTreeIndex(ctx context.Context, documentID string) (*doctree.Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM tree_indexes WHERE document_id = ?`, documentID)
	return scanRecord(row)
}

// GetTreeIndexes loads the records for the given ids in order. Missing ids are
// skipped. An empty ids slice loads every record.
func (s *Store) GetTreeIndexes(ctx context.Context, ids []string) ([]*doctree.Record, error) {
	if len(ids) == 0 {
		return s.ListTreeIndexes(ctx)
	}
	out := make([]*doctree.Record, 0, len(ids))
	for _, id := range ids {
		rec, err := s.GetTreeIndex(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// ListTreeIndexes returns every record ordered by most recent update.
func (s *Store) ListTreeIndexes(ctx context.Context) ([]*doctree.Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+recordColumns+` FROM tree_indexes ORDER BY updated_at DESC, document_id`)
	if err != nil {
		return nil, fmt.Errorf("list tree indexes: %w", err)
	}
	defer rows.Close()

	var out []*doctree.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// FindByHash returns the document id holding content with this hash.
func (s *Store) FindByHash(ctx context.Context, hash string) (string, bool, error) {
	var docID string
	err := s.db.QueryRowContext(ctx, `SELECT document_id FROM tree_indexes WHERE content_hash = ? LIMIT 1`, hash).Scan(&docID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("find by hash: %w", err)
	}
	return docID, true, nil
}

// DeleteTreeIndex removes the record and any local graph nodes for the document.
func (s *Store) DeleteTreeIndex(ctx context.Context, documentID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM tree_indexes WHERE document_id = ?`, documentID)
	if err != nil {
		return fmt.Errorf("delete tree index: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM graph_edges WHERE from_id IN (SELECT id FROM graph_nodes WHERE document_id = ?)
		    OR to_id IN (SELECT id FROM graph_nodes WHERE document_id = ?)`, documentID, documentID); err != nil {
		return fmt.Errorf("delete graph edges: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM graph_nodes WHERE document_id = ?`, documentID); err != nil {
		return fmt.Errorf("delete graph nodes: %w", err)
	}
	return tx.Commit()
}
