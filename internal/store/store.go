package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"notedesk/pkg/logger"

	_ "github.com/lib/pq"
)

// Document is the unit of storage. ID and Rev are assigned by the store;
// Rev changes on every successful mutation and a write presented with a
// stale Rev is rejected.
type Document struct {
	ID        string `json:"_id"`
	Rev       string `json:"_rev"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	CreatedAt string `json:"createdAt"`
}

// Fields carries the user-settable parts of a document. Nil pointers mean
// "not supplied": on Update the current value is retained, on Create the
// zero value is used. ID is honored on Create when supplied, otherwise the
// store assigns one. CreatedAt is defaulted to now on Create and is never
// overwritten by Update.
type Fields struct {
	ID        string
	Title     *string
	Content   *string
	CreatedAt string
}

// WriteResult is the outcome of a successful mutation.
type WriteResult struct {
	OK  bool   `json:"ok"`
	ID  string `json:"id"`
	Rev string `json:"rev"`
}

type state int

const (
	stateUninitialized state = iota
	stateConnected
	stateClosed
)

const createTableStmt = `CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	rev TEXT NOT NULL,
	title TEXT NOT NULL DEFAULT '',
	content TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
)`

// Store is a connection-scoped document API over Postgres. It keeps no
// document state between calls; every operation round-trips to the store.
// A Store is not safe for concurrent use without external synchronization.
type Store struct {
	db    *sql.DB
	state state

	// open is swapped out by tests; production uses the pq driver.
	open func(address string) (*sql.DB, error)
}

func New() *Store {
	return &Store{
		open: func(address string) (*sql.DB, error) {
			return sql.Open("postgres", address)
		},
	}
}

// Initialize opens a connection to the store at address and verifies
// liveness. Calling it again replaces the current connection.
func (s *Store) Initialize(ctx context.Context, address string) error {
	db, err := s.open(address)
	if err != nil {
		logger.Sugar.Errorf("Failed to open store connection: %v", err)
		return connectionFailed(err)
	}
	if err := db.PingContext(ctx); err != nil {
		logger.Sugar.Errorf("Store unreachable at %s: %v", address, err)
		db.Close()
		return connectionFailed(err)
	}
	if _, err := db.ExecContext(ctx, createTableStmt); err != nil {
		logger.Sugar.Errorf("Failed to prepare documents table: %v", err)
		db.Close()
		return connectionFailed(err)
	}
	if s.state == stateConnected && s.db != nil {
		s.db.Close()
	}
	s.db = db
	s.state = stateConnected
	logger.Sugar.Info("Successfully connected to the store")
	return nil
}

// Create inserts a new document and returns its assigned id and revision.
func (s *Store) Create(ctx context.Context, fields Fields) (WriteResult, error) {
	if err := s.requireConnected("create"); err != nil {
		return WriteResult{}, err
	}
	id := fields.ID
	if id == "" {
		id = newDocID()
	}
	createdAt := fields.CreatedAt
	if createdAt == "" {
		createdAt = time.Now().UTC().Format(time.RFC3339)
	}
	rev := newRev(1)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (id, rev, title, content, created_at) VALUES ($1, $2, $3, $4, $5)`,
		id, rev, deref(fields.Title), deref(fields.Content), createdAt)
	if err != nil {
		logger.Sugar.Errorf("Failed to create document: %v", err)
		return WriteResult{}, writeFailed("failed to create document", err)
	}
	return WriteResult{OK: true, ID: id, Rev: rev}, nil
}

// GetAll fetches every document, most recent first. RFC 3339 timestamps
// sort lexicographically, id breaks ties so the order stays stable.
func (s *Store) GetAll(ctx context.Context) ([]Document, error) {
	if err := s.requireConnected("get all documents"); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, rev, title, content, created_at FROM documents ORDER BY created_at DESC, id DESC`)
	if err != nil {
		logger.Sugar.Errorf("Failed to fetch documents: %v", err)
		return nil, readFailed("failed to fetch documents", err)
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		var doc Document
		if err := rows.Scan(&doc.ID, &doc.Rev, &doc.Title, &doc.Content, &doc.CreatedAt); err != nil {
			logger.Sugar.Errorf("Failed to scan document row: %v", err)
			return nil, readFailed("failed to fetch documents", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		logger.Sugar.Errorf("Failed reading document rows: %v", err)
		return nil, readFailed("failed to fetch documents", err)
	}
	return docs, nil
}

// GetByID fetches exactly one document. A missing id is a ReadFailed
// with status 404.
func (s *Store) GetByID(ctx context.Context, id string) (Document, error) {
	if err := s.requireConnected("get document"); err != nil {
		return Document{}, err
	}
	doc, err := s.fetch(ctx, id)
	if err != nil {
		logger.Sugar.Errorf("Failed to fetch document %s: %v", id, err)
		return Document{}, readFailed(fmt.Sprintf("failed to fetch document %s", id), err)
	}
	return doc, nil
}

// Update reads the current document, merges the supplied fields over it
// (supplied fields win, unspecified fields are retained) and writes back
// guarded by the just-read revision. A concurrent write in between makes
// the guard miss and the update fails with a conflict; no retry.
func (s *Store) Update(ctx context.Context, id string, fields Fields) (WriteResult, error) {
	if err := s.requireConnected("update document"); err != nil {
		return WriteResult{}, err
	}
	cur, err := s.fetch(ctx, id)
	if err != nil {
		logger.Sugar.Errorf("Failed to read document %s for update: %v", id, err)
		return WriteResult{}, writeFailed(fmt.Sprintf("failed to update document %s", id), err)
	}

	title := cur.Title
	if fields.Title != nil {
		title = *fields.Title
	}
	content := cur.Content
	if fields.Content != nil {
		content = *fields.Content
	}

	rev := bumpRev(cur.Rev)
	res, err := s.db.ExecContext(ctx,
		`UPDATE documents SET rev = $1, title = $2, content = $3 WHERE id = $4 AND rev = $5`,
		rev, title, content, id, cur.Rev)
	if err != nil {
		logger.Sugar.Errorf("Failed to update document %s: %v", id, err)
		return WriteResult{}, writeFailed(fmt.Sprintf("failed to update document %s", id), err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		logger.Sugar.Warnf("Revision conflict updating document %s at rev %s", id, cur.Rev)
		return WriteResult{}, conflict(fmt.Sprintf("revision conflict updating document %s", id))
	}
	return WriteResult{OK: true, ID: id, Rev: rev}, nil
}

// Delete reads the document to obtain its current revision, then removes
// it by id and revision. Contention surfaces as a conflict, like Update.
func (s *Store) Delete(ctx context.Context, id string) (WriteResult, error) {
	if err := s.requireConnected("delete document"); err != nil {
		return WriteResult{}, err
	}
	cur, err := s.fetch(ctx, id)
	if err != nil {
		logger.Sugar.Errorf("Failed to read document %s for delete: %v", id, err)
		return WriteResult{}, writeFailed(fmt.Sprintf("failed to delete document %s", id), err)
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE id = $1 AND rev = $2`, id, cur.Rev)
	if err != nil {
		logger.Sugar.Errorf("Failed to delete document %s: %v", id, err)
		return WriteResult{}, writeFailed(fmt.Sprintf("failed to delete document %s", id), err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		logger.Sugar.Warnf("Revision conflict deleting document %s at rev %s", id, cur.Rev)
		return WriteResult{}, conflict(fmt.Sprintf("revision conflict deleting document %s", id))
	}
	return WriteResult{OK: true, ID: id, Rev: cur.Rev}, nil
}

// Close releases the connection. Safe to call when already closed.
func (s *Store) Close() error {
	if s.state != stateConnected {
		s.state = stateClosed
		return nil
	}
	s.state = stateClosed
	if err := s.db.Close(); err != nil {
		logger.Sugar.Errorf("Failed to close store connection: %v", err)
		return err
	}
	return nil
}

func (s *Store) requireConnected(op string) error {
	if s.state != stateConnected {
		logger.Sugar.Errorf("Store operation %q attempted while not connected", op)
		return notInitialized(op)
	}
	return nil
}

func (s *Store) fetch(ctx context.Context, id string) (Document, error) {
	var doc Document
	err := s.db.QueryRowContext(ctx,
		`SELECT id, rev, title, content, created_at FROM documents WHERE id = $1`, id).
		Scan(&doc.ID, &doc.Rev, &doc.Title, &doc.Content, &doc.CreatedAt)
	return doc, err
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// newRev builds a revision token of the given generation. The generation
// prefix lets bumpRev order revisions; callers treat the whole token as
// opaque.
func newRev(gen int) string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%d-%d", gen, time.Now().UnixNano())
	}
	return fmt.Sprintf("%d-%s", gen, hex.EncodeToString(b))
}

func bumpRev(rev string) string {
	gen := 1
	if i := strings.IndexByte(rev, '-'); i > 0 {
		if n, err := strconv.Atoi(rev[:i]); err == nil {
			gen = n
		}
	}
	return newRev(gen + 1)
}

func newDocID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return ""
	}
	b[6] = (b[6] & 0x0f) | 0x40
	b[8] = (b[8] & 0x3f) | 0x80
	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:])
}
