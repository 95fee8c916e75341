package filetree

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/jmoiron/sqlx"
)

// Index assigns stable ids to paths.
type Index interface {
	// ID returns the id of p, assigning a new one on first sight.
	ID(ctx context.Context, p string) (int64, error)

	// Path returns the path registered for id.
	Path(ctx context.Context, id int64) (string, error)

	// Forget drops p and every path below it.
	Forget(ctx context.Context, p string) error
}

// MemoryIndex is an in-process Index.
type MemoryIndex struct {
	mu     sync.Mutex
	byPath map[string]int64
	byID   map[int64]string
	next   int64
}

// NewMemoryIndex creates an empty index. Ids start at 1.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		byPath: make(map[string]int64),
		byID:   make(map[int64]string),
	}
}

// ID implements Index.
func (m *MemoryIndex) ID(ctx context.Context, p string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p = Clean(p)
	if id, ok := m.byPath[p]; ok {
		return id, nil
	}
	m.next++
	m.byPath[p] = m.next
	m.byID[m.next] = p
	return m.next, nil
}

// Path implements Index.
func (m *MemoryIndex) Path(ctx context.Context, id int64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.byID[id]
	if !ok {
		return "", notFound(fmt.Sprintf("id %d", id))
	}
	return p, nil
}

// Forget implements Index.
func (m *MemoryIndex) Forget(ctx context.Context, p string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p = Clean(p)
	prefix := p + "/"
	for known, id := range m.byPath {
		if known == p || strings.HasPrefix(known, prefix) {
			delete(m.byPath, known)
			delete(m.byID, id)
		}
	}
	return nil
}

// SQLIndex persists ids in the file_nodes table created by the retention
// storage migrations.
type SQLIndex struct {
	db *sqlx.DB
}

// NewSQLIndex creates an index over an open database.
func NewSQLIndex(db *sqlx.DB) *SQLIndex {
	return &SQLIndex{db: db}
}

// ID implements Index.
func (s *SQLIndex) ID(ctx context.Context, p string) (int64, error) {
	p = Clean(p)

	id, err := s.lookup(ctx, p)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("lookup node %s: %w", p, err)
	}

	if _, err := s.db.ExecContext(ctx,
		s.db.Rebind(`INSERT INTO file_nodes (path) VALUES (?) ON CONFLICT (path) DO NOTHING`), p); err != nil {
		return 0, fmt.Errorf("register node %s: %w", p, err)
	}
	id, err = s.lookup(ctx, p)
	if err != nil {
		return 0, fmt.Errorf("lookup node %s: %w", p, err)
	}
	return id, nil
}

func (s *SQLIndex) lookup(ctx context.Context, p string) (int64, error) {
	var id int64
	err := s.db.GetContext(ctx, &id, s.db.Rebind(`SELECT id FROM file_nodes WHERE path = ?`), p)
	return id, err
}

// Path implements Index.
func (s *SQLIndex) Path(ctx context.Context, id int64) (string, error) {
	var p string
	err := s.db.GetContext(ctx, &p, s.db.Rebind(`SELECT path FROM file_nodes WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", notFound(fmt.Sprintf("id %d", id))
	}
	if err != nil {
		return "", fmt.Errorf("lookup node %d: %w", id, err)
	}
	return p, nil
}

// Forget implements Index.
func (s *SQLIndex) Forget(ctx context.Context, p string) error {
	p = Clean(p)
	prefix := p + "/"
	_, err := s.db.ExecContext(ctx,
		s.db.Rebind(`DELETE FROM file_nodes WHERE path = ? OR substr(path, 1, ?) = ?`),
		p, utf8.RuneCountInString(prefix), prefix)
	if err != nil {
		return fmt.Errorf("forget node %s: %w", p, err)
	}
	return nil
}
