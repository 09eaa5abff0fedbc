package doclink

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// ErrBadIndex reports a docset index that cannot be opened or read.
var ErrBadIndex = errors.New("unreadable docset index")

// DocsetResolver resolves identifiers from a Dash-style docset: a sqlite
// database with a searchIndex(name, type, path) table. The whole index is
// loaded at construction and the database closed again, so lookups are plain
// map hits and the resolver is safe for concurrent use.
type DocsetResolver struct {
	baseURL string
	entries map[string]string
}

var _ Resolver = (*DocsetResolver)(nil)

// NewDocsetResolver loads the searchIndex table of the database at dbPath.
// Entry paths are joined onto baseURL. Duplicate names keep their first row,
// matching the index's own ordering.
func NewDocsetResolver(ctx context.Context, dbPath, baseURL string) (*DocsetResolver, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open docset index: %w", err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `SELECT name, path FROM searchIndex ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadIndex, err)
	}
	defer rows.Close()

	entries := make(map[string]string)
	for rows.Next() {
		var name, path string
		if err := rows.Scan(&name, &path); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadIndex, err)
		}
		if _, seen := entries[name]; !seen {
			entries[name] = path
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadIndex, err)
	}

	return &DocsetResolver{baseURL: strings.TrimRight(baseURL, "/"), entries: entries}, nil
}

// Len reports how many distinct identifiers the index knows.
func (r *DocsetResolver) Len() int { return len(r.entries) }

func (r *DocsetResolver) Resolve(ident string) (string, bool) {
	path, ok := r.entries[ident]
	if !ok {
		return "", false
	}
	return r.baseURL + "/" + path, true
}
