package selectors

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Schema for the selector_sets table. Queries are stored as a JSON array
// so the table stays editable with any SQLite client.
const Schema = `
CREATE TABLE IF NOT EXISTS selector_sets (
	target     TEXT PRIMARY KEY,
	queries    TEXT NOT NULL DEFAULT '[]',
	updated_at INTEGER NOT NULL
);
`

// LoadDB returns the defaults overlaid with the rows of selector_sets.
// The caller owns the *sql.DB and the driver registration.
func LoadDB(ctx context.Context, db *sql.DB) (*Registry, error) {
	rows, err := db.QueryContext(ctx, `SELECT target, queries FROM selector_sets`)
	if err != nil {
		return nil, fmt.Errorf("selectors: query selector_sets: %w", err)
	}
	defer rows.Close()

	sets := make(map[string][]string)
	for rows.Next() {
		var target, queriesJSON string
		if err := rows.Scan(&target, &queriesJSON); err != nil {
			return nil, fmt.Errorf("selectors: scan: %w", err)
		}
		var qs []string
		if err := json.Unmarshal([]byte(queriesJSON), &qs); err != nil {
			return nil, fmt.Errorf("selectors: target %s: bad queries JSON: %w", target, err)
		}
		if len(qs) > 0 {
			sets[target] = qs
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("selectors: rows: %w", err)
	}

	r := Defaults()
	r.Merge(sets)
	return r, nil
}

// SaveDB upserts one target's fallback list.
func SaveDB(ctx context.Context, db *sql.DB, target string, queries []string) error {
	data, err := json.Marshal(queries)
	if err != nil {
		return fmt.Errorf("selectors: marshal queries: %w", err)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO selector_sets (target, queries, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(target) DO UPDATE SET queries = excluded.queries, updated_at = excluded.updated_at
	`, target, string(data), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("selectors: upsert %s: %w", target, err)
	}
	return nil
}
