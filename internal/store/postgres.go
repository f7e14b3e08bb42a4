package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/hyprcat/hyprcat/internal/jsonld"
)

// PostgresBackend persists resources in a single JSONB-bodied table,
// using a held *sql.DB, simple parameterized queries, and no ORM,
// generalized from wallet rows to arbitrary JSON-LD resources. This
// backend is additive: memory remains the default, and enabling it
// never changes the Backend contract other callers rely on.
type PostgresBackend struct {
	db *sql.DB
}

// NewPostgresBackend opens dsn and ensures the resources table exists.
func NewPostgresBackend(ctx context.Context, dsn string) (*PostgresBackend, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("store: ping postgres: %w", err)
	}

	const schema = `
CREATE TABLE IF NOT EXISTS resources (
	id TEXT PRIMARY KEY,
	types TEXT[] NOT NULL DEFAULT '{}',
	body JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("store: ensure schema: %w", err)
	}

	return &PostgresBackend{db: db}, nil
}

func (p *PostgresBackend) Get(ctx context.Context, id string) (jsonld.Node, error) {
	var body []byte
	err := p.db.QueryRowContext(ctx, `SELECT body FROM resources WHERE id = $1`, id).Scan(&body)
	if err == sql.ErrNoRows {
		return jsonld.Node{}, ErrNotFound
	}
	if err != nil {
		return jsonld.Node{}, fmt.Errorf("store: get %s: %w", id, err)
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return jsonld.Node{}, fmt.Errorf("store: decode %s: %w", id, err)
	}
	return jsonld.NewNode(raw), nil
}

func (p *PostgresBackend) Put(ctx context.Context, n jsonld.Node) error {
	body, err := json.Marshal(n.Raw())
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", n.ID(), err)
	}
	const upsert = `
INSERT INTO resources (id, types, body, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (id) DO UPDATE SET types = $2, body = $3, updated_at = now()`
	_, err = p.db.ExecContext(ctx, upsert, n.ID(), pqStringArray(n.Types()), body)
	if err != nil {
		return fmt.Errorf("store: put %s: %w", n.ID(), err)
	}
	return nil
}

func (p *PostgresBackend) Delete(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM resources WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("store: delete %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresBackend) List(ctx context.Context, offset, limit int) ([]jsonld.Node, int, error) {
	var total int
	if err := p.db.QueryRowContext(ctx, `SELECT count(*) FROM resources`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("store: count resources: %w", err)
	}

	rows, err := p.db.QueryContext(ctx,
		`SELECT body FROM resources ORDER BY id LIMIT $1 OFFSET $2`, limitOrAll(limit, total), offset)
	if err != nil {
		return nil, 0, fmt.Errorf("store: list resources: %w", err)
	}
	defer rows.Close()
	return scanNodes(rows), total, nil
}

func (p *PostgresBackend) FindByType(ctx context.Context, typ string, offset, limit int) ([]jsonld.Node, int, error) {
	var total int
	if err := p.db.QueryRowContext(ctx,
		`SELECT count(*) FROM resources WHERE $1 = ANY(types)`, typ).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("store: count resources by type: %w", err)
	}

	rows, err := p.db.QueryContext(ctx,
		`SELECT body FROM resources WHERE $1 = ANY(types) ORDER BY id LIMIT $2 OFFSET $3`,
		typ, limitOrAll(limit, total), offset)
	if err != nil {
		return nil, 0, fmt.Errorf("store: find by type: %w", err)
	}
	defer rows.Close()
	return scanNodes(rows), total, nil
}

func (p *PostgresBackend) Close() error { return p.db.Close() }

func scanNodes(rows *sql.Rows) []jsonld.Node {
	out := make([]jsonld.Node, 0)
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			continue
		}
		var raw map[string]interface{}
		if err := json.Unmarshal(body, &raw); err != nil {
			continue
		}
		out = append(out, jsonld.NewNode(raw))
	}
	return out
}

func limitOrAll(limit, total int) int {
	if limit <= 0 {
		return total + 1
	}
	return limit
}

// pqStringArray renders a Go string slice as a Postgres array literal,
// avoiding a dependency on lib/pq's reflection-based Array helper so the
// query stays a plain parameterized string.
func pqStringArray(ss []string) string {
	out := "{"
	for i, s := range ss {
		if i > 0 {
			out += ","
		}
		out += `"` + s + `"`
	}
	return out + "}"
}
