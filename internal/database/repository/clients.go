package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jask/clienthealth/internal/client"
)

// ClientRepo handles the client directory.
type ClientRepo struct {
	db DBTX
}

func NewClientRepo(db DBTX) *ClientRepo { return &ClientRepo{db: db} }

// Upsert writes c and replaces its aliases.
func (r *ClientRepo) Upsert(ctx context.Context, c client.Client) error {
	if _, err := r.db.ExecContext(ctx, `
	INSERT INTO clients(id, name, created_at, updated_at)
	VALUES (?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	ON CONFLICT(id) DO UPDATE SET
	 name=excluded.name,
	 updated_at=CURRENT_TIMESTAMP;
	`, c.ID, c.Name); err != nil {
		return fmt.Errorf("upsert client %s: %w", c.Name, err)
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM client_aliases WHERE client_id = ?`, c.ID); err != nil {
		return fmt.Errorf("clear aliases %s: %w", c.Name, err)
	}
	for _, alias := range c.Aliases {
		if _, err := r.db.ExecContext(ctx, `INSERT OR IGNORE INTO client_aliases(client_id, alias) VALUES (?, ?)`, c.ID, alias); err != nil {
			return fmt.Errorf("insert alias %s: %w", alias, err)
		}
	}
	return nil
}

func (r *ClientRepo) List(ctx context.Context) ([]client.Client, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM clients ORDER BY name`)
	if err != nil {
		return nil, err
	}
	var out []client.Client
	for rows.Next() {
		var c client.Client
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	aliases, err := r.aliases(ctx, "")
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Aliases = aliases[out[i].ID]
	}
	return out, nil
}

// Get returns the client with id, or nil when none exists.
func (r *ClientRepo) Get(ctx context.Context, id string) (*client.Client, error) {
	var c client.Client
	err := r.db.QueryRowContext(ctx, `SELECT id, name FROM clients WHERE id = ?`, id).Scan(&c.ID, &c.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	aliases, err := r.aliases(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Aliases = aliases[id]
	return &c, nil
}

func (r *ClientRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM clients WHERE id = ?`, id)
	return err
}

// aliases loads aliases keyed by client id; an empty id loads all.
func (r *ClientRepo) aliases(ctx context.Context, id string) (map[string][]string, error) {
	query := `SELECT client_id, alias FROM client_aliases ORDER BY client_id, alias`
	var args []any
	if id != "" {
		query = `SELECT client_id, alias FROM client_aliases WHERE client_id = ? ORDER BY alias`
		args = append(args, id)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string][]string{}
	for rows.Next() {
		var cid, alias string
		if err := rows.Scan(&cid, &alias); err != nil {
			return nil, err
		}
		out[cid] = append(out[cid], alias)
	}
	return out, rows.Err()
}
