package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/and161185/niangadou-pos/internal/model"
)

// ClientRepo implements ClientRepository using PostgreSQL.
type ClientRepo struct{ db *DB }

// NewClientRepo constructs a client repository.
func NewClientRepo(db *DB) *ClientRepo { return &ClientRepo{db: db} }

// List returns all clients ordered by name.
func (r *ClientRepo) List(ctx context.Context) ([]model.Client, error) {
	const q = `SELECT id, nom, telephone FROM clients ORDER BY nom ASC`
	rows, err := r.db.Pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Client{}
	for rows.Next() {
		var c model.Client
		if err := rows.Scan(&c.ID, &c.Nom, &c.Telephone); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// upsertClient finds a client by exact name or creates it. A non-empty phone
// replaces the stored one.
func upsertClient(ctx context.Context, tx pgx.Tx, nom, telephone string) (model.Client, error) {
	const q = `
INSERT INTO clients (nom, telephone) VALUES ($1, $2)
ON CONFLICT (nom) DO UPDATE
SET telephone = CASE WHEN EXCLUDED.telephone <> '' THEN EXCLUDED.telephone ELSE clients.telephone END
RETURNING id, nom, telephone`
	var c model.Client
	err := tx.QueryRow(ctx, q, nom, telephone).Scan(&c.ID, &c.Nom, &c.Telephone)
	return c, err
}
