package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/and161185/niangadou-pos/internal/errs"
	"github.com/and161185/niangadou-pos/internal/model"
)

const productCols = `id, imei, marque, modele, stockage, type, type_carton, quantite, prix_vente, prix_achat, status, date_ajout`

// ProductRepo implements ProductRepository using PostgreSQL.
type ProductRepo struct{ db *DB }

// NewProductRepo constructs a product repository.
func NewProductRepo(db *DB) *ProductRepo { return &ProductRepo{db: db} }

// List returns products newest first, optionally restricted to one IMEI.
func (r *ProductRepo) List(ctx context.Context, imei string) ([]model.Product, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if imei == "" {
		rows, err = r.db.Pool.Query(ctx, `SELECT `+productCols+` FROM products ORDER BY date_ajout DESC, id DESC`)
	} else {
		rows, err = r.db.Pool.Query(ctx, `SELECT `+productCols+` FROM products WHERE imei=$1`, imei)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Create inserts a product unit.
func (r *ProductRepo) Create(ctx context.Context, p *model.Product) error {
	const q = `
INSERT INTO products (imei, marque, modele, stockage, type, type_carton, quantite, prix_vente, prix_achat, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING id, date_ajout`
	err := r.db.Pool.QueryRow(ctx, q,
		p.IMEI, p.Marque, p.Modele, p.Stockage, p.Type, p.TypeCarton, p.Quantite, p.PrixVente, p.PrixAchat, p.Status,
	).Scan(&p.ID, &p.DateAjout)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// lockUnit selects a unit by IMEI with a row lock held until the transaction ends.
func lockUnit(ctx context.Context, tx pgx.Tx, imei string) (model.Product, error) {
	return scanProduct(tx.QueryRow(ctx, `SELECT `+productCols+` FROM products WHERE imei=$1 FOR UPDATE`, imei))
}

func scanProduct(row pgx.Row) (model.Product, error) {
	var p model.Product
	err := row.Scan(&p.ID, &p.IMEI, &p.Marque, &p.Modele, &p.Stockage, &p.Type, &p.TypeCarton,
		&p.Quantite, &p.PrixVente, &p.PrixAchat, &p.Status, &p.DateAjout)
	return p, err
}
