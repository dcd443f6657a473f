package postgres

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/and161185/niangadou-pos/internal/errs"
	"github.com/and161185/niangadou-pos/internal/model"
	"github.com/and161185/niangadou-pos/internal/repository"
)

const saleHeader = `
SELECT v.id, v.reference, v.client_id, c.nom, c.telephone, v.montant_total, v.montant_paye,
       GREATEST(v.montant_total - v.montant_paye, 0), v.statut_paiement, v.vendeur, v.date_vente
FROM ventes v JOIN clients c ON c.id = v.client_id`

const saleItemCols = `id, vente_id, produit_id, imei, marque, modele, stockage, type, type_carton, quantite_vendue, prix_unitaire_vente, prix_achat`

// SaleRepo implements SaleRepository using PostgreSQL.
type SaleRepo struct{ db *DB }

// NewSaleRepo constructs a sale repository.
func NewSaleRepo(db *DB) *SaleRepo { return &SaleRepo{db: db} }

// Record stores a sale in a single transaction. Units are locked in sorted
// IMEI order and settled in request order; a unit that is missing or not
// sellable aborts the whole sale.
func (r *SaleRepo) Record(
	ctx context.Context, nomClient, telephone string, imeis []string, settle repository.SaleSettler,
) (sale model.Sale, err error) {
	err = r.db.inTx(ctx, func(tx pgx.Tx) error {
		client, err := upsertClient(ctx, tx, nomClient, telephone)
		if err != nil {
			return fmt.Errorf("client: %w", err)
		}

		locked := make(map[string]model.Product, len(imeis))
		sortedIMEIs := slices.Clone(imeis)
		slices.Sort(sortedIMEIs)
		for _, imei := range sortedIMEIs {
			u, err := lockUnit(ctx, tx, imei)
			switch {
			case errors.Is(err, pgx.ErrNoRows):
				return &errs.UnitError{IMEI: imei, Err: errs.ErrNotFound}
			case err != nil:
				return err
			case u.Status != model.StatusActive || u.Quantite != 1:
				return &errs.UnitError{IMEI: imei, Err: errs.ErrOutOfStock}
			}
			locked[imei] = u
		}
		units := make([]model.Product, 0, len(imeis))
		for _, imei := range imeis {
			units = append(units, locked[imei])
		}

		sale, err = settle(client, units)
		if err != nil {
			return err
		}

		const sold = `UPDATE products SET quantite=0, status=$2 WHERE id=$1`
		for _, u := range units {
			if _, err := tx.Exec(ctx, sold, u.ID, model.StatusSold); err != nil {
				return err
			}
		}

		const insSale = `
INSERT INTO ventes (reference, client_id, montant_total, montant_paye, statut_paiement, vendeur)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, date_vente`
		if err := tx.QueryRow(ctx, insSale,
			sale.Reference, client.ID, sale.Total, sale.MontantPaye, sale.Statut, sale.Vendeur,
		).Scan(&sale.ID, &sale.DateVente); err != nil {
			return err
		}

		const insItem = `
INSERT INTO vente_items (vente_id, produit_id, imei, marque, modele, stockage, type, type_carton, quantite_vendue, prix_unitaire_vente, prix_achat)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING id`
		for i := range sale.Items {
			it := &sale.Items[i]
			it.SaleID = sale.ID
			if err := tx.QueryRow(ctx, insItem,
				sale.ID, it.ProductID, it.IMEI, it.Marque, it.Modele, it.Stockage, it.Type, it.TypeCarton,
				it.QuantiteVendue, it.PrixUnitaireVente, it.PrixAchat,
			).Scan(&it.ID); err != nil {
				return err
			}
		}

		sale.ClientID = client.ID
		sale.NomClient = client.Nom
		sale.ClientTelephone = client.Telephone
		return nil
	})
	if err != nil {
		return model.Sale{}, err
	}
	return sale, nil
}

// Get returns one sale and its lines.
func (r *SaleRepo) Get(ctx context.Context, id int64) (*model.Sale, error) {
	s, err := scanSale(r.db.Pool.QueryRow(ctx, saleHeader+` WHERE v.id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	items, err := r.items(ctx, []int64{s.ID})
	if err != nil {
		return nil, err
	}
	s.Items = items[s.ID]
	return &s, nil
}

// List returns sale headers newest first.
func (r *SaleRepo) List(ctx context.Context, f repository.SaleFilter) ([]model.Sale, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 200
	}
	q := saleHeader
	if f.DebtsOnly {
		q += ` WHERE v.montant_paye < v.montant_total`
	}
	q += ` ORDER BY v.date_vente DESC, v.id DESC LIMIT $1`
	return r.headers(ctx, q, limit)
}

// ItemsBetween returns sales dated in [from, to) with their lines.
func (r *SaleRepo) ItemsBetween(ctx context.Context, from, to time.Time) ([]model.Sale, error) {
	sales, err := r.headers(ctx, saleHeader+` WHERE v.date_vente >= $1 AND v.date_vente < $2 ORDER BY v.date_vente ASC, v.id ASC`, from, to)
	if err != nil || len(sales) == 0 {
		return sales, err
	}
	ids := make([]int64, len(sales))
	for i := range sales {
		ids[i] = sales[i].ID
	}
	items, err := r.items(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range sales {
		sales[i].Items = items[sales[i].ID]
	}
	return sales, nil
}

func (r *SaleRepo) headers(ctx context.Context, q string, args ...any) ([]model.Sale, error) {
	rows, err := r.db.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Sale{}
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SaleRepo) items(ctx context.Context, saleIDs []int64) (map[int64][]model.SaleItem, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT `+saleItemCols+` FROM vente_items WHERE vente_id = ANY($1) ORDER BY id ASC`, saleIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64][]model.SaleItem, len(saleIDs))
	for rows.Next() {
		var it model.SaleItem
		if err := rows.Scan(&it.ID, &it.SaleID, &it.ProductID, &it.IMEI, &it.Marque, &it.Modele, &it.Stockage,
			&it.Type, &it.TypeCarton, &it.QuantiteVendue, &it.PrixUnitaireVente, &it.PrixAchat); err != nil {
			return nil, err
		}
		out[it.SaleID] = append(out[it.SaleID], it)
	}
	return out, rows.Err()
}

func scanSale(row pgx.Row) (model.Sale, error) {
	var s model.Sale
	err := row.Scan(&s.ID, &s.Reference, &s.ClientID, &s.NomClient, &s.ClientTelephone, &s.Total,
		&s.MontantPaye, &s.ResteAPayer, &s.Statut, &s.Vendeur, &s.DateVente)
	return s, err
}
