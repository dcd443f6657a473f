package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/and161185/niangadou-pos/internal/errs"
	"github.com/and161185/niangadou-pos/internal/model"
	"github.com/and161185/niangadou-pos/internal/repository"
)

var (
	saleColumns = []string{"id", "reference", "client_id", "nom", "telephone", "montant_total", "montant_paye",
		"reste", "statut_paiement", "vendeur", "date_vente"}
	itemColumns = []string{"id", "vente_id", "produit_id", "imei", "marque", "modele", "stockage", "type",
		"type_carton", "quantite_vendue", "prix_unitaire_vente", "prix_achat"}
	soldAt = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
)

func expectUpsertClient(mock pgxmock.PgxPoolIface) {
	mock.ExpectQuery(`INSERT INTO clients \(nom, telephone\)`).
		WithArgs("Awa", "70000000").
		WillReturnRows(pgxmock.NewRows([]string{"id", "nom", "telephone"}).AddRow(int64(3), "Awa", "70000000"))
}

func unitRow(id int64, imei string, qty int, status string) *pgxmock.Rows {
	return pgxmock.NewRows(productColumns).
		AddRow(id, imei, "Samsung", "A15", "128Go", "telephone", "", qty, fp(95000), fp(80000), status, soldAt)
}

func settleAll(ref uuid.UUID) repository.SaleSettler {
	return func(c model.Client, units []model.Product) (model.Sale, error) {
		s := model.Sale{Reference: ref, Total: 95000, MontantPaye: 50000, ResteAPayer: 45000,
			Statut: model.SalePartial, Vendeur: "awa"}
		for _, u := range units {
			s.Items = append(s.Items, model.SaleItem{ProductID: u.ID, IMEI: u.IMEI, Marque: u.Marque, Modele: u.Modele,
				Stockage: u.Stockage, Type: u.Type, QuantiteVendue: 1, PrixUnitaireVente: *u.PrixVente, PrixAchat: *u.PrixAchat})
		}
		return s, nil
	}
}

func TestSaleRepo_Record_OK(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewSaleRepo(db)
	ref := uuid.Must(uuid.NewV4())

	mock.ExpectBegin()
	expectUpsertClient(mock)
	mock.ExpectQuery(`FROM products WHERE imei=\$1 FOR UPDATE`).
		WithArgs("123456").
		WillReturnRows(unitRow(10, "123456", 1, model.StatusActive))
	mock.ExpectExec(`UPDATE products SET quantite=0, status=\$2 WHERE id=\$1`).
		WithArgs(int64(10), model.StatusSold).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery(`INSERT INTO ventes`).
		WithArgs(ref, int64(3), 95000.0, 50000.0, model.SalePartial, "awa").
		WillReturnRows(pgxmock.NewRows([]string{"id", "date_vente"}).AddRow(int64(42), soldAt))
	mock.ExpectQuery(`INSERT INTO vente_items`).
		WithArgs(int64(42), int64(10), "123456", "Samsung", "A15", "128Go", "telephone", "", 1, 95000.0, 80000.0).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(100)))
	mock.ExpectCommit()

	s, err := r.Record(context.Background(), "Awa", "70000000", []string{"123456"}, settleAll(ref))
	require.NoError(t, err)
	require.Equal(t, int64(42), s.ID)
	require.Equal(t, int64(3), s.ClientID)
	require.Equal(t, "Awa", s.NomClient)
	require.Equal(t, soldAt, s.DateVente)
	require.Len(t, s.Items, 1)
	require.Equal(t, int64(100), s.Items[0].ID)
	require.Equal(t, int64(42), s.Items[0].SaleID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaleRepo_Record_LocksInIMEIOrder(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewSaleRepo(db)
	ref := uuid.Must(uuid.NewV4())

	mock.ExpectBegin()
	expectUpsertClient(mock)
	mock.ExpectQuery(`FOR UPDATE`).WithArgs("123456").
		WillReturnRows(unitRow(10, "123456", 1, model.StatusActive))
	mock.ExpectQuery(`FOR UPDATE`).WithArgs("654321").
		WillReturnRows(unitRow(11, "654321", 1, model.StatusActive))
	mock.ExpectExec(`UPDATE products`).WithArgs(int64(11), model.StatusSold).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE products`).WithArgs(int64(10), model.StatusSold).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery(`INSERT INTO ventes`).
		WithArgs(ref, int64(3), 95000.0, 50000.0, model.SalePartial, "awa").
		WillReturnRows(pgxmock.NewRows([]string{"id", "date_vente"}).AddRow(int64(42), soldAt))
	mock.ExpectQuery(`INSERT INTO vente_items`).
		WithArgs(int64(42), int64(11), "654321", "Samsung", "A15", "128Go", "telephone", "", 1, 95000.0, 80000.0).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(100)))
	mock.ExpectQuery(`INSERT INTO vente_items`).
		WithArgs(int64(42), int64(10), "123456", "Samsung", "A15", "128Go", "telephone", "", 1, 95000.0, 80000.0).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(101)))
	mock.ExpectCommit()

	imeis := []string{"654321", "123456"}
	s, err := r.Record(context.Background(), "Awa", "70000000", imeis, settleAll(ref))
	require.NoError(t, err)
	require.Equal(t, []string{"654321", "123456"}, imeis, "caller slice untouched")
	require.Len(t, s.Items, 2)
	require.Equal(t, "654321", s.Items[0].IMEI, "lines keep request order")
	require.Equal(t, "123456", s.Items[1].IMEI)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaleRepo_Record_UnknownIMEI_RollsBack(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewSaleRepo(db)

	mock.ExpectBegin()
	expectUpsertClient(mock)
	mock.ExpectQuery(`FOR UPDATE`).WithArgs("999999").WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	_, err := r.Record(context.Background(), "Awa", "70000000", []string{"999999"}, settleAll(uuid.Nil))
	require.ErrorIs(t, err, errs.ErrNotFound)
	var ue *errs.UnitError
	require.ErrorAs(t, err, &ue)
	require.Equal(t, "999999", ue.IMEI)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaleRepo_Record_SoldUnit_OutOfStock(t *testing.T) {
	for _, tc := range []struct {
		name   string
		qty    int
		status string
	}{
		{"already sold", 0, model.StatusSold},
		{"bulk quantity", 3, model.StatusActive},
	} {
		t.Run(tc.name, func(t *testing.T) {
			db, mock := newDB(t)
			defer mock.Close()
			r := NewSaleRepo(db)

			mock.ExpectBegin()
			expectUpsertClient(mock)
			mock.ExpectQuery(`FOR UPDATE`).WithArgs("123456").
				WillReturnRows(unitRow(10, "123456", tc.qty, tc.status))
			mock.ExpectRollback()

			_, err := r.Record(context.Background(), "Awa", "70000000", []string{"123456"}, settleAll(uuid.Nil))
			require.ErrorIs(t, err, errs.ErrOutOfStock)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSaleRepo_Record_SettleError_RollsBack(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewSaleRepo(db)
	boom := errors.New("price missing")

	mock.ExpectBegin()
	expectUpsertClient(mock)
	mock.ExpectQuery(`FOR UPDATE`).WithArgs("123456").
		WillReturnRows(unitRow(10, "123456", 1, model.StatusActive))
	mock.ExpectRollback()

	_, err := r.Record(context.Background(), "Awa", "70000000", []string{"123456"},
		func(model.Client, []model.Product) (model.Sale, error) { return model.Sale{}, boom })
	require.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaleRepo_Get(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewSaleRepo(db)
	ref := uuid.Must(uuid.NewV4())

	mock.ExpectQuery(`FROM ventes v JOIN clients c ON c.id = v.client_id WHERE v.id=\$1`).
		WithArgs(int64(42)).
		WillReturnRows(pgxmock.NewRows(saleColumns).
			AddRow(int64(42), ref, int64(3), "Awa", "70000000", 95000.0, 50000.0, 45000.0, model.SalePartial, "awa", soldAt))
	mock.ExpectQuery(`FROM vente_items WHERE vente_id = ANY\(\$1\)`).
		WithArgs([]int64{42}).
		WillReturnRows(pgxmock.NewRows(itemColumns).
			AddRow(int64(100), int64(42), int64(10), "123456", "Samsung", "A15", "128Go", "telephone", "", 1, 95000.0, 80000.0))

	s, err := r.Get(context.Background(), 42)
	require.NoError(t, err)
	require.Equal(t, ref, s.Reference)
	require.Equal(t, 45000.0, s.ResteAPayer)
	require.Len(t, s.Items, 1)
	require.Equal(t, "123456", s.Items[0].IMEI)

	mock.ExpectQuery(`WHERE v.id=\$1`).WithArgs(int64(7)).WillReturnError(pgx.ErrNoRows)
	_, err = r.Get(context.Background(), 7)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestSaleRepo_List_DebtsOnly(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewSaleRepo(db)

	mock.ExpectQuery(`WHERE v.montant_paye < v.montant_total ORDER BY v.date_vente DESC, v.id DESC LIMIT \$1`).
		WithArgs(200).
		WillReturnRows(pgxmock.NewRows(saleColumns).
			AddRow(int64(42), uuid.Must(uuid.NewV4()), int64(3), "Awa", "", 95000.0, 0.0, 95000.0, model.SaleUnpaid, "", soldAt))

	out, err := r.List(context.Background(), repository.SaleFilter{DebtsOnly: true})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, model.SaleUnpaid, out[0].Statut)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaleRepo_ItemsBetween(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewSaleRepo(db)
	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)

	mock.ExpectQuery(`WHERE v.date_vente >= \$1 AND v.date_vente < \$2`).
		WithArgs(from, to).
		WillReturnRows(pgxmock.NewRows(saleColumns).
			AddRow(int64(1), uuid.Must(uuid.NewV4()), int64(3), "Awa", "", 100.0, 100.0, 0.0, model.SalePaid, "", soldAt).
			AddRow(int64(2), uuid.Must(uuid.NewV4()), int64(4), "Moussa", "", 50.0, 0.0, 50.0, model.SaleUnpaid, "", soldAt))
	mock.ExpectQuery(`FROM vente_items`).
		WithArgs([]int64{1, 2}).
		WillReturnRows(pgxmock.NewRows(itemColumns).
			AddRow(int64(10), int64(2), int64(5), "111111", "Itel", "A70", "", "", "", 1, 50.0, 30.0).
			AddRow(int64(11), int64(1), int64(6), "222222", "Tecno", "Pop", "", "", "", 1, 100.0, 70.0))

	out, err := r.ItemsBetween(context.Background(), from, to)
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Len(t, out[0].Items, 1)
	require.Equal(t, "222222", out[0].Items[0].IMEI)
	require.Equal(t, "111111", out[1].Items[0].IMEI)

	mock.ExpectQuery(`WHERE v.date_vente >= \$1`).
		WithArgs(from, to).
		WillReturnRows(pgxmock.NewRows(saleColumns))
	out, err = r.ItemsBetween(context.Background(), from, to)
	require.NoError(t, err)
	require.Empty(t, out)
	require.NoError(t, mock.ExpectationsWereMet())
}
