package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/and161185/niangadou-pos/internal/errs"
	"github.com/and161185/niangadou-pos/internal/model"
)

func decodeError(t *testing.T, body []byte) string {
	t.Helper()
	var e model.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &e))
	return e.Error
}

func TestLogin(t *testing.T) {
	f := newFixture(t, false, nil)

	rec := f.do(http.MethodPost, "/api/login", `{"username":"awa","password":"pw"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got model.LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, model.LoginResponse{Token: "tok-awa", FullName: "Awa Traoré", Username: "awa"}, got)
	require.Equal(t, "10.0.0.7:51234", f.auth.gotIP)

	f.auth.err = errs.ErrUnauthorized
	rec = f.do(http.MethodPost, "/api/login", `{"username":"awa","password":"bad"}`, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, msgBadCredentials, decodeError(t, rec.Body.Bytes()))

	f.auth.err = errs.ErrRateLimited
	rec = f.do(http.MethodPost, "/api/login", `{"username":"awa","password":"bad"}`, "")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = f.do(http.MethodPost, "/api/login", `{"username":"","password":""}`, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPost, "/api/login", `{`, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, msgBadJSON, decodeError(t, rec.Body.Bytes()))
}

func TestLogin_StorageErrorIsHidden(t *testing.T) {
	f := newFixture(t, false, nil)
	f.auth.err = errors.New("pq: connection refused")

	rec := f.do(http.MethodPost, "/api/login", `{"username":"awa","password":"pw"}`, "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, msgInternal, decodeError(t, rec.Body.Bytes()))
}

func TestCatalogRoutes(t *testing.T) {
	f := newFixture(t, false, nil)
	price := 95000.0
	f.catalog.clients = []model.Client{{ID: 1, Nom: "Awa", Telephone: "70000000"}}
	f.catalog.products = []model.Product{{ID: 1, IMEI: "123456", Quantite: 1, PrixVente: &price, Status: model.StatusActive}}

	rec := f.do(http.MethodGet, "/api/clients", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `[{"id":1,"nom":"Awa","telephone":"70000000"}]`, rec.Body.String())

	rec = f.do(http.MethodGet, "/api/products?imei=123456", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "123456", f.catalog.gotIMEI)
	var products []model.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &products))
	require.Len(t, products, 1)
	require.Equal(t, price, *products[0].PrixVente)

	f.catalog.err = errors.New("boom")
	rec = f.do(http.MethodGet, "/api/clients", "", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestAddProduct_RequiresOperator(t *testing.T) {
	f := newFixture(t, false, nil)
	body := `{"imei":"123456","marque":"Itel","modele":"A70","prix_vente":"45000"}`

	rec := f.do(http.MethodPost, "/api/products", body, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Empty(t, f.catalog.added)

	rec = f.do(http.MethodPost, "/api/products", body, validToken(t, "awa"))
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, f.catalog.added, 1)
	require.Equal(t, 45000.0, *f.catalog.added[0].PrixVente)

	f.catalog.err = errs.ErrAlreadyExists
	rec = f.do(http.MethodPost, "/api/products", body, validToken(t, "awa"))
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "L'IMEI 123456 existe déjà", decodeError(t, rec.Body.Bytes()))
}

func TestRecordSale(t *testing.T) {
	f := newFixture(t, false, nil)
	body := `{"nom_client":"Awa","client_telephone":"","items":[{"imei":"123456","quantite_vendue":1,"prix_unitaire_vente":95000,"marque":"Samsung","modele":"A15","stockage":"","type":"","type_carton":null}],"montant_paye":95000}`

	rec := f.do(http.MethodPost, "/api/ventes", body, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var res model.SaleResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Equal(t, "Vente enregistrée avec succès.", res.Message)
	require.Equal(t, int64(42), res.Sale.ID)
	require.Empty(t, f.sales.gotVendeur, "anonymous sale")
	require.Len(t, f.sales.gotReq.Items, 1)
	require.Nil(t, f.sales.gotReq.Items[0].TypeCarton)

	rec = f.do(http.MethodPost, "/api/ventes", body, validToken(t, "moussa"))
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "moussa", f.sales.gotVendeur)

	rec = f.do(http.MethodPost, "/api/ventes", body, "garbage")
	require.Equal(t, http.StatusCreated, rec.Code, "bad token is ignored when auth is optional")
	require.Empty(t, f.sales.gotVendeur)
}

func TestRecordSale_Errors(t *testing.T) {
	cases := []struct {
		err    error
		status int
		msg    string
	}{
		{fmt.Errorf("Ajoutez au moins un produit: %w", errs.ErrValidation), http.StatusBadRequest, "Ajoutez au moins un produit"},
		{&errs.UnitError{IMEI: "123456", Err: errs.ErrOutOfStock}, http.StatusConflict, "Produit non disponible: 123456"},
		{&errs.UnitError{IMEI: "999999", Err: errs.ErrNotFound}, http.StatusConflict, "Produit introuvable: 999999"},
		{fmt.Errorf("lock: %w", errs.ErrOutOfStock), http.StatusConflict, "Produit non disponible"},
		{errors.New("tx aborted"), http.StatusInternalServerError, msgInternal},
	}
	for _, tc := range cases {
		f := newFixture(t, false, nil)
		f.sales.err = tc.err
		rec := f.do(http.MethodPost, "/api/ventes", `{"nom_client":"Awa","items":[],"montant_paye":0}`, "")
		require.Equal(t, tc.status, rec.Code, tc.msg)
		require.Equal(t, tc.msg, decodeError(t, rec.Body.Bytes()))
	}
}

func TestSalesHistory(t *testing.T) {
	f := newFixture(t, false, nil)
	f.sales.list = []model.Sale{{ID: 1, NomClient: "Awa"}, {ID: 2, NomClient: "Moussa"}}

	rec := f.do(http.MethodGet, "/api/ventes?dettes=true", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, f.sales.gotDebts)

	rec = f.do(http.MethodGet, "/api/ventes/2", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var s model.Sale
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &s))
	require.Equal(t, "Moussa", s.NomClient)

	rec = f.do(http.MethodGet, "/api/ventes/77", "", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(http.MethodGet, "/api/ventes/abc", "", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReportRoutes(t *testing.T) {
	f := newFixture(t, false, nil)

	rec := f.do(http.MethodGet, "/api/rapport?from=2025-03-01&to=2025-03-31", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), f.reports.from)
	require.Equal(t, time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC), f.reports.to)

	rec = f.do(http.MethodGet, "/api/rapport?from=01/03/2025", "", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Date from invalide (AAAA-MM-JJ attendu)", decodeError(t, rec.Body.Bytes()))

	rec = f.do(http.MethodGet, "/api/rapport", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, time.Now().UTC().Format("2006-01-02"), f.reports.from.Format("2006-01-02"))

	rec = f.do(http.MethodGet, "/api/rapport/export?from=2025-03-01&to=2025-03-02", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rec.Header().Get("Content-Type"))
	require.Equal(t, "attachment; filename=rapport_2025-03-01_2025-03-02.xlsx", rec.Header().Get("Content-Disposition"))
	require.Equal(t, "PK-fake", rec.Body.String())

	f.reports.err = fmt.Errorf("La date de fin précède la date de début: %w", errs.ErrValidation)
	rec = f.do(http.MethodGet, "/api/rapport/export?from=2025-03-02&to=2025-03-01", "", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "La date de fin précède la date de début", decodeError(t, rec.Body.Bytes()))
}

func TestRequireAuth(t *testing.T) {
	f := newFixture(t, true, nil)

	for _, path := range []string{"/api/clients", "/api/products", "/api/ventes", "/api/rapport"} {
		rec := f.do(http.MethodGet, path, "", "")
		require.Equal(t, http.StatusUnauthorized, rec.Code, path)
		require.Equal(t, msgUnauthenticated, decodeError(t, rec.Body.Bytes()))
	}

	rec := f.do(http.MethodGet, "/api/clients", "", validToken(t, "awa"))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodPost, "/api/login", `{"username":"awa","password":"pw"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, "login stays public")
}

func TestHealth(t *testing.T) {
	rec := newFixture(t, false, nil).do(http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = newFixture(t, false, fakePinger{}).do(http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = newFixture(t, false, fakePinger{err: errors.New("down")}).do(http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRecover_PanicBecomes500(t *testing.T) {
	f := newFixture(t, false, nil)
	f.sales.panicMsg = "oh no"

	rec := f.do(http.MethodPost, "/api/ventes", `{"nom_client":"Awa"}`, "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, msgInternal, decodeError(t, rec.Body.Bytes()))
}
