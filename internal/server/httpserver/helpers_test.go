package httpserver

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/niangadou-pos/internal/errs"
	"github.com/and161185/niangadou-pos/internal/model"
	"github.com/and161185/niangadou-pos/internal/service"
)

var signKey = []byte("secret")

func makeJWT(t *testing.T, sub, username string, key []byte, method jwt.SigningMethod, iat time.Time, ttl time.Duration) string {
	t.Helper()
	claims := service.AccessClaims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			IssuedAt:  jwt.NewNumericDate(iat),
			NotBefore: jwt.NewNumericDate(iat),
			ExpiresAt: jwt.NewNumericDate(iat.Add(ttl)),
		},
	}
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("SignedString: %v", err)
	}
	return s
}

func validToken(t *testing.T, username string) string {
	t.Helper()
	return makeJWT(t, uuid.Must(uuid.NewV4()).String(), username, signKey, jwt.SigningMethodHS256,
		time.Now().Add(-time.Minute), 10*time.Minute)
}

type fakeAuth struct {
	err     error
	gotIP   string
	gotUser string
}

func (f *fakeAuth) Register(context.Context, string, string, string) (string, error) { return "", nil }

func (f *fakeAuth) LoginWithIP(_ context.Context, username, _ string, ip string) (model.Tokens, model.User, error) {
	f.gotUser, f.gotIP = username, ip
	if f.err != nil {
		return model.Tokens{}, model.User{}, f.err
	}
	return model.Tokens{AccessToken: "tok-" + username}, model.User{Username: username, FullName: "Awa Traoré"}, nil
}

type fakeCatalog struct {
	clients  []model.Client
	products []model.Product
	err      error
	gotIMEI  string
	added    []model.Product
}

func (f *fakeCatalog) Clients(context.Context) ([]model.Client, error) { return f.clients, f.err }

func (f *fakeCatalog) Products(_ context.Context, imei string) ([]model.Product, error) {
	f.gotIMEI = imei
	return f.products, f.err
}

func (f *fakeCatalog) AddProduct(_ context.Context, p model.Product) (model.Product, error) {
	if f.err != nil {
		return model.Product{}, f.err
	}
	p.ID = 9
	f.added = append(f.added, p)
	return p, nil
}

func (f *fakeCatalog) Invalidate(context.Context) {}

type fakeSales struct {
	err        error
	gotReq     model.SaleRequest
	gotVendeur string
	list       []model.Sale
	gotDebts   bool
	panicMsg   string
}

func (f *fakeSales) Record(_ context.Context, req model.SaleRequest, vendeur string) (model.Sale, error) {
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	f.gotReq, f.gotVendeur = req, vendeur
	if f.err != nil {
		return model.Sale{}, f.err
	}
	return model.Sale{ID: 42, NomClient: req.NomClient, Statut: model.SalePaid, Vendeur: vendeur}, nil
}

func (f *fakeSales) Get(_ context.Context, id int64) (*model.Sale, error) {
	for _, s := range f.list {
		if s.ID == id {
			c := s
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (f *fakeSales) List(_ context.Context, debtsOnly bool) ([]model.Sale, error) {
	f.gotDebts = debtsOnly
	return f.list, f.err
}

type fakeReports struct {
	from, to time.Time
	err      error
}

func (f *fakeReports) Summary(_ context.Context, from, to time.Time) (model.Report, error) {
	f.from, f.to = from, to
	return model.Report{From: from, To: to, NbVentes: 2}, f.err
}

func (f *fakeReports) Export(_ context.Context, from, to time.Time, w io.Writer) error {
	f.from, f.to = from, to
	if f.err != nil {
		return f.err
	}
	_, err := w.Write([]byte("PK-fake"))
	return err
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

type fixture struct {
	auth    *fakeAuth
	catalog *fakeCatalog
	sales   *fakeSales
	reports *fakeReports
	handler http.Handler
}

func newFixture(t *testing.T, requireAuth bool, db Pinger) *fixture {
	t.Helper()
	f := &fixture{
		auth:    &fakeAuth{},
		catalog: &fakeCatalog{},
		sales:   &fakeSales{},
		reports: &fakeReports{},
	}
	srv := New(f.auth, f.catalog, f.sales, f.reports, db,
		Options{SignKey: signKey, RequireAuth: requireAuth, Location: time.UTC}, zaptest.NewLogger(t))
	f.handler = srv.Routes()
	return f
}

func (f *fixture) do(method, path, body, token string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	req.RemoteAddr = "10.0.0.7:51234"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}
