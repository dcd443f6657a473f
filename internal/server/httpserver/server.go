// Package httpserver exposes the point-of-sale REST API.
package httpserver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/and161185/niangadou-pos/internal/errs"
	"github.com/and161185/niangadou-pos/internal/model"
	"github.com/and161185/niangadou-pos/internal/service"
)

// Pinger reports storage liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options tune the router.
type Options struct {
	SignKey        []byte
	RequireAuth    bool
	RequestTimeout time.Duration
	Location       *time.Location // day boundaries of reports
}

// Server wires services into HTTP handlers.
type Server struct {
	auth    service.AuthService
	catalog service.CatalogService
	sales   service.SaleService
	reports service.ReportService
	db      Pinger
	opts    Options
	log     *zap.Logger
}

// New constructs a Server with injected services. db may be nil.
func New(auth service.AuthService, catalog service.CatalogService, sales service.SaleService,
	reports service.ReportService, db Pinger, opts Options, log *zap.Logger) *Server {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{auth: auth, catalog: catalog, sales: sales, reports: reports, db: db, opts: opts, log: log}
}

// Routes builds the chi router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(Logging(s.log))
	r.Use(Recover(s.log))
	r.Use(middleware.Timeout(s.opts.RequestTimeout))

	r.Get("/health", s.health)

	r.Route("/api", func(r chi.Router) {
		r.Post("/login", s.login)

		r.Group(func(r chi.Router) {
			r.Use(Authenticate(s.opts.SignKey, s.opts.RequireAuth))

			r.Get("/clients", s.listClients)
			r.Get("/products", s.listProducts)
			r.With(RequireOperator).Post("/products", s.addProduct)

			r.Post("/ventes", s.recordSale)
			r.Get("/ventes", s.listSales)
			r.Get("/ventes/{id}", s.getSale)

			r.Get("/rapport", s.report)
			r.Get("/rapport/export", s.exportReport)
		})
	})

	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.Ping(r.Context()); err != nil {
			s.log.Warn("health: database unreachable", zap.Error(err))
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- Auth ---

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, msgBadJSON)
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "Nom d'utilisateur et mot de passe requis")
		return
	}

	tok, u, err := s.auth.LoginWithIP(r.Context(), req.Username, req.Password, r.RemoteAddr)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	respondJSON(w, http.StatusOK, model.LoginResponse{
		Token:    tok.AccessToken,
		FullName: u.FullName,
		Username: u.Username,
	})
}

// --- Catalog ---

func (s *Server) listClients(w http.ResponseWriter, r *http.Request) {
	out, err := s.catalog.Clients(r.Context())
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	out, err := s.catalog.Products(r.Context(), r.URL.Query().Get("imei"))
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) addProduct(w http.ResponseWriter, r *http.Request) {
	var p model.Product
	if err := decodeJSON(w, r, &p); err != nil {
		respondError(w, http.StatusBadRequest, msgBadJSON)
		return
	}
	out, err := s.catalog.AddProduct(r.Context(), p)
	if err != nil {
		if errors.Is(err, errs.ErrAlreadyExists) {
			respondError(w, http.StatusConflict, fmt.Sprintf("L'IMEI %s existe déjà", p.IMEI))
			return
		}
		writeError(w, s.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, out)
}

// --- Sales ---

func (s *Server) recordSale(w http.ResponseWriter, r *http.Request) {
	var req model.SaleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, msgBadJSON)
		return
	}
	var vendeur string
	if op, ok := OperatorFromCtx(r.Context()); ok {
		vendeur = op.Username
	}

	out, err := s.sales.Record(r.Context(), req, vendeur)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			respondError(w, http.StatusConflict, unitMessage("Produit introuvable", err))
			return
		}
		writeError(w, s.log, err)
		return
	}
	s.log.Info("sale recorded",
		zap.Int64("id", out.ID),
		zap.Int("items", len(out.Items)),
		zap.String("statut", out.Statut),
		zap.String("vendeur", vendeur),
	)
	respondJSON(w, http.StatusCreated, model.SaleResult{Message: "Vente enregistrée avec succès.", Sale: out})
}

func (s *Server) listSales(w http.ResponseWriter, r *http.Request) {
	debts, _ := strconv.ParseBool(r.URL.Query().Get("dettes"))
	out, err := s.sales.List(r.Context(), debts)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) getSale(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "Identifiant de vente invalide")
		return
	}
	out, err := s.sales.Get(r.Context(), id)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	respondJSON(w, http.StatusOK, out)
}

// --- Reports ---

func (s *Server) report(w http.ResponseWriter, r *http.Request) {
	from, to, err := s.reportRange(r)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	out, err := s.reports.Summary(r.Context(), from, to)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) exportReport(w http.ResponseWriter, r *http.Request) {
	from, to, err := s.reportRange(r)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	var buf bytes.Buffer
	if err := s.reports.Export(r.Context(), from, to, &buf); err != nil {
		writeError(w, s.log, err)
		return
	}

	name := fmt.Sprintf("rapport_%s_%s.xlsx", from.Format(service.DayLayout), to.Format(service.DayLayout))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", name))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// reportRange reads ?from=&to= as days; both default to today.
func (s *Server) reportRange(r *http.Request) (time.Time, time.Time, error) {
	today := time.Now().In(s.opts.Location)
	parse := func(key string) (time.Time, error) {
		v := strings.TrimSpace(r.URL.Query().Get(key))
		if v == "" {
			return today, nil
		}
		t, err := time.ParseInLocation(service.DayLayout, v, s.opts.Location)
		if err != nil {
			return time.Time{}, fmt.Errorf("Date %s invalide (AAAA-MM-JJ attendu): %w", key, errs.ErrValidation)
		}
		return t, nil
	}
	from, err := parse("from")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := parse("to")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, to, nil
}
