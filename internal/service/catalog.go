package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/and161185/niangadou-pos/internal/cache"
	"github.com/and161185/niangadou-pos/internal/errs"
	"github.com/and161185/niangadou-pos/internal/model"
	"github.com/and161185/niangadou-pos/internal/repository"
	"github.com/and161185/niangadou-pos/internal/sale"
)

// CatalogService serves client and product listings.
type CatalogService interface {
	Clients(ctx context.Context) ([]model.Client, error)
	// Products returns every unit, or only the one carrying imei when set.
	Products(ctx context.Context, imei string) ([]model.Product, error)
	AddProduct(ctx context.Context, p model.Product) (model.Product, error)
	// Invalidate drops cached listings after a write elsewhere.
	Invalidate(ctx context.Context)
}

type CatalogServiceImpl struct {
	clients  repository.ClientRepository
	products repository.ProductRepository
	cache    cache.CatalogCache
	log      *zap.Logger

	// gen counts invalidations; a load that overlaps one is not stored.
	gen atomic.Uint64
}

// NewCatalogService wires repositories and an optional cache.
func NewCatalogService(clients repository.ClientRepository, products repository.ProductRepository,
	c cache.CatalogCache, log *zap.Logger) *CatalogServiceImpl {
	if c == nil {
		c = cache.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &CatalogServiceImpl{clients: clients, products: products, cache: c, log: log}
}

func (s *CatalogServiceImpl) Clients(ctx context.Context) ([]model.Client, error) {
	return cached(ctx, s, cache.KeyClients, s.clients.List)
}

func (s *CatalogServiceImpl) Products(ctx context.Context, imei string) ([]model.Product, error) {
	imei = strings.TrimSpace(imei)
	if imei != "" {
		return s.products.List(ctx, imei)
	}
	return cached(ctx, s, cache.KeyProducts, func(ctx context.Context) ([]model.Product, error) {
		return s.products.List(ctx, "")
	})
}

// AddProduct registers a new unit. Units are active with quantity 1 unless stated.
func (s *CatalogServiceImpl) AddProduct(ctx context.Context, p model.Product) (model.Product, error) {
	p.IMEI = strings.TrimSpace(p.IMEI)
	p.Marque = strings.TrimSpace(p.Marque)
	p.Modele = strings.TrimSpace(p.Modele)
	switch {
	case !sale.ValidIMEI(p.IMEI):
		return model.Product{}, fmt.Errorf("IMEI invalide: %q (6 chiffres requis): %w", p.IMEI, errs.ErrValidation)
	case p.Marque == "" || p.Modele == "":
		return model.Product{}, fmt.Errorf("Marque et modèle obligatoires: %w", errs.ErrValidation)
	case p.Quantite < 0:
		return model.Product{}, fmt.Errorf("Quantité négative: %w", errs.ErrValidation)
	case p.PrixVente != nil && *p.PrixVente < 0, p.PrixAchat != nil && *p.PrixAchat < 0:
		return model.Product{}, fmt.Errorf("Prix négatif: %w", errs.ErrValidation)
	}
	if p.Quantite == 0 {
		p.Quantite = 1
	}
	if p.Status == "" {
		p.Status = model.StatusActive
	}
	p.ID = 0

	if err := s.products.Create(ctx, &p); err != nil {
		return model.Product{}, err
	}
	s.Invalidate(ctx)
	return p, nil
}

func (s *CatalogServiceImpl) Invalidate(ctx context.Context) {
	s.gen.Add(1)
	if err := s.cache.Delete(ctx, cache.KeyClients, cache.KeyProducts); err != nil {
		s.log.Warn("catalog cache invalidate", zap.Error(err))
	}
}

// cached serves key from the cache, loading and storing it on a miss.
// Cache failures are logged and never fail the request. A listing loaded
// while Invalidate ran is returned but not kept.
func cached[T any](ctx context.Context, s *CatalogServiceImpl, key string, load func(context.Context) ([]T, error)) ([]T, error) {
	var out []T
	err := s.cache.Get(ctx, key, &out)
	if err == nil {
		return out, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.log.Warn("catalog cache get", zap.String("key", key), zap.Error(err))
	}

	gen := s.gen.Load()
	out, err = load(ctx)
	if err != nil {
		return nil, err
	}
	if s.gen.Load() != gen {
		return out, nil
	}
	if err := s.cache.Set(ctx, key, out); err != nil {
		s.log.Warn("catalog cache set", zap.String("key", key), zap.Error(err))
		return out, nil
	}
	if s.gen.Load() != gen {
		if err := s.cache.Delete(ctx, key); err != nil {
			s.log.Warn("catalog cache delete", zap.String("key", key), zap.Error(err))
		}
	}
	return out, nil
}
