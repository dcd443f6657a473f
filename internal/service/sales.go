package service

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"

	"github.com/and161185/niangadou-pos/internal/errs"
	"github.com/and161185/niangadou-pos/internal/model"
	"github.com/and161185/niangadou-pos/internal/repository"
	"github.com/and161185/niangadou-pos/internal/sale"
)

// SaleService records and reads sales.
type SaleService interface {
	// Record validates req and stores it priced with the catalog's sale prices.
	// vendeur is the authenticated operator, empty when anonymous.
	Record(ctx context.Context, req model.SaleRequest, vendeur string) (model.Sale, error)
	Get(ctx context.Context, id int64) (*model.Sale, error)
	List(ctx context.Context, debtsOnly bool) ([]model.Sale, error)
}

type SaleServiceImpl struct {
	sales   repository.SaleRepository
	catalog CatalogService
}

// NewSaleService constructs SaleService. catalog may be nil.
func NewSaleService(sales repository.SaleRepository, catalog CatalogService) *SaleServiceImpl {
	return &SaleServiceImpl{sales: sales, catalog: catalog}
}

func (s *SaleServiceImpl) Record(ctx context.Context, req model.SaleRequest, vendeur string) (model.Sale, error) {
	nom := strings.TrimSpace(req.NomClient)
	if nom == "" {
		return model.Sale{}, fmt.Errorf("Veuillez sélectionner ou entrer un nom de client: %w", errs.ErrValidation)
	}
	if len(req.Items) == 0 {
		return model.Sale{}, fmt.Errorf("Ajoutez au moins un produit: %w", errs.ErrValidation)
	}
	if math.IsNaN(req.MontantPaye) || math.IsInf(req.MontantPaye, 0) || req.MontantPaye < 0 {
		return model.Sale{}, fmt.Errorf("Le montant payé doit être un nombre positif ou nul: %w", errs.ErrValidation)
	}

	seen := make(map[string]struct{}, len(req.Items))
	imeis := make([]string, 0, len(req.Items))
	for _, it := range req.Items {
		if !sale.ValidIMEI(it.IMEI) {
			return model.Sale{}, fmt.Errorf("IMEI invalide: %q (6 chiffres requis): %w", it.IMEI, errs.ErrValidation)
		}
		if it.QuantiteVendue != 1 {
			return model.Sale{}, fmt.Errorf("Quantité invalide pour l'IMEI %s (1 attendu): %w", it.IMEI, errs.ErrValidation)
		}
		if _, dup := seen[it.IMEI]; dup {
			return model.Sale{}, fmt.Errorf("IMEI %s saisi deux fois: %w", it.IMEI, errs.ErrValidation)
		}
		seen[it.IMEI] = struct{}{}
		imeis = append(imeis, it.IMEI)
	}

	ref, err := uuid.NewV4()
	if err != nil {
		return model.Sale{}, err
	}
	paid := decimal.NewFromFloat(req.MontantPaye)

	out, err := s.sales.Record(ctx, nom, strings.TrimSpace(req.ClientTelephone), imeis,
		func(_ model.Client, units []model.Product) (model.Sale, error) {
			return settle(ref, units, paid, vendeur)
		})
	if err != nil {
		return model.Sale{}, err
	}
	if s.catalog != nil {
		s.catalog.Invalidate(ctx)
	}
	return out, nil
}

// settle prices the locked units with their catalog sale price.
func settle(ref uuid.UUID, units []model.Product, paid decimal.Decimal, vendeur string) (model.Sale, error) {
	total := decimal.Zero
	items := make([]model.SaleItem, 0, len(units))
	for _, u := range units {
		if u.PrixVente == nil || *u.PrixVente <= 0 {
			return model.Sale{}, fmt.Errorf("Aucun prix de vente pour l'IMEI %s: %w", u.IMEI, errs.ErrValidation)
		}
		price := decimal.NewFromFloat(*u.PrixVente).Round(2)
		cost := decimal.Zero
		if u.PrixAchat != nil {
			cost = decimal.NewFromFloat(*u.PrixAchat).Round(2)
		}
		total = total.Add(price)
		items = append(items, model.SaleItem{
			ProductID:         u.ID,
			IMEI:              u.IMEI,
			Marque:            u.Marque,
			Modele:            u.Modele,
			Stockage:          u.Stockage,
			Type:              u.Type,
			TypeCarton:        u.TypeCarton,
			QuantiteVendue:    1,
			PrixUnitaireVente: price.InexactFloat64(),
			PrixAchat:         cost.InexactFloat64(),
		})
	}

	paid = paid.Round(2)
	reste := decimal.Max(total.Sub(paid), decimal.Zero)
	return model.Sale{
		Reference:   ref,
		Total:       total.InexactFloat64(),
		MontantPaye: paid.InexactFloat64(),
		ResteAPayer: reste.InexactFloat64(),
		Statut:      paymentStatus(total, paid),
		Vendeur:     vendeur,
		Items:       items,
	}, nil
}

func paymentStatus(total, paid decimal.Decimal) string {
	switch {
	case paid.GreaterThanOrEqual(total):
		return model.SalePaid
	case paid.IsPositive():
		return model.SalePartial
	default:
		return model.SaleUnpaid
	}
}

func (s *SaleServiceImpl) Get(ctx context.Context, id int64) (*model.Sale, error) {
	if id <= 0 {
		return nil, errs.ErrNotFound
	}
	return s.sales.Get(ctx, id)
}

func (s *SaleServiceImpl) List(ctx context.Context, debtsOnly bool) ([]model.Sale, error) {
	return s.sales.List(ctx, repository.SaleFilter{DebtsOnly: debtsOnly})
}
