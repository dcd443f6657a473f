package repository

import (
	"context"
	"time"

	"github.com/and161185/niangadou-pos/internal/model"
)

// SaleSettler prices the locked units of a sale and returns the sale to persist.
// It runs inside the recording transaction; an error aborts the sale.
type SaleSettler func(client model.Client, units []model.Product) (model.Sale, error)

// SaleFilter narrows sale listings.
type SaleFilter struct {
	DebtsOnly bool // only sales with an outstanding balance
	Limit     int
}

// SaleRepository records and reads sales.
type SaleRepository interface {
	// Record atomically upserts the client, locks every unit by IMEI, lets settle
	// price them, marks them sold and stores the sale with its lines.
	Record(ctx context.Context, nomClient, telephone string, imeis []string, settle SaleSettler) (model.Sale, error)
	// Get returns a sale with its lines.
	Get(ctx context.Context, id int64) (*model.Sale, error)
	// List returns sale headers, newest first.
	List(ctx context.Context, f SaleFilter) ([]model.Sale, error)
	// ItemsBetween returns sales with their lines dated in [from, to).
	ItemsBetween(ctx context.Context, from, to time.Time) ([]model.Sale, error)
}
