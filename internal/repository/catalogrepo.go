package repository

import (
	"context"

	"github.com/and161185/niangadou-pos/internal/model"
)

// ClientRepository lists customers. Customers are created implicitly by sales.
type ClientRepository interface {
	// List returns all clients ordered by name.
	List(ctx context.Context) ([]model.Client, error)
}

// ProductRepository provides access to inventory units.
type ProductRepository interface {
	// List returns products, newest first. A non-empty imei restricts to that unit.
	List(ctx context.Context, imei string) ([]model.Product, error)
	// Create inserts a unit and fills its ID and DateAjout.
	Create(ctx context.Context, p *model.Product) error
}
