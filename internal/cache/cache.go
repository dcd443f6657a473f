// Package cache keeps read-mostly catalog listings close to the HTTP handlers.
package cache

import (
	"context"
	"errors"
)

// Keys of the cached catalog listings.
const (
	KeyClients  = "catalog:clients"
	KeyProducts = "catalog:products"
)

// CatalogCache stores JSON-encodable values by key.
type CatalogCache interface {
	Get(ctx context.Context, key string, dst any) error
	Set(ctx context.Context, key string, v any) error
	Delete(ctx context.Context, keys ...string) error
}

var ErrCacheMiss = errors.New("cache miss")

// Nop is a cache that never holds anything.
type Nop struct{}

func (Nop) Get(context.Context, string, any) error  { return ErrCacheMiss }
func (Nop) Set(context.Context, string, any) error  { return nil }
func (Nop) Delete(context.Context, ...string) error { return nil }
