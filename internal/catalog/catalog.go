// Package catalog pulls raw product specifications from the catalog
// service. The catalog owns product CRUD; this side only reads.
package catalog

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/rigforge/compat-cli/internal/model"
)

// RawSpecification is the catalog's view of one product listing: the
// seller-facing title plus whatever spec key/value pairs the crawl or a
// catalog edit captured. Keys and values arrive uncleaned.
type RawSpecification struct {
	ProductID string              `json:"product_id"`
	Kind      model.ComponentKind `json:"component_kind"`
	Title     string              `json:"title"`
	Specs     map[string]string   `json:"specs"`
}

// ErrProductNotFound is returned when the catalog has no such product.
var ErrProductNotFound = eris.New("catalog: product not found")

// Client reads product data from the catalog.
type Client interface {
	// RawSpecification fetches one product's raw listing data.
	RawSpecification(ctx context.Context, productID string) (*RawSpecification, error)
	// ProductIDs lists product ids, optionally narrowed to one kind.
	// An empty kind lists everything.
	ProductIDs(ctx context.Context, kind model.ComponentKind) ([]string, error)
}
