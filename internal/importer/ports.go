package importer

import (
	"context"

	"github.com/google/uuid"

	"catalog-import-service/internal/models"
)

// LookupPort is the read side of the product store used during validation
type LookupPort interface {
	// FindBySKU reports whether a product with sku exists in the caller's scope
	FindBySKU(ctx context.Context, sku string) (bool, uuid.UUID, *models.Product, error)
	CategoryExists(ctx context.Context, id string) (bool, error)
}

// ProductStore is the read/write product port used by the executor.
// CreateProduct returns models.ErrDuplicateSKU when the SKU is already taken.
type ProductStore interface {
	LookupPort
	CreateProduct(ctx context.Context, product *models.Product) (uuid.UUID, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, product *models.Product) error
}
