package variants

import (
	"context"

	"github.com/google/uuid"

	"catalog-import-service/internal/models"
)

// Store is the variant write port. Implementations scope every call to the
// caller's tenant; mutations additionally match on productID so a variant of
// another product is never touched.
type Store interface {
	// GetVariant returns models.ErrVariantNotFound when id is unknown in scope
	GetVariant(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error)
	// CreateVariant returns models.ErrDuplicateVariant for a taken (size, color)
	CreateVariant(ctx context.Context, productID uuid.UUID, variant *models.ProductVariant) (uuid.UUID, error)
	UpdateVariant(ctx context.Context, productID uuid.UUID, variant *models.ProductVariant) error
	DeleteVariant(ctx context.Context, productID, id uuid.UUID) error
}
