// Package variants applies batches of create/update/delete operations to the
// variants of a single product.
package variants

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"catalog-import-service/internal/models"
	"catalog-import-service/internal/stock"
	"catalog-import-service/internal/validation"
)

var ErrNilStore = errors.New("variants: store is required")

// Processor applies variant operations one at a time, in order. Operations
// are independent: a failure is reported and the next operation still runs,
// and earlier successes are never rolled back.
type Processor struct {
	store    Store
	logger   *logrus.Entry
	validate *validator.Validate
}

func NewProcessor(store Store, logger *logrus.Logger) (*Processor, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Processor{
		store:    store,
		logger:   logger.WithField("component", "variants.processor"),
		validate: validation.New(),
	}, nil
}

// ApplyOperations returns the outcomes of the successful operations and one
// "operation N (action): reason" entry per failed operation, N being 1-based.
func (p *Processor) ApplyOperations(ctx context.Context, productID uuid.UUID, ops []models.VariantOperation) ([]models.OperationOutcome, []string) {
	results := make([]models.OperationOutcome, 0, len(ops))
	errs := make([]string, 0)

	for i, op := range ops {
		outcome, err := p.apply(ctx, productID, op)
		if err != nil {
			action := "unknown"
			if op != nil && op.Action() != "" {
				action = string(op.Action())
			}
			errs = append(errs, fmt.Sprintf("operation %d (%s): %s", i+1, action, err.Error()))
			continue
		}
		outcome.Index = i
		results = append(results, outcome)
	}

	p.logger.WithFields(logrus.Fields{
		"product_id": productID,
		"operations": len(ops),
		"succeeded":  len(results),
		"failed":     len(errs),
	}).Info("Applied variant operations")
	return results, errs
}

func (p *Processor) apply(ctx context.Context, productID uuid.UUID, op models.VariantOperation) (models.OperationOutcome, error) {
	switch o := op.(type) {
	case models.CreateVariantOp:
		return p.create(ctx, productID, o)
	case models.UpdateVariantOp:
		return p.update(ctx, productID, o)
	case models.DeleteVariantOp:
		return p.delete(ctx, productID, o)
	case models.InvalidVariantOp:
		return models.OperationOutcome{}, o.Err
	case nil:
		return models.OperationOutcome{}, errors.New("operation is empty")
	default:
		return models.OperationOutcome{}, fmt.Errorf("unsupported operation %T", op)
	}
}

func (p *Processor) create(ctx context.Context, productID uuid.UUID, op models.CreateVariantOp) (models.OperationOutcome, error) {
	if err := p.validate.Struct(op.Variant); err != nil {
		return models.OperationOutcome{}, errors.New(validation.Describe(err))
	}
	if strings.TrimSpace(op.Variant.Size) == "" || strings.TrimSpace(op.Variant.Color) == "" {
		return models.OperationOutcome{}, errors.New("size and color are required")
	}
	if err := checkOverrides(op.Variant.LowStockThreshold, op.Variant.Price); err != nil {
		return models.OperationOutcome{}, err
	}

	variant := op.Variant.ToVariant()
	variant.ProductID = productID
	id, err := p.store.CreateVariant(ctx, productID, &variant)
	if err != nil {
		return models.OperationOutcome{}, err
	}
	variant.ID = id
	return models.OperationOutcome{Action: models.VariantActionCreate, VariantID: id, Variant: &variant}, nil
}

func (p *Processor) update(ctx context.Context, productID uuid.UUID, op models.UpdateVariantOp) (models.OperationOutcome, error) {
	existing, err := p.owned(ctx, productID, op.ID)
	if err != nil {
		return models.OperationOutcome{}, err
	}
	if op.Patch.IsEmpty() {
		return models.OperationOutcome{}, errors.New("no fields to update")
	}

	next := *existing
	if err := applyPatch(&next, op.Patch); err != nil {
		return models.OperationOutcome{}, err
	}
	if err := p.store.UpdateVariant(ctx, productID, &next); err != nil {
		return models.OperationOutcome{}, err
	}
	return models.OperationOutcome{Action: models.VariantActionUpdate, VariantID: next.ID, Variant: &next}, nil
}

func (p *Processor) delete(ctx context.Context, productID uuid.UUID, op models.DeleteVariantOp) (models.OperationOutcome, error) {
	existing, err := p.owned(ctx, productID, op.ID)
	if err != nil {
		return models.OperationOutcome{}, err
	}
	if err := p.store.DeleteVariant(ctx, productID, existing.ID); err != nil {
		return models.OperationOutcome{}, err
	}
	return models.OperationOutcome{Action: models.VariantActionDelete, VariantID: existing.ID}, nil
}

// owned loads variant rawID and checks it belongs to productID
func (p *Processor) owned(ctx context.Context, productID uuid.UUID, rawID string) (*models.ProductVariant, error) {
	if strings.TrimSpace(rawID) == "" {
		return nil, errors.New("id is required")
	}
	id, err := uuid.Parse(strings.TrimSpace(rawID))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", models.ErrVariantNotFound, rawID)
	}
	variant, err := p.store.GetVariant(ctx, id)
	if err != nil {
		return nil, err
	}
	if variant.ProductID != productID {
		p.logger.WithFields(logrus.Fields{
			"product_id": productID,
			"variant_id": id,
		}).Warn("Rejected operation on variant of another product")
		return nil, models.ErrVariantNotOwned
	}
	return variant, nil
}

// applyPatch sets only the fields present in patch
func applyPatch(v *models.ProductVariant, patch models.VariantPatch) error {
	if patch.Stock != nil && patch.StockDelta != nil {
		return errors.New("stock and stockDelta cannot both be set")
	}
	if patch.Size != nil {
		if strings.TrimSpace(*patch.Size) == "" {
			return errors.New("size cannot be empty")
		}
		v.Size = strings.TrimSpace(*patch.Size)
	}
	if patch.Color != nil {
		if strings.TrimSpace(*patch.Color) == "" {
			return errors.New("color cannot be empty")
		}
		v.Color = strings.TrimSpace(*patch.Color)
	}
	if patch.Stock != nil {
		if *patch.Stock < 0 {
			return errors.New("stock must be 0 or greater")
		}
		v.Stock = *patch.Stock
	}
	if patch.StockDelta != nil {
		v.Stock = stock.ApplyDelta(v.Stock, *patch.StockDelta)
	}
	if err := checkOverrides(patch.LowStockThreshold, patch.Price); err != nil {
		return err
	}
	if patch.ColorCode != nil {
		v.ColorCode = patch.ColorCode
	}
	if patch.SKU != nil {
		v.SKU = patch.SKU
	}
	if patch.Price != nil {
		v.Price = patch.Price
	}
	if patch.ComparePrice != nil {
		v.ComparePrice = patch.ComparePrice
	}
	if patch.IsActive != nil {
		v.IsActive = *patch.IsActive
	}
	if patch.LowStockThreshold != nil {
		v.LowStockThreshold = patch.LowStockThreshold
	}
	if patch.AllowBackorder != nil {
		v.AllowBackorder = patch.AllowBackorder
	}
	return nil
}

func checkOverrides(threshold *int, price *decimal.Decimal) error {
	if threshold != nil && *threshold < 1 {
		return errors.New("lowStockThreshold must be at least 1")
	}
	if price != nil && !price.IsPositive() {
		return errors.New("price must be greater than 0")
	}
	return nil
}
