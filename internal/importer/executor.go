package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"catalog-import-service/internal/models"
	"catalog-import-service/internal/validation"
)

// MaxSKUSuffix bounds automatic collision resolution (-2 .. -MaxSKUSuffix)
const MaxSKUSuffix = 1000

var (
	ErrNilStore           = errors.New("importer: product store is required")
	ErrSKUSuffixExhausted = errors.New("no free SKU suffix available")
)

// Executor reconciles candidates against the product store, deciding per
// record whether to create, update, skip or report an error.
type Executor struct {
	store     ProductStore
	logger    *logrus.Entry
	validate  *validator.Validate
	maxSuffix int
}

// NewExecutor creates an executor writing through store
func NewExecutor(store ProductStore, logger *logrus.Logger) *Executor {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Executor{
		store:     store,
		logger:    logger.WithField("component", "importer.executor"),
		validate:  validation.New(),
		maxSuffix: MaxSKUSuffix,
	}
}

// Execute processes candidates sequentially in input order. A failing record
// never stops the batch; the only error returned is ErrNilStore, before any
// record is touched.
func (e *Executor) Execute(ctx context.Context, candidates []models.CandidateProduct, opts models.ImportOptions) ([]models.ImportResult, models.ImportSummary, error) {
	if e == nil || e.store == nil {
		return nil, models.ImportSummary{}, ErrNilStore
	}

	results := make([]models.ImportResult, 0, len(candidates))
	for i := range candidates {
		result := e.executeOne(ctx, &candidates[i], opts)
		e.logger.WithFields(logrus.Fields{
			"index":  i,
			"sku":    result.SKU,
			"status": result.Status,
		}).Debug("Processed import candidate")
		results = append(results, result)
	}

	summary := Summarize(results)
	e.logger.WithFields(logrus.Fields{
		"total":    summary.Total,
		"imported": summary.Imported,
		"updated":  summary.Updated,
		"skipped":  summary.Skipped,
		"errors":   summary.Errors,
		"outcome":  summary.Outcome,
	}).Info("Import batch executed")
	return results, summary, nil
}

func (e *Executor) executeOne(ctx context.Context, c *models.CandidateProduct, opts models.ImportOptions) models.ImportResult {
	sku := strings.TrimSpace(c.SKU)
	result := models.ImportResult{Name: c.Name, SKU: sku}

	if err := e.precheck(c); err != nil {
		return failed(result, "invalid record", err)
	}

	found, existingID, _, err := e.store.FindBySKU(ctx, sku)
	if err != nil {
		return failed(result, "failed to look up SKU", err)
	}

	if !found {
		id, err := e.store.CreateProduct(ctx, c.ToProduct(sku))
		if err == nil {
			result.Status = models.ImportStatusCreated
			result.ProductID = id.String()
			return result
		}
		if !errors.Is(err, models.ErrDuplicateSKU) {
			e.logger.WithError(err).WithField("sku", sku).Warn("Failed to create product")
			return failed(result, "failed to create product", err)
		}

		// Another writer took the SKU between lookup and create
		e.logger.WithField("sku", sku).Info("Late SKU collision detected")
		found, existingID, _, err = e.store.FindBySKU(ctx, sku)
		if err != nil {
			return failed(result, "failed to look up SKU", err)
		}
	}

	return e.resolveCollision(ctx, c, sku, found, existingID, opts, result)
}

func (e *Executor) resolveCollision(ctx context.Context, c *models.CandidateProduct, sku string, found bool, existingID uuid.UUID, opts models.ImportOptions, result models.ImportResult) models.ImportResult {
	switch {
	case opts.UpdateExisting:
		if !found {
			return failed(result, "failed to update product", models.ErrProductNotFound)
		}
		if err := e.store.UpdateProduct(ctx, existingID, c.ToProduct(sku)); err != nil {
			e.logger.WithError(err).WithField("sku", sku).Warn("Failed to update product")
			return failed(result, "failed to update product", err)
		}
		result.Status = models.ImportStatusUpdated
		result.ProductID = existingID.String()
		return result

	case opts.SkipDuplicates:
		result.Status = models.ImportStatusSkipped
		result.Reason = models.ErrDuplicateSKU.Error()
		return result

	default:
		id, newSKU, err := e.createWithSuffix(ctx, c, sku)
		if err != nil {
			e.logger.WithError(err).WithField("sku", sku).Warn("Failed to resolve SKU collision")
			return failed(result, "failed to resolve SKU collision", err)
		}
		result.Status = models.ImportStatusCreated
		result.ProductID = id.String()
		result.SKU = newSKU
		result.OriginalSKU = sku
		result.SKUChanged = true
		result.Reason = fmt.Sprintf("SKU %s already existed, created as %s", sku, newSKU)
		return result
	}
}

// createWithSuffix tries sku-2, sku-3, ... until a create succeeds
func (e *Executor) createWithSuffix(ctx context.Context, c *models.CandidateProduct, sku string) (uuid.UUID, string, error) {
	for n := 2; n <= e.maxSuffix; n++ {
		next := fmt.Sprintf("%s-%d", sku, n)
		found, _, _, err := e.store.FindBySKU(ctx, next)
		if err != nil {
			return uuid.Nil, "", err
		}
		if found {
			continue
		}
		id, err := e.store.CreateProduct(ctx, c.ToProduct(next))
		if errors.Is(err, models.ErrDuplicateSKU) {
			continue
		}
		if err != nil {
			return uuid.Nil, "", err
		}
		return id, next, nil
	}
	return uuid.Nil, "", ErrSKUSuffixExhausted
}

// precheck re-asserts the required-field invariants before any write
func (e *Executor) precheck(c *models.CandidateProduct) error {
	if err := e.validate.Struct(c); err != nil {
		return errors.New(validation.Describe(err))
	}
	if !c.Price.IsPositive() {
		return errors.New("price must be greater than 0")
	}
	if strings.TrimSpace(c.SKU) == "" {
		return errors.New("sku is required")
	}
	return nil
}

func failed(result models.ImportResult, reason string, err error) models.ImportResult {
	result.Status = models.ImportStatusError
	result.Reason = reason
	result.Details = err.Error()
	return result
}
