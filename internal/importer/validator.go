package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"catalog-import-service/internal/models"
)

const (
	msgDuplicateInBatch = "duplicate SKU within import batch"
	msgExistingSKU      = "SKU already exists; it will be handled per the chosen import options"
)

// Validator checks candidate batches against schema and business rules.
// It only reads from the lookup port.
type Validator struct {
	lookup LookupPort
	logger *logrus.Entry
	now    func() time.Time
}

// NewValidator creates a validator backed by lookup
func NewValidator(lookup LookupPort, logger *logrus.Logger) *Validator {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Validator{
		lookup: lookup,
		logger: logger.WithField("component", "importer.validator"),
		now:    time.Now,
	}
}

// batchState carries what one Validate call has seen so far
type batchState struct {
	skus        map[string]int
	variantSKUs map[string]int
	categories  map[string]categoryCheck
}

type categoryCheck struct {
	exists bool
	err    error
}

// Validate returns one result per candidate, in input order. Every rule is
// applied so a single pass reports every violation of a record.
func (v *Validator) Validate(ctx context.Context, candidates []models.CandidateProduct) []models.ValidationResult {
	state := &batchState{
		skus:        make(map[string]int, len(candidates)),
		variantSKUs: make(map[string]int),
		categories:  make(map[string]categoryCheck),
	}

	results := make([]models.ValidationResult, len(candidates))
	invalid := 0
	for i := range candidates {
		results[i] = v.validateOne(ctx, i, &candidates[i], candidates, state)
		if !results[i].Valid {
			invalid++
			v.logger.WithFields(logrus.Fields{
				"index":  i,
				"sku":    results[i].Product.SKU,
				"errors": results[i].Errors,
			}).Debug("Candidate failed validation")
		}
	}

	v.logger.WithFields(logrus.Fields{
		"total":   len(candidates),
		"invalid": invalid,
	}).Info("Validated import batch")
	return results
}

func (v *Validator) validateOne(ctx context.Context, index int, c *models.CandidateProduct, batch []models.CandidateProduct, state *batchState) models.ValidationResult {
	sku := strings.TrimSpace(c.SKU)
	res := models.ValidationResult{
		Index:    index,
		Product:  models.ProductRef{Name: c.Name, SKU: sku},
		Errors:   []string{},
		Warnings: []string{},
	}
	addError := func(format string, args ...interface{}) {
		res.Errors = append(res.Errors, fmt.Sprintf(format, args...))
	}
	addWarning := func(format string, args ...interface{}) {
		res.Warnings = append(res.Warnings, fmt.Sprintf(format, args...))
	}

	res.Errors = append(res.Errors, c.ParseErrors...)

	// Required fields
	if strings.TrimSpace(c.Name) == "" {
		addError("name is required")
	}
	if !c.Price.IsPositive() {
		addError("price must be greater than 0")
	}
	if sku == "" {
		addError("sku is required")
	}
	if categoryID := c.CategoryID.String(); categoryID == "" {
		addError("categoryId is required")
	} else {
		check := v.checkCategory(ctx, categoryID, state)
		switch {
		case check.err != nil:
			addError("could not verify category %q: %v", categoryID, check.err)
		case !check.exists:
			addError("category %q does not exist", categoryID)
		}
	}
	if c.Slug != "" && !models.ValidSlug(strings.TrimSpace(c.Slug)) {
		addError("slug %q must contain only lowercase letters, numbers and single hyphens", c.Slug)
	}
	if c.LowStockThreshold != nil && *c.LowStockThreshold < 1 {
		addError("lowStockThreshold must be at least 1")
	}

	// Duplicate within batch
	if sku != "" {
		if first, seen := state.skus[sku]; seen {
			if !batch[first].UpdateTarget && !c.UpdateTarget {
				addError(msgDuplicateInBatch)
			}
		} else {
			state.skus[sku] = index
		}
	}

	// Duplicate in store
	if sku != "" && v.lookup != nil {
		found, _, _, err := v.lookup.FindBySKU(ctx, sku)
		switch {
		case err != nil:
			addError("could not check existing SKU: %v", err)
		case found && !c.UpdateTarget:
			addWarning(msgExistingSKU)
		case !found && c.UpdateTarget:
			addWarning("marked as update target but no product has this SKU; it will be created")
		}
	}

	v.checkVariants(c, index, state, addError)

	for j, img := range c.Images {
		if strings.TrimSpace(img.URL) == "" {
			addError("image %d: url is required", j+1)
		}
	}

	v.checkPricing(c, addWarning)

	res.Valid = len(res.Errors) == 0
	return res
}

func (v *Validator) checkVariants(c *models.CandidateProduct, index int, state *batchState, addError func(string, ...interface{})) {
	pairs := make(map[string]int, len(c.Variants))
	for j, variant := range c.Variants {
		n := j + 1
		size := strings.TrimSpace(variant.Size)
		color := strings.TrimSpace(variant.Color)
		if size == "" {
			addError("variant %d: size is required", n)
		}
		if color == "" {
			addError("variant %d: color is required", n)
		}
		if variant.Stock < 0 {
			addError("variant %d: stock must be 0 or greater", n)
		}
		if variant.LowStockThreshold != nil && *variant.LowStockThreshold < 1 {
			addError("variant %d: lowStockThreshold must be at least 1", n)
		}
		if variant.Price != nil && !variant.Price.IsPositive() {
			addError("variant %d: price must be greater than 0", n)
		}

		if size != "" && color != "" {
			key := strings.ToLower(size) + "\x00" + strings.ToLower(color)
			if first, dup := pairs[key]; dup {
				addError("variant %d: duplicate size/color %s/%s (same as variant %d)", n, size, color, first)
			} else {
				pairs[key] = n
			}
		}

		if variant.SKU != nil {
			if vsku := strings.TrimSpace(*variant.SKU); vsku != "" {
				if _, dup := state.variantSKUs[vsku]; dup && !c.UpdateTarget {
					addError("variant %d: duplicate variant SKU %q within import batch", n, vsku)
				} else if !dup {
					state.variantSKUs[vsku] = index
				}
			}
		}
	}
}

func (v *Validator) checkPricing(c *models.CandidateProduct, addWarning func(string, ...interface{})) {
	if c.IsOnSale {
		switch {
		case c.SalePrice == nil:
			addWarning("product is on sale but has no sale price")
		case c.SalePrice.GreaterThanOrEqual(c.Price):
			addWarning("sale price should be lower than price")
		}
		if c.SaleEndDate != nil && c.SaleEndDate.Before(v.now()) {
			addWarning("sale end date is in the past")
		}
	} else if c.SalePrice != nil && c.SalePrice.GreaterThanOrEqual(c.Price) {
		addWarning("sale price should be lower than price")
	}

	if c.ComparePrice != nil && !c.ComparePrice.GreaterThan(c.Price) {
		addWarning("compare price should be greater than price")
	}
}

func (v *Validator) checkCategory(ctx context.Context, id string, state *batchState) categoryCheck {
	if check, ok := state.categories[id]; ok {
		return check
	}
	var check categoryCheck
	if v.lookup == nil {
		check.err = errors.New("no category lookup configured")
	} else {
		check.exists, check.err = v.lookup.CategoryExists(ctx, id)
	}
	state.categories[id] = check
	return check
}
