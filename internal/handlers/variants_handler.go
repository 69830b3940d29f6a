package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"catalog-import-service/internal/events"
	"catalog-import-service/internal/middleware"
	"catalog-import-service/internal/models"
	"catalog-import-service/internal/repository"
	"catalog-import-service/internal/stock"
	"catalog-import-service/internal/variants"
)

// DefaultMaxVariantOperations caps a single batch request
const DefaultMaxVariantOperations = 500

type VariantsHandler struct {
	repo      *repository.ProductsRepository
	publisher *events.Publisher
	maxOps    int
	logger    *logrus.Logger
	log       *logrus.Entry
}

func NewVariantsHandler(repo *repository.ProductsRepository, publisher *events.Publisher, maxOps int, logger *logrus.Logger) *VariantsHandler {
	if maxOps <= 0 {
		maxOps = DefaultMaxVariantOperations
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &VariantsHandler{
		repo:      repo,
		publisher: publisher,
		maxOps:    maxOps,
		logger:    logger,
		log:       logger.WithField("component", "handlers.variants"),
	}
}

type batchRequest struct {
	Operations []json.RawMessage `json:"operations"`
}

// BatchResponse reports successful operations and per-operation errors
type BatchResponse struct {
	Success bool                      `json:"success"`
	Applied int                       `json:"applied"`
	Failed  int                       `json:"failed"`
	Results []models.OperationOutcome `json:"results"`
	Errors  []string                  `json:"errors"`
}

// VariantStock is the per-variant part of a stock status report
type VariantStock struct {
	VariantID uuid.UUID         `json:"variantId"`
	Size      string            `json:"size"`
	Color     string            `json:"color"`
	Stock     int               `json:"stock"`
	IsActive  bool              `json:"isActive"`
	Status    stock.StockStatus `json:"stockStatus"`
}

// ListVariants lists a product's variants
// GET /api/v1/products/:id/variants
func (h *VariantsHandler) ListVariants(c *gin.Context) {
	productID, ok := productIDParam(c)
	if !ok {
		return
	}
	tenantID := middleware.GetTenantID(c)

	if _, err := h.repo.GetProduct(c.Request.Context(), tenantID, productID); err != nil {
		h.productError(c, err)
		return
	}
	list, err := h.repo.Scoped(tenantID).ListVariants(c.Request.Context(), productID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "FETCH_FAILED", "Failed to retrieve variants", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    list,
		"total":   len(list),
	})
}

// BatchVariants applies an ordered list of create/update/delete operations.
// Operations are independent: a failure is reported and the rest still run.
// POST /api/v1/products/:id/variants/batch
func (h *VariantsHandler) BatchVariants(c *gin.Context) {
	productID, ok := productIDParam(c)
	if !ok {
		return
	}
	tenantID := middleware.GetTenantID(c)
	ctx := c.Request.Context()

	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
		return
	}
	if len(req.Operations) == 0 {
		respondError(c, http.StatusBadRequest, "NO_OPERATIONS", "At least one operation is required", nil)
		return
	}
	if len(req.Operations) > h.maxOps {
		respondError(c, http.StatusRequestEntityTooLarge, "TOO_MANY_OPERATIONS",
			fmt.Sprintf("A batch may contain at most %d operations, got %d", h.maxOps, len(req.Operations)), nil)
		return
	}

	if _, err := h.repo.GetProduct(ctx, tenantID, productID); err != nil {
		h.productError(c, err)
		return
	}

	processor, err := variants.NewProcessor(h.repo.Scoped(tenantID), h.logger)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "BATCH_FAILED", err.Error(), nil)
		return
	}
	results, errs := processor.ApplyOperations(ctx, productID, models.DecodeVariantOperations(req.Operations))
	if errs == nil {
		errs = []string{}
	}

	h.log.WithFields(logrus.Fields{
		"tenant_id":  tenantID,
		"product_id": productID,
		"applied":    len(results),
		"failed":     len(errs),
	}).Info("Variant batch applied")
	if len(results) > 0 {
		h.publisher.PublishVariantsChanged(ctx, tenantID, middleware.GetUserID(c), productID, results, len(errs))
	}

	c.JSON(http.StatusOK, BatchResponse{
		Success: len(errs) == 0,
		Applied: len(results),
		Failed:  len(errs),
		Results: results,
		Errors:  errs,
	})
}

// GetProductStockStatus reports the aggregate status and each variant's status
// GET /api/v1/products/:id/stock-status
func (h *VariantsHandler) GetProductStockStatus(c *gin.Context) {
	productID, ok := productIDParam(c)
	if !ok {
		return
	}
	product, err := h.repo.GetProduct(c.Request.Context(), middleware.GetTenantID(c), productID)
	if err != nil {
		h.productError(c, err)
		return
	}

	perVariant := make([]VariantStock, 0, len(product.Variants))
	for _, v := range product.Variants {
		perVariant = append(perVariant, VariantStock{
			VariantID: v.ID,
			Size:      v.Size,
			Color:     v.Color,
			Stock:     v.Stock,
			IsActive:  v.IsActive,
			Status:    stock.VariantStatus(v, *product),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"productId":  product.ID,
			"totalStock": product.TotalStock(),
			"status":     stock.DeriveAggregateStatus(product.Variants),
			"variants":   perVariant,
		},
	})
}

// DeriveStockStatus computes a status from query parameters
// GET /api/v1/stock-status?stock=&threshold=&allowBackorder=
func DeriveStockStatus(c *gin.Context) {
	level, err := strconv.Atoi(c.Query("stock"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_STOCK", "stock must be a whole number", nil)
		return
	}

	var threshold *int
	if raw := c.Query("threshold"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "INVALID_THRESHOLD", "threshold must be a whole number", nil)
			return
		}
		threshold = &n
	}

	backorder := false
	if raw := c.Query("allowBackorder"); raw != "" {
		backorder, err = strconv.ParseBool(raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "INVALID_BACKORDER", "allowBackorder must be true or false", nil)
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    stock.DeriveStatus(level, stock.EffectiveThreshold(threshold), backorder),
	})
}

func (h *VariantsHandler) productError(c *gin.Context, err error) {
	if errors.Is(err, models.ErrProductNotFound) {
		respondError(c, http.StatusNotFound, "PRODUCT_NOT_FOUND", "Product not found", nil)
		return
	}
	h.log.WithError(err).Error("Failed to load product")
	respondError(c, http.StatusInternalServerError, "FETCH_FAILED", "Failed to retrieve product", err.Error())
}
