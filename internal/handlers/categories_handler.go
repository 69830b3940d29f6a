package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"catalog-import-service/internal/middleware"
	"catalog-import-service/internal/models"
	"catalog-import-service/internal/repository"
)

type CategoriesHandler struct {
	repo *repository.ProductsRepository
	log  *logrus.Entry
}

func NewCategoriesHandler(repo *repository.ProductsRepository, logger *logrus.Logger) *CategoriesHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &CategoriesHandler{repo: repo, log: logger.WithField("component", "handlers.categories")}
}

type createCategoryRequest struct {
	ID       string `json:"id"`
	Name     string `json:"name" binding:"required"`
	Slug     string `json:"slug"`
	IsActive *bool  `json:"isActive"`
}

// GetCategories lists the tenant's categories
// GET /api/v1/categories
func (h *CategoriesHandler) GetCategories(c *gin.Context) {
	categories, err := h.repo.GetCategories(c.Request.Context(), middleware.GetTenantID(c))
	if err != nil {
		respondError(c, http.StatusInternalServerError, "FETCH_FAILED", "Failed to retrieve categories", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    categories,
		"total":   len(categories),
	})
}

// CreateCategory creates a category. Callers may choose the id so imports can
// reference it by a plain value; otherwise a UUID is assigned.
// POST /api/v1/categories
func (h *CategoriesHandler) CreateCategory(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)

	var req createCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Category name is required", nil)
		return
	}

	category := &models.Category{
		ID:       strings.TrimSpace(req.ID),
		Name:     strings.TrimSpace(req.Name),
		Slug:     req.Slug,
		IsActive: req.IsActive == nil || *req.IsActive,
	}
	if category.ID == "" {
		category.ID = uuid.NewString()
	}

	if err := h.repo.CreateCategory(c.Request.Context(), tenantID, category); err != nil {
		if errors.Is(err, models.ErrDuplicateCategory) {
			respondError(c, http.StatusConflict, "DUPLICATE_CATEGORY", err.Error(), nil)
			return
		}
		h.log.WithError(err).Error("Failed to create category")
		respondError(c, http.StatusInternalServerError, "CREATION_FAILED", "Failed to create category", err.Error())
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    category,
	})
}
