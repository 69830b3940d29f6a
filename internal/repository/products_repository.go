package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"catalog-import-service/internal/models"
	"catalog-import-service/internal/stock"
)

// Cache TTL constants
const (
	ProductCacheTTL  = 5 * time.Minute  // Single product cache
	CategoryCacheTTL = 30 * time.Minute // Categories rarely change
)

// CategoryFallback resolves categories that are not in the local table,
// typically by asking the categories service.
type CategoryFallback interface {
	CategoryExists(ctx context.Context, tenantID, categoryID string) (bool, error)
}

type ProductsRepository struct {
	db       *gorm.DB
	redis    *redis.Client
	fallback CategoryFallback
	logger   *logrus.Entry
}

func NewProductsRepository(db *gorm.DB, redis *redis.Client, logger *logrus.Logger) *ProductsRepository {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ProductsRepository{
		db:     db,
		redis:  redis,
		logger: logger.WithField("component", "repository.products"),
	}
}

// WithCategoryFallback sets a secondary category lookup used when a category
// is not found locally
func (r *ProductsRepository) WithCategoryFallback(f CategoryFallback) *ProductsRepository {
	r.fallback = f
	return r
}

// Scoped returns a store bound to one tenant. Every query it issues is
// filtered by that tenant.
func (r *ProductsRepository) Scoped(tenantID string) *TenantStore {
	return &TenantStore{repo: r, tenantID: tenantID}
}

func productCacheKey(tenantID string, productID uuid.UUID) string {
	return fmt.Sprintf("product:%s:%s", tenantID, productID.String())
}

func categoryCacheKey(tenantID, categoryID string) string {
	return fmt.Sprintf("category:exists:%s:%s", tenantID, categoryID)
}

// invalidateProductCache drops the cached product graph
func (r *ProductsRepository) invalidateProductCache(ctx context.Context, tenantID string, productID uuid.UUID) {
	if r.redis == nil {
		return
	}
	if err := r.redis.Del(ctx, productCacheKey(tenantID, productID)).Err(); err != nil {
		r.logger.WithError(err).Warn("Failed to invalidate product cache")
	}
}

// ============================================================================
// Product reads
// ============================================================================

// GetProduct retrieves a product with variants and images, using the cache
func (r *ProductsRepository) GetProduct(ctx context.Context, tenantID string, productID uuid.UUID) (*models.Product, error) {
	cacheKey := productCacheKey(tenantID, productID)

	if r.redis != nil {
		val, err := r.redis.Get(ctx, cacheKey).Result()
		if err == nil {
			var product models.Product
			if err := json.Unmarshal([]byte(val), &product); err == nil {
				return &product, nil
			}
		}
	}

	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Variants", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC") }).
		Where("tenant_id = ? AND id = ?", tenantID, productID).
		First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}

	if r.redis != nil {
		if data, err := json.Marshal(product); err == nil {
			r.redis.Set(ctx, cacheKey, data, ProductCacheTTL)
		}
	}
	return &product, nil
}

// ProductFilter narrows ListProducts
type ProductFilter struct {
	IDs             []uuid.UUID
	CategoryID      string
	IsActive        *bool
	InventoryStatus models.InventoryStatus
	Search          string
	Limit           int
}

// ListProducts returns products with their graph and category names, newest first
func (r *ProductsRepository) ListProducts(ctx context.Context, tenantID string, filter ProductFilter) ([]models.Product, error) {
	query := r.db.WithContext(ctx).
		Preload("Variants", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC") }).
		Where("tenant_id = ?", tenantID)

	if len(filter.IDs) > 0 {
		query = query.Where("id IN ?", filter.IDs)
	}
	if filter.CategoryID != "" {
		query = query.Where("category_id = ?", filter.CategoryID)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	if filter.InventoryStatus != "" {
		query = query.Where("inventory_status = ?", filter.InventoryStatus)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(sku) LIKE ?", like, like)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var products []models.Product
	if err := query.Order("created_at DESC").Find(&products).Error; err != nil {
		return nil, err
	}

	names, err := r.categoryNames(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	for i := range products {
		products[i].CategoryName = names[products[i].CategoryID]
	}
	return products, nil
}

// ============================================================================
// Categories
// ============================================================================

// CreateCategory creates a category, deriving the slug from the name when empty
func (r *ProductsRepository) CreateCategory(ctx context.Context, tenantID string, category *models.Category) error {
	category.TenantID = tenantID
	if category.Slug == "" {
		category.Slug = models.GenerateSlug(category.Name)
	}
	if err := r.db.WithContext(ctx).Create(category).Error; err != nil {
		if _, dup := uniqueViolation(err); dup {
			return fmt.Errorf("%w: %q", models.ErrDuplicateCategory, category.ID)
		}
		return err
	}
	return nil
}

// GetCategories lists categories ordered by name
func (r *ProductsRepository) GetCategories(ctx context.Context, tenantID string) ([]models.Category, error) {
	var categories []models.Category
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("name ASC").
		Find(&categories).Error
	return categories, err
}

// CategoryExists checks the local table, then the fallback. Positive answers
// are cached.
func (r *ProductsRepository) CategoryExists(ctx context.Context, tenantID, categoryID string) (bool, error) {
	cacheKey := categoryCacheKey(tenantID, categoryID)
	if r.redis != nil {
		if val, err := r.redis.Get(ctx, cacheKey).Result(); err == nil && val == "1" {
			return true, nil
		}
	}

	var count int64
	err := r.db.WithContext(ctx).Model(&models.Category{}).
		Where("tenant_id = ? AND id = ?", tenantID, categoryID).
		Count(&count).Error
	if err != nil {
		return false, err
	}

	exists := count > 0
	if !exists && r.fallback != nil {
		exists, err = r.fallback.CategoryExists(ctx, tenantID, categoryID)
		if err != nil {
			return false, err
		}
	}

	if exists && r.redis != nil {
		r.redis.Set(ctx, cacheKey, "1", CategoryCacheTTL)
	}
	return exists, nil
}

func (r *ProductsRepository) categoryNames(ctx context.Context, tenantID string) (map[string]string, error) {
	categories, err := r.GetCategories(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}
	return names, nil
}

// ============================================================================
// Stock status
// ============================================================================

// applyStatuses stamps derived statuses on a product graph before it is written
func applyStatuses(p *models.Product) {
	for i := range p.Variants {
		p.Variants[i].InventoryStatus = stock.VariantStatus(p.Variants[i], *p).Status
	}
	p.InventoryStatus = stock.DeriveAggregateStatus(p.Variants).Status
}

// refreshProductStatus recomputes a product's aggregate status from its
// current variant rows, inside tx
func refreshProductStatus(tx *gorm.DB, productID uuid.UUID) error {
	var variants []models.ProductVariant
	if err := tx.Where("product_id = ?", productID).Find(&variants).Error; err != nil {
		return err
	}
	status := stock.DeriveAggregateStatus(variants).Status
	return tx.Model(&models.Product{}).
		Where("id = ?", productID).
		Updates(map[string]interface{}{
			"inventory_status": status,
			"updated_at":       time.Now(),
		}).Error
}
