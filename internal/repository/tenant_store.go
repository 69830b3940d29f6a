package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"catalog-import-service/internal/models"
	"catalog-import-service/internal/stock"
)

// TenantStore is the tenant-bound persistence port used by the import
// pipeline and the variant batch processor. Each product graph is written in
// a single transaction.
type TenantStore struct {
	repo     *ProductsRepository
	tenantID string
}

func (s *TenantStore) TenantID() string { return s.tenantID }

// ============================================================================
// Lookup
// ============================================================================

// FindBySKU looks up a product by SKU within the tenant
func (s *TenantStore) FindBySKU(ctx context.Context, sku string) (bool, uuid.UUID, *models.Product, error) {
	var product models.Product
	err := s.repo.db.WithContext(ctx).
		Where("tenant_id = ? AND sku = ?", s.tenantID, sku).
		First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, uuid.Nil, nil, nil
	}
	if err != nil {
		return false, uuid.Nil, nil, err
	}
	return true, product.ID, &product, nil
}

func (s *TenantStore) CategoryExists(ctx context.Context, id string) (bool, error) {
	return s.repo.CategoryExists(ctx, s.tenantID, id)
}

// ============================================================================
// Products
// ============================================================================

// CreateProduct inserts the product with its variants and images
func (s *TenantStore) CreateProduct(ctx context.Context, product *models.Product) (uuid.UUID, error) {
	product.TenantID = s.tenantID
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	if product.Slug == "" {
		product.Slug = models.GenerateSlug(product.Name)
	}
	applyStatuses(product)

	variants := product.Variants
	images := product.Images
	err := s.repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(product).Error; err != nil {
			return err
		}
		for i := range variants {
			variants[i].ID = uuid.Nil
			variants[i].ProductID = product.ID
			if err := tx.Create(&variants[i]).Error; err != nil {
				return err
			}
		}
		for i := range images {
			images[i].ID = uuid.Nil
			images[i].ProductID = product.ID
			if err := tx.Create(&images[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return uuid.Nil, classifyWriteError(err)
	}
	return product.ID, nil
}

// UpdateProduct overwrites the mutable fields of product id and reconciles its
// variants by (size, color). Variants and images are only touched when the
// incoming product carries any.
func (s *TenantStore) UpdateProduct(ctx context.Context, id uuid.UUID, product *models.Product) error {
	err := s.repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Product
		err := tx.Preload("Variants").
			Where("tenant_id = ? AND id = ?", s.tenantID, id).
			First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.ErrProductNotFound
		}
		if err != nil {
			return err
		}

		slug := product.Slug
		if slug == "" {
			slug = models.GenerateSlug(product.Name)
		}
		err = tx.Model(&models.Product{}).
			Where("tenant_id = ? AND id = ?", s.tenantID, id).
			Updates(map[string]interface{}{
				"name":                product.Name,
				"slug":                slug,
				"category_id":         product.CategoryID,
				"description":         product.Description,
				"price":               product.Price,
				"compare_price":       product.ComparePrice,
				"cost_price":          product.CostPrice,
				"sale_price":          product.SalePrice,
				"sale_end_date":       product.SaleEndDate,
				"tags":                product.Tags,
				"meta_title":          product.MetaTitle,
				"meta_description":    product.MetaDescription,
				"meta_keywords":       product.MetaKeywords,
				"is_active":           product.IsActive,
				"is_featured":         product.IsFeatured,
				"is_on_sale":          product.IsOnSale,
				"low_stock_threshold": product.LowStockThreshold,
				"allow_backorder":     product.AllowBackorder,
				"updated_by":          product.UpdatedBy,
				"updated_at":          time.Now(),
			}).Error
		if err != nil {
			return err
		}

		settings := existing
		settings.LowStockThreshold = product.LowStockThreshold
		settings.AllowBackorder = product.AllowBackorder

		if len(product.Variants) > 0 {
			if err := reconcileVariants(tx, settings, existing.Variants, product.Variants); err != nil {
				return err
			}
		}
		if len(product.Images) > 0 {
			if err := tx.Where("product_id = ?", id).Delete(&models.ProductImage{}).Error; err != nil {
				return err
			}
			for i := range product.Images {
				img := product.Images[i]
				img.ID = uuid.Nil
				img.ProductID = id
				if err := tx.Create(&img).Error; err != nil {
					return err
				}
			}
		}
		return refreshProductStatus(tx, id)
	})
	if err != nil {
		return classifyWriteError(err)
	}
	s.repo.invalidateProductCache(ctx, s.tenantID, id)
	return nil
}

func variantKey(size, color string) string {
	return strings.ToLower(strings.TrimSpace(size)) + "\x00" + strings.ToLower(strings.TrimSpace(color))
}

// reconcileVariants updates matching variants in place, creates new ones and
// deletes the ones absent from incoming
func reconcileVariants(tx *gorm.DB, product models.Product, current, incoming []models.ProductVariant) error {
	byKey := make(map[string]models.ProductVariant, len(current))
	for _, v := range current {
		byKey[variantKey(v.Size, v.Color)] = v
	}

	kept := make(map[uuid.UUID]struct{}, len(incoming))
	for i := range incoming {
		next := incoming[i]
		next.ProductID = product.ID
		next.InventoryStatus = stock.VariantStatus(next, product).Status

		if match, ok := byKey[variantKey(next.Size, next.Color)]; ok {
			kept[match.ID] = struct{}{}
			if err := tx.Model(&models.ProductVariant{}).
				Where("id = ? AND product_id = ?", match.ID, product.ID).
				Updates(variantColumns(&next)).Error; err != nil {
				return err
			}
			continue
		}

		next.ID = uuid.Nil
		if err := tx.Create(&next).Error; err != nil {
			return err
		}
		kept[next.ID] = struct{}{}
	}

	for _, v := range current {
		if _, ok := kept[v.ID]; ok {
			continue
		}
		if err := tx.Delete(&models.ProductVariant{}, "id = ?", v.ID).Error; err != nil {
			return err
		}
	}
	return nil
}

// variantColumns lists every mutable variant column so zero values are written
func variantColumns(v *models.ProductVariant) map[string]interface{} {
	return map[string]interface{}{
		"size":                v.Size,
		"color":               v.Color,
		"color_code":          v.ColorCode,
		"sku":                 v.SKU,
		"price":               v.Price,
		"compare_price":       v.ComparePrice,
		"stock":               v.Stock,
		"is_active":           v.IsActive,
		"low_stock_threshold": v.LowStockThreshold,
		"allow_backorder":     v.AllowBackorder,
		"inventory_status":    v.InventoryStatus,
		"updated_at":          time.Now(),
	}
}

// ============================================================================
// Variants
// ============================================================================

// GetVariant loads a variant belonging to any product of the tenant
func (s *TenantStore) GetVariant(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error) {
	var variant models.ProductVariant
	err := s.repo.db.WithContext(ctx).Model(&models.ProductVariant{}).
		Joins("JOIN products ON products.id = product_variants.product_id").
		Where("products.tenant_id = ? AND product_variants.id = ?", s.tenantID, id).
		First(&variant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrVariantNotFound
	}
	if err != nil {
		return nil, err
	}
	return &variant, nil
}

// ListVariants returns the variants of a product in creation order
func (s *TenantStore) ListVariants(ctx context.Context, productID uuid.UUID) ([]models.ProductVariant, error) {
	var variants []models.ProductVariant
	err := s.repo.db.WithContext(ctx).Model(&models.ProductVariant{}).
		Joins("JOIN products ON products.id = product_variants.product_id").
		Where("products.tenant_id = ? AND product_variants.product_id = ?", s.tenantID, productID).
		Order("product_variants.created_at ASC").
		Find(&variants).Error
	return variants, err
}

func (s *TenantStore) CreateVariant(ctx context.Context, productID uuid.UUID, variant *models.ProductVariant) (uuid.UUID, error) {
	err := s.withProduct(ctx, productID, func(tx *gorm.DB, product models.Product) error {
		variant.ID = uuid.Nil
		variant.ProductID = productID
		variant.InventoryStatus = stock.VariantStatus(*variant, product).Status
		return tx.Create(variant).Error
	})
	if err != nil {
		return uuid.Nil, classifyWriteError(err)
	}
	return variant.ID, nil
}

func (s *TenantStore) UpdateVariant(ctx context.Context, productID uuid.UUID, variant *models.ProductVariant) error {
	err := s.withProduct(ctx, productID, func(tx *gorm.DB, product models.Product) error {
		variant.InventoryStatus = stock.VariantStatus(*variant, product).Status
		res := tx.Model(&models.ProductVariant{}).
			Where("id = ? AND product_id = ?", variant.ID, productID).
			Updates(variantColumns(variant))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.ErrVariantNotFound
		}
		return nil
	})
	return classifyWriteError(err)
}

func (s *TenantStore) DeleteVariant(ctx context.Context, productID, id uuid.UUID) error {
	return s.withProduct(ctx, productID, func(tx *gorm.DB, product models.Product) error {
		res := tx.Where("id = ? AND product_id = ?", id, productID).Delete(&models.ProductVariant{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.ErrVariantNotFound
		}
		return nil
	})
}

// withProduct runs fn in a transaction after checking productID belongs to
// the tenant, then refreshes the product's aggregate status
func (s *TenantStore) withProduct(ctx context.Context, productID uuid.UUID, fn func(tx *gorm.DB, product models.Product) error) error {
	err := s.repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var product models.Product
		err := tx.Where("tenant_id = ? AND id = ?", s.tenantID, productID).First(&product).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.ErrProductNotFound
		}
		if err != nil {
			return err
		}
		if err := fn(tx, product); err != nil {
			return err
		}
		return refreshProductStatus(tx, productID)
	})
	if err == nil {
		s.repo.invalidateProductCache(ctx, s.tenantID, productID)
	}
	return err
}
