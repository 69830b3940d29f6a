package stock

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"catalog-import-service/internal/models"
)

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		name        string
		stock       int
		threshold   int
		backorder   bool
		want        models.InventoryStatus
		canPurchase bool
	}{
		{"zero stock no backorder", 0, 5, false, models.InventoryStatusOutOfStock, false},
		{"zero stock with backorder", 0, 5, true, models.InventoryStatusBackorder, true},
		{"negative stock treated as zero", -3, 5, false, models.InventoryStatusOutOfStock, false},
		{"below threshold", 3, 5, false, models.InventoryStatusLowStock, true},
		{"at threshold is low", 5, 5, false, models.InventoryStatusLowStock, true},
		{"above threshold", 11, 5, false, models.InventoryStatusInStock, true},
		{"backorder ignored when stocked", 20, 5, true, models.InventoryStatusInStock, true},
		{"low stock with backorder", 1, 5, true, models.InventoryStatusLowStock, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveStatus(tt.stock, tt.threshold, tt.backorder)
			assert.Equal(t, tt.want, got.Status)
			assert.Equal(t, tt.canPurchase, got.CanPurchase)
			assert.NotEmpty(t, got.Message)
		})
	}
}

func TestDeriveStatus_Messages(t *testing.T) {
	assert.Equal(t, "Only 3 left in stock", DeriveStatus(3, 5, false).Message)
	assert.Equal(t, "Out of stock", DeriveStatus(0, 5, false).Message)
	assert.Equal(t, "Available on backorder", DeriveStatus(0, 5, true).Message)
	assert.Equal(t, "In stock", DeriveStatus(50, 5, false).Message)
}

func TestDeriveAggregateStatus(t *testing.T) {
	v := func(stock int, active bool) models.ProductVariant {
		return models.ProductVariant{Stock: stock, IsActive: active}
	}

	tests := []struct {
		name     string
		variants []models.ProductVariant
		want     models.InventoryStatus
	}{
		{"no variants", nil, models.InventoryStatusOutOfStock},
		{"only inactive variants", []models.ProductVariant{v(50, false)}, models.InventoryStatusOutOfStock},
		{"active variants with zero stock", []models.ProductVariant{v(0, true), v(0, true)}, models.InventoryStatusOutOfStock},
		{"total at aggregate threshold", []models.ProductVariant{v(4, true), v(6, true)}, models.InventoryStatusLowStock},
		{"inactive stock excluded", []models.ProductVariant{v(4, true), v(100, false)}, models.InventoryStatusLowStock},
		{"total above aggregate threshold", []models.ProductVariant{v(6, true), v(5, true)}, models.InventoryStatusInStock},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveAggregateStatus(tt.variants).Status)
		})
	}
}

func TestDeriveAggregateStatus_IgnoresVariantThresholds(t *testing.T) {
	high := 50
	variants := []models.ProductVariant{{Stock: 20, IsActive: true, LowStockThreshold: &high}}
	assert.Equal(t, models.InventoryStatusInStock, DeriveAggregateStatus(variants).Status)
}

func TestVariantStatus_UsesOverrides(t *testing.T) {
	product := models.Product{LowStockThreshold: 5, AllowBackorder: false}

	threshold := 20
	backorder := true
	assert.Equal(t, models.InventoryStatusLowStock,
		VariantStatus(models.ProductVariant{Stock: 15, LowStockThreshold: &threshold}, product).Status)
	assert.Equal(t, models.InventoryStatusInStock,
		VariantStatus(models.ProductVariant{Stock: 15}, product).Status)
	assert.Equal(t, models.InventoryStatusBackorder,
		VariantStatus(models.ProductVariant{Stock: 0, AllowBackorder: &backorder}, product).Status)
	assert.Equal(t, models.InventoryStatusOutOfStock,
		VariantStatus(models.ProductVariant{Stock: 0}, product).Status)
}

func TestEffectiveThreshold(t *testing.T) {
	zero, seven := 0, 7
	assert.Equal(t, models.DefaultLowStockThreshold, EffectiveThreshold(nil))
	assert.Equal(t, models.DefaultLowStockThreshold, EffectiveThreshold(&zero))
	assert.Equal(t, 7, EffectiveThreshold(&seven))
}

func TestApplyDelta(t *testing.T) {
	assert.Equal(t, 7, ApplyDelta(5, 2))
	assert.Equal(t, 3, ApplyDelta(5, -2))
	assert.Equal(t, 0, ApplyDelta(5, -5))
	assert.Equal(t, 0, ApplyDelta(5, -9))
}
