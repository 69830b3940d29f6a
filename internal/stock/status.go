// Package stock derives stock statuses for variants and products.
package stock

import (
	"fmt"

	"catalog-import-service/internal/models"
)

// AggregateLowStockThreshold is the product level low stock threshold. It is
// fixed and independent of per-variant thresholds.
const AggregateLowStockThreshold = 10

// StockStatus is a derived stock state with a display message
type StockStatus struct {
	Status      models.InventoryStatus `json:"status"`
	Message     string                 `json:"message"`
	CanPurchase bool                   `json:"canPurchase"`
}

// DeriveStatus maps a stock level, threshold and backorder policy to a status.
// The threshold boundary is inclusive: stock == threshold is LOW_STOCK.
func DeriveStatus(stock, lowStockThreshold int, allowBackorder bool) StockStatus {
	switch {
	case stock <= 0 && allowBackorder:
		return StockStatus{Status: models.InventoryStatusBackorder, Message: "Available on backorder", CanPurchase: true}
	case stock <= 0:
		return StockStatus{Status: models.InventoryStatusOutOfStock, Message: "Out of stock", CanPurchase: false}
	case stock <= lowStockThreshold:
		return StockStatus{Status: models.InventoryStatusLowStock, Message: fmt.Sprintf("Only %d left in stock", stock), CanPurchase: true}
	default:
		return StockStatus{Status: models.InventoryStatusInStock, Message: "In stock", CanPurchase: true}
	}
}

// DeriveAggregateStatus sums stock over active variants and applies the fixed
// aggregate threshold. Backorder policy does not apply at product level.
func DeriveAggregateStatus(variants []models.ProductVariant) StockStatus {
	total := 0
	active := 0
	for _, v := range variants {
		if !v.IsActive {
			continue
		}
		active++
		total += v.Stock
	}
	if active == 0 || total <= 0 {
		return DeriveStatus(0, AggregateLowStockThreshold, false)
	}
	return DeriveStatus(total, AggregateLowStockThreshold, false)
}

// EffectiveThreshold returns threshold, or the default when it is unset or below 1
func EffectiveThreshold(threshold *int) int {
	if threshold == nil || *threshold < 1 {
		return models.DefaultLowStockThreshold
	}
	return *threshold
}

// VariantStatus derives a variant's status, using its own threshold and
// backorder overrides and falling back to the product's settings.
func VariantStatus(v models.ProductVariant, p models.Product) StockStatus {
	threshold := p.LowStockThreshold
	if v.LowStockThreshold != nil {
		threshold = *v.LowStockThreshold
	}
	threshold = EffectiveThreshold(&threshold)

	backorder := p.AllowBackorder
	if v.AllowBackorder != nil {
		backorder = *v.AllowBackorder
	}
	return DeriveStatus(v.Stock, threshold, backorder)
}

// ApplyDelta adds delta to stock, clamping the result at zero
func ApplyDelta(stock, delta int) int {
	if next := stock + delta; next > 0 {
		return next
	}
	return 0
}
