package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// InventoryStatus represents the stock status of a product or variant
type InventoryStatus string

const (
	InventoryStatusInStock    InventoryStatus = "IN_STOCK"
	InventoryStatusLowStock   InventoryStatus = "LOW_STOCK"
	InventoryStatusOutOfStock InventoryStatus = "OUT_OF_STOCK"
	InventoryStatusBackorder  InventoryStatus = "BACKORDER"
)

// DefaultLowStockThreshold applies when a product does not set its own threshold
const DefaultLowStockThreshold = 5

// StringList is stored as a JSON array in a text column
type StringList []string

func (s StringList) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(s))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *StringList) Scan(value interface{}) error {
	if value == nil {
		*s = StringList{}
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported StringList source %T", value)
	}
	if len(raw) == 0 {
		*s = StringList{}
		return nil
	}
	return json.Unmarshal(raw, (*[]string)(s))
}

// Category is a tenant-owned product category. IDs are caller supplied so
// imports can reference them by plain values like "1" or "apparel".
type Category struct {
	ID        string    `json:"id" gorm:"primaryKey;size:64"`
	TenantID  string    `json:"tenantId" gorm:"primaryKey;size:64"`
	Name      string    `json:"name" gorm:"not null"`
	Slug      string    `json:"slug" gorm:"not null"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Product represents a catalog product and its variant/image graph
type Product struct {
	ID                uuid.UUID        `json:"id" gorm:"type:uuid;primaryKey"`
	TenantID          string           `json:"tenantId" gorm:"not null;size:64;index;uniqueIndex:idx_products_tenant_sku"`
	CategoryID        string           `json:"categoryId" gorm:"not null;size:64;index"`
	Name              string           `json:"name" gorm:"not null"`
	Slug              string           `json:"slug" gorm:"index"`
	SKU               string           `json:"sku" gorm:"not null;size:128;uniqueIndex:idx_products_tenant_sku"`
	Description       *string          `json:"description,omitempty"`
	Price             decimal.Decimal  `json:"price" gorm:"type:numeric(12,2);not null"`
	ComparePrice      *decimal.Decimal `json:"comparePrice,omitempty" gorm:"type:numeric(12,2)"`
	CostPrice         *decimal.Decimal `json:"costPrice,omitempty" gorm:"type:numeric(12,2)"`
	SalePrice         *decimal.Decimal `json:"salePrice,omitempty" gorm:"type:numeric(12,2)"`
	SaleEndDate       *time.Time       `json:"saleEndDate,omitempty"`
	Tags              StringList       `json:"tags" gorm:"type:text"`
	MetaTitle         *string          `json:"metaTitle,omitempty"`
	MetaDescription   *string          `json:"metaDescription,omitempty"`
	MetaKeywords      StringList       `json:"metaKeywords" gorm:"type:text"`
	IsActive          bool             `json:"isActive"`
	IsFeatured        bool             `json:"isFeatured"`
	IsOnSale          bool             `json:"isOnSale"`
	LowStockThreshold int              `json:"lowStockThreshold" gorm:"not null"`
	AllowBackorder    bool             `json:"allowBackorder"`
	InventoryStatus   InventoryStatus  `json:"inventoryStatus" gorm:"size:20;index"`
	Variants          []ProductVariant `json:"variants,omitempty" gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	Images            []ProductImage   `json:"images,omitempty" gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedBy         *string          `json:"createdBy,omitempty"`
	UpdatedBy         *string          `json:"updatedBy,omitempty"`
	CreatedAt         time.Time        `json:"createdAt"`
	UpdatedAt         time.Time        `json:"updatedAt"`

	// Denormalized for exports, filled by the repository when listing
	CategoryName string `json:"categoryName,omitempty" gorm:"-"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// TotalStock sums stock over active variants
func (p *Product) TotalStock() int {
	total := 0
	for _, v := range p.Variants {
		if v.IsActive {
			total += v.Stock
		}
	}
	return total
}

// ProductVariant is a size/color specific sub-entity of a product.
// The (product_id, size, color) triple is unique.
type ProductVariant struct {
	ID                uuid.UUID        `json:"id" gorm:"type:uuid;primaryKey"`
	ProductID         uuid.UUID        `json:"productId" gorm:"type:uuid;not null;index;uniqueIndex:idx_variants_product_size_color"`
	Size              string           `json:"size" gorm:"not null;size:64;uniqueIndex:idx_variants_product_size_color"`
	Color             string           `json:"color" gorm:"not null;size:64;uniqueIndex:idx_variants_product_size_color"`
	ColorCode         *string          `json:"colorCode,omitempty"`
	SKU               *string          `json:"sku,omitempty" gorm:"size:128;index"`
	Price             *decimal.Decimal `json:"price,omitempty" gorm:"type:numeric(12,2)"`
	ComparePrice      *decimal.Decimal `json:"comparePrice,omitempty" gorm:"type:numeric(12,2)"`
	Stock             int              `json:"stock" gorm:"not null"`
	IsActive          bool             `json:"isActive"`
	LowStockThreshold *int             `json:"lowStockThreshold,omitempty"`
	AllowBackorder    *bool            `json:"allowBackorder,omitempty"`
	InventoryStatus   InventoryStatus  `json:"inventoryStatus" gorm:"size:20"`
	CreatedAt         time.Time        `json:"createdAt"`
	UpdatedAt         time.Time        `json:"updatedAt"`
}

func (v *ProductVariant) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

// ProductImage represents a product gallery image
type ProductImage struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	ProductID uuid.UUID `json:"productId" gorm:"type:uuid;not null;index"`
	URL       string    `json:"url" gorm:"not null"`
	Alt       *string   `json:"alt,omitempty"`
	SortOrder int       `json:"sortOrder"`
	IsPrimary bool      `json:"isPrimary"`
	Color     *string   `json:"color,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func (i *ProductImage) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// ErrorResponse is the error envelope returned by every handler
type ErrorResponse struct {
	Success bool  `json:"success"`
	Error   Error `json:"error"`
}

type Error struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// SuccessResponse wraps successful payloads
type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message *string     `json:"message,omitempty"`
}
