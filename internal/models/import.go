package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ImportFormat represents the file format for import and export
type ImportFormat string

const (
	ImportFormatCSV  ImportFormat = "csv"
	ImportFormatXLSX ImportFormat = "xlsx"
	ImportFormatJSON ImportFormat = "json"
)

// RefID is a reference to another record that accepts both JSON numbers and
// strings, so {"categoryId": 1} and {"categoryId": "1"} resolve the same way.
type RefID string

func (r *RefID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*r = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*r = RefID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("reference id must be a string or number: %w", err)
	}
	*r = RefID(n.String())
	return nil
}

func (r RefID) String() string { return string(r) }

// ============================================================================
// Candidate records
// ============================================================================

// CandidateProduct is one raw input record of an import batch. It exists only
// for the duration of a validate or execute call.
type CandidateProduct struct {
	Name              string             `json:"name" validate:"required"`
	Slug              string             `json:"slug,omitempty"`
	Description       *string            `json:"description,omitempty"`
	SKU               string             `json:"sku" validate:"required"`
	Price             decimal.Decimal    `json:"price"`
	CategoryID        RefID              `json:"categoryId" validate:"required"`
	ComparePrice      *decimal.Decimal   `json:"comparePrice,omitempty"`
	CostPrice         *decimal.Decimal   `json:"costPrice,omitempty"`
	SalePrice         *decimal.Decimal   `json:"salePrice,omitempty"`
	SaleEndDate       *time.Time         `json:"saleEndDate,omitempty"`
	Tags              []string           `json:"tags,omitempty"`
	MetaTitle         *string            `json:"metaTitle,omitempty"`
	MetaDescription   *string            `json:"metaDescription,omitempty"`
	MetaKeywords      []string           `json:"metaKeywords,omitempty"`
	IsActive          *bool              `json:"isActive,omitempty"`
	IsFeatured        bool               `json:"isFeatured"`
	IsOnSale          bool               `json:"isOnSale"`
	LowStockThreshold *int               `json:"lowStockThreshold,omitempty"`
	AllowBackorder    *bool              `json:"allowBackorder,omitempty"`
	UpdateTarget      bool               `json:"updateTarget,omitempty"`
	Variants          []CandidateVariant `json:"variants,omitempty" validate:"dive"`
	Images            []CandidateImage   `json:"images,omitempty" validate:"dive"`

	// ParseErrors holds problems found while converting a flat-file row
	ParseErrors []string `json:"-"`
}

// CandidateVariant is a variant of a candidate product
type CandidateVariant struct {
	Size              string           `json:"size" validate:"required"`
	Color             string           `json:"color" validate:"required"`
	ColorCode         *string          `json:"colorCode,omitempty"`
	Stock             int              `json:"stock" validate:"gte=0"`
	SKU               *string          `json:"sku,omitempty"`
	Price             *decimal.Decimal `json:"price,omitempty"`
	ComparePrice      *decimal.Decimal `json:"comparePrice,omitempty"`
	IsActive          *bool            `json:"isActive,omitempty"`
	LowStockThreshold *int             `json:"lowStockThreshold,omitempty"`
	AllowBackorder    *bool            `json:"allowBackorder,omitempty"`
}

// CandidateImage is an image of a candidate product
type CandidateImage struct {
	URL       string  `json:"url" validate:"required"`
	Alt       *string `json:"alt,omitempty"`
	SortOrder int     `json:"sortOrder"`
	IsPrimary bool    `json:"isPrimary"`
	Color     *string `json:"color,omitempty"`
}

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// ValidSlug reports whether s is lowercase alphanumerics joined by single hyphens
func ValidSlug(s string) bool {
	return slugPattern.MatchString(s)
}

// GenerateSlug derives a URL slug from a product name
func GenerateSlug(name string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteRune('-')
			lastDash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// EffectiveSlug returns the explicit slug or one derived from the name
func (c *CandidateProduct) EffectiveSlug() string {
	if s := strings.TrimSpace(c.Slug); s != "" {
		return s
	}
	return GenerateSlug(c.Name)
}

// EffectiveThreshold returns the low stock threshold, defaulting to 5
func (c *CandidateProduct) EffectiveThreshold() int {
	if c.LowStockThreshold == nil {
		return DefaultLowStockThreshold
	}
	return *c.LowStockThreshold
}

func (c *CandidateProduct) Active() bool {
	return c.IsActive == nil || *c.IsActive
}

func (c *CandidateProduct) Backorder() bool {
	return c.AllowBackorder != nil && *c.AllowBackorder
}

func (v *CandidateVariant) Active() bool {
	return v.IsActive == nil || *v.IsActive
}

// ToProduct builds the persistable product graph for this candidate under sku.
// TenantID and ID are assigned by the store.
func (c *CandidateProduct) ToProduct(sku string) *Product {
	p := &Product{
		CategoryID:        c.CategoryID.String(),
		Name:              strings.TrimSpace(c.Name),
		Slug:              c.EffectiveSlug(),
		SKU:               sku,
		Description:       c.Description,
		Price:             c.Price,
		ComparePrice:      c.ComparePrice,
		CostPrice:         c.CostPrice,
		SalePrice:         c.SalePrice,
		SaleEndDate:       c.SaleEndDate,
		Tags:              StringList(normalizeTags(c.Tags)),
		MetaTitle:         c.MetaTitle,
		MetaDescription:   c.MetaDescription,
		MetaKeywords:      StringList(normalizeTags(c.MetaKeywords)),
		IsActive:          c.Active(),
		IsFeatured:        c.IsFeatured,
		IsOnSale:          c.IsOnSale,
		LowStockThreshold: c.EffectiveThreshold(),
		AllowBackorder:    c.Backorder(),
	}
	for _, cv := range c.Variants {
		p.Variants = append(p.Variants, cv.ToVariant())
	}
	for i, ci := range c.Images {
		img := ProductImage{
			URL:       strings.TrimSpace(ci.URL),
			Alt:       ci.Alt,
			SortOrder: ci.SortOrder,
			IsPrimary: ci.IsPrimary,
			Color:     ci.Color,
		}
		if img.SortOrder == 0 {
			img.SortOrder = i
		}
		p.Images = append(p.Images, img)
	}
	return p
}

// ToVariant converts a candidate variant into a persistable variant
func (v *CandidateVariant) ToVariant() ProductVariant {
	return ProductVariant{
		Size:              strings.TrimSpace(v.Size),
		Color:             strings.TrimSpace(v.Color),
		ColorCode:         v.ColorCode,
		SKU:               v.SKU,
		Price:             v.Price,
		ComparePrice:      v.ComparePrice,
		Stock:             v.Stock,
		IsActive:          v.Active(),
		LowStockThreshold: v.LowStockThreshold,
		AllowBackorder:    v.AllowBackorder,
	}
}

// normalizeTags trims, drops empties and removes duplicates keeping first occurrence
func normalizeTags(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, t := range in {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		key := strings.ToLower(t)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}

// ============================================================================
// Pipeline results
// ============================================================================

// ProductRef identifies a candidate in validation output
type ProductRef struct {
	Name string `json:"name"`
	SKU  string `json:"sku"`
}

// ValidationResult is the outcome of validating one candidate. Index is the
// candidate's position in the input batch.
type ValidationResult struct {
	Index    int        `json:"index"`
	Product  ProductRef `json:"product"`
	Errors   []string   `json:"errors"`
	Warnings []string   `json:"warnings"`
	Valid    bool       `json:"valid"`
}

// ImportStatus is the per-record outcome of an import
type ImportStatus string

const (
	ImportStatusCreated ImportStatus = "created"
	ImportStatusUpdated ImportStatus = "updated"
	ImportStatusSkipped ImportStatus = "skipped"
	ImportStatusError   ImportStatus = "error"
)

// ImportResult reports what happened to one candidate
type ImportResult struct {
	Name        string       `json:"name"`
	SKU         string       `json:"sku"`
	Status      ImportStatus `json:"status"`
	Reason      string       `json:"reason,omitempty"`
	Details     string       `json:"details,omitempty"`
	ProductID   string       `json:"productId,omitempty"`
	OriginalSKU string       `json:"originalSku,omitempty"`
	SKUChanged  bool         `json:"skuChanged,omitempty"`
}

// ImportOptions controls how SKU collisions with existing products are handled
type ImportOptions struct {
	SkipDuplicates bool `json:"skipDuplicates"`
	UpdateExisting bool `json:"updateExisting"` // takes precedence over SkipDuplicates
	ValidateOnly   bool `json:"validateOnly"`   // dry run mode
}

// ImportOutcome is the batch level state reported to callers
type ImportOutcome string

const (
	ImportOutcomeSuccess ImportOutcome = "success"
	ImportOutcomePartial ImportOutcome = "partial"
	ImportOutcomeFailed  ImportOutcome = "failed"
)

// ImportSummary aggregates the results of one import batch
type ImportSummary struct {
	Total    int           `json:"total"`
	Imported int           `json:"imported"`
	Updated  int           `json:"updated"`
	Skipped  int           `json:"skipped"`
	Errors   int           `json:"errors"`
	Success  bool          `json:"success"`
	Outcome  ImportOutcome `json:"outcome"`
	Message  string        `json:"message"`
}

// ============================================================================
// Template
// ============================================================================

// ImportTemplateColumn defines a column in the import template
type ImportTemplateColumn struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
	Type        string `json:"type"` // string, number, boolean, date, list
	Example     string `json:"example"`
}

// ImportTemplate defines the structure of an import template
type ImportTemplate struct {
	Entity     string                 `json:"entity"`
	Version    string                 `json:"version"`
	Columns    []ImportTemplateColumn `json:"columns"`
	SampleData []map[string]string    `json:"sampleData,omitempty"`
}

// ProductImportColumns returns the column definitions for product import
func ProductImportColumns() []ImportTemplateColumn {
	return []ImportTemplateColumn{
		{Name: "name", Description: "Product name", Required: true, Type: "string", Example: "Classic Tee"},
		{Name: "sku", Description: "Unique product SKU", Required: true, Type: "string", Example: "TSH-01"},
		{Name: "price", Description: "Product price, greater than 0", Required: true, Type: "number", Example: "29.99"},
		{Name: "categoryId", Description: "Existing category ID", Required: true, Type: "string", Example: "1"},
		{Name: "slug", Description: "URL slug, derived from name when empty", Required: false, Type: "string", Example: "classic-tee"},
		{Name: "description", Description: "Product description", Required: false, Type: "string", Example: ""},
		{Name: "comparePrice", Description: "Original/compare price", Required: false, Type: "number", Example: ""},
		{Name: "costPrice", Description: "Cost price", Required: false, Type: "number", Example: ""},
		{Name: "salePrice", Description: "Sale price, required when isOnSale", Required: false, Type: "number", Example: ""},
		{Name: "saleEndDate", Description: "Sale end date (YYYY-MM-DD or RFC3339)", Required: false, Type: "date", Example: ""},
		{Name: "isOnSale", Description: "Product is on sale (true/false)", Required: false, Type: "boolean", Example: "false"},
		{Name: "isActive", Description: "Product is active (true/false, default true)", Required: false, Type: "boolean", Example: "true"},
		{Name: "isFeatured", Description: "Product is featured (true/false)", Required: false, Type: "boolean", Example: "false"},
		{Name: "tags", Description: "Comma-separated tags", Required: false, Type: "list", Example: "summer,cotton"},
		{Name: "metaTitle", Description: "SEO title", Required: false, Type: "string", Example: ""},
		{Name: "metaDescription", Description: "SEO description", Required: false, Type: "string", Example: ""},
		{Name: "metaKeywords", Description: "Comma-separated SEO keywords", Required: false, Type: "list", Example: ""},
		{Name: "lowStockThreshold", Description: "Low stock alert threshold (default 5)", Required: false, Type: "number", Example: "5"},
		{Name: "allowBackorder", Description: "Allow selling when out of stock (true/false)", Required: false, Type: "boolean", Example: "false"},
		{Name: "variants", Description: "Variants as size/color/stock[/sku] separated by ';'", Required: false, Type: "list", Example: "M/Black/10;L/Black/4/TSH-01-L"},
		{Name: "imageUrls", Description: "Image URLs separated by '|', first is primary", Required: false, Type: "list", Example: "https://cdn.example.com/tee.jpg"},
	}
}

// ProductImportTemplate returns the template definition for products
func ProductImportTemplate() ImportTemplate {
	return ImportTemplate{
		Entity:  "products",
		Version: "2.0",
		Columns: ProductImportColumns(),
		SampleData: []map[string]string{
			{
				"name": "Classic Tee", "sku": "TSH-01", "price": "29.99", "categoryId": "1",
				"tags": "summer,cotton", "variants": "M/Black/10;L/Black/4", "imageUrls": "https://cdn.example.com/tee.jpg",
			},
		},
	}
}
