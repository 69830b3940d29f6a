// Package projection turns products into flat or structured field maps for
// exports and reports.
package projection

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"catalog-import-service/internal/models"
	"catalog-import-service/internal/stock"
)

// Format selects flat (csv, xlsx) or structured (json) value rendering
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
)

// Flat reports whether values must be rendered as scalars
func (f Format) Flat() bool {
	return f != FormatJSON
}

// Extractor computes one field of a product. flat selects scalar rendering.
type Extractor func(p *models.Product, flat bool) interface{}

// Projector is a registry of field extractors keyed by field name
type Projector struct {
	mu         sync.RWMutex
	extractors map[string]Extractor
	order      []string
}

// Default is the shared projector with every built-in field registered
var Default = NewProjector()

// DefaultFields is the field list used when an export does not name fields
var DefaultFields = []string{
	"name", "sku", "price", "comparePrice", "salePrice", "category", "isActive",
	"isOnSale", "totalStock", "stockStatus", "variants", "images", "createdAt",
}

func NewProjector() *Projector {
	p := &Projector{extractors: make(map[string]Extractor)}
	p.registerDefaults()
	return p
}

// Register adds or replaces the extractor for name
func (p *Projector) Register(name string, fn Extractor) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.extractors[name]; !exists {
		p.order = append(p.order, name)
	}
	p.extractors[name] = fn
}

// Fields lists registered field names in registration order
func (p *Projector) Fields() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, len(p.order))
	copy(out, p.order)
	return out
}

// Known filters fields down to registered names, keeping order and dropping repeats
func (p *Projector) Known(fields []string) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, 0, len(fields))
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if _, ok := p.extractors[f]; !ok {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

// Project extracts the requested fields. Unknown names are omitted.
func (p *Projector) Project(record *models.Product, fields []string, format Format) map[string]interface{} {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[string]interface{}, len(fields))
	if record == nil {
		return out
	}
	flat := format.Flat()
	for _, f := range fields {
		if fn, ok := p.extractors[f]; ok {
			out[f] = fn(record, flat)
		}
	}
	return out
}

func (p *Projector) registerDefaults() {
	p.Register("id", func(r *models.Product, flat bool) interface{} { return r.ID.String() })
	p.Register("name", func(r *models.Product, flat bool) interface{} { return r.Name })
	p.Register("slug", func(r *models.Product, flat bool) interface{} { return r.Slug })
	p.Register("sku", func(r *models.Product, flat bool) interface{} { return r.SKU })
	p.Register("description", func(r *models.Product, flat bool) interface{} { return optString(r.Description, flat) })
	p.Register("price", func(r *models.Product, flat bool) interface{} { return money(&r.Price, flat) })
	p.Register("comparePrice", func(r *models.Product, flat bool) interface{} { return money(r.ComparePrice, flat) })
	p.Register("costPrice", func(r *models.Product, flat bool) interface{} { return money(r.CostPrice, flat) })
	p.Register("salePrice", func(r *models.Product, flat bool) interface{} { return money(r.SalePrice, flat) })
	p.Register("saleEndDate", func(r *models.Product, flat bool) interface{} { return optTime(r.SaleEndDate, flat) })
	p.Register("categoryId", func(r *models.Product, flat bool) interface{} { return r.CategoryID })
	p.Register("category", func(r *models.Product, flat bool) interface{} {
		if r.CategoryName != "" {
			return r.CategoryName
		}
		return r.CategoryID
	})
	p.Register("tags", func(r *models.Product, flat bool) interface{} { return list(r.Tags, flat) })
	p.Register("metaTitle", func(r *models.Product, flat bool) interface{} { return optString(r.MetaTitle, flat) })
	p.Register("metaDescription", func(r *models.Product, flat bool) interface{} { return optString(r.MetaDescription, flat) })
	p.Register("metaKeywords", func(r *models.Product, flat bool) interface{} { return list(r.MetaKeywords, flat) })
	p.Register("isActive", func(r *models.Product, flat bool) interface{} { return boolean(r.IsActive, flat) })
	p.Register("isFeatured", func(r *models.Product, flat bool) interface{} { return boolean(r.IsFeatured, flat) })
	p.Register("isOnSale", func(r *models.Product, flat bool) interface{} { return boolean(r.IsOnSale, flat) })
	p.Register("lowStockThreshold", func(r *models.Product, flat bool) interface{} { return r.LowStockThreshold })
	p.Register("allowBackorder", func(r *models.Product, flat bool) interface{} { return boolean(r.AllowBackorder, flat) })
	p.Register("totalStock", func(r *models.Product, flat bool) interface{} { return r.TotalStock() })
	p.Register("stockStatus", func(r *models.Product, flat bool) interface{} {
		return string(stock.DeriveAggregateStatus(r.Variants).Status)
	})
	p.Register("variants", func(r *models.Product, flat bool) interface{} {
		if flat {
			return len(r.Variants)
		}
		out := make([]map[string]interface{}, 0, len(r.Variants))
		for _, v := range r.Variants {
			out = append(out, map[string]interface{}{
				"id":          v.ID.String(),
				"size":        v.Size,
				"color":       v.Color,
				"colorCode":   v.ColorCode,
				"sku":         v.SKU,
				"stock":       v.Stock,
				"price":       money(v.Price, false),
				"isActive":    v.IsActive,
				"stockStatus": string(stock.VariantStatus(v, *r).Status),
			})
		}
		return out
	})
	p.Register("images", func(r *models.Product, flat bool) interface{} {
		if flat {
			return len(r.Images)
		}
		images := make([]models.ProductImage, len(r.Images))
		copy(images, r.Images)
		sort.SliceStable(images, func(i, j int) bool { return images[i].SortOrder < images[j].SortOrder })
		out := make([]map[string]interface{}, 0, len(images))
		for _, img := range images {
			out = append(out, map[string]interface{}{
				"url":       img.URL,
				"alt":       img.Alt,
				"sortOrder": img.SortOrder,
				"isPrimary": img.IsPrimary,
			})
		}
		return out
	})
	p.Register("createdAt", func(r *models.Product, flat bool) interface{} { return optTime(&r.CreatedAt, flat) })
	p.Register("updatedAt", func(r *models.Product, flat bool) interface{} { return optTime(&r.UpdatedAt, flat) })
}

// money renders 2-decimal strings for flat formats and numbers otherwise
func money(d *decimal.Decimal, flat bool) interface{} {
	if d == nil {
		if flat {
			return ""
		}
		return nil
	}
	if flat {
		return d.StringFixed(2)
	}
	return d.Round(2).InexactFloat64()
}

func boolean(b bool, flat bool) interface{} {
	if !flat {
		return b
	}
	if b {
		return "Yes"
	}
	return "No"
}

func list(items []string, flat bool) interface{} {
	if flat {
		return strings.Join(items, ",")
	}
	if items == nil {
		return []string{}
	}
	return items
}

func optString(s *string, flat bool) interface{} {
	if s == nil {
		if flat {
			return ""
		}
		return nil
	}
	return *s
}

func optTime(t *time.Time, flat bool) interface{} {
	if t == nil || t.IsZero() {
		if flat {
			return ""
		}
		return nil
	}
	if flat {
		return t.UTC().Format(time.RFC3339)
	}
	return t.UTC()
}
