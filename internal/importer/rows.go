package importer

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"catalog-import-service/internal/models"
)

// RowNumberKey carries the 1-based sheet row of a parsed flat-file row
const RowNumberKey = "_row"

// CandidatesFromRows converts parsed CSV/XLSX rows into candidates. Header
// keys are expected lowercased. Conversion problems are recorded on the
// candidate and surface as validation errors.
func CandidatesFromRows(rows []map[string]string) []models.CandidateProduct {
	out := make([]models.CandidateProduct, 0, len(rows))
	for _, row := range rows {
		out = append(out, CandidateFromRow(row))
	}
	return out
}

// CandidateFromRow converts one flat row
func CandidateFromRow(row map[string]string) models.CandidateProduct {
	p := &rowParser{row: row}
	c := models.CandidateProduct{
		Name:            row["name"],
		Slug:            row["slug"],
		SKU:             row["sku"],
		CategoryID:      models.RefID(row["categoryid"]),
		Description:     optional(row["description"]),
		MetaTitle:       optional(row["metatitle"]),
		MetaDescription: optional(row["metadescription"]),
		Tags:            splitList(row["tags"], ","),
		MetaKeywords:    splitList(row["metakeywords"], ","),
	}

	if price := p.decimal("price"); price != nil {
		c.Price = *price
	}
	c.ComparePrice = p.decimal("compareprice")
	c.CostPrice = p.decimal("costprice")
	c.SalePrice = p.decimal("saleprice")
	c.SaleEndDate = p.date("saleenddate")
	c.IsActive = p.boolean("isactive")
	c.AllowBackorder = p.boolean("allowbackorder")
	if v := p.boolean("isfeatured"); v != nil {
		c.IsFeatured = *v
	}
	if v := p.boolean("isonsale"); v != nil {
		c.IsOnSale = *v
	}
	c.LowStockThreshold = p.integer("lowstockthreshold")
	if v := p.boolean("updateexisting"); v != nil {
		c.UpdateTarget = *v
	}

	c.Variants = p.variants(row["variants"])
	for i, url := range splitList(row["imageurls"], "|") {
		c.Images = append(c.Images, models.CandidateImage{URL: url, SortOrder: i, IsPrimary: i == 0})
	}

	c.ParseErrors = p.errs
	return c
}

type rowParser struct {
	row  map[string]string
	errs []string
}

func (p *rowParser) fail(format string, args ...interface{}) {
	p.errs = append(p.errs, fmt.Sprintf(format, args...))
}

func (p *rowParser) decimal(key string) *decimal.Decimal {
	raw := strings.TrimSpace(p.row[key])
	if raw == "" {
		return nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		p.fail("%s must be a number, got %q", key, raw)
		return nil
	}
	return &d
}

func (p *rowParser) integer(key string) *int {
	raw := strings.TrimSpace(p.row[key])
	if raw == "" {
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		p.fail("%s must be a whole number, got %q", key, raw)
		return nil
	}
	return &n
}

func (p *rowParser) boolean(key string) *bool {
	raw := strings.ToLower(strings.TrimSpace(p.row[key]))
	var v bool
	switch raw {
	case "":
		return nil
	case "true", "1", "yes", "y":
		v = true
	case "false", "0", "no", "n":
		v = false
	default:
		p.fail("%s must be true or false, got %q", key, raw)
		return nil
	}
	return &v
}

func (p *rowParser) date(key string) *time.Time {
	raw := strings.TrimSpace(p.row[key])
	if raw == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	p.fail("%s must be a date (YYYY-MM-DD or RFC3339), got %q", key, raw)
	return nil
}

// variants parses "size/color/stock[/sku]" entries separated by ';'
func (p *rowParser) variants(raw string) []models.CandidateVariant {
	var out []models.CandidateVariant
	for i, entry := range splitList(raw, ";") {
		parts := strings.Split(entry, "/")
		for j := range parts {
			parts[j] = strings.TrimSpace(parts[j])
		}
		if len(parts) < 3 || len(parts) > 4 {
			p.fail("variants[%d] must be size/color/stock[/sku], got %q", i, entry)
			continue
		}
		stock, err := strconv.Atoi(parts[2])
		if err != nil {
			p.fail("variants[%d].stock must be a whole number, got %q", i, parts[2])
			continue
		}
		v := models.CandidateVariant{Size: parts[0], Color: parts[1], Stock: stock}
		if len(parts) == 4 && parts[3] != "" {
			sku := parts[3]
			v.SKU = &sku
		}
		out = append(out, v)
	}
	return out
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

func splitList(value, sep string) []string {
	var out []string
	for _, part := range strings.Split(value, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
