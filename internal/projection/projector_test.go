package projection

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalog-import-service/internal/models"
)

func sample() *models.Product {
	sale := decimal.RequireFromString("19.5")
	return &models.Product{
		ID:           uuid.MustParse("8f14e45f-ceea-4e7a-a3f5-1c7d3b8d9a01"),
		Name:         "Tee",
		SKU:          "TSH-01",
		CategoryID:   "1",
		CategoryName: "Apparel",
		Price:        decimal.RequireFromString("29.999"),
		SalePrice:    &sale,
		Tags:         models.StringList{"summer", "cotton"},
		IsActive:     true,
		Variants: []models.ProductVariant{
			{Size: "M", Color: "Black", Stock: 4, IsActive: true},
			{Size: "L", Color: "Black", Stock: 3, IsActive: true},
		},
		Images:    []models.ProductImage{{URL: "b.jpg", SortOrder: 2}, {URL: "a.jpg", SortOrder: 1, IsPrimary: true}},
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestProject_FlatFormat(t *testing.T) {
	out := Default.Project(sample(), []string{
		"name", "price", "comparePrice", "salePrice", "isActive", "isOnSale",
		"tags", "variants", "images", "category", "totalStock", "stockStatus", "createdAt",
	}, FormatCSV)

	assert.Equal(t, "Tee", out["name"])
	assert.Equal(t, "30.00", out["price"])
	assert.Equal(t, "", out["comparePrice"])
	assert.Equal(t, "19.50", out["salePrice"])
	assert.Equal(t, "Yes", out["isActive"])
	assert.Equal(t, "No", out["isOnSale"])
	assert.Equal(t, "summer,cotton", out["tags"])
	assert.Equal(t, 2, out["variants"])
	assert.Equal(t, 2, out["images"])
	assert.Equal(t, "Apparel", out["category"])
	assert.Equal(t, 7, out["totalStock"])
	assert.Equal(t, "LOW_STOCK", out["stockStatus"])
	assert.Equal(t, "2026-03-01T12:00:00Z", out["createdAt"])
}

func TestProject_StructuredFormat(t *testing.T) {
	out := Default.Project(sample(), []string{"price", "comparePrice", "isActive", "tags", "variants", "images"}, FormatJSON)

	assert.Equal(t, 30.0, out["price"])
	assert.Nil(t, out["comparePrice"])
	assert.Equal(t, true, out["isActive"])
	assert.Equal(t, []string{"summer", "cotton"}, out["tags"])

	variants, ok := out["variants"].([]map[string]interface{})
	require.True(t, ok)
	require.Len(t, variants, 2)
	assert.Equal(t, "M", variants[0]["size"])
	assert.Equal(t, "LOW_STOCK", variants[0]["stockStatus"])

	images, ok := out["images"].([]map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "a.jpg", images[0]["url"])
}

func TestProject_UnknownFieldsAreOmitted(t *testing.T) {
	out := Default.Project(sample(), []string{"name", "warehouse", "internalNotes"}, FormatXLSX)

	assert.Len(t, out, 1)
	assert.Contains(t, out, "name")
	assert.Empty(t, Default.Project(nil, []string{"name"}, FormatCSV))
}

func TestProjector_RegisterAndKnown(t *testing.T) {
	p := NewProjector()
	before := len(p.Fields())

	p.Register("shout", func(r *models.Product, flat bool) interface{} { return r.Name + "!" })
	p.Register("shout", func(r *models.Product, flat bool) interface{} { return r.Name + "!!" })

	assert.Len(t, p.Fields(), before+1)
	assert.Equal(t, "Tee!!", p.Project(sample(), []string{"shout"}, FormatCSV)["shout"])
	assert.Equal(t, []string{"sku", "shout"}, p.Known([]string{"sku", "nope", "shout", "sku"}))
	assert.NotContains(t, Default.Fields(), "shout")
}

func TestDefaultFieldsAreRegistered(t *testing.T) {
	assert.Equal(t, DefaultFields, Default.Known(DefaultFields))
	assert.False(t, FormatJSON.Flat())
	assert.True(t, FormatXLSX.Flat())
}
