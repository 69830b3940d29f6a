package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCandidateProduct_UnmarshalWireShape(t *testing.T) {
	raw := `{"name":"Tee","sku":"TSH-01","price":29.99,"categoryId":1,
		"variants":[{"size":"M","color":"Black","stock":10}],
		"images":[{"url":"https://cdn.example.com/a.jpg","isPrimary":true}]}`

	var c CandidateProduct
	require.NoError(t, json.Unmarshal([]byte(raw), &c))

	assert.Equal(t, "Tee", c.Name)
	assert.Equal(t, RefID("1"), c.CategoryID)
	assert.True(t, c.Price.Equal(decimal.RequireFromString("29.99")))
	require.Len(t, c.Variants, 1)
	assert.Equal(t, 10, c.Variants[0].Stock)
	assert.True(t, c.Active())
	assert.False(t, c.Backorder())
	assert.Equal(t, DefaultLowStockThreshold, c.EffectiveThreshold())
}

func TestRefID_AcceptsStringsAndNumbers(t *testing.T) {
	cases := map[string]RefID{
		`"apparel"`: "apparel",
		`" 7 "`:     "7",
		`42`:        "42",
		`null`:      "",
	}
	for in, want := range cases {
		var r RefID
		require.NoError(t, json.Unmarshal([]byte(in), &r), in)
		assert.Equal(t, want, r, in)
	}

	var r RefID
	assert.Error(t, json.Unmarshal([]byte(`{"id":1}`), &r))
}

func TestGenerateSlug(t *testing.T) {
	assert.Equal(t, "classic-tee", GenerateSlug("Classic Tee"))
	assert.Equal(t, "men-s-t-shirt-2024", GenerateSlug("  Men's T-Shirt (2024) "))
	assert.Equal(t, "", GenerateSlug("!!!"))
	assert.True(t, ValidSlug("classic-tee"))
	assert.False(t, ValidSlug("Classic Tee"))
	assert.False(t, ValidSlug("double--dash"))
}

func TestToProduct_BuildsGraph(t *testing.T) {
	threshold := 3
	c := CandidateProduct{
		Name:              " Tee ",
		SKU:               "TSH-01",
		Price:             decimal.NewFromFloat(29.99),
		CategoryID:        "1",
		Tags:              []string{"summer", " Summer", "", "cotton"},
		LowStockThreshold: &threshold,
		Variants:          []CandidateVariant{{Size: "M", Color: "Black", Stock: 10}},
		Images:            []CandidateImage{{URL: "a.jpg"}, {URL: "b.jpg"}},
	}

	p := c.ToProduct("TSH-01-2")

	assert.Equal(t, "Tee", p.Name)
	assert.Equal(t, "TSH-01-2", p.SKU)
	assert.Equal(t, "tee", p.Slug)
	assert.Equal(t, StringList{"summer", "cotton"}, p.Tags)
	assert.Equal(t, 3, p.LowStockThreshold)
	assert.True(t, p.IsActive)
	require.Len(t, p.Variants, 1)
	assert.True(t, p.Variants[0].IsActive)
	require.Len(t, p.Images, 2)
	assert.Equal(t, 1, p.Images[1].SortOrder)
	assert.Equal(t, 10, p.TotalStock())
}

func TestStringList_ValueScan(t *testing.T) {
	v, err := StringList{"a", "b"}.Value()
	require.NoError(t, err)
	assert.Equal(t, `["a","b"]`, v)

	var s StringList
	require.NoError(t, s.Scan([]byte(`["x"]`)))
	assert.Equal(t, StringList{"x"}, s)
	require.NoError(t, s.Scan(nil))
	assert.Empty(t, s)
}

func TestDecodeVariantOperations(t *testing.T) {
	raws := []json.RawMessage{
		json.RawMessage(`{"action":"create","size":"M","color":"Black","stock":5}`),
		json.RawMessage(`{"action":"update","id":"abc","stockDelta":-2}`),
		json.RawMessage(`{"action":"delete","id":"def"}`),
		json.RawMessage(`{"action":"archive","id":"x"}`),
		json.RawMessage(`{"id":"x"}`),
	}

	ops := DecodeVariantOperations(raws)
	require.Len(t, ops, 5)

	create, ok := ops[0].(CreateVariantOp)
	require.True(t, ok)
	assert.Equal(t, "M", create.Variant.Size)
	assert.Equal(t, 5, create.Variant.Stock)

	update, ok := ops[1].(UpdateVariantOp)
	require.True(t, ok)
	assert.Equal(t, "abc", update.ID)
	require.NotNil(t, update.Patch.StockDelta)
	assert.Equal(t, -2, *update.Patch.StockDelta)
	assert.Nil(t, update.Patch.Stock)
	assert.False(t, update.Patch.IsEmpty())

	del, ok := ops[2].(DeleteVariantOp)
	require.True(t, ok)
	assert.Equal(t, "def", del.ID)

	invalid, ok := ops[3].(InvalidVariantOp)
	require.True(t, ok)
	assert.Equal(t, VariantAction("archive"), invalid.Action())
	assert.Contains(t, invalid.Err.Error(), "unknown action")

	missing, ok := ops[4].(InvalidVariantOp)
	require.True(t, ok)
	assert.EqualError(t, missing.Err, "action is required")
}
