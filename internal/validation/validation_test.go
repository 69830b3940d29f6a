package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type item struct {
	Size  string `json:"size" validate:"required"`
	Stock int    `json:"stock" validate:"gte=0"`
}

type order struct {
	Name  string `json:"name" validate:"required"`
	Items []item `json:"items" validate:"dive"`
}

func TestDescribe_UsesJSONFieldPaths(t *testing.T) {
	err := New().Struct(order{Items: []item{{Stock: -1}}})
	msg := Describe(err)

	assert.Contains(t, msg, "name is required")
	assert.Contains(t, msg, "items[0].size is required")
	assert.Contains(t, msg, "items[0].stock must be 0 or greater")
}

func TestDescribe_PassesThroughOtherErrors(t *testing.T) {
	assert.Equal(t, "", Describe(nil))
	assert.Equal(t, "boom", Describe(errors.New("boom")))
	assert.NoError(t, New().Struct(order{Name: "ok"}))
}
