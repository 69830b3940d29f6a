package models

import "errors"

var (
	ErrDuplicateSKU      = errors.New("SKU already exists")
	ErrProductNotFound   = errors.New("product not found")
	ErrVariantNotFound   = errors.New("variant not found")
	ErrVariantNotOwned   = errors.New("variant does not belong to product")
	ErrDuplicateVariant  = errors.New("variant with this size and color already exists")
	ErrCategoryNotFound  = errors.New("category not found")
	ErrDuplicateCategory = errors.New("category already exists")
)
