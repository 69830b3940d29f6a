package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// VariantAction discriminates variant batch operations
type VariantAction string

const (
	VariantActionCreate VariantAction = "create"
	VariantActionUpdate VariantAction = "update"
	VariantActionDelete VariantAction = "delete"
)

// VariantOperation is one entry of a variant batch. The set of implementations
// is closed: CreateVariantOp, UpdateVariantOp, DeleteVariantOp and
// InvalidVariantOp for entries that could not be decoded.
type VariantOperation interface {
	Action() VariantAction
	variantOperation()
}

// CreateVariantOp creates a new variant with the full field set
type CreateVariantOp struct {
	Variant CandidateVariant
}

// UpdateVariantOp patches the fields present in Patch on variant ID
type UpdateVariantOp struct {
	ID    string
	Patch VariantPatch
}

// DeleteVariantOp removes variant ID
type DeleteVariantOp struct {
	ID string
}

// InvalidVariantOp stands in for a batch entry that failed to decode, so the
// remaining entries keep their positions.
type InvalidVariantOp struct {
	RawAction string
	Err       error
}

func (CreateVariantOp) Action() VariantAction { return VariantActionCreate }
func (UpdateVariantOp) Action() VariantAction { return VariantActionUpdate }
func (DeleteVariantOp) Action() VariantAction { return VariantActionDelete }
func (o InvalidVariantOp) Action() VariantAction {
	return VariantAction(o.RawAction)
}

func (CreateVariantOp) variantOperation()  {}
func (UpdateVariantOp) variantOperation()  {}
func (DeleteVariantOp) variantOperation()  {}
func (InvalidVariantOp) variantOperation() {}

// VariantPatch carries the subset of fields an update sets. Nil means untouched.
type VariantPatch struct {
	Size              *string          `json:"size,omitempty"`
	Color             *string          `json:"color,omitempty"`
	ColorCode         *string          `json:"colorCode,omitempty"`
	Stock             *int             `json:"stock,omitempty"`
	StockDelta        *int             `json:"stockDelta,omitempty"`
	SKU               *string          `json:"sku,omitempty"`
	Price             *decimal.Decimal `json:"price,omitempty"`
	ComparePrice      *decimal.Decimal `json:"comparePrice,omitempty"`
	IsActive          *bool            `json:"isActive,omitempty"`
	LowStockThreshold *int             `json:"lowStockThreshold,omitempty"`
	AllowBackorder    *bool            `json:"allowBackorder,omitempty"`
}

// IsEmpty reports whether the patch sets no field at all
func (p VariantPatch) IsEmpty() bool {
	return p.Size == nil && p.Color == nil && p.ColorCode == nil && p.Stock == nil &&
		p.StockDelta == nil && p.SKU == nil && p.Price == nil && p.ComparePrice == nil &&
		p.IsActive == nil && p.LowStockThreshold == nil && p.AllowBackorder == nil
}

// OperationOutcome is the result of one successful variant operation
type OperationOutcome struct {
	Index     int             `json:"index"`
	Action    VariantAction   `json:"action"`
	VariantID uuid.UUID       `json:"variantId"`
	Variant   *ProductVariant `json:"variant,omitempty"`
}

type variantOperationEnvelope struct {
	Action string `json:"action"`
	ID     string `json:"id"`
}

// DecodeVariantOperation decodes the wire form {"action": "...", ...}
func DecodeVariantOperation(raw json.RawMessage) (VariantOperation, error) {
	var env variantOperationEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("malformed operation: %w", err)
	}

	switch VariantAction(strings.ToLower(strings.TrimSpace(env.Action))) {
	case VariantActionCreate:
		var v CandidateVariant
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("malformed create payload: %w", err)
		}
		return CreateVariantOp{Variant: v}, nil
	case VariantActionUpdate:
		var p VariantPatch
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("malformed update payload: %w", err)
		}
		return UpdateVariantOp{ID: env.ID, Patch: p}, nil
	case VariantActionDelete:
		return DeleteVariantOp{ID: env.ID}, nil
	case "":
		return nil, errors.New("action is required")
	default:
		return nil, fmt.Errorf("unknown action %q", env.Action)
	}
}

// DecodeVariantOperations decodes a batch. Entries that fail to decode become
// InvalidVariantOp values at the same position.
func DecodeVariantOperations(raws []json.RawMessage) []VariantOperation {
	ops := make([]VariantOperation, len(raws))
	for i, raw := range raws {
		op, err := DecodeVariantOperation(raw)
		if err != nil {
			var env variantOperationEnvelope
			_ = json.Unmarshal(raw, &env)
			ops[i] = InvalidVariantOp{RawAction: env.Action, Err: err}
			continue
		}
		ops[i] = op
	}
	return ops
}
