package approval

import (
	"fmt"
	"strings"
)

// ItemType discriminates the supported approval item kinds.
type ItemType string

const (
	ChangeOrder        ItemType = "change_order"
	Invoice            ItemType = "invoice"
	Submittal          ItemType = "submittal"
	RFI                ItemType = "rfi"
	PaymentApplication ItemType = "payment_application"
	PurchaseOrder      ItemType = "purchase_order"
)

// ParseItemType validates an item type string from the tool surface.
func ParseItemType(s string) (ItemType, bool) {
	switch ItemType(s) {
	case ChangeOrder, Invoice, Submittal, RFI, PaymentApplication, PurchaseOrder:
		return ItemType(s), true
	}
	return "", false
}

// DisplayName returns the human-readable form, e.g. "Change Order".
func (t ItemType) DisplayName() string {
	parts := strings.Split(string(t), "_")
	for i, p := range parts {
		if p == "rfi" {
			parts[i] = "RFI"
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}

// FieldBag holds an item's semi-structured field data. The analyzers only
// ever test fields for presence; values are carried opaquely.
type FieldBag map[string]interface{}

// Present reports whether a field exists and is non-empty. Empty strings,
// empty slices/maps and nil all count as absent.
func (f FieldBag) Present(name string) bool {
	v, ok := f[name]
	if !ok || v == nil {
		return false
	}
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val) != ""
	case []interface{}:
		return len(val) > 0
	case map[string]interface{}:
		return len(val) > 0
	}
	return true
}

// Number returns a field as float64 when it carries a numeric value.
func (f FieldBag) Number(name string) (float64, bool) {
	switch val := f[name].(type) {
	case float64:
		return val, true
	case int:
		return float64(val), true
	}
	return 0, false
}

// Item is a read-only snapshot of one approval item. It is never mutated by
// the analyzers; only the escalator writes item state, and it does so
// through the ledger, not through this snapshot.
type Item struct {
	Type        ItemType
	ID          string
	Description string
	Value       *float64
	Fields      FieldBag
}

// genericDescription is the fallback when the store cannot be read.
func genericDescription(t ItemType, id string) string {
	return fmt.Sprintf("%s %s", t.DisplayName(), id)
}
