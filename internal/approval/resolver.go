package approval

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"apflow-mcp/internal/store"
)

// descriptionFields are tried in order when deriving a display string.
var descriptionFields = []string{"title", "name", "subject", "description"}

// valueFields are tried in order when deriving the monetary value.
var valueFields = []string{"amount", "total_amount", "value", "cost"}

// Resolver fetches and normalizes an item's descriptive fields and monetary
// value. It never fails an analysis: a missing record resolves to
// "Unknown item" and a store failure degrades to a generic description.
type Resolver struct {
	items   store.ItemStore
	timeout time.Duration
}

// NewResolver wires a resolver against an item store. Each fetch runs under
// the given read timeout.
func NewResolver(items store.ItemStore, timeout time.Duration) *Resolver {
	return &Resolver{items: items, timeout: timeout}
}

// Resolve returns the item snapshot for any supported type.
func (r *Resolver) Resolve(ctx context.Context, itemType ItemType, itemID string) Item {
	readCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	fields, err := r.items.GetItem(readCtx, string(itemType), itemID)
	if errors.Is(err, store.ErrNotFound) {
		return Item{Type: itemType, ID: itemID, Description: "Unknown item", Fields: FieldBag{}}
	}
	if err != nil {
		log.Warn().Err(err).
			Str("itemType", string(itemType)).
			Str("itemId", itemID).
			Msg("Item lookup failed, using generic description")
		return Item{Type: itemType, ID: itemID, Description: genericDescription(itemType, itemID), Fields: FieldBag{}}
	}

	bag := FieldBag(fields)
	item := Item{
		Type:        itemType,
		ID:          itemID,
		Description: genericDescription(itemType, itemID),
		Fields:      bag,
	}

	for _, f := range descriptionFields {
		if s, ok := bag[f].(string); ok && s != "" {
			item.Description = s
			break
		}
	}

	for _, f := range valueFields {
		if v, ok := bag.Number(f); ok {
			item.Value = &v
			break
		}
	}

	return item
}
