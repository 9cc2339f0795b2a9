package approval

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestResolveMissingItem(t *testing.T) {
	r := NewResolver(&fakeItemStore{}, time.Second)
	item := r.Resolve(context.Background(), Invoice, "inv-404")

	if item.Description != "Unknown item" {
		t.Errorf("Description = %q, want Unknown item", item.Description)
	}
	if item.Value != nil {
		t.Errorf("Missing item must carry no value, got %f", *item.Value)
	}
}

func TestResolveStoreFailure(t *testing.T) {
	r := NewResolver(&fakeItemStore{err: errors.New("store offline")}, time.Second)
	item := r.Resolve(context.Background(), ChangeOrder, "co-9")

	if item.Description != "Change Order co-9" {
		t.Errorf("Description = %q, want generic fallback", item.Description)
	}
}

func TestResolveFieldExtraction(t *testing.T) {
	tests := []struct {
		name        string
		fields      map[string]interface{}
		description string
		value       *float64
	}{
		{
			name:        "TitleAndAmount",
			fields:      map[string]interface{}{"title": "Steel delivery", "amount": 1200.0},
			description: "Steel delivery",
			value:       f64(1200),
		},
		{
			name:        "SubjectAndCost",
			fields:      map[string]interface{}{"subject": "Grid line question", "cost": 50},
			description: "Grid line question",
			value:       f64(50),
		},
		{
			name:        "DescriptionPreferredOverNothing",
			fields:      map[string]interface{}{"description": "Rebar submittal"},
			description: "Rebar submittal",
		},
		{
			name:        "TitleWinsOverDescription",
			fields:      map[string]interface{}{"title": "CO 5", "description": "longer text"},
			description: "CO 5",
		},
		{
			name:        "NonNumericValueIgnored",
			fields:      map[string]interface{}{"title": "CO 6", "amount": "not a number"},
			description: "CO 6",
		},
		{
			name:        "NoDescriptiveFields",
			fields:      map[string]interface{}{"foo": "bar"},
			description: "Change Order co-1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeItemStore{items: map[string]map[string]interface{}{
				"change_order/co-1": tt.fields,
			}}
			item := NewResolver(store, time.Second).Resolve(context.Background(), ChangeOrder, "co-1")

			if item.Description != tt.description {
				t.Errorf("Description = %q, want %q", item.Description, tt.description)
			}
			switch {
			case tt.value == nil && item.Value != nil:
				t.Errorf("Value = %f, want none", *item.Value)
			case tt.value != nil && (item.Value == nil || *item.Value != *tt.value):
				t.Errorf("Value = %v, want %f", item.Value, *tt.value)
			}
		})
	}
}

func f64(v float64) *float64 { return &v }

func TestParseItemType(t *testing.T) {
	for _, valid := range []string{"change_order", "invoice", "submittal", "rfi", "payment_application", "purchase_order"} {
		if _, ok := ParseItemType(valid); !ok {
			t.Errorf("ParseItemType(%q) rejected a supported type", valid)
		}
	}
	for _, invalid := range []string{"", "Invoice", "work_order", "change order"} {
		if _, ok := ParseItemType(invalid); ok {
			t.Errorf("ParseItemType(%q) accepted an unsupported type", invalid)
		}
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		in       ItemType
		expected string
	}{
		{ChangeOrder, "Change Order"},
		{RFI, "RFI"},
		{PaymentApplication, "Payment Application"},
		{Invoice, "Invoice"},
	}

	for _, tt := range tests {
		if got := tt.in.DisplayName(); got != tt.expected {
			t.Errorf("DisplayName(%s) = %q, want %q", tt.in, got, tt.expected)
		}
	}
}
