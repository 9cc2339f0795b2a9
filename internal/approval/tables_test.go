package approval

import "testing"

func TestDefaultTablesTierOrdering(t *testing.T) {
	tables := DefaultTables()

	for itemType, tiers := range tables.ApprovalTiers {
		if len(tiers) == 0 {
			t.Errorf("%s has no tiers", itemType)
			continue
		}
		if tiers[len(tiers)-1].Threshold != 0 {
			t.Errorf("%s lowest tier threshold = %f, want 0", itemType, tiers[len(tiers)-1].Threshold)
		}
		for i := 1; i < len(tiers); i++ {
			if tiers[i].Threshold >= tiers[i-1].Threshold {
				t.Errorf("%s tiers not strictly descending at index %d", itemType, i)
			}
			// Raising value must only add approvers.
			if !rolesSuperset(tiers[i-1].Roles, tiers[i].Roles) {
				t.Errorf("%s tier %d roles are not a superset of tier %d", itemType, i-1, i)
			}
		}
	}
}

func rolesSuperset(higher, lower []string) bool {
	set := make(map[string]bool, len(higher))
	for _, r := range higher {
		set[NormalizeRole(r)] = true
	}
	for _, r := range lower {
		if !set[NormalizeRole(r)] {
			return false
		}
	}
	return true
}

func TestDefaultTablesPatternWeights(t *testing.T) {
	tables := DefaultTables()

	for itemType, patterns := range tables.RejectionPatterns {
		for _, p := range patterns {
			if p.Weight <= 0 || p.Weight > 1 {
				t.Errorf("%s pattern %q weight %f out of range", itemType, p.Reason, p.Weight)
			}
			if p.Reason == "" {
				t.Errorf("%s has a pattern without a reason", itemType)
			}
		}
	}
}

func TestDefaultTablesBaseDurations(t *testing.T) {
	tables := DefaultTables()

	for _, itemType := range []ItemType{ChangeOrder, Invoice, Submittal, RFI, PaymentApplication, PurchaseOrder} {
		if tables.BaseDurations[itemType] <= 0 {
			t.Errorf("%s has no base duration", itemType)
		}
	}
}

func TestEscalationTargetsTotal(t *testing.T) {
	tables := DefaultTables()

	tests := []struct {
		role     string
		expected string
	}{
		{"project_engineer", "project_manager"},
		{"Project Engineer", "project_manager"}, // display-style label
		{"project_manager", "project_executive"},
		{"project_executive", "owner_representative"},
		{"unknown_role", "project_manager"}, // default target
		{"", "project_manager"},
	}

	for _, tt := range tests {
		targets := tables.EscalationTargets(tt.role)
		if len(targets) == 0 {
			t.Fatalf("EscalationTargets(%q) returned no candidates", tt.role)
		}
		if targets[0] != tt.expected {
			t.Errorf("EscalationTargets(%q)[0] = %s, want %s", tt.role, targets[0], tt.expected)
		}
	}
}

func TestEscalationTargetsTerminatesOnCycles(t *testing.T) {
	tables := DefaultTables()
	tables.RoleHierarchy = map[string][]string{
		"a": {"b"},
		"b": {"a"},
	}

	// Single-hop resolution never follows the edge chain, so cycles are safe.
	if got := tables.EscalationTargets("a"); len(got) != 1 || got[0] != "b" {
		t.Errorf("EscalationTargets(a) = %v, want [b]", got)
	}
	if got := tables.EscalationTargets("c"); len(got) != 1 || got[0] != tables.DefaultEscalationRole {
		t.Errorf("EscalationTargets(c) = %v, want default", got)
	}
}

func TestDocCategoryImpact(t *testing.T) {
	tests := []struct {
		category DocCategory
		expected string
	}{
		{CategoryCompliance, "blocking"},
		{CategoryDocumentation, "significant"},
		{CategoryApproval, "significant"},
		{CategoryInformation, "minor"},
	}

	for _, tt := range tests {
		if got := tt.category.Impact(); got != tt.expected {
			t.Errorf("%s.Impact() = %s, want %s", tt.category, got, tt.expected)
		}
	}
}
