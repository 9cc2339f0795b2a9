package approval

// Tuning constants shared by the analyzers.
const (
	// OutlierCutoffHours excludes completion durations beyond 30 days from
	// every historical aggregate.
	OutlierCutoffHours = 720.0

	// DefaultRejectionRate is assumed when a project has no usable history.
	DefaultRejectionRate = 0.2

	// MaxProbability caps the rejection probability after every additive
	// scoring stage.
	MaxProbability = 0.95

	// HistoryWindow bounds how many ledger records feed the statistics.
	HistoryWindow = 100

	// DefaultResponseHours is assumed for approvers with no response history.
	DefaultResponseHours = 24.0

	// HighValueThreshold marks items that get a fixed timeline delay and a
	// pre-approval recommendation.
	HighValueThreshold = 50000.0

	// MaxWorkload caps the 0-100 workload score.
	MaxWorkload = 100
)

// DocCategory classifies a required document; the category determines how
// hard its absence blocks approval.
type DocCategory string

const (
	CategoryDocumentation DocCategory = "documentation"
	CategoryInformation   DocCategory = "information"
	CategoryApproval      DocCategory = "approval"
	CategoryCompliance    DocCategory = "compliance"
)

// Impact derives the missing-requirement impact from the category:
// compliance blocks, documentation/approval are significant, information is
// minor.
func (c DocCategory) Impact() string {
	switch c {
	case CategoryCompliance:
		return "blocking"
	case CategoryDocumentation, CategoryApproval:
		return "significant"
	default:
		return "minor"
	}
}

// RejectionPattern is one additive risk contribution. Weight is in (0,1].
// CheckField, when set, names the item field whose absence triggers the
// pattern; patterns without one only surface through historical matching.
type RejectionPattern struct {
	Reason     string
	Weight     float64
	CheckField string
}

// RequiredDocument names a document an item type should carry. Aliases is
// the explicit, auditable list of backing field names; no aliases are
// derived beyond the lowercased/underscored forms of Name itself.
type RequiredDocument struct {
	Name     string
	Category DocCategory
	Aliases  []string
}

// ThresholdTier pairs a value breakpoint with the roles required at or above
// it. Tiers are stored highest threshold first, and each tier's role list is
// a superset of every lower tier's, so raising an item's value only ever
// adds approvers.
type ThresholdTier struct {
	Threshold float64
	Roles     []string
}

// Tables is the immutable lookup configuration injected into every
// analyzer. Tests substitute alternates; production uses DefaultTables.
type Tables struct {
	RejectionPatterns map[ItemType][]RejectionPattern
	RequiredDocuments map[ItemType][]RequiredDocument
	ApprovalTiers     map[ItemType][]ThresholdTier
	// RoleHierarchy maps a role to its ordered escalation candidates. The
	// lookup is made total by DefaultEscalationRole: any role without an
	// edge, and any edge whose candidates match nobody, resolves there in
	// one hop.
	RoleHierarchy         map[string][]string
	DefaultEscalationRole string
	// BaseDurations is the static per-type approval duration in hours,
	// used when no history exists.
	BaseDurations map[ItemType]float64
}

// DefaultTables returns the built-in configuration.
func DefaultTables() *Tables {
	return &Tables{
		RejectionPatterns: map[ItemType][]RejectionPattern{
			ChangeOrder: {
				{Reason: "Missing detailed cost breakdown", Weight: 0.4, CheckField: "cost_breakdown"},
				{Reason: "Insufficient scope description", Weight: 0.3, CheckField: "scope_description"},
				{Reason: "Missing supporting attachments", Weight: 0.25, CheckField: "attachments"},
				{Reason: "Schedule impact not documented", Weight: 0.2, CheckField: "schedule_impact"},
				{Reason: "Missing required signatures", Weight: 0.35, CheckField: "signatures"},
				{Reason: "Pricing inconsistent with contract unit rates", Weight: 0.3},
			},
			Invoice: {
				{Reason: "Missing lien waiver", Weight: 0.4, CheckField: "lien_waiver"},
				{Reason: "Missing backup documentation", Weight: 0.3, CheckField: "backup_documentation"},
				{Reason: "No purchase order reference", Weight: 0.2, CheckField: "po_reference"},
				{Reason: "Invoice amount does not match contract", Weight: 0.3},
			},
			Submittal: {
				{Reason: "Missing product data sheets", Weight: 0.35, CheckField: "product_data"},
				{Reason: "Missing certifications", Weight: 0.3, CheckField: "certifications"},
				{Reason: "Shop drawings incomplete", Weight: 0.25, CheckField: "shop_drawings"},
				{Reason: "Does not meet specification requirements", Weight: 0.4},
			},
			RFI: {
				{Reason: "No drawing or spec reference", Weight: 0.3, CheckField: "drawing_reference"},
				{Reason: "Question lacks sufficient detail", Weight: 0.2, CheckField: "question_detail"},
			},
			PaymentApplication: {
				{Reason: "Missing schedule of values", Weight: 0.4, CheckField: "schedule_of_values"},
				{Reason: "Missing lien waiver", Weight: 0.35, CheckField: "lien_waiver"},
				{Reason: "Missing certified payroll", Weight: 0.3, CheckField: "certified_payroll"},
				{Reason: "Billed percentage exceeds work in place", Weight: 0.35},
			},
			PurchaseOrder: {
				{Reason: "Missing vendor quote", Weight: 0.3, CheckField: "vendor_quote"},
				{Reason: "No cost code assigned", Weight: 0.25, CheckField: "cost_code"},
				{Reason: "Delivery date not specified", Weight: 0.15, CheckField: "delivery_date"},
			},
		},
		RequiredDocuments: map[ItemType][]RequiredDocument{
			ChangeOrder: {
				{Name: "Cost Breakdown", Category: CategoryDocumentation, Aliases: []string{"cost_breakdown", "cost_detail"}},
				{Name: "Scope Description", Category: CategoryInformation, Aliases: []string{"scope_description", "scope"}},
				{Name: "Schedule Impact Analysis", Category: CategoryInformation, Aliases: []string{"schedule_impact", "schedule_analysis"}},
				{Name: "Signed Authorization", Category: CategoryApproval, Aliases: []string{"signatures", "signed_by", "authorization"}},
			},
			Invoice: {
				{Name: "Lien Waiver", Category: CategoryCompliance, Aliases: []string{"lien_waiver"}},
				{Name: "Backup Documentation", Category: CategoryDocumentation, Aliases: []string{"backup_documentation", "backup", "receipts"}},
				{Name: "Purchase Order Reference", Category: CategoryInformation, Aliases: []string{"po_reference", "po_number"}},
			},
			Submittal: {
				{Name: "Product Data", Category: CategoryDocumentation, Aliases: []string{"product_data", "data_sheets"}},
				{Name: "Certifications", Category: CategoryCompliance, Aliases: []string{"certifications", "certificates"}},
				{Name: "Shop Drawings", Category: CategoryDocumentation, Aliases: []string{"shop_drawings", "drawings"}},
			},
			RFI: {
				{Name: "Drawing Reference", Category: CategoryInformation, Aliases: []string{"drawing_reference", "drawing_number", "spec_reference"}},
			},
			PaymentApplication: {
				{Name: "Schedule of Values", Category: CategoryDocumentation, Aliases: []string{"schedule_of_values", "sov"}},
				{Name: "Lien Waiver", Category: CategoryCompliance, Aliases: []string{"lien_waiver"}},
				{Name: "Certified Payroll", Category: CategoryCompliance, Aliases: []string{"certified_payroll", "payroll"}},
			},
			PurchaseOrder: {
				{Name: "Vendor Quote", Category: CategoryDocumentation, Aliases: []string{"vendor_quote", "quote"}},
				{Name: "Cost Code", Category: CategoryInformation, Aliases: []string{"cost_code"}},
			},
		},
		ApprovalTiers: map[ItemType][]ThresholdTier{
			ChangeOrder: {
				{Threshold: 100000, Roles: []string{"project_manager", "project_executive", "owner_representative"}},
				{Threshold: 25000, Roles: []string{"project_manager", "project_executive"}},
				{Threshold: 0, Roles: []string{"project_manager"}},
			},
			Invoice: {
				{Threshold: 50000, Roles: []string{"project_manager", "finance_manager"}},
				{Threshold: 0, Roles: []string{"project_manager"}},
			},
			Submittal: {
				{Threshold: 0, Roles: []string{"project_engineer"}},
			},
			RFI: {
				{Threshold: 0, Roles: []string{"project_engineer"}},
			},
			PaymentApplication: {
				{Threshold: 250000, Roles: []string{"project_manager", "finance_manager", "owner_representative"}},
				{Threshold: 50000, Roles: []string{"project_manager", "finance_manager"}},
				{Threshold: 0, Roles: []string{"project_manager"}},
			},
			PurchaseOrder: {
				{Threshold: 50000, Roles: []string{"project_manager", "procurement_manager", "project_executive"}},
				{Threshold: 10000, Roles: []string{"project_manager", "procurement_manager"}},
				{Threshold: 0, Roles: []string{"project_manager"}},
			},
		},
		RoleHierarchy: map[string][]string{
			"project_engineer":    {"project_manager", "superintendent"},
			"superintendent":      {"project_manager"},
			"procurement_manager": {"project_manager"},
			"project_manager":     {"project_executive"},
			"finance_manager":     {"project_executive"},
			"project_executive":   {"owner_representative"},
		},
		DefaultEscalationRole: "project_manager",
		BaseDurations: map[ItemType]float64{
			ChangeOrder:        72,
			Invoice:            48,
			Submittal:          96,
			RFI:                24,
			PaymentApplication: 120,
			PurchaseOrder:      48,
		},
	}
}

// EscalationTargets resolves the ordered escalation-candidate roles for a
// role in a single hop. The result always has at least one entry: roles
// without an edge fall back to the default target, which also terminates
// lookups over cyclic hierarchy data.
func (t *Tables) EscalationTargets(role string) []string {
	key := NormalizeRole(role)
	for r, targets := range t.RoleHierarchy {
		if NormalizeRole(r) == key && len(targets) > 0 {
			return targets
		}
	}
	return []string{t.DefaultEscalationRole}
}
