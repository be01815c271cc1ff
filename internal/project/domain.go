package project

import (
	"time"
)

// Status enumerates project statuses.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusPending   Status = "pending"
	StatusCancelled Status = "cancelled"
)

// ValidStatus reports whether s is a recognized project status.
func ValidStatus(s Status) bool {
	switch s {
	case StatusActive, StatusCompleted, StatusPending, StatusCancelled:
		return true
	}
	return false
}

// BudgetLine identifies a partition of a split budget. Invoices carry the
// same dimension as their type.
type BudgetLine string

const (
	LineHardware BudgetLine = "hardware"
	LineService  BudgetLine = "service"
)

// ValidBudgetLine reports whether l is a recognized budget line.
func ValidBudgetLine(l BudgetLine) bool {
	return l == LineHardware || l == LineService
}

// POKind identifies one of the purchase order slots a project may define.
type POKind string

const (
	POHardware POKind = "hardware"
	POSoftware POKind = "software"
	POCombined POKind = "combined"
)

// PONumbers holds the purchase order identifiers configured on a project.
// Empty string means the slot is undefined.
type PONumbers struct {
	Hardware string `json:"hardware,omitempty"`
	Software string `json:"software,omitempty"`
	Combined string `json:"combined,omitempty"`
}

// Number returns the identifier stored in the given slot.
func (p PONumbers) Number(kind POKind) string {
	switch kind {
	case POHardware:
		return p.Hardware
	case POSoftware:
		return p.Software
	case POCombined:
		return p.Combined
	}
	return ""
}

// Project model.
type Project struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Client string `json:"client"`
	Status Status `json:"status"`

	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`

	// Budget is the total budget. When the split pair is set it always
	// equals HardwareBudget + ServiceBudget.
	Budget         float64  `json:"budget"`
	HardwareBudget *float64 `json:"hardwareBudget,omitempty"`
	ServiceBudget  *float64 `json:"serviceBudget,omitempty"`

	// Running totals mutated only by the invoice ledger.
	Invoiced         float64 `json:"invoiced"`
	InvoiceCount     int     `json:"invoiceCount"`
	HardwareInvoiced float64 `json:"hardwareInvoiced"`
	ServiceInvoiced  float64 `json:"serviceInvoiced"`

	PONumbers PONumbers `json:"poNumbers"`
	// ActivePOs is the canonical set of PO slots usable for new invoices.
	// Empty means every defined slot is eligible. The legacy scalar
	// current_po column is folded into this set at the data-access boundary.
	ActivePOs []POKind `json:"activePOs,omitempty"`

	// Display-only tax settings. Never part of budget arithmetic.
	GSTEnabled    bool    `json:"gstEnabled"`
	GSTPercentage float64 `json:"gstPercentage"`
	TDSEnabled    bool    `json:"tdsEnabled"`
	TDSPercentage float64 `json:"tdsPercentage"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SplitBudget reports whether the project tracks hardware and service
// budgets independently.
func (p Project) SplitBudget() bool {
	return p.HardwareBudget != nil && p.ServiceBudget != nil
}

// Remaining returns the unconsumed total budget. Negative when invoicing
// has exceeded the budget.
func (p Project) Remaining() float64 {
	return p.Budget - p.Invoiced
}

// RemainingFor returns the unconsumed budget of one partition. Falls back
// to the total remaining budget when the project is not split.
func (p Project) RemainingFor(line BudgetLine) float64 {
	if !p.SplitBudget() {
		return p.Remaining()
	}
	switch line {
	case LineHardware:
		return *p.HardwareBudget - p.HardwareInvoiced
	case LineService:
		return *p.ServiceBudget - p.ServiceInvoiced
	}
	return p.Remaining()
}

// NormalizeBudget enforces the split invariant: when both partition budgets
// are present the total is their sum, never an independently stored figure.
func (p *Project) NormalizeBudget() {
	if p.SplitBudget() {
		p.Budget = *p.HardwareBudget + *p.ServiceBudget
	}
}

// NormalizeActivePOs folds the legacy single-value current_po representation
// into the canonical active set. The resolution algorithm only ever sees
// the set form.
func NormalizeActivePOs(active []POKind, legacy string) []POKind {
	if len(active) > 0 {
		out := make([]POKind, 0, len(active))
		for _, kind := range active {
			switch kind {
			case POHardware, POSoftware, POCombined:
				out = append(out, kind)
			}
		}
		return out
	}
	switch POKind(legacy) {
	case POHardware, POSoftware, POCombined:
		return []POKind{POKind(legacy)}
	}
	return nil
}
