package invoice

import (
	"time"

	"github.com/saurabhwebdev/invoicaura/internal/project"
)

// Status enumerates invoice statuses. StatusCancelled is backend-only; the
// presentation boundary maps it to StatusPending.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusOverdue   Status = "overdue"
	StatusCancelled Status = "cancelled"
)

// ValidStatus reports whether s is a recognized invoice status.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusPaid, StatusOverdue, StatusCancelled:
		return true
	}
	return false
}

// Kind tags the invoice variant. A client invoice bills the project's
// client; a third-party invoice records a vendor bill against the project.
type Kind string

const (
	KindClient     Kind = "client"
	KindThirdParty Kind = "third_party"
)

// ThirdParty carries the vendor-sourced details of a third-party invoice.
type ThirdParty struct {
	Company       string  `json:"company"`
	InvoiceNumber string  `json:"invoiceNumber"`
	Amount        float64 `json:"amount"`
}

// Invoice model.
type Invoice struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	ProjectID string `json:"projectId"`

	Number      string    `json:"invoiceNumber"`
	Amount      float64   `json:"amount"`
	Date        time.Time `json:"date"`
	Description string    `json:"description"`
	Status      Status    `json:"status"`

	// Type partitions the owning project's split budget. Required iff the
	// project tracks hardware and service budgets independently.
	Type project.BudgetLine `json:"type,omitempty"`

	PONumber string `json:"poNumber,omitempty"`

	// Kind dispatch is explicit: ThirdParty is non-nil exactly when
	// Kind == KindThirdParty.
	Kind       Kind        `json:"kind"`
	ThirdParty *ThirdParty `json:"thirdParty,omitempty"`

	// ClientInvoiceID optionally links a third-party invoice to the client
	// invoice it was drafted from. Pre-fill convenience only; never queried.
	ClientInvoiceID string `json:"clientInvoiceId,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsThirdParty reports whether the invoice is vendor-sourced.
func (i Invoice) IsThirdParty() bool {
	return i.Kind == KindThirdParty && i.ThirdParty != nil
}

// DisplayStatus maps the stored status onto the restricted set exposed to
// the presentation boundary: cancelled reads back as pending.
func (i Invoice) DisplayStatus() Status {
	if i.Status == StatusCancelled {
		return StatusPending
	}
	return i.Status
}
