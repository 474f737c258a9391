package records

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/billifyhq/billify-backend/pkg/enums"
)

// Invoice is one billing event for a customer. Invoices are created by the
// billing pass (or a replayed payment attempt), mutated only through the
// payment flow, and never physically deleted.
type Invoice struct {
	ID            string              `json:"id"`
	CustomerID    string              `json:"customer_id"`
	Amount        decimal.Decimal     `json:"amount"`
	DueDate       time.Time           `json:"due_date"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	// PaymentDate is set only when PaymentStatus is paid.
	PaymentDate *time.Time `json:"payment_date"`
}

// IsPaid reports whether the invoice reached its terminal state.
func (i Invoice) IsPaid() bool {
	return i.PaymentStatus == enums.PaymentStatusPaid
}
