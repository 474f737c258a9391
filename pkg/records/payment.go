package records

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/billifyhq/billify-backend/pkg/enums"
)

// Payment is one attempt to settle an invoice. Payments are write-once:
// every attempt appends a new record and history is reconstructed by
// ordering PaymentDate per invoice.
type Payment struct {
	ID            string              `json:"id"`
	InvoiceID     string              `json:"invoice_id"`
	Amount        decimal.Decimal     `json:"amount"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	PaymentDate   time.Time           `json:"payment_date"`
}
