package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/billifyhq/billify-backend/pkg/records"
)

// InvoiceGeneratedSubject builds the subject line for a new-invoice email.
func InvoiceGeneratedSubject(plan records.Subscription) string {
	return fmt.Sprintf("Your Billify %s Invoice has been Generated!", strings.ToUpper(plan.BillingCycle.String()))
}

// InvoiceGeneratedBody builds the body for a new-invoice email, naming the
// plan, cycle, amount, and due date.
func InvoiceGeneratedBody(customer records.Customer, plan records.Subscription, amount decimal.Decimal, dueDate time.Time) string {
	cycleEnd := ""
	if customer.NextBillingDate != nil {
		cycleEnd = customer.NextBillingDate.Format(time.RFC1123)
	}
	return fmt.Sprintf(
		"Dear %s,\n\nYour invoice for your %s %s plan has been generated for the billing cycle of %s and for the amount of %s, and is due on %s!\n\nKindly use our payment API to process the payment.\n\nWe thank you for being our customer and for using our service!",
		customer.Name,
		plan.BillingCycle,
		plan.Name,
		cycleEnd,
		amount.String(),
		dueDate.Format(time.RFC1123),
	)
}
