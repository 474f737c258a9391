package notify

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/billifyhq/billify-backend/pkg/enums"
	"github.com/billifyhq/billify-backend/pkg/records"
)

func TestInvoiceGeneratedSubjectUppercasesCycle(t *testing.T) {
	plan := records.Subscription{BillingCycle: enums.BillingCycleMonthly}
	assert.Equal(t, "Your Billify MONTHLY Invoice has been Generated!", InvoiceGeneratedSubject(plan))

	plan.BillingCycle = enums.BillingCycleYearly
	assert.Equal(t, "Your Billify YEARLY Invoice has been Generated!", InvoiceGeneratedSubject(plan))
}

func TestInvoiceGeneratedBodyNamesCustomerAndAmount(t *testing.T) {
	next := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	customer := records.Customer{Name: "Ada Lovelace", NextBillingDate: &next}
	plan := records.Subscription{Name: "Starter", BillingCycle: enums.BillingCycleMonthly}

	body := InvoiceGeneratedBody(customer, plan, decimal.NewFromInt(49), next)
	assert.Contains(t, body, "Dear Ada Lovelace")
	assert.Contains(t, body, "monthly Starter plan")
	assert.Contains(t, body, "amount of 49")
}
