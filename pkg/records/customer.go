package records

import (
	"time"

	"github.com/billifyhq/billify-backend/pkg/enums"
)

// Customer is a read-only snapshot from the directory service. The billing
// engine never writes this record directly; billing-date advances go back
// through the directory API.
type Customer struct {
	ID                 string                   `json:"id"`
	Name               string                   `json:"name"`
	Email              string                   `json:"email"`
	SubscriptionPlanID string                   `json:"subscription_plan_id"`
	SubscriptionStatus enums.SubscriptionStatus `json:"subscription_status"`
	JoiningDate        *time.Time               `json:"joining_date,omitempty"`
	// NextBillingDate is always set while the subscription is active and
	// decides eligibility for the next billing pass.
	NextBillingDate *time.Time `json:"next_billing_date,omitempty"`
}

// IsActive reports whether the customer should be considered for billing.
func (c Customer) IsActive() bool {
	return c.SubscriptionStatus == enums.SubscriptionStatusActive
}

// IsDue reports whether the customer's next billing date has arrived
// relative to the pass's reference time.
func (c Customer) IsDue(now time.Time) bool {
	if c.NextBillingDate == nil {
		return false
	}
	return !c.NextBillingDate.After(now)
}
