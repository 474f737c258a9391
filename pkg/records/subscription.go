package records

import (
	"github.com/shopspring/decimal"

	"github.com/billifyhq/billify-backend/pkg/enums"
)

// Subscription is a billing plan. Reference data owned by the directory
// service; immutable from the billing engine's perspective.
type Subscription struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	BillingCycle enums.BillingCycle `json:"billing_cycle"`
	Price        decimal.Decimal    `json:"price"`
	Status       enums.PlanStatus   `json:"status"`
}
