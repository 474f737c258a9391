package payments

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/billifyhq/billify-backend/pkg/enums"
)

// AutoApproveGateway settles every charge. It stands in for a real
// acquirer, which integrates behind the Gateway interface.
type AutoApproveGateway struct{}

// NewAutoApproveGateway returns the default gateway used outside tests.
func NewAutoApproveGateway() *AutoApproveGateway {
	return &AutoApproveGateway{}
}

// Charge implements Gateway.
func (AutoApproveGateway) Charge(ctx context.Context, method enums.PaymentMethod, amount decimal.Decimal) (enums.PaymentStatus, error) {
	return enums.PaymentStatusPaid, nil
}
