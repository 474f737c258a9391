package enums

import "fmt"

// PaymentMethod is the instrument a payment attempt was made with.
type PaymentMethod string

const (
	PaymentMethodCreditCard PaymentMethod = "Credit Card"
	PaymentMethodPayPal     PaymentMethod = "PayPal"
	PaymentMethodBinance    PaymentMethod = "Binance"
	PaymentMethodBenefitPay PaymentMethod = "BenefitPay"
	PaymentMethodMada       PaymentMethod = "Mada"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodCreditCard,
	PaymentMethodPayPal,
	PaymentMethodBinance,
	PaymentMethodBenefitPay,
	PaymentMethodMada,
}

// String implements fmt.Stringer.
func (p PaymentMethod) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentMethod.
func (p PaymentMethod) IsValid() bool {
	for _, candidate := range validPaymentMethods {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentMethod converts raw input into a PaymentMethod.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	for _, candidate := range validPaymentMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}
