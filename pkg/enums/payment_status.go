package enums

import "fmt"

// PaymentStatus marks whether a payment record still counts toward a sale.
// Voided payments stay on file for the audit trail.
type PaymentStatus string

const (
	PaymentStatusActive PaymentStatus = "active"
	PaymentStatusVoid   PaymentStatus = "void"
)

var validPaymentStatuses = []PaymentStatus{
	PaymentStatusActive,
	PaymentStatusVoid,
}

// IsValid reports whether the value is a known PaymentStatus.
func (p PaymentStatus) IsValid() bool {
	for _, candidate := range validPaymentStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentStatus converts the raw string to PaymentStatus.
func ParsePaymentStatus(value string) (PaymentStatus, error) {
	for _, candidate := range validPaymentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment status %q", value)
}
