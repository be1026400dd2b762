package enums

import "fmt"

// SaleStatus is the derived payment state of a sale aggregate. It is
// recomputed from assignments and payments, never edited directly.
type SaleStatus string

const (
	SaleStatusPending   SaleStatus = "pending"
	SaleStatusPartial   SaleStatus = "partial"
	SaleStatusPaid      SaleStatus = "paid"
	SaleStatusCompleted SaleStatus = "completed"
	SaleStatusCancelled SaleStatus = "cancelled"
)

var validSaleStatuses = []SaleStatus{
	SaleStatusPending,
	SaleStatusPartial,
	SaleStatusPaid,
	SaleStatusCompleted,
	SaleStatusCancelled,
}

// IsValid reports whether the value is a known SaleStatus.
func (s SaleStatus) IsValid() bool {
	for _, candidate := range validSaleStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSaleStatus converts the raw string to SaleStatus.
func ParseSaleStatus(value string) (SaleStatus, error) {
	for _, candidate := range validSaleStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sale status %q", value)
}
