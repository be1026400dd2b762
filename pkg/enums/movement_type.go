package enums

import "fmt"

// MovementType describes the allowed values for the `movement_type` column in
// stock_movements.
type MovementType string

const (
	MovementTypeSale         MovementType = "sale"
	MovementTypeReturn       MovementType = "return"
	MovementTypeDelivery     MovementType = "delivery"
	MovementTypeLoanerOut    MovementType = "loaner_out"
	MovementTypeLoanerReturn MovementType = "loaner_return"
	MovementTypeAdjustment   MovementType = "adjustment"
)

var validMovementTypes = []MovementType{
	MovementTypeSale,
	MovementTypeReturn,
	MovementTypeDelivery,
	MovementTypeLoanerOut,
	MovementTypeLoanerReturn,
	MovementTypeAdjustment,
}

// IsValid reports whether the value matches the canonical movement type enum.
func (m MovementType) IsValid() bool {
	for _, candidate := range validMovementTypes {
		if candidate == m {
			return true
		}
	}
	return false
}

// Deducts reports whether the movement type removes units from stock.
func (m MovementType) Deducts() bool {
	switch m {
	case MovementTypeSale, MovementTypeDelivery, MovementTypeLoanerOut:
		return true
	}
	return false
}

// Loaner reports whether the movement type belongs to the loaner cycle.
func (m MovementType) Loaner() bool {
	return m == MovementTypeLoanerOut || m == MovementTypeLoanerReturn
}

// ParseMovementType converts the raw string to MovementType.
func ParseMovementType(value string) (MovementType, error) {
	for _, candidate := range validMovementTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid movement type %q", value)
}
