package enums

import "fmt"

// SerialStatus is the allocation state of a tracked serial number. A serial is
// never simultaneously in stock and attached to an assignment or loaner.
type SerialStatus string

const (
	SerialStatusInStock  SerialStatus = "in_stock"
	SerialStatusAssigned SerialStatus = "assigned"
	SerialStatusOnLoan   SerialStatus = "on_loan"
)

var validSerialStatuses = []SerialStatus{
	SerialStatusInStock,
	SerialStatusAssigned,
	SerialStatusOnLoan,
}

// IsValid reports whether the value is a known SerialStatus.
func (s SerialStatus) IsValid() bool {
	for _, candidate := range validSerialStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSerialStatus converts the raw string to SerialStatus.
func ParseSerialStatus(value string) (SerialStatus, error) {
	for _, candidate := range validSerialStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid serial status %q", value)
}
