package enums

import (
	"fmt"
	"strings"
)

// DeliveryStatus tracks whether the assigned device has been handed over.
type DeliveryStatus string

const (
	DeliveryStatusPending   DeliveryStatus = "pending"
	DeliveryStatusDelivered DeliveryStatus = "delivered"
)

var validDeliveryStatuses = []DeliveryStatus{
	DeliveryStatusPending,
	DeliveryStatusDelivered,
}

var legacyDeliveryStatuses = map[string]DeliveryStatus{
	"0":             DeliveryStatusPending,
	"false":         DeliveryStatusPending,
	"bekliyor":      DeliveryStatusPending,
	"1":             DeliveryStatusDelivered,
	"true":          DeliveryStatusDelivered,
	"teslim":        DeliveryStatusDelivered,
	"teslim edildi": DeliveryStatusDelivered,
}

// IsValid reports whether the value is a known DeliveryStatus.
func (d DeliveryStatus) IsValid() bool {
	for _, candidate := range validDeliveryStatuses {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDeliveryStatus converts the raw string to DeliveryStatus.
func ParseDeliveryStatus(value string) (DeliveryStatus, error) {
	for _, candidate := range validDeliveryStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid delivery status %q", value)
}

// ParseDeliveryStatusLegacy additionally accepts the legacy spellings. Used at
// the system boundary only.
func ParseDeliveryStatusLegacy(value string) (DeliveryStatus, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if d, ok := legacyDeliveryStatuses[normalized]; ok {
		return d, nil
	}
	return ParseDeliveryStatus(normalized)
}
