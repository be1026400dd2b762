package enums

import (
	"fmt"
	"strings"
)

// DiscountType selects how a line item discount value is interpreted.
type DiscountType string

const (
	DiscountTypeNone       DiscountType = "none"
	DiscountTypePercentage DiscountType = "percentage"
	DiscountTypeFixed      DiscountType = "fixed"
)

var validDiscountTypes = []DiscountType{
	DiscountTypeNone,
	DiscountTypePercentage,
	DiscountTypeFixed,
}

var legacyDiscountTypes = map[string]DiscountType{
	"":        DiscountTypeNone,
	"%":       DiscountTypePercentage,
	"percent": DiscountTypePercentage,
	"yuzde":   DiscountTypePercentage,
	"yüzde":   DiscountTypePercentage,
	"amount":  DiscountTypeFixed,
	"tutar":   DiscountTypeFixed,
	"tl":      DiscountTypeFixed,
}

// String implements fmt.Stringer.
func (d DiscountType) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DiscountType.
func (d DiscountType) IsValid() bool {
	for _, candidate := range validDiscountTypes {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDiscountType converts the raw string to DiscountType.
func ParseDiscountType(value string) (DiscountType, error) {
	for _, candidate := range validDiscountTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid discount type %q", value)
}

// ParseDiscountTypeLegacy additionally accepts the legacy spellings. Used at
// the system boundary only.
func ParseDiscountTypeLegacy(value string) (DiscountType, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if d, ok := legacyDiscountTypes[normalized]; ok {
		return d, nil
	}
	return ParseDiscountType(normalized)
}
