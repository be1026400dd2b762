package enums

import (
	"fmt"
	"strings"
)

// EarSide is the placement of a device assignment. Bilateral fittings consume
// two physical units.
type EarSide string

const (
	EarSideLeft  EarSide = "left"
	EarSideRight EarSide = "right"
	EarSideBoth  EarSide = "both"
)

var validEarSides = []EarSide{
	EarSideLeft,
	EarSideRight,
	EarSideBoth,
}

// legacyEarSides maps the free-form values the previous system stored. Applied
// only when ingesting external payloads; internal code never sees these.
var legacyEarSides = map[string]EarSide{
	"l":         EarSideLeft,
	"left":      EarSideLeft,
	"sol":       EarSideLeft,
	"r":         EarSideRight,
	"right":     EarSideRight,
	"sag":       EarSideRight,
	"sağ":       EarSideRight,
	"b":         EarSideBoth,
	"both":      EarSideBoth,
	"bilateral": EarSideBoth,
	"cift":      EarSideBoth,
	"çift":      EarSideBoth,
}

// String implements fmt.Stringer.
func (e EarSide) String() string {
	return string(e)
}

// IsValid reports whether the value is a known EarSide.
func (e EarSide) IsValid() bool {
	for _, candidate := range validEarSides {
		if candidate == e {
			return true
		}
	}
	return false
}

// Units returns how many physical units this placement consumes.
func (e EarSide) Units() int {
	if e == EarSideBoth {
		return 2
	}
	return 1
}

// ParseEarSide converts the raw string to EarSide.
func ParseEarSide(value string) (EarSide, error) {
	for _, candidate := range validEarSides {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ear side %q", value)
}

// ParseEarSideLegacy additionally accepts the legacy spellings. Used at the
// system boundary only.
func ParseEarSideLegacy(value string) (EarSide, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if side, ok := legacyEarSides[normalized]; ok {
		return side, nil
	}
	return ParseEarSide(normalized)
}
