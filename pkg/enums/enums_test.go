package enums

import "testing"

func TestEarSideUnits(t *testing.T) {
	if EarSideLeft.Units() != 1 || EarSideRight.Units() != 1 {
		t.Fatal("unilateral sides consume one unit")
	}
	if EarSideBoth.Units() != 2 {
		t.Fatal("bilateral consumes two units")
	}
}

func TestParseEarSideLegacy(t *testing.T) {
	tests := map[string]EarSide{
		"L":         EarSideLeft,
		"sol":       EarSideLeft,
		" SAĞ ":     EarSideRight,
		"BILATERAL": EarSideBoth,
		"both":      EarSideBoth,
	}
	for raw, want := range tests {
		got, err := ParseEarSideLegacy(raw)
		if err != nil {
			t.Fatalf("ParseEarSideLegacy(%q): %v", raw, err)
		}
		if got != want {
			t.Fatalf("ParseEarSideLegacy(%q) = %s, want %s", raw, got, want)
		}
	}
	if _, err := ParseEarSideLegacy("middle"); err == nil {
		t.Fatal("expected error for unknown side")
	}
}

func TestParseDiscountTypeLegacy(t *testing.T) {
	tests := map[string]DiscountType{
		"":        DiscountTypeNone,
		"%":       DiscountTypePercentage,
		"Yüzde":   DiscountTypePercentage,
		"TUTAR":   DiscountTypeFixed,
		"fixed":   DiscountTypeFixed,
		"percent": DiscountTypePercentage,
	}
	for raw, want := range tests {
		got, err := ParseDiscountTypeLegacy(raw)
		if err != nil {
			t.Fatalf("ParseDiscountTypeLegacy(%q): %v", raw, err)
		}
		if got != want {
			t.Fatalf("ParseDiscountTypeLegacy(%q) = %s, want %s", raw, got, want)
		}
	}
}

func TestMovementTypeDeducts(t *testing.T) {
	deducting := []MovementType{MovementTypeSale, MovementTypeDelivery, MovementTypeLoanerOut}
	for _, m := range deducting {
		if !m.Deducts() {
			t.Fatalf("%s should deduct", m)
		}
	}
	restoring := []MovementType{MovementTypeReturn, MovementTypeLoanerReturn, MovementTypeAdjustment}
	for _, m := range restoring {
		if m.Deducts() {
			t.Fatalf("%s should not deduct", m)
		}
	}
}

func TestAssignmentStatusTerminal(t *testing.T) {
	if AssignmentStatusActive.Terminal() {
		t.Fatal("active is not terminal")
	}
	if !AssignmentStatusCancelled.Terminal() || !AssignmentStatusReturned.Terminal() {
		t.Fatal("cancelled and returned are terminal")
	}
}
