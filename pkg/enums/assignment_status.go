package enums

import "fmt"

// AssignmentStatus is the lifecycle state of a device assignment. Assignments
// are never hard-deleted; cancellation and return are status flips with
// compensating stock movements.
type AssignmentStatus string

const (
	AssignmentStatusActive    AssignmentStatus = "active"
	AssignmentStatusCancelled AssignmentStatus = "cancelled"
	AssignmentStatusReturned  AssignmentStatus = "returned"
)

var validAssignmentStatuses = []AssignmentStatus{
	AssignmentStatusActive,
	AssignmentStatusCancelled,
	AssignmentStatusReturned,
}

// IsValid reports whether the value is a known AssignmentStatus.
func (a AssignmentStatus) IsValid() bool {
	for _, candidate := range validAssignmentStatuses {
		if candidate == a {
			return true
		}
	}
	return false
}

// Terminal reports whether the status admits no further transitions.
func (a AssignmentStatus) Terminal() bool {
	return a == AssignmentStatusCancelled || a == AssignmentStatusReturned
}

// ParseAssignmentStatus converts the raw string to AssignmentStatus.
func ParseAssignmentStatus(value string) (AssignmentStatus, error) {
	for _, candidate := range validAssignmentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid assignment status %q", value)
}
