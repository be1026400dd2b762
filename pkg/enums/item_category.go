package enums

import "fmt"

// ItemCategory groups sale line items for coverage purposes. SGK coverage
// applies only to hearing devices.
type ItemCategory string

const (
	ItemCategoryDevice    ItemCategory = "device"
	ItemCategoryAccessory ItemCategory = "accessory"
	ItemCategoryService   ItemCategory = "service"
)

var validItemCategories = []ItemCategory{
	ItemCategoryDevice,
	ItemCategoryAccessory,
	ItemCategoryService,
}

// IsValid reports whether the value is a known ItemCategory.
func (i ItemCategory) IsValid() bool {
	for _, candidate := range validItemCategories {
		if candidate == i {
			return true
		}
	}
	return false
}

// Covered reports whether SGK coverage applies to this category.
func (i ItemCategory) Covered() bool {
	return i == ItemCategoryDevice
}

// ParseItemCategory converts the raw string to ItemCategory.
func ParseItemCategory(value string) (ItemCategory, error) {
	for _, candidate := range validItemCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid item category %q", value)
}
