// Package catalog holds the product model and its sqlite-backed store.
//
// Products carry a relational core (id, name, category, status) plus a JSON
// content column for the variable part: manufacturer, media URL,
// description, regional countries, linked product ids and the ordered
// feature list that reviews are graded against.
package catalog

import "revue/internal/country"

// Category is the product type bucket.
type Category string

const (
	CategoryDetergent      Category = "DETERGENT"
	CategoryDishwasherCube Category = "DISHWASHER_CUBE"
	CategoryThermalMug     Category = "THERMAL_MUG"
)

// AllCategories returns the known categories in display order.
func AllCategories() []Category {
	return []Category{CategoryDetergent, CategoryDishwasherCube, CategoryThermalMug}
}

// ValidCategory reports whether c is a known category.
func ValidCategory(c Category) bool {
	switch c {
	case CategoryDetergent, CategoryDishwasherCube, CategoryThermalMug:
		return true
	}
	return false
}

// Status is the catalog moderation state. User-offered products start as
// NEW and are accepted or rejected by an admin.
type Status string

const (
	StatusNew      Status = "NEW"
	StatusAccepted Status = "ACCEPTED"
	StatusRejected Status = "REJECTED"
)

// ValidStatus reports whether s is a known status.
func ValidStatus(s Status) bool {
	switch s {
	case StatusNew, StatusAccepted, StatusRejected:
		return true
	}
	return false
}

// Content is the JSON body of a product.
type Content struct {
	Manufacturer   string         `json:"manufacturer"`
	Media          string         `json:"media"`
	Description    string         `json:"description"`
	Countries      []country.Code `json:"countries"`
	LinkedProducts []int64        `json:"linked_products"`
	FeaturesList   []string       `json:"features_list"`
}

// Product is one stored catalog row.
type Product struct {
	ProductID int64    `json:"productId"`
	Name      string   `json:"name"`
	Category  Category `json:"category"`
	Status    Status   `json:"status"`
	Content   Content  `json:"content"`
}

// Stripped is the flattened shape used by the admin linking screen.
type Stripped struct {
	ProductID      int64          `json:"productId"`
	Name           string         `json:"name"`
	Category       Category       `json:"category"`
	Countries      []country.Code `json:"countries"`
	LinkedProducts []int64        `json:"linkedProducts"`
	Status         Status         `json:"status"`
	Manufacturer   string         `json:"manufacturer"`
}

// Strip flattens a product for the linking screen.
func Strip(p Product) Stripped {
	return Stripped{
		ProductID:      p.ProductID,
		Name:           p.Name,
		Category:       p.Category,
		Countries:      p.Content.Countries,
		LinkedProducts: p.Content.LinkedProducts,
		Status:         p.Status,
		Manufacturer:   p.Content.Manufacturer,
	}
}
