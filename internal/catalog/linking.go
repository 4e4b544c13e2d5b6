package catalog

import "revue/internal/country"

// CountriesDisjoint reports whether none of candidate's countries appear in
// checked. Two regional variants of the same product must cover different
// countries, so a variant sharing any country with the current selection is
// not linkable under the same-name rule.
func CountriesDisjoint(checked, candidate []country.Code) bool {
	for _, c := range candidate {
		for _, seen := range checked {
			if c == seen {
				return false
			}
		}
	}
	return true
}

// FilterLinkable narrows products to the ones still linkable to the current
// selection. With nothing selected every product qualifies. Otherwise a
// product stays when it shares a category with the selection, shares a
// manufacturer, or carries a selected name while covering only countries
// the selection does not.
func FilterLinkable(products []Stripped, checkedIDs []int64) []Stripped {
	if len(checkedIDs) == 0 {
		return products
	}

	checkedCategories := make(map[Category]struct{})
	checkedManufacturers := make(map[string]struct{})
	checkedNames := make(map[string]struct{})
	var checkedCountries []country.Code
	seenCountry := make(map[country.Code]struct{})

	for _, p := range products {
		if !containsID(checkedIDs, p.ProductID) {
			continue
		}
		checkedCategories[p.Category] = struct{}{}
		checkedManufacturers[p.Manufacturer] = struct{}{}
		checkedNames[p.Name] = struct{}{}
		for _, c := range p.Countries {
			if _, ok := seenCountry[c]; !ok {
				seenCountry[c] = struct{}{}
				checkedCountries = append(checkedCountries, c)
			}
		}
	}

	out := make([]Stripped, 0, len(products))
	for _, p := range products {
		_, sameCategory := checkedCategories[p.Category]
		_, sameManufacturer := checkedManufacturers[p.Manufacturer]
		_, sameName := checkedNames[p.Name]
		if sameCategory || sameManufacturer ||
			(sameName && CountriesDisjoint(checkedCountries, p.Countries)) {
			out = append(out, p)
		}
	}
	return out
}
