package csvimport

import "strconv"

// UnmatchedKey is the sentinel group for candidates without a resolved
// product.
const UnmatchedKey = "none"

// Grouping buckets links by resolved product id. Keys preserve first-seen
// order so a later import walks the groups deterministically. A grouping is
// rebuilt from scratch for every match result; it is never updated
// incrementally.
type Grouping struct {
	Keys   []string
	Groups map[string][]Link
}

// GroupByProduct buckets the links. The group key is the product id as a
// decimal string, or UnmatchedKey for unresolved candidates.
func GroupByProduct(links []Link) Grouping {
	g := Grouping{Groups: make(map[string][]Link)}
	for _, link := range links {
		key := UnmatchedKey
		if link.Product != nil {
			key = strconv.FormatInt(link.Product.ProductID, 10)
		}
		if _, ok := g.Groups[key]; !ok {
			g.Keys = append(g.Keys, key)
		}
		g.Groups[key] = append(g.Groups[key], link)
	}
	return g
}

// Total is the number of grouped candidates across all buckets, the
// unmatched one included.
func (g Grouping) Total() int {
	n := 0
	for _, links := range g.Groups {
		n += len(links)
	}
	return n
}

// UnmatchedCount is the size of the unmatched bucket.
func (g Grouping) UnmatchedCount() int {
	return len(g.Groups[UnmatchedKey])
}

// ImportableCount is what the operator sees on the import button: every
// grouped candidate except the unmatched ones.
func (g Grouping) ImportableCount() int {
	return g.Total() - g.UnmatchedCount()
}
