package csvimport

import (
	"context"

	"revue/internal/catalog"
	"revue/internal/country"
)

// ProductDirectory is the catalog boundary the matcher talks to. It must
// support one batch lookup for a whole upload rather than a query per row.
type ProductDirectory interface {
	CheckExistence(ctx context.Context, pairs []catalog.ExistenceQuery) ([]catalog.Product, error)
}

// Link associates one candidate with at most one resolved product. Product
// is nil for candidates nothing in the catalog answers.
type Link struct {
	Product   *catalog.Product
	Candidate Candidate
}

// ExistenceQueries collects the distinct (name, countries) pairs of a
// candidate batch, preserving first-seen order.
func ExistenceQueries(candidates []Candidate) []catalog.ExistenceQuery {
	seen := make(map[string]struct{}, len(candidates))
	out := make([]catalog.ExistenceQuery, 0, len(candidates))
	for _, c := range candidates {
		key := c.ProductName
		for _, code := range c.OriginCountries {
			key += "\x00" + string(code)
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, catalog.ExistenceQuery{
			Name:      c.ProductName,
			Countries: c.OriginCountries,
		})
	}
	return out
}

// MatchProducts resolves every candidate against the given catalog slice.
// A product matches when its name equals the candidate's product name and
// the two country sets overlap in both directions. When several products
// qualify, the first one in catalog iteration order wins; there is no
// further tie-break. Candidates without a match get a nil product.
func MatchProducts(candidates []Candidate, products []catalog.Product) []Link {
	links := make([]Link, 0, len(candidates))
	for _, cand := range candidates {
		links = append(links, Link{
			Product:   findMatch(cand, products),
			Candidate: cand,
		})
	}
	return links
}

func findMatch(cand Candidate, products []catalog.Product) *catalog.Product {
	for i := range products {
		p := &products[i]
		sameName := p.Name == cand.ProductName
		productHasAny := country.Overlap(p.Content.Countries, cand.OriginCountries)
		candidateHasAny := country.Overlap(cand.OriginCountries, p.Content.Countries)
		if sameName && productHasAny && candidateHasAny {
			return p
		}
	}
	return nil
}

// Match runs the batch lookup and the per-candidate resolution in one step.
func Match(ctx context.Context, dir ProductDirectory, candidates []Candidate) ([]Link, error) {
	products, err := dir.CheckExistence(ctx, ExistenceQueries(candidates))
	if err != nil {
		return nil, err
	}
	return MatchProducts(candidates, products), nil
}
