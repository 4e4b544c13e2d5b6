package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"revue/internal/country"
)

func stripped(id int64, name, manufacturer string, category Category, countries ...country.Code) Stripped {
	return Stripped{
		ProductID:    id,
		Name:         name,
		Manufacturer: manufacturer,
		Category:     category,
		Countries:    countries,
		Status:       StatusAccepted,
	}
}

func TestCountriesDisjoint(t *testing.T) {
	assert.True(t, CountriesDisjoint(
		[]country.Code{country.PL}, []country.Code{country.DE, country.UK}))
	assert.False(t, CountriesDisjoint(
		[]country.Code{country.PL, country.DE}, []country.Code{country.DE}))
	assert.True(t, CountriesDisjoint(nil, []country.Code{country.PL}))
}

func TestFilterLinkable(t *testing.T) {
	products := []Stripped{
		stripped(1, "Washer", "Acme", CategoryDetergent, country.PL),
		stripped(2, "Cube", "Acme", CategoryDishwasherCube, country.UK),
		stripped(3, "Mug", "Mugs Inc", CategoryThermalMug, country.DE),
		stripped(4, "Washer", "Other Co", CategoryDishwasherCube, country.DE),
		stripped(5, "Washer", "Other Co", CategoryThermalMug, country.PL),
	}

	t.Run("empty selection keeps everything", func(t *testing.T) {
		got := FilterLinkable(products, nil)
		assert.Len(t, got, len(products))
	})

	t.Run("same category or manufacturer or disjoint variant", func(t *testing.T) {
		got := FilterLinkable(products, []int64{1})
		ids := make([]int64, 0, len(got))
		for _, p := range got {
			ids = append(ids, p.ProductID)
		}
		// 1: selected itself (same category). 2: same manufacturer.
		// 4: same name, disjoint countries. 5: same name but shares PL, and
		// its category and manufacturer differ from the selection.
		assert.Equal(t, []int64{1, 2, 4}, ids)
	})

	t.Run("selection of unknown id filters everything", func(t *testing.T) {
		got := FilterLinkable(products, []int64{999})
		assert.Empty(t, got)
	})
}

func TestStrip(t *testing.T) {
	p := Product{
		ProductID: 7,
		Name:      "Washer",
		Category:  CategoryDetergent,
		Status:    StatusNew,
		Content: Content{
			Manufacturer:   "Acme",
			Countries:      []country.Code{country.PL},
			LinkedProducts: []int64{3},
		},
	}
	s := Strip(p)
	require.Equal(t, int64(7), s.ProductID)
	assert.Equal(t, "Acme", s.Manufacturer)
	assert.Equal(t, []int64{3}, s.LinkedProducts)
	assert.Equal(t, StatusNew, s.Status)
}
