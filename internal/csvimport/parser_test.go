package csvimport

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"revue/internal/country"
	"revue/internal/review"
)

const fullHeader = "product_name;product_origin;rating;content;category;advantages;disadvantages;language;doubleQuality;verified;product_source"

func buildFile(rows ...string) []byte {
	return []byte(fullHeader + "\n" + strings.Join(rows, "\n") + "\n")
}

func TestParseFullRow(t *testing.T) {
	data := buildFile(
		"Product 1;PL,DE;7.5;Solid stuff;positive;cheap;smelly;PL;true;yes;shop-a",
	)
	res, err := (&Parser{}).Parse(data)
	require.NoError(t, err)
	require.Len(t, res.Candidates, 1)
	assert.Empty(t, res.Unrecognized)

	c := res.Candidates[0]
	assert.Equal(t, "Product 1", c.ProductName)
	assert.Equal(t, []country.Code{country.PL, country.DE}, c.OriginCountries)
	assert.Equal(t, 7.5, c.Rating)
	assert.Equal(t, "Solid stuff", c.Description)
	assert.Equal(t, review.CategoryPositive, c.Category)
	assert.Equal(t, "cheap", c.Advantages)
	assert.Equal(t, "smelly", c.Disadvantages)
	assert.Equal(t, "PL", c.Language)
	assert.True(t, c.DoubleQuality)
	require.NotNil(t, c.Verified)
	assert.True(t, *c.Verified)
	assert.Equal(t, "shop-a", c.Source)
}

func TestParseCountrySynonyms(t *testing.T) {
	data := buildFile(
		"Product 1;GB;5;;;;;;;;",
		"Product 2;DEU,gb;5;;;;;;;;",
	)
	res, err := (&Parser{}).Parse(data)
	require.NoError(t, err)
	require.Len(t, res.Candidates, 2)

	assert.Equal(t, []country.Code{country.UK}, res.Candidates[0].OriginCountries)
	assert.Equal(t, []country.Code{country.DE, country.UK}, res.Candidates[1].OriginCountries)
	for _, c := range res.Candidates {
		for _, code := range c.OriginCountries {
			assert.True(t, country.Valid(code), "raw synonym leaked: %s", code)
		}
	}
}

func TestParseLanguageSynonym(t *testing.T) {
	data := buildFile(
		"A;PL;5;;;;;DEU;;;",
		"B;PL;5;;;;;deu;;;",
		"C;PL;5;;;;;FR;;;",
	)
	res, err := (&Parser{}).Parse(data)
	require.NoError(t, err)
	require.Len(t, res.Candidates, 3)
	assert.Equal(t, "DE", res.Candidates[0].Language)
	// Only the exact uppercase token is folded.
	assert.Equal(t, "deu", res.Candidates[1].Language)
	assert.Equal(t, "FR", res.Candidates[2].Language)
}

func TestParseBooleanFields(t *testing.T) {
	data := buildFile(
		"A;PL;5;;;;;;yes;no;",
		"B;PL;5;;;;;;0;1;",
		"C;PL;5;;;;;;;;",
		"D;PL;5;;;;;;maybe;maybe;",
	)
	res, err := (&Parser{}).Parse(data)
	require.NoError(t, err)
	require.Len(t, res.Candidates, 4)

	a, b, c, d := res.Candidates[0], res.Candidates[1], res.Candidates[2], res.Candidates[3]
	assert.True(t, a.DoubleQuality)
	require.NotNil(t, a.Verified)
	assert.False(t, *a.Verified)

	assert.False(t, b.DoubleQuality)
	require.NotNil(t, b.Verified)
	assert.True(t, *b.Verified)

	// Absent double quality collapses to false while verified stays unset.
	assert.False(t, c.DoubleQuality)
	assert.Nil(t, c.Verified)

	// Unparseable tokens behave like false for double quality and unset for
	// verified.
	assert.False(t, d.DoubleQuality)
	assert.Nil(t, d.Verified)
}

func TestParseInvalidCategoryDropped(t *testing.T) {
	data := buildFile("A;PL;5;;great;;;;;;")
	res, err := (&Parser{}).Parse(data)
	require.NoError(t, err)
	require.Len(t, res.Candidates, 1)
	assert.Empty(t, res.Candidates[0].Category)
}

func TestParseRowValidationOrder(t *testing.T) {
	data := buildFile(
		";PL;5;;;;;;;;",
		"B;;5;;;;;;;;",
		"C;PL;;;;;;;;;",
		"D;PL;high;;;;;;;;",
		"E;PL;5;;;;;;;;",
	)
	var kinds []ErrorKind
	p := &Parser{OnError: func(kind ErrorKind, row RawRow) {
		if row != nil {
			kinds = append(kinds, kind)
		}
	}}
	res, err := p.Parse(data)
	require.NoError(t, err)
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, "E", res.Candidates[0].ProductName)
	assert.Equal(t, []ErrorKind{ErrNoProductName, ErrNoCountry, ErrNoRating, ErrNoRating}, kinds)
	assert.Len(t, res.Unrecognized, 4)
}

func TestParseUnknownCountriesKeepRow(t *testing.T) {
	// A non-empty origin of only unknown tokens passes validation with an
	// empty country list; the matcher later leaves it unmatched.
	data := buildFile("A;XX,YY;5;;;;;;;;")
	res, err := (&Parser{}).Parse(data)
	require.NoError(t, err)
	require.Len(t, res.Candidates, 1)
	assert.Empty(t, res.Candidates[0].OriginCountries)
}

func TestParseDamagedRow(t *testing.T) {
	data := []byte("product_name;product_origin;rating\n" +
		"A;PL;5;extra;cells\n" +
		"B;PL;5\n")
	var damaged []RawRow
	p := &Parser{OnError: func(kind ErrorKind, row RawRow) {
		if kind == ErrDamagedRow {
			damaged = append(damaged, row)
		}
	}}
	res, err := p.Parse(data)
	require.NoError(t, err)
	require.Len(t, res.Candidates, 1)
	require.Len(t, res.Unrecognized, 1)
	assert.Equal(t, ErrDamagedRow, res.Unrecognized[0].Kind)

	require.Len(t, damaged, 1)
	_, ok := damaged[0].(PositionalRow)
	assert.True(t, ok, "damaged rows keep their positional shape")
}

func TestParseShortRowPadded(t *testing.T) {
	data := []byte("product_name;product_origin;rating;language\nA;PL;5\n")
	res, err := (&Parser{}).Parse(data)
	require.NoError(t, err)
	require.Len(t, res.Candidates, 1)
	assert.Empty(t, res.Candidates[0].Language)
}

func TestParseHeaderOnly(t *testing.T) {
	var fileErr bool
	var completed [][]Candidate
	p := &Parser{
		OnError: func(kind ErrorKind, row RawRow) {
			if kind == ErrNoHeader && row == nil {
				fileErr = true
			}
		},
		OnComplete: func(candidates []Candidate) {
			completed = append(completed, candidates)
		},
	}
	res, err := p.Parse([]byte(fullHeader + "\n"))
	require.Error(t, err)

	var rowErr *RowError
	require.True(t, errors.As(err, &rowErr))
	assert.Equal(t, ErrNoHeader, rowErr.Kind)
	assert.Nil(t, rowErr.Row)
	assert.Empty(t, res.Candidates)
	assert.True(t, fileErr)
	require.Len(t, completed, 1)
	assert.Nil(t, completed[0])
}

func TestParseAllRowsRejected(t *testing.T) {
	// Rows exist but none survives validation; the file-level outcome is the
	// same as having no usable header at all.
	data := buildFile(";PL;5;;;;;;;;", "B;;5;;;;;;;;")
	_, err := (&Parser{}).Parse(data)
	var rowErr *RowError
	require.True(t, errors.As(err, &rowErr))
	assert.Equal(t, ErrNoHeader, rowErr.Kind)
}

func TestParseEmptyFile(t *testing.T) {
	_, err := (&Parser{}).Parse(nil)
	var rowErr *RowError
	require.True(t, errors.As(err, &rowErr))
	assert.Equal(t, ErrNoHeader, rowErr.Kind)
}

func TestParseDelimiterDetection(t *testing.T) {
	cases := map[string]string{
		"semicolon":  "product_name;product_origin;rating\nA;PL;5\n",
		"pipe":       "product_name|product_origin|rating\nA|PL|5\n",
		"comma":      "product_name,product_origin,rating\nA,PL,5\n",
		"tab":        "product_name\tproduct_origin\trating\nA\tPL\t5\n",
		"record sep": "product_name\x1eproduct_origin\x1erating\nA\x1ePL\x1e5\n",
		"unit sep":   "product_name\x1fproduct_origin\x1frating\nA\x1fPL\x1f5\n",
	}
	for name, file := range cases {
		t.Run(name, func(t *testing.T) {
			res, err := (&Parser{}).Parse([]byte(file))
			require.NoError(t, err)
			require.Len(t, res.Candidates, 1)
			assert.Equal(t, "A", res.Candidates[0].ProductName)
			assert.Equal(t, 5.0, res.Candidates[0].Rating)
		})
	}
}

func TestParseSemicolonBeatsComma(t *testing.T) {
	// Both delimiters occur; the higher-priority semicolon wins and commas
	// stay inside the cells.
	data := []byte("product_name;product_origin;rating\nA;PL,DE;5\n")
	res, err := (&Parser{}).Parse(data)
	require.NoError(t, err)
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, []country.Code{country.PL, country.DE}, res.Candidates[0].OriginCountries)
}

func TestParseStripsBOM(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, buildFile("A;PL;5;;;;;;;;")...)
	res, err := (&Parser{}).Parse(data)
	require.NoError(t, err)
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, "A", res.Candidates[0].ProductName)
}

func TestParseIdempotent(t *testing.T) {
	data := buildFile(
		"Product 1;PL,DE;7.5;good;positive;a;b;PL;true;yes;src",
		"Product 2;GB;2;bad;negative;;;EN;;no;src",
		";PL;5;;;;;;;;",
	)
	first, err1 := (&Parser{}).Parse(data)
	second, err2 := (&Parser{}).Parse(data)
	require.NoError(t, err1)
	require.NoError(t, err2)
	if diff := cmp.Diff(first.Candidates, second.Candidates); diff != "" {
		t.Fatalf("repeated parse diverged (-first +second):\n%s", diff)
	}
	assert.Equal(t, len(first.Unrecognized), len(second.Unrecognized))
}

func TestParseHookOrder(t *testing.T) {
	var events []string
	p := &Parser{
		BeforeLoad: func() { events = append(events, "before") },
		OnError: func(kind ErrorKind, row RawRow) {
			events = append(events, "error:"+string(kind))
		},
		OnComplete: func([]Candidate) { events = append(events, "complete") },
	}
	_, err := p.Parse(buildFile("A;PL;5;;;;;;;;", ";PL;5;;;;;;;;"))
	require.NoError(t, err)
	assert.Equal(t, []string{"before", "error:NO_PRODUCT_NAME", "complete"}, events)
}
