// Package csvimport implements the review bulk-import pipeline: parsing an
// uploaded delimited file into candidate reviews, matching candidates to
// catalog products, grouping them per product and committing the matched
// groups as accepted reviews.
package csvimport

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"strconv"
	"strings"

	"revue/internal/country"
	"revue/internal/review"
)

// Column names the parser recognizes in the header row.
const (
	colProductName   = "product_name"
	colProductOrigin = "product_origin"
	colRating        = "rating"
	colContent       = "content"
	colCategory      = "category"
	colAdvantages    = "advantages"
	colDisadvantages = "disadvantages"
	colLanguage      = "language"
	colDoubleQuality = "doubleQuality"
	colVerified      = "verified"
	colSource        = "product_source"
)

const (
	recordSep = '\x1e'
	unitSep   = '\x1f'
)

// delimiterGuesses is the fixed priority order for delimiter detection.
var delimiterGuesses = []rune{';', '|', recordSep, unitSep, ',', '\t'}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Parser turns raw delimited bytes into candidates and unrecognized rows.
// The hooks mirror the upload flow: BeforeLoad fires once before parsing
// begins, OnError fires per rejected row (and once with a nil row for the
// file-level NO_HEADER case), OnComplete fires once with the final
// candidate list even when it is empty. All hooks are optional.
type Parser struct {
	BeforeLoad func()
	OnError    func(kind ErrorKind, row RawRow)
	OnComplete func(candidates []Candidate)
}

// Result is the outcome of parsing one file.
type Result struct {
	Candidates   []Candidate
	Unrecognized []RowError
}

// Parse reads the whole file. Row failures are independent and non-fatal:
// the failing row lands in Unrecognized and parsing continues. The returned
// error is non-nil only for the file-level NO_HEADER condition, i.e. when
// not a single candidate could be produced.
func (p *Parser) Parse(data []byte) (Result, error) {
	if p.BeforeLoad != nil {
		p.BeforeLoad()
	}

	var res Result
	data = bytes.TrimPrefix(data, utf8BOM)
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = detectDelimiter(data)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		return res, p.finish(res)
	}

	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			break
		}
		raw := shapeRow(header, rec)
		keyed, ok := raw.(KeyedRow)
		if !ok {
			res.Unrecognized = append(res.Unrecognized, p.reject(ErrDamagedRow, raw))
			continue
		}
		cand, rowErr := p.parseRow(keyed)
		if rowErr != nil {
			res.Unrecognized = append(res.Unrecognized, *rowErr)
			continue
		}
		res.Candidates = append(res.Candidates, cand)
	}
	return res, p.finish(res)
}

// finish fires the completion hooks and decides the file-level outcome.
func (p *Parser) finish(res Result) error {
	if len(res.Candidates) == 0 {
		if p.OnError != nil {
			p.OnError(ErrNoHeader, nil)
		}
		if p.OnComplete != nil {
			p.OnComplete(nil)
		}
		return &RowError{Kind: ErrNoHeader}
	}
	if p.OnComplete != nil {
		p.OnComplete(res.Candidates)
	}
	return nil
}

func (p *Parser) reject(kind ErrorKind, row RawRow) RowError {
	if p.OnError != nil {
		p.OnError(kind, row)
	}
	return RowError{Kind: kind, Row: row}
}

// shapeRow keys a record by the header. A record with more cells than the
// header has no key/value interpretation and stays positional; a short
// record is padded with empty cells.
func shapeRow(header, rec []string) RawRow {
	if len(rec) > len(header) {
		return PositionalRow(rec)
	}
	row := make(KeyedRow, len(header))
	for i, h := range header {
		if i < len(rec) {
			row[h] = rec[i]
		} else {
			row[h] = ""
		}
	}
	return row
}

// parseRow validates one keyed row. The checks run in a fixed order and the
// first failure wins; later fields are not inspected.
func (p *Parser) parseRow(row KeyedRow) (Candidate, *RowError) {
	if row[colProductName] == "" {
		e := p.reject(ErrNoProductName, row)
		return Candidate{}, &e
	}
	if row[colProductOrigin] == "" {
		e := p.reject(ErrNoCountry, row)
		return Candidate{}, &e
	}
	if row[colRating] == "" {
		e := p.reject(ErrNoRating, row)
		return Candidate{}, &e
	}
	rating, err := strconv.ParseFloat(strings.TrimSpace(row[colRating]), 64)
	if err != nil {
		e := p.reject(ErrNoRating, row)
		return Candidate{}, &e
	}

	cand := Candidate{
		ProductName:     row[colProductName],
		OriginCountries: country.ParseList(row[colProductOrigin]),
		Rating:          rating,
		Description:     row[colContent],
		Advantages:      row[colAdvantages],
		Disadvantages:   row[colDisadvantages],
		Source:          row[colSource],
	}

	// Cosmetically invalid enum values are dropped, not fatal.
	if review.ValidCategory(row[colCategory]) {
		cand.Category = review.Category(row[colCategory])
	}

	// Language passes through unchanged except for the exact DEU synonym.
	if row[colLanguage] == "DEU" {
		cand.Language = "DE"
	} else {
		cand.Language = row[colLanguage]
	}

	// An absent double-quality token means false, never unset. Verified
	// keeps the three-state outcome: absent and unparseable both leave it
	// unset. The asymmetry is deliberate.
	if row[colDoubleQuality] != "" {
		v, _ := parseBool(row[colDoubleQuality])
		cand.DoubleQuality = v
	}
	if v, ok := parseBool(row[colVerified]); ok {
		cand.Verified = &v
	}

	return cand, nil
}

// parseBool maps the tri-state token vocabulary. ok is false for anything
// outside the vocabulary, including the empty string.
func parseBool(v string) (value, ok bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "yes", "1":
		return true, true
	case "false", "no", "0":
		return false, true
	}
	return false, false
}

// detectDelimiter tries the guesses in priority order and returns the first
// one that splits the header line into more than one field. A file no guess
// fits falls back to the highest-priority delimiter; its rows will fail
// validation and surface through the normal error path.
func detectDelimiter(data []byte) rune {
	line := headerLine(data)
	for _, d := range delimiterGuesses {
		r := csv.NewReader(strings.NewReader(line))
		r.Comma = d
		r.LazyQuotes = true
		fields, err := r.Read()
		if err == nil && len(fields) > 1 {
			return d
		}
	}
	return delimiterGuesses[0]
}

func headerLine(data []byte) string {
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		data = data[:i]
	}
	return strings.TrimRight(string(data), "\r")
}
