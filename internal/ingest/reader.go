package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ANIKETSHETTY47/meter-data-loader/internal/domain"
)

// ErrNoHeader is returned for an input with no header row.
var ErrNoHeader = errors.New("no header row")

// Row is one data row of a meter export.
type Row struct {
	Line      int
	MeterName string
	// Values is aligned with domain.Columns; nil is NULL.
	Values []any
}

// ParseError is a data row that could not be split into fields. The reader
// remains usable after returning one.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string { return fmt.Sprintf("line %d: %v", e.Line, e.Err) }
func (e *ParseError) Unwrap() error { return e.Err }

// Reader turns a delimited meter export into rows. The first record is the
// header; fields are matched to reading columns by header text.
type Reader struct {
	csv       *csv.Reader
	fields    []int
	meterCol  int
	meterName string
	unknown   []string
}

// NewReader reads the header from r. meterColumn names the header holding
// the meter name; when the header has no such column every row is
// attributed to fallbackMeter.
func NewReader(r io.Reader, comma rune, meterColumn, fallbackMeter string) (*Reader, error) {
	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	rd := &Reader{
		csv:       cr,
		fields:    make([]int, len(header)),
		meterCol:  -1,
		meterName: fallbackMeter,
	}
	for i, h := range header {
		rd.fields[i] = -1
		name := strings.TrimSpace(h)
		if meterColumn != "" && name == meterColumn {
			rd.meterCol = i
			continue
		}
		if col, ok := domain.ColumnIndex(name); ok {
			rd.fields[i] = col
			continue
		}
		rd.unknown = append(rd.unknown, name)
	}
	return rd, nil
}

// Unknown lists header fields that match no reading column. Their values are
// dropped.
func (r *Reader) Unknown() []string { return r.unknown }

// HasMeterColumn reports whether meter names come from the rows rather than
// the fallback name.
func (r *Reader) HasMeterColumn() bool { return r.meterCol >= 0 }

// Next returns the next row, a *ParseError for a malformed row, or io.EOF.
func (r *Reader) Next() (Row, error) {
	rec, err := r.csv.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Row{}, io.EOF
		}
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			return Row{Line: pe.StartLine}, &ParseError{Line: pe.StartLine, Err: pe.Err}
		}
		return Row{}, err
	}

	line, _ := r.csv.FieldPos(0)
	row := Row{
		Line:      line,
		MeterName: r.meterName,
		Values:    make([]any, len(domain.Columns)),
	}
	for i, field := range rec {
		if i == r.meterCol {
			row.MeterName = strings.TrimSpace(field)
			continue
		}
		col := r.fields[i]
		if col < 0 {
			continue
		}
		if v := strings.TrimSpace(field); v != "" {
			row.Values[col] = v
		}
	}
	return row, nil
}
