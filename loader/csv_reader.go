package loader

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// RawRow is one data row keyed by its raw header name. Values are
// trimmed but otherwise untouched.
type RawRow map[string]string

// CSVReader streams an appointments CSV and emits RawRow records one CSV
// row at a time. The first row is the header.
type CSVReader struct {
	file    *os.File // nil when reading from a caller-owned io.Reader
	csv     *csv.Reader
	rowNum  int64
	headers []string
}

// NewCSVReader opens path and reads its header row.
func NewCSVReader(path string) (*CSVReader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	r, err := NewReader(file)
	if err != nil {
		file.Close()
		return nil, err
	}
	r.file = file
	return r, nil
}

// NewReader wraps an arbitrary reader. The caller keeps ownership of in.
func NewReader(in io.Reader) (*CSVReader, error) {
	bufReader := bufio.NewReaderSize(in, 256*1024)

	// Skip UTF-8 BOM if present
	bom, err := bufReader.Peek(3)
	if err == nil && len(bom) >= 3 && bom[0] == 0xEF && bom[1] == 0xBB && bom[2] == 0xBF {
		bufReader.Discard(3)
	}

	reader := csv.NewReader(bufReader)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	r := &CSVReader{csv: reader}
	if err := r.readHeaders(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *CSVReader) readHeaders() error {
	headerRow, err := r.csv.Read()
	if err != nil {
		return fmt.Errorf("read header row: %w", err)
	}
	r.rowNum++

	r.headers = make([]string, len(headerRow))
	for i, h := range headerRow {
		r.headers[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
	return nil
}

// Headers returns the trimmed raw header names in file order.
func (r *CSVReader) Headers() []string {
	return r.headers
}

// CheckSchema reports the first required column that no header maps to.
func (r *CSVReader) CheckSchema() error {
	return CheckColumns(r.headers)
}

// Next returns the next non-empty data row, or nil, io.EOF when done.
// Short rows carry their trailing columns as empty values, so every
// row has exactly the header's keys.
func (r *CSVReader) Next() (RawRow, error) {
	for {
		row, err := r.csv.Read()
		if err != nil {
			return nil, err
		}
		r.rowNum++

		// Skip empty rows
		if len(row) == 0 || (len(row) == 1 && row[0] == "") {
			continue
		}

		raw := make(RawRow, len(r.headers))
		for i, h := range r.headers {
			if i >= len(row) {
				raw[h] = ""
				continue
			}
			raw[h] = strings.ToValidUTF8(strings.TrimSpace(row[i]), "\uFFFD")
		}
		return raw, nil
	}
}

// ReadAll drains the reader.
func (r *CSVReader) ReadAll() ([]RawRow, error) {
	var rows []RawRow
	for {
		row, err := r.Next()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read CSV row %d: %w", r.rowNum, err)
		}
		rows = append(rows, row)
	}
}

// RowNum returns the current CSV row number (1-based, header included).
func (r *CSVReader) RowNum() int64 {
	return r.rowNum
}

func (r *CSVReader) Close() error {
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}

// CheckColumns returns a SchemaError for the first canonical column that
// none of names maps to, or that more than one of names maps to.
func CheckColumns(names []string) error {
	present := make(map[string][]string, len(names))
	for _, n := range names {
		if c, ok := CanonicalColumn(n); ok {
			present[c] = append(present[c], n)
		}
	}
	for _, c := range RequiredColumns {
		switch h := present[c]; {
		case len(h) == 0:
			return &SchemaError{Column: c}
		case len(h) > 1:
			sort.Strings(h)
			return &SchemaError{Column: c, Headers: h}
		}
	}
	return nil
}
