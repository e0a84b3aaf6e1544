package loader

import (
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// record is one data row of a CSV file addressed by header name.
type record struct {
	line   int
	fields map[string]string
}

func (r record) get(name string) string { return r.fields[name] }

// readCSV reads a headed CSV file. Header names are trimmed and lower-cased,
// a byte order mark is dropped, and every name in required must appear in the
// header. Blank lines are skipped.
func readCSV(r io.Reader, file string, comma rune, required []string) ([]record, error) {
	cr := csv.NewReader(transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fileErrorf(file, 0, "empty file, expected a header with %s", strings.Join(required, ", "))
	}
	if err != nil {
		return nil, csvError(file, err)
	}
	for i, h := range header {
		header[i] = strings.ToLower(strings.TrimSpace(h))
	}
	for _, name := range required {
		if !contains(header, name) {
			return nil, fileErrorf(file, 1, "missing column %q in header", name)
		}
	}

	var records []record
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, csvError(file, err)
		}
		line, _ := cr.FieldPos(0)

		rec := record{line: line, fields: make(map[string]string, len(header))}
		for i, h := range header {
			if i < len(row) {
				rec.fields[h] = strings.TrimSpace(row[i])
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

func csvError(file string, err error) error {
	var parseErr *csv.ParseError
	if errors.As(err, &parseErr) {
		return &FileError{File: file, Line: parseErr.Line, Err: parseErr.Err}
	}
	return &FileError{File: file, Err: err}
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
