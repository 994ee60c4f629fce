// Package ingest reads observations from JSON and CSV sources.
package ingest

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/okian/wastesync/internal/domain/normalize"
)

// DecodeJSON reads one JSON document. An object with "columns" and "rows"
// arrays becomes a normalize.Table; any other value is returned as decoded,
// with numbers kept as json.Number, for normalize.Detect to classify.
func DecodeJSON(r io.Reader) (any, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	var v any
	if err := decode(body, &v); err != nil {
		return nil, err
	}
	if !isTable(v) {
		return v, nil
	}
	var t normalize.Table
	if err := decode(body, &t); err != nil {
		return nil, err
	}
	return t, nil
}

func decode(body []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after JSON value", ErrDecode)
	}
	return nil
}

func isTable(v any) bool {
	m, ok := v.(map[string]any)
	if !ok {
		return false
	}
	_, cols := m["columns"].([]any)
	_, rows := m["rows"].([]any)
	return cols && rows
}

// CSVOption adjusts how ReadCSV maps columns.
type CSVOption func(*normalize.Table)

// WithColumns overrides the name, mass and location column names.
// Empty values keep the defaults.
func WithColumns(name, mass, location string) CSVOption {
	return func(t *normalize.Table) {
		t.NameColumn = name
		t.MassColumn = mass
		t.LocationColumn = location
	}
}

// ReadCSV reads a header row followed by data rows. Cells stay text; the
// normalizer coerces the mass column. Rows may be shorter than the header.
func ReadCSV(r io.Reader, opts ...CSVOption) (normalize.Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return normalize.Table{}, fmt.Errorf("%w: empty csv", ErrDecode)
	}
	if err != nil {
		return normalize.Table{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	t := normalize.Table{Header: header}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return normalize.Table{}, fmt.Errorf("%w: %w", ErrDecode, err)
		}
		row := make([]any, len(rec))
		for i, c := range rec {
			row[i] = c
		}
		t.Data = append(t.Data, row)
	}
	for _, opt := range opts {
		opt(&t)
	}
	return t, nil
}

// ReadFile reads path as JSON or CSV according to its extension.
func ReadFile(path string, opts ...CSVOption) (any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return DecodeJSON(f)
	case ".csv":
		return ReadCSV(f, opts...)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, filepath.Ext(path))
	}
}
