// Package csvutil holds the CSV collaborators used by the workflows. None of
// this is part of the HTTP access core.
package csvutil

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// ReadColumn extracts one named column from a CSV file with a header row.
// A UTF-8 BOM on the first header cell is stripped and header names are
// trimmed, matching files exported from spreadsheet tools. Empty cells are
// skipped.
func ReadColumn(path, column string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%s: empty CSV file", path)
	}
	if err != nil {
		return nil, fmt.Errorf("read header of %s: %w", path, err)
	}

	idx := -1
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF"))
		if h == column {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("column %q not found in %s", column, path)
	}

	var out []string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		if idx < len(rec) {
			if v := strings.TrimSpace(rec[idx]); v != "" {
				out = append(out, v)
			}
		}
	}
	return out, nil
}

// Write writes a header and rows to a CSV file, appending the .csv extension
// when missing. It returns the file name actually written.
func Write(path string, header []string, rows [][]string) (string, error) {
	if !strings.HasSuffix(path, ".csv") {
		path += ".csv"
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return "", fmt.Errorf("write header: %w", err)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			f.Close()
			return "", fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return "", fmt.Errorf("flush %s: %w", path, err)
	}
	return path, f.Close()
}
