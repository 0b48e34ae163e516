package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ReadCSV loads a dataset from CSV. The first row names the columns and
// empty cells become nulls.
func ReadCSV(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return New(nil, nil), nil
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(h)
	}

	var rows []Record
	for line := 2; ; line++ {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", line, err)
		}

		rec := make(Record, len(header))
		for i, col := range header {
			if i >= len(fields) || fields[i] == "" {
				rec[col] = nil
				continue
			}
			rec[col] = fields[i]
		}
		rows = append(rows, rec)
	}

	return New(header, rows), nil
}
