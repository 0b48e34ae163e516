package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

type jsonDataset struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// MarshalJSON encodes the dataset as a column list plus positional rows so
// column order survives a round trip.
func (d *Dataset) MarshalJSON() ([]byte, error) {
	out := jsonDataset{
		Columns: d.Columns(),
		Rows:    make([][]any, d.Len()),
	}
	if out.Columns == nil {
		out.Columns = []string{}
	}
	for i := range out.Rows {
		row := make([]any, len(d.columns))
		for j, c := range d.columns {
			v := d.Value(i, c)
			if IsNull(v) {
				v = nil
			}
			row[j] = toJSON(v)
		}
		out.Rows[i] = row
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a dataset written by MarshalJSON. Integral numbers
// come back as int64 and others as float64, so 64-bit ids keep every digit.
func (d *Dataset) UnmarshalJSON(data []byte) error {
	var in jsonDataset
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&in); err != nil {
		return err
	}

	rows := make([]Record, len(in.Rows))
	for i, row := range in.Rows {
		if len(row) != len(in.Columns) {
			return fmt.Errorf("row %d has %d values, want %d", i, len(row), len(in.Columns))
		}
		rec := make(Record, len(in.Columns))
		for j, c := range in.Columns {
			rec[c] = fromJSON(row[j])
		}
		rows[i] = rec
	}

	*d = *New(in.Columns, rows)
	return nil
}

// toJSON writes integral floats with a trailing ".0" so fromJSON can tell
// them apart from integers.
func toJSON(v any) any {
	switch t := v.(type) {
	case float32:
		return toJSON(float64(t))
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) || t != math.Trunc(t) {
			return t
		}
		return json.Number(strconv.FormatFloat(t, 'f', 1, 64))
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = toJSON(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = toJSON(e)
		}
		return out
	default:
		return v
	}
}

func fromJSON(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		f, err := t.Float64()
		if err != nil {
			return t.String()
		}
		return f
	case []any:
		for i, e := range t {
			t[i] = fromJSON(e)
		}
		return t
	case map[string]any:
		for k, e := range t {
			t[k] = fromJSON(e)
		}
		return t
	default:
		return v
	}
}
