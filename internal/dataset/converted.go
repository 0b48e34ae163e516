package dataset

// ConvertedColumn is the name of the derived conversion flag column.
const ConvertedColumn = "converted"

// Converted is a dataset enriched with a per-row conversion flag.
// The flag is attached alongside the source rows, never written into them.
type Converted struct {
	*Dataset
	EventColumn string
	flags       []bool
}

// WithConversion derives the conversion flag from eventCol: a row converted
// iff its eventCol value is non-null. ok is false when eventCol is missing.
func (d *Dataset) WithConversion(eventCol string) (conv *Converted, ok bool) {
	if !d.HasColumn(eventCol) {
		return nil, false
	}

	flags := make([]bool, d.Len())
	for i := range flags {
		flags[i] = !d.IsNull(i, eventCol)
	}

	return &Converted{Dataset: d, EventColumn: eventCol, flags: flags}, true
}

// Converted reports whether row i converted.
func (c *Converted) Converted(i int) bool {
	return c.flags[i]
}

// Flags returns a copy of the conversion flags in row order.
func (c *Converted) Flags() []bool {
	flags := make([]bool, len(c.flags))
	copy(flags, c.flags)
	return flags
}

// Successes returns the number of converted rows.
func (c *Converted) Successes() int {
	n := 0
	for _, f := range c.flags {
		if f {
			n++
		}
	}
	return n
}

// Record returns row i with the converted column attached.
func (c *Converted) Record(i int) Record {
	rec := c.Row(i)
	rec[ConvertedColumn] = c.flags[i]
	return rec
}
