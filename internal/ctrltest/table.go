package ctrltest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// Table is a time-ordered result table: an index column plus named signal
// columns, one row per recorded step.
type Table struct {
	IndexName string
	Columns   []string
	Index     []float64
	Rows      [][]float64
}

func NewTable(index string, columns ...string) *Table {
	return &Table{
		IndexName: index,
		Columns:   columns,
		Index:     make([]float64, 0),
		Rows:      make([][]float64, 0),
	}
}

func (t *Table) Len() int { return len(t.Index) }

func (t *Table) Append(idx float64, values ...float64) error {
	if len(values) != len(t.Columns) {
		return fmt.Errorf("%w: got %d values for %d columns", ErrRowWidth, len(values), len(t.Columns))
	}
	row := make([]float64, len(values))
	copy(row, values)
	t.Index = append(t.Index, idx)
	t.Rows = append(t.Rows, row)
	return nil
}

// Column returns a copy of the named column.
func (t *Table) Column(name string) ([]float64, error) {
	if name == t.IndexName {
		out := make([]float64, len(t.Index))
		copy(out, t.Index)
		return out, nil
	}
	for j, c := range t.Columns {
		if c != name {
			continue
		}
		out := make([]float64, len(t.Rows))
		for i, row := range t.Rows {
			out[i] = row[j]
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
}

// WriteCSV writes a header row and then one line per row, index first.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)

	header := append([]string{t.IndexName}, t.Columns...)
	if err := cw.Write(header); err != nil {
		return err
	}

	for i, row := range t.Rows {
		record := make([]string, 0, len(row)+1)
		record = append(record, formatFloat(t.Index[i]))
		for _, v := range row {
			record = append(record, formatFloat(v))
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a table written by WriteCSV. The first column is taken
// as the index.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 || len(records[0]) == 0 {
		return nil, fmt.Errorf("ctrltest: empty csv")
	}

	t := NewTable(records[0][0], records[0][1:]...)
	for n, record := range records[1:] {
		idx, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: index: %w", n+2, err)
		}
		values := make([]float64, 0, len(record)-1)
		for _, field := range record[1:] {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", n+2, err)
			}
			values = append(values, v)
		}
		if err := t.Append(idx, values...); err != nil {
			return nil, fmt.Errorf("line %d: %w", n+2, err)
		}
	}
	return t, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
