package csvio

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Separator used by all pipeline CSV files, matching the INSEE exports.
const Separator = ';'

// Table is a fully loaded CSV file with a header row.
type Table struct {
	name    string
	columns map[string]int
	rows    [][]string
}

// ReadFile loads a semicolon-separated CSV file into memory. The first
// row is the header; duplicate or empty column names are errors.
func ReadFile(path string) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.Comma = Separator
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("reading %s: file has no header row", path)
	}

	name := filepath.Base(path)
	columns := make(map[string]int, len(records[0]))
	for i, column := range records[0] {
		column = strings.TrimSpace(column)
		if column == "" {
			return nil, fmt.Errorf("%s: header column %d is empty", name, i+1)
		}
		if _, dup := columns[column]; dup {
			return nil, fmt.Errorf("%s: duplicate header column %q", name, column)
		}
		columns[column] = i
	}

	return &Table{name: name, columns: columns, rows: records[1:]}, nil
}

// RequireColumns fails when any of the named columns is missing, listing
// every missing one at once.
func (t *Table) RequireColumns(names ...string) error {
	var missing []string
	for _, name := range names {
		if _, ok := t.columns[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s: missing columns: %s", t.name, strings.Join(missing, ", "))
	}
	return nil
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Row addresses one data row.
func (t *Table) Row(i int) Row {
	return Row{table: t, index: i}
}

// Row is a view over one data row of a Table.
type Row struct {
	table *Table
	index int
}

// line is the 1-based file line for error messages, accounting for the
// header row.
func (r Row) line() int {
	return r.index + 2
}

func (r Row) field(column string) (string, error) {
	idx, ok := r.table.columns[column]
	if !ok {
		return "", fmt.Errorf("%s: no column %q", r.table.name, column)
	}
	fields := r.table.rows[r.index]
	if idx >= len(fields) {
		return "", fmt.Errorf("%s line %d: row has no %q field", r.table.name, r.line(), column)
	}
	return strings.TrimSpace(fields[idx]), nil
}

// String returns a column's value with surrounding whitespace removed.
func (r Row) String(column string) (string, error) {
	return r.field(column)
}

// Int parses a column as an integer.
func (r Row) Int(column string) (int, error) {
	raw, err := r.field(column)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s line %d: column %q: %q is not an integer", r.table.name, r.line(), column, raw)
	}
	return n, nil
}

// Float parses a column as a float. Decimal commas are accepted, since
// French statistical exports use them.
func (r Row) Float(column string) (float64, error) {
	raw, err := r.field(column)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
	if err != nil {
		return 0, fmt.Errorf("%s line %d: column %q: %q is not a number", r.table.name, r.line(), column, raw)
	}
	return f, nil
}

// Bool parses a column as a boolean: 1/true/yes or 0/false/no, case
// insensitive.
func (r Row) Bool(column string) (bool, error) {
	raw, err := r.field(column)
	if err != nil {
		return false, err
	}
	switch strings.ToLower(raw) {
	case "1", "true", "yes":
		return true, nil
	case "0", "false", "no":
		return false, nil
	}
	return false, fmt.Errorf("%s line %d: column %q: %q is not a boolean", r.table.name, r.line(), column, raw)
}

// Empty reports whether a column is blank in this row.
func (r Row) Empty(column string) bool {
	raw, err := r.field(column)
	return err != nil || raw == ""
}
