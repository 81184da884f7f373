package core

import (
	"errors"
	"fmt"

	"github.com/JonMunkholm/projview/internal/jsonval"
)

// MaxFlattenDepth bounds the nesting followed by Flatten before it gives up
// and falls back to the shallow layout.
const MaxFlattenDepth = 64

// PathSeparator joins nested keys into column names.
const PathSeparator = "."

var (
	errNotObject     = errors.New("record is not an object")
	errTooDeep       = errors.New("nesting too deep")
	errPathCollision = errors.New("two fields flatten to the same column")
)

// Table is a flattened record collection: one row per record by position and
// one column per dotted field path, in first-seen order. Cells for paths a
// record does not have hold the absent Value.
type Table struct {
	Columns []string
	Rows    [][]jsonval.Value

	// Shallow is set when recursive flattening failed and the table holds
	// only top-level keys with their values verbatim.
	Shallow bool
	// FallbackErr is the failure that caused the shallow layout.
	FallbackErr error

	index map[string]int
}

// Flatten builds the table for records. Nested objects are descended and
// their keys joined with "."; arrays are kept whole as opaque cells. If any
// record cannot be flattened the whole collection is laid out shallowly
// instead, which cannot fail.
func Flatten(records []jsonval.Value) Table {
	t, err := flattenDeep(records)
	if err != nil {
		t = flattenShallow(records)
		t.FallbackErr = err
	}
	return t
}

func flattenDeep(records []jsonval.Value) (Table, error) {
	b := newTableBuilder(len(records))
	for i, rec := range records {
		if rec.Kind() != jsonval.Object {
			return Table{}, fmt.Errorf("record %d: %w (%s)", i, errNotObject, rec.Kind())
		}
		row := make(map[string]jsonval.Value)
		if err := flattenInto(row, "", rec, 0, &b); err != nil {
			return Table{}, fmt.Errorf("record %d: %w", i, err)
		}
		b.addRow(row)
	}
	return b.table(false), nil
}

// flattenInto walks obj, registering columns on b in the order they are met.
func flattenInto(row map[string]jsonval.Value, prefix string, obj jsonval.Value, depth int, b *tableBuilder) error {
	if depth > MaxFlattenDepth {
		return errTooDeep
	}
	for _, m := range obj.Members() {
		name := m.Key
		if prefix != "" {
			name = prefix + PathSeparator + m.Key
		}
		if m.Value.Kind() == jsonval.Object && m.Value.Len() > 0 {
			if err := flattenInto(row, name, m.Value, depth+1, b); err != nil {
				return err
			}
			continue
		}
		if m.Value.Kind() == jsonval.Object {
			// empty mapping: no columns
			continue
		}
		if _, dup := row[name]; dup {
			return fmt.Errorf("%w: %q", errPathCollision, name)
		}
		row[name] = m.Value
		b.addColumn(name)
	}
	return nil
}

func flattenShallow(records []jsonval.Value) Table {
	b := newTableBuilder(len(records))
	for _, rec := range records {
		row := make(map[string]jsonval.Value)
		for _, m := range rec.Members() {
			row[m.Key] = m.Value
			b.addColumn(m.Key)
		}
		b.addRow(row)
	}
	return b.table(true)
}

type tableBuilder struct {
	columns []string
	seen    map[string]bool
	rows    []map[string]jsonval.Value
}

func newTableBuilder(n int) tableBuilder {
	return tableBuilder{
		seen: make(map[string]bool),
		rows: make([]map[string]jsonval.Value, 0, n),
	}
}

func (b *tableBuilder) addColumn(name string) {
	if !b.seen[name] {
		b.seen[name] = true
		b.columns = append(b.columns, name)
	}
}

func (b *tableBuilder) addRow(row map[string]jsonval.Value) {
	b.rows = append(b.rows, row)
}

func (b *tableBuilder) table(shallow bool) Table {
	t := Table{
		Columns: b.columns,
		Rows:    make([][]jsonval.Value, len(b.rows)),
		Shallow: shallow,
	}
	for i, row := range b.rows {
		cells := make([]jsonval.Value, len(b.columns))
		for j, col := range b.columns {
			cells[j] = row[col]
		}
		t.Rows[i] = cells
	}
	t.buildIndex()
	return t
}

// NewTable builds a table from explicit columns and rows.
func NewTable(columns []string, rows [][]jsonval.Value) Table {
	t := Table{Columns: columns, Rows: rows}
	t.buildIndex()
	return t
}

func (t *Table) buildIndex() {
	t.index = make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		if _, ok := t.index[c]; !ok {
			t.index[c] = i
		}
	}
}

// ColumnIndex returns the position of column name, or -1.
func (t Table) ColumnIndex(name string) int {
	if t.index == nil {
		for i, c := range t.Columns {
			if c == name {
				return i
			}
		}
		return -1
	}
	if i, ok := t.index[name]; ok {
		return i
	}
	return -1
}

// HasColumn reports whether the table has column name.
func (t Table) HasColumn(name string) bool { return t.ColumnIndex(name) >= 0 }

// Cell returns the value of column name in row r, absent if the column does
// not exist.
func (t Table) Cell(r int, name string) jsonval.Value {
	j := t.ColumnIndex(name)
	if j < 0 || r < 0 || r >= len(t.Rows) {
		return jsonval.Value{}
	}
	return t.Rows[r][j]
}

// Column returns every row's value for column name.
func (t Table) Column(name string) []jsonval.Value {
	j := t.ColumnIndex(name)
	if j < 0 {
		return nil
	}
	out := make([]jsonval.Value, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[j]
	}
	return out
}

// Len returns the number of rows.
func (t Table) Len() int { return len(t.Rows) }

// Head returns a table sharing t's columns with at most n rows. n <= 0
// returns every row.
func (t Table) Head(n int) Table {
	if n > 0 && n < len(t.Rows) {
		t.Rows = t.Rows[:n]
	}
	return t
}

// Strings renders every cell with Value.Text, the form used for display and
// export.
func (t Table) Strings() [][]string {
	out := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = v.Text()
		}
		out[i] = cells
	}
	return out
}
