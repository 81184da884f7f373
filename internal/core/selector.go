package core

import (
	"strings"

	"github.com/JonMunkholm/projview/internal/jsonval"
)

// Key/value table column names.
const (
	KVFieldColumn = "field"
	KVValueColumn = "value"
)

// nestedSuffixes mark columns shown as their own tables rather than in the
// key/value table.
var nestedSuffixes = []string{FieldSimilarByTitle, FieldSimilarByObjective}

// IsNestedColumn reports whether column holds one of the similar-project lists.
func IsNestedColumn(column string) bool {
	for _, s := range nestedSuffixes {
		if strings.HasSuffix(column, s) {
			return true
		}
	}
	return false
}

// PartitionColumns splits columns into base and nested, keeping order.
func PartitionColumns(columns []string) (base, nested []string) {
	for _, c := range columns {
		if IsNestedColumn(c) {
			nested = append(nested, c)
		} else {
			base = append(base, c)
		}
	}
	return base, nested
}

// SelectRow returns the index of the first row whose project_id text equals
// id, or a *NotFoundError.
func SelectRow(t Table, id string) (int, error) {
	j := t.ColumnIndex(FieldProjectID)
	if j >= 0 {
		for i, row := range t.Rows {
			if row[j].Text() == id {
				return i, nil
			}
		}
	}
	return -1, &NotFoundError{ID: id}
}

// FindRecord returns the first original record whose project_id text equals id.
func FindRecord(records []jsonval.Value, id string) (jsonval.Value, bool) {
	for _, rec := range records {
		if RecordID(rec) == id {
			return rec, true
		}
	}
	return jsonval.Value{}, false
}

// ProjectView is everything shown for one selected project.
type ProjectView struct {
	ID  string
	Row int

	// KV has columns field and value: one row per base column of the
	// selected flat row.
	KV Table

	Objective    string
	HasObjective bool

	NoMatches    string
	HasNoMatches bool

	SimilarByTitle     Table
	SimilarByObjective Table
}

// SelectProject builds the view of project id from the flat table and the
// original records. Nested tables are flattened from the first original
// record with that id and are empty when it has none or the list is empty.
func SelectProject(t Table, records []jsonval.Value, id string) (ProjectView, error) {
	r, err := SelectRow(t, id)
	if err != nil {
		return ProjectView{}, err
	}

	base, _ := PartitionColumns(t.Columns)
	kvRows := make([][]jsonval.Value, 0, len(base))
	for _, c := range base {
		kvRows = append(kvRows, []jsonval.Value{jsonval.StringValue(c), t.Cell(r, c)})
	}

	view := ProjectView{
		ID:  id,
		Row: r,
		KV:  NewTable([]string{KVFieldColumn, KVValueColumn}, kvRows),
	}

	if s, ok := t.Cell(r, FieldObjective).Str(); ok {
		view.Objective, view.HasObjective = s, true
	}
	if t.HasColumn(FieldNoMatches) {
		view.NoMatches, view.HasNoMatches = t.Cell(r, FieldNoMatches).Text(), true
	}

	rec, _ := FindRecord(records, id)
	view.SimilarByTitle = nestedTable(rec, FieldSimilarByTitle)
	view.SimilarByObjective = nestedTable(rec, FieldSimilarByObjective)

	return view, nil
}

func nestedTable(rec jsonval.Value, key string) Table {
	v, ok := rec.Get(key)
	if !ok || v.Kind() != jsonval.Array || v.Len() == 0 {
		return NewTable(nil, nil)
	}
	return Flatten(v.Items())
}

// NestedKind names the sub-list exports.
type NestedKind string

const (
	KindMain               NestedKind = "main"
	KindSimilarByTitle     NestedKind = "similar_by_title"
	KindSimilarByObjective NestedKind = "similar_by_objective"
)

// Table returns the view table for kind, and false for an unknown kind.
func (v ProjectView) Table(kind NestedKind) (Table, bool) {
	switch kind {
	case KindMain:
		return v.KV, true
	case KindSimilarByTitle:
		return v.SimilarByTitle, true
	case KindSimilarByObjective:
		return v.SimilarByObjective, true
	}
	return Table{}, false
}
