package core

import (
	"fmt"
	"sort"
	"time"

	"github.com/JonMunkholm/projview/internal/jsonval"
)

// DateLayout is the layout of date bounds given by users.
const DateLayout = "2006-01-02"

// FilterSpec selects rows of a flat table.
//
// Within a categorical column a row matches any of the selected values;
// across columns every restriction must hold. Selections that are empty or
// include AllOption do not restrict. Values are compared by their display
// text, so nested cells match on canonical JSON.
type FilterSpec struct {
	Categorical map[string][]string `json:"categorical,omitempty"`

	// DateColumn is an optional temporal column restricted to [Start, End].
	// A zero bound is open. End covers its whole day when given as a date.
	DateColumn string    `json:"date_column,omitempty"`
	Start      time.Time `json:"start,omitempty"`
	End        time.Time `json:"end,omitempty"`
}

// IsZero reports whether f restricts nothing.
func (f FilterSpec) IsZero() bool {
	if f.DateColumn != "" && (!f.Start.IsZero() || !f.End.IsZero()) {
		return false
	}
	for _, vals := range f.Categorical {
		if restricts(vals) {
			return false
		}
	}
	return true
}

func restricts(vals []string) bool {
	if len(vals) == 0 {
		return false
	}
	for _, v := range vals {
		if v == AllOption {
			return false
		}
	}
	return true
}

// ParseDateBound parses a user-supplied date bound. An empty string is the
// zero (open) bound.
func ParseDateBound(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return t, nil
}

type categoricalFilter struct {
	col    int
	accept map[string]struct{}
}

// ApplyFilter returns the rows of t selected by spec, in table order, with
// t's columns. Categorical restrictions on columns t does not have are
// ignored. A date restriction needs a temporal column in cls; rows with a
// missing or unparsable date are dropped while it is active.
func ApplyFilter(t Table, cls Classification, spec FilterSpec) (Table, error) {
	var cats []categoricalFilter
	names := make([]string, 0, len(spec.Categorical))
	for name := range spec.Categorical {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		vals := spec.Categorical[name]
		j := t.ColumnIndex(name)
		if j < 0 || !restricts(vals) {
			continue
		}
		accept := make(map[string]struct{}, len(vals))
		for _, v := range vals {
			accept[v] = struct{}{}
		}
		cats = append(cats, categoricalFilter{col: j, accept: accept})
	}

	dateCol, layout := -1, ""
	var lower, upper time.Time
	if spec.DateColumn != "" && (!spec.Start.IsZero() || !spec.End.IsZero()) {
		info, ok := cls.Column(spec.DateColumn)
		if !ok || info.Kind != KindTemporal || info.Excluded {
			return Table{}, fmt.Errorf("filter: %q is not a date column", spec.DateColumn)
		}
		dateCol, layout = t.ColumnIndex(spec.DateColumn), info.Layout
		if dateCol < 0 {
			return Table{}, fmt.Errorf("filter: %q is not a date column", spec.DateColumn)
		}
		lower, upper = spec.Start, endOfRange(spec.End)
	}

	rows := make([][]jsonval.Value, 0, len(t.Rows))
	for _, row := range t.Rows {
		if !matchesCategorical(row, cats) {
			continue
		}
		if dateCol >= 0 && !inRange(row[dateCol], layout, lower, upper) {
			continue
		}
		rows = append(rows, row)
	}

	out := t
	out.Rows = rows
	return out, nil
}

func matchesCategorical(row []jsonval.Value, cats []categoricalFilter) bool {
	for _, f := range cats {
		if _, ok := f.accept[row[f.col].Text()]; !ok {
			return false
		}
	}
	return true
}

func inRange(v jsonval.Value, layout string, lower, upper time.Time) bool {
	tm, ok := ParseTemporal(layout, v)
	if !ok {
		return false
	}
	if !lower.IsZero() && tm.Before(lower) {
		return false
	}
	if !upper.IsZero() && !tm.Before(upper) {
		return false
	}
	return true
}

// endOfRange turns an inclusive end bound into an exclusive one. A bound at
// midnight covers its whole day.
func endOfRange(end time.Time) time.Time {
	if end.IsZero() {
		return end
	}
	if end.Hour() == 0 && end.Minute() == 0 && end.Second() == 0 && end.Nanosecond() == 0 {
		return end.AddDate(0, 0, 1)
	}
	return end.Add(time.Nanosecond)
}
