package core

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/projview/internal/jsonval"
)

// ColumnKind is the classification of a flat column.
type ColumnKind string

const (
	KindNumeric     ColumnKind = "numeric"
	KindTemporal    ColumnKind = "temporal"
	KindCategorical ColumnKind = "categorical"
)

// AllOption is the candidate that stands for "no restriction".
const AllOption = "(all)"

// Defaults for picking filter columns.
const (
	DefaultMaxFilterDistinct = 100
	DefaultMaxFilterColumns  = 6
)

// Temporal layouts, tried in order. A column is temporal when every
// non-missing value parses under the same layout.
var temporalLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"02.01.2006",
	"Jan 2, 2006",
	"2 Jan 2006",
}

// ColumnInfo is the classification outcome of one column.
type ColumnInfo struct {
	Name     string     `json:"name"`
	Kind     ColumnKind `json:"kind"`
	Layout   string     `json:"layout,omitempty"` // temporal columns only
	Distinct int        `json:"distinct"`

	// Candidates are the sorted distinct texts of non-missing values,
	// prefixed by AllOption.
	Candidates []string `json:"candidates"`

	// Excluded is set when the column could not be classified; Err says why.
	Excluded bool  `json:"excluded,omitempty"`
	Err      error `json:"-"`
}

// Classification holds the outcome for every column of a table, in column
// order. It is computed once per load.
type Classification struct {
	Columns []ColumnInfo
	byName  map[string]int
}

// Classify classifies every column of t. A column whose classification
// fails is marked Excluded and the others are unaffected.
func Classify(t Table) Classification {
	c := Classification{
		Columns: make([]ColumnInfo, len(t.Columns)),
		byName:  make(map[string]int, len(t.Columns)),
	}
	for j, name := range t.Columns {
		c.Columns[j] = classifyColumn(t, j, name)
		c.byName[name] = j
	}
	return c
}

func classifyColumn(t Table, j int, name string) (info ColumnInfo) {
	defer func() {
		if r := recover(); r != nil {
			info = ColumnInfo{
				Name:     name,
				Kind:     KindCategorical,
				Excluded: true,
				Err:      fmt.Errorf("classify column %q: %v", name, r),
			}
		}
	}()

	values := make([]jsonval.Value, 0, len(t.Rows))
	for _, row := range t.Rows {
		if v := row[j]; !v.IsMissing() {
			values = append(values, v)
		}
	}

	info = ColumnInfo{Name: name, Kind: KindCategorical}
	switch {
	case len(values) == 0:
	case allNumeric(values):
		info.Kind = KindNumeric
	default:
		if layout, ok := sharedLayout(values); ok {
			info.Kind, info.Layout = KindTemporal, layout
		}
	}

	distinct := make(map[string]struct{}, len(values))
	for _, v := range values {
		distinct[v.Text()] = struct{}{}
	}
	candidates := make([]string, 0, len(distinct))
	for s := range distinct {
		candidates = append(candidates, s)
	}
	sort.Strings(candidates)

	info.Distinct = len(candidates)
	info.Candidates = append([]string{AllOption}, candidates...)
	return info
}

func allNumeric(values []jsonval.Value) bool {
	for _, v := range values {
		if !IsNumeric(v) {
			return false
		}
	}
	return true
}

// IsNumeric reports whether v is a JSON number or a string holding a finite
// decimal number. Hex literals, NaN and Inf do not count.
func IsNumeric(v jsonval.Value) bool {
	switch v.Kind() {
	case jsonval.Number:
		return true
	case jsonval.String:
		s, _ := v.Str()
		return isDecimal(strings.TrimSpace(s))
	}
	return false
}

func isDecimal(s string) bool {
	digits := strings.TrimLeft(s, "+-")
	if len(s)-len(digits) > 1 || digits == "" {
		return false
	}
	// ParseFloat accepts "0x1p4", "Inf" and "NaN"; a decimal starts with a
	// digit or a point.
	if c := digits[0]; (c < '0' || c > '9') && c != '.' {
		return false
	}
	if len(digits) > 1 && digits[0] == '0' && (digits[1] == 'x' || digits[1] == 'X') {
		return false
	}
	f, err := strconv.ParseFloat(s, 64)
	return err == nil && !math.IsNaN(f) && !math.IsInf(f, 0)
}

func sharedLayout(values []jsonval.Value) (string, bool) {
	for _, layout := range temporalLayouts {
		ok := true
		for _, v := range values {
			if _, parsed := ParseTemporal(layout, v); !parsed {
				ok = false
				break
			}
		}
		if ok {
			return layout, true
		}
	}
	return "", false
}

// ParseTemporal parses a string value under layout.
func ParseTemporal(layout string, v jsonval.Value) (time.Time, bool) {
	s, ok := v.Str()
	if !ok {
		return time.Time{}, false
	}
	tm, err := time.Parse(layout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, false
	}
	return tm, true
}

// Column returns the info for column name.
func (c Classification) Column(name string) (ColumnInfo, bool) {
	j, ok := c.byName[name]
	if !ok {
		return ColumnInfo{}, false
	}
	return c.Columns[j], true
}

// OfKind returns the names of non-excluded columns of kind, in column order.
func (c Classification) OfKind(kind ColumnKind) []string {
	var out []string
	for _, info := range c.Columns {
		if !info.Excluded && info.Kind == kind {
			out = append(out, info.Name)
		}
	}
	return out
}

// Excluded returns the columns that could not be classified.
func (c Classification) Excluded() []ColumnInfo {
	var out []ColumnInfo
	for _, info := range c.Columns {
		if info.Excluded {
			out = append(out, info)
		}
	}
	return out
}

// DefaultFilterColumns returns the first limit categorical columns having at
// most maxDistinct distinct values, in column order.
func (c Classification) DefaultFilterColumns(maxDistinct, limit int) []string {
	var out []string
	for _, info := range c.Columns {
		if len(out) >= limit {
			break
		}
		if info.Excluded || info.Kind != KindCategorical || info.Distinct > maxDistinct {
			continue
		}
		out = append(out, info.Name)
	}
	return out
}
