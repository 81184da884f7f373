package core

import (
	"github.com/JonMunkholm/projview/internal/jsonval"
)

// SourceReport is the outcome of loading one source.
type SourceReport struct {
	Name    string `json:"name"`
	Records int    `json:"records"`
	Err     error  `json:"-"`
}

// OK reports whether the source contributed to the collection.
func (r SourceReport) OK() bool { return r.Err == nil }

// Message is the user-facing description of the source error, or "".
func (r SourceReport) Message() string {
	if r.Err == nil {
		return ""
	}
	return FormatUserError(r.Err)
}

// Collection is the ordered record sequence of a load: source order, then
// order within each source.
type Collection struct {
	Records []jsonval.Value
	Reports []SourceReport
}

// Failed returns the reports of sources that were skipped.
func (c Collection) Failed() []SourceReport {
	var out []SourceReport
	for _, r := range c.Reports {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}

// LoadSources decodes and extracts each input independently. Failing sources
// are reported and skipped; the rest are concatenated in input order. When no
// records remain the returned collection still carries every report and the
// error is ErrEmptyCollection.
func LoadSources(inputs []Input) (Collection, error) {
	var c Collection
	for _, in := range inputs {
		c = c.Append(loadOne(in))
	}
	return c, c.Check()
}

// LoadValues extracts records from already-decoded values, one per source.
func LoadValues(names []string, values []jsonval.Value) (Collection, error) {
	var c Collection
	for i, v := range values {
		c = c.Append(extractOne(names[i], v))
	}
	return c, c.Check()
}

// Append returns a new collection with other's records and reports after c's.
// Neither operand is modified.
func (c Collection) Append(other Collection) Collection {
	out := Collection{
		Records: make([]jsonval.Value, 0, len(c.Records)+len(other.Records)),
		Reports: make([]SourceReport, 0, len(c.Reports)+len(other.Reports)),
	}
	out.Records = append(append(out.Records, c.Records...), other.Records...)
	out.Reports = append(append(out.Reports, c.Reports...), other.Reports...)
	return out
}

// WithFailure returns c with a failed source report appended. Used for
// sources that never produced bytes, such as a failed fetch.
func (c Collection) WithFailure(name string, err error) Collection {
	return c.Append(Collection{Reports: []SourceReport{{Name: name, Err: err}}})
}

// Check returns ErrEmptyCollection when c holds no records.
func (c Collection) Check() error {
	if len(c.Records) == 0 {
		return ErrEmptyCollection
	}
	return nil
}

func loadOne(in Input) Collection {
	v, err := Decode(in)
	if err != nil {
		return Collection{Reports: []SourceReport{{Name: in.Name, Err: err}}}
	}
	return extractOne(in.Name, v)
}

func extractOne(name string, v jsonval.Value) Collection {
	records, err := Extract(name, v)
	if err != nil {
		return Collection{Reports: []SourceReport{{Name: name, Err: err}}}
	}
	return Collection{
		Records: records,
		Reports: []SourceReport{{Name: name, Records: len(records)}},
	}
}
