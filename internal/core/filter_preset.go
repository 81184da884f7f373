package core

import (
	"bytes"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// FilterPreset is the file form of a FilterSpec:
//
//	categorical:
//	  status: [active, closed]
//	date_column: start_date
//	start: 2024-01-01
//	end: 2024-12-31
//	limit: 100
type FilterPreset struct {
	Categorical map[string][]string `yaml:"categorical"`
	DateColumn  string              `yaml:"date_column"`
	Start       string              `yaml:"start"`
	End         string              `yaml:"end"`
	Limit       int                 `yaml:"limit"`
}

// ReadFilterPreset decodes a YAML preset. Unknown keys are rejected so typos
// do not silently widen the filter.
func ReadFilterPreset(r io.Reader) (FilterPreset, error) {
	var p FilterPreset
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil && err != io.EOF {
		return FilterPreset{}, fmt.Errorf("read filter preset: %w", err)
	}
	return p, nil
}

// ParseFilterPreset decodes a YAML preset held in memory.
func ParseFilterPreset(data []byte) (FilterPreset, error) {
	return ReadFilterPreset(bytes.NewReader(data))
}

// Spec converts the preset to a FilterSpec.
func (p FilterPreset) Spec() (FilterSpec, error) {
	start, err := ParseDateBound(p.Start)
	if err != nil {
		return FilterSpec{}, err
	}
	end, err := ParseDateBound(p.End)
	if err != nil {
		return FilterSpec{}, err
	}
	return FilterSpec{
		Categorical: p.Categorical,
		DateColumn:  p.DateColumn,
		Start:       start,
		End:         end,
	}, nil
}

// Preset converts spec back to its file form.
func (f FilterSpec) Preset() FilterPreset {
	p := FilterPreset{Categorical: f.Categorical, DateColumn: f.DateColumn}
	if !f.Start.IsZero() {
		p.Start = f.Start.Format(DateLayout)
	}
	if !f.End.IsZero() {
		p.End = f.End.Format(DateLayout)
	}
	return p
}

// MarshalYAML writes the preset of f.
func (f FilterSpec) MarshalYAML() (interface{}, error) {
	return f.Preset(), nil
}
