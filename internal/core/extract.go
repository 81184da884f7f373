package core

import (
	"github.com/JonMunkholm/projview/internal/jsonval"
)

// Reserved record fields.
const (
	FieldProjectID          = "project_id"
	FieldTitle              = "title"
	FieldObjective          = "objective"
	FieldSimilarByTitle     = "similar_projects_by_title"
	FieldSimilarByObjective = "similar_projects_by_objective"
	FieldNoMatches          = "no_matches"
)

// projectsKey is the top-level key of the wrapped collection form.
const projectsKey = "projects"

// Extract returns the records held by a decoded source. A mapping with a
// "projects" sequence yields that sequence; a bare sequence yields itself.
// Anything else is a *ShapeError. Records are returned as-is, even when they
// are not mappings.
func Extract(source string, v jsonval.Value) ([]jsonval.Value, error) {
	switch v.Kind() {
	case jsonval.Array:
		return v.Items(), nil
	case jsonval.Object:
		if p, ok := v.Get(projectsKey); ok && p.Kind() == jsonval.Array {
			return p.Items(), nil
		}
		return nil, &ShapeError{Source: source, Found: "object without a projects list"}
	default:
		return nil, &ShapeError{Source: source, Found: v.Kind().String()}
	}
}
