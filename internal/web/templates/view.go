// Package templates renders the projview pages as templ components.
//
// The *_templ.go files are generated from the .templ sources with
// `templ generate`; edit the .templ files, not the generated code.
package templates

//go:generate templ generate

import (
	"net/url"
	"strconv"
	"time"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/projview/internal/core"
)

// LabelOption is one dropdown entry.
type LabelOption struct {
	Label    string
	ID       string
	Selected bool
}

// DashboardData is everything the project page shows.
type DashboardData struct {
	Loaded   bool
	LoadedAt time.Time
	Records  int
	Reports  []core.SourceReport

	// Alert is a load or selection problem to show above the page.
	Alert *core.UserMessage
	// Attempt holds the source reports of a load that was not installed.
	Attempt []core.SourceReport

	Query   string
	Options []LabelOption

	// View is nil until a project is selected.
	View *core.ProjectView

	FetchEnabled bool
}

// FilterControl is one categorical filter offered on the explorer.
type FilterControl struct {
	Column   string
	Options  []string // starts with core.AllOption
	Selected map[string]bool
}

// ExploreData is everything the explorer page shows.
type ExploreData struct {
	Loaded bool
	Alert  *core.UserMessage

	Filters      []FilterControl
	DateColumns  []string
	DateColumn   string
	Start, End   string
	Excluded     []string
	Limit        int
	MaxRows      int
	Shallow      bool
	Total        int // rows after filtering, before the display cap
	Table        core.Table
	ExportParams url.Values
}

// nestedSection is one similar-projects table on the project page.
type nestedSection struct {
	Title string
	Kind  core.NestedKind
	Table core.Table
}

func nestedSections(v core.ProjectView) []nestedSection {
	return []nestedSection{
		{"Similar projects by title", core.KindSimilarByTitle, v.SimilarByTitle},
		{"Similar projects by objective", core.KindSimilarByObjective, v.SimilarByObjective},
	}
}

var exportFormats = []core.ExportFormat{core.FormatCSV, core.FormatXLSX}

// exportURL is path with query plus the format parameter.
func exportURL(path string, query url.Values, f core.ExportFormat) templ.SafeURL {
	q := make(url.Values, len(query)+1)
	for k, v := range query {
		q[k] = v
	}
	q.Set("format", string(f))
	return templ.URL(path + "?" + q.Encode())
}

func exportPath(kind core.NestedKind) string { return "/export/" + string(kind) }

func loadedSummary(records int, loadedAt time.Time) string {
	s := strconv.Itoa(records) + " projects"
	if !loadedAt.IsZero() {
		s += ", loaded " + loadedAt.Format("2006-01-02 15:04:05")
	}
	return s
}

func itoa(n int) string { return strconv.Itoa(n) }
