package templates

import (
	"bytes"
	"context"
	"net/url"
	"testing"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/projview/internal/core"
	"github.com/JonMunkholm/projview/internal/jsonval"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, c.Render(context.Background(), &buf))
	return buf.String()
}

func TestLayout(t *testing.T) {
	out := render(t, Layout("A & B", Warning("careful")))
	assert.Contains(t, out, "<!doctype html>")
	assert.Contains(t, out, "<title>A &amp; B · projview</title>")
	assert.Contains(t, out, `<div class="alert alert-warn" role="status">careful</div>`)
}

func TestErrorAlert(t *testing.T) {
	out := render(t, ErrorAlert("<script>x</script>", "Try again", "DEC003"))
	assert.Contains(t, out, "&lt;script&gt;x&lt;/script&gt;")
	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, "<div>Try again</div>")
	assert.Contains(t, out, "Code: DEC003")

	out = render(t, ErrorAlert("Failed", "", ""))
	assert.NotContains(t, out, "Code:")
}

func TestDataTable(t *testing.T) {
	out := render(t, DataTable(core.Table{}))
	assert.Contains(t, out, "No rows.")

	tbl := core.NewTable([]string{"field", "value"}, [][]jsonval.Value{
		{jsonval.StringValue("title"), jsonval.StringValue("<b>Alpha</b>")},
	})
	out = render(t, DataTable(tbl))
	assert.Contains(t, out, "<th>field</th><th>value</th>")
	assert.Contains(t, out, "<td>&lt;b&gt;Alpha&lt;/b&gt;</td>")
}

func TestExportLinks(t *testing.T) {
	out := render(t, ExportLinks("/export/table", url.Values{"filter[status]": {"a&b"}}))
	assert.Contains(t, out, `href="/export/table?filter%5Bstatus%5D=a%26b&amp;format=csv"`)
	assert.Contains(t, out, `format=xlsx"`)
}

func TestExportURL_Sanitized(t *testing.T) {
	got := exportURL("javascript:alert(1)//", nil, core.FormatCSV)
	assert.Equal(t, templ.FailedSanitizationURL, got)
}

func TestDashboard_ProjectPicker(t *testing.T) {
	out := render(t, Dashboard(DashboardData{
		Loaded:  true,
		Records: 2,
		Reports: []core.SourceReport{{Name: "a.json", Records: 2}},
		Query:   `"quoted"`,
		Options: []LabelOption{
			{Label: "1 — Alpha", ID: "1"},
			{Label: "2 — Beta", ID: "2", Selected: true},
		},
	}))
	assert.Contains(t, out, "a.json: 2 records")
	assert.Contains(t, out, `value="&#34;quoted&#34;"`)
	assert.Contains(t, out, `<option value="1 — Alpha">1 — Alpha</option>`)
	assert.Contains(t, out, `<option value="2 — Beta" selected>2 — Beta</option>`)
	assert.Contains(t, out, `name="append"`)
}

func TestDashboard_NotLoaded(t *testing.T) {
	out := render(t, Dashboard(DashboardData{FetchEnabled: false}))
	assert.Contains(t, out, "Load one or more project files to begin.")
	assert.NotContains(t, out, `action="/load/url"`)
	assert.NotContains(t, out, `name="append"`, "append box only after a load")
}

func TestExplore(t *testing.T) {
	out := render(t, Explore(ExploreData{
		Loaded:      true,
		Filters:     []FilterControl{{Column: "status", Options: []string{core.AllOption, "active"}, Selected: map[string]bool{"active": true}}},
		DateColumns: []string{"start_date"},
		DateColumn:  "start_date",
		Excluded:    []string{"notes", "tags"},
		Limit:       10,
		MaxRows:     100,
		Total:       3,
	}))
	assert.Contains(t, out, `name="filter[status]"`)
	assert.Contains(t, out, `<option value="active" selected>active</option>`)
	assert.Contains(t, out, `<option value="start_date" selected>start_date</option>`)
	assert.Contains(t, out, `max="100" value="10"`)
	assert.Contains(t, out, "Not filterable: notes, tags")
	assert.Contains(t, out, "Showing 0 of 3 rows")
}
