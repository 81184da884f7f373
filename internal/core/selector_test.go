package core

import (
	"errors"
	"reflect"
	"testing"
)

func TestBuildLabels(t *testing.T) {
	recs := records(t, `[
		{"project_id":1,"title":"Alpha"},
		{"project_id":"P-2"},
		{"title":"Orphan"},
		{"project_id":3,"title":""},
		{"project_id":9,"title":"Alpha"},
		{"project_id":1,"title":"Alpha","objective":"later"}
	]`)

	l := BuildLabels(recs)
	want := []string{"1 — Alpha", "P-2", " — Orphan", "3", "9 — Alpha", "1 — Alpha"}
	if !reflect.DeepEqual(l.List, want) {
		t.Errorf("List = %q, want %q", l.List, want)
	}

	tests := []struct {
		label  string
		wantID string
		wantOK bool
	}{
		{"P-2", "P-2", true},
		{"9 — Alpha", "9", true},
		{"missing", "", false},
	}
	for _, tt := range tests {
		id, ok := l.ID(tt.label)
		if ok != tt.wantOK || id != tt.wantID {
			t.Errorf("ID(%q) = %q, %v, want %q, %v", tt.label, id, ok, tt.wantID, tt.wantOK)
		}
	}
}

func TestBuildLabels_CollisionLastWins(t *testing.T) {
	recs := records(t, `[
		{"project_id":"7 — x","title":""},
		{"project_id":7,"title":"x"}
	]`)
	l := BuildLabels(recs)
	if l.List[0] != l.List[1] {
		t.Fatalf("labels %q and %q differ", l.List[0], l.List[1])
	}
	// The later record overwrites the reverse lookup.
	if id, _ := l.ID("7 — x"); id != "7" {
		t.Errorf("ID(7 — x) = %q, want %q", id, "7")
	}
}

func TestSelectProject_ExampleScenario(t *testing.T) {
	recs := records(t, `[{"project_id": 1, "title": "Alpha", "objective": "Study X",
		"similar_projects_by_title": [{"project_id": 2, "title": "Beta"}]}]`)
	tbl := Flatten(recs)

	view, err := SelectProject(tbl, recs, "1")
	if err != nil {
		t.Fatalf("SelectProject() error: %v", err)
	}

	wantKV := [][]string{
		{"project_id", "1"},
		{"title", "Alpha"},
		{"objective", "Study X"},
	}
	if got := view.KV.Strings(); !reflect.DeepEqual(got, wantKV) {
		t.Errorf("KV = %v, want %v", got, wantKV)
	}
	if want := []string{"field", "value"}; !reflect.DeepEqual(view.KV.Columns, want) {
		t.Errorf("KV.Columns = %v, want %v", view.KV.Columns, want)
	}

	if want := []string{"project_id", "title"}; !reflect.DeepEqual(view.SimilarByTitle.Columns, want) {
		t.Errorf("SimilarByTitle.Columns = %v, want %v", view.SimilarByTitle.Columns, want)
	}
	if want := [][]string{{"2", "Beta"}}; !reflect.DeepEqual(view.SimilarByTitle.Strings(), want) {
		t.Errorf("SimilarByTitle = %v, want %v", view.SimilarByTitle.Strings(), want)
	}
	if n := view.SimilarByObjective.Len(); n != 0 {
		t.Errorf("SimilarByObjective.Len() = %d, want 0", n)
	}

	if !view.HasObjective || view.Objective != "Study X" {
		t.Errorf("Objective = %q (present %v), want %q", view.Objective, view.HasObjective, "Study X")
	}
	if view.HasNoMatches {
		t.Error("HasNoMatches = true, want false")
	}
}

// The selected row's project_id text equals the chosen id and is the first
// such row.
func TestSelectRow_Correctness(t *testing.T) {
	recs := records(t, `[
		{"project_id":"10","v":"a"},
		{"project_id":1,"v":"b"},
		{"project_id":"1","v":"c"},
		{"project_id":1.0,"v":"d"}
	]`)
	tbl := Flatten(recs)

	tests := []struct {
		id    string
		wantV string
	}{
		{"10", "a"},
		{"1", "b"},
		{"1.0", "d"},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			r, err := SelectRow(tbl, tt.id)
			if err != nil {
				t.Fatalf("SelectRow(%q) error: %v", tt.id, err)
			}
			if got := tbl.Cell(r, "project_id").Text(); got != tt.id {
				t.Errorf("project_id = %q, want %q", got, tt.id)
			}
			for i := 0; i < r; i++ {
				if tbl.Cell(i, "project_id").Text() == tt.id {
					t.Errorf("row %d precedes the selection with the same id", i)
				}
			}
			if got := tbl.Cell(r, "v").Text(); got != tt.wantV {
				t.Errorf("v = %q, want %q", got, tt.wantV)
			}
		})
	}

	if _, err := SelectRow(tbl, "nope"); !IsNotFound(err) {
		t.Errorf("SelectRow(nope) error = %v, want NotFoundError", err)
	}
}

func TestSelectProject_NestedAndFlags(t *testing.T) {
	recs := records(t, `[
		{"project_id":"A","objective":42,"no_matches":false,
		 "similar_projects_by_objective":[{"project_id":"B","score":{"value":0.9}}],
		 "similar_projects_by_title":[]},
		{"project_id":"C","no_matches":true,"similar_projects_by_title":"not a list"}
	]`)
	tbl := Flatten(recs)

	a, err := SelectProject(tbl, recs, "A")
	if err != nil {
		t.Fatalf("SelectProject(A) error: %v", err)
	}
	if a.HasObjective {
		t.Error("HasObjective = true for a non-string objective")
	}
	if !a.HasNoMatches || a.NoMatches != "false" {
		t.Errorf("NoMatches = %q (present %v), want %q", a.NoMatches, a.HasNoMatches, "false")
	}
	if n := a.SimilarByTitle.Len(); n != 0 {
		t.Errorf("SimilarByTitle.Len() = %d, want 0", n)
	}
	if want := []string{"project_id", "score.value"}; !reflect.DeepEqual(a.SimilarByObjective.Columns, want) {
		t.Errorf("SimilarByObjective.Columns = %v, want %v", a.SimilarByObjective.Columns, want)
	}
	for _, row := range a.KV.Strings() {
		if IsNestedColumn(row[0]) {
			t.Errorf("nested column %q in key/value table", row[0])
		}
	}

	c, err := SelectProject(tbl, recs, "C")
	if err != nil {
		t.Fatalf("SelectProject(C) error: %v", err)
	}
	if n := c.SimilarByTitle.Len(); n != 0 {
		t.Errorf("SimilarByTitle.Len() = %d, want 0", n)
	}
	if c.NoMatches != "true" {
		t.Errorf("NoMatches = %q, want %q", c.NoMatches, "true")
	}

	_, err = SelectProject(tbl, recs, "Z")
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("SelectProject(Z) error = %v, want *NotFoundError", err)
	}
	if nf.ID != "Z" {
		t.Errorf("ID = %q, want %q", nf.ID, "Z")
	}
}

func TestPartitionColumns(t *testing.T) {
	base, nested := PartitionColumns([]string{
		"project_id", "similar_projects_by_title", "meta.similar_projects_by_objective", "similar_projects_by_title_count",
	})
	if want := []string{"project_id", "similar_projects_by_title_count"}; !reflect.DeepEqual(base, want) {
		t.Errorf("base = %v, want %v", base, want)
	}
	if want := []string{"similar_projects_by_title", "meta.similar_projects_by_objective"}; !reflect.DeepEqual(nested, want) {
		t.Errorf("nested = %v, want %v", nested, want)
	}
}

func TestProjectView_Table(t *testing.T) {
	v := ProjectView{KV: NewTable([]string{"field", "value"}, nil)}

	tests := []struct {
		kind NestedKind
		want bool
	}{
		{KindMain, true},
		{"other", false},
	}
	for _, tt := range tests {
		if _, ok := v.Table(tt.kind); ok != tt.want {
			t.Errorf("Table(%s) ok = %v, want %v", tt.kind, ok, tt.want)
		}
	}
}
