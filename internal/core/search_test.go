package core

import (
	"reflect"
	"sort"
	"testing"
)

const searchDoc = `[
	{"project_id":"P1","title":"Solar panel efficiency","objective":"Improve photovoltaic output"},
	{"project_id":"P2","title":"Wind farm planning","objective":"Site selection for turbines"},
	{"project_id":"P3","title":"Battery storage","objective":"Store solar energy overnight"},
	{"project_id":"P4"}
]`

func TestSearchIndex(t *testing.T) {
	idx, err := BuildSearchIndex(records(t, searchDoc))
	if err != nil {
		t.Fatalf("BuildSearchIndex() error: %v", err)
	}
	defer idx.Close()

	tests := []struct {
		name  string
		query string
		limit int
		want  []int // sorted; nil only checks that hit is present
		hit   int
	}{
		{name: "word in title or objective", query: "solar", limit: 10, want: []int{0, 2}},
		{name: "title prefix", query: "Wi", limit: 10, want: []int{1}},
		{name: "exact project id", query: "P3", limit: 10, hit: 2},
		{name: "empty query", query: "  ", limit: 10, want: []int{}},
		{name: "no match", query: "zebra", limit: 10, want: []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits, err := idx.Search(tt.query, tt.limit)
			if err != nil {
				t.Fatalf("Search(%q) error: %v", tt.query, err)
			}
			if tt.want == nil {
				for _, h := range hits {
					if h == tt.hit {
						return
					}
				}
				t.Errorf("Search(%q) = %v, want it to contain %d", tt.query, hits, tt.hit)
				return
			}
			got := append([]int{}, hits...)
			sort.Ints(got)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Search(%q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}

	t.Run("limit", func(t *testing.T) {
		hits, err := idx.Search("solar", 1)
		if err != nil {
			t.Fatalf("Search() error: %v", err)
		}
		if len(hits) != 1 {
			t.Errorf("len(Search(solar, 1)) = %d, want 1", len(hits))
		}
	})
}

func TestFilterLabels(t *testing.T) {
	l := BuildLabels(records(t, searchDoc))

	tests := []struct {
		query string
		limit int
		want  []int
	}{
		{"", 0, []int{0, 1, 2, 3}},
		{"WIND", 0, []int{1}},
		{"p", 1, []int{0}},
	}
	for _, tt := range tests {
		if got := FilterLabels(l, tt.query, tt.limit); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("FilterLabels(%q, %d) = %v, want %v", tt.query, tt.limit, got, tt.want)
		}
	}
}

func TestSearchIndex_NilClose(t *testing.T) {
	var idx *SearchIndex
	if err := idx.Close(); err != nil {
		t.Errorf("Close() on nil index error: %v", err)
	}
}
