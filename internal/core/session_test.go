package core

import (
	"context"
	"reflect"
	"sort"
	"testing"
	"time"
)

func testCollection(t *testing.T, doc string) Collection {
	t.Helper()
	c, err := LoadSources([]Input{{Name: "t.json", Data: []byte(doc)}})
	if err != nil {
		t.Fatalf("LoadSources() error: %v", err)
	}
	return c
}

func sortedInts(in []int) []int {
	out := append([]int(nil), in...)
	sort.Ints(out)
	return out
}

func TestNewSession(t *testing.T) {
	s := NewSession("sid", testCollection(t, searchDoc), SessionOptions{Search: true})
	defer s.close()

	if n := s.Table.Len(); n != 4 {
		t.Errorf("Table.Len() = %d, want 4", n)
	}
	if n := s.Labels.Len(); n != 4 {
		t.Errorf("Labels.Len() = %d, want 4", n)
	}
	if s.Search == nil {
		t.Fatal("Search = nil with search enabled")
	}

	info, ok := s.Columns.Column("title")
	if !ok {
		t.Fatal("Columns.Column(title) not found")
	}
	if info.Kind != KindCategorical {
		t.Errorf("title Kind = %s, want %s", info.Kind, KindCategorical)
	}

	view, err := s.Project("P2")
	if err != nil {
		t.Fatalf("Project(P2) error: %v", err)
	}
	if want := "Site selection for turbines"; view.Objective != want {
		t.Errorf("Objective = %q, want %q", view.Objective, want)
	}

	if got := sortedInts(s.SearchLabels("solar", 10)); !reflect.DeepEqual(got, []int{0, 2}) {
		t.Errorf("SearchLabels(solar) = %v, want [0 2]", got)
	}
	// An empty query lists every label regardless of the limit.
	if n := len(s.SearchLabels("", 2)); n != 4 {
		t.Errorf("len(SearchLabels(\"\", 2)) = %d, want 4", n)
	}

	filtered, err := s.Filter(FilterSpec{Categorical: map[string][]string{"project_id": {"P4"}}})
	if err != nil {
		t.Fatalf("Filter() error: %v", err)
	}
	if n := filtered.Len(); n != 1 {
		t.Errorf("Filter().Len() = %d, want 1", n)
	}
}

func TestSession_SearchDisabledUsesLabels(t *testing.T) {
	s := NewSession("sid", testCollection(t, searchDoc), SessionOptions{})
	if s.Search != nil {
		t.Error("Search != nil with search disabled")
	}
	if got := s.SearchLabels("wind", 10); !reflect.DeepEqual(got, []int{1}) {
		t.Errorf("SearchLabels(wind) = %v, want [1]", got)
	}
}

func TestSessionStore(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	st := NewSessionStore(time.Hour)
	st.now = func() time.Time { return now }

	a := &Session{ID: "a"}
	b := &Session{ID: "b"}
	st.Put("a", a)
	st.Put("b", b)

	if got, ok := st.Get("a"); !ok || got != a {
		t.Fatalf("Get(a) = %p, %v, want %p, true", got, ok, a)
	}
	if _, ok := st.Get("missing"); ok {
		t.Error("Get(missing) ok = true")
	}

	now = now.Add(45 * time.Minute)
	st.Get("b") // touch b only

	// a has been idle for 75 minutes.
	now = now.Add(30 * time.Minute)
	if n := st.Sweep(); n != 1 {
		t.Errorf("Sweep() = %d, want 1", n)
	}
	if _, ok := st.Get("a"); ok {
		t.Error("a survived the sweep")
	}
	if _, ok := st.Get("b"); !ok {
		t.Error("b was swept")
	}

	replacement := &Session{ID: "b"}
	st.Put("b", replacement)
	if got, _ := st.Get("b"); got != replacement {
		t.Error("Put did not replace b")
	}

	st.Delete("b")
	if n := st.Len(); n != 0 {
		t.Errorf("Len() = %d after Delete, want 0", n)
	}
}

func TestSessionStore_SweeperStops(t *testing.T) {
	st := NewSessionStore(time.Millisecond)
	st.Put("x", &Session{ID: "x"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		st.StartSweeper(ctx, 5*time.Millisecond)
		close(done)
	}()

	deadline := time.Now().Add(time.Second)
	for st.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("sweeper did not remove the idle session")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestSessionIDs(t *testing.T) {
	id := NewSessionID()

	tests := []struct {
		id   string
		want bool
	}{
		{id, true},
		{"not-a-uuid", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := ValidSessionID(tt.id); got != tt.want {
			t.Errorf("ValidSessionID(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
	if id == NewSessionID() {
		t.Error("NewSessionID() returned the same id twice")
	}
}
