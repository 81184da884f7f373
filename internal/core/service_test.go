package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sort"
	"sync"
	"testing"
	"time"
)

type memAudit struct {
	mu     sync.Mutex
	events []LoadEvent
	err    error
}

func (m *memAudit) RecordLoad(_ context.Context, ev LoadEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return m.err
}

func (m *memAudit) RecentLoads(context.Context, int) ([]LoadEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]LoadEvent(nil), m.events...), nil
}

func newTestService(t *testing.T, audit AuditSink) *Service {
	t.Helper()
	return NewService(
		NewSessionStore(time.Hour),
		NewLoadLimiter(2, time.Second),
		// httptest listens on loopback.
		NewFetcher(FetchConfig{Timeout: 2 * time.Second, AllowPrivate: true}, nil),
		audit,
		ServiceConfig{MaxSourceBytes: 1 << 20, Search: true},
	)
}

func mustLoad(t *testing.T, svc *Service, req LoadRequest) LoadResult {
	t.Helper()
	res, err := svc.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("Load(%s) error: %v", req.SessionID, err)
	}
	return res
}

func TestService_LoadAndReplace(t *testing.T) {
	audit := &memAudit{}
	svc := newTestService(t, audit)
	ctx := ContextWithIPAddress(context.Background(), "10.0.0.1")

	res, err := svc.Load(ctx, LoadRequest{
		SessionID: "s1",
		Channel:   ChannelUpload,
		Inputs: []Input{
			{Name: "a.json", Data: []byte(`[{"project_id":"A"}]`)},
			{Name: "bad.json", Data: []byte(`{`)},
		},
	})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if n := res.Session.Table.Len(); n != 1 {
		t.Errorf("Table.Len() = %d, want 1", n)
	}
	if n := len(res.Collection.Failed()); n != 1 {
		t.Errorf("len(Failed()) = %d, want 1", n)
	}

	sess, err := svc.Session("s1")
	if err != nil {
		t.Fatalf("Session() error: %v", err)
	}
	if sess != res.Session {
		t.Error("Session() did not return the installed session")
	}

	if len(audit.events) != 1 {
		t.Fatalf("len(audit.events) = %d, want 1", len(audit.events))
	}
	ev := audit.events[0]
	if want := []string{"a.json", "bad.json"}; !reflect.DeepEqual(ev.Sources, want) {
		t.Errorf("Sources = %v, want %v", ev.Sources, want)
	}
	if want := []string{"bad.json (DEC003)"}; !reflect.DeepEqual(ev.Failed, want) {
		t.Errorf("Failed = %v, want %v", ev.Failed, want)
	}
	if ev.IPAddress != "10.0.0.1" {
		t.Errorf("IPAddress = %q, want %q", ev.IPAddress, "10.0.0.1")
	}
	if ev.Records != 1 {
		t.Errorf("Records = %d, want 1", ev.Records)
	}

	// A reload replaces the session wholesale.
	mustLoad(t, svc, LoadRequest{SessionID: "s1", Channel: ChannelPaste,
		Inputs: []Input{{Name: "paste", Data: []byte(`{"projects":[{"project_id":"B"},{"project_id":"C"}]}`)}}})
	sess, _ = svc.Session("s1")
	if want := []string{"B", "C"}; !reflect.DeepEqual(sess.Labels.IDs, want) {
		t.Errorf("Labels.IDs = %v, want %v", sess.Labels.IDs, want)
	}
}

func TestService_AppendMergesAfterExisting(t *testing.T) {
	svc := newTestService(t, nil)

	mustLoad(t, svc, LoadRequest{SessionID: "s", Channel: ChannelUpload,
		Inputs: []Input{{Name: "a", Data: []byte(`[{"project_id":"A"}]`)}}})

	res := mustLoad(t, svc, LoadRequest{SessionID: "s", Channel: ChannelUpload, Append: true,
		Inputs: []Input{{Name: "b", Data: []byte(`[{"project_id":"B","extra":{"x":1}}]`)}}})
	if want := []string{"A", "B"}; !reflect.DeepEqual(res.Session.Labels.IDs, want) {
		t.Errorf("Labels.IDs = %v, want %v", res.Session.Labels.IDs, want)
	}
	if want := []string{"project_id", "extra.x"}; !reflect.DeepEqual(res.Session.Table.Columns, want) {
		t.Errorf("Columns = %v, want %v", res.Session.Table.Columns, want)
	}
	if n := len(res.Collection.Reports); n != 2 {
		t.Errorf("len(Reports) = %d, want 2", n)
	}
}

// Concurrent appends into one session all land; none overwrites another.
func TestService_ConcurrentAppends(t *testing.T) {
	svc := newTestService(t, nil)
	svc.cfg.Search = false
	mustLoad(t, svc, LoadRequest{SessionID: "s", Channel: ChannelPaste,
		Inputs: []Input{{Name: "base", Data: []byte(`[{"project_id":"base"}]`)}}})

	const loads = 12
	var wg sync.WaitGroup
	errs := make(chan error, loads)
	for i := 0; i < loads; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Load(context.Background(), LoadRequest{
				SessionID: "s",
				Channel:   ChannelPaste,
				Append:    true,
				Inputs:    []Input{{Name: fmt.Sprintf("p%d", i), Data: []byte(fmt.Sprintf(`[{"project_id":"p%d"}]`, i))}},
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("Load() error: %v", err)
		}
	}

	sess, err := svc.Session("s")
	if err != nil {
		t.Fatalf("Session() error: %v", err)
	}
	got := append([]string(nil), sess.Labels.IDs...)
	sort.Strings(got)
	want := []string{"base"}
	for i := 0; i < loads; i++ {
		want = append(want, fmt.Sprintf("p%d", i))
	}
	sort.Strings(want)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Labels.IDs = %v, want %v", got, want)
	}
	if n := len(sess.Collection.Reports); n != loads+1 {
		t.Errorf("len(Reports) = %d, want %d", n, loads+1)
	}

	svc.mu.Lock()
	left := len(svc.locks)
	svc.mu.Unlock()
	if left != 0 {
		t.Errorf("len(locks) = %d after all loads, want 0", left)
	}
}

func TestService_FailedLoadKeepsPreviousSession(t *testing.T) {
	svc := newTestService(t, nil)

	first := mustLoad(t, svc, LoadRequest{SessionID: "s", Channel: ChannelUpload,
		Inputs: []Input{{Name: "a", Data: []byte(`[{"project_id":"A"}]`)}}})

	res, err := svc.Load(context.Background(), LoadRequest{SessionID: "s", Channel: ChannelUpload,
		Inputs: []Input{{Name: "x", Data: []byte(`"nope"`)}}})
	if !errors.Is(err, ErrEmptyCollection) {
		t.Fatalf("Load() error = %v, want ErrEmptyCollection", err)
	}
	if len(res.Collection.Reports) != 1 {
		t.Fatalf("len(Reports) = %d, want 1", len(res.Collection.Reports))
	}
	var se *ShapeError
	if !errors.As(res.Collection.Reports[0].Err, &se) {
		t.Errorf("Reports[0].Err = %v, want *ShapeError", res.Collection.Reports[0].Err)
	}

	sess, err := svc.Session("s")
	if err != nil {
		t.Fatalf("Session() error: %v", err)
	}
	if sess != first.Session {
		t.Error("failed load replaced the previous session")
	}
}

func TestService_Errors(t *testing.T) {
	svc := newTestService(t, &memAudit{err: errors.New("db down")})
	ctx := context.Background()

	if _, err := svc.Load(ctx, LoadRequest{SessionID: "s"}); !errors.Is(err, ErrNoInput) {
		t.Errorf("Load(no input) error = %v, want ErrNoInput", err)
	}
	if _, err := svc.Session("none"); !errors.Is(err, ErrNoSession) {
		t.Errorf("Session(none) error = %v, want ErrNoSession", err)
	}

	svc.cfg.MaxSourceBytes = 4
	res, err := svc.Load(ctx, LoadRequest{SessionID: "s", Channel: ChannelUpload,
		Inputs: []Input{{Name: "big.json", Data: []byte(`[{"project_id":1}]`)}}})
	if !errors.Is(err, ErrEmptyCollection) {
		t.Errorf("Load(oversized) error = %v, want ErrEmptyCollection", err)
	}
	if !errors.Is(res.Collection.Reports[0].Err, ErrFileTooLarge) {
		t.Errorf("Reports[0].Err = %v, want ErrFileTooLarge", res.Collection.Reports[0].Err)
	}

	// Audit failures never fail the load.
	svc.cfg.MaxSourceBytes = 0
	if _, err := svc.Load(ctx, LoadRequest{SessionID: "s", Channel: ChannelUpload,
		Inputs: []Input{{Name: "ok.json", Data: []byte(`[{"project_id":1}]`)}}}); err != nil {
		t.Errorf("Load() error = %v, want nil", err)
	}

	svc.Clear("s")
	if _, err := svc.Session("s"); !errors.Is(err, ErrNoSession) {
		t.Errorf("Session(after Clear) error = %v, want ErrNoSession", err)
	}
}

func TestService_LoadURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ok.json" {
			_, _ = w.Write([]byte(`[{"project_id":"R1","title":"Remote"}]`))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	svc := newTestService(t, nil)
	res := mustLoad(t, svc, LoadRequest{
		SessionID: "s",
		Channel:   ChannelURL,
		URLs:      []string{srv.URL + "/ok.json", srv.URL + "/fail.json"},
	})
	if want := []string{"R1 — Remote"}; !reflect.DeepEqual(res.Session.Labels.List, want) {
		t.Errorf("Labels.List = %v, want %v", res.Session.Labels.List, want)
	}

	failed := res.Collection.Failed()
	if len(failed) != 1 {
		t.Fatalf("len(Failed()) = %d, want 1", len(failed))
	}
	var fe *FetchError
	if !errors.As(failed[0].Err, &fe) {
		t.Fatalf("Failed()[0].Err = %v, want *FetchError", failed[0].Err)
	}
	if fe.StatusCode != http.StatusInternalServerError {
		t.Errorf("StatusCode = %d, want %d", fe.StatusCode, http.StatusInternalServerError)
	}
}

func TestNewLoadEvent(t *testing.T) {
	ctx := ContextWithUserAgent(context.Background(), "curl/8")
	c := testCollection(t, `[{"project_id":1},{"project_id":2}]`).WithFailure("u", &FetchError{URL: "u", StatusCode: 404})

	ev := NewLoadEvent(ctx, "sid", ChannelURL, true, c)
	if ev.ID == "" {
		t.Error("ID is empty")
	}
	if ev.Records != 2 {
		t.Errorf("Records = %d, want 2", ev.Records)
	}
	if want := []string{"t.json", "u"}; !reflect.DeepEqual(ev.Sources, want) {
		t.Errorf("Sources = %v, want %v", ev.Sources, want)
	}
	if want := []string{"u (FETCH001)"}; !reflect.DeepEqual(ev.Failed, want) {
		t.Errorf("Failed = %v, want %v", ev.Failed, want)
	}
	if ev.UserAgent != "curl/8" {
		t.Errorf("UserAgent = %q, want %q", ev.UserAgent, "curl/8")
	}
	if !ev.Append {
		t.Error("Append = false, want true")
	}

	var nop NopAudit
	if err := nop.RecordLoad(ctx, ev); err != nil {
		t.Errorf("NopAudit.RecordLoad() error: %v", err)
	}
	evs, err := nop.RecentLoads(ctx, 10)
	if err != nil {
		t.Errorf("NopAudit.RecentLoads() error: %v", err)
	}
	if len(evs) != 0 {
		t.Errorf("NopAudit.RecentLoads() = %v, want none", evs)
	}
}
