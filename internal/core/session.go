package core

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/projview/internal/jsonval"
)

// Session is the state derived from one load. It is built once and never
// modified; reloading builds a new Session that replaces it.
type Session struct {
	ID       string
	LoadedAt time.Time

	Collection Collection
	Table      Table
	Labels     Labels
	Columns    Classification

	// Search is nil when indexing was disabled or failed.
	Search *SearchIndex
}

// SessionOptions control derived-state construction.
type SessionOptions struct {
	Search bool
}

// NewSession derives every view of c: the flat table, labels, column
// classification and, when enabled, the search index. Index failures only
// disable search.
func NewSession(id string, c Collection, opts SessionOptions) *Session {
	s := &Session{
		ID:         id,
		LoadedAt:   time.Now(),
		Collection: c,
		Table:      Flatten(c.Records),
		Labels:     BuildLabels(c.Records),
	}
	s.Columns = Classify(s.Table)

	log := slog.Default().With("session_id", id)
	if s.Table.Shallow {
		log.Warn("flatten fell back to top-level columns", "error", s.Table.FallbackErr)
	}
	for _, info := range s.Columns.Excluded() {
		log.Warn("column excluded from filters", "column", info.Name, "error", info.Err)
	}

	if opts.Search {
		idx, err := BuildSearchIndex(c.Records)
		if err != nil {
			log.Error("search index disabled", "error", err)
		} else {
			s.Search = idx
		}
	}

	log.Debug("session built",
		"records", len(c.Records),
		"columns", len(s.Table.Columns),
		"shallow", s.Table.Shallow,
	)
	return s
}

// Records returns the original records in collection order.
func (s *Session) Records() []jsonval.Value { return s.Collection.Records }

// Project builds the view of project id.
func (s *Session) Project(id string) (ProjectView, error) {
	return SelectProject(s.Table, s.Collection.Records, id)
}

// Filter applies spec to the flat table.
func (s *Session) Filter(spec FilterSpec) (Table, error) {
	return ApplyFilter(s.Table, s.Columns, spec)
}

// SearchLabels returns label positions matching query, at most limit. An
// empty query lists every label in record order.
func (s *Session) SearchLabels(query string, limit int) []int {
	if s.Search != nil && query != "" {
		hits, err := s.Search.Search(query, limit)
		if err == nil {
			return hits
		}
		slog.Warn("search failed, using label match", "session_id", s.ID, "error", err)
	}
	if query == "" {
		limit = 0
	}
	return FilterLabels(s.Labels, query, limit)
}

// close releases resources held by the session.
func (s *Session) close() {
	if s != nil {
		_ = s.Search.Close()
	}
}

// NewSessionID returns a fresh random session identifier.
func NewSessionID() string {
	return uuid.NewString()
}

// ValidSessionID reports whether id looks like one issued by NewSessionID.
func ValidSessionID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

type sessionEntry struct {
	session  *Session
	lastSeen time.Time
}

// SessionStore holds the current Session of every browser session.
type SessionStore struct {
	mu      sync.Mutex
	entries map[string]*sessionEntry
	idle    time.Duration
	now     func() time.Time
}

// NewSessionStore creates a store that forgets sessions idle longer than idle.
func NewSessionStore(idle time.Duration) *SessionStore {
	if idle <= 0 {
		idle = 2 * time.Hour
	}
	return &SessionStore{
		entries: make(map[string]*sessionEntry),
		idle:    idle,
		now:     time.Now,
	}
}

// Get returns the session for id and marks it as used.
func (st *SessionStore) Get(id string) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	e, ok := st.entries[id]
	if !ok || e.session == nil {
		return nil, false
	}
	e.lastSeen = st.now()
	return e.session, true
}

// Put installs s as the session for id, releasing the one it replaces.
func (st *SessionStore) Put(id string, s *Session) {
	st.mu.Lock()
	old := st.entries[id]
	st.entries[id] = &sessionEntry{session: s, lastSeen: st.now()}
	st.mu.Unlock()

	if old != nil && old.session != s {
		old.session.close()
	}
}

// Delete forgets id.
func (st *SessionStore) Delete(id string) {
	st.mu.Lock()
	old := st.entries[id]
	delete(st.entries, id)
	st.mu.Unlock()

	if old != nil {
		old.session.close()
	}
}

// Len returns the number of stored sessions.
func (st *SessionStore) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.entries)
}

// Sweep removes sessions idle longer than the store's idle timeout and
// returns how many were removed.
func (st *SessionStore) Sweep() int {
	cutoff := st.now().Add(-st.idle)

	st.mu.Lock()
	var expired []*Session
	for id, e := range st.entries {
		if e.lastSeen.Before(cutoff) {
			expired = append(expired, e.session)
			delete(st.entries, id)
		}
	}
	st.mu.Unlock()

	for _, s := range expired {
		s.close()
	}
	return len(expired)
}

// StartSweeper evicts idle sessions every interval until ctx is cancelled.
func (st *SessionStore) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	slog.Info("session sweeper started", "interval", interval, "idle_timeout", st.idle)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("session sweeper stopped")
			return
		case <-ticker.C:
			start := time.Now()
			if n := st.Sweep(); n > 0 {
				slog.Info("expired idle sessions",
					"sessions_removed", n,
					"sessions_remaining", st.Len(),
					"duration_ms", time.Since(start).Milliseconds(),
				)
			}
		}
	}
}
