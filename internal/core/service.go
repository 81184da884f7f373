package core

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// LoadTimeout bounds one load, fetches included.
var LoadTimeout = 5 * time.Minute

// ServiceConfig holds the pipeline settings used by Service.
type ServiceConfig struct {
	MaxSourceBytes int64 // per-source cap for uploads and pastes; 0 disables
	Search         bool  // build a search index per session
}

// Service ties the pipeline to per-session state: it runs loads under the
// load limiter, installs the resulting Session and audits the load.
type Service struct {
	sessions *SessionStore
	limiter  *LoadLimiter
	fetcher  *Fetcher
	audit    AuditSink
	cfg      ServiceConfig

	mu    sync.Mutex
	locks map[string]*sessionLock
}

// sessionLock serializes loads into one session.
type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// NewService creates a Service. A nil audit sink disables auditing.
func NewService(sessions *SessionStore, limiter *LoadLimiter, fetcher *Fetcher, audit AuditSink, cfg ServiceConfig) *Service {
	if audit == nil {
		audit = NopAudit{}
	}
	return &Service{
		sessions: sessions,
		limiter:  limiter,
		fetcher:  fetcher,
		audit:    audit,
		cfg:      cfg,
		locks:    make(map[string]*sessionLock),
	}
}

// Sessions returns the session store.
func (s *Service) Sessions() *SessionStore { return s.sessions }

// Limiter returns the load limiter.
func (s *Service) Limiter() *LoadLimiter { return s.limiter }

// Audit returns the audit sink.
func (s *Service) Audit() AuditSink { return s.audit }

// LoadRequest describes one load into a session.
type LoadRequest struct {
	SessionID string
	Channel   LoadChannel
	Inputs    []Input  // uploaded files or pasted text
	URLs      []string // remote sources, fetched in order after Inputs

	// Append keeps the current collection and adds the new sources after it.
	Append bool
}

// LoadResult is the outcome of a load. Collection carries the per-source
// reports even when the load failed.
type LoadResult struct {
	Session    *Session
	Collection Collection
}

// Load runs req and installs the new session. When no records result the
// previous session is left in place and the error is ErrEmptyCollection.
func (s *Service) Load(ctx context.Context, req LoadRequest) (LoadResult, error) {
	if len(req.Inputs) == 0 && len(req.URLs) == 0 {
		return LoadResult{}, ErrNoInput
	}

	var res LoadResult
	err := s.limiter.Do(ctx, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, LoadTimeout)
		defer cancel()

		c := s.collect(ctx, req)

		// Reading the previous session and installing the new one must not
		// interleave with another load into the same session.
		unlock := s.lockSession(req.SessionID)
		defer unlock()

		if req.Append {
			if prev, ok := s.sessions.Get(req.SessionID); ok {
				c = prev.Collection.Append(c)
			}
		}
		res.Collection = c

		s.recordAudit(ctx, req, c)

		if err := c.Check(); err != nil {
			return err
		}
		res.Session = NewSession(req.SessionID, c, SessionOptions{Search: s.cfg.Search})
		s.sessions.Put(req.SessionID, res.Session)
		return nil
	})
	if err != nil {
		return res, err
	}

	slog.InfoContext(ctx, "load completed",
		"session_id", req.SessionID,
		"channel", req.Channel,
		"records", len(res.Collection.Records),
		"failed_sources", len(res.Collection.Failed()),
		"append", req.Append,
	)
	return res, nil
}

// lockSession locks the load slot for id and returns its unlock func.
// Entries are dropped once no load holds or waits on them.
func (s *Service) lockSession(id string) func() {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sessionLock{}
		s.locks[id] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, id)
		}
		s.mu.Unlock()
	}
}

func (s *Service) collect(ctx context.Context, req LoadRequest) Collection {
	var c Collection
	for _, in := range req.Inputs {
		if s.cfg.MaxSourceBytes > 0 && int64(len(in.Data)) > s.cfg.MaxSourceBytes {
			c = c.WithFailure(in.Name, fmt.Errorf("%s: %w (limit %d bytes)", in.Name, ErrFileTooLarge, s.cfg.MaxSourceBytes))
			continue
		}
		loaded, _ := LoadSources([]Input{in})
		c = c.Append(loaded)
	}
	for _, u := range req.URLs {
		if s.fetcher == nil {
			c = c.WithFailure(u, &FetchError{URL: u, Err: fmt.Errorf("remote sources are disabled")})
			continue
		}
		in, err := s.fetcher.Fetch(ctx, u)
		if err != nil {
			c = c.WithFailure(u, err)
			continue
		}
		loaded, _ := LoadSources([]Input{in})
		c = c.Append(loaded)
	}
	return c
}

func (s *Service) recordAudit(ctx context.Context, req LoadRequest, c Collection) {
	ev := NewLoadEvent(ctx, req.SessionID, req.Channel, req.Append, c)
	if err := s.audit.RecordLoad(ctx, ev); err != nil {
		slog.ErrorContext(ctx, "load audit failed", "session_id", req.SessionID, "error", err)
	}
}

// Session returns the current session for id or ErrNoSession.
func (s *Service) Session(id string) (*Session, error) {
	sess, ok := s.sessions.Get(id)
	if !ok {
		return nil, ErrNoSession
	}
	return sess, nil
}

// Clear forgets the session for id.
func (s *Service) Clear(id string) {
	s.sessions.Delete(id)
}
