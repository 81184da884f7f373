package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LoadChannel is how a load reached the server.
type LoadChannel string

const (
	ChannelUpload LoadChannel = "upload"
	ChannelPaste  LoadChannel = "paste"
	ChannelURL    LoadChannel = "url"
)

// LoadEvent is one audited load. Record content is never stored; only source
// names and counts.
type LoadEvent struct {
	ID        string      `json:"id"`
	SessionID string      `json:"sessionId"`
	Channel   LoadChannel `json:"channel"`
	Append    bool        `json:"append"`
	Sources   []string    `json:"sources"`
	Failed    []string    `json:"failed,omitempty"` // "name (CODE)"
	Records   int         `json:"records"`
	IPAddress string      `json:"ipAddress,omitempty"`
	UserAgent string      `json:"userAgent,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
}

// NewLoadEvent summarizes a collection for the audit trail. Request metadata
// is read from ctx.
func NewLoadEvent(ctx context.Context, sessionID string, channel LoadChannel, appendLoad bool, c Collection) LoadEvent {
	ev := LoadEvent{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Channel:   channel,
		Append:    appendLoad,
		Records:   len(c.Records),
		IPAddress: GetIPAddressFromContext(ctx),
		UserAgent: GetUserAgentFromContext(ctx),
		CreatedAt: time.Now().UTC(),
	}
	for _, r := range c.Reports {
		ev.Sources = append(ev.Sources, r.Name)
		if r.Err != nil {
			ev.Failed = append(ev.Failed, fmt.Sprintf("%s (%s)", r.Name, MapError(r.Err).Code))
		}
	}
	return ev
}

// AuditSink records load events.
type AuditSink interface {
	RecordLoad(ctx context.Context, ev LoadEvent) error
	RecentLoads(ctx context.Context, limit int) ([]LoadEvent, error)
}

// NopAudit discards events. It is used when no database is configured.
type NopAudit struct{}

func (NopAudit) RecordLoad(context.Context, LoadEvent) error { return nil }

func (NopAudit) RecentLoads(context.Context, int) ([]LoadEvent, error) { return nil, nil }

// PGAudit stores load events in the load_audit table.
type PGAudit struct {
	pool *pgxpool.Pool
}

const createLoadAuditTable = `
CREATE TABLE IF NOT EXISTS load_audit (
	id          UUID PRIMARY KEY,
	session_id  TEXT NOT NULL,
	channel     TEXT NOT NULL,
	append_load BOOLEAN NOT NULL DEFAULT FALSE,
	sources     TEXT[] NOT NULL,
	failed      TEXT[] NOT NULL DEFAULT '{}',
	records     INTEGER NOT NULL,
	ip_address  TEXT,
	user_agent  TEXT,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS load_audit_created_at_idx ON load_audit (created_at DESC);
`

// NewPGAudit creates the load_audit table if missing and returns the sink.
func NewPGAudit(ctx context.Context, pool *pgxpool.Pool) (*PGAudit, error) {
	if _, err := pool.Exec(ctx, createLoadAuditTable); err != nil {
		return nil, fmt.Errorf("create load_audit table: %w", err)
	}
	return &PGAudit{pool: pool}, nil
}

// RecordLoad inserts ev.
func (a *PGAudit) RecordLoad(ctx context.Context, ev LoadEvent) error {
	failed := ev.Failed
	if failed == nil {
		failed = []string{}
	}
	_, err := a.pool.Exec(ctx, `
		INSERT INTO load_audit
			(id, session_id, channel, append_load, sources, failed, records, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		toPgUUID(ev.ID), ev.SessionID, string(ev.Channel), ev.Append, ev.Sources, failed,
		ev.Records, toPgText(ev.IPAddress), toPgText(ev.UserAgent), ev.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert load_audit: %w", err)
	}
	return nil
}

// RecentLoads returns the newest events first.
func (a *PGAudit) RecentLoads(ctx context.Context, limit int) ([]LoadEvent, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := a.pool.Query(ctx, `
		SELECT id, session_id, channel, append_load, sources, failed, records, ip_address, user_agent, created_at
		FROM load_audit
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query load_audit: %w", err)
	}
	defer rows.Close()

	var out []LoadEvent
	for rows.Next() {
		var (
			ev        LoadEvent
			id        pgtype.UUID
			channel   string
			ip, agent pgtype.Text
		)
		if err := rows.Scan(&id, &ev.SessionID, &channel, &ev.Append, &ev.Sources, &ev.Failed,
			&ev.Records, &ip, &agent, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan load_audit: %w", err)
		}
		ev.ID = uuidToString(id)
		ev.Channel = LoadChannel(channel)
		ev.IPAddress = ip.String
		ev.UserAgent = agent.String
		out = append(out, ev)
	}
	return out, rows.Err()
}

func toPgText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

func toPgUUID(s string) pgtype.UUID {
	parsed, err := uuid.Parse(s)
	if err != nil {
		return pgtype.UUID{Valid: false}
	}
	return pgtype.UUID{Bytes: parsed, Valid: true}
}

func uuidToString(u pgtype.UUID) string {
	if !u.Valid {
		return ""
	}
	return uuid.UUID(u.Bytes).String()
}
