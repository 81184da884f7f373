package core

import (
	"context"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TestPGAudit runs against a real database when TEST_DATABASE_URL is set.
func TestPGAudit(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("pgxpool.New() error: %v", err)
	}
	defer pool.Close()

	audit, err := NewPGAudit(ctx, pool)
	if err != nil {
		t.Fatalf("NewPGAudit() error: %v", err)
	}

	c := testCollection(t, `[{"project_id":1}]`).WithFailure("bad.json", &DecodeError{Source: "bad.json", Stage: "json"})
	ev := NewLoadEvent(ContextWithIPAddress(ctx, "127.0.0.1"), NewSessionID(), ChannelUpload, false, c)
	if err := audit.RecordLoad(ctx, ev); err != nil {
		t.Fatalf("RecordLoad() error: %v", err)
	}
	defer func() {
		if _, err := pool.Exec(ctx, `DELETE FROM load_audit WHERE id = $1`, toPgUUID(ev.ID)); err != nil {
			t.Errorf("cleanup error: %v", err)
		}
	}()

	recent, err := audit.RecentLoads(ctx, 500)
	if err != nil {
		t.Fatalf("RecentLoads() error: %v", err)
	}

	var found *LoadEvent
	for i := range recent {
		if recent[i].ID == ev.ID {
			found = &recent[i]
		}
	}
	if found == nil {
		t.Fatalf("RecentLoads() does not include event %s", ev.ID)
	}
	if !reflect.DeepEqual(found.Sources, ev.Sources) {
		t.Errorf("Sources = %v, want %v", found.Sources, ev.Sources)
	}
	if !reflect.DeepEqual(found.Failed, ev.Failed) {
		t.Errorf("Failed = %v, want %v", found.Failed, ev.Failed)
	}
	if found.IPAddress != "127.0.0.1" {
		t.Errorf("IPAddress = %q, want %q", found.IPAddress, "127.0.0.1")
	}
	if found.Channel != ChannelUpload {
		t.Errorf("Channel = %q, want %q", found.Channel, ChannelUpload)
	}
}
