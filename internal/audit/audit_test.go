package audit

import (
	"context"
	"path/filepath"
	"testing"
)

func TestAppendAndRecentRoundTrip(t *testing.T) {
	dir := t.TempDir()
	log, err := Open(filepath.Join(dir, "audit.db"))
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	defer log.Close()

	ctx := context.Background()
	if err := log.Append(ctx, 1000, 5, "Alice", EventJoin); err != nil {
		t.Fatalf("Append error: %v", err)
	}

	events, err := log.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent error: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("Recent returned %d events, want 1", len(events))
	}
	if events[0].Name != "Alice" || events[0].Kind != EventJoin || events[0].Pid != 5 {
		t.Errorf("event = %+v, want Alice/join/pid=5", events[0])
	}
}
