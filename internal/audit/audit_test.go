package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type blockingSink struct {
	release chan struct{}
	mu      sync.Mutex
	got     []Event
}

func (s *blockingSink) Emit(_ context.Context, e Event) {
	<-s.release
	s.mu.Lock()
	s.got = append(s.got, e)
	s.mu.Unlock()
}

func TestDisabledDispatcherIsNil(t *testing.T) {
	d := NewDispatcher(Config{Enabled: false}, NoOpSink{})
	if d != nil {
		t.Fatal("expected nil dispatcher")
	}
	d.Emit(context.Background(), Event{EventType: "x"})
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("nil dispatcher must report zero drops")
	}
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{})}
	var onDrop int
	d := NewDispatcher(Config{
		Enabled:    true,
		BufferSize: 1,
		DropIfFull: true,
		OnDrop:     func(Event) { onDrop++ },
	}, sink)

	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), Event{EventType: "login_failure"})
	}
	close(sink.release)
	d.Close()

	if d.Dropped() == 0 {
		t.Fatal("expected drops with a blocked sink")
	}
	if uint64(onDrop) != d.Dropped() {
		t.Fatalf("OnDrop called %d times, dropped=%d", onDrop, d.Dropped())
	}
	if uint64(len(sink.got))+d.Dropped() != 10 {
		t.Fatalf("delivered=%d dropped=%d", len(sink.got), d.Dropped())
	}
}

func TestCloseDrainsBufferedEvents(t *testing.T) {
	ch := NewChannelSink(16)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 16}, ch)
	for i := 0; i < 5; i++ {
		d.Emit(context.Background(), Event{EventType: "refresh_success", Success: true})
	}
	d.Close()

	if len(ch.Events()) != 5 {
		t.Fatalf("expected 5 delivered events, got %d", len(ch.Events()))
	}
	d.Emit(context.Background(), Event{EventType: "late"})
	if len(ch.Events()) != 5 {
		t.Fatal("emit after close must be ignored")
	}
}

func TestJSONWriterSink(t *testing.T) {
	var buf bytes.Buffer
	s := NewJSONWriterSink(&buf)
	s.Emit(context.Background(), Event{
		Timestamp:  time.Unix(0, 0).UTC(),
		EventType:  "logout",
		UserID:     "u1",
		TenantSlug: "acme",
		Success:    true,
	})

	line := strings.TrimSpace(buf.String())
	var decoded map[string]any
	if err := json.Unmarshal([]byte(line), &decoded); err != nil {
		t.Fatalf("invalid json line %q: %v", line, err)
	}
	if decoded["event_type"] != "logout" || decoded["tenant_slug"] != "acme" {
		t.Fatalf("unexpected payload: %v", decoded)
	}
	if _, ok := decoded["error"]; ok {
		t.Fatal("empty error must be omitted")
	}
}

func TestZapSinkLevels(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	s := NewZapSink(zap.New(core))

	s.Emit(context.Background(), Event{EventType: "login_success", Success: true, UserID: "u1"})
	s.Emit(context.Background(), Event{EventType: "login_failure", Error: "invalid credentials"})

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Level != zap.InfoLevel || entries[1].Level != zap.WarnLevel {
		t.Fatalf("unexpected levels: %v %v", entries[0].Level, entries[1].Level)
	}
	if entries[1].ContextMap()["error"] != "invalid credentials" {
		t.Fatalf("missing error field: %v", entries[1].ContextMap())
	}
}
