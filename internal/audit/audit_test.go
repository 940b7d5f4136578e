package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blockingSink struct {
	release chan struct{}
	got     chan Event
}

func (s *blockingSink) Emit(_ context.Context, e Event) {
	<-s.release
	s.got <- e
}

func TestDispatcherDeliversAndDrains(t *testing.T) {
	sink := NewChannelSink(8)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 4}, sink, nil)

	d.Emit(context.Background(), Event{EventType: "login_success", Success: true})
	d.Emit(context.Background(), Event{EventType: "logout"})
	d.Close()

	first := <-sink.Events()
	second := <-sink.Events()
	assert.Equal(t, "login_success", first.EventType)
	assert.Equal(t, "logout", second.EventType)

	// Emit after Close is a no-op.
	d.Emit(context.Background(), Event{EventType: "late"})
	select {
	case e := <-sink.Events():
		t.Fatalf("unexpected event after close: %+v", e)
	default:
	}
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{}), got: make(chan Event, 16)}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink, nil)

	// The relay goroutine holds at most one event while blocked and the buffer one more.
	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), Event{EventType: "e"})
	}
	assert.GreaterOrEqual(t, d.Dropped(), uint64(8))

	close(sink.release)
	d.Close()
}

type panickySink struct{ got chan Event }

func (s *panickySink) Emit(_ context.Context, e Event) {
	if e.EventType == "boom" {
		panic("sink failure")
	}
	s.got <- e
}

func TestDispatcherSurvivesPanickingSink(t *testing.T) {
	log, hook := test.NewNullLogger()
	sink := &panickySink{got: make(chan Event, 4)}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 4}, sink, log)

	d.Emit(context.Background(), Event{EventType: "boom"})
	d.Emit(context.Background(), Event{EventType: "logout"})
	d.Close()

	assert.Equal(t, "logout", (<-sink.got).EventType)
	assert.Equal(t, uint64(1), d.Dropped())
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "audit_sink_panic", hook.LastEntry().Message)
	assert.Equal(t, "boom", hook.LastEntry().Data["event_type"])
}

func TestBlockingEmitGivesUpWithContext(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{}), got: make(chan Event, 16)}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1}, sink, nil)

	// One event parks in the sink, one fills the buffer.
	d.Emit(context.Background(), Event{EventType: "a"})
	d.Emit(context.Background(), Event{EventType: "b"})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	d.Emit(ctx, Event{EventType: "c"})
	assert.Equal(t, uint64(1), d.Dropped())

	close(sink.release)
	d.Close()
	d.Close()
}

func TestDisabledDispatcherIsNil(t *testing.T) {
	d := NewDispatcher(Config{Enabled: false}, NoOpSink{}, nil)
	require.Nil(t, d)
	d.Emit(context.Background(), Event{})
	d.Close()
	assert.Zero(t, d.Dropped())
}

func TestJSONWriterSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)
	sink.Emit(context.Background(), Event{
		Timestamp: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		EventType: "login_failure",
		AccountID: "acc-1",
		Error:     "invalid_credentials",
	})

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &decoded))
	assert.Equal(t, "login_failure", decoded["event_type"])
	assert.Equal(t, "acc-1", decoded["account_id"])
	assert.Equal(t, false, decoded["success"])
	assert.NotContains(t, decoded, "ip")
}

func TestLogrusSinkLevels(t *testing.T) {
	log, hook := test.NewNullLogger()
	sink := NewLogrusSink(log)

	sink.Emit(context.Background(), Event{EventType: "login_success", Success: true, AccountID: "a1"})
	sink.Emit(context.Background(), Event{EventType: "login_failure", Error: "account_locked", Metadata: map[string]string{"identifier": "x@y.z"}})

	entries := hook.AllEntries()
	require.Len(t, entries, 2)
	assert.Equal(t, logrus.InfoLevel, entries[0].Level)
	assert.Equal(t, "a1", entries[0].Data["account_id"])
	assert.Equal(t, logrus.WarnLevel, entries[1].Level)
	assert.Equal(t, "account_locked", entries[1].Data["error_code"])
	assert.Equal(t, "x@y.z", entries[1].Data["meta_identifier"])
	assert.Equal(t, "audit", entries[1].Data["component"])
}

func TestFileSinkAppendsJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	sink := NewFileSink(FileConfig{Path: path, MaxSizeMB: 1})

	d := NewDispatcher(Config{Enabled: true, BufferSize: 4}, sink, nil)
	d.Emit(context.Background(), Event{EventType: "login_success", AccountID: "acc-1", Success: true})
	d.Emit(context.Background(), Event{EventType: "logout", AccountID: "acc-1"})
	d.Close()
	require.NoError(t, sink.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 2)

	var first Event
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "login_success", first.EventType)
	assert.True(t, first.Success)
}
