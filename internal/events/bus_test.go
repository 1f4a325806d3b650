package events

import (
	"errors"
	"testing"
	"time"
)

func TestEmitAndRecent(t *testing.T) {
	bus := NewBus(8)

	if _, err := bus.Emit("info", "system.startup", "starting", nil); err != nil {
		t.Fatalf("emit failed: %v", err)
	}
	if _, err := bus.Emit("info", "ingest.applied", "", map[string]interface{}{"trains": 3}); err != nil {
		t.Fatalf("emit failed: %v", err)
	}

	recent := bus.Recent(1)
	if len(recent) != 1 {
		t.Fatalf("expected 1 event, got %d", len(recent))
	}
	if recent[0].Name != "ingest.applied" {
		t.Errorf("expected ingest.applied, got %s", recent[0].Name)
	}
	if len(bus.Snapshot()) != 2 {
		t.Errorf("expected 2 buffered events, got %d", len(bus.Snapshot()))
	}
}

func TestEmitRejectsUnknownEvent(t *testing.T) {
	bus := NewBus(8)
	if _, err := bus.Emit("info", "not.a.real.event", "", nil); err == nil {
		t.Error("expected error for unregistered event name")
	}
}

func TestSubscriberReceivesEvents(t *testing.T) {
	bus := NewBus(8)
	sub := bus.Subscribe()
	defer bus.Unsubscribe(sub)

	if _, err := bus.Emit("info", "analysis.started", "", nil); err != nil {
		t.Fatalf("emit failed: %v", err)
	}

	select {
	case e := <-sub:
		if e.Name != "analysis.started" {
			t.Errorf("expected analysis.started, got %s", e.Name)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive event")
	}
}

func TestSlowSubscriberDoesNotBlockEmit(t *testing.T) {
	bus := NewBus(8)
	sub := bus.Subscribe()
	defer bus.Unsubscribe(sub)

	// Overflow the subscriber buffer; Emit must never block.
	for i := 0; i < 200; i++ {
		if _, err := bus.Emit("info", "feed.snapshot", "", nil); err != nil {
			t.Fatalf("emit %d failed: %v", i, err)
		}
	}
}

func TestRingBufferWraps(t *testing.T) {
	rb := NewRingBuffer(4)
	for i := 0; i < 6; i++ {
		rb.Add(Event{Name: "system.startup", Message: string(rune('a' + i))})
	}
	got := rb.Snapshot()
	if len(got) != 4 {
		t.Fatalf("expected 4 events, got %d", len(got))
	}
	if got[0].Message != "c" || got[3].Message != "f" {
		t.Errorf("unexpected wrap order: %v", got)
	}
}

type capturingStore struct {
	runIDs []string
}

func (c *capturingStore) Append(ts time.Time, level, name, msg string, fields map[string]interface{}, runID string) error {
	c.runIDs = append(c.runIDs, runID)
	return nil
}

func TestStoreReceivesRunID(t *testing.T) {
	bus := NewBus(16)
	store := &capturingStore{}
	bus.SetStore(store)

	if _, err := bus.Emit("info", "analysis.started", "", map[string]interface{}{"run_id": "run-42"}); err != nil {
		t.Fatalf("emit failed: %v", err)
	}
	if _, err := bus.Emit("info", "system.startup", "", nil); err != nil {
		t.Fatalf("emit failed: %v", err)
	}

	if len(store.runIDs) != 2 {
		t.Fatalf("appends = %d, want 2", len(store.runIDs))
	}
	if store.runIDs[0] != "run-42" {
		t.Errorf("run id = %q, want run-42", store.runIDs[0])
	}
	if store.runIDs[1] != "" {
		t.Errorf("run id = %q, want empty for events without one", store.runIDs[1])
	}
}

type failingStore struct{ calls int }

func (f *failingStore) Append(ts time.Time, level, name, msg string, fields map[string]interface{}, runID string) error {
	f.calls++
	return errors.New("append failed")
}

func TestStoreFailureLoggedOnce(t *testing.T) {
	bus := NewBus(16)
	store := &failingStore{}
	bus.SetStore(store)

	for i := 0; i < 3; i++ {
		if _, err := bus.Emit("info", "system.startup", "", nil); err != nil {
			t.Fatalf("emit failed: %v", err)
		}
	}

	errCount := 0
	for _, e := range bus.Snapshot() {
		if e.Name == "system.error" {
			errCount++
		}
	}
	if errCount != 1 {
		t.Errorf("expected exactly one system.error event, got %d", errCount)
	}
}
