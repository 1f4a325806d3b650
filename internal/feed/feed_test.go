package feed

import (
	"testing"
	"time"
)

func TestParseSnapshot(t *testing.T) {
	payload := []byte(`{
		"timestamp": "2026-08-28T10:00:00Z",
		"trains": [
			{"train_id": "T001", "current_node": "STN_A", "current_speed": 45.0, "priority": 1},
			{"train_id": "T002", "current_node": "SIG_001", "current_speed": 60.0}
		],
		"signals": [
			{"signal_id": "SIG_001", "aspect": "RED"}
		],
		"section_status": {"BLK_001": "T001"}
	}`)

	snap, err := Parse(payload)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if len(snap.Trains) != 2 {
		t.Fatalf("expected 2 trains, got %d", len(snap.Trains))
	}
	if snap.Trains[0].Priority != 1 {
		t.Errorf("expected priority 1, got %d", snap.Trains[0].Priority)
	}
	// Missing priority defaults to freight level.
	if snap.Trains[1].Priority != 3 {
		t.Errorf("expected default priority 3, got %d", snap.Trains[1].Priority)
	}
	if snap.SectionStatus["BLK_001"] != "T001" {
		t.Errorf("unexpected section status: %v", snap.SectionStatus)
	}
	want := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	if !snap.Timestamp.Equal(want) {
		t.Errorf("unexpected timestamp: %v", snap.Timestamp)
	}
}

func TestParseRejectsInvalidJSON(t *testing.T) {
	if _, err := Parse([]byte("{not json")); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestNormalizeDefaults(t *testing.T) {
	snap := Snapshot{
		Trains: []TrainRecord{
			{TrainID: "T001", CurrentSpeed: -5},
			{TrainID: ""}, // no ID: dropped
			{TrainID: "T003", CurrentNode: "STN_B", Priority: 2},
		},
		Signals: []SignalRecord{
			{SignalID: "SIG_001", Aspect: "GREEN"},
			{SignalID: ""}, // dropped
		},
	}
	snap.Normalize()

	if len(snap.Trains) != 2 {
		t.Fatalf("expected 2 trains after normalization, got %d", len(snap.Trains))
	}
	if snap.Trains[0].CurrentNode != UnknownNode {
		t.Errorf("expected UNKNOWN node, got %q", snap.Trains[0].CurrentNode)
	}
	if snap.Trains[0].CurrentSpeed != 0 {
		t.Errorf("negative speed should clamp to 0, got %f", snap.Trains[0].CurrentSpeed)
	}
	if len(snap.Signals) != 1 {
		t.Errorf("expected 1 signal after normalization, got %d", len(snap.Signals))
	}
	if snap.Timestamp.IsZero() {
		t.Error("zero timestamp should default to now")
	}
}
