package predict

import (
	"math"
	"testing"
	"time"

	"github.com/railcontrol/sectiontwin/internal/feed"
)

func snapshotAt(trains []feed.TrainRecord, signals []feed.SignalRecord) feed.Snapshot {
	return feed.Snapshot{
		Timestamp: time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC),
		Trains:    trains,
		Signals:   signals,
	}
}

func TestHeadwayConflict(t *testing.T) {
	p := NewPredictor(30)
	snap := snapshotAt([]feed.TrainRecord{
		{TrainID: "T001", CurrentNode: "SIG_001", CurrentSpeed: 60, Priority: 1},
		{TrainID: "T002", CurrentNode: "SIG_001", CurrentSpeed: 30, Priority: 2},
	}, nil)

	conflicts := p.PredictConflicts(snap)
	if len(conflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %d", len(conflicts))
	}

	c := conflicts[0]
	if c.Type != ConflictHeadway {
		t.Errorf("expected HEADWAY, got %s", c.Type)
	}
	// Speed diff 30 → probability clamped at 0.9, severity HIGH.
	if math.Abs(c.Probability-0.9) > 1e-9 {
		t.Errorf("expected probability 0.9, got %f", c.Probability)
	}
	if c.Severity != SeverityHigh {
		t.Errorf("expected HIGH severity, got %s", c.Severity)
	}
	// Delay = max(2, 30*0.2) = 6 minutes.
	if math.Abs(c.EstimatedDelayMinutes-6.0) > 1e-9 {
		t.Errorf("expected delay 6, got %f", c.EstimatedDelayMinutes)
	}
	if c.Trains[0] != "T001" || c.Trains[1] != "T002" {
		t.Errorf("expected fast train first, got %v", c.Trains)
	}
	if c.ID != "HEADWAY_T001_T002" {
		t.Errorf("unexpected conflict id %q", c.ID)
	}
}

func TestHeadwayNoConflictBelowThreshold(t *testing.T) {
	p := NewPredictor(30)
	snap := snapshotAt([]feed.TrainRecord{
		{TrainID: "T001", CurrentNode: "SIG_001", CurrentSpeed: 50},
		{TrainID: "T002", CurrentNode: "SIG_001", CurrentSpeed: 42},
	}, nil)

	if got := p.PredictConflicts(snap); len(got) != 0 {
		t.Errorf("speed diff 8 should not conflict, got %v", got)
	}
}

func TestPlatformConflictAtThreeOccupants(t *testing.T) {
	p := NewPredictor(30)
	snap := snapshotAt([]feed.TrainRecord{
		{TrainID: "T003", CurrentNode: "STN_A", Priority: 3},
		{TrainID: "T001", CurrentNode: "STN_A", Priority: 1},
		{TrainID: "T002", CurrentNode: "STN_A", Priority: 2},
	}, nil)

	conflicts := p.PredictConflicts(snap)
	if len(conflicts) != 1 {
		t.Fatalf("expected exactly 1 platform conflict, got %d", len(conflicts))
	}

	c := conflicts[0]
	if c.Type != ConflictPlatform {
		t.Errorf("expected PLATFORM, got %s", c.Type)
	}
	if c.Probability != 0.8 || c.Severity != SeverityHigh {
		t.Errorf("unexpected probability/severity: %f %s", c.Probability, c.Severity)
	}
	// 3 occupants, capacity 2 → 5.0 * 1 = 5.0 minutes.
	if c.EstimatedDelayMinutes != 5.0 {
		t.Errorf("expected delay 5.0, got %f", c.EstimatedDelayMinutes)
	}
	// Highest priority occupant leads the involved list.
	if c.Trains[0] != "T001" {
		t.Errorf("expected T001 first, got %v", c.Trains)
	}
}

func TestPlatformNoConflictAtCapacity(t *testing.T) {
	p := NewPredictor(30)
	snap := snapshotAt([]feed.TrainRecord{
		{TrainID: "T001", CurrentNode: "STN_A", Priority: 1},
		{TrainID: "T002", CurrentNode: "STN_A", Priority: 2},
	}, nil)

	if got := p.PredictConflicts(snap); len(got) != 0 {
		t.Errorf("two occupants fit the platform, got %v", got)
	}
}

func TestSignalConflictModerateSpeed(t *testing.T) {
	p := NewPredictor(30)
	snap := snapshotAt(
		[]feed.TrainRecord{{TrainID: "T001", CurrentNode: "JUN_001", CurrentSpeed: 45}},
		[]feed.SignalRecord{{SignalID: "SIG_001", Aspect: "RED"}},
	)

	conflicts := p.PredictConflicts(snap)
	if len(conflicts) != 1 {
		t.Fatalf("expected 1 signal conflict, got %d", len(conflicts))
	}

	c := conflicts[0]
	if c.Type != ConflictSignal {
		t.Errorf("expected SIGNAL, got %s", c.Type)
	}
	// 45 km/h: above 40 → probability 0.6; at most 60 → MEDIUM.
	if c.Probability != 0.6 {
		t.Errorf("expected probability 0.6, got %f", c.Probability)
	}
	if c.Severity != SeverityMedium {
		t.Errorf("expected MEDIUM, got %s", c.Severity)
	}
	if c.Location != "SIG_001" {
		t.Errorf("expected location SIG_001, got %s", c.Location)
	}
}

func TestSignalConflictIgnoresStationedAndSlowTrains(t *testing.T) {
	p := NewPredictor(30)
	snap := snapshotAt(
		[]feed.TrainRecord{
			{TrainID: "T001", CurrentNode: "STN_A", CurrentSpeed: 50}, // at station
			{TrainID: "T002", CurrentNode: "JUN_001", CurrentSpeed: 15}, // too slow
		},
		[]feed.SignalRecord{{SignalID: "SIG_001", Aspect: "RED"}},
	)

	if got := p.PredictConflicts(snap); len(got) != 0 {
		t.Errorf("expected no signal conflicts, got %v", got)
	}
}

func TestGreenSignalNoConflict(t *testing.T) {
	p := NewPredictor(30)
	snap := snapshotAt(
		[]feed.TrainRecord{{TrainID: "T001", CurrentNode: "JUN_001", CurrentSpeed: 80}},
		[]feed.SignalRecord{{SignalID: "SIG_001", Aspect: "GREEN"}},
	)

	if got := p.PredictConflicts(snap); len(got) != 0 {
		t.Errorf("expected no conflicts for GREEN signal, got %v", got)
	}
}

func TestScansConcatenate(t *testing.T) {
	p := NewPredictor(30)
	snap := snapshotAt(
		[]feed.TrainRecord{
			{TrainID: "T001", CurrentNode: "SIG_001", CurrentSpeed: 70, Priority: 1},
			{TrainID: "T002", CurrentNode: "SIG_001", CurrentSpeed: 30, Priority: 3},
		},
		[]feed.SignalRecord{{SignalID: "SIG_002", Aspect: "RED"}},
	)

	conflicts := p.PredictConflicts(snap)
	// One headway pair plus two signal-approach conflicts (both trains are
	// moving and not at a station; T002 at 30 km/h also exceeds 20).
	if len(conflicts) != 3 {
		t.Fatalf("expected 3 conflicts, got %d: %v", len(conflicts), conflicts)
	}
	if conflicts[0].Type != ConflictHeadway || conflicts[1].Type != ConflictSignal {
		t.Errorf("expected headway then signal conflicts, got %v, %v", conflicts[0].Type, conflicts[1].Type)
	}
}

func TestEmptySnapshotNoPanic(t *testing.T) {
	p := NewPredictor(0)
	if got := p.PredictConflicts(feed.Snapshot{}); len(got) != 0 {
		t.Errorf("expected no conflicts for empty snapshot, got %v", got)
	}
}
