package schedule

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestHeuristicScoreCombinesDelayAndOccupancy(t *testing.T) {
	h := NewHeuristicScorer()
	train := Train{ID: "T001", DelayMinutes: 15, CurrentKm: 3}
	sections := []Section{{ID: "SEC_1", StartKm: 0, EndKm: 10, Capacity: 2, Occupants: []string{"T001", "T002"}}}

	// (15/30 + 2/2) / 2 = 0.75
	if got := h.Score(train, sections); math.Abs(got-0.75) > 1e-9 {
		t.Errorf("score = %v, want 0.75", got)
	}
}

func TestHeuristicScoreClampsDelayTerm(t *testing.T) {
	h := NewHeuristicScorer()
	train := Train{ID: "T001", DelayMinutes: 120, CurrentKm: 3}
	sections := []Section{{ID: "SEC_1", StartKm: 0, EndKm: 10, Capacity: 2, Occupants: []string{"T001", "T002"}}}

	if got := h.Score(train, sections); got != 1.0 {
		t.Errorf("score = %v, want clamp at 1.0", got)
	}
}

func TestHeuristicScoreOutsideAnySection(t *testing.T) {
	h := NewHeuristicScorer()
	train := Train{ID: "T001", DelayMinutes: 15, CurrentKm: 99}
	sections := []Section{{ID: "SEC_1", StartKm: 0, EndKm: 10, Capacity: 2}}

	// Occupancy term is zero, leaving 0.5/2.
	if got := h.Score(train, sections); math.Abs(got-0.25) > 1e-9 {
		t.Errorf("score = %v, want 0.25", got)
	}
}

func TestSectionContainsInclusiveBounds(t *testing.T) {
	sec := Section{ID: "SEC_1", StartKm: 0, EndKm: 10}

	for _, km := range []float64{0, 5, 10} {
		if !sec.Contains(km) {
			t.Errorf("Contains(%v) = false, want true", km)
		}
	}
	if sec.Contains(10.1) {
		t.Error("Contains(10.1) = true, want false")
	}
}

func TestHeuristicScoreAtSectionEndKm(t *testing.T) {
	h := NewHeuristicScorer()
	train := Train{ID: "T001", DelayMinutes: 0, CurrentKm: 10}
	sections := []Section{{ID: "SEC_1", StartKm: 0, EndKm: 10, Capacity: 2, Occupants: []string{"T001", "T002"}}}

	// A train standing exactly at the section boundary still counts as an
	// occupant: (0 + 2/2) / 2 = 0.5.
	if got := h.Score(train, sections); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("score = %v, want 0.5", got)
	}
}

func TestLearnedScoreIsLogistic(t *testing.T) {
	l := NewLearnedScorer(ModelWeights{Bias: 0})
	train := Train{ID: "T001", CurrentKm: 99}

	if got := l.Score(train, nil); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("score with zero weights = %v, want 0.5", got)
	}

	l = NewLearnedScorer(ModelWeights{Delay: 4, Bias: -1})
	train.DelayMinutes = 30
	// z = 4*1 - 1 = 3; sigmoid(3) ≈ 0.9526
	if got := l.Score(train, nil); math.Abs(got-1/(1+math.Exp(-3))) > 1e-9 {
		t.Errorf("score = %v, want sigmoid(3)", got)
	}
}

func TestLoadLearnedScorer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	if err := os.WriteFile(path, []byte(`{"delay": 2.0, "occupancy": 1.5, "speed": 0.5, "bias": -1.0}`), 0o644); err != nil {
		t.Fatal(err)
	}

	l, err := LoadLearnedScorer(path)
	if err != nil {
		t.Fatalf("LoadLearnedScorer: %v", err)
	}
	if l.weights.Delay != 2.0 || l.weights.Bias != -1.0 {
		t.Errorf("weights = %+v, want loaded coefficients", l.weights)
	}
}

func TestLoadLearnedScorerMissingFile(t *testing.T) {
	if _, err := LoadLearnedScorer(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("expected error for missing model file")
	}
}
