package schedule

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// ConflictScorer estimates the probability that a train will be involved in
// a conflict over the planning horizon.
type ConflictScorer interface {
	Score(train Train, sections []Section) float64
}

// HeuristicScorer is the rule-based fallback estimate: the mean of the
// train's normalised schedule delay and the occupancy ratio of its current
// section, clamped to [0, 1].
type HeuristicScorer struct{}

func NewHeuristicScorer() *HeuristicScorer { return &HeuristicScorer{} }

func (h *HeuristicScorer) Score(train Train, sections []Section) float64 {
	delayTerm := math.Min(train.DelayMinutes/30, 1.0)
	return clamp01((delayTerm + occupancyRatio(train, sections)) / 2)
}

// ModelWeights are logistic-regression coefficients over the same features
// the heuristic uses, plus current speed.
type ModelWeights struct {
	Delay     float64 `json:"delay"`
	Occupancy float64 `json:"occupancy"`
	Speed     float64 `json:"speed"`
	Bias      float64 `json:"bias"`
}

// LearnedScorer scores with coefficients trained offline and loaded from a
// JSON file.
type LearnedScorer struct {
	weights ModelWeights
}

// LoadLearnedScorer reads model coefficients from path.
func LoadLearnedScorer(path string) (*LearnedScorer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading model file: %w", err)
	}
	var w ModelWeights
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("parsing model file %s: %w", path, err)
	}
	return &LearnedScorer{weights: w}, nil
}

// NewLearnedScorer wraps already-loaded coefficients.
func NewLearnedScorer(w ModelWeights) *LearnedScorer {
	return &LearnedScorer{weights: w}
}

func (l *LearnedScorer) Score(train Train, sections []Section) float64 {
	delayTerm := math.Min(train.DelayMinutes/30, 1.0)
	speedTerm := 0.0
	if train.MaxSpeed > 0 {
		speedTerm = train.CurrentSpeed / train.MaxSpeed
	}
	z := l.weights.Delay*delayTerm +
		l.weights.Occupancy*occupancyRatio(train, sections) +
		l.weights.Speed*speedTerm +
		l.weights.Bias
	return 1 / (1 + math.Exp(-z))
}

// occupancyRatio is occupants over capacity for the first section containing
// the train's position, clamped to 1. Zero when no section contains it.
func occupancyRatio(train Train, sections []Section) float64 {
	for _, sec := range sections {
		if !sec.Contains(train.CurrentKm) {
			continue
		}
		capacity := sec.Capacity
		if capacity < 1 {
			capacity = 1
		}
		return math.Min(float64(len(sec.Occupants))/float64(capacity), 1.0)
	}
	return 0
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
