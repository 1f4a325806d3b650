package schedule

import (
	"context"
	"fmt"
	"math"
	"time"
)

const (
	defaultHorizonMinutes = 60
	defaultSolveBudget    = 30 * time.Second

	// Refinement thresholds on the conflict-risk score.
	holdRiskThreshold    = 0.7
	releaseRiskThreshold = 0.3
)

// Optimizer runs the delay solver and refines its plan with a conflict-risk
// score per train.
type Optimizer struct {
	scheduler      Scheduler
	scorer         ConflictScorer
	objective      Objective
	horizonMinutes int
	solveBudget    time.Duration
}

// NewOptimizer builds an optimizer. Zero horizon or budget fall back to the
// defaults (60 min, 30 s).
func NewOptimizer(scheduler Scheduler, scorer ConflictScorer, objective Objective, horizonMinutes int, solveBudget time.Duration) *Optimizer {
	if horizonMinutes <= 0 {
		horizonMinutes = defaultHorizonMinutes
	}
	if solveBudget <= 0 {
		solveBudget = defaultSolveBudget
	}
	if objective == "" {
		objective = ObjectiveMinimizeDelay
	}
	return &Optimizer{
		scheduler:      scheduler,
		scorer:         scorer,
		objective:      objective,
		horizonMinutes: horizonMinutes,
		solveBudget:    solveBudget,
	}
}

// Optimize solves for per-train delays and maps them to recommendations:
// zero delay means PROCEED, anything else a HOLD of that duration. A
// post-solve refinement converts high-risk PROCEEDs to holds and shortens
// low-risk holds. Solver failure yields an unsuccessful result with an
// infinite objective and no recommendations.
func (o *Optimizer) Optimize(ctx context.Context, trains []Train, sections []Section) OptimizationResult {
	start := time.Now()

	solveCtx, cancel := context.WithTimeout(ctx, o.solveBudget)
	defer cancel()

	res, err := o.scheduler.Solve(solveCtx, trains, sections, o.objective, o.horizonMinutes)
	if err != nil || res.Status == StatusInfeasible {
		return OptimizationResult{
			Success:         false,
			ObjectiveValue:  math.Inf(1),
			Recommendations: []Recommendation{},
			Explanation:     fmt.Sprintf("no feasible schedule within %d minute horizon", o.horizonMinutes),
			Confidence:      0,
			ComputationTime: time.Since(start),
		}
	}

	baseConfidence := 0.9
	if res.Status == StatusFeasible {
		baseConfidence = 0.7
	}

	recs := make([]Recommendation, 0, len(trains))
	for _, t := range trains {
		delay := res.Delays[t.ID]
		rec := Recommendation{
			TrainID:        t.ID,
			Action:         ActionProceed,
			Reason:         fmt.Sprintf("optimize %s", o.objective),
			PriorityImpact: t.Priority.String(),
		}
		if delay > 0 {
			rec.Action = ActionHold
			rec.DurationMinutes = delay
		}
		recs = append(recs, o.refine(rec, t, sections))
	}

	return OptimizationResult{
		Success:         true,
		ObjectiveValue:  res.Objective,
		Recommendations: recs,
		Explanation:     fmt.Sprintf("%s schedule for %d trains over %d sections (%s)", res.Status, len(trains), len(sections), o.objective),
		Confidence:      math.Min(0.95, baseConfidence+0.1),
		ComputationTime: time.Since(start),
	}
}

// refine applies the conflict-risk pass to one recommendation.
func (o *Optimizer) refine(rec Recommendation, train Train, sections []Section) Recommendation {
	risk := o.scorer.Score(train, sections)
	rec.ConflictRisk = risk

	switch {
	case risk > holdRiskThreshold && rec.Action == ActionProceed:
		rec.Action = ActionHold
		rec.DurationMinutes = int(math.Max(5, math.Round(risk*15)))
		rec.Reason = fmt.Sprintf("high conflict risk (%.2f)", risk)
	case risk < releaseRiskThreshold && rec.Action == ActionHold:
		rec.DurationMinutes -= 5
		if rec.DurationMinutes < 0 {
			rec.DurationMinutes = 0
		}
	}
	return rec
}
