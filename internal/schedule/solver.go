package schedule

import (
	"context"
	"sort"
)

// Minimum headway between trains sharing a section, and the hold imposed on
// trains beyond a section's capacity, both in minutes.
const (
	minHeadwayMinutes   = 5
	capacityHoldMinutes = 10
)

// Status classifies a solve outcome.
type Status string

const (
	StatusOptimal    Status = "OPTIMAL"
	StatusFeasible   Status = "FEASIBLE"
	StatusInfeasible Status = "INFEASIBLE"
)

// ScheduleResult carries a per-train delay assignment and its objective value.
type ScheduleResult struct {
	Status    Status
	Delays    map[string]int
	Objective float64
}

// Scheduler solves a delay-assignment problem before the context deadline.
// Implementations must be deterministic for identical inputs.
type Scheduler interface {
	Solve(ctx context.Context, trains []Train, sections []Section, objective Objective, horizonMinutes int) (ScheduleResult, error)
}

// ConstraintSolver assigns delays by propagating lower bounds to a fixpoint.
//
// Every constraint is a lower bound on some train's delay: capacity pushes
// over-capacity occupants to at least 10 minutes, and separation pushes the
// lower-precedence train of each section-sharing pair to at least the other's
// delay plus the minimum headway. Bounds only ever increase, and separation
// edges point from higher to lower precedence, so iteration reaches the
// componentwise-minimal feasible assignment. That assignment minimises both
// the delay sum and the delay maximum at once.
type ConstraintSolver struct{}

// NewConstraintSolver creates a solver.
func NewConstraintSolver() *ConstraintSolver { return &ConstraintSolver{} }

// separation orders a pair: the train at 'after' must trail the train at
// 'before' by the minimum headway.
type separation struct {
	before, after string
}

// Solve computes the minimal feasible delay assignment. It returns
// StatusInfeasible when any required delay exceeds the horizon, and
// StatusFeasible when the deadline expires before the fixpoint is reached.
func (s *ConstraintSolver) Solve(ctx context.Context, trains []Train, sections []Section, objective Objective, horizonMinutes int) (ScheduleResult, error) {
	if horizonMinutes <= 0 {
		horizonMinutes = 60
	}

	order := make(map[string]int, len(trains))
	delays := make(map[string]int, len(trains))
	for i, t := range trains {
		order[t.ID] = i
		delays[t.ID] = 0
	}
	priority := make(map[string]Priority, len(trains))
	for _, t := range trains {
		priority[t.ID] = t.Priority
	}

	var seps []separation
	for _, sec := range sections {
		occupants := make([]string, 0, len(sec.Occupants))
		for _, id := range sec.Occupants {
			if _, ok := order[id]; ok {
				occupants = append(occupants, id)
			}
		}

		for i, id := range occupants {
			if i >= sec.Capacity {
				if delays[id] < capacityHoldMinutes {
					delays[id] = capacityHoldMinutes
				}
			}
			for _, other := range occupants[i+1:] {
				seps = append(seps, orderPair(id, other, priority, order))
			}
		}
	}

	// Separation edges always point toward lower precedence, so the
	// dependency graph is acyclic and the fixpoint arrives within one pass
	// per train.
	status := StatusOptimal
	for pass := 0; pass < len(trains)+1; pass++ {
		if ctx.Err() != nil {
			status = StatusFeasible
			break
		}
		changed := false
		for _, sep := range seps {
			if want := delays[sep.before] + minHeadwayMinutes; delays[sep.after] < want {
				delays[sep.after] = want
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	for _, d := range delays {
		if d > horizonMinutes {
			return ScheduleResult{Status: StatusInfeasible, Delays: map[string]int{}}, nil
		}
	}

	return ScheduleResult{
		Status:    status,
		Delays:    delays,
		Objective: objectiveValue(delays, objective),
	}, nil
}

// orderPair decides which train of a section-sharing pair must wait: the
// lower-precedence train, with input order breaking priority ties.
func orderPair(a, b string, priority map[string]Priority, order map[string]int) separation {
	if priority[a] < priority[b] {
		return separation{before: a, after: b}
	}
	if priority[b] < priority[a] {
		return separation{before: b, after: a}
	}
	if order[a] < order[b] {
		return separation{before: a, after: b}
	}
	return separation{before: b, after: a}
}

func objectiveValue(delays map[string]int, objective Objective) float64 {
	if objective == ObjectiveMaximizeThroughput {
		max := 0
		for _, d := range delays {
			if d > max {
				max = d
			}
		}
		return float64(max)
	}
	sum := 0
	for _, d := range delays {
		sum += d
	}
	return float64(sum)
}

// SortedTrainIDs returns a result's train IDs in lexical order, for stable
// reporting.
func (r ScheduleResult) SortedTrainIDs() []string {
	ids := make([]string, 0, len(r.Delays))
	for id := range r.Delays {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
