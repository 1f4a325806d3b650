package schedule

import (
	"context"
	"reflect"
	"testing"
)

func planningTrains() []Train {
	return []Train{
		{ID: "T001", Priority: PriorityMailExpress, CurrentKm: 2},
		{ID: "T002", Priority: PriorityPassenger, CurrentKm: 4},
		{ID: "T003", Priority: PriorityFreight, CurrentKm: 6},
	}
}

func TestSeparationOrdersByPriority(t *testing.T) {
	s := NewConstraintSolver()
	trains := planningTrains()[:2]
	sections := []Section{{ID: "SEC_1", StartKm: 0, EndKm: 10, Capacity: 5, Occupants: []string{"T001", "T002"}}}

	res, err := s.Solve(context.Background(), trains, sections, ObjectiveMinimizeDelay, 60)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if res.Status != StatusOptimal {
		t.Fatalf("status = %s, want OPTIMAL", res.Status)
	}
	if res.Delays["T001"] != 0 || res.Delays["T002"] != 5 {
		t.Errorf("delays = %v, want T001=0 T002=5", res.Delays)
	}
	if res.Objective != 5 {
		t.Errorf("objective = %v, want 5", res.Objective)
	}
}

func TestCapacityAndSeparationChain(t *testing.T) {
	s := NewConstraintSolver()
	trains := planningTrains()
	sections := []Section{{ID: "SEC_1", StartKm: 0, EndKm: 10, Capacity: 2, Occupants: []string{"T001", "T002", "T003"}}}

	res, err := s.Solve(context.Background(), trains, sections, ObjectiveMinimizeDelay, 60)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	want := map[string]int{"T001": 0, "T002": 5, "T003": 10}
	if !reflect.DeepEqual(res.Delays, want) {
		t.Errorf("delays = %v, want %v", res.Delays, want)
	}
	if res.Objective != 15 {
		t.Errorf("objective = %v, want 15", res.Objective)
	}
}

func TestThroughputObjectiveIsMaxDelay(t *testing.T) {
	s := NewConstraintSolver()
	trains := planningTrains()
	sections := []Section{{ID: "SEC_1", StartKm: 0, EndKm: 10, Capacity: 2, Occupants: []string{"T001", "T002", "T003"}}}

	res, err := s.Solve(context.Background(), trains, sections, ObjectiveMaximizeThroughput, 60)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if res.Objective != 10 {
		t.Errorf("objective = %v, want max delay 10", res.Objective)
	}
}

func TestEqualPriorityTieBreaksOnInputOrder(t *testing.T) {
	s := NewConstraintSolver()
	trains := []Train{
		{ID: "T010", Priority: PriorityPassenger},
		{ID: "T011", Priority: PriorityPassenger},
	}
	sections := []Section{{ID: "SEC_1", StartKm: 0, EndKm: 10, Capacity: 5, Occupants: []string{"T010", "T011"}}}

	res, err := s.Solve(context.Background(), trains, sections, ObjectiveMinimizeDelay, 60)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if res.Delays["T010"] != 0 || res.Delays["T011"] != 5 {
		t.Errorf("delays = %v, want first-listed train to proceed", res.Delays)
	}
}

func TestInfeasibleWhenBoundExceedsHorizon(t *testing.T) {
	s := NewConstraintSolver()
	trains := planningTrains()
	sections := []Section{{ID: "SEC_1", StartKm: 0, EndKm: 10, Capacity: 2, Occupants: []string{"T001", "T002", "T003"}}}

	res, err := s.Solve(context.Background(), trains, sections, ObjectiveMinimizeDelay, 8)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if res.Status != StatusInfeasible {
		t.Fatalf("status = %s, want INFEASIBLE", res.Status)
	}
	if len(res.Delays) != 0 {
		t.Errorf("delays = %v, want empty on infeasible", res.Delays)
	}
}

func TestExpiredDeadlineReportsFeasible(t *testing.T) {
	s := NewConstraintSolver()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	trains := planningTrains()[:2]
	sections := []Section{{ID: "SEC_1", StartKm: 0, EndKm: 10, Capacity: 5, Occupants: []string{"T001", "T002"}}}

	res, err := s.Solve(ctx, trains, sections, ObjectiveMinimizeDelay, 60)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if res.Status != StatusFeasible {
		t.Errorf("status = %s, want FEASIBLE when deadline expired", res.Status)
	}
}

func TestSolveIsDeterministic(t *testing.T) {
	s := NewConstraintSolver()
	trains := planningTrains()
	sections := []Section{
		{ID: "SEC_1", StartKm: 0, EndKm: 5, Capacity: 1, Occupants: []string{"T001", "T002"}},
		{ID: "SEC_2", StartKm: 5, EndKm: 10, Capacity: 2, Occupants: []string{"T002", "T003"}},
	}

	first, err := s.Solve(context.Background(), trains, sections, ObjectiveMinimizeDelay, 60)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	second, err := s.Solve(context.Background(), trains, sections, ObjectiveMinimizeDelay, 60)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated solve differs: %v vs %v", first, second)
	}
}

func TestUnknownOccupantsIgnored(t *testing.T) {
	s := NewConstraintSolver()
	trains := planningTrains()[:1]
	sections := []Section{{ID: "SEC_1", StartKm: 0, EndKm: 10, Capacity: 1, Occupants: []string{"GHOST", "T001"}}}

	res, err := s.Solve(context.Background(), trains, sections, ObjectiveMinimizeDelay, 60)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if res.Delays["T001"] != 0 {
		t.Errorf("delay = %d, want 0 once unknown occupant is dropped", res.Delays["T001"])
	}
}
