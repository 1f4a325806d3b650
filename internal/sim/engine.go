// Package sim implements the what-if simulation engine: forward simulation
// of a single train's motion over the section topology under a hypothetical
// operator action. Runs are pure computations over a state copy and are safe
// to execute concurrently.
package sim

import (
	"errors"
	"fmt"
	"time"

	"github.com/railcontrol/sectiontwin/internal/events"
	"github.com/railcontrol/sectiontwin/internal/state"
	"github.com/railcontrol/sectiontwin/internal/topology"
)

// Errors raised for invalid what-if requests.
var (
	ErrTrainNotFound     = errors.New("train not found")
	ErrUnsupportedAction = errors.New("unsupported action")
)

// Action is a hypothetical operator intervention.
type Action string

const (
	ActionHold    Action = "HOLD"
	ActionReroute Action = "REROUTE"
)

// timeStep is the simulation step for motion integration, seconds.
const timeStep = 5.0

// maxSimSpeedKmH caps simulated speed regardless of train capability.
const maxSimSpeedKmH = 120.0

// Scenario describes one what-if request.
type Scenario struct {
	Name            string `json:"name,omitempty"`
	TrainID         string `json:"train_id"`
	Action          Action `json:"action"`
	DurationMinutes int    `json:"duration_minutes"`
	TargetNode      string `json:"target_node,omitempty"`
}

// Impact summarizes the estimated operational consequences of a scenario.
// The reroute figures are fixed estimates pending a route-delta computation
// from the topology model; the field shape is the stable contract.
type Impact struct {
	DelayAddedMinutes       float64  `json:"delay_added_minutes"`
	AffectedTrains          []string `json:"affected_trains"`
	CapacityImpact          string   `json:"capacity_impact,omitempty"`
	EstimatedRecoveryMin    float64  `json:"estimated_recovery_time,omitempty"`
	RouteChange             bool     `json:"route_change,omitempty"`
	AdditionalDistanceKm    float64  `json:"additional_distance_km,omitempty"`
	TimeImpactMinutes       float64  `json:"time_impact_minutes,omitempty"`
	CapacityFreed           []string `json:"capacity_freed,omitempty"`
}

// Result is the outcome of a simulated scenario.
type Result struct {
	Scenario        Scenario           `json:"scenario"`
	PredictedStates []state.TrainState `json:"predicted_states"`
	Impact          Impact             `json:"impact_analysis"`
}

// Engine simulates train motion over a frozen topology.
type Engine struct {
	topo *topology.Topology
	bus  *events.Bus
}

// NewEngine creates a simulation engine. bus may be nil.
func NewEngine(topo *topology.Topology, bus *events.Bus) *Engine {
	return &Engine{topo: topo, bus: bus}
}

// Run simulates the scenario starting from the given train state. The caller
// is responsible for resolving the train; Run only fails for an unknown
// action.
func (e *Engine) Run(sc Scenario, ts state.TrainState) (Result, error) {
	switch sc.Action {
	case ActionHold:
		return e.runHold(sc, ts), nil
	case ActionReroute:
		return e.runReroute(sc, ts), nil
	default:
		return Result{}, fmt.Errorf("%w: %q", ErrUnsupportedAction, sc.Action)
	}
}

// runHold pins the train in place: one sample per simulated minute with
// speed and acceleration zeroed and position unchanged.
func (e *Engine) runHold(sc Scenario, ts state.TrainState) Result {
	now := time.Now()
	states := make([]state.TrainState, 0, sc.DurationMinutes+1)
	for minute := 0; minute <= sc.DurationMinutes; minute++ {
		held := ts
		held.CurrentSpeed = 0
		held.TargetSpeed = 0
		held.Acceleration = 0
		held.LastUpdate = now.Add(time.Duration(minute) * time.Minute)
		states = append(states, held)
	}

	return Result{
		Scenario:        sc,
		PredictedStates: states,
		Impact: Impact{
			DelayAddedMinutes:    float64(sc.DurationMinutes),
			AffectedTrains:       []string{},
			CapacityImpact:       "MODERATE",
			EstimatedRecoveryMin: float64(sc.DurationMinutes) * 1.5,
		},
	}
}

// runReroute integrates the train's motion toward the target node in fixed
// 5-second steps. When no route exists the current state is returned
// unchanged: a deliberate degraded-mode policy kept for compatibility with
// the upstream contract.
func (e *Engine) runReroute(sc Scenario, ts state.TrainState) Result {
	now := time.Now()
	states := []state.TrainState{ts}

	route := e.topo.FindRoute(ts.CurrentNode, sc.TargetNode)
	if len(route) == 0 {
		if e.bus != nil {
			e.bus.Emit("warn", "sim.route_missing", "no route for reroute scenario", map[string]interface{}{
				"train_id":    sc.TrainID,
				"from":        ts.CurrentNode,
				"target_node": sc.TargetNode,
			})
		}
		return Result{Scenario: sc, PredictedStates: states, Impact: rerouteImpact()}
	}

	steps := int(float64(sc.DurationMinutes) * 60 / timeStep)
	current := ts
	for step := 0; step < steps; step++ {
		next := current

		next.CurrentSpeed += current.Acceleration * timeStep
		if next.CurrentSpeed < 0 {
			next.CurrentSpeed = 0
		}
		if next.CurrentSpeed > maxSimSpeedKmH {
			next.CurrentSpeed = maxSimSpeedKmH
		}

		// km/h over a 5 s step: dt/3.6 converts to metres.
		next.PositionOnEdge += next.CurrentSpeed * (timeStep / 3.6)

		if current.CurrentEdge != "" {
			if edge, ok := e.topo.Edge(current.CurrentEdge); ok && next.PositionOnEdge >= edge.LengthM {
				next.CurrentNode = edge.To
				next.CurrentEdge = ""
				next.PositionOnEdge = 0
			}
		}

		next.LastUpdate = now.Add(time.Duration(float64(step)*timeStep) * time.Second)
		states = append(states, next)
		current = next
	}

	return Result{Scenario: sc, PredictedStates: states, Impact: rerouteImpact()}
}

// rerouteImpact returns the fixed reroute estimate. TODO: replace with a
// route-delta computation using Topology.RouteLength once the baseline route
// is tracked per train.
func rerouteImpact() Impact {
	return Impact{
		RouteChange:          true,
		AffectedTrains:       []string{},
		AdditionalDistanceKm: 2.5,
		TimeImpactMinutes:    8,
		CapacityFreed:        []string{"BLK_001", "BLK_002"},
	}
}
