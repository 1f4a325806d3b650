// Package schedule plans per-train hold/departure delays over a section of
// line, subject to headway separation and section capacity constraints, and
// refines the plan with a conflict-risk score.
package schedule

import "time"

// Priority is a train's precedence ordinal. Lower means higher precedence.
type Priority int

const (
	PriorityMailExpress Priority = 1
	PriorityPassenger   Priority = 2
	PriorityFreight     Priority = 3
	PriorityMaintenance Priority = 4
)

func (p Priority) String() string {
	switch p {
	case PriorityMailExpress:
		return "MAIL_EXPRESS"
	case PriorityPassenger:
		return "PASSENGER"
	case PriorityFreight:
		return "FREIGHT"
	case PriorityMaintenance:
		return "MAINTENANCE"
	default:
		return "UNKNOWN"
	}
}

// Objective selects what the planner minimises.
type Objective string

const (
	// ObjectiveMinimizeDelay minimises the sum of all train delays.
	ObjectiveMinimizeDelay Objective = "minimize_total_delay"
	// ObjectiveMaximizeThroughput minimises the maximum delay of any train.
	ObjectiveMaximizeThroughput Objective = "maximize_throughput"
)

// Train is a planning-input train. CurrentKm and DestinationKm locate it on
// the section's kilometre axis.
type Train struct {
	ID               string    `json:"id"`
	Number           string    `json:"number"`
	Type             string    `json:"type"`
	Priority         Priority  `json:"priority"`
	CurrentKm        float64   `json:"current_km"`
	DestinationKm    float64   `json:"destination_km"`
	ScheduledArrival time.Time `json:"scheduled_arrival"`
	DelayMinutes     float64   `json:"delay_minutes"`
	CurrentSpeed     float64   `json:"current_speed"`
	MaxSpeed         float64   `json:"max_speed"`
	LengthM          float64   `json:"length_m"`
	WeightTons       float64   `json:"weight_tons"`
}

// Section is a planning-input stretch of line with a capacity limit.
// Occupants lists train IDs currently inside the section, in input order.
type Section struct {
	ID        string   `json:"id"`
	StartKm   float64  `json:"start_km"`
	EndKm     float64  `json:"end_km"`
	MaxSpeed  float64  `json:"max_speed"`
	Capacity  int      `json:"capacity"`
	Occupants []string `json:"occupants"`
}

// Contains reports whether a kilometre position falls inside the section.
// Both boundaries are inclusive: section limits sit on round km posts, and a
// train standing exactly at one still occupies the section.
func (s Section) Contains(km float64) bool {
	return km >= s.StartKm && km <= s.EndKm
}

// Recommendation is one per-train planning outcome.
type Recommendation struct {
	TrainID         string  `json:"train_id"`
	Action          string  `json:"action"`
	DurationMinutes int     `json:"duration_minutes"`
	Reason          string  `json:"reason"`
	PriorityImpact  string  `json:"priority_impact"`
	ConflictRisk    float64 `json:"conflict_risk"`
}

const (
	ActionProceed = "PROCEED"
	ActionHold    = "HOLD"
)

// OptimizationResult is the full outcome of one optimizer run.
type OptimizationResult struct {
	Success         bool             `json:"success"`
	ObjectiveValue  float64          `json:"objective_value"`
	Recommendations []Recommendation `json:"recommendations"`
	Explanation     string           `json:"explanation"`
	Confidence      float64          `json:"confidence"`
	ComputationTime time.Duration    `json:"computation_time"`
}
