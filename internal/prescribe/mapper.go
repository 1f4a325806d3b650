// Package prescribe turns ranked conflict predictions into candidate
// operator actions: holds, speed changes, and reroutes. Actions are advisory
// and ephemeral; a fresh set is produced each analysis cycle.
package prescribe

import (
	"fmt"
	"math"
	"sort"

	"github.com/railcontrol/sectiontwin/internal/feed"
	"github.com/railcontrol/sectiontwin/internal/predict"
)

// ActionType labels a recommended intervention.
type ActionType string

const (
	ActionHold             ActionType = "HOLD"
	ActionReroute          ActionType = "REROUTE"
	ActionSpeedChange      ActionType = "SPEED_CHANGE"
	ActionPriorityOverride ActionType = "PRIORITY_OVERRIDE"
)

// Urgency ranks how quickly an action should be taken.
type Urgency string

const (
	UrgencyLow    Urgency = "LOW"
	UrgencyMedium Urgency = "MEDIUM"
	UrgencyHigh   Urgency = "HIGH"
)

// Action is one recommended intervention for a single train.
type Action struct {
	ID              string                 `json:"id"`
	Type            ActionType             `json:"type"`
	TargetTrain     string                 `json:"train"`
	Parameters      map[string]interface{} `json:"parameters"`
	ExpectedBenefit string                 `json:"expected_benefit"`
	Confidence      float64                `json:"confidence"`
	Urgency         Urgency                `json:"urgency"`
}

// actionableProbability gates which conflicts produce recommendations.
const actionableProbability = 0.5

// Mapper generates actions from predicted conflicts.
type Mapper struct{}

// NewMapper creates a mapper.
func NewMapper() *Mapper { return &Mapper{} }

// Recommend produces actions for the likely conflicts, processed in
// descending probability × severity-weight order.
func (m *Mapper) Recommend(conflicts []predict.ConflictPrediction, snap feed.Snapshot) []Action {
	ranked := make([]predict.ConflictPrediction, len(conflicts))
	copy(ranked, conflicts)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Probability*ranked[i].Severity.Weight() >
			ranked[j].Probability*ranked[j].Severity.Weight()
	})

	trains := make(map[string]feed.TrainRecord, len(snap.Trains))
	for _, tr := range snap.Trains {
		trains[tr.TrainID] = tr
	}

	var actions []Action
	for _, c := range ranked {
		if c.Probability <= actionableProbability {
			continue
		}
		switch c.Type {
		case predict.ConflictHeadway:
			actions = append(actions, m.headwayActions(c, trains)...)
		case predict.ConflictPlatform:
			actions = append(actions, m.platformActions(c, trains)...)
		case predict.ConflictSignal:
			actions = append(actions, m.signalActions(c, trains)...)
		}
	}
	return actions
}

// headwayActions holds every involved lower-precedence train (priority
// ordinal above passenger level) until the conflict window passes.
func (m *Mapper) headwayActions(c predict.ConflictPrediction, trains map[string]feed.TrainRecord) []Action {
	var actions []Action
	for _, trainID := range c.Trains {
		tr, ok := trains[trainID]
		if !ok || tr.Priority <= 2 {
			continue
		}

		urgency := UrgencyMedium
		if c.Severity == predict.SeverityHigh {
			urgency = UrgencyHigh
		}

		actions = append(actions, Action{
			ID:          fmt.Sprintf("HOLD_%s_%s", trainID, c.ID),
			Type:        ActionHold,
			TargetTrain: trainID,
			Parameters: map[string]interface{}{
				"duration_minutes": math.Min(10, c.EstimatedDelayMinutes*1.5),
				"location":         c.Location,
				"reason":           "resolve headway conflict with higher priority train",
			},
			ExpectedBenefit: fmt.Sprintf("prevent %.1f min delay propagation", c.EstimatedDelayMinutes),
			Confidence:      c.Probability,
			Urgency:         urgency,
		})
	}
	return actions
}

// platformActions holds every occupant except the lead (highest-priority)
// train for platform capacity management.
func (m *Mapper) platformActions(c predict.ConflictPrediction, trains map[string]feed.TrainRecord) []Action {
	if len(c.Trains) == 0 {
		return nil
	}

	var actions []Action
	for _, trainID := range c.Trains[1:] {
		if _, ok := trains[trainID]; !ok {
			continue
		}
		actions = append(actions, Action{
			ID:          fmt.Sprintf("HOLD_PLATFORM_%s", trainID),
			Type:        ActionHold,
			TargetTrain: trainID,
			Parameters: map[string]interface{}{
				"duration_minutes": 5.0,
				"location":         c.Location,
				"reason":           "platform capacity management",
			},
			ExpectedBenefit: "prevent platform congestion",
			Confidence:      0.8,
			Urgency:         UrgencyMedium,
		})
	}
	return actions
}

// signalActions slows the approaching train to half speed, floored at
// 20 km/h, for a controlled approach to the signal at danger.
func (m *Mapper) signalActions(c predict.ConflictPrediction, trains map[string]feed.TrainRecord) []Action {
	if len(c.Trains) == 0 {
		return nil
	}
	trainID := c.Trains[0]
	tr, ok := trains[trainID]
	if !ok {
		return nil
	}

	targetSpeed := math.Max(20, tr.CurrentSpeed*0.5)
	return []Action{{
		ID:          fmt.Sprintf("SPEED_REDUCE_%s_%s", trainID, c.ID),
		Type:        ActionSpeedChange,
		TargetTrain: trainID,
		Parameters: map[string]interface{}{
			"target_speed_kmh": targetSpeed,
			"reason":           fmt.Sprintf("approach signal %s at danger safely", c.Location),
		},
		ExpectedBenefit: "prevent emergency braking and ensure safe signal approach",
		Confidence:      c.Probability,
		Urgency:         UrgencyHigh,
	}}
}
