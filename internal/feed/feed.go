// Package feed defines the snapshot records delivered by the live data feed
// and their normalization rules. Malformed records are defaulted rather than
// rejected: the analysis pipeline trades completeness for availability.
package feed

import (
	"encoding/json"
	"fmt"
	"time"
)

// UnknownNode is substituted for a train record with no position.
const UnknownNode = "UNKNOWN"

// defaultPriority is assumed for trains that report no priority (freight-level).
const defaultPriority = 3

// TrainRecord is one train's observation in a snapshot.
type TrainRecord struct {
	TrainID          string    `json:"train_id"`
	TrainNumber      string    `json:"train_number,omitempty"`
	TrainType        string    `json:"train_type,omitempty"`
	Priority         int       `json:"priority,omitempty"`
	CurrentNode      string    `json:"current_node,omitempty"`
	CurrentEdge      string    `json:"current_edge,omitempty"`
	PositionOnEdgeM  float64   `json:"position_on_edge_m,omitempty"`
	CurrentSpeed     float64   `json:"current_speed,omitempty"`
	TargetSpeed      float64   `json:"target_speed,omitempty"`
	DelayMinutes     float64   `json:"delay_minutes,omitempty"`
	ScheduledArrival time.Time `json:"scheduled_arrival,omitempty"`
}

// SignalRecord is one signal's observation in a snapshot.
type SignalRecord struct {
	SignalID string `json:"signal_id"`
	Aspect   string `json:"aspect"`
}

// Snapshot is a full periodic observation of the controlled section.
// SectionStatus maps block section IDs to occupying train IDs ("" = clear).
type Snapshot struct {
	Timestamp     time.Time         `json:"timestamp"`
	Trains        []TrainRecord     `json:"trains"`
	Signals       []SignalRecord    `json:"signals"`
	SectionStatus map[string]string `json:"section_status,omitempty"`
}

// Parse decodes a snapshot payload and normalizes it. Only undecodable JSON
// is an error; missing fields are defaulted.
func Parse(payload []byte) (Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("malformed snapshot payload: %w", err)
	}
	snap.Normalize()
	return snap, nil
}

// Normalize applies the defaulting rules in place: records without a train
// ID are dropped, missing positions become UnknownNode, non-positive
// priorities default to freight level, and a zero timestamp becomes now.
func (s *Snapshot) Normalize() {
	if s.Timestamp.IsZero() {
		s.Timestamp = time.Now()
	}

	trains := s.Trains[:0]
	for _, tr := range s.Trains {
		if tr.TrainID == "" {
			continue
		}
		if tr.CurrentNode == "" {
			tr.CurrentNode = UnknownNode
		}
		if tr.Priority <= 0 {
			tr.Priority = defaultPriority
		}
		if tr.CurrentSpeed < 0 {
			tr.CurrentSpeed = 0
		}
		trains = append(trains, tr)
	}
	s.Trains = trains

	signals := s.Signals[:0]
	for _, sg := range s.Signals {
		if sg.SignalID == "" {
			continue
		}
		signals = append(signals, sg)
	}
	s.Signals = signals
}
