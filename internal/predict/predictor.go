// Package predict scans a section snapshot for near-term conflicts: headway
// (fast train closing on a slow one), platform overcrowding, and trains
// approaching signals at danger. Each scan is an independent heuristic; the
// results are concatenated without deduplication. Missing snapshot fields
// are treated as zero/unknown, never as errors.
package predict

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/railcontrol/sectiontwin/internal/feed"
)

// stationPrefix identifies station nodes in snapshot data.
const stationPrefix = "STN_"

// platformCapacity is the assumed simultaneous platform occupancy per station.
const platformCapacity = 2

// ConflictType labels the conflict class.
type ConflictType string

const (
	ConflictHeadway  ConflictType = "HEADWAY"
	ConflictPlatform ConflictType = "PLATFORM"
	ConflictSignal   ConflictType = "SIGNAL"
)

// Severity ranks a conflict's operational impact.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Weight returns the numeric ranking used to prioritize conflicts.
func (s Severity) Weight() float64 {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 1
	}
}

// ConflictPrediction is one predicted conflict. Predictions are created
// fresh each analysis cycle and are not persisted.
type ConflictPrediction struct {
	ID                    string       `json:"id"`
	Type                  ConflictType `json:"type"`
	Trains                []string     `json:"trains"`
	Location              string       `json:"location"`
	PredictedTime         time.Time    `json:"predicted_time"`
	Probability           float64      `json:"probability"`
	Severity              Severity     `json:"severity"`
	EstimatedDelayMinutes float64      `json:"estimated_delay"`
}

// Predictor runs the three conflict scans over a snapshot.
type Predictor struct {
	horizonMinutes int
}

// NewPredictor creates a predictor with the given look-ahead horizon in
// minutes (30 when non-positive).
func NewPredictor(horizonMinutes int) *Predictor {
	if horizonMinutes <= 0 {
		horizonMinutes = 30
	}
	return &Predictor{horizonMinutes: horizonMinutes}
}

// PredictConflicts returns every conflict found in the snapshot. Only train
// IDs present in the snapshot appear in the results.
func (p *Predictor) PredictConflicts(snap feed.Snapshot) []ConflictPrediction {
	now := snap.Timestamp
	if now.IsZero() {
		now = time.Now()
	}

	var out []ConflictPrediction
	out = append(out, p.headwayConflicts(snap.Trains, now)...)
	out = append(out, p.platformConflicts(snap.Trains, now)...)
	out = append(out, p.signalConflicts(snap.Trains, snap.Signals, now)...)
	return out
}

// headwayConflicts flags adjacent speed pairs at a shared node where the
// faster train is closing at more than 10 km/h.
func (p *Predictor) headwayConflicts(trains []feed.TrainRecord, now time.Time) []ConflictPrediction {
	groups := make(map[string][]feed.TrainRecord)
	for _, tr := range trains {
		groups[tr.CurrentNode] = append(groups[tr.CurrentNode], tr)
	}

	nodes := make([]string, 0, len(groups))
	for node := range groups {
		nodes = append(nodes, node)
	}
	sort.Strings(nodes)

	var conflicts []ConflictPrediction
	for _, node := range nodes {
		group := groups[node]
		if len(group) < 2 {
			continue
		}
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].CurrentSpeed > group[j].CurrentSpeed
		})

		for i := 0; i < len(group)-1; i++ {
			fast, slow := group[i], group[i+1]
			speedDiff := fast.CurrentSpeed - slow.CurrentSpeed
			if speedDiff <= 10 {
				continue
			}

			timeToConflict := 300 / math.Max(speedDiff, 1) // seconds
			probability := math.Min(0.9, speedDiff/30)
			severity := SeverityMedium
			if probability > 0.7 {
				severity = SeverityHigh
			}

			conflicts = append(conflicts, ConflictPrediction{
				ID:                    fmt.Sprintf("HEADWAY_%s_%s", fast.TrainID, slow.TrainID),
				Type:                  ConflictHeadway,
				Trains:                []string{fast.TrainID, slow.TrainID},
				Location:              node,
				PredictedTime:         now.Add(time.Duration(timeToConflict * float64(time.Second))),
				Probability:           probability,
				Severity:              severity,
				EstimatedDelayMinutes: math.Max(2.0, speedDiff*0.2),
			})
		}
	}
	return conflicts
}

// platformConflicts flags stations holding more trains than platform
// capacity. Involved trains are ordered highest priority first so downstream
// action mapping can spare the lead occupant.
func (p *Predictor) platformConflicts(trains []feed.TrainRecord, now time.Time) []ConflictPrediction {
	stations := make(map[string][]feed.TrainRecord)
	for _, tr := range trains {
		if strings.HasPrefix(tr.CurrentNode, stationPrefix) {
			stations[tr.CurrentNode] = append(stations[tr.CurrentNode], tr)
		}
	}

	names := make([]string, 0, len(stations))
	for s := range stations {
		names = append(names, s)
	}
	sort.Strings(names)

	var conflicts []ConflictPrediction
	for _, station := range names {
		occupants := stations[station]
		if len(occupants) <= platformCapacity {
			continue
		}
		sort.SliceStable(occupants, func(i, j int) bool {
			if occupants[i].Priority != occupants[j].Priority {
				return occupants[i].Priority < occupants[j].Priority
			}
			return occupants[i].TrainID < occupants[j].TrainID
		})

		ids := make([]string, len(occupants))
		for i, tr := range occupants {
			ids[i] = tr.TrainID
		}

		conflicts = append(conflicts, ConflictPrediction{
			ID:                    fmt.Sprintf("PLATFORM_%s_%d", station, len(occupants)),
			Type:                  ConflictPlatform,
			Trains:                ids,
			Location:              station,
			PredictedTime:         now.Add(5 * time.Minute),
			Probability:           0.8,
			Severity:              SeverityHigh,
			EstimatedDelayMinutes: 5.0 * float64(len(occupants)-platformCapacity),
		})
	}
	return conflicts
}

// signalConflicts flags moving trains while any signal shows RED. The
// approach test is a blanket approximation: any train above walking pace
// that is not standing at a station counts as approaching every RED signal.
func (p *Predictor) signalConflicts(trains []feed.TrainRecord, signals []feed.SignalRecord, now time.Time) []ConflictPrediction {
	var conflicts []ConflictPrediction
	for _, sig := range signals {
		if sig.Aspect != "RED" {
			continue
		}
		for _, tr := range trains {
			if tr.CurrentSpeed <= 10 || strings.HasPrefix(tr.CurrentNode, stationPrefix) {
				continue
			}
			if tr.CurrentSpeed <= 20 {
				continue
			}

			brakingTimeS := tr.CurrentSpeed / 20
			probability := 0.3
			if tr.CurrentSpeed > 40 {
				probability = 0.6
			}
			severity := SeverityMedium
			if tr.CurrentSpeed > 60 {
				severity = SeverityHigh
			}

			conflicts = append(conflicts, ConflictPrediction{
				ID:                    fmt.Sprintf("SIGNAL_%s_%s", sig.SignalID, tr.TrainID),
				Type:                  ConflictSignal,
				Trains:                []string{tr.TrainID},
				Location:              sig.SignalID,
				PredictedTime:         now.Add(time.Duration(brakingTimeS * float64(time.Second))),
				Probability:           probability,
				Severity:              severity,
				EstimatedDelayMinutes: math.Max(1.0, brakingTimeS/30),
			})
		}
	}
	return conflicts
}
