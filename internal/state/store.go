// Package state holds the live, mutable state of the controlled section:
// trains, signal aspects, and block occupancy. The Store is the only shared
// mutable resource in the core; a single mutex serializes every mutation and
// multi-key read so no caller ever observes a partially updated cross-train
// view.
package state

import (
	"sync"
	"time"

	"github.com/railcontrol/sectiontwin/internal/topology"
)

// TrainState is the live state of one active train. Instances are replaced
// wholesale on each ingestion cycle; the Store owns them exclusively.
type TrainState struct {
	TrainID        string    `json:"train_id"`
	CurrentNode    string    `json:"current_node"`
	CurrentEdge    string    `json:"current_edge,omitempty"`
	PositionOnEdge float64   `json:"position_on_edge"`
	CurrentSpeed   float64   `json:"current_speed"`
	TargetSpeed    float64   `json:"target_speed"`
	Acceleration   float64   `json:"acceleration"`
	Priority       int       `json:"priority"`
	DelayMinutes   float64   `json:"delay_minutes"`
	LastUpdate     time.Time `json:"last_update"`
}

// Snapshot is a point-in-time copy of the full section state, safe to use
// outside the Store's critical section.
type Snapshot struct {
	Trains   map[string]TrainState            `json:"trains"`
	Signals  map[string]topology.Signal       `json:"signals"`
	Blocks   map[string]topology.BlockSection `json:"blocks"`
	LastSync time.Time                        `json:"last_sync"`
}

// Store is the thread-safe live state container.
type Store struct {
	mu       sync.Mutex
	trains   map[string]TrainState
	signals  map[string]topology.Signal
	blocks   map[string]topology.BlockSection
	lastSync time.Time
}

// NewStore creates an empty store seeded with the topology's signal and
// block definitions.
func NewStore(topo *topology.Topology) *Store {
	s := &Store{
		trains:  make(map[string]TrainState),
		signals: make(map[string]topology.Signal),
		blocks:  make(map[string]topology.BlockSection),
	}
	if topo != nil {
		s.signals = topo.Signals()
		s.blocks = topo.Blocks()
	}
	return s
}

// UpdateTrain replaces the state for a train (no merging) and bumps the
// sync timestamp.
func (s *Store) UpdateTrain(trainID string, ts TrainState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts.TrainID = trainID
	s.trains[trainID] = ts
	s.lastSync = time.Now()
}

// UpdateSignal sets a signal's aspect. Unknown signal IDs are ignored.
func (s *Store) UpdateSignal(signalID string, aspect topology.Aspect) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sig, ok := s.signals[signalID]
	if !ok {
		return
	}
	sig.Aspect = aspect
	s.signals[signalID] = sig
}

// SetBlockOccupancy records which train occupies a block; an empty train ID
// clears the block and stamps the clearance time. Unknown block IDs are
// ignored.
func (s *Store) SetBlockOccupancy(blockID, trainID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.blocks[blockID]
	if !ok {
		return
	}
	if trainID == "" && b.OccupiedBy != "" {
		b.LastCleared = time.Now()
	}
	b.OccupiedBy = trainID
	s.blocks[blockID] = b
}

// Train returns the state for a single train.
func (s *Store) Train(trainID string) (TrainState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts, ok := s.trains[trainID]
	return ts, ok
}

// TrainCount returns the number of active trains.
func (s *Store) TrainCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.trains)
}

// Snapshot copies the full state inside the critical section and releases
// the lock immediately; callers may hold the copy as long as they like.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Trains:   make(map[string]TrainState, len(s.trains)),
		Signals:  make(map[string]topology.Signal, len(s.signals)),
		Blocks:   make(map[string]topology.BlockSection, len(s.blocks)),
		LastSync: s.lastSync,
	}
	for id, t := range s.trains {
		snap.Trains[id] = t
	}
	for id, sg := range s.signals {
		snap.Signals[id] = sg
	}
	for id, b := range s.blocks {
		snap.Blocks[id] = b
	}
	return snap
}
