// Package twin is the orchestrating core: a live digital twin of one
// controlled section. It owns the state store, runs the analysis pipeline
// (conflict prediction, prescriptive actions, schedule optimization), and
// answers what-if queries against snapshot copies.
package twin

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/railcontrol/sectiontwin/internal/events"
	"github.com/railcontrol/sectiontwin/internal/feed"
	"github.com/railcontrol/sectiontwin/internal/predict"
	"github.com/railcontrol/sectiontwin/internal/prescribe"
	"github.com/railcontrol/sectiontwin/internal/schedule"
	"github.com/railcontrol/sectiontwin/internal/sim"
	"github.com/railcontrol/sectiontwin/internal/state"
	"github.com/railcontrol/sectiontwin/internal/topology"
)

// Config assembles a Twin's collaborators. Topology is required; Bus and
// Optimizer may be nil (no events, no optimizer contribution).
type Config struct {
	Topology         *topology.Topology
	Bus              *events.Bus
	Optimizer        *schedule.Optimizer
	PlanningSections []schedule.Section
	HorizonMinutes   int
}

// Twin is the section's digital twin.
type Twin struct {
	topo      *topology.Topology
	store     *state.Store
	engine    *sim.Engine
	predictor *predict.Predictor
	mapper    *prescribe.Mapper
	optimizer *schedule.Optimizer
	bus       *events.Bus

	// Serializes the CPU-bound solve so a slow optimizer run never stacks.
	solveSem *semaphore.Weighted

	planningSections []schedule.Section

	mu          sync.Mutex
	updateCount int64
	lastIngest  time.Time
}

// New builds a twin over the given topology.
func New(cfg Config) *Twin {
	t := &Twin{
		topo:             cfg.Topology,
		store:            state.NewStore(cfg.Topology),
		predictor:        predict.NewPredictor(cfg.HorizonMinutes),
		mapper:           prescribe.NewMapper(),
		optimizer:        cfg.Optimizer,
		bus:              cfg.Bus,
		solveSem:         semaphore.NewWeighted(1),
		planningSections: cfg.PlanningSections,
	}
	t.engine = sim.NewEngine(cfg.Topology, cfg.Bus)
	t.emit("info", "twin.initialized", "digital twin ready", map[string]interface{}{
		"nodes": cfg.Topology.NodeCount(),
		"edges": cfg.Topology.EdgeCount(),
	})
	return t
}

// Store exposes the live state store.
func (t *Twin) Store() *state.Store { return t.store }

// Ingest applies one feed snapshot to the live state: wholesale per-train
// replacement, signal aspects, and block occupancy. It returns the number of
// train records applied.
func (t *Twin) Ingest(snap feed.Snapshot) int {
	snap.Normalize()

	for _, tr := range snap.Trains {
		t.store.UpdateTrain(tr.TrainID, state.TrainState{
			TrainID:        tr.TrainID,
			CurrentNode:    tr.CurrentNode,
			CurrentEdge:    tr.CurrentEdge,
			PositionOnEdge: tr.PositionOnEdgeM,
			CurrentSpeed:   tr.CurrentSpeed,
			TargetSpeed:    tr.TargetSpeed,
			Priority:       tr.Priority,
			DelayMinutes:   tr.DelayMinutes,
			LastUpdate:     snap.Timestamp,
		})
	}
	for _, sg := range snap.Signals {
		t.store.UpdateSignal(sg.SignalID, topology.Aspect(sg.Aspect))
	}
	for blockID, trainID := range snap.SectionStatus {
		t.store.SetBlockOccupancy(blockID, trainID)
	}

	t.mu.Lock()
	t.updateCount++
	t.lastIngest = snap.Timestamp
	count := t.updateCount
	t.mu.Unlock()

	t.emit("debug", "ingest.applied", "snapshot applied", map[string]interface{}{
		"trains":       len(snap.Trains),
		"signals":      len(snap.Signals),
		"update_count": count,
	})
	return len(snap.Trains)
}

// Summary aggregates an analysis run.
type Summary struct {
	HighSeverityConflicts      int     `json:"high_severity_conflicts"`
	UrgentRecommendations      int     `json:"urgent_recommendations"`
	TotalPredictedDelayMinutes float64 `json:"total_predicted_delay_minutes"`
}

// AnalysisReport is the output of one analysis cycle.
type AnalysisReport struct {
	RunID                    string                        `json:"run_id"`
	Timestamp                time.Time                     `json:"timestamp"`
	ConflictsPredicted       int                           `json:"conflicts_predicted"`
	RecommendationsGenerated int                           `json:"recommendations_generated"`
	Conflicts                []predict.ConflictPrediction `json:"conflicts"`
	Recommendations          []prescribe.Action           `json:"recommendations"`
	Schedule                 *schedule.OptimizationResult `json:"schedule,omitempty"`
	Summary                  Summary                      `json:"summary"`
}

// Analyze runs one full analysis cycle over a point-in-time snapshot:
// conflict prediction, prescriptive actions, and, when an optimizer is
// configured, a schedule contribution. Optimizer failures degrade to a
// heuristic-only report instead of failing the cycle.
func (t *Twin) Analyze(ctx context.Context) AnalysisReport {
	runID := uuid.NewString()
	t.emit("info", "analysis.started", "analysis cycle", map[string]interface{}{"run_id": runID})

	snap := t.analysisSnapshot()
	conflicts := t.predictor.PredictConflicts(snap)
	recommendations := t.mapper.Recommend(conflicts, snap)

	report := AnalysisReport{
		RunID:                    runID,
		Timestamp:                snap.Timestamp,
		ConflictsPredicted:       len(conflicts),
		RecommendationsGenerated: len(recommendations),
		Conflicts:                conflicts,
		Recommendations:          recommendations,
		Schedule:                 t.scheduleContribution(ctx, runID, snap),
	}
	report.Summary = summarize(conflicts, recommendations)

	t.emit("info", "analysis.completed", "analysis cycle done", map[string]interface{}{
		"run_id":          runID,
		"conflicts":       report.ConflictsPredicted,
		"recommendations": report.RecommendationsGenerated,
	})
	return report
}

// scheduleContribution runs the optimizer behind the solve semaphore. A nil
// return means no contribution this cycle.
func (t *Twin) scheduleContribution(ctx context.Context, runID string, snap feed.Snapshot) *schedule.OptimizationResult {
	if t.optimizer == nil {
		return nil
	}
	if err := t.solveSem.Acquire(ctx, 1); err != nil {
		t.emit("warn", "optimizer.failed", "solve slot unavailable", map[string]interface{}{
			"run_id": runID, "error": err.Error(),
		})
		return nil
	}
	defer t.solveSem.Release(1)

	t.emit("debug", "optimizer.started", "", map[string]interface{}{"run_id": runID})
	trains, sections := t.planningInputs(snap)
	result := t.optimizer.Optimize(ctx, trains, sections)
	if !result.Success {
		t.emit("warn", "optimizer.failed", result.Explanation, map[string]interface{}{"run_id": runID})
		return nil
	}
	t.emit("info", "optimizer.completed", "", map[string]interface{}{
		"run_id":    runID,
		"objective": result.ObjectiveValue,
	})
	return &result
}

func summarize(conflicts []predict.ConflictPrediction, recs []prescribe.Action) Summary {
	var s Summary
	for _, c := range conflicts {
		if c.Severity == predict.SeverityHigh || c.Severity == predict.SeverityCritical {
			s.HighSeverityConflicts++
		}
		s.TotalPredictedDelayMinutes += c.EstimatedDelayMinutes
	}
	for _, a := range recs {
		if a.Urgency == prescribe.UrgencyHigh {
			s.UrgentRecommendations++
		}
	}
	return s
}

// WhatIfRequest asks what would happen if a control action were applied.
type WhatIfRequest struct {
	TrainID         string     `json:"train_id"`
	Action          sim.Action `json:"action"`
	DurationMinutes int        `json:"duration_minutes"`
	TargetNode      string     `json:"target_node,omitempty"`
}

// WhatIf simulates a scenario against the current state. It returns
// sim.ErrTrainNotFound when the train is not in the store. The simulation
// runs over a snapshot copy and never mutates live state.
func (t *Twin) WhatIf(req WhatIfRequest) (sim.Result, error) {
	t.emit("info", "whatif.requested", "", map[string]interface{}{
		"train_id": req.TrainID,
		"action":   string(req.Action),
	})

	ts, ok := t.store.Train(req.TrainID)
	if !ok {
		t.emit("warn", "whatif.failed", "train not in store", map[string]interface{}{"train_id": req.TrainID})
		return sim.Result{}, fmt.Errorf("%w: %q", sim.ErrTrainNotFound, req.TrainID)
	}

	result, err := t.engine.Run(sim.Scenario{
		TrainID:         req.TrainID,
		Action:          req.Action,
		DurationMinutes: req.DurationMinutes,
		TargetNode:      req.TargetNode,
	}, ts)
	if err != nil {
		t.emit("warn", "whatif.failed", err.Error(), map[string]interface{}{"train_id": req.TrainID})
		return sim.Result{}, err
	}

	t.emit("info", "whatif.completed", "", map[string]interface{}{
		"train_id": req.TrainID,
		"states":   len(result.PredictedStates),
	})
	return result, nil
}

// NetworkSnapshot is the externally visible view of the twin's state plus
// its performance counters.
type NetworkSnapshot struct {
	State       state.Snapshot `json:"state"`
	UpdateCount int64          `json:"update_count"`
	LastIngest  time.Time      `json:"last_ingest"`
	NodeCount   int            `json:"node_count"`
	EdgeCount   int            `json:"edge_count"`
}

// NetworkSnapshot returns a point-in-time copy of everything the twin knows.
func (t *Twin) NetworkSnapshot() NetworkSnapshot {
	t.mu.Lock()
	count := t.updateCount
	last := t.lastIngest
	t.mu.Unlock()

	return NetworkSnapshot{
		State:       t.store.Snapshot(),
		UpdateCount: count,
		LastIngest:  last,
		NodeCount:   t.topo.NodeCount(),
		EdgeCount:   t.topo.EdgeCount(),
	}
}

// ValidationReport measures twin drift against an observed feed snapshot.
type ValidationReport struct {
	TrainsCompared   int     `json:"trains_compared"`
	MeanPositionErrM float64 `json:"mean_position_error_m"`
	MaxPositionErrM  float64 `json:"max_position_error_m"`
}

// ValidateAgainstFeed compares the twin's on-edge positions with an observed
// snapshot. Trains absent from either side are skipped.
func (t *Twin) ValidateAgainstFeed(observed feed.Snapshot) ValidationReport {
	st := t.store.Snapshot()

	var report ValidationReport
	var sum float64
	for _, tr := range observed.Trains {
		known, ok := st.Trains[tr.TrainID]
		if !ok {
			continue
		}
		err := math.Abs(known.PositionOnEdge - tr.PositionOnEdgeM)
		sum += err
		if err > report.MaxPositionErrM {
			report.MaxPositionErrM = err
		}
		report.TrainsCompared++
	}
	if report.TrainsCompared > 0 {
		report.MeanPositionErrM = sum / float64(report.TrainsCompared)
	}
	return report
}

// analysisSnapshot rebuilds a feed-shaped snapshot from the live store, with
// trains and signals in lexical ID order for deterministic analysis.
func (t *Twin) analysisSnapshot() feed.Snapshot {
	st := t.store.Snapshot()

	snap := feed.Snapshot{Timestamp: st.LastSync}
	if snap.Timestamp.IsZero() {
		snap.Timestamp = time.Now()
	}

	trainIDs := make([]string, 0, len(st.Trains))
	for id := range st.Trains {
		trainIDs = append(trainIDs, id)
	}
	sort.Strings(trainIDs)
	for _, id := range trainIDs {
		ts := st.Trains[id]
		snap.Trains = append(snap.Trains, feed.TrainRecord{
			TrainID:         ts.TrainID,
			Priority:        ts.Priority,
			CurrentNode:     ts.CurrentNode,
			CurrentEdge:     ts.CurrentEdge,
			PositionOnEdgeM: ts.PositionOnEdge,
			CurrentSpeed:    ts.CurrentSpeed,
			TargetSpeed:     ts.TargetSpeed,
			DelayMinutes:    ts.DelayMinutes,
		})
	}

	signalIDs := make([]string, 0, len(st.Signals))
	for id := range st.Signals {
		signalIDs = append(signalIDs, id)
	}
	sort.Strings(signalIDs)
	for _, id := range signalIDs {
		sg := st.Signals[id]
		snap.Signals = append(snap.Signals, feed.SignalRecord{
			SignalID: sg.ID,
			Aspect:   string(sg.Aspect),
		})
	}

	snap.SectionStatus = make(map[string]string)
	for id, blk := range st.Blocks {
		if blk.OccupiedBy != "" {
			snap.SectionStatus[id] = blk.OccupiedBy
		}
	}
	return snap
}

func (t *Twin) emit(level, name, msg string, fields map[string]interface{}) {
	if t.bus == nil {
		return
	}
	t.bus.Emit(level, name, msg, fields)
}
