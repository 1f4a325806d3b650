package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/railcontrol/sectiontwin/internal/config"
	"github.com/railcontrol/sectiontwin/internal/events"
	"github.com/railcontrol/sectiontwin/internal/ingest"
	"github.com/railcontrol/sectiontwin/internal/schedule"
	"github.com/railcontrol/sectiontwin/internal/storage/postgres"
	"github.com/railcontrol/sectiontwin/internal/topology"
	"github.com/railcontrol/sectiontwin/internal/twin"
	"github.com/railcontrol/sectiontwin/internal/version"
)

type LogLine struct {
	Timestamp string                 `json:"ts"`
	Level     string                 `json:"level"`
	Event     string                 `json:"event"`
	Message   string                 `json:"msg,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

func logEvent(level, event, msg string, fields map[string]interface{}) {
	line := LogLine{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Level:     level,
		Event:     event,
		Message:   msg,
		Fields:    fields,
	}
	b, _ := json.Marshal(line)
	fmt.Println(string(b))
}

func main() {
	configPath := flag.String("config", "twin.yaml", "path to twin.yaml")
	flag.Parse()

	hostname, _ := os.Hostname()
	logEvent("info", "system.startup", "section twin starting", map[string]interface{}{
		"service":  "twin",
		"version":  version.Version,
		"hostname": hostname,
		"pid":      os.Getpid(),
	})

	cfg, err := config.Load(*configPath)
	if err != nil {
		logEvent("error", "system.error", "failed to load config", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}

	topo, err := topology.Load(cfg.Topology.Path)
	if err != nil {
		logEvent("error", "system.error", "failed to load topology", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}

	bus := events.NewBus(256)
	if cfg.Storage.PostgresEnabled {
		store, err := postgres.New(cfg.Section.ID)
		if err != nil {
			logEvent("warn", "system.error", "postgres unavailable, events stay in memory", map[string]interface{}{"error": err.Error()})
		} else {
			bus.SetStore(store)
			defer store.Close()
		}
	}

	// Mirror bus events onto stdout as JSON lines.
	sub := bus.Subscribe()
	go func() {
		for e := range sub {
			line := LogLine{Timestamp: e.Timestamp, Level: e.Level, Event: e.Name, Message: e.Message, Fields: e.Fields}
			b, _ := json.Marshal(line)
			fmt.Println(string(b))
		}
	}()

	optimizer, err := buildOptimizer(cfg)
	if err != nil {
		logEvent("error", "system.error", "failed to build optimizer", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}

	sections := make([]schedule.Section, 0, len(cfg.PlanningSections))
	for _, ps := range cfg.PlanningSections {
		sections = append(sections, schedule.Section{
			ID:       ps.ID,
			StartKm:  ps.StartKm,
			EndKm:    ps.EndKm,
			MaxSpeed: ps.MaxSpeed,
			Capacity: ps.Capacity,
		})
	}

	tw := twin.New(twin.Config{
		Topology:         topo,
		Bus:              bus,
		Optimizer:        optimizer,
		PlanningSections: sections,
		HorizonMinutes:   cfg.Analysis.HorizonMinutes,
	})

	client := ingest.NewClient(cfg.Feed.ClientID)
	subscriber := ingest.NewFeedSubscriber(client, tw, bus)
	if err := client.Connect(); err != nil {
		logEvent("warn", "system.error", "feed broker unreachable, retrying in background", map[string]interface{}{
			"broker": ingest.BrokerURL(),
			"error":  err.Error(),
		})
	}
	if client.IsConnected() {
		if err := subscriber.SubscribeFeed(cfg.Feed.Topic); err != nil {
			logEvent("warn", "system.error", "feed subscribe failed", map[string]interface{}{"error": err.Error()})
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ticker := time.NewTicker(cfg.AnalysisInterval())
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-ticker.C:
			tw.Analyze(ctx)
		case sig := <-sigCh:
			logEvent("info", "system.shutdown", "signal received", map[string]interface{}{"signal": sig.String()})
			cancel()
			subscriber.ClearSubscriptions()
			client.Disconnect()
			return
		}
	}
}

// buildOptimizer assembles the schedule optimizer from config: the
// bound-propagation solver plus the configured conflict scorer.
func buildOptimizer(cfg *config.Config) (*schedule.Optimizer, error) {
	var scorer schedule.ConflictScorer = schedule.NewHeuristicScorer()
	if cfg.Optimizer.Scorer == "learned" {
		learned, err := schedule.LoadLearnedScorer(cfg.Optimizer.ModelPath)
		if err != nil {
			return nil, err
		}
		scorer = learned
	}

	return schedule.NewOptimizer(
		schedule.NewConstraintSolver(),
		scorer,
		schedule.Objective(cfg.Optimizer.Objective),
		cfg.Optimizer.HorizonMinutes,
		cfg.SolveBudget(),
	), nil
}
