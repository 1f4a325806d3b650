package events

import "fmt"

var allowedEvents = map[string]struct{}{
	// feed
	"feed.connected":    {},
	"feed.disconnected": {},
	"feed.snapshot":     {},
	"feed.malformed":    {},

	// twin
	"twin.initialized": {},
	"ingest.applied":   {},

	// analysis
	"analysis.started":   {},
	"analysis.completed": {},
	"analysis.error":     {},

	// optimizer
	"optimizer.started":   {},
	"optimizer.completed": {},
	"optimizer.failed":    {},

	// what-if simulation
	"whatif.requested":  {},
	"whatif.completed":  {},
	"whatif.failed":     {},
	"sim.route_missing": {},

	// system
	"system.startup":  {},
	"system.shutdown": {},
	"system.error":    {},
}

func Validate(event string) error {
	if _, ok := allowedEvents[event]; !ok {
		return fmt.Errorf("unknown event: %s", event)
	}
	return nil
}
