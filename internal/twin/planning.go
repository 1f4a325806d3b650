package twin

import (
	"github.com/railcontrol/sectiontwin/internal/feed"
	"github.com/railcontrol/sectiontwin/internal/schedule"
)

// planningInputs builds the optimizer's train and section lists from one
// snapshot. Trains are located on the section's kilometre axis via their
// current node's km post. Section occupant lists are recomputed from km
// containment in snapshot order, so the planner never sees an invented
// train ID; trains at unknown nodes are planned but occupy no section.
func (t *Twin) planningInputs(snap feed.Snapshot) ([]schedule.Train, []schedule.Section) {
	trains := make([]schedule.Train, 0, len(snap.Trains))
	located := make(map[string]bool, len(snap.Trains))
	for _, tr := range snap.Trains {
		km := 0.0
		if node, ok := t.topo.Node(tr.CurrentNode); ok {
			km = node.KmPost
			located[tr.TrainID] = true
		}
		trains = append(trains, schedule.Train{
			ID:               tr.TrainID,
			Number:           tr.TrainNumber,
			Type:             tr.TrainType,
			Priority:         schedule.Priority(tr.Priority),
			CurrentKm:        km,
			ScheduledArrival: tr.ScheduledArrival,
			DelayMinutes:     tr.DelayMinutes,
			CurrentSpeed:     tr.CurrentSpeed,
		})
	}

	sections := make([]schedule.Section, len(t.planningSections))
	copy(sections, t.planningSections)
	for i := range sections {
		sections[i].Occupants = nil
		for _, tr := range trains {
			if located[tr.ID] && sections[i].Contains(tr.CurrentKm) {
				sections[i].Occupants = append(sections[i].Occupants, tr.ID)
			}
		}
	}
	return trains, sections
}
