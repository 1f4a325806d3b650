package topology

import "time"

// NodeType classifies a node in the section network.
type NodeType string

const (
	NodeStation  NodeType = "STATION"
	NodeSignal   NodeType = "SIGNAL"
	NodeJunction NodeType = "JUNCTION"
)

// Aspect is the displayed state of a signal.
type Aspect string

const (
	AspectRed          Aspect = "RED"
	AspectYellow       Aspect = "YELLOW"
	AspectGreen        Aspect = "GREEN"
	AspectDoubleYellow Aspect = "DOUBLE_YELLOW"
)

// Node is a point in the section network: a station, signal post, or junction.
// Nodes are immutable after topology load.
type Node struct {
	ID          string   `yaml:"node_id" json:"node_id" validate:"required"`
	Type        NodeType `yaml:"type" json:"type" validate:"required,oneof=STATION SIGNAL JUNCTION"`
	KmPost      float64  `yaml:"km_post" json:"km_post"`
	StationCode string   `yaml:"station_code,omitempty" json:"station_code,omitempty"`
	Lat         float64  `yaml:"lat,omitempty" json:"lat,omitempty"`
	Lon         float64  `yaml:"lon,omitempty" json:"lon,omitempty"`
}

// Edge is a directed track segment between two nodes. Length is in metres,
// gradient in percent (positive = climbing in travel direction), curvature in
// degrees per km, max speed in km/h.
type Edge struct {
	ID          string  `yaml:"edge_id" json:"edge_id" validate:"required"`
	From        string  `yaml:"from" json:"from" validate:"required"`
	To          string  `yaml:"to" json:"to" validate:"required"`
	LengthM     float64 `yaml:"length_m" json:"length_m" validate:"gt=0"`
	GradientPct float64 `yaml:"gradient_pct,omitempty" json:"gradient_pct,omitempty"`
	Curvature   float64 `yaml:"curvature,omitempty" json:"curvature,omitempty"`
	MaxSpeedKmH float64 `yaml:"max_speed_kmh,omitempty" json:"max_speed_kmh,omitempty"`
	Condition   string  `yaml:"condition,omitempty" json:"condition,omitempty"`
}

// Signal describes a lineside signal. The aspect is a live value mutated by
// ingestion; aspect transitions are unconstrained inputs. This core enforces
// no interlocking logic.
type Signal struct {
	ID               string `yaml:"signal_id" json:"signal_id" validate:"required"`
	NodeID           string `yaml:"node_id" json:"node_id" validate:"required"`
	Type             string `yaml:"type,omitempty" json:"type,omitempty"`
	Aspect           Aspect `yaml:"aspect,omitempty" json:"aspect,omitempty"`
	InterlockingZone string `yaml:"interlocking_zone,omitempty" json:"interlocking_zone,omitempty"`
	Failed           bool   `yaml:"failed,omitempty" json:"failed,omitempty"`
	Maintenance      bool   `yaml:"maintenance,omitempty" json:"maintenance,omitempty"`
}

// BlockSection is a track circuit or axle-counter block between two nodes.
// OccupiedBy and LastCleared are live values mutated by ingestion.
type BlockSection struct {
	ID          string    `yaml:"block_id" json:"block_id" validate:"required"`
	StartNode   string    `yaml:"start_node" json:"start_node" validate:"required"`
	EndNode     string    `yaml:"end_node" json:"end_node" validate:"required"`
	LengthM     float64   `yaml:"length_m" json:"length_m"`
	OccupiedBy  string    `yaml:"-" json:"occupied_by,omitempty"`
	LastCleared time.Time `yaml:"-" json:"last_cleared,omitempty"`
}

// TopologyData is the serialisable input representation of a section network.
type TopologyData struct {
	Version int            `yaml:"version" json:"version" validate:"required"`
	Nodes   []Node         `yaml:"nodes" json:"nodes" validate:"required,min=1,dive"`
	Edges   []Edge         `yaml:"edges" json:"edges" validate:"dive"`
	Signals []Signal       `yaml:"signals,omitempty" json:"signals,omitempty" validate:"dive"`
	Blocks  []BlockSection `yaml:"blocks,omitempty" json:"blocks,omitempty" validate:"dive"`
}
