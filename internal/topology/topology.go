// Package topology models the static rail network of a controlled section:
// nodes, directed track segments, signals, and block sections, with
// shortest-route queries over the segment graph.
//
// The topology is built once at twin initialization and is frozen before any
// concurrent use; route queries are safe to run from multiple goroutines
// after Freeze.
package topology

import (
	"container/heap"
	"fmt"
	"math"
	"sort"
)

// Topology is the directed section graph plus the signal and block
// definitions attached to it.
type Topology struct {
	nodes       map[string]Node
	edges       map[string]Edge
	edgeByNodes map[string]map[string]Edge // from → to → edge
	signals     map[string]Signal
	blocks      map[string]BlockSection
	frozen      bool
}

// New returns an empty topology ready for build-time AddNode/AddEdge calls.
func New() *Topology {
	return &Topology{
		nodes:       make(map[string]Node),
		edges:       make(map[string]Edge),
		edgeByNodes: make(map[string]map[string]Edge),
		signals:     make(map[string]Signal),
		blocks:      make(map[string]BlockSection),
	}
}

// Build constructs and freezes a topology from its serialisable form.
func Build(data TopologyData) (*Topology, error) {
	t := New()
	for _, n := range data.Nodes {
		if err := t.AddNode(n); err != nil {
			return nil, err
		}
	}
	for _, e := range data.Edges {
		if err := t.AddEdge(e); err != nil {
			return nil, err
		}
	}
	for _, s := range data.Signals {
		if err := t.AddSignal(s); err != nil {
			return nil, err
		}
	}
	for _, b := range data.Blocks {
		if err := t.AddBlock(b); err != nil {
			return nil, err
		}
	}
	t.Freeze()
	return t, nil
}

// AddNode adds a node. Build-time only: returns an error once frozen or if
// the node ID already exists.
func (t *Topology) AddNode(n Node) error {
	if t.frozen {
		return fmt.Errorf("topology is frozen")
	}
	if _, exists := t.nodes[n.ID]; exists {
		return fmt.Errorf("node %q already exists", n.ID)
	}
	t.nodes[n.ID] = n
	return nil
}

// AddEdge adds a directed edge. Build-time only: returns an error once frozen,
// if the edge ID already exists, or if either endpoint is missing.
func (t *Topology) AddEdge(e Edge) error {
	if t.frozen {
		return fmt.Errorf("topology is frozen")
	}
	if _, exists := t.edges[e.ID]; exists {
		return fmt.Errorf("edge %q already exists", e.ID)
	}
	if _, ok := t.nodes[e.From]; !ok {
		return fmt.Errorf("edge %q: source node %q not found", e.ID, e.From)
	}
	if _, ok := t.nodes[e.To]; !ok {
		return fmt.Errorf("edge %q: target node %q not found", e.ID, e.To)
	}
	t.edges[e.ID] = e
	if t.edgeByNodes[e.From] == nil {
		t.edgeByNodes[e.From] = make(map[string]Edge)
	}
	t.edgeByNodes[e.From][e.To] = e
	return nil
}

// AddSignal registers a signal definition. The owning node must exist.
func (t *Topology) AddSignal(s Signal) error {
	if t.frozen {
		return fmt.Errorf("topology is frozen")
	}
	if _, ok := t.nodes[s.NodeID]; !ok {
		return fmt.Errorf("signal %q: node %q not found", s.ID, s.NodeID)
	}
	if s.Aspect == "" {
		s.Aspect = AspectRed
	}
	t.signals[s.ID] = s
	return nil
}

// AddBlock registers a block section definition. Both end nodes must exist.
func (t *Topology) AddBlock(b BlockSection) error {
	if t.frozen {
		return fmt.Errorf("topology is frozen")
	}
	if _, ok := t.nodes[b.StartNode]; !ok {
		return fmt.Errorf("block %q: start node %q not found", b.ID, b.StartNode)
	}
	if _, ok := t.nodes[b.EndNode]; !ok {
		return fmt.Errorf("block %q: end node %q not found", b.ID, b.EndNode)
	}
	t.blocks[b.ID] = b
	return nil
}

// Freeze marks the topology immutable. Further Add calls fail.
func (t *Topology) Freeze() { t.frozen = true }

// Node looks up a node by ID.
func (t *Topology) Node(id string) (Node, bool) {
	n, ok := t.nodes[id]
	return n, ok
}

// Edge looks up an edge by ID.
func (t *Topology) Edge(id string) (Edge, bool) {
	e, ok := t.edges[id]
	return e, ok
}

// EdgeBetween returns the directed edge from one node to another.
func (t *Topology) EdgeBetween(from, to string) (Edge, bool) {
	if m, ok := t.edgeByNodes[from]; ok {
		e, ok := m[to]
		return e, ok
	}
	return Edge{}, false
}

// Signals returns the signal definitions keyed by signal ID.
func (t *Topology) Signals() map[string]Signal {
	out := make(map[string]Signal, len(t.signals))
	for id, s := range t.signals {
		out[id] = s
	}
	return out
}

// Blocks returns the block section definitions keyed by block ID.
func (t *Topology) Blocks() map[string]BlockSection {
	out := make(map[string]BlockSection, len(t.blocks))
	for id, b := range t.blocks {
		out[id] = b
	}
	return out
}

// NodeCount and EdgeCount report topology size for snapshot metrics.
func (t *Topology) NodeCount() int { return len(t.nodes) }
func (t *Topology) EdgeCount() int { return len(t.edges) }

// Neighbors returns the IDs of nodes reachable from the given node by a
// single edge, in sorted order.
func (t *Topology) Neighbors(nodeID string) []string {
	m := t.edgeByNodes[nodeID]
	if len(m) == 0 {
		return nil
	}
	out := make([]string, 0, len(m))
	for to := range m {
		out = append(out, to)
	}
	sort.Strings(out)
	return out
}

// FindRoute returns the shortest route from start to end as an ordered node
// list, weighted by edge length. The result is empty when either node is
// unknown or no path exists.
func (t *Topology) FindRoute(start, end string) []string {
	if _, ok := t.nodes[start]; !ok {
		return nil
	}
	if _, ok := t.nodes[end]; !ok {
		return nil
	}
	if start == end {
		return []string{start}
	}

	dist := map[string]float64{start: 0}
	prev := map[string]string{}
	pq := &nodeQueue{{id: start, dist: 0}}
	heap.Init(pq)

	for pq.Len() > 0 {
		cur := heap.Pop(pq).(nodeItem)
		if cur.id == end {
			break
		}
		if cur.dist > dist[cur.id] {
			continue // stale entry
		}
		for to, e := range t.edgeByNodes[cur.id] {
			d := cur.dist + e.LengthM
			if old, seen := dist[to]; !seen || d < old {
				dist[to] = d
				prev[to] = cur.id
				heap.Push(pq, nodeItem{id: to, dist: d})
			}
		}
	}

	if _, reached := dist[end]; !reached {
		return nil
	}

	route := []string{end}
	for at := end; at != start; {
		at = prev[at]
		route = append(route, at)
	}
	for i, j := 0, len(route)-1; i < j; i, j = i+1, j-1 {
		route[i], route[j] = route[j], route[i]
	}
	return route
}

// RouteLength returns the total length in metres of the shortest route, or
// +Inf when no route exists.
func (t *Topology) RouteLength(start, end string) float64 {
	route := t.FindRoute(start, end)
	if len(route) == 0 {
		return math.Inf(1)
	}
	total := 0.0
	for i := 0; i < len(route)-1; i++ {
		if e, ok := t.EdgeBetween(route[i], route[i+1]); ok {
			total += e.LengthM
		}
	}
	return total
}

// SectionCapacity estimates the theoretical capacity between two nodes as the
// number of block sections lying on the shortest route, floored at 1. Returns
// 0 when the nodes are not connected.
func (t *Topology) SectionCapacity(start, end string) int {
	route := t.FindRoute(start, end)
	if len(route) == 0 {
		return 0
	}
	count := 0
	for i := 0; i < len(route)-1; i++ {
		for _, b := range t.blocks {
			if b.StartNode == route[i] && b.EndNode == route[i+1] {
				count++
			}
		}
	}
	if count < 1 {
		return 1
	}
	return count
}

type nodeItem struct {
	id   string
	dist float64
}

type nodeQueue []nodeItem

func (q nodeQueue) Len() int            { return len(q) }
func (q nodeQueue) Less(i, j int) bool  { return q[i].dist < q[j].dist }
func (q nodeQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *nodeQueue) Push(x interface{}) { *q = append(*q, x.(nodeItem)) }
func (q *nodeQueue) Pop() interface{} {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}
