// Package topology wraps a directed, weighted multigraph of network
// links over gonum's graph primitives, and exposes shortest-path lookups
// for the transmission engine. It has no dependency on the sim package's
// Host/Replica/Request types so sim can embed it without an import
// cycle.
package topology

import (
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
)

// Graph is a directed multigraph of named nodes connected by named,
// weighted edges (edge weight is transmission latency in nanoseconds).
// Parallel edges between the same (from, to) pair are allowed at the
// domain level (multiple physical links between two hosts); Graph keeps
// the cheapest one for shortest-path routing and tracks all of them by ID
// for bandwidth bookkeeping.
type Graph struct {
	g        *simple.WeightedDirectedGraph
	nodeID   map[string]int64
	nodeName map[int64]string
	nextID   int64

	// edges indexes every edge (including parallel ones) by its domain ID.
	edges map[string]edgeRecord

	// bestEdge keeps, for each (from, to) node pair, the ID of the
	// lowest-weight edge — the one gonum's graph actually holds, since
	// WeightedDirectedGraph stores a single weight per node pair.
	bestEdge map[[2]string]string
}

type edgeRecord struct {
	from, to string
	weight   float64
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		g:        simple.NewWeightedDirectedGraph(0, 0),
		nodeID:   make(map[string]int64),
		nodeName: make(map[int64]string),
		edges:    make(map[string]edgeRecord),
		bestEdge: make(map[[2]string]string),
	}
}

// AddNode registers a node by name, idempotently.
func (gr *Graph) AddNode(name string) {
	if _, ok := gr.nodeID[name]; ok {
		return
	}
	id := gr.nextID
	gr.nextID++
	gr.nodeID[name] = id
	gr.nodeName[id] = name
	gr.g.AddNode(simple.Node(id))
}

// AddEdge adds a directed, weighted edge identified by edgeID between two
// named nodes (both must already exist via AddNode). If this is the
// lowest-weight edge seen for the (from, to) pair so far, it becomes the
// edge gonum's shortest-path search will consider.
func (gr *Graph) AddEdge(edgeID, from, to string, weight float64) {
	gr.edges[edgeID] = edgeRecord{from: from, to: to, weight: weight}

	key := [2]string{from, to}
	current, ok := gr.bestEdge[key]
	if ok && gr.edges[current].weight <= weight {
		return
	}
	gr.bestEdge[key] = edgeID
	gr.g.SetWeightedEdge(simple.WeightedEdge{
		F: simple.Node(gr.nodeID[from]),
		T: simple.Node(gr.nodeID[to]),
		W: weight,
	})
}

// ShortestPath returns the sequence of node names on the lowest-total-
// weight path from 'from' to 'to' (inclusive of both endpoints) and the
// total weight, using Dijkstra's algorithm. ok is false if either node is
// unknown or no path exists.
func (gr *Graph) ShortestPath(from, to string) (nodes []string, totalWeight float64, ok bool) {
	fromID, ok1 := gr.nodeID[from]
	toID, ok2 := gr.nodeID[to]
	if !ok1 || !ok2 {
		return nil, 0, false
	}
	shortest := path.DijkstraFrom(simple.Node(fromID), gr.g)
	nodePath, weight := shortest.To(toID)
	if len(nodePath) == 0 {
		return nil, 0, false
	}
	names := make([]string, len(nodePath))
	for i, n := range nodePath {
		names[i] = gr.nodeName[n.ID()]
	}
	return names, weight, true
}

// Edges returns all edges registered between two named nodes (including
// parallel ones not chosen for shortest-path routing), keyed by edge ID.
func (gr *Graph) Edges(from, to string) map[string]float64 {
	out := make(map[string]float64)
	for id, e := range gr.edges {
		if e.from == from && e.to == to {
			out[id] = e.weight
		}
	}
	return out
}

var _ graph.Graph = (*simple.WeightedDirectedGraph)(nil)
