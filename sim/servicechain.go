package sim

import "sort"

// AltNode identifies one node of an alternative graph: a (copy, function)
// pair, where copy disambiguates parallel paths fanning into the same
// microservice endpoint after a fork (spec §3, §4.6). Grounded on the
// original (copy_id, MicroserviceEndpointFunction) tuple node identity.
type AltNode struct {
	Copy     int
	Function string // "<microservice>.<endpoint>"
}

// ChainEdge is one directed hop in a ServiceChain: a named link carrying
// a fixed request payload size in bytes from one endpoint function to
// another (spec §3).
type ChainEdge struct {
	ID           string
	From, To     string // "<microservice>.<endpoint>" function names
	PayloadBytes int64
}

// ServiceChain is the directed multigraph of microservice endpoint
// functions and the payload-carrying edges between them, as configured
// by a scenario (spec §3, §6). It does not fork/join itself: that
// unfolding happens once, into an alternative graph, by
// BuildAlternativeGraph.
type ServiceChain struct {
	Name     string
	Nodes    []string // function names, insertion order
	Edges    []ChainEdge
	outEdges map[string][]ChainEdge
}

// NewServiceChain creates an empty, named ServiceChain.
func NewServiceChain(name string) *ServiceChain {
	return &ServiceChain{Name: name, outEdges: make(map[string][]ChainEdge)}
}

// AddNode registers an endpoint function by name, idempotently.
func (sc *ServiceChain) AddNode(function string) {
	for _, n := range sc.Nodes {
		if n == function {
			return
		}
	}
	sc.Nodes = append(sc.Nodes, function)
}

// AddEdge adds a directed edge between two already-added nodes. Fan-out
// order does not follow insertion order: BuildAlternativeGraph walks the
// edges sorted by ID, so subchain numbering is deterministic.
func (sc *ServiceChain) AddEdge(e ChainEdge) {
	sc.Edges = append(sc.Edges, e)
	sc.outEdges[e.From] = append(sc.outEdges[e.From], e)
}

// inDegree returns the number of edges terminating at function.
func (sc *ServiceChain) inDegree(function string) int {
	n := 0
	for _, e := range sc.Edges {
		if e.To == function {
			n++
		}
	}
	return n
}

// AlternativeGraph is the fork/join unfolding of a ServiceChain: every
// node that receives more than one incoming edge is duplicated once per
// incoming edge (a "copy"), turning diamond-shaped fan-in/fan-out into a
// graph where every node has in-degree <= 1, grounded on
// ServiceChainManager.generate_alternative_graph (spec §4.6).
type AlternativeGraph struct {
	Root      AltNode
	nodes     map[AltNode]bool
	out       map[AltNode][]altEdge
	inOrder   []AltNode // deterministic node creation order
}

type altEdge struct {
	to     AltNode
	edge   ChainEdge
}

// BuildAlternativeGraph unfolds sc into its alternative graph. The root
// is the function with zero in-degree in the original chain (copy 0).
func BuildAlternativeGraph(sc *ServiceChain) *AlternativeGraph {
	ag := &AlternativeGraph{
		nodes: make(map[AltNode]bool),
		out:   make(map[AltNode][]altEdge),
	}

	copiesNeeded := make(map[string]int)
	for _, n := range sc.Nodes {
		need := sc.inDegree(n)
		if need < 1 {
			need = 1
		}
		copiesNeeded[n] = need
	}

	for _, n := range sc.Nodes {
		for c := 0; c < copiesNeeded[n]; c++ {
			node := AltNode{Copy: c, Function: n}
			ag.nodes[node] = true
			ag.inOrder = append(ag.inOrder, node)
		}
	}

	// currentOutCopy tracks, for each function, which copy is the current
	// "outgoing" instance whose out-edges are being wired (mirrors the
	// original's current_node_out_index / node_replicas_index bookkeeping).
	currentOutCopy := make(map[string]int)
	nextInCopy := make(map[string]int)
	for _, n := range sc.Nodes {
		currentOutCopy[n] = 0
		nextInCopy[n] = 0
	}

	edges := append([]ChainEdge(nil), sc.Edges...)
	sort.SliceStable(edges, func(i, j int) bool { return edges[i].ID < edges[j].ID })

	for _, e := range edges {
		fromNode := AltNode{Copy: currentOutCopy[e.From], Function: e.From}
		toNode := AltNode{Copy: nextInCopy[e.To], Function: e.To}
		ag.out[fromNode] = append(ag.out[fromNode], altEdge{to: toNode, edge: e})
		nextInCopy[e.To]++
	}

	for _, n := range sc.Nodes {
		if sc.inDegree(n) == 0 {
			ag.Root = AltNode{Copy: 0, Function: n}
			break
		}
	}
	return ag
}

// Successors returns the alt-edges leaving node, in deterministic order.
func (ag *AlternativeGraph) Successors(node AltNode) []altEdge { return ag.out[node] }

// Subchain is one linear run of alt-nodes between forks: a request
// travels down exactly one subchain at a time, and a fork spawns one
// child subchain per outgoing edge (spec §4.6).
type Subchain struct {
	Nodes []AltNode
}

// ExtractSubchains walks the alternative graph depth-first from its
// root, grounded directly on ServiceChainManager.extract_subchains: a
// node with one successor continues the current subchain; a node with
// more than one successor ends the current subchain and starts one new
// subchain per successor (the fork), each itself recursively split the
// same way at its own forks. Subchain 0 is always the root's.
func ExtractSubchains(ag *AlternativeGraph) []Subchain {
	var subchains []Subchain
	var walk func(node AltNode, subchainID int, appendNew bool) int
	walk = func(node AltNode, subchainID int, appendNew bool) int {
		if appendNew || subchainID >= len(subchains) {
			subchains = append(subchains, Subchain{})
			subchainID = len(subchains) - 1
		}
		subchains[subchainID].Nodes = append(subchains[subchainID].Nodes, node)

		succ := ag.Successors(node)
		switch len(succ) {
		case 0:
			return subchainID
		case 1:
			return walk(succ[0].to, subchainID, false)
		default:
			for _, s := range succ {
				walk(s.to, subchainID+1, true)
			}
			return subchainID
		}
	}
	walk(ag.Root, 0, false)
	return subchains
}
