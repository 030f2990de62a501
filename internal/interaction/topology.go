package interaction

import (
	"sort"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/todmy/interolog/internal/evidence"
)

// Topology is the adjacency-list graph of the stored evidence, keyed by
// normalized protein identifiers.
type Topology struct {
	Nodes map[string]struct{}
	Edges map[PairKey][]evidence.Record
}

// Topology builds the graph of every record with a resolvable normalized
// pair. Records without one are skipped.
func (s *Store) Topology() Topology {
	t := Topology{
		Nodes: make(map[string]struct{}),
		Edges: make(map[PairKey][]evidence.Record),
	}
	for rec := range s.All() {
		a, b, ok := rec.Pair()
		if !ok {
			continue
		}
		t.Nodes[a] = struct{}{}
		t.Nodes[b] = struct{}{}
		key := NewPairKey(a, b)
		t.Edges[key] = append(t.Edges[key], rec)
	}
	return t
}

// SortedNodes returns the node identifiers in lexicographic order.
func (t Topology) SortedNodes() []string {
	nodes := make([]string, 0, len(t.Nodes))
	for n := range t.Nodes {
		nodes = append(nodes, n)
	}
	sort.Strings(nodes)
	return nodes
}

// SortedEdges returns the edge keys ordered by A then B.
func (t Topology) SortedEdges() []PairKey {
	keys := make([]PairKey, 0, len(t.Edges))
	for k := range t.Edges {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].A != keys[j].A {
			return keys[i].A < keys[j].A
		}
		return keys[i].B < keys[j].B
	})
	return keys
}

// Graph converts the topology into an undirected gonum graph. The returned
// slice maps node ids back to identifiers. Self-interactions are not
// represented as edges.
func (t Topology) Graph() (*simple.UndirectedGraph, []string) {
	names := t.SortedNodes()
	ids := make(map[string]int64, len(names))

	g := simple.NewUndirectedGraph()
	for i, name := range names {
		ids[name] = int64(i)
		g.AddNode(simple.Node(i))
	}
	for key := range t.Edges {
		if key.A == key.B {
			continue
		}
		g.SetEdge(g.NewEdge(g.Node(ids[key.A]), g.Node(ids[key.B])))
	}
	return g, names
}

// Components returns the connected components of the topology, each
// sorted, largest first.
func (t Topology) Components() [][]string {
	g, names := t.Graph()

	var components [][]string
	for _, nodes := range topo.ConnectedComponents(g) {
		component := make([]string, 0, len(nodes))
		for _, n := range nodes {
			component = append(component, names[n.ID()])
		}
		sort.Strings(component)
		components = append(components, component)
	}

	sort.Slice(components, func(i, j int) bool {
		if len(components[i]) != len(components[j]) {
			return len(components[i]) > len(components[j])
		}
		return components[i][0] < components[j][0]
	})
	return components
}

// Degrees returns the number of distinct partners of every node.
func (t Topology) Degrees() map[string]int {
	g, names := t.Graph()
	degrees := make(map[string]int, len(names))
	nodes := g.Nodes()
	for nodes.Next() {
		n := nodes.Node()
		degrees[names[n.ID()]] = g.From(n.ID()).Len()
	}
	return degrees
}
