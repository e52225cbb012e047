package network

import (
	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// ZeroImpedanceGraph 零阻抗支路子图
// 以支路编号为边权求最小生成森林,并联支路和成环支路不进入生成森林
type ZeroImpedanceGraph struct {
	branches []*Branch
	spanning map[int]bool
	groups   [][]int
	groupOf  map[int]int
}

// isInService 支路两端合闸且两端母线投运
func (n *Network) isInService(br *Branch) bool {
	if br.Disabled || !br.IsClosed() {
		return false
	}
	b1, b2 := n.Bus(br.Bus1), n.Bus(br.Bus2)
	return b1 != nil && b2 != nil && !b1.Disabled && !b2.Disabled
}

// ZeroImpedance 建立零阻抗支路子图
func (n *Network) ZeroImpedance(threshold float64) *ZeroImpedanceGraph {
	z := &ZeroImpedanceGraph{spanning: map[int]bool{}, groupOf: map[int]int{}}
	g := simple.NewWeightedUndirectedGraph(0, 0)
	for _, br := range n.Branches {
		if !n.isInService(br) || !br.IsZeroImpedance(threshold) {
			continue
		}
		z.branches = append(z.branches, br)
		if br.Bus1 == br.Bus2 || g.HasEdgeBetween(int64(br.Bus1), int64(br.Bus2)) {
			continue
		}
		g.SetWeightedEdge(g.NewWeightedEdge(simple.Node(br.Bus1), simple.Node(br.Bus2), float64(br.Num)))
	}
	forest := simple.NewWeightedUndirectedGraph(0, 0)
	path.Kruskal(forest, g)
	edges := forest.WeightedEdges()
	for edges.Next() {
		z.spanning[int(edges.WeightedEdge().Weight())] = true
	}
	for _, component := range topo.ConnectedComponents(g) {
		group := make([]int, 0, len(component))
		for _, node := range component {
			group = append(group, int(node.ID()))
		}
		slices.Sort(group)
		z.groups = append(z.groups, group)
	}
	slices.SortFunc(z.groups, func(a, b []int) int { return a[0] - b[0] })
	for i, group := range z.groups {
		for _, bus := range group {
			z.groupOf[bus] = i
		}
	}
	return z
}

// Branches 全部在运零阻抗支路(按编号)
func (z *ZeroImpedanceGraph) Branches() []*Branch { return z.branches }

// IsSpanning 支路是否属于生成森林
func (z *ZeroImpedanceGraph) IsSpanning(num int) bool { return z.spanning[num] }

// Groups 零阻抗连通母线组,每组按编号排序
func (z *ZeroImpedanceGraph) Groups() [][]int { return z.groups }

// Group 母线所在零阻抗组,不在任何组时只含自身
func (z *ZeroImpedanceGraph) Group(bus int) []int {
	if i, ok := z.groupOf[bus]; ok {
		return z.groups[i]
	}
	return []int{bus}
}

// SameGroup 两条母线是否经零阻抗支路相连
func (z *ZeroImpedanceGraph) SameGroup(a, b int) bool {
	if a == b {
		return true
	}
	ia, oka := z.groupOf[a]
	ib, okb := z.groupOf[b]
	return oka && okb && ia == ib
}

// Components 投运母线经在运支路形成的连通分量,每个分量按编号排序
func (n *Network) Components() [][]int {
	g := simple.NewUndirectedGraph()
	for _, b := range n.Buses {
		if !b.Disabled {
			g.AddNode(simple.Node(b.Num))
		}
	}
	for _, br := range n.Branches {
		if !n.isInService(br) || br.Bus1 == br.Bus2 {
			continue
		}
		g.SetEdge(g.NewEdge(simple.Node(br.Bus1), simple.Node(br.Bus2)))
	}
	var components [][]int
	for _, component := range topo.ConnectedComponents(g) {
		buses := make([]int, 0, len(component))
		for _, node := range component {
			buses = append(buses, int(node.ID()))
		}
		slices.Sort(buses)
		components = append(components, buses)
	}
	slices.SortFunc(components, func(a, b []int) int { return a[0] - b[0] })
	return components
}
