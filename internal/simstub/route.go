package simstub

import (
	"container/heap"

	"github.com/Faultbox/midgard-city/pkg/formats"
)

// Cell is a (row, col) grid coordinate.
type Cell struct {
	Row, Col int
}

// pathNode represents a node in the A* search.
type pathNode struct {
	cell   Cell
	g      float32 // Cost from start
	h      float32 // Heuristic (estimated cost to goal)
	f      float32 // Total cost (g + h)
	parent *pathNode
	index  int // Index in heap
}

// pathHeap implements a priority queue for A*.
type pathHeap []*pathNode

func (h pathHeap) Len() int           { return len(h) }
func (h pathHeap) Less(i, j int) bool { return h[i].f < h[j].f }
func (h pathHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *pathHeap) Push(x any) {
	node := x.(*pathNode)
	node.index = len(*h)
	*h = append(*h, node)
}

func (h *pathHeap) Pop() any {
	old := *h
	n := len(old)
	node := old[n-1]
	old[n-1] = nil
	node.index = -1
	*h = old[:n-1]
	return node
}

// Router finds lane-respecting routes on a city map. Cars may enter a
// lane cell only when the move agrees with the lane direction, may
// always enter traffic lights, and may enter a destination only if it
// is their own.
type Router struct {
	m      *formats.CityMap
	width  int
	height int
}

// NewRouter creates a router over m.
func NewRouter(m *formats.CityMap) *Router {
	return &Router{m: m, width: m.Width(), height: m.Height()}
}

// 8-way movement, straight moves first so ties prefer them.
var directions = [8][2]int{
	{1, 0}, {-1, 0}, {0, 1}, {0, -1},
	{1, 1}, {1, -1}, {-1, 1}, {-1, -1},
}

const (
	straightCost = float32(1.0)
	diagonalCost = float32(1.414)
)

// CanEnter reports whether a car heading for goal may step from cur to next.
func (r *Router) CanEnter(cur, next, goal Cell) bool {
	if !r.inBounds(next) {
		return false
	}
	sym := r.m.At(next.Row, next.Col)
	switch {
	case sym == formats.SymbolDestination:
		return next == goal
	case sym.IsTrafficLight():
		return true
	case sym.IsDirection():
		dr, dc := sym.Step()
		mr, mc := next.Row-cur.Row, next.Col-cur.Col
		if dr != 0 {
			return sign(mr) == dr
		}
		return sign(mc) == dc
	default:
		return false
	}
}

// FindPath finds a route from start to goal. The path includes both
// ends. Returns nil if no route exists.
func (r *Router) FindPath(start, goal Cell) []Cell {
	if !r.inBounds(start) || !r.inBounds(goal) {
		return nil
	}
	if start == goal {
		return []Cell{start}
	}

	openSet := &pathHeap{}
	heap.Init(openSet)

	closed := make(map[Cell]bool)
	nodes := make(map[Cell]*pathNode)

	first := &pathNode{cell: start, h: heuristic(start, goal)}
	first.f = first.h
	heap.Push(openSet, first)
	nodes[start] = first

	maxIterations := r.width * r.height * 8 // Prevent runaway searches
	for iterations := 0; openSet.Len() > 0 && iterations < maxIterations; iterations++ {
		current := heap.Pop(openSet).(*pathNode)
		if current.cell == goal {
			return reconstructPath(current)
		}
		closed[current.cell] = true

		for i, d := range directions {
			next := Cell{current.cell.Row + d[0], current.cell.Col + d[1]}
			if closed[next] || !r.CanEnter(current.cell, next, goal) {
				continue
			}

			cost := straightCost
			if i >= 4 {
				cost = diagonalCost
			}
			g := current.g + cost

			neighbor, exists := nodes[next]
			if !exists {
				neighbor = &pathNode{cell: next, g: g, h: heuristic(next, goal), parent: current}
				neighbor.f = neighbor.g + neighbor.h
				nodes[next] = neighbor
				heap.Push(openSet, neighbor)
			} else if g < neighbor.g {
				neighbor.g = g
				neighbor.f = neighbor.g + neighbor.h
				neighbor.parent = current
				heap.Fix(openSet, neighbor.index)
			}
		}
	}
	return nil
}

func (r *Router) inBounds(c Cell) bool {
	return c.Row >= 0 && c.Row < r.height && c.Col >= 0 && c.Col < r.width
}

// heuristic is the octile distance.
func heuristic(a, b Cell) float32 {
	dr := abs(b.Row - a.Row)
	dc := abs(b.Col - a.Col)
	if dr < dc {
		return float32(dr)*diagonalCost + float32(dc-dr)
	}
	return float32(dc)*diagonalCost + float32(dr-dc)
}

func reconstructPath(node *pathNode) []Cell {
	var path []Cell
	for node != nil {
		path = append(path, node.cell)
		node = node.parent
	}
	// Built from goal to start
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func sign(x int) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}
