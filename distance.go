package wiz

import (
	"container/heap"
	"math"
)

// DistanceEntry is the shortest-path labelling produced for one node:
// its distance from ROOT and the id of the parent on its shortest path.
type DistanceEntry struct {
	Distance    int
	ViaParent   string
	Unreachable bool
}

// distQueueItem is one entry in the Dijkstra frontier.
type distQueueItem struct {
	id   string
	dist int
}

// distQueue is a container/heap priority queue ordered purely by distance;
// the lexicographic path tie-break is resolved separately during
// relaxation, not by the heap ordering itself.
type distQueue []distQueueItem

func (q distQueue) Len() int            { return len(q) }
func (q distQueue) Less(i, j int) bool  { return q[i].dist < q[j].dist }
func (q distQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *distQueue) Push(x interface{}) { *q = append(*q, x.(distQueueItem)) }
func (q *distQueue) Pop() interface{} {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// computeDistanceMapping runs Dijkstra from ROOT over the directed
// parent->child graph, treating each edge's weight as its cost. Ties in
// distance are broken by a lexicographic comparison of the shortest
// path's node-id sequence, so the mapping is deterministic regardless of
// traversal or heap ordering.
func (g *Graph) computeDistanceMapping() map[string]DistanceEntry {
	dist := map[string]int{RootNodeID: 0}
	via := map[string]string{}
	path := map[string][]string{RootNodeID: {RootNodeID}}
	visited := map[string]bool{}

	pq := &distQueue{{id: RootNodeID, dist: 0}}
	heap.Init(pq)

	for pq.Len() > 0 {
		item := heap.Pop(pq).(distQueueItem)
		if visited[item.id] {
			continue
		}
		visited[item.id] = true

		for _, child := range g.childOrder[item.id] {
			w := g.edgeWeight[edgeKey{item.id, child}]
			nd := dist[item.id] + w

			existing, ok := dist[child]
			replace := !ok || nd < existing
			if ok && nd == existing {
				candidate := appendPath(path[item.id], child)
				if lessPath(candidate, path[child]) {
					replace = true
				}
			}
			if replace {
				dist[child] = nd
				via[child] = item.id
				path[child] = appendPath(path[item.id], child)
				heap.Push(pq, distQueueItem{id: child, dist: nd})
			}
		}
	}

	out := make(map[string]DistanceEntry, len(g.nodes))
	for id := range g.nodes {
		if id == RootNodeID {
			out[id] = DistanceEntry{Distance: 0}
			continue
		}
		if d, ok := dist[id]; ok {
			out[id] = DistanceEntry{Distance: d, ViaParent: via[id]}
		} else {
			out[id] = DistanceEntry{Distance: math.MaxInt32, Unreachable: true}
		}
	}
	return out
}

func appendPath(base []string, next string) []string {
	out := make([]string, len(base), len(base)+1)
	copy(out, base)
	return append(out, next)
}

// lessPath compares two node-id path sequences lexicographically.
func lessPath(a, b []string) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}
