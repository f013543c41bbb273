// Package octree indexes probe positions for nearest-probe queries.
package octree

import (
	"container/heap"
	"errors"

	"github.com/Faultbox/probenet/pkg/math"
)

// ErrEmpty is returned when querying a tree without points.
var ErrEmpty = errors.New("octree: no points")

const (
	// LeafCapacity is the number of points a leaf holds before it splits.
	LeafCapacity = 8
	// MaxDepth bounds subdivision so coincident points cannot recurse forever.
	MaxDepth = 10
)

type point struct {
	id  int
	pos math.Vec3
}

type node struct {
	bounds   math.AABB
	depth    int
	points   []point
	children *[8]node
}

// Tree is a point octree over a fixed bounding box. Points outside the box
// are kept in the root so they are still found by queries.
type Tree struct {
	root    node
	outside []point
	count   int
}

// New creates an empty tree covering [min, max].
func New(min, max math.Vec3) *Tree {
	return &Tree{root: node{bounds: math.AABB{Min: min, Max: max}}}
}

// Build creates a tree sized to fit all positions, with point i getting ID i.
func Build(positions []math.Vec3) *Tree {
	bounds := math.EmptyAABB()
	for _, p := range positions {
		bounds = bounds.Extend(p)
	}
	if bounds.IsEmpty() {
		bounds = math.AABB{}
	}
	t := New(bounds.Min, bounds.Max)
	for i, p := range positions {
		t.Insert(i, p)
	}
	return t
}

// Len returns the number of points in the tree.
func (t *Tree) Len() int {
	return t.count
}

// Bounds returns the box the tree subdivides.
func (t *Tree) Bounds() math.AABB {
	return t.root.bounds
}

// Insert adds a point with the given ID.
func (t *Tree) Insert(id int, pos math.Vec3) {
	t.count++
	pt := point{id: id, pos: pos}
	if !t.root.bounds.Contains(pos) {
		t.outside = append(t.outside, pt)
		return
	}
	t.root.insert(pt)
}

func (n *node) insert(pt point) {
	for n.children != nil {
		n = &n.children[n.bounds.OctantOf(pt.pos)]
	}
	n.points = append(n.points, pt)
	if len(n.points) > LeafCapacity && n.depth < MaxDepth {
		n.split()
	}
}

func (n *node) split() {
	n.children = new([8]node)
	for i := range n.children {
		n.children[i] = node{bounds: n.bounds.Octant(i), depth: n.depth + 1}
	}
	points := n.points
	n.points = nil
	for _, pt := range points {
		child := &n.children[n.bounds.OctantOf(pt.pos)]
		child.points = append(child.points, pt)
	}
	for i := range n.children {
		c := &n.children[i]
		if len(c.points) > LeafCapacity && c.depth < MaxDepth {
			c.split()
		}
	}
}

// searchItem is a node waiting in the best-first queue.
type searchItem struct {
	node  *node
	dist  float32 // Squared distance from the query to the node's box
	index int
}

type searchHeap []*searchItem

func (h searchHeap) Len() int           { return len(h) }
func (h searchHeap) Less(i, j int) bool { return h[i].dist < h[j].dist }
func (h searchHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *searchHeap) Push(x interface{}) {
	item := x.(*searchItem)
	item.index = len(*h)
	*h = append(*h, item)
}

func (h *searchHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*h = old[:n-1]
	return item
}

// Nearest returns the ID of the point closest to pos. Ties go to the lower ID.
func (t *Tree) Nearest(pos math.Vec3) (int, error) {
	if t.count == 0 {
		return -1, ErrEmpty
	}

	best := -1
	var bestDist float32
	consider := func(pts []point) {
		for _, pt := range pts {
			d := pt.pos.DistanceSq(pos)
			if best < 0 || d < bestDist || (d == bestDist && pt.id < best) {
				best, bestDist = pt.id, d
			}
		}
	}
	consider(t.outside)

	open := &searchHeap{}
	heap.Push(open, &searchItem{node: &t.root, dist: t.root.bounds.DistanceSq(pos)})
	for open.Len() > 0 {
		item := heap.Pop(open).(*searchItem)
		// Equal distance boxes may still hold a lower ID at the same range.
		if best >= 0 && item.dist > bestDist {
			break
		}
		n := item.node
		if n.children == nil {
			consider(n.points)
			continue
		}
		for i := range n.children {
			c := &n.children[i]
			d := c.bounds.DistanceSq(pos)
			if best >= 0 && d > bestDist {
				continue
			}
			heap.Push(open, &searchItem{node: c, dist: d})
		}
	}
	return best, nil
}
