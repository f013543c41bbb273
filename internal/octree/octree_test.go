package octree

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/Faultbox/probenet/pkg/math"
)

func bruteNearest(points []math.Vec3, q math.Vec3) int {
	best := 0
	for i := 1; i < len(points); i++ {
		if points[i].DistanceSq(q) < points[best].DistanceSq(q) {
			best = i
		}
	}
	return best
}

func TestEmptyTree(t *testing.T) {
	tree := New(math.Vec3{}, math.Vec3{X: 1, Y: 1, Z: 1})
	if _, err := tree.Nearest(math.Vec3{}); !errors.Is(err, ErrEmpty) {
		t.Errorf("expected ErrEmpty, got %v", err)
	}
}

func TestNearestMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	points := make([]math.Vec3, 200)
	for i := range points {
		points[i] = math.Vec3{X: rng.Float32() * 100, Y: rng.Float32() * 20, Z: rng.Float32() * 100}
	}
	tree := Build(points)
	if tree.Len() != len(points) {
		t.Fatalf("expected %d points, got %d", len(points), tree.Len())
	}

	for i := 0; i < 100; i++ {
		q := math.Vec3{X: rng.Float32()*120 - 10, Y: rng.Float32() * 20, Z: rng.Float32()*120 - 10}
		got, err := tree.Nearest(q)
		if err != nil {
			t.Fatal(err)
		}
		want := bruteNearest(points, q)
		if points[got].DistanceSq(q) != points[want].DistanceSq(q) {
			t.Errorf("query %v: expected point %d, got %d", q, want, got)
		}
	}
}

func TestNearestTieGoesToLowerID(t *testing.T) {
	tree := New(math.Vec3{X: -10, Y: -10, Z: -10}, math.Vec3{X: 10, Y: 10, Z: 10})
	tree.Insert(5, math.Vec3{X: 1})
	tree.Insert(2, math.Vec3{X: -1})

	id, err := tree.Nearest(math.Vec3{})
	if err != nil {
		t.Fatal(err)
	}
	if id != 2 {
		t.Errorf("expected lower ID 2 on tie, got %d", id)
	}
}

func TestPointsOutsideBounds(t *testing.T) {
	tree := New(math.Vec3{}, math.Vec3{X: 1, Y: 1, Z: 1})
	tree.Insert(0, math.Vec3{X: 0.5, Y: 0.5, Z: 0.5})
	tree.Insert(1, math.Vec3{X: 50})

	id, _ := tree.Nearest(math.Vec3{X: 40})
	if id != 1 {
		t.Errorf("expected outside point 1, got %d", id)
	}
}

func TestCoincidentPointsStopSplitting(t *testing.T) {
	tree := New(math.Vec3{}, math.Vec3{X: 1, Y: 1, Z: 1})
	for i := 0; i < 50; i++ {
		tree.Insert(i, math.Vec3{X: 0.25, Y: 0.25, Z: 0.25})
	}
	id, err := tree.Nearest(math.Vec3{X: 0.3, Y: 0.3, Z: 0.3})
	if err != nil {
		t.Fatal(err)
	}
	if id != 0 {
		t.Errorf("expected ID 0 among coincident points, got %d", id)
	}
}
