package math

import (
	"math"
	"testing"
)

func TestVec3Cross(t *testing.T) {
	x := Vec3{1, 0, 0}
	y := Vec3{0, 1, 0}
	got := x.Cross(y)
	want := Vec3{0, 0, 1}
	if got != want {
		t.Errorf("Vec3.Cross() = %v, want %v", got, want)
	}
}

func TestVec3MinMax(t *testing.T) {
	a := Vec3{1, 5, -2}
	b := Vec3{3, -1, 0}
	if got := a.Min(b); got != (Vec3{1, -1, -2}) {
		t.Errorf("Min() = %v", got)
	}
	if got := a.Max(b); got != (Vec3{3, 5, 0}) {
		t.Errorf("Max() = %v", got)
	}
}

func TestVec3NormalizeZero(t *testing.T) {
	if got := (Vec3{}).Normalize(); got != (Vec3{}) {
		t.Errorf("expected zero vector, got %v", got)
	}
}

func TestTransformPoint(t *testing.T) {
	m := Translate(10, 20, 30)
	got := m.TransformPoint(Vec3{1, 2, 3})
	want := Vec3{11, 22, 33}
	if got != want {
		t.Errorf("TransformPoint() = %v, want %v", got, want)
	}
}

func TestInverseRoundTrip(t *testing.T) {
	m := Translate(4, -2, 7).Mul(RotateY(0.7)).Mul(Scale(2, 2, 2))
	inv := m.Inverse()

	p := Vec3{1.5, -3, 0.25}
	back := inv.TransformPoint(m.TransformPoint(p))
	if back.Distance(p) > 1e-4 {
		t.Errorf("inverse round trip: got %v, want %v", back, p)
	}
}

func TestInverseSingular(t *testing.T) {
	if got := (Mat4{}).Inverse(); got != Identity() {
		t.Errorf("singular inverse should be identity, got %v", got)
	}
}

func TestAABBDistanceSq(t *testing.T) {
	b := AABB{Min: Vec3{0, 0, 0}, Max: Vec3{1, 1, 1}}
	if d := b.DistanceSq(Vec3{0.5, 0.5, 0.5}); d != 0 {
		t.Errorf("inside point should have distance 0, got %f", d)
	}
	if d := b.DistanceSq(Vec3{3, 0.5, 0.5}); math.Abs(float64(d-4)) > 1e-6 {
		t.Errorf("expected 4, got %f", d)
	}
}

func TestAABBOctants(t *testing.T) {
	b := AABB{Min: Vec3{-1, -1, -1}, Max: Vec3{1, 1, 1}}
	for i := 0; i < 8; i++ {
		o := b.Octant(i)
		if got := b.OctantOf(o.Center()); got != i {
			t.Errorf("octant %d center maps to %d", i, got)
		}
	}
}

func TestEmptyAABB(t *testing.T) {
	b := EmptyAABB()
	if !b.IsEmpty() {
		t.Fatal("expected empty box")
	}
	b = b.Extend(Vec3{1, 2, 3})
	if b.IsEmpty() || b.Min != b.Max {
		t.Errorf("single point box: %v", b)
	}
}
