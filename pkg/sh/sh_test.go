package sh

import (
	gomath "math"
	"testing"

	"github.com/Faultbox/probenet/pkg/math"
)

func TestConeKernelFullSphere(t *testing.T) {
	k := ConeKernel{}.NeighborKernel(math.Vec3{X: 0, Y: 0, Z: 1}, 4*gomath.Pi)

	// A full sphere projects to the constant function 1.
	if gomath.Abs(float64(k[0])*0.282095-1) > 1e-3 {
		t.Errorf("expected DC term ~1, got %f", k[0])
	}
	for i := 1; i < NumCoeffs; i++ {
		if gomath.Abs(float64(k[i])) > 1e-4 {
			t.Errorf("coefficient %d should vanish, got %f", i, k[i])
		}
	}
}

func TestConeKernelDirectional(t *testing.T) {
	dir := math.Vec3{X: 1, Y: 0, Z: 0}
	k := ConeKernel{}.NeighborKernel(dir, 0.5)

	front := Evaluate(k, dir)
	back := Evaluate(k, dir.Scale(-1))
	if front <= back {
		t.Errorf("kernel should peak toward its axis: front=%f back=%f", front, back)
	}
}

func TestConeKernelZeroAngle(t *testing.T) {
	k := ConeKernel{}.NeighborKernel(math.Vec3{X: 0, Y: 1, Z: 0}, 0)
	if k != (Coeffs{}) {
		t.Errorf("zero solid angle should give zero kernel, got %v", k)
	}
}

func TestRGBConvolve(t *testing.T) {
	var c RGB
	for i := range c {
		c[i] = [3]float32{1, 2, 3}
	}
	var k Coeffs
	k[0] = 2
	got := c.Convolve(k)
	if got[0] != [3]float32{2, 4, 6} {
		t.Errorf("unexpected band 0: %v", got[0])
	}
	if got[1] != [3]float32{} {
		t.Errorf("band 1 should be zeroed, got %v", got[1])
	}
}

func TestFromScalarTint(t *testing.T) {
	c := Coeffs{1, 0.5}
	got := FromScalar(c, [3]float32{1, 0, 2})
	if got[1] != [3]float32{0.5, 0, 1} {
		t.Errorf("unexpected coefficient: %v", got[1])
	}
	if got.Tint([3]float32{2, 2, 2})[0] != [3]float32{2, 0, 4} {
		t.Errorf("tint mismatch: %v", got.Tint([3]float32{2, 2, 2})[0])
	}
}
