// Package sh holds the order-2 (9 coefficient) spherical harmonics containers
// shared by the probe builder and the runtime update path.
//
// Only the small amount of SH math the probe network needs lives here: basis
// evaluation and the cone kernel used to isolate a neighbor's contribution.
// Full SH projection of cube maps is done by the encoder, outside this module.
package sh

import (
	gomath "math"

	"github.com/Faultbox/probenet/pkg/math"
)

// NumCoeffs is the number of coefficients in an order-2 SH vector.
const NumCoeffs = 9

// Coeffs is a scalar SH vector (occlusion, kernels, sample directions).
type Coeffs [NumCoeffs]float32

// RGB is an SH vector per color channel.
type RGB [NumCoeffs][3]float32

// Add returns c + o.
func (c Coeffs) Add(o Coeffs) Coeffs {
	for i := range c {
		c[i] += o[i]
	}
	return c
}

// Scale returns c * s.
func (c Coeffs) Scale(s float32) Coeffs {
	for i := range c {
		c[i] *= s
	}
	return c
}

// Dot returns the sum of the coefficient products.
func (c Coeffs) Dot(o Coeffs) float32 {
	var d float32
	for i := range c {
		d += c[i] * o[i]
	}
	return d
}

// Add returns c + o.
func (c RGB) Add(o RGB) RGB {
	for i := range c {
		for ch := 0; ch < 3; ch++ {
			c[i][ch] += o[i][ch]
		}
	}
	return c
}

// Scale returns c * s.
func (c RGB) Scale(s float32) RGB {
	for i := range c {
		for ch := 0; ch < 3; ch++ {
			c[i][ch] *= s
		}
	}
	return c
}

// Tint multiplies every coefficient by a color.
func (c RGB) Tint(color [3]float32) RGB {
	for i := range c {
		for ch := 0; ch < 3; ch++ {
			c[i][ch] *= color[ch]
		}
	}
	return c
}

// Convolve multiplies c coefficient-wise by a scalar kernel.
func (c RGB) Convolve(k Coeffs) RGB {
	for i := range c {
		for ch := 0; ch < 3; ch++ {
			c[i][ch] *= k[i]
		}
	}
	return c
}

// FromScalar spreads a scalar SH vector over a color.
func FromScalar(c Coeffs, color [3]float32) RGB {
	var out RGB
	for i := range c {
		for ch := 0; ch < 3; ch++ {
			out[i][ch] = c[i] * color[ch]
		}
	}
	return out
}

// Basis evaluates the 9 real SH basis functions in direction dir.
// dir is expected to be normalized.
func Basis(dir math.Vec3) Coeffs {
	x, y, z := dir.X, dir.Y, dir.Z
	return Coeffs{
		0.282095,
		0.488603 * y,
		0.488603 * z,
		0.488603 * x,
		1.092548 * x * y,
		1.092548 * y * z,
		0.315392 * (3*z*z - 1),
		1.092548 * x * z,
		0.546274 * (x*x - y*y),
	}
}

// Evaluate returns the value of the function c in direction dir.
func Evaluate(c Coeffs, dir math.Vec3) float32 {
	return c.Dot(Basis(dir.Normalize()))
}

// KernelBuilder computes the convolution kernel used to isolate the part of a
// neighbor probe's SH that the current probe perceives.
type KernelBuilder interface {
	NeighborKernel(direction math.Vec3, solidAngle float32) Coeffs
}

// ConeKernel projects a cone of the given solid angle around direction.
type ConeKernel struct{}

// NeighborKernel implements KernelBuilder.
func (ConeKernel) NeighborKernel(direction math.Vec3, solidAngle float32) Coeffs {
	cosTheta := 1 - float64(solidAngle)/(2*gomath.Pi)
	cosTheta = gomath.Max(-1, gomath.Min(1, cosTheta))
	sin2 := 1 - cosTheta*cosTheta

	// Zonal coefficients of the cone indicator around +Z.
	zonal := [3]float64{
		gomath.Sqrt(gomath.Pi) * (1 - cosTheta),
		gomath.Sqrt(3*gomath.Pi) / 2 * sin2,
		gomath.Sqrt(5*gomath.Pi) / 2 * cosTheta * sin2,
	}

	basis := Basis(direction.Normalize())
	var k Coeffs
	for i := range k {
		l := band(i)
		k[i] = float32(gomath.Sqrt(4*gomath.Pi/float64(2*l+1)) * zonal[l] * float64(basis[i]))
	}
	return k
}

func band(i int) int {
	switch {
	case i == 0:
		return 0
	case i < 4:
		return 1
	default:
		return 2
	}
}
