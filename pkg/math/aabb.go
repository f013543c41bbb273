package math

import "math"

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min, Max Vec3
}

// EmptyAABB returns an inverted box that any Extend call will replace.
func EmptyAABB() AABB {
	inf := float32(math.Inf(1))
	return AABB{
		Min: Vec3{inf, inf, inf},
		Max: Vec3{-inf, -inf, -inf},
	}
}

// IsEmpty reports whether the box contains no point.
func (b AABB) IsEmpty() bool {
	return b.Min.X > b.Max.X || b.Min.Y > b.Max.Y || b.Min.Z > b.Max.Z
}

// Extend grows the box to include p.
func (b AABB) Extend(p Vec3) AABB {
	return AABB{Min: b.Min.Min(p), Max: b.Max.Max(p)}
}

// Center returns the box center.
func (b AABB) Center() Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// Contains reports whether p lies inside the box (inclusive).
func (b AABB) Contains(p Vec3) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// DistanceSq returns the squared distance from p to the box, 0 when inside.
func (b AABB) DistanceSq(p Vec3) float32 {
	var d float32
	for _, c := range [3][3]float32{
		{p.X, b.Min.X, b.Max.X},
		{p.Y, b.Min.Y, b.Max.Y},
		{p.Z, b.Min.Z, b.Max.Z},
	} {
		if c[0] < c[1] {
			d += (c[1] - c[0]) * (c[1] - c[0])
		} else if c[0] > c[2] {
			d += (c[0] - c[2]) * (c[0] - c[2])
		}
	}
	return d
}

// Octant returns the child box with the given index (bit 0 = +X, bit 1 = +Y,
// bit 2 = +Z) when the box is split at its center.
func (b AABB) Octant(i int) AABB {
	c := b.Center()
	o := AABB{Min: b.Min, Max: c}
	if i&1 != 0 {
		o.Min.X, o.Max.X = c.X, b.Max.X
	}
	if i&2 != 0 {
		o.Min.Y, o.Max.Y = c.Y, b.Max.Y
	}
	if i&4 != 0 {
		o.Min.Z, o.Max.Z = c.Z, b.Max.Z
	}
	return o
}

// OctantOf returns the index of the child box containing p.
func (b AABB) OctantOf(p Vec3) int {
	c := b.Center()
	i := 0
	if p.X >= c.X {
		i |= 1
	}
	if p.Y >= c.Y {
		i |= 2
	}
	if p.Z >= c.Z {
		i |= 4
	}
	return i
}
