package math

import "math"

// Mat4 is a 4x4 matrix in column-major order.
// Layout: [m0 m4 m8  m12]
//
//	[m1 m5 m9  m13]
//	[m2 m6 m10 m14]
//	[m3 m7 m11 m15]
type Mat4 [16]float32

// Identity returns an identity matrix.
func Identity() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Translate returns a translation matrix.
func Translate(x, y, z float32) Mat4 {
	m := Identity()
	m[12], m[13], m[14] = x, y, z
	return m
}

// Scale returns a scale matrix.
func Scale(x, y, z float32) Mat4 {
	m := Identity()
	m[0], m[5], m[10] = x, y, z
	return m
}

// RotateY returns a rotation matrix around the Y axis.
// angle is in radians.
func RotateY(angle float32) Mat4 {
	c := float32(math.Cos(float64(angle)))
	s := float32(math.Sin(float64(angle)))

	return Mat4{
		c, 0, -s, 0,
		0, 1, 0, 0,
		s, 0, c, 0,
		0, 0, 0, 1,
	}
}

// IsZero reports whether every element is zero, which scene files use for
// "no transform given".
func (m Mat4) IsZero() bool {
	return m == Mat4{}
}

// Mul multiplies this matrix by another (m * other).
func (m Mat4) Mul(other Mat4) Mat4 {
	var result Mat4
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			result[col*4+row] =
				m[0*4+row]*other[col*4+0] +
					m[1*4+row]*other[col*4+1] +
					m[2*4+row]*other[col*4+2] +
					m[3*4+row]*other[col*4+3]
		}
	}
	return result
}

// TransformPoint transforms a point by this matrix (assumes w=1).
func (m Mat4) TransformPoint(p Vec3) Vec3 {
	x := m[0]*p.X + m[4]*p.Y + m[8]*p.Z + m[12]
	y := m[1]*p.X + m[5]*p.Y + m[9]*p.Z + m[13]
	z := m[2]*p.X + m[6]*p.Y + m[10]*p.Z + m[14]
	w := m[3]*p.X + m[7]*p.Y + m[11]*p.Z + m[15]
	if w != 0 && w != 1 {
		return Vec3{x / w, y / w, z / w}
	}
	return Vec3{x, y, z}
}

// TransformDirection transforms a direction vector (ignores translation).
func (m Mat4) TransformDirection(d Vec3) Vec3 {
	return Vec3{
		m[0]*d.X + m[4]*d.Y + m[8]*d.Z,
		m[1]*d.X + m[5]*d.Y + m[9]*d.Z,
		m[2]*d.X + m[6]*d.Y + m[10]*d.Z,
	}
}

// Inverse returns the inverse of an affine matrix (bottom row 0 0 0 1).
// Singular matrices yield the identity.
func (m Mat4) Inverse() Mat4 {
	a, b, c := m[0], m[4], m[8]
	d, e, f := m[1], m[5], m[9]
	g, h, k := m[2], m[6], m[10]

	r0 := e*k - f*h
	r1 := f*g - d*k
	r2 := d*h - e*g
	det := a*r0 + b*r1 + c*r2
	if det == 0 {
		return Identity()
	}
	s := 1 / det

	var inv Mat4
	// Upper 3x3 is the adjugate over the determinant.
	inv[0], inv[4], inv[8] = r0*s, (c*h-b*k)*s, (b*f-c*e)*s
	inv[1], inv[5], inv[9] = r1*s, (a*k-c*g)*s, (c*d-a*f)*s
	inv[2], inv[6], inv[10] = r2*s, (b*g-a*h)*s, (a*e-b*d)*s

	t := Vec3{m[12], m[13], m[14]}
	inv[12] = -(inv[0]*t.X + inv[4]*t.Y + inv[8]*t.Z)
	inv[13] = -(inv[1]*t.X + inv[5]*t.Y + inv[9]*t.Z)
	inv[14] = -(inv[2]*t.X + inv[6]*t.Y + inv[10]*t.Z)
	inv[15] = 1
	return inv
}
