package math

import (
	m "math"
)

const (
	/** @brief An approximate representation of PI. */
	K_PI float32 = 3.14159265358979323846
	/** @brief An approximate representation of PI multiplied by 2. */
	K_PI_2 float32 = 2.0 * K_PI
	/** @brief An approximate representation of PI divided by 2. */
	K_HALF_PI float32 = 0.5 * K_PI
	/** @brief A multiplier used to convert degrees to radians. */
	K_DEG2RAD_MULTIPLIER float32 = K_PI / 180.0
	/** @brief A multiplier used to convert radians to degrees. */
	K_RAD2DEG_MULTIPLIER float32 = 180.0 / K_PI
	/** @brief Smallest positive number where 1.0 + FLOAT_EPSILON != 0 */
	K_FLOAT_EPSILON float32 = 1.192092896e-07
)

func ksin(x float32) float32 {
	return float32(m.Sin(float64(x)))
}

func kcos(x float32) float32 {
	return float32(m.Cos(float64(x)))
}

func ksqrt(x float32) float32 {
	return float32(m.Sqrt(float64(x)))
}

func kabs(x float32) float32 {
	return float32(m.Abs(float64(x)))
}

func DegToRad(degrees float32) float32 {
	return degrees * K_DEG2RAD_MULTIPLIER
}

func RadToDeg(radians float32) float32 {
	return radians * K_RAD2DEG_MULTIPLIER
}

// Vector 2
// ------------------------------------------

func NewVec2(x, y float32) Vec2 {
	return Vec2{
		X: x,
		Y: y,
	}
}

func NewVec2Zero() Vec2 {
	return Vec2{X: 0.0, Y: 0.0}
}

func NewVec2One() Vec2 {
	return Vec2{1.0, 1.0}
}

/**
 *  Adds other to v and returns a copy of the result.
 */
func (v Vec2) Add(other Vec2) Vec2 {
	return Vec2{v.X + other.X, v.Y + other.Y}
}

/**
 *  Multiplies v by other and returns a copy of the result.
 */
func (v Vec2) Mul(other Vec2) Vec2 {
	return Vec2{v.X * other.X, v.Y * other.Y}
}

func (v Vec2) Length() float32 {
	return ksqrt(v.X*v.X + v.Y*v.Y)
}

/**
 * @brief Compares all elements of v and other and ensures the difference
 * is less than tolerance.
 */
func (v Vec2) Compare(other Vec2, tolerance float32) bool {
	if kabs(v.X-other.X) > tolerance {
		return false
	}
	if kabs(v.Y-other.Y) > tolerance {
		return false
	}
	return true
}

// ------------------------------------------
// Vector 3
// ------------------------------------------

func NewVec3(x, y, z float32) Vec3 {
	return Vec3{
		X: x,
		Y: y,
		Z: z,
	}
}

func NewVec3Zero() Vec3 {
	return Vec3{0.0, 0.0, 0.0}
}

// ------------------------------------------
// Matrix 2
// ------------------------------------------

/**
 * @brief Creates and returns an identity matrix:
 *
 * {
 *   {1, 0},
 *   {0, 1}
 * }
 */
func NewMat2Identity() Mat2 {
	return Mat2{Data: [4]float32{1, 0, 0, 1}}
}

// NewMat2Columns builds a matrix from its two columns.
func NewMat2Columns(c0, c1 Vec2) Mat2 {
	return Mat2{Data: [4]float32{c0.X, c0.Y, c1.X, c1.Y}}
}

// NewMat2Rotation returns a counter-clockwise rotation of angle radians.
func NewMat2Rotation(angle float32) Mat2 {
	s := ksin(angle)
	c := kcos(angle)
	return NewMat2Columns(Vec2{c, s}, Vec2{-s, c})
}

func NewMat2Scale(scale Vec2) Mat2 {
	return NewMat2Columns(Vec2{scale.X, 0}, Vec2{0, scale.Y})
}

// Column returns column i (0 or 1).
func (a Mat2) Column(i int) Vec2 {
	return Vec2{a.Data[i*2], a.Data[i*2+1]}
}

/**
 * @brief Returns the result of multiplying a and b (a * b).
 */
func (a Mat2) Mul(b Mat2) Mat2 {
	return NewMat2Columns(a.MulVec2(b.Column(0)), a.MulVec2(b.Column(1)))
}

func (a Mat2) MulVec2(v Vec2) Vec2 {
	return Vec2{
		X: a.Data[0]*v.X + a.Data[2]*v.Y,
		Y: a.Data[1]*v.X + a.Data[3]*v.Y,
	}
}

func (a Mat2) Compare(b Mat2, tolerance float32) bool {
	for i := range a.Data {
		if kabs(a.Data[i]-b.Data[i]) > tolerance {
			return false
		}
	}
	return true
}
