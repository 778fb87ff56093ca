package math

/**
 * @brief Represents the placement of an object in 2D space.
 */
type Transform2D struct {
	/** @brief Position offset. */
	Translation Vec2
	/** @brief Per axis scale. */
	Scale Vec2
	/** @brief Rotation in radians. */
	Rotation float32
}

/**
 * @brief Creates and returns a new transform, using a zero
 * vector for position, no rotation and a unit scale.
 */
func NewTransform2D() Transform2D {
	return Transform2D{
		Translation: NewVec2Zero(),
		Scale:       NewVec2One(),
		Rotation:    0,
	}
}

// Mat2 returns rotation * scale, so scaling applies in the object's local axes.
func (t Transform2D) Mat2() Mat2 {
	return NewMat2Rotation(t.Rotation).Mul(NewMat2Scale(t.Scale))
}
