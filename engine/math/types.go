package math

// Vec2 represents a 2D vector
type Vec2 struct {
	X, Y float32
}

// Vec3 represents a 3D vector
type Vec3 struct {
	X, Y, Z float32
}

/**
 * @brief a 2x2 matrix stored column-major, matching the GLSL mat2 layout
 * used by the push constant block.
 */
type Mat2 struct {
	/** @brief The matrix elements, column 0 then column 1. */
	Data [4]float32
}

/**
 * @brief Represents a single vertex in 2D space with a per-vertex colour.
 */
type Vertex2D struct {
	/** @brief The position of the vertex */
	Position Vec2
	/** @brief The colour of the vertex. */
	Colour Vec3
}
