package telemetry

import "math"

// Vector2 is a position in track-local coordinates.
type Vector2 struct {
	X float64
	Y float64
}

func (a Vector2) DistanceTo(b Vector2) float64 {
	x := math.Pow(b.X-a.X, 2)
	y := math.Pow(b.Y-a.Y, 2)

	return math.Sqrt(x + y)
}

func (a Vector2) Sub(b Vector2) Vector2 {
	return Vector2{X: a.X - b.X, Y: a.Y - b.Y}
}

// Heading returns the angle of the vector in radians, in the range [-π, π].
func (a Vector2) Heading() float64 {
	return math.Atan2(a.Y, a.X)
}

// Bounds returns the minimum and maximum corners of the given points.
func Bounds(points []Vector2) (lo, hi Vector2) {
	if len(points) == 0 {
		return Vector2{}, Vector2{}
	}

	lo, hi = points[0], points[0]

	for _, point := range points {
		if point.X < lo.X {
			lo.X = point.X
		}

		if point.Y < lo.Y {
			lo.Y = point.Y
		}

		if point.X > hi.X {
			hi.X = point.X
		}

		if point.Y > hi.Y {
			hi.Y = point.Y
		}
	}

	return lo, hi
}
