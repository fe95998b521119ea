package control

import "math"

func Clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Signum returns -1, 0 or 1.
func Signum(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// BoundAngle0To360 maps any angle in degrees onto [0, 360).
func BoundAngle0To360(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

// BoundAngleNeg180To180 maps any angle in degrees onto [-180, 180).
func BoundAngleNeg180To180(deg float64) float64 {
	deg = BoundAngle0To360(deg)
	if deg >= 180 {
		deg -= 360
	}
	return deg
}

// ApplyDeadband zeroes inputs whose magnitude is below band.
func ApplyDeadband(v, band float64) float64 {
	if math.Abs(v) < band {
		return 0
	}
	return v
}
