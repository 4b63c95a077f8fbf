package logic

import "math"

// standardGravity is used to reject free-fall accelerometer readings.
const standardGravity = 9.80665

// IsNorth reports whether azimuth (degrees, [0,360)) is within tolerance of north.
func IsNorth(azimuth, tolerance float64) bool {
	return azimuth >= 360-tolerance || azimuth <= tolerance
}

// NormalizeAzimuth maps any angle in degrees into [0,360).
func NormalizeAzimuth(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

// Azimuth derives the compass heading in degrees from a gravity (accelerometer)
// and a geomagnetic (magnetometer) reading, both in device coordinates.
// ok is false when either reading is all zeros, the device is in free fall,
// or it is too close to the magnetic pole to yield a heading.
func Azimuth(gravity, geomagnetic [3]float64) (azimuth float64, ok bool) {
	if gravity == [3]float64{} || geomagnetic == [3]float64{} {
		return 0, false
	}

	ax, ay, az := gravity[0], gravity[1], gravity[2]
	ex, ey, ez := geomagnetic[0], geomagnetic[1], geomagnetic[2]

	normsqA := ax*ax + ay*ay + az*az
	if normsqA < 0.01*standardGravity*standardGravity {
		return 0, false
	}

	// East = magnetic × gravity
	hx := ey*az - ez*ay
	hy := ez*ax - ex*az
	hz := ex*ay - ey*ax
	normH := math.Sqrt(hx*hx + hy*hy + hz*hz)
	if normH < 0.1 {
		return 0, false
	}
	invH := 1 / normH
	hx *= invH
	hy *= invH
	hz *= invH

	invA := 1 / math.Sqrt(normsqA)
	ax *= invA
	ay *= invA
	az *= invA

	// North = gravity × east; only its y component feeds the azimuth.
	my := az*hx - ax*hz

	rad := math.Atan2(hy, my)
	return NormalizeAzimuth(rad * 180 / math.Pi), true
}
