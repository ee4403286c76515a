package blips

import (
	"math"
)

const (
	deg2rad = math.Pi / 180
	// EarthRadius is the mean Earth radius in meters.
	EarthRadius = 6371000.0
)

// Deg2rad converts degrees to radians, and enforces only positive numbers.
func Deg2rad(a float64) float64 {
	if a < 0 {
		a += 360
	}
	return math.Mod(a*deg2rad, 2*math.Pi)
}

// Rad2deg converts radians to degrees, and enforces only positive numbers.
func Rad2deg(a float64) float64 {
	if a < 0 {
		a += 2 * math.Pi
	}
	return math.Mod(a/deg2rad, 360)
}

// haversine returns the great-circle distance in meters between two
// lat/lon points given in degrees.
func haversine(lat1, lon1, lat2, lon2 float64) float64 {
	φ1 := lat1 * deg2rad
	φ2 := lat2 * deg2rad
	Δφ := (lat2 - lat1) * deg2rad
	Δλ := (lon2 - lon1) * deg2rad
	sΔφ := math.Sin(Δφ / 2)
	sΔλ := math.Sin(Δλ / 2)
	a := sΔφ*sΔφ + math.Cos(φ1)*math.Cos(φ2)*sΔλ*sΔλ
	return 2 * EarthRadius * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// bearing returns the initial great-circle bearing in degrees [0, 360)
// from the first point to the second.
func bearing(lat1, lon1, lat2, lon2 float64) float64 {
	φ1 := lat1 * deg2rad
	φ2 := lat2 * deg2rad
	Δλ := (lon2 - lon1) * deg2rad
	y := math.Sin(Δλ) * math.Cos(φ2)
	x := math.Cos(φ1)*math.Sin(φ2) - math.Sin(φ1)*math.Cos(φ2)*math.Cos(Δλ)
	return Rad2deg(math.Atan2(y, x))
}

// interpAngle linearly interpolates between two angles in degrees along the
// shorter arc, so a 359°→1° blend crosses 0° instead of sweeping the circle.
func interpAngle(a, b, frac float64) float64 {
	d := math.Mod(b-a+540, 360) - 180
	r := math.Mod(a+frac*d, 360)
	if r < 0 {
		r += 360
	}
	return r
}

// clamp bounds v to [lo, hi].
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
