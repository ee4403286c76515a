package blips

import (
	"math"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
	"github.com/soniakeys/meeus/v3/sidereal"
	"github.com/soniakeys/meeus/v3/solar"
)

// solarElevationDeg returns the apparent solar elevation in degrees at a
// point and instant. Positive means the Sun is up.
func solarElevationDeg(lat, lon float64, t time.Time) float64 {
	jd := julian.TimeToJD(t.UTC())
	ra, dec := solar.ApparentEquatorial(jd)
	// Greenwich apparent sidereal time as an angle, 86400 s of time = 360°.
	gst := sidereal.Apparent(jd).Sec() / 240 * deg2rad
	h := gst + lon*deg2rad - ra.Rad() // local hour angle, east longitude positive
	φ := lat * deg2rad
	δ := dec.Rad()
	sinEl := math.Sin(φ)*math.Sin(δ) + math.Cos(φ)*math.Cos(δ)*math.Cos(h)
	return math.Asin(sinEl) / deg2rad
}

// isDaytime reports whether the Sun is above the horizon at the point.
func isDaytime(lat, lon float64, t time.Time) bool {
	return solarElevationDeg(lat, lon, t) > 0
}
