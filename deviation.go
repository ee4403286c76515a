package blips

import (
	"time"
)

/* Deviation against the predicted path and normalized accuracy scoring. */

const (
	// MaxTrajectoryDeviation (m) is the horizontal deviation at which the
	// trajectory score bottoms out. Generous: balloon flights legitimately
	// drift tens of kilometers off a correct prediction.
	MaxTrajectoryDeviation = 50000.0
	// MaxAltitudeDeviation (m) is the altitude-difference equivalent.
	MaxAltitudeDeviation = 5000.0

	accuracyFloor = 0.1
)

// Deviation is the offset of a telemetry sample from the predicted path
// point nearest in flight-elapsed time.
type Deviation struct {
	Distance           float64 // m great-circle
	Bearing            float64 // degrees from predicted toward actual
	AltitudeDifference float64 // m, actual − predicted
}

// DeviationFrom compares a telemetry sample against the prediction. The
// reference point is matched by time, not by position: a balloon exactly on
// track but late is deviating.
func DeviationFrom(pos TelemetryPosition, pred *PredictionResult, launchTime time.Time) Deviation {
	ref := pred.PointAt(pos.Time.Sub(launchTime))
	d := Deviation{
		Distance: haversine(ref.Lat, ref.Lon, pos.Lat, pos.Lon),
		Bearing:  bearing(ref.Lat, ref.Lon, pos.Lat, pos.Lon),
	}
	if alt, ok := pos.Alt(); ok {
		d.AltitudeDifference = alt - ref.Altitude
	}
	return d
}

// Accuracy scores a live flight against its prediction. Every component is
// within [0.1, 1].
type Accuracy struct {
	Trajectory float64
	Altitude   float64
	Timing     float64
	Overall    float64
}

// ScoreAccuracy normalizes a deviation into accuracy scores. Timing starts
// at a neutral 0.7 and is boosted toward 0.9 as the actual/nominal
// ascent-rate ratio approaches 1; pass a zero actual rate when none is
// known.
func ScoreAccuracy(dev Deviation, actualAscentRate, nominalAscentRate float64) Accuracy {
	a := Accuracy{
		Trajectory: clamp(1-dev.Distance/MaxTrajectoryDeviation, accuracyFloor, 1),
		Altitude:   clamp(1-abs(dev.AltitudeDifference)/MaxAltitudeDeviation, accuracyFloor, 1),
		Timing:     0.7,
	}
	if actualAscentRate > 0 && nominalAscentRate > 0 {
		ratio := actualAscentRate / nominalAscentRate
		closeness := 1 - abs(ratio-1)
		if closeness > 0 {
			a.Timing = clamp(0.7+0.2*closeness, accuracyFloor, 0.9)
		}
	}
	a.Overall = clamp(0.5*a.Trajectory+0.3*a.Altitude+0.2*a.Timing, accuracyFloor, 1)
	return a
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
