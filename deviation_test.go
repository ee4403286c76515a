package blips

import (
	"testing"
	"time"

	floats "gonum.org/v1/gonum/floats/scalar"
)

func TestDeviationNearestInTime(t *testing.T) {
	pred, err := Predict(stdLaunch(), calmWeather())
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	// A sample exactly on the predicted point deviates by nothing.
	ref := pred.PointAt(30 * time.Minute)
	pos := TelemetryPosition{
		Time:     launchDT.Add(ref.Offset),
		Lat:      ref.Lat,
		Lon:      ref.Lon,
		Altitude: Float(ref.Altitude),
	}
	dev := DeviationFrom(pos, pred, launchDT)
	if dev.Distance != 0 || dev.AltitudeDifference != 0 {
		t.Fatalf("on-track sample should not deviate, got %+v", dev)
	}
	// Matching is by time, not position: an on-track but late sample must
	// show an altitude difference.
	late := pos
	late.Time = late.Time.Add(10 * time.Minute)
	dev = DeviationFrom(late, pred, launchDT)
	if dev.AltitudeDifference >= 0 {
		t.Fatalf("a late ascent sample sits below the predicted altitude, got %+v", dev)
	}
}

func TestAccuracyBounds(t *testing.T) {
	cases := []Deviation{
		{},
		{Distance: 1000, AltitudeDifference: 100},
		{Distance: MaxTrajectoryDeviation, AltitudeDifference: MaxAltitudeDeviation},
		{Distance: 1e9, AltitudeDifference: -1e9},
	}
	for _, dev := range cases {
		for _, actual := range []float64{0, 2.5, 5, 50} {
			acc := ScoreAccuracy(dev, actual, 5)
			for name, v := range map[string]float64{
				"trajectory": acc.Trajectory,
				"altitude":   acc.Altitude,
				"timing":     acc.Timing,
				"overall":    acc.Overall,
			} {
				if v < 0.1 || v > 1 {
					t.Fatalf("%s accuracy %f out of [0.1, 1] for dev %+v actual %f", name, v, dev, actual)
				}
			}
		}
	}
}

func TestAccuracyPerfect(t *testing.T) {
	acc := ScoreAccuracy(Deviation{}, 5, 5)
	if acc.Trajectory != 1 || acc.Altitude != 1 {
		t.Fatalf("zero deviation should score 1.0, got %+v", acc)
	}
	if !floats.EqualWithinAbs(acc.Timing, 0.9, 1e-9) {
		t.Fatalf("matched ascent rate should boost timing to 0.9, got %f", acc.Timing)
	}
}

func TestAccuracyTimingNeutralWithoutRate(t *testing.T) {
	acc := ScoreAccuracy(Deviation{}, 0, 5)
	if acc.Timing != 0.7 {
		t.Fatalf("unknown actual rate should leave timing at 0.7, got %f", acc.Timing)
	}
}

func TestAccuracyFloorsAtTenth(t *testing.T) {
	acc := ScoreAccuracy(Deviation{Distance: 1e9, AltitudeDifference: 1e9}, 0, 5)
	if acc.Trajectory != 0.1 || acc.Altitude != 0.1 {
		t.Fatalf("hopeless deviation floors at 0.1, got %+v", acc)
	}
}
