package blips

import (
	"errors"
	"math"
	"testing"
)

func stdParams() CalculatorParameters {
	return CalculatorParameters{
		PayloadWeight:   1000,
		BalloonWeight:   1200,
		ParachuteWeight: 100,
		NeckLift:        1500,
		Gas:             Helium,
	}
}

func TestBurstPerformanceForward(t *testing.T) {
	perf, err := CalculateBurstPerformance(stdParams(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if perf.FreeLift != 400 {
		t.Fatalf("free lift should be 400 g, got %f", perf.FreeLift)
	}
	if perf.AscentRate < 2 || perf.AscentRate > 6 {
		t.Fatalf("ascent rate %f m/s outside sane band for this train", perf.AscentRate)
	}
	if perf.BurstAltitude < 28000 || perf.BurstAltitude > 36000 {
		t.Fatalf("burst altitude %f m outside expected band for a 1200 g balloon", perf.BurstAltitude)
	}
	if perf.LaunchVolume <= 0 || perf.BurstVolume <= perf.LaunchVolume {
		t.Fatalf("volumes inconsistent: launch %f, burst %f", perf.LaunchVolume, perf.BurstVolume)
	}
}

func TestBurstAltitudeGrowsWithBalloonSize(t *testing.T) {
	small := stdParams()
	small.BalloonWeight = 800
	large := stdParams()
	large.BalloonWeight = 1600
	pSmall, err := CalculateBurstPerformance(small, 0)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	pLarge, err := CalculateBurstPerformance(large, 0)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if pLarge.BurstAltitude <= pSmall.BurstAltitude {
		t.Fatalf("bigger balloon should burst higher: %f vs %f", pLarge.BurstAltitude, pSmall.BurstAltitude)
	}
}

func TestInfeasibleAscent(t *testing.T) {
	p := stdParams()
	p.NeckLift = p.PayloadWeight + p.ParachuteWeight // boundary: exactly the deficit
	_, err := CalculateBurstPerformance(p, 0)
	var infeasible *InfeasibleAscentError
	if !errors.As(err, &infeasible) {
		t.Fatalf("neck lift equal to the deficit must be infeasible, got %v", err)
	}
	if infeasible.Deficit != 1100 {
		t.Fatalf("deficit should be 1100 g, got %f", infeasible.Deficit)
	}
	p.NeckLift = 1100.01 // barely above: feasible
	if _, err := CalculateBurstPerformance(p, 0); err != nil {
		t.Fatalf("lift barely above deficit should be feasible, got %v", err)
	}
}

func TestMoreGasLowersBurstAltitude(t *testing.T) {
	light := stdParams()
	heavy := stdParams()
	heavy.NeckLift = 3000
	pLight, _ := CalculateBurstPerformance(light, 0)
	pHeavy, _ := CalculateBurstPerformance(heavy, 0)
	if pHeavy.BurstAltitude >= pLight.BurstAltitude {
		t.Fatalf("more fill should burst lower: %f vs %f", pHeavy.BurstAltitude, pLight.BurstAltitude)
	}
	if pHeavy.AscentRate <= pLight.AscentRate {
		t.Fatalf("more fill should climb faster: %f vs %f", pHeavy.AscentRate, pLight.AscentRate)
	}
}

func TestGoalOptionsRoundTrip(t *testing.T) {
	const target = 30000.0
	options, warnings := CalculateGoalOptions(target, 1200, 100, Helium, 0)
	if len(warnings) != 0 {
		t.Fatalf("no warnings expected for a 30 km target, got %v", warnings)
	}
	if len(options) == 0 {
		t.Fatal("expected at least one goal option")
	}
	for _, opt := range options {
		perf, err := CalculateBurstPerformance(CalculatorParameters{
			PayloadWeight:   opt.PayloadWeight,
			BalloonWeight:   1200,
			ParachuteWeight: 100,
			NeckLift:        opt.NeckLift,
			Gas:             Helium,
		}, 0)
		if err != nil {
			t.Fatalf("option %+v infeasible on feedback: %s", opt, err)
		}
		if math.Abs(perf.BurstAltitude-target) > BurstAltitudeTolerance {
			t.Fatalf("option %+v reproduces %f m, outside ±%.0f m of target", opt, perf.BurstAltitude, BurstAltitudeTolerance)
		}
	}
	// Ranked best first.
	for i := 1; i < len(options); i++ {
		if options[i].Feasibility > options[i-1].Feasibility {
			t.Fatalf("options not ranked by feasibility: %s after %s", options[i].Feasibility, options[i-1].Feasibility)
		}
	}
}

func TestGoalWarnings(t *testing.T) {
	if _, warnings := CalculateGoalOptions(3000, 1200, 100, Helium, 0); len(warnings) == 0 {
		t.Fatal("a 3 km target should warn")
	}
	if _, warnings := CalculateGoalOptions(46000, 1200, 100, Helium, 0); len(warnings) == 0 {
		t.Fatal("a 46 km target should warn")
	}
}

func TestHydrogenLiftsMore(t *testing.T) {
	he := stdParams()
	h2 := stdParams()
	h2.Gas = Hydrogen
	pHe, _ := CalculateBurstPerformance(he, 0)
	pH2, _ := CalculateBurstPerformance(h2, 0)
	// Same neck lift needs less hydrogen volume, so the balloon bursts higher.
	if pH2.LaunchVolume >= pHe.LaunchVolume {
		t.Fatalf("hydrogen launch volume should be smaller: %f vs %f", pH2.LaunchVolume, pHe.LaunchVolume)
	}
	if pH2.BurstAltitude <= pHe.BurstAltitude {
		t.Fatalf("hydrogen should burst higher at equal neck lift: %f vs %f", pH2.BurstAltitude, pHe.BurstAltitude)
	}
}
