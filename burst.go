package blips

import (
	"fmt"
	"math"
	"sort"
)

/* Balloon performance: neck lift and masses in, ascent rate and burst
altitude out, plus the inverse "goal" solver. All weights are in grams, as
read off a launch-site scale. */

// Gas identifies the lifting gas.
type Gas uint8

const (
	// Helium lifting gas.
	Helium Gas = iota
	// Hydrogen lifting gas.
	Hydrogen
)

func (g Gas) String() string {
	if g == Hydrogen {
		return "hydrogen"
	}
	return "helium"
}

// Density returns the gas density in kg/m³ at ISA sea-level conditions.
func (g Gas) Density() float64 {
	if g == Hydrogen {
		return 0.0899
	}
	return 0.1786
}

const (
	// BalloonDragCoefficient is the drag coefficient of an inflated latex
	// envelope in ascent.
	BalloonDragCoefficient = 0.25
	// BurstVolumeCoefficient and BurstVolumeExponent define the allometric
	// burst model: burstVolume = coeff · balloonWeight^exp (weight in g,
	// volume in m³), fitted against manufacturer burst diameters.
	BurstVolumeCoefficient = 0.00253
	BurstVolumeExponent    = 1.636
	// BurstAltitudeTolerance is the accepted error (m) when the goal solver
	// reproduces a target burst altitude.
	BurstAltitudeTolerance = 150.0

	burstSearchCeiling = 60000.0 // m, bisection upper bound
	minFlyableAscent   = 0.5     // m/s, below this a goal option is discarded
)

// CalculatorParameters are the weighed-at-launch inputs to the performance
// calculator. All weights in grams.
type CalculatorParameters struct {
	PayloadWeight   float64
	BalloonWeight   float64
	ParachuteWeight float64
	NeckLift        float64
	Gas             Gas
}

// BurstPerformance is the forward calculator output.
type BurstPerformance struct {
	AscentRate    float64 // m/s
	BurstAltitude float64 // m
	FreeLift      float64 // g
	LaunchVolume  float64 // m³ at launch altitude
	BurstVolume   float64 // m³
	BurstRadius   float64 // m
}

// InfeasibleAscentError reports that the neck lift cannot carry the train:
// free lift is zero or negative and the balloon will not rise. Never
// clamped, always surfaced.
type InfeasibleAscentError struct {
	NeckLift float64 // g
	Deficit  float64 // g, weight the neck lift must exceed
}

func (e *InfeasibleAscentError) Error() string {
	return fmt.Sprintf("neck lift %.0f g does not exceed the %.0f g it must carry: balloon cannot ascend", e.NeckLift, e.Deficit)
}

// gasDensityAt scales the sea-level gas density to ambient conditions,
// assuming the envelope equalizes to ambient pressure and temperature.
func gasDensityAt(g Gas, altitude float64) float64 {
	return g.Density() * (AltitudeToPressure(altitude) / SeaLevelPressure) * (SeaLevelTemperature / TemperatureAt(altitude))
}

// CalculateBurstPerformance runs the forward solver: ascent rate from the
// drag balance at launch altitude, burst altitude from gas expansion against
// the allometric burst volume.
func CalculateBurstPerformance(p CalculatorParameters, launchAltitude float64) (BurstPerformance, error) {
	deficit := p.PayloadWeight + p.ParachuteWeight
	freeLift := p.NeckLift - deficit
	if freeLift <= 0 {
		return BurstPerformance{}, &InfeasibleAscentError{NeckLift: p.NeckLift, Deficit: deficit}
	}

	ρair := AirDensityAt(launchAltitude)
	ρgas := gasDensityAt(p.Gas, launchAltitude)
	// Gross lift at the neck carries the envelope itself as well.
	grossLift := (p.NeckLift + p.BalloonWeight) / 1000 // kg
	launchVolume := grossLift / (ρair - ρgas)
	launchRadius := math.Cbrt(3 * launchVolume / (4 * math.Pi))
	area := math.Pi * launchRadius * launchRadius

	ascentRate := math.Sqrt((freeLift / 1000 * G0) / (0.5 * BalloonDragCoefficient * ρair * area))

	burstVolume := BurstVolumeCoefficient * math.Pow(p.BalloonWeight, BurstVolumeExponent)
	burstRadius := math.Cbrt(3 * burstVolume / (4 * math.Pi))
	burstAltitude := solveBurstAltitude(launchVolume, burstVolume, launchAltitude)

	return BurstPerformance{
		AscentRate:    ascentRate,
		BurstAltitude: burstAltitude,
		FreeLift:      freeLift,
		LaunchVolume:  launchVolume,
		BurstVolume:   burstVolume,
		BurstRadius:   burstRadius,
	}, nil
}

// inflatedVolume is the envelope volume at altitude for a launch volume
// sealed at launch conditions: V·(p0/p)·(T/T0).
func inflatedVolume(launchVolume, launchAltitude, altitude float64) float64 {
	p0 := AltitudeToPressure(launchAltitude)
	t0 := TemperatureAt(launchAltitude)
	return launchVolume * (p0 / AltitudeToPressure(altitude)) * (TemperatureAt(altitude) / t0)
}

// solveBurstAltitude bisects for the altitude at which the inflated volume
// reaches the burst volume. Volume grows monotonically with altitude, so the
// root is unique.
func solveBurstAltitude(launchVolume, burstVolume, launchAltitude float64) float64 {
	if inflatedVolume(launchVolume, launchAltitude, launchAltitude) >= burstVolume {
		return launchAltitude // over-inflated: bursts on release
	}
	lo, hi := launchAltitude, burstSearchCeiling
	if inflatedVolume(launchVolume, launchAltitude, hi) < burstVolume {
		return hi // never expands enough within the model ceiling
	}
	for i := 0; i < 60; i++ {
		mid := (lo + hi) / 2
		if inflatedVolume(launchVolume, launchAltitude, mid) < burstVolume {
			lo = mid
		} else {
			hi = mid
		}
	}
	return (lo + hi) / 2
}

// Feasibility grades a goal option by its ascent rate.
type Feasibility uint8

const (
	// FeasibilityPoor means the ascent rate is outside flyable bounds.
	FeasibilityPoor Feasibility = iota
	// FeasibilityMarginal means a slow or fast but survivable ascent.
	FeasibilityMarginal
	// FeasibilityGood means a comfortable ascent rate.
	FeasibilityGood
	// FeasibilityExcellent means the ascent rate is in the sweet spot.
	FeasibilityExcellent
)

func (f Feasibility) String() string {
	switch f {
	case FeasibilityExcellent:
		return "excellent"
	case FeasibilityGood:
		return "good"
	case FeasibilityMarginal:
		return "marginal"
	default:
		return "poor"
	}
}

// gradeAscent maps an ascent rate to a feasibility grade. Too slow risks
// long cold exposure and drift, too fast risks envelope failure.
func gradeAscent(rate float64) Feasibility {
	switch {
	case rate >= 4.5 && rate <= 5.5:
		return FeasibilityExcellent
	case rate >= 3.5 && rate <= 6.5:
		return FeasibilityGood
	case rate >= 2.5 && rate <= 7.5:
		return FeasibilityMarginal
	default:
		return FeasibilityPoor
	}
}

// GoalOption is one payload/neck-lift combination reproducing a target burst
// altitude.
type GoalOption struct {
	PayloadWeight float64 // g
	NeckLift      float64 // g
	AscentRate    float64 // m/s
	BurstAltitude float64 // m
	Feasibility   Feasibility
}

// CalculateGoalOptions runs the inverse solver: sweep payload weights and
// bisect the neck lift that reproduces the target burst altitude within
// BurstAltitudeTolerance. Options are returned ranked best first.
func CalculateGoalOptions(targetBurstAltitude, balloonWeight, parachuteWeight float64, gas Gas, launchAltitude float64) ([]GoalOption, []string) {
	var warnings []string
	if targetBurstAltitude < 5000 {
		warnings = append(warnings, fmt.Sprintf("target burst altitude %.0f m is below 5 km; most trains burst far higher even with minimal fill", targetBurstAltitude))
	}
	if targetBurstAltitude > 45000 {
		warnings = append(warnings, fmt.Sprintf("target burst altitude %.0f m is above 45 km, beyond typical latex balloon performance", targetBurstAltitude))
	}

	var options []GoalOption
	for payload := 100.0; payload <= 2000.0; payload += 100.0 {
		opt, ok := solveGoalNeckLift(targetBurstAltitude, payload, balloonWeight, parachuteWeight, gas, launchAltitude)
		if !ok {
			continue
		}
		options = append(options, opt)
	}
	if len(options) == 0 {
		warnings = append(warnings, fmt.Sprintf("no payload/neck-lift combination reaches %.0f m with a %.0f g balloon", targetBurstAltitude, balloonWeight))
		return nil, warnings
	}
	sort.SliceStable(options, func(i, j int) bool {
		if options[i].Feasibility != options[j].Feasibility {
			return options[i].Feasibility > options[j].Feasibility
		}
		return math.Abs(options[i].AscentRate-5.0) < math.Abs(options[j].AscentRate-5.0)
	})
	return options, warnings
}

// solveGoalNeckLift bisects the neck lift for one payload weight. Burst
// altitude decreases monotonically with neck lift (more gas, bigger launch
// volume, earlier burst), so a sign check brackets the root.
func solveGoalNeckLift(target, payload, balloonWeight, parachuteWeight float64, gas Gas, launchAltitude float64) (GoalOption, bool) {
	deficit := payload + parachuteWeight
	lo := deficit + 10   // barely positive free lift: highest possible burst
	hi := deficit + 8000 // heavy fill: lowest burst

	burstAt := func(neckLift float64) float64 {
		perf, err := CalculateBurstPerformance(CalculatorParameters{
			PayloadWeight:   payload,
			BalloonWeight:   balloonWeight,
			ParachuteWeight: parachuteWeight,
			NeckLift:        neckLift,
			Gas:             gas,
		}, launchAltitude)
		if err != nil {
			return -1
		}
		return perf.BurstAltitude
	}

	if burstAt(lo) < target || burstAt(hi) > target {
		return GoalOption{}, false // target outside the reachable band
	}
	for i := 0; i < 60; i++ {
		mid := (lo + hi) / 2
		if burstAt(mid) > target {
			lo = mid
		} else {
			hi = mid
		}
	}
	neckLift := (lo + hi) / 2
	perf, err := CalculateBurstPerformance(CalculatorParameters{
		PayloadWeight:   payload,
		BalloonWeight:   balloonWeight,
		ParachuteWeight: parachuteWeight,
		NeckLift:        neckLift,
		Gas:             gas,
	}, launchAltitude)
	if err != nil || math.Abs(perf.BurstAltitude-target) > BurstAltitudeTolerance {
		return GoalOption{}, false
	}
	if perf.AscentRate < minFlyableAscent {
		return GoalOption{}, false
	}
	return GoalOption{
		PayloadWeight: payload,
		NeckLift:      neckLift,
		AscentRate:    perf.AscentRate,
		BurstAltitude: perf.BurstAltitude,
		Feasibility:   gradeAscent(perf.AscentRate),
	}, true
}
