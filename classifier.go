package blips

import (
	"fmt"
	"time"
)

/* Turns a noisy telemetry window into a confidence-scored flight phase. */

// classifierWindow is how many trailing samples the classifier inspects.
const classifierWindow = 5

// TelemetryPosition is one received position report. Consumers require the
// sequence to be time-ordered; a caller holding out-of-order data must sort
// first.
type TelemetryPosition struct {
	Time     time.Time
	Lat, Lon float64
	Altitude *float64 // m, nil when the beacon carried no altitude
	Speed    float64  // m/s ground speed, 0 when absent
	Course   float64  // degrees, 0 when absent
	Comment  string
}

// Alt returns the altitude and whether one was reported.
func (p TelemetryPosition) Alt() (float64, bool) {
	if p.Altitude == nil {
		return 0, false
	}
	return *p.Altitude, true
}

// Float is a convenience for building telemetry with a reported altitude.
func Float(v float64) *float64 { return &v }

// Phase is the classified flight phase.
type Phase uint8

const (
	// PhaseUnknown is the low-confidence catch-all.
	PhaseUnknown Phase = iota
	// PhaseAscent means the balloon is rising.
	PhaseAscent
	// PhaseBurst means the balloon is at or just past apex.
	PhaseBurst
	// PhaseDescent means the balloon is falling.
	PhaseDescent
	// PhaseLanded means the flight is over. Terminal.
	PhaseLanded
)

func (p Phase) String() string {
	switch p {
	case PhaseAscent:
		return "ascent"
	case PhaseBurst:
		return "burst"
	case PhaseDescent:
		return "descent"
	case PhaseLanded:
		return "landed"
	default:
		return "unknown"
	}
}

// FlightPhase is a classified phase with its confidence.
type FlightPhase struct {
	Phase      Phase
	Confidence float64 // [0, 1]
	DetectedAt time.Time
}

// TelemetryGapError reports too few usable samples to compute a rate.
type TelemetryGapError struct {
	Samples int
}

func (e *TelemetryGapError) Error() string {
	return fmt.Sprintf("need at least 2 usable telemetry samples, have %d", e.Samples)
}

// altSample is a telemetry sample that reported an altitude.
type altSample struct {
	t   time.Time
	alt float64
}

func altSamples(window []TelemetryPosition) []altSample {
	out := make([]altSample, 0, len(window))
	for _, p := range window {
		if alt, ok := p.Alt(); ok {
			out = append(out, altSample{p.Time, alt})
		}
	}
	return out
}

// verticalRate is Δaltitude/Δtime (m/s) across the full sample span.
func verticalRate(samples []altSample) float64 {
	first, last := samples[0], samples[len(samples)-1]
	dt := last.t.Sub(first.t).Seconds()
	if dt <= 0 {
		return 0
	}
	return (last.alt - first.alt) / dt
}

// peakThenDescent reports a local maximum followed by a strict monotonic
// decrease totalling more than 50 m. This catches a burst even when the
// averaged rate is still positive.
func peakThenDescent(samples []altSample) bool {
	if len(samples) < 3 {
		return false
	}
	peak := 0
	for i, s := range samples {
		if s.alt > samples[peak].alt {
			peak = i
		}
	}
	// A real apex: a rise into the peak and samples after it. A decline
	// from the first sample is plain descent, handled by the rate rules.
	if peak == 0 || peak >= len(samples)-1 {
		return false
	}
	for i := peak + 1; i < len(samples); i++ {
		if samples[i].alt >= samples[i-1].alt {
			return false
		}
	}
	return samples[peak].alt-samples[len(samples)-1].alt > 50
}

// ClassifyPhase classifies the trailing telemetry window. It never fails: a
// starved window degrades to an unknown phase with zero confidence.
//
// The decision ladder is ordered, first match wins.
func ClassifyPhase(history []TelemetryPosition) FlightPhase {
	if len(history) > classifierWindow {
		history = history[len(history)-classifierWindow:]
	}
	if len(history) < 2 {
		return FlightPhase{Phase: PhaseUnknown, Confidence: 0}
	}
	detected := history[len(history)-1].Time
	samples := altSamples(history)
	if len(samples) < 2 {
		return FlightPhase{Phase: PhaseUnknown, Confidence: 0.3, DetectedAt: detected}
	}

	rate := verticalRate(samples)
	alt := samples[len(samples)-1].alt

	switch {
	case alt < 1000 && rate > -1 && rate < 1:
		return FlightPhase{PhaseLanded, 0.9, detected}
	case rate < -3 || peakThenDescent(samples) || (alt > 10000 && rate < -0.5):
		return FlightPhase{PhaseDescent, 0.9, detected}
	case rate > 2:
		return FlightPhase{PhaseAscent, 0.8, detected}
	case rate < -0.5:
		return FlightPhase{PhaseDescent, 0.7, detected}
	case alt > 15000 && rate > -1.5 && rate < 1.5:
		return FlightPhase{PhaseBurst, 0.6, detected} // near apex
	default:
		return FlightPhase{PhaseUnknown, 0.4, detected}
	}
}

// phaseRank orders the one-way progression. Unknown ranks zero and is
// allowed anywhere.
func phaseRank(p Phase) int {
	switch p {
	case PhaseAscent:
		return 1
	case PhaseBurst:
		return 2
	case PhaseDescent:
		return 3
	case PhaseLanded:
		return 4
	default:
		return 0
	}
}

// PhaseTracker enforces the one-way phase progression. Once landed is
// confidently reached it is terminal: no later observation un-lands the
// flight.
type PhaseTracker struct {
	current FlightPhase
	landed  bool
}

// Update folds a classifier observation into the tracked phase and returns
// the tracked phase.
func (t *PhaseTracker) Update(obs FlightPhase) FlightPhase {
	if t.landed {
		return t.current
	}
	if obs.Phase == PhaseLanded && obs.Confidence >= 0.8 {
		t.landed = true
		t.current = obs
		return t.current
	}
	// Ignore regressions to an earlier phase; unknown always passes.
	if obs.Phase != PhaseUnknown && phaseRank(obs.Phase) < phaseRank(t.current.Phase) {
		return t.current
	}
	t.current = obs
	return t.current
}

// Current returns the tracked phase.
func (t *PhaseTracker) Current() FlightPhase { return t.current }

// Reset clears the tracker, including the landed latch.
func (t *PhaseTracker) Reset() {
	t.current = FlightPhase{}
	t.landed = false
}

// AssumedLandedTracker infers the "beacon stopped because we landed" state
// from silence at low altitude, as opposed to a classifier-confirmed landing.
// The flag is sticky until Reset.
type AssumedLandedTracker struct {
	BeaconInterval time.Duration

	lastBeacon time.Time
	lastPos    *TelemetryPosition
	assumed    bool
	site       *TelemetryPosition
}

// Observe records a received beacon.
func (t *AssumedLandedTracker) Observe(pos TelemetryPosition) {
	p := pos
	t.lastBeacon = pos.Time
	t.lastPos = &p
}

// Check evaluates the hysteresis rules at the given instant and returns the
// sticky assumed-landed flag.
func (t *AssumedLandedTracker) Check(now time.Time) bool {
	if t.assumed {
		return true
	}
	if t.lastPos == nil {
		return false
	}
	alt, ok := t.lastPos.Alt()
	if !ok {
		return false
	}
	silence := now.Sub(t.lastBeacon)
	trip := (alt < 50 && silence > 60*time.Second) ||
		(alt < 100 && silence > 180*time.Second) ||
		(alt < 200 && silence > 300*time.Second) ||
		(alt < 500 && t.BeaconInterval > 0 && silence >= 2*t.BeaconInterval)
	if trip {
		t.assumed = true
		t.site = t.lastPos
	}
	return t.assumed
}

// Assumed returns the flag and the estimated landing site (the last known
// position), nil until tripped.
func (t *AssumedLandedTracker) Assumed() (bool, *TelemetryPosition) {
	return t.assumed, t.site
}

// Reset clears the sticky flag and beacon bookkeeping.
func (t *AssumedLandedTracker) Reset() {
	t.lastBeacon = time.Time{}
	t.lastPos = nil
	t.assumed = false
	t.site = nil
}

// ascentRateFloor excludes ground-level noise from ascent rate extraction.
const ascentRateFloor = 500.0 // m

// ActualAscentRate extracts the observed ascent rate from the earliest and
// latest samples above the floor, falling back to any altitude-gaining pair.
func ActualAscentRate(history []TelemetryPosition) (float64, error) {
	samples := altSamples(history)
	var above []altSample
	for _, s := range samples {
		if s.alt > ascentRateFloor {
			above = append(above, s)
		}
	}
	if len(above) >= 2 {
		if r := verticalRate(above); r > 0 {
			return r, nil
		}
	}
	// Fallback: first and last sample showing any altitude gain.
	if len(samples) >= 2 {
		if r := verticalRate(samples); r > 0 {
			return r, nil
		}
		return 0, fmt.Errorf("no altitude gain across %d samples", len(samples))
	}
	return 0, &TelemetryGapError{Samples: len(samples)}
}

// ActualDescentRate extracts the observed descent rate from the samples after
// the altitude peak. Returned positive.
func ActualDescentRate(history []TelemetryPosition) (float64, error) {
	samples := altSamples(history)
	if len(samples) < 2 {
		return 0, &TelemetryGapError{Samples: len(samples)}
	}
	peak := 0
	for i, s := range samples {
		if s.alt > samples[peak].alt {
			peak = i
		}
	}
	post := samples[peak:]
	if len(post) < 2 {
		return 0, fmt.Errorf("no samples after the altitude peak")
	}
	r := verticalRate(post)
	if r >= 0 {
		return 0, fmt.Errorf("no descent after the altitude peak")
	}
	return -r, nil
}

// ActualBurstAltitude returns the observed burst altitude. It is only
// trusted once the flight is classified in descent: an altitude dip during
// ascent is sensor noise, not a burst.
func ActualBurstAltitude(history []TelemetryPosition, phase Phase) (float64, bool) {
	if phase != PhaseDescent {
		return 0, false
	}
	samples := altSamples(history)
	if len(samples) == 0 {
		return 0, false
	}
	peak := samples[0].alt
	for _, s := range samples[1:] {
		if s.alt > peak {
			peak = s.alt
		}
	}
	return peak, true
}
