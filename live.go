package blips

import (
	"context"
	"fmt"
	"time"

	kitlog "github.com/go-kit/kit/log"
	"golang.org/x/sync/errgroup"
)

/* Wires classifier, scorer and trajectory simulator into the live
comparison pipeline. */

// ActualFlightMetrics is what the telemetry says the flight is really doing.
type ActualFlightMetrics struct {
	CurrentPosition TelemetryPosition
	FlightPhase     FlightPhase
	AscentRate      *float64 // m/s, nil until observable
	DescentRate     *float64 // m/s, nil until observable
	BurstAltitude   *float64 // m, nil until the descent-trust rule accepts it
	TimeToLanding   *time.Duration
	Deviation       Deviation
}

// LivePredictionComparison is the orchestrator output for one telemetry
// batch.
type LivePredictionComparison struct {
	Original        *PredictionResult
	Updated         *PredictionResult // nil once landed
	Metrics         ActualFlightMetrics
	Accuracy        Accuracy
	Recommendations []string
}

// ExtractMetrics computes the actual flight metrics from time-ordered
// telemetry against the original prediction.
func ExtractMetrics(telemetry []TelemetryPosition, tracked FlightPhase, pred *PredictionResult, launch LaunchParameters) ActualFlightMetrics {
	current := telemetry[len(telemetry)-1]
	m := ActualFlightMetrics{
		CurrentPosition: current,
		FlightPhase:     tracked,
		Deviation:       DeviationFrom(current, pred, launch.LaunchTime),
	}
	if r, err := ActualAscentRate(telemetry); err == nil {
		m.AscentRate = &r
	}
	if tracked.Phase == PhaseDescent || tracked.Phase == PhaseLanded {
		if r, err := ActualDescentRate(telemetry); err == nil {
			m.DescentRate = &r
		}
	}
	if burst, ok := ActualBurstAltitude(telemetry, tracked.Phase); ok {
		m.BurstAltitude = &burst
	}
	if tracked.Phase == PhaseDescent {
		alt, hasAlt := current.Alt()
		rate := launch.DescentRate
		if m.DescentRate != nil {
			rate = *m.DescentRate
		}
		if hasAlt && rate > 0 && alt > DefaultGroundElevation {
			ttl := time.Duration((alt - DefaultGroundElevation) / rate * float64(time.Second))
			m.TimeToLanding = &ttl
		}
	}
	return m
}

// reseedParameters builds the launch parameters of an updated prediction
// seeded at the current position, using observed rates where available and
// nominal rates otherwise. The burst estimate is only replaced once the
// descent-trust rule has accepted an actual burst altitude.
func reseedParameters(m ActualFlightMetrics, launch LaunchParameters) LaunchParameters {
	current := m.CurrentPosition
	alt, hasAlt := current.Alt()
	if !hasAlt {
		alt = launch.LaunchAltitude
	}
	p := LaunchParameters{
		Lat:            current.Lat,
		Lon:            current.Lon,
		LaunchTime:     current.Time,
		LaunchAltitude: alt,
		AscentRate:     launch.AscentRate,
		BurstAltitude:  launch.BurstAltitude,
		DescentRate:    launch.DescentRate,
	}
	if m.AscentRate != nil && *m.AscentRate > 0 {
		p.AscentRate = *m.AscentRate
	}
	if m.DescentRate != nil && *m.DescentRate > 0 {
		p.DescentRate = *m.DescentRate
	}
	if m.BurstAltitude != nil {
		p.BurstAltitude = *m.BurstAltitude
	}
	if m.FlightPhase.Phase == PhaseDescent || m.FlightPhase.Phase == PhaseBurst {
		// Already past apex: make the re-run burst immediately and descend.
		p.BurstAltitude = alt + 1
	}
	if p.BurstAltitude <= p.LaunchAltitude {
		p.BurstAltitude = p.LaunchAltitude + 1
	}
	return p
}

// recommend produces the operator-facing recommendation strings.
func recommend(m ActualFlightMetrics, acc Accuracy, updated *PredictionResult) []string {
	var recs []string
	switch m.FlightPhase.Phase {
	case PhaseLanded:
		recs = append(recs, "flight is over: recover at the last reported position")
	case PhaseDescent:
		if m.TimeToLanding != nil {
			recs = append(recs, fmt.Sprintf("descending, about %s to landing", m.TimeToLanding.Round(time.Minute)))
		} else {
			recs = append(recs, "descending")
		}
		if updated != nil {
			recs = append(recs, fmt.Sprintf("updated landing estimate (%.4f, %.4f)", updated.LandingPoint.Lat, updated.LandingPoint.Lon))
		}
	}
	if m.Deviation.Distance > MaxTrajectoryDeviation/2 {
		recs = append(recs, fmt.Sprintf("flight is %.1f km off the predicted track (bearing %.0f°): refresh the wind forecast", m.Deviation.Distance/1000, m.Deviation.Bearing))
	}
	if acc.Overall < 0.5 {
		recs = append(recs, "prediction accuracy is low: treat the original landing site as unreliable")
	}
	if m.AscentRate != nil {
		recs = append(recs, fmt.Sprintf("observed ascent rate %.1f m/s", *m.AscentRate))
	}
	return recs
}

// CompareLive runs the whole live pipeline over a time-ordered telemetry
// batch: classify, extract metrics, re-predict from the current state unless
// landed, and score. Returns nil with no error when there is no telemetry.
func CompareLive(telemetry []TelemetryPosition, original *PredictionResult, launch LaunchParameters, weather *WeatherData) (*LivePredictionComparison, error) {
	return compareLive(telemetry, original, launch, weather, nil, kitlog.NewNopLogger())
}

func compareLive(telemetry []TelemetryPosition, original *PredictionResult, launch LaunchParameters, weather *WeatherData, tracker *PhaseTracker, logger kitlog.Logger) (*LivePredictionComparison, error) {
	if len(telemetry) == 0 {
		return nil, nil
	}
	obs := ClassifyPhase(telemetry)
	tracked := obs
	if tracker != nil {
		tracked = tracker.Update(obs)
	}
	metrics := ExtractMetrics(telemetry, tracked, original, launch)

	var updated *PredictionResult
	if tracked.Phase != PhaseLanded {
		params := reseedParameters(metrics, launch)
		re, err := Predict(params, weather)
		if err != nil {
			// A failed re-prediction degrades the comparison, it does not
			// discard the telemetry analysis.
			logger.Log("level", "warning", "subsys", "live", "repredict", "failed", "err", err)
		} else {
			updated = re
		}
	}

	actualAscent := 0.0
	if metrics.AscentRate != nil {
		actualAscent = *metrics.AscentRate
	}
	acc := ScoreAccuracy(metrics.Deviation, actualAscent, launch.AscentRate)

	return &LivePredictionComparison{
		Original:        original,
		Updated:         updated,
		Metrics:         metrics,
		Accuracy:        acc,
		Recommendations: recommend(metrics, acc, updated),
	}, nil
}

const (
	// materialPositionDelta is the movement below which a new sample does
	// not trigger recomputation.
	materialPositionDelta = 10.0 // m
	materialAltitudeDelta = 5.0  // m
)

// LiveSession holds the mutable state of one live comparison run: the phase
// tracker, the assumed-landed tracker and the last processed sample for
// recomputation dedup.
type LiveSession struct {
	Original *PredictionResult
	Launch   LaunchParameters
	Weather  *WeatherData

	phases  PhaseTracker
	Assumed AssumedLandedTracker
	clock   Clock
	logger  kitlog.Logger

	lastProcessed *TelemetryPosition
	lastResult    *LivePredictionComparison
}

// NewLiveSession wires a session over an existing prediction.
func NewLiveSession(original *PredictionResult, launch LaunchParameters, weather *WeatherData, beaconInterval time.Duration, clock Clock, logger kitlog.Logger) *LiveSession {
	if clock == nil {
		clock = WallClock{}
	}
	if logger == nil {
		logger = kitlog.NewNopLogger()
	}
	s := &LiveSession{Original: original, Launch: launch, Weather: weather, clock: clock, logger: logger}
	s.Assumed.BeaconInterval = beaconInterval
	return s
}

// materiallyDifferent reports whether the newest sample justifies
// recomputation.
func materiallyDifferent(a, b *TelemetryPosition) bool {
	if a == nil {
		return true
	}
	if !a.Time.Equal(b.Time) {
		return true
	}
	if haversine(a.Lat, a.Lon, b.Lat, b.Lon) > materialPositionDelta {
		return true
	}
	aAlt, aOK := a.Alt()
	bAlt, bOK := b.Alt()
	if aOK != bOK {
		return true
	}
	return aOK && abs(aAlt-bAlt) > materialAltitudeDelta
}

// Ingest processes a time-ordered telemetry batch and returns the freshest
// comparison. An immaterial newest sample returns the cached comparison
// without rework.
func (s *LiveSession) Ingest(telemetry []TelemetryPosition) (*LivePredictionComparison, error) {
	if len(telemetry) == 0 {
		return s.lastResult, nil
	}
	newest := telemetry[len(telemetry)-1]
	s.Assumed.Observe(newest)
	if !materiallyDifferent(s.lastProcessed, &newest) {
		return s.lastResult, nil
	}
	cmp, err := compareLive(telemetry, s.Original, s.Launch, s.Weather, &s.phases, s.logger)
	if err != nil {
		return nil, err
	}
	n := newest
	s.lastProcessed = &n
	s.lastResult = cmp
	return cmp, nil
}

// CheckBeaconSilence evaluates the assumed-landed hysteresis at the current
// clock instant.
func (s *LiveSession) CheckBeaconSilence() bool {
	return s.Assumed.Check(s.clock.Now())
}

// Reset clears the session run state: phase latch, assumed-landed flag and
// the dedup cache.
func (s *LiveSession) Reset() {
	s.phases.Reset()
	s.Assumed.Reset()
	s.lastProcessed = nil
	s.lastResult = nil
}

// PlanPrediction fetches weather and ground elevation concurrently, then
// runs the predictor. Elevation failure falls back to the documented
// default; weather failure propagates.
func PlanPrediction(ctx context.Context, wp WeatherProvider, ep ElevationProvider, params LaunchParameters, logger kitlog.Logger) (*PredictionResult, error) {
	if logger == nil {
		logger = kitlog.NewNopLogger()
	}
	var weather *WeatherData
	ground := DefaultGroundElevation

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		w, err := wp.Forecast(gctx, params.Lat, params.Lon, params.LaunchTime, params.LaunchTime.Add(MaxSimulatedFlight))
		if err != nil {
			return err
		}
		weather = w
		return nil
	})
	g.Go(func() error {
		ground = GroundElevation(gctx, ep, params.Lat, params.Lon, logger)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return NewFlight(params, weather, ground, ExportConfig{}, logger).Predict()
}
