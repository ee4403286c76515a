package blips

import (
	"math"
	"time"

	kitlog "github.com/go-kit/kit/log"
	lru "github.com/hashicorp/golang-lru/v2"
)

/* Synthetic telemetry for testing and training the live-comparison pipeline.
Every sample goes through the same layered pipeline: base position, scenario
modifier, physics refinement, weather blending, turbulence, thermal effect,
sensor noise. All randomness is time-keyed and deterministic so a scenario
replays identically. */

// ScenarioType names a perturbation profile.
type ScenarioType string

const (
	// ScenarioStandard follows the prediction.
	ScenarioStandard ScenarioType = "standard"
	// ScenarioEarlyBurst bursts at a fraction of the predicted altitude.
	ScenarioEarlyBurst ScenarioType = "early_burst"
	// ScenarioWindShear adds lateral displacement above a set altitude.
	ScenarioWindShear ScenarioType = "wind_shear"
	// ScenarioSlowAscent scales the ascent rate down.
	ScenarioSlowAscent ScenarioType = "slow_ascent"
	// ScenarioFastDescent scales the descent rate up.
	ScenarioFastDescent ScenarioType = "fast_descent"
	// ScenarioEquipmentFailure degrades altitude readings after a failure
	// time and then silences the beacon.
	ScenarioEquipmentFailure ScenarioType = "equipment_failure"
)

// PhysicsModel selects the vertical-motion fidelity.
type PhysicsModel uint8

const (
	// PhysicsBasic applies the configured rates directly.
	PhysicsBasic PhysicsModel = iota
	// PhysicsAdvanced scales the rates with ambient air density.
	PhysicsAdvanced
	// PhysicsRealistic integrates a buoyancy/drag/gravity force balance,
	// relaxing toward the density-dependent terminal rate.
	PhysicsRealistic
)

// ScenarioConfig is one simulation profile plus its run settings.
type ScenarioConfig struct {
	Type ScenarioType

	// early_burst
	BurstAltitudeFraction float64 // of the predicted burst altitude
	ModifiedDescentRate   float64 // m/s after the early burst

	// wind_shear
	ShearAltitude float64 // m, shear active above this
	ShearWind     WindVector

	// slow_ascent / fast_descent
	AscentRateFactor  float64
	DescentRateFactor float64

	// equipment_failure
	FailureTime time.Duration // altitude degrades from here, beacon dies soon after

	BeaconInterval  time.Duration
	SpeedMultiplier float64 // playback speed, 1 = real time
	NoiseLevel      float64 // 0 disables sensor noise, 1 is nominal GPS
	Physics         PhysicsModel
	UseWeather      bool
	Turbulence      bool
	Thermal         bool

	// GroundWind drives drift once the flight outlives the prediction.
	GroundWind WindVector
}

// NewScenarioConfig returns the named profile with its preset parameters.
func NewScenarioConfig(t ScenarioType) ScenarioConfig {
	cfg := ScenarioConfig{
		Type:                  t,
		BurstAltitudeFraction: 1,
		AscentRateFactor:      1,
		DescentRateFactor:     1,
		BeaconInterval:        30 * time.Second,
		SpeedMultiplier:       1,
		NoiseLevel:            1,
		Physics:               PhysicsBasic,
		GroundWind:            WindVector{Speed: 2, Direction: 270},
	}
	switch t {
	case ScenarioEarlyBurst:
		cfg.BurstAltitudeFraction = 0.7
		cfg.ModifiedDescentRate = 8
	case ScenarioWindShear:
		cfg.ShearAltitude = 8000
		cfg.ShearWind = WindVector{Speed: 15, Direction: 270}
	case ScenarioSlowAscent:
		cfg.AscentRateFactor = 0.6
	case ScenarioFastDescent:
		cfg.DescentRateFactor = 1.6
	case ScenarioEquipmentFailure:
		cfg.FailureTime = 20 * time.Minute
	}
	return cfg
}

const (
	scenarioGroundStop  = 50.0 // m, stop emitting below this
	turbulenceBuckets   = 512
	thermalCeiling      = 5000.0 // m, thermal effect active below
	thermalPeriod       = 10 * time.Minute
	thermalAmplitude    = 25.0 // m
	failureBeaconsLeft  = 5    // beacons emitted after the failure time
	physicsRelaxSeconds = 90.0 // realistic-model time constant
)

// ScenarioSimulator produces one synthetic telemetry stream. Not safe for
// concurrent use; the core is single-threaded by design.
type ScenarioSimulator struct {
	cfg     ScenarioConfig
	pred    *PredictionResult
	launch  LaunchParameters
	weather *WeatherData
	clock   Clock
	logger  kitlog.Logger

	// run state, cleared by Reset
	elapsed   time.Duration
	lat, lon  float64
	alt       float64
	vvel      float64 // m/s, realistic physics state
	burstDone bool
	stopped   bool
	samples   int

	turbCache *lru.Cache[int, float64]
	Assumed   AssumedLandedTracker
}

// NewScenarioSimulator builds a simulator over an existing prediction.
func NewScenarioSimulator(cfg ScenarioConfig, pred *PredictionResult, launch LaunchParameters, weather *WeatherData, clock Clock, logger kitlog.Logger) *ScenarioSimulator {
	if logger == nil {
		logger = kitlog.NewNopLogger()
	}
	if clock == nil {
		clock = WallClock{}
	}
	turb, err := lru.New[int, float64](turbulenceBuckets)
	if err != nil {
		panic(err)
	}
	s := &ScenarioSimulator{
		cfg: cfg, pred: pred, launch: launch, weather: weather,
		clock: clock, logger: logger, turbCache: turb,
	}
	s.Assumed.BeaconInterval = cfg.BeaconInterval
	s.Reset()
	return s
}

// Reset clears all run state: position, physics state, beacon bookkeeping,
// the assumed-landed flag and the per-run caches.
func (s *ScenarioSimulator) Reset() {
	s.elapsed = 0
	s.lat, s.lon = s.launch.Lat, s.launch.Lon
	s.alt = s.launch.LaunchAltitude
	s.vvel = 0
	s.burstDone = false
	s.stopped = false
	s.samples = 0
	s.turbCache.Purge()
	s.Assumed.Reset()
}

// Stopped reports whether the stream has ended.
func (s *ScenarioSimulator) Stopped() bool { return s.stopped }

// scenarioBurstAltitude is the altitude at which this scenario's flight
// actually bursts.
func (s *ScenarioSimulator) scenarioBurstAltitude() float64 {
	if s.cfg.Type == ScenarioEarlyBurst {
		return s.launch.BurstAltitude * s.cfg.BurstAltitudeFraction
	}
	return s.launch.BurstAltitude
}

// verticalRates applies the scenario modifier to the nominal rates.
func (s *ScenarioSimulator) verticalRates() (ascent, descent float64) {
	ascent = s.launch.AscentRate * s.cfg.AscentRateFactor
	descent = s.launch.DescentRate * s.cfg.DescentRateFactor
	if s.cfg.Type == ScenarioEarlyBurst && s.cfg.ModifiedDescentRate > 0 {
		descent = s.cfg.ModifiedDescentRate
	}
	return ascent, descent
}

// stepVertical advances altitude by dt under the configured physics model.
func (s *ScenarioSimulator) stepVertical(dt float64) {
	ascent, descent := s.verticalRates()
	target := ascent
	if s.burstDone {
		target = -descent
	}
	switch s.cfg.Physics {
	case PhysicsBasic:
		s.vvel = target
	case PhysicsAdvanced:
		// Drag balance at constant free lift: rate grows as density drops.
		s.vvel = target * math.Sqrt(AirDensityAt(s.launch.LaunchAltitude)/AirDensityAt(s.alt))
	case PhysicsRealistic:
		// Buoyancy/drag/gravity balance linearized around the terminal
		// rate: the vertical speed relaxes toward it instead of jumping.
		terminal := target * math.Sqrt(AirDensityAt(s.launch.LaunchAltitude)/AirDensityAt(s.alt))
		k := dt / physicsRelaxSeconds
		if k > 1 {
			k = 1
		}
		s.vvel += (terminal - s.vvel) * k
	}
	s.alt += s.vvel * dt
	if !s.burstDone && s.alt >= s.scenarioBurstAltitude() {
		s.alt = s.scenarioBurstAltitude()
		s.burstDone = true
		if s.cfg.Physics == PhysicsRealistic {
			s.vvel = 0 // envelope gone, parachute not yet loaded
		}
		s.logger.Log("level", "info", "subsys", "scenario", "event", "burst", "alt(m)", s.alt, "elapsed", s.elapsed)
	}
	if s.alt < 0 {
		s.alt = 0
	}
}

// horizontalWind picks the wind moving the balloon this step.
func (s *ScenarioSimulator) horizontalWind() WindVector {
	if s.elapsed > s.pred.TotalTime {
		return s.cfg.GroundWind // outlived the prediction: ground drift
	}
	if s.cfg.UseWeather && s.weather != nil {
		if field, err := s.weather.FieldAt(s.launch.LaunchTime.Add(s.elapsed)); err == nil {
			if w, err := WindAt(s.alt, field); err == nil {
				return w
			}
		}
	}
	// Derive the local drift from the predicted track itself.
	a := s.pred.PointAt(s.elapsed)
	b := s.pred.PointAt(s.elapsed + FlightStepSize)
	dt := (b.Offset - a.Offset).Seconds()
	if dt <= 0 {
		return s.cfg.GroundWind
	}
	dy := (b.Lat - a.Lat) * deg2rad * EarthRadius / dt
	dx := (b.Lon - a.Lon) * deg2rad * EarthRadius * math.Cos(a.Lat*deg2rad) / dt
	speed := math.Hypot(dx, dy)
	dir := math.Mod(Rad2deg(math.Atan2(dx, dy))+180, 360) // back to "from"
	return WindVector{Speed: speed, Direction: dir}
}

// stepHorizontal drifts the position with the step wind plus any shear.
func (s *ScenarioSimulator) stepHorizontal(dt float64) {
	dx, dy := s.horizontalWind().Components()
	if s.cfg.Type == ScenarioWindShear && s.alt > s.cfg.ShearAltitude {
		sx, sy := s.cfg.ShearWind.Components()
		dx += sx
		dy += sy
	}
	s.lat += (dy * dt / EarthRadius) / deg2rad
	s.lon += (dx * dt / (EarthRadius * math.Cos(s.lat*deg2rad))) / deg2rad
}

// pseudo is a deterministic time-keyed noise source in [-1, 1].
func pseudo(t, salt float64) float64 {
	v := math.Sin(t*12.9898+salt*78.233) * 43758.5453
	return 2*(v-math.Floor(v)) - 1
}

// turbulenceScale is the jitter magnitude for an altitude bucket, cached
// because it depends only on the bucket's altitude and wind.
func (s *ScenarioSimulator) turbulenceScale(alt float64) float64 {
	bucket := int(alt / windBucketSize)
	if v, ok := s.turbCache.Get(bucket); ok {
		return v
	}
	wind := s.horizontalWind()
	// Stronger turbulence aloft and in strong wind.
	v := (1 + alt/10000) * (1 + wind.Speed/20)
	s.turbCache.Add(bucket, v)
	return v
}

// applyTurbulence jitters the live state (not just the report): turbulence
// moves the balloon.
func (s *ScenarioSimulator) applyTurbulence(dt float64) {
	ts := s.elapsed.Seconds()
	scale := s.turbulenceScale(s.alt)
	s.lat += pseudo(ts, 1) * scale * 2e-5 * dt / 60
	s.lon += pseudo(ts, 2) * scale * 2e-5 * dt / 60
	s.alt += pseudo(ts, 3) * scale * 3
	if s.alt < 0 {
		s.alt = 0
	}
}

// thermalBias is the daytime low-altitude thermal lift on the reported
// altitude.
func (s *ScenarioSimulator) thermalBias() float64 {
	if s.alt >= thermalCeiling {
		return 0
	}
	if !isDaytime(s.lat, s.lon, s.launch.LaunchTime.Add(s.elapsed)) {
		return 0
	}
	return thermalAmplitude * math.Sin(2*math.Pi*s.elapsed.Seconds()/thermalPeriod.Seconds())
}

// sensorNoise returns the positional and altitude noise magnitudes for the
// current altitude. GPS quality improves with altitude as the sky opens up.
func (s *ScenarioSimulator) sensorNoise() (posM, altM float64) {
	q := 5 + 25*math.Exp(-s.alt/5000)
	return s.cfg.NoiseLevel * q, s.cfg.NoiseLevel * q * 0.6
}

// Step advances the simulation by one beacon interval and returns the next
// telemetry sample. ok is false once the stream has stopped.
func (s *ScenarioSimulator) Step() (TelemetryPosition, bool) {
	if s.stopped {
		return TelemetryPosition{}, false
	}
	dt := s.cfg.BeaconInterval.Seconds()
	s.elapsed += s.cfg.BeaconInterval
	s.samples++

	s.stepVertical(dt)
	s.stepHorizontal(dt)
	if s.cfg.Turbulence {
		s.applyTurbulence(dt)
	}

	reportAlt := s.alt
	if s.cfg.Thermal {
		reportAlt += s.thermalBias()
	}
	ts := s.elapsed.Seconds()
	if s.cfg.Type == ScenarioEquipmentFailure && s.cfg.FailureTime > 0 && s.elapsed > s.cfg.FailureTime {
		// Degraded altimeter: large irregular error.
		reportAlt += pseudo(ts, 9) * 400
		if s.elapsed > s.cfg.FailureTime+time.Duration(failureBeaconsLeft)*s.cfg.BeaconInterval {
			s.stop("beacon failure")
			return TelemetryPosition{}, false
		}
	}
	lat, lon := s.lat, s.lon
	if s.cfg.NoiseLevel > 0 {
		posM, altM := s.sensorNoise()
		lat += pseudo(ts, 4) * posM / EarthRadius / deg2rad
		lon += pseudo(ts, 5) * posM / (EarthRadius * math.Cos(lat*deg2rad)) / deg2rad
		reportAlt += pseudo(ts, 6) * altM
	}
	if reportAlt < 0 {
		reportAlt = 0
	}

	pos := TelemetryPosition{
		Time:     s.launch.LaunchTime.Add(s.elapsed),
		Lat:      lat,
		Lon:      lon,
		Altitude: Float(reportAlt),
		Comment:  string(s.cfg.Type),
	}
	s.Assumed.Observe(pos)

	if s.burstDone && s.alt < scenarioGroundStop {
		s.stop("ground")
	}
	return pos, true
}

func (s *ScenarioSimulator) stop(reason string) {
	s.stopped = true
	s.logger.Log("level", "info", "subsys", "scenario", "status", "stopped", "reason", reason, "elapsed", s.elapsed, "samples", s.samples)
}

// Run generates the whole stream at once, then evaluates the assumed-landed
// hysteresis as if the silence after the last beacon had elapsed.
func (s *ScenarioSimulator) Run() []TelemetryPosition {
	var out []TelemetryPosition
	for {
		pos, ok := s.Step()
		if !ok {
			break
		}
		out = append(out, pos)
	}
	if len(out) > 0 {
		last := out[len(out)-1]
		s.Assumed.Check(last.Time.Add(2*s.cfg.BeaconInterval + 61*time.Second))
	}
	return out
}

// Play drives the simulation from the injected clock: each tick advances the
// simulated time by one beacon interval, at BeaconInterval/SpeedMultiplier of
// playback time. After the stream stops, ticks keep evaluating the
// assumed-landed hysteresis. The returned stop function clears the timer and
// leaves run state intact for inspection.
func (s *ScenarioSimulator) Play(onSample func(TelemetryPosition)) (stop func()) {
	speed := s.cfg.SpeedMultiplier
	if speed <= 0 {
		speed = 1
	}
	tick := time.Duration(float64(s.cfg.BeaconInterval) / speed)
	var cancel func()
	cancel = s.clock.ScheduleRepeating(tick, func() {
		if s.stopped {
			if s.Assumed.Check(s.launch.LaunchTime.Add(s.elapsed)) {
				cancel()
			}
			s.elapsed += s.cfg.BeaconInterval // silence still advances simulated time
			return
		}
		if pos, ok := s.Step(); ok {
			onSample(pos)
		}
	})
	return cancel
}
