package blips

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func simFixture(t *testing.T, cfg ScenarioConfig) (*ScenarioSimulator, *PredictionResult) {
	t.Helper()
	params := stdLaunch()
	weather := NewUniformWeather(launchDT, 24*time.Hour, WindVector{Speed: 8, Direction: 270})
	pred, err := Predict(params, weather)
	require.NoError(t, err)
	clock := NewManualClock(launchDT)
	return NewScenarioSimulator(cfg, pred, params, weather, clock, nil), pred
}

func TestScenarioDeterministicReplay(t *testing.T) {
	cfg := NewScenarioConfig(ScenarioStandard)
	cfg.Turbulence = true
	simA, _ := simFixture(t, cfg)
	simB, _ := simFixture(t, cfg)
	require.Equal(t, simA.Run(), simB.Run(), "same config must replay identically")
}

func TestScenarioStandardTracksPrediction(t *testing.T) {
	cfg := NewScenarioConfig(ScenarioStandard)
	cfg.NoiseLevel = 0
	sim, pred := simFixture(t, cfg)
	stream := sim.Run()
	require.NotEmpty(t, stream)
	assert.True(t, sim.Stopped())

	last := stream[len(stream)-1]
	d := haversine(last.Lat, last.Lon, pred.LandingPoint.Lat, pred.LandingPoint.Lon)
	assert.Less(t, d, 5000.0, "a standard flight should land near the predicted point")

	// The stream is strictly time-ordered.
	for i := 1; i < len(stream); i++ {
		assert.True(t, stream[i].Time.After(stream[i-1].Time))
	}
}

func TestScenarioEarlyBurst(t *testing.T) {
	cfg := NewScenarioConfig(ScenarioEarlyBurst)
	cfg.NoiseLevel = 0
	sim, _ := simFixture(t, cfg)
	stream := sim.Run()
	require.NotEmpty(t, stream)

	var peak float64
	for _, pos := range stream {
		if alt, ok := pos.Alt(); ok && alt > peak {
			peak = alt
		}
	}
	want := stdLaunch().BurstAltitude * cfg.BurstAltitudeFraction
	assert.InDelta(t, want, peak, 300, "early burst should top out at the configured fraction")
}

func TestScenarioSlowAscentIsSlower(t *testing.T) {
	fast, _ := simFixture(t, func() ScenarioConfig {
		c := NewScenarioConfig(ScenarioStandard)
		c.NoiseLevel = 0
		return c
	}())
	slow, _ := simFixture(t, func() ScenarioConfig {
		c := NewScenarioConfig(ScenarioSlowAscent)
		c.NoiseLevel = 0
		return c
	}())
	atElapsed := func(stream []TelemetryPosition, d time.Duration) float64 {
		for _, pos := range stream {
			if pos.Time.Sub(launchDT) >= d {
				alt, _ := pos.Alt()
				return alt
			}
		}
		return -1
	}
	fs, ss := fast.Run(), slow.Run()
	require.NotEmpty(t, fs)
	require.NotEmpty(t, ss)
	assert.Greater(t, atElapsed(fs, 30*time.Minute), atElapsed(ss, 30*time.Minute))
}

func TestScenarioEquipmentFailureSilencesBeacon(t *testing.T) {
	cfg := NewScenarioConfig(ScenarioEquipmentFailure)
	sim, pred := simFixture(t, cfg)
	stream := sim.Run()
	require.NotEmpty(t, stream)
	last := stream[len(stream)-1]
	assert.True(t, last.Time.Sub(launchDT) < pred.TotalTime,
		"the beacon should die long before the predicted landing")
	assert.True(t, sim.Stopped())
}

func TestScenarioWindShearDisplaces(t *testing.T) {
	sheared, _ := simFixture(t, func() ScenarioConfig {
		c := NewScenarioConfig(ScenarioWindShear)
		c.NoiseLevel = 0
		return c
	}())
	straight, _ := simFixture(t, func() ScenarioConfig {
		c := NewScenarioConfig(ScenarioStandard)
		c.NoiseLevel = 0
		return c
	}())
	ss, st := sheared.Run(), straight.Run()
	require.NotEmpty(t, ss)
	require.NotEmpty(t, st)
	a, b := ss[len(ss)-1], st[len(st)-1]
	assert.Greater(t, haversine(a.Lat, a.Lon, b.Lat, b.Lon), 10000.0,
		"shear above 8 km should displace the landing by many kilometers")
}

func TestScenarioTurbulenceChangesStream(t *testing.T) {
	calm := NewScenarioConfig(ScenarioStandard)
	calm.NoiseLevel = 0
	rough := calm
	rough.Turbulence = true
	simCalm, _ := simFixture(t, calm)
	simRough, _ := simFixture(t, rough)
	assert.NotEqual(t, simCalm.Run(), simRough.Run())
}

func TestScenarioPhysicsModelsDiffer(t *testing.T) {
	base := NewScenarioConfig(ScenarioStandard)
	base.NoiseLevel = 0
	adv := base
	adv.Physics = PhysicsAdvanced
	realistic := base
	realistic.Physics = PhysicsRealistic

	simBasic, _ := simFixture(t, base)
	simAdv, _ := simFixture(t, adv)
	simReal, _ := simFixture(t, realistic)
	sBasic, sAdv, sReal := simBasic.Run(), simAdv.Run(), simReal.Run()
	assert.NotEqual(t, sBasic, sAdv)
	assert.NotEqual(t, sAdv, sReal)

	// The density-scaled models still land: every model terminates.
	assert.True(t, simAdv.Stopped())
	assert.True(t, simReal.Stopped())
}

func TestScenarioAssumedLandedAfterStop(t *testing.T) {
	cfg := NewScenarioConfig(ScenarioStandard)
	cfg.NoiseLevel = 0
	sim, _ := simFixture(t, cfg)
	sim.Run()
	assumed, site := sim.Assumed.Assumed()
	require.True(t, assumed, "silence after a ground-level stop marks assumed landed")
	require.NotNil(t, site)
	alt, ok := site.Alt()
	require.True(t, ok)
	assert.Less(t, alt, 200.0)
}

func TestScenarioResetReplays(t *testing.T) {
	cfg := NewScenarioConfig(ScenarioStandard)
	cfg.Turbulence = true
	sim, _ := simFixture(t, cfg)
	first := sim.Run()
	require.True(t, sim.Stopped())

	sim.Reset()
	require.False(t, sim.Stopped())
	if assumed, _ := sim.Assumed.Assumed(); assumed {
		t.Fatal("reset must clear the assumed-landed flag")
	}
	assert.Equal(t, first, sim.Run(), "reset must fully restore the initial run state")
}

func TestScenarioPlayback(t *testing.T) {
	cfg := NewScenarioConfig(ScenarioStandard)
	cfg.NoiseLevel = 0
	cfg.SpeedMultiplier = 60 // one simulated beacon per half second of playback
	params := stdLaunch()
	weather := NewUniformWeather(launchDT, 24*time.Hour, WindVector{Speed: 8, Direction: 270})
	pred, err := Predict(params, weather)
	require.NoError(t, err)
	clock := NewManualClock(launchDT)
	sim := NewScenarioSimulator(cfg, pred, params, weather, clock, nil)

	var got []TelemetryPosition
	stop := sim.Play(func(pos TelemetryPosition) { got = append(got, pos) })
	clock.Advance(5 * time.Second) // 10 ticks at 500 ms
	assert.Len(t, got, 10)

	// Stopping clears the timer but keeps the generated state.
	stop()
	clock.Advance(5 * time.Second)
	assert.Len(t, got, 10)
	assert.False(t, sim.Stopped())
}

func TestSolarElevation(t *testing.T) {
	noon := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)
	midnight := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)
	assert.True(t, isDaytime(0, 0, noon), "equinox noon at (0,0) is daytime")
	assert.False(t, isDaytime(0, 0, midnight), "equinox midnight at (0,0) is night")
}
