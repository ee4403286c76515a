package main

import (
	"flag"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dhhuston/blips"
	kitlog "github.com/go-kit/kit/log"
	"github.com/spf13/viper"
)

// This code only reads the scenario file, runs the prediction and, when
// asked, replays a simulated flight against it.

const (
	defaultScenario = "~~unset~~"
	dateFormat      = "2006-01-02 15:04:05"
)

var (
	scenario string
	verbose  bool
)

func init() {
	flag.StringVar(&scenario, "scenario", defaultScenario, "flight scenario TOML file")
	flag.BoolVar(&verbose, "verbose", false, "really verbose (esp. for configuration)")
}

func main() {
	flag.Parse()
	if scenario == defaultScenario {
		log.Fatal("no scenario provided")
	}
	scenario = strings.Replace(scenario, ".toml", "", 1)
	viper.AddConfigPath(".")
	viper.SetConfigName(scenario)
	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("./%s.toml: Error %s", scenario, err)
	}

	logger := kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(os.Stdout))
	logger = kitlog.With(logger, "app", "blips")

	launchTime, err := time.Parse(dateFormat, viper.GetString("launch.time"))
	if err != nil {
		log.Fatalf("launch.time: %s", err)
	}
	params := blips.LaunchParameters{
		Lat:            viper.GetFloat64("launch.lat"),
		Lon:            viper.GetFloat64("launch.lon"),
		LaunchTime:     launchTime,
		LaunchAltitude: viper.GetFloat64("launch.altitude"),
		AscentRate:     viper.GetFloat64("launch.ascent_rate"),
		BurstAltitude:  viper.GetFloat64("launch.burst_altitude"),
		DescentRate:    viper.GetFloat64("launch.descent_rate"),
	}
	if verbose {
		log.Printf("[conf] launch: %+v\n", params)
	}

	// Optional performance calculation overrides the configured rates.
	if viper.IsSet("balloon.neck_lift") {
		gas := blips.Helium
		if viper.GetString("balloon.gas") == "hydrogen" {
			gas = blips.Hydrogen
		}
		perf, err := blips.CalculateBurstPerformance(blips.CalculatorParameters{
			PayloadWeight:   viper.GetFloat64("balloon.payload"),
			BalloonWeight:   viper.GetFloat64("balloon.weight"),
			ParachuteWeight: viper.GetFloat64("balloon.parachute"),
			NeckLift:        viper.GetFloat64("balloon.neck_lift"),
			Gas:             gas,
		}, params.LaunchAltitude)
		if err != nil {
			log.Fatalf("balloon performance: %s", err)
		}
		params.AscentRate = perf.AscentRate
		params.BurstAltitude = perf.BurstAltitude
		logger.Log("subsys", "calculator", "ascent(m/s)", perf.AscentRate, "burst(m)", perf.BurstAltitude, "free_lift(g)", perf.FreeLift)
	}

	// Optional goal mode: print ranked options and exit.
	if viper.IsSet("goal.burst_altitude") {
		gas := blips.Helium
		if viper.GetString("goal.gas") == "hydrogen" {
			gas = blips.Hydrogen
		}
		options, warnings := blips.CalculateGoalOptions(
			viper.GetFloat64("goal.burst_altitude"),
			viper.GetFloat64("goal.balloon_weight"),
			viper.GetFloat64("goal.parachute_weight"),
			gas, params.LaunchAltitude)
		for _, w := range warnings {
			logger.Log("level", "warning", "subsys", "goal", "msg", w)
		}
		for i, opt := range options {
			logger.Log("subsys", "goal", "rank", i+1, "payload(g)", opt.PayloadWeight,
				"neck_lift(g)", opt.NeckLift, "ascent(m/s)", opt.AscentRate,
				"burst(m)", opt.BurstAltitude, "feasibility", opt.Feasibility)
		}
		return
	}

	weather := loadWeather(launchTime)
	conf := blips.ExportConfig{
		Filename:  scenario,
		OutputDir: viper.GetString("output.dir"),
		AsCSV:     viper.GetBool("output.csv"),
		AsGeoJSON: viper.GetBool("output.geojson"),
	}
	flight := blips.NewFlight(params, weather, viper.GetFloat64("launch.ground_elevation"), conf, logger)
	pred, err := flight.Predict()
	if err != nil {
		log.Fatalf("prediction failed: %s", err)
	}
	logger.Log("subsys", "predict", "landing_lat", pred.LandingPoint.Lat,
		"landing_lon", pred.LandingPoint.Lon, "duration", pred.TotalTime,
		"distance(km)", pred.Distance/1000)

	if viper.IsSet("simulate.type") {
		runSimulation(pred, params, weather, logger)
	}
}

// loadWeather builds the forecast from the scenario file: either a uniform
// wind or a per-level sounding table.
func loadWeather(launchTime time.Time) *blips.WeatherData {
	if viper.IsSet("wind.levels") {
		levels := map[float64]blips.WindVector{}
		for lvl := range viper.GetStringMap("wind.levels") {
			level, err := strconv.ParseFloat(lvl, 64)
			if err != nil {
				log.Fatalf("wind.levels key %q: %s", lvl, err)
			}
			levels[level] = blips.WindVector{
				Speed:     viper.GetFloat64("wind.levels." + lvl + ".speed"),
				Direction: viper.GetFloat64("wind.levels." + lvl + ".direction"),
			}
		}
		w := blips.NewWeatherData()
		for h := 0; h <= 24; h++ {
			w.Add(&blips.WindField{
				Time:   launchTime.Add(time.Duration(h) * time.Hour),
				Levels: levels,
			})
		}
		return w
	}
	wind := blips.WindVector{
		Speed:     viper.GetFloat64("wind.speed"),
		Direction: viper.GetFloat64("wind.direction"),
	}
	return blips.NewUniformWeather(launchTime, 24*time.Hour, wind)
}

// runSimulation replays a failure scenario against the prediction and feeds
// the generated telemetry through the live comparison.
func runSimulation(pred *blips.PredictionResult, params blips.LaunchParameters, weather *blips.WeatherData, logger kitlog.Logger) {
	cfg := blips.NewScenarioConfig(blips.ScenarioType(viper.GetString("simulate.type")))
	if viper.IsSet("simulate.beacon_interval") {
		cfg.BeaconInterval = viper.GetDuration("simulate.beacon_interval")
	}
	if viper.IsSet("simulate.noise") {
		cfg.NoiseLevel = viper.GetFloat64("simulate.noise")
	}
	cfg.UseWeather = viper.GetBool("simulate.use_weather")
	cfg.Turbulence = viper.GetBool("simulate.turbulence")
	cfg.Thermal = viper.GetBool("simulate.thermal")
	switch viper.GetString("simulate.physics") {
	case "advanced":
		cfg.Physics = blips.PhysicsAdvanced
	case "realistic":
		cfg.Physics = blips.PhysicsRealistic
	}

	sim := blips.NewScenarioSimulator(cfg, pred, params, weather, blips.WallClock{}, logger)
	telemetry := sim.Run()
	logger.Log("subsys", "scenario", "type", cfg.Type, "samples", len(telemetry))

	session := blips.NewLiveSession(pred, params, weather, cfg.BeaconInterval, blips.WallClock{}, logger)
	var last *blips.LivePredictionComparison
	for i := range telemetry {
		cmp, err := session.Ingest(telemetry[:i+1])
		if err != nil {
			log.Fatalf("live comparison: %s", err)
		}
		last = cmp
	}
	if last == nil {
		logger.Log("level", "warning", "subsys", "live", "msg", "no telemetry generated")
		return
	}
	logger.Log("subsys", "live", "phase", last.Metrics.FlightPhase.Phase,
		"confidence", last.Metrics.FlightPhase.Confidence,
		"deviation(km)", last.Metrics.Deviation.Distance/1000,
		"accuracy", last.Accuracy.Overall)
	for _, rec := range last.Recommendations {
		logger.Log("subsys", "live", "recommendation", rec)
	}
	if assumed, site := sim.Assumed.Assumed(); assumed && site != nil {
		logger.Log("subsys", "live", "assumed_landed", true, "lat", site.Lat, "lon", site.Lon)
	}
}
