package blips

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	kitlog "github.com/go-kit/kit/log"
)

/* Handles the flight path propagation. */

const (
	// FlightStepSize is the fixed integration time step.
	FlightStepSize = 60 * time.Second
	// MaxSimulatedFlight caps the simulated duration. Exceeding it means the
	// configured rates are pathological, not that the flight is long.
	MaxSimulatedFlight = 24 * time.Hour
)

var exportWG sync.WaitGroup

// LaunchParameters are the immutable inputs of one prediction run. Altitudes
// are meters MSL.
type LaunchParameters struct {
	Lat, Lon       float64
	LaunchTime     time.Time
	LaunchAltitude float64 // m
	AscentRate     float64 // m/s, > 0
	BurstAltitude  float64 // m, > LaunchAltitude
	DescentRate    float64 // m/s, > 0
}

// Validate reports the first invalid parameter.
func (p LaunchParameters) Validate() error {
	switch {
	case p.AscentRate <= 0:
		return fmt.Errorf("ascent rate must be positive, got %.2f m/s", p.AscentRate)
	case p.DescentRate <= 0:
		return fmt.Errorf("descent rate must be positive, got %.2f m/s", p.DescentRate)
	case p.BurstAltitude <= p.LaunchAltitude:
		return fmt.Errorf("burst altitude %.0f m must exceed launch altitude %.0f m", p.BurstAltitude, p.LaunchAltitude)
	case math.Abs(p.Lat) > 90 || math.Abs(p.Lon) > 180:
		return fmt.Errorf("invalid launch coordinates (%.4f, %.4f)", p.Lat, p.Lon)
	}
	return nil
}

// FlightPoint is one sample of a predicted path.
type FlightPoint struct {
	Offset   time.Duration // since launch
	Lat, Lon float64
	Altitude float64 // m
}

// PredictionResult is the full predicted path from launch to landing.
// Immutable once produced: a live update builds a fresh result.
type PredictionResult struct {
	Path         []FlightPoint
	LaunchPoint  FlightPoint
	BurstPoint   FlightPoint
	LandingPoint FlightPoint
	MaxAltitude  float64       // m
	Distance     float64       // m, great-circle launch→landing
	TotalTime    time.Duration // == LandingPoint.Offset
}

// PointAt returns the path point nearest in time to the given offset.
func (r *PredictionResult) PointAt(offset time.Duration) FlightPoint {
	n := len(r.Path)
	i := sort.Search(n, func(i int) bool { return r.Path[i].Offset >= offset })
	if i == 0 {
		return r.Path[0]
	}
	if i == n {
		return r.Path[n-1]
	}
	if offset-r.Path[i-1].Offset < r.Path[i].Offset-offset {
		return r.Path[i-1]
	}
	return r.Path[i]
}

// SimulationDivergenceError reports that the integrator exceeded the
// simulated-time cap, which indicates a parameter or unit bug upstream.
type SimulationDivergenceError struct {
	Elapsed time.Duration
	Phase   string
}

func (e *SimulationDivergenceError) Error() string {
	return fmt.Sprintf("simulation exceeded %s during %s (elapsed %s): check rates and units", MaxSimulatedFlight, e.Phase, e.Elapsed)
}

// Flight propagates one balloon flight.
type Flight struct {
	Params          LaunchParameters
	Weather         *WeatherData
	GroundElevation float64

	step     time.Duration
	logger   kitlog.Logger
	histChan chan<- FlightPoint
}

// NewFlight returns a Flight with the default step size. If the export
// config is useless no output is written.
func NewFlight(params LaunchParameters, weather *WeatherData, groundElevation float64, conf ExportConfig, logger kitlog.Logger) *Flight {
	var histChan chan FlightPoint
	if !conf.IsUseless() {
		histChan = make(chan FlightPoint, 1000)
		exportWG.Add(1)
		go func() {
			defer exportWG.Done()
			StreamPoints(conf, histChan)
		}()
	}
	if logger == nil {
		logger = kitlog.NewNopLogger()
	}
	return &Flight{Params: params, Weather: weather, GroundElevation: groundElevation, step: FlightStepSize, logger: logger, histChan: histChan}
}

// Predict runs the fixed-step three-phase integration and assembles the
// result. The ascent is clamped exactly to the burst altitude and the final
// point exactly to ground level.
func (f *Flight) Predict() (*PredictionResult, error) {
	if err := f.Params.Validate(); err != nil {
		return nil, err
	}
	dt := f.step.Seconds()
	lat, lon, alt := f.Params.Lat, f.Params.Lon, f.Params.LaunchAltitude
	offset := time.Duration(0)

	path := []FlightPoint{{Offset: 0, Lat: lat, Lon: lon, Altitude: alt}}
	f.record(path[0])

	var cache *WindProfileCache
	var cacheHour time.Time
	windAt := func(altitude float64) (WindVector, error) {
		hour := f.Params.LaunchTime.Add(offset).UTC().Truncate(time.Hour)
		if cache == nil || !hour.Equal(cacheHour) {
			field, err := f.Weather.FieldAt(f.Params.LaunchTime.Add(offset))
			if err != nil {
				return WindVector{}, err
			}
			if cache == nil {
				cache = NewWindProfileCache(field)
			} else {
				cache.Reset(field)
			}
			cacheHour = hour
		}
		return cache.At(altitude)
	}

	advance := func(altitude float64) error {
		wind, err := windAt(altitude)
		if err != nil {
			return err
		}
		dx, dy := wind.Components()
		lat += (dy * dt / EarthRadius) / deg2rad
		lon += (dx * dt / (EarthRadius * math.Cos(lat*deg2rad))) / deg2rad
		offset += f.step
		if math.IsNaN(lat) || math.IsNaN(lon) || math.IsNaN(alt) {
			panic(fmt.Errorf("NaN state at offset %s (lat=%f lon=%f alt=%f)", offset, lat, lon, alt))
		}
		return nil
	}

	// Ascent.
	burstIdx := -1
	for alt < f.Params.BurstAltitude {
		if offset > MaxSimulatedFlight {
			f.close()
			return nil, &SimulationDivergenceError{Elapsed: offset, Phase: "ascent"}
		}
		if err := f.advanceAndGuard(advance, alt); err != nil {
			return nil, err
		}
		alt += f.Params.AscentRate * dt
		if alt >= f.Params.BurstAltitude {
			alt = f.Params.BurstAltitude // fix the burst point exactly
		}
		pt := FlightPoint{Offset: offset, Lat: lat, Lon: lon, Altitude: alt}
		path = append(path, pt)
		f.record(pt)
	}
	burstIdx = len(path) - 1

	// Descent.
	for alt > f.GroundElevation {
		if offset > MaxSimulatedFlight {
			f.close()
			return nil, &SimulationDivergenceError{Elapsed: offset, Phase: "descent"}
		}
		if err := f.advanceAndGuard(advance, alt); err != nil {
			return nil, err
		}
		alt -= f.Params.DescentRate * dt
		if alt <= f.GroundElevation {
			alt = f.GroundElevation // clamp the landing to ground level
		}
		pt := FlightPoint{Offset: offset, Lat: lat, Lon: lon, Altitude: alt}
		path = append(path, pt)
		f.record(pt)
	}
	f.close()
	exportWG.Wait() // don't return until the export files are written

	launch, burst, landing := path[0], path[burstIdx], path[len(path)-1]
	res := &PredictionResult{
		Path:         path,
		LaunchPoint:  launch,
		BurstPoint:   burst,
		LandingPoint: landing,
		MaxAltitude:  burst.Altitude,
		Distance:     haversine(launch.Lat, launch.Lon, landing.Lat, landing.Lon),
		TotalTime:    landing.Offset,
	}
	f.logger.Log("level", "info", "subsys", "trajectory", "status", "finished",
		"duration", res.TotalTime, "burst(m)", burst.Altitude, "distance(km)", res.Distance/1000)
	return res, nil
}

func (f *Flight) advanceAndGuard(advance func(float64) error, alt float64) error {
	if err := advance(alt); err != nil {
		f.close()
		return err
	}
	return nil
}

func (f *Flight) record(pt FlightPoint) {
	if f.histChan != nil {
		f.histChan <- pt
	}
}

func (f *Flight) close() {
	if f.histChan != nil {
		close(f.histChan)
		f.histChan = nil
	}
}

// Predict is the convenience entry point: no export, quiet logger, default
// ground level.
func Predict(params LaunchParameters, weather *WeatherData) (*PredictionResult, error) {
	return NewFlight(params, weather, DefaultGroundElevation, ExportConfig{}, nil).Predict()
}
