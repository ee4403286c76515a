package blips

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"
)

/* Wind and surface weather data consumed by the predictor. Fetching is an
external concern: the core only sees the assembled WeatherData. */

// HourKeyFormat is the layout of the hourly forecast keys, matching the
// ISO-8601 timestamps weather providers report levels at.
const HourKeyFormat = "2006-01-02T15:00"

// WindVector is the wind at one pressure level. Direction is meteorological:
// degrees the wind blows from, clockwise from north.
type WindVector struct {
	Speed     float64 // m/s
	Direction float64 // degrees
}

// Components returns the eastward and northward ground-track velocity (m/s)
// of an object carried by this wind.
func (w WindVector) Components() (dx, dy float64) {
	rad := w.Direction * deg2rad
	// Carried *away from* the direction the wind comes from.
	return -w.Speed * math.Sin(rad), -w.Speed * math.Cos(rad)
}

// SurfaceConditions carries the surface fields reported alongside the wind
// levels. Display data only: the integrator never reads these.
type SurfaceConditions struct {
	Temperature   float64 // °C
	Humidity      float64 // %
	Pressure      float64 // hPa
	WindSpeed     float64 // m/s
	WindDirection float64 // degrees
	CloudCover    float64 // %
}

// WindField is the wind at every standard pressure level for one forecast
// hour.
type WindField struct {
	Time    time.Time
	Levels  map[float64]WindVector // keyed by pressure level in hPa
	Surface SurfaceConditions
}

// At returns the wind at the given pressure level.
func (f *WindField) At(level float64) (WindVector, bool) {
	w, ok := f.Levels[level]
	return w, ok
}

// WeatherData is a set of hourly wind fields covering a prediction window.
type WeatherData struct {
	fields map[string]*WindField
}

// NewWeatherData returns an empty forecast set.
func NewWeatherData() *WeatherData {
	return &WeatherData{fields: make(map[string]*WindField)}
}

// Add registers the field under its hourly key, replacing any previous field
// for that hour.
func (w *WeatherData) Add(f *WindField) {
	w.fields[f.Time.UTC().Truncate(time.Hour).Format(HourKeyFormat)] = f
}

// Hours returns the covered forecast hours in ascending order.
func (w *WeatherData) Hours() []time.Time {
	hours := make([]time.Time, 0, len(w.fields))
	for _, f := range w.fields {
		hours = append(hours, f.Time.UTC().Truncate(time.Hour))
	}
	sort.Slice(hours, func(i, j int) bool { return hours[i].Before(hours[j]) })
	return hours
}

// FieldAt returns the wind field for the hour containing dt. A missing hour
// is a WeatherUnavailableError: the core never invents wind.
func (w *WeatherData) FieldAt(dt time.Time) (*WindField, error) {
	key := dt.UTC().Truncate(time.Hour).Format(HourKeyFormat)
	if f, ok := w.fields[key]; ok {
		return f, nil
	}
	return nil, &WeatherUnavailableError{At: dt}
}

// NewUniformWindField builds a field with the same wind vector at every
// standard pressure level. Used by tests and by quick planning runs where a
// single sounding is all that is available.
func NewUniformWindField(dt time.Time, wind WindVector) *WindField {
	levels := make(map[float64]WindVector, len(StandardPressureLevels))
	for _, lvl := range StandardPressureLevels {
		levels[lvl] = wind
	}
	return &WindField{Time: dt, Levels: levels}
}

// NewUniformWeather covers [start, start+window] with the same wind at every
// level and hour.
func NewUniformWeather(start time.Time, window time.Duration, wind WindVector) *WeatherData {
	w := NewWeatherData()
	for dt := start.UTC().Truncate(time.Hour); !dt.After(start.Add(window)); dt = dt.Add(time.Hour) {
		w.Add(NewUniformWindField(dt, wind))
	}
	return w
}

// WeatherProvider fetches a forecast for a location and time window.
// Implementations wrap the HTTP providers; the core only defines the
// interface.
type WeatherProvider interface {
	Forecast(ctx context.Context, lat, lon float64, start, end time.Time) (*WeatherData, error)
}

// StaticWeather is a WeatherProvider returning a fixed forecast, for tests
// and offline runs.
type StaticWeather struct {
	Data *WeatherData
}

// Forecast implements WeatherProvider.
func (s StaticWeather) Forecast(ctx context.Context, lat, lon float64, start, end time.Time) (*WeatherData, error) {
	if s.Data == nil || len(s.Data.fields) == 0 {
		return nil, &WeatherUnavailableError{Lat: lat, Lon: lon, At: start}
	}
	return s.Data, nil
}

// WeatherUnavailableError reports missing wind data for a location, hour or
// pressure level. It propagates to the caller: the predictor never defaults
// missing wind to zero.
type WeatherUnavailableError struct {
	Lat, Lon float64
	At       time.Time
	Level    float64 // hPa, 0 when the whole hour is missing
}

func (e *WeatherUnavailableError) Error() string {
	if e.Level > 0 {
		return fmt.Sprintf("no wind data at %.0f hPa for %s", e.Level, e.At.UTC().Format(HourKeyFormat))
	}
	return fmt.Sprintf("no wind data for %s", e.At.UTC().Format(HourKeyFormat))
}
