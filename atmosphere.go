package blips

import (
	"math"
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"
)

/* International Standard Atmosphere model and pressure-level wind lookup. */

const (
	// SeaLevelPressure is the ISA reference pressure in hPa.
	SeaLevelPressure = 1013.25
	// SeaLevelTemperature is the ISA reference temperature in Kelvin.
	SeaLevelTemperature = 288.15
	// TropoLapseRate is the tropospheric temperature lapse rate in K/m.
	TropoLapseRate = 0.0065
	// AirGasConstant is the specific gas constant of dry air in J/(kg·K).
	AirGasConstant = 287.053
	// G0 is standard gravity in m/s².
	G0 = 9.80665

	tropopause   = 11000.0 // m
	stratoTop    = 20000.0 // m, top of the isothermal layer
	tropoTemp    = 216.65  // K, temperature at and above the tropopause
	tropoPress   = 226.321 // hPa at the tropopause
	stratoPress  = 54.7489 // hPa at 20 km
	stratoLapse  = 0.001   // K/m above 20 km (temperature increases)
	tropoExp     = G0 / (AirGasConstant * TropoLapseRate)
	stratoExpInv = G0 / (AirGasConstant * stratoLapse)
)

// StandardPressureLevels are the pressure levels (hPa) wind data is reported
// at, from the surface up.
var StandardPressureLevels = []float64{
	1000, 975, 950, 925, 900,
	850, 800, 750, 700, 650, 600, 550, 500, 450, 400, 350, 300,
	250, 225, 200, 175, 150, 125, 100,
	70, 50, 30, 20, 10, 5, 1,
}

// TemperatureAt returns the ISA ambient temperature in Kelvin at the given
// altitude in meters.
func TemperatureAt(altitude float64) float64 {
	switch {
	case altitude < tropopause:
		return SeaLevelTemperature - TropoLapseRate*altitude
	case altitude < stratoTop:
		return tropoTemp
	default:
		return tropoTemp + stratoLapse*(altitude-stratoTop)
	}
}

// AltitudeToPressure converts an altitude in meters to the ISA ambient
// pressure in hPa using the barometric formula.
func AltitudeToPressure(altitude float64) float64 {
	switch {
	case altitude < tropopause:
		return SeaLevelPressure * math.Pow(1-TropoLapseRate*altitude/SeaLevelTemperature, tropoExp)
	case altitude < stratoTop:
		return tropoPress * math.Exp(-G0*(altitude-tropopause)/(AirGasConstant*tropoTemp))
	default:
		return stratoPress * math.Pow(tropoTemp/TemperatureAt(altitude), stratoExpInv)
	}
}

// PressureToAltitude is the inverse of AltitudeToPressure.
func PressureToAltitude(pressure float64) float64 {
	switch {
	case pressure > tropoPress:
		return (SeaLevelTemperature / TropoLapseRate) * (1 - math.Pow(pressure/SeaLevelPressure, 1/tropoExp))
	case pressure > stratoPress:
		return tropopause - (AirGasConstant*tropoTemp/G0)*math.Log(pressure/tropoPress)
	default:
		return stratoTop + (tropoTemp/stratoLapse)*(math.Pow(stratoPress/pressure, 1/stratoExpInv)-1)
	}
}

// AirDensityAt returns the ISA air density in kg/m³ at the given altitude in
// meters.
func AirDensityAt(altitude float64) float64 {
	return AltitudeToPressure(altitude) * 100 / (AirGasConstant * TemperatureAt(altitude))
}

// WindAt interpolates the wind at the given altitude from the two pressure
// levels bracketing it. Speed is blended linearly in pressure; direction is
// blended along the shorter arc. A missing bracketing level is a
// WeatherUnavailableError.
func WindAt(altitude float64, field *WindField) (WindVector, error) {
	p := AltitudeToPressure(altitude)
	levels := make([]float64, 0, len(field.Levels))
	for lvl := range field.Levels {
		levels = append(levels, lvl)
	}
	if len(levels) == 0 {
		return WindVector{}, &WeatherUnavailableError{At: field.Time}
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(levels))) // surface first
	// Below the lowest or above the highest reported level, use the edge.
	if p >= levels[0] {
		return field.Levels[levels[0]], nil
	}
	last := levels[len(levels)-1]
	if p <= last {
		return field.Levels[last], nil
	}
	var lower, upper float64 // lower = higher pressure = lower altitude
	for i := 1; i < len(levels); i++ {
		if p > levels[i] {
			lower, upper = levels[i-1], levels[i]
			break
		}
	}
	wLo, ok := field.At(lower)
	if !ok {
		return WindVector{}, &WeatherUnavailableError{At: field.Time, Level: lower}
	}
	wHi, ok := field.At(upper)
	if !ok {
		return WindVector{}, &WeatherUnavailableError{At: field.Time, Level: upper}
	}
	frac := (lower - p) / (lower - upper)
	return WindVector{
		Speed:     wLo.Speed + frac*(wHi.Speed-wLo.Speed),
		Direction: interpAngle(wLo.Direction, wHi.Direction, frac),
	}, nil
}

// WindBands summarizes a field at three display altitudes. Not consumed by
// the integrator.
type WindBands struct {
	Ground WindVector // ≈1000 hPa
	Mid    WindVector // ≈500 hPa
	Jet    WindVector // ≈250 hPa
}

// BandsOf returns the ground/mid/jet display summary of a field.
func BandsOf(field *WindField) WindBands {
	var b WindBands
	b.Ground, _ = field.At(1000)
	b.Mid, _ = field.At(500)
	b.Jet, _ = field.At(250)
	return b
}

const (
	windBucketSize  = 100.0 // m per cache bucket
	windCacheBounds = 1024  // buckets kept before LRU eviction
)

// WindProfileCache memoizes interpolated wind by rounded altitude bucket.
// Execution is single-threaded so the cache needs no locking beyond what the
// LRU itself does; it must be invalidated whenever the field changes.
type WindProfileCache struct {
	field *WindField
	cache *lru.Cache[int, WindVector]
}

// NewWindProfileCache builds a bounded cache over one wind field.
func NewWindProfileCache(field *WindField) *WindProfileCache {
	c, err := lru.New[int, WindVector](windCacheBounds)
	if err != nil {
		panic(err) // only fails on a non-positive size
	}
	return &WindProfileCache{field: field, cache: c}
}

// At returns the cached wind for the altitude's bucket, interpolating on a
// miss.
func (c *WindProfileCache) At(altitude float64) (WindVector, error) {
	bucket := int(math.Round(altitude / windBucketSize))
	if w, ok := c.cache.Get(bucket); ok {
		return w, nil
	}
	w, err := WindAt(float64(bucket)*windBucketSize, c.field)
	if err != nil {
		return WindVector{}, err
	}
	c.cache.Add(bucket, w)
	return w, nil
}

// Reset swaps the underlying field and drops every cached bucket.
func (c *WindProfileCache) Reset(field *WindField) {
	c.field = field
	c.cache.Purge()
}
