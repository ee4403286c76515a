package blips

import (
	"context"

	kitlog "github.com/go-kit/kit/log"
)

// DefaultGroundElevation is the landing/launch ground level in meters used
// when the elevation provider fails. Elevation is non-critical: a failed
// lookup must never block a prediction.
const DefaultGroundElevation = 0.0

// ElevationProvider returns the ground elevation in meters at a point.
type ElevationProvider interface {
	Elevation(ctx context.Context, lat, lon float64) (float64, error)
}

// ConstantElevation is an ElevationProvider with a fixed answer, for tests
// and flat-terrain runs.
type ConstantElevation float64

// Elevation implements ElevationProvider.
func (c ConstantElevation) Elevation(ctx context.Context, lat, lon float64) (float64, error) {
	return float64(c), nil
}

// GroundElevation resolves the ground level at a point, falling back to
// DefaultGroundElevation on provider failure.
func GroundElevation(ctx context.Context, p ElevationProvider, lat, lon float64, logger kitlog.Logger) float64 {
	if p == nil {
		return DefaultGroundElevation
	}
	elev, err := p.Elevation(ctx, lat, lon)
	if err != nil {
		logger.Log("level", "warning", "subsys", "elevation", "lat", lat, "lon", lon, "err", err, "fallback(m)", DefaultGroundElevation)
		return DefaultGroundElevation
	}
	return elev
}
