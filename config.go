package blips

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

var (
	cfgLoaded = false
	config    = _blipsconfig{}
)

// _blipsconfig is a "hidden" struct, just use `blipsConfig`.
type _blipsconfig struct {
	outputDir string

	weatherEndpoint   string
	elevationEndpoint string

	defaultAscentRate  float64
	defaultDescentRate float64
	defaultBurstAlt    float64
	beaconInterval     time.Duration
}

// OutputDir is where exports are written.
func (c _blipsconfig) OutputDir() string { return c.outputDir }

// Defaults returns the planning defaults for a blank session.
func (c _blipsconfig) Defaults() (ascent, descent, burst float64) {
	return c.defaultAscentRate, c.defaultDescentRate, c.defaultBurstAlt
}

// blipsConfig returns the application configuration, loading
// $BLIPS_CONFIG/conf.toml on first use.
func blipsConfig() _blipsconfig {
	if cfgLoaded {
		return config
	}
	confPath := os.Getenv("BLIPS_CONFIG")
	if confPath == "" {
		panic("environment variable `BLIPS_CONFIG` is missing or empty")
	}
	viper.SetConfigName("conf")
	viper.AddConfigPath(confPath)
	if err := viper.ReadInConfig(); err != nil {
		panic(fmt.Errorf("%s/conf.toml not found", confPath))
	}

	viper.SetDefault("defaults.ascent_rate", 5.0)
	viper.SetDefault("defaults.descent_rate", 6.0)
	viper.SetDefault("defaults.burst_altitude", 30000.0)
	viper.SetDefault("live.beacon_interval", "30s")
	viper.SetDefault("general.output_path", ".")

	config = _blipsconfig{
		outputDir:          viper.GetString("general.output_path"),
		weatherEndpoint:    viper.GetString("providers.weather_endpoint"),
		elevationEndpoint:  viper.GetString("providers.elevation_endpoint"),
		defaultAscentRate:  viper.GetFloat64("defaults.ascent_rate"),
		defaultDescentRate: viper.GetFloat64("defaults.descent_rate"),
		defaultBurstAlt:    viper.GetFloat64("defaults.burst_altitude"),
		beaconInterval:     viper.GetDuration("live.beacon_interval"),
	}
	cfgLoaded = true
	return config
}
