package blips

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

/* Streams predicted paths to CSV and GeoJSON for mapping tools. */

// ExportConfig defines what to export and where.
type ExportConfig struct {
	Filename  string
	OutputDir string
	AsCSV     bool
	AsGeoJSON bool
}

// IsUseless returns whether this export configuration will output anything.
func (c ExportConfig) IsUseless() bool {
	return !c.AsCSV && !c.AsGeoJSON
}

func (c ExportConfig) path(ext string) string {
	dir := c.OutputDir
	if dir == "" {
		dir = blipsConfig().OutputDir()
	}
	return fmt.Sprintf("%s/%s.%s", dir, c.Filename, ext)
}

// geoJSONFeature is the minimal LineString wrapper mapping tools ingest.
type geoJSONFeature struct {
	Type     string `json:"type"`
	Geometry struct {
		Type        string       `json:"type"`
		Coordinates [][3]float64 `json:"coordinates"`
	} `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
}

// StreamPoints consumes a channel of flight points and writes the configured
// files. Close the channel to finalize the output. A file error panics:
// losing a computed prediction to a typoed path should be loud.
func StreamPoints(conf ExportConfig, points <-chan FlightPoint) {
	var csvFile *os.File
	var csvWriter *csv.Writer
	if conf.AsCSV {
		f, err := os.Create(conf.path("csv"))
		if err != nil {
			panic(err)
		}
		csvFile = f
		csvWriter = csv.NewWriter(f)
		csvWriter.Write([]string{"offset_s", "lat", "lon", "altitude_m"})
	}
	var coords [][3]float64

	for pt := range points {
		if conf.AsCSV {
			csvWriter.Write([]string{
				strconv.FormatFloat(pt.Offset.Seconds(), 'f', 0, 64),
				strconv.FormatFloat(pt.Lat, 'f', 6, 64),
				strconv.FormatFloat(pt.Lon, 'f', 6, 64),
				strconv.FormatFloat(pt.Altitude, 'f', 1, 64),
			})
		}
		if conf.AsGeoJSON {
			coords = append(coords, [3]float64{pt.Lon, pt.Lat, pt.Altitude})
		}
	}

	if conf.AsCSV {
		csvWriter.Flush()
		if err := csvFile.Close(); err != nil {
			panic(err)
		}
	}
	if conf.AsGeoJSON {
		var feat geoJSONFeature
		feat.Type = "Feature"
		feat.Geometry.Type = "LineString"
		feat.Geometry.Coordinates = coords
		feat.Properties = map[string]interface{}{"name": conf.Filename, "samples": len(coords)}
		f, err := os.Create(conf.path("geojson"))
		if err != nil {
			panic(err)
		}
		if err := json.NewEncoder(f).Encode(feat); err != nil {
			panic(err)
		}
		if err := f.Close(); err != nil {
			panic(err)
		}
	}
}
