package planclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"github.com/tkrajina/gpxgo/gpx"
	"gopkg.in/yaml.v3"
)

// Plan is the document built from a GPX route.
type Plan struct {
	Name   string     `json:"name,omitempty"`
	Source string     `json:"source"`
	Route  []Waypoint `json:"route"`
}

// Waypoint is one point of a route.
type Waypoint struct {
	Name       string   `json:"name,omitempty"`
	Lat        float64  `json:"lat"`
	Lon        float64  `json:"lon"`
	ElevationM *float64 `json:"elevation_m,omitempty"`
}

// LoadPlan reads a plan file and returns it as compact JSON. The format
// follows the extension: .json, .jsonc, .yaml/.yml or .gpx.
func LoadPlan(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPlan, err)
	}
	return ParsePlan(filepath.Ext(path), data)
}

// ParsePlan converts data in the format named by ext into compact JSON.
func ParsePlan(ext string, data []byte) ([]byte, error) {
	switch strings.ToLower(ext) {
	case ".json":
		return compactJSON(data)
	case ".jsonc":
		return compactJSON(jsonc.ToJSON(data))
	case ".yaml", ".yml":
		return yamlToJSON(data)
	case ".gpx":
		return gpxToJSON(data)
	default:
		return nil, fmt.Errorf("%w: unsupported plan format %q", ErrPlan, ext)
	}
}

func compactJSON(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPlan, err)
	}
	return buf.Bytes(), nil
}

func yamlToJSON(data []byte) ([]byte, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPlan, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: empty YAML document", ErrPlan)
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPlan, err)
	}
	return out, nil
}

// gpxToJSON uses the first route with points, else the waypoints, else the
// first track's points.
func gpxToJSON(data []byte) ([]byte, error) {
	doc, err := gpx.ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPlan, err)
	}

	plan := Plan{Name: doc.Name, Source: "gpx"}
	rte := firstRoute(doc)
	switch {
	case rte != nil:
		if rte.Name != "" {
			plan.Name = rte.Name
		}
		plan.Route = toWaypoints(rte.Points)
	case len(doc.Waypoints) > 0:
		plan.Route = toWaypoints(doc.Waypoints)
	default:
		plan.Route = trackWaypoints(doc)
	}
	if len(plan.Route) == 0 {
		return nil, fmt.Errorf("%w: GPX has no route, waypoints or track points", ErrPlan)
	}

	out, err := json.Marshal(plan)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPlan, err)
	}
	return out, nil
}

func firstRoute(doc *gpx.GPX) *gpx.GPXRoute {
	for i := range doc.Routes {
		if len(doc.Routes[i].Points) > 0 {
			return &doc.Routes[i]
		}
	}
	return nil
}

func trackWaypoints(doc *gpx.GPX) []Waypoint {
	for _, trk := range doc.Tracks {
		var pts []gpx.GPXPoint
		for _, seg := range trk.Segments {
			pts = append(pts, seg.Points...)
		}
		if len(pts) > 0 {
			return toWaypoints(pts)
		}
	}
	return nil
}

func toWaypoints(points []gpx.GPXPoint) []Waypoint {
	out := make([]Waypoint, 0, len(points))
	for _, p := range points {
		wp := Waypoint{Name: p.Name, Lat: p.Latitude, Lon: p.Longitude}
		if p.Elevation.NotNull() {
			ele := p.Elevation.Value()
			wp.ElevationM = &ele
		}
		out = append(out, wp)
	}
	return out
}
