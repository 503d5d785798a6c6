package planclient

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

const routeGPX = `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="flightrelay-test" xmlns="http://www.topografix.com/GPX/1/1">
  <rte>
    <name>KSEA-KPDX</name>
    <rtept lat="47.449" lon="-122.309"><ele>131</ele><name>KSEA</name></rtept>
    <rtept lat="45.589" lon="-122.597"><name>KPDX</name></rtept>
  </rte>
</gpx>`

const waypointGPX = `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="flightrelay-test" xmlns="http://www.topografix.com/GPX/1/1">
  <wpt lat="47.0" lon="-122.0"><name>A</name></wpt>
</gpx>`

const trackGPX = `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="flightrelay-test" xmlns="http://www.topografix.com/GPX/1/1">
  <trk><name>flown</name><trkseg>
    <trkpt lat="1.0" lon="2.0"><ele>10</ele></trkpt>
    <trkpt lat="1.5" lon="2.5"></trkpt>
  </trkseg></trk>
</gpx>`

const emptyGPX = `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="flightrelay-test" xmlns="http://www.topografix.com/GPX/1/1"></gpx>`

func TestParsePlan(t *testing.T) {
	Convey("Given plan documents in supported formats", t, func() {
		Convey("When the plan is JSON", func() {
			out, err := ParsePlan(".json", []byte("{\n  \"callsign\": \"N123\"\n}"))

			So(err, ShouldBeNil)
			So(string(out), ShouldEqual, `{"callsign":"N123"}`)
		})

		Convey("When the plan is JSON with comments", func() {
			out, err := ParsePlan(".JSONC", []byte("{\n  // tail number\n  \"callsign\": \"N123\", /* cruise */ \"alt\": 5500,\n}"))

			So(err, ShouldBeNil)
			var v map[string]any
			So(json.Unmarshal(out, &v), ShouldBeNil)
			So(v, ShouldResemble, map[string]any{"callsign": "N123", "alt": float64(5500)})
		})

		Convey("When the plan is YAML", func() {
			out, err := ParsePlan(".yaml", []byte("callsign: N123\nroute:\n  - KSEA\n  - KPDX\nalt: 5500\n"))

			So(err, ShouldBeNil)
			var v map[string]any
			So(json.Unmarshal(out, &v), ShouldBeNil)
			So(v["callsign"], ShouldEqual, "N123")
			So(v["route"], ShouldResemble, []any{"KSEA", "KPDX"})
			So(v["alt"], ShouldEqual, float64(5500))
		})

		Convey("When the plan is a GPX route", func() {
			out, err := ParsePlan(".gpx", []byte(routeGPX))

			So(err, ShouldBeNil)
			var p Plan
			So(json.Unmarshal(out, &p), ShouldBeNil)
			So(p.Name, ShouldEqual, "KSEA-KPDX")
			So(p.Source, ShouldEqual, "gpx")
			So(p.Route, ShouldHaveLength, 2)
			So(p.Route[0].Name, ShouldEqual, "KSEA")
			So(p.Route[0].Lat, ShouldAlmostEqual, 47.449)
			So(*p.Route[0].ElevationM, ShouldAlmostEqual, 131)
			So(p.Route[1].ElevationM, ShouldBeNil)
		})

		Convey("When the GPX has only waypoints", func() {
			out, err := ParsePlan(".gpx", []byte(waypointGPX))

			So(err, ShouldBeNil)
			var p Plan
			So(json.Unmarshal(out, &p), ShouldBeNil)
			So(p.Route, ShouldHaveLength, 1)
			So(p.Route[0].Name, ShouldEqual, "A")
		})

		Convey("When the GPX has only a track", func() {
			out, err := ParsePlan(".gpx", []byte(trackGPX))

			So(err, ShouldBeNil)
			var p Plan
			So(json.Unmarshal(out, &p), ShouldBeNil)
			So(p.Route, ShouldHaveLength, 2)
			So(p.Route[1].Lon, ShouldAlmostEqual, 2.5)
		})
	})

	Convey("Given invalid plan documents", t, func() {
		cases := []struct {
			ext  string
			data string
		}{
			{".json", `{"a":`},
			{".yaml", "a: [1, 2"},
			{".yaml", ""},
			{".gpx", "<not-gpx"},
			{".gpx", emptyGPX},
			{".txt", "anything"},
		}
		for _, c := range cases {
			_, err := ParsePlan(c.ext, []byte(c.data))
			So(errors.Is(err, ErrPlan), ShouldBeTrue)
		}
	})
}

func TestLoadPlan(t *testing.T) {
	Convey("Given a plan file on disk", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "plan.yml")
		So(os.WriteFile(path, []byte("callsign: N123\n"), 0o600), ShouldBeNil)

		out, err := LoadPlan(path)

		So(err, ShouldBeNil)
		So(string(out), ShouldEqual, `{"callsign":"N123"}`)
	})

	Convey("Given a missing plan file", t, func() {
		_, err := LoadPlan(filepath.Join(t.TempDir(), "nope.json"))

		So(errors.Is(err, ErrPlan), ShouldBeTrue)
	})
}
