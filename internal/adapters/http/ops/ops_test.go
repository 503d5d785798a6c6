package ops

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/okian/flightrelay/pkg/metrics"
	. "github.com/smartystreets/goconvey/convey"
)

func TestOpsRoutes(t *testing.T) {
	Convey("Given a mux with the ops routes", t, func() {
		mux := http.NewServeMux()
		Register(context.Background(), mux, NewHealthHandler("https://plans.example.com/submit"))

		Convey("When checking health", func() {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			Convey("Then it reports ok and the upstream", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var body map[string]string
				So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
				So(body["status"], ShouldEqual, "ok")
				So(body["upstream"], ShouldEqual, "https://plans.example.com/submit")
				So(body["uptime"], ShouldNotBeEmpty)
			})
		})

		Convey("When scraping metrics", func() {
			metrics.RecordHTTPRequest("relay", "POST", "200")

			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "flightrelay_relay_http_requests_total")
		})

		Convey("When an unknown path is requested", func() {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))

			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestRegisterWithNilMux(t *testing.T) {
	Convey("Given a nil mux", t, func() {
		So(func() { Register(context.Background(), nil, NewHealthHandler("")) }, ShouldPanic)
	})
}
