package main

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/flightrelay/internal/config"
	"github.com/okian/flightrelay/pkg/logger"
	"github.com/okian/flightrelay/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smartystreets/goconvey/convey"
)

func TestMainFunction(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.Convey("When testing configuration loading", func() {
			t.Setenv("RELAY_ADDR", ":8081")
			t.Setenv("RELAY_UPSTREAM_URL", "https://planner.example/api/plans")
			t.Setenv("RELAY_UPSTREAM_TIMEOUT", "12s")

			convey.Convey("Then configuration should be loadable", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8081")
				convey.So(cfg.UpstreamTimeout, convey.ShouldEqual, 12*time.Second)
				convey.So(relayWriteTimeout(cfg.UpstreamTimeout), convey.ShouldEqual, 17*time.Second)
			})
		})

		convey.Convey("When the upstream timeout is disabled", func() {
			convey.So(relayWriteTimeout(0), convey.ShouldEqual, time.Duration(0))
		})

		convey.Convey("When testing metrics initialization", func() {
			manager := metrics.NewManager(metrics.WithPrometheusRegistry(prometheus.NewRegistry()))
			convey.So(manager, convey.ShouldNotBeNil)
		})
	})
}

func TestMainApplicationIntegration(t *testing.T) {
	convey.Convey("Given a service wired from configuration", t, func() {
		up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			w.WriteHeader(http.StatusAccepted)
			_, _ = w.Write(body)
		}))
		defer up.Close()

		cfg := config.New(context.Background())
		cfg.Addr = "127.0.0.1:0"
		cfg.OpsAddr = ""
		cfg.UpstreamURL = up.URL
		cfg.AllowedOrigin = "https://plans.example"

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		svc := newService(cfg, logger.Nop())
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		convey.Convey("When a raw text plan is posted", func() {
			resp, err := http.Post("http://"+svc.RelayAddr()+"/", "text/plain", strings.NewReader("KSEA direct KPDX"))
			convey.So(err, convey.ShouldBeNil)
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)

			convey.Convey("Then it is wrapped, forwarded and relayed back", func() {
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusAccepted)
				convey.So(string(body), convey.ShouldEqual, `{"payload":"KSEA direct KPDX"}`)
				convey.So(resp.Header.Get("Access-Control-Allow-Origin"), convey.ShouldEqual, "https://plans.example")
			})
		})
	})
}

func TestMainApplicationComponents(t *testing.T) {
	convey.Convey("Given main application components", t, func() {
		convey.Convey("When the system metrics updater runs until cancelled", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			convey.So(func() {
				startSystemMetricsUpdater(ctx)
			}, convey.ShouldNotPanic)
		})

		convey.Convey("When system metrics are updated", func() {
			convey.So(func() {
				updateSystemMetrics()
			}, convey.ShouldNotPanic)
		})
	})
}

func TestRun(t *testing.T) {
	convey.Convey("Given the relay process", t, func() {
		convey.Convey("When the configuration is invalid", func() {
			t.Setenv("RELAY_UPSTREAM_URL", "")

			convey.So(run(), convey.ShouldEqual, exitFailure)
		})

		convey.Convey("When the relay port is already taken", func() {
			taken, err := net.Listen("tcp", "127.0.0.1:0")
			convey.So(err, convey.ShouldBeNil)
			defer func() { _ = taken.Close() }()

			t.Setenv("RELAY_UPSTREAM_URL", "https://planner.example/api/plans")
			t.Setenv("RELAY_ADDR", taken.Addr().String())
			t.Setenv("RELAY_OPS_ADDR", "")

			convey.So(run(), convey.ShouldEqual, exitFailure)
		})
	})
}
