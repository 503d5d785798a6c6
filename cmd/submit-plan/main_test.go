package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func writePlan(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRun(t *testing.T) {
	Convey("Given the submit-plan command", t, func() {
		var stdout, stderr bytes.Buffer
		ctx := context.Background()

		Convey("When asked for help", func() {
			code := run(ctx, []string{"--help"}, &stdout, &stderr)

			So(code, ShouldEqual, exitOK)
			So(stdout.String(), ShouldContainSubstring, "--timeout")
		})

		Convey("When no plan file is given", func() {
			code := run(ctx, nil, &stdout, &stderr)

			So(code, ShouldEqual, exitUsage)
			So(stderr.String(), ShouldContainSubstring, "Usage:")
		})

		Convey("When an unknown flag is given", func() {
			So(run(ctx, []string{"--bogus", "x.json"}, &stdout, &stderr), ShouldEqual, exitUsage)
		})

		Convey("When the plan file cannot be parsed", func() {
			path := writePlan(t, "plan.txt", "hello")

			So(run(ctx, []string{path}, &stdout, &stderr), ShouldEqual, exitUsage)
		})

		Convey("When the relay accepts the plan", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusCreated)
				_, _ = w.Write([]byte(`{"id":7}`))
			}))
			defer srv.Close()
			path := writePlan(t, "plan.yaml", "callsign: N123\n")

			code := run(ctx, []string{"--url", srv.URL, path}, &stdout, &stderr)

			So(code, ShouldEqual, exitOK)
			So(stdout.String(), ShouldEqual, "json 201\n{\"id\":7}\n")
		})

		Convey("When the relay rejects both attempts", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
			}))
			defer srv.Close()
			path := writePlan(t, "plan.json", `{"callsign":"N123"}`)

			code := run(ctx, []string{"-u", srv.URL, "-t", "2s", path}, &stdout, &stderr)

			So(code, ShouldEqual, exitRejected)
			So(stdout.String(), ShouldStartWith, "form 400")
		})
	})
}
