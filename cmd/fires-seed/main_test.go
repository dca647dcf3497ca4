package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/fires/internal/adapters/repository"
	"github.com/okian/fires/internal/seed"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestLoadCommand(t *testing.T) {
	convey.Convey("Given a sqlite store configured through the environment", t, func() {
		dir := t.TempDir()
		dsn := filepath.Join(dir, "seed.db")
		t.Setenv("FIRES_STORE_DRIVER", repository.DriverSQLite)
		t.Setenv("FIRES_STORE_DSN", dsn)

		convey.Convey("load should write the dataset and a second load should see duplicates", func() {
			out, err := execute(t, "load", "--users", "8", "--workers", "2", "--output", filepath.Join(dir, "seed.json"))
			convey.So(err, convey.ShouldBeNil)
			convey.So(out, convey.ShouldContainSubstring, "markers:      6")

			_, err = os.Stat(filepath.Join(dir, "seed.json"))
			convey.So(err, convey.ShouldBeNil)

			out, err = execute(t, "load", "--users", "8", "--workers", "2")
			convey.So(err, convey.ShouldBeNil)
			convey.So(out, convey.ShouldContainSubstring, "duplicates:   6")

			store, err := repository.Open(context.Background(), repository.DriverSQLite, dsn)
			convey.So(err, convey.ShouldBeNil)
			defer store.Close()
			ds := seed.Generate(seed.Config{Users: 8, Seed: seed.DefaultSeed})
			_, err = store.Ratings(context.Background(), ds.Users[0])
			convey.So(err, convey.ShouldBeNil)
		})

		convey.Convey("a non-positive user count should be rejected", func() {
			_, err := execute(t, "load", "--users", "0")
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestSubmitCommand(t *testing.T) {
	convey.Convey("Given a server that accepts every alignment", t, func() {
		mux := http.NewServeMux()
		mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {})
		mux.HandleFunc("POST /alignment/{user}", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusAccepted)
		})
		srv := httptest.NewServer(mux)
		defer srv.Close()

		convey.Convey("submit should report every submission as accepted", func() {
			out, err := execute(t, "submit", "--users", "8", "--url", srv.URL)
			convey.So(err, convey.ShouldBeNil)
			convey.So(out, convey.ShouldContainSubstring, "submissions:  6")
		})
	})

	convey.Convey("Given a server that rejects alignments", t, func() {
		mux := http.NewServeMux()
		mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {})
		mux.HandleFunc("POST /alignment/{user}", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
		srv := httptest.NewServer(mux)
		defer srv.Close()

		convey.Convey("submit should fail with the failure count", func() {
			_, err := execute(t, "submit", "--users", "8", "--url", srv.URL)
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(err.Error(), convey.ShouldContainSubstring, "6 submissions failed")
		})
	})
}
