package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/vigil/internal/adapters/http/api"
	"github.com/okian/vigil/internal/domain/model"
	"github.com/okian/vigil/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

// fakeDeps implements api.Dependencies and api.StatsProvider for handler tests.
type fakeDeps struct {
	enqueued    []model.IngestEvent
	full        bool
	alerts      map[string][]model.FlaggedRecord
	alertsErr   error
	alertsCalls int
}

func newFakeDeps() *fakeDeps {
	return &fakeDeps{alerts: make(map[string][]model.FlaggedRecord)}
}

func (f *fakeDeps) Enqueue(_ context.Context, event model.IngestEvent) bool {
	if f.full {
		return false
	}
	f.enqueued = append(f.enqueued, event)
	return true
}

func (f *fakeDeps) Alerts(_ context.Context, sourceFile string) ([]model.FlaggedRecord, error) {
	f.alertsCalls++
	if f.alertsErr != nil {
		return nil, f.alertsErr
	}
	return f.alerts[sourceFile], nil
}

func (f *fakeDeps) GetStats() map[string]interface{} {
	return map[string]interface{}{"queue_size": 0}
}

func newTestServer(deps *fakeDeps) *httptest.Server {
	mux := http.NewServeMux()
	api.NewServer(deps, deps).Register(context.Background(), mux)
	return httptest.NewServer(mux)
}

func TestAlertsEndpoint(t *testing.T) {
	Convey("Given a server with persisted alerts", t, func() {
		deps := newFakeDeps()
		ts := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
		deps.alerts["readings.csv"] = []model.FlaggedRecord{
			{RecordID: "00aa", SourceFile: "readings.csv", Identity: "u1", Score: 71, Timestamp: ts},
			{RecordID: "ffbb", SourceFile: "readings.csv", Identity: "u2", Score: 55, Timestamp: ts.Add(time.Minute)},
		}
		srv := newTestServer(deps)
		defer srv.Close()

		Convey("A request without source_file is rejected before any lookup", func() {
			resp, err := http.Get(srv.URL + "/alerts")
			So(err, ShouldBeNil)
			defer func() { _ = resp.Body.Close() }()

			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			So(deps.alertsCalls, ShouldEqual, 0)

			var body map[string]string
			So(json.NewDecoder(resp.Body).Decode(&body), ShouldBeNil)
			So(body["code"], ShouldEqual, "missing_parameter")
		})

		Convey("A known file returns its records as JSON", func() {
			resp, err := http.Get(srv.URL + "/alerts?source_file=readings.csv")
			So(err, ShouldBeNil)
			defer func() { _ = resp.Body.Close() }()

			So(resp.StatusCode, ShouldEqual, http.StatusOK)

			var got []map[string]any
			So(json.NewDecoder(resp.Body).Decode(&got), ShouldBeNil)
			So(got, ShouldHaveLength, 2)
			So(got[0]["record_id"], ShouldEqual, "00aa")
			So(got[0]["stress_score"], ShouldEqual, 71)
			So(got[1]["record_id"], ShouldEqual, "ffbb")
		})

		Convey("An unknown file returns an empty array, not null", func() {
			resp, err := http.Get(srv.URL + "/alerts?source_file=absent.csv")
			So(err, ShouldBeNil)
			defer func() { _ = resp.Body.Close() }()

			So(resp.StatusCode, ShouldEqual, http.StatusOK)

			var raw json.RawMessage
			So(json.NewDecoder(resp.Body).Decode(&raw), ShouldBeNil)
			So(strings.TrimSpace(string(raw)), ShouldEqual, "[]")
		})

		Convey("A store failure maps to 500", func() {
			deps.alertsErr = errors.New("store down")
			resp, err := http.Get(srv.URL + "/alerts?source_file=readings.csv")
			So(err, ShouldBeNil)
			defer func() { _ = resp.Body.Close() }()

			So(resp.StatusCode, ShouldEqual, http.StatusInternalServerError)
		})

		Convey("Non-GET methods are not found", func() {
			resp, err := http.Post(srv.URL+"/alerts?source_file=readings.csv", "application/json", nil)
			So(err, ShouldBeNil)
			defer func() { _ = resp.Body.Close() }()

			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestIngestEndpoint(t *testing.T) {
	Convey("Given a server accepting ingest notifications", t, func() {
		deps := newFakeDeps()
		srv := newTestServer(deps)
		defer srv.Close()

		post := func(body string) *http.Response {
			resp, err := http.Post(srv.URL+"/ingest", "application/json", strings.NewReader(body))
			So(err, ShouldBeNil)
			return resp
		}

		Convey("A valid notification is accepted and enqueued", func() {
			resp := post(`{"source_bucket":"sensors","source_file":"day1.csv"}`)
			defer func() { _ = resp.Body.Close() }()

			So(resp.StatusCode, ShouldEqual, http.StatusAccepted)
			So(deps.enqueued, ShouldHaveLength, 1)
			So(deps.enqueued[0].SourceBucket, ShouldEqual, "sensors")
			So(deps.enqueued[0].SourceFile, ShouldEqual, "day1.csv")
		})

		Convey("Missing fields are rejected", func() {
			resp := post(`{"source_bucket":"sensors"}`)
			defer func() { _ = resp.Body.Close() }()

			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			So(deps.enqueued, ShouldBeEmpty)
		})

		Convey("Malformed JSON is rejected", func() {
			resp := post(`{"source_bucket":`)
			defer func() { _ = resp.Body.Close() }()

			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("A full queue maps to 429", func() {
			deps.full = true
			resp := post(`{"source_bucket":"sensors","source_file":"day1.csv"}`)
			defer func() { _ = resp.Body.Close() }()

			So(resp.StatusCode, ShouldEqual, http.StatusTooManyRequests)

			var body map[string]string
			So(json.NewDecoder(resp.Body).Decode(&body), ShouldBeNil)
			So(body["code"], ShouldEqual, "backpressure")
		})
	})
}

func TestStatsEndpoint(t *testing.T) {
	Convey("Given a server exposing stats", t, func() {
		deps := newFakeDeps()
		srv := newTestServer(deps)
		defer srv.Close()

		resp, err := http.Get(srv.URL + "/stats")
		So(err, ShouldBeNil)
		defer func() { _ = resp.Body.Close() }()

		So(resp.StatusCode, ShouldEqual, http.StatusOK)

		var stats map[string]any
		So(json.NewDecoder(resp.Body).Decode(&stats), ShouldBeNil)
		So(stats, ShouldContainKey, "queue_size")
	})
}
