package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsOptions(t *testing.T) {
	Convey("Given a manager built with options", t, func() {
		registry := prometheus.NewRegistry()
		m := NewManager(
			WithNamespace("test"),
			WithSubsystem("unit"),
			WithHistogramBuckets([]float64{0.1, 1}),
			WithConstLabels(map[string]string{"env": "test"}),
			WithRegistry(registry),
		)

		Convey("Then collectors are registered on the given registry", func() {
			So(m.Registry(), ShouldEqual, registry)

			m.RecordNotification("email", "sent")
			families, err := registry.Gather()
			So(err, ShouldBeNil)

			names := make([]string, 0, len(families))
			for _, f := range families {
				names = append(names, f.GetName())
			}
			So(names, ShouldContain, "test_unit_notifications_total")
		})

		Convey("Then empty option values keep the defaults", func() {
			d := NewManager(WithNamespace(""), WithSubsystem(""), WithHistogramBuckets(nil), WithRegistry(nil))
			So(d.namespace, ShouldEqual, "birthday")
			So(d.subsystem, ShouldEqual, "manager")
			So(d.histogramBuckets, ShouldResemble, prometheus.DefBuckets)
			So(d.Registry(), ShouldNotBeNil)
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given a fresh manager", t, func() {
		m := NewManager()

		Convey("When HTTP requests are recorded", func() {
			m.RecordHTTPRequest("/api/people", http.MethodGet, http.StatusOK, 20*time.Millisecond)
			m.RecordHTTPRequest("/api/people", http.MethodGet, http.StatusOK, 5*time.Millisecond)
			m.RecordHTTPRequest("/api/people", http.MethodPost, http.StatusBadRequest, time.Millisecond)

			Convey("Then counters are split by label", func() {
				So(testutil.ToFloat64(m.httpRequests.WithLabelValues("/api/people", "GET", "200")), ShouldEqual, 2)
				So(testutil.ToFloat64(m.httpRequests.WithLabelValues("/api/people", "POST", "400")), ShouldEqual, 1)
			})
		})

		Convey("When notifications and imports are recorded", func() {
			m.RecordNotification("telegram", "failed")
			m.RecordNotification("telegram", "sent")
			m.RecordNotification("telegram", "sent")
			m.RecordImport("csv", 12)
			m.RecordImport("csv", 3)

			Convey("Then totals accumulate", func() {
				So(testutil.ToFloat64(m.notifications.WithLabelValues("telegram", "sent")), ShouldEqual, 2)
				So(testutil.ToFloat64(m.notifications.WithLabelValues("telegram", "failed")), ShouldEqual, 1)
				So(testutil.ToFloat64(m.imports.WithLabelValues("csv")), ShouldEqual, 2)
				So(testutil.ToFloat64(m.importedRows.WithLabelValues("csv")), ShouldEqual, 15)
			})
		})

		Convey("When the feed is rebuilt twice", func() {
			m.RecordFeedRebuild(30, 2, time.Second)
			m.RecordFeedRebuild(27, 0, time.Second)
			m.RecordSchedulerRun("idle")

			Convey("Then gauges hold the latest values", func() {
				So(testutil.ToFloat64(m.feedRebuilds), ShouldEqual, 2)
				So(testutil.ToFloat64(m.feedEvents), ShouldEqual, 27)
				So(testutil.ToFloat64(m.anniversaries), ShouldEqual, 0)
				So(testutil.ToFloat64(m.schedulerRuns.WithLabelValues("idle")), ShouldEqual, 1)
			})
		})
	})
}

func TestNilManager(t *testing.T) {
	Convey("Given a nil manager", t, func() {
		var m *Manager

		Convey("Then recording is a no-op", func() {
			So(func() {
				m.RecordHTTPRequest("/", "GET", 200, time.Millisecond)
				m.RecordNotification("email", "sent")
				m.RecordImport("vcard", 1)
				m.RecordSchedulerRun("sent")
				m.RecordFeedRebuild(1, 1, time.Millisecond)
			}, ShouldNotPanic)
		})
	})
}

func TestHandler(t *testing.T) {
	Convey("Given a manager with one observation", t, func() {
		m := NewManager()
		m.RecordImport("vcard", 4)

		Convey("When the handler is scraped", func() {
			rec := httptest.NewRecorder()
			m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
			body, _ := io.ReadAll(rec.Body)

			Convey("Then the exposition contains the series", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(strings.Contains(string(body), `birthday_manager_imported_contacts_total{format="vcard"} 4`), ShouldBeTrue)
				// Private registry: no Go runtime collectors.
				So(strings.Contains(string(body), "go_goroutines"), ShouldBeFalse)
			})
		})
	})
}
