package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func scrape(m *Manager) string {
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	return string(body)
}

func TestManager(t *testing.T) {
	Convey("Given a metrics manager with its own registry", t, func() {
		m := NewManager(WithNamespace("test"), WithHistogramBuckets([]float64{0.1, 1}))

		Convey("When API requests are recorded", func() {
			m.RecordAPIRequest("GET", "/endpoints", 200, 20*time.Millisecond)
			m.RecordAPIRequest("GET", "/endpoints", 200, 30*time.Millisecond)
			m.RecordAPIRequest("GET", "/endpoints", 0, time.Millisecond)
			m.RecordAuthReplay()
			m.RecordAuthExpired()
			body := scrape(m)

			Convey("Then the counters reflect them", func() {
				So(body, ShouldContainSubstring, `test_dashboard_api_requests_total{method="GET",route="/endpoints",status="200"} 2`)
				So(body, ShouldContainSubstring, `test_dashboard_api_requests_total{method="GET",route="/endpoints",status="error"} 1`)
				So(body, ShouldContainSubstring, "test_dashboard_api_auth_replays_total 1")
				So(body, ShouldContainSubstring, "test_dashboard_api_auth_expirations_total 1")
			})
		})

		Convey("When the session state changes", func() {
			m.SetSessionState("anonymous", "loading", "authenticated", "anonymous")
			body := scrape(m)

			So(body, ShouldContainSubstring, `test_dashboard_session_state{state="anonymous"} 1`)
			So(body, ShouldContainSubstring, `test_dashboard_session_state{state="authenticated"} 0`)
		})

		Convey("When archive activity is recorded", func() {
			m.RecordArchiveLookup(true)
			m.RecordArchivesPurged(3)
			m.RecordArchivesPurged(0)
			body := scrape(m)

			So(body, ShouldContainSubstring, `test_dashboard_export_archive_lookups_total{result="hit"} 1`)
			So(body, ShouldContainSubstring, "test_dashboard_export_archives_purged_total 3")
		})
	})

	Convey("Given a nil manager", t, func() {
		var m *Manager

		So(func() {
			m.RecordAPIRequest("GET", "/x", 200, time.Second)
			m.RecordHTTPRequest("/x", "GET", 200, time.Second)
			m.RecordRateLimited()
			m.RecordArchiveLookup(false)
		}, ShouldNotPanic)
	})
}
