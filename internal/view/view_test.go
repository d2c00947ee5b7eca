package view

import (
	"errors"
	"testing"
	"time"

	"github.com/sdko-org/uptime-dashboard/internal/models"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDeriveStatus(t *testing.T) {
	Convey("Given statistics with various uptimes", t, func() {
		at := func(v float64) *models.Statistics {
			return &models.Statistics{UptimePercentage: models.Float(v)}
		}

		So(DeriveStatus(at(100)), ShouldEqual, StatusOnline)
		So(DeriveStatus(at(99)), ShouldEqual, StatusOnline)
		So(DeriveStatus(at(98.9)), ShouldEqual, StatusWarning)
		So(DeriveStatus(at(95)), ShouldEqual, StatusWarning)
		So(DeriveStatus(at(94.99)), ShouldEqual, StatusOffline)
		So(DeriveStatus(&models.Statistics{}), ShouldEqual, StatusUnknown)
		So(DeriveStatus(nil), ShouldEqual, StatusUnknown)

		Convey("And a paused endpoint is unknown regardless of uptime", func() {
			So(EndpointStatus(models.Endpoint{IsActive: false}, at(100)), ShouldEqual, StatusUnknown)
			So(EndpointStatus(models.Endpoint{IsActive: true}, at(100)), ShouldEqual, StatusOnline)
		})
	})
}

func TestFormatting(t *testing.T) {
	Convey("Given statistics with some fields absent", t, func() {
		stats := &models.Statistics{
			TotalChecks:         models.Int64(120),
			UptimePercentage:    models.Float(0),
			AverageResponseTime: models.Float(182.4),
		}
		stats.Normalize()

		Convey("Then each field falls back to No data on its own", func() {
			s := Summarize(stats)
			So(s.TotalChecks, ShouldEqual, "120")
			So(s.Uptime, ShouldEqual, NoData)
			So(s.AvgResponse, ShouldEqual, "182 ms")
			So(s.Errors, ShouldEqual, NoData)
			So(s.Status, ShouldEqual, StatusUnknown)
			So(s.HasAnyFigure, ShouldBeTrue)
		})

		Convey("Then the helpers report presence", func() {
			text, ok := Percent(models.Float(99.456))
			So(text, ShouldEqual, "99.46%")
			So(ok, ShouldBeTrue)
			_, ok = Count(nil)
			So(ok, ShouldBeFalse)
		})
	})
}

func TestPaginate(t *testing.T) {
	Convey("Given 25 items at 10 per page", t, func() {
		p := Paginate(25, 3, 10)

		So(p.Pages, ShouldEqual, 3)
		So(p.From, ShouldEqual, 21)
		So(p.To, ShouldEqual, 25)
		So(p.HasNext, ShouldBeFalse)
		So(p.HasPrev, ShouldBeTrue)

		Convey("When the page is out of bounds it is clamped", func() {
			So(Paginate(25, 9, 10).Page, ShouldEqual, 3)
			So(Paginate(25, -1, 10).Page, ShouldEqual, 1)
		})

		Convey("When the list is empty", func() {
			e := Paginate(0, 1, 10)
			So(e.Pages, ShouldEqual, 1)
			So(e.From, ShouldEqual, 0)
			So(e.HasNext, ShouldBeFalse)
		})

		Convey("When the limit is unreasonable it is normalised", func() {
			So(Paginate(5, 1, 0).Limit, ShouldEqual, DefaultPageSize)
			So(Paginate(5, 1, 1000).Limit, ShouldEqual, MaxPageSize)
		})
	})
}

func TestRanges(t *testing.T) {
	now := time.Date(2024, 3, 10, 15, 30, 0, 0, time.UTC)

	Convey("Given range presets", t, func() {
		r, err := RangePreset("7d", now)
		So(err, ShouldBeNil)
		So(r.End.Equal(now), ShouldBeTrue)
		So(r.Start.Equal(now.Add(-7*24*time.Hour)), ShouldBeTrue)

		_, err = RangePreset("1y", now)
		So(errors.Is(err, ErrUnknownPreset), ShouldBeTrue)
	})

	Convey("Given explicit dates", t, func() {
		r, err := ParseRange("2024-01-01", "2024-01-07")

		Convey("Then the end date is inclusive", func() {
			So(err, ShouldBeNil)
			So(r.Start.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)), ShouldBeTrue)
			So(r.End.Equal(time.Date(2024, 1, 7, 23, 59, 59, 0, time.UTC)), ShouldBeTrue)
		})

		Convey("Then timestamps are accepted too", func() {
			r, err := ParseRange("2024-01-01T10:00:00Z", "2024-01-01T12:00:00+02:00")
			So(err, ShouldBeNil)
			So(r.End.Equal(time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)), ShouldBeTrue)
		})

		Convey("Then inverted and oversized ranges are rejected", func() {
			_, err := ParseRange("2024-02-01", "2024-01-01")
			So(errors.Is(err, models.ErrInvalidRange), ShouldBeTrue)
			_, err = ParseRange("2024-01-01", "2024-06-01")
			So(errors.Is(err, ErrRangeTooLong), ShouldBeTrue)
			_, err = ParseRange("yesterday", "2024-01-01")
			So(err, ShouldNotBeNil)
		})

		Convey("Then ResolveRange defaults to the last day", func() {
			r, err := ResolveRange("", "", "", now)
			So(err, ShouldBeNil)
			So(r.End.Sub(r.Start), ShouldEqual, 24*time.Hour)
		})
	})
}

func TestExportFilename(t *testing.T) {
	Convey("Given an endpoint and a range", t, func() {
		r := models.TimeRange{
			Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2024, 1, 7, 23, 59, 59, 0, time.UTC),
		}

		So(ExportFilename(models.Endpoint{URL: "https://API.example.com:8443/health?x=1"}, r), ShouldEqual,
			"logs-api.example.com-8443-2024-01-01-to-2024-01-07.csv")
		So(ExportFilename(models.Endpoint{URL: "not a url"}, r), ShouldEqual,
			"logs-not-a-url-2024-01-01-to-2024-01-07.csv")
		So(ExportFilename(models.Endpoint{}, r), ShouldEqual,
			"logs-endpoint-2024-01-01-to-2024-01-07.csv")
	})
}

func TestValidation(t *testing.T) {
	Convey("Given form input", t, func() {
		field := func(err error) string {
			var v *ValidationError
			if errors.As(err, &v) {
				return v.Field
			}
			return ""
		}

		So(ValidateLogin("ops@example.com", "x"), ShouldBeNil)
		So(field(ValidateLogin("", "x")), ShouldEqual, "email")
		So(field(ValidateLogin("not-an-email", "x")), ShouldEqual, "email")
		So(field(ValidateLogin("ops@example.com", "")), ShouldEqual, "password")

		So(ValidateSignup("ops@example.com", "longenough", "longenough"), ShouldBeNil)
		So(field(ValidateSignup("ops@example.com", "short", "short")), ShouldEqual, "password")
		So(field(ValidateSignup("ops@example.com", "longenough", "different")), ShouldEqual, "confirmPassword")

		So(ValidateEndpointURL("https://example.com/health"), ShouldBeNil)
		So(field(ValidateEndpointURL("ftp://example.com")), ShouldEqual, "url")
		So(field(ValidateEndpointURL("/relative")), ShouldEqual, "url")
		So(field(ValidateCode(" ")), ShouldEqual, "code")
	})
}
