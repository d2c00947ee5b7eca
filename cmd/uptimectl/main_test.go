package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"testing"

	"github.com/sdko-org/uptime-dashboard/internal/identity"
	"github.com/sdko-org/uptime-dashboard/internal/models"
	"github.com/sdko-org/uptime-dashboard/internal/monitorapi"
	"github.com/sdko-org/uptime-dashboard/internal/session"
	"github.com/sdko-org/uptime-dashboard/internal/view"
	. "github.com/smartystreets/goconvey/convey"
)

func TestParseInterleaved(t *testing.T) {
	Convey("Given a flag set with an output flag", t, func() {
		fs := flag.NewFlagSet("endpoints get", flag.ContinueOnError)
		fs.SetOutput(io.Discard)
		output := fs.String("o", "table", "")

		Convey("When the id comes before the flags", func() {
			positional, err := parseInterleaved(fs, []string{"ep-1", "-o", "json"})

			So(err, ShouldBeNil)
			So(positional, ShouldResemble, []string{"ep-1"})
			So(*output, ShouldEqual, "json")
		})

		Convey("When positionals and flags alternate", func() {
			positional, err := parseInterleaved(fs, []string{"a", "-o", "yaml", "b"})

			So(err, ShouldBeNil)
			So(positional, ShouldResemble, []string{"a", "b"})
			So(*output, ShouldEqual, "yaml")
		})

		Convey("When an unknown flag is given", func() {
			_, err := parseInterleaved(fs, []string{"--bogus"})

			So(errors.Is(err, errUsage), ShouldBeTrue)
			So(exitCode(err), ShouldEqual, exitUsage)
		})

		Convey("When help is requested", func() {
			_, err := parseInterleaved(fs, []string{"-h"})

			So(errors.Is(err, flag.ErrHelp), ShouldBeTrue)
			So(exitCode(err), ShouldEqual, exitOK)
		})

		Convey("When an id is required", func() {
			_, err := exactlyOne(fs, nil, "endpoint id")
			So(errors.Is(err, errUsage), ShouldBeTrue)

			id, err := exactlyOne(fs, []string{"ep-9"}, "endpoint id")
			So(err, ShouldBeNil)
			So(id, ShouldEqual, "ep-9")
		})
	})
}

func TestEndpointFlags(t *testing.T) {
	Convey("Given the endpoint flags", t, func() {
		fs := flag.NewFlagSet("endpoints update", flag.ContinueOnError)
		flags := addEndpointFlags(fs)

		Convey("When only some flags are set", func() {
			So(fs.Parse([]string{"--name", "Billing", "--tags", "prod, api,", "--interval", "60"}), ShouldBeNil)
			in := flags.input()

			Convey("Then only those fields are sent", func() {
				So(in.URL, ShouldBeNil)
				So(*in.Name, ShouldEqual, "Billing")
				So(in.Tags, ShouldResemble, []string{"prod", "api"})
				So(*in.CheckInterval, ShouldEqual, 60)
				So(in.IsActive, ShouldBeNil)
			})
		})

		Convey("When tags are explicitly cleared", func() {
			So(fs.Parse([]string{"--tags", ""}), ShouldBeNil)
			in := flags.input()

			So(in.Tags, ShouldNotBeNil)
			So(in.Tags, ShouldBeEmpty)
		})
	})
}

func TestExitCodes(t *testing.T) {
	Convey("Given command errors", t, func() {
		expired := fmt.Errorf("list: %w", &monitorapi.AuthorizationExpiredError{Method: "GET", Path: "/endpoints"})

		So(exitCode(nil), ShouldEqual, exitOK)
		So(exitCode(expired), ShouldEqual, exitAuth)
		So(exitCode(session.ErrUnauthenticated), ShouldEqual, exitAuth)
		So(exitCode(usagef("bad")), ShouldEqual, exitUsage)
		So(exitCode(errors.New("boom")), ShouldEqual, exitFailure)

		So(errorMessage(expired), ShouldContainSubstring, "uptimectl login")
		So(errorMessage(&identity.AuthError{Kind: identity.KindInvalidCredentials, Op: "login"}),
			ShouldEqual, "Incorrect username or password")
		So(errorMessage(&monitorapi.ServerError{StatusCode: 404, Body: []byte(`{"message":"Endpoint not found"}`)}),
			ShouldEqual, "Endpoint not found (HTTP 404)")
	})
}

func TestRender(t *testing.T) {
	Convey("Given an endpoint page", t, func() {
		eps := []models.Endpoint{
			{ID: "ep-1", URL: "https://a.example.com", IsActive: true, CheckInterval: 60, Tags: []string{"prod"}},
			{ID: "ep-2", Name: "B", URL: "https://b.example.com"},
		}
		list := endpointList{Data: eps, Pagination: view.Paginate(2, 1, 10)}
		printTable := func(tb *table) { printEndpoints(tb, list.Data, list.Pagination) }
		var buf bytes.Buffer

		Convey("When rendered as a table", func() {
			So(render(&buf, "table", list, printTable), ShouldBeNil)

			So(buf.String(), ShouldContainSubstring, "ID    NAME")
			So(buf.String(), ShouldContainSubstring, "paused")
			So(buf.String(), ShouldContainSubstring, "Showing 1-2 of 2, page 1/1")
		})

		Convey("When rendered as JSON", func() {
			So(render(&buf, "json", list, printTable), ShouldBeNil)

			So(buf.String(), ShouldContainSubstring, `"endpoint_id": "ep-1"`)
			So(buf.String(), ShouldContainSubstring, `"pages": 1`)
		})

		Convey("When rendered as YAML", func() {
			So(render(&buf, "YML", list, printTable), ShouldBeNil)

			So(buf.String(), ShouldContainSubstring, "endpoint_id: ep-1")
			So(buf.String(), ShouldContainSubstring, "has_next: false")
		})

		Convey("When the format is unknown", func() {
			err := render(&buf, "xml", list, printTable)

			So(errors.Is(err, errUsage), ShouldBeTrue)
			So(buf.Len(), ShouldEqual, 0)
		})
	})

	Convey("Given statistics without data", t, func() {
		var buf bytes.Buffer
		summary := view.Summarize(&models.Statistics{})
		So(render(&buf, "", summary, func(tb *table) {
			printStats(tb, "", models.TimeRange{}, summary)
		}), ShouldBeNil)

		So(buf.String(), ShouldContainSubstring, "all endpoints")
		So(buf.String(), ShouldContainSubstring, "No data")
		So(buf.String(), ShouldContainSubstring, "unknown")
	})
}
