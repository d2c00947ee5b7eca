package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sdko-org/uptime-dashboard/internal/models"
	"github.com/sdko-org/uptime-dashboard/internal/monitorapi"
	"github.com/sdko-org/uptime-dashboard/internal/session"
	"github.com/sdko-org/uptime-dashboard/internal/view"
)

const passwordEnv = "UPTIME_PASSWORD"

func (a *app) flagSet(name string) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	output := fs.String("o", string(formatTable), "output format: table, json or yaml")
	return fs, output
}

// parseInterleaved parses fs and collects positional arguments, which may
// appear before, between or after flags.
func parseInterleaved(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			if errors.Is(err, flag.ErrHelp) {
				return nil, err
			}
			return nil, usagef("%s: %v", fs.Name(), err)
		}
		if fs.NArg() == 0 {
			return positional, nil
		}
		positional = append(positional, fs.Arg(0))
		args = fs.Args()[1:]
	}
}

func exactlyOne(fs *flag.FlagSet, positional []string, what string) (string, error) {
	if len(positional) != 1 || strings.TrimSpace(positional[0]) == "" {
		return "", usagef("%s requires exactly one %s", fs.Name(), what)
	}
	return positional[0], nil
}

func splitTags(raw string) []string {
	var tags []string
	for _, tag := range strings.Split(raw, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

func passwordOr(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv(passwordEnv)
}

type rangeFlags struct {
	preset *string
	start  *string
	end    *string
}

func addRangeFlags(fs *flag.FlagSet) rangeFlags {
	return rangeFlags{
		preset: fs.String("range", "", "preset window: 24h, 7d or 30d"),
		start:  fs.String("start", "", "range start, YYYY-MM-DD or RFC 3339"),
		end:    fs.String("end", "", "range end, YYYY-MM-DD or RFC 3339"),
	}
}

func (r rangeFlags) set() bool {
	return *r.preset != "" || *r.start != "" || *r.end != ""
}

func (r rangeFlags) resolve(now time.Time) (models.TimeRange, error) {
	rng, err := view.ResolveRange(*r.preset, *r.start, *r.end, now)
	if err != nil {
		return models.TimeRange{}, usagef("range: %v", err)
	}
	return rng, nil
}

func (a *app) login(args []string) error {
	fs, output := a.flagSet("login")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	if _, err := parseInterleaved(fs, args); err != nil {
		return err
	}
	secret := passwordOr(*password)
	if err := view.ValidateLogin(*email, secret); err != nil {
		return usagef("%v", err)
	}

	if _, err := a.sessions.Login(a.ctx, *email, secret); err != nil {
		return err
	}
	return a.render(*output, a.sessions.Status(), func(t *table) {
		printStatus(t, a.sessions.Status())
	})
}

func (a *app) signup(args []string) error {
	fs, output := a.flagSet("signup")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	first := fs.String("first-name", "", "given name")
	last := fs.String("last-name", "", "family name")
	if _, err := parseInterleaved(fs, args); err != nil {
		return err
	}
	secret := passwordOr(*password)
	if err := view.ValidateSignup(*email, secret, secret); err != nil {
		return usagef("%v", err)
	}

	res, err := a.sessions.Signup(a.ctx, *email, secret, session.Profile{GivenName: *first, FamilyName: *last})
	if err != nil {
		return err
	}
	return a.render(*output, res, func(t *table) {
		t.row("USERNAME", res.Username)
		t.row("CONFIRMED", fmt.Sprint(res.Confirmed))
		if res.CodeDestination != "" {
			t.row("CODE SENT TO", res.CodeDestination)
		}
		if !res.Confirmed {
			t.row("NEXT", "uptimectl confirm --username "+res.Username+" --code <code>")
		}
	})
}

func (a *app) confirm(args []string) error {
	fs, _ := a.flagSet("confirm")
	username := fs.String("username", "", "username returned by signup")
	code := fs.String("code", "", "verification code")
	if _, err := parseInterleaved(fs, args); err != nil {
		return err
	}
	if strings.TrimSpace(*username) == "" {
		return usagef("confirm requires --username")
	}
	if err := view.ValidateCode(*code); err != nil {
		return usagef("%v", err)
	}

	if err := a.sessions.ConfirmSignup(a.ctx, *username, *code); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Account confirmed. You can now log in.")
	return nil
}

func (a *app) resend(args []string) error {
	fs, _ := a.flagSet("resend")
	username := fs.String("username", "", "username returned by signup")
	if _, err := parseInterleaved(fs, args); err != nil {
		return err
	}
	if strings.TrimSpace(*username) == "" {
		return usagef("resend requires --username")
	}

	dest, err := a.sessions.ResendConfirmationCode(a.ctx, *username)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Verification code sent to %s\n", dest)
	return nil
}

func (a *app) forgotPassword(args []string) error {
	fs, _ := a.flagSet("forgot-password")
	email := fs.String("email", "", "account email")
	if _, err := parseInterleaved(fs, args); err != nil {
		return err
	}
	if err := view.ValidateEmail(*email); err != nil {
		return usagef("%v", err)
	}

	dest, err := a.sessions.ForgotPassword(a.ctx, *email)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Reset code sent to %s\n", dest)
	return nil
}

func (a *app) resetPassword(args []string) error {
	fs, _ := a.flagSet("reset-password")
	email := fs.String("email", "", "account email")
	code := fs.String("code", "", "reset code")
	password := fs.String("new-password", "", "new password")
	if _, err := parseInterleaved(fs, args); err != nil {
		return err
	}
	secret := passwordOr(*password)
	for _, err := range []error{view.ValidateEmail(*email), view.ValidateCode(*code), view.ValidatePassword(secret)} {
		if err != nil {
			return usagef("%v", err)
		}
	}

	if err := a.sessions.ResetPassword(a.ctx, *email, *code, secret); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Password updated. You can now log in.")
	return nil
}

func (a *app) logout(args []string) error {
	fs, _ := a.flagSet("logout")
	if _, err := parseInterleaved(fs, args); err != nil {
		return err
	}
	a.sessions.Logout(a.ctx)
	fmt.Fprintln(a.out, "Logged out.")
	return nil
}

func (a *app) whoami(args []string) error {
	fs, output := a.flagSet("whoami")
	if _, err := parseInterleaved(fs, args); err != nil {
		return err
	}
	st := a.sessions.Status()
	if err := a.render(*output, st, func(t *table) { printStatus(t, st) }); err != nil {
		return err
	}
	if st.State != session.StateAuthenticated {
		return session.ErrUnauthenticated
	}
	return nil
}

func (a *app) endpoints(args []string) error {
	if len(args) == 0 {
		return usagef("endpoints subcommand required")
	}
	switch args[0] {
	case "list", "ls":
		return a.endpointsList(args[1:])
	case "get":
		return a.endpointsGet(args[1:])
	case "add", "create":
		return a.endpointsAdd(args[1:])
	case "update":
		return a.endpointsUpdate(args[1:])
	case "enable":
		return a.endpointsSetActive(args[1:], true)
	case "disable":
		return a.endpointsSetActive(args[1:], false)
	case "delete", "rm":
		return a.endpointsDelete(args[1:])
	}
	return usagef("unknown endpoints subcommand %q", args[0])
}

func (a *app) endpointsList(args []string) error {
	fs, output := a.flagSet("endpoints list")
	page := fs.Int("page", 1, "page number")
	limit := fs.Int("limit", view.DefaultPageSize, "page size")
	search := fs.String("search", "", "filter by url or name")
	tags := fs.String("tags", "", "comma-separated tags; all must match")
	if _, err := parseInterleaved(fs, args); err != nil {
		return err
	}
	p, l := view.NormalizePage(*page, *limit)

	result, err := a.client.Endpoints.List(a.ctx, monitorapi.ListEndpointsParams{
		Page:   p,
		Limit:  l,
		Search: strings.TrimSpace(*search),
		Tags:   splitTags(*tags),
	})
	if err != nil {
		return err
	}
	pager := view.Paginate(result.Total, p, l)
	return a.render(*output, endpointList{Data: result.Data, Pagination: pager}, func(t *table) {
		printEndpoints(t, result.Data, pager)
	})
}

func (a *app) endpointsGet(args []string) error {
	fs, output := a.flagSet("endpoints get")
	positional, err := parseInterleaved(fs, args)
	if err != nil {
		return err
	}
	id, err := exactlyOne(fs, positional, "endpoint id")
	if err != nil {
		return err
	}

	ep, err := a.client.Endpoints.Get(a.ctx, id)
	if err != nil {
		return err
	}
	return a.render(*output, ep, func(t *table) { printEndpoint(t, *ep) })
}

type endpointFlags struct {
	fs             *flag.FlagSet
	url            *string
	name           *string
	description    *string
	tags           *string
	interval       *int
	expectedStatus *int
	notify         *string
}

func addEndpointFlags(fs *flag.FlagSet) endpointFlags {
	return endpointFlags{
		fs:             fs,
		url:            fs.String("url", "", "URL to check"),
		name:           fs.String("name", "", "display name"),
		description:    fs.String("description", "", "description"),
		tags:           fs.String("tags", "", "comma-separated tags"),
		interval:       fs.Int("interval", 0, "check interval in seconds"),
		expectedStatus: fs.Int("expected-status", 0, "expected HTTP status code"),
		notify:         fs.String("notify", "", "notification email"),
	}
}

// input builds the request body from the flags the operator actually set.
func (f endpointFlags) input() models.EndpointInput {
	var in models.EndpointInput
	f.fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "url":
			in.URL = models.String(strings.TrimSpace(*f.url))
		case "name":
			in.Name = models.String(*f.name)
		case "description":
			in.Description = models.String(*f.description)
		case "tags":
			in.Tags = splitTags(*f.tags)
			if in.Tags == nil {
				in.Tags = []string{}
			}
		case "interval":
			in.CheckInterval = models.Int(*f.interval)
		case "expected-status":
			in.ExpectedStatusCode = models.Int(*f.expectedStatus)
		case "notify":
			in.NotificationEmail = models.String(*f.notify)
		}
	})
	return in
}

func (a *app) endpointsAdd(args []string) error {
	fs, output := a.flagSet("endpoints add")
	flags := addEndpointFlags(fs)
	if _, err := parseInterleaved(fs, args); err != nil {
		return err
	}
	if err := view.ValidateEndpointURL(*flags.url); err != nil {
		return usagef("%v", err)
	}

	ep, err := a.client.Endpoints.Create(a.ctx, flags.input())
	if err != nil {
		return err
	}
	return a.render(*output, ep, func(t *table) { printEndpoint(t, *ep) })
}

func (a *app) endpointsUpdate(args []string) error {
	fs, output := a.flagSet("endpoints update")
	flags := addEndpointFlags(fs)
	positional, err := parseInterleaved(fs, args)
	if err != nil {
		return err
	}
	id, err := exactlyOne(fs, positional, "endpoint id")
	if err != nil {
		return err
	}
	in := flags.input()
	if in.URL != nil {
		if err := view.ValidateEndpointURL(*in.URL); err != nil {
			return usagef("%v", err)
		}
	}

	ep, err := a.client.Endpoints.Update(a.ctx, id, in)
	if err != nil {
		return err
	}
	return a.render(*output, ep, func(t *table) { printEndpoint(t, *ep) })
}

func (a *app) endpointsSetActive(args []string, active bool) error {
	name := "endpoints disable"
	if active {
		name = "endpoints enable"
	}
	fs, output := a.flagSet(name)
	positional, err := parseInterleaved(fs, args)
	if err != nil {
		return err
	}
	id, err := exactlyOne(fs, positional, "endpoint id")
	if err != nil {
		return err
	}

	ep, err := a.client.Endpoints.SetActive(a.ctx, id, active)
	if err != nil {
		return err
	}
	return a.render(*output, ep, func(t *table) { printEndpoint(t, *ep) })
}

func (a *app) endpointsDelete(args []string) error {
	fs, _ := a.flagSet("endpoints delete")
	positional, err := parseInterleaved(fs, args)
	if err != nil {
		return err
	}
	id, err := exactlyOne(fs, positional, "endpoint id")
	if err != nil {
		return err
	}

	if err := a.client.Endpoints.Delete(a.ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Endpoint %s deleted.\n", id)
	return nil
}

func (a *app) logs(args []string) error {
	fs, output := a.flagSet("logs")
	limit := fs.Int("limit", 20, "logs per page")
	next := fs.String("next-token", "", "continuation token from a previous page")
	rng := addRangeFlags(fs)
	positional, err := parseInterleaved(fs, args)
	if err != nil {
		return err
	}
	id, err := exactlyOne(fs, positional, "endpoint id")
	if err != nil {
		return err
	}
	params := monitorapi.ListLogsParams{Limit: *limit, NextToken: *next}

	var page *models.LogPage
	if rng.set() {
		r, err := rng.resolve(time.Now())
		if err != nil {
			return err
		}
		page, err = a.client.Logs.ListRange(a.ctx, id, r, params)
		if err != nil {
			return err
		}
	} else {
		if page, err = a.client.Logs.List(a.ctx, id, params); err != nil {
			return err
		}
	}
	return a.render(*output, page, func(t *table) { printLogs(t, page) })
}

func (a *app) stats(args []string) error {
	fs, output := a.flagSet("stats")
	rng := addRangeFlags(fs)
	positional, err := parseInterleaved(fs, args)
	if err != nil {
		return err
	}
	if len(positional) > 1 {
		return usagef("stats accepts at most one endpoint id")
	}
	var id string
	if len(positional) == 1 {
		id = positional[0]
	}
	r, err := rng.resolve(time.Now())
	if err != nil {
		return err
	}

	stats, err := a.client.Logs.Stats(a.ctx, monitorapi.StatsParams{EndpointID: id, Range: r})
	if err != nil {
		return err
	}
	summary := view.Summarize(stats)
	return a.render(*output, statsOutput{EndpointID: id, Range: r, Statistics: stats, Summary: summary}, func(t *table) {
		printStats(t, id, r, summary)
	})
}

func (a *app) export(args []string) error {
	fs, _ := a.flagSet("export")
	rng := addRangeFlags(fs)
	out := fs.String("out", "", "output file, - for stdout; defaults to a name derived from the endpoint")
	positional, err := parseInterleaved(fs, args)
	if err != nil {
		return err
	}
	id, err := exactlyOne(fs, positional, "endpoint id")
	if err != nil {
		return err
	}
	r, err := rng.resolve(time.Now())
	if err != nil {
		return err
	}

	path := *out
	if path == "" {
		ep, err := a.client.Endpoints.Get(a.ctx, id)
		if err != nil {
			return err
		}
		path = view.ExportFilename(*ep, r)
	}

	data, err := a.client.Logs.Export(a.ctx, id, r)
	if err != nil {
		return err
	}
	if path == "-" {
		_, err = a.out.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	fmt.Fprintf(a.out, "Wrote %d bytes to %s\n", len(data), path)
	return nil
}
