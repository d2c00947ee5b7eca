package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sdko-org/uptime-dashboard/internal/config"
	"github.com/sdko-org/uptime-dashboard/internal/identity"
	"github.com/sdko-org/uptime-dashboard/internal/logging"
	"github.com/sdko-org/uptime-dashboard/internal/monitorapi"
	"github.com/sdko-org/uptime-dashboard/internal/session"
	"github.com/sirupsen/logrus"
)

const usage = `uptimectl - manage monitored endpoints from the terminal

Usage:
  uptimectl login --email <email> [--password <password>]
  uptimectl signup --email <email> [--password <password>] [--first-name <n>] [--last-name <n>]
  uptimectl confirm --username <username> --code <code>
  uptimectl resend --username <username>
  uptimectl forgot-password --email <email>
  uptimectl reset-password --email <email> --code <code> [--new-password <password>]
  uptimectl logout
  uptimectl whoami
  uptimectl endpoints list [--page N] [--limit N] [--search text] [--tags a,b]
  uptimectl endpoints get <id>
  uptimectl endpoints add --url <url> [--name n] [--tags a,b] [--interval s]
  uptimectl endpoints update <id> [--url u] [--name n] [--tags a,b] [--interval s]
  uptimectl endpoints enable|disable|delete <id>
  uptimectl logs <id> [--limit N] [--next-token t] [--range 24h|7d|30d] [--start d --end d]
  uptimectl stats [<id>] [--range 24h|7d|30d] [--start d --end d]
  uptimectl export <id> [--range 24h|7d|30d] [--start d --end d] [--out file]

Every command accepts -o table|json|yaml. Passwords default to $UPTIME_PASSWORD.
Configuration is read from the file named by $UPTIME_CONFIG and UPTIME_* variables.
`

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
	exitAuth    = 3
)

var errUsage = errors.New("usage")

type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }
func (e *usageError) Is(target error) bool {
	return target == errUsage
}

func usagef(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

type app struct {
	ctx      context.Context
	cfg      *config.Config
	log      *logrus.Logger
	out      io.Writer
	errOut   io.Writer
	sessions *session.Manager
	client   *monitorapi.Client
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(exitUsage)
	}
	switch os.Args[1] {
	case "-h", "--help", "help":
		fmt.Print(usage)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	a, err := newApp(ctx, os.Stdout, os.Stderr)
	if err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(exitFailure)
	}

	err = a.run(os.Args[1], os.Args[2:])
	stop()
	if err != nil && !errors.Is(err, flag.ErrHelp) {
		fmt.Fprintf(os.Stderr, "error: %s\n", errorMessage(err))
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, "\n"+usage)
		}
	}
	os.Exit(exitCode(err))
}

func newApp(ctx context.Context, out, errOut io.Writer) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	level := cfg.LogLevel
	if os.Getenv("UPTIME_LOG_LEVEL") == "" {
		level = "warn"
	}
	logger := logging.NewWithOutput(errOut, level, cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	provider, err := identity.NewCognito(logger, cfg)
	if err != nil {
		return nil, err
	}
	sessions := session.NewManager(logger, provider, session.NewFileStore(cfg.SessionFile))
	sessions.Restore(ctx)

	client, err := monitorapi.NewClient(logger, cfg.APIBaseURL, sessions,
		monitorapi.WithTimeout(cfg.APITimeout),
		monitorapi.WithRateLimit(cfg.APIRateLimit),
		monitorapi.WithOnExpired(sessions.Expire),
		monitorapi.WithUserAgent("uptimectl/1.0"),
	)
	if err != nil {
		return nil, err
	}

	return &app{
		ctx:      ctx,
		cfg:      cfg,
		log:      logger,
		out:      out,
		errOut:   errOut,
		sessions: sessions,
		client:   client,
	}, nil
}

func (a *app) run(cmd string, args []string) error {
	switch cmd {
	case "login":
		return a.login(args)
	case "signup":
		return a.signup(args)
	case "confirm":
		return a.confirm(args)
	case "resend":
		return a.resend(args)
	case "forgot-password":
		return a.forgotPassword(args)
	case "reset-password":
		return a.resetPassword(args)
	case "logout":
		return a.logout(args)
	case "whoami":
		return a.whoami(args)
	case "endpoints":
		return a.endpoints(args)
	case "logs":
		return a.logs(args)
	case "stats":
		return a.stats(args)
	case "export":
		return a.export(args)
	}
	return usagef("unknown command %q", cmd)
}

func exitCode(err error) int {
	switch {
	case err == nil, errors.Is(err, flag.ErrHelp):
		return exitOK
	case errors.Is(err, errUsage):
		return exitUsage
	case monitorapi.IsAuthorizationExpired(err), errors.Is(err, session.ErrUnauthenticated):
		return exitAuth
	}
	return exitFailure
}

// errorMessage is the operator-facing text for err.
func errorMessage(err error) string {
	var (
		authErr   *identity.AuthError
		serverErr *monitorapi.ServerError
	)
	switch {
	case monitorapi.IsAuthorizationExpired(err):
		return "your session has expired, run `uptimectl login` again"
	case errors.Is(err, session.ErrUnauthenticated):
		return "not signed in, run `uptimectl login` first"
	case errors.As(err, &authErr):
		return authErr.Message()
	case errors.As(err, &serverErr):
		return fmt.Sprintf("%s (HTTP %d)", serverErr.Message(), serverErr.StatusCode)
	}
	return err.Error()
}
