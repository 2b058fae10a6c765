package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/pavohq/folio/internal/store"
	"github.com/pavohq/folio/internal/store/drivers/memory"
	"github.com/pavohq/folio/internal/store/drivers/sqlite"
	"github.com/pavohq/folio/pkg/authsdk"
	"github.com/pavohq/folio/pkg/camx"
	"github.com/pavohq/folio/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application wires the session store, auth client and camera together behind
// the folio CLI commands.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db       store.Store
	sessions *store.FallbackSessions
	client   *authsdk.Client

	in  *bufio.Reader
	out io.Writer
}

// New creates an Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			App:     "folio",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
		in:  bufio.NewReader(os.Stdin),
		out: os.Stdout,
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	app.initClient()

	return app, nil
}

// initDatabase opens the durable session database and applies migrations.
// Durable writes that fail later degrade to an in-memory store rather than
// killing the session.
func (app *Application) initDatabase() error {
	db, err := sqlite.NewStore("file:"+app.cfg.DatabaseFile, app.cfg.CacheTTL)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.sessions = store.NewFallbackSessions(
		db.Sessions(),
		memory.NewStore(app.cfg.CacheTTL).Sessions(),
		app.logger,
	)
	return nil
}

func (app *Application) initClient() {
	app.client = authsdk.NewClient(app.cfg.APIURL,
		authsdk.WithSessionStore(app.sessions),
		authsdk.WithRequestCache(app.db.Cache()),
		authsdk.WithHTTPClient(&http.Client{Timeout: app.cfg.HTTPTimeout}),
		authsdk.WithLogger(app.logger),
		authsdk.WithSubmissionLimit(app.cfg.LoginRate, app.cfg.LoginWindow),
	)
}

// Run executes one CLI command and returns.
func (app *Application) Run(args []string) error {
	if len(args) == 0 {
		app.usage()
		return fmt.Errorf("no command given")
	}

	ctx := slogx.WithContext(context.Background(), app.logger)

	// Revive a persisted session first so authenticated commands work
	// without a fresh login.
	if _, err := app.client.RestoreSession(ctx); err != nil {
		app.logger.Warn("session restore failed", "error", err)
	}

	switch cmd, rest := args[0], args[1:]; cmd {
	case "register":
		return app.cmdRegister(ctx, rest)
	case "login":
		return app.cmdLogin(ctx, rest)
	case "face-login":
		return app.cmdFaceLogin(ctx, rest)
	case "face-enroll":
		return app.cmdFaceEnroll(ctx, rest)
	case "setup-2fa":
		return app.cmdSetupTwoFactor(ctx, rest)
	case "disable-2fa":
		return app.cmdDisableTwoFactor(ctx, rest)
	case "whoami":
		return app.cmdWhoami(ctx, rest)
	case "update-profile":
		return app.cmdUpdateProfile(ctx, rest)
	case "logout":
		return app.cmdLogout(ctx, rest)
	default:
		app.usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// Close releases the database connection.
func (app *Application) Close() error {
	if app.db == nil {
		return nil
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}
	return nil
}

func (app *Application) usage() {
	fmt.Fprintln(app.out, `usage: folio <command> [flags]

commands:
  register        create a new account
  login           sign in with email and password
  face-login      sign in with a facial biometric
  face-enroll     register a facial biometric for the signed-in account
  setup-2fa       start TOTP two-factor enrollment
  disable-2fa     turn two-factor authentication off
  whoami          show the signed-in account
  update-profile  change account details
  logout          sign out and clear the local session`)
}

func (app *Application) cameraConstraints() camx.Constraints {
	return camx.Constraints{
		FacingMode: app.cfg.CameraFacing,
		Width:      app.cfg.CameraWidth,
		Height:     app.cfg.CameraHeight,
	}
}

// prompt reads one line of input from the user.
func (app *Application) prompt(label string) (string, error) {
	fmt.Fprint(app.out, label)
	line, err := app.in.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return trimNewline(line), nil
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
