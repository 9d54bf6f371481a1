// agentctl is a terminal client for the AgentDesk API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/ashureev/agentdesk/internal/credentials"
	"github.com/ashureev/agentdesk/internal/remote"
	"github.com/ashureev/agentdesk/internal/view"
	"github.com/joho/godotenv"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// app carries what every command needs.
type app struct {
	stdout  io.Writer
	stderr  io.Writer
	format  string
	store   *credentials.SQLiteStore
	session *remote.Session
	toasts  *toasts
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("agentctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	apiURL := fs.String("api", envOr("AGENTDESK_API_URL", os.Getenv("API_URL")), "API base URL")
	dbPath := fs.String("db", envOr("AGENTDESK_CREDENTIALS_DB", defaultDBPath()), "Credential database")
	profile := fs.String("profile", credentials.DefaultProfile, "Credential profile")
	format := fs.String("format", "", "Output format: table, json or quiet (default depends on the terminal)")
	timeout := fs.Duration("timeout", 30*time.Second, "Request timeout, 0 for none")
	verbose := fs.Bool("v", false, "Log requests to stderr")
	fs.Usage = func() { usage(stderr, fs) }
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		usage(stderr, fs)
		return errors.New("missing command")
	}

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	if cmd == "version" {
		_, err := fmt.Fprintln(stdout, "agentctl", version)
		return err
	}
	if *apiURL == "" {
		return errors.New("API URL is not set (use -api or AGENTDESK_API_URL)")
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	store, err := credentials.NewSQLite(*dbPath, *profile)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("failed to close credential database", "error", err)
		}
	}()

	client := remote.New(remote.Config{BaseURL: *apiURL, Timeout: *timeout, Logger: logger})
	a := &app{
		stdout:  stdout,
		stderr:  stderr,
		format:  *format,
		store:   store,
		session: client.Session(store),
		toasts:  &toasts{w: stderr, quiet: *format == formatQuiet},
	}

	handler, ok := commands[cmd]
	if !ok {
		usage(stderr, fs)
		return fmt.Errorf("unknown command %q", cmd)
	}
	return describe(a, handler(ctx, a, rest))
}

// describe turns a command error into the text shown to the user. Auth
// failures forget the stored credentials.
func describe(a *app, err error) error {
	switch {
	case err == nil:
		return nil
	case remote.IsAuthFailure(err):
		a.store.Clear()
		return fmt.Errorf("%s Run \"agentctl login\".", remote.Message(err))
	case errors.Is(err, view.ErrNotLoggedIn):
		return fmt.Errorf("%s Run \"agentctl login\".", view.Message(err))
	}
	if t, ok := a.toasts.failure(); ok {
		if t.Description == "" {
			return errors.New(t.Title)
		}
		return fmt.Errorf("%s: %s", t.Title, t.Description)
	}
	if remote.Kind(err) != "unknown" {
		return errors.New(remote.Message(err))
	}
	return err
}

type command func(ctx context.Context, a *app, args []string) error

var commands map[string]command

func init() {
	commands = map[string]command{
		"login":      cmdLogin,
		"logout":     cmdLogout,
		"refresh":    cmdRefresh,
		"whoami":     cmdWhoAmI,
		"agents":     cmdAgents,
		"purchased":  cmdPurchased,
		"purchase":   cmdPurchase,
		"queries":    cmdQueries,
		"query-add":  cmdQueryAdd,
		"query-edit": cmdQueryEdit,
		"query-rm":   cmdQueryRemove,
		"upload":     cmdUpload,
		"companies":  cmdCompanies,
	}
}

func usage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintln(w, "usage: agentctl [flags] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "commands:")
	fmt.Fprintln(w, "  login -email e [-password p]           log in and store credentials")
	fmt.Fprintln(w, "  logout                                 revoke and forget credentials")
	fmt.Fprintln(w, "  refresh                                exchange the refresh token for a new pair")
	fmt.Fprintln(w, "  whoami                                 show the stored identity")
	fmt.Fprintln(w, "  agents                                 list purchasable agents")
	fmt.Fprintln(w, "  purchased                              list agents owned by your company")
	fmt.Fprintln(w, "  purchase <agent> [-plan p] [-period d] buy an agent")
	fmt.Fprintln(w, "           [-guest -company id]          ...without logging in")
	fmt.Fprintln(w, "  queries <purchased>                    list support queries")
	fmt.Fprintln(w, "  query-add <purchased> [-agent a] text  add a support query")
	fmt.Fprintln(w, "  query-edit <purchased> <query> text    change a support query")
	fmt.Fprintln(w, "  query-rm <purchased> <query>           delete a support query")
	fmt.Fprintln(w, "  upload <file.pdf> -consent             upload a training document")
	fmt.Fprintln(w, "  companies                              list companies")
	fmt.Fprintln(w, "  version                                print the version")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "flags:")
	fs.PrintDefaults()
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// defaultDBPath is $XDG_CONFIG_HOME/agentdesk/credentials.db or the
// platform equivalent.
func defaultDBPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "agentdesk", "credentials.db")
}
