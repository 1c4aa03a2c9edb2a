// Package cli implements the famcal command line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/term"

	"famcal/internal/calendar"
	"famcal/internal/config"
	"famcal/internal/logging"
	"famcal/internal/store"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

type App struct {
	cfg *config.Config
	log logging.Logger
	out io.Writer

	manager *calendar.Manager
}

func NewApp(cfg *config.Config) *App {
	return &App{
		cfg: cfg,
		log: logging.New(os.Stderr, cfg.LogLevel),
		out: os.Stdout,
	}
}

const usage = `famcal manages an encrypted family calendar.

Usage:
  famcal <command> [flags]

Commands:
  add      add an event
  list     list events in a window
  get      show one event by id
  remove   remove an event (and its series occurrences)
  export   write events as iCalendar to stdout
  import   read events from an iCalendar file
  remind   run the reminder scheduler in the foreground
`

// Run dispatches args (without the program name) to a subcommand.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(a.out, usage)
		return nil
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "add":
		return a.runAdd(ctx, rest)
	case "list":
		return a.runList(ctx, rest)
	case "get":
		return a.runGet(ctx, rest)
	case "remove":
		return a.runRemove(ctx, rest)
	case "export":
		return a.runExport(ctx, rest)
	case "import":
		return a.runImport(ctx, rest)
	case "remind":
		return a.runRemind(ctx, rest)
	case "help", "-h", "--help":
		fmt.Fprint(a.out, usage)
		return nil
	default:
		fmt.Fprint(a.out, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// openManager unlocks the store and builds the calendar manager. The
// passphrase comes from the configured environment variable when set,
// otherwise from an interactive prompt.
func (a *App) openManager(ctx context.Context) (*calendar.Manager, error) {
	if a.manager != nil {
		return a.manager, nil
	}

	passphrase := []byte(os.Getenv(a.cfg.PassphraseEnv))
	if len(passphrase) == 0 {
		fmt.Fprint(os.Stderr, "passphrase: ")
		p, err := readPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return nil, fmt.Errorf("reading passphrase: %w", err)
		}
		passphrase = p
	}
	if len(passphrase) == 0 {
		return nil, fmt.Errorf("empty passphrase")
	}

	st := store.New(a.cfg.StoreDir, a.log)
	if err := st.Initialize(ctx, passphrase); err != nil {
		return nil, fmt.Errorf("opening store at %s: %w", a.cfg.StoreDir, err)
	}

	a.manager = calendar.NewManager(st, nil, a.log)
	return a.manager, nil
}

// DefaultConfigPath is where the CLI looks for its config file.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".famcal", "config.yaml")
}
