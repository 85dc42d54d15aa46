package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"doorhole/internal/config"
	"doorhole/internal/diagram"
	"doorhole/internal/format"
	"doorhole/internal/journal"
	"doorhole/internal/logging"
	"doorhole/internal/projection"
	"doorhole/internal/render"
	"doorhole/internal/store"
	"doorhole/internal/tui"

	"github.com/spf13/cobra"
)

type App struct {
	Dir        string
	ConfigPath string
	PrettyJSON bool
	Format     string
	LogLevel   string
	LogFile    string

	cfg     *config.Config
	log     *logging.Logger
	tree    *store.Tree
	journal *journal.Journal
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:           "doorhole",
		Short:         "Doorhole: terminal editor for doorstop requirements",
		SilenceUsage:  true,
		SilenceErrors: true,
		Example: strings.TrimSpace(`
  # Edit the requirements tree of the current repository
  doorhole

  # Scriptable commands
  doorhole documents
  doorhole items REQ --format json
  doorhole set REQ001 header "Startup time"

  # Direct item lookup (shortcut for: doorhole render <uid>)
  doorhole REQ001
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive TUI.
			if cmd.HasSubCommands() && len(args) == 0 {
				return runTUI(cmd, app)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if !format.Valid(app.Format) {
			return writeErr(cmd, fmt.Errorf("unknown format: %s (json|yaml|table)", app.Format))
		}
		return nil
	}
	cmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		app.close()
		return nil
	}

	cmd.PersistentFlags().StringVar(&app.Dir, "dir", envOr("DOORHOLE_DIR", ""), "Root of the requirements tree (default: repository root of the current directory)")
	cmd.PersistentFlags().StringVar(&app.ConfigPath, "config", "", "Config file (default: $DOORHOLE_CONFIG_DIR/config.jsonc)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output and style tables")
	cmd.PersistentFlags().StringVar(&app.Format, "format", envOr("DOORHOLE_FORMAT", "table"), "Output format (json|yaml|table)")
	cmd.PersistentFlags().StringVar(&app.LogLevel, "log-level", "", "Log level (debug|info|warn|error; overrides config)")
	cmd.PersistentFlags().StringVar(&app.LogFile, "log-file", "", "Log file (overrides config)")

	cmd.AddCommand(newDocsCmd(app))
	cmd.AddCommand(newDocumentsCmd(app))
	cmd.AddCommand(newItemsCmd(app))
	cmd.AddCommand(newSetCmd(app))
	cmd.AddCommand(newAddCmd(app))
	cmd.AddCommand(newDeleteCmd(app))
	cmd.AddCommand(newRenderCmd(app))
	cmd.AddCommand(newExportCmd(app))
	cmd.AddCommand(newCheckCmd(app))
	cmd.AddCommand(newHistoryCmd(app))
	cmd.AddCommand(newStatusCmd(app))
	cmd.AddCommand(newPublishCmd(app))

	return cmd
}

func runTUI(cmd *cobra.Command, app *App) error {
	if err := app.load(cmd.Context()); err != nil {
		return writeErr(cmd, err)
	}
	defer app.close()
	statePath := ""
	if dir, err := config.StateDir(); err == nil {
		statePath = filepath.Join(dir, "tui_state.json")
	}
	return tui.Run(cmd.Context(), tui.Options{
		Tree:      app.tree,
		Journal:   app.journal,
		Log:       app.log.Logger,
		Renderer:  render.NewTerminal(app.cfg.Theme, app.diagrams()),
		Hidden:    app.cfg.HiddenColumns,
		StatePath: statePath,
	})
}

// load reads the configuration, opens the log file and the journal, and
// builds the requirements tree. It is idempotent.
func (app *App) load(ctx context.Context) error {
	if app.tree != nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(app.ConfigPath)
	if err != nil {
		return err
	}
	if app.LogLevel != "" {
		cfg.Log.Level = app.LogLevel
	}
	if app.LogFile != "" {
		cfg.Log.File = app.LogFile
	}
	lvl, err := config.ParseLogLevel(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	app.cfg = cfg

	logPath, err := cfg.LogFile()
	if err != nil {
		return err
	}
	app.log, err = logging.Open(logPath, lvl)
	if err != nil {
		return err
	}

	root := app.Dir
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		root = store.DiscoverRoot(wd)
	}
	tree, err := store.Build(root)
	if err != nil {
		app.log.Error("tree build failed", "root", root, "err", err)
		return fmt.Errorf("loading requirements below %s: %w", root, err)
	}
	app.tree = tree
	app.log.Info("tree loaded", "root", tree.Root, "documents", len(tree.Documents()))

	if cfg.JournalEnabled() {
		p, err := cfg.JournalPath()
		if err != nil {
			return err
		}
		j, err := journal.Open(ctx, p)
		if err != nil {
			// Editing works without a journal.
			app.log.Warn("journal unavailable", "path", p, "err", err)
		} else {
			app.journal = j
		}
	}
	return nil
}

func (app *App) close() {
	if app.journal != nil {
		_ = app.journal.Close()
		app.journal = nil
	}
	if app.log != nil {
		_ = app.log.Close()
	}
}

func (app *App) diagrams() *diagram.Renderer {
	timeout, _ := app.cfg.PlantUMLTimeout()
	return diagram.New(diagram.Config{
		Server:   app.cfg.PlantUML.Server,
		Command:  app.cfg.PlantUML.Command,
		Format:   app.cfg.PlantUML.Format,
		CacheDir: app.cfg.PlantUML.CacheDir,
		Timeout:  timeout,
	}, app.log.Logger)
}

// table loads the projection of the document with prefix.
func (app *App) table(ctx context.Context, prefix string) (*projection.Table, error) {
	if _, err := app.tree.FindDocument(prefix); err != nil {
		return nil, err
	}
	t := projection.New(projection.Env{Tree: app.tree, Journal: app.journal, Log: app.log.Logger}, prefix)
	if err := t.Load(ctx); err != nil {
		return nil, err
	}
	return t, nil
}

// itemRow finds the projection row of uid.
func (app *App) itemRow(ctx context.Context, uid string) (*projection.Table, int, error) {
	it, err := app.tree.FindItem(uid)
	if err != nil {
		return nil, -1, err
	}
	t, err := app.table(ctx, it.Document().Prefix)
	if err != nil {
		return nil, -1, err
	}
	row := t.RowOf(it.UID())
	if row < 0 {
		return nil, -1, fmt.Errorf("%s is inactive: %w", uid, store.ErrItemNotFound)
	}
	return t, row, nil
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

type envelope struct {
	Data any `json:"data" yaml:"data"`
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	if t, ok := v.(format.Tabular); ok && app.Format == "table" {
		return format.WriteTable(cmd.OutOrStdout(), t, app.PrettyJSON)
	}
	return format.Write(cmd.OutOrStdout(), envelope{Data: v}, app.Format, app.PrettyJSON)
}

// reportedError has already been printed to stderr.
type reportedError struct{ err error }

func (e reportedError) Error() string { return e.err.Error() }
func (e reportedError) Unwrap() error { return e.err }

func writeErr(cmd *cobra.Command, err error) error {
	var r reportedError
	if errors.As(err, &r) {
		return err
	}
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return reportedError{err: err}
}

// Reported reports whether err was already printed by a command.
func Reported(err error) bool {
	var r reportedError
	return errors.As(err, &r)
}
