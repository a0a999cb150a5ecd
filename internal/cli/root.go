// Package cli implements the auraring command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mesh-intelligence/aurarings/internal/paths"
	"github.com/mesh-intelligence/aurarings/internal/sqlite"
	"github.com/mesh-intelligence/aurarings/pkg/rings"
	"github.com/mesh-intelligence/aurarings/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// exitError carries the exit code for an error returned by a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

// sysError marks err as an environment failure rather than a usage mistake.
func sysError(err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: exitSysError, err: err}
}

// exitCode maps an error to the process exit code. Errors not marked as
// system errors are user errors.
func exitCode(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitUserError
}

// app holds the state shared by one invocation of the root command.
type app struct {
	configDir string
	dataDir   string
	user      string
	jsonMode  bool

	settings *viper.Viper
	logger   *slog.Logger
	signal   *rings.Signal
}

// NewRootCmd creates the top-level "auraring" command with global flags and
// all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:     "auraring",
		Short:   "Manage aura rings attached to tokens",
		Long:    "auraring stores aura ring configurations on tokens, migrates older\nlayouts, and edits rings from the command line.",
		Version: Version,
		// Do not print usage on errors returned by subcommands.
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	root.PersistentFlags().StringVar(&a.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	root.PersistentFlags().StringVar(&a.dataDir, "data-dir", "", "data directory (default: config data_dir or platform data dir)")
	root.PersistentFlags().StringVar(&a.user, "user", "", "act as this user when checking token ownership")
	root.PersistentFlags().BoolVar(&a.jsonMode, "json", false, "output in JSON format")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd(a))
	root.AddCommand(newTokenCmd(a))
	root.AddCommand(newRingCmd(a))
	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	root := NewRootCmd()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return exitCode(err)
	}
	return exitSuccess
}

// setup loads config.yaml and builds the logger before any subcommand runs.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	configDir, err := paths.ResolveConfigDir(a.configDir)
	if err != nil {
		return sysError(fmt.Errorf("resolve config dir: %w", err))
	}
	a.configDir = configDir

	settings, err := loadConfig(configDir)
	if err != nil {
		return sysError(err)
	}
	a.settings = settings
	if a.user == "" {
		a.user = settings.GetString(cfgKeyUser)
	}

	a.logger = newLogger(cmd.ErrOrStderr(), settings.GetString(cfgKeyLogLevel))
	a.signal = rings.NewSignal(types.ChangeEvent)
	a.signal.Subscribe(func() {
		a.logger.Debug("aura rings changed", "event", a.signal.Name())
	})
	return nil
}

// backendConfig builds the storage config from flags and config.yaml.
func (a *app) backendConfig() (types.Config, error) {
	dataDir, err := paths.ResolveDataDir(a.dataDir, a.settings.GetString(cfgKeyDataDir))
	if err != nil {
		return types.Config{}, fmt.Errorf("resolve data dir: %w", err)
	}
	return types.Config{
		Backend:       a.settings.GetString(cfgKeyBackend),
		DataDir:       dataDir,
		SyncStrategy:  a.settings.GetString(cfgKeySyncStrategy),
		BatchSize:     a.settings.GetInt(cfgKeyBatchSize),
		BatchInterval: a.settings.GetInt(cfgKeyBatchInterval),
	}, nil
}

// withBackend attaches the backend for the duration of fn.
func (a *app) withBackend(fn func(b *sqlite.Backend) error) (err error) {
	cfg, err := a.backendConfig()
	if err != nil {
		return sysError(err)
	}
	b := sqlite.NewBackend()
	if err := b.Attach(cfg); err != nil {
		if errors.Is(err, types.ErrBackendUnknown) || errors.Is(err, types.ErrSyncStrategyUnknown) {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		return sysError(fmt.Errorf("attach backend: %w", err))
	}
	defer func() {
		if derr := b.Detach(); derr != nil && err == nil {
			err = sysError(fmt.Errorf("detach backend: %w", derr))
		}
	}()
	return fn(b)
}

// withDocument resolves a token by id or name and runs fn with it.
func (a *app) withDocument(ctx context.Context, ref string, fn func(doc *sqlite.Document) error) error {
	return a.withBackend(func(b *sqlite.Backend) error {
		doc, err := b.FindDocument(ctx, ref, sqlite.AsUser(a.user))
		if err != nil {
			return fmt.Errorf("token %q: %w", ref, err)
		}
		return fn(doc)
	})
}

// store returns a ring store wired to the invocation's logger and signal.
func (a *app) store() *rings.Store {
	return rings.NewStore(rings.WithLogger(a.logger), rings.WithSignal(a.signal))
}
