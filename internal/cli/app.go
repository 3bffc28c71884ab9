package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/catalog/internal/config"
	"github.com/roach88/catalog/internal/notify"
	"github.com/roach88/catalog/internal/revision"
	"github.com/roach88/catalog/internal/store"
)

// app is the per-invocation wiring of config, store, hooks and engine.
type app struct {
	cfg    *config.Config
	store  *store.Store
	engine *revision.Engine
	logger *slog.Logger
	amqp   *notify.AMQPHook
}

// loadConfig reads the config file. A missing file at the default path
// means defaults; a missing file named explicitly is an error.
func (o *RootOptions) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(o.ConfigPath)
	if errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("config") {
		cfg, err = config.Default(), nil
	}
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if o.Database != "" {
		cfg.Database = o.Database
	}
	return cfg, nil
}

// newLogger builds the slog logger selected by config and --verbose.
func newLogger(cfg *config.Config, verbose bool, w io.Writer) *slog.Logger {
	level := cfg.LogLevel()
	if verbose {
		level = slog.LevelDebug
	}
	hopts := &slog.HandlerOptions{Level: level}
	if cfg.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, hopts))
	}
	return slog.New(slog.NewTextHandler(w, hopts))
}

// openApp loads config, opens the database and builds the engine.
func (o *RootOptions) openApp(cmd *cobra.Command) (*app, error) {
	cfg, err := o.loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg, o.Verbose, cmd.ErrOrStderr())

	logger.Debug("opening database", "path", cfg.Database)
	st, err := store.Open(cfg.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	a := &app{cfg: cfg, store: st, logger: logger}

	var hooks []notify.Hook
	if o.Verbose {
		hooks = append(hooks, notify.NewLogHook(logger))
	}
	if cfg.AMQP != nil {
		h, err := notify.DialAMQP(cfg.AMQP.URL, cfg.AMQP.Exchange, cfg.AMQP.RoutingKey)
		if err != nil {
			st.Close()
			return nil, WrapExitError(ExitCommandError, "failed to connect publisher", err)
		}
		a.amqp = h
		hooks = append(hooks, h)
	}

	a.engine = revision.New(st,
		revision.WithLogger(logger),
		revision.WithMaxRedirectDepth(cfg.Redirects.MaxDepth),
		revision.WithHooks(notify.NewDispatcher(hooks, notify.WithDispatchLogger(logger))),
	)
	return a, nil
}

// editor picks the editor id for a write: the flag when set, then the
// config default.
func (a *app) editor(flag int64) int64 {
	if flag != 0 {
		return flag
	}
	return a.cfg.DefaultEditor
}

func (a *app) Close() error {
	var errs []error
	if a.amqp != nil {
		errs = append(errs, a.amqp.Close())
	}
	errs = append(errs, a.store.Close())
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	return nil
}
