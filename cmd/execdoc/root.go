package main

import (
	"io"
	"log/slog"

	"execdoc/internal/core/app"
	"execdoc/internal/core/config"
	"execdoc/internal/shared/version"

	"github.com/spf13/cobra"
)

// options is shared by every command. setup fills cfg and logger before a
// command runs.
type options struct {
	configPath string
	verbose    bool

	cfg    *config.Config
	level  *slog.LevelVar
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &options{level: new(slog.LevelVar)}

	root := &cobra.Command{
		Use:           "execdoc",
		Short:         "Compile and execute the code fragments of executable documents",
		Long:          `execdoc analyses the dependencies of Python fragments embedded in JSON or YAML documents and runs them against one persistent scope.`,
		Version:       version.Version + " (" + version.Commit + ")",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.setup(cmd.ErrOrStderr())
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", config.DefaultFile, "Path to config file")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose logging")

	root.AddCommand(
		newServeCmd(opts),
		newCompileCmd(opts),
		newExecuteCmd(opts),
		newManifestCmd(opts),
		newWatchCmd(opts),
		newReplCmd(opts),
		newJournalCmd(opts),
	)
	return root
}

// setup loads config and installs the logger. Logs always go to w, never
// stdout, which carries protocol frames when serving over stdio.
func (o *options) setup(w io.Writer) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	o.cfg = cfg
	if err := o.applyLevel(cfg); err != nil {
		return err
	}
	o.logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: o.level}))
	slog.SetDefault(o.logger)
	return nil
}

func (o *options) applyLevel(cfg *config.Config) error {
	level, err := config.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return err
	}
	if o.verbose {
		level = slog.LevelDebug
	}
	o.level.Set(level)
	return nil
}

func (o *options) newApp() (*app.App, error) {
	return app.New(o.cfg, o.logger)
}
