package main

import (
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/isoflow/pkg/config"
	"github.com/YuminosukeSato/isoflow/pkg/errors"
	"github.com/YuminosukeSato/isoflow/pkg/log"
)

// app is the state shared by the subcommands once the root has run.
type app struct {
	configPath string
	logLevel   string
	logFormat  string

	cfg    *config.Config
	logger log.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "isoflow",
		Short: "Bayesian calibration of clumped-isotope paleothermometers",
		Long: "isoflow fits temperature against the carbonate-water d18O difference\n" +
			"in six stages, from complete pooling to predictions under measurement error.",
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.ErrOrStderr())
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			errors.SetZerologWarnFunc(nil)
			errors.SetWarningHandler(nil)
		},
	}
	root.Version = version

	f := root.PersistentFlags()
	f.StringVar(&a.configPath, "config", "isoflow.yaml", "YAML configuration file; missing files fall back to defaults")
	f.StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error (overrides log_level)")
	f.StringVar(&a.logFormat, "log-format", "", "console or json (overrides log_format)")

	root.AddCommand(newRunCmd(a))
	root.AddCommand(newStagesCmd())
	root.AddCommand(newShowCmd(a))
	root.AddCommand(newModelCmd())
	return root
}

// setup loads the configuration and installs the logger and the warning sink.
func (a *app) setup(w io.Writer) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if a.logFormat != "" {
		cfg.LogFormat = a.logFormat
	}
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}

	switch cfg.LogFormat {
	case "json":
		a.logger = log.SetupLogger(level, w)
		logger := a.logger
		errors.SetWarningHandler(func(warning error) {
			logger.Warn(warning.Error())
		})
	case "console", "":
		z := zerolog.New(zerolog.ConsoleWriter{Out: w}).With().Timestamp().Logger()
		a.logger = log.NewZerologLogger(z, level)
		errors.SetZerologWarnFunc(log.WarnFunc(z))
	default:
		return errors.NewValidationError("log_format", "must be console or json", cfg.LogFormat)
	}
	log.SetLogger(a.logger)
	a.cfg = cfg
	return nil
}
