// Command formctl converts, validates and lints form definitions, and serves
// the same operations over HTTP.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gofhir/forms"
	"github.com/gofhir/forms/internal/config"
	"github.com/gofhir/forms/pkg/logger"
	"github.com/gofhir/forms/pkg/questionnaire"
)

// errInvalid marks a run that completed but found errors. It sets the exit
// status without printing anything more.
var errInvalid = errors.New("invalid")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errInvalid) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

// app is the state shared by the subcommands, built before each one runs.
type app struct {
	configFile string
	output     OutputFormat

	cfg    *config.Config
	log    *logger.Logger
	engine *forms.Engine
}

func newRootCmd() *cobra.Command {
	a := &app{output: OutputText}

	root := &cobra.Command{
		Use:           "formctl",
		Short:         "Form definition and validation tool",
		Version:       forms.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}
	root.PersistentFlags().StringVar(&a.configFile, "config", "", "config file (YAML, JSON or TOML)")
	root.PersistentFlags().Var(&a.output, "output", "output format: text, json")

	root.AddCommand(
		toQuestionnaireCmd(a),
		fromQuestionnaireCmd(a),
		validateCmd(a),
		visibilityCmd(a),
		lintCmd(a),
		serveCmd(a),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := logger.ParseLevel(cfg.LogLevel)
	if cfg.JSONLogs() {
		a.log = logger.New(cmd.ErrOrStderr(), level)
	} else {
		a.log = logger.NewConsole(cmd.ErrOrStderr(), level)
	}
	logger.SetDefault(a.log)

	a.engine = forms.NewEngine(
		forms.WithLogger(a.log),
		forms.WithExtensionRegistry(questionnaire.NewRegistry(cfg.ExtensionBase, cfg.ExtensionVersion)),
		forms.WithFHIRVersion(forms.FHIRVersion(cfg.FHIRVersion)),
		forms.WithHistoryLimit(cfg.HistoryLimit),
		forms.WithPatternCache(cfg.PatternCacheSize),
		forms.WithExpressionCache(cfg.ExpressionCacheSize),
		forms.WithWorkers(cfg.Workers),
	)
	return nil
}
