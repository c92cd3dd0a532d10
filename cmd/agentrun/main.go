package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/sovereignos/agentrun/internal/config"
	"github.com/sovereignos/agentrun/internal/errors"
	"github.com/sovereignos/agentrun/internal/logging"
	"github.com/spf13/cobra"
)

var (
	// Version information (set by build flags)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	cfgFile      string
	verbose      bool
	outputFormat string
	logFile      string
	logger       *logrus.Logger
	cfg          *config.Config
)

func main() {
	err := rootCmd.Execute()
	logging.Close()
	if err != nil {
		// typed errors have already been reported where they occurred
		if _, ok := errors.As(err); !ok {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "agentrun <agent.yaml>",
	Short: "Run a declarative LLM agent once",
	Long: `agentrun loads an agent definition (name, model settings, prompt template
and input schema), validates the input JSON against the schema, fills the
prompt template and sends it to OpenRouter. The response is printed to stdout.

The API key is read from OPENROUTER_API_KEY, the settings file, or the OS
keychain (see 'agentrun configure').`,
	Example: `  agentrun examples/agents/simple_greeter.yaml -i '{"name":"Ada","color":"teal"}'
  agentrun agent.yaml -i '{"text":"hello"}' -o json`,
	Version:           Version,
	Args:              cobra.ExactArgs(1),
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	RunE:              runAgent,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "settings file (default: ~/.agentrun/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging to stderr")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "text", "output format: text, json or quiet")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also write logs to this file")

	rootCmd.Flags().StringVarP(&inputJSON, "input-json", "i", "{}", "JSON string of input data for the agent")

	rootCmd.SetVersionTemplate(`agentrun {{.Version}}
Build time: ` + BuildTime + `
Git commit: ` + GitCommit + `
`)

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(configureCmd)
}

// setup loads settings, applies flag overrides and installs the logger
func setup(cmd *cobra.Command, args []string) error {
	logger = logrus.New()
	logger.SetOutput(cmd.ErrOrStderr())
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.WarnLevel)
	}

	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		if cfgFile != "" {
			return err
		}
		logger.WithError(err).Warn("Failed to load settings, using defaults")
		cfg = config.Default()
	}

	if cmd.Flags().Changed("output") {
		cfg.Output.Format = outputFormat
	}
	if cmd.Flags().Changed("log-file") {
		cfg.Log.File = logFile
	}
	if verbose {
		cfg.Log.Level = "debug"
	}

	result := cfg.Validate()
	for _, w := range result.Warnings {
		logger.Warn(w)
	}
	if result.HasErrors() {
		fmt.Fprint(cmd.ErrOrStderr(), result.Error())
		return result.Err()
	}

	logCfg := logging.DefaultConfig(verbose)
	logCfg.Level, _ = logging.ParseLevel(cfg.Log.Level)
	logCfg.Console = cmd.ErrOrStderr()
	logCfg.OutputFile = cfg.Log.File
	logCfg.JSONFormat = cfg.Log.JSON
	if err := logging.Initialize(logCfg); err != nil {
		logger.WithError(err).Warn("Failed to open log file, logging to stderr only")
		logCfg.OutputFile = ""
		_ = logging.Initialize(logCfg)
	}
	return nil
}
