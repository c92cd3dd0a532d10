package main

import (
	"github.com/sirupsen/logrus"
	"github.com/sovereignos/agentrun/internal/config"
	"github.com/sovereignos/agentrun/internal/llm"
	"github.com/sovereignos/agentrun/internal/output"
	"github.com/sovereignos/agentrun/internal/runner"
	"github.com/spf13/cobra"
)

var inputJSON string

func runAgent(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(cfg.Output.Format)
	if err != nil {
		return err
	}

	cred := resolveCredential()
	client := llm.NewClient(llm.ClientConfig{
		APIKey:  cred.APIKey,
		BaseURL: cfg.API.BaseURL,
	})

	opts := runner.Options{
		Completer: client,
		Out:       cmd.OutOrStdout(),
		Formatter: output.NewFormatter(format),
	}
	if format.ShowsProgress() {
		opts.Progress = cmd.OutOrStdout()
	} else {
		// keep stdout machine-readable
		opts.Errors = cmd.ErrOrStderr()
	}

	_, err = runner.New(opts).Run(cmd.Context(), args[0], inputJSON)
	return err
}

// resolveCredential looks up the API key once per process. The keychain is
// skipped when disabled in settings or when running under CI.
func resolveCredential() config.Credential {
	mode := config.DetectMode()

	var store config.KeyStore
	if cfg.API.UseKeychain && mode.AllowsKeychain() {
		store = config.NewKeyringManager()
	}

	cred := config.ResolveAPIKey(cfg, store)
	logger.WithFields(logrus.Fields{
		"source": cred.Source,
		"mode":   mode,
	}).Debug("API key resolved")
	return cred
}
