package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/sovereignos/agentrun/internal/config"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	configureDelete bool
	configureStatus bool
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Store the OpenRouter API key in the OS keychain",
	Long: `Reads an OpenRouter API key from the terminal without echo and stores it
in the OS keychain (macOS Keychain, Windows Credential Manager, Linux Secret
Service). On systems without a keychain the key is written to the settings
file with 0600 permissions instead.

OPENROUTER_API_KEY, when set, always takes precedence.`,
	Args: cobra.NoArgs,
	RunE: runConfigure,
}

func init() {
	configureCmd.Flags().BoolVar(&configureDelete, "delete", false, "remove the stored key from the keychain")
	configureCmd.Flags().BoolVar(&configureStatus, "status", false, "show where the active key comes from")
}

func runConfigure(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	km := config.NewKeyringManager()

	switch {
	case configureStatus:
		return printStatus(out, km)
	case configureDelete:
		if err := km.DeleteAPIKey(); err != nil {
			return err
		}
		fmt.Fprintln(out, "✅ API key removed from OS keychain")
		return nil
	}

	fmt.Fprint(out, "Enter your OpenRouter API key: ")
	apiKey, err := readSecret(cmd.InOrStdin(), out)
	if err != nil {
		return fmt.Errorf("failed to read API key: %w", err)
	}
	if !config.IsUsableAPIKey(apiKey) {
		return fmt.Errorf("no API key entered")
	}

	if km.IsAvailable() {
		err := km.SaveAPIKey(apiKey)
		if err == nil {
			fmt.Fprintln(out, "✅ API key saved to OS keychain")
			fmt.Fprintf(out, "   📍 %s\n", keychainLocation())
			return nil
		}
		logger.WithError(err).Warn("Failed to save to keychain, saving to settings file instead")
	} else {
		fmt.Fprintln(out, "⚠️  OS keychain not available (headless system or Linux without libsecret)")
	}

	path := cfgFile
	if path == "" {
		path = config.DefaultConfigPath()
	}
	cfg.API.Key = apiKey
	cfg.API.UseKeychain = false
	if err := cfg.Save(path); err != nil {
		return err
	}
	fmt.Fprintf(out, "✅ API key saved to %s (plaintext, mode 0600)\n", path)
	return nil
}

func printStatus(out io.Writer, km *config.KeyringManager) error {
	mode := config.DetectMode()

	var store config.KeyStore
	keychain := cfg.API.UseKeychain && mode.AllowsKeychain()
	if keychain {
		store = km
	}
	cred := config.ResolveAPIKey(cfg, store)

	fmt.Fprintf(out, "Mode:     %s\n", mode)
	fmt.Fprintf(out, "Base URL: %s\n", cfg.API.BaseURL)
	fmt.Fprintf(out, "Keychain: %s\n", keychainStatus(keychain, km))
	fmt.Fprintf(out, "API key:  %s\n", config.MaskAPIKey(cred.APIKey))
	fmt.Fprintf(out, "Source:   %s\n", cred.Source.Description())
	return nil
}

func keychainStatus(enabled bool, km *config.KeyringManager) string {
	switch {
	case !enabled:
		return "disabled"
	case km.IsAvailable():
		return "available"
	default:
		return "unavailable"
	}
}

// readSecret reads one line without echo when in is a terminal, and as
// plain text otherwise (piped input).
func readSecret(in io.Reader, out io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func keychainLocation() string {
	switch runtime.GOOS {
	case "darwin":
		return "macOS Keychain Access.app → 'agentrun'"
	case "windows":
		return "Windows Credential Manager → 'agentrun'"
	case "linux":
		return "Linux Secret Service (libsecret)"
	default:
		return "OS Keychain"
	}
}
