// Command botd serves one of the sample bots over HTTP.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "botd",
	Short: "Run a Bot Framework sample bot",
	Long: `botd hosts a sample bot behind the Bot Framework messaging endpoint (/api/messages).
Configuration comes from a YAML file, BOTS_ environment variables and the
MicrosoftAppId / MicrosoftAppPassword / PORT conventions.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", envOr("BOTS_CONFIG", "botd.yaml"), "Path to config YAML file (optional)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose logging")
}

// safeGo runs fn with panic recovery.
func safeGo(logger *slog.Logger, name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("goroutine panicked", "name", name, "panic", fmt.Sprintf("%v", r))
		}
	}()
	fn()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
