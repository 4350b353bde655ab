// Command botctl talks to a running botd: it sends activities, runs Teams
// extension invokes and reads the diagnostic routes.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "botctl",
	Short:        "Client for the sample bots",
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("url", envOr("BOTCTL_URL", "http://localhost:3978"), "Bot base URL")
	pf.String("secret", os.Getenv("BOTCTL_SECRET"), "Base64 inbound secret used to sign requests")
	pf.String("api-key", os.Getenv("BOTCTL_API_KEY"), "Bearer key for diagnostic routes")
	pf.String("channel", "emulator", "Channel id to present as")
	pf.String("conversation", "botctl", "Conversation id")
	pf.String("user", "botctl-user", "Sender id")
}

// newClient builds a client from the persistent flags of cmd.
func newClient(cmd *cobra.Command) *client {
	f := cmd.Flags()
	url, _ := f.GetString("url")
	secret, _ := f.GetString("secret")
	apiKey, _ := f.GetString("api-key")
	channel, _ := f.GetString("channel")
	conversation, _ := f.GetString("conversation")
	user, _ := f.GetString("user")
	return &client{
		baseURL:      url,
		secret:       secret,
		apiKey:       apiKey,
		channel:      channel,
		conversation: conversation,
		user:         user,
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
