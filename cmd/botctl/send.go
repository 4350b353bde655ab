package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/h1v3-io/botsamples/pkg/schema"
)

var sendCmd = &cobra.Command{
	Use:   "send [text]",
	Short: "Send a message (or an activity read from --file) and print the replies",
	Long: `Send posts a message activity to /api/messages with deliveryMode expectReplies
and prints what the bot answered. With --file the activity is read from a YAML
or JSON document; missing routing fields are filled from the global flags.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newClient(cmd)
		file, _ := cmd.Flags().GetString("file")

		var act *schema.Activity
		switch {
		case file != "":
			a, err := loadActivity(file, c)
			if err != nil {
				return err
			}
			act = a
		case len(args) == 1:
			act = c.activity(schema.ActivityMessage)
			act.Text = args[0]
		default:
			return errors.New("send needs a text argument or --file")
		}

		r, err := c.post(cmd.Context(), act)
		if err != nil {
			return err
		}
		if act.Type == schema.ActivityInvoke {
			return renderExtension(cmd.OutOrStdout(), r.Body)
		}
		renderReplies(cmd.OutOrStdout(), r.Activities)
		return nil
	},
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive conversation with the bot",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		c := newClient(cmd)
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, metaStyle.Render("Talking to "+c.baseURL+" (Ctrl+D to quit)"))

		for {
			prompt := promptui.Prompt{Label: "you"}
			text, err := prompt.Run()
			if errors.Is(err, promptui.ErrEOF) || errors.Is(err, promptui.ErrInterrupt) {
				return nil
			}
			if err != nil {
				return err
			}
			if strings.TrimSpace(text) == "" {
				continue
			}

			act := c.activity(schema.ActivityMessage)
			act.Text = text
			r, err := c.post(cmd.Context(), act)
			if err != nil {
				fmt.Fprintln(out, traceStyle.Render(err.Error()))
				continue
			}
			renderReplies(out, r.Activities)
		}
	},
}

func init() {
	sendCmd.Flags().StringP("file", "f", "", "YAML or JSON activity to send")
	rootCmd.AddCommand(sendCmd, chatCmd)
}

// loadActivity reads an activity document. YAML is a superset of JSON so one
// decoder handles both; the result is round-tripped through JSON to honor the
// activity's json field names.
func loadActivity(path string, c *client) (*schema.Activity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	act := c.activity(schema.ActivityMessage)
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(act); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := act.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return act, nil
}
