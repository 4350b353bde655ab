package main

import (
	"github.com/spf13/cobra"

	"github.com/h1v3-io/botsamples/pkg/schema"
)

var linkCmd = &cobra.Command{
	Use:   "link <url>",
	Short: "Ask the bot to unfurl a link (composeExtension/queryLink)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newClient(cmd)
		anonymous, _ := cmd.Flags().GetBool("anonymous")

		act := c.activity(schema.ActivityInvoke)
		act.Name = schema.InvokeQueryLink
		if anonymous {
			act.Name = schema.InvokeAnonymousQueryLink
		}
		act.Value = schema.AppBasedLinkQuery{URL: args[0]}
		return invoke(cmd, c, act)
	},
}

var queryCmd = &cobra.Command{
	Use:   "query <command-id> [text]",
	Short: "Run a messaging extension search command (composeExtension/query)",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newClient(cmd)

		q := schema.MessagingExtensionQuery{CommandID: args[0]}
		if len(args) == 2 {
			q.Parameters = []schema.MessagingExtensionParameter{{Name: args[0], Value: args[1]}}
		}
		act := c.activity(schema.ActivityInvoke)
		act.Name = schema.InvokeQuery
		act.Value = q
		return invoke(cmd, c, act)
	},
}

func init() {
	for _, cmd := range []*cobra.Command{linkCmd, queryCmd} {
		cmd.Flags().String("invoke-channel", "msteams", "Channel id for the invoke")
		rootCmd.AddCommand(cmd)
	}
	linkCmd.Flags().Bool("anonymous", false, "Send as an anonymous link query")
}

func invoke(cmd *cobra.Command, c *client, act *schema.Activity) error {
	act.ChannelID, _ = cmd.Flags().GetString("invoke-channel")
	r, err := c.post(cmd.Context(), act)
	if err != nil {
		return err
	}
	return renderExtension(cmd.OutOrStdout(), r.Body)
}
