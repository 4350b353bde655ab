package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/h1v3-io/botsamples/internal/transcript"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the bot is up",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		body, err := newClient(cmd).get(cmd.Context(), "/api/health")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), prettyJSON(body))
		return nil
	},
}

var transcriptCmd = &cobra.Command{
	Use:   "transcript",
	Short: "Show recently recorded activities",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		c := newClient(cmd)
		limit, _ := cmd.Flags().GetInt("limit")
		since, _ := cmd.Flags().GetDuration("since")
		all, _ := cmd.Flags().GetBool("all")
		raw, _ := cmd.Flags().GetBool("json")

		q := url.Values{}
		if !all {
			q.Set("conversation", c.conversation)
		}
		if limit > 0 {
			q.Set("limit", strconv.Itoa(limit))
		}
		if since > 0 {
			q.Set("since", strconv.FormatInt(time.Now().Add(-since).UnixMilli(), 10))
		}
		path := "/api/transcript"
		if len(q) > 0 {
			path += "?" + q.Encode()
		}

		body, err := c.get(cmd.Context(), path)
		if err != nil {
			return err
		}
		if raw {
			fmt.Fprintln(cmd.OutOrStdout(), prettyJSON(body))
			return nil
		}
		var entries []transcript.Entry
		if err := json.Unmarshal(body, &entries); err != nil {
			return fmt.Errorf("decode transcript: %w", err)
		}
		renderTranscript(cmd.OutOrStdout(), entries)
		return nil
	},
}

func init() {
	transcriptCmd.Flags().Int("limit", 50, "Maximum entries")
	transcriptCmd.Flags().Duration("since", 0, "Only entries newer than this")
	transcriptCmd.Flags().Bool("all", false, "Include every conversation, not just --conversation")
	transcriptCmd.Flags().Bool("json", false, "Print raw JSON")
	rootCmd.AddCommand(healthCmd, transcriptCmd)
}

func prettyJSON(data []byte) string {
	var out bytes.Buffer
	if err := json.Indent(&out, data, "", "  "); err != nil {
		return string(data)
	}
	return out.String()
}
