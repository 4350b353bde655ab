package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mitchellh/mapstructure"

	"github.com/h1v3-io/botsamples/internal/transcript"
	"github.com/h1v3-io/botsamples/pkg/schema"
)

var (
	botStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("135"))

	userStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	traceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")).
			Italic(true)

	cardTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	cardBox = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(0, 1)
)

// card holds the fields shared by hero and thumbnail cards.
type card struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	Text     string `json:"text"`
}

func renderReplies(w io.Writer, acts []*schema.Activity) {
	if len(acts) == 0 {
		fmt.Fprintln(w, metaStyle.Render("(no replies)"))
		return
	}
	for _, a := range acts {
		renderActivity(w, a)
	}
}

func renderActivity(w io.Writer, a *schema.Activity) {
	switch a.Type {
	case schema.ActivityMessage:
		if a.Text != "" {
			fmt.Fprintf(w, "%s %s\n", botStyle.Render("bot>"), a.Text)
		}
		for _, att := range a.Attachments {
			fmt.Fprintln(w, renderCard(att.ContentType, att.Content))
		}
	case schema.ActivityTrace:
		fmt.Fprintln(w, traceStyle.Render(fmt.Sprintf("[%s] %s: %v", a.Name, a.Label, a.Value)))
	default:
		fmt.Fprintln(w, metaStyle.Render(fmt.Sprintf("(%s)", a.Type)))
	}
}

// renderExtension prints a messaging extension invoke response body.
func renderExtension(w io.Writer, body json.RawMessage) error {
	var resp schema.MessagingExtensionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("decode invoke response: %w", err)
	}
	result := resp.ComposeExtension
	if result == nil {
		fmt.Fprintln(w, metaStyle.Render("(no composeExtension result)"))
		return nil
	}

	fmt.Fprintln(w, metaStyle.Render(fmt.Sprintf("type=%s layout=%s attachments=%d", result.Type, result.AttachmentLayout, len(result.Attachments))))
	for _, att := range result.Attachments {
		fmt.Fprintln(w, renderCard(att.ContentType, att.Content))
		if att.Preview != nil {
			fmt.Fprintln(w, metaStyle.Render("preview:"))
			fmt.Fprintln(w, renderCard(att.Preview.ContentType, att.Preview.Content))
		}
	}
	return nil
}

func renderCard(contentType string, content any) string {
	var lines []string
	switch contentType {
	case schema.ContentTypeHeroCard, schema.ContentTypeThumbnailCard:
		var c card
		if err := decode(content, &c); err != nil {
			lines = append(lines, metaStyle.Render("undecodable card: "+err.Error()))
			break
		}
		lines = append(lines, cardTitleStyle.Render(c.Title))
		if c.Subtitle != "" {
			lines = append(lines, c.Subtitle)
		}
		if c.Text != "" {
			lines = append(lines, c.Text)
		}
	case schema.ContentTypeTabUnfurling:
		var tab schema.TabEntity
		if err := decode(content, &tab); err != nil {
			lines = append(lines, metaStyle.Render("undecodable tab: "+err.Error()))
			break
		}
		lines = append(lines, cardTitleStyle.Render(tab.Name), tab.ContentURL, metaStyle.Render("entity "+tab.EntityID))
	default:
		data, _ := json.Marshal(content)
		lines = append(lines, string(data))
	}
	lines = append(lines, metaStyle.Render(contentType))
	return cardBox.Render(strings.Join(lines, "\n"))
}

func renderTranscript(w io.Writer, entries []transcript.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, metaStyle.Render("(transcript is empty)"))
		return
	}
	for _, e := range entries {
		who := userStyle.Render("in ")
		if e.Direction == transcript.Outbound {
			who = botStyle.Render("out")
		}
		a := e.Activity
		if a == nil {
			continue
		}
		summary := a.Text
		if summary == "" && a.Name != "" {
			summary = a.Name
		}
		fmt.Fprintf(w, "%s %s %-8s %-16s %s\n",
			metaStyle.Render(e.Time.Format("15:04:05.000")),
			who,
			a.Type,
			a.Conversation.ID,
			summary,
		)
	}
}

func decode(in, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(in)
}
