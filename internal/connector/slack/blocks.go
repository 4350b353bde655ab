package slackconn

import (
	"strings"

	"github.com/slack-go/slack"

	"github.com/h1v3-io/botsamples/internal/connector"
	"github.com/h1v3-io/botsamples/pkg/schema"
)

// Slack rejects section text longer than this.
const maxSectionText = 3000

// messageBlocks renders a message activity as Block Kit: one section for the
// text and one per hero or thumbnail card, separated by dividers.
func messageBlocks(a *schema.Activity) []slack.Block {
	var blocks []slack.Block
	if t := strings.TrimSpace(a.Text); t != "" {
		blocks = append(blocks, section(MarkdownToMrkdwn(t), ""))
	}
	for _, att := range a.Attachments {
		card, ok := connector.CardOf(att.Content)
		if !ok {
			continue
		}
		if len(blocks) > 0 {
			blocks = append(blocks, slack.NewDividerBlock())
		}
		blocks = append(blocks, cardSection(card))
	}
	return blocks
}

func cardSection(c connector.Card) slack.Block {
	var lines []string
	if c.Title != "" {
		lines = append(lines, "*"+escaper.Replace(c.Title)+"*")
	}
	for _, s := range []string{c.Subtitle, c.Text} {
		if s != "" {
			lines = append(lines, MarkdownToMrkdwn(s))
		}
	}
	return section(strings.Join(lines, "\n"), c.ImageURL)
}

func section(text, imageURL string) *slack.SectionBlock {
	if r := []rune(text); len(r) > maxSectionText {
		text = string(r[:maxSectionText-3]) + "..."
	}
	var accessory *slack.Accessory
	if imageURL != "" {
		accessory = slack.NewAccessory(slack.NewImageBlockElement(imageURL, "card image"))
	}
	return slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, text, false, false), nil, accessory)
}
