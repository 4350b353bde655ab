package slackconn

import (
	"regexp"
	"strings"
)

var (
	linkRe    = regexp.MustCompile(`\[([^\]\n]+)\]\(([^)\s]+)\)`)
	boldRe    = regexp.MustCompile(`\*\*([^*\n]+)\*\*`)
	italicRe  = regexp.MustCompile(`\*([^*\s][^*\n]*)\*`)
	strikeRe  = regexp.MustCompile(`~~([^~\n]+)~~`)
	headingRe = regexp.MustCompile(`(?m)^#{1,6}[ \t]+(.+?)[ \t]*$`)

	escaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
)

// boldMark stands in for Slack bold while italics are rewritten.
const boldMark = "\x01"

// MarkdownToMrkdwn converts the Markdown the bots produce into Slack mrkdwn.
// Fenced blocks and inline code spans are passed through untouched.
func MarkdownToMrkdwn(md string) string {
	var b strings.Builder
	var prose []string
	inFence := false

	flush := func() {
		if len(prose) > 0 {
			b.WriteString(convertProse(strings.Join(prose, "\n")))
			b.WriteByte('\n')
			prose = prose[:0]
		}
	}

	for _, line := range strings.Split(md, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			flush()
			inFence = !inFence
			b.WriteString("```\n") // Slack has no language tags
			continue
		}
		if inFence {
			b.WriteString(line)
			b.WriteByte('\n')
			continue
		}
		prose = append(prose, line)
	}
	flush()
	return strings.TrimSuffix(b.String(), "\n")
}

// convertProse rewrites text outside fences, leaving `code` spans alone.
func convertProse(s string) string {
	parts := strings.Split(s, "`")
	for i := range parts {
		// Odd parts sit between backticks. An unmatched trailing backtick leaves
		// the last part as prose.
		if i%2 == 1 && i < len(parts)-1 {
			continue
		}
		parts[i] = convertInline(parts[i])
	}
	return strings.Join(parts, "`")
}

func convertInline(s string) string {
	s = escaper.Replace(s)
	s = headingRe.ReplaceAllString(s, boldMark+"$1"+boldMark)
	s = convertLinks(s)
	s = boldRe.ReplaceAllString(s, boldMark+"$1"+boldMark)
	s = italicRe.ReplaceAllString(s, "_${1}_")
	s = strikeRe.ReplaceAllString(s, "~$1~")
	return strings.ReplaceAll(s, boldMark, "*")
}

// convertLinks converts [text](url) to <url|text>.
func convertLinks(s string) string {
	return linkRe.ReplaceAllString(s, "<$2|$1>")
}

// StripMention removes the first <@BOTID> mention from message text.
func StripMention(text, botID string) string {
	text = strings.Replace(text, "<@"+botID+">", "", 1)
	return strings.TrimSpace(text)
}
