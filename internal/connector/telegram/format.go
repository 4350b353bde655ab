package telegram

import (
	"html"
	"regexp"
	"strings"
)

var (
	reFence      = regexp.MustCompile("(?s)```[^\n]*\n?(.*?)```")
	reInlineCode = regexp.MustCompile("`([^`]+)`")
	reBold       = regexp.MustCompile(`\*\*(.+?)\*\*`)
	reItalic     = regexp.MustCompile(`\*(.+?)\*`)
	reLink       = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
)

// ToHTML converts the Markdown subset bots produce (bold, italic, inline code,
// fenced code, links) into Telegram's HTML parse mode.
func ToHTML(md string) string {
	var out strings.Builder
	inFence := false

	lines := strings.Split(md, "\n")
	for i, line := range lines {
		if i > 0 {
			out.WriteByte('\n')
		}
		if lang, ok := strings.CutPrefix(line, "```"); ok {
			switch {
			case inFence:
				out.WriteString("</code></pre>")
			case strings.TrimSpace(lang) != "":
				out.WriteString(`<pre><code class="language-` + html.EscapeString(strings.TrimSpace(lang)) + `">`)
			default:
				out.WriteString("<pre><code>")
			}
			inFence = !inFence
			continue
		}
		if inFence {
			out.WriteString(escape(line))
			continue
		}
		out.WriteString(inlineHTML(line))
	}
	if inFence {
		out.WriteString("</code></pre>")
	}
	return out.String()
}

// inlineHTML formats one line outside a code fence. Code spans are cut out first
// so emphasis markers inside them survive untouched.
func inlineHTML(line string) string {
	var b strings.Builder
	for {
		loc := reInlineCode.FindStringSubmatchIndex(line)
		if loc == nil {
			b.WriteString(emphasis(line))
			return b.String()
		}
		b.WriteString(emphasis(line[:loc[0]]))
		b.WriteString("<code>" + escape(line[loc[2]:loc[3]]) + "</code>")
		line = line[loc[1]:]
	}
}

func emphasis(s string) string {
	s = escape(s)
	s = reBold.ReplaceAllString(s, "<b>$1</b>")
	s = reItalic.ReplaceAllString(s, "<i>$1</i>")
	return reLink.ReplaceAllString(s, `<a href="$2">$1</a>`)
}

// escape covers the three characters Telegram requires escaped in HTML mode.
func escape(s string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;").Replace(s)
}

// PlainText strips Markdown markers, for the fallback when Telegram rejects the HTML.
func PlainText(md string) string {
	s := reFence.ReplaceAllString(md, "$1")
	s = reInlineCode.ReplaceAllString(s, "$1")
	s = reBold.ReplaceAllString(s, "$1")
	s = reItalic.ReplaceAllString(s, "$1")
	return reLink.ReplaceAllString(s, "$1 ($2)")
}
