package review

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Markdown renders a printable summary ending in a signature block.
func Markdown(sum Summary) string {
	var b strings.Builder

	title := sum.Title
	if title == "" {
		title = "Intake Review"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	if !sum.GeneratedAt.IsZero() {
		fmt.Fprintf(&b, "_Prepared %s_\n\n", sum.GeneratedAt.Format("January 2, 2006 15:04"))
	}
	if !sum.Complete {
		b.WriteString("> **Incomplete:** some required answers are missing.\n\n")
	}

	for _, sec := range sum.Sections {
		status := "Complete"
		if !sec.Complete {
			status = "Incomplete"
		}
		fmt.Fprintf(&b, "## %s (%s)\n\n", sec.Title, status)
		if len(sec.Rows) == 0 {
			b.WriteString("_No answers in this section._\n\n")
			continue
		}
		b.WriteString("| Question | Answer |\n|---|---|\n")
		for _, r := range sec.Rows {
			answer := cell(r.Value)
			if r.Missing {
				answer = "**" + answer + "**"
			}
			fmt.Fprintf(&b, "| %s | %s |\n", cell(r.Label), answer)
		}
		b.WriteString("\n")
	}

	b.WriteString("---\n\n")
	b.WriteString("I confirm the information above is true and complete.\n\n")
	b.WriteString("Signature: ______________________________\n\n")
	b.WriteString("Date: ______________________________\n")
	return b.String()
}

// HTML renders the markdown summary as a standalone page. Raw HTML in
// answers is escaped by the renderer.
func HTML(sum Summary) (string, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))

	var body bytes.Buffer
	if err := md.Convert([]byte(Markdown(sum)), &body); err != nil {
		return "", fmt.Errorf("render review: %w", err)
	}

	title := sum.Title
	if title == "" {
		title = "Intake Review"
	}
	var page strings.Builder
	page.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&page, "<title>%s</title>\n", html.EscapeString(title))
	page.WriteString("<style>body{font-family:sans-serif;max-width:48em;margin:2em auto}" +
		"table{border-collapse:collapse;width:100%}td,th{border:1px solid #ccc;padding:4px 8px;text-align:left}" +
		"@media print{body{margin:0}}</style>\n</head>\n<body>\n")
	page.Write(body.Bytes())
	page.WriteString("</body>\n</html>\n")
	return page.String(), nil
}

// cell makes a value safe inside a markdown table cell.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	s = strings.ReplaceAll(s, "\r\n", " ")
	return strings.ReplaceAll(s, "\n", " ")
}
