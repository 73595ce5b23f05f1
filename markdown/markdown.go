// Package markdown converts the triage report to HTML with goldmark.
package markdown

import (
	"bytes"
	"html"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/EricRahm/bz-triage/errors"
)

var converter = goldmark.New(
	// Bare bug and triage links in free-form preambles become anchors
	goldmark.WithExtensions(extension.Linkify),
)

// ToHTML renders markdown as an HTML fragment
func ToHTML(src string) (string, error) {
	var buf bytes.Buffer
	if err := converter.Convert([]byte(src), &buf); err != nil {
		return "", errors.Wrap(err, "convert markdown to HTML")
	}
	return buf.String(), nil
}

// Document renders markdown as a standalone HTML page titled title
func Document(title, src string) (string, error) {
	body, err := ToHTML(src)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	buf.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>")
	buf.WriteString(html.EscapeString(title))
	buf.WriteString("</title>\n</head>\n<body>\n")
	buf.WriteString(body)
	buf.WriteString("</body>\n</html>\n")
	return buf.String(), nil
}
