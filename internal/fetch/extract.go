package fetch

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/text/encoding/charmap"
)

// decodeText converts raw response bytes to a string, trying UTF-8 first and
// falling back to ISO-8859-1. The Latin fallback maps every byte, so decoding
// never fails outright.
func decodeText(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		// Unreachable for ISO-8859-1, but keep the lossy last resort.
		return strings.ToValidUTF8(string(data), "")
	}
	return string(decoded)
}

// htmlText strips markup from an HTML document: script and style subtrees
// are dropped, remaining text nodes are trimmed and joined with single
// spaces. No visual structure is preserved.
func htmlText(src string) string {
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		// html.Parse tolerates almost anything; fall back to the raw text.
		return strings.TrimSpace(src)
	}

	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return strings.Join(parts, " ")
}
