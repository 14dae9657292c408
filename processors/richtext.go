package processors

import (
	"log/slog"
	"strings"

	"golang.org/x/net/html"
)

func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

type NodeFilter func(*html.Node) bool
type NodeWalker func(node *html.Node) (stop bool)

func WalkNodes(logger *slog.Logger, n *html.Node, filter NodeFilter, walker NodeWalker) {
	if filter(n) {
		stop := walker(n)
		if stop {
			return
		}
	}

	for child := n.FirstChild; child != nil; child = child.NextSibling {
		WalkNodes(logger, child, filter, walker)
	}
}

// FirstImageURL extracts the src of the first <img> in a rich-text HTML
// fragment. Returns "" when the fragment is empty, unparseable, or holds no
// image; rich text fields are best-effort and never an error source.
func FirstImageURL(logger *slog.Logger, richText string) string {
	if strings.TrimSpace(richText) == "" {
		return ""
	}

	doc, err := html.Parse(strings.NewReader(richText))
	if err != nil {
		logger.Warn("Failed to parse rich text image field", "error", err)
		return ""
	}

	var src string
	WalkNodes(logger, doc,
		func(n *html.Node) bool {
			return n.Type == html.ElementNode && n.Data == "img"
		},
		func(n *html.Node) bool {
			if src == "" {
				src = getAttr(n, "src")
			}
			return true
		})

	return src
}
