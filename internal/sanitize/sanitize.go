package sanitize

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

const (
	// SVGPlaceholder replaces the children of every <svg> element.
	SVGPlaceholder = "this is a placeholder"

	// ImagePlaceholder replaces the src of inline base64 images.
	ImagePlaceholder = "#"
)

// removedElements are deleted together with their content.
const removedElements = "script, style, meta, link"

// Cleaner sanitizes HTML documents.
type Cleaner struct {
	svg    bool
	base64 bool
}

// Option configures a Cleaner.
type Option func(*Cleaner)

// WithSVG toggles SVG body replacement. Enabled by default.
func WithSVG(enabled bool) Option {
	return func(c *Cleaner) {
		c.svg = enabled
	}
}

// WithBase64Images toggles base64 image replacement. Enabled by default.
func WithBase64Images(enabled bool) Option {
	return func(c *Cleaner) {
		c.base64 = enabled
	}
}

// New creates a Cleaner.
func New(opts ...Option) *Cleaner {
	c := &Cleaner{svg: true, base64: true}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Clean returns the sanitized document. Every exclude pattern is applied in
// order to the serialized result and each match is deleted.
func (c *Cleaner) Clean(body string, exclude []*regexp.Regexp) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to parse html: %w", err)
	}

	doc.Find(removedElements).Remove()
	for _, n := range doc.Nodes {
		removeComments(n)
	}

	if c.svg {
		doc.Find("svg").Each(func(_ int, s *goquery.Selection) {
			s.SetText(SVGPlaceholder)
		})
	}

	if c.base64 {
		doc.Find("img").Each(func(_ int, s *goquery.Selection) {
			if isBase64Image(s.AttrOr("src", "")) {
				s.ReplaceWithHtml(`<img src="` + ImagePlaceholder + `"/>`)
			}
		})
	}

	out, err := doc.Html()
	if err != nil {
		return "", fmt.Errorf("failed to render html: %w", err)
	}

	for _, re := range exclude {
		out = re.ReplaceAllString(out, "")
	}
	return out, nil
}

// removeComments deletes every comment node below n.
func removeComments(n *html.Node) {
	for child := n.FirstChild; child != nil; {
		next := child.NextSibling
		if child.Type == html.CommentNode {
			n.RemoveChild(child)
		} else {
			removeComments(child)
		}
		child = next
	}
}

func isBase64Image(src string) bool {
	src = strings.TrimSpace(src)
	if !strings.HasPrefix(strings.ToLower(src), "data:image/") {
		return false
	}
	header, _, ok := strings.Cut(src, ",")
	return ok && strings.HasSuffix(strings.ToLower(header), ";base64")
}
