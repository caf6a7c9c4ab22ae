package senado

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"

	"github.com/civimetrics/plenario/pkg/plenario/norm"
)

// firstAuthorshipFromHTML finds the first "Autoria:" field on a matéria
// page: a <p> whose <strong> label reads "Autoria", with the value either in
// a <span> or in the paragraph text after the label.
func firstAuthorshipFromHTML(body []byte) string {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	var found string
	walk(doc, func(n *html.Node) bool {
		if n.Type != html.ElementNode || n.Data != "p" {
			return true
		}
		strong := findChild(n, "strong")
		if strong == nil {
			return true
		}
		label := norm.Normalize(strings.TrimRight(nodeText(strong), ":"))
		if label != "autoria" {
			return true
		}
		if span := findChild(n, "span"); span != nil {
			if v := strings.TrimSpace(nodeText(span)); v != "" {
				found = v
				return false
			}
		}
		full := strings.TrimSpace(nodeText(n))
		if idx := strings.Index(norm.Normalize(full), "autoria"); idx >= 0 {
			v := full
			if colon := strings.Index(v, ":"); colon >= 0 {
				v = v[colon+1:]
			}
			if v = strings.TrimSpace(v); v != "" {
				found = v
				return false
			}
		}
		return true
	})
	return found
}

// documentFromHTML picks the best full-text link from the page anchors,
// preferring the "avulso inicial" anchor, then the dedicated text-link
// anchors, then anything that looks like a document.
func documentFromHTML(body []byte) string {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	var avulso, textLink, anyLink string
	walk(doc, func(n *html.Node) bool {
		if n.Type != html.ElementNode || n.Data != "a" {
			return true
		}
		href := strings.TrimSpace(attr(n, "href"))
		if !strings.HasPrefix(href, "http") {
			return true
		}
		if !strings.Contains(href, "sdleg-getter/documento") &&
			!strings.HasSuffix(strings.ToLower(href), ".pdf") {
			return true
		}
		label := norm.Normalize(attr(n, "title") + " " + nodeText(n))
		switch {
		case strings.Contains(label, "avulso inicial da materia") && avulso == "":
			avulso = href
		case hasClass(n, "sf-texto-materia--link") && textLink == "":
			textLink = href
		case anyLink == "":
			anyLink = href
		}
		return true
	})
	if avulso != "" {
		return avulso
	}
	if textLink != "" {
		return textLink
	}
	return anyLink
}

// walk traverses the node tree depth-first; fn returning false stops the
// walk.
func walk(n *html.Node, fn func(*html.Node) bool) bool {
	if !fn(n) {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !walk(c, fn) {
			return false
		}
	}
	return true
}

func findChild(n *html.Node, tag string) *html.Node {
	var found *html.Node
	for c := n.FirstChild; c != nil && found == nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == tag {
			return c
		}
		found = findChild(c, tag)
	}
	return found
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	walk(n, func(c *html.Node) bool {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
			b.WriteByte(' ')
		}
		return true
	})
	return strings.Join(strings.Fields(b.String()), " ")
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}
