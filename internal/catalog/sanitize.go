package catalog

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Delimiter separates multiple values inside one cell.
const Delimiter = "///"

var (
	// nameDisallowed matches everything outside word characters, whitespace,
	// common punctuation and a fixed list of quote, currency and degree signs.
	nameDisallowed = regexp.MustCompile(`[^\p{L}\p{M}\p{N}_\s\p{Zs}\-()\[\]/\\,.;:!?'"«»„“”‘’` + "`" + `~@#$%^&*+=<>|№°€₽£¥]`)
	nameSpaces     = regexp.MustCompile(`[\s\p{Zs}]+`)
	nameParens     = regexp.MustCompile(`\(\s*([^)]*?)\s*\)`)
)

// SanitizeName removes disallowed characters from a product name, collapses
// whitespace runs and trims whitespace just inside parentheses.
func SanitizeName(name string) string {
	if name == "" {
		return ""
	}
	s := nameDisallowed.ReplaceAllString(name, "")
	s = nameSpaces.ReplaceAllString(s, " ")
	s = nameParens.ReplaceAllString(s, "($1)")
	return strings.TrimSpace(s)
}

// DedupeDelimited splits value on delimiter, trims items, drops empty ones
// and removes exact duplicates keeping the first occurrence.
func DedupeDelimited(value, delimiter string) string {
	if value == "" {
		return ""
	}
	parts := strings.Split(value, delimiter)
	seen := make(map[string]struct{}, len(parts))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return strings.Join(out, delimiter)
}

// SanitizeDescription reduces an HTML fragment to <p> and <br> tags.
// Every other element is unwrapped (its text kept), comments and
// script/style bodies are dropped, and bare text at the top level is wrapped
// in <p>. The result is always escaped HTML.
func SanitizeDescription(description string) string {
	if strings.TrimSpace(description) == "" {
		return ""
	}

	context := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(description), context)
	if err != nil {
		// The tokenizer only fails on reader errors; treat the input as text.
		return renderNodes([]*html.Node{paragraph(strings.TrimSpace(description))})
	}

	var flat []*html.Node
	for _, n := range nodes {
		flat = append(flat, unwrapNode(n)...)
	}

	var out []*html.Node
	var text strings.Builder
	flushText := func() {
		if t := strings.TrimSpace(text.String()); t != "" {
			out = append(out, paragraph(t))
		}
		text.Reset()
	}
	for _, n := range flat {
		if n.Type == html.TextNode {
			text.WriteString(n.Data)
			continue
		}
		flushText()
		out = append(out, n)
	}
	flushText()

	return renderNodes(out)
}

// unwrapNode returns the allowed nodes that n reduces to. The returned nodes
// are detached and may be appended to a new parent.
func unwrapNode(n *html.Node) []*html.Node {
	switch n.Type {
	case html.TextNode:
		return []*html.Node{{Type: html.TextNode, Data: n.Data}}
	case html.ElementNode:
		switch n.DataAtom {
		case atom.Br:
			return []*html.Node{{Type: html.ElementNode, Data: "br", DataAtom: atom.Br}}
		case atom.Script, atom.Style:
			return nil
		case atom.P:
			p := &html.Node{Type: html.ElementNode, Data: "p", DataAtom: atom.P}
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				for _, k := range unwrapNode(c) {
					// <p> cannot nest; lift the text of inner paragraphs.
					if k.DataAtom == atom.P {
						for kc := k.FirstChild; kc != nil; {
							next := kc.NextSibling
							k.RemoveChild(kc)
							p.AppendChild(kc)
							kc = next
						}
						continue
					}
					p.AppendChild(k)
				}
			}
			return []*html.Node{p}
		}
		fallthrough
	case html.DocumentNode:
		var out []*html.Node
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			out = append(out, unwrapNode(c)...)
		}
		return out
	default:
		// comments, doctypes
		return nil
	}
}

func paragraph(text string) *html.Node {
	p := &html.Node{Type: html.ElementNode, Data: "p", DataAtom: atom.P}
	p.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	return p
}

func renderNodes(nodes []*html.Node) string {
	var b strings.Builder
	for _, n := range nodes {
		// Render only fails on writer errors; strings.Builder never fails.
		_ = html.Render(&b, n)
	}
	return b.String()
}
