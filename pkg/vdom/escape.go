package vdom

import (
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

var (
	textEscaper = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&#39;",
	)

	// Attribute values additionally keep literal whitespace control
	// characters from being normalized by the parser.
	attrEscaper = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&#39;",
		"\n", "&#10;",
		"\r", "&#13;",
		"\t", "&#9;",
	)

	voidElements = mapset.NewThreadUnsafeSet(
		"area", "base", "br", "col", "embed", "hr", "img",
		"input", "link", "meta", "param", "source", "track", "wbr",
	)

	inlineElements = mapset.NewThreadUnsafeSet(
		"a", "abbr", "b", "bdi", "bdo", "br", "cite", "code", "data", "dfn",
		"em", "i", "kbd", "mark", "q", "rb", "rp", "rt", "rtc", "ruby", "s",
		"samp", "small", "span", "strong", "sub", "sup", "time", "u", "var", "wbr",
	)
)

func escapeHTML(s string) string { return textEscaper.Replace(s) }

func escapeAttr(s string) string { return attrEscaper.Replace(s) }

// isVoidElement reports whether tag has no closing tag in HTML.
func isVoidElement(tag string) bool { return voidElements.Contains(tag) }

// isInlineElement reports whether tag flows inline, so pretty output keeps
// its children on one line.
func isInlineElement(tag string) bool { return inlineElements.Contains(tag) }
