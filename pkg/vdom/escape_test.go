package vdom

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type escapeCase struct{ in, want string }

func TestEscapeText(t *testing.T) {
	for _, tc := range []escapeCase{
		{"", ""},
		{"plain", "plain"},
		{"Tom & Jerry", "Tom &amp; Jerry"},
		{"<b>x</b>", "&lt;b&gt;x&lt;/b&gt;"},
		{`say "hi" it's`, "say &quot;hi&quot; it&#39;s"},
		{"&amp;", "&amp;amp;"},
		{"line\nbreak\tkept", "line\nbreak\tkept"},
		{"日本 <ruby>", "日本 &lt;ruby&gt;"},
	} {
		assert.Equal(t, tc.want, escapeHTML(tc.in), "escapeHTML(%q)", tc.in)
	}
}

func TestEscapeAttr(t *testing.T) {
	for _, tc := range []escapeCase{
		{"", ""},
		{"btn primary", "btn primary"},
		{`x" onclick="alert(1)`, "x&quot; onclick=&quot;alert(1)"},
		{"a\nb\r\nc\td", "a&#10;b&#13;&#10;c&#9;d"},
		{"<script>'&'</script>", "&lt;script&gt;&#39;&amp;&#39;&lt;/script&gt;"},
	} {
		assert.Equal(t, tc.want, escapeAttr(tc.in), "escapeAttr(%q)", tc.in)
	}
}

func TestVoidElements(t *testing.T) {
	for _, tag := range []string{"br", "img", "input", "wbr"} {
		assert.True(t, isVoidElement(tag), tag)
	}
	for _, tag := range []string{"div", "span", "BR", ""} {
		assert.False(t, isVoidElement(tag), tag)
	}
}

func TestInlineElements(t *testing.T) {
	for _, tag := range []string{"a", "span", "strong", "code"} {
		assert.True(t, isInlineElement(tag), tag)
	}
	for _, tag := range []string{"div", "p", "section", "SPAN"} {
		assert.False(t, isInlineElement(tag), tag)
	}
}
