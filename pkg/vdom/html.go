package vdom

import (
	"bytes"
	"fmt"
	"io"
	"strings"
)

// HTMLConfig configures the HTML snapshot writer.
type HTMLConfig struct {
	// Pretty enables pretty-printed output with indentation.
	Pretty bool

	// Indent is the string used for each indentation level in pretty mode.
	// Defaults to two spaces if not specified.
	Indent string
}

// HTMLWriter renders resolved trees as static HTML. Element identifiers are
// written as data-sprout-id and listener names as data-sprout-events so a
// snapshot can be matched against later patches.
type HTMLWriter struct {
	config HTMLConfig
}

// NewHTMLWriter creates an HTMLWriter with the given configuration.
func NewHTMLWriter(config HTMLConfig) *HTMLWriter {
	if config.Indent == "" {
		config.Indent = "  "
	}
	return &HTMLWriter{config: config}
}

// RenderToString renders the tree's root to an HTML string.
func (r *HTMLWriter) RenderToString(t Tree) (string, error) {
	var buf bytes.Buffer
	if err := r.RenderToWriter(&buf, t); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderToWriter streams the tree's root to w.
func (r *HTMLWriter) RenderToWriter(w io.Writer, t Tree) error {
	return r.renderNode(w, t, t.Root(), 0)
}

func (r *HTMLWriter) renderNode(w io.Writer, t Tree, node *VNode, depth int) error {
	if node == nil {
		return nil
	}

	switch node.Kind {
	case KindElement:
		return r.renderElement(w, t, node, depth)
	case KindText:
		_, err := io.WriteString(w, escapeHTML(node.Text))
		return err
	case KindPlaceholder:
		sub, ok := t.Component(node.ID)
		if !ok {
			return fmt.Errorf("vdom: placeholder references unknown component %s", node.ID)
		}
		return r.renderNode(w, t, sub, depth)
	default:
		return fmt.Errorf("vdom: unknown node kind: %d", node.Kind)
	}
}

func (r *HTMLWriter) renderElement(w io.Writer, t Tree, node *VNode, depth int) error {
	tag := node.Tag

	if r.config.Pretty && depth > 0 {
		r.writeIndent(w, depth)
	}

	if _, err := fmt.Fprintf(w, "<%s", tag); err != nil {
		return err
	}
	if err := r.renderAttributes(w, node); err != nil {
		return err
	}

	if isVoidElement(tag) && node.Namespace == "" {
		if _, err := io.WriteString(w, ">"); err != nil {
			return err
		}
		if r.config.Pretty {
			io.WriteString(w, "\n")
		}
		return nil
	}

	if _, err := io.WriteString(w, ">"); err != nil {
		return err
	}

	hasBlockChildren := len(node.Children) > 0 && !isInlineElement(tag)
	if r.config.Pretty && hasBlockChildren {
		io.WriteString(w, "\n")
	}

	for _, child := range node.Children {
		if err := r.renderNode(w, t, child, depth+1); err != nil {
			return err
		}
	}

	if r.config.Pretty && hasBlockChildren {
		r.writeIndent(w, depth)
	}

	if _, err := fmt.Fprintf(w, "</%s>", tag); err != nil {
		return err
	}
	if r.config.Pretty {
		io.WriteString(w, "\n")
	}
	return nil
}

// renderAttributes writes attributes in declaration order. A repeated key is
// written once, with its last value.
func (r *HTMLWriter) renderAttributes(w io.Writer, node *VNode) error {
	if node.Namespace != "" {
		if _, err := fmt.Fprintf(w, ` xmlns="%s"`, escapeAttr(node.Namespace)); err != nil {
			return err
		}
	}

	seen := make(map[string]bool, len(node.Attrs))
	for _, a := range node.Attrs {
		if seen[a.Key] {
			continue
		}
		seen[a.Key] = true
		value, _ := node.Attr(a.Key)
		if _, err := fmt.Fprintf(w, ` %s="%s"`, a.Key, escapeAttr(value)); err != nil {
			return err
		}
	}

	if !node.ID.IsEmpty() {
		if _, err := fmt.Fprintf(w, ` data-sprout-id="%d"`, uint64(node.ID)); err != nil {
			return err
		}
	}

	if len(node.Events) > 0 {
		names := make([]string, len(node.Events))
		for i, e := range node.Events {
			names[i] = e.Name
		}
		if _, err := fmt.Fprintf(w, ` data-sprout-events="%s"`, escapeAttr(strings.Join(names, " "))); err != nil {
			return err
		}
	}
	return nil
}

func (r *HTMLWriter) writeIndent(w io.Writer, depth int) {
	for i := 0; i < depth; i++ {
		io.WriteString(w, r.config.Indent)
	}
}
