package main

import (
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/vango-dev/sprout/internal/errors"
	"github.com/vango-dev/sprout/pkg/id"
	"github.com/vango-dev/sprout/pkg/protocol"
	"github.com/vango-dev/sprout/pkg/vdom"
)

type inspectOptions struct {
	html  bool
	color bool
}

func inspectCmd() *cobra.Command {
	var (
		opts    inspectOptions
		noColor bool
	)

	cmd := &cobra.Command{
		Use:   "inspect <patch-file>",
		Short: "Decode a recorded patch",
		Long: `Inspect decodes a binary patch, as archived by sprout serve, and
prints its operations. Use "-" to read from standard input.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			opts.color = !noColor && isTerminal(out)
			return inspect(out, data, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.html, "html", false, "Print inserted nodes as HTML")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	return cmd
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, errors.New("E180").Wrap(err)
	}
	return data, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func inspect(w io.Writer, data []byte, opts inspectOptions) error {
	items, err := protocol.DecodePatch(data)
	if err != nil {
		return errors.New("E140").Wrap(err).
			WithSuggestion("Make sure the file is a single archived patch object")
	}

	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetTitle("Patch (%s, %d ops)", humanize.Bytes(uint64(len(data))), len(items))
	if opts.color {
		tbl.SetStyle(table.StyleColoredBright)
	} else {
		tbl.SetStyle(table.StyleLight)
	}
	tbl.AppendHeader(table.Row{"#", "op", "detail", "nodes", "payload"})

	var moves, nodes int
	for i, it := range items {
		n := countNodes(it)
		nodes += n
		if it.Op.IsMove() {
			moves++
		}
		tbl.AppendRow(table.Row{i, it.Op, describe(it), n, payload(it)})
	}
	tbl.AppendFooter(table.Row{"", "", fmt.Sprintf("%d moves", moves), nodes, ""})
	tbl.Render()

	if opts.html {
		return writeNodes(w, items)
	}
	return nil
}

func describe(it vdom.PatchItem) string {
	switch it.Op {
	case vdom.PatchAppendSibling, vdom.PatchReplace:
		return nodeLabel(it.Node)
	case vdom.PatchAddBlob:
		return fmt.Sprintf("%s %s", it.Blob.ID, it.Blob.MimeType)
	}
	s := it.String()
	if len(s) > 60 {
		s = s[:57] + "..."
	}
	return s
}

func nodeLabel(n *vdom.VNode) string {
	switch {
	case n.IsElement() && n.ID != id.Empty:
		return fmt.Sprintf("<%s> %s", n.Tag, n.ID)
	case n.IsElement():
		return "<" + n.Tag + ">"
	case n.IsText():
		return fmt.Sprintf("text %q", n.Text)
	}
	return n.Kind.String()
}

func countNodes(it vdom.PatchItem) int {
	count := 0
	visit := func(*vdom.VNode) { count++ }
	vdom.Walk(it.Node, visit)
	for _, n := range it.Nodes {
		vdom.Walk(n, visit)
	}
	return count
}

func payload(it vdom.PatchItem) string {
	switch {
	case it.Blob != nil:
		return humanize.Bytes(uint64(len(it.Blob.Data)))
	case it.Op == vdom.PatchChangeText || it.Value != "":
		return humanize.Bytes(uint64(len(it.Value)))
	}
	return ""
}

// nodeTree lets the HTML writer render a detached node.
type nodeTree struct{ root *vdom.VNode }

func (t nodeTree) Root() *vdom.VNode                   { return t.root }
func (t nodeTree) Component(id.ID) (*vdom.VNode, bool) { return nil, false }
func (t nodeTree) Blobs() map[id.ID]*vdom.Blob         { return nil }

func writeNodes(w io.Writer, items []vdom.PatchItem) error {
	hw := vdom.NewHTMLWriter(vdom.HTMLConfig{Pretty: true})
	for i, it := range items {
		roots := it.Nodes
		if it.Node != nil {
			roots = []*vdom.VNode{it.Node}
		}
		for _, n := range roots {
			if _, err := fmt.Fprintf(w, "\n<!-- #%d %s -->\n", i, it.Op); err != nil {
				return err
			}
			if err := hw.RenderToWriter(w, nodeTree{root: n}); err != nil {
				return err
			}
		}
	}
	return nil
}
