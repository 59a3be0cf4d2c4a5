// Package termmd renders Markdown replies for a terminal.
//
// It parses Markdown (including GFM tables, strikethrough, and task lists)
// and produces plain text decorated with lipgloss styles:
//   - Headings become bold, underlined lines
//   - Tables become readable list blocks
//   - Links and images print their target after the label
//   - Horizontal rules become a line of box-drawing characters
package termmd

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// Styles decorates rendered spans. A nil field leaves the span undecorated.
type Styles struct {
	Heading func(string) string
	Strong  func(string) string
	Em      func(string) string
	Strike  func(string) string
	Code    func(string) string
	Link    func(string) string
	Quote   func(string) string
}

// DefaultStyles returns the lipgloss styles used by the chat view.
func DefaultStyles() Styles {
	return Styles{
		Heading: styled(lipgloss.NewStyle().Bold(true).Underline(true)),
		Strong:  styled(lipgloss.NewStyle().Bold(true)),
		Em:      styled(lipgloss.NewStyle().Italic(true)),
		Strike:  styled(lipgloss.NewStyle().Strikethrough(true)),
		Code:    styled(lipgloss.NewStyle().Foreground(lipgloss.Color("215"))),
		Link:    styled(lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Underline(true)),
		Quote:   styled(lipgloss.NewStyle().Foreground(lipgloss.Color("245"))),
	}
}

func styled(st lipgloss.Style) func(string) string {
	return func(s string) string { return st.Render(s) }
}

// Render converts Markdown into styled terminal text.
func Render(markdown string) string {
	return RenderWith(markdown, DefaultStyles())
}

// Plain converts Markdown into undecorated text.
func Plain(markdown string) string {
	return RenderWith(markdown, Styles{})
}

// RenderWith converts Markdown using the given styles.
func RenderWith(markdown string, styles Styles) string {
	source := []byte(markdown)
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	doc := md.Parser().Parse(text.NewReader(source))

	r := &renderer{source: source, styles: styles}
	r.walkBlock(doc)
	return strings.TrimRight(r.buf.String(), "\n ")
}

type renderer struct {
	source    []byte
	styles    Styles
	buf       bytes.Buffer
	listDepth int
}

func apply(style func(string) string, s string) string {
	if style == nil || s == "" {
		return s
	}
	return style(s)
}

// span renders the inline children of n into a scratch buffer so the whole
// span can be styled at once.
func (r *renderer) span(n ast.Node) string {
	sub := &renderer{source: r.source, styles: r.styles, listDepth: r.listDepth}
	sub.inlines(n)
	return sub.buf.String()
}

func (r *renderer) walkBlock(n ast.Node) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		r.block(c)
	}
}

func (r *renderer) block(node ast.Node) {
	switch n := node.(type) {
	case *ast.Heading:
		r.buf.WriteString(apply(r.styles.Heading, r.span(n)))
		r.buf.WriteString("\n\n")

	case *ast.Paragraph:
		r.inlines(n)
		r.buf.WriteString("\n\n")

	case *ast.TextBlock:
		r.inlines(n)
		r.buf.WriteString("\n")

	case *ast.Blockquote:
		sub := &renderer{source: r.source, styles: r.styles}
		sub.walkBlock(n)
		body := strings.TrimRight(sub.buf.String(), "\n ")
		for _, line := range strings.Split(body, "\n") {
			r.buf.WriteString(apply(r.styles.Quote, "│ "+line))
			r.buf.WriteByte('\n')
		}
		r.buf.WriteByte('\n')

	case *ast.List:
		r.list(n)

	case *ast.FencedCodeBlock, *ast.CodeBlock:
		r.codeBlock(n)

	case *ast.ThematicBreak:
		r.buf.WriteString(strings.Repeat("─", 10))
		r.buf.WriteString("\n\n")

	case *ast.HTMLBlock:
		r.writeLines(n)
		r.buf.WriteString("\n")

	case *east.Table:
		r.table(n)

	default:
		if node.HasChildren() {
			r.walkBlock(node)
		}
	}
}

func (r *renderer) codeBlock(n ast.Node) {
	var code bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		code.Write(seg.Value(r.source))
	}
	for _, line := range strings.Split(strings.TrimRight(code.String(), "\n"), "\n") {
		r.buf.WriteString("  ")
		r.buf.WriteString(apply(r.styles.Code, line))
		r.buf.WriteByte('\n')
	}
	r.buf.WriteByte('\n')
}

func (r *renderer) writeLines(n ast.Node) {
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		r.buf.Write(seg.Value(r.source))
	}
}

func (r *renderer) inlines(n ast.Node) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		r.inline(c)
	}
}

func (r *renderer) inline(node ast.Node) {
	switch n := node.(type) {
	case *ast.Text:
		r.buf.Write(n.Text(r.source))
		if n.SoftLineBreak() || n.HardLineBreak() {
			r.buf.WriteByte('\n')
		}

	case *ast.String:
		r.buf.Write(n.Value)

	case *ast.Emphasis:
		style := r.styles.Em
		if n.Level == 2 {
			style = r.styles.Strong
		}
		r.buf.WriteString(apply(style, r.span(n)))

	case *ast.CodeSpan:
		r.buf.WriteString(apply(r.styles.Code, r.textContent(n)))

	case *ast.Link:
		label := r.span(n)
		dest := string(n.Destination)
		r.buf.WriteString(apply(r.styles.Link, label))
		if dest != "" && dest != label {
			fmt.Fprintf(&r.buf, " (%s)", dest)
		}

	case *ast.AutoLink:
		r.buf.WriteString(apply(r.styles.Link, string(n.URL(r.source))))

	case *ast.Image:
		alt := r.textContent(n)
		if alt == "" {
			alt = "image"
		}
		fmt.Fprintf(&r.buf, "[%s] (%s)", alt, n.Destination)

	case *ast.RawHTML:
		for i := 0; i < n.Segments.Len(); i++ {
			seg := n.Segments.At(i)
			r.buf.Write(seg.Value(r.source))
		}

	case *east.Strikethrough:
		r.buf.WriteString(apply(r.styles.Strike, r.span(n)))

	case *east.TaskCheckBox:
		if n.IsChecked {
			r.buf.WriteString("[x] ")
		} else {
			r.buf.WriteString("[ ] ")
		}

	default:
		if node.HasChildren() {
			r.inlines(node)
		}
	}
}

func (r *renderer) textContent(n ast.Node) string {
	var buf bytes.Buffer
	r.collectText(n, &buf)
	return buf.String()
}

func (r *renderer) collectText(node ast.Node, buf *bytes.Buffer) {
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			buf.Write(t.Text(r.source))
		case *ast.String:
			buf.Write(t.Value)
		default:
			r.collectText(c, buf)
		}
	}
}

func (r *renderer) list(n *ast.List) {
	idx := 0
	if n.Start > 0 {
		idx = n.Start - 1
	}
	indent := strings.Repeat("  ", r.listDepth)

	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		item, ok := child.(*ast.ListItem)
		if !ok {
			continue
		}
		if n.IsOrdered() {
			idx++
			fmt.Fprintf(&r.buf, "%s%d. ", indent, idx)
		} else {
			r.buf.WriteString(indent)
			r.buf.WriteString("• ")
		}
		r.listItem(item)
		r.buf.WriteByte('\n')
	}
	if r.listDepth == 0 {
		r.buf.WriteByte('\n')
	}
}

func (r *renderer) listItem(item *ast.ListItem) {
	first := true
	for c := item.FirstChild(); c != nil; c = c.NextSibling() {
		switch n := c.(type) {
		case *ast.Paragraph, *ast.TextBlock:
			if !first {
				r.buf.WriteByte('\n')
				r.buf.WriteString(strings.Repeat("  ", r.listDepth+1))
			}
			r.inlines(n)
			first = false
		case *ast.List:
			r.buf.WriteByte('\n')
			r.listDepth++
			r.list(n)
			r.listDepth--
			// Nested list already ended the line.
			r.buf.Truncate(len(bytes.TrimRight(r.buf.Bytes(), "\n")))
		default:
			r.block(c)
			first = false
		}
	}
}

// table flattens a GFM table into numbered "header: value" blocks, which
// survive narrow terminals better than aligned columns.
func (r *renderer) table(t *east.Table) {
	var headers []string
	var rows [][]string

	for child := t.FirstChild(); child != nil; child = child.NextSibling() {
		var cells []string
		for cell := child.FirstChild(); cell != nil; cell = cell.NextSibling() {
			cells = append(cells, strings.TrimSpace(r.textContent(cell)))
		}
		switch child.(type) {
		case *east.TableHeader:
			headers = cells
		case *east.TableRow:
			rows = append(rows, cells)
		}
	}

	numCols := len(headers)
	for _, row := range rows {
		numCols = max(numCols, len(row))
	}
	if numCols == 0 {
		return
	}
	for len(headers) < numCols {
		headers = append(headers, "")
	}
	for i := range headers {
		if headers[i] == "" {
			headers[i] = fmt.Sprintf("Column %d", i+1)
		}
	}
	if len(rows) == 0 {
		rows = [][]string{nil}
	}

	for i, row := range rows {
		r.buf.WriteString(apply(r.styles.Strong, fmt.Sprintf("%d.", i+1)))
		r.buf.WriteByte('\n')
		for j := 0; j < numCols; j++ {
			cell := ""
			if j < len(row) {
				cell = row[j]
			}
			fmt.Fprintf(&r.buf, "• %s: %s\n", apply(r.styles.Strong, headers[j]), cell)
		}
		if i < len(rows)-1 {
			r.buf.WriteByte('\n')
		}
	}
	r.buf.WriteByte('\n')
}
