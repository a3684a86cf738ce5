package status

import (
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gtext "github.com/yuin/goldmark/text"
)

// Span is a run of text in one style.
type Span struct {
	Text  string
	Style tcell.Style
}

// Line is a sequence of styled spans occupying one terminal row.
type Line []Span

// Text returns the line content without styling.
func (l Line) Text() string {
	var b strings.Builder
	for _, span := range l {
		b.WriteString(span.Text)
	}
	return b.String()
}

// Width returns the display width of the line in cells.
func (l Line) Width() int {
	return runewidth.StringWidth(l.Text())
}

var codeStyle = tcell.StyleDefault.Foreground(tcell.ColorSilver)

// RenderMarkdown renders markdown into styled terminal lines wrapped to
// width cells. Fenced code blocks are syntax highlighted by language.
func RenderMarkdown(source string, width int) []Line {
	if width <= 0 {
		width = 80
	}
	src := []byte(source)
	doc := goldmark.New().Parser().Parse(gtext.NewReader(src))
	r := &mdRenderer{src: src, width: width}
	for child := doc.FirstChild(); child != nil; child = child.NextSibling() {
		r.block(child, "", "")
	}
	return r.lines
}

// DrawLines paints lines starting at (x, y), one terminal row each.
func DrawLines(screen tcell.Screen, x, y int, lines []Line) {
	if screen == nil {
		return
	}
	for i, line := range lines {
		col := x
		for _, span := range line {
			drawText(screen, col, y+i, span.Text, span.Style)
			col += runewidth.StringWidth(span.Text)
		}
	}
}

type mdRenderer struct {
	src   []byte
	width int
	lines []Line
}

// block renders one block node. marker prefixes the first emitted line,
// cont every continuation line.
func (r *mdRenderer) block(n ast.Node, marker, cont string) {
	switch b := n.(type) {
	case *ast.Heading:
		style := tcell.StyleDefault.Bold(true)
		if b.Level == 1 {
			style = style.Underline(true)
		}
		r.wrapInto(r.inline(n, style), marker, cont)
	case *ast.Paragraph, *ast.TextBlock:
		r.wrapInto(r.inline(n, tcell.StyleDefault), marker, cont)
	case *ast.FencedCodeBlock:
		r.code(string(b.Language(r.src)), r.blockSource(n), cont)
	case *ast.CodeBlock:
		r.code("", r.blockSource(n), cont)
	case *ast.List:
		index := b.Start
		for item := n.FirstChild(); item != nil; item = item.NextSibling() {
			var itemMarker string
			if b.IsOrdered() {
				itemMarker = fmt.Sprintf("%d. ", index)
				index++
			} else {
				itemMarker = "- "
			}
			pad := strings.Repeat(" ", runewidth.StringWidth(itemMarker))
			first := true
			for c := item.FirstChild(); c != nil; c = c.NextSibling() {
				if first {
					r.block(c, cont+itemMarker, cont+pad)
					first = false
				} else {
					r.block(c, cont+pad, cont+pad)
				}
			}
		}
	case *ast.Blockquote:
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			r.block(c, cont+"> ", cont+"> ")
		}
	case *ast.ThematicBreak:
		w := r.width - runewidth.StringWidth(cont)
		if w < 1 {
			w = 1
		}
		rule := cont + strings.Repeat("-", w)
		r.lines = append(r.lines, Line{{Text: rule, Style: tcell.StyleDefault.Foreground(tcell.ColorGray)}})
	default:
		if n.Type() == ast.TypeBlock {
			r.wrapInto(r.inline(n, tcell.StyleDefault), marker, cont)
		}
	}
}

func (r *mdRenderer) blockSource(n ast.Node) string {
	var b strings.Builder
	segments := n.Lines()
	for i := 0; i < segments.Len(); i++ {
		seg := segments.At(i)
		b.Write(seg.Value(r.src))
	}
	return b.String()
}

func (r *mdRenderer) inline(n ast.Node, style tcell.Style) []Span {
	var spans []Span
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch i := c.(type) {
		case *ast.Text:
			spans = append(spans, Span{Text: string(i.Segment.Value(r.src)), Style: style})
			if i.SoftLineBreak() || i.HardLineBreak() {
				spans = append(spans, Span{Text: " ", Style: style})
			}
		case *ast.String:
			spans = append(spans, Span{Text: string(i.Value), Style: style})
		case *ast.Emphasis:
			st := style.Italic(true)
			if i.Level >= 2 {
				st = style.Bold(true)
			}
			spans = append(spans, r.inline(c, st)...)
		case *ast.CodeSpan:
			spans = append(spans, r.inline(c, codeStyle)...)
		case *ast.Link:
			spans = append(spans, r.inline(c, style.Underline(true))...)
		case *ast.AutoLink:
			spans = append(spans, Span{Text: string(i.URL(r.src)), Style: style.Underline(true)})
		default:
			spans = append(spans, r.inline(c, style)...)
		}
	}
	return spans
}

type fragment struct {
	text  string
	style tcell.Style
	// glue joins the fragment to the previous one without a space, so
	// adjacent spans like `code`-then-punctuation stay attached.
	glue bool
}

func fragments(spans []Span) []fragment {
	var frags []fragment
	prevEndsSpace := true
	for _, sp := range spans {
		words := strings.Fields(sp.Text)
		startsSpace := len(sp.Text) > 0 && isSpace(sp.Text[0])
		for i, w := range words {
			glue := i == 0 && !startsSpace && !prevEndsSpace
			frags = append(frags, fragment{text: w, style: sp.Style, glue: glue})
		}
		if len(sp.Text) > 0 {
			if len(words) == 0 {
				prevEndsSpace = true
			} else {
				prevEndsSpace = isSpace(sp.Text[len(sp.Text)-1])
			}
		}
	}
	return frags
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\n' || b == '\t'
}

func (r *mdRenderer) wrapInto(spans []Span, marker, cont string) {
	frags := fragments(spans)
	prefix := marker
	var line Line
	lineWidth := runewidth.StringWidth(prefix)

	flush := func() {
		if len(line) == 0 && prefix == "" {
			return
		}
		var out Line
		if prefix != "" {
			out = append(out, Span{Text: prefix, Style: tcell.StyleDefault})
		}
		out = append(out, line...)
		r.lines = append(r.lines, out)
		prefix = cont
		line = nil
		lineWidth = runewidth.StringWidth(cont)
	}

	for _, f := range frags {
		w := runewidth.StringWidth(f.text)
		sep := 0
		if len(line) > 0 && !f.glue {
			sep = 1
		}
		if len(line) > 0 && lineWidth+sep+w > r.width {
			flush()
			sep = 0
		}
		if sep == 1 {
			line = append(line, Span{Text: " ", Style: f.style})
			lineWidth++
		}
		line = append(line, Span{Text: f.text, Style: f.style})
		lineWidth += w
	}
	flush()
}

func (r *mdRenderer) code(lang, source, cont string) {
	source = strings.TrimRight(source, "\n")
	lexer := lexers.Get(lang)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	iterator, err := lexer.Tokenise(nil, source)
	if err != nil {
		for _, ln := range strings.Split(source, "\n") {
			r.codeLine(Line{{Text: ln, Style: codeStyle}}, cont)
		}
		return
	}

	var line Line
	emit := func() {
		r.codeLine(line, cont)
		line = nil
	}
	for _, tok := range iterator.Tokens() {
		style := tokenStyle(tok.Type)
		parts := strings.Split(tok.Value, "\n")
		for i, part := range parts {
			if i > 0 {
				emit()
			}
			if part != "" {
				line = append(line, Span{Text: part, Style: style})
			}
		}
	}
	if len(line) > 0 {
		emit()
	}
}

func (r *mdRenderer) codeLine(line Line, cont string) {
	indent := cont + "  "
	out := Line{{Text: indent, Style: tcell.StyleDefault}}
	width := runewidth.StringWidth(indent)
	for _, span := range line {
		remain := r.width - width
		if remain <= 0 {
			break
		}
		text := span.Text
		if runewidth.StringWidth(text) > remain {
			text = runewidth.Truncate(text, remain, "")
		}
		out = append(out, Span{Text: text, Style: span.Style})
		width += runewidth.StringWidth(text)
	}
	r.lines = append(r.lines, out)
}

func tokenStyle(t chroma.TokenType) tcell.Style {
	base := tcell.StyleDefault
	switch t.Category() {
	case chroma.Keyword:
		return base.Foreground(tcell.ColorFuchsia)
	case chroma.Literal:
		if t.SubCategory() == chroma.LiteralString {
			return base.Foreground(tcell.ColorGreen)
		}
		return base.Foreground(tcell.ColorAqua)
	case chroma.Comment:
		return base.Foreground(tcell.ColorGray)
	case chroma.Operator, chroma.Punctuation:
		return base.Foreground(tcell.ColorSilver)
	case chroma.Name:
		return base.Foreground(tcell.ColorWhite)
	default:
		return codeStyle
	}
}
