// Package editor implements the rich-text editing core: an HTML buffer, a
// selection over it, and the toolbar commands that transform it. The buffer
// is the authoritative draft value; every command rewrites it and the view
// is resynchronized from the buffer.
package editor

import (
	"golang.org/x/net/html"
)

// Mode is the presentation mode of the editing surface.
type Mode int

const (
	// ModeEdit accepts typing and toolbar commands.
	ModeEdit Mode = iota
	// ModePreview renders the current HTML read-only.
	ModePreview
)

// Alignment is a text-alignment direction for block content.
type Alignment string

const (
	AlignLeft   Alignment = "left"
	AlignCenter Alignment = "center"
	AlignRight  Alignment = "right"
)

// MaxHeadingLevel is the deepest heading the toolbar offers.
const MaxHeadingLevel = 4

// codePlaceholder is inserted by InlineCode when nothing is selected.
const codePlaceholder = "code"

// Editor owns the draft buffer. Selection offsets are rune positions into
// the buffer; commands outside edit mode, or without focus, silently no-op.
type Editor struct {
	buf      []rune
	selStart int
	selEnd   int
	mode     Mode
	focused  bool
}

// New creates an empty editor in edit mode.
func New() *Editor {
	return &Editor{}
}

// SetHTML replaces the buffer and collapses the selection. Arbitrary
// markup, including malformed tags, is accepted and stored as-is.
func (e *Editor) SetHTML(s string) {
	e.buf = []rune(s)
	e.selStart = 0
	e.selEnd = 0
}

// HTML returns the current draft value.
func (e *Editor) HTML() string {
	return string(e.buf)
}

// Mode returns the current presentation mode.
func (e *Editor) Mode() Mode {
	return e.mode
}

// TogglePreview switches between edit and preview. The buffer is never
// touched, so an edit → preview → edit round trip is lossless.
func (e *Editor) TogglePreview() {
	if e.mode == ModeEdit {
		e.mode = ModePreview
	} else {
		e.mode = ModeEdit
	}
}

// Focus marks the surface as the active target for commands.
func (e *Editor) Focus() { e.focused = true }

// Blur releases focus; subsequent commands no-op until refocused.
func (e *Editor) Blur() { e.focused = false }

// Select sets the selection to the rune range [start, end), clamped to the
// buffer. A collapsed range is a caret.
func (e *Editor) Select(start, end int) {
	if start > end {
		start, end = end, start
	}
	e.selStart = clamp(start, 0, len(e.buf))
	e.selEnd = clamp(end, 0, len(e.buf))
}

// Selection returns the current selection range.
func (e *Editor) Selection() (start, end int) {
	return e.selStart, e.selEnd
}

func (e *Editor) editable() bool {
	return e.focused && e.mode == ModeEdit
}

func (e *Editor) selectedText() string {
	return string(e.buf[e.selStart:e.selEnd])
}

// replaceSelection swaps the selected range for repl and selects the
// inserted text.
func (e *Editor) replaceSelection(repl string) {
	next := make([]rune, 0, len(e.buf))
	next = append(next, e.buf[:e.selStart]...)
	next = append(next, []rune(repl)...)
	next = append(next, e.buf[e.selEnd:]...)
	e.buf = next
	e.selEnd = e.selStart + len([]rune(repl))
}

// InsertText types plain text at the selection, replacing any selected
// content. The text is escaped the way a native surface would render it.
func (e *Editor) InsertText(s string) {
	if !e.editable() {
		return
	}
	e.replaceSelection(html.EscapeString(s))
	e.selStart = e.selEnd // caret after the inserted text
}

// wrapSelection wraps the selected markup in an inline tag. A collapsed
// selection is a no-op.
func (e *Editor) wrapSelection(tag string) {
	if !e.editable() || e.selStart == e.selEnd {
		return
	}
	e.replaceSelection("<" + tag + ">" + e.selectedText() + "</" + tag + ">")
}

// Bold wraps the selection in <strong>.
func (e *Editor) Bold() { e.wrapSelection("strong") }

// Italic wraps the selection in <em>.
func (e *Editor) Italic() { e.wrapSelection("em") }

// Underline wraps the selection in <u>.
func (e *Editor) Underline() { e.wrapSelection("u") }

// Strikethrough wraps the selection in <s>.
func (e *Editor) Strikethrough() { e.wrapSelection("s") }

// InlineCode wraps the selection in <code>, or inserts a placeholder
// snippet when nothing is selected.
func (e *Editor) InlineCode() {
	if !e.editable() {
		return
	}
	if e.selStart == e.selEnd {
		e.replaceSelection("<code>" + codePlaceholder + "</code>")
		return
	}
	e.wrapSelection("code")
}

// Link wraps the selection in an anchor. An empty URL means the user
// cancelled the prompt and nothing happens; a collapsed selection has no
// target to link.
func (e *Editor) Link(url string) {
	if !e.editable() || url == "" || e.selStart == e.selEnd {
		return
	}
	e.replaceSelection(`<a href="` + html.EscapeString(url) + `">` + e.selectedText() + "</a>")
}

// Unlink removes anchor tags inside the selection, keeping their content.
func (e *Editor) Unlink() {
	if !e.editable() || e.selStart == e.selEnd {
		return
	}
	unlinked, err := removeAnchors(e.selectedText())
	if err != nil {
		return
	}
	e.replaceSelection(unlinked)
}

// ClearFormatting replaces the selection with its plain text, dropping all
// markup.
func (e *Editor) ClearFormatting() {
	if !e.editable() || e.selStart == e.selEnd {
		return
	}
	e.replaceSelection(html.EscapeString(stripTags(e.selectedText())))
}

// Heading formats the block at the selection as a heading of the given
// level; level 0 restores a plain paragraph. Invalid levels no-op.
func (e *Editor) Heading(level int) {
	if level < 0 || level > MaxHeadingLevel {
		return
	}
	tag := "p"
	if level > 0 {
		tag = headingTag(level)
	}
	e.formatBlock(tag)
}

// Blockquote formats the block at the selection as a quotation.
func (e *Editor) Blockquote() {
	e.formatBlock("blockquote")
}

// formatBlock renames the block containing the selection, or wraps bare
// inline content in a fresh block element.
func (e *Editor) formatBlock(tag string) {
	if !e.editable() {
		return
	}
	nodes, renders, idx, ok := e.blockAt()
	if !ok {
		return
	}

	n := nodes[idx]
	if isBlockElement(n) {
		renameElement(n, tag)
		e.replaceBlock(renders, idx, n)
		return
	}
	el := newElement(tag)
	el.AppendChild(detach(n))
	e.replaceBlock(renders, idx, el)
}

// UnorderedList converts the block at the selection into a bulleted list,
// or back into paragraphs when it already is one.
func (e *Editor) UnorderedList() { e.insertList("ul") }

// OrderedList converts the block at the selection into a numbered list, or
// back into paragraphs when it already is one.
func (e *Editor) OrderedList() { e.insertList("ol") }

func (e *Editor) insertList(tag string) {
	if !e.editable() {
		return
	}
	nodes, renders, idx, ok := e.blockAt()
	if !ok {
		return
	}

	n := nodes[idx]
	switch {
	case n.Type == html.ElementNode && n.Data == tag:
		// Toggle off: every item becomes its own paragraph.
		var repl []*html.Node
		for li := n.FirstChild; li != nil; li = li.NextSibling {
			p := newElement("p")
			moveChildren(li, p)
			repl = append(repl, p)
		}
		if len(repl) == 0 {
			repl = append(repl, newElement("p"))
		}
		e.replaceBlock(renders, idx, repl...)
	case n.Type == html.ElementNode && (n.Data == "ul" || n.Data == "ol"):
		renameElement(n, tag)
		e.replaceBlock(renders, idx, n)
	default:
		list := newElement(tag)
		item := newElement("li")
		if isBlockElement(n) {
			moveChildren(n, item)
		} else {
			item.AppendChild(detach(n))
		}
		list.AppendChild(item)
		e.replaceBlock(renders, idx, list)
	}
}

// Align sets the text alignment of the block at the selection.
func (e *Editor) Align(a Alignment) {
	if a != AlignLeft && a != AlignCenter && a != AlignRight {
		return
	}
	if !e.editable() {
		return
	}
	nodes, renders, idx, ok := e.blockAt()
	if !ok {
		return
	}

	el := nodes[idx]
	if !isBlockElement(el) {
		wrapped := newElement("p")
		wrapped.AppendChild(detach(el))
		el = wrapped
	}
	setStyle(el, "text-align: "+string(a))
	e.replaceBlock(renders, idx, el)
}

// blockAt parses the buffer into top-level blocks and locates the one
// containing the selection start. Returns ok=false when the buffer is
// empty or unparsable, in which case the command no-ops.
func (e *Editor) blockAt() (nodes []*html.Node, renders []string, idx int, ok bool) {
	if len(e.buf) == 0 {
		return nil, nil, 0, false
	}
	nodes, err := parseFragment(string(e.buf))
	if err != nil || len(nodes) == 0 {
		return nil, nil, 0, false
	}

	renders = make([]string, len(nodes))
	for i, n := range nodes {
		renders[i] = renderNode(n)
	}

	pos := 0
	idx = len(nodes) - 1
	for i, r := range renders {
		end := pos + len([]rune(r))
		if e.selStart < end {
			idx = i
			break
		}
		pos = end
	}
	return nodes, renders, idx, true
}

// replaceBlock swaps block idx for the given nodes, resynchronizes the
// buffer from the parse result, and selects the replacement.
func (e *Editor) replaceBlock(renders []string, idx int, repl ...*html.Node) {
	var before, replaced, after string
	for i := range idx {
		before += renders[i]
	}
	for _, n := range repl {
		replaced += renderNode(detach(n))
	}
	for i := idx + 1; i < len(renders); i++ {
		after += renders[i]
	}

	e.buf = []rune(before + replaced + after)
	e.selStart = len([]rune(before))
	e.selEnd = e.selStart + len([]rune(replaced))
}

func headingTag(level int) string {
	return string([]byte{'h', byte('0' + level)})
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
