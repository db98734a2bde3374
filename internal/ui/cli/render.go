package cli

import (
	"fmt"
	"io"
	"strings"

	"proscope/internal/engine/highlight"
	"proscope/internal/engine/index"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true)

	scopeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	referenceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FBBF24"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)
)

var syntaxStyles = map[highlight.Style]lipgloss.Style{
	highlight.StyleComment:      lipgloss.NewStyle().Foreground(lipgloss.Color("#64748B")).Italic(true),
	highlight.StyleCommentLine:  lipgloss.NewStyle().Foreground(lipgloss.Color("#64748B")).Italic(true),
	highlight.StyleString:       lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B")),
	highlight.StyleInclude:      lipgloss.NewStyle().Foreground(lipgloss.Color("#A855F7")),
	highlight.StylePreprocessor: lipgloss.NewStyle().Foreground(lipgloss.Color("#EC4899")),
	highlight.StyleNumber:       lipgloss.NewStyle().Foreground(lipgloss.Color("#22D3EE")),
	highlight.StyleKeyword:      lipgloss.NewStyle().Foreground(lipgloss.Color("#3B82F6")).Bold(true),
	highlight.StyleOperator:     lipgloss.NewStyle().Foreground(lipgloss.Color("#94A3B8")),
}

func renderOutline(w io.Writer, root *index.OutlineNode) {
	root.Walk(func(n *index.OutlineNode, depth int) {
		if depth == 0 {
			fmt.Fprintln(w, titleStyle.Render(n.Name))
			return
		}
		indent := strings.Repeat("  ", depth)
		label := n.Kind.String() + " " + n.Name
		switch n.Kind {
		case index.OutlineProcedure, index.OutlineFunction, index.OutlineTrigger:
			label = scopeStyle.Render(label)
		case index.OutlineInclude, index.OutlineRun:
			label = referenceStyle.Render(label)
		}
		fmt.Fprintf(w, "%s%s %s\n", indent, label, statusStyle.Render(fmt.Sprintf(":%d", n.Line+1)))
	})
}

// renderSource writes lines [from, to] of text with the given spans styled.
func renderSource(w io.Writer, text string, spans []highlight.StyleSpan, from, to int) {
	bounds := lineBounds(text)
	byLine := make(map[int][]highlight.StyleSpan)
	for _, s := range spans {
		byLine[s.Line] = append(byLine[s.Line], s)
	}
	for line := from; line <= to && line < len(bounds); line++ {
		start, end := bounds[line][0], bounds[line][1]
		var b strings.Builder
		pos := start
		for _, s := range byLine[line] {
			if s.Start > pos {
				b.WriteString(text[pos:s.Start])
			}
			seg := text[s.Start:s.End]
			if st, ok := syntaxStyles[s.Style]; ok {
				seg = st.Render(seg)
			}
			b.WriteString(seg)
			pos = s.End
		}
		if end > pos {
			b.WriteString(text[pos:end])
		}
		fmt.Fprintf(w, "%s %s\n", statusStyle.Render(fmt.Sprintf("%4d", line+1)), b.String())
	}
}

// lineBounds returns the [start, end) byte range of every line, excluding
// the line break. "\r\n", "\n" and a lone "\r" all end a line.
func lineBounds(text string) [][2]int {
	var out [][2]int
	start := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\n':
			out = append(out, [2]int{start, i})
			start = i + 1
		case '\r':
			end := i
			if i+1 < len(text) && text[i+1] == '\n' {
				i++
			}
			out = append(out, [2]int{start, end})
			start = i + 1
		}
	}
	return append(out, [2]int{start, len(text)})
}

func levelStyle(level string) lipgloss.Style {
	switch level {
	case "error":
		return errorStyle
	case "warning":
		return referenceStyle
	default:
		return statusStyle
	}
}
