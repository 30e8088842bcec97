package transcript

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const separator = "--------------------------------------------"

// Entry is one decoded sample. Source is the author of the input, Target the
// author the output was conditioned on.
type Entry struct {
	Source    string
	SourceIdx int
	Target    string
	TargetIdx int

	Input  string
	Output string

	// Reverse is printed when HasReverse is set.
	Reverse    string
	HasReverse bool
}

// Printer writes colour-coded transcripts. Colours are dropped when the
// writer is not a terminal.
type Printer struct {
	w io.Writer

	inLabel  lipgloss.Style
	outLabel lipgloss.Style
	authors  []lipgloss.Style
}

func New(w io.Writer) *Printer {
	return NewWithRenderer(w, lipgloss.NewRenderer(w))
}

func NewWithRenderer(w io.Writer, r *lipgloss.Renderer) *Printer {
	return &Printer{
		w:        w,
		inLabel:  r.NewStyle().Foreground(lipgloss.Color("2")),
		outLabel: r.NewStyle().Foreground(lipgloss.Color("8")),
		authors: []lipgloss.Style{
			r.NewStyle().Foreground(lipgloss.Color("1")),
			r.NewStyle().Foreground(lipgloss.Color("4")),
		},
	}
}

func (p *Printer) author(idx int) lipgloss.Style {
	if idx < 0 {
		idx = -idx
	}
	return p.authors[idx%len(p.authors)]
}

func (p *Printer) line(b *strings.Builder, label lipgloss.Style, tag, author string, text lipgloss.Style, body string) {
	b.WriteString(label.Render(fmt.Sprintf("%s %6s: ", tag, author)))
	b.WriteString(text.Render(body))
	b.WriteByte('\n')
}

// Print writes e as a separator, a header and the Inp/Out/Rev lines.
func (p *Printer) Print(e Entry) error {
	var b strings.Builder
	b.WriteString(separator + "\n")
	fmt.Fprintf(&b, "Translate from %s to %s\n", e.Source, e.Target)
	p.line(&b, p.inLabel, "Inp", e.Source, p.author(e.SourceIdx), e.Input)
	p.line(&b, p.outLabel, "Out", e.Target, p.author(e.TargetIdx), e.Output)
	if e.HasReverse {
		p.line(&b, p.inLabel, "Rev", e.Source, p.author(e.SourceIdx), e.Reverse)
	}
	_, err := io.WriteString(p.w, b.String())
	return err
}
