package notify

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Style selects how TerminalSink renders toasts.
type Style string

const (
	StyleAuto  Style = "auto"
	StylePlain Style = "plain"
	StyleFancy Style = "fancy"
	StyleQuiet Style = "quiet"
)

var (
	successStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("10"))
	failureStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("9"))
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)
)

// TerminalSink prints toasts to a terminal, boxed and coloured when the
// output is a TTY.
type TerminalSink struct {
	out   io.Writer
	fancy bool
	quiet bool
}

// NewTerminalSink creates a sink writing to out. StyleAuto renders fancy
// output only when out is a terminal.
func NewTerminalSink(out io.Writer, style Style) *TerminalSink {
	s := &TerminalSink{out: out}
	switch style {
	case StyleFancy:
		s.fancy = true
	case StyleQuiet:
		s.quiet = true
	case StylePlain:
	default:
		if f, ok := out.(*os.File); ok {
			s.fancy = term.IsTerminal(int(f.Fd()))
		}
	}
	return s
}

// Notify renders the toast.
func (s *TerminalSink) Notify(t Toast) {
	if s.quiet {
		return
	}
	if !s.fancy {
		fmt.Fprintf(s.out, "%s %s: %s\n", plainIcon(t.Kind), t.Title, t.Message)
		return
	}

	style := successStyle
	icon := "✓"
	border := lipgloss.Color("10")
	if t.Kind == KindFailure {
		style = failureStyle
		icon = "✗"
		border = lipgloss.Color("9")
	}
	body := style.Render(icon+" "+t.Title) + "\n" + t.Message
	fmt.Fprintln(s.out, boxStyle.BorderForeground(border).Render(body))
}

func plainIcon(k Kind) string {
	if k == KindFailure {
		return "[x]"
	}
	return "[ok]"
}
