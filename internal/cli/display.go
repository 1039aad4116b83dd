package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"cuppasync/internal/queue"
)

// GetTerminalWidth returns the current terminal width, defaulting to 80 if unable to detect
func GetTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 80
	}
	return width
}

// borderWidth clamps the box width to something readable.
func borderWidth(termWidth int) int {
	w := termWidth - 2
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}

// ShowOperations prints a boxed per-operation summary of the queue, in
// order of first appearance. color enables ANSI colours.
func ShowOperations(w io.Writer, items []queue.Item, termWidth int, color bool) {
	width := borderWidth(termWidth)

	var order []string
	counts := make(map[string]int)
	retried := make(map[string]int)
	for _, item := range items {
		if _, seen := counts[item.Operation]; !seen {
			order = append(order, item.Operation)
		}
		counts[item.Operation]++
		if item.Retries > 0 {
			retried[item.Operation]++
		}
	}

	frame, name, dim, reset := "", "", "", ""
	if color {
		frame, name, dim, reset = "\033[1;36m", "\033[1;37m", "\033[90m", "\033[0m"
	}

	header := "─ Pending Operations "
	padding := width - len(header)
	if padding < 0 {
		padding = 0
	}
	fmt.Fprintf(w, "\n%s┌%s%s┐%s\n", frame, header, strings.Repeat("─", padding), reset)

	for _, op := range order {
		fmt.Fprintf(w, "  %s%-30s%s %d change", name, op, reset, counts[op])
		if counts[op] != 1 {
			fmt.Fprint(w, "s")
		}
		if n := retried[op]; n > 0 {
			fmt.Fprintf(w, " %s(%d retrying)%s", dim, n, reset)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "%s└%s┘%s\n", frame, strings.Repeat("─", width), reset)
}
