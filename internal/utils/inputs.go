package utils

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// PromptYesNo asks a yes/no question on stdout and reads the answer from stdin.
func PromptYesNo(question string) bool {
	return PromptYesNoFrom(bufio.NewReader(os.Stdin), os.Stdout, question)
}

// PromptYesNoFrom asks question on out and reads answers from in until it
// gets y/yes or n/no. EOF counts as "no".
func PromptYesNoFrom(in *bufio.Reader, out io.Writer, question string) bool {
	for {
		fmt.Fprintf(out, "%s (y/n): ", question)
		response, err := in.ReadString('\n')
		response = strings.ToLower(strings.TrimSpace(response))

		switch response {
		case "y", "yes":
			return true
		case "n", "no":
			return false
		}
		if err != nil {
			return false
		}
		fmt.Fprintln(out, "Please enter y or n")
	}
}
