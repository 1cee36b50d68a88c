// Package prompt asks the operator yes/no and free-text questions on a terminal.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrNoInput is returned when input ends before an answer was given.
var ErrNoInput = errors.New("no input")

// Prompter asks the operator questions.
type Prompter interface {
	// Confirm asks a yes/no question. The default answer is no.
	Confirm(question string) (bool, error)
	// Ask asks for a non-empty line of text.
	Ask(question string) (string, error)
}

// Terminal is a Prompter over a reader and a writer, normally stdin and stdout.
type Terminal struct {
	in  *bufio.Reader
	out io.Writer
}

// NewTerminal creates a Terminal prompter.
func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{in: bufio.NewReader(in), out: out}
}

// Confirm implements Prompter. Unrecognized answers repeat the question.
func (t *Terminal) Confirm(question string) (bool, error) {
	for {
		fmt.Fprintf(t.out, "%s [y/N]: ", question)
		answer, err := t.readLine()
		if err != nil {
			return false, err
		}
		switch strings.ToLower(answer) {
		case "", "n", "no":
			return false, nil
		case "y", "yes":
			return true, nil
		}
		fmt.Fprintln(t.out, "Error: invalid input")
	}
}

// Ask implements Prompter. Empty answers repeat the question.
func (t *Terminal) Ask(question string) (string, error) {
	for {
		fmt.Fprintf(t.out, "%s: ", question)
		answer, err := t.readLine()
		if err != nil {
			return "", err
		}
		if answer != "" {
			return answer, nil
		}
	}
}

func (t *Terminal) readLine() (string, error) {
	line, err := t.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimSpace(line), nil
		}
		if errors.Is(err, io.EOF) {
			return "", ErrNoInput
		}
		return "", fmt.Errorf("failed to read answer: %w", err)
	}
	return strings.TrimSpace(line), nil
}
