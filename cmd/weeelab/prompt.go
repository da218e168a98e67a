package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// errInterrupted marks a prompt cut short by Ctrl-C or end of input. The
// invocation stops before mutating anything and exits with its own code.
var errInterrupted = errors.New("interrupted")

// prompter serializes question/answer exchanges on the terminal. Input is
// read on a single goroutine so a pending read can lose a select against
// context cancellation.
type prompter struct {
	lines  <-chan string
	output io.Writer
}

func newPrompter(input io.Reader, output io.Writer) *prompter {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(input)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return &prompter{lines: lines, output: output}
}

// Ask prints the question and waits for one line of input.
func (p *prompter) Ask(ctx context.Context, question string) (string, error) {
	fmt.Fprint(p.output, question)
	select {
	case line, ok := <-p.lines:
		if !ok {
			fmt.Fprintln(p.output)
			return "", errInterrupted
		}
		return line, nil
	case <-ctx.Done():
		fmt.Fprintln(p.output)
		return "", errInterrupted
	}
}

// stdinIsTerminal reports whether a human is plausibly on the other end.
func stdinIsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}
