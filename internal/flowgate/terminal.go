package flowgate

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// TerminalProvider reads decisions line by line from an interactive input.
type TerminalProvider struct {
	in  *bufio.Reader
	out io.Writer
}

// NewTerminalProvider reads answers from in and writes the input marker to out.
// A *bufio.Reader is used as is so other prompts can share the same input.
func NewTerminalProvider(in io.Reader, out io.Writer) *TerminalProvider {
	if out == nil {
		out = io.Discard
	}
	br, ok := in.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(in)
	}
	return &TerminalProvider{in: br, out: out}
}

// Decide blocks until a line is entered. Closed input yields ErrNoDecision.
func (p *TerminalProvider) Decide(_ context.Context, _ Prompt) (Control, error) {
	fmt.Fprint(p.out, "> ")
	line, err := p.in.ReadString('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("read decision: %w", err)
		}
		if strings.TrimSpace(line) == "" {
			return "", fmt.Errorf("%w: input closed", ErrNoDecision)
		}
	}
	return Control(strings.TrimSpace(line)), nil
}
