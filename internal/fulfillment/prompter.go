package fulfillment

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrInputClosed is returned when the input ends before a valid answer.
var ErrInputClosed = errors.New("input closed")

const indent = "    "

// Prompter asks line based questions.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPrompter reads answers from in and writes questions to out. A
// *bufio.Reader is used as is so the input can be shared with other readers.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	if out == nil {
		out = io.Discard
	}
	br, ok := in.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(in)
	}
	return &Prompter{in: br, out: out}
}

// Ask prints label and reads answers until validate accepts one. An empty
// answer takes def when def is not empty.
func (p *Prompter) Ask(label string, validate func(string) error, def string) (string, error) {
	for {
		if def != "" {
			fmt.Fprintf(p.out, "%s%s [%s]: ", indent, label, def)
		} else {
			fmt.Fprintf(p.out, "%s%s: ", indent, label)
		}
		line, err := p.in.ReadString('\n')
		closed := false
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return "", fmt.Errorf("read answer: %w", err)
			}
			closed = true
		}
		value := strings.TrimSpace(line)
		if closed && value == "" {
			return "", fmt.Errorf("%w: %s", ErrInputClosed, label)
		}
		if value == "" {
			value = def
		}
		if validate != nil {
			if verr := validate(value); verr != nil {
				fmt.Fprintf(p.out, "%s%s[!] %v\n", indent, indent, verr)
				if closed {
					return "", fmt.Errorf("%w: %s", ErrInputClosed, label)
				}
				continue
			}
		}
		return value, nil
	}
}

// Printf writes an informational line.
func (p *Prompter) Printf(format string, args ...any) {
	fmt.Fprintf(p.out, format+"\n", args...)
}
