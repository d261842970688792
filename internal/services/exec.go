package services

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
)

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onStdout func(string)) error
}

const stderrTailLines = 12

// CommandExecutor runs binaries with os/exec. Stdout lines go to the callback;
// stderr is echoed to Stderr when set and its tail is attached to failures.
type CommandExecutor struct {
	Stderr io.Writer
}

func (e CommandExecutor) Run(ctx context.Context, binary string, args []string, onStdout func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", binary, err)
	}

	var (
		wg      sync.WaitGroup
		scanErr error
		once    sync.Once
		tail    []string
	)

	scan := func(r io.Reader, forward func(string)) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			forward(scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			once.Do(func() {
				scanErr = err
			})
		}
	}

	wg.Add(2)
	go scan(stdout, func(line string) {
		if onStdout != nil {
			onStdout(line)
		}
	})
	go scan(stderr, func(line string) {
		if e.Stderr != nil {
			fmt.Fprintln(e.Stderr, line)
		}
		tail = append(tail, line)
		if len(tail) > stderrTailLines {
			tail = tail[len(tail)-stderrTailLines:]
		}
	})

	wg.Wait()
	if scanErr != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return fmt.Errorf("scan output: %w", scanErr)
	}

	if err := cmd.Wait(); err != nil {
		if len(tail) > 0 {
			return fmt.Errorf("%s: %w: %s", binary, err, strings.Join(tail, " | "))
		}
		return fmt.Errorf("%s: %w", binary, err)
	}
	return nil
}
