package flowgate

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"musicosa/internal/logging"
	"musicosa/internal/services"
)

// Prompt describes one pending operator decision.
type Prompt struct {
	Step     string
	Controls Controls
	OnError  bool
	// Err is the failure that led to an error prompt.
	Err error
}

// DecisionProvider answers gate prompts. The runner validates the answer
// against Prompt.Controls and asks again when it is not enabled.
type DecisionProvider interface {
	Decide(ctx context.Context, prompt Prompt) (Control, error)
}

// Runner holds the state shared by every gate of one run.
type Runner struct {
	decisions  DecisionProvider
	out        io.Writer
	logger     *slog.Logger
	styled     bool
	onDecision func(step string, choice Control)

	mu         sync.Mutex
	suppressed bool
}

// RunnerOption customises a Runner.
type RunnerOption func(*Runner)

// WithOutput sets where menus and step errors are printed.
func WithOutput(w io.Writer) RunnerOption {
	return func(r *Runner) {
		if w != nil {
			r.out = w
		}
	}
}

// WithLogger sets the structured logger for gate events.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithStyledMenus renders menus with terminal styling.
func WithStyledMenus(styled bool) RunnerOption {
	return func(r *Runner) { r.styled = styled }
}

// WithDecisionHook registers a callback invoked for every accepted decision.
func WithDecisionHook(fn func(step string, choice Control)) RunnerOption {
	return func(r *Runner) { r.onDecision = fn }
}

// NewRunner builds a runner. A nil provider answers every prompt with
// ErrNoDecision, which suits runs where no gate should ever pause.
func NewRunner(decisions DecisionProvider, opts ...RunnerOption) *Runner {
	r := &Runner{
		decisions: decisions,
		out:       io.Discard,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Suppressed reports whether continuation prompts have been switched off.
func (r *Runner) Suppressed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.suppressed
}

// suppress sets the one-way latch.
func (r *Runner) suppress() {
	r.mu.Lock()
	r.suppressed = true
	r.mu.Unlock()
}

func (r *Runner) stepLogger(ctx context.Context, step string) *slog.Logger {
	logger := logging.NewComponentLogger(r.logger, "flowgate")
	if _, ok := services.StageFromContext(ctx); !ok && step != "" {
		ctx = services.WithStage(ctx, step)
	}
	return logging.WithContext(ctx, logger).With(logging.String("step", step))
}

func (r *Runner) choose(ctx context.Context, prompt Prompt) (Control, error) {
	if r.decisions == nil {
		return "", fmt.Errorf("%w: step %s", ErrNoDecision, prompt.Step)
	}
	for {
		renderMenu(r.out, prompt, r.styled)
		choice, err := r.decisions.Decide(ctx, prompt)
		if err != nil {
			return "", err
		}
		if parsed, ok := ParseControl(string(choice)); ok && prompt.Controls.Has(parsed) {
			if r.onDecision != nil {
				r.onDecision(prompt.Step, parsed)
			}
			return parsed, nil
		}
		fmt.Fprintf(r.out, "Invalid choice '%s'\n", choice)
		if err := ctx.Err(); err != nil {
			return "", err
		}
	}
}

func (r *Runner) printError(header string, err error) {
	if header != "" {
		fmt.Fprintf(r.out, "%s %v\n", header, err)
		return
	}
	fmt.Fprintf(r.out, "%v\n", err)
}
