package flowgate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"musicosa/internal/config"
	"musicosa/internal/logging"
	"musicosa/internal/services"
)

var (
	// ErrAborted is returned when the operator chooses to abort the run.
	ErrAborted = errors.New("aborted by operator")
	// ErrInvalidControls reports a gate built with controls its step cannot honour.
	ErrInvalidControls = errors.New("invalid gate controls")
	// ErrNoDecision reports a decision source that has nothing left to answer with.
	ErrNoDecision = errors.New("no operator decision available")
)

// Descriptor declares which arguments a step consumes. Reload controls are
// only legal for the arguments a step actually takes.
type Descriptor struct {
	TakesConfig bool
	TakesData   bool
}

// Step is one unit of work guarded by a gate. D is the step's collected input,
// O its result.
//
// Run receives nil configuration when the descriptor does not take one, and
// the zero D when it does not take data. LoadConfig backs the reload-config
// controls and CollectData backs the reload-data controls.
type Step[D, O any] struct {
	Name        string
	Descriptor  Descriptor
	Run         func(ctx context.Context, cfg *config.Config, data D) (O, error)
	LoadConfig  func() (*config.Config, error)
	CollectData func(ctx context.Context, cfg *config.Config) (D, error)
}

// Options configures a gate.
type Options struct {
	// Controls enabled on this gate. Empty means PresetRetry.
	Controls Controls
	// ErrHeader prefixes printed step errors, e.g. "[Stage 4 | Execution]".
	ErrHeader string
}

// Gate guards a single step.
type Gate[D, O any] struct {
	step      Step[D, O]
	controls  Controls
	errHeader string
}

// Result is what a gate hands back once the operator lets the run move on.
type Result[O any] struct {
	Value O
	// Config is the configuration in effect after any reloads.
	Config *config.Config
	// Attempts counts invocations of the step.
	Attempts int
}

// New validates the step against the requested controls.
func New[D, O any](step Step[D, O], opts Options) (*Gate[D, O], error) {
	if step.Run == nil {
		return nil, fmt.Errorf("%w: step %q has no run function", ErrInvalidControls, step.Name)
	}
	controls := NewControls(opts.Controls...)
	if len(opts.Controls) == 0 {
		controls = PresetRetry
	}
	for _, c := range opts.Controls {
		if !c.Valid() {
			return nil, fmt.Errorf("%w: step %q: unknown control %q", ErrInvalidControls, step.Name, c)
		}
	}
	for _, c := range controls {
		if c.reloadsConfig() {
			if !step.Descriptor.TakesConfig {
				return nil, fmt.Errorf("%w: step %q does not take configuration but enables %q", ErrInvalidControls, step.Name, c)
			}
			if step.LoadConfig == nil {
				return nil, fmt.Errorf("%w: step %q enables %q without a config loader", ErrInvalidControls, step.Name, c)
			}
		}
		if c.reloadsData() {
			if !step.Descriptor.TakesData {
				return nil, fmt.Errorf("%w: step %q does not take data but enables %q", ErrInvalidControls, step.Name, c)
			}
			if step.CollectData == nil {
				return nil, fmt.Errorf("%w: step %q enables %q without a data collector", ErrInvalidControls, step.Name, c)
			}
		}
	}
	return &Gate[D, O]{step: step, controls: controls, errHeader: strings.TrimSpace(opts.ErrHeader)}, nil
}

// MustNew is New for statically known gates. It panics on misuse.
func MustNew[D, O any](step Step[D, O], opts Options) *Gate[D, O] {
	g, err := New(step, opts)
	if err != nil {
		panic(err)
	}
	return g
}

// Name returns the step name.
func (g *Gate[D, O]) Name() string { return g.step.Name }

// Controls returns the enabled control set.
func (g *Gate[D, O]) Controls() Controls { return g.controls }

type state int

const (
	stateRunning state = iota
	stateAwaitingSuccess
	stateAwaitingError
	stateDone
)

// Run executes the step until the operator accepts a result or aborts.
//
// Step errors are printed and turned into an error prompt, except fatal ones
// (see services.IsFatal) which end the gate at once. Otherwise the only errors
// returned are ErrAborted, a failing decision source, and context cancellation.
func (g *Gate[D, O]) Run(ctx context.Context, r *Runner, cfg *config.Config, data D) (Result[O], error) {
	if r == nil {
		r = NewRunner(nil)
	}
	logger := r.stepLogger(ctx, g.step.Name)

	var (
		last     O
		lastErr  error
		attempts int
	)
	current := stateRunning
	for current != stateDone {
		if err := ctx.Err(); err != nil {
			return Result[O]{}, err
		}
		switch current {
		case stateRunning:
			attempts++
			value, err := g.invoke(ctx, cfg, data)
			if err != nil && services.IsFatal(err) {
				r.printError(g.errHeader, err)
				return Result[O]{}, err
			}
			if err != nil {
				lastErr = err
				r.printError(g.errHeader, err)
				logging.WarnWithContext(logger, "gate step failed", "gate_step_failed",
					logging.Int("attempt", attempts),
					logging.Error(err),
					logging.String(logging.FieldImpact, "waiting for operator decision"),
				)
				current = stateAwaitingError
				continue
			}
			last, lastErr = value, nil
			if g.controls.Has(Continue) && !r.Suppressed() {
				current = stateAwaitingSuccess
			} else {
				current = stateDone
			}

		case stateAwaitingSuccess, stateAwaitingError:
			onError := current == stateAwaitingError
			offered := g.controls
			if onError {
				offered = g.controls.ErrorControls()
			}
			choice, err := r.choose(ctx, Prompt{Step: g.step.Name, Controls: offered, OnError: onError, Err: lastErr})
			if err != nil {
				return Result[O]{}, err
			}
			logger.Info("gate decision",
				logging.String(logging.FieldEventType, "gate_decision"),
				logging.String("control", string(choice)),
				logging.Bool("on_error", onError),
			)

			switch choice {
			case Abort:
				return Result[O]{}, fmt.Errorf("%w: %s", ErrAborted, g.step.Name)
			case Continue:
				current = stateDone
			case ContinueSuppress:
				r.suppress()
				current = stateDone
			case Retry:
				current = stateRunning
			case ReloadConfig, ReloadData, ReloadAll:
				nextCfg, nextData, err := g.reload(ctx, choice, cfg, data)
				if err != nil {
					lastErr = err
					r.printError(g.errHeader, err)
					logging.WarnWithContext(logger, "gate reload failed", "gate_reload_failed",
						logging.String("control", string(choice)),
						logging.Error(err),
						logging.String(logging.FieldImpact, "waiting for operator decision"),
					)
					current = stateAwaitingError
					continue
				}
				cfg, data = nextCfg, nextData
				current = stateRunning
			}
		}
	}
	return Result[O]{Value: last, Config: cfg, Attempts: attempts}, nil
}

func (g *Gate[D, O]) invoke(ctx context.Context, cfg *config.Config, data D) (out O, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("step %s panicked: %v", g.step.Name, rec)
		}
	}()
	var stepCfg *config.Config
	if g.step.Descriptor.TakesConfig {
		stepCfg = cfg
	}
	var stepData D
	if g.step.Descriptor.TakesData {
		stepData = data
	}
	return g.step.Run(ctx, stepCfg, stepData)
}

func (g *Gate[D, O]) reload(ctx context.Context, choice Control, cfg *config.Config, data D) (*config.Config, D, error) {
	if choice.reloadsConfig() {
		next, err := g.step.LoadConfig()
		if err != nil {
			return cfg, data, fmt.Errorf("reload config: %w", err)
		}
		cfg = next
	}
	if choice.reloadsData() {
		next, err := g.step.CollectData(ctx, cfg)
		if err != nil {
			return cfg, data, fmt.Errorf("reload data: %w", err)
		}
		data = next
	}
	return cfg, data, nil
}
