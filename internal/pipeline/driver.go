package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"musicosa/internal/composite"
	"musicosa/internal/config"
	"musicosa/internal/deps"
	"musicosa/internal/flowgate"
	"musicosa/internal/fulfillment"
	"musicosa/internal/identity"
	"musicosa/internal/logging"
	"musicosa/internal/media/ffprobe"
	"musicosa/internal/services"
	"musicosa/internal/services/screenshot"
	"musicosa/internal/services/ytdlp"
	"musicosa/internal/store"
	"musicosa/internal/videoclips"
)

// Store is the persistence the driver needs: one snapshot at start and one
// commit per stage.
type Store interface {
	Committer
	Load(ctx context.Context) (*store.Snapshot, error)
}

// Tools bundles the external tool clients of stages 4 to 6.
type Tools struct {
	Capturer   screenshot.Capturer
	Downloader ytdlp.Downloader
	Remuxer    videoclips.Remuxer
	Encoder    composite.Encoder
	Prober     ffprobe.Prober
}

// Options configures a Driver.
type Options struct {
	// LoadConfig backs the reload-config gate controls.
	LoadConfig func() (*config.Config, error)
	// Tools builds the tool clients for the configuration in effect.
	Tools    func(*config.Config) (Tools, error)
	Runner   *flowgate.Runner
	Prompter *fulfillment.Prompter
	// Out receives banners, summaries, and validation messages.
	Out     io.Writer
	Logger  *slog.Logger
	Metrics *Metrics
	RunID   string
	// RenderRetryDelay is the pause between screenshot attempts.
	RenderRetryDelay time.Duration
	// SkipDependencyCheck disables the external binary check at start.
	SkipDependencyCheck bool
}

// Driver runs the six stages in order.
type Driver struct {
	cfg       *config.Config
	store     Store
	loadCfg   func() (*config.Config, error)
	tools     func(*config.Config) (Tools, error)
	runner    *flowgate.Runner
	prompter  *fulfillment.Prompter
	out       io.Writer
	logger    *slog.Logger
	metrics   *Metrics
	runID     string
	skipDeps  bool
	startFrom int
	state     *State

	renderRetryDelay time.Duration
}

// New validates the wiring and builds a driver.
func New(cfg *config.Config, st Store, opts Options) (*Driver, error) {
	if cfg == nil {
		return nil, errors.New("pipeline: configuration required")
	}
	if st == nil {
		return nil, errors.New("pipeline: store required")
	}
	if opts.LoadConfig == nil {
		return nil, errors.New("pipeline: config loader required")
	}
	if opts.Tools == nil {
		return nil, errors.New("pipeline: tool factory required")
	}
	d := &Driver{
		cfg:              cfg,
		store:            st,
		loadCfg:          opts.LoadConfig,
		tools:            opts.Tools,
		runner:           opts.Runner,
		prompter:         opts.Prompter,
		out:              opts.Out,
		logger:           opts.Logger,
		metrics:          opts.Metrics,
		runID:            strings.TrimSpace(opts.RunID),
		skipDeps:         opts.SkipDependencyCheck,
		startFrom:        cfg.StartFrom,
		renderRetryDelay: opts.RenderRetryDelay,
	}
	if d.out == nil {
		d.out = io.Discard
	}
	if d.logger == nil {
		d.logger = logging.NewNop()
	}
	d.logger = logging.NewComponentLogger(d.logger, "pipeline")
	if d.runID == "" {
		d.runID = identity.NewRunID()
	}
	if d.runner == nil {
		d.runner = flowgate.NewRunner(nil, flowgate.WithOutput(d.out), flowgate.WithLogger(opts.Logger),
			flowgate.WithDecisionHook(d.metrics.DecisionHook()))
	}
	if d.prompter == nil {
		d.prompter = fulfillment.NewPrompter(strings.NewReader(""), d.out)
	}
	if d.renderRetryDelay <= 0 {
		d.renderRetryDelay = defaultRenderRetryDelay
	}
	return d, nil
}

// RunID returns the run correlation id.
func (d *Driver) RunID() string { return d.runID }

// Config returns the configuration in effect, including gate reloads.
func (d *Driver) Config() *config.Config { return d.cfg }

// State returns the run state. It is nil before Run loads it.
func (d *Driver) State() *State { return d.state }

func (d *Driver) loadConfig() (*config.Config, error) {
	return d.loadCfg()
}

// adopt switches later stages to a configuration reloaded at a gate. The
// resume stage stays the one the run started with.
func (d *Driver) adopt(cfg *config.Config) {
	if cfg == nil || cfg == d.cfg {
		return
	}
	d.cfg = cfg
	logging.NewComponentLogger(d.logger, "config").Info("configuration reloaded",
		logging.String(logging.FieldEventType, "config_reloaded"),
		logging.Int("start_from", d.startFrom),
	)
}

type stageRun struct {
	ordinal int
	run     func(ctx context.Context) error
}

func (d *Driver) stages() []stageRun {
	return []stageRun{
		{StageSubmissions, d.stageSubmissions},
		{StageRanking, d.stageRanking},
		{StageFulfillment, d.stageFulfillment},
		{StageRender, d.stageRender},
		{StageVideoclips, d.stageVideoclips},
		{StageComposite, d.stageComposite},
	}
}

// Run loads the persisted state and executes every stage from start_from on.
// Each stage commits its records before the next one starts.
func (d *Driver) Run(ctx context.Context) error {
	ctx = services.WithRequestID(ctx, d.runID)
	logger := logging.WithContext(ctx, d.logger)
	started := time.Now()
	defer func() {
		if err := d.metrics.WriteTextfile(d.cfg.Metrics.Textfile); err != nil {
			logging.WarnWithContext(logger, "metrics export failed", "metrics_export_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "run metrics were not written"),
			)
		}
	}()

	snap, err := d.store.Load(ctx)
	if err != nil {
		return services.Wrap(services.ErrPersistence, "", "load state", "", err)
	}
	d.state = NewState(snap)
	printBanner(d.out, d.state.Metadata)
	if !d.skipDeps {
		d.checkDependencies(logger)
	}

	logger.Info("pipeline started",
		logging.String(logging.FieldEventType, "pipeline_start"),
		logging.Int("start_from", d.startFrom),
		logging.Int("awards", len(d.state.Awards)),
		logging.Int("entries", len(d.state.Entries)),
	)
	for _, st := range d.stages() {
		if st.ordinal < d.startFrom {
			continue
		}
		if err := d.runStage(ctx, st); err != nil {
			return err
		}
	}
	logger.Info("pipeline completed",
		logging.String(logging.FieldEventType, "pipeline_complete"),
		logging.Duration("pipeline_duration", time.Since(started)),
	)
	fmt.Fprintln(d.out, "\nPipeline completed ✔")
	return nil
}

func (d *Driver) runStage(ctx context.Context, st stageRun) error {
	stageName := fmt.Sprintf("stage %d", st.ordinal)
	stageCtx := services.WithStage(ctx, stageName)
	logger := logging.WithContext(stageCtx, d.logger)

	printStageHeader(d.out, st.ordinal)
	started := time.Now()
	logger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("stage_title", stageTitles[st.ordinal]),
	)

	if err := st.run(stageCtx); err != nil {
		outcome := "failed"
		if errors.Is(err, flowgate.ErrAborted) {
			outcome = "aborted"
		}
		d.metrics.observeStage(st.ordinal, outcome, time.Since(started))
		logging.ErrorWithContext(logger, "stage failed", "stage_failed",
			logging.String("outcome", outcome),
			logging.Error(err),
		)
		return err
	}

	committed, err := d.state.Checkpoint(stageCtx, d.store, stageName)
	if err != nil {
		fmt.Fprintf(d.out, "\nDatabase checkpoint failed. Cause: %v\nAborting...\n", err)
		d.metrics.observeStage(st.ordinal, "failed", time.Since(started))
		logging.ErrorWithContext(logger, "checkpoint failed", "checkpoint_failed", logging.Error(err))
		return err
	}
	if committed > 0 {
		fmt.Fprintf(d.out, "\nCheckpointing done ✔ (%d records)\n", committed)
		logger.Info("checkpoint committed",
			logging.String(logging.FieldEventType, "checkpoint_committed"),
			logging.Int("records", committed),
		)
	}
	d.metrics.addCommitted(st.ordinal, committed)

	elapsed := time.Since(started)
	d.metrics.observeStage(st.ordinal, "completed", elapsed)
	logger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("stage_duration", elapsed),
	)
	return nil
}

func (d *Driver) checkDependencies(logger *slog.Logger) {
	for _, missing := range deps.Missing(deps.CheckBinaries(deps.Requirements(d.cfg))) {
		fmt.Fprintf(d.out, "  (!) %s unavailable: %s\n", missing.Name, missing.Detail)
		logging.WarnWithContext(logger, "external binary unavailable", "dependency_missing",
			logging.String("dependency", missing.Name),
			logging.String("command", missing.Command),
			logging.Int("first_stage", missing.Stage),
			logging.String(logging.FieldImpact, fmt.Sprintf("stage %d items will fail", missing.Stage)),
		)
	}
}
