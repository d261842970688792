package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"musicosa/internal/artifacts"
	"musicosa/internal/composite"
	"musicosa/internal/config"
	"musicosa/internal/flowgate"
	"musicosa/internal/fulfillment"
	"musicosa/internal/logging"
	"musicosa/internal/ranking"
	"musicosa/internal/render"
	"musicosa/internal/services"
	"musicosa/internal/store"
	"musicosa/internal/submissions"
	"musicosa/internal/videoclips"
)

// Stage ordinals.
const (
	StageSubmissions = iota + 1
	StageRanking
	StageFulfillment
	StageRender
	StageVideoclips
	StageComposite
)

var stageTitles = map[int]string{
	StageSubmissions: "Submission Validation",
	StageRanking:     "Ranking",
	StageFulfillment: "Templates Pre-Generation Fulfillment",
	StageRender:      "Templates Generation",
	StageVideoclips:  "Videoclips Acquisition",
	StageComposite:   "Video Bits Generation",
}

const defaultRenderRetryDelay = 2 * time.Second

// runGates drives the collector gate and then the execution gate of one
// stage. The execution gate reloads data through the same collector.
func runGates[D, O any](ctx context.Context, d *Driver, stage int,
	collect func(ctx context.Context, cfg *config.Config) (D, error), collectControls flowgate.Controls,
	execute func(ctx context.Context, cfg *config.Config, data D) (O, error), executeControls flowgate.Controls,
) (O, error) {
	var zero O
	takesConfig := func(cs flowgate.Controls) bool {
		return cs.Has(flowgate.ReloadConfig) || cs.Has(flowgate.ReloadAll)
	}

	collector := flowgate.MustNew(flowgate.Step[struct{}, D]{
		Name:       fmt.Sprintf("stage_%d_collect", stage),
		Descriptor: flowgate.Descriptor{TakesConfig: takesConfig(collectControls)},
		Run: func(ctx context.Context, cfg *config.Config, _ struct{}) (D, error) {
			return collect(ctx, cfg)
		},
		LoadConfig: d.loadConfig,
	}, flowgate.Options{
		Controls:  collectControls,
		ErrHeader: fmt.Sprintf("[Stage %d | Input collection ERROR]", stage),
	})
	collected, err := collector.Run(ctx, d.runner, d.cfg, struct{}{})
	if err != nil {
		return zero, err
	}
	d.adopt(collected.Config)

	executor := flowgate.MustNew(flowgate.Step[D, O]{
		Name:        fmt.Sprintf("stage_%d_execute", stage),
		Descriptor:  flowgate.Descriptor{TakesConfig: takesConfig(executeControls), TakesData: true},
		Run:         execute,
		LoadConfig:  d.loadConfig,
		CollectData: collect,
	}, flowgate.Options{
		Controls:  executeControls,
		ErrHeader: fmt.Sprintf("[Stage %d | Execution ERROR]", stage),
	})
	executed, err := executor.Run(ctx, d.runner, d.cfg, collected.Value)
	if err != nil {
		return zero, err
	}
	d.adopt(executed.Config)
	return executed.Value, nil
}

// fatal marks errors no retry can fix while the run holds the store.
func fatal(stage int, op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, store.ErrSettingNotSet),
		errors.Is(err, store.ErrSettingType),
		errors.Is(err, store.ErrUnknownSetting),
		errors.Is(err, submissions.ErrNoAwards),
		errors.Is(err, ranking.ErrInvalidDigits),
		errors.Is(err, ranking.ErrEmptyInput),
		errors.Is(err, fulfillment.ErrNoEntries):
		return services.Wrap(services.ErrConfiguration, fmt.Sprintf("stage %d", stage), op, "", err)
	}
	return err
}

func layout(cfg *config.Config) artifacts.Layout {
	return artifacts.Layout{Artifacts: cfg.ArtifactsFolder, VideoBits: cfg.Stage6.VideoBitsFolder}
}

// Stage 1

type submissionsInput struct {
	Forms   []submissions.AwardForm
	Catalog []submissions.CatalogEntry
}

func (d *Driver) collectSubmissions(_ context.Context, cfg *config.Config) (submissionsInput, error) {
	forms, err := submissions.ParseFormsFolder(cfg.Stage1.FormsFolder)
	if err != nil {
		return submissionsInput{}, err
	}
	catalog, err := submissions.ParseCatalogFile(cfg.Stage1.EntriesFile)
	if err != nil {
		return submissionsInput{}, err
	}
	return submissionsInput{Forms: forms, Catalog: catalog}, nil
}

func (d *Driver) executeSubmissions(_ context.Context, _ *config.Config, in submissionsInput) (submissions.Output, error) {
	out, err := submissions.Validate(submissions.Input{
		Forms:    in.Forms,
		Catalog:  in.Catalog,
		Awards:   d.state.Awards,
		Members:  d.state.Members,
		Settings: d.state.Settings,
	})
	if err != nil {
		return submissions.Output{}, fatal(StageSubmissions, "validate", err)
	}
	for _, msg := range out.Errors {
		fmt.Fprintln(d.out, msg)
	}
	submissionsSummary(d.out, in, out)
	return out, nil
}

func (d *Driver) stageSubmissions(ctx context.Context) error {
	out, err := runGates(ctx, d, StageSubmissions,
		d.collectSubmissions, flowgate.PresetRetryOrReconfig,
		d.executeSubmissions, flowgate.PresetFullStage)
	if err != nil {
		return err
	}
	if !out.Valid() {
		logging.WarnWithContext(logging.WithContext(ctx, d.logger), "submissions accepted with validation errors", "validation_errors",
			logging.Int("error_count", len(out.Errors)),
			logging.String(logging.FieldImpact, "records that failed validation are not stored"),
		)
	}
	d.state.RegisterSubmissions(out)
	return nil
}

// Stage 2

type rankingInput struct {
	Groups  []ranking.Group
	Votes   []ranking.Vote
	Members []string
	Authors map[string]string
	Digits  int
	Empty   []string
}

type rankingOutcome struct {
	Entries  []store.EntryStats
	Members  []store.MemberStats
	Warnings []string
	Policy   string
	Seed     uint64
	Scope    ranking.Scope
}

func (d *Driver) collectRanking(_ context.Context, _ *config.Config) (rankingInput, error) {
	s := d.state
	digits, err := s.Settings.Int(store.KeySignificantDecimalDigits)
	if err != nil {
		return rankingInput{}, fatal(StageRanking, "read settings", err)
	}
	in := rankingInput{Digits: digits, Authors: make(map[string]string)}
	scores := make(map[string][]float64)
	for _, sc := range s.Scores {
		scores[sc.EntryID] = append(scores[sc.EntryID], sc.Value)
		in.Votes = append(in.Votes, ranking.Vote{Member: sc.MemberID, EntryID: sc.EntryID, Value: sc.Value})
	}
	for _, m := range s.Members {
		in.Members = append(in.Members, m.ID)
	}
	for _, a := range s.Awards {
		group := ranking.Group{Key: a.Slug}
		for _, e := range s.Entries {
			if e.Award != a.Slug {
				continue
			}
			group.Candidates = append(group.Candidates, ranking.Candidate{EntryID: e.ID, Author: e.AuthorID, Scores: scores[e.ID]})
			if e.AuthorID != "" {
				in.Authors[e.ID] = e.AuthorID
			}
		}
		if len(group.Candidates) == 0 {
			in.Empty = append(in.Empty, a.Slug)
			continue
		}
		in.Groups = append(in.Groups, group)
	}
	if len(in.Groups) == 0 {
		return rankingInput{}, fatal(StageRanking, "collect", fmt.Errorf("%w: no entries registered", ranking.ErrEmptyInput))
	}
	return in, nil
}

func tieBreaker(cfg *config.Config, in rankingInput) (ranking.TieBreaker, uint64) {
	if cfg.Ranking.TieBreak == config.TieBreakAuthorAvgGiven {
		return ranking.AuthorAverageGiven{Averages: ranking.GivenAverages(in.Votes, in.Digits)}, 0
	}
	seed := uint64(cfg.Ranking.Seed)
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return ranking.NewRandom(seed), seed
}

func (d *Driver) executeRanking(ctx context.Context, cfg *config.Config, in rankingInput) (rankingOutcome, error) {
	policy, seed := tieBreaker(cfg, in)
	scope := ranking.ScopeGlobal
	if cfg.Ranking.SequenceScope == config.SequenceScopeAward {
		scope = ranking.ScopeGroup
	}
	res, err := ranking.Rank(in.Groups, ranking.Options{Digits: in.Digits, TieBreak: policy, Scope: scope})
	if err != nil {
		return rankingOutcome{}, fatal(StageRanking, "rank", err)
	}

	out := rankingOutcome{Policy: policy.Name(), Seed: seed, Scope: scope}
	for _, slug := range in.Empty {
		out.Warnings = append(out.Warnings, fmt.Sprintf("Award '%s' has no entries", slug))
	}
	out.Warnings = append(out.Warnings, res.Warnings...)
	for _, st := range res.Stats {
		out.Entries = append(out.Entries, store.EntryStats{
			EntryID:         st.EntryID,
			AvgScore:        st.AvgScore,
			RankingPlace:    st.RankingPlace,
			RankingSequence: st.RankingSequence,
		})
	}
	for _, ms := range ranking.MemberAverages(in.Members, in.Votes, in.Authors, res.Stats, in.Digits) {
		out.Members = append(out.Members, store.MemberStats{MemberID: ms.Member, AvgGiven: ms.AvgGiven, AvgReceived: ms.AvgReceived})
	}

	logging.WithContext(ctx, d.logger).Info("ranking computed",
		logging.String(logging.FieldEventType, "ranking_computed"),
		logging.String("tie_break", out.Policy),
		logging.String("sequence_scope", scope.String()),
		logging.Int("entries", len(out.Entries)),
		logging.Int("warnings", len(out.Warnings)),
	)
	rankingSummary(d.out, d.state, out)
	return out, nil
}

func (d *Driver) stageRanking(ctx context.Context) error {
	out, err := runGates(ctx, d, StageRanking,
		d.collectRanking, flowgate.PresetRetry,
		d.executeRanking, flowgate.PresetFullStage)
	if err != nil {
		return err
	}
	return d.state.RegisterRanking(out.Entries, out.Members)
}

// Stage 3

func (d *Driver) collectFulfillment(_ context.Context, _ *config.Config) (fulfillment.Input, error) {
	s := d.state
	return fulfillment.Input{
		Settings:     s.Settings,
		Avatars:      s.Avatars,
		Members:      s.Members,
		Awards:       s.Awards,
		Entries:      s.Entries,
		EntryStats:   s.EntryStats,
		Templates:    s.Templates,
		VideoOptions: s.VideoOptions,
	}, nil
}

func (d *Driver) executeFulfillment(ctx context.Context, _ *config.Config, in fulfillment.Input) (fulfillment.Output, error) {
	out, err := fulfillment.Fulfill(ctx, d.prompter, in)
	if err != nil {
		return fulfillment.Output{}, fatal(StageFulfillment, "fulfill", err)
	}
	fulfillmentSummary(d.out, out)
	return out, nil
}

func (d *Driver) stageFulfillment(ctx context.Context) error {
	fmt.Fprint(d.out, "  (!) Database checkpoint ahead\n\n")
	out, err := runGates(ctx, d, StageFulfillment,
		d.collectFulfillment, flowgate.PresetRetry,
		d.executeFulfillment, flowgate.PresetConfiglessStage)
	if err != nil {
		return err
	}
	d.state.RegisterFulfillment(out)
	return nil
}

// Stage 4

type renderInput struct {
	Entries []store.Entry
	Width   int
	Height  int
}

func (d *Driver) collectRender(_ context.Context, _ *config.Config) (renderInput, error) {
	width, height, err := render.Frame(d.state.Settings)
	if err != nil {
		return renderInput{}, fatal(StageRender, "read settings", err)
	}
	return renderInput{Entries: d.state.TemplatedEntries(), Width: width, Height: height}, nil
}

func (d *Driver) executeRender(ctx context.Context, cfg *config.Config, in renderInput) (render.Result, error) {
	opts := render.Options{
		TemplatesURL:           cfg.Stage4.TemplatesAPIURL,
		PresentationsURL:       cfg.Stage4.PresentationsAPIURL,
		Presentations:          cfg.StitchFinalVideo,
		RetryAttempts:          cfg.Stage4.GenRetryAttempts,
		RetryDelay:             d.renderRetryDelay,
		OverwriteTemplates:     cfg.Stage4.OverwriteTemplates,
		OverwritePresentations: cfg.Stage4.OverwritePresentations,
		Width:                  in.Width,
		Height:                 in.Height,
		Layout:                 layout(cfg),
	}
	tools, err := d.tools(cfg)
	if err != nil {
		return render.Result{}, err
	}
	res, err := render.New(tools.Capturer, d.logger).Render(ctx, opts, in.Entries)
	if err != nil {
		return res, err
	}
	renderSummary(d.out, opts.Presentations, res)
	return res, nil
}

// Item tallies are taken from the accepted result only, not every attempt.
func (d *Driver) stageRender(ctx context.Context) error {
	res, err := runGates(ctx, d, StageRender,
		d.collectRender, flowgate.PresetRetryOrReconfig,
		d.executeRender, flowgate.PresetFullStage)
	if err != nil {
		return err
	}
	d.metrics.addItems(StageRender, "generated", len(res.Entries.Generated)+len(res.Presentations.Generated))
	d.metrics.addItems(StageRender, "skipped", len(res.Entries.Skipped)+len(res.Presentations.Skipped))
	d.metrics.addItems(StageRender, "failed", res.Failed())
	return nil
}

// Stage 5

func (d *Driver) collectVideoclips(_ context.Context, _ *config.Config) ([]store.Entry, error) {
	return d.state.orderedEntries(), nil
}

func (d *Driver) executeVideoclips(ctx context.Context, cfg *config.Config, entries []store.Entry) (videoclips.Result, error) {
	tools, err := d.tools(cfg)
	if err != nil {
		return videoclips.Result{}, err
	}
	opts := videoclips.Options{Layout: layout(cfg), QuietFFmpeg: cfg.Stage5.QuietFFmpeg}
	res, err := videoclips.New(tools.Downloader, tools.Remuxer, d.logger).Acquire(ctx, opts, entries)
	if err != nil {
		return res, err
	}
	clipsSummary(d.out, res)
	return res, nil
}

func (d *Driver) stageVideoclips(ctx context.Context) error {
	res, err := runGates(ctx, d, StageVideoclips,
		d.collectVideoclips, flowgate.PresetRetryOrReconfig,
		d.executeVideoclips, flowgate.PresetFullStage)
	if err != nil {
		return err
	}
	d.metrics.addItems(StageVideoclips, "generated", len(res.Downloaded))
	d.metrics.addItems(StageVideoclips, "skipped", len(res.Skipped))
	d.metrics.addItems(StageVideoclips, "failed", len(res.Failed))
	return nil
}

// Stage 6

type compositeInput struct {
	Items    []composite.Item
	Limits   composite.Limits
	Unranked []string
}

func (d *Driver) collectComposite(_ context.Context, _ *config.Config) (compositeInput, error) {
	s := d.state
	limits, err := composite.LimitsFrom(s.Settings)
	if err != nil {
		return compositeInput{}, fatal(StageComposite, "read settings", err)
	}
	templates := make(map[string]store.Template, len(s.Templates))
	for _, t := range s.Templates {
		templates[t.EntryID] = t
	}
	windows := make(map[string]store.VideoOptions, len(s.VideoOptions))
	for _, v := range s.VideoOptions {
		windows[v.EntryID] = v
	}
	in := compositeInput{Limits: limits}
	for _, e := range s.orderedEntries() {
		seq := s.Sequence(e.ID)
		if seq == 0 {
			in.Unranked = append(in.Unranked, entryLabel(e))
			continue
		}
		item := composite.Item{Entry: e, Sequence: seq}
		if t, ok := templates[e.ID]; ok {
			item.Template = &t
		}
		if w, ok := windows[e.ID]; ok {
			item.Window = &w
		}
		in.Items = append(in.Items, item)
	}
	return in, nil
}

func (d *Driver) executeComposite(ctx context.Context, cfg *config.Config, in compositeInput) (composite.Result, error) {
	tools, err := d.tools(cfg)
	if err != nil {
		return composite.Result{}, err
	}
	opts := composite.Options{
		Layout:     layout(cfg),
		Overwrite:  cfg.Stage6.OverwriteVideoBits,
		Quiet:      cfg.Stage6.QuietFFmpeg,
		Stitch:     cfg.StitchFinalVideo,
		QuietFinal: cfg.Stage6.QuietFFmpegFinalVideo,
		FinalName:  cfg.Stage6.FinalVideoName,
		Transition: composite.Transition{
			Presentation: cfg.Stage6.PresentationDuration,
			Duration:     cfg.Stage6.TransitionDuration,
			Type:         cfg.Stage6.TransitionType,
		},
	}
	printList(d.out, "Unranked entries without a video bit", in.Unranked)
	res, err := composite.New(tools.Encoder, tools.Prober, d.logger, d.runID).Compose(ctx, in.Limits, opts, in.Items)
	if err != nil {
		return res, err
	}
	compositeSummary(d.out, res)
	return res, nil
}

func (d *Driver) stageComposite(ctx context.Context) error {
	res, err := runGates(ctx, d, StageComposite,
		d.collectComposite, flowgate.PresetRetryOrReconfig,
		d.executeComposite, flowgate.PresetFullStage)
	if err != nil {
		return err
	}
	d.metrics.addItems(StageComposite, "generated", len(res.Generated))
	d.metrics.addItems(StageComposite, "skipped", len(res.Skipped))
	d.metrics.addItems(StageComposite, "failed", len(res.Failed)+len(res.Missing))
	return nil
}
