package main

import (
	"bufio"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"

	"musicosa/internal/config"
	"musicosa/internal/deps"
	"musicosa/internal/flowgate"
	"musicosa/internal/fulfillment"
	"musicosa/internal/logging"
	"musicosa/internal/media/ffprobe"
	"musicosa/internal/pipeline"
	"musicosa/internal/services/ffmpeg"
	"musicosa/internal/services/screenshot"
	"musicosa/internal/services/ytdlp"
	"musicosa/internal/store"
)

// runFlags are the per-run overrides of the run command. The root command
// runs with the zero value.
type runFlags struct {
	decisionsPath string
	startFrom     int
	skipDeps      bool
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline from start_from through the last stage",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, ctx, flags)
		},
	}

	cmd.Flags().StringVar(&flags.decisionsPath, "decisions", "", "YAML file answering gate prompts for unattended runs")
	cmd.Flags().IntVar(&flags.startFrom, "start-from", 0, "Override start_from for this run (1-6)")
	cmd.Flags().BoolVar(&flags.skipDeps, "skip-deps-check", false, "Skip the external binary check")
	return cmd
}

func runPipeline(cmd *cobra.Command, ctx *commandContext, flags runFlags) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	if flags.startFrom != 0 {
		override := *cfg
		override.StartFrom = flags.startFrom
		if err := override.Validate(); err != nil {
			return err
		}
		cfg = &override
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	st, err := store.Open(cmd.Context(), cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer st.Close()

	out := cmd.OutOrStdout()
	in := bufio.NewReader(cmd.InOrStdin())
	provider, err := decisionProvider(flags.decisionsPath, in, out)
	if err != nil {
		return err
	}
	metrics := pipeline.NewMetrics()
	runner := flowgate.NewRunner(provider,
		flowgate.WithOutput(out),
		flowgate.WithLogger(logger),
		flowgate.WithStyledMenus(shouldColorize(out)),
		flowgate.WithDecisionHook(metrics.DecisionHook()),
	)

	driver, err := pipeline.New(cfg, st, pipeline.Options{
		LoadConfig:          config.Loader(ctx.configPath),
		Tools:               newTools,
		Runner:              runner,
		Prompter:            fulfillment.NewPrompter(in, out),
		Out:                 out,
		Logger:              logger,
		Metrics:             metrics,
		SkipDependencyCheck: flags.skipDeps,
	})
	if err != nil {
		return err
	}
	return driver.Run(cmd.Context())
}

// decisionProvider answers gate prompts from a script when one is given and
// from the shared terminal input otherwise.
func decisionProvider(path string, in *bufio.Reader, out io.Writer) (flowgate.DecisionProvider, error) {
	if strings.TrimSpace(path) == "" {
		return flowgate.NewTerminalProvider(in, out), nil
	}
	expanded, err := config.ExpandPath(path)
	if err != nil {
		return nil, err
	}
	return flowgate.LoadScript(expanded)
}

// newTools builds the external tool clients for the configuration in effect.
func newTools(cfg *config.Config) (pipeline.Tools, error) {
	capturer, err := screenshot.New(cfg.ScreenshotBinary())
	if err != nil {
		return pipeline.Tools{}, err
	}
	encoder, err := ffmpeg.New(cfg.FFmpegBinary())
	if err != nil {
		return pipeline.Tools{}, err
	}
	var opts []ytdlp.Option
	if location, err := exec.LookPath(cfg.FFmpegBinary()); err == nil {
		opts = append(opts, ytdlp.WithFFmpegLocation(location))
	}
	if cfg.Stage5.UseCookies {
		opts = append(opts, ytdlp.WithCookiesFromBrowser(cfg.Stage5.CookiesBrowser))
	}
	downloader, err := ytdlp.New(cfg.DownloaderBinary(), opts...)
	if err != nil {
		return pipeline.Tools{}, err
	}
	probe := deps.ResolveFFprobe(cfg.FFmpegBinary())
	return pipeline.Tools{
		Capturer:   capturer,
		Downloader: downloader,
		Remuxer:    encoder,
		Encoder:    encoder,
		Prober:     ffprobe.New(probe.Command, nil),
	}, nil
}
