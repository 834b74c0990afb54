package cmd

import (
	"fmt"
	"os"

	"github.com/naka-gawa/team-pulse/internal/config"
	"github.com/naka-gawa/team-pulse/internal/gateway"
	"github.com/naka-gawa/team-pulse/internal/logging"
	"github.com/naka-gawa/team-pulse/internal/render"
	"github.com/naka-gawa/team-pulse/internal/retry"
	"github.com/naka-gawa/team-pulse/internal/scoring"
	"github.com/naka-gawa/team-pulse/internal/usecase"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Collects team activity, scores it and writes the report",
	Long: `Collects commits on all branches and pull request reviews since the start of the
window for every organization, scores each contributor (Gemini when GEMINI_API_KEY
is set, a local heuristic otherwise) and writes the report in the selected formats.
GITHUB_TOKEN must be set.`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	d := config.Defaults()
	formats := make([]string, len(d.Formats))
	copy(formats, d.Formats)

	flags := reportCmd.Flags()
	flags.StringSliceP("orgs", "o", nil, "GitHub organizations to report on (required)")
	flags.String("backend", d.Backend, "Activity backend: graphql or rest")
	flags.String("api-url", "", "GitHub Enterprise REST API base URL")
	flags.String("graphql-url", "", "GitHub Enterprise GraphQL endpoint")
	flags.StringP("window", "w", d.Window, `Lookback window, e.g. "7 days", "2 weeks" or "48h"`)
	flags.StringSliceP("formats", "f", formats, "Output formats: json, markdown, text, html, xlsx, parquet")
	flags.Bool("stdout", false, "Write textual formats to standard output instead of files")
	flags.String("output-dir", d.OutputDir, "Directory for report files")
	flags.Int("max-retries", d.MaxRetries, "Retries after the first attempt of a remote call")
	flags.Float64("backoff-base", d.BackoffBase, "Exponential backoff base in seconds")
	flags.Int("max-pages", d.MaxPages, "Page ceiling for every paginated listing")
	flags.Int("per-page", d.PerPage, "Page size for paginated listings (max 100)")
	flags.Int("detail-commits", d.DetailCommits, "Most recent commits per user to fetch diff details for")
	flags.Int("prompt-commits", d.PromptCommits, "Most recent commits per user described to the scoring service")
	flags.Int("workers", d.Workers, "Organizations processed concurrently")
	flags.Float64("requests-per-second", d.RequestsPerSecond, "Request rate limit (0 = unlimited)")
	flags.Int("courtesy-every", d.CourtesyEvery, "Pause after this many repository checks (0 = never)")
	flags.Duration("courtesy-delay", d.CourtesyDelay, "Length of the courtesy pause")
	flags.String("gemini-model", d.GeminiModel, "Gemini model used for scoring")
	flags.Bool("no-llm", false, "Score everyone with the local heuristic")
	flags.String("team-name", "", "Team name shown in the report")
	if err := viper.BindPFlags(flags); err != nil {
		panic(err)
	}
}

func runReport(cmd *cobra.Command, _ []string) error {
	if err := readConfigFile(); err != nil {
		return err
	}
	raw := config.Defaults()
	if err := viper.Unmarshal(&raw); err != nil {
		return fmt.Errorf("%w: unable to unmarshal config: %w", config.ErrInvalid, err)
	}
	cfg, err := config.Build(raw, config.Env{
		GitHubToken:  os.Getenv("GITHUB_TOKEN"),
		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
	})
	if err != nil {
		return err
	}

	logger, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Verbose: cfg.Verbose})
	if err != nil {
		return fmt.Errorf("%w: %w", config.ErrInvalid, err)
	}
	ctx := cmd.Context()

	policy := retry.NewPolicy(cfg.MaxRetries, cfg.BackoffBase, logger)
	fetcher, err := gateway.New(cfg.Backend, gateway.Options{
		Token:             cfg.GitHubToken,
		RESTBaseURL:       cfg.APIURL,
		GraphQLURL:        cfg.GraphQLURL,
		PerPage:           cfg.PerPage,
		MaxPages:          cfg.MaxPages,
		RequestsPerSecond: cfg.RequestsPerSecond,
		CourtesyEvery:     cfg.CourtesyEvery,
		CourtesyDelay:     cfg.CourtesyDelay,
		Retry:             policy,
		Logger:            logger,
	})
	if err != nil {
		return err
	}

	var scoringGateway scoring.Gateway
	if cfg.UseLLM {
		gemini, err := scoring.NewGeminiGateway(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			logger.WithError(err).Warn("scoring service unavailable; every user gets the fallback score")
		} else {
			defer func() { _ = gemini.Close() }()
			scoringGateway = gemini
		}
	} else {
		logger.Info("remote scoring disabled; using the fallback heuristic")
	}

	scorer := scoring.NewScorer(scoringGateway, policy, cfg.PromptCommits, logger)
	aggregator := usecase.NewAggregator(fetcher, cfg.DetailCommits, logger)
	pipeline := usecase.NewPipeline(fetcher, aggregator, scorer, usecase.PipelineOptions{
		Organizations: cfg.Organizations,
		Window:        cfg.Window,
		WindowLabel:   cfg.WindowLabel,
		Team:          cfg.TeamName,
		Workers:       cfg.Workers,
		Patches:       scoringGateway != nil,
	}, logger)

	report, err := pipeline.Run(ctx)
	if err != nil {
		return err
	}

	writer := render.NewWriter(cfg.Formats, render.Options{Stdout: cfg.Stdout, Dir: cfg.OutputDir}, logger)
	written, err := writer.Write(report)
	if err != nil {
		return err
	}
	for _, path := range written {
		fmt.Fprintf(os.Stderr, "Wrote %s\n", path)
	}
	return nil
}
