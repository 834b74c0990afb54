// Package config turns raw flag, file and environment input into a validated Config.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/naka-gawa/team-pulse/internal/gateway"
	"github.com/naka-gawa/team-pulse/internal/render"
	"github.com/naka-gawa/team-pulse/internal/retry"
	"github.com/naka-gawa/team-pulse/internal/scoring"
	"github.com/naka-gawa/team-pulse/internal/usecase"
)

// Defaults for every tunable key.
const (
	DefaultWindow            = "7 days"
	DefaultOutputDir         = "."
	DefaultMaxPages          = gateway.DefaultMaxPages
	DefaultPerPage           = gateway.DefaultPerPage
	DefaultWorkers           = 1
	DefaultRequestsPerSecond = 5.0
	DefaultCourtesyEvery     = gateway.DefaultCourtesyEvery
	DefaultCourtesyDelay     = gateway.DefaultCourtesyDelay
	DefaultLogLevel          = "warn"
	DefaultLogFormat         = "text"
)

// ErrInvalid marks configuration that cannot start a run.
var ErrInvalid = errors.New("invalid configuration")

// Raw holds the unvalidated configuration from all sources (file, env, flags).
// Viper unmarshals into this struct.
type Raw struct {
	Orgs              []string      `mapstructure:"orgs"`
	Backend           string        `mapstructure:"backend"`
	APIURL            string        `mapstructure:"api-url"`
	GraphQLURL        string        `mapstructure:"graphql-url"`
	Window            string        `mapstructure:"window"`
	Formats           []string      `mapstructure:"formats"`
	Stdout            bool          `mapstructure:"stdout"`
	OutputDir         string        `mapstructure:"output-dir"`
	MaxRetries        int           `mapstructure:"max-retries"`
	BackoffBase       float64       `mapstructure:"backoff-base"`
	MaxPages          int           `mapstructure:"max-pages"`
	PerPage           int           `mapstructure:"per-page"`
	DetailCommits     int           `mapstructure:"detail-commits"`
	PromptCommits     int           `mapstructure:"prompt-commits"`
	Workers           int           `mapstructure:"workers"`
	RequestsPerSecond float64       `mapstructure:"requests-per-second"`
	CourtesyEvery     int           `mapstructure:"courtesy-every"`
	CourtesyDelay     time.Duration `mapstructure:"courtesy-delay"`
	GeminiModel       string        `mapstructure:"gemini-model"`
	NoLLM             bool          `mapstructure:"no-llm"`
	TeamName          string        `mapstructure:"team-name"`
	LogLevel          string        `mapstructure:"log-level"`
	LogFormat         string        `mapstructure:"log-format"`
	Verbose           bool          `mapstructure:"verbose"`
}

// Env holds the credentials read from plain environment variables.
type Env struct {
	GitHubToken  string
	GeminiAPIKey string
}

// Config is the validated configuration of one run.
type Config struct {
	Organizations     []string
	Backend           string
	APIURL            string
	GraphQLURL        string
	Window            time.Duration
	WindowLabel       string
	Formats           []render.Format
	Stdout            bool
	OutputDir         string
	MaxRetries        int
	BackoffBase       float64
	MaxPages          int
	PerPage           int
	DetailCommits     int
	PromptCommits     int
	Workers           int
	RequestsPerSecond float64
	CourtesyEvery     int
	CourtesyDelay     time.Duration
	GeminiModel       string
	// UseLLM is false when --no-llm is set or no API key is available.
	UseLLM    bool
	TeamName  string
	LogLevel  string
	LogFormat string
	Verbose   bool

	GitHubToken  string
	GeminiAPIKey string
}

// Defaults returns a Raw with every default applied.
func Defaults() Raw {
	return Raw{
		Backend:           gateway.BackendGraphQL,
		Window:            DefaultWindow,
		Formats:           []string{string(render.JSON)},
		OutputDir:         DefaultOutputDir,
		MaxRetries:        retry.DefaultMaxRetries,
		BackoffBase:       retry.DefaultBase,
		MaxPages:          DefaultMaxPages,
		PerPage:           DefaultPerPage,
		DetailCommits:     usecase.DefaultDetailCommits,
		PromptCommits:     scoring.DefaultPromptCommits,
		Workers:           DefaultWorkers,
		RequestsPerSecond: DefaultRequestsPerSecond,
		CourtesyEvery:     DefaultCourtesyEvery,
		CourtesyDelay:     DefaultCourtesyDelay,
		GeminiModel:       scoring.DefaultModel,
		LogLevel:          DefaultLogLevel,
		LogFormat:         DefaultLogFormat,
	}
}

// Build validates raw input and returns the run configuration.
func Build(raw Raw, env Env) (*Config, error) {
	var problems []string
	invalid := func(format string, args ...interface{}) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	cfg := &Config{
		Organizations:     splitList(raw.Orgs),
		Backend:           strings.ToLower(strings.TrimSpace(raw.Backend)),
		APIURL:            strings.TrimSpace(raw.APIURL),
		GraphQLURL:        strings.TrimSpace(raw.GraphQLURL),
		WindowLabel:       strings.TrimSpace(raw.Window),
		Stdout:            raw.Stdout,
		OutputDir:         raw.OutputDir,
		MaxRetries:        raw.MaxRetries,
		BackoffBase:       raw.BackoffBase,
		MaxPages:          raw.MaxPages,
		PerPage:           raw.PerPage,
		DetailCommits:     raw.DetailCommits,
		PromptCommits:     raw.PromptCommits,
		Workers:           raw.Workers,
		RequestsPerSecond: raw.RequestsPerSecond,
		CourtesyEvery:     raw.CourtesyEvery,
		CourtesyDelay:     raw.CourtesyDelay,
		GeminiModel:       raw.GeminiModel,
		UseLLM:            !raw.NoLLM && env.GeminiAPIKey != "",
		TeamName:          strings.TrimSpace(raw.TeamName),
		LogLevel:          raw.LogLevel,
		LogFormat:         raw.LogFormat,
		Verbose:           raw.Verbose,
		GitHubToken:       strings.TrimSpace(env.GitHubToken),
		GeminiAPIKey:      env.GeminiAPIKey,
	}

	if len(cfg.Organizations) == 0 {
		invalid("at least one organization is required (--orgs)")
	}
	if cfg.GitHubToken == "" {
		invalid("GITHUB_TOKEN environment variable is not set")
	}
	switch cfg.Backend {
	case "":
		cfg.Backend = gateway.BackendGraphQL
	case gateway.BackendGraphQL, gateway.BackendREST:
	default:
		invalid("backend must be %q or %q, got %q", gateway.BackendGraphQL, gateway.BackendREST, raw.Backend)
	}

	if cfg.WindowLabel == "" {
		cfg.WindowLabel = DefaultWindow
	}
	window, err := ParseWindow(cfg.WindowLabel)
	if err != nil {
		invalid("%v", err)
	}
	cfg.Window = window

	formats := splitList(raw.Formats)
	if len(formats) == 0 {
		formats = []string{string(render.JSON)}
	}
	seen := make(map[render.Format]struct{}, len(formats))
	for _, name := range formats {
		f, err := render.ParseFormat(name)
		if err != nil {
			invalid("%v", err)
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		cfg.Formats = append(cfg.Formats, f)
	}

	if cfg.OutputDir == "" {
		cfg.OutputDir = DefaultOutputDir
	}
	if cfg.MaxRetries < 0 {
		invalid("max-retries must not be negative, got %d", cfg.MaxRetries)
	}
	if cfg.BackoffBase < 1 {
		invalid("backoff-base must be at least 1, got %g", cfg.BackoffBase)
	}
	if cfg.MaxPages < 1 {
		invalid("max-pages must be positive, got %d", cfg.MaxPages)
	}
	if cfg.PerPage < 1 || cfg.PerPage > 100 {
		invalid("per-page must be between 1 and 100, got %d", cfg.PerPage)
	}
	if cfg.DetailCommits < 0 {
		invalid("detail-commits must not be negative, got %d", cfg.DetailCommits)
	}
	if cfg.PromptCommits < 1 {
		invalid("prompt-commits must be positive, got %d", cfg.PromptCommits)
	}
	if cfg.Workers < 1 {
		invalid("workers must be positive, got %d", cfg.Workers)
	}
	if cfg.RequestsPerSecond < 0 {
		invalid("requests-per-second must not be negative, got %g", cfg.RequestsPerSecond)
	}
	if cfg.CourtesyEvery < 0 || cfg.CourtesyDelay < 0 {
		invalid("courtesy-every and courtesy-delay must not be negative")
	}
	if cfg.GeminiModel == "" {
		cfg.GeminiModel = scoring.DefaultModel
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return cfg, nil
}

// splitList flattens comma separated entries, trimming blanks and duplicates.
func splitList(values []string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if _, ok := seen[part]; ok {
				continue
			}
			seen[part] = struct{}{}
			out = append(out, part)
		}
	}
	return out
}
