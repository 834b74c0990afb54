// Package cmd contains all the CLI commands for the application,
// built using the Cobra library.
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/naka-gawa/team-pulse/internal/config"
	"github.com/naka-gawa/team-pulse/internal/gateway"
	"github.com/naka-gawa/team-pulse/internal/usecase"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "team-pulse",
	Short: "A CLI tool to report recent GitHub activity of a team.",
	Long: `team-pulse collects recent commits (on every branch) and pull request reviews
for the members of one or more GitHub organizations, scores each contributor
and writes the result as JSON, Markdown, text, HTML, XLSX or Parquet.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
// A fatal error is printed to stdout as a single JSON object.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		writeFatal(os.Stdout, err, viper.GetBool("verbose"))
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose/debug logging")
	rootCmd.PersistentFlags().String("log-level", config.DefaultLogLevel, "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().String("log-format", config.DefaultLogFormat, "Log format: text or json")
	rootCmd.PersistentFlags().String("config", "", "Path to config file (default .team-pulse.yaml in . or $HOME)")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		panic(err)
	}
}

// initConfig reads a .env file, the config file and TEAM_PULSE_* environment variables.
func initConfig() {
	// A missing .env file is the normal case.
	_ = godotenv.Load()

	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName(".team-pulse")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
	}

	viper.SetEnvPrefix("TEAM_PULSE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// readConfigFile loads the config file if one exists.
func readConfigFile() error {
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return errors.Join(config.ErrInvalid, err)
		}
	}
	return nil
}

type fatalError struct {
	Error string   `json:"error"`
	Kind  string   `json:"kind"`
	Cause []string `json:"cause,omitempty"`
}

func fatalKind(err error) string {
	switch {
	case errors.Is(err, config.ErrInvalid):
		return "configuration"
	case errors.Is(err, usecase.ErrNoBackend):
		return "unreachable"
	case errors.Is(err, gateway.ErrAuthentication):
		return "authentication"
	default:
		return "runtime"
	}
}

// causeChain lists the messages of err and every error it wraps.
func causeChain(err error) []string {
	var chain []string
	for err != nil {
		chain = append(chain, err.Error())
		switch u := err.(type) {
		case interface{ Unwrap() []error }:
			wrapped := u.Unwrap()
			if len(wrapped) == 0 {
				return chain
			}
			err = wrapped[len(wrapped)-1]
		default:
			err = errors.Unwrap(err)
		}
	}
	return chain
}

func writeFatal(w io.Writer, err error, verbose bool) {
	out := fatalError{Error: err.Error(), Kind: fatalKind(err)}
	if verbose {
		out.Cause = causeChain(err)[1:]
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	_ = encoder.Encode(out)
}
