// Package cli provides the command-line interface for sigauth.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vitalvas/sigauth/config"
)

// BuildInfo contains version information set at build time via ldflags.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

// GlobalFlags holds flags available to all commands.
type GlobalFlags struct {
	// ConfigPath is the YAML configuration file. Empty uses defaults and
	// SIGAUTH_* environment variables only.
	ConfigPath string
	// Verbose enables debug-level logging.
	Verbose bool
	// Quiet restricts logging to warnings and errors.
	Quiet bool
	// LogFile additionally writes logs to a rotated file.
	LogFile string
}

// app carries state shared by the commands of one invocation.
type app struct {
	flags     *GlobalFlags
	logger    zerolog.Logger
	logCloser io.Closer
	stderr    io.Writer
}

// loadConfig loads the configuration selected by --config.
func (a *app) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(a.flags.ConfigPath)
	if err != nil {
		return nil, err
	}

	a.logger.Debug().
		Str("scheme", cfg.Scheme).
		Str("nonce_store", cfg.NonceStore.Driver).
		Int("clients", len(cfg.Clients)).
		Msg("configuration loaded")

	return cfg, nil
}

func newRootCmd(flags *GlobalFlags, info BuildInfo) *cobra.Command {
	a := &app{flags: flags, logger: zerolog.Nop()}

	cmd := &cobra.Command{
		Use:   "sigauth",
		Short: "Sign and verify HTTP requests with HTTP Signatures",
		Long: `sigauth composes signing strings, signs requests and verifies
Authorization headers using draft-cavage HTTP Signatures and hs2019.`,
		Version: formatVersion(info),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a.stderr = cmd.ErrOrStderr()

			logger, closer, err := newLogger(flags, a.stderr)
			if err != nil {
				return err
			}

			a.logger = logger
			a.logCloser = closer

			return nil
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			if a.logCloser != nil {
				return a.logCloser.Close()
			}

			return nil
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&flags.ConfigPath, "config", "c", "", "path to the configuration file")
	cmd.PersistentFlags().BoolVarP(&flags.Verbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flags.Quiet, "quiet", "q", false, "log warnings and errors only")
	cmd.PersistentFlags().StringVar(&flags.LogFile, "log-file", "", "also write logs to this file, rotated")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	cmd.AddCommand(
		newComposeCmd(a),
		newSignCmd(a),
		newVerifyCmd(a),
		newServeCmd(a),
		newConfigCmd(a),
	)

	return cmd
}

func formatVersion(info BuildInfo) string {
	if info.Version == "" {
		info.Version = "dev"
	}
	if info.Commit == "" {
		info.Commit = "none"
	}
	if info.Date == "" {
		info.Date = "unknown"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", info.Version, info.Commit, info.Date)
}

// Execute runs the root command with the provided context and build info.
func Execute(ctx context.Context, info BuildInfo) error {
	return newRootCmd(&GlobalFlags{}, info).ExecuteContext(ctx)
}
