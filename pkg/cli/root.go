// Package cli implements the appkit command line.
package cli

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/edgeopslabs/appkit/pkg/common"
	"github.com/edgeopslabs/appkit/pkg/config"
)

// env holds what every subcommand shares: the flag/env view and the loaded
// host configuration.
type env struct {
	v   *viper.Viper
	cfg *config.Config
}

// NewRootCmd builds the appkit command tree. Flags may also be set through
// APPKIT_* environment variables.
func NewRootCmd() *cobra.Command {
	e := &env{v: viper.New()}

	root := &cobra.Command{
		Use:           common.AppName,
		Short:         "Build, check and host integration apps",
		Long:          "appkit checks app bundles for conformance and hosts configured app instances as MCP tools.",
		Version:       common.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return e.load(cmd.ErrOrStderr())
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", "appkit.yaml", "path to appkit configuration file")
	flags.String("log-level", "", "log level: debug, info, warn or error")
	flags.String("apps-dir", "", "directory of installed app bundles")
	flags.Bool("safe-mode", false, "deny sensitive tools that are not read-only")

	e.v.SetEnvPrefix("APPKIT")
	e.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	e.v.AutomaticEnv()
	for _, name := range []string{"config", "log-level", "apps-dir", "safe-mode"} {
		_ = e.v.BindPFlag(name, flags.Lookup(name))
	}

	root.AddCommand(
		newCheckCmd(),
		newAppsCmd(e),
		newToolsCmd(e),
		newCallCmd(e),
		newServeCmd(e),
		newInstallCmd(e),
	)
	return root
}

// load reads the configuration file and applies flag and environment
// overrides. A missing file falls back to defaults.
func (e *env) load(logOut io.Writer) error {
	path := e.v.GetString("config")
	cfg, err := config.LoadConfig(path)
	configureLogging(logOut, firstNonEmpty(e.v.GetString("log-level"), cfg.Server.LogLevel))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return exitError(exitUsage, "load config %s: %v", path, err)
		}
		slog.Debug("config file not found, using defaults", "path", path)
	}

	if level := e.v.GetString("log-level"); level != "" {
		cfg.Server.LogLevel = level
	}
	if dir := e.v.GetString("apps-dir"); dir != "" {
		cfg.Apps.Dir = dir
	}
	if e.v.GetBool("safe-mode") {
		cfg.Server.SafeMode = true
	}
	e.cfg = cfg
	return nil
}

func configureLogging(w io.Writer, level string) {
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: parseLogLevel(level)}))
	slog.SetDefault(logger)
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
