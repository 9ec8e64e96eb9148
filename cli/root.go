// Package cli implements the penenv-dist command surface.
package cli

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/penenv/distkit/dist"
)

// Build metadata, stamped by the release pipeline via -ldflags.
var (
	Version = "dev"
	Commit  = "unknown"
)

func Execute() {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var debug bool
	var configPath string

	cmd := &cobra.Command{
		Use:           "penenv-dist",
		Short:         "Build, publish and install penenv packages",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			setupLogging(debug)
		},
	}

	cmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable verbose logging")
	cmd.PersistentFlags().StringVar(&configPath, "config", "dist.yaml", "path to the distribution config")

	cmd.AddCommand(
		buildCmd(&configPath),
		repoCmd(&configPath),
		installCmd(&configPath),
		uninstallCmd(&configPath),
		commandsCmd(),
		versionCmd(),
	)
	return cmd
}

// setupLogging installs the global console logger. Everything below the CLI
// logs through zap.L().
func setupLogging(debug bool) {
	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.Lock(os.Stderr),
		level,
	)
	zap.ReplaceGlobals(zap.New(core))
}

// loadConfig reads the dist.yaml named by --config.
func loadConfig(path string) (*dist.Config, error) {
	return dist.LoadConfig(path)
}
