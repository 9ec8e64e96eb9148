package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/penenv/distkit/install"
	"github.com/penenv/distkit/manifest"
)

func installCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "install",
		Short: "Install the built binary for the current user",
		Long: "Copy the binary, desktop entry and icons below ~/.local without " +
			"touching the system package database. Safe to re-run: unchanged " +
			"files are left alone.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := installOptions(*configPath)
			if err != nil {
				return err
			}
			in, err := install.NewInstaller()
			if err != nil {
				return err
			}
			results, err := in.Install(opts)
			if err != nil {
				return err
			}
			printResults(cmd, results)
			return nil
		},
	}
}

func uninstallCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall",
		Short: "Remove a user-local installation",
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := installOptions(*configPath)
			if err != nil {
				return err
			}
			in, err := install.NewInstaller()
			if err != nil {
				return err
			}
			results, err := in.Uninstall(opts)
			if err != nil {
				return err
			}
			printResults(cmd, results)
			return nil
		},
	}
}

// installOptions maps the dist config and manifest onto user-local install
// options, mirroring what the packaged payload ships.
func installOptions(configPath string) (install.Options, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return install.Options{}, err
	}
	m, err := manifest.Read(cfg.ManifestPath)
	if err != nil {
		return install.Options{}, err
	}
	name := cfg.Name
	if name == "" {
		name = m.Name
	}
	zap.L().Debug("resolved install target", zap.String("name", name))

	return install.Options{
		AppName:    name,
		BinaryPath: cfg.Binary,
		IconPath:   cfg.Icon,
		IconSizes:  cfg.IconSizes,
		Entry: install.DesktopEntry{
			Name:       "PenEnv",
			Comment:    m.Description,
			Categories: []string{"Utility", "Security"},
			Keywords:   []string{"pentest", "terminal", "editor"},
		},
	}, nil
}

func printResults(cmd *cobra.Command, results []install.Result) {
	for _, r := range results {
		fmt.Fprintf(cmd.OutOrStdout(), "%-10s %s\n", r.Status, r.Path)
	}
}
