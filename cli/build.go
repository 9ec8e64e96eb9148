package cli

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/penenv/distkit/dist"
)

func buildCmd(configPath *string) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build distribution packages",
		Long:  "Build .deb and .rpm packages from the project manifest and the dist.yaml payload.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if format == "" {
				// The picker reads keys from stdin and renders to
				// stdout; both must be terminals.
				if !isTerminal(os.Stdin) || !isTerminal(os.Stdout) {
					return fmt.Errorf("no format selected, pass --format deb|rpm|all")
				}
				picked, err := pickFormat()
				if err != nil {
					return err
				}
				format = picked
			}

			formats, err := dist.ParseFormats(format)
			if err != nil {
				return err
			}

			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}

			report, err := dist.NewBuilder(cfg).Build(cmd.Context(), formats)
			if err != nil {
				return err
			}

			for _, artifact := range report.Artifacts {
				fmt.Fprintln(cmd.OutOrStdout(), artifact)
			}
			if report.ChecksumFile != "" {
				fmt.Fprintln(cmd.OutOrStdout(), report.ChecksumFile)
			}
			if report.SignatureFile != "" {
				fmt.Fprintln(cmd.OutOrStdout(), report.SignatureFile)
			}
			zap.L().Info("build finished",
				zap.String("version", report.Version),
				zap.Int("artifacts", len(report.Artifacts)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "package format: deb, rpm or all (interactive picker when omitted)")
	return cmd
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
