package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/penenv/distkit/deb"
	"github.com/penenv/distkit/dist"
)

func repoCmd(configPath *string) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "repo",
		Short: "Generate a flat APT repository index",
		Long: "Scan the output directory for .deb artifacts and write Packages, " +
			"Packages.gz and Release next to them. When " + dist.EnvSigningKey +
			" holds a private key, a clearsigned InRelease and the public " +
			"verification key (public.asc, public.gpg) are written too.",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if dir == "" {
				dir = cfg.OutDir
			}

			debs, err := filepath.Glob(filepath.Join(dir, "*.deb"))
			if err != nil {
				return err
			}
			if len(debs) == 0 {
				return fmt.Errorf("no .deb artifacts in %s, run build first", dir)
			}
			sort.Strings(debs)

			ix := deb.NewIndex(cfg.Archive)
			for _, path := range debs {
				if err := ix.AddDebFile(path); err != nil {
					return err
				}
				zap.L().Debug("indexed artifact", zap.String("path", path))
			}

			key := os.Getenv(dist.EnvSigningKey)
			if key == "" {
				zap.L().Warn("no signing key in environment, skipping InRelease",
					zap.String("env", dist.EnvSigningKey))
			}
			if err := ix.WriteDir(dir, key); err != nil {
				return err
			}
			zap.L().Info("repository index written",
				zap.String("dir", dir),
				zap.Int("packages", ix.Len()),
				zap.Bool("signed", key != ""))
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "repository directory (defaults to the configured output dir)")
	return cmd
}
