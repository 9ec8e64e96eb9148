// Package rpm builds RPM packages by orchestrating rpmbuild.
//
// Unlike the DEB path, RPM assembly is not reimplemented in-process: the rpm
// lead/header/cpio format is owned by rpmbuild and reimplementing it buys
// nothing for a packaging pipeline that only runs on hosts able to install
// the result. The package instead synthesizes a complete rpmbuild tree
// (SOURCES tarball and a rendered spec file) in a scratch directory, invokes
// rpmbuild against it, and collects the produced artifact. A host without
// rpmbuild fails fast with ErrToolNotFound before any output is written.
package rpm

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrToolNotFound reports that rpmbuild is not installed on the build host.
var ErrToolNotFound = errors.New("rpmbuild not found")

// Package describes the RPM to build.
type Package struct {
	// Name is the package name, e.g. "penenv".
	Name string

	// Version is the upstream version. It must not contain '-', which is
	// reserved as the version-release separator in RPM filenames.
	Version string

	// Release is the package release number, "1" for a first build.
	Release string

	// Summary is the one-line package description.
	Summary string

	// Description is the long description placed in %description.
	Description string

	// License is the license tag, e.g. "MIT".
	License string

	// URL is the upstream project URL.
	URL string

	// BuildArch overrides the target architecture, e.g. "x86_64".
	BuildArch string

	// Requires lists runtime package dependencies.
	Requires []string

	// PostInstall and PostUninstall are the %post and %postun scriptlet
	// bodies, without the shebang line.
	PostInstall   string
	PostUninstall string

	// Files is the payload.
	Files []File
}

// File is a single payload entry installed on the target system.
type File struct {
	// DestPath is the absolute installation path.
	DestPath string
	// Mode is the permission mode.
	Mode int64
	// Body is the file content.
	Body []byte
	// IsConf marks the entry %config(noreplace).
	IsConf bool
}

// Validate checks the fields rpmbuild would otherwise reject mid-build.
func (p *Package) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("rpm: package name is empty")
	}
	if p.Version == "" {
		return fmt.Errorf("rpm: version is empty")
	}
	if strings.Contains(p.Version, "-") {
		return fmt.Errorf("rpm: version %q must not contain '-'", p.Version)
	}
	if p.Release == "" {
		return fmt.Errorf("rpm: release is empty")
	}
	if len(p.Files) == 0 {
		return fmt.Errorf("rpm: no payload files")
	}
	return nil
}

// Detect reports whether rpmbuild is available, returning ErrToolNotFound
// with installation guidance when it is not.
func Detect() error {
	if _, err := exec.LookPath("rpmbuild"); err != nil {
		return fmt.Errorf("%w: install it with 'apt install rpm' or 'dnf install rpm-build'", ErrToolNotFound)
	}
	return nil
}

// Build runs rpmbuild over a synthesized build tree and copies the produced
// .rpm into outDir. It returns the artifact path.
func Build(ctx context.Context, pkg *Package, outDir string) (string, error) {
	if err := pkg.Validate(); err != nil {
		return "", err
	}
	if err := Detect(); err != nil {
		return "", err
	}

	topdir, err := os.MkdirTemp("", "distkit-rpmbuild-")
	if err != nil {
		return "", fmt.Errorf("creating rpmbuild topdir: %w", err)
	}
	defer os.RemoveAll(topdir)

	for _, sub := range []string{"SPECS", "SOURCES", "BUILD", "RPMS", "SRPMS"} {
		if err := os.MkdirAll(filepath.Join(topdir, sub), 0755); err != nil {
			return "", err
		}
	}

	tarballPath := filepath.Join(topdir, "SOURCES", fmt.Sprintf("%s-%s.tar.gz", pkg.Name, pkg.Version))
	if err := writeSourceTarball(tarballPath, pkg); err != nil {
		return "", fmt.Errorf("writing source tarball: %w", err)
	}

	spec, err := RenderSpec(pkg)
	if err != nil {
		return "", fmt.Errorf("rendering spec: %w", err)
	}
	specPath := filepath.Join(topdir, "SPECS", pkg.Name+".spec")
	if err := os.WriteFile(specPath, []byte(spec), 0644); err != nil {
		return "", err
	}

	args := []string{"-bb", "--define", "_topdir " + topdir, specPath}
	if pkg.BuildArch != "" {
		args = append(args, "--target", pkg.BuildArch)
	}
	zap.L().Debug("invoking rpmbuild", zap.Strings("args", args))

	cmd := exec.CommandContext(ctx, "rpmbuild", args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("rpmbuild failed: %w\n%s", err, out)
	}

	produced, err := filepath.Glob(filepath.Join(topdir, "RPMS", "*", "*.rpm"))
	if err != nil {
		return "", err
	}
	if len(produced) == 0 {
		return "", fmt.Errorf("rpmbuild produced no artifact under %s/RPMS", topdir)
	}
	sort.Strings(produced)
	src := produced[0]

	dst := filepath.Join(outDir, filepath.Base(src))
	if err := copyFile(src, dst); err != nil {
		return "", fmt.Errorf("collecting artifact: %w", err)
	}
	zap.L().Info("built rpm", zap.String("artifact", dst))
	return dst, nil
}

// writeSourceTarball writes the payload as {name}-{version}/<path> entries,
// the layout %setup -q expects.
func writeSourceTarball(path string, pkg *Package) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	gw := gzip.NewWriter(f)
	defer gw.Close()
	tw := tar.NewWriter(gw)
	defer tw.Close()

	prefix := fmt.Sprintf("%s-%s", pkg.Name, pkg.Version)

	files := make([]File, len(pkg.Files))
	copy(files, pkg.Files)
	sort.Slice(files, func(i, j int) bool { return files[i].DestPath < files[j].DestPath })

	seenDirs := map[string]bool{}
	writeDir := func(name string) error {
		if seenDirs[name] {
			return nil
		}
		seenDirs[name] = true
		return tw.WriteHeader(&tar.Header{
			Typeflag: tar.TypeDir,
			Name:     name + "/",
			Mode:     0755,
			ModTime:  time.Now(),
		})
	}

	if err := writeDir(prefix); err != nil {
		return err
	}
	for _, file := range files {
		rel := strings.TrimPrefix(file.DestPath, "/")
		parts := strings.Split(filepath.ToSlash(filepath.Dir(rel)), "/")
		if parts[0] != "." {
			for i := range parts {
				if err := writeDir(prefix + "/" + strings.Join(parts[:i+1], "/")); err != nil {
					return err
				}
			}
		}

		hdr := &tar.Header{
			Name:    prefix + "/" + rel,
			Size:    int64(len(file.Body)),
			Mode:    file.Mode,
			ModTime: time.Now(),
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if _, err := tw.Write(file.Body); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
