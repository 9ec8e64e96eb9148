// Package install places a built PenEnv binary into the invoking user's
// desktop environment: binary under ~/.local/bin, a generated desktop entry
// under ~/.local/share/applications, and icons in the hicolor theme. The
// routine is idempotent — unchanged files are detected by content hash and
// skipped — so it doubles as an upgrade path.
package install

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"go.uber.org/zap"
)

// Status describes what happened to one installed file.
type Status string

const (
	StatusInstalled Status = "installed"
	StatusUpdated   Status = "updated"
	StatusUpToDate  Status = "up-to-date"
	StatusRemoved   Status = "removed"
	StatusAbsent    Status = "absent"
)

// Result reports the outcome for one destination path.
type Result struct {
	Path   string
	Status Status
}

// Options configures an installation.
type Options struct {
	// AppName is the binary and icon name, normally "penenv".
	AppName string

	// BinaryPath is the built binary to install.
	BinaryPath string

	// IconPath is a PNG installed into the hicolor theme. Optional.
	IconPath string

	// IconSizes are the hicolor size directories the icon is placed in,
	// e.g. "128x128". Defaults to DefaultIconSizes when empty.
	IconSizes []string

	// Entry is the desktop entry to register. Entry.Exec and Entry.Icon
	// default to AppName.
	Entry DesktopEntry
}

// DefaultIconSizes are the hicolor directories populated when Options does
// not name any.
var DefaultIconSizes = []string{"128x128", "256x256"}

// Installer performs user-local installs below a root directory, normally
// the user's home.
type Installer struct {
	// Root is the directory that stands for $HOME.
	Root string
}

// NewInstaller returns an installer rooted at the current user's home.
func NewInstaller() (*Installer, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolving home directory: %w", err)
	}
	return &Installer{Root: home}, nil
}

// BinDir returns the executable install directory.
func (in *Installer) BinDir() string {
	return filepath.Join(in.Root, ".local", "bin")
}

// ApplicationsDir returns the desktop entry directory.
func (in *Installer) ApplicationsDir() string {
	return filepath.Join(in.Root, ".local", "share", "applications")
}

// IconDir returns the hicolor app icon directory for a size like "128x128".
func (in *Installer) IconDir(size string) string {
	return filepath.Join(in.Root, ".local", "share", "icons", "hicolor", size, "apps")
}

// Install copies the binary, desktop entry and icons into place and
// refreshes the desktop databases. It returns one Result per destination.
func (in *Installer) Install(opts Options) ([]Result, error) {
	if opts.AppName == "" {
		return nil, fmt.Errorf("install: app name is empty")
	}
	if opts.BinaryPath == "" {
		return nil, fmt.Errorf("install: binary path is empty")
	}

	binary, err := os.ReadFile(opts.BinaryPath)
	if err != nil {
		return nil, fmt.Errorf("reading binary: %w", err)
	}

	entry := opts.Entry
	if entry.Name == "" {
		entry.Name = opts.AppName
	}
	if entry.Exec == "" {
		entry.Exec = opts.AppName
	}
	if entry.Icon == "" {
		entry.Icon = opts.AppName
	}

	var results []Result
	place := func(dst string, content []byte, mode os.FileMode) error {
		res, err := placeFile(dst, content, mode)
		if err != nil {
			return err
		}
		zap.L().Info("install", zap.String("path", dst), zap.String("status", string(res.Status)))
		results = append(results, res)
		return nil
	}

	if err := place(filepath.Join(in.BinDir(), opts.AppName), binary, 0755); err != nil {
		return results, err
	}
	if err := place(filepath.Join(in.ApplicationsDir(), opts.AppName+".desktop"), []byte(entry.Render()), 0644); err != nil {
		return results, err
	}

	if opts.IconPath != "" {
		icon, err := os.ReadFile(opts.IconPath)
		if err != nil {
			return results, fmt.Errorf("reading icon: %w", err)
		}
		sizes := opts.IconSizes
		if len(sizes) == 0 {
			sizes = DefaultIconSizes
		}
		for _, size := range sizes {
			if err := place(filepath.Join(in.IconDir(size), opts.AppName+".png"), icon, 0644); err != nil {
				return results, err
			}
		}
	}

	in.refresh()
	return results, nil
}

// Uninstall removes everything Install would have placed for opts. Missing
// files are reported as absent, not errors, so uninstall is idempotent too.
func (in *Installer) Uninstall(opts Options) ([]Result, error) {
	if opts.AppName == "" {
		return nil, fmt.Errorf("uninstall: app name is empty")
	}

	paths := []string{
		filepath.Join(in.BinDir(), opts.AppName),
		filepath.Join(in.ApplicationsDir(), opts.AppName+".desktop"),
	}
	sizes := opts.IconSizes
	if len(sizes) == 0 {
		sizes = DefaultIconSizes
	}
	for _, size := range sizes {
		paths = append(paths, filepath.Join(in.IconDir(size), opts.AppName+".png"))
	}

	var results []Result
	for _, path := range paths {
		switch err := os.Remove(path); {
		case err == nil:
			results = append(results, Result{Path: path, Status: StatusRemoved})
		case os.IsNotExist(err):
			results = append(results, Result{Path: path, Status: StatusAbsent})
		default:
			return results, fmt.Errorf("removing %s: %w", path, err)
		}
	}

	in.refresh()
	return results, nil
}

// placeFile writes content to dst unless an identical file is already there.
func placeFile(dst string, content []byte, mode os.FileMode) (Result, error) {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return Result{}, fmt.Errorf("creating %s: %w", filepath.Dir(dst), err)
	}

	status := StatusInstalled
	if existing, err := os.ReadFile(dst); err == nil {
		if bytes.Equal(sum(existing), sum(content)) {
			// Still enforce the mode: a previous run may have been
			// interrupted between write and chmod.
			if err := os.Chmod(dst, mode); err != nil {
				return Result{}, err
			}
			return Result{Path: dst, Status: StatusUpToDate}, nil
		}
		status = StatusUpdated
	}

	if err := os.WriteFile(dst, content, mode); err != nil {
		return Result{}, fmt.Errorf("writing %s: %w", dst, err)
	}
	if err := os.Chmod(dst, mode); err != nil {
		return Result{}, err
	}
	return Result{Path: dst, Status: status}, nil
}

func sum(b []byte) []byte {
	h := sha256.Sum256(b)
	return h[:]
}

// refresh pokes the desktop environment so the new entry and icons show up.
// Both tools are optional; a headless host simply skips them.
func (in *Installer) refresh() {
	if path, err := exec.LookPath("update-desktop-database"); err == nil {
		if out, err := exec.Command(path, "-q", in.ApplicationsDir()).CombinedOutput(); err != nil {
			zap.L().Warn("update-desktop-database failed", zap.Error(err), zap.ByteString("output", out))
		}
	}
	if path, err := exec.LookPath("gtk-update-icon-cache"); err == nil {
		theme := filepath.Join(in.Root, ".local", "share", "icons", "hicolor")
		if out, err := exec.Command(path, "-q", "-t", theme).CombinedOutput(); err != nil {
			zap.L().Warn("gtk-update-icon-cache failed", zap.Error(err), zap.ByteString("output", out))
		}
	}
}
