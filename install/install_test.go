package install

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testOptions(t *testing.T) Options {
	t.Helper()
	src := t.TempDir()

	binPath := filepath.Join(src, "penenv")
	if err := os.WriteFile(binPath, []byte("#!/bin/sh\necho penenv\n"), 0755); err != nil {
		t.Fatal(err)
	}
	iconPath := filepath.Join(src, "penenv.png")
	if err := os.WriteFile(iconPath, []byte("\x89PNG fake"), 0644); err != nil {
		t.Fatal(err)
	}

	return Options{
		AppName:    "penenv",
		BinaryPath: binPath,
		IconPath:   iconPath,
		Entry: DesktopEntry{
			Name:       "PenEnv",
			Comment:    "Pentesting environment manager",
			Categories: []string{"Utility", "Security"},
			Keywords:   []string{"pentest", "terminal"},
		},
	}
}

func TestInstall(t *testing.T) {
	in := &Installer{Root: t.TempDir()}
	opts := testOptions(t)

	results, err := in.Install(opts)
	if err != nil {
		t.Fatalf("Install failed: %v", err)
	}

	// binary + desktop entry + two icon sizes
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d: %v", len(results), results)
	}
	for _, r := range results {
		if r.Status != StatusInstalled {
			t.Errorf("%s: expected installed, got %s", r.Path, r.Status)
		}
	}

	bin := filepath.Join(in.BinDir(), "penenv")
	info, err := os.Stat(bin)
	if err != nil {
		t.Fatalf("binary not installed: %v", err)
	}
	if info.Mode().Perm() != 0755 {
		t.Errorf("binary mode = %v, want 0755", info.Mode().Perm())
	}

	desktop, err := os.ReadFile(filepath.Join(in.ApplicationsDir(), "penenv.desktop"))
	if err != nil {
		t.Fatalf("desktop entry not installed: %v", err)
	}
	for _, want := range []string{"[Desktop Entry]", "Name=PenEnv", "Exec=penenv", "Icon=penenv", "Terminal=false"} {
		if !strings.Contains(string(desktop), want) {
			t.Errorf("desktop entry missing %q:\n%s", want, desktop)
		}
	}

	for _, size := range DefaultIconSizes {
		if _, err := os.Stat(filepath.Join(in.IconDir(size), "penenv.png")); err != nil {
			t.Errorf("icon for %s not installed: %v", size, err)
		}
	}
}

func TestInstallIdempotent(t *testing.T) {
	in := &Installer{Root: t.TempDir()}
	opts := testOptions(t)

	if _, err := in.Install(opts); err != nil {
		t.Fatal(err)
	}
	results, err := in.Install(opts)
	if err != nil {
		t.Fatalf("second install failed: %v", err)
	}
	for _, r := range results {
		if r.Status != StatusUpToDate {
			t.Errorf("%s: expected up-to-date on rerun, got %s", r.Path, r.Status)
		}
	}
}

func TestInstallUpdatesChangedBinary(t *testing.T) {
	in := &Installer{Root: t.TempDir()}
	opts := testOptions(t)

	if _, err := in.Install(opts); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(opts.BinaryPath, []byte("new build"), 0755); err != nil {
		t.Fatal(err)
	}

	results, err := in.Install(opts)
	if err != nil {
		t.Fatal(err)
	}
	var binStatus Status
	for _, r := range results {
		if r.Path == filepath.Join(in.BinDir(), "penenv") {
			binStatus = r.Status
		}
	}
	if binStatus != StatusUpdated {
		t.Errorf("expected binary updated, got %s", binStatus)
	}
}

func TestUninstall(t *testing.T) {
	in := &Installer{Root: t.TempDir()}
	opts := testOptions(t)

	if _, err := in.Install(opts); err != nil {
		t.Fatal(err)
	}
	results, err := in.Uninstall(opts)
	if err != nil {
		t.Fatalf("Uninstall failed: %v", err)
	}
	for _, r := range results {
		if r.Status != StatusRemoved {
			t.Errorf("%s: expected removed, got %s", r.Path, r.Status)
		}
		if _, err := os.Stat(r.Path); !os.IsNotExist(err) {
			t.Errorf("%s still present after uninstall", r.Path)
		}
	}

	// Second uninstall tolerates the already-missing files.
	results, err = in.Uninstall(opts)
	if err != nil {
		t.Fatalf("second Uninstall failed: %v", err)
	}
	for _, r := range results {
		if r.Status != StatusAbsent {
			t.Errorf("%s: expected absent, got %s", r.Path, r.Status)
		}
	}
}

func TestInstallValidation(t *testing.T) {
	in := &Installer{Root: t.TempDir()}

	if _, err := in.Install(Options{BinaryPath: "/x"}); err == nil {
		t.Error("expected error for missing app name")
	}
	if _, err := in.Install(Options{AppName: "penenv"}); err == nil {
		t.Error("expected error for missing binary path")
	}
	if _, err := in.Install(Options{AppName: "penenv", BinaryPath: "/does/not/exist"}); err == nil {
		t.Error("expected error for unreadable binary")
	}
}

func TestDesktopEntryRender(t *testing.T) {
	e := DesktopEntry{
		Name:       "PenEnv",
		Comment:    "Pentesting environment manager",
		Exec:       "penenv %U",
		Icon:       "penenv",
		Categories: []string{"Utility", "Security"},
		Keywords:   []string{"pentest"},
	}
	out := e.Render()

	if !strings.HasPrefix(out, "[Desktop Entry]\nType=Application\n") {
		t.Errorf("unexpected header:\n%s", out)
	}
	for _, want := range []string{
		"Name=PenEnv",
		"Comment=Pentesting environment manager",
		"Exec=penenv %U",
		"Terminal=false",
		"Categories=Utility;Security;",
		"Keywords=pentest;",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("desktop entry missing %q:\n%s", want, out)
		}
	}
}
