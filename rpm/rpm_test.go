package rpm

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func testRPM() *Package {
	return &Package{
		Name:        "penenv",
		Version:     "0.4.2",
		Release:     "1",
		Summary:     "Pentesting environment manager",
		Description: "Tabbed editors, shells and a command drawer.",
		License:     "MIT",
		URL:         "https://github.com/penenv/penenv",
		Requires:    []string{"gtk4", "vte291-gtk4"},
		PostInstall: "update-desktop-database -q || true",
		Files: []File{
			{DestPath: "/usr/bin/penenv", Mode: 0755, Body: []byte("#!/bin/sh\necho penenv\n")},
			{DestPath: "/usr/share/applications/penenv.desktop", Mode: 0644, Body: []byte("[Desktop Entry]\n")},
			{DestPath: "/etc/penenv/settings.yaml", Mode: 0644, Body: []byte("a: b\n"), IsConf: true},
		},
	}
}

func TestRenderSpec(t *testing.T) {
	spec, err := RenderSpec(testRPM())
	if err != nil {
		t.Fatalf("RenderSpec failed: %v", err)
	}

	for _, want := range []string{
		"Name:           penenv",
		"Version:        0.4.2",
		"Release:        1",
		"Summary:        Pentesting environment manager",
		"License:        MIT",
		"Requires:       gtk4",
		"Requires:       vte291-gtk4",
		"Source0:        %{name}-%{version}.tar.gz",
		"%post\nupdate-desktop-database -q || true",
		"%attr(755, root, root) /usr/bin/penenv",
		"%config(noreplace) %attr(644, root, root) /etc/penenv/settings.yaml",
		"%global debug_package %{nil}",
	} {
		if !strings.Contains(spec, want) {
			t.Errorf("spec missing %q:\n%s", want, spec)
		}
	}

	if strings.Contains(spec, "%postun") {
		t.Error("empty postun scriptlet should be omitted")
	}
}

func TestRenderSpecDefaults(t *testing.T) {
	p := testRPM()
	p.Summary = ""
	p.Description = ""
	p.License = ""
	spec, err := RenderSpec(p)
	if err != nil {
		t.Fatalf("RenderSpec failed: %v", err)
	}
	if !strings.Contains(spec, "Summary:        penenv") {
		t.Error("summary should default to the package name")
	}
	if !strings.Contains(spec, "License:        Unspecified") {
		t.Error("license should default to Unspecified")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Package)
	}{
		{"empty name", func(p *Package) { p.Name = "" }},
		{"empty version", func(p *Package) { p.Version = "" }},
		{"hyphen in version", func(p *Package) { p.Version = "1.0-rc1" }},
		{"empty release", func(p *Package) { p.Release = "" }},
		{"no files", func(p *Package) { p.Files = nil }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := testRPM()
			tc.mutate(p)
			if err := p.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}

	if err := testRPM().Validate(); err != nil {
		t.Errorf("valid package rejected: %v", err)
	}
}

func TestWriteSourceTarball(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "src.tar.gz")
	if err := writeSourceTarball(path, testRPM()); err != nil {
		t.Fatalf("writeSourceTarball failed: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	gzr, err := gzip.NewReader(f)
	if err != nil {
		t.Fatal(err)
	}
	tr := tar.NewReader(gzr)

	entries := map[string]bool{}
	for {
		th, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		entries[th.Name] = true
	}

	for _, want := range []string{
		"penenv-0.4.2/",
		"penenv-0.4.2/usr/",
		"penenv-0.4.2/usr/bin/",
		"penenv-0.4.2/usr/bin/penenv",
		"penenv-0.4.2/etc/penenv/settings.yaml",
	} {
		if !entries[want] {
			t.Errorf("tarball missing entry %q (have %v)", want, entries)
		}
	}
}

func TestBuildFailsWithoutRpmbuild(t *testing.T) {
	if _, err := exec.LookPath("rpmbuild"); err == nil {
		t.Skip("rpmbuild is installed, cannot exercise the missing-tool path")
	}

	_, err := Build(context.Background(), testRPM(), t.TempDir())
	if !errors.Is(err, ErrToolNotFound) {
		t.Fatalf("expected ErrToolNotFound, got %v", err)
	}
	if !strings.Contains(err.Error(), "install it with") {
		t.Errorf("error should carry installation guidance, got: %v", err)
	}
}

func TestIntegrationRpmbuild(t *testing.T) {
	if _, err := exec.LookPath("rpmbuild"); err != nil {
		t.Skip("rpmbuild not found, skipping integration test")
	}

	outDir := t.TempDir()
	artifact, err := Build(context.Background(), testRPM(), outDir)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if !strings.HasSuffix(artifact, ".rpm") {
		t.Errorf("unexpected artifact name %s", artifact)
	}
	if _, err := os.Stat(artifact); err != nil {
		t.Errorf("artifact missing: %v", err)
	}
}
