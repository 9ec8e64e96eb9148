package dist

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleConfig = `manifest: Cargo.toml
package:
  maintainer: "PenEnv Maintainers <maint@penenv.dev>"
  homepage: "https://github.com/penenv/penenv"
  license: MIT
  depends:
    deb: [libgtk-4-1, libvte-2.91-gtk4-0]
    rpm: [gtk4, vte291-gtk4]
payload:
  binary: target/release/penenv
  icon: assets/penenv.png
  extra:
    - src: README.md
      dst: /usr/share/doc/penenv/README.md
output: out
archive:
  origin: penenv
  suite: stable
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dist.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Maintainer != "PenEnv Maintainers <maint@penenv.dev>" {
		t.Errorf("unexpected maintainer %q", cfg.Maintainer)
	}
	if len(cfg.DebDepends) != 2 || cfg.DebDepends[0] != "libgtk-4-1" {
		t.Errorf("unexpected deb depends %v", cfg.DebDepends)
	}
	if len(cfg.RPMDepends) != 2 || cfg.RPMDepends[0] != "gtk4" {
		t.Errorf("unexpected rpm depends %v", cfg.RPMDepends)
	}
	if cfg.Binary != "target/release/penenv" {
		t.Errorf("unexpected binary %q", cfg.Binary)
	}
	if len(cfg.Extra) != 1 || cfg.Extra[0].Dst != "/usr/share/doc/penenv/README.md" {
		t.Errorf("unexpected extra %v", cfg.Extra)
	}
	if cfg.OutDir != "out" {
		t.Errorf("unexpected output dir %q", cfg.OutDir)
	}
	if cfg.Archive.Origin != "penenv" || cfg.Archive.Suite != "stable" {
		t.Errorf("unexpected archive info %+v", cfg.Archive)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `package:
  maintainer: "X <x@example.com>"
payload:
  binary: penenv
`))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.ManifestPath != "Cargo.toml" {
		t.Errorf("manifest default: %q", cfg.ManifestPath)
	}
	if cfg.Section != "utils" || cfg.Priority != "optional" {
		t.Errorf("classification defaults: %q %q", cfg.Section, cfg.Priority)
	}
	if cfg.Revision != "1" {
		t.Errorf("revision default: %q", cfg.Revision)
	}
	if cfg.DebArch != "amd64" || cfg.RPMArch != "x86_64" {
		t.Errorf("arch defaults: %q %q", cfg.DebArch, cfg.RPMArch)
	}
	if cfg.OutDir != "dist" {
		t.Errorf("output default: %q", cfg.OutDir)
	}
	if cfg.Archive.Architectures != "amd64" {
		t.Errorf("archive architectures default: %q", cfg.Archive.Architectures)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	cases := []struct {
		name    string
		content string
		wantErr string
	}{
		{"missing binary", "package:\n  maintainer: x\n", "payload.binary is required"},
		{"missing maintainer", "payload:\n  binary: penenv\n", "package.maintainer is required"},
		{"incomplete extra", "package:\n  maintainer: x\npayload:\n  binary: penenv\n  extra:\n    - src: a\n", "need both src and dst"},
		{"bad yaml", ":: nope ::", "parsing config"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tc.content))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}
