package dist

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/penenv/distkit/deb"
	"github.com/penenv/distkit/install"
	"github.com/penenv/distkit/manifest"
	"github.com/penenv/distkit/penenv"
	"github.com/penenv/distkit/rpm"
)

// Format selects a package format to build.
type Format string

const (
	FormatDeb Format = "deb"
	FormatRPM Format = "rpm"
)

// AllFormats is every format the pipeline can produce.
var AllFormats = []Format{FormatDeb, FormatRPM}

// ParseFormats maps a CLI format selection to the formats to build.
func ParseFormats(s string) ([]Format, error) {
	switch s {
	case "deb":
		return []Format{FormatDeb}, nil
	case "rpm":
		return []Format{FormatRPM}, nil
	case "all":
		return AllFormats, nil
	default:
		return nil, fmt.Errorf("unknown format %q, expected deb, rpm or all", s)
	}
}

// EnvSigningKey names the environment variable holding the ASCII-armored
// PGP private key used to sign checksums and repository indices.
const EnvSigningKey = "GPG_PRIVATE_KEY"

// Report summarizes one pipeline run.
type Report struct {
	// ID tags the run in logs and is unique per invocation.
	ID string
	// Name and Version are the resolved package identity.
	Name, Version string
	// Artifacts are the produced package files.
	Artifacts []string
	// ChecksumFile is the SHA256SUMS path, empty if nothing was built.
	ChecksumFile string
	// SignatureFile is the clearsigned checksum path, empty when unsigned.
	SignatureFile string
}

// payloadFile is one staged file, format-agnostic.
type payloadFile struct {
	dst  string
	mode int64
	body []byte
	conf bool
}

// Builder runs the release pipeline for one configuration.
type Builder struct {
	cfg *Config
}

// NewBuilder returns a Builder over cfg.
func NewBuilder(cfg *Config) *Builder {
	return &Builder{cfg: cfg}
}

// Build produces the requested formats. Formats fail independently: a host
// without rpmbuild still gets its .deb, and the combined error reports every
// failed format.
func (b *Builder) Build(ctx context.Context, formats []Format) (*Report, error) {
	report := &Report{ID: uuid.NewString()}
	log := zap.L().With(zap.String("run", report.ID))

	m, err := manifest.Read(b.cfg.ManifestPath)
	if err != nil {
		return report, err
	}
	report.Name = b.cfg.Name
	if report.Name == "" {
		report.Name = m.Name
	}
	report.Version = m.Version
	log.Info("resolved package identity",
		zap.String("name", report.Name),
		zap.String("version", report.Version))

	files, err := b.stagePayload(report.Name, m.Description)
	if err != nil {
		return report, err
	}

	if err := os.MkdirAll(b.cfg.OutDir, 0755); err != nil {
		return report, fmt.Errorf("creating output directory: %w", err)
	}

	var merr *multierror.Error
	for _, format := range formats {
		var artifact string
		var buildErr error
		switch format {
		case FormatDeb:
			artifact, buildErr = b.buildDeb(report, m, files)
		case FormatRPM:
			artifact, buildErr = b.buildRPM(ctx, report, m, files)
		default:
			buildErr = fmt.Errorf("unknown format %q", format)
		}
		if buildErr != nil {
			log.Error("format failed", zap.String("format", string(format)), zap.Error(buildErr))
			merr = multierror.Append(merr, fmt.Errorf("%s: %w", format, buildErr))
			continue
		}
		log.Info("format built", zap.String("format", string(format)), zap.String("artifact", artifact))
		report.Artifacts = append(report.Artifacts, artifact)
	}

	if len(report.Artifacts) > 0 {
		sumPath, err := WriteChecksums(b.cfg.OutDir, report.Artifacts)
		if err != nil {
			merr = multierror.Append(merr, err)
		} else {
			report.ChecksumFile = sumPath
			if key := os.Getenv(EnvSigningKey); key != "" {
				sigPath, err := SignChecksums(sumPath, key)
				if err != nil {
					merr = multierror.Append(merr, err)
				} else {
					report.SignatureFile = sigPath
				}
			}
		}
	}

	return report, merr.ErrorOrNil()
}

// stagePayload assembles the file set shared by every format: the binary,
// the generated desktop entry, icons, and the configured extras.
func (b *Builder) stagePayload(name, description string) ([]payloadFile, error) {
	binary, err := os.ReadFile(b.cfg.Binary)
	if err != nil {
		return nil, fmt.Errorf("reading payload binary: %w", err)
	}

	entry := install.DesktopEntry{
		Name:       "PenEnv",
		Comment:    description,
		Exec:       name,
		Icon:       name,
		Categories: []string{"Utility", "Security"},
		Keywords:   []string{"pentest", "terminal", "editor"},
	}

	settings, err := penenv.DefaultSettingsYAML()
	if err != nil {
		return nil, err
	}

	files := []payloadFile{
		{dst: "/usr/bin/" + name, mode: 0755, body: binary},
		{dst: "/usr/share/applications/" + name + ".desktop", mode: 0644, body: []byte(entry.Render())},
		// Shipped as a conffile so local edits survive upgrades.
		{dst: "/etc/" + name + "/settings.yaml", mode: 0644, body: settings, conf: true},
	}

	if b.cfg.Icon != "" {
		icon, err := os.ReadFile(b.cfg.Icon)
		if err != nil {
			return nil, fmt.Errorf("reading icon: %w", err)
		}
		sizes := b.cfg.IconSizes
		if len(sizes) == 0 {
			sizes = install.DefaultIconSizes
		}
		for _, size := range sizes {
			files = append(files, payloadFile{
				dst:  fmt.Sprintf("/usr/share/icons/hicolor/%s/apps/%s.png", size, name),
				mode: 0644,
				body: icon,
			})
		}
	}

	for _, e := range b.cfg.Extra {
		body, err := os.ReadFile(e.Src)
		if err != nil {
			return nil, fmt.Errorf("reading payload entry %s: %w", e.Src, err)
		}
		mode := e.Mode
		if mode == 0 {
			mode = 0644
		}
		files = append(files, payloadFile{dst: e.Dst, mode: mode, body: body, conf: e.Conffile})
	}

	return files, nil
}

// maintainerScript loads a configured script body, falling back to def.
func maintainerScript(path, def string) (string, error) {
	if path == "" {
		return def, nil
	}
	body, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading maintainer script %s: %w", path, err)
	}
	return string(body), nil
}

// Default maintainer scripts refresh the desktop database so the menu entry
// appears and disappears with the package.
const (
	defaultPostInst = "#!/bin/sh\nset -e\nif command -v update-desktop-database >/dev/null 2>&1; then\n    update-desktop-database -q /usr/share/applications || true\nfi\n"
	defaultPostRm   = "#!/bin/sh\nset -e\nif command -v update-desktop-database >/dev/null 2>&1; then\n    update-desktop-database -q /usr/share/applications || true\nfi\n"
)

func (b *Builder) buildDeb(report *Report, m *manifest.Manifest, files []payloadFile) (string, error) {
	postinst, err := maintainerScript(b.cfg.PostInstScript, defaultPostInst)
	if err != nil {
		return "", err
	}
	postrm, err := maintainerScript(b.cfg.PostRmScript, defaultPostRm)
	if err != nil {
		return "", err
	}

	pkg := &deb.Package{
		Control: deb.Control{
			Package:      report.Name,
			Version:      report.Version + "-" + b.cfg.Revision,
			Architecture: b.cfg.DebArch,
			Maintainer:   b.cfg.Maintainer,
			Description:  m.Description,
			Section:      b.cfg.Section,
			Priority:     b.cfg.Priority,
			Homepage:     b.cfg.Homepage,
			Depends:      b.cfg.DebDepends,
		},
		Scripts: deb.Scripts{PostInst: postinst, PostRm: postrm},
	}
	for _, f := range files {
		pkg.Files = append(pkg.Files, deb.File{
			DestPath: f.dst,
			Mode:     f.mode,
			Body:     f.body,
			IsConf:   f.conf,
		})
	}

	path := filepath.Join(b.cfg.OutDir, pkg.StandardFilename())
	out, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer out.Close()
	if _, err := pkg.WriteTo(out); err != nil {
		os.Remove(path)
		return "", err
	}
	if err := out.Close(); err != nil {
		return "", err
	}
	return path, nil
}

func (b *Builder) buildRPM(ctx context.Context, report *Report, m *manifest.Manifest, files []payloadFile) (string, error) {
	postinst, err := maintainerScript(b.cfg.PostInstScript, defaultPostInst)
	if err != nil {
		return "", err
	}
	postrm, err := maintainerScript(b.cfg.PostRmScript, defaultPostRm)
	if err != nil {
		return "", err
	}

	pkg := &rpm.Package{
		Name: report.Name,
		// RPM reserves '-' in versions; pre-release suffixes sort low
		// with '~' which is exactly what they should do.
		Version:       strings.ReplaceAll(report.Version, "-", "~"),
		Release:       b.cfg.Revision,
		Summary:       firstLine(m.Description),
		Description:   m.Description,
		License:       b.cfg.License,
		URL:           b.cfg.Homepage,
		BuildArch:     b.cfg.RPMArch,
		Requires:      b.cfg.RPMDepends,
		PostInstall:   stripShebang(postinst),
		PostUninstall: stripShebang(postrm),
	}
	for _, f := range files {
		pkg.Files = append(pkg.Files, rpm.File{
			DestPath: f.dst,
			Mode:     f.mode,
			Body:     f.body,
			IsConf:   f.conf,
		})
	}

	return rpm.Build(ctx, pkg, b.cfg.OutDir)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// stripShebang drops a leading #! line: rpm scriptlets run under the
// interpreter rpm picks, not the script header.
func stripShebang(script string) string {
	if !strings.HasPrefix(script, "#!") {
		return strings.TrimSpace(script)
	}
	if i := strings.IndexByte(script, '\n'); i >= 0 {
		return strings.TrimSpace(script[i+1:])
	}
	return ""
}
