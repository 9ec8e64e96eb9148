// Package dist drives the PenEnv release pipeline: it reads the packaging
// configuration and the application manifest, stages the payload once, and
// fans it out to the DEB and RPM builders, finishing with checksums and an
// optional signature over everything produced.
package dist

import (
	"fmt"
	"os"

	"github.com/penenv/distkit/deb"
	"gopkg.in/yaml.v3"
)

// PayloadEntry is an extra file shipped inside the packages.
type PayloadEntry struct {
	// Src is the path in the source tree.
	Src string
	// Dst is the absolute installation path.
	Dst string
	// Mode is the permission mode, 0644 when zero.
	Mode int64
	// Conffile marks the entry as user-editable configuration.
	Conffile bool
}

// Config is the packaging configuration, read from dist.yaml.
type Config struct {
	// ManifestPath locates the application manifest, "Cargo.toml" by default.
	ManifestPath string

	// Name overrides the manifest package name when non-empty.
	Name string

	// Maintainer is the Debian control Maintainer field.
	Maintainer string

	// Homepage is the upstream URL.
	Homepage string

	// License is the RPM license tag.
	License string

	// Section and Priority classify the Debian package.
	Section  string
	Priority string

	// Revision is the distribution revision appended to the upstream
	// version, "1" by default.
	Revision string

	// DebArch and RPMArch are the respective target architectures.
	DebArch string
	RPMArch string

	// DebDepends and RPMDepends are the per-format dependency lists; the
	// two ecosystems name the same libraries differently.
	DebDepends []string
	RPMDepends []string

	// Binary is the built application binary to package.
	Binary string

	// Icon is a PNG shipped into the hicolor theme. Optional.
	Icon string

	// IconSizes are the hicolor size directories, e.g. "128x128".
	IconSizes []string

	// Extra are additional payload entries.
	Extra []PayloadEntry

	// PostInstScript and PostRmScript point at maintainer script bodies in
	// the source tree. Empty means the built-in desktop refresh scripts.
	PostInstScript string
	PostRmScript   string

	// OutDir is where artifacts land, "dist" by default.
	OutDir string

	// Archive is the metadata of the published flat APT repository.
	Archive deb.ArchiveInfo
}

// LoadConfig reads and validates a dist.yaml file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	// Internal DTOs for YAML deserialization.
	type yamlPayloadEntry struct {
		Src      string `yaml:"src"`
		Dst      string `yaml:"dst"`
		Mode     int64  `yaml:"mode"`
		Conffile bool   `yaml:"conffile"`
	}
	type yamlDepends struct {
		Deb []string `yaml:"deb"`
		RPM []string `yaml:"rpm"`
	}
	type yamlPackage struct {
		Name       string      `yaml:"name"`
		Maintainer string      `yaml:"maintainer"`
		Homepage   string      `yaml:"homepage"`
		License    string      `yaml:"license"`
		Section    string      `yaml:"section"`
		Priority   string      `yaml:"priority"`
		Revision   string      `yaml:"revision"`
		DebArch    string      `yaml:"deb_arch"`
		RPMArch    string      `yaml:"rpm_arch"`
		Depends    yamlDepends `yaml:"depends"`
	}
	type yamlPayload struct {
		Binary    string             `yaml:"binary"`
		Icon      string             `yaml:"icon"`
		IconSizes []string           `yaml:"icon_sizes"`
		Extra     []yamlPayloadEntry `yaml:"extra"`
	}
	type yamlScripts struct {
		PostInst string `yaml:"postinst"`
		PostRm   string `yaml:"postrm"`
	}
	type yamlArchive struct {
		Origin      string `yaml:"origin"`
		Label       string `yaml:"label"`
		Suite       string `yaml:"suite"`
		Codename    string `yaml:"codename"`
		Description string `yaml:"description"`
	}
	type yamlConfig struct {
		Manifest string      `yaml:"manifest"`
		Package  yamlPackage `yaml:"package"`
		Payload  yamlPayload `yaml:"payload"`
		Scripts  yamlScripts `yaml:"scripts"`
		Output   string      `yaml:"output"`
		Archive  yamlArchive `yaml:"archive"`
	}

	var dto yamlConfig
	if err := yaml.Unmarshal(data, &dto); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg := &Config{
		ManifestPath:   dto.Manifest,
		Name:           dto.Package.Name,
		Maintainer:     dto.Package.Maintainer,
		Homepage:       dto.Package.Homepage,
		License:        dto.Package.License,
		Section:        dto.Package.Section,
		Priority:       dto.Package.Priority,
		Revision:       dto.Package.Revision,
		DebArch:        dto.Package.DebArch,
		RPMArch:        dto.Package.RPMArch,
		DebDepends:     dto.Package.Depends.Deb,
		RPMDepends:     dto.Package.Depends.RPM,
		Binary:         dto.Payload.Binary,
		Icon:           dto.Payload.Icon,
		IconSizes:      dto.Payload.IconSizes,
		PostInstScript: dto.Scripts.PostInst,
		PostRmScript:   dto.Scripts.PostRm,
		OutDir:         dto.Output,
		Archive: deb.ArchiveInfo{
			Origin:      dto.Archive.Origin,
			Label:       dto.Archive.Label,
			Suite:       dto.Archive.Suite,
			Codename:    dto.Archive.Codename,
			Description: dto.Archive.Description,
		},
	}
	for _, e := range dto.Payload.Extra {
		cfg.Extra = append(cfg.Extra, PayloadEntry{
			Src:      e.Src,
			Dst:      e.Dst,
			Mode:     e.Mode,
			Conffile: e.Conffile,
		})
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.ManifestPath == "" {
		c.ManifestPath = "Cargo.toml"
	}
	if c.Section == "" {
		c.Section = "utils"
	}
	if c.Priority == "" {
		c.Priority = "optional"
	}
	if c.Revision == "" {
		c.Revision = "1"
	}
	if c.DebArch == "" {
		c.DebArch = "amd64"
	}
	if c.RPMArch == "" {
		c.RPMArch = "x86_64"
	}
	if c.OutDir == "" {
		c.OutDir = "dist"
	}
	if c.Archive.Architectures == "" {
		c.Archive.Architectures = c.DebArch
	}
}

func (c *Config) validate() error {
	if c.Binary == "" {
		return fmt.Errorf("payload.binary is required")
	}
	if c.Maintainer == "" {
		return fmt.Errorf("package.maintainer is required")
	}
	for _, e := range c.Extra {
		if e.Src == "" || e.Dst == "" {
			return fmt.Errorf("payload.extra entries need both src and dst")
		}
	}
	return nil
}
