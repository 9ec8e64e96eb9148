// Package manifest reads release metadata from the application's Cargo
// manifest. Packaging never compiles the application, it only needs the
// identity fields from the [package] section, so the manifest is scanned
// line by line instead of being fully decoded.
package manifest

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

// Manifest holds the fields of the [package] section that packaging cares about.
type Manifest struct {
	// Name is the package name, e.g. "penenv".
	Name string

	// Version is the upstream version, e.g. "0.4.2".
	Version string

	// Description is the one-line package synopsis.
	Description string
}

// namePattern matches a Debian-compatible package name: lower case
// alphanumerics, '-', '.' and '+', at least two characters, starting with an
// alphanumeric.
//
// Reference: https://www.debian.org/doc/debian-policy/ch-controlfields.html#s-f-package
var namePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9+.-]+$`)

// versionPattern matches dotted numerics with an optional pre-release suffix,
// e.g. "1.0", "0.4.2", "1.2.0-rc1".
var versionPattern = regexp.MustCompile(`^[0-9]+(\.[0-9]+)*(-[a-z0-9.]+)?$`)

// fieldPattern captures `key = "value"` assignments.
var fieldPattern = regexp.MustCompile(`^([a-zA-Z0-9_-]+)\s*=\s*"([^"]*)"`)

// Read loads and parses the manifest at path.
func Read(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	m, err := Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return m, nil
}

// Parse extracts the Name, Version and Description fields from the [package]
// section of the manifest content. Fields of the same name in other sections
// (e.g. [dependencies]) are ignored.
func Parse(content string) (*Manifest, error) {
	var m Manifest
	inPackage := false

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[") {
			inPackage = line == "[package]"
			continue
		}
		if !inPackage {
			continue
		}
		match := fieldPattern.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		switch match[1] {
		case "name":
			m.Name = match[2]
		case "version":
			m.Version = match[2]
		case "description":
			m.Description = match[2]
		}
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks that the manifest carries a usable package identity.
// It is called before any artifact work starts so that a malformed manifest
// aborts the whole build.
func (m *Manifest) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("manifest: missing 'name' in [package] section")
	}
	if !namePattern.MatchString(m.Name) {
		return fmt.Errorf("manifest: invalid package name %q", m.Name)
	}
	if m.Version == "" {
		return fmt.Errorf("manifest: missing 'version' in [package] section")
	}
	if !versionPattern.MatchString(m.Version) {
		return fmt.Errorf("manifest: invalid version %q", m.Version)
	}
	return nil
}
