package deb

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/blakesmith/ar"
)

// ArchiveInfo holds repository metadata written to the Release file of a
// flat APT repository.
//
// Reference: https://wiki.debian.org/DebianRepository/Format#Release_file
type ArchiveInfo struct {
	// Origin identifies the repository origin, e.g. "penenv".
	Origin string
	// Label is a short label for the repository.
	Label string
	// Suite is the suite name, e.g. "stable".
	Suite string
	// Codename is the release codename.
	Codename string
	// Architectures is a space-separated list of served architectures.
	Architectures string
	// Description describes the repository.
	Description string
}

// indexEntry is one .deb artifact recorded in the index.
type indexEntry struct {
	pkg, version, arch string
	control            string
	filename           string
	size               int64
	sha256             string
}

// Index accumulates built .deb artifacts and renders the flat repository
// index files over them.
//
// Reference: https://wiki.debian.org/DebianRepository/Format#Flat_Repository_Format
type Index struct {
	Info    ArchiveInfo
	entries []*indexEntry
}

// NewIndex returns an empty index with the given archive metadata.
func NewIndex(info ArchiveInfo) *Index {
	return &Index{Info: info}
}

// AddDeb records a .deb artifact. filename is the name the artifact is served
// under, relative to the repository root. A second artifact with the same
// (package, version, architecture) triple is rejected.
func (ix *Index) AddDeb(filename string, content []byte) error {
	control, err := extractControl(bytes.NewReader(content))
	if err != nil {
		return fmt.Errorf("%s: %w", filename, err)
	}

	var c Control
	parseControl(control, &c)
	for _, e := range ix.entries {
		if e.pkg == c.Package && e.version == c.Version && e.arch == c.Architecture {
			return fmt.Errorf("duplicate package %s %s %s (%s and %s)",
				c.Package, c.Version, c.Architecture, e.filename, filename)
		}
	}

	sum := sha256.Sum256(content)
	ix.entries = append(ix.entries, &indexEntry{
		pkg:      c.Package,
		version:  c.Version,
		arch:     c.Architecture,
		control:  control,
		filename: filename,
		size:     int64(len(content)),
		sha256:   hex.EncodeToString(sum[:]),
	})
	return nil
}

// AddDebFile records a .deb artifact read from disk.
func (ix *Index) AddDebFile(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	return ix.AddDeb(filepath.Base(path), content)
}

// Len reports the number of recorded artifacts.
func (ix *Index) Len() int { return len(ix.entries) }

// Render produces the index files keyed by filename: Packages, Packages.gz,
// Release, and, when signingKey is a non-empty ASCII-armored PGP private key,
// InRelease plus the verification key as public.asc and public.gpg.
func (ix *Index) Render(signingKey string) (map[string][]byte, error) {
	packages := ix.renderPackages()

	var gzBuf bytes.Buffer
	gw := gzip.NewWriter(&gzBuf)
	if _, err := gw.Write(packages); err != nil {
		return nil, err
	}
	if err := gw.Close(); err != nil {
		return nil, err
	}
	packagesGz := gzBuf.Bytes()

	release := ix.renderRelease(packages, packagesGz)

	out := map[string][]byte{
		"Packages":    packages,
		"Packages.gz": packagesGz,
		"Release":     release,
	}
	if signingKey != "" {
		inRelease, err := Clearsign(release, signingKey)
		if err != nil {
			return nil, fmt.Errorf("signing Release: %w", err)
		}
		out["InRelease"] = inRelease

		// Clients need the public half to verify InRelease, so it is
		// published alongside, armored and binary.
		for name, armored := range map[string]bool{"public.asc": true, "public.gpg": false} {
			key, err := PublicKey(signingKey, armored)
			if err != nil {
				return nil, fmt.Errorf("extracting public key: %w", err)
			}
			out[name] = key
		}
	}
	return out, nil
}

// WriteDir renders the index files into dir.
func (ix *Index) WriteDir(dir, signingKey string) error {
	files, err := ix.Render(signingKey)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), files[name], 0644); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
	}
	return nil
}

// renderPackages concatenates the control stanza of every artifact, each
// extended with the index-only Filename, Size and SHA256 fields.
func (ix *Index) renderPackages() []byte {
	entries := make([]*indexEntry, len(ix.entries))
	copy(entries, ix.entries)
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].pkg != entries[j].pkg {
			return entries[i].pkg < entries[j].pkg
		}
		return entries[i].version < entries[j].version
	})

	var b bytes.Buffer
	for _, e := range entries {
		b.WriteString(e.control)
		if !strings.HasSuffix(e.control, "\n") {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "Filename: %s\nSize: %d\nSHA256: %s\n\n", e.filename, e.size, e.sha256)
	}
	return b.Bytes()
}

// renderRelease produces the Release file with checksums over the Packages
// indices.
func (ix *Index) renderRelease(packages, packagesGz []byte) []byte {
	var b bytes.Buffer
	writeField := func(key ReleaseField, value string) {
		if value != "" {
			fmt.Fprintf(&b, "%s: %s\n", key, value)
		}
	}

	writeField(RelOrigin, ix.Info.Origin)
	writeField(RelLabel, ix.Info.Label)
	writeField(RelSuite, ix.Info.Suite)
	writeField(RelCodename, ix.Info.Codename)
	writeField(RelDate, time.Now().UTC().Format(time.RFC1123Z))
	writeField(RelArchitectures, ix.Info.Architectures)
	writeField(RelDescription, ix.Info.Description)
	fmt.Fprintf(&b, "%s:\n", RelSHA256)

	hPkg := sha256.Sum256(packages)
	fmt.Fprintf(&b, " %x %d %s\n", hPkg, len(packages), "Packages")
	hGz := sha256.Sum256(packagesGz)
	fmt.Fprintf(&b, " %x %d %s\n", hGz, len(packagesGz), "Packages.gz")

	return b.Bytes()
}

// extractControl walks the ar structure of a .deb stream to find the control
// member and returns the control file text from within it.
func extractControl(r io.Reader) (string, error) {
	arR := ar.NewReader(r)
	for {
		header, err := arR.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		if !strings.HasPrefix(header.Name, "control.tar") {
			continue
		}

		tr, err := tarReader(arR, header.Name)
		if err != nil {
			return "", err
		}
		for {
			th, err := tr.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				return "", err
			}
			if filepath.Base(th.Name) == string(FileControl) {
				var buf bytes.Buffer
				if _, err := io.Copy(&buf, tr); err != nil {
					return "", err
				}
				return buf.String(), nil
			}
		}
	}
	return "", fmt.Errorf("control file not found")
}
