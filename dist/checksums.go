package dist

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/penenv/distkit/deb"
)

// ChecksumFilename is the artifact checksum manifest written next to the
// packages, in the sha256sum(1) format so consumers can verify with
// `sha256sum -c`.
const ChecksumFilename = "SHA256SUMS"

// WriteChecksums writes the checksum manifest for the given artifacts into
// dir and returns its path. Entries use base names and are sorted so the
// output is deterministic.
func WriteChecksums(dir string, artifacts []string) (string, error) {
	names := make([]string, len(artifacts))
	copy(names, artifacts)
	sort.Strings(names)

	var b strings.Builder
	for _, artifact := range names {
		content, err := os.ReadFile(artifact)
		if err != nil {
			return "", fmt.Errorf("reading artifact %s: %w", artifact, err)
		}
		sum := sha256.Sum256(content)
		fmt.Fprintf(&b, "%x  %s\n", sum, filepath.Base(artifact))
	}

	path := filepath.Join(dir, ChecksumFilename)
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return "", fmt.Errorf("writing %s: %w", ChecksumFilename, err)
	}
	return path, nil
}

// SignChecksums clearsigns the checksum manifest with the ASCII-armored
// private key and writes it next to the original with an .asc suffix.
func SignChecksums(sumPath, armoredKey string) (string, error) {
	content, err := os.ReadFile(sumPath)
	if err != nil {
		return "", err
	}
	signed, err := deb.Clearsign(content, armoredKey)
	if err != nil {
		return "", fmt.Errorf("signing %s: %w", filepath.Base(sumPath), err)
	}

	path := sumPath + ".asc"
	if err := os.WriteFile(path, signed, 0644); err != nil {
		return "", err
	}
	return path, nil
}
