package deb

import (
	"archive/tar"
	"compress/gzip"
	"io"
	"strings"
	"time"

	"github.com/blakesmith/ar"
)

// countingWriter wraps an io.Writer and counts the bytes written through it.
type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}

// addArMember writes a named byte slice as a member of the AR archive.
func addArMember(w *ar.Writer, name string, body []byte) error {
	header := &ar.Header{
		Name:    name,
		Size:    int64(len(body)),
		Mode:    0644,
		ModTime: time.Now(),
	}
	if err := w.WriteHeader(header); err != nil {
		return err
	}
	_, err := w.Write(body)
	return err
}

// tarReader returns a tar reader over r, transparently decompressing when the
// member name carries a .gz suffix.
func tarReader(r io.Reader, memberName string) (*tar.Reader, error) {
	if strings.HasSuffix(memberName, ".gz") {
		gzr, err := gzip.NewReader(r)
		if err != nil {
			return nil, err
		}
		return tar.NewReader(gzr), nil
	}
	return tar.NewReader(r), nil
}

// parseControl parses control file text into c. Unknown fields are dropped;
// folded (indented continuation) lines extend the previous field, which is
// how the extended Description survives a roundtrip.
func parseControl(content string, c *Control) {
	var key string
	var value strings.Builder

	flush := func() {
		if key == "" {
			return
		}
		val := strings.TrimSpace(value.String())
		switch ControlField(key) {
		case FieldPackage:
			c.Package = val
		case FieldVersion:
			c.Version = val
		case FieldArchitecture:
			c.Architecture = val
		case FieldMaintainer:
			c.Maintainer = val
		case FieldDescription:
			c.Description = val
		case FieldSection:
			c.Section = val
		case FieldPriority:
			c.Priority = val
		case FieldHomepage:
			c.Homepage = val
		case FieldDepends:
			c.Depends = splitList(val)
		case FieldRecommends:
			c.Recommends = splitList(val)
		case FieldSuggests:
			c.Suggests = splitList(val)
		}
	}

	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t") {
			value.WriteString("\n" + strings.TrimLeft(line, " \t"))
		} else if strings.Contains(line, ":") {
			flush()
			parts := strings.SplitN(line, ":", 2)
			key = parts[0]
			value.Reset()
			value.WriteString(strings.TrimSpace(parts[1]))
		}
	}
	flush()
}

// splitList splits a comma-separated relationship value, trimming whitespace.
// It returns nil for an empty input.
func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	res := make([]string, 0, len(parts))
	for _, p := range parts {
		res = append(res, strings.TrimSpace(p))
	}
	return res
}
