package deb

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/blakesmith/ar"
)

// Package is the in-memory definition of a Debian binary package.
// It separates metadata (Control), hooks (Scripts) and payload (Files).
type Package struct {
	Control Control
	Scripts Scripts
	Files   []File
}

// Control maps to the fields of the binary package control file.
//
// Reference: https://www.debian.org/doc/debian-policy/ch-controlfields.html#binary-package-control-files-debian-control
type Control struct {
	// Package is the package name: lower case letters, digits, '+', '-'
	// and '.', at least two characters, starting with an alphanumeric.
	Package string

	// Version is [epoch:]upstream_version[-debian_revision].
	Version string

	// Architecture is the target hardware architecture ("amd64", "arm64"),
	// or "all" for architecture-independent packages.
	Architecture string

	// Maintainer is "Name <email@address>".
	Maintainer string

	// Description holds the synopsis on the first line; any further lines
	// form the extended description and are indented on output.
	Description string

	// Section classifies the package ("utils", "net", ...).
	Section string

	// Priority is the package importance, "optional" for most packages.
	Priority string

	// Homepage is the upstream project URL.
	Homepage string

	// Depends, Recommends and Suggests are package relationship lists,
	// entries formatted as "name" or "name (>= version)".
	//
	// Reference: https://www.debian.org/doc/debian-policy/ch-relationships.html#s-binarydeps
	Depends    []string
	Recommends []string
	Suggests   []string
}

// Scripts holds the maintainer scripts executed by dpkg during the package
// lifecycle. Empty scripts are omitted from the control archive.
//
// Reference: https://www.debian.org/doc/debian-policy/ch-maintainerscripts.html
type Scripts struct {
	PreInst  string
	PostInst string
	PreRm    string
	PostRm   string
}

// File is a single payload entry installed on the target system.
type File struct {
	// DestPath is the absolute installation path, e.g. "/usr/bin/penenv".
	DestPath string

	// Mode is the permission mode (0755 for executables, 0644 for data).
	Mode int64

	// Body is the file content.
	Body []byte

	// IsConf marks the file as a conffile: dpkg preserves local edits to it
	// across upgrades.
	//
	// Reference: https://www.debian.org/doc/debian-policy/ch-files.html#s-config-files
	IsConf bool

	// ModTime is the modification time stored in the archive.
	// If zero, the build time is used.
	ModTime time.Time
}

// ReadFile loads a payload entry from disk. dst is the absolute installation
// path on the target system.
func ReadFile(src, dst string, mode int64) (File, error) {
	body, err := os.ReadFile(src)
	if err != nil {
		return File{}, fmt.Errorf("reading payload %s: %w", src, err)
	}
	info, err := os.Stat(src)
	if err != nil {
		return File{}, err
	}
	return File{
		DestPath: dst,
		Mode:     mode,
		Body:     body,
		ModTime:  info.ModTime(),
	}, nil
}

// StandardFilename returns the canonical artifact name,
// {Package}_{Version}_{Architecture}.deb.
func (p *Package) StandardFilename() string {
	return fmt.Sprintf("%s_%s_%s.deb", p.Control.Package, p.Control.Version, p.Control.Architecture)
}

// WriteTo serializes the .deb package to w, returning the number of bytes
// written. It satisfies io.WriterTo.
func (p *Package) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}

	// The data archive is built first: the control archive needs the md5sums
	// and installed size of the payload.
	dataBuf := new(bytes.Buffer)
	md5s, installedSize, err := p.buildDataArchive(dataBuf)
	if err != nil {
		return cw.n, fmt.Errorf("building data archive: %w", err)
	}

	controlBuf := new(bytes.Buffer)
	if err := p.buildControlArchive(controlBuf, md5s, installedSize); err != nil {
		return cw.n, fmt.Errorf("building control archive: %w", err)
	}

	// Outer ar container. Member order is mandated by the deb(5) format:
	// debian-binary, then control, then data.
	//
	// Reference: https://manpages.debian.org/unstable/dpkg-dev/deb.5.en.html#FORMAT
	arW := ar.NewWriter(cw)
	if err := arW.WriteGlobalHeader(); err != nil {
		return cw.n, fmt.Errorf("writing ar global header: %w", err)
	}
	members := []struct {
		name PackageMember
		body []byte
	}{
		{MemberDebianBinary, []byte("2.0\n")},
		{MemberControlTarGz, controlBuf.Bytes()},
		{MemberDataTarGz, dataBuf.Bytes()},
	}
	for _, m := range members {
		if err := addArMember(arW, string(m.name), m.body); err != nil {
			return cw.n, fmt.Errorf("writing %s: %w", m.name, err)
		}
	}
	return cw.n, nil
}

// buildDataArchive writes data.tar.gz to w. It returns the md5 checksum of
// every payload file keyed by destination path, and the total payload size
// in bytes.
//
// Files are sorted by destination and each parent directory gets an explicit
// entry, matching what dpkg-deb produces from a staged directory tree.
func (p *Package) buildDataArchive(w io.Writer) (map[string]string, int64, error) {
	gw := gzip.NewWriter(w)
	defer gw.Close()
	tw := tar.NewWriter(gw)
	defer tw.Close()

	files := make([]File, len(p.Files))
	copy(files, p.Files)
	sort.Slice(files, func(i, j int) bool { return files[i].DestPath < files[j].DestPath })

	md5s := make(map[string]string)
	var installedSize int64
	seenDirs := map[string]bool{}

	for _, file := range files {
		modTime := file.ModTime
		if modTime.IsZero() {
			modTime = time.Now()
		}

		for _, dir := range parentDirs(file.DestPath) {
			if seenDirs[dir] {
				continue
			}
			seenDirs[dir] = true
			hdr := &tar.Header{
				Typeflag: tar.TypeDir,
				Name:     dir + "/",
				Mode:     0755,
				ModTime:  modTime,
				Uname:    "root",
				Gname:    "root",
			}
			if err := tw.WriteHeader(hdr); err != nil {
				return nil, 0, err
			}
		}

		sum := md5.Sum(file.Body)
		md5s[file.DestPath] = hex.EncodeToString(sum[:])
		installedSize += int64(len(file.Body))

		hdr := &tar.Header{
			Name:    dataPath(file.DestPath),
			Size:    int64(len(file.Body)),
			Mode:    file.Mode,
			ModTime: modTime,
			Uname:   "root",
			Gname:   "root",
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return nil, 0, err
		}
		if _, err := tw.Write(file.Body); err != nil {
			return nil, 0, err
		}
	}
	return md5s, installedSize, nil
}

// buildControlArchive writes control.tar.gz to w.
func (p *Package) buildControlArchive(w io.Writer, md5s map[string]string, installedSize int64) error {
	gw := gzip.NewWriter(w)
	defer gw.Close()
	tw := tar.NewWriter(gw)
	defer tw.Close()

	writeEntry := func(name ControlFile, content []byte, mode int64) error {
		hdr := &tar.Header{
			Name:    "./" + string(name),
			Size:    int64(len(content)),
			Mode:    mode,
			ModTime: time.Now(),
			Uname:   "root",
			Gname:   "root",
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		_, err := tw.Write(content)
		return err
	}

	if err := writeEntry(FileControl, []byte(p.renderControl(installedSize)), 0644); err != nil {
		return fmt.Errorf("writing control: %w", err)
	}
	if err := writeEntry(FileMd5sums, []byte(renderMd5sums(md5s)), 0644); err != nil {
		return fmt.Errorf("writing md5sums: %w", err)
	}

	var conffiles []string
	for _, f := range p.Files {
		if f.IsConf {
			conffiles = append(conffiles, f.DestPath)
		}
	}
	if len(conffiles) > 0 {
		sort.Strings(conffiles)
		content := strings.Join(conffiles, "\n") + "\n"
		if err := writeEntry(FileConffiles, []byte(content), 0644); err != nil {
			return fmt.Errorf("writing conffiles: %w", err)
		}
	}

	// Maintainer scripts must be executable.
	scripts := []struct {
		name ControlFile
		body string
	}{
		{FilePreinst, p.Scripts.PreInst},
		{FilePostinst, p.Scripts.PostInst},
		{FilePrerm, p.Scripts.PreRm},
		{FilePostrm, p.Scripts.PostRm},
	}
	for _, s := range scripts {
		if s.body == "" {
			continue
		}
		if err := writeEntry(s.name, []byte(s.body), 0755); err != nil {
			return fmt.Errorf("writing %s: %w", s.name, err)
		}
	}
	return nil
}

// renderControl produces the control file text. installedBytes is converted
// to the Installed-Size unit, kilobytes rounded up.
func (p *Package) renderControl(installedBytes int64) string {
	var b strings.Builder
	writeField := func(field ControlField, value string) {
		if value != "" {
			fmt.Fprintf(&b, "%s: %s\n", field, value)
		}
	}
	writeRel := func(field ControlField, items []string) {
		if len(items) > 0 {
			writeField(field, strings.Join(items, ", "))
		}
	}

	writeField(FieldPackage, p.Control.Package)
	writeField(FieldVersion, p.Control.Version)
	writeField(FieldArchitecture, p.Control.Architecture)
	writeField(FieldMaintainer, p.Control.Maintainer)
	writeField(FieldInstalledSize, fmt.Sprintf("%d", (installedBytes+1023)/1024))
	writeField(FieldSection, p.Control.Section)
	writeField(FieldPriority, p.Control.Priority)
	writeField(FieldHomepage, p.Control.Homepage)
	writeRel(FieldDepends, p.Control.Depends)
	writeRel(FieldRecommends, p.Control.Recommends)
	writeRel(FieldSuggests, p.Control.Suggests)

	if p.Control.Description != "" {
		lines := strings.Split(p.Control.Description, "\n")
		writeField(FieldDescription, lines[0])
		for _, line := range lines[1:] {
			if strings.TrimSpace(line) == "" {
				b.WriteString(" .\n")
			} else if strings.HasPrefix(line, " ") {
				fmt.Fprintf(&b, "%s\n", line)
			} else {
				fmt.Fprintf(&b, " %s\n", line)
			}
		}
	}
	return b.String()
}

// renderMd5sums produces the md5sums control file, entries sorted by path,
// paths relative to the filesystem root.
func renderMd5sums(md5s map[string]string) string {
	paths := make([]string, 0, len(md5s))
	for p := range md5s {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var b strings.Builder
	for _, p := range paths {
		fmt.Fprintf(&b, "%s  %s\n", md5s[p], strings.TrimPrefix(p, "/"))
	}
	return b.String()
}

// NewPackage parses a .deb stream back into a Package.
func NewPackage(r io.Reader) (*Package, error) {
	pkg := &Package{}
	var conffiles []string

	arR := ar.NewReader(r)
	for {
		header, err := arR.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading ar header: %w", err)
		}

		switch {
		case strings.HasPrefix(header.Name, "control.tar"):
			tr, err := tarReader(arR, header.Name)
			if err != nil {
				return nil, err
			}
			if err := pkg.readControlArchive(tr, &conffiles); err != nil {
				return nil, err
			}
		case strings.HasPrefix(header.Name, "data.tar"):
			tr, err := tarReader(arR, header.Name)
			if err != nil {
				return nil, err
			}
			if err := pkg.readDataArchive(tr); err != nil {
				return nil, err
			}
		}
	}

	confSet := make(map[string]bool, len(conffiles))
	for _, cf := range conffiles {
		if cf != "" {
			confSet[cf] = true
		}
	}
	for i := range pkg.Files {
		if confSet[pkg.Files[i].DestPath] {
			pkg.Files[i].IsConf = true
		}
	}
	return pkg, nil
}

func (p *Package) readControlArchive(tr *tar.Reader, conffiles *[]string) error {
	for {
		th, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading control tar header: %w", err)
		}

		name := filepath.Base(th.Name)
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, tr); err != nil {
			return fmt.Errorf("reading %s: %w", name, err)
		}
		content := buf.String()

		switch ControlFile(name) {
		case FileControl:
			parseControl(content, &p.Control)
		case FileConffiles:
			*conffiles = strings.Split(strings.TrimSpace(content), "\n")
		case FilePreinst:
			p.Scripts.PreInst = content
		case FilePostinst:
			p.Scripts.PostInst = content
		case FilePrerm:
			p.Scripts.PreRm = content
		case FilePostrm:
			p.Scripts.PostRm = content
		}
	}
}

func (p *Package) readDataArchive(tr *tar.Reader) error {
	for {
		th, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading data tar header: %w", err)
		}
		if th.Typeflag != tar.TypeReg {
			continue
		}

		var buf bytes.Buffer
		if _, err := io.Copy(&buf, tr); err != nil {
			return fmt.Errorf("reading file %s: %w", th.Name, err)
		}
		p.Files = append(p.Files, File{
			DestPath: "/" + strings.TrimPrefix(path.Clean(th.Name), "./"),
			Mode:     th.Mode,
			Body:     buf.Bytes(),
			ModTime:  th.ModTime,
		})
	}
}

// dataPath converts an absolute destination path to the ./-rooted relative
// form used inside data.tar.
func dataPath(dest string) string {
	return "./" + strings.TrimPrefix(dest, "/")
}

// parentDirs returns the ./-rooted parent directories of an absolute
// destination path, shallowest first. "/usr/bin/penenv" yields
// ["./usr", "./usr/bin"].
func parentDirs(dest string) []string {
	dir := path.Dir(strings.TrimPrefix(dest, "/"))
	if dir == "." || dir == "/" {
		return nil
	}
	parts := strings.Split(dir, "/")
	dirs := make([]string, 0, len(parts))
	for i := range parts {
		dirs = append(dirs, "./"+strings.Join(parts[:i+1], "/"))
	}
	return dirs
}
