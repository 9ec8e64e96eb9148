package deb

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
)

func debBytes(t *testing.T, name, version string) []byte {
	t.Helper()
	p := testPackage()
	p.Control.Package = name
	p.Control.Version = version
	var buf bytes.Buffer
	if _, err := p.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo failed: %v", err)
	}
	return buf.Bytes()
}

func testInfo() ArchiveInfo {
	return ArchiveInfo{
		Origin:        "penenv",
		Label:         "PenEnv Releases",
		Suite:         "stable",
		Architectures: "amd64",
		Description:   "PenEnv distribution repository",
	}
}

func TestIndexRender(t *testing.T) {
	ix := NewIndex(testInfo())
	if err := ix.AddDeb("penenv_0.4.2-1_amd64.deb", debBytes(t, "penenv", "0.4.2-1")); err != nil {
		t.Fatalf("AddDeb failed: %v", err)
	}

	files, err := ix.Render("")
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	packages := string(files["Packages"])
	for _, want := range []string{
		"Package: penenv",
		"Version: 0.4.2-1",
		"Filename: penenv_0.4.2-1_amd64.deb",
		"SHA256: ",
	} {
		if !strings.Contains(packages, want) {
			t.Errorf("Packages missing %q:\n%s", want, packages)
		}
	}

	release := string(files["Release"])
	for _, want := range []string{
		"Origin: penenv",
		"Suite: stable",
		"SHA256:",
		" Packages\n",
		" Packages.gz\n",
	} {
		if !strings.Contains(release, want) {
			t.Errorf("Release missing %q:\n%s", want, release)
		}
	}

	if _, ok := files["InRelease"]; ok {
		t.Error("InRelease produced without a signing key")
	}
}

func TestIndexRejectsDuplicates(t *testing.T) {
	ix := NewIndex(testInfo())
	content := debBytes(t, "penenv", "0.4.2-1")
	if err := ix.AddDeb("a.deb", content); err != nil {
		t.Fatalf("first AddDeb failed: %v", err)
	}
	err := ix.AddDeb("b.deb", content)
	if err == nil {
		t.Fatal("expected duplicate error")
	}
	if !strings.Contains(err.Error(), "duplicate package") {
		t.Errorf("unexpected error: %v", err)
	}

	// Same package, different version is fine.
	if err := ix.AddDeb("c.deb", debBytes(t, "penenv", "0.4.3-1")); err != nil {
		t.Errorf("different version rejected: %v", err)
	}
}

func TestIndexSigned(t *testing.T) {
	key := generateTestKey(t)
	ix := NewIndex(testInfo())
	if err := ix.AddDeb("penenv_0.4.2-1_amd64.deb", debBytes(t, "penenv", "0.4.2-1")); err != nil {
		t.Fatal(err)
	}

	files, err := ix.Render(key)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	inRelease := string(files["InRelease"])
	if !strings.Contains(inRelease, "-----BEGIN PGP SIGNED MESSAGE-----") {
		t.Error("InRelease is not clearsigned")
	}
	if !strings.Contains(inRelease, "Origin: penenv") {
		t.Error("InRelease does not embed the Release content")
	}

	pub := string(files["public.asc"])
	if !strings.Contains(pub, "-----BEGIN PGP PUBLIC KEY BLOCK-----") {
		t.Error("public.asc is not an armored public key")
	}
	if strings.Contains(pub, "PRIVATE KEY") {
		t.Error("public.asc leaks the private key")
	}
	if len(files["public.gpg"]) == 0 {
		t.Error("binary public.gpg missing")
	}
}

func TestWriteDir(t *testing.T) {
	dir := t.TempDir()
	debPath := filepath.Join(dir, "penenv_0.4.2-1_amd64.deb")
	if err := os.WriteFile(debPath, debBytes(t, "penenv", "0.4.2-1"), 0644); err != nil {
		t.Fatal(err)
	}

	ix := NewIndex(testInfo())
	if err := ix.AddDebFile(debPath); err != nil {
		t.Fatalf("AddDebFile failed: %v", err)
	}
	if err := ix.WriteDir(dir, ""); err != nil {
		t.Fatalf("WriteDir failed: %v", err)
	}

	for _, name := range []string{"Packages", "Packages.gz", "Release"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing index file %s: %v", name, err)
		}
	}
}

// generateTestKey mints a throwaway armored private key for signing tests.
func generateTestKey(t *testing.T) string {
	t.Helper()
	entity, err := openpgp.NewEntity("Test", "test", "test@example.com", nil)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}

	var buf bytes.Buffer
	w, err := armor.Encode(&buf, openpgp.PrivateKeyType, nil)
	if err != nil {
		t.Fatalf("armor encode failed: %v", err)
	}
	if err := entity.SerializePrivate(w, nil); err != nil {
		t.Fatalf("serialize failed: %v", err)
	}
	w.Close()
	return buf.String()
}

func TestClearsign(t *testing.T) {
	key := generateTestKey(t)
	signed, err := Clearsign([]byte("sign me"), key)
	if err != nil {
		t.Fatalf("Clearsign failed: %v", err)
	}
	if !strings.Contains(string(signed), "-----BEGIN PGP SIGNED MESSAGE-----") {
		t.Error("output does not look like a clearsigned message")
	}

	if _, err := Clearsign([]byte("x"), "not a key"); err == nil {
		t.Error("expected error for malformed key")
	}
}

func TestPublicKey(t *testing.T) {
	key := generateTestKey(t)

	pubArmored, err := PublicKey(key, true)
	if err != nil {
		t.Fatalf("PublicKey armored failed: %v", err)
	}
	if !strings.Contains(string(pubArmored), "-----BEGIN PGP PUBLIC KEY BLOCK-----") {
		t.Error("output does not look like an armored public key")
	}

	pubBin, err := PublicKey(key, false)
	if err != nil {
		t.Fatalf("PublicKey binary failed: %v", err)
	}
	if len(pubBin) == 0 {
		t.Error("binary public key is empty")
	}
}
