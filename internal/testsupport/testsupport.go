// Package testsupport provides shared fixtures: temp configs, the encryption
// inverse of the production decrypt path, and synthetic publication containers
// with a real embedded sqlite database.
package testsupport

import (
	"archive/zip"
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zlib"
	_ "modernc.org/sqlite"

	"jwpub/internal/config"
	"jwpub/internal/jwcrypto"
)

// NewConfig returns a validated config rooted in per-test temp directories.
func NewConfig(t *testing.T) *config.Config {
	t.Helper()
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.OutputDir = filepath.Join(base, "output")
	cfg.Paths.DownloadDir = filepath.Join(base, "downloads")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	if err := cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return &cfg
}

// EncryptDeflate is the exact inverse of jwcrypto.DecryptInflate: it
// zlib-compresses the text, applies PKCS#7 padding, and encrypts with
// AES-128-CBC under the given secret.
func EncryptDeflate(t *testing.T, text string, secret jwcrypto.Secret) []byte {
	t.Helper()

	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	if _, err := zw.Write([]byte(text)); err != nil {
		t.Fatalf("deflate: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close deflate: %v", err)
	}

	plaintext := padPKCS7(compressed.Bytes(), aes.BlockSize)

	block, err := aes.NewCipher(secret.Key[:])
	if err != nil {
		t.Fatalf("aes cipher: %v", err)
	}
	encrypted := make([]byte, len(plaintext))
	cipher.NewCBCEncrypter(block, secret.IV[:]).CryptBlocks(encrypted, plaintext)
	return encrypted
}

func padPKCS7(data []byte, blockSize int) []byte {
	pad := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+pad)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(pad)
	}
	return padded
}

// ContainerDocument describes one Document row in a synthetic container.
type ContainerDocument struct {
	MepsDocumentID int
	Title          string
	HTML           string
	Class          int
}

// ContainerSpec describes a synthetic publication container.
type ContainerSpec struct {
	MepsLanguageIndex int
	Symbol            string
	Year              int
	IssueTagNumber    string
	Documents         []ContainerDocument
	Media             map[string][]byte
}

// PubCard returns the key-derivation seed string for the container's metadata.
func (s ContainerSpec) PubCard() string {
	return fmt.Sprintf("%d_%s_%d_%s", s.MepsLanguageIndex, s.Symbol, s.Year, s.IssueTagNumber)
}

// BuildContainer assembles a complete outer+inner container: an inner zip
// holding a real sqlite database (with encrypted document content) plus any
// media entries, wrapped in an outer zip with a publisher manifest.json and
// the inner archive under the entry name "contents".
func BuildContainer(t *testing.T, spec ContainerSpec) []byte {
	t.Helper()

	secret := jwcrypto.DeriveSecret(spec.PubCard())
	dbBytes := buildDatabase(t, spec, secret)

	inner := map[string][]byte{spec.Symbol + ".db": dbBytes}
	for name, data := range spec.Media {
		inner[name] = data
	}

	return BuildZip(t, map[string][]byte{
		"manifest.json": []byte(`{"name":"` + spec.Symbol + `"}`),
		"contents":      BuildZip(t, inner),
	})
}

// BuildZip assembles a zip archive from the given entries.
func BuildZip(t *testing.T, entries map[string][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, data := range entries {
		f, err := w.Create(name)
		if err != nil {
			t.Fatalf("zip create %q: %v", name, err)
		}
		if _, err := f.Write(data); err != nil {
			t.Fatalf("zip write %q: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

func buildDatabase(t *testing.T, spec ContainerSpec, secret jwcrypto.Secret) []byte {
	t.Helper()

	path := filepath.Join(t.TempDir(), "fixture.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open fixture db: %v", err)
	}
	defer db.Close()

	schema := []string{
		`CREATE TABLE Publication (MepsLanguageIndex INTEGER, Symbol TEXT, Year INTEGER, IssueTagNumber TEXT)`,
		`CREATE TABLE Document (MepsDocumentId INTEGER, Title TEXT, Content BLOB, Class INTEGER)`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}

	if _, err := db.Exec(
		`INSERT INTO Publication (MepsLanguageIndex, Symbol, Year, IssueTagNumber) VALUES (?, ?, ?, ?)`,
		spec.MepsLanguageIndex, spec.Symbol, spec.Year, spec.IssueTagNumber,
	); err != nil {
		t.Fatalf("insert publication: %v", err)
	}

	for _, doc := range spec.Documents {
		var content []byte
		if doc.HTML != "" {
			content = EncryptDeflate(t, doc.HTML, secret)
		}
		if _, err := db.Exec(
			`INSERT INTO Document (MepsDocumentId, Title, Content, Class) VALUES (?, ?, ?, ?)`,
			doc.MepsDocumentID, doc.Title, content, doc.Class,
		); err != nil {
			t.Fatalf("insert document: %v", err)
		}
	}

	if err := db.Close(); err != nil {
		t.Fatalf("close fixture db: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read fixture db: %v", err)
	}
	return data
}
