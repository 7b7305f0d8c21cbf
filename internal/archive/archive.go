// Package archive provides read-only access to the nested zip structure of a
// publication container: an outer archive holding publisher metadata plus a
// "contents" entry that is itself a zip archive.
package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

var (
	// ErrCorrupt reports input that cannot be opened as a zip archive.
	ErrCorrupt = errors.New("archive corrupt")
	// ErrEntryNotFound reports a missing named entry.
	ErrEntryNotFound = errors.New("entry not found")
	// ErrEntryTooLarge reports an entry whose declared size exceeds the
	// configured cap. The check runs before any allocation.
	ErrEntryTooLarge = errors.New("entry exceeds size limit")
)

// DefaultMaxEntryBytes caps individual entry extraction when the caller does
// not supply a limit.
const DefaultMaxEntryBytes = 128 << 20

// Archive is a handle over one opened zip buffer. All operations are
// byte-in-byte-out; the handle holds no file descriptors and never mutates
// its backing data.
type Archive struct {
	reader   *zip.Reader
	maxEntry int64
}

// Open parses the given bytes as a zip archive. maxEntryBytes limits how large
// a single extracted entry may be; zero selects DefaultMaxEntryBytes.
func Open(data []byte, maxEntryBytes int64) (*Archive, error) {
	if maxEntryBytes <= 0 {
		maxEntryBytes = DefaultMaxEntryBytes
	}
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return &Archive{reader: reader, maxEntry: maxEntryBytes}, nil
}

// Entry extracts the named entry in full.
func (a *Archive) Entry(name string) ([]byte, error) {
	for _, file := range a.reader.File {
		if file.Name != name {
			continue
		}
		return a.read(file)
	}
	return nil, fmt.Errorf("%w: %q", ErrEntryNotFound, name)
}

// Nested extracts the named entry and opens it as a zip archive in turn. The
// inner archive inherits the entry size cap.
func (a *Archive) Nested(name string) (*Archive, error) {
	data, err := a.Entry(name)
	if err != nil {
		return nil, err
	}
	inner, err := Open(data, a.maxEntry)
	if err != nil {
		return nil, fmt.Errorf("nested entry %q: %w", name, err)
	}
	return inner, nil
}

// Names lists all entry names in archive order.
func (a *Archive) Names() []string {
	names := make([]string, 0, len(a.reader.File))
	for _, file := range a.reader.File {
		names = append(names, file.Name)
	}
	return names
}

// Has reports whether the named entry exists.
func (a *Archive) Has(name string) bool {
	for _, file := range a.reader.File {
		if file.Name == name {
			return true
		}
	}
	return false
}

// FindSuffix returns the name of the first entry ending with the given suffix,
// or ErrEntryNotFound when no entry matches.
func (a *Archive) FindSuffix(suffix string) (string, error) {
	for _, file := range a.reader.File {
		if strings.HasSuffix(file.Name, suffix) {
			return file.Name, nil
		}
	}
	return "", fmt.Errorf("%w: no entry with suffix %q", ErrEntryNotFound, suffix)
}

func (a *Archive) read(file *zip.File) ([]byte, error) {
	if int64(file.UncompressedSize64) > a.maxEntry {
		return nil, fmt.Errorf("%w: %q declares %d bytes, limit %d",
			ErrEntryTooLarge, file.Name, file.UncompressedSize64, a.maxEntry)
	}
	rc, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: open %q: %v", ErrCorrupt, file.Name, err)
	}
	defer rc.Close()

	// LimitReader guards against entries whose header lies about their size.
	data, err := io.ReadAll(io.LimitReader(rc, a.maxEntry+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read %q: %v", ErrCorrupt, file.Name, err)
	}
	if int64(len(data)) > a.maxEntry {
		return nil, fmt.Errorf("%w: %q", ErrEntryTooLarge, file.Name)
	}
	return data, nil
}

// SafeBaseName reduces an entry name to its final path segment and rejects
// traversal sequences, so extracted files can never escape the output
// directory.
func SafeBaseName(entryName string) (string, bool) {
	if strings.Contains(entryName, "..") {
		return "", false
	}
	base := filepath.Base(filepath.ToSlash(entryName))
	if base == "." || base == "/" || base == "" {
		return "", false
	}
	return base, true
}
