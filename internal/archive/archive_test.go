package archive_test

import (
	"archive/zip"
	"bytes"
	"errors"
	"testing"

	"jwpub/internal/archive"
)

func buildZip(t *testing.T, entries map[string][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, data := range entries {
		f, err := w.Create(name)
		if err != nil {
			t.Fatalf("create entry %q: %v", name, err)
		}
		if _, err := f.Write(data); err != nil {
			t.Fatalf("write entry %q: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func TestOpenRejectsCorruptInput(t *testing.T) {
	_, err := archive.Open([]byte("not a zip archive"), 0)
	if !errors.Is(err, archive.ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
}

func TestEntryRoundTrip(t *testing.T) {
	data := buildZip(t, map[string][]byte{"manifest.json": []byte(`{"name":"x"}`)})

	a, err := archive.Open(data, 0)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	got, err := a.Entry("manifest.json")
	if err != nil {
		t.Fatalf("Entry failed: %v", err)
	}
	if string(got) != `{"name":"x"}` {
		t.Fatalf("unexpected entry bytes: %q", got)
	}

	if _, err := a.Entry("missing"); !errors.Is(err, archive.ErrEntryNotFound) {
		t.Fatalf("expected ErrEntryNotFound, got %v", err)
	}
}

func TestNestedArchive(t *testing.T) {
	inner := buildZip(t, map[string][]byte{"pub.db": []byte("sqlite bytes"), "cover.jpg": {0xff, 0xd8}})
	outer := buildZip(t, map[string][]byte{
		"manifest.json": []byte("{}"),
		"contents":      inner,
	})

	a, err := archive.Open(outer, 0)
	if err != nil {
		t.Fatalf("Open outer failed: %v", err)
	}
	nested, err := a.Nested("contents")
	if err != nil {
		t.Fatalf("Nested failed: %v", err)
	}
	if !nested.Has("cover.jpg") {
		t.Fatalf("inner archive missing cover.jpg: %v", nested.Names())
	}

	dbName, err := nested.FindSuffix(".db")
	if err != nil {
		t.Fatalf("FindSuffix failed: %v", err)
	}
	if dbName != "pub.db" {
		t.Fatalf("unexpected db entry: %s", dbName)
	}
}

func TestNestedRejectsNonZipEntry(t *testing.T) {
	outer := buildZip(t, map[string][]byte{"contents": []byte("plain text")})
	a, err := archive.Open(outer, 0)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, err := a.Nested("contents"); !errors.Is(err, archive.ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt for non-zip nested entry, got %v", err)
	}
}

func TestEntrySizeCap(t *testing.T) {
	big := bytes.Repeat([]byte("a"), 4096)
	data := buildZip(t, map[string][]byte{"big.bin": big})

	a, err := archive.Open(data, 1024)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, err := a.Entry("big.bin"); !errors.Is(err, archive.ErrEntryTooLarge) {
		t.Fatalf("expected ErrEntryTooLarge, got %v", err)
	}
}

func TestSafeBaseName(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"images/photo_1.jpg", "photo_1.jpg", true},
		{"cover.png", "cover.png", true},
		{"../../etc/passwd", "", false},
		{"dir/..\\x", "", false},
	}
	for _, tc := range cases {
		got, ok := archive.SafeBaseName(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("SafeBaseName(%q) = %q,%v; want %q,%v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}
