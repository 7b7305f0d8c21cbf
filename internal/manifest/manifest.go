// Package manifest defines the structured output of one extracted issue and
// its JSON serialization.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ReferenceKind classifies an extracted cross reference by its URL scheme.
type ReferenceKind string

const (
	ReferenceBible       ReferenceKind = "bible"
	ReferencePublication ReferenceKind = "publication"
	ReferenceVideo       ReferenceKind = "video"
)

// AssetKind distinguishes physical image files from external video
// identifiers.
type AssetKind string

const (
	AssetImage AssetKind = "image"
	AssetVideo AssetKind = "video"
)

// Reference is one cross reference extracted from a document's anchors.
type Reference struct {
	Kind ReferenceKind `json:"kind"`
	Link string        `json:"link"`
	Text string        `json:"text"`
}

// Asset is one media reference. Image assets correspond to files extracted
// into the assets directory; video assets are external media identifiers with
// no file in the container.
type Asset struct {
	FileName string    `json:"fileName"`
	AltText  string    `json:"altText"`
	Kind     AssetKind `json:"kind"`
}

// Document is the normalized form of one decrypted publication document.
// Immutable after creation.
type Document struct {
	ID         int         `json:"id"`
	Title      string      `json:"title"`
	References []Reference `json:"references"`
	Assets     []Asset     `json:"assets"`
	HTML       string      `json:"html"`
	Paragraphs []string    `json:"paragraphs"`
}

// Manifest is the complete output of one processed issue. Written once, never
// mutated.
type Manifest struct {
	Publication string     `json:"publication"`
	Year        int        `json:"year"`
	Issue       string     `json:"issue"`
	Language    string     `json:"language"`
	Title       string     `json:"title"`
	ExtractedAt string     `json:"extractedAt"`
	Documents   []Document `json:"documents"`
}

// FileName is the manifest's name inside an issue's output directory.
const FileName = "manifest.json"

// Stamp records the extraction time in RFC 3339 form.
func (m *Manifest) Stamp(now time.Time) {
	m.ExtractedAt = now.UTC().Format(time.RFC3339)
}

// Write serializes the manifest as indented JSON into dir/manifest.json.
func (m *Manifest) Write(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory %q: %w", dir, err)
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode manifest: %w", err)
	}
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("write manifest: %w", err)
	}
	return path, nil
}

// Load reads a previously written manifest.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	return &m, nil
}
