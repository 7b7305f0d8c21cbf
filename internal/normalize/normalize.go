// Package normalize turns one decrypted document HTML blob into structured
// content: cross references, media references, rewritten asset paths, and
// plain-text paragraphs.
package normalize

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"jwpub/internal/manifest"
)

// Custom URL schemes used by publication HTML for cross references.
const (
	schemeBible       = "bible://"
	schemePublication = "jwpub://"
	schemeVideo       = "webpubvid://"
	schemeMedia       = "jwpub-media://"
)

// AssetClass is added to every rewritten <img> element so the presentation
// layer can restyle extracted media.
const AssetClass = "jwpub-asset"

// assetPathPrefix is the relative location of extracted media, the join key
// with the asset extractor's output directory.
const assetPathPrefix = "./assets/"

// Parse normalizes one document. The parse is permissive: a document with no
// references or assets is valid. When the DOM parse itself fails, Parse
// returns a degraded document carrying the raw HTML with empty extraction
// lists, alongside the error, so the caller can record the warning and keep
// going.
func Parse(rawHTML string, id int, fallbackTitle string) (manifest.Document, error) {
	degraded := manifest.Document{
		ID:         id,
		Title:      fallbackTitle,
		References: []manifest.Reference{},
		Assets:     []manifest.Asset{},
		Paragraphs: []string{},
		HTML:       rawHTML,
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return degraded, fmt.Errorf("parse document %d: %w", id, err)
	}

	title := extractTitle(doc)
	if title == "" {
		title = fallbackTitle
	}

	references, videoAssets := extractReferences(doc)
	assets := rewriteImages(doc)
	// Video references double as assets; they have no physical file in the
	// container, the link itself is the external media identifier.
	assets = append(assets, videoAssets...)

	rewritten, err := doc.Html()
	if err != nil {
		return degraded, fmt.Errorf("serialize document %d: %w", id, err)
	}

	return manifest.Document{
		ID:         id,
		Title:      title,
		References: references,
		Assets:     assets,
		Paragraphs: extractParagraphs(doc),
		HTML:       rewritten,
	}, nil
}

func extractTitle(doc *goquery.Document) string {
	if h1 := strings.TrimSpace(doc.Find("h1").First().Text()); h1 != "" {
		return h1
	}
	return strings.TrimSpace(doc.Find("h2").First().Text())
}

func extractReferences(doc *goquery.Document) ([]manifest.Reference, []manifest.Asset) {
	references := []manifest.Reference{}
	videoAssets := []manifest.Asset{}

	doc.Find("a").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		dataVideo, _ := sel.Attr("data-video")
		text := strings.TrimSpace(sel.Text())

		switch {
		case strings.HasPrefix(href, schemeBible):
			references = append(references, manifest.Reference{
				Kind: manifest.ReferenceBible,
				Link: href,
				Text: text,
			})
		case strings.HasPrefix(href, schemePublication):
			references = append(references, manifest.Reference{
				Kind: manifest.ReferencePublication,
				Link: href,
				Text: text,
			})
		}

		if strings.HasPrefix(href, schemeVideo) || strings.HasPrefix(dataVideo, schemeVideo) {
			// data-video carries the canonical media identifier and wins
			// whenever present, scheme-prefixed or bare.
			link := href
			if dataVideo != "" {
				link = dataVideo
			}
			label := text
			if label == "" {
				label = "Video"
			}
			references = append(references, manifest.Reference{
				Kind: manifest.ReferenceVideo,
				Link: link,
				Text: label,
			})
			videoAssets = append(videoAssets, manifest.Asset{
				FileName: link,
				AltText:  label,
				Kind:     manifest.AssetVideo,
			})
		}
	})

	return references, videoAssets
}

func rewriteImages(doc *goquery.Document) []manifest.Asset {
	assets := []manifest.Asset{}

	doc.Find("img").Each(func(_ int, sel *goquery.Selection) {
		src, ok := sel.Attr("src")
		if !ok {
			return
		}
		fileName := AssetFileName(src)
		if fileName == "" {
			return
		}
		alt, _ := sel.Attr("alt")
		assets = append(assets, manifest.Asset{
			FileName: fileName,
			AltText:  alt,
			Kind:     manifest.AssetImage,
		})

		sel.SetAttr("src", assetPathPrefix+fileName)
		// Intrinsic sizing is re-established by the presentation layer.
		sel.RemoveAttr("width")
		sel.RemoveAttr("height")
		sel.AddClass(AssetClass)
	})

	return assets
}

func extractParagraphs(doc *goquery.Document) []string {
	paragraphs := []string{}
	doc.Find("p").Each(func(_ int, sel *goquery.Selection) {
		if text := strings.TrimSpace(sel.Text()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	})
	return paragraphs
}

// AssetFileName reduces a media source URL to the bare file name used both in
// the rewritten src attribute and as the extraction join key.
func AssetFileName(src string) string {
	trimmed := strings.TrimPrefix(src, schemeMedia)
	if idx := strings.LastIndex(trimmed, "/"); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	return trimmed
}
