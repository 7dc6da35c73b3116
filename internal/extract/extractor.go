// Package extract resolves raw SRU records into pipeline documents.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/antchfx/xmlquery"
	"go.uber.org/zap"

	"github.com/opendatanl/verdragenbank-crawler/internal/document"
	"github.com/opendatanl/verdragenbank-crawler/internal/sru"
)

// Manifestation kinds, in selection priority order. Within a tier the first
// URL in document order wins.
const (
	manifestationXMLNL = "xml-nl"
	manifestationXML   = "xml"
	manifestationPDF   = "pdf"
)

// PlaceholderContent is stored for manifestations whose body is never fetched.
const PlaceholderContent = "Content from non-XML source, e.g., PDF, not extracted."

// Drop reasons. A record that fails extraction is skipped, never fatal.
var (
	ErrNoUsableURL  = errors.New("record has no usable URL")
	ErrEmptyContent = errors.New("document has no text content")
)

// Fetcher fetches a manifestation URL and returns its body.
type Fetcher interface {
	Get(ctx context.Context, url string, params url.Values) ([]byte, error)
}

// Extractor turns one raw record into a Document.
type Extractor struct {
	transport Fetcher
	source    string
	logger    *zap.Logger
}

// New builds an Extractor. source tags every document with the collection
// this pipeline instance harvests.
func New(transport Fetcher, source string, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{transport: transport, source: source, logger: logger}
}

// Extract selects the best manifestation URL of rec and resolves its content.
// A non-nil error means the record is dropped; the caller continues with the
// next record.
func (e *Extractor) Extract(ctx context.Context, rec sru.Record) (*document.Document, error) {
	target, isXML := selectURL(rec)
	if target == "" {
		return nil, ErrNoUsableURL
	}

	content := PlaceholderContent
	if isXML {
		text, err := e.fullText(ctx, target)
		if err != nil {
			return nil, err
		}
		content = text
	}

	return &document.Document{
		URL:     target,
		Content: content,
		Source:  e.source,
	}, nil
}

// selectURL picks the content URL by manifestation priority:
// xml-nl > xml > pdf > bare record URL. isXML reports whether the target
// should be fetched and flattened.
func selectURL(rec sru.Record) (target string, isXML bool) {
	items := rec.ItemURLs()
	for _, kind := range []string{manifestationXMLNL, manifestationXML} {
		for _, item := range items {
			if item.Manifestation == kind && item.URL != "" {
				return item.URL, true
			}
		}
	}
	for _, item := range items {
		if item.Manifestation == manifestationPDF && item.URL != "" {
			return item.URL, false
		}
	}
	return rec.BareURL(), false
}

// fullText fetches an XML manifestation and concatenates every text node in
// document order. Whitespace is preserved as emitted.
func (e *Extractor) fullText(ctx context.Context, target string) (string, error) {
	body, err := e.transport.Get(ctx, target, nil)
	if err != nil {
		return "", fmt.Errorf("fetch full text: %w", err)
	}
	doc, err := xmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parse full text: %w", err)
	}
	text := doc.InnerText()
	if text == "" {
		return "", ErrEmptyContent
	}
	return text, nil
}
