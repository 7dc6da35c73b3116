package sru

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/antchfx/xmlquery"
)

// Record is one srw:record subtree from a searchRetrieve response. Selection
// helpers always yield slices in document order, so a field that collapses
// to a single element on the wire reads the same as a repeated one.
type Record struct {
	node *xmlquery.Node
}

// ItemURL is one manifestation URL advertised by a record.
type ItemURL struct {
	Manifestation string
	URL           string
}

// ItemURLs returns every manifestation URL of the record in document order.
func (r Record) ItemURLs() []ItemURL {
	ed := r.enrichedData()
	if ed == nil {
		return nil
	}
	nodes := xmlquery.Find(ed, "./*[local-name()='itemUrl']")
	out := make([]ItemURL, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, ItemURL{
			Manifestation: n.SelectAttr("manifestation"),
			URL:           strings.TrimSpace(n.InnerText()),
		})
	}
	return out
}

// BareURL returns the record's plain url field, or "" when absent.
func (r Record) BareURL() string {
	ed := r.enrichedData()
	if ed == nil {
		return ""
	}
	if n := xmlquery.FindOne(ed, "./*[local-name()='url']"); n != nil {
		return strings.TrimSpace(n.InnerText())
	}
	return ""
}

func (r Record) enrichedData() *xmlquery.Node {
	if r.node == nil {
		return nil
	}
	return xmlquery.FindOne(r.node,
		"./*[local-name()='recordData']/*[local-name()='gzd']/*[local-name()='enrichedData']")
}

// ParseResponse extracts the records of one searchRetrieve response page.
// A page without record entries is the end-of-result-set signal, not an
// error, so an empty slice is a valid return.
func ParseResponse(body []byte) ([]Record, error) {
	doc, err := xmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse response envelope: %w", err)
	}
	nodes := xmlquery.Find(doc, "//*[local-name()='records']/*[local-name()='record']")
	records := make([]Record, 0, len(nodes))
	for _, n := range nodes {
		records = append(records, Record{node: n})
	}
	return records, nil
}
