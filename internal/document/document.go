// Package document defines the record produced by the crawl pipeline.
package document

// Document is one harvested publication, ready for persistence. The field
// names are part of the NDJSON output format consumed downstream and must
// not change.
type Document struct {
	URL     string `json:"URL"`
	Content string `json:"Content"`
	Source  string `json:"Source"`
}
