package sru

import "fmt"

// Query is the CQL filter for one run. It is fixed at construction; the only
// permitted augmentation is the modified-since clause.
type Query struct {
	base  string
	since string
}

// NewQuery wraps a base CQL filter expression.
func NewQuery(base string) Query {
	return Query{base: base}
}

// Since returns a copy of q restricted to records modified at or after ts
// (an ISO-8601 timestamp).
func (q Query) Since(ts string) Query {
	q.since = ts
	return q
}

// CQL renders the filter as sent on the wire.
func (q Query) CQL() string {
	if q.since == "" {
		return q.base
	}
	return fmt.Sprintf("(%s) AND dt.modified>=%s", q.base, q.since)
}
