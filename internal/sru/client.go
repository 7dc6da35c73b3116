// Package sru implements a client for SRU 2.0 searchRetrieve pagination
// against the overheid.nl repository.
package sru

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/opendatanl/verdragenbank-crawler/internal/metrics"
)

const (
	opSearchRetrieve = "searchRetrieve"
	protocolVersion  = "2.0"
	acceptXML        = "application/xml"
)

// Fetcher is the transport used for page requests.
type Fetcher interface {
	Get(ctx context.Context, url string, params url.Values) ([]byte, error)
}

// Config identifies the endpoint and page shape.
type Config struct {
	BaseURL      string
	PageSize     int
	RecordSchema string
}

// Client pages through searchRetrieve result sets.
type Client struct {
	transport Fetcher
	cfg       Config
	logger    *zap.Logger
}

// NewClient builds a Client over the given transport.
func NewClient(transport Fetcher, cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{transport: transport, cfg: cfg, logger: logger}
}

// Records begins paginating the result set of query. The returned RecordSet
// is not restartable: iteration always starts at the first record.
func (c *Client) Records(ctx context.Context, query Query) *RecordSet {
	return &RecordSet{ctx: ctx, client: c, query: query, next: 1}
}

// RecordSet iterates the result stream of one query, fetching pages lazily
// as the caller advances. A transport failure terminates iteration; records
// already yielded remain valid, and Err reports the failure so callers can
// treat the run as a partial success.
type RecordSet struct {
	ctx    context.Context
	client *Client
	query  Query

	next int // 1-based offset of the next page
	buf  []Record
	pos  int
	cur  Record
	done bool
	err  error
}

// Next advances to the next record. It returns false when the result set is
// exhausted or a page fetch failed; Err distinguishes the two.
func (rs *RecordSet) Next() bool {
	for {
		if rs.pos < len(rs.buf) {
			rs.cur = rs.buf[rs.pos]
			rs.pos++
			return true
		}
		if rs.done || rs.err != nil {
			return false
		}
		rs.fetchPage()
	}
}

// Record returns the record read by the last successful call to Next.
func (rs *RecordSet) Record() Record {
	return rs.cur
}

// Err returns the failure that terminated iteration early, if any.
func (rs *RecordSet) Err() error {
	return rs.err
}

func (rs *RecordSet) fetchPage() {
	params := url.Values{
		"operation":      {opSearchRetrieve},
		"version":        {protocolVersion},
		"query":          {rs.query.CQL()},
		"startRecord":    {strconv.Itoa(rs.next)},
		"maximumRecords": {strconv.Itoa(rs.client.cfg.PageSize)},
		"recordSchema":   {rs.client.cfg.RecordSchema},
		"httpAccept":     {acceptXML},
	}

	body, err := rs.client.transport.Get(rs.ctx, rs.client.cfg.BaseURL, params)
	if err != nil {
		rs.err = fmt.Errorf("fetch page at record %d: %w", rs.next, err)
		return
	}
	records, err := ParseResponse(body)
	if err != nil {
		rs.err = fmt.Errorf("page at record %d: %w", rs.next, err)
		return
	}
	metrics.ObservePage()

	// An empty page means the result set is exhausted.
	if len(records) == 0 {
		rs.done = true
		return
	}

	rs.client.logger.Debug("fetched result page",
		zap.Int("start_record", rs.next),
		zap.Int("records", len(records)),
	)
	rs.buf = records
	rs.pos = 0
	rs.next += rs.client.cfg.PageSize
}
