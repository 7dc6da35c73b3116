package sru

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/opendatanl/verdragenbank-crawler/internal/transport"
)

func envelope(urls ...string) string {
	var sb strings.Builder
	sb.WriteString(`<srw:searchRetrieveResponse xmlns:srw="http://docs.oasis-open.org/ns/search-ws/sruResponse" xmlns:gzd="http://standaarden.overheid.nl/sru/gzd">`)
	sb.WriteString(`<srw:records>`)
	for _, u := range urls {
		fmt.Fprintf(&sb, `<srw:record><srw:recordData><gzd:gzd><gzd:enrichedData>`+
			`<gzd:itemUrl manifestation="xml">%s</gzd:itemUrl>`+
			`</gzd:enrichedData></gzd:gzd></srw:recordData></srw:record>`, u)
	}
	sb.WriteString(`</srw:records></srw:searchRetrieveResponse>`)
	return sb.String()
}

func emptyEnvelope() string {
	return `<srw:searchRetrieveResponse xmlns:srw="http://docs.oasis-open.org/ns/search-ws/sruResponse"><srw:records/></srw:searchRetrieveResponse>`
}

func newTestClient(t *testing.T, srvURL string, pageSize int) *Client {
	t.Helper()
	tr := transport.New(transport.Config{
		Timeout:     time.Second,
		MaxAttempts: 2,
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
	}, nil)
	return NewClient(tr, Config{BaseURL: srvURL, PageSize: pageSize, RecordSchema: "gzd"}, nil)
}

func collectURLs(rs *RecordSet) []string {
	var got []string
	for rs.Next() {
		items := rs.Record().ItemURLs()
		if len(items) > 0 {
			got = append(got, items[0].URL)
		}
	}
	return got
}

func TestRecordsPaginatesUntilEmptyPage(t *testing.T) {
	t.Parallel()

	var requests []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := r.URL.Query().Get("startRecord")
		requests = append(requests, start)
		switch start {
		case "1":
			fmt.Fprint(w, envelope("https://example.org/a.xml", "https://example.org/b.xml"))
		case "3":
			fmt.Fprint(w, envelope("https://example.org/c.xml"))
		default:
			fmt.Fprint(w, emptyEnvelope())
		}
	}))
	defer srv.Close()

	rs := newTestClient(t, srv.URL, 2).Records(context.Background(), NewQuery("c.product-area==vd"))
	got := collectURLs(rs)

	require.NoError(t, rs.Err())
	require.Equal(t, []string{
		"https://example.org/a.xml",
		"https://example.org/b.xml",
		"https://example.org/c.xml",
	}, got)
	require.Equal(t, []string{"1", "3", "5"}, requests)

	// Exhaustion is final: further calls must not refetch.
	require.False(t, rs.Next())
	require.Equal(t, []string{"1", "3", "5"}, requests)
}

func TestRecordsSingleRecordPage(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("startRecord") == "1" {
			fmt.Fprint(w, envelope("https://example.org/only.xml"))
			return
		}
		fmt.Fprint(w, emptyEnvelope())
	}))
	defer srv.Close()

	rs := newTestClient(t, srv.URL, 100).Records(context.Background(), NewQuery("c.product-area==vd"))
	got := collectURLs(rs)

	require.NoError(t, rs.Err())
	require.Equal(t, []string{"https://example.org/only.xml"}, got)
}

func TestRecordsSurfacesPartialResultsOnTransportFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("startRecord") == "1" {
			fmt.Fprint(w, envelope("https://example.org/a.xml", "https://example.org/b.xml"))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	rs := newTestClient(t, srv.URL, 2).Records(context.Background(), NewQuery("c.product-area==vd"))
	got := collectURLs(rs)

	require.ErrorIs(t, rs.Err(), transport.ErrRetriesExhausted)
	require.Equal(t, []string{"https://example.org/a.xml", "https://example.org/b.xml"}, got)
}

func TestRecordsSendsProtocolParameters(t *testing.T) {
	t.Parallel()

	var query string
	var params map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		query = q.Get("query")
		params = map[string]string{
			"operation":      q.Get("operation"),
			"version":        q.Get("version"),
			"maximumRecords": q.Get("maximumRecords"),
			"recordSchema":   q.Get("recordSchema"),
			"httpAccept":     q.Get("httpAccept"),
		}
		fmt.Fprint(w, emptyEnvelope())
	}))
	defer srv.Close()

	q := NewQuery("c.product-area==vd").Since("2024-06-01T00:00:00Z")
	rs := newTestClient(t, srv.URL, 100).Records(context.Background(), q)
	require.False(t, rs.Next())
	require.NoError(t, rs.Err())

	require.Equal(t, "(c.product-area==vd) AND dt.modified>=2024-06-01T00:00:00Z", query)
	require.Equal(t, map[string]string{
		"operation":      "searchRetrieve",
		"version":        "2.0",
		"maximumRecords": "100",
		"recordSchema":   "gzd",
		"httpAccept":     "application/xml",
	}, params)
}

func TestQueryCQL(t *testing.T) {
	t.Parallel()

	base := NewQuery("c.product-area==vd")
	require.Equal(t, "c.product-area==vd", base.CQL())
	require.Equal(t,
		"(c.product-area==vd) AND dt.modified>=2024-01-02T03:04:05Z",
		base.Since("2024-01-02T03:04:05Z").CQL(),
	)
	// Since must not mutate the receiver.
	require.Equal(t, "c.product-area==vd", base.CQL())
}
