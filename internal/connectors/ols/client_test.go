package ols

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ontomap/internal/core/ports/driven"
)

const cisplatinIRI = "http://purl.obolibrary.org/obo/NCIT_C376"

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Options{BaseURL: srv.URL + "/api/", Ontology: "ncit", PageSize: 50}), srv
}

func TestClient_TermURL_DoubleEncodes(t *testing.T) {
	c := NewClient(Options{BaseURL: "https://example.org/ols4/api", Ontology: "ncit"})

	got := c.TermURL(cisplatinIRI)

	assert.Equal(t,
		"https://example.org/ols4/api/ontologies/ncit/terms/http%253A%252F%252Fpurl.obolibrary.org%252Fobo%252FNCIT_C376",
		got)
}

func TestClient_Term(t *testing.T) {
	var gotPath string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		fmt.Fprintf(w, `{
			"iri": %q,
			"label": "Cisplatin",
			"synonyms": ["CDDP", "cis-Diamminedichloroplatinum"],
			"description": ["A platinum compound.", "Used in chemotherapy."],
			"has_children": true,
			"_links": {
				"self": {"href": "http://self"},
				"children": {"href": "http://children"},
				"descendants": {"href": "http://descendants"}
			}
		}`, cisplatinIRI)
	})

	term, err := c.Term(context.Background(), c.TermURL(cisplatinIRI))
	require.NoError(t, err)

	assert.Contains(t, gotPath, "/api/ontologies/ncit/terms/http%253A%252F%252F")
	assert.Equal(t, cisplatinIRI, term.IRI)
	assert.Equal(t, "Cisplatin", term.Label)
	assert.Equal(t, []string{"CDDP", "cis-Diamminedichloroplatinum"}, term.Synonyms)
	assert.Equal(t, "A platinum compound. Used in chemotherapy.", term.Description)
	assert.True(t, term.HasChildren)
	assert.Equal(t, "http://self", term.Self)
	assert.Equal(t, "http://children", term.Children)
	assert.Equal(t, "http://descendants", term.Descendants)
}

func TestClient_Term_DescriptionVariants(t *testing.T) {
	tests := []struct {
		name string
		json string
		want string
	}{
		{name: "string", json: `"Plain text."`, want: "Plain text."},
		{name: "null", json: `null`, want: ""},
		{name: "empty list", json: `[]`, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprintf(w, `{"iri": "http://x/1", "label": "x", "description": %s}`, tt.json)
			})

			term, err := c.Term(context.Background(), c.TermURL("http://x/1"))
			require.NoError(t, err)
			assert.Equal(t, tt.want, term.Description)
			assert.Equal(t, c.TermURL("http://x/1"), term.Self)
		})
	}
}

func TestClient_Term_Malformed(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"label": "no iri"}`)
	})

	_, err := c.Term(context.Background(), c.TermURL("http://x/1"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedResponse)
	assert.ErrorIs(t, err, driven.ErrPermanent)
	assert.False(t, IsRetryable(err))
}

func TestClient_Page(t *testing.T) {
	var gotSize string
	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotSize = r.URL.Query().Get("size")
		fmt.Fprintf(w, `{
			"_embedded": {"terms": [
				{"iri": "http://x/1", "label": "one", "has_children": false},
				{"iri": "http://x/2", "label": "two", "has_children": true,
				 "_links": {"children": {"href": "http://x/2/children"}}}
			]},
			"_links": {
				"self": {"href": "%[1]s/list?page=0"},
				"next": {"href": "%[1]s/list?page=1"},
				"last": {"href": "%[1]s/list?page=3"}
			}
		}`, "http://remote")
	})

	page, err := c.Page(context.Background(), srv.URL+"/list?page=0")
	require.NoError(t, err)

	assert.Equal(t, "50", gotSize)
	require.Len(t, page.Terms, 2)
	assert.Equal(t, "one", page.Terms[0].Label)
	assert.True(t, page.Terms[1].HasChildren)
	assert.Equal(t, "http://x/2/children", page.Terms[1].Children)
	assert.Equal(t, "http://remote/list?page=1", page.Next)
	assert.Equal(t, "http://remote/list?page=3", page.Last)
}

func TestClient_Page_LastPageHasNoNext(t *testing.T) {
	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"_embedded": {"terms": []}, "_links": {}}`)
	})

	page, err := c.Page(context.Background(), srv.URL+"/list")
	require.NoError(t, err)
	assert.Empty(t, page.Terms)
	assert.Empty(t, page.Next)
	assert.Equal(t, srv.URL+"/list?size=50", page.Self)
}

func TestClient_WithPageSize(t *testing.T) {
	c := NewClient(Options{BaseURL: "http://x", PageSize: 500})

	assert.Equal(t, "http://x/list?page=2&size=500", c.withPageSize("http://x/list?page=2"))
	assert.Equal(t, "http://x/list?size=20", c.withPageSize("http://x/list?size=20"))

	c = NewClient(Options{BaseURL: "http://x"})
	assert.Equal(t, "http://x/list", c.withPageSize("http://x/list"))
}

func TestClient_APIErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		retryable bool
	}{
		{name: "not found", status: http.StatusNotFound},
		{name: "bad request", status: http.StatusBadRequest},
		{name: "throttled", status: http.StatusTooManyRequests, retryable: true},
		{name: "server error", status: http.StatusBadGateway, retryable: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", tt.status)
			})

			_, err := c.Term(context.Background(), c.TermURL(cisplatinIRI))
			require.Error(t, err)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, "boom", apiErr.Message)
			assert.Equal(t, tt.retryable, IsRetryable(err))
			assert.Equal(t, !tt.retryable, errors.Is(err, driven.ErrPermanent))
		})
	}
}

func TestClient_TransportErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c := NewClient(Options{BaseURL: base, Ontology: "ncit"})
	_, err := c.Term(context.Background(), c.TermURL(cisplatinIRI))
	require.Error(t, err)
	assert.True(t, IsRetryable(err))
	assert.NotErrorIs(t, err, driven.ErrPermanent)
}

func TestClient_ContextCancelled(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Term(ctx, c.TermURL(cisplatinIRI))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, IsRetryable(err))
	assert.NotErrorIs(t, err, driven.ErrPermanent)
	assert.Zero(t, calls.Load())
}

func TestIsRetryable_Nil(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.NoError(t, classify(nil))
}
