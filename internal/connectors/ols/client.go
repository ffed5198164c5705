package ols

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/ontomap/internal/core/domain"
	"github.com/custodia-labs/ontomap/internal/core/ports/driven"
	"github.com/custodia-labs/ontomap/internal/logger"
)

// Ensure Client implements the interface.
var _ driven.OntologyAPI = (*Client)(nil)

const (
	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultRequestsPerSecond paces outbound requests.
	DefaultRequestsPerSecond = 5.0

	// maxErrorBody caps how much of an error response is kept as the message.
	maxErrorBody = 512
)

// Options configures a Client.
type Options struct {
	// BaseURL is the API root, e.g. https://www.ebi.ac.uk/ols4/api.
	BaseURL string

	// Ontology is the ontology identifier, e.g. ncit.
	Ontology string

	// PageSize is added to listing URLs that carry no size parameter.
	// Zero leaves listing URLs untouched.
	PageSize int

	// RequestsPerSecond bounds the request rate. Zero disables pacing.
	RequestsPerSecond float64

	// HTTPClient overrides the default client. Its timeout is kept.
	HTTPClient *http.Client

	// Timeout applies when HTTPClient is nil.
	Timeout time.Duration
}

// OptionsFromConfig maps crawler configuration onto client options.
func OptionsFromConfig(cfg domain.CrawlerConfig) Options {
	return Options{
		BaseURL:           cfg.BaseURL,
		Ontology:          cfg.Ontology,
		PageSize:          cfg.PageSize,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Timeout:           time.Duration(cfg.TimeoutSeconds) * time.Second,
	}
}

// Client fetches term details and child listings.
type Client struct {
	base     string
	ontology string
	pageSize int
	http     *http.Client
	limiter  *rate.Limiter
}

// NewClient creates a client.
func NewClient(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	return &Client{
		base:     strings.TrimRight(opts.BaseURL, "/"),
		ontology: opts.Ontology,
		pageSize: opts.PageSize,
		http:     hc,
		limiter:  limiter,
	}
}

// TermURL returns the detail URL of a term. The IRI is percent-encoded
// twice, as the service expects.
func (c *Client) TermURL(iri string) string {
	return c.base + "/ontologies/" + url.PathEscape(c.ontology) + "/terms/" +
		url.QueryEscape(url.QueryEscape(iri))
}

// Term fetches a term's detail payload.
func (c *Client) Term(ctx context.Context, termURL string) (*driven.RemoteTerm, error) {
	var payload termJSON
	if err := c.get(ctx, termURL, &payload); err != nil {
		return nil, classify(err)
	}
	if payload.IRI == "" {
		return nil, classify(fmt.Errorf("%w: term without iri at %s", ErrMalformedResponse, termURL))
	}
	t := payload.remote()
	if t.Self == "" {
		t.Self = termURL
	}
	return &t, nil
}

// Page fetches one page of a term listing.
func (c *Client) Page(ctx context.Context, pageURL string) (*driven.TermPage, error) {
	u := c.withPageSize(pageURL)

	var payload pageJSON
	if err := c.get(ctx, u, &payload); err != nil {
		return nil, classify(err)
	}

	page := &driven.TermPage{
		Terms: make([]driven.RemoteTerm, 0, len(payload.Embedded.Terms)),
		Self:  payload.Links.Self.Href,
		Next:  payload.Links.Next.Href,
		Last:  payload.Links.Last.Href,
	}
	for _, t := range payload.Embedded.Terms {
		page.Terms = append(page.Terms, t.remote())
	}
	if page.Self == "" {
		page.Self = u
	}
	return page, nil
}

// withPageSize adds the size parameter to listing URLs that lack one.
func (c *Client) withPageSize(raw string) string {
	if c.pageSize <= 0 {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	if q.Has("size") {
		return raw
	}
	q.Set("size", strconv.Itoa(c.pageSize))
	u.RawQuery = q.Encode()
	return u.String()
}

// get performs a paced GET and decodes a JSON body into out.
func (c *Client) get(ctx context.Context, u string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", u, err)
	}
	defer resp.Body.Close()
	logger.Debug("GET %s -> %d (%s)", u, resp.StatusCode, time.Since(start).Round(time.Millisecond))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg, URL: u}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrMalformedResponse, u, err)
	}
	return nil
}
