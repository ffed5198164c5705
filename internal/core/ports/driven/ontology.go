package driven

import (
	"context"
	"errors"
)

// ErrPermanent marks a fetch failure that a later attempt cannot fix, such
// as a missing term or an undecodable payload.
var ErrPermanent = errors.New("permanent fetch failure")

// OntologyAPI reads a remote term hierarchy service.
type OntologyAPI interface {
	// TermURL returns the detail URL of a term IRI.
	TermURL(iri string) string

	// Term fetches a term's detail payload. Failures wrapping ErrPermanent
	// are not worth retrying.
	Term(ctx context.Context, url string) (*RemoteTerm, error)

	// Page fetches one page of a term listing.
	Page(ctx context.Context, url string) (*TermPage, error)
}

// RemoteTerm is a term as returned by the remote service.
type RemoteTerm struct {
	IRI         string
	Label       string
	Synonyms    []string
	Description string
	HasChildren bool

	// Self is the term's detail URL.
	Self string

	// Children and Descendants are listing URLs. Either may be empty.
	Children    string
	Descendants string
}

// TermPage is one page of a paginated term listing.
type TermPage struct {
	Terms []RemoteTerm

	// Self, Next and Last are pagination links. Next is empty on the
	// final page.
	Self string
	Next string
	Last string
}
