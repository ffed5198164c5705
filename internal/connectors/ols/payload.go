package ols

import (
	"encoding/json"
	"strings"

	"github.com/custodia-labs/ontomap/internal/core/ports/driven"
)

type link struct {
	Href string `json:"href"`
}

type termJSON struct {
	IRI         string       `json:"iri"`
	Label       string       `json:"label"`
	Synonyms    []string     `json:"synonyms"`
	Description flexibleText `json:"description"`
	HasChildren bool         `json:"has_children"`
	Links       struct {
		Self        link `json:"self"`
		Children    link `json:"children"`
		Descendants link `json:"descendants"`
	} `json:"_links"`
}

func (t termJSON) remote() driven.RemoteTerm {
	return driven.RemoteTerm{
		IRI:         t.IRI,
		Label:       t.Label,
		Synonyms:    t.Synonyms,
		Description: string(t.Description),
		HasChildren: t.HasChildren,
		Self:        t.Links.Self.Href,
		Children:    t.Links.Children.Href,
		Descendants: t.Links.Descendants.Href,
	}
}

type pageJSON struct {
	Embedded struct {
		Terms []termJSON `json:"terms"`
	} `json:"_embedded"`
	Links struct {
		Self link `json:"self"`
		Next link `json:"next"`
		Last link `json:"last"`
	} `json:"_links"`
}

// flexibleText accepts a string, a list of strings or null. Lists are
// joined with a space.
type flexibleText string

func (f *flexibleText) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexibleText(s)
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*f = flexibleText(strings.Join(list, " "))
	return nil
}
