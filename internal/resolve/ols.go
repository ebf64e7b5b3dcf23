// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolve

// OLS4 search responses come in two envelopes: the Solr-style
// {"response":{"docs":[...]}} and the HAL-style {"_embedded":{"terms":[...]}}.
type olsResponse struct {
	Response *struct {
		Docs []olsDoc `json:"docs"`
	} `json:"response"`
	Embedded *struct {
		Terms []olsDoc `json:"terms"`
	} `json:"_embedded"`
}

func (r olsResponse) documents() []olsDoc {
	if r.Response != nil && r.Response.Docs != nil {
		return r.Response.Docs
	}
	if r.Embedded != nil {
		return r.Embedded.Terms
	}
	return nil
}

type olsDoc struct {
	OntologyName   string   `json:"ontology_name"`
	OntologyPrefix string   `json:"ontology_prefix"`
	Ontology       string   `json:"ontology"`
	ShortForm      string   `json:"short_form"`
	OBOID          string   `json:"obo_id"`
	Label          string   `json:"label"`
	Name           string   `json:"name"`
	Synonym        []string `json:"synonym"`
	Synonyms       []string `json:"synonyms"`
}

func (d olsDoc) ontology() string {
	switch {
	case d.OntologyName != "":
		return d.OntologyName
	case d.OntologyPrefix != "":
		return d.OntologyPrefix
	}
	return d.Ontology
}

func (d olsDoc) id() string {
	if d.ShortForm != "" {
		return d.ShortForm
	}
	return d.OBOID
}

func (d olsDoc) synonyms() []string {
	if len(d.Synonym) > 0 {
		return d.Synonym
	}
	return d.Synonyms
}
