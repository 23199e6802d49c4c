package topics

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	"bank_reviews/internal/domain"
)

// OntologyEntry declares one canonical topic with its trigger vocabulary.
// Include terms add the topic on a whole-word match; exclude terms are
// context guards that suppress the rule (e.g. "Дебетовая карта" must not
// fire on "кредитная карта").
type OntologyEntry struct {
	Label   domain.TopicLabel `json:"label"`
	Include []string          `json:"include"`
	Exclude []string          `json:"exclude"`
}

type ontologyFile struct {
	Version string          `json:"version"`
	Topics  []OntologyEntry `json:"topics"`
}

type compiledEntry struct {
	label   domain.TopicLabel
	include []*regexp.Regexp
	exclude []*regexp.Regexp
}

// Ontology is the closed, versioned topic vocabulary. It is compiled once
// at load time and immutable afterwards, so it is safe for concurrent use.
type Ontology struct {
	version string
	entries []compiledEntry
}

// LoadOntology reads the ontology configuration from a JSON file.
func LoadOntology(path string) (*Ontology, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ontology: %w", err)
	}
	var f ontologyFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse ontology: %w", err)
	}
	return NewOntology(f.Version, f.Topics)
}

// NewOntology compiles entries into whole-word matchers.
func NewOntology(version string, entries []OntologyEntry) (*Ontology, error) {
	o := &Ontology{version: version}
	for _, e := range entries {
		if e.Label == "" {
			return nil, fmt.Errorf("ontology entry with empty label")
		}
		if len(e.Include) == 0 {
			return nil, fmt.Errorf("ontology entry %q has no include terms", e.Label)
		}
		ce := compiledEntry{label: e.Label}
		for _, t := range e.Include {
			ce.include = append(ce.include, wholeWordRE(t))
		}
		for _, t := range e.Exclude {
			ce.exclude = append(ce.exclude, wholeWordRE(t))
		}
		o.entries = append(o.entries, ce)
	}
	return o, nil
}

func (o *Ontology) Version() string { return o.version }

// Match returns every topic whose include vocabulary appears in the clause
// as a whole word and whose exclude guards stay silent. Order follows the
// configuration file.
func (o *Ontology) Match(clause string) []domain.TopicLabel {
	var out []domain.TopicLabel
	for _, e := range o.entries {
		if !anyMatch(e.include, clause) || anyMatch(e.exclude, clause) {
			continue
		}
		out = append(out, e.label)
	}
	return out
}

func anyMatch(res []*regexp.Regexp, s string) bool {
	for _, re := range res {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// wholeWordRE builds a case-folded whole-word matcher. \b is ASCII-only in
// Go, so Cyrillic boundaries are spelled out.
func wholeWordRE(term string) *regexp.Regexp {
	q := strings.ReplaceAll(regexp.QuoteMeta(strings.TrimSpace(term)), " ", `\s+`)
	return regexp.MustCompile(`(?i)(^|[^\p{L}\p{N}])` + q + `($|[^\p{L}\p{N}])`)
}
