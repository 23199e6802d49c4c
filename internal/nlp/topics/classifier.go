package topics

import (
	"sort"

	"bank_reviews/internal/domain"
)

// Classifier is the hybrid topic layer: a statistical scorer supplemented
// by the deterministic ontology rules. The rule layer guarantees recall
// for exact-vocabulary mentions the statistical model may miss; it only
// ever adds labels, never removes a statistical one.
type Classifier struct {
	ont   *Ontology
	model *Model
}

func NewClassifier(ont *Ontology, model *Model) *Classifier {
	return &Classifier{ont: ont, model: model}
}

// Classify implements domain.TopicClassifier. The result is the union of
// both layers, sorted for deterministic output; an empty slice means "no
// confident match".
func (c *Classifier) Classify(clauseText string) []domain.TopicLabel {
	seen := map[domain.TopicLabel]struct{}{}
	for _, l := range c.model.Emit(clauseText) {
		seen[l] = struct{}{}
	}
	for _, l := range c.ont.Match(clauseText) {
		seen[l] = struct{}{}
	}
	if len(seen) == 0 {
		return nil
	}
	out := make([]domain.TopicLabel, 0, len(seen))
	for l := range seen {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
