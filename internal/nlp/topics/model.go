package topics

import (
	"encoding/gob"
	"fmt"
	"math"
	"os"
	"regexp"
	"strings"

	"github.com/bbalet/stopwords"
	"gonum.org/v1/gonum/mat"

	"bank_reviews/internal/domain"
)

// Artifact is the trained statistical topic model in its serialized form:
// document-frequency-weighted vocabulary plus one linear scorer per class.
// Training happens offline; this package only runs inference.
type Artifact struct {
	Vocab      map[string]int      // term -> feature column
	IDF        []float64           // inverse document frequency, len == len(Vocab)
	Classes    []domain.TopicLabel // row order of Weights
	Weights    [][]float64         // [class][len(Vocab)+1], last column is the bias
	Thresholds []float64           // calibrated per-class probability cutoffs
}

// Model scores a clause against every class of the ontology. Weights are
// loaded once at startup and read-only afterwards.
type Model struct {
	vocab      map[string]int
	idf        []float64
	classes    []domain.TopicLabel
	weights    *mat.Dense // classes x (features+1)
	thresholds []float64
}

// LoadModel reads a gob-encoded Artifact from disk. Any shape mismatch is
// reported as ErrModelUnavailable so the pipeline refuses to start on a
// corrupt artifact instead of scoring garbage.
func LoadModel(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open topic model %s: %w", path, domain.ErrModelUnavailable)
	}
	defer f.Close()

	var a Artifact
	if err := gob.NewDecoder(f).Decode(&a); err != nil {
		return nil, fmt.Errorf("decode topic model %s: %w", path, domain.ErrModelUnavailable)
	}
	return NewModel(a)
}

// NewModel validates an Artifact and builds the scorer. Used directly by
// tests with hand-built artifacts.
func NewModel(a Artifact) (*Model, error) {
	features := len(a.Vocab)
	if len(a.IDF) != features {
		return nil, fmt.Errorf("topic model: idf size %d != vocab size %d: %w",
			len(a.IDF), features, domain.ErrModelUnavailable)
	}
	if len(a.Classes) == 0 || len(a.Weights) != len(a.Classes) || len(a.Thresholds) != len(a.Classes) {
		return nil, fmt.Errorf("topic model: %d classes, %d weight rows, %d thresholds: %w",
			len(a.Classes), len(a.Weights), len(a.Thresholds), domain.ErrModelUnavailable)
	}

	w := mat.NewDense(len(a.Classes), features+1, nil)
	for i, row := range a.Weights {
		if len(row) != features+1 {
			return nil, fmt.Errorf("topic model: weight row %d has %d columns, want %d: %w",
				i, len(row), features+1, domain.ErrModelUnavailable)
		}
		w.SetRow(i, row)
	}

	return &Model{
		vocab:      a.Vocab,
		idf:        a.IDF,
		classes:    a.Classes,
		weights:    w,
		thresholds: a.Thresholds,
	}, nil
}

func (m *Model) Classes() []domain.TopicLabel { return m.classes }

// Scores returns the per-class sigmoid probabilities for one clause, in
// class order.
func (m *Model) Scores(text string) []float64 {
	x := m.vectorize(text)
	scores := mat.NewVecDense(len(m.classes), nil)
	scores.MulVec(m.weights, x)

	out := make([]float64, len(m.classes))
	for i := range out {
		out[i] = sigmoid(scores.AtVec(i))
	}
	return out
}

// Emit reports the classes whose probability clears the calibrated
// threshold.
func (m *Model) Emit(text string) []domain.TopicLabel {
	var out []domain.TopicLabel
	for i, p := range m.Scores(text) {
		if p >= m.thresholds[i] {
			out = append(out, m.classes[i])
		}
	}
	return out
}

// vectorize builds an L2-normalized tf-idf vector with a trailing bias
// term. Russian stopwords are stripped before counting.
func (m *Model) vectorize(text string) *mat.VecDense {
	x := mat.NewVecDense(len(m.vocab)+1, nil)

	var norm float64
	for _, tok := range tokenizeTerms(text) {
		col, ok := m.vocab[tok]
		if !ok {
			continue
		}
		v := x.AtVec(col) + m.idf[col]
		x.SetVec(col, v)
	}
	for i := 0; i < len(m.vocab); i++ {
		norm += x.AtVec(i) * x.AtVec(i)
	}
	if norm > 0 {
		x.ScaleVec(1/math.Sqrt(norm), x)
	}
	x.SetVec(len(m.vocab), 1) // bias
	return x
}

var termRE = regexp.MustCompile(`[\p{L}\p{N}]+`)

func tokenizeTerms(text string) []string {
	clean := stopwords.CleanString(strings.ToLower(text), "ru", false)
	return termRE.FindAllString(clean, -1)
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}
