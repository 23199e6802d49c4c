package sentiment

import (
	"encoding/gob"
	"fmt"
	"math"
	"os"
	"regexp"
	"strings"

	"gonum.org/v1/gonum/mat"

	"bank_reviews/internal/domain"
)

// Artifact is the exported inference head of the fine-tuned contextual
// model: token vocabulary, embedding table and two dense layers producing
// 3-way logits. The weights are pretrained offline and treated as opaque
// numbers here; this package only runs the forward pass.
type Artifact struct {
	Vocab  map[string]int // token -> embedding row
	Emb    [][]float64    // [len(Vocab)][dim]
	W1     [][]float64    // [hidden][dim]
	B1     []float64      // [hidden]
	W2     [][]float64    // [3][hidden]
	B2     []float64      // [3]
	MaxLen int            // maximum input length in tokens
	Labels []domain.Sentiment // logit order, exactly 3 entries
}

// Model holds the loaded weights. It is read-only after construction and
// safe for concurrent inference.
type Model struct {
	vocab  map[string]int
	emb    *mat.Dense
	w1     *mat.Dense
	b1     *mat.VecDense
	w2     *mat.Dense
	b2     *mat.VecDense
	maxLen int
	labels []domain.Sentiment
	dim    int
	hidden int
}

// Load reads a gob-encoded Artifact from disk. A missing or malformed
// artifact surfaces as ErrModelUnavailable; the pipeline must not start
// without a sentiment backend.
func Load(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sentiment model %s: %w", path, domain.ErrModelUnavailable)
	}
	defer f.Close()

	var a Artifact
	if err := gob.NewDecoder(f).Decode(&a); err != nil {
		return nil, fmt.Errorf("decode sentiment model %s: %w", path, domain.ErrModelUnavailable)
	}
	return New(a)
}

// New validates shapes and builds the model. Tests hand it tiny artifacts.
func New(a Artifact) (*Model, error) {
	if len(a.Labels) != 3 {
		return nil, fmt.Errorf("sentiment model: %d labels, want 3: %w", len(a.Labels), domain.ErrModelUnavailable)
	}
	if len(a.Emb) != len(a.Vocab) || len(a.Emb) == 0 {
		return nil, fmt.Errorf("sentiment model: %d embedding rows for %d vocab entries: %w",
			len(a.Emb), len(a.Vocab), domain.ErrModelUnavailable)
	}
	dim := len(a.Emb[0])
	hidden := len(a.W1)
	if hidden == 0 || len(a.B1) != hidden || len(a.W2) != 3 || len(a.B2) != 3 {
		return nil, fmt.Errorf("sentiment model: inconsistent head shapes: %w", domain.ErrModelUnavailable)
	}
	if a.MaxLen <= 0 {
		return nil, fmt.Errorf("sentiment model: max length %d: %w", a.MaxLen, domain.ErrModelUnavailable)
	}

	m := &Model{
		vocab:  a.Vocab,
		maxLen: a.MaxLen,
		labels: append([]domain.Sentiment(nil), a.Labels...),
		dim:    dim,
		hidden: hidden,
	}

	m.emb = mat.NewDense(len(a.Emb), dim, nil)
	for i, row := range a.Emb {
		if len(row) != dim {
			return nil, fmt.Errorf("sentiment model: embedding row %d has dim %d, want %d: %w",
				i, len(row), dim, domain.ErrModelUnavailable)
		}
		m.emb.SetRow(i, row)
	}
	m.w1 = mat.NewDense(hidden, dim, nil)
	for i, row := range a.W1 {
		if len(row) != dim {
			return nil, fmt.Errorf("sentiment model: W1 row %d has dim %d, want %d: %w",
				i, len(row), dim, domain.ErrModelUnavailable)
		}
		m.w1.SetRow(i, row)
	}
	m.w2 = mat.NewDense(3, hidden, nil)
	for i, row := range a.W2 {
		if len(row) != hidden {
			return nil, fmt.Errorf("sentiment model: W2 row %d has dim %d, want %d: %w",
				i, len(row), hidden, domain.ErrModelUnavailable)
		}
		m.w2.SetRow(i, row)
	}
	m.b1 = mat.NewVecDense(hidden, append([]float64(nil), a.B1...))
	m.b2 = mat.NewVecDense(3, append([]float64(nil), a.B2...))
	return m, nil
}

var tokenRE = regexp.MustCompile(`[\p{L}\p{N}]+`)

// Classify implements domain.SentimentClassifier: tokenize against the
// model vocabulary, truncate deterministically to the model's max input
// length, forward pass, softmax, arg-max.
func (m *Model) Classify(clauseText string) (domain.Sentiment, float64, error) {
	if m == nil {
		return "", 0, fmt.Errorf("sentiment backend not loaded: %w", domain.ErrModelUnavailable)
	}

	tokens := tokenRE.FindAllString(strings.ToLower(clauseText), -1)
	if len(tokens) > m.maxLen {
		tokens = tokens[:m.maxLen] // keep the first N tokens, never reject
	}

	pooled := m.meanPool(tokens)

	h := mat.NewVecDense(m.hidden, nil)
	h.MulVec(m.w1, pooled)
	h.AddVec(h, m.b1)
	for i := 0; i < m.hidden; i++ {
		h.SetVec(i, math.Tanh(h.AtVec(i)))
	}

	logits := mat.NewVecDense(3, nil)
	logits.MulVec(m.w2, h)
	logits.AddVec(logits, m.b2)

	probs := softmax([]float64{logits.AtVec(0), logits.AtVec(1), logits.AtVec(2)})
	best := 0
	for i := 1; i < 3; i++ {
		if probs[i] > probs[best] {
			best = i
		}
	}
	return m.labels[best], probs[best], nil
}

// meanPool averages the embeddings of in-vocabulary tokens. A clause with
// no known tokens pools to the zero vector; the biases then decide, which
// keeps the output deterministic without faking a failure.
func (m *Model) meanPool(tokens []string) *mat.VecDense {
	pooled := mat.NewVecDense(m.dim, nil)
	n := 0
	row := mat.NewVecDense(m.dim, nil)
	for _, t := range tokens {
		idx, ok := m.vocab[t]
		if !ok {
			continue
		}
		for j := 0; j < m.dim; j++ {
			row.SetVec(j, m.emb.At(idx, j))
		}
		pooled.AddVec(pooled, row)
		n++
	}
	if n > 0 {
		pooled.ScaleVec(1/float64(n), pooled)
	}
	return pooled
}

func softmax(z []float64) []float64 {
	maxZ := z[0]
	for _, v := range z[1:] {
		if v > maxZ {
			maxZ = v
		}
	}
	var sum float64
	out := make([]float64, len(z))
	for i, v := range z {
		out[i] = math.Exp(v - maxZ)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
