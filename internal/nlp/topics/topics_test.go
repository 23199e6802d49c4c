package topics_test

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"bank_reviews/internal/domain"
	"bank_reviews/internal/nlp/topics"
)

func testOntology(t *testing.T) *topics.Ontology {
	t.Helper()
	o, err := topics.NewOntology("test", []topics.OntologyEntry{
		{
			Label:   "Дебетовая карта",
			Include: []string{"дебетовая карта", "карта", "карту", "карте"},
			Exclude: []string{"кредитная карта", "кредитную карту", "кредитной карте"},
		},
		{
			Label:   "Мобильное приложение",
			Include: []string{"приложение", "приложении", "мобильный банк"},
		},
		{
			Label:   "Обслуживание",
			Include: []string{"обслуживание", "офисе", "менеджер"},
		},
	})
	if err != nil {
		t.Fatalf("NewOntology: %v", err)
	}
	return o
}

func TestOntology_WholeWordMatch(t *testing.T) {
	o := testOntology(t)

	cases := []struct {
		clause string
		want   []domain.TopicLabel
	}{
		{"Отличное приложение", []domain.TopicLabel{"Мобильное приложение"}},
		{"намучился с приложениями", nil}, // inflected form not in vocabulary
		{"но обслуживание в офисе ужасное", []domain.TopicLabel{"Обслуживание"}},
		{"Нормально, без особых впечатлений", nil},
	}
	for _, tc := range cases {
		if got := o.Match(tc.clause); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("Match(%q) = %v, want %v", tc.clause, got, tc.want)
		}
	}
}

func TestOntology_ExcludeGuard(t *testing.T) {
	o := testOntology(t)

	if got := o.Match("кредитная карта пришла быстро"); len(got) != 0 {
		t.Errorf("exclude guard did not suppress: %v", got)
	}
	if got := o.Match("карта пришла быстро"); !reflect.DeepEqual(got, []domain.TopicLabel{"Дебетовая карта"}) {
		t.Errorf("plain mention: got %v", got)
	}
}

func TestOntology_MultiTopicClause(t *testing.T) {
	o := testOntology(t)

	got := o.Match("оплата по карте в приложении")
	want := []domain.TopicLabel{"Дебетовая карта", "Мобильное приложение"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestNewOntology_Validation(t *testing.T) {
	if _, err := topics.NewOntology("v", []topics.OntologyEntry{{Label: "", Include: []string{"x"}}}); err == nil {
		t.Error("empty label accepted")
	}
	if _, err := topics.NewOntology("v", []topics.OntologyEntry{{Label: "Вклады"}}); err == nil {
		t.Error("entry without include terms accepted")
	}
}

func TestLoadOntology_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ontology.json")
	body := `{"version":"2025-08-01","topics":[{"label":"Вклады","include":["вклад","вклады"]}]}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	o, err := topics.LoadOntology(path)
	if err != nil {
		t.Fatalf("LoadOntology: %v", err)
	}
	if o.Version() != "2025-08-01" {
		t.Errorf("version: %q", o.Version())
	}
	if got := o.Match("открыл вклад"); !reflect.DeepEqual(got, []domain.TopicLabel{"Вклады"}) {
		t.Errorf("got %v", got)
	}
}

func testArtifact() topics.Artifact {
	return topics.Artifact{
		Vocab:      map[string]int{"вклад": 0, "ипотека": 1},
		IDF:        []float64{1, 1},
		Classes:    []domain.TopicLabel{"Вклады", "Ипотека"},
		Weights:    [][]float64{{4, 0, -2}, {0, 4, -2}},
		Thresholds: []float64{0.5, 0.5},
	}
}

func TestModel_EmitThreshold(t *testing.T) {
	m, err := topics.NewModel(testArtifact())
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}

	// sigmoid(4*1 - 2) ≈ 0.88 clears the 0.5 cutoff.
	if got := m.Emit("открыл вклад"); !reflect.DeepEqual(got, []domain.TopicLabel{"Вклады"}) {
		t.Errorf("in-vocabulary clause: got %v", got)
	}
	// Bias alone gives sigmoid(-2) ≈ 0.12 for both classes.
	if got := m.Emit("курьер опоздал"); len(got) != 0 {
		t.Errorf("out-of-vocabulary clause: got %v", got)
	}
}

func TestModel_ScoresBounded(t *testing.T) {
	m, err := topics.NewModel(testArtifact())
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range m.Scores("вклад и ипотека") {
		if p <= 0 || p >= 1 {
			t.Errorf("score out of range: %v", p)
		}
	}
}

func TestNewModel_ShapeErrors(t *testing.T) {
	cases := map[string]func(a *topics.Artifact){
		"idf size":        func(a *topics.Artifact) { a.IDF = []float64{1} },
		"no classes":      func(a *topics.Artifact) { a.Classes = nil; a.Weights = nil; a.Thresholds = nil },
		"weight rows":     func(a *topics.Artifact) { a.Weights = a.Weights[:1] },
		"weight columns":  func(a *topics.Artifact) { a.Weights[0] = []float64{1} },
		"threshold count": func(a *topics.Artifact) { a.Thresholds = a.Thresholds[:1] },
	}
	for name, corrupt := range cases {
		t.Run(name, func(t *testing.T) {
			a := testArtifact()
			corrupt(&a)
			_, err := topics.NewModel(a)
			if !errors.Is(err, domain.ErrModelUnavailable) {
				t.Errorf("got %v, want ErrModelUnavailable", err)
			}
		})
	}
}

func TestLoadModel_MissingFile(t *testing.T) {
	_, err := topics.LoadModel(filepath.Join(t.TempDir(), "missing.gob"))
	if !errors.Is(err, domain.ErrModelUnavailable) {
		t.Errorf("got %v, want ErrModelUnavailable", err)
	}
}

func TestClassifier_UnionIsSortedAndDeduplicated(t *testing.T) {
	m, err := topics.NewModel(testArtifact())
	if err != nil {
		t.Fatal(err)
	}
	o, err := topics.NewOntology("test", []topics.OntologyEntry{
		{Label: "Вклады", Include: []string{"вклад"}},
		{Label: "Обслуживание", Include: []string{"менеджер"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	c := topics.NewClassifier(o, m)

	// "вклад" fires in both layers; the union must carry it once, sorted.
	got := c.Classify("менеджер оформил вклад")
	want := []domain.TopicLabel{"Вклады", "Обслуживание"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}

	if got := c.Classify("без особых впечатлений"); got != nil {
		t.Errorf("no-match clause: got %v, want nil", got)
	}
}
