package splitter_test

import (
	"regexp"
	"strings"
	"testing"

	"bank_reviews/internal/nlp/splitter"
)

func newDefault() *splitter.Splitter {
	return splitter.New(splitter.DefaultConfig())
}

func texts(s *splitter.Splitter, text string) []string {
	clauses := s.Split("r1", text)
	out := make([]string, 0, len(clauses))
	for _, c := range clauses {
		out = append(out, c.Text)
	}
	return out
}

func TestSplit_ContrastMarkerOpensClause(t *testing.T) {
	got := texts(newDefault(), "Отличное приложение, но обслуживание в офисе ужасное")

	want := []string{"Отличное приложение", "но обслуживание в офисе ужасное"}
	if len(got) != len(want) {
		t.Fatalf("clauses: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("clause %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSplit_NoDelimitersYieldsWholeText(t *testing.T) {
	in := "Нормально, без особых впечатлений"
	got := texts(newDefault(), in)
	if len(got) != 1 || got[0] != in {
		t.Fatalf("got %v, want single clause %q", got, in)
	}
}

func TestSplit_EmptyInput(t *testing.T) {
	s := newDefault()
	for _, in := range []string{"", "   ", " \n\t "} {
		if got := s.Split("r1", in); len(got) != 0 {
			t.Errorf("Split(%q): got %d clauses, want 0", in, len(got))
		}
	}
}

func TestSplit_SentenceBoundaries(t *testing.T) {
	got := texts(newDefault(), "Кредит одобрили быстро. Ставка оказалась выше обещанной!")
	if len(got) != 2 {
		t.Fatalf("got %v, want 2 clauses", got)
	}
	if !strings.Contains(got[0], "одобрили") || !strings.Contains(got[1], "Ставка") {
		t.Errorf("unexpected clause split: %v", got)
	}
}

func TestSplit_AbbreviationsNotCut(t *testing.T) {
	got := texts(newDefault(), "Оформил вклад в г. Москва. Деньги зачислили сразу.")
	if len(got) != 2 {
		t.Fatalf("got %v, want 2 clauses", got)
	}
	if !strings.Contains(got[0], "г. Москва") {
		t.Errorf("abbreviation was cut: %q", got[0])
	}
}

func TestSplit_ReferenceNumberProtected(t *testing.T) {
	got := texts(newDefault(), "Подала заявку № 928*** на ипотеку, но ответа так и не дождалась")
	if len(got) != 2 {
		t.Fatalf("got %v, want 2 clauses", got)
	}
	if !strings.Contains(got[0], "№ 928***") {
		t.Errorf("reference number lost: %q", got[0])
	}
}

func TestSplit_ShortFragmentMergesForward(t *testing.T) {
	// "Ужасно." alone is below the minimum clause length; it must merge
	// into the following clause instead of being dropped.
	got := texts(newDefault(), "Ужасно. Очень долгое обслуживание в офисе.")
	if len(got) != 1 {
		t.Fatalf("got %v, want 1 merged clause", got)
	}
	if !strings.Contains(got[0], "Ужасно") || !strings.Contains(got[0], "обслуживание") {
		t.Errorf("merged clause lost content: %q", got[0])
	}
}

func TestSplit_IndexAndReviewID(t *testing.T) {
	s := newDefault()
	clauses := s.Split("rev-42", "Вклад открыл быстро. Приложение зависает постоянно.")
	if len(clauses) != 2 {
		t.Fatalf("got %d clauses, want 2", len(clauses))
	}
	for i, c := range clauses {
		if c.ReviewID != "rev-42" {
			t.Errorf("clause %d: review id %q", i, c.ReviewID)
		}
		if c.Index != i {
			t.Errorf("clause %d: index %d", i, c.Index)
		}
	}
}

var tokenRE = regexp.MustCompile(`[\p{L}\p{N}]+`)

func tokenSet(s string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, tok := range tokenRE.FindAllString(strings.ToLower(s), -1) {
		out[tok] = struct{}{}
	}
	return out
}

func TestSplit_NoTokenLoss(t *testing.T) {
	inputs := []string{
		"Отличное приложение, но обслуживание в офисе ужасное",
		"Кредит одобрили быстро. Ставка оказалась выше обещанной! Но менеджер помог разобраться.",
		"Перевела деньги через СБП, однако они не дошли до получателя, хотя поддержка уверяла, что всё в порядке.",
		"Карту привезли вовремя; курьер был вежлив. К тому же подарили бонусные баллы.",
		"Ужасно. Очень долгое обслуживание.",
		"Оформил вклад в г. Москва и т. д. без проблем",
	}

	s := newDefault()
	for i, in := range inputs {
		joined := strings.Join(texts(s, in), " ")
		got := tokenSet(joined)
		for tok := range tokenSet(in) {
			if _, ok := got[tok]; !ok {
				t.Errorf("input %d: token %q lost; clauses: %q", i, tok, joined)
			}
		}
	}
}
