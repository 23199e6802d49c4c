package app

import (
	"testing"

	"bank_reviews/internal/domain"
)

func TestAggregate_NoClauses(t *testing.T) {
	got := aggregate("r1", nil)

	if got.ReviewID != "r1" {
		t.Errorf("review id %q", got.ReviewID)
	}
	if s, ok := got.TopicSentiments[domain.TopicOther]; !ok || s != domain.SentimentNeutral {
		t.Errorf("got %v, want {Другое: neutral}", got.TopicSentiments)
	}
	if got.OverallConfidence != 0 {
		t.Errorf("confidence %v, want 0", got.OverallConfidence)
	}
}

func TestResolve_SeverityOrder(t *testing.T) {
	cases := []struct {
		name string
		in   []domain.Sentiment
		want domain.Sentiment
	}{
		{"clear majority", []domain.Sentiment{domain.SentimentPositive, domain.SentimentPositive, domain.SentimentNegative}, domain.SentimentPositive},
		{"pos-neg tie", []domain.Sentiment{domain.SentimentPositive, domain.SentimentNegative}, domain.SentimentNegative},
		{"pos-neu tie", []domain.Sentiment{domain.SentimentPositive, domain.SentimentNeutral}, domain.SentimentNeutral},
		{"three-way tie", []domain.Sentiment{domain.SentimentPositive, domain.SentimentNeutral, domain.SentimentNegative}, domain.SentimentNegative},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ms := make([]mention, 0, len(tc.in))
			for _, s := range tc.in {
				ms = append(ms, mention{sentiment: s, confidence: 0.5})
			}
			if got, _ := resolve(ms); got != tc.want {
				t.Errorf("resolve(%v) = %s, want %s", tc.in, got, tc.want)
			}
		})
	}
}
