package app

import (
	"bank_reviews/internal/domain"
)

type mention struct {
	sentiment  domain.Sentiment
	confidence float64
}

// aggregate collapses clause-level (topic, sentiment) observations into one
// sentiment per distinct topic. When no clause matched any topic the
// sentinel TopicOther carries the vote across all clauses, so the output
// topic map is never empty. A review that produced zero clauses resolves
// to TopicOther/neutral with zero confidence.
func aggregate(reviewID string, preds []domain.ClausePrediction) domain.ReviewPrediction {
	byTopic := map[domain.TopicLabel][]mention{}
	all := make([]mention, 0, len(preds))
	for _, cp := range preds {
		m := mention{sentiment: cp.Sentiment, confidence: cp.Confidence}
		all = append(all, m)
		for _, t := range cp.Topics {
			byTopic[t] = append(byTopic[t], m)
		}
	}

	out := domain.ReviewPrediction{
		ReviewID:        reviewID,
		TopicSentiments: make(map[domain.TopicLabel]domain.Sentiment, len(byTopic)),
	}

	if len(byTopic) == 0 {
		label, conf := resolve(all)
		out.TopicSentiments[domain.TopicOther] = label
		out.OverallConfidence = conf
		return out
	}

	var sum float64
	for topic, ms := range byTopic {
		label, conf := resolve(ms)
		out.TopicSentiments[topic] = label
		sum += conf
	}
	out.OverallConfidence = sum / float64(len(byTopic))
	return out
}

// voteOrder lists sentiments in ascending severity so that an exact tie
// resolves to the most severe candidate.
var voteOrder = []domain.Sentiment{
	domain.SentimentPositive,
	domain.SentimentNeutral,
	domain.SentimentNegative,
}

// resolve majority-votes a mention list. The returned confidence is the
// mean confidence of the mentions that voted for the winner.
func resolve(ms []mention) (domain.Sentiment, float64) {
	if len(ms) == 0 {
		return domain.SentimentNeutral, 0
	}

	counts := map[domain.Sentiment]int{}
	for _, m := range ms {
		counts[m.sentiment]++
	}

	winner, best := domain.SentimentNeutral, -1
	for _, c := range voteOrder {
		if counts[c] >= best {
			winner, best = c, counts[c]
		}
	}

	var sum float64
	n := 0
	for _, m := range ms {
		if m.sentiment == winner {
			sum += m.confidence
			n++
		}
	}
	if n == 0 {
		return winner, 0
	}
	return winner, sum / float64(n)
}
