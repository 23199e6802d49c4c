package domain

// TopicLabel is one canonical product/service category from the closed
// ontology (e.g. "Дебетовая карта", "Ипотека", "Обслуживание").
type TopicLabel string

// TopicOther is the sentinel assigned when no clause of a review matched
// any ontology entry. It guarantees consumers never see a prediction with
// zero topics.
const TopicOther TopicLabel = "Другое"

// Sentiment is one of exactly three values. No other score is surfaced at
// the review level; confidence travels separately.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// Severity orders sentiments for exact-tie resolution. Under-reporting
// dissatisfaction is the costlier error for the business, so negative
// outranks neutral outranks positive.
func (s Sentiment) Severity() int {
	switch s {
	case SentimentNegative:
		return 2
	case SentimentNeutral:
		return 1
	default:
		return 0
	}
}

// Review is the immutable input unit. The ID is opaque to the pipeline;
// callers use it to match predictions back to their input.
type Review struct {
	ID   string
	Text string
}

// Clause is a short contiguous span of one review, expected to discuss one
// topic with one sentiment. Clauses live only between splitting and
// aggregation; they are never persisted.
type Clause struct {
	ReviewID string
	Index    int // ordinal position within the review
	Text     string
}

// ClausePrediction carries both classifiers' verdicts for one clause.
// Immutable after creation.
type ClausePrediction struct {
	Clause     Clause
	Topics     []TopicLabel
	Sentiment  Sentiment
	Confidence float64 // softmax probability of the chosen sentiment, [0,1]
}

// ReviewPrediction is the terminal output for one review. TopicSentiments
// holds one entry per distinct topic; it is never empty (TopicOther is the
// fallback key).
type ReviewPrediction struct {
	ReviewID          string
	TopicSentiments   map[TopicLabel]Sentiment
	OverallConfidence float64
}

// BatchResult keys per-review outcomes by review id, so callers can match
// predictions back to input order regardless of processing order. Reviews
// that failed individually (bad input, timeout) appear in Errors instead
// of Predictions.
type BatchResult struct {
	Predictions map[string]ReviewPrediction
	Errors      map[string]error
}
