package domain

import "context"

// Splitter segments one review into ordered, topic-coherent clauses.
// Empty or whitespace-only text yields an empty slice, never an error.
type Splitter interface {
	Split(reviewID, text string) []Clause
}

// TopicClassifier maps a clause to zero or more ontology labels. An empty
// result means "no confident match" and is valid.
type TopicClassifier interface {
	Classify(clauseText string) []TopicLabel
}

// SentimentClassifier maps a clause to one of the three sentiment labels
// with a calibrated confidence. A broken or missing backend returns
// ErrModelUnavailable; it must never default to neutral.
type SentimentClassifier interface {
	Classify(clauseText string) (Sentiment, float64, error)
}

// Cache is an optional read-through store for finished predictions.
type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}
