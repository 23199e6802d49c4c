package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"bank_reviews/internal/adapters/observability"
	redisad "bank_reviews/internal/adapters/redis"
	"bank_reviews/internal/app"
	"bank_reviews/internal/domain"
	"bank_reviews/internal/nlp/sentiment"
	"bank_reviews/internal/nlp/splitter"
	"bank_reviews/internal/nlp/topics"
	"bank_reviews/internal/shared"
)

type inputFile struct {
	Data []inputRecord `json:"data"`
}

type inputRecord struct {
	ID   json.RawMessage `json:"id"` // opaque: integer or string, echoed back verbatim
	Text string          `json:"text"`
}

type outputRecord struct {
	ID         json.RawMessage     `json:"id"`
	Topics     []domain.TopicLabel `json:"topics"`
	Sentiments []domain.Sentiment  `json:"sentiments"`
}

type outputError struct {
	ID    json.RawMessage `json:"id"`
	Error string          `json:"error"`
}

type outputFile struct {
	Data   []outputRecord `json:"data"`
	Errors []outputError  `json:"errors,omitempty"`
}

func main() {
	in := flag.String("in", "", `input JSON file: {"data":[{"id":...,"text":"..."}]}`)
	out := flag.String("out", "predictions.json", "output JSON file")
	flag.Parse()

	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	observability.Serve(cfg.MetricsAddr, observability.InitRegistry())

	if *in == "" {
		log.Fatal().Msg("-in is required")
	}

	// Model weights load once at startup and stay resident for the process
	// lifetime; every request shares the same read-only handles.
	ont, err := topics.LoadOntology(cfg.OntologyPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.OntologyPath).Msg("ontology load failed")
	}
	topicModel, err := topics.LoadModel(cfg.TopicModelPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.TopicModelPath).Msg("topic model load failed")
	}
	sentModel, err := sentiment.Load(cfg.SentimentModelPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.SentimentModelPath).Msg("sentiment model load failed")
	}
	log.Info().
		Str("ontology_version", ont.Version()).
		Int("topic_classes", len(topicModel.Classes())).
		Int("workers", cfg.Workers).
		Msg("models loaded")

	var limiter *rate.Limiter
	if cfg.InferenceRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.InferenceRPS), cfg.InferenceRPS)
	}

	var cache domain.Cache
	if cfg.RedisAddr != "" {
		rc := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		defer rc.Close()
		cache = rc
	}

	pipe := app.NewPipeline(
		splitter.New(splitter.Config{MinTokens: cfg.MinClauseTokens}),
		topics.NewClassifier(ont, topicModel),
		sentModel,
		app.Options{
			Cache:         cache,
			CacheTTL:      cfg.CacheTTL,
			Limiter:       limiter,
			ReviewTimeout: cfg.ReviewTimeout,
			Workers:       cfg.Workers,
		},
	)

	raw, err := os.ReadFile(*in)
	if err != nil {
		log.Fatal().Err(err).Str("path", *in).Msg("read input failed")
	}
	var f inputFile
	if err := json.Unmarshal(raw, &f); err != nil {
		log.Fatal().Err(err).Msg("input is not valid JSON")
	}

	reviews := make([]domain.Review, 0, len(f.Data))
	for _, rec := range f.Data {
		reviews = append(reviews, domain.Review{ID: recordID(rec), Text: rec.Text})
	}
	log.Info().Int("reviews", len(reviews)).Msg("batch starting")

	res, err := pipe.PredictBatch(context.Background(), reviews)
	if err != nil {
		// ModelUnavailable is a service-level failure, not a per-review one.
		log.Fatal().Err(err).Msg("batch aborted")
	}

	var outF outputFile
	for _, rec := range f.Data { // preserve input order in the output
		id := recordID(rec)
		if pred, ok := res.Predictions[id]; ok {
			outF.Data = append(outF.Data, toRecord(rec.ID, pred))
			continue
		}
		if perr, ok := res.Errors[id]; ok {
			outF.Errors = append(outF.Errors, outputError{ID: rec.ID, Error: perr.Error()})
		}
	}

	b, err := json.MarshalIndent(outF, "", "  ")
	if err != nil {
		log.Fatal().Err(err).Msg("marshal output failed")
	}
	if err := os.WriteFile(*out, b, 0o644); err != nil {
		log.Fatal().Err(err).Str("path", *out).Msg("write output failed")
	}
	log.Info().
		Int("predicted", len(outF.Data)).
		Int("failed", len(outF.Errors)).
		Str("out", *out).
		Msg("batch completed")
}

func recordID(rec inputRecord) string {
	return strings.Trim(strings.TrimSpace(string(rec.ID)), `"`)
}

// toRecord flattens the topic map into the parallel topics[i]/sentiments[i]
// arrays of the output contract, sorted for stable files.
func toRecord(id json.RawMessage, pred domain.ReviewPrediction) outputRecord {
	labels := make([]domain.TopicLabel, 0, len(pred.TopicSentiments))
	for t := range pred.TopicSentiments {
		labels = append(labels, t)
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i] < labels[j] })

	rec := outputRecord{
		ID:         id,
		Topics:     labels,
		Sentiments: make([]domain.Sentiment, 0, len(labels)),
	}
	for _, t := range labels {
		rec.Sentiments = append(rec.Sentiments, pred.TopicSentiments[t])
	}
	return rec
}
