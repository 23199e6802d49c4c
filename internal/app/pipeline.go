package app

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"bank_reviews/internal/adapters/observability"
	"bank_reviews/internal/domain"
)

var logger = observability.Component("pipeline")

// Options carries the pipeline's runtime tunables. Cache and Limiter are
// optional; everything else has sane defaults.
type Options struct {
	Cache         domain.Cache
	CacheTTL      time.Duration
	Limiter       *rate.Limiter // caps inference throughput across workers
	ReviewTimeout time.Duration // per-review budget, 0 disables
	Workers       int           // batch worker pool size
}

// Pipeline is the clause-level classification and aggregation service. It
// is stateless per review: model handles are injected once at construction
// and shared read-only across all requests.
type Pipeline struct {
	split     domain.Splitter
	topics    domain.TopicClassifier
	sentiment domain.SentimentClassifier
	opts      Options
}

func NewPipeline(sp domain.Splitter, tc domain.TopicClassifier, sc domain.SentimentClassifier, opts Options) *Pipeline {
	if opts.Workers <= 0 {
		opts.Workers = 8
	}
	return &Pipeline{split: sp, topics: tc, sentiment: sc, opts: opts}
}

// PredictOne classifies a single review: split into clauses, run both
// classifiers concurrently over the clause list, aggregate. Deterministic
// for identical text given fixed model artifacts.
func (p *Pipeline) PredictOne(ctx context.Context, r domain.Review) (domain.ReviewPrediction, error) {
	start := time.Now()

	if strings.TrimSpace(r.Text) == "" {
		observability.ObserveReview("invalid", time.Since(start))
		return domain.ReviewPrediction{}, fmt.Errorf("review %s: empty text: %w", r.ID, domain.ErrInvalidInput)
	}

	parent := ctx
	key := predictionKey(r.Text)
	if p.opts.Cache != nil {
		var cached domain.ReviewPrediction
		if ok, _ := p.opts.Cache.Get(ctx, key, &cached); ok {
			cached.ReviewID = r.ID // identical text may arrive under another id
			observability.ObserveReview("cached", time.Since(start))
			return cached, nil
		}
	}

	if p.opts.ReviewTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.ReviewTimeout)
		defer cancel()
	}

	tSplit := time.Now()
	clauses := p.split.Split(r.ID, r.Text)
	observability.ObserveStage("split", time.Since(tSplit))
	observability.ObserveClauses(len(clauses))

	var preds []domain.ClausePrediction
	if len(clauses) > 0 {
		var err error
		preds, err = p.classifyClauses(ctx, clauses)
		if err != nil {
			status := "failed"
			if errors.Is(err, context.DeadlineExceeded) {
				status = "timeout"
				err = domain.ErrClassificationTimeout
			}
			observability.ObserveReview(status, time.Since(start))
			return domain.ReviewPrediction{}, fmt.Errorf("review %s: %w", r.ID, err)
		}
	}

	out := aggregate(r.ID, preds)
	if p.opts.Cache != nil {
		_ = p.opts.Cache.Set(parent, key, out, int(p.opts.CacheTTL.Seconds()))
	}
	observability.ObserveReview("ok", time.Since(start))
	return out, nil
}

// classifyClauses fans out the two classifiers over the clause list — they
// have no data dependency — and joins them, propagating the first error.
func (p *Pipeline) classifyClauses(ctx context.Context, clauses []domain.Clause) ([]domain.ClausePrediction, error) {
	topicsByClause := make([][]domain.TopicLabel, len(clauses))
	sents := make([]domain.Sentiment, len(clauses))
	confs := make([]float64, len(clauses))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t := time.Now()
		for i, cl := range clauses {
			if err := gctx.Err(); err != nil {
				return err
			}
			topicsByClause[i] = p.topics.Classify(cl.Text)
		}
		observability.ObserveStage("topics", time.Since(t))
		return nil
	})
	g.Go(func() error {
		t := time.Now()
		for i, cl := range clauses {
			if p.opts.Limiter != nil {
				if err := p.opts.Limiter.Wait(gctx); err != nil {
					return err
				}
			} else if err := gctx.Err(); err != nil {
				return err
			}
			label, conf, err := p.sentiment.Classify(cl.Text)
			if err != nil {
				return err
			}
			sents[i] = label
			confs[i] = conf
		}
		observability.ObserveStage("sentiment", time.Since(t))
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	preds := make([]domain.ClausePrediction, len(clauses))
	for i, cl := range clauses {
		preds[i] = domain.ClausePrediction{
			Clause:     cl,
			Topics:     topicsByClause[i],
			Sentiment:  sents[i],
			Confidence: confs[i],
		}
	}
	return preds, nil
}

// PredictBatch runs PredictOne for every review on a bounded worker pool.
// Per-review failures land in BatchResult.Errors and the batch continues;
// a model backend failure aborts the whole batch and is returned as the
// service-level error.
func (p *Pipeline) PredictBatch(ctx context.Context, reviews []domain.Review) (domain.BatchResult, error) {
	res := domain.BatchResult{
		Predictions: make(map[string]domain.ReviewPrediction, len(reviews)),
		Errors:      map[string]error{},
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := semaphore.NewWeighted(int64(p.opts.Workers))
	var (
		mu    sync.Mutex
		wg    sync.WaitGroup
		fatal error
	)

	for _, r := range reviews {
		r := r

		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			break // batch already cancelled by a fatal failure
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)

			pred, err := p.PredictOne(ctx, r)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.Errors[r.ID] = err
				if errors.Is(err, domain.ErrModelUnavailable) && fatal == nil {
					fatal = err
					cancel()
				}
				logger.Warn().Str("review", r.ID).Err(err).Msg("prediction failed")
				return
			}
			res.Predictions[r.ID] = pred
		}()
	}
	wg.Wait()

	if fatal != nil {
		return res, fatal
	}
	return res, nil
}

// predictionKey digests the review text so identical texts share one cache
// entry regardless of id.
func predictionKey(text string) string {
	sum := sha1.Sum([]byte(text))
	return "pred:" + hex.EncodeToString(sum[:])
}
