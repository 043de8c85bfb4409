// Package syncer reconciles local records with the remote index: single-document
// upsert and remove, and full wipe-then-repopulate resync per logical type.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/indexsync/internal/batcher"
	"github.com/kailas-cloud/indexsync/internal/domain"
	"github.com/kailas-cloud/indexsync/internal/domain/batch"
	"github.com/kailas-cloud/indexsync/internal/domain/document"
	"github.com/kailas-cloud/indexsync/internal/failure"
	"github.com/kailas-cloud/indexsync/internal/logger"
	"github.com/kailas-cloud/indexsync/internal/metrics"
	"github.com/kailas-cloud/indexsync/internal/translate"
)

// Summary describes one resync run.
type Summary struct {
	ResyncID string
	Type     string
	Deleted  int
	Indexed  int
	Failed   int
	Batches  int
	Partial  []*domain.BatchInsertPartialFailure
}

// Service is the sync engine.
type Service struct {
	schema   SchemaEnsurer
	repo     IndexRepository
	fields   FieldSource
	reporter FailureReporter
	retry    Retrier
	limiter  *rate.Limiter
	logger   *zap.Logger

	batchSize int

	trMu sync.Mutex
	tr   *translate.Translator

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// New creates a sync service with the default retry policy and no pacing.
func New(
	schema SchemaEnsurer, repo IndexRepository, fields FieldSource,
	reporter FailureReporter, l *zap.Logger,
) *Service {
	if l == nil {
		l = zap.NewNop()
	}
	return &Service{
		schema:    schema,
		repo:      repo,
		fields:    fields,
		reporter:  reporter,
		retry:     failure.DefaultPolicy(),
		logger:    l,
		batchSize: batcher.MaxSize,
		locks:     make(map[string]*sync.Mutex),
	}
}

// WithRetry configures the whole-call retry policy.
func (s *Service) WithRetry(r Retrier) *Service {
	if r != nil {
		s.retry = r
	}
	return s
}

// WithRateLimit paces bulk submissions to perSecond batches. 0 disables pacing.
func (s *Service) WithRateLimit(perSecond float64) *Service {
	if perSecond > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	} else {
		s.limiter = nil
	}
	return s
}

// WithBatchSize configures the bulk group size, clamped to batcher.MaxSize.
func (s *Service) WithBatchSize(n int) *Service {
	if n > 0 && n <= batcher.MaxSize {
		s.batchSize = n
	}
	return s
}

// Upsert indexes one record and calls onComplete with its id once the bulk
// call succeeds. The per-item status of the single submission is not inspected.
func (s *Service) Upsert(ctx context.Context, rec document.Record, onComplete func(id string)) error {
	if err := s.schema.Ensure(ctx, false); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	tr, err := s.translator(ctx)
	if err != nil {
		return err
	}
	doc, err := tr.Document(rec)
	if err != nil {
		return fmt.Errorf("translate %s: %w", rec.ID(), err)
	}

	if _, err := s.upload(ctx, []document.Document{doc}); err != nil {
		return fmt.Errorf("upsert %s: %w", rec.ID(), err)
	}

	metrics.DocumentsIndexedTotal.WithLabelValues(rec.Type()).Inc()
	if onComplete != nil {
		onComplete(rec.ID())
	}
	return nil
}

// Remove deletes one document by id and calls onComplete whether or not it existed.
// A transport error is returned and suppresses the callback.
func (s *Service) Remove(ctx context.Context, id string, onComplete func(id string)) error {
	if _, err := s.delete(ctx, []string{id}); err != nil {
		return fmt.Errorf("remove %s: %w", id, err)
	}
	if onComplete != nil {
		onComplete(id)
	}
	return nil
}

// ResyncType wipes every remote document of typ and repopulates from stream.
//
// Any delete failure is fatal and returns *domain.BatchDeleteFailure before
// the first insert. Insert failures are reported and skipped: batchComplete
// receives the succeeded items of each batch and the run continues.
// Resyncs of the same type are serialized.
func (s *Service) ResyncType(
	ctx context.Context, typ string,
	stream batcher.Source[document.Record],
	batchComplete func([]batch.Indexed),
) (Summary, error) {
	unlock := s.lockType(typ)
	defer unlock()

	sum := Summary{ResyncID: uuid.NewString(), Type: typ}
	ctx, log := logger.With(ctx, s.logger,
		zap.String("resync_id", sum.ResyncID),
		zap.String("type", typ),
	)
	started := time.Now()
	log.Info("resync started")

	if err := s.schema.Ensure(ctx, false); err != nil {
		s.reporter.Fatal(ctx, "ensure", typ, err)
		return sum, fmt.Errorf("ensure schema: %w", err)
	}

	tr, err := s.reloadTranslator(ctx)
	if err != nil {
		s.reporter.Fatal(ctx, failure.OpTranslate, typ, err)
		return sum, err
	}

	if err := s.wipe(ctx, typ, &sum); err != nil {
		s.reporter.Fatal(ctx, failure.OpDelete, typ, err)
		return sum, err
	}

	if err := s.populate(ctx, typ, tr, stream, batchComplete, &sum); err != nil {
		s.reporter.Fatal(ctx, failure.OpUpload, typ, err)
		return sum, err
	}

	log.Info("resync finished",
		zap.Int("deleted", sum.Deleted),
		zap.Int("indexed", sum.Indexed),
		zap.Int("failed", sum.Failed),
		zap.Int("batches", sum.Batches),
		zap.Duration("duration", time.Since(started)),
	)
	return sum, nil
}

// ResyncAll resyncs every declared type in order. A failing type does not stop
// the others; errors are joined.
func (s *Service) ResyncAll(
	ctx context.Context, src RecordSource, batchComplete func([]batch.Indexed),
) ([]Summary, error) {
	types, err := s.fields.Types(ctx)
	if err != nil {
		return nil, fmt.Errorf("list types: %w", err)
	}

	var (
		out  []Summary
		errs []error
	)
	for _, typ := range types {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		sum, err := s.resyncFrom(ctx, src, typ, batchComplete)
		if err != nil {
			errs = append(errs, fmt.Errorf("resync %q: %w", typ, err))
		}
		out = append(out, sum)
	}
	return out, errors.Join(errs...)
}

func (s *Service) resyncFrom(
	ctx context.Context, src RecordSource, typ string, batchComplete func([]batch.Indexed),
) (Summary, error) {
	stream, err := src.Records(ctx, typ)
	if err != nil {
		return Summary{Type: typ}, fmt.Errorf("open records: %w", err)
	}
	if c, ok := stream.(io.Closer); ok {
		defer c.Close()
	}
	return s.ResyncType(ctx, typ, stream, batchComplete)
}

// wipe deletes every remote document of typ. Keys are collected before the first delete.
func (s *Service) wipe(ctx context.Context, typ string, sum *Summary) error {
	var ids []string
	err := s.retry.Do(ctx, "find", func(ctx context.Context) error {
		var err error
		ids, err = s.repo.FindIDsByType(ctx, typ)
		return err
	})
	if err != nil {
		return fmt.Errorf("find documents of type %q: %w", typ, err)
	}
	if len(ids) == 0 {
		return nil
	}

	return batcher.New(batcher.FromSlice(ids), s.batchSize).Each(ctx, func(group []string) error {
		results, err := s.delete(ctx, group)
		if err != nil {
			results = failAll(group, err)
		}
		outcome := batch.Split(results)
		sum.Deleted += len(outcome.Succeeded)
		metrics.DocumentsDeletedTotal.WithLabelValues(typ).Add(float64(len(outcome.Succeeded)))

		if len(outcome.Failed) > 0 {
			s.reporter.Report(ctx, failure.OpDelete, typ, outcome.Failed)
			return &domain.BatchDeleteFailure{Type: typ, Failed: outcome.Failed}
		}
		return nil
	})
}

// populate streams records in batches and uploads them.
func (s *Service) populate(
	ctx context.Context, typ string, tr *translate.Translator,
	stream batcher.Source[document.Record], batchComplete func([]batch.Indexed), sum *Summary,
) error {
	b := batcher.New(stream, s.batchSize)
	for {
		group, err := b.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read records of type %q: %w", typ, err)
		}
		sum.Batches++

		docs := make([]document.Document, 0, len(group))
		var rejected []batch.Result
		for _, rec := range group {
			doc, err := tr.Document(rec)
			if err != nil {
				rejected = append(rejected, batch.NewError(rec.ID(), err))
				continue
			}
			docs = append(docs, doc)
		}
		if len(rejected) > 0 {
			s.reporter.Report(ctx, failure.OpTranslate, typ, rejected)
		}

		var results []batch.Result
		if len(docs) > 0 {
			results, err = s.upload(ctx, docs)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				results = failAll(docKeys(docs), err)
			}
		}

		outcome := batch.Split(results)
		if len(outcome.Failed) > 0 {
			s.reporter.Report(ctx, failure.OpUpload, typ, outcome.Failed)
		}

		failed := len(outcome.Failed) + len(rejected)
		sum.Indexed += len(outcome.Succeeded)
		sum.Failed += failed
		metrics.DocumentsIndexedTotal.WithLabelValues(typ).Add(float64(len(outcome.Succeeded)))

		if failed > 0 {
			all := append(append([]batch.Result(nil), rejected...), outcome.Failed...)
			sum.Partial = append(sum.Partial, &domain.BatchInsertPartialFailure{Type: typ, Failed: all})
		}

		if len(outcome.Succeeded) > 0 && batchComplete != nil {
			indexed := make([]batch.Indexed, len(outcome.Succeeded))
			for i, r := range outcome.Succeeded {
				indexed[i] = batch.Indexed{ID: r.Key(), Type: typ}
			}
			batchComplete(indexed)
		}
	}
}

func (s *Service) upload(ctx context.Context, docs []document.Document) ([]batch.Result, error) {
	return s.submit(ctx, failure.OpUpload, func(ctx context.Context) ([]batch.Result, error) {
		return s.repo.Upload(ctx, docs)
	})
}

func (s *Service) delete(ctx context.Context, ids []string) ([]batch.Result, error) {
	return s.submit(ctx, failure.OpDelete, func(ctx context.Context) ([]batch.Result, error) {
		return s.repo.Delete(ctx, ids)
	})
}

// submit paces and times one bulk call under the retry policy.
func (s *Service) submit(
	ctx context.Context, op string, call func(ctx context.Context) ([]batch.Result, error),
) ([]batch.Result, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	start := time.Now()
	defer func() {
		metrics.BatchDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}()

	var results []batch.Result
	err := s.retry.Do(ctx, op, func(ctx context.Context) error {
		var err error
		results, err = call(ctx)
		return err
	})
	return results, err
}

func (s *Service) translator(ctx context.Context) (*translate.Translator, error) {
	s.trMu.Lock()
	tr := s.tr
	s.trMu.Unlock()
	if tr != nil {
		return tr, nil
	}
	return s.reloadTranslator(ctx)
}

func (s *Service) reloadTranslator(ctx context.Context) (*translate.Translator, error) {
	groups, err := s.fields.Fields(ctx)
	if err != nil {
		return nil, fmt.Errorf("load field declarations: %w", err)
	}
	tr, err := translate.NewTranslator(groups)
	if err != nil {
		return nil, err
	}
	s.trMu.Lock()
	s.tr = tr
	s.trMu.Unlock()
	return tr, nil
}

func (s *Service) lockType(typ string) func() {
	s.locksMu.Lock()
	mu, ok := s.locks[typ]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[typ] = mu
	}
	s.locksMu.Unlock()

	mu.Lock()
	return mu.Unlock
}

func failAll(keys []string, err error) []batch.Result {
	out := make([]batch.Result, len(keys))
	for i, k := range keys {
		out[i] = batch.NewError(k, err)
	}
	return out
}

func docKeys(docs []document.Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.Key()
	}
	return out
}
