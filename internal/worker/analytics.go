package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jmehdipour/officer-portal/internal/kafka"
	"github.com/jmehdipour/officer-portal/internal/logger"
	"github.com/jmehdipour/officer-portal/internal/metrics"
	"github.com/jmehdipour/officer-portal/internal/model"
	"github.com/jmehdipour/officer-portal/internal/repository"
	"go.uber.org/zap"
)

const shutdownFlush = 10 * time.Second

// Source is the part of kafka.Consumer the worker reads from.
type Source interface {
	Fetch(ctx context.Context) (kafka.Message, error)
	Commit(ctx context.Context, msgs ...kafka.Message) error
}

// Analytics copies query events from Kafka into ClickHouse:
// - fetches outbox envelopes,
// - batches them by size/time,
// - inserts each batch as one ClickHouse block, then commits the offsets.
type Analytics struct {
	Source Source
	Events repository.CHQueryEventsRepository

	BatchSize int           // max buffered messages per flush
	BatchWait time.Duration // max time to wait before flush
	RetryWait time.Duration // pause between failed flush attempts
}

func NewAnalytics(src Source, events repository.CHQueryEventsRepository, batchSize int, batchWait time.Duration) *Analytics {
	return &Analytics{
		Source:    src,
		Events:    events,
		BatchSize: batchSize,
		BatchWait: batchWait,
		RetryWait: 2 * time.Second,
	}
}

// batch holds every fetched message (poison included, so its offset gets
// committed with the rest) and the events decoded from them.
type batch struct {
	msgs   []kafka.Message
	events []model.QueryEvent
}

func (b *batch) reset() {
	b.msgs = b.msgs[:0]
	b.events = b.events[:0]
}

// decodeEvent accepts the event object, or the same object as a JSON string
// when the outbox payload is forwarded without expansion.
func decodeEvent(raw []byte) (model.QueryEvent, error) {
	var ev model.QueryEvent
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		raw = []byte(s)
	}
	if err := json.Unmarshal(raw, &ev); err != nil {
		return ev, err
	}
	if ev.ID == "" {
		return ev, errors.New("event missing id")
	}
	return ev, nil
}

// Run blocks until ctx is cancelled, then flushes what is buffered.
func (w *Analytics) Run(ctx context.Context) error {
	if w.Source == nil || w.Events == nil {
		return errors.New("analytics: source and events repository are required")
	}
	if w.BatchSize <= 0 {
		w.BatchSize = 500
	}
	if w.BatchWait <= 0 {
		w.BatchWait = time.Second
	}
	if w.RetryWait <= 0 {
		w.RetryWait = 2 * time.Second
	}

	in := make(chan kafka.Message, w.BatchSize)
	go w.fetch(ctx, in)

	tick := time.NewTicker(w.BatchWait)
	defer tick.Stop()

	b := &batch{}
	for {
		select {
		case <-ctx.Done():
			fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownFlush)
			if err := w.flushOnce(fctx, b); err != nil {
				logger.Log.Error("analytics: final flush failed", zap.Int("pending", len(b.msgs)), zap.Error(err))
			}
			cancel()
			return nil

		case m := <-in:
			ev, err := decodeEvent(m.Value)
			if err != nil {
				metrics.AnalyticsFlushed.WithLabelValues("skipped").Inc()
				logger.Log.Warn("analytics: skipping bad event",
					zap.Int("partition", m.Partition),
					zap.Int64("offset", m.Offset),
					zap.Error(err),
				)
			} else {
				b.events = append(b.events, ev)
			}
			b.msgs = append(b.msgs, m)

			if len(b.msgs) >= w.BatchSize {
				w.flush(ctx, b)
			}

		case <-tick.C:
			w.flush(ctx, b)
		}
	}
}

func (w *Analytics) fetch(ctx context.Context, out chan<- kafka.Message) {
	for {
		m, err := w.Source.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Log.Warn("analytics: kafka fetch failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(200 * time.Millisecond):
			}
			continue
		}
		select {
		case out <- m:
		case <-ctx.Done():
			return
		}
	}
}

// flush retries until the batch is written or ctx ends; reading pauses meanwhile.
func (w *Analytics) flush(ctx context.Context, b *batch) {
	for {
		err := w.flushOnce(ctx, b)
		if err == nil {
			return
		}
		logger.Log.Error("analytics: flush failed", zap.Int("events", len(b.events)), zap.Error(err))
		select {
		case <-ctx.Done():
			return
		case <-time.After(w.RetryWait):
		}
	}
}

func (w *Analytics) flushOnce(ctx context.Context, b *batch) error {
	if len(b.msgs) == 0 {
		return nil
	}

	if len(b.events) > 0 {
		if err := w.Events.InsertBatch(ctx, b.events); err != nil {
			metrics.AnalyticsFlushed.WithLabelValues("failed").Add(float64(len(b.events)))
			return err
		}
		metrics.AnalyticsFlushed.WithLabelValues("written").Add(float64(len(b.events)))
	}

	// rows are in ClickHouse; a failed commit only means redelivery
	if err := w.Source.Commit(ctx, b.msgs...); err != nil {
		logger.Log.Warn("analytics: kafka commit failed", zap.Error(err))
	}

	logger.Log.Debug("analytics: flushed", zap.Int("events", len(b.events)), zap.Int("messages", len(b.msgs)))
	b.reset()
	return nil
}
