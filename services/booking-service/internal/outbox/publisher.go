package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/hotelbook/libs/kafkax"
	otelx "github.com/md-rashed-zaman/hotelbook/libs/otel"
	"github.com/segmentio/kafka-go"
)

// Writer is the subset of *kafka.Writer the publisher needs.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type Publisher struct {
	db         TxBeginner
	repo       *Repository
	logger     *slog.Logger
	writer     Writer
	pollEvery  time.Duration
	batchSize  int
	retainFor  time.Duration
	lastPurged time.Time
}

type PublisherConfig struct {
	Brokers   []string
	PollEvery time.Duration
	BatchSize int
	// Published events older than this are purged. Zero keeps them forever.
	RetainFor time.Duration
	// Writer overrides the Kafka writer built from Brokers.
	Writer Writer
}

func NewPublisher(db TxBeginner, repo *Repository, logger *slog.Logger, cfg PublisherConfig) *Publisher {
	if cfg.PollEvery <= 0 {
		cfg.PollEvery = 2 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	w := cfg.Writer
	if w == nil && len(cfg.Brokers) > 0 {
		w = kafkax.NewWriter(cfg.Brokers)
	}
	return &Publisher{
		db:        db,
		repo:      repo,
		logger:    logger,
		writer:    w,
		pollEvery: cfg.PollEvery,
		batchSize: cfg.BatchSize,
		retainFor: cfg.RetainFor,
	}
}

func (p *Publisher) Run(ctx context.Context) {
	if p.writer == nil {
		p.logger.Warn("outbox publisher disabled (no kafka brokers configured)")
		return
	}
	defer p.writer.Close()

	ticker := time.NewTicker(p.pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := p.PublishBatch(ctx)
			if err != nil {
				p.logger.Error("outbox publish failed", "err", err)
				continue
			}
			if n > 0 {
				p.logger.Debug("outbox batch published", "count", n)
			}
			p.maybePurge(ctx)
		}
	}
}

// PublishBatch sends up to one batch of pending events and marks them
// published. Rows stay locked for the duration, so several replicas can run
// publishers against the same table.
func (p *Publisher) PublishBatch(ctx context.Context) (int, error) {
	tx, err := p.db.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	records, err := p.repo.FetchUnpublished(ctx, tx, p.batchSize)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, tx.Commit(ctx)
	}

	msgs := make([]kafka.Message, 0, len(records))
	ids := make([]int64, 0, len(records))
	for _, r := range records {
		msgCtx := otelx.ContextWithTraceContext(ctx, r.Traceparent, r.Tracestate)
		msgs = append(msgs, kafkax.NewMessage(msgCtx, kafkax.Envelope{
			EventID:       r.EventID,
			EventType:     r.EventType,
			AggregateType: r.AggregateType,
			AggregateID:   r.AggregateID,
			Payload:       r.Payload,
			OccurredAt:    r.CreatedAt,
		}))
		ids = append(ids, r.ID)
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return 0, err
	}

	if err := p.repo.MarkPublished(ctx, tx, ids); err != nil {
		return 0, err
	}
	return len(records), tx.Commit(ctx)
}

func (p *Publisher) maybePurge(ctx context.Context) {
	if p.retainFor <= 0 || time.Since(p.lastPurged) < p.retainFor/4 {
		return
	}
	p.lastPurged = time.Now()

	tx, err := p.db.Begin(ctx)
	if err != nil {
		p.logger.Warn("outbox purge failed", "err", err)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	n, err := p.repo.PurgePublished(ctx, tx, time.Now().Add(-p.retainFor))
	if err == nil {
		err = tx.Commit(ctx)
	}
	if err != nil {
		p.logger.Warn("outbox purge failed", "err", err)
		return
	}
	if n > 0 {
		p.logger.Info("outbox purged", "count", n)
	}
}
