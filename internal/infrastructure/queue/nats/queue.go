package nats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/mcq-rag-assistant/internal/core/domain"
	"github.com/kirillkom/mcq-rag-assistant/internal/infrastructure/resilience"
)

const (
	DefaultReindexSubject = "knowledge.reindex"
	DefaultUpdatedSubject = "knowledge.index.updated"
	reindexQueueGroup     = "indexers"
)

// Queue carries reindex requests to indexers and index-updated events back
// to every API replica.
type Queue struct {
	conn           *nats.Conn
	reindexSubject string
	updatedSubject string
	executor       *resilience.Executor
}

type Options struct {
	ReindexSubject       string
	UpdatedSubject       string
	ClientName           string
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
}

func New(url string) (*Queue, error) {
	return NewWithOptions(url, Options{})
}

func NewWithOptions(url string, options Options) (*Queue, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}
	clientName := options.ClientName
	if clientName == "" {
		clientName = "mcq-rag-assistant"
	}

	conn, err := nats.Connect(
		url,
		nats.Name(clientName),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:           conn,
		reindexSubject: withDefault(options.ReindexSubject, DefaultReindexSubject),
		updatedSubject: withDefault(options.UpdatedSubject, DefaultUpdatedSubject),
		executor:       options.ResilienceExecutor,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

// DispatchReindex publishes a rebuild request; the build happens on an indexer.
func (q *Queue) DispatchReindex(ctx context.Context, storageKey string) (bool, error) {
	payload, err := encodeReindex(reindexMessage{StorageKey: storageKey, RequestedAt: time.Now().UTC()})
	if err != nil {
		return false, err
	}
	if err := q.publish(ctx, q.reindexSubject, payload); err != nil {
		return false, err
	}
	return true, nil
}

func (q *Queue) NotifyIndexUpdated(ctx context.Context, stats domain.IndexStats) error {
	payload, err := encodeStats(stats)
	if err != nil {
		return err
	}
	return q.publish(ctx, q.updatedSubject, payload)
}

// SubscribeReindex blocks until ctx is done. Requests are load-balanced
// across indexers in one queue group. requestedAt is zero for bare-key messages.
func (q *Queue) SubscribeReindex(ctx context.Context, handler func(ctx context.Context, storageKey string, requestedAt time.Time) error) error {
	return q.subscribe(ctx, q.reindexSubject, reindexQueueGroup, func(handlerCtx context.Context, data []byte) {
		msg, err := decodeReindex(data)
		if err != nil {
			slog.Error("reindex_message_invalid", "error", err)
			return
		}
		if err := handler(handlerCtx, msg.StorageKey, msg.RequestedAt); err != nil {
			slog.Error("reindex_handler_failed", "storage_key", msg.StorageKey, "error", err)
		}
	})
}

// SubscribeIndexUpdated fans out to every subscriber, so each API replica reloads.
func (q *Queue) SubscribeIndexUpdated(ctx context.Context, handler func(context.Context, domain.IndexStats) error) error {
	return q.subscribe(ctx, q.updatedSubject, "", func(handlerCtx context.Context, data []byte) {
		stats, err := decodeStats(data)
		if err != nil {
			slog.Error("index_updated_message_invalid", "error", err)
			return
		}
		if err := handler(handlerCtx, stats); err != nil {
			slog.Error("index_updated_handler_failed", "chunks", stats.Chunks, "error", err)
		}
	})
}

func (q *Queue) publish(ctx context.Context, subject string, payload []byte) error {
	call := func(_ context.Context) error {
		if err := q.conn.Publish(subject, payload); err != nil {
			return fmt.Errorf("nats publish %s: %w", subject, err)
		}
		return nil
	}

	var err error
	if q.executor != nil {
		err = q.executor.Execute(ctx, "nats.publish", call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return wrapTemporaryIfNeeded(err)
	}
	return nil
}

func (q *Queue) subscribe(ctx context.Context, subject, group string, handle func(context.Context, []byte)) error {
	cb := func(msg *nats.Msg) {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}
		handlerCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		handle(handlerCtx, msg.Data)
	}

	var (
		sub *nats.Subscription
		err error
	)
	if group != "" {
		sub, err = q.conn.QueueSubscribe(subject, group, cb)
	} else {
		sub, err = q.conn.Subscribe(subject, cb)
	}
	if err != nil {
		return fmt.Errorf("nats subscribe %s: %w", subject, err)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}
	slog.Info("nats_subscribed", "subject", subject, "group", group)

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

func withDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
