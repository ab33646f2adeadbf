package nats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/sponsor-compliance/internal/infrastructure/resilience"
)

type Queue struct {
	conn           *nats.Conn
	subject        string
	group          string
	handlerTimeout time.Duration
	executor       *resilience.Executor
	logger         *slog.Logger
}

type Options struct {
	QueueGroup           string
	HandlerTimeout       time.Duration
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
	Logger               *slog.Logger
}

func New(url, subject string, options Options) (*Queue, error) {
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
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := nats.Connect(
		url,
		nats.Name("sponsor-compliance"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return newQueue(conn, subject, options, logger), nil
}

func newQueue(conn *nats.Conn, subject string, options Options, logger *slog.Logger) *Queue {
	group := strings.TrimSpace(options.QueueGroup)
	if group == "" {
		group = "assessors"
	}
	handlerTimeout := options.HandlerTimeout
	if handlerTimeout <= 0 {
		handlerTimeout = 5 * time.Minute
	}
	return &Queue{
		conn:           conn,
		subject:        subject,
		group:          group,
		handlerTimeout: handlerTimeout,
		executor:       options.ResilienceExecutor,
		logger:         logger,
	}
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

func (q *Queue) PublishBatchSubmitted(ctx context.Context, batchID string) error {
	call := func(_ context.Context) error {
		if err := q.conn.Publish(q.subject, []byte(batchID)); err != nil {
			return fmt.Errorf("nats publish: %w", err)
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

// SubscribeBatchSubmitted blocks until ctx is done, then drains the subscription.
func (q *Queue) SubscribeBatchSubmitted(ctx context.Context, handler func(context.Context, string) error) error {
	sub, err := q.conn.QueueSubscribe(q.subject, q.group, func(msg *nats.Msg) {
		q.dispatch(ctx, msg.Data, handler)
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

// dispatch runs one message under the per-batch timeout.
func (q *Queue) dispatch(ctx context.Context, data []byte, handler func(context.Context, string) error) {
	if errors.Is(ctx.Err(), context.Canceled) {
		return
	}
	batchID := strings.TrimSpace(string(data))
	if batchID == "" {
		q.logger.Warn("nats_empty_message", "subject", q.subject)
		return
	}

	handlerCtx, cancel := context.WithTimeout(ctx, q.handlerTimeout)
	defer cancel()
	if err := handler(handlerCtx, batchID); err != nil {
		q.logger.Error("batch_handler_failed", "batch_id", batchID, "error", err)
	}
}
