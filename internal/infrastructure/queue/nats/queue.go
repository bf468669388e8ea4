package nats

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"
)

// Queue triggers pipeline runs over NATS: the worker subscribes to the run
// subject and executes one ingestion run per message.
type Queue struct {
	conn    *nats.Conn
	subject string
}

type Options struct {
	ConnectTimeout time.Duration
	ReconnectWait  time.Duration
	MaxReconnects  int
}

func New(url, subject string) (*Queue, error) {
	return NewWithOptions(url, subject, Options{})
}

func NewWithOptions(url, subject string, options Options) (*Queue, error) {
	if options.ConnectTimeout <= 0 {
		options.ConnectTimeout = 2 * time.Second
	}
	if options.ReconnectWait <= 0 {
		options.ReconnectWait = 2 * time.Second
	}
	if options.MaxReconnects <= 0 {
		options.MaxReconnects = 60
	}

	conn, err := nats.Connect(
		url,
		nats.Name("libris"),
		nats.Timeout(options.ConnectTimeout),
		nats.ReconnectWait(options.ReconnectWait),
		nats.MaxReconnects(options.MaxReconnects),
		nats.RetryOnFailedConnect(true),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Printf("nats disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("nats reconnected: %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &Queue{conn: conn, subject: subject}, nil
}

func (q *Queue) PublishRunRequested(_ context.Context) error {
	if err := q.conn.Publish(q.subject, nil); err != nil {
		return fmt.Errorf("publish run request: %w", err)
	}
	return q.conn.Flush()
}

// SubscribeRunRequested blocks until the context is done, running the
// handler once per received message. Handler failures are logged; the
// subscription stays alive.
func (q *Queue) SubscribeRunRequested(ctx context.Context, handler func(context.Context) error) error {
	sub, err := q.conn.Subscribe(q.subject, func(_ *nats.Msg) {
		if err := handler(ctx); err != nil {
			log.Printf("ingestion run failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", q.subject, err)
	}
	defer func() {
		_ = sub.Unsubscribe()
	}()

	<-ctx.Done()
	return nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}
