// Package natsutil publishes and consumes JSON messages over NATS, carrying
// OpenTelemetry trace context in message headers.
package natsutil

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
)

// headerCarrier adapts nats.Msg headers for OTel TextMapCarrier.
type headerCarrier nats.Msg

func (c *headerCarrier) Get(key string) string {
	if c.Header == nil {
		return ""
	}
	return c.Header.Get(key)
}

func (c *headerCarrier) Set(key, val string) {
	if c.Header == nil {
		c.Header = make(nats.Header)
	}
	c.Header.Set(key, val)
}

func (c *headerCarrier) Keys() []string {
	if c.Header == nil {
		return nil
	}
	keys := make([]string, 0, len(c.Header))
	for k := range c.Header {
		keys = append(keys, k)
	}
	return keys
}

// Publish serializes v as JSON and publishes it to subject with the trace
// context of ctx injected into the headers.
func Publish[T any](ctx context.Context, nc *nats.Conn, subject string, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	msg := &nats.Msg{Subject: subject, Data: data}
	otel.GetTextMapPropagator().Inject(ctx, (*headerCarrier)(msg))
	return nc.PublishMsg(msg)
}

// Subscribe decodes JSON messages on subject into T and hands them to
// handler with the extracted trace context. Malformed messages are dropped.
func Subscribe[T any](nc *nats.Conn, subject string, handler func(context.Context, T)) (*nats.Subscription, error) {
	return nc.Subscribe(subject, func(msg *nats.Msg) {
		var v T
		if err := json.Unmarshal(msg.Data, &v); err != nil {
			return
		}
		ctx := otel.GetTextMapPropagator().Extract(context.Background(), (*headerCarrier)(msg))
		handler(ctx, v)
	})
}

// Emitter publishes values of T to a fixed subject. A nil *Emitter drops
// everything, so callers can emit unconditionally.
type Emitter[T any] struct {
	nc      *nats.Conn
	subject string
	log     *slog.Logger
}

// NewEmitter binds an Emitter to subject on nc.
func NewEmitter[T any](nc *nats.Conn, subject string, log *slog.Logger) *Emitter[T] {
	if log == nil {
		log = slog.Default()
	}
	return &Emitter[T]{nc: nc, subject: subject, log: log}
}

// Emit publishes v. Failures are logged, never returned.
func (e *Emitter[T]) Emit(ctx context.Context, v T) {
	if e == nil || e.nc == nil {
		return
	}
	if err := Publish(ctx, e.nc, e.subject, v); err != nil {
		e.log.Warn("event publish failed", "subject", e.subject, "err", err)
	}
}
