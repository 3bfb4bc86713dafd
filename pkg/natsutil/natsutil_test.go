package natsutil

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
)

func startTestNATS(t *testing.T) *nats.Conn {
	t.Helper()
	srv, err := natsserver.NewServer(&natsserver.Options{Port: -1})
	if err != nil {
		t.Fatal(err)
	}
	srv.Start()
	if !srv.ReadyForConnections(3 * time.Second) {
		t.Fatal("nats not ready")
	}
	nc, err := nats.Connect(srv.ClientURL())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		nc.Close()
		srv.Shutdown()
	})
	return nc
}

type searchEvent struct {
	Kind    string `json:"kind"`
	Query   string `json:"query"`
	Results int    `json:"results"`
}

func TestHeaderCarrier(t *testing.T) {
	c := (*headerCarrier)(&nats.Msg{})
	if got := c.Get("traceparent"); got != "" {
		t.Fatalf("expected empty on nil header, got %q", got)
	}
	if keys := c.Keys(); keys != nil {
		t.Fatalf("expected nil keys, got %v", keys)
	}

	c.Set("traceparent", "00-abc-def-01")
	c.Set("traceparent", "00-abc-def-02")
	if got := c.Get("traceparent"); got != "00-abc-def-02" {
		t.Fatalf("expected overwritten value, got %q", got)
	}
	if keys := c.Keys(); len(keys) != 1 {
		t.Fatalf("unexpected keys: %v", keys)
	}
}

func TestPublishSubscribe(t *testing.T) {
	nc := startTestNATS(t)

	ch := make(chan searchEvent, 1)
	sub, err := Subscribe(nc, "census.search", func(_ context.Context, e searchEvent) {
		ch <- e
	})
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Unsubscribe()
	nc.Flush()

	if err := Publish(context.Background(), nc, "census.search", searchEvent{Kind: "keyword", Query: "income", Results: 1}); err != nil {
		t.Fatal(err)
	}

	select {
	case e := <-ch:
		if e.Kind != "keyword" || e.Query != "income" || e.Results != 1 {
			t.Fatalf("unexpected event: %+v", e)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestSubscribeDropsMalformed(t *testing.T) {
	nc := startTestNATS(t)

	ch := make(chan searchEvent, 2)
	sub, err := Subscribe(nc, "census.search", func(_ context.Context, e searchEvent) {
		ch <- e
	})
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Unsubscribe()
	nc.Flush()

	nc.Publish("census.search", []byte("{not json"))
	Publish(context.Background(), nc, "census.search", searchEvent{Kind: "vector"})

	select {
	case e := <-ch:
		if e.Kind != "vector" {
			t.Fatalf("expected only the well-formed event, got %+v", e)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestEmitter(t *testing.T) {
	nc := startTestNATS(t)

	raw := make(chan *nats.Msg, 1)
	sub, err := nc.ChanSubscribe("census.events", raw)
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Unsubscribe()
	nc.Flush()

	NewEmitter[searchEvent](nc, "census.events", nil).Emit(context.Background(), searchEvent{Kind: "vector", Results: 3})

	select {
	case msg := <-raw:
		var e searchEvent
		if err := json.Unmarshal(msg.Data, &e); err != nil {
			t.Fatal(err)
		}
		if e.Results != 3 {
			t.Fatalf("unexpected event: %+v", e)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestNilEmitter(t *testing.T) {
	var e *Emitter[searchEvent]
	e.Emit(context.Background(), searchEvent{Kind: "vector"})

	NewEmitter[searchEvent](nil, "census.events", nil).Emit(context.Background(), searchEvent{})
}
