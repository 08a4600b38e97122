package relay

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
)

func skipWithoutNATS(t *testing.T) string {
	t.Helper()
	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("NATS_URL not set, skipping integration test")
	}
	return url
}

func TestIntegration_BusDeliver(t *testing.T) {
	natsURL := skipWithoutNATS(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	bus, err := NewBus(ctx, natsURL)
	if err != nil {
		t.Fatalf("failed to create bus: %v", err)
	}
	defer bus.Close()

	sub, err := nats.Connect(natsURL)
	if err != nil {
		t.Fatalf("failed to connect subscriber: %v", err)
	}
	defer sub.Close()

	msgs := make(chan *nats.Msg, 1)
	s, err := sub.ChanSubscribe(SubjectPrefix+"first", msgs)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer s.Unsubscribe()
	if err := sub.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	d := Delivery{ID: "int-" + time.Now().Format("20060102150405.000"), Kind: KindFirst, Body: []byte(`{"kind":"first"}`), Signature: "abc"}
	if err := bus.Deliver(ctx, d); err != nil {
		t.Fatalf("deliver: %v", err)
	}

	select {
	case msg := <-msgs:
		if string(msg.Data) != `{"kind":"first"}` {
			t.Errorf("expected body to be published verbatim, got %s", msg.Data)
		}
		if msg.Header.Get(HeaderSignature) != "sha256=abc" {
			t.Errorf("expected signature header, got %q", msg.Header.Get(HeaderSignature))
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for published delivery")
	}
}
