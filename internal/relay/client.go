// Package relay notifies external listeners of each sacrifice.
//
// Relaying is best effort. Client.Relay returns before anything is sent, and
// delivery failures are only ever visible in debug logs.
package relay

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	HeaderDelivery  = "X-Altar-Delivery"
	HeaderSignature = "X-Altar-Signature"

	DefaultTimeout = 6 * time.Second
)

// Delivery is one encoded envelope on its way to every sink.
type Delivery struct {
	ID        string
	Kind      Kind
	Body      []byte
	Signature string
}

// Sink is a destination for deliveries.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, d Delivery) error
}

type Config struct {
	Secret  string
	Timeout time.Duration
}

type Client struct {
	sinks   []Sink
	secret  string
	timeout time.Duration
	now     func() time.Time

	wg sync.WaitGroup
}

// NewClient creates a relay client. With no sinks every Relay is a no-op.
func NewClient(cfg Config, sinks ...Sink) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		sinks:   sinks,
		secret:  cfg.Secret,
		timeout: timeout,
		now:     time.Now,
	}
}

// Enabled reports whether any sink is configured.
func (c *Client) Enabled() bool {
	return len(c.sinks) > 0
}

// Signed reports whether deliveries carry an HMAC signature.
func (c *Client) Signed() bool {
	return c.secret != ""
}

// Relay encodes o and hands it to one detached goroutine per sink. It never blocks on the
// network and never reports failure.
func (c *Client) Relay(o Offering) {
	if !c.Enabled() {
		return
	}

	body, sig, err := Encode(NewEnvelope(o, c.now()), c.secret)
	if err != nil {
		slog.Debug("relay encode failed", "kind", o.Kind, "error", err)
		return
	}
	d := Delivery{
		ID:        uuid.NewString(),
		Kind:      o.Kind,
		Body:      body,
		Signature: sig,
	}

	c.wg.Add(len(c.sinks))
	for _, s := range c.sinks {
		go c.deliver(s, d)
	}
}

// deliver runs one sink under its own timeout so a slow or panicking sink
// cannot starve the others.
func (c *Client) deliver(s Sink, d Delivery) {
	defer c.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			slog.Debug("relay delivery panicked", "sink", s.Name(), "delivery_id", d.ID, "panic", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	if err := s.Deliver(ctx, d); err != nil {
		slog.Debug("relay delivery failed",
			"sink", s.Name(),
			"kind", d.Kind,
			"delivery_id", d.ID,
			"error", err,
		)
		return
	}
	slog.Debug("relay delivered", "sink", s.Name(), "kind", d.Kind, "delivery_id", d.ID)
}

// Wait blocks until every in-flight delivery has finished.
func (c *Client) Wait() {
	c.wg.Wait()
}
