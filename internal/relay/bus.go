package relay

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	// SubjectPrefix is followed by the offering kind.
	SubjectPrefix = "altar.offering."
	streamName    = "ALTAR"
)

// Bus publishes deliveries to NATS. It prefers the ALTAR JetStream stream and
// falls back to core publish when the stream cannot be ensured.
type Bus struct {
	nc          *nats.Conn
	js          jetstream.JetStream
	streamReady bool
}

// NewBus connects to natsURL and ensures the ALTAR stream.
func NewBus(ctx context.Context, natsURL string) (*Bus, error) {
	nc, err := nats.Connect(natsURL,
		nats.Name("viren"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			slog.Info("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream init: %w", err)
	}

	b := &Bus{nc: nc, js: js}
	if err := b.ensureStream(ctx); err != nil {
		slog.Warn("altar stream not available, using core publish", "error", err)
	} else {
		b.streamReady = true
	}
	return b, nil
}

func (b *Bus) ensureStream(ctx context.Context) error {
	if _, err := b.js.Stream(ctx, streamName); err == nil {
		return nil
	}

	_, err := b.js.CreateStream(ctx, jetstream.StreamConfig{
		Name:      streamName,
		Subjects:  []string{"altar.>"},
		Retention: jetstream.LimitsPolicy,
		MaxAge:    7 * 24 * time.Hour,
		Storage:   jetstream.FileStorage,
		Replicas:  1,
	})
	if err != nil {
		return fmt.Errorf("create stream %s: %w", streamName, err)
	}

	slog.Info("created stream", "name", streamName)
	return nil
}

func (b *Bus) Name() string { return "nats" }

// Deliver publishes to altar.offering.<kind>. The delivery id doubles as the
// JetStream dedup id.
func (b *Bus) Deliver(ctx context.Context, d Delivery) error {
	msg := nats.NewMsg(SubjectPrefix + string(d.Kind))
	msg.Data = d.Body
	msg.Header.Set(HeaderDelivery, d.ID)
	if d.Signature != "" {
		msg.Header.Set(HeaderSignature, "sha256="+d.Signature)
	}

	if b.streamReady {
		if _, err := b.js.PublishMsg(ctx, msg, jetstream.WithMsgID(d.ID)); err != nil {
			return fmt.Errorf("jetstream publish %s: %w", msg.Subject, err)
		}
		return nil
	}
	if err := b.nc.PublishMsg(msg); err != nil {
		return fmt.Errorf("nats publish %s: %w", msg.Subject, err)
	}
	return nil
}

// Close drains the connection.
func (b *Bus) Close() {
	if err := b.nc.Drain(); err != nil {
		slog.Warn("NATS drain failed", "error", err)
	}
}
