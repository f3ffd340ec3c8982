package events

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
)

// NATSBus publishes events on NATS subjects "<prefix>.<topic>" so every
// frontend replica sees cart changes made through any other.
type NATSBus struct {
	conn   *nats.Conn
	prefix string
	logger *slog.Logger
}

// ConnectNATS dials the server and returns a bus.
func ConnectNATS(url, prefix string, logger *slog.Logger) (*NATSBus, error) {
	conn, err := nats.Connect(url,
		nats.Name("atelier-storefront"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", slog.String("error", err.Error()))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", slog.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return NewNATSBus(conn, prefix, logger), nil
}

// NewNATSBus wraps an existing connection.
func NewNATSBus(conn *nats.Conn, prefix string, logger *slog.Logger) *NATSBus {
	if prefix == "" {
		prefix = "atelier"
	}
	return &NATSBus{conn: conn, prefix: prefix, logger: logger}
}

func (b *NATSBus) subject(topic string) string {
	return b.prefix + "." + topic
}

func (b *NATSBus) Publish(ctx context.Context, ev Event) error {
	data, err := encode(ev)
	if err != nil {
		return err
	}
	if err := b.conn.Publish(b.subject(ev.Topic), data); err != nil {
		return fmt.Errorf("nats publish %s: %w", ev.Topic, err)
	}
	return nil
}

func (b *NATSBus) Subscribe(topic string, h Handler) (func(), error) {
	sub, err := b.conn.Subscribe(b.subject(topic), func(m *nats.Msg) {
		ev, err := decode(m.Data)
		if err != nil {
			b.logger.Warn("dropping malformed event", slog.String("subject", m.Subject), slog.String("error", err.Error()))
			return
		}
		h(context.Background(), ev)
	})
	if err != nil {
		return nil, fmt.Errorf("nats subscribe %s: %w", topic, err)
	}
	return func() {
		if err := sub.Unsubscribe(); err != nil {
			b.logger.Debug("nats unsubscribe", slog.String("error", err.Error()))
		}
	}, nil
}

// Close drains pending messages and closes the connection.
func (b *NATSBus) Close() error {
	return b.conn.Drain()
}
