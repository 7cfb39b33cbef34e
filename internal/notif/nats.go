package notif

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"gochats/internal/common"
	"gochats/internal/config"
)

type natsPublisher struct {
	conn *nats.Conn
}

func (p *natsPublisher) Publish(subject string, data []byte) error {
	return p.conn.Publish(subject, data)
}

// Close flushes pending publishes before closing.
func (p *natsPublisher) Close() {
	if p.conn == nil || p.conn.IsClosed() {
		return
	}
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
}

// NATSConnector dials the bus configured in cfg.
func NATSConnector(cfg *config.Config, logger *slog.Logger) Connector {
	return func(ctx context.Context) (Publisher, error) {
		nc, err := nats.Connect(cfg.Notification.URL,
			nats.Name(cfg.Notification.ServiceName+"-chats-service"),
			nats.Timeout(5*time.Second),
			nats.PingInterval(20*time.Second),
			nats.MaxPingsOutstanding(3),
			nats.ReconnectWait(2*time.Second),
			nats.MaxReconnects(-1),
			nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
				logger.Warn("NATS disconnected", "error", err)
			}),
			nats.ReconnectHandler(func(nc *nats.Conn) {
				logger.Info("NATS reconnected", "url", nc.ConnectedUrl())
			}),
			nats.ClosedHandler(func(nc *nats.Conn) {
				logger.Info("NATS connection closed")
			}),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		if ctx.Err() != nil {
			nc.Close()
			return nil, ctx.Err()
		}
		return &natsPublisher{conn: nc}, nil
	}
}

// NewNotifier returns the dispatcher for cfg, or a no-op notifier when the bus is disabled.
func NewNotifier(cfg *config.Config, logger *slog.Logger) (common.Notifier, func()) {
	if !cfg.Notification.Enabled {
		logger.Info("notification bus disabled")
		return common.NopNotifier{}, func() {}
	}

	d := NewDispatcher(NATSConnector(cfg, logger), Options{
		Topic:      cfg.Notification.Topic,
		MaxRetries: cfg.Notification.MaxRetries,
		RetryDelay: cfg.RetryDelay(),
	}, logger)
	d.Start()

	return d, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := d.Shutdown(ctx); err != nil {
			logger.Warn("notification dispatcher shutdown timed out", "error", err)
		}
	}
}
