package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"crypto-donation-tracker/internal/domain/entity"
	"crypto-donation-tracker/internal/infrastructure/config"
	"crypto-donation-tracker/internal/infrastructure/logger"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// RefreshHandler runs an aggregation cycle on request
type RefreshHandler func(ctx context.Context) error

// NATSClient publishes milestone notifications and listens for refresh
// requests on {prefix}.refresh
type NATSClient struct {
	mu     sync.Mutex
	conn   *nats.Conn
	sub    *nats.Subscription
	config *config.NATSConfig
	logger *logger.Logger
}

// NewNATSClient creates a new NATS client
func NewNATSClient(cfg *config.NATSConfig, logger *logger.Logger) *NATSClient {
	return &NATSClient{
		config: cfg,
		logger: logger.WithComponent("nats-client"),
	}
}

// Connect connects to the NATS server
func (n *NATSClient) Connect(ctx context.Context) error {
	if !n.config.Enabled {
		n.logger.Info("NATS is disabled, skipping connection")
		return nil
	}

	n.logger.Info("Connecting to NATS server", zap.String("url", n.config.URL))

	opts := []nats.Option{
		nats.Name("crypto-donation-tracker"),
		nats.Timeout(n.config.ConnectTimeout),
		nats.ReconnectWait(n.config.ReconnectDelay),
		nats.MaxReconnects(n.config.ReconnectAttempts),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			n.logger.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			n.logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			n.logger.Info("NATS connection closed")
		}),
	}

	conn, err := nats.Connect(n.config.URL, opts...)
	if err != nil {
		n.logger.Error("Failed to connect to NATS", zap.Error(err))
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}

	n.mu.Lock()
	n.conn = conn
	n.mu.Unlock()
	return nil
}

// Subject builds a subject under the configured prefix
func (n *NATSClient) Subject(name string) string {
	return fmt.Sprintf("%s.%s", n.config.SubjectPrefix, name)
}

// Publish encodes v as JSON onto subject. Publishing while disabled is a no-op.
func (n *NATSClient) Publish(subject string, v interface{}) error {
	n.mu.Lock()
	conn := n.conn
	n.mu.Unlock()
	if conn == nil {
		return nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	if err := conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	return nil
}

// SubscribeRefresh runs handler for every message on {prefix}.refresh. The
// queue group makes a single replica react to each request.
func (n *NATSClient) SubscribeRefresh(ctx context.Context, handler RefreshHandler) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.conn == nil {
		return nil
	}

	subject := n.Subject("refresh")
	sub, err := n.conn.QueueSubscribe(subject, n.config.ConsumerGroup, func(msg *nats.Msg) {
		n.logger.Info("Refresh requested over NATS", zap.String("subject", msg.Subject))
		err := handler(ctx)
		if msg.Reply == "" {
			return
		}
		if err != nil {
			msg.Respond([]byte("ERROR: " + err.Error()))
			return
		}
		msg.Respond([]byte("OK"))
	})
	if err != nil {
		n.logger.Error("Failed to subscribe to subject", zap.String("subject", subject), zap.Error(err))
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	n.sub = sub
	n.logger.Info("Listening for refresh requests",
		zap.String("subject", subject),
		zap.String("queue_group", n.config.ConsumerGroup))
	return nil
}

// Disconnect drains the subscription and closes the connection
func (n *NATSClient) Disconnect() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.sub != nil {
		n.sub.Unsubscribe()
		n.sub = nil
	}
	if n.conn != nil {
		n.conn.Close()
		n.conn = nil
	}
	n.logger.Info("Disconnected from NATS")
	return nil
}

// IsConnected checks if connected to NATS
func (n *NATSClient) IsConnected() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.conn != nil && n.conn.IsConnected()
}

// NATSNotifier publishes milestone notifications to {prefix}.milestones
type NATSNotifier struct {
	client *NATSClient
}

// NewNATSNotifier creates a notification sink on top of the NATS client
func NewNATSNotifier(client *NATSClient) *NATSNotifier {
	return &NATSNotifier{client: client}
}

// Deliver publishes n
func (s *NATSNotifier) Deliver(ctx context.Context, n *entity.Notification) error {
	return s.client.Publish(s.client.Subject("milestones"), n)
}
