package event

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/admarket/backend/internal/domain/campaign"
	"github.com/admarket/backend/internal/domain/shared"
	"github.com/admarket/backend/internal/infrastructure/config"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// MessagePublisher sends an encoded message to a broker exchange
type MessagePublisher interface {
	Publish(ctx context.Context, exchange, routingKey string, body []byte) error
	Close() error
}

// AMQPPublisher publishes to a durable RabbitMQ topic exchange
type AMQPPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	declared map[string]bool
	logger   *zap.Logger
}

// DialAMQP connects to the broker with a bounded dial timeout
func DialAMQP(rawURL string, logger *zap.Logger) (*AMQPPublisher, error) {
	cleanURL, err := sanitizeAMQPURL(rawURL)
	if err != nil {
		return nil, err
	}
	conn, err := amqp.DialConfig(cleanURL, amqp.Config{Dial: amqp.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}
	return &AMQPPublisher{
		conn:     conn,
		channel:  ch,
		declared: make(map[string]bool),
		logger:   logger,
	}, nil
}

// Publish declares the exchange on first use and sends a persistent JSON
// message. A closed channel is reopened once before giving up.
func (p *AMQPPublisher) Publish(ctx context.Context, exchange, routingKey string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.publish(ctx, exchange, routingKey, body)
	if err == nil {
		return nil
	}

	p.logger.Warn("rabbitmq publish failed, reopening channel",
		zap.String("exchange", exchange),
		zap.String("routing_key", routingKey),
		zap.Error(err),
	)
	ch, chErr := p.conn.Channel()
	if chErr != nil {
		return errors.Join(err, chErr)
	}
	p.channel = ch
	p.declared = make(map[string]bool)
	return p.publish(ctx, exchange, routingKey, body)
}

func (p *AMQPPublisher) publish(ctx context.Context, exchange, routingKey string, body []byte) error {
	if !p.declared[exchange] {
		if err := p.channel.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
			return err
		}
		p.declared[exchange] = true
	}
	return p.channel.PublishWithContext(ctx, exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
}

// Close closes the channel and the connection
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var errs []error
	if p.channel != nil {
		errs = append(errs, p.channel.Close())
	}
	if p.conn != nil {
		errs = append(errs, p.conn.Close())
	}
	return errors.Join(errs...)
}

// NoopPublisher drops messages. It stands in when the broker is disabled
// or unreachable at startup.
type NoopPublisher struct {
	logger *zap.Logger
}

// NewNoopPublisher creates a publisher that only logs
func NewNoopPublisher(logger *zap.Logger) *NoopPublisher {
	return &NoopPublisher{logger: logger}
}

// Publish logs and discards the message
func (p *NoopPublisher) Publish(_ context.Context, exchange, routingKey string, _ []byte) error {
	p.logger.Debug("publish skipped, broker disabled",
		zap.String("exchange", exchange),
		zap.String("routing_key", routingKey),
	)
	return nil
}

// Close is a no-op
func (p *NoopPublisher) Close() error { return nil }

// NewMessagePublisher connects to RabbitMQ when enabled and falls back to a
// NoopPublisher when disabled or when the broker cannot be reached.
func NewMessagePublisher(cfg config.RabbitMQConfig, logger *zap.Logger) MessagePublisher {
	if !cfg.Enabled {
		return NewNoopPublisher(logger)
	}
	publisher, err := DialAMQP(cfg.URL, logger)
	if err != nil {
		logger.Warn("rabbitmq unavailable, notifications will be dropped", zap.Error(err))
		return NewNoopPublisher(logger)
	}
	logger.Info("connected to rabbitmq", zap.String("exchange", cfg.Exchange))
	return publisher
}

func sanitizeAMQPURL(raw string) (string, error) {
	clean := strings.Trim(strings.TrimSpace(raw), "\"'")
	u, err := url.Parse(clean)
	if err != nil {
		return "", fmt.Errorf("parse amqp url: %w", err)
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("amqp url scheme must be amqp or amqps")
	}
	return clean, nil
}

// Notifier forwards campaign events to the broker, where the notification
// service picks them up. It is fire-and-forget: delivery to users is not
// this service's concern.
type Notifier struct {
	publisher  MessagePublisher
	serializer *EventSerializer
	exchange   string
}

// NewNotifier creates a notifier publishing to exchange
func NewNotifier(publisher MessagePublisher, serializer *EventSerializer, exchange string) *Notifier {
	return &Notifier{publisher: publisher, serializer: serializer, exchange: exchange}
}

// EventTypes returns every campaign event type
func (n *Notifier) EventTypes() []string {
	types := []string{campaign.EventTypeCampaignCreated, campaign.EventTypeCampaignCompleted}
	return append(types, campaign.StatusChangeEventTypes...)
}

// Handle publishes the event under its routing key
func (n *Notifier) Handle(ctx context.Context, event shared.DomainEvent) error {
	body, err := n.serializer.Serialize(event)
	if err != nil {
		return err
	}
	return n.publisher.Publish(ctx, n.exchange, RoutingKey(event.EventType()), body)
}

// RoutingKey maps an event type to a dotted topic key:
// CampaignAccepted -> campaign.accepted
func RoutingKey(eventType string) string {
	if rest, ok := strings.CutPrefix(eventType, campaign.AggregateTypeCampaign); ok && rest != "" {
		return "campaign." + strings.ToLower(rest)
	}
	return strings.ToLower(eventType)
}

var _ shared.EventHandler = (*Notifier)(nil)
