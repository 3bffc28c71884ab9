package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/roach88/catalog/internal/model"
)

// EventEntityCommitted is the AMQP message type for committed entities.
const EventEntityCommitted = "entity.committed"

// EntityCommittedMessage is the JSON body published per committed entity.
type EntityCommittedMessage struct {
	Event      string            `json:"event"`
	BBID       string            `json:"bbid"`
	Type       model.EntityType  `json:"type"`
	RevisionID int64             `json:"revision_id"`
	Deleted    bool              `json:"deleted"`
	Entity     *model.EntityView `json:"entity"`
}

// publisher is the part of *amqp.Channel the hook uses.
type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPHook publishes committed entities to a direct exchange.
type AMQPHook struct {
	conn       *amqp.Connection
	ch         publisher
	exchange   string
	routingKey string
	now        func() time.Time
}

// DialAMQP connects to url and declares a durable direct exchange.
func DialAMQP(url, exchange, routingKey string) (*AMQPHook, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "direct", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare exchange %q: %w", exchange, err)
	}

	h := newAMQPHook(ch, exchange, routingKey)
	h.conn = conn
	return h, nil
}

func newAMQPHook(ch publisher, exchange, routingKey string) *AMQPHook {
	return &AMQPHook{
		ch:         ch,
		exchange:   exchange,
		routingKey: routingKey,
		now:        time.Now,
	}
}

func (h *AMQPHook) Name() string { return "amqp" }

func (h *AMQPHook) EntityCommitted(ctx context.Context, v *model.EntityView) error {
	body, err := json.Marshal(EntityCommittedMessage{
		Event:      EventEntityCommitted,
		BBID:       v.BBID,
		Type:       v.Type,
		RevisionID: v.RevisionID,
		Deleted:    v.Deleted,
		Entity:     v,
	})
	if err != nil {
		return fmt.Errorf("marshal %s: %w", v.BBID, err)
	}

	err = h.ch.PublishWithContext(ctx, h.exchange, h.routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		MessageId:    fmt.Sprintf("%s@%d", v.BBID, v.RevisionID),
		Type:         EventEntityCommitted,
		Headers:      amqp.Table{"entity-type": string(v.Type)},
		Body:         body,
		Timestamp:    h.now(),
		DeliveryMode: amqp.Persistent,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", v.BBID, err)
	}
	return nil
}

// Close closes the underlying connection, if the hook owns one.
func (h *AMQPHook) Close() error {
	if h.conn == nil {
		return nil
	}
	return h.conn.Close()
}
