package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// MessageType — тип сообщения в очереди.
type MessageType string

// Типы сообщений.
const (
	MessageTypePostPublished MessageType = "post.published"
	MessageTypePostFailed    MessageType = "post.failed"
)

// Publisher публикует события постов в RabbitMQ.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return &Publisher{
		conn:   conn,
		logger: logger,
	}
}

// Message — сообщение для публикации.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Type — тип сообщения.
	Type MessageType `json:"type"`

	// Payload — полезная нагрузка.
	Payload any `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// PostPublishedPayload — payload события об успешной публикации.
type PostPublishedPayload struct {
	JobID    string `json:"job_id"`
	MediaID  string `json:"media_id"`
	Username string `json:"username"`
}

// PostFailedPayload — payload события об окончательном отказе.
type PostFailedPayload struct {
	JobID    string `json:"job_id"`
	Username string `json:"username"`
	Error    string `json:"error"`
	Attempts int    `json:"attempts"`
}

// PublishPostPublished публикует событие об успешной публикации поста.
func (p *Publisher) PublishPostPublished(ctx context.Context, payload PostPublishedPayload) error {
	return p.publish(ctx, RoutingKeyPublished, MessageTypePostPublished, payload)
}

// PublishPostFailed публикует событие об окончательно неудавшемся посте.
func (p *Publisher) PublishPostFailed(ctx context.Context, payload PostFailedPayload) error {
	return p.publish(ctx, RoutingKeyFailed, MessageTypePostFailed, payload)
}

func (p *Publisher) publish(ctx context.Context, routingKey RoutingKey, msgType MessageType, payload any) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now(),
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(ExchangePosts),
			string(routingKey),
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent, // сообщение переживёт рестарт RabbitMQ
				MessageId:    msg.ID,
				Timestamp:    msg.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish %s: %w", msgType, err)
		}

		p.logger.Debug("published event",
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)

		return nil
	})
}
