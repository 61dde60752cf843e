package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

// Топология событий публикаций.
const (
	// ExchangePosts — события постов.
	ExchangePosts Exchange = "postpilot.posts"

	// QueuePostsPublished — успешные публикации.
	QueuePostsPublished Queue = "posts.published"

	// QueuePostsFailed — окончательно неудавшиеся публикации.
	QueuePostsFailed Queue = "posts.failed"

	// RoutingKeyPublished — ключ для post.published.
	RoutingKeyPublished RoutingKey = "published"

	// RoutingKeyFailed — ключ для post.failed.
	RoutingKeyFailed RoutingKey = "failed"
)

// SetupTopology объявляет exchange, очереди и привязки.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.ExchangeDeclare(
			string(ExchangePosts), // name
			"direct",              // type
			true,                  // durable
			false,                 // auto-deleted
			false,                 // internal
			false,                 // no-wait
			nil,                   // arguments
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", ExchangePosts, err)
		}

		bindings := []struct {
			queue      Queue
			routingKey RoutingKey
		}{
			{QueuePostsPublished, RoutingKeyPublished},
			{QueuePostsFailed, RoutingKeyFailed},
		}

		for _, b := range bindings {
			if _, err := ch.QueueDeclare(
				string(b.queue), // name
				true,            // durable
				false,           // delete when unused
				false,           // exclusive
				false,           // no-wait
				nil,             // arguments
			); err != nil {
				return fmt.Errorf("declare queue %s: %w", b.queue, err)
			}

			if err := ch.QueueBind(
				string(b.queue),      // queue name
				string(b.routingKey), // routing key
				string(ExchangePosts),
				false, // no-wait
				nil,   // arguments
			); err != nil {
				return fmt.Errorf("bind queue %s: %w", b.queue, err)
			}
		}

		return nil
	})
}
