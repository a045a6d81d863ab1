// Package mq fans messages out to every API replica. The chat relay uses it
// so a message persisted on one replica reaches sockets held by another.
package mq

import (
	"context"
	"fmt"

	"github.com/sudo-init-do/servicehub/internal/config"
)

// Message is a broker-agnostic payload delivered to subscribers.
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Handler processes a message. Returning an error asks the broker to
// redeliver when it supports that.
type Handler func(ctx context.Context, msg Message) error

// Backend is implemented by each broker. Every subscriber on every replica
// receives every message published to a channel.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Close() error
}

// Open builds the backend named by cfg.Backend.
func Open(ctx context.Context, cfg config.BusConfig) (Backend, error) {
	switch cfg.Backend {
	case "", "local":
		return NewLocal(), nil
	case "rabbitmq":
		return NewRabbitMQ(cfg.RabbitMQURL)
	case "pubsub":
		return NewPubSub(ctx, cfg.PubSubProjectID, cfg.PubSubCredentials, cfg.SubscriptionSuffix)
	default:
		return nil, fmt.Errorf("unknown bus backend %q", cfg.Backend)
	}
}
