// Package gochannel is an in-process broker for single-node runs and tests.
package gochannel

import (
	"context"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/egannguyen/fontmarket/internal/messaging"
)

type channelBroker struct {
	pubsub *gochannel.GoChannel
}

// NewBroker creates a broker backed by watermill's Go channel pub/sub.
// Every subscriber receives every message; consumer groups are not modelled.
func NewBroker() messaging.Broker {
	logger := watermill.NewSlogLogger(slog.Default())
	return &channelBroker{
		pubsub: gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, logger),
	}
}

func (b *channelBroker) PublishEvent(ctx context.Context, topic string, key string, event any) error {
	payload, err := messaging.Encode(event)
	if err != nil {
		return err
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("key", key)
	return b.pubsub.Publish(topic, msg)
}

func (b *channelBroker) Consume(ctx context.Context, topic string, groupID string, handler messaging.Handler) {
	messages, err := b.pubsub.Subscribe(ctx, topic)
	if err != nil {
		slog.Error("Error subscribing", "topic", topic, "err", err)
		return
	}

	for msg := range messages {
		if err := handler(ctx, msg.Payload); err != nil {
			slog.Error("Error handling message", "topic", topic, "group", groupID, "err", err)
		}
		msg.Ack()
	}
	slog.Info("Consumer shutting down", "topic", topic)
}

func (b *channelBroker) Close() error {
	return b.pubsub.Close()
}
