package natsadapter

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/canopyviz/internal/core/domain"
)

// Subscriber implements ports.EventSubscriber using NATS JetStream.
type Subscriber struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	subs []*nats.Subscription
}

// NewSubscriber creates a subscriber with its own NATS connection.
func NewSubscriber(url string) (*Subscriber, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	return &Subscriber{conn: conn, js: js}, nil
}

func (s *Subscriber) SubscribeLayers(ctx context.Context, handler func(ctx context.Context, layer *domain.MapLayer) error) error {
	return s.subscribe(SubjectLayerRegistered, "layer-consumer", func(data []byte) error {
		var layer domain.MapLayer
		if _, err := DecodeEvent(data, &layer); err != nil {
			return err
		}
		return handler(ctx, &layer)
	})
}

func (s *Subscriber) SubscribeThumbnails(ctx context.Context, handler func(ctx context.Context, thumb *domain.Thumbnail) error) error {
	return s.subscribe(SubjectThumbnailCreated, "thumbnail-consumer", func(data []byte) error {
		var thumb domain.Thumbnail
		if _, err := DecodeEvent(data, &thumb); err != nil {
			return err
		}
		return handler(ctx, &thumb)
	})
}

func (s *Subscriber) subscribe(subject, durable string, handle func(data []byte) error) error {
	sub, err := s.js.Subscribe(subject, func(msg *nats.Msg) {
		if err := handle(msg.Data); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.Durable(durable),
		nats.ManualAck(),
		nats.MaxDeliver(3),
	)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}
