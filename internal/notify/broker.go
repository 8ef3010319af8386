// Geodex - Offline-First Collection Tracking and Geospatial Indexing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geodex

// Package notify fans committed collection changes out to in-process
// subscribers over a Watermill gochannel pub/sub. The collection service
// publishes one ChangeEvent per committed mutation; the websocket hub
// bridge is the main subscriber.
package notify

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/tomtom215/geodex/internal/metrics"
	"github.com/tomtom215/geodex/internal/models"
)

// TopicChanges is the single topic all collection change events flow over.
const TopicChanges = "collection.changes"

// outputBuffer sizes each subscriber's channel. A slow subscriber buffers
// this many events before publishes start blocking on it.
const outputBuffer = 256

// Metadata keys set on every published message.
const (
	metaType   = "type"
	metaUserID = "user_id"
)

// Broker is the in-process change-event bus.
//
// Delivery is at-least-once and in publish order per subscriber while the
// process lives; events are not persisted, since any consumer can rebuild
// state from the store. Ordered delivery is bought by blocking each Publish
// until every subscriber acks, so subscribers must ack promptly — the
// change feed acks right after its non-blocking hub broadcast.
type Broker struct {
	pubsub     *gochannel.GoChannel
	serializer *Serializer
	logger     watermill.LoggerAdapter

	subscribers atomic.Int64

	mu     sync.RWMutex
	closed bool
}

// NewBroker creates the change-event broker. A nil logger falls back to
// Watermill's stdlib logger.
func NewBroker(logger watermill.LoggerAdapter) *Broker {
	if logger == nil {
		logger = watermill.NewStdLogger(false, false)
	}

	pubsub := gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer: outputBuffer,
			// Without this, gochannel hands each publish to a delivery
			// goroutine and two back-to-back events can arrive swapped.
			BlockPublishUntilSubscriberAck: true,
		},
		logger,
	)

	return &Broker{
		pubsub:     pubsub,
		serializer: NewSerializer(),
		logger:     logger,
	}
}

// Publish serializes a change event and delivers it to all current
// subscribers. Publishing with no subscribers is a successful no-op.
func (b *Broker) Publish(ctx context.Context, event models.ChangeEvent) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return fmt.Errorf("broker is closed")
	}
	b.mu.RUnlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := b.serializer.Marshal(&event)
	if err != nil {
		metrics.RecordEventPublishError()
		return fmt.Errorf("serialize change event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.Metadata.Set(metaType, string(event.Type))
	msg.Metadata.Set(metaUserID, event.UserID)

	if err := b.pubsub.Publish(TopicChanges, msg); err != nil {
		metrics.RecordEventPublishError()
		return fmt.Errorf("publish change event: %w", err)
	}

	metrics.RecordEventPublished(string(event.Type))
	return nil
}

// Subscribe returns a channel of raw change messages. The subscription
// ends when ctx is canceled or the broker closes; the channel is closed
// either way.
func (b *Broker) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return nil, fmt.Errorf("broker is closed")
	}
	b.mu.RUnlock()

	messages, err := b.pubsub.Subscribe(ctx, TopicChanges)
	if err != nil {
		return nil, fmt.Errorf("subscribe to %s: %w", TopicChanges, err)
	}

	metrics.SetEventSubscribers(b.subscribers.Add(1))
	go func() {
		<-ctx.Done()
		metrics.SetEventSubscribers(b.subscribers.Add(-1))
	}()

	return messages, nil
}

// SubscriberCount returns the number of live subscriptions.
func (b *Broker) SubscriberCount() int64 {
	return b.subscribers.Load()
}

// Close shuts the broker down and closes all subscriber channels.
func (b *Broker) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	return b.pubsub.Close()
}

// ChangeHandler processes typed change events from the broker with
// ack/nack semantics. A processing error nacks the message so the
// gochannel redelivers it.
type ChangeHandler struct {
	broker  *Broker
	handler func(ctx context.Context, event models.ChangeEvent) error
}

// NewChangeHandler creates a handler for change events.
func (b *Broker) NewChangeHandler() *ChangeHandler {
	return &ChangeHandler{broker: b}
}

// Handle sets the event processing function. The function should return
// an error when processing fails; the message will be nacked.
func (h *ChangeHandler) Handle(fn func(ctx context.Context, event models.ChangeEvent) error) *ChangeHandler {
	h.handler = fn
	return h
}

// Run subscribes and processes events until ctx cancellation or broker
// close. Messages are acked on success and nacked on handler error; a
// message that cannot deserialize is acked and dropped, since redelivery
// cannot fix it.
func (h *ChangeHandler) Run(ctx context.Context) error {
	messages, err := h.broker.Subscribe(ctx)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				// The channel closes on broker close and also on ctx
				// cancellation; report the cancellation when that is
				// what ended the stream.
				return ctx.Err()
			}
			if err := h.processMessage(ctx, msg); err != nil {
				h.broker.logger.Error("change event processing failed", err, watermill.LogFields{
					"message_uuid": msg.UUID,
					"topic":        TopicChanges,
				})
			}
		}
	}
}

func (h *ChangeHandler) processMessage(ctx context.Context, msg *message.Message) error {
	event, err := h.broker.serializer.Unmarshal(msg.Payload)
	if err != nil {
		msg.Ack()
		return fmt.Errorf("unmarshal change event: %w", err)
	}

	if h.handler == nil {
		msg.Ack()
		return nil
	}

	if err := h.handler(ctx, *event); err != nil {
		msg.Nack()
		return err
	}

	msg.Ack()
	return nil
}
