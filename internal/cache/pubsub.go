package cache

import (
	"context"
	"encoding/json"

	"github.com/gorb-swap/amm-core/internal/constants"
)

// SubscribeEvents subscribes to the live event-log channel and returns a
// channel of decoded records. The caller must drain it until ctx is
// cancelled; when the buffer is full the newly received message is dropped
// rather than blocking the Redis reader goroutine.
func (r *RedisSink) SubscribeEvents(ctx context.Context) (<-chan EventRecord, error) {
	pubsub := r.client.Subscribe(ctx, constants.PubSubChannelEvents)
	if _, err := pubsub.Receive(ctx); err != nil {
		return nil, err
	}

	r.logger.WithField("channel", constants.PubSubChannelEvents).Info("subscribed to event channel")

	out := make(chan EventRecord, 100)
	go func() {
		defer close(out)
		defer func() {
			if err := pubsub.Close(); err != nil {
				r.logger.WithError(err).Warn("error closing pubsub subscription")
			}
		}()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					r.logger.Warn("pubsub channel closed unexpectedly")
					return
				}
				var rec EventRecord
				if err := json.Unmarshal([]byte(msg.Payload), &rec); err != nil {
					r.logger.WithError(err).Warn("failed to unmarshal event from pubsub")
					continue
				}
				select {
				case out <- rec:
				default:
					r.logger.Warn("event channel buffer full, dropping message")
				}
			}
		}
	}()

	return out, nil
}
