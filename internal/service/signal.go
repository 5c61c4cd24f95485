package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/palimpsest-cms/palimpsest"
)

// SignalService fans content events out over redis pub/sub. One channel per
// collection so realtime clients can subscribe selectively.
type SignalService struct {
	rdb *redis.Client
}

func NewSignalService(redisClient *redis.Client) *SignalService {
	return &SignalService{
		rdb: redisClient,
	}
}

func channelFor(collection string) string {
	return "palimpsest:content:" + collection
}

func (s *SignalService) Publish(ctx context.Context, event palimpsest.Event) error {
	jsonstr, err := json.Marshal(event)
	if err != nil {
		return err
	}

	err = s.rdb.Publish(ctx, channelFor(event.Collection), jsonstr).Err()
	if err != nil {
		return err
	}

	return nil
}

// Realtime bridges redis subscriptions to a websocket session. The request
// channel replaces the subscribed collection set; events stream out on the
// response channel until the context ends.
func (s *SignalService) Realtime(ctx context.Context, request <-chan []string, response chan<- palimpsest.Event) {
	pubsub := s.rdb.Subscribe(ctx)
	defer pubsub.Close()

	messages := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return
		case collections, ok := <-request:
			if !ok {
				return
			}
			channels := make([]string, 0, len(collections))
			for _, collection := range collections {
				channels = append(channels, channelFor(collection))
			}
			if err := pubsub.Unsubscribe(ctx); err != nil {
				slog.ErrorContext(ctx, "realtime unsubscribe failed",
					slog.String("error", err.Error()),
					slog.String("module", "signal"),
				)
				return
			}
			if len(channels) > 0 {
				if err := pubsub.Subscribe(ctx, channels...); err != nil {
					slog.ErrorContext(ctx, "realtime subscribe failed",
						slog.String("error", err.Error()),
						slog.String("module", "signal"),
					)
					return
				}
			}
		case msg, ok := <-messages:
			if !ok {
				return
			}
			var event palimpsest.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				slog.WarnContext(ctx, "dropping malformed event",
					slog.String("channel", msg.Channel),
					slog.String("error", err.Error()),
					slog.String("module", "signal"),
				)
				continue
			}
			select {
			case response <- event:
			case <-ctx.Done():
				return
			}
		}
	}
}
