package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Alturino/mallofhookah/internal/constants"
	"github.com/Alturino/mallofhookah/internal/otel"
)

const defaultCartTTL = 30 * 24 * time.Hour

type snapshot struct {
	Origin uuid.UUID `json:"origin"`
	Items  []Item    `json:"items"`
}

// RedisPersistence stores each cart as JSON and announces every save on a
// channel named after the key. The last save wins. Saves carry the origin of
// the writing instance so an instance never replays its own writes.
type RedisPersistence struct {
	client *redis.Client
	origin uuid.UUID
	ttl    time.Duration
}

func NewRedisPersistence(client *redis.Client) *RedisPersistence {
	return &RedisPersistence{client: client, origin: uuid.New(), ttl: defaultCartTTL}
}

func (r *RedisPersistence) Load(c context.Context, key string) ([]Item, error) {
	c, span := otel.Tracer.Start(c, "RedisPersistence Load")
	defer span.End()

	data, err := r.client.Get(c, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return []Item{}, nil
	}
	if err != nil {
		err = fmt.Errorf("failed getting cart key=%s with error=%w", key, err)
		otel.RecordError(err, span)
		return nil, err
	}

	items := []Item{}
	if err := json.Unmarshal(data, &items); err != nil {
		err = fmt.Errorf("failed unmarshaling cart key=%s with error=%w", key, err)
		otel.RecordError(err, span)
		return nil, err
	}
	return items, nil
}

func (r *RedisPersistence) Save(c context.Context, key string, items []Item) error {
	c, span := otel.Tracer.Start(c, "RedisPersistence Save")
	defer span.End()

	data, err := json.Marshal(items)
	if err != nil {
		err = fmt.Errorf("failed marshaling cart key=%s with error=%w", key, err)
		otel.RecordError(err, span)
		return err
	}
	if err := r.client.Set(c, key, data, r.ttl).Err(); err != nil {
		err = fmt.Errorf("failed setting cart key=%s with error=%w", key, err)
		otel.RecordError(err, span)
		return err
	}

	message, err := json.Marshal(snapshot{Origin: r.origin, Items: items})
	if err != nil {
		err = fmt.Errorf("failed marshaling cart snapshot key=%s with error=%w", key, err)
		otel.RecordError(err, span)
		return err
	}
	if err := r.client.Publish(c, key, message).Err(); err != nil {
		err = fmt.Errorf("failed publishing cart key=%s with error=%w", key, err)
		otel.RecordError(err, span)
		return err
	}
	return nil
}

// Watch delivers saves made by other instances to any cart over a single
// pattern subscription. It blocks until c is done or the subscription drops.
func (r *RedisPersistence) Watch(c context.Context, fn func(key string, items []Item)) error {
	pattern := storeKeyPattern()
	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "RedisPersistence Watch").
		Str(constants.KEY_CACHE_KEY, pattern).
		Logger()

	pubsub := r.client.PSubscribe(c, pattern)
	defer pubsub.Close()
	if _, err := pubsub.Receive(c); err != nil {
		err = fmt.Errorf("failed subscribing cart pattern=%s with error=%w", pattern, err)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msg("watching cart changes")

	ch := pubsub.Channel()
	for {
		select {
		case <-c.Done():
			logger.Info().Msg("stopped watching cart changes")
			return nil
		case msg, ok := <-ch:
			if !ok {
				return errors.New("cart subscription closed")
			}
			s := snapshot{}
			if err := json.Unmarshal([]byte(msg.Payload), &s); err != nil {
				err = fmt.Errorf("failed unmarshaling cart snapshot key=%s with error=%w", msg.Channel, err)
				logger.Error().Err(err).Msg(err.Error())
				continue
			}
			if s.Origin == r.origin {
				continue
			}
			fn(msg.Channel, s.Items)
		}
	}
}
