package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Alturino/mallofhookah/internal/backend"
	"github.com/Alturino/mallofhookah/internal/constants"
	inErrors "github.com/Alturino/mallofhookah/internal/errors"
	"github.com/Alturino/mallofhookah/internal/otel"
	"github.com/Alturino/mallofhookah/internal/repository"
)

// Provider answers who the caller is. The session comes from the verified
// token attached by the auth middleware, profile attributes can be refreshed
// from the profiles table.
type Provider struct {
	queries *repository.Queries
	cache   *redis.Client
}

func NewProvider(queries *repository.Queries, cache *redis.Client) *Provider {
	return &Provider{queries: queries, cache: cache}
}

func (p *Provider) CurrentSession(c context.Context) (backend.Session, bool) {
	return SessionFromContext(c)
}

func (p *Provider) RefreshSession(c context.Context) (backend.Session, error) {
	c, span := otel.Tracer.Start(c, "Provider RefreshSession")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "Provider RefreshSession").
		Logger()

	session, ok := SessionFromContext(c)
	if !ok {
		err := fmt.Errorf("failed refreshing session with error=%w", inErrors.ErrUnauthenticated)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return backend.Session{}, err
	}
	logger = logger.With().Str(constants.KEY_USER_ID, session.UserID.String()).Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "finding profile").Logger()
	logger.Trace().Msg("finding profile")
	attributes, err := p.queries.FindProfileAttributes(c, session.UserID)
	if errors.Is(err, inErrors.ErrNotFound) {
		logger.Info().Msg("user has no stored profile")
		return session, nil
	}
	if err != nil {
		err = fmt.Errorf("failed finding profile with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return session, err
	}
	logger.Trace().Msg("found profile")

	profile := make(map[string]string, len(session.Profile)+len(attributes))
	for k, v := range session.Profile {
		profile[k] = v
	}
	for k, v := range attributes {
		profile[k] = v
	}
	session.Profile = profile
	return session, nil
}

// OnAuthChange calls fn for every sign in and sign out published by any
// instance until unsubscribe is called or c is done.
func (p *Provider) OnAuthChange(c context.Context, fn func(backend.AuthEvent)) (func(), error) {
	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "Provider OnAuthChange").
		Logger()

	pubsub := p.cache.Subscribe(c, constants.CHANNEL_AUTH_EVENTS)
	if _, err := pubsub.Receive(c); err != nil {
		pubsub.Close()
		err = fmt.Errorf("failed subscribing to %s with error=%w", constants.CHANNEL_AUTH_EVENTS, err)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}

	go func() {
		<-c.Done()
		pubsub.Close()
	}()
	go func() {
		for msg := range pubsub.Channel() {
			event := backend.AuthEvent{}
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				logger.Error().Err(err).Msg("failed decoding auth event")
				continue
			}
			fn(event)
		}
	}()

	return func() { pubsub.Close() }, nil
}

func publishAuthEvent(c context.Context, cache *redis.Client, event backend.AuthEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed encoding auth event with error=%w", err)
	}
	if err := cache.Publish(c, constants.CHANNEL_AUTH_EVENTS, payload).Err(); err != nil {
		return fmt.Errorf("failed publishing auth event with error=%w", err)
	}
	return nil
}

var _ backend.IdentityProvider = (*Provider)(nil)
