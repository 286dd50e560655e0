package cart

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Alturino/mallofhookah/internal/backend"
	"github.com/Alturino/mallofhookah/internal/constants"
)

type AuthEvents interface {
	OnAuthChange(c context.Context, fn func(backend.AuthEvent)) (unsubscribe func(), err error)
}

// Listen keeps open carts in line with saves from other instances and drops
// carts that went idle or whose user signed out. It blocks until c is done or
// the cart subscription fails. events may be nil.
func (svc *CartService) Listen(c context.Context, events AuthEvents) error {
	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "CartService Listen").
		Logger()

	c, cancel := context.WithCancel(c)
	defer cancel()

	if events != nil {
		logger = logger.With().Str(constants.KEY_PROCESS, "listening sign outs").Logger()
		logger.Info().Msg("listening sign outs")
		unsubscribe, err := events.OnAuthChange(c, func(event backend.AuthEvent) {
			if event.Type != backend.AuthSignedOut {
				return
			}
			svc.Evict(event.UserID)
			logger.Info().Str(constants.KEY_USER_ID, event.UserID.String()).Msg("evicted cart of signed out user")
		})
		if err != nil {
			err = fmt.Errorf("failed listening sign outs with error=%w", err)
			logger.Error().Err(err).Msg(err.Error())
			return err
		}
		defer unsubscribe()
		logger.Info().Msg("listened sign outs")
	}

	go svc.sweep(logger.WithContext(c))

	logger = logger.With().Str(constants.KEY_PROCESS, "watching cart changes").Logger()
	logger.Info().Msg("watching cart changes")
	if err := svc.persistence.Watch(c, svc.replaceRemote); err != nil {
		err = fmt.Errorf("failed watching cart changes with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msg("stopped watching cart changes")
	return nil
}

func (svc *CartService) sweep(c context.Context) {
	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "CartService sweep").
		Logger()

	ticker := time.NewTicker(svc.idleTTL / 2)
	defer ticker.Stop()
	for {
		select {
		case <-c.Done():
			return
		case now := <-ticker.C:
			if evicted := svc.evictIdle(now); evicted > 0 {
				logger.Info().Int(constants.KEY_CART_STORES, evicted).Msg("evicted idle carts")
			}
		}
	}
}
