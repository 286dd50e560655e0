package cmd

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Alturino/mallofhookah/internal/backend"
	"github.com/Alturino/mallofhookah/internal/cart"
	"github.com/Alturino/mallofhookah/internal/constants"
	"github.com/Alturino/mallofhookah/internal/product"
)

const listenerRetryDelay = 5 * time.Second

// Listener runs a blocking change feed for the lifetime of the process,
// restarting it after a dropped connection.
type Listener struct {
	app    string
	name   string
	listen func(c context.Context) error
}

// NewProductListener keeps the product cache in line with the products table.
func NewProductListener(realtime backend.Realtime, svc *product.ProductService) *Listener {
	return &Listener{
		app:  constants.APP_PRODUCT_LISTENER,
		name: "product changes",
		listen: func(c context.Context) error {
			return product.ListenProductChanges(c, realtime, svc)
		},
	}
}

// NewCartListener keeps open carts in line with other instances and drops
// carts of idle or signed out users.
func NewCartListener(svc *cart.CartService, events cart.AuthEvents) *Listener {
	return &Listener{
		app:  constants.APP_CART_LISTENER,
		name: "cart changes",
		listen: func(c context.Context) error {
			return svc.Listen(c, events)
		},
	}
}

func (l *Listener) StartListener(c context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "Listener StartListener").
		Str(constants.KEY_PROCESS, "listening "+l.name).
		Str(constants.KEY_APP_NAME, l.app).
		Logger()
	c = logger.WithContext(c)

	for {
		logger.Info().Msgf("start listening %s", l.name)
		err := l.listen(c)
		if c.Err() != nil {
			logger.Info().Msgf("stopped listening %s", l.name)
			return
		}
		if err != nil {
			err = fmt.Errorf("failed listening %s with error=%w", l.name, err)
			logger.Error().Err(err).Msg(err.Error())
		}

		select {
		case <-c.Done():
			logger.Info().Msgf("stopped listening %s", l.name)
			return
		case <-time.After(listenerRetryDelay):
		}
	}
}
