package product

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Alturino/mallofhookah/internal/backend"
	"github.com/Alturino/mallofhookah/internal/constants"
	"github.com/Alturino/mallofhookah/internal/repository"
)

// ListenProductChanges drops cached products whenever the products table
// changes. It blocks until c is done.
func ListenProductChanges(c context.Context, realtime backend.Realtime, svc *ProductService) error {
	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "product ListenProductChanges").
		Str(constants.KEY_TABLE, repository.TableProducts).
		Logger()

	logger.Info().Msg("listening product changes")
	err := realtime.Subscribe(c, repository.TableProducts, func(change backend.Change) {
		record := change.Record
		if change.Type == backend.ChangeDelete || record == nil {
			record = change.OldRecord
		}
		id, err := uuid.Parse(fmt.Sprint(record["id"]))
		if err != nil {
			err = fmt.Errorf("failed parsing changed product id with error=%w", err)
			logger.Error().Err(err).Msg(err.Error())
			return
		}
		lg := logger.With().
			Str(constants.KEY_PRODUCT_ID, id.String()).
			Str("changeType", string(change.Type)).
			Logger()
		lg.Info().Msg("invalidating product")
		if err := svc.InvalidateProduct(lg.WithContext(c), id); err != nil {
			return
		}
		lg.Info().Msg("invalidated product")
	})
	if err != nil {
		err = fmt.Errorf("failed listening product changes with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msg("stopped listening product changes")
	return nil
}
