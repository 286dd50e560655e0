package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/Alturino/mallofhookah/internal/constants"
	inErrors "github.com/Alturino/mallofhookah/internal/errors"
	"github.com/Alturino/mallofhookah/internal/otel"
)

const (
	ProcedureCreateOrder  = "create_order"
	ProcedureAddOrderItem = "add_order_item"
	ProcedureCancelOrder  = "cancel_order"
)

// Postgres serves Tables, Procedures and Realtime from one pool. Only the
// procedures it was built with may be called.
type Postgres struct {
	pool       *pgxpool.Pool
	procedures map[string]struct{}
}

func NewPostgres(pool *pgxpool.Pool, procedures ...string) *Postgres {
	allowed := make(map[string]struct{}, len(procedures))
	for _, p := range procedures {
		allowed[p] = struct{}{}
	}
	return &Postgres{pool: pool, procedures: allowed}
}

func toRemoteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return &RemoteError{Code: pgErr.Code, Message: pgErr.Message, Details: pgErr.Detail}
	}
	return err
}

func collect(rows pgx.Rows) ([]Row, error) {
	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, toRemoteError(err)
	}
	result := make([]Row, len(maps))
	for i, m := range maps {
		result[i] = Row(m)
	}
	return result, nil
}

func (p *Postgres) Select(c context.Context, q Query) ([]Row, error) {
	c, span := otel.Tracer.Start(c, "Postgres Select")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "Postgres Select").
		Str(constants.KEY_TABLE, q.Table).
		Logger()

	sql, args := buildSelect(q)
	logger.Trace().Str("sql", sql).Msg("selecting rows")
	rows, err := p.pool.Query(c, sql, args...)
	if err != nil {
		err = fmt.Errorf("failed selecting from %s with error=%w", q.Table, toRemoteError(err))
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	result, err := collect(rows)
	if err != nil {
		err = fmt.Errorf("failed collecting rows from %s with error=%w", q.Table, err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Trace().Int("count", len(result)).Msg("selected rows")

	return result, nil
}

func (p *Postgres) SelectOne(c context.Context, q Query) (Row, error) {
	q.Limit = 1
	rows, err := p.Select(c, q)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("failed finding row in %s with error=%w", q.Table, inErrors.ErrNotFound)
	}
	return rows[0], nil
}

func (p *Postgres) Insert(c context.Context, table string, row Row) (Row, error) {
	c, span := otel.Tracer.Start(c, "Postgres Insert")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "Postgres Insert").
		Str(constants.KEY_TABLE, table).
		Logger()

	sql, args := buildInsert(table, row)
	logger.Trace().Str("sql", sql).Msg("inserting row")
	rows, err := p.pool.Query(c, sql, args...)
	if err != nil {
		err = fmt.Errorf("failed inserting into %s with error=%w", table, toRemoteError(err))
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	inserted, err := collect(rows)
	if err != nil {
		err = fmt.Errorf("failed inserting into %s with error=%w", table, err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Trace().Msg("inserted row")

	return inserted[0], nil
}

func (p *Postgres) Update(c context.Context, table string, filters []Filter, values Row) ([]Row, error) {
	c, span := otel.Tracer.Start(c, "Postgres Update")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "Postgres Update").
		Str(constants.KEY_TABLE, table).
		Logger()

	sql, args := buildUpdate(table, filters, values)
	logger.Trace().Str("sql", sql).Msg("updating rows")
	rows, err := p.pool.Query(c, sql, args...)
	if err != nil {
		err = fmt.Errorf("failed updating %s with error=%w", table, toRemoteError(err))
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	updated, err := collect(rows)
	if err != nil {
		err = fmt.Errorf("failed updating %s with error=%w", table, err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Trace().Int("count", len(updated)).Msg("updated rows")

	return updated, nil
}

func (p *Postgres) Call(c context.Context, name string, args map[string]any) (any, error) {
	c, span := otel.Tracer.Start(c, "Postgres Call")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "Postgres Call").
		Str(constants.KEY_PROCEDURE, name).
		Logger()

	if _, ok := p.procedures[name]; !ok {
		err := &RemoteError{Code: "42883", Message: fmt.Sprintf("procedure %s is not exposed", name)}
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}

	sql, values := buildCall(name, args)
	logger.Trace().Str("sql", sql).Msg("calling procedure")
	var result any
	err := p.pool.QueryRow(c, sql, values...).Scan(&result)
	if err != nil {
		err = toRemoteError(err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Trace().Any("result", result).Msg("called procedure")

	return result, nil
}

// ChannelName is the NOTIFY channel the table trigger publishes on.
func ChannelName(table string) string {
	return "realtime_" + table
}

func (p *Postgres) Subscribe(c context.Context, table string, fn func(Change)) error {
	c, span := otel.Tracer.Start(c, "Postgres Subscribe")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "Postgres Subscribe").
		Str(constants.KEY_TABLE, table).
		Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "acquiring listener connection").Logger()
	logger.Info().Msg("acquiring listener connection")
	conn, err := p.pool.Acquire(c)
	if err != nil {
		err = fmt.Errorf("failed acquiring listener connection with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	defer conn.Release()

	channel := ChannelName(table)
	_, err = conn.Exec(c, "LISTEN "+pq.QuoteIdentifier(channel))
	if err != nil {
		err = fmt.Errorf("failed listening on %s with error=%w", channel, toRemoteError(err))
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msgf("listening on channel=%s", channel)

	logger = logger.With().Str(constants.KEY_PROCESS, "waiting for notification").Logger()
	for {
		notification, err := conn.Conn().WaitForNotification(c)
		if err != nil {
			if c.Err() != nil {
				logger.Info().Msg("stopped listening")
				return nil
			}
			err = fmt.Errorf("failed waiting for notification with error=%w", err)
			otel.RecordError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return err
		}

		change := Change{}
		if err := json.Unmarshal([]byte(notification.Payload), &change); err != nil {
			err = fmt.Errorf("failed decoding notification with error=%w", err)
			logger.Error().Err(err).Msg(err.Error())
			continue
		}
		logger.Debug().Str("type", string(change.Type)).Msg("received change")
		fn(change)
	}
}
