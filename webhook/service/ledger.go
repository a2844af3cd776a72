package service

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/Alturino/marketclub/internal/constants"
	"github.com/Alturino/marketclub/internal/otel"
	"github.com/Alturino/marketclub/internal/repository"
)

// Ledger remembers which (transaction, status) pairs were already dispatched.
type Ledger interface {
	IsProcessed(c context.Context, transactionID string, status string) (bool, error)
	Record(c context.Context, event repository.InsertPaymentEventParams) error
}

type PostgresLedger struct {
	queries *repository.Queries
}

func NewPostgresLedger(pool *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{queries: repository.New(pool)}
}

func (l *PostgresLedger) IsProcessed(c context.Context, transactionID string, status string) (bool, error) {
	c, span := otel.Tracer.Start(c, "PostgresLedger IsProcessed")
	defer span.End()

	processed, err := l.queries.IsPaymentEventProcessed(c, repository.IsPaymentEventProcessedParams{
		TransactionID: transactionID,
		Status:        status,
	})
	if err != nil {
		err = fmt.Errorf("failed checking payment event with error=%w", err)
		otel.RecordError(err, span)
		zerolog.Ctx(c).Error().
			Err(err).
			Str(constants.KEY_TAG, "PostgresLedger IsProcessed").
			Str(constants.KEY_TRANSACTION_ID, transactionID).
			Msg(err.Error())
		return false, err
	}
	return processed, nil
}

func (l *PostgresLedger) Record(c context.Context, event repository.InsertPaymentEventParams) error {
	c, span := otel.Tracer.Start(c, "PostgresLedger Record")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "PostgresLedger Record").
		Str(constants.KEY_TRANSACTION_ID, event.TransactionID).
		Str(constants.KEY_TRANSACTION_STATUS, event.Status).
		Logger()

	rows, err := l.queries.InsertPaymentEvent(c, event)
	if err != nil {
		err = fmt.Errorf("failed inserting payment event with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	if rows == 0 {
		logger.Info().Msg("payment event already recorded")
		return nil
	}
	logger.Trace().Msg("recorded payment event")
	return nil
}
