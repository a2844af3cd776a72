package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	checkoutRes "github.com/Alturino/marketclub/checkout/pkg/response"
	"github.com/Alturino/marketclub/internal/config"
	"github.com/Alturino/marketclub/internal/constants"
	inErrors "github.com/Alturino/marketclub/internal/errors"
	"github.com/Alturino/marketclub/internal/otel"
	"github.com/Alturino/marketclub/internal/repository"
	"github.com/Alturino/marketclub/webhook/pkg/request"
	"github.com/Alturino/marketclub/webhook/pkg/response"
)

// Notifier forwards the outcome of a payment to the backend.
type Notifier interface {
	Confirm(c context.Context, tx checkoutRes.Transaction) error
	MarkFailed(c context.Context, tx checkoutRes.Transaction, reason string) error
}

type WebhookService struct {
	notifier     Notifier
	ledger       Ledger
	locker       Locker
	eventsSecret string
	lockTTL      time.Duration
}

func NewWebhookService(notifier Notifier, ledger Ledger, locker Locker, cfg config.Wompi) *WebhookService {
	ttl := cfg.WebhookLockTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &WebhookService{
		notifier:     notifier,
		ledger:       ledger,
		locker:       locker,
		eventsSecret: cfg.EventsSecret,
		lockTTL:      ttl,
	}
}

// Handle authenticates a delivery and dispatches it at most once per transaction status.
func (svc *WebhookService) Handle(c context.Context, signature string, body []byte) (response.Ack, error) {
	c, span := otel.Tracer.Start(c, "WebhookService Handle")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "WebhookService Handle").
		Logger()

	if signature == "" {
		err := inErrors.NewSignatureError(true)
		count("", OUTCOME_MISSING_SIGNATURE)
		otel.RecordError(err, span)
		logger.Warn().Err(err).Msg(err.Error())
		return response.Ack{}, err
	}

	logger = logger.With().Str(constants.KEY_PROCESS, "decoding event").Logger()
	logger.Trace().Msg("decoding event")
	event := request.Event{}
	data := request.EventData{}
	if err := json.Unmarshal(body, &event); err != nil {
		return response.Ack{}, svc.malformed(span, logger, err)
	}
	if len(event.Data) == 0 {
		return response.Ack{}, svc.malformed(span, logger, errors.New("event has no data"))
	}
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return response.Ack{}, svc.malformed(span, logger, err)
	}
	tx := data.Transaction
	logger = logger.With().
		Str(constants.KEY_EVENT, event.Event).
		Str(constants.KEY_TRANSACTION_ID, tx.ID).
		Str(constants.KEY_TRANSACTION_STATUS, tx.Status).
		Str(constants.KEY_REFERENCE, tx.Reference).
		RawJSON(constants.KEY_REQUEST_BODY, body).
		Logger()
	span.SetAttributes(
		attribute.String(constants.KEY_TRANSACTION_ID, tx.ID),
		attribute.String(constants.KEY_TRANSACTION_STATUS, tx.Status),
	)
	logger.Info().Msg("decoded event")

	logger = logger.With().Str(constants.KEY_PROCESS, "verifying signature").Logger()
	properties := event.Signature.Properties
	if len(properties) == 0 {
		properties = DefaultSignatureProperties
	}
	expected, err := Checksum(event.Data, properties, event.Timestamp, svc.eventsSecret)
	if err != nil || !VerifyChecksum(expected, signature) {
		sigErr := inErrors.NewSignatureError(false)
		count(tx.Status, OUTCOME_BAD_SIGNATURE)
		otel.RecordError(sigErr, span)
		logger.Warn().AnErr("checksumError", err).Err(sigErr).Msg(sigErr.Error())
		return response.Ack{}, sigErr
	}
	logger.Trace().Msg("verified signature")

	reason, known := dispatchReason(event.Event, tx.Status)
	if !known {
		err := inErrors.NewUnknownEventError(event.Event, tx.Status)
		count(tx.Status, OUTCOME_IGNORED)
		logger.Warn().Err(err).Msg(err.Error())
		return response.Ack{Success: true, Ignored: true, Outcome: OUTCOME_IGNORED}, nil
	}
	if tx.ID == "" || tx.Reference == "" {
		return response.Ack{}, svc.malformed(span, logger, errors.New("transaction id and reference are required"))
	}

	logger = logger.With().Str(constants.KEY_PROCESS, "checking ledger").Logger()
	processed, err := svc.ledger.IsProcessed(c, tx.ID, tx.Status)
	if err != nil {
		return response.Ack{}, svc.failed(span, logger, tx.Status, "failed checking ledger", err)
	}
	if processed {
		count(tx.Status, OUTCOME_DUPLICATE)
		logger.Info().Msg("duplicate delivery")
		return response.Ack{Success: true, Duplicate: true, Outcome: OUTCOME_DUPLICATE}, nil
	}

	logger = logger.With().Str(constants.KEY_PROCESS, "acquiring lock").Logger()
	key := LockKey(tx.ID, tx.Status)
	token, acquired, err := svc.locker.Acquire(c, key, svc.lockTTL)
	switch {
	case err != nil:
		logger.Warn().Err(err).Msg("processing without lock")
	case !acquired:
		err := inErrors.NewDeliveryInFlightError(tx.ID, tx.Status)
		count(tx.Status, OUTCOME_IN_FLIGHT)
		otel.RecordError(err, span)
		logger.Warn().Err(err).Msg(err.Error())
		return response.Ack{}, err
	default:
		defer func() {
			if err := svc.locker.Release(context.WithoutCancel(c), key, token); err != nil {
				logger.Warn().Err(err).Msg(err.Error())
			}
		}()

		// another delivery may have finished between the first check and the lock
		processed, err = svc.ledger.IsProcessed(c, tx.ID, tx.Status)
		if err != nil {
			return response.Ack{}, svc.failed(span, logger, tx.Status, "failed checking ledger", err)
		}
		if processed {
			count(tx.Status, OUTCOME_DUPLICATE)
			logger.Info().Msg("duplicate delivery")
			return response.Ack{Success: true, Duplicate: true, Outcome: OUTCOME_DUPLICATE}, nil
		}
	}

	logger = logger.With().Str(constants.KEY_PROCESS, "dispatching event").Logger()
	logger.Info().Msg("dispatching event")
	transaction := checkoutRes.Transaction{
		ID:            tx.ID,
		Status:        tx.Status,
		Reference:     tx.Reference,
		AmountInCents: tx.AmountInCents,
	}
	if reason == "" {
		err = svc.notifier.Confirm(c, transaction)
	} else {
		err = svc.notifier.MarkFailed(c, transaction, reason)
	}
	if err != nil {
		return response.Ack{}, svc.failed(span, logger, tx.Status, "failed dispatching event", err)
	}
	logger.Info().Msg("dispatched event")

	logger = logger.With().Str(constants.KEY_PROCESS, "recording event").Logger()
	err = svc.ledger.Record(c, repository.InsertPaymentEventParams{
		TransactionID: tx.ID,
		Status:        tx.Status,
		Reference:     tx.Reference,
		Event:         event.Event,
		AmountInCents: tx.AmountInCents,
	})
	if err != nil {
		logger.Error().Err(err).Msg("dispatched event was not recorded, a redelivery will dispatch it again")
	}

	count(tx.Status, OUTCOME_PROCESSED)
	return response.Ack{Success: true, Outcome: OUTCOME_PROCESSED}, nil
}

// dispatchReason reports whether the event is acted on and the mark failed reason, empty
// for an approval.
func dispatchReason(event string, status string) (string, bool) {
	if event != request.EVENT_TRANSACTION_UPDATED {
		return "", false
	}
	switch status {
	case checkoutRes.TRANSACTION_APPROVED:
		return "", true
	case checkoutRes.TRANSACTION_DECLINED:
		return checkoutRes.REASON_DECLINED, true
	case checkoutRes.TRANSACTION_VOIDED:
		return checkoutRes.REASON_VOIDED, true
	default:
		return "", false
	}
}

func (svc *WebhookService) malformed(span trace.Span, logger zerolog.Logger, cause error) error {
	err := inErrors.NewValidationError(fmt.Sprintf("failed decoding event with error=%s", cause.Error()))
	count("", OUTCOME_MALFORMED)
	otel.RecordError(err, span)
	logger.Warn().Err(err).Msg(err.Error())
	return err
}

func (svc *WebhookService) failed(
	span trace.Span,
	logger zerolog.Logger,
	status string,
	message string,
	cause error,
) error {
	err := inErrors.NewInternalError(message, cause)
	count(status, OUTCOME_FAILED)
	otel.RecordError(err, span)
	logger.Error().Err(err).Msg(err.Error())
	return err
}
