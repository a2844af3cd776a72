package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/Alturino/marketclub/checkout/pkg/request"
	"github.com/Alturino/marketclub/checkout/pkg/response"
	"github.com/Alturino/marketclub/internal/auth"
	"github.com/Alturino/marketclub/internal/constants"
	inErrors "github.com/Alturino/marketclub/internal/errors"
	"github.com/Alturino/marketclub/internal/otel"
)

var failures = map[string]response.Failure{
	response.REASON_DECLINED: {
		Title:   "Pago rechazado",
		Message: "Tu banco rechazó el pago. Intenta con otro medio de pago.",
	},
	response.REASON_CANCELLED: {
		Title:   "Pago cancelado",
		Message: "Cancelaste el pago. Tu carrito sigue disponible para cuando quieras terminar la compra.",
	},
	response.REASON_TIMEOUT: {
		Title:   "Tiempo agotado",
		Message: "La sesión de pago expiró antes de completarse. Intenta de nuevo.",
	},
}

var unknownFailure = response.Failure{
	Title:   "Error en el pago",
	Message: "Ocurrió un error procesando tu pago. Si el cobro aparece en tu banco, contáctanos.",
}

// HandleFailure is total, any reason it does not know gets the generic message.
func (svc *CheckoutService) HandleFailure(c context.Context, param request.Failure) response.Failure {
	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "CheckoutService HandleFailure").
		Str(constants.KEY_REASON, param.Reason).
		Str(constants.KEY_REFERENCE, param.Reference).
		Logger()

	failure, ok := failures[param.Reason]
	if !ok {
		failure = unknownFailure
	}
	failure.Reason = param.Reason
	failure.Reference = param.Reference
	logger.Info().Bool("known_reason", ok).Msg("payment failed")
	return failure
}

// HandleSuccess resolves the page the widget redirects to. A transaction id is verified
// with the backend before the order is confirmed. A bare reference is reported approved
// but unverified, the webhook is what confirms it.
func (svc *CheckoutService) HandleSuccess(
	c context.Context,
	creds auth.Credentials,
	param request.Success,
) (response.Completion, error) {
	c, span := otel.Tracer.Start(c, "CheckoutService HandleSuccess")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "CheckoutService HandleSuccess").
		Str(constants.KEY_ORDER_ID, param.OrderID).
		Str(constants.KEY_TRANSACTION_ID, param.TransactionID).
		Str(constants.KEY_REFERENCE, param.Reference).
		Logger()

	completion := response.Completion{
		OrderID:       param.OrderID,
		TransactionID: param.TransactionID,
		Reference:     param.Reference,
	}

	if param.TransactionID == "" {
		if param.Reference == "" {
			err := inErrors.NewValidationError("transaction_id or reference is required")
			otel.RecordError(err, span)
			logger.Warn().Err(err).Msg(err.Error())
			return response.Completion{}, err
		}
		logger.Warn().Msg("reporting reference as approved without verification")
		completion.State = response.STATE_APPROVED
		return completion, nil
	}

	logger = logger.With().Str(constants.KEY_PROCESS, "verifying transaction").Logger()
	logger.Trace().Msg("verifying transaction")
	tx := response.Transaction{}
	path := PATH_PAYMENTS_VERIFY + url.PathEscape(param.TransactionID)
	if err := svc.backend.Do(c, http.MethodGet, path, creds, nil, &tx); err != nil {
		err = fmt.Errorf("failed verifying transaction with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Completion{}, err
	}
	if tx.ID == "" {
		tx.ID = param.TransactionID
	}
	if tx.Reference == "" {
		tx.Reference = param.Reference
	}
	if param.Reference != "" && tx.Reference != param.Reference {
		// the transaction paid for some other order, nothing here gets confirmed
		logger.Warn().
			Str("verified_reference", tx.Reference).
			Str(constants.KEY_TRANSACTION_STATUS, tx.Status).
			Msg("verified transaction does not match the returned reference")
		failure := svc.HandleFailure(
			c,
			request.Failure{Reason: response.REASON_REFERENCE_MISMATCH, Reference: param.Reference},
		)
		completion.State = response.STATE_FAILED
		completion.Failure = &failure
		return completion, nil
	}
	completion.Reference = tx.Reference
	logger = logger.With().Str(constants.KEY_TRANSACTION_STATUS, tx.Status).Logger()
	logger.Trace().Msg("verified transaction")

	switch tx.Status {
	case response.TRANSACTION_APPROVED:
		logger = logger.With().Str(constants.KEY_PROCESS, "confirming payment").Logger()
		if err := svc.Confirm(c, tx); err != nil {
			err = fmt.Errorf("failed confirming verified transaction with error=%w", err)
			otel.RecordError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return response.Completion{}, err
		}

		logger = logger.With().Str(constants.KEY_PROCESS, "clearing cart").Logger()
		if _, err := svc.cart.Clear(c, creds); err != nil {
			logger.Warn().Err(err).Msg("failed clearing cart after approved payment")
		} else {
			completion.CartCleared = true
		}
		completion.State = response.STATE_APPROVED
		completion.Verified = true
	case response.TRANSACTION_PENDING:
		completion.State = response.STATE_PENDING
		completion.Verified = true
	default:
		failure := svc.HandleFailure(c, request.Failure{Reason: response.REASON_DECLINED, Reference: tx.Reference})
		completion.State = response.STATE_FAILED
		completion.Verified = true
		completion.Failure = &failure
	}
	logger.Info().Str("state", string(completion.State)).Msg("handled payment return")
	return completion, nil
}
