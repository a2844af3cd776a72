package controller

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/Alturino/marketclub/internal/constants"
	inErrors "github.com/Alturino/marketclub/internal/errors"
	inHttp "github.com/Alturino/marketclub/internal/http"
	"github.com/Alturino/marketclub/internal/otel"
	"github.com/Alturino/marketclub/webhook/service"
)

const maxBodyBytes = 1 << 20

type WebhookController struct {
	service *service.WebhookService
}

func AttachWebhookController(mux *mux.Router, service *service.WebhookService) {
	controller := WebhookController{service: service}

	router := mux.PathPrefix("/webhooks").Subrouter()
	router.HandleFunc("/wompi", controller.Wompi).Methods(http.MethodPost)
}

func (ctrl WebhookController) Wompi(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "WebhookController Wompi")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(constants.KEY_TAG, "WebhookController Wompi").Logger()

	signature := r.Header.Get(inHttp.KEY_HEADER_WOMPI_SIGNATURE)
	var body []byte
	if signature != "" {
		logger = logger.With().Str(constants.KEY_PROCESS, "reading request body").Logger()
		var err error
		body, err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				err = inErrors.NewPayloadTooLargeError(tooLarge.Limit)
			} else {
				err = inErrors.NewValidationError(fmt.Sprintf("failed reading request body with error=%s", err.Error()))
			}
			otel.RecordError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			inHttp.WriteErrorResponse(c, w, err)
			return
		}
	}

	logger = logger.With().Str(constants.KEY_PROCESS, "handling event").Logger()
	ack, err := ctrl.service.Handle(c, signature, body)
	if err != nil {
		err = fmt.Errorf("failed handling webhook with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err)
		return
	}
	logger.Info().Str("outcome", ack.Outcome).Msg("handled event")

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"message":    "event " + ack.Outcome,
		"success":    ack.Success,
		"duplicate":  ack.Duplicate,
		"data":       ack,
	})
}
