package controller

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/Alturino/marketclub/checkout/pkg/request"
	"github.com/Alturino/marketclub/checkout/service"
	"github.com/Alturino/marketclub/internal/auth"
	"github.com/Alturino/marketclub/internal/constants"
	inErrors "github.com/Alturino/marketclub/internal/errors"
	inHttp "github.com/Alturino/marketclub/internal/http"
	"github.com/Alturino/marketclub/internal/otel"
)

type CheckoutController struct {
	service *service.CheckoutService
}

func AttachCheckoutController(mux *mux.Router, service *service.CheckoutService) {
	controller := CheckoutController{service: service}

	router := mux.PathPrefix("/checkout").Subrouter()
	router.HandleFunc("/orders", controller.CreateOrder).Methods(http.MethodPost)
	router.HandleFunc("/subscriptions", controller.CreateSubscription).Methods(http.MethodPost)
	router.HandleFunc("/success", controller.Success).Methods(http.MethodGet)
	router.HandleFunc("/failed", controller.Failed).Methods(http.MethodGet)
}

func writeData(w http.ResponseWriter, r *http.Request, statusCode int, message string, data map[string]interface{}) {
	inHttp.WriteJsonResponse(r.Context(), w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": statusCode,
		"message":    message,
		"data":       data,
	})
}

func (ctrl CheckoutController) CreateOrder(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CheckoutController CreateOrder")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(constants.KEY_TAG, "CheckoutController CreateOrder").Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "decoding request body").Logger()
	logger.Trace().Msg("decoding request body")
	reqBody := request.CreateOrder{}
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		err = inErrors.NewValidationError(fmt.Sprintf("failed decoding request body with error=%s", err.Error()))
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err)
		return
	}
	logger.Trace().Msg("decoded request body")

	logger = logger.With().Str(constants.KEY_PROCESS, "creating order").Logger()
	session, err := ctrl.service.CreateOrder(c, auth.FromContext(c), reqBody)
	if err != nil {
		err = fmt.Errorf("failed creating order with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err)
		return
	}
	logger.Info().Str(constants.KEY_REFERENCE, session.Reference).Msg("created order")
	writeData(w, r.WithContext(c), http.StatusCreated, "successfully created order", map[string]interface{}{
		"payment": session,
	})
}

func (ctrl CheckoutController) CreateSubscription(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CheckoutController CreateSubscription")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(constants.KEY_TAG, "CheckoutController CreateSubscription").Logger()

	reqBody := request.CreateSubscription{}
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		err = inErrors.NewValidationError(fmt.Sprintf("failed decoding request body with error=%s", err.Error()))
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err)
		return
	}

	session, err := ctrl.service.CreateSubscription(c, auth.FromContext(c), reqBody)
	if err != nil {
		err = fmt.Errorf("failed creating subscription with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err)
		return
	}
	writeData(w, r.WithContext(c), http.StatusCreated, "successfully created subscription", map[string]interface{}{
		"payment": session,
	})
}

// Success serves the widget redirect. The widget appends the transaction as id.
func (ctrl CheckoutController) Success(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CheckoutController Success")
	defer span.End()

	query := r.URL.Query()
	param := request.Success{
		OrderID:       query.Get("order_id"),
		TransactionID: query.Get("transaction_id"),
		Reference:     query.Get("reference"),
	}
	if param.TransactionID == "" {
		param.TransactionID = query.Get("id")
	}
	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "CheckoutController Success").
		Any(constants.KEY_QUERY_PARAMS, param).
		Logger()

	completion, err := ctrl.service.HandleSuccess(c, auth.FromContext(c), param)
	if err != nil {
		err = fmt.Errorf("failed handling payment return with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err)
		return
	}
	writeData(w, r.WithContext(c), http.StatusOK, "successfully handled payment return", map[string]interface{}{
		"completion": completion,
	})
}

func (ctrl CheckoutController) Failed(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CheckoutController Failed")
	defer span.End()

	query := r.URL.Query()
	failure := ctrl.service.HandleFailure(c, request.Failure{
		Reason:    query.Get("reason"),
		Reference: query.Get("reference"),
	})
	writeData(w, r.WithContext(c), http.StatusOK, failure.Title, map[string]interface{}{
		"failure": failure,
	})
}
