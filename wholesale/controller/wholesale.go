package controller

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	cartController "github.com/Alturino/marketclub/cart/controller"
	"github.com/Alturino/marketclub/internal/auth"
	"github.com/Alturino/marketclub/internal/constants"
	inErrors "github.com/Alturino/marketclub/internal/errors"
	inHttp "github.com/Alturino/marketclub/internal/http"
	"github.com/Alturino/marketclub/internal/otel"
	"github.com/Alturino/marketclub/wholesale/pkg/request"
	"github.com/Alturino/marketclub/wholesale/service"
)

type WholesaleController struct {
	service *service.WholesaleService
}

func AttachWholesaleController(mux *mux.Router, svc *service.WholesaleService) {
	controller := WholesaleController{service: svc}

	cartController.AttachCartController(mux, service.BASE_PATH_WHOLESALE_CART, svc.Cart())
	mux.HandleFunc("/wholesale/quote", controller.ComposeQuote).Methods(http.MethodPost)
}

func (ctrl WholesaleController) ComposeQuote(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "WholesaleController ComposeQuote")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(constants.KEY_TAG, "WholesaleController ComposeQuote").Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "decoding request body").Logger()
	reqBody := request.Customer{}
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		err = inErrors.NewValidationError(fmt.Sprintf("failed decoding request body with error=%s", err.Error()))
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err)
		return
	}

	logger = logger.With().Str(constants.KEY_PROCESS, "composing quote").Logger()
	quote, err := ctrl.service.ComposeQuote(c, auth.FromContext(c), reqBody)
	if err != nil {
		err = fmt.Errorf("failed composing quote with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err)
		return
	}

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"message":    "successfully composed quote",
		"data":       map[string]interface{}{"quote": quote},
	})
}
