package controller

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/Alturino/marketclub/cart/pkg/request"
	"github.com/Alturino/marketclub/cart/pkg/response"
	"github.com/Alturino/marketclub/cart/service"
	"github.com/Alturino/marketclub/internal/auth"
	"github.com/Alturino/marketclub/internal/constants"
	inErrors "github.com/Alturino/marketclub/internal/errors"
	inHttp "github.com/Alturino/marketclub/internal/http"
	"github.com/Alturino/marketclub/internal/otel"
)

type CartController struct {
	service *service.CartService
}

// AttachCartController mounts the cart routes under prefix, /cart for retail and
// /wholesale/cart for the wholesaler cart.
func AttachCartController(mux *mux.Router, prefix string, service *service.CartService) {
	controller := CartController{service: service}

	router := mux.PathPrefix(prefix).Subrouter()
	router.HandleFunc("", controller.Get).Methods(http.MethodGet)
	router.HandleFunc("", controller.Clear).Methods(http.MethodDelete)
	router.HandleFunc("/items", controller.Add).Methods(http.MethodPost)
	router.HandleFunc("/items/{productId}", controller.UpdateQuantity).Methods(http.MethodPut)
	router.HandleFunc("/items/{productId}", controller.Remove).Methods(http.MethodDelete)
	router.HandleFunc("/notes", controller.AddNotes).Methods(http.MethodPut)
}

func writeCart(w http.ResponseWriter, r *http.Request, message string, cart response.Cart) {
	inHttp.WriteJsonResponse(r.Context(), w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"message":    message,
		"data":       map[string]interface{}{"cart": cart},
	})
}

func (ctrl CartController) Get(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController Get")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(constants.KEY_TAG, "CartController Get").Logger()

	cart, err := ctrl.service.Get(c, auth.FromContext(c))
	if err != nil {
		err = fmt.Errorf("failed getting cart with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err)
		return
	}
	writeCart(w, r.WithContext(c), "successfully got cart", cart)
}

func (ctrl CartController) Add(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController Add")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(constants.KEY_TAG, "CartController Add").Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "decoding request body").Logger()
	logger.Trace().Msg("decoding request body")
	reqBody := request.AddItem{}
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		err = inErrors.NewValidationError(fmt.Sprintf("failed decoding request body with error=%s", err.Error()))
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err)
		return
	}
	logger.Trace().Msg("decoded request body")

	logger = logger.With().Str(constants.KEY_PROCESS, "adding item").Logger()
	cart, err := ctrl.service.Add(c, auth.FromContext(c), reqBody)
	if err != nil {
		err = fmt.Errorf("failed adding item with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err)
		return
	}
	logger.Info().Msg("added item")
	writeCart(w, r.WithContext(c), "successfully added item", cart)
}

func (ctrl CartController) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController UpdateQuantity")
	defer span.End()

	productID := mux.Vars(r)["productId"]
	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "CartController UpdateQuantity").
		Str(constants.KEY_PRODUCT_ID, productID).
		Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "decoding request body").Logger()
	reqBody := request.UpdateItem{}
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		err = inErrors.NewValidationError(fmt.Sprintf("failed decoding request body with error=%s", err.Error()))
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err)
		return
	}

	logger = logger.With().Str(constants.KEY_PROCESS, "updating quantity").Logger()
	cart, err := ctrl.service.UpdateQuantity(c, auth.FromContext(c), productID, reqBody)
	if err != nil {
		err = fmt.Errorf("failed updating quantity with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err)
		return
	}
	logger.Info().Msg("updated quantity")
	writeCart(w, r.WithContext(c), "successfully updated quantity", cart)
}

func (ctrl CartController) Remove(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController Remove")
	defer span.End()

	productID := mux.Vars(r)["productId"]
	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "CartController Remove").
		Str(constants.KEY_PRODUCT_ID, productID).
		Logger()

	cart, err := ctrl.service.Remove(c, auth.FromContext(c), productID)
	if err != nil {
		err = fmt.Errorf("failed removing item with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err)
		return
	}
	writeCart(w, r.WithContext(c), "successfully removed item", cart)
}

func (ctrl CartController) Clear(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController Clear")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(constants.KEY_TAG, "CartController Clear").Logger()

	cart, err := ctrl.service.Clear(c, auth.FromContext(c))
	if err != nil {
		err = fmt.Errorf("failed clearing cart with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err)
		return
	}
	writeCart(w, r.WithContext(c), "successfully cleared cart", cart)
}

func (ctrl CartController) AddNotes(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController AddNotes")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(constants.KEY_TAG, "CartController AddNotes").Logger()

	reqBody := request.Notes{}
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		err = inErrors.NewValidationError(fmt.Sprintf("failed decoding request body with error=%s", err.Error()))
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err)
		return
	}

	cart, err := ctrl.service.AddNotes(c, auth.FromContext(c), reqBody)
	if err != nil {
		err = fmt.Errorf("failed saving notes with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err)
		return
	}
	writeCart(w, r.WithContext(c), "successfully saved notes", cart)
}
