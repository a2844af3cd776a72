package controller

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/Alturino/marketclub/internal/auth"
	"github.com/Alturino/marketclub/internal/constants"
	inErrors "github.com/Alturino/marketclub/internal/errors"
	inHttp "github.com/Alturino/marketclub/internal/http"
	"github.com/Alturino/marketclub/internal/otel"
	"github.com/Alturino/marketclub/wishlist/pkg/request"
	"github.com/Alturino/marketclub/wishlist/service"
)

type WishlistController struct {
	service *service.WishlistService
}

func AttachWishlistController(mux *mux.Router, service *service.WishlistService) {
	controller := WishlistController{service: service}

	router := mux.PathPrefix("/wishlist").Subrouter()
	router.HandleFunc("", controller.Get).Methods(http.MethodGet)
	router.HandleFunc("", controller.Clear).Methods(http.MethodDelete)
	router.HandleFunc("/toggle", controller.Toggle).Methods(http.MethodPost)
	router.HandleFunc("/items", controller.Add).Methods(http.MethodPost)
	router.HandleFunc("/items/{productId}", controller.Remove).Methods(http.MethodDelete)
	router.HandleFunc("/items/{productId}/move-to-cart", controller.MoveToCart).Methods(http.MethodPost)
	router.HandleFunc("/check/{productId}", controller.Check).Methods(http.MethodGet)
}

func writeSuccess(w http.ResponseWriter, r *http.Request, message string, data map[string]interface{}) {
	inHttp.WriteJsonResponse(r.Context(), w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"message":    message,
		"data":       data,
	})
}

func decodeItem(r *http.Request) (request.Item, error) {
	reqBody := request.Item{}
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		return request.Item{}, inErrors.NewValidationError(
			fmt.Sprintf("failed decoding request body with error=%s", err.Error()),
		)
	}
	return reqBody, nil
}

func (ctrl WishlistController) Get(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "WishlistController Get")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(constants.KEY_TAG, "WishlistController Get").Logger()

	wishlist, err := ctrl.service.Get(c, auth.FromContext(c))
	if err != nil {
		err = fmt.Errorf("failed getting wishlist with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err)
		return
	}
	writeSuccess(w, r.WithContext(c), "successfully got wishlist", map[string]interface{}{"wishlist": wishlist})
}

func (ctrl WishlistController) Check(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "WishlistController Check")
	defer span.End()

	productID := mux.Vars(r)["productId"]
	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "WishlistController Check").
		Str(constants.KEY_PRODUCT_ID, productID).
		Logger()

	check, err := ctrl.service.Check(c, auth.FromContext(c), productID)
	if err != nil {
		err = fmt.Errorf("failed checking wishlist with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err)
		return
	}
	writeSuccess(w, r.WithContext(c), "successfully checked wishlist", map[string]interface{}{"check": check})
}

func (ctrl WishlistController) Toggle(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "WishlistController Toggle")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(constants.KEY_TAG, "WishlistController Toggle").Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "decoding request body").Logger()
	reqBody, err := decodeItem(r)
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err)
		return
	}

	logger = logger.With().Str(constants.KEY_PROCESS, "toggling wishlist").Logger()
	result, err := ctrl.service.Toggle(c, auth.FromContext(c), reqBody)
	if err != nil {
		err = fmt.Errorf("failed toggling wishlist with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err)
		return
	}
	logger.Info().Str("action", string(result.Action)).Msg("toggled wishlist")
	writeSuccess(w, r.WithContext(c), "successfully toggled wishlist", map[string]interface{}{"result": result})
}

func (ctrl WishlistController) Add(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "WishlistController Add")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(constants.KEY_TAG, "WishlistController Add").Logger()

	reqBody, err := decodeItem(r)
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err)
		return
	}

	result, err := ctrl.service.Add(c, auth.FromContext(c), reqBody)
	if err != nil {
		err = fmt.Errorf("failed adding to wishlist with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err)
		return
	}
	writeSuccess(w, r.WithContext(c), "successfully added to wishlist", map[string]interface{}{"result": result})
}

func (ctrl WishlistController) Remove(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "WishlistController Remove")
	defer span.End()

	productID := mux.Vars(r)["productId"]
	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "WishlistController Remove").
		Str(constants.KEY_PRODUCT_ID, productID).
		Logger()

	result, err := ctrl.service.Remove(c, auth.FromContext(c), productID)
	if err != nil {
		err = fmt.Errorf("failed removing from wishlist with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err)
		return
	}
	writeSuccess(w, r.WithContext(c), "successfully removed from wishlist", map[string]interface{}{"result": result})
}

func (ctrl WishlistController) Clear(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "WishlistController Clear")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(constants.KEY_TAG, "WishlistController Clear").Logger()

	wishlist, err := ctrl.service.Clear(c, auth.FromContext(c))
	if err != nil {
		err = fmt.Errorf("failed clearing wishlist with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err)
		return
	}
	writeSuccess(w, r.WithContext(c), "successfully cleared wishlist", map[string]interface{}{"wishlist": wishlist})
}

func (ctrl WishlistController) MoveToCart(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "WishlistController MoveToCart")
	defer span.End()

	productID := mux.Vars(r)["productId"]
	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "WishlistController MoveToCart").
		Str(constants.KEY_PRODUCT_ID, productID).
		Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "decoding request body").Logger()
	reqBody := request.MoveToCart{Quantity: 1}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
			err = inErrors.NewValidationError(fmt.Sprintf("failed decoding request body with error=%s", err.Error()))
			otel.RecordError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			inHttp.WriteErrorResponse(c, w, err)
			return
		}
	}

	logger = logger.With().Str(constants.KEY_PROCESS, "moving to cart").Logger()
	moved, err := ctrl.service.MoveToCart(c, auth.FromContext(c), productID, reqBody)
	if err != nil {
		err = fmt.Errorf("failed moving to cart with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err)
		return
	}
	logger.Info().Msg("moved to cart")
	writeSuccess(w, r.WithContext(c), "successfully moved to cart", map[string]interface{}{
		"result": moved.Result,
		"cart":   moved.Cart,
	})
}
