package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	cartReq "github.com/Alturino/marketclub/cart/pkg/request"
	cartRes "github.com/Alturino/marketclub/cart/pkg/response"
	"github.com/Alturino/marketclub/internal/auth"
	"github.com/Alturino/marketclub/internal/backend"
	"github.com/Alturino/marketclub/internal/constants"
	inErrors "github.com/Alturino/marketclub/internal/errors"
	"github.com/Alturino/marketclub/internal/otel"
	"github.com/Alturino/marketclub/internal/validate"
	"github.com/Alturino/marketclub/wishlist/pkg/request"
	"github.com/Alturino/marketclub/wishlist/pkg/response"
)

const BASE_PATH_WISHLIST = "/wishlist"

// CartMutator is the part of the cart service MoveToCart needs.
type CartMutator interface {
	Get(c context.Context, creds auth.Credentials) (cartRes.Cart, error)
	Add(c context.Context, creds auth.Credentials, param cartReq.AddItem) (cartRes.Cart, error)
	UpdateQuantity(c context.Context, creds auth.Credentials, productID string, param cartReq.UpdateItem) (cartRes.Cart, error)
	Remove(c context.Context, creds auth.Credentials, productID string) (cartRes.Cart, error)
}

type WishlistService struct {
	backend backend.Requester
	cart    CartMutator
	now     func() time.Time
}

func NewWishlistService(backend backend.Requester, cart CartMutator) *WishlistService {
	return &WishlistService{backend: backend, cart: cart, now: time.Now}
}

func itemPath(productID string) string {
	return BASE_PATH_WISHLIST + "/items/" + url.PathEscape(productID)
}

func (svc *WishlistService) Get(c context.Context, creds auth.Credentials) (response.Wishlist, error) {
	c, span := otel.Tracer.Start(c, "WishlistService Get")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "WishlistService Get").
		Logger()

	if err := creds.RequireUser(svc.now()); err != nil {
		otel.RecordError(err, span)
		logger.Warn().Err(err).Msg(err.Error())
		return response.Wishlist{}, err
	}

	logger = logger.With().Str(constants.KEY_PROCESS, "getting wishlist").Logger()
	logger.Trace().Msg("getting wishlist")
	wishlist := response.Wishlist{}
	if err := svc.backend.Do(c, http.MethodGet, BASE_PATH_WISHLIST, creds, nil, &wishlist); err != nil {
		err = fmt.Errorf("failed getting wishlist with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Wishlist{}, err
	}
	if wishlist.Items == nil {
		wishlist.Items = []response.WishlistItem{}
	}
	logger.Debug().Int("total_favorites", wishlist.TotalFavorites).Msg("got wishlist")
	return wishlist, nil
}

func (svc *WishlistService) Check(
	c context.Context,
	creds auth.Credentials,
	productID string,
) (response.Check, error) {
	c, span := otel.Tracer.Start(c, "WishlistService Check")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "WishlistService Check").
		Str(constants.KEY_PRODUCT_ID, productID).
		Logger()

	if err := creds.RequireUser(svc.now()); err != nil {
		otel.RecordError(err, span)
		logger.Warn().Err(err).Msg(err.Error())
		return response.Check{}, err
	}

	check := response.Check{}
	path := BASE_PATH_WISHLIST + "/check/" + url.PathEscape(productID)
	if err := svc.backend.Do(c, http.MethodGet, path, creds, nil, &check); err != nil {
		err = fmt.Errorf("failed checking wishlist with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Check{}, err
	}
	check.ProductID = productID
	return check, nil
}

// Toggle flips membership in one server side operation and reports the resulting state.
func (svc *WishlistService) Toggle(
	c context.Context,
	creds auth.Credentials,
	param request.Item,
) (response.Result, error) {
	return svc.mutate(c, "WishlistService Toggle", creds, param.ProductID, func(c context.Context, out *response.Result) error {
		if err := validate.Struct(c, param); err != nil {
			return err
		}
		return svc.backend.Do(c, http.MethodPost, BASE_PATH_WISHLIST+"/toggle", creds, param, out)
	})
}

// Add is idempotent, adding a product already in the wishlist reports it as added.
func (svc *WishlistService) Add(
	c context.Context,
	creds auth.Credentials,
	param request.Item,
) (response.Result, error) {
	return svc.mutate(c, "WishlistService Add", creds, param.ProductID, func(c context.Context, out *response.Result) error {
		if err := validate.Struct(c, param); err != nil {
			return err
		}
		return svc.backend.Do(c, http.MethodPost, BASE_PATH_WISHLIST+"/items", creds, param, out)
	})
}

func (svc *WishlistService) Remove(
	c context.Context,
	creds auth.Credentials,
	productID string,
) (response.Result, error) {
	return svc.mutate(c, "WishlistService Remove", creds, productID, func(c context.Context, out *response.Result) error {
		if err := validate.Struct(c, request.Item{ProductID: productID}); err != nil {
			return err
		}
		err := svc.backend.Do(c, http.MethodDelete, itemPath(productID), creds, nil, out)
		if !errors.Is(err, inErrors.ErrNotFound) {
			return err
		}
		zerolog.Ctx(c).Debug().Str(constants.KEY_PRODUCT_ID, productID).Msg("product already out of wishlist")
		wishlist := response.Wishlist{}
		if err := svc.backend.Do(c, http.MethodGet, BASE_PATH_WISHLIST, creds, nil, &wishlist); err != nil {
			return err
		}
		*out = response.Result{Action: response.ACTION_REMOVED, TotalFavorites: wishlist.TotalFavorites}
		return nil
	})
}

func (svc *WishlistService) Clear(c context.Context, creds auth.Credentials) (response.Wishlist, error) {
	c, span := otel.Tracer.Start(c, "WishlistService Clear")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "WishlistService Clear").
		Logger()

	if err := creds.RequireUser(svc.now()); err != nil {
		otel.RecordError(err, span)
		logger.Warn().Err(err).Msg(err.Error())
		return response.Wishlist{}, err
	}

	logger = logger.With().Str(constants.KEY_PROCESS, "clearing wishlist").Logger()
	logger.Trace().Msg("clearing wishlist")
	if err := svc.backend.Do(c, http.MethodDelete, BASE_PATH_WISHLIST, creds, nil, nil); err != nil {
		err = fmt.Errorf("failed clearing wishlist with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Wishlist{}, err
	}
	logger.Info().Msg("cleared wishlist")
	return response.Wishlist{Items: []response.WishlistItem{}}, nil
}

// MoveToCart adds to the cart first so a stock or validation failure leaves the wishlist
// untouched. When the wishlist removal fails afterwards the cart line is put back to the
// quantity it had before.
func (svc *WishlistService) MoveToCart(
	c context.Context,
	creds auth.Credentials,
	productID string,
	param request.MoveToCart,
) (response.MoveToCart, error) {
	c, span := otel.Tracer.Start(
		c,
		"WishlistService MoveToCart",
		trace.WithAttributes(
			attribute.String(constants.KEY_PRODUCT_ID, productID),
			attribute.Int(constants.KEY_CART_ITEM_QUANTITY, int(param.Quantity)),
		),
	)
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "WishlistService MoveToCart").
		Str(constants.KEY_PRODUCT_ID, productID).
		Int32(constants.KEY_CART_ITEM_QUANTITY, param.Quantity).
		Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "validating request").Logger()
	if err := creds.RequireUser(svc.now()); err != nil {
		otel.RecordError(err, span)
		logger.Warn().Err(err).Msg(err.Error())
		return response.MoveToCart{}, err
	}
	if err := validate.Struct(c, param); err != nil {
		otel.RecordError(err, span)
		logger.Warn().Err(err).Msg(err.Error())
		return response.MoveToCart{}, err
	}

	logger = logger.With().Str(constants.KEY_PROCESS, "reading previous cart quantity").Logger()
	before, err := svc.cart.Get(c, creds)
	if err != nil {
		err = fmt.Errorf("failed getting cart with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.MoveToCart{}, err
	}
	previous, _ := before.Find(productID)

	logger = logger.With().Str(constants.KEY_PROCESS, "adding to cart").Logger()
	logger.Trace().Msg("adding to cart")
	cart, err := svc.cart.Add(c, creds, cartReq.AddItem{ProductID: productID, Quantity: param.Quantity})
	if err != nil {
		err = fmt.Errorf("failed adding wishlist product to cart with error=%w", err)
		otel.RecordError(err, span)
		logger.Warn().Err(err).Msg(err.Error())
		return response.MoveToCart{}, err
	}
	logger.Trace().Msg("added to cart")

	logger = logger.With().Str(constants.KEY_PROCESS, "removing from wishlist").Logger()
	logger.Trace().Msg("removing from wishlist")
	result, err := svc.Remove(c, creds, productID)
	if err != nil {
		err = fmt.Errorf("failed removing moved product from wishlist with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())

		logger = logger.With().
			Str(constants.KEY_PROCESS, "restoring cart").
			Int32("previous_quantity", previous.Quantity).
			Logger()
		logger.Warn().Msg("restoring cart")
		var restoreErr error
		if previous.Quantity == 0 {
			_, restoreErr = svc.cart.Remove(c, creds, productID)
		} else {
			_, restoreErr = svc.cart.UpdateQuantity(c, creds, productID, cartReq.UpdateItem{Quantity: previous.Quantity})
		}
		if restoreErr != nil {
			restoreErr = fmt.Errorf("failed restoring cart with error=%w", restoreErr)
			otel.RecordError(restoreErr, span)
			logger.Error().Err(restoreErr).Msg(restoreErr.Error())
			return response.MoveToCart{}, errors.Join(err, restoreErr)
		}
		logger.Info().Msg("restored cart")
		return response.MoveToCart{}, err
	}
	logger.Info().Msg("moved product to cart")

	return response.MoveToCart{Result: result, Cart: cart}, nil
}

func (svc *WishlistService) mutate(
	c context.Context,
	name string,
	creds auth.Credentials,
	productID string,
	call func(context.Context, *response.Result) error,
) (response.Result, error) {
	c, span := otel.Tracer.Start(c, name, trace.WithAttributes(attribute.String(constants.KEY_PRODUCT_ID, productID)))
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, name).
		Str(constants.KEY_PRODUCT_ID, productID).
		Logger()

	if err := creds.RequireUser(svc.now()); err != nil {
		otel.RecordError(err, span)
		logger.Warn().Err(err).Msg(err.Error())
		return response.Result{}, err
	}

	logger = logger.With().Str(constants.KEY_PROCESS, "mutating wishlist").Logger()
	logger.Trace().Msg("mutating wishlist")
	result := response.Result{}
	if err := call(c, &result); err != nil {
		err = fmt.Errorf("failed mutating wishlist with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Result{}, err
	}
	result.Success = true
	result.ProductID = productID
	logger.Info().
		Str("action", string(result.Action)).
		Bool("is_in_wishlist", result.IsInWishlist).
		Int("total_favorites", result.TotalFavorites).
		Msg("mutated wishlist")
	return result, nil
}
