package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Alturino/marketclub/cart/pkg/request"
	"github.com/Alturino/marketclub/cart/pkg/response"
	"github.com/Alturino/marketclub/internal/auth"
	"github.com/Alturino/marketclub/internal/backend"
	"github.com/Alturino/marketclub/internal/constants"
	inErrors "github.com/Alturino/marketclub/internal/errors"
	"github.com/Alturino/marketclub/internal/otel"
	"github.com/Alturino/marketclub/internal/validate"
	productRes "github.com/Alturino/marketclub/product/pkg/response"
)

const BASE_PATH_CART = "/cart"

// ProductFinder looks up the current product projection, stock included.
type ProductFinder interface {
	FindProductById(c context.Context, creds auth.Credentials, id string) (productRes.Product, error)
}

type Option func(*CartService)

func WithBasePath(basePath string) Option {
	return func(svc *CartService) { svc.basePath = basePath }
}

// WithMinimumQuantity rejects lines below quantity. Wholesale carts sell by the box.
func WithMinimumQuantity(quantity int32) Option {
	return func(svc *CartService) { svc.minimumQuantity = quantity }
}

type CartService struct {
	backend         backend.Requester
	products        ProductFinder
	pricing         response.Pricing
	basePath        string
	minimumQuantity int32
}

func NewCartService(
	backend backend.Requester,
	products ProductFinder,
	pricing response.Pricing,
	opts ...Option,
) *CartService {
	svc := &CartService{
		backend:         backend,
		products:        products,
		pricing:         pricing,
		basePath:        BASE_PATH_CART,
		minimumQuantity: 1,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func (svc *CartService) itemPath(productID string) string {
	return svc.basePath + "/items/" + url.PathEscape(productID)
}

func (svc *CartService) Get(c context.Context, creds auth.Credentials) (response.Cart, error) {
	c, span := otel.Tracer.Start(c, "CartService Get")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "CartService Get").
		Str(constants.KEY_PROCESS, "getting cart").
		Str(constants.KEY_URL, svc.basePath).
		Logger()

	logger.Trace().Msg("getting cart")
	cart := response.Cart{}
	err := svc.backend.Do(c, http.MethodGet, svc.basePath, creds, nil, &cart)
	if errors.Is(err, inErrors.ErrNotFound) {
		logger.Debug().Msg("no cart yet returning empty cart")
		return svc.pricing.Summarize(response.EmptyCart(creds.SessionID)), nil
	}
	if err != nil {
		err = fmt.Errorf("failed getting cart with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}
	cart = svc.pricing.Summarize(cart)
	logger.Debug().Int(constants.KEY_CART_ITEMS_COUNT, len(cart.Items)).Msg("got cart")
	return cart, nil
}

// Add never touches the remote cart when validation or the stock check fails.
func (svc *CartService) Add(
	c context.Context,
	creds auth.Credentials,
	param request.AddItem,
) (response.Cart, error) {
	c, span := otel.Tracer.Start(
		c,
		"CartService Add",
		trace.WithAttributes(
			attribute.String(constants.KEY_PRODUCT_ID, param.ProductID),
			attribute.Int(constants.KEY_CART_ITEM_QUANTITY, int(param.Quantity)),
		),
	)
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "CartService Add").
		Str(constants.KEY_PRODUCT_ID, param.ProductID).
		Int32(constants.KEY_CART_ITEM_QUANTITY, param.Quantity).
		Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "validating item").Logger()
	logger.Trace().Msg("validating item")
	if err := svc.validateQuantity(c, param); err != nil {
		otel.RecordError(err, span)
		logger.Warn().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}
	logger.Trace().Msg("validated item")

	logger = logger.With().Str(constants.KEY_PROCESS, "getting current cart").Logger()
	logger.Trace().Msg("getting current cart")
	current, err := svc.Get(c, creds)
	if err != nil {
		err = fmt.Errorf("failed getting current cart with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}
	existing, _ := current.Find(param.ProductID)
	logger.Trace().Int32("existing_quantity", existing.Quantity).Msg("got current cart")

	logger = logger.With().Str(constants.KEY_PROCESS, "checking stock").Logger()
	logger.Trace().Msg("checking stock")
	if _, err = svc.CheckStock(c, creds, param.ProductID, int64(existing.Quantity)+int64(param.Quantity)); err != nil {
		otel.RecordError(err, span)
		logger.Warn().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}
	logger.Trace().Msg("checked stock")

	logger = logger.With().Str(constants.KEY_PROCESS, "adding item").Logger()
	logger.Trace().Msg("adding item")
	cart := response.Cart{}
	err = svc.backend.Do(c, http.MethodPost, svc.basePath+"/items", creds, param, &cart)
	if err != nil {
		err = fmt.Errorf("failed adding item with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}
	logger.Info().Msg("added item")

	return svc.pricing.Summarize(cart), nil
}

// UpdateQuantity with quantity 0 removes the line.
func (svc *CartService) UpdateQuantity(
	c context.Context,
	creds auth.Credentials,
	productID string,
	param request.UpdateItem,
) (response.Cart, error) {
	c, span := otel.Tracer.Start(
		c,
		"CartService UpdateQuantity",
		trace.WithAttributes(
			attribute.String(constants.KEY_PRODUCT_ID, productID),
			attribute.Int(constants.KEY_CART_ITEM_QUANTITY, int(param.Quantity)),
		),
	)
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "CartService UpdateQuantity").
		Str(constants.KEY_PRODUCT_ID, productID).
		Int32(constants.KEY_CART_ITEM_QUANTITY, param.Quantity).
		Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "validating quantity").Logger()
	if err := validate.Struct(c, param); err != nil {
		otel.RecordError(err, span)
		logger.Warn().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}
	if param.Quantity == 0 {
		logger.Debug().Msg("quantity 0 removing item")
		return svc.Remove(c, creds, productID)
	}
	if err := svc.validateQuantity(c, request.AddItem{ProductID: productID, Quantity: param.Quantity}); err != nil {
		otel.RecordError(err, span)
		logger.Warn().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}

	logger = logger.With().Str(constants.KEY_PROCESS, "getting current cart").Logger()
	current, err := svc.Get(c, creds)
	if err != nil {
		err = fmt.Errorf("failed getting current cart with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}
	if _, ok := current.Find(productID); !ok {
		err = inErrors.NewNotFoundError(fmt.Sprintf("product=%s is not in the cart", productID))
		otel.RecordError(err, span)
		logger.Warn().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}

	logger = logger.With().Str(constants.KEY_PROCESS, "checking stock").Logger()
	if _, err = svc.CheckStock(c, creds, productID, int64(param.Quantity)); err != nil {
		otel.RecordError(err, span)
		logger.Warn().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}

	logger = logger.With().Str(constants.KEY_PROCESS, "updating item").Logger()
	logger.Trace().Msg("updating item")
	cart := response.Cart{}
	err = svc.backend.Do(c, http.MethodPut, svc.itemPath(productID), creds, param, &cart)
	if err != nil {
		err = fmt.Errorf("failed updating item with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}
	logger.Info().Msg("updated item")

	return svc.pricing.Summarize(cart), nil
}

// Remove is idempotent. An absent product returns the cart unchanged without a remote mutation.
func (svc *CartService) Remove(
	c context.Context,
	creds auth.Credentials,
	productID string,
) (response.Cart, error) {
	c, span := otel.Tracer.Start(c, "CartService Remove", trace.WithAttributes(attribute.String(constants.KEY_PRODUCT_ID, productID)))
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "CartService Remove").
		Str(constants.KEY_PRODUCT_ID, productID).
		Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "getting current cart").Logger()
	current, err := svc.Get(c, creds)
	if err != nil {
		err = fmt.Errorf("failed getting current cart with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}
	if _, ok := current.Find(productID); !ok {
		logger.Debug().Msg("product not in cart nothing to remove")
		return current, nil
	}

	logger = logger.With().Str(constants.KEY_PROCESS, "removing item").Logger()
	logger.Trace().Msg("removing item")
	cart := response.Cart{}
	err = svc.backend.Do(c, http.MethodDelete, svc.itemPath(productID), creds, nil, &cart)
	if errors.Is(err, inErrors.ErrNotFound) {
		logger.Debug().Msg("item already gone")
		return svc.Get(c, creds)
	}
	if err != nil {
		err = fmt.Errorf("failed removing item with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}
	logger.Info().Msg("removed item")

	return svc.pricing.Summarize(cart), nil
}

func (svc *CartService) Clear(c context.Context, creds auth.Credentials) (response.Cart, error) {
	c, span := otel.Tracer.Start(c, "CartService Clear")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "CartService Clear").
		Str(constants.KEY_PROCESS, "clearing cart").
		Logger()

	logger.Trace().Msg("clearing cart")
	cart := response.Cart{}
	err := svc.backend.Do(c, http.MethodDelete, svc.basePath, creds, nil, &cart)
	if errors.Is(err, inErrors.ErrNotFound) {
		logger.Debug().Msg("no cart to clear")
		return svc.pricing.Summarize(response.EmptyCart(creds.SessionID)), nil
	}
	if err != nil {
		err = fmt.Errorf("failed clearing cart with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}
	logger.Info().Msg("cleared cart")

	return svc.pricing.Summarize(cart), nil
}

func (svc *CartService) AddNotes(
	c context.Context,
	creds auth.Credentials,
	param request.Notes,
) (response.Cart, error) {
	c, span := otel.Tracer.Start(c, "CartService AddNotes")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "CartService AddNotes").
		Str(constants.KEY_PROCESS, "validating notes").
		Logger()

	if err := validate.Struct(c, param); err != nil {
		otel.RecordError(err, span)
		logger.Warn().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}

	logger = logger.With().Str(constants.KEY_PROCESS, "saving notes").Logger()
	logger.Trace().Msg("saving notes")
	cart := response.Cart{}
	err := svc.backend.Do(c, http.MethodPut, svc.basePath+"/notes", creds, param, &cart)
	if err != nil {
		err = fmt.Errorf("failed saving notes with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}
	logger.Info().Msg("saved notes")

	return svc.pricing.Summarize(cart), nil
}

// CheckStock fails with a validation error for an unknown product and an out of stock error
// when quantity exceeds what the backend reports as available.
func (svc *CartService) CheckStock(
	c context.Context,
	creds auth.Credentials,
	productID string,
	quantity int64,
) (productRes.Product, error) {
	c, span := otel.Tracer.Start(c, "CartService CheckStock")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "CartService CheckStock").
		Str(constants.KEY_PRODUCT_ID, productID).
		Int64(constants.KEY_CART_ITEM_QUANTITY, quantity).
		Logger()

	product, err := svc.products.FindProductById(c, creds, productID)
	if errors.Is(err, inErrors.ErrNotFound) {
		err = inErrors.NewValidationError(fmt.Sprintf("product=%s does not exist", productID))
		otel.RecordError(err, span)
		logger.Warn().Err(err).Msg(err.Error())
		return productRes.Product{}, err
	}
	if err != nil {
		err = fmt.Errorf("failed finding product with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return productRes.Product{}, err
	}
	logger = logger.With().Int32(constants.KEY_PRODUCT_STOCK, product.StockQuantity).Logger()

	if !product.HasStockFor(quantity) {
		err = inErrors.NewOutOfStockError(fmt.Sprintf(
			"requested %d of %s but only %d available",
			quantity,
			product.Name,
			product.StockQuantity,
		))
		otel.RecordError(err, span)
		logger.Warn().Err(err).Msg(err.Error())
		return product, err
	}
	logger.Trace().Msg("stock available")
	return product, nil
}

func (svc *CartService) validateQuantity(c context.Context, param request.AddItem) error {
	if err := validate.Struct(c, param); err != nil {
		return err
	}
	if param.Quantity < svc.minimumQuantity {
		return inErrors.NewValidationError(fmt.Sprintf(
			"quantity must be at least %d",
			svc.minimumQuantity,
		))
	}
	return nil
}
