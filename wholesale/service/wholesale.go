package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	cartRes "github.com/Alturino/marketclub/cart/pkg/response"
	cartSvc "github.com/Alturino/marketclub/cart/service"
	"github.com/Alturino/marketclub/internal/auth"
	"github.com/Alturino/marketclub/internal/backend"
	"github.com/Alturino/marketclub/internal/config"
	"github.com/Alturino/marketclub/internal/constants"
	inErrors "github.com/Alturino/marketclub/internal/errors"
	"github.com/Alturino/marketclub/internal/otel"
	"github.com/Alturino/marketclub/internal/validate"
	"github.com/Alturino/marketclub/wholesale/pkg/request"
	"github.com/Alturino/marketclub/wholesale/pkg/response"
)

const BASE_PATH_WHOLESALE_CART = "/wholesale/cart"

type WholesaleService struct {
	cart           *cartSvc.CartService
	whatsappNumber string
}

// NewWholesaleService binds the cart contract to the wholesaler cart. Lines below
// cfg.MinimumQuantity are rejected and no tax or shipping is added.
func NewWholesaleService(
	backend backend.Requester,
	products cartSvc.ProductFinder,
	cfg config.Wholesale,
) *WholesaleService {
	minimum := cfg.MinimumQuantity
	if minimum < 1 {
		minimum = 1
	}
	return &WholesaleService{
		cart: cartSvc.NewCartService(
			backend,
			products,
			cartRes.Untaxed(),
			cartSvc.WithBasePath(BASE_PATH_WHOLESALE_CART),
			cartSvc.WithMinimumQuantity(minimum),
		),
		whatsappNumber: cfg.WhatsappNumber,
	}
}

func (svc *WholesaleService) Cart() *cartSvc.CartService {
	return svc.cart
}

func (svc *WholesaleService) ComposeQuote(
	c context.Context,
	creds auth.Credentials,
	customer request.Customer,
) (response.Quote, error) {
	c, span := otel.Tracer.Start(c, "WholesaleService ComposeQuote")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "WholesaleService ComposeQuote").
		Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "validating customer").Logger()
	if err := validate.Struct(c, customer); err != nil {
		otel.RecordError(err, span)
		logger.Warn().Err(err).Msg(err.Error())
		return response.Quote{}, err
	}
	if svc.whatsappNumber == "" {
		err := fmt.Errorf("wholesale whatsapp number is not configured")
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Quote{}, err
	}

	logger = logger.With().Str(constants.KEY_PROCESS, "getting wholesale cart").Logger()
	logger.Trace().Msg("getting wholesale cart")
	cart, err := svc.cart.Get(c, creds)
	if err != nil {
		err = fmt.Errorf("failed getting wholesale cart with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Quote{}, err
	}
	if cart.IsEmpty() {
		err = inErrors.NewEmptyCartError()
		otel.RecordError(err, span)
		logger.Warn().Err(err).Msg(err.Error())
		return response.Quote{}, err
	}
	logger.Trace().Int(constants.KEY_CART_ITEMS_COUNT, len(cart.Items)).Msg("got wholesale cart")

	message := ComposeMessage(cart, customer)
	quote := response.Quote{
		Message: message,
		URL:     WhatsAppURL(svc.whatsappNumber, message),
		Cart:    cart,
	}
	logger.Info().Msg("composed quote")
	return quote, nil
}
