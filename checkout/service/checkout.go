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
	"golang.org/x/sync/errgroup"

	cartRes "github.com/Alturino/marketclub/cart/pkg/response"
	"github.com/Alturino/marketclub/checkout/pkg/request"
	"github.com/Alturino/marketclub/checkout/pkg/response"
	"github.com/Alturino/marketclub/internal/auth"
	"github.com/Alturino/marketclub/internal/backend"
	"github.com/Alturino/marketclub/internal/config"
	"github.com/Alturino/marketclub/internal/constants"
	inErrors "github.com/Alturino/marketclub/internal/errors"
	"github.com/Alturino/marketclub/internal/otel"
	"github.com/Alturino/marketclub/internal/validate"
	productRes "github.com/Alturino/marketclub/product/pkg/response"
)

type Cart interface {
	Get(c context.Context, creds auth.Credentials) (cartRes.Cart, error)
	Clear(c context.Context, creds auth.Credentials) (cartRes.Cart, error)
	CheckStock(c context.Context, creds auth.Credentials, productID string, quantity int64) (productRes.Product, error)
}

// StockCache forgets cached products whose stock an order just reserved.
type StockCache interface {
	Invalidate(c context.Context, ids ...string)
}

type Option func(*CheckoutService)

func WithStockCache(cache StockCache) Option {
	return func(svc *CheckoutService) { svc.stock = cache }
}

type CheckoutService struct {
	backend backend.Requester
	cart    Cart
	stock   StockCache
	cfg     config.Wompi
	now     func() time.Time
}

func NewCheckoutService(backend backend.Requester, cart Cart, cfg config.Wompi, opts ...Option) *CheckoutService {
	svc := &CheckoutService{backend: backend, cart: cart, cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type orderItem struct {
	ProductID string `json:"product_id"`
	Quantity  int32  `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}

type createOrder struct {
	Reference       string                   `json:"reference"`
	Items           []orderItem              `json:"items"`
	Notes           string                   `json:"notes,omitempty"`
	Subtotal        int64                    `json:"subtotal"`
	TaxAmount       int64                    `json:"tax_amount"`
	ShippingAmount  int64                    `json:"shipping_amount"`
	DiscountAmount  int64                    `json:"discount_amount"`
	TotalAmount     int64                    `json:"total_amount"`
	Customer        request.Customer         `json:"customer"`
	ShippingAddress *request.ShippingAddress `json:"shipping_address,omitempty"`
}

type createSubscription struct {
	Reference string           `json:"reference"`
	PlanID    string           `json:"plan_id"`
	Customer  request.Customer `json:"customer"`
}

func (svc *CheckoutService) CreateOrder(
	c context.Context,
	creds auth.Credentials,
	param request.CreateOrder,
) (response.PaymentSession, error) {
	c, span := otel.Tracer.Start(c, "CheckoutService CreateOrder")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "CheckoutService CreateOrder").
		Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "validating request").Logger()
	if err := validate.Struct(c, param); err != nil {
		otel.RecordError(err, span)
		logger.Warn().Err(err).Msg(err.Error())
		return response.PaymentSession{}, err
	}

	logger = logger.With().Str(constants.KEY_PROCESS, "getting cart").Logger()
	logger.Trace().Msg("getting cart")
	cart, err := svc.cart.Get(c, creds)
	if err != nil {
		err = fmt.Errorf("failed getting cart with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.PaymentSession{}, err
	}
	if cart.IsEmpty() {
		err = inErrors.NewEmptyCartError()
		otel.RecordError(err, span)
		logger.Warn().Err(err).Msg(err.Error())
		return response.PaymentSession{}, err
	}
	logger.Trace().Int(constants.KEY_CART_ITEMS_COUNT, len(cart.Items)).Msg("got cart")

	logger = logger.With().Str(constants.KEY_PROCESS, "revalidating stock").Logger()
	logger.Trace().Msg("revalidating stock")
	g, gc := errgroup.WithContext(c)
	for _, item := range cart.Items {
		g.Go(func() error {
			_, err := svc.cart.CheckStock(gc, creds, item.ProductID, int64(item.Quantity))
			return err
		})
	}
	if err := g.Wait(); err != nil {
		err = fmt.Errorf("failed revalidating stock with error=%w", err)
		otel.RecordError(err, span)
		logger.Warn().Err(err).Msg(err.Error())
		return response.PaymentSession{}, err
	}
	logger.Trace().Msg("revalidated stock")

	reference := NewReference(constants.REFERENCE_PREFIX_ORDER, svc.now())
	span.SetAttributes(attribute.String(constants.KEY_REFERENCE, reference))
	logger = logger.With().
		Str(constants.KEY_PROCESS, "creating order").
		Str(constants.KEY_REFERENCE, reference).
		Logger()
	logger.Trace().Msg("creating order")
	ids := make([]string, 0, len(cart.Items))
	body := createOrder{
		Reference:       reference,
		Items:           make([]orderItem, 0, len(cart.Items)),
		Notes:           cart.Notes,
		Subtotal:        cart.Subtotal,
		TaxAmount:       cart.TaxAmount,
		ShippingAmount:  cart.ShippingAmount,
		DiscountAmount:  cart.DiscountAmount,
		TotalAmount:     cart.TotalAmount,
		Customer:        param.Customer,
		ShippingAddress: param.ShippingAddress,
	}
	for _, item := range cart.Items {
		body.Items = append(body.Items, orderItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
		ids = append(ids, item.ProductID)
	}
	order := response.Order{}
	if err := svc.backend.Do(c, http.MethodPost, PATH_ORDERS, creds, body, &order); err != nil {
		err = fmt.Errorf("failed creating order with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.PaymentSession{}, err
	}
	if order.Reference == "" {
		order.Reference = reference
	}
	if order.TotalAmount == 0 {
		order.TotalAmount = cart.TotalAmount
	}
	logger.Info().Str(constants.KEY_ORDER_ID, order.ID).Msg("created order")
	if svc.stock != nil {
		svc.stock.Invalidate(c, ids...)
	}

	session := svc.paymentSession(order, param.Customer)
	logger.Debug().Any(constants.KEY_PAYMENT_SESSION, session).Msg("built payment session")
	return session, nil
}

func (svc *CheckoutService) CreateSubscription(
	c context.Context,
	creds auth.Credentials,
	param request.CreateSubscription,
) (response.PaymentSession, error) {
	c, span := otel.Tracer.Start(c, "CheckoutService CreateSubscription")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "CheckoutService CreateSubscription").
		Str("planId", param.PlanID).
		Logger()

	if err := validate.Struct(c, param); err != nil {
		otel.RecordError(err, span)
		logger.Warn().Err(err).Msg(err.Error())
		return response.PaymentSession{}, err
	}

	reference := NewReference(constants.REFERENCE_PREFIX_SUBSCRIPTION, svc.now())
	logger = logger.With().
		Str(constants.KEY_PROCESS, "creating subscription").
		Str(constants.KEY_REFERENCE, reference).
		Logger()
	logger.Trace().Msg("creating subscription")
	order := response.Order{}
	body := createSubscription{Reference: reference, PlanID: param.PlanID, Customer: param.Customer}
	if err := svc.backend.Do(c, http.MethodPost, PATH_SUBSCRIPTIONS, creds, body, &order); err != nil {
		err = fmt.Errorf("failed creating subscription with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.PaymentSession{}, err
	}
	if order.Reference == "" {
		order.Reference = reference
	}
	if order.TotalAmount <= 0 {
		err := inErrors.NewValidationError(fmt.Sprintf("plan=%s has no price", param.PlanID))
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.PaymentSession{}, err
	}
	logger.Info().Str(constants.KEY_ORDER_ID, order.ID).Msg("created subscription")

	return svc.paymentSession(order, param.Customer), nil
}

func (svc *CheckoutService) paymentSession(order response.Order, customer request.Customer) response.PaymentSession {
	amount := AmountInCents(order.TotalAmount)
	session := response.PaymentSession{
		OrderID:       order.ID,
		PublicKey:     svc.cfg.PublicKey,
		Currency:      svc.cfg.Currency,
		AmountInCents: amount,
		Reference:     order.Reference,
		RedirectURL:   svc.redirectURL(order),
		SignatureIntegrity: IntegritySignature(
			order.Reference,
			amount,
			svc.cfg.Currency,
			svc.cfg.IntegritySecret,
		),
		Customer: customer,
	}
	session.CheckoutURL = CheckoutURL(svc.cfg, session)
	return session
}

// redirectURL appends the order id so the success page can be resolved without the
// transaction id.
func (svc *CheckoutService) redirectURL(order response.Order) string {
	if svc.cfg.RedirectURL == "" {
		return ""
	}
	u, err := url.Parse(svc.cfg.RedirectURL)
	if err != nil {
		return svc.cfg.RedirectURL
	}
	query := u.Query()
	if order.ID != "" {
		query.Set("order_id", order.ID)
	}
	query.Set("reference", order.Reference)
	u.RawQuery = query.Encode()
	return u.String()
}

// Confirm tells the backend a transaction was approved. The backend treats repeated
// confirmations of the same transaction as no-ops.
func (svc *CheckoutService) Confirm(c context.Context, tx response.Transaction) error {
	c, span := otel.Tracer.Start(
		c,
		"CheckoutService Confirm",
		trace.WithAttributes(
			attribute.String(constants.KEY_TRANSACTION_ID, tx.ID),
			attribute.String(constants.KEY_REFERENCE, tx.Reference),
		),
	)
	defer span.End()

	path := ConfirmPath(tx.Reference)
	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "CheckoutService Confirm").
		Str(constants.KEY_TRANSACTION_ID, tx.ID).
		Str(constants.KEY_REFERENCE, tx.Reference).
		Str(constants.KEY_URL, path).
		Logger()

	logger.Trace().Msg("confirming payment")
	body := map[string]interface{}{
		"transaction_id":  tx.ID,
		"reference":       tx.Reference,
		"amount_in_cents": tx.AmountInCents,
	}
	if err := svc.backend.DoAsService(c, http.MethodPost, path, body, nil); err != nil {
		err = fmt.Errorf("failed confirming payment with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msg("confirmed payment")
	return nil
}

func (svc *CheckoutService) MarkFailed(c context.Context, tx response.Transaction, reason string) error {
	c, span := otel.Tracer.Start(
		c,
		"CheckoutService MarkFailed",
		trace.WithAttributes(
			attribute.String(constants.KEY_TRANSACTION_ID, tx.ID),
			attribute.String(constants.KEY_REASON, reason),
		),
	)
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "CheckoutService MarkFailed").
		Str(constants.KEY_TRANSACTION_ID, tx.ID).
		Str(constants.KEY_REFERENCE, tx.Reference).
		Str(constants.KEY_REASON, reason).
		Logger()

	if reason == "" {
		err := errors.New("mark failed requires a reason")
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}

	logger.Trace().Msg("marking payment failed")
	body := map[string]interface{}{
		"transaction_id": tx.ID,
		"reference":      tx.Reference,
		"reason":         reason,
	}
	if err := svc.backend.DoAsService(c, http.MethodPost, PATH_PAYMENTS_MARK_FAILED, body, nil); err != nil {
		err = fmt.Errorf("failed marking payment failed with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msg("marked payment failed")
	return nil
}
