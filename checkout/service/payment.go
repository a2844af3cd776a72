package service

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Alturino/marketclub/checkout/pkg/response"
	"github.com/Alturino/marketclub/internal/config"
	"github.com/Alturino/marketclub/internal/constants"
)

const (
	PATH_ORDERS               = "/orders"
	PATH_SUBSCRIPTIONS        = "/subscriptions"
	PATH_ORDERS_CONFIRM       = "/orders/confirm"
	PATH_SUBSCRIPTION_CONFIRM = "/subscriptions/confirm"
	PATH_PAYMENTS_MARK_FAILED = "/payments/mark-failed"
	PATH_PAYMENTS_VERIFY      = "/payments/verify/"
)

var hundred = decimal.NewFromInt(100)

// NewReference returns prefix followed by the unix millisecond timestamp and 8 random hex
// characters, e.g. ORDER_1767225600000_9f86d081.
func NewReference(prefix string, now time.Time) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s%d_%s", prefix, now.UnixMilli(), random)
}

func AmountInCents(total int64) int64 {
	return decimal.NewFromInt(total).Mul(hundred).IntPart()
}

// IntegritySignature is hex(sha256(reference + amount_in_cents + currency + secret)).
func IntegritySignature(reference string, amountInCents int64, currency string, secret string) string {
	sum := sha256.Sum256([]byte(reference + strconv.FormatInt(amountInCents, 10) + currency + secret))
	return hex.EncodeToString(sum[:])
}

// CheckoutURL builds the hosted checkout link carrying the same parameters as the widget.
func CheckoutURL(cfg config.Wompi, session response.PaymentSession) string {
	query := url.Values{}
	query.Set("public-key", session.PublicKey)
	query.Set("currency", session.Currency)
	query.Set("amount-in-cents", strconv.FormatInt(session.AmountInCents, 10))
	query.Set("reference", session.Reference)
	query.Set("signature:integrity", session.SignatureIntegrity)
	if session.RedirectURL != "" {
		query.Set("redirect-url", session.RedirectURL)
	}
	if session.Customer.Email != "" {
		query.Set("customer-data:email", session.Customer.Email)
	}
	if session.Customer.FullName != "" {
		query.Set("customer-data:full-name", session.Customer.FullName)
	}
	if session.Customer.PhoneNumber != "" {
		query.Set("customer-data:phone-number", session.Customer.PhoneNumber)
	}
	return cfg.CheckoutURL + "?" + query.Encode()
}

// ConfirmPath routes subscription references to the subscription confirmation endpoint.
func ConfirmPath(reference string) string {
	if strings.HasPrefix(reference, constants.REFERENCE_PREFIX_SUBSCRIPTION) {
		return PATH_SUBSCRIPTION_CONFIRM
	}
	return PATH_ORDERS_CONFIRM
}
