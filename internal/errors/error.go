package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNetwork          = errors.New("network error")
	ErrValidation       = errors.New("validation error")
	ErrOutOfStock       = errors.New("product is out of stock")
	ErrAuth             = errors.New("authentication required")
	ErrSignature        = errors.New("invalid signature")
	ErrMissingSignature = errors.New("missing signature")
	ErrUnknownEvent     = errors.New("unknown event")
	ErrNotFound         = errors.New("not found")
	ErrMutationInFlight = errors.New("mutation already in flight")
	ErrEmptyCart        = errors.New("cart is empty")
)

const (
	CODE_NETWORK            = "network_error"
	CODE_VALIDATION         = "validation_error"
	CODE_OUT_OF_STOCK       = "out_of_stock"
	CODE_AUTH               = "auth_error"
	CODE_SIGNATURE          = "signature_error"
	CODE_UNKNOWN_EVENT      = "unknown_event"
	CODE_NOT_FOUND          = "not_found"
	CODE_MUTATION_IN_FLIGHT = "mutation_in_flight"
	CODE_INTERNAL           = "internal_error"
)

// Error carries a machine code and the gateway status alongside the wrapped cause.
// Kind is one of the sentinels above so callers can match with errors.Is.
type Error struct {
	Code       string
	Message    string
	StatusCode int
	Kind       error
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func NewNetworkError(message string, err error) *Error {
	return &Error{
		Code:       CODE_NETWORK,
		Message:    message,
		StatusCode: http.StatusBadGateway,
		Kind:       ErrNetwork,
		Err:        err,
	}
}

func NewValidationError(message string) *Error {
	return &Error{
		Code:       CODE_VALIDATION,
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Kind:       ErrValidation,
	}
}

// NewPayloadTooLargeError is a validation error answered with 413.
func NewPayloadTooLargeError(limit int64) *Error {
	return &Error{
		Code:       CODE_VALIDATION,
		Message:    fmt.Sprintf("request body exceeds %d bytes", limit),
		StatusCode: http.StatusRequestEntityTooLarge,
		Kind:       ErrValidation,
	}
}

// NewEmptyCartError is a validation error that also matches ErrEmptyCart.
func NewEmptyCartError() *Error {
	return &Error{
		Code:       CODE_VALIDATION,
		Message:    ErrEmptyCart.Error(),
		StatusCode: http.StatusBadRequest,
		Kind:       ErrValidation,
		Err:        ErrEmptyCart,
	}
}

func NewOutOfStockError(message string) *Error {
	return &Error{
		Code:       CODE_OUT_OF_STOCK,
		Message:    message,
		StatusCode: http.StatusConflict,
		Kind:       ErrOutOfStock,
	}
}

func NewAuthError(message string) *Error {
	return &Error{
		Code:       CODE_AUTH,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
		Kind:       ErrAuth,
	}
}

func NewNotFoundError(message string) *Error {
	return &Error{
		Code:       CODE_NOT_FOUND,
		Message:    message,
		StatusCode: http.StatusNotFound,
		Kind:       ErrNotFound,
	}
}

// NewSignatureError answers 400 for a missing header and 401 for a mismatch.
func NewSignatureError(missing bool) *Error {
	if missing {
		return &Error{
			Code:       CODE_SIGNATURE,
			Message:    "missing x-wompi-signature header",
			StatusCode: http.StatusBadRequest,
			Kind:       ErrMissingSignature,
			Err:        ErrSignature,
		}
	}
	return &Error{
		Code:       CODE_SIGNATURE,
		Message:    "signature mismatch",
		StatusCode: http.StatusUnauthorized,
		Kind:       ErrSignature,
	}
}

func NewUnknownEventError(event string, status string) *Error {
	return &Error{
		Code:       CODE_UNKNOWN_EVENT,
		Message:    fmt.Sprintf("unhandled event=%s status=%s", event, status),
		StatusCode: http.StatusOK,
		Kind:       ErrUnknownEvent,
	}
}

func NewMutationInFlightError(productId string) *Error {
	return &Error{
		Code:       CODE_MUTATION_IN_FLIGHT,
		Message:    fmt.Sprintf("product=%s already has a mutation in flight", productId),
		StatusCode: http.StatusConflict,
		Kind:       ErrMutationInFlight,
	}
}

// NewDeliveryInFlightError answers 409 so the provider retries the delivery later.
func NewDeliveryInFlightError(transactionId string, status string) *Error {
	return &Error{
		Code:       CODE_MUTATION_IN_FLIGHT,
		Message:    fmt.Sprintf("transaction=%s status=%s is being processed", transactionId, status),
		StatusCode: http.StatusConflict,
		Kind:       ErrMutationInFlight,
	}
}

func NewInternalError(message string, err error) *Error {
	return &Error{
		Code:       CODE_INTERNAL,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Err:        err,
	}
}

// StatusCode maps any error to the status the gateway answers with.
func StatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode
	}
	switch {
	case errors.Is(err, ErrNetwork):
		return http.StatusBadGateway
	case errors.Is(err, ErrValidation), errors.Is(err, ErrEmptyCart):
		return http.StatusBadRequest
	case errors.Is(err, ErrOutOfStock), errors.Is(err, ErrMutationInFlight):
		return http.StatusConflict
	case errors.Is(err, ErrAuth), errors.Is(err, ErrSignature):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
