package response

import "github.com/Alturino/marketclub/checkout/pkg/request"

const (
	TRANSACTION_APPROVED = "APPROVED"
	TRANSACTION_DECLINED = "DECLINED"
	TRANSACTION_VOIDED   = "VOIDED"
	TRANSACTION_PENDING  = "PENDING"
	TRANSACTION_ERROR    = "ERROR"
)

const (
	REASON_DECLINED  = "declined"
	REASON_VOIDED    = "voided"
	REASON_CANCELLED = "cancelled"
	REASON_TIMEOUT   = "timeout"

	REASON_REFERENCE_MISMATCH = "reference_mismatch"
)

type Order struct {
	ID          string `json:"id"`
	Reference   string `json:"reference"`
	Status      string `json:"status"`
	TotalAmount int64  `json:"total_amount"`
}

// PaymentSession holds everything the payment widget needs to charge an order.
type PaymentSession struct {
	OrderID            string           `json:"order_id"`
	PublicKey          string           `json:"public_key"`
	Currency           string           `json:"currency"`
	AmountInCents      int64            `json:"amount_in_cents"`
	Reference          string           `json:"reference"`
	RedirectURL        string           `json:"redirect_url"`
	SignatureIntegrity string           `json:"signature_integrity"`
	Customer           request.Customer `json:"customer"`
	CheckoutURL        string           `json:"checkout_url"`
}

type Transaction struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	Reference     string `json:"reference"`
	AmountInCents int64  `json:"amount_in_cents"`
}

type State string

const (
	STATE_APPROVED State = "approved"
	STATE_PENDING  State = "pending"
	STATE_FAILED   State = "failed"
)

type Completion struct {
	State         State    `json:"state"`
	Verified      bool     `json:"verified"`
	OrderID       string   `json:"order_id,omitempty"`
	TransactionID string   `json:"transaction_id,omitempty"`
	Reference     string   `json:"reference,omitempty"`
	CartCleared   bool     `json:"cart_cleared"`
	Failure       *Failure `json:"failure,omitempty"`
}

type Failure struct {
	Reason    string `json:"reason"`
	Reference string `json:"reference,omitempty"`
	Title     string `json:"title"`
	Message   string `json:"message"`
}
