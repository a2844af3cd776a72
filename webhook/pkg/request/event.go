package request

import "encoding/json"

const EVENT_TRANSACTION_UPDATED = "transaction.updated"

type Transaction struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	Reference     string `json:"reference"`
	AmountInCents int64  `json:"amount_in_cents"`
	Currency      string `json:"currency"`
	PaymentMethod string `json:"payment_method_type"`
}

type Signature struct {
	Properties []string `json:"properties"`
	Checksum   string   `json:"checksum"`
}

// Event is a payment provider notification. Data is kept raw because the signed
// properties are looked up by path.
type Event struct {
	Event       string          `json:"event"`
	Data        json.RawMessage `json:"data"`
	Environment string          `json:"environment"`
	Signature   Signature       `json:"signature"`
	Timestamp   int64           `json:"timestamp"`
	SentAt      string          `json:"sent_at"`
}

type EventData struct {
	Transaction Transaction `json:"transaction"`
}
