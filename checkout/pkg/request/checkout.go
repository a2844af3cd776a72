package request

type Customer struct {
	FullName    string `validate:"required"       json:"full_name"`
	Email       string `validate:"required,email" json:"email"`
	PhoneNumber string `                          json:"phone_number,omitempty"`
	LegalID     string `                          json:"legal_id,omitempty"`
	LegalIDType string `validate:"omitempty,oneof=CC CE NIT PP TI DNI" json:"legal_id_type,omitempty"`
}

type ShippingAddress struct {
	AddressLine1 string `validate:"required" json:"address_line_1"`
	AddressLine2 string `                    json:"address_line_2,omitempty"`
	City         string `validate:"required" json:"city"`
	Region       string `                    json:"region,omitempty"`
	Country      string `                    json:"country,omitempty"`
	PhoneNumber  string `                    json:"phone_number,omitempty"`
}

type CreateOrder struct {
	Customer        Customer         `validate:"required" json:"customer"`
	ShippingAddress *ShippingAddress `validate:"omitempty" json:"shipping_address,omitempty"`
}

type CreateSubscription struct {
	PlanID   string   `validate:"required" json:"plan_id"`
	Customer Customer `validate:"required" json:"customer"`
}

// Success carries the query parameters the payment widget redirects back with.
type Success struct {
	OrderID       string `json:"order_id"`
	TransactionID string `json:"transaction_id"`
	Reference     string `json:"reference"`
}

type Failure struct {
	Reason    string `json:"reason"`
	Reference string `json:"reference"`
}
