package request

type Item struct {
	ProductID string `validate:"required" json:"product_id"`
}

type MoveToCart struct {
	Quantity int32 `validate:"gte=1,lte=9999" json:"quantity"`
}
