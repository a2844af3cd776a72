package request

// MAX_ITEM_QUANTITY bounds a single line. The validate tags below repeat it.
const MAX_ITEM_QUANTITY = 9999

type AddItem struct {
	ProductID string `validate:"required"       json:"product_id"`
	Quantity  int32  `validate:"gte=1,lte=9999" json:"quantity"`
}

type UpdateItem struct {
	Quantity int32 `validate:"gte=0,lte=9999" json:"quantity"`
}

type Notes struct {
	Notes string `validate:"max=1000" json:"notes"`
}
