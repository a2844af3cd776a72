package response

import (
	cartRes "github.com/Alturino/marketclub/cart/pkg/response"
)

type Quote struct {
	Message string       `json:"message"`
	URL     string       `json:"url"`
	Cart    cartRes.Cart `json:"cart"`
}
