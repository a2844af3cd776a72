package response

import (
	productRes "github.com/Alturino/marketclub/product/pkg/response"
)

type CartItem struct {
	ProductID string              `json:"product_id"`
	Quantity  int32               `json:"quantity"`
	UnitPrice int64               `json:"unit_price"`
	LineTotal int64               `json:"line_total"`
	Product   *productRes.Product `json:"product,omitempty"`
}

// Cart amounts are integer COP. TotalAmount is always
// Subtotal - DiscountAmount + TaxAmount + ShippingAmount.
type Cart struct {
	ID             string     `json:"id"`
	Items          []CartItem `json:"items"`
	Notes          string     `json:"notes,omitempty"`
	Subtotal       int64      `json:"subtotal"`
	TaxAmount      int64      `json:"tax_amount"`
	ShippingAmount int64      `json:"shipping_amount"`
	DiscountAmount int64      `json:"discount_amount"`
	TotalAmount    int64      `json:"total_amount"`
	ItemCount      int64      `json:"item_count"`
}

func EmptyCart(id string) Cart {
	return Cart{ID: id, Items: []CartItem{}}
}

func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

func (c Cart) Find(productID string) (CartItem, bool) {
	for _, item := range c.Items {
		if item.ProductID == productID {
			return item, true
		}
	}
	return CartItem{}, false
}

func (c Cart) ProductIDs() []string {
	ids := make([]string, 0, len(c.Items))
	for _, item := range c.Items {
		ids = append(ids, item.ProductID)
	}
	return ids
}
