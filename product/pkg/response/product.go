package response

// Product is the storefront projection of a backend product. Prices are integer COP.
type Product struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Price         int64  `json:"price"`
	SalePrice     *int64 `json:"sale_price,omitempty"`
	StockQuantity int32  `json:"stock_quantity"`
	Image         string `json:"image,omitempty"`
	Category      string `json:"category,omitempty"`
	Brand         string `json:"brand,omitempty"`
}

func (p Product) EffectivePrice() int64 {
	if p.SalePrice != nil && *p.SalePrice > 0 && *p.SalePrice < p.Price {
		return *p.SalePrice
	}
	return p.Price
}

func (p Product) HasStockFor(quantity int64) bool {
	return quantity <= int64(p.StockQuantity)
}
