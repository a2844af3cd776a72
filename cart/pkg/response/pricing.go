package response

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Alturino/marketclub/internal/config"
)

type Pricing struct {
	TaxRate          decimal.Decimal
	ShippingFlat     int64
	FreeShippingFrom int64
}

func NewPricing(cfg config.Pricing) (Pricing, error) {
	rate := decimal.Zero
	if cfg.TaxRate != "" {
		var err error
		rate, err = decimal.NewFromString(cfg.TaxRate)
		if err != nil {
			return Pricing{}, fmt.Errorf("failed parsing tax_rate=%s with error=%w", cfg.TaxRate, err)
		}
	}
	if rate.IsNegative() {
		return Pricing{}, fmt.Errorf("tax_rate=%s must not be negative", cfg.TaxRate)
	}
	return Pricing{
		TaxRate:          rate,
		ShippingFlat:     cfg.ShippingFlat,
		FreeShippingFrom: cfg.FreeShippingFrom,
	}, nil
}

// Untaxed prices a cart without tax or shipping, which is how wholesale quotes work.
func Untaxed() Pricing {
	return Pricing{TaxRate: decimal.Zero}
}

// Summarize recomputes every derived amount of cart from its lines and discount.
func (p Pricing) Summarize(cart Cart) Cart {
	if cart.Items == nil {
		cart.Items = []CartItem{}
	}
	var (
		subtotal  int64
		itemCount int64
	)
	for i := range cart.Items {
		item := &cart.Items[i]
		if item.UnitPrice == 0 && item.Product != nil {
			item.UnitPrice = item.Product.EffectivePrice()
		}
		item.LineTotal = item.UnitPrice * int64(item.Quantity)
		subtotal += item.LineTotal
		itemCount += int64(item.Quantity)
	}

	discount := cart.DiscountAmount
	if discount < 0 {
		discount = 0
	}
	if discount > subtotal {
		discount = subtotal
	}

	tax := decimal.NewFromInt(subtotal).Mul(p.TaxRate).Round(0).IntPart()

	shipping := p.ShippingFlat
	if cart.IsEmpty() || subtotal >= p.FreeShippingFrom {
		shipping = 0
	}

	cart.Subtotal = subtotal
	cart.DiscountAmount = discount
	cart.TaxAmount = tax
	cart.ShippingAmount = shipping
	cart.TotalAmount = subtotal - discount + tax + shipping
	cart.ItemCount = itemCount
	return cart
}
