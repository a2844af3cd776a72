package service

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	cartRes "github.com/Alturino/marketclub/cart/pkg/response"
	"github.com/Alturino/marketclub/wholesale/pkg/request"
)

const WHATSAPP_BASE_URL = "https://wa.me/"

// FormatCOP renders whole pesos with dot thousands separators, 119000 becomes $119.000.
func FormatCOP(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	digits := strconv.FormatInt(amount, 10)
	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(d)
	}
	return sign + "$" + b.String()
}

func ComposeMessage(cart cartRes.Cart, customer request.Customer) string {
	var b strings.Builder
	b.WriteString("Hola, quiero cotizar el siguiente pedido mayorista:\n\n")
	for _, item := range cart.Items {
		name := item.ProductID
		if item.Product != nil && item.Product.Name != "" {
			name = item.Product.Name
		}
		fmt.Fprintf(
			&b,
			"- %s x %d @ %s = %s\n",
			name,
			item.Quantity,
			FormatCOP(item.UnitPrice),
			FormatCOP(item.LineTotal),
		)
	}
	fmt.Fprintf(&b, "\nSubtotal: %s\n", FormatCOP(cart.Subtotal))
	if notes := strings.TrimSpace(cart.Notes); notes != "" {
		fmt.Fprintf(&b, "Notas: %s\n", notes)
	}
	b.WriteString("\nDatos del cliente:\n")
	fmt.Fprintf(&b, "Nombre: %s\n", customer.Name)
	if customer.Company != "" {
		fmt.Fprintf(&b, "Empresa: %s\n", customer.Company)
	}
	fmt.Fprintf(&b, "Ciudad: %s\n", customer.City)
	fmt.Fprintf(&b, "Teléfono: %s", customer.Phone)
	return b.String()
}

// WhatsAppURL builds a click to chat link. Only the digits of number are kept.
func WhatsAppURL(number string, message string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, number)
	return WHATSAPP_BASE_URL + digits + "?text=" + strings.ReplaceAll(url.QueryEscape(message), "+", "%20")
}
