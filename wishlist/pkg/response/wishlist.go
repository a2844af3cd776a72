package response

import (
	"time"

	cartRes "github.com/Alturino/marketclub/cart/pkg/response"
	productRes "github.com/Alturino/marketclub/product/pkg/response"
)

type Action string

const (
	ACTION_ADDED   Action = "added"
	ACTION_REMOVED Action = "removed"
)

// Result is what every wishlist mutation reports back.
type Result struct {
	Success        bool                `json:"success"`
	Action         Action              `json:"action"`
	ProductID      string              `json:"product_id"`
	IsInWishlist   bool                `json:"is_in_wishlist"`
	Product        *productRes.Product `json:"product,omitempty"`
	TotalFavorites int                 `json:"total_favorites"`
}

type WishlistItem struct {
	ProductID string              `json:"product_id"`
	Product   *productRes.Product `json:"product,omitempty"`
	AddedAt   *time.Time          `json:"added_at,omitempty"`
}

type Wishlist struct {
	Items          []WishlistItem `json:"items"`
	TotalFavorites int            `json:"total_favorites"`
}

func (w Wishlist) Contains(productID string) bool {
	for _, item := range w.Items {
		if item.ProductID == productID {
			return true
		}
	}
	return false
}

type Check struct {
	ProductID    string `json:"product_id"`
	IsInWishlist bool   `json:"is_in_wishlist"`
}

type MoveToCart struct {
	Result Result       `json:"result"`
	Cart   cartRes.Cart `json:"cart"`
}
