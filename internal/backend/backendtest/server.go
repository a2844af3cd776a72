// Package backendtest runs an in-memory copy of the remote storefront api for tests.
package backendtest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/mux"

	"github.com/Alturino/marketclub/product/pkg/response"
)

type Call struct {
	Method        string
	Path          string
	Authorization string
	SessionID     string
	Body          map[string]interface{}
}

type Transaction struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	Reference     string `json:"reference"`
	AmountInCents int64  `json:"amount_in_cents"`
}

type failure struct {
	status int
	code   string
}

type line struct {
	productID string
	quantity  int32
}

type cart struct {
	lines []line
	notes string
}

type Server struct {
	*httptest.Server

	mu           sync.Mutex
	products     map[string]response.Product
	plans        map[string]int64
	carts        map[string]*cart
	wishlists    map[string][]string
	transactions map[string]Transaction
	discount     int64
	failures     map[string]failure
	calls        []Call
	orderSeq     int
}

func NewServer(t testing.TB) *Server {
	s := &Server{
		products:     map[string]response.Product{},
		plans:        map[string]int64{},
		carts:        map[string]*cart{},
		wishlists:    map[string][]string{},
		transactions: map[string]Transaction{},
		failures:     map[string]failure{},
	}

	router := mux.NewRouter()
	router.Use(s.record)
	router.HandleFunc("/products/{productId}", s.getProduct).Methods(http.MethodGet)
	for _, base := range []string{"/cart", "/wholesale/cart"} {
		s.attachCart(router, base)
	}

	wishlist := router.PathPrefix("/wishlist").Subrouter()
	wishlist.Use(requireBearer)
	wishlist.HandleFunc("", s.getWishlist).Methods(http.MethodGet)
	wishlist.HandleFunc("", s.clearWishlist).Methods(http.MethodDelete)
	wishlist.HandleFunc("/toggle", s.toggleWishlist).Methods(http.MethodPost)
	wishlist.HandleFunc("/items", s.addWishlist).Methods(http.MethodPost)
	wishlist.HandleFunc("/items/{productId}", s.removeWishlist).Methods(http.MethodDelete)
	wishlist.HandleFunc("/check/{productId}", s.checkWishlist).Methods(http.MethodGet)

	router.HandleFunc("/orders", s.createOrder).Methods(http.MethodPost)
	router.HandleFunc("/subscriptions", s.createSubscription).Methods(http.MethodPost)
	router.HandleFunc("/payments/verify/{transactionId}", s.verifyPayment).Methods(http.MethodGet)
	router.HandleFunc("/orders/confirm", s.acknowledge).Methods(http.MethodPost)
	router.HandleFunc("/subscriptions/confirm", s.acknowledge).Methods(http.MethodPost)
	router.HandleFunc("/payments/mark-failed", s.acknowledge).Methods(http.MethodPost)

	s.Server = httptest.NewServer(router)
	t.Cleanup(s.Close)
	return s
}

func (s *Server) AddProduct(products ...response.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range products {
		s.products[p.ID] = p
	}
}

func (s *Server) AddPlan(id string, price int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans[id] = price
}

func (s *Server) SetDiscount(amount int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.discount = amount
}

func (s *Server) SetTransaction(tx Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions[tx.ID] = tx
}

// Fail makes every request to method and path answer status until Recover is called.
func (s *Server) Fail(method string, path string, status int, code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+path] = failure{status: status, code: code}
}

func (s *Server) Recover(method string, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, method+" "+path)
}

func (s *Server) Calls(method string, path string) []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	calls := []Call{}
	for _, call := range s.calls {
		if call.Method == method && call.Path == path {
			calls = append(calls, call)
		}
	}
	return calls
}

// MutatingCalls lists every non GET request received.
func (s *Server) MutatingCalls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	calls := []Call{}
	for _, call := range s.calls {
		if call.Method != http.MethodGet {
			calls = append(calls, call)
		}
	}
	return calls
}

func (s *Server) AllCalls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call{}, s.calls...)
}

func (s *Server) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

// Quantity reports the quantity of productID in the cart found under base for owner, the
// bearer token of a user or the session id of a guest.
func (s *Server) Quantity(base string, owner string, productID string) int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	ct, ok := s.carts[base+"|"+owner]
	if !ok {
		return 0
	}
	for _, l := range ct.lines {
		if l.productID == productID {
			return l.quantity
		}
	}
	return 0
}

func (s *Server) InWishlist(token string, productID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return indexOf(s.wishlists[token], productID) >= 0
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(raw))
		body := map[string]interface{}{}
		_ = json.Unmarshal(raw, &body)

		s.mu.Lock()
		s.calls = append(s.calls, Call{
			Method:        r.Method,
			Path:          r.URL.Path,
			Authorization: r.Header.Get("Authorization"),
			SessionID:     r.Header.Get("X-Session-ID"),
			Body:          body,
		})
		f, failing := s.failures[r.Method+" "+r.URL.Path]
		s.mu.Unlock()

		if failing {
			writeFailure(w, f.status, f.code, "injected failure")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if bearer(r) == "" {
			writeFailure(w, http.StatusUnauthorized, "", "login required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearer(r *http.Request) string {
	return strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
}

func owner(r *http.Request) string {
	if token := bearer(r); token != "" {
		return token
	}
	return r.Header.Get("X-Session-ID")
}

func writeData(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "data": data})
}

func writeFailure(w http.ResponseWriter, status int, code string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"code":    code,
		"message": message,
	})
}

func decode(r *http.Request) map[string]interface{} {
	body := map[string]interface{}{}
	_ = json.NewDecoder(r.Body).Decode(&body)
	return body
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	p, ok := s.products[mux.Vars(r)["productId"]]
	s.mu.Unlock()
	if !ok {
		writeFailure(w, http.StatusNotFound, "", "product not found")
		return
	}
	writeData(w, http.StatusOK, p)
}

func (s *Server) attachCart(router *mux.Router, base string) {
	key := func(r *http.Request) string { return base + "|" + owner(r) }

	router.HandleFunc(base, func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		ct, ok := s.carts[key(r)]
		if !ok {
			writeFailure(w, http.StatusNotFound, "", "cart not found")
			return
		}
		writeData(w, http.StatusOK, s.cartView(owner(r), ct))
	}).Methods(http.MethodGet)

	router.HandleFunc(base, func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		ct := &cart{}
		s.carts[key(r)] = ct
		writeData(w, http.StatusOK, s.cartView(owner(r), ct))
	}).Methods(http.MethodDelete)

	router.HandleFunc(base+"/items", func(w http.ResponseWriter, r *http.Request) {
		body := decode(r)
		productID, _ := body["product_id"].(string)
		quantity, _ := body["quantity"].(float64)

		s.mu.Lock()
		defer s.mu.Unlock()
		p, ok := s.products[productID]
		if !ok {
			writeFailure(w, http.StatusUnprocessableEntity, "", "product does not exist")
			return
		}
		if quantity < 1 {
			writeFailure(w, http.StatusUnprocessableEntity, "", "quantity must be positive")
			return
		}
		ct, ok := s.carts[key(r)]
		if !ok {
			ct = &cart{}
			s.carts[key(r)] = ct
		}
		for i := range ct.lines {
			if ct.lines[i].productID == productID {
				if ct.lines[i].quantity+int32(quantity) > p.StockQuantity {
					writeFailure(w, http.StatusConflict, "out_of_stock", "not enough stock")
					return
				}
				ct.lines[i].quantity += int32(quantity)
				writeData(w, http.StatusOK, s.cartView(owner(r), ct))
				return
			}
		}
		if int32(quantity) > p.StockQuantity {
			writeFailure(w, http.StatusConflict, "out_of_stock", "not enough stock")
			return
		}
		ct.lines = append(ct.lines, line{productID: productID, quantity: int32(quantity)})
		writeData(w, http.StatusCreated, s.cartView(owner(r), ct))
	}).Methods(http.MethodPost)

	router.HandleFunc(base+"/items/{productId}", func(w http.ResponseWriter, r *http.Request) {
		productID := mux.Vars(r)["productId"]
		quantity, _ := decode(r)["quantity"].(float64)

		s.mu.Lock()
		defer s.mu.Unlock()
		ct, ok := s.carts[key(r)]
		if !ok {
			writeFailure(w, http.StatusNotFound, "", "cart not found")
			return
		}
		for i := range ct.lines {
			if ct.lines[i].productID != productID {
				continue
			}
			if int32(quantity) > s.products[productID].StockQuantity {
				writeFailure(w, http.StatusConflict, "out_of_stock", "not enough stock")
				return
			}
			if quantity <= 0 {
				ct.lines = append(ct.lines[:i], ct.lines[i+1:]...)
			} else {
				ct.lines[i].quantity = int32(quantity)
			}
			writeData(w, http.StatusOK, s.cartView(owner(r), ct))
			return
		}
		writeFailure(w, http.StatusNotFound, "", "item not found")
	}).Methods(http.MethodPut)

	router.HandleFunc(base+"/items/{productId}", func(w http.ResponseWriter, r *http.Request) {
		productID := mux.Vars(r)["productId"]

		s.mu.Lock()
		defer s.mu.Unlock()
		ct, ok := s.carts[key(r)]
		if !ok {
			writeFailure(w, http.StatusNotFound, "", "cart not found")
			return
		}
		for i := range ct.lines {
			if ct.lines[i].productID == productID {
				ct.lines = append(ct.lines[:i], ct.lines[i+1:]...)
				break
			}
		}
		writeData(w, http.StatusOK, s.cartView(owner(r), ct))
	}).Methods(http.MethodDelete)

	router.HandleFunc(base+"/notes", func(w http.ResponseWriter, r *http.Request) {
		notes, _ := decode(r)["notes"].(string)

		s.mu.Lock()
		defer s.mu.Unlock()
		ct, ok := s.carts[key(r)]
		if !ok {
			ct = &cart{}
			s.carts[key(r)] = ct
		}
		ct.notes = notes
		writeData(w, http.StatusOK, s.cartView(owner(r), ct))
	}).Methods(http.MethodPut)
}

// cartView must be called with s.mu held.
func (s *Server) cartView(owner string, ct *cart) map[string]interface{} {
	items := make([]map[string]interface{}, 0, len(ct.lines))
	for _, l := range ct.lines {
		p := s.products[l.productID]
		items = append(items, map[string]interface{}{
			"product_id": l.productID,
			"quantity":   l.quantity,
			"unit_price": p.EffectivePrice(),
			"product":    p,
		})
	}
	discount := int64(0)
	if len(items) > 0 {
		discount = s.discount
	}
	return map[string]interface{}{
		"id":              owner,
		"items":           items,
		"notes":           ct.notes,
		"discount_amount": discount,
	}
}

func (s *Server) wishlistResult(token string, productID string, action string) map[string]interface{} {
	ids := s.wishlists[token]
	return map[string]interface{}{
		"action":          action,
		"is_in_wishlist":  indexOf(ids, productID) >= 0,
		"product":         s.products[productID],
		"total_favorites": len(ids),
	}
}

func (s *Server) getWishlist(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := s.wishlists[bearer(r)]
	items := make([]map[string]interface{}, 0, len(ids))
	for _, id := range ids {
		items = append(items, map[string]interface{}{"product_id": id, "product": s.products[id]})
	}
	writeData(w, http.StatusOK, map[string]interface{}{"items": items, "total_favorites": len(ids)})
}

func (s *Server) clearWishlist(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.wishlists, bearer(r))
	writeData(w, http.StatusOK, map[string]interface{}{"items": []interface{}{}, "total_favorites": 0})
}

func (s *Server) checkWishlist(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	productID := mux.Vars(r)["productId"]
	writeData(w, http.StatusOK, map[string]interface{}{
		"is_in_wishlist": indexOf(s.wishlists[bearer(r)], productID) >= 0,
	})
}

func (s *Server) toggleWishlist(w http.ResponseWriter, r *http.Request) {
	productID, _ := decode(r)["product_id"].(string)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[productID]; !ok {
		writeFailure(w, http.StatusNotFound, "", "product not found")
		return
	}
	token := bearer(r)
	ids := s.wishlists[token]
	if i := indexOf(ids, productID); i >= 0 {
		s.wishlists[token] = append(ids[:i], ids[i+1:]...)
		writeData(w, http.StatusOK, s.wishlistResult(token, productID, "removed"))
		return
	}
	s.wishlists[token] = append(ids, productID)
	writeData(w, http.StatusOK, s.wishlistResult(token, productID, "added"))
}

func (s *Server) addWishlist(w http.ResponseWriter, r *http.Request) {
	productID, _ := decode(r)["product_id"].(string)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[productID]; !ok {
		writeFailure(w, http.StatusNotFound, "", "product not found")
		return
	}
	token := bearer(r)
	if indexOf(s.wishlists[token], productID) < 0 {
		s.wishlists[token] = append(s.wishlists[token], productID)
	}
	writeData(w, http.StatusOK, s.wishlistResult(token, productID, "added"))
}

func (s *Server) removeWishlist(w http.ResponseWriter, r *http.Request) {
	productID := mux.Vars(r)["productId"]
	s.mu.Lock()
	defer s.mu.Unlock()
	token := bearer(r)
	ids := s.wishlists[token]
	if i := indexOf(ids, productID); i >= 0 {
		s.wishlists[token] = append(ids[:i], ids[i+1:]...)
	}
	writeData(w, http.StatusOK, s.wishlistResult(token, productID, "removed"))
}

func (s *Server) createOrder(w http.ResponseWriter, r *http.Request) {
	body := decode(r)
	total, _ := body["total_amount"].(float64)
	s.mu.Lock()
	s.orderSeq++
	id := fmt.Sprintf("order-%d", s.orderSeq)
	s.mu.Unlock()
	writeData(w, http.StatusCreated, map[string]interface{}{
		"id":           id,
		"reference":    body["reference"],
		"status":       "pending",
		"total_amount": int64(total),
	})
}

func (s *Server) createSubscription(w http.ResponseWriter, r *http.Request) {
	body := decode(r)
	planID, _ := body["plan_id"].(string)
	s.mu.Lock()
	price, ok := s.plans[planID]
	s.orderSeq++
	id := fmt.Sprintf("subscription-%d", s.orderSeq)
	s.mu.Unlock()
	if !ok {
		writeFailure(w, http.StatusNotFound, "", "plan not found")
		return
	}
	writeData(w, http.StatusCreated, map[string]interface{}{
		"id":           id,
		"reference":    body["reference"],
		"status":       "pending",
		"total_amount": price,
	})
}

func (s *Server) verifyPayment(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	tx, ok := s.transactions[mux.Vars(r)["transactionId"]]
	s.mu.Unlock()
	if !ok {
		writeFailure(w, http.StatusNotFound, "", "transaction not found")
		return
	}
	writeData(w, http.StatusOK, tx)
}

func (s *Server) acknowledge(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, map[string]interface{}{"acknowledged": true})
}
