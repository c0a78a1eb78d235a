// Package sellertest provides an in-process fake of the remote seller API
// for tests and local development.
package sellertest

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/punchamoorthee/sellerdash/internal/domain"
)

const (
	DefaultToken = "test-token"
	DefaultOTP   = "1234"
)

// Request is one call received by the fake.
type Request struct {
	Method string
	Path   string
	Query  map[string]string
	Body   map[string]any
}

type response struct {
	status int
	body   any
}

type hold struct {
	entered chan struct{}
	release chan struct{}
}

// Fake serves the subset of the seller API the dashboard consumes. Quotes
// are priced at 2 per booster and 1.5 per million tokens against an
// in-memory wallet that successful transfers debit.
type Fake struct {
	*httptest.Server
	Token string
	OTP   string

	mu        sync.Mutex
	requests  []Request
	balance   decimal.Decimal
	players   []domain.Player
	offers    []domain.Offer
	publicIDs map[string]domain.Player

	categories []domain.Category
	products   map[domain.ID][]domain.CatalogProduct
	variants   map[domain.ID][]domain.Variant
	orders     []domain.Order

	quote     func(domain.QuoteRequest) map[string]any
	overrides map[string]response
	holds     map[string]*hold
}

// New starts a fake that is closed when the test ends.
func New(t testing.TB) *Fake {
	f := Start("")
	t.Cleanup(f.Close)
	return f
}

// Start serves the fake on addr, or on a random loopback port when addr is
// empty. The caller closes it.
func Start(addr string) *Fake {
	f := &Fake{
		Token:     DefaultToken,
		OTP:       DefaultOTP,
		balance:   decimal.NewFromInt(100),
		publicIDs: map[string]domain.Player{},
		products:  map[domain.ID][]domain.CatalogProduct{},
		variants:  map[domain.ID][]domain.Variant{},
		overrides: map[string]response{},
		holds:     map[string]*hold{},
	}
	f.Server = httptest.NewUnstartedServer(http.HandlerFunc(f.serve))
	if addr != "" {
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			panic(fmt.Sprintf("sellertest: listen on %s: %v", addr, err))
		}
		f.Server.Listener.Close()
		f.Server.Listener = ln
	}
	f.Server.Start()
	return f
}

func (f *Fake) SetBalance(b decimal.Decimal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balance = b
}

func (f *Fake) Balance() decimal.Decimal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balance
}

func (f *Fake) AddPlayers(ps ...domain.Player) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.players = append(f.players, ps...)
}

func (f *Fake) SetPublicID(id string, p domain.Player) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.publicIDs[id] = p
}

func (f *Fake) SetOffers(offers ...domain.Offer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.offers = offers
}

// AddCategory lists a catalog category together with its products.
func (f *Fake) AddCategory(c domain.Category, products ...domain.CatalogProduct) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c.ProductsCount = len(products)
	f.categories = append(f.categories, c)
	f.products[c.ID] = append(f.products[c.ID], products...)
}

func (f *Fake) SetVariants(productID domain.ID, vs ...domain.Variant) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.variants[productID] = vs
}

// Orders returns the orders created so far.
func (f *Fake) Orders() []domain.Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Order{}, f.orders...)
}

// SetQuote replaces the default will-charge pricing.
func (f *Fake) SetQuote(fn func(domain.QuoteRequest) map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.quote = fn
}

// Respond makes every method+path call answer with status and body until
// Reset is called.
func (f *Fake) Respond(method, path string, status int, body any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.overrides[method+" "+path] = response{status: status, body: body}
}

func (f *Fake) Reset(method, path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.overrides, method+" "+path)
}

// Hold parks calls to method+path until release is called. entered is
// signalled once per parked call.
func (f *Fake) Hold(method, path string) (entered <-chan struct{}, release func()) {
	h := &hold{entered: make(chan struct{}, 16), release: make(chan struct{})}
	f.mu.Lock()
	f.holds[method+" "+path] = h
	f.mu.Unlock()
	var once sync.Once
	return h.entered, func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.holds, method+" "+path)
			f.mu.Unlock()
			close(h.release)
		})
	}
}

func (f *Fake) Requests(method, path string) []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Request
	for _, r := range f.requests {
		if r.Method == method && r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

func (f *Fake) Count(method, path string) int {
	return len(f.Requests(method, path))
}

func (f *Fake) serve(w http.ResponseWriter, r *http.Request) {
	rec := Request{Method: r.Method, Path: r.URL.Path, Query: map[string]string{}}
	for k := range r.URL.Query() {
		rec.Query[k] = r.URL.Query().Get(k)
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&rec.Body)
	}

	key := r.Method + " " + r.URL.Path
	f.mu.Lock()
	f.requests = append(f.requests, rec)
	h := f.holds[key]
	override, overridden := f.overrides[key]
	f.mu.Unlock()

	if h != nil {
		h.entered <- struct{}{}
		<-h.release
	}

	public := strings.HasSuffix(r.URL.Path, "-otp")
	if !public && r.Header.Get("Authorization") != "Bearer "+f.Token {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Unauthenticated."})
		return
	}
	if overridden {
		writeJSON(w, override.status, override.body)
		return
	}

	if r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, ordersPath+"/") {
		f.orderDetails(w, strings.TrimPrefix(r.URL.Path, ordersPath+"/"))
		return
	}

	switch key {
	case "GET /seller/me":
		writeJSON(w, http.StatusOK, map[string]any{"data": f.profile()})
	case "GET /seller/search-players":
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "players": f.search(rec.Query["name"])})
	case "GET /seller/get-player-by-public-id":
		f.mu.Lock()
		p, ok := f.publicIDs[rec.Query["id"]]
		f.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": "player not found"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "player": p})
	case "GET /seller/get-player-profile":
		p, ok := f.player(domain.ID(rec.Query["id"]))
		if !ok {
			writeJSON(w, http.StatusOK, map[string]any{"success": false, "profile": nil})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "profile": p})
	case "POST /seller/will-charge":
		writeJSON(w, http.StatusOK, map[string]any{"data": f.charge(rec.Body)})
	case "POST /seller/token-transfers", "POST /seller/boosters/send":
		f.debit(rec.Body)
		writeJSON(w, http.StatusOK, map[string]any{"message": "transfer completed", "data": rec.Body})
	case "POST /seller/jawaker-offers/purchase":
		writeJSON(w, http.StatusOK, map[string]any{"message": "offer purchased"})
	case "GET /seller/jawaker-offers":
		f.mu.Lock()
		offers := append([]domain.Offer{}, f.offers...)
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{
			"data": offers,
			"meta": map[string]any{"current_page": 1, "last_page": 1, "per_page": 10, "total": len(offers)},
		})
	case "GET /seller/token-transfers":
		writeJSON(w, http.StatusOK, map[string]any{"data": emptyPage()})
	case "GET /seller/boosters":
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{
			"balances": map[string]any{"red": 0, "blue": 0, "black": 0},
			"history":  emptyPage(),
		}})
	case "GET /seller/balance-history":
		writeJSON(w, http.StatusOK, map[string]any{"data": []any{}})
	case "GET /seller/multi-provider/categories":
		f.mu.Lock()
		cats := append([]domain.Category{}, f.categories...)
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": cats})
	case "GET /seller/multi-provider/products":
		f.mu.Lock()
		ps := append([]domain.CatalogProduct{}, f.products[domain.ID(rec.Query["category_id"])]...)
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": ps})
	case "GET /seller/multi-provider/variants":
		f.mu.Lock()
		vs := append([]domain.Variant{}, f.variants[domain.ID(rec.Query["product_id"])]...)
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": vs})
	case "GET " + ordersPath:
		f.mu.Lock()
		orders := append([]domain.Order{}, f.orders...)
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{
			"data": orders, "current_page": 1, "last_page": 1, "per_page": 20, "total": len(orders),
		}})
	case "POST " + ordersPath:
		f.createOrder(w, rec.Body)
	case "POST /seller/send-otp":
		writeJSON(w, http.StatusOK, map[string]any{"message": "code sent"})
	case "POST /seller/verify-otp":
		if otp, _ := rec.Body["otp"].(string); otp != f.OTP {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"message": "invalid code"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"token": f.Token})
	default:
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "not found"})
	}
}

const ordersPath = "/seller/multi-provider/orders"

func (f *Fake) createOrder(w http.ResponseWriter, body map[string]any) {
	variantID := domain.ID(stringOf(body["product_variant_id"]))
	if n, ok := body["product_variant_id"].(float64); ok {
		variantID = domain.ID(strconv.FormatFloat(n, 'f', -1, 64))
	}
	qty := int64(number(body["quantity"]))

	f.mu.Lock()
	defer f.mu.Unlock()
	var variant *domain.Variant
	for _, vs := range f.variants {
		for _, v := range vs {
			if v.ID == variantID {
				variant = &v
			}
		}
	}
	if variant == nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"errors": map[string][]string{"product_variant_id": {"The selected product variant id is invalid."}},
		})
		return
	}

	data := map[string]any{}
	if raw, ok := body["delivery_data"].(map[string]any); ok {
		data = raw
	}
	total := variant.Total(qty)
	f.balance = f.balance.Sub(total)
	n := len(f.orders) + 1
	order := domain.Order{
		ID:             domain.ID(fmt.Sprint(n)),
		OrderNumber:    fmt.Sprintf("MP-%05d", n),
		ProductVariant: variant,
		Quantity:       qty,
		TotalPrice:     total,
		DeliveryData:   data,
		UserStatus:     domain.OrderPending,
		SystemStatus:   "queued",
		StatusLogs:     []domain.OrderStatusLog{{NewStatus: domain.OrderPending}},
	}
	f.orders = append(f.orders, order)
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "message": "order created successfully", "data": order})
}

func (f *Fake) orderDetails(w http.ResponseWriter, id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.orders {
		if o.ID.String() == id {
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": o})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]any{"message": "No query results."})
}

func emptyPage() map[string]any {
	return map[string]any{"data": []any{}, "current_page": 1, "last_page": 1, "per_page": 10, "total": 0}
}

func (f *Fake) profile() map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return map[string]any{
		"id":     7,
		"name":   "Test Seller",
		"wallet": map[string]any{"balance": f.balance.String(), "currency": "USD"},
		"pricing": map[string]any{
			"currency": "USD",
			"group_pricing": map[string]any{
				"currency": "USD",
				"prices": map[string]any{
					"tokens_million": 1.5,
					"booster_red":    2,
					"booster_blue":   2,
					"booster_black":  2,
				},
			},
		},
	}
}

func (f *Fake) player(id domain.ID) (domain.Player, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.players {
		if p.ID == id {
			return p, true
		}
	}
	return domain.Player{}, false
}

func (f *Fake) search(name string) []domain.Player {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.Player{}
	for _, p := range f.players {
		if strings.Contains(strings.ToLower(p.Username), strings.ToLower(name)) {
			out = append(out, p)
		}
	}
	return out
}

func price(body map[string]any) (unit, subtotal decimal.Decimal) {
	amount := decimal.NewFromFloat(number(body["amount"]))
	if body["product"] == string(domain.ProductTokens) {
		unit = decimal.NewFromFloat(1.5)
		return unit, amount.Div(decimal.NewFromInt(1_000_000)).Mul(unit).Round(2)
	}
	unit = decimal.NewFromInt(2)
	return unit, amount.Mul(unit)
}

func (f *Fake) charge(body map[string]any) map[string]any {
	f.mu.Lock()
	custom := f.quote
	balance := f.balance
	f.mu.Unlock()

	if custom != nil {
		req := domain.QuoteRequest{
			Product:     domain.ProductType(stringOf(body["product"])),
			Amount:      int64(number(body["amount"])),
			BoosterType: domain.BoosterColor(stringOf(body["booster_type"])),
		}
		return custom(req)
	}

	unit, subtotal := price(body)
	canCharge := balance.GreaterThanOrEqual(subtotal)
	missing := decimal.Zero
	if !canCharge {
		missing = subtotal.Sub(balance)
	}
	return map[string]any{
		"unit_price":    unit.String(),
		"subtotal":      subtotal.String(),
		"currency":      "USD",
		"wallet":        map[string]any{"balance": balance.String()},
		"will_deduct":   subtotal.String(),
		"after_balance": balance.Sub(subtotal).String(),
		"can_charge":    canCharge,
		"missing":       missing.String(),
	}
}

func (f *Fake) debit(body map[string]any) {
	product := domain.ProductBooster
	if _, isBooster := body["type"]; !isBooster {
		product = domain.ProductTokens
	}
	_, subtotal := price(map[string]any{"product": string(product), "amount": body["amount"]})
	f.mu.Lock()
	f.balance = f.balance.Sub(subtotal)
	f.mu.Unlock()
}

func number(v any) float64 {
	n, _ := v.(float64)
	return n
}

func stringOf(v any) string {
	s, _ := v.(string)
	return s
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}
