package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ID is an opaque backend identifier. The seller API emits ids both as
// JSON numbers and as strings, so both forms decode into the same value.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// Player is a candidate transfer recipient returned by search or lookup.
type Player struct {
	ID             ID     `json:"id"`
	Username       string `json:"username"`
	Level          int    `json:"level"`
	AvatarURL      string `json:"avatar_url"`
	Country        string `json:"country"`
	Group          string `json:"group"`
	TotalExpPoints int64  `json:"total_exp_points"`
	FriendsCount   int    `json:"friends_count"`
}

// RecipientRef identifies the target of a transfer. PublicID is only set
// when the player was resolved through the numeric ID lookup.
type RecipientRef struct {
	ID       ID
	PublicID string
	Name     string
}

func (r RecipientRef) Empty() bool { return r.ID == "" }

type Wallet struct {
	Balance  decimal.Decimal `json:"balance"`
	Currency string          `json:"currency"`
}

type GroupPricing struct {
	Currency string                     `json:"currency"`
	Prices   map[string]decimal.Decimal `json:"prices"`
}

type Pricing struct {
	Currency      string            `json:"currency"`
	JawakerOffers []json.RawMessage `json:"jawaker_offers"`
	GroupPricing  *GroupPricing     `json:"group_pricing"`
}

// SellerProfile is the authenticated seller's account summary.
type SellerProfile struct {
	ID      ID      `json:"id"`
	Name    string  `json:"name"`
	Image   string  `json:"image"`
	Wallet  Wallet  `json:"wallet"`
	Pricing Pricing `json:"pricing"`
}

const (
	DefaultAvatar   = "/images/default-avatar.png"
	DefaultCurrency = "USD"
)

// ApplyDefaults fills the fields the backend is allowed to omit.
func (p *SellerProfile) ApplyDefaults() {
	if p.Image == "" {
		p.Image = DefaultAvatar
	}
	if p.Wallet.Currency == "" {
		p.Wallet.Currency = DefaultCurrency
	}
	if p.Pricing.Currency == "" {
		p.Pricing.Currency = DefaultCurrency
	}
	if p.Pricing.JawakerOffers == nil {
		p.Pricing.JawakerOffers = []json.RawMessage{}
	}
}

// Price is an amount of money in a currency.
type Price struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

func (p Price) String() string {
	return p.Amount.StringFixed(2) + " " + p.Currency
}

var million = decimal.NewFromInt(1_000_000)

// Estimate computes a preview price from the group price list. It is only
// a hint for the form; the confirmation step always shows the quote.
func (g *GroupPricing) Estimate(product ProductType, color BoosterColor, qty int64) (decimal.Decimal, bool) {
	if g == nil || qty <= 0 {
		return decimal.Zero, false
	}
	switch product {
	case ProductTokens:
		p, ok := g.Prices["tokens_million"]
		if !ok {
			return decimal.Zero, false
		}
		return decimal.NewFromInt(qty).Div(million).Mul(p).Round(2), true
	case ProductBooster:
		p, ok := g.Prices["booster_"+string(color)]
		if !ok {
			return decimal.Zero, false
		}
		return p.Mul(decimal.NewFromInt(qty)).Round(2), true
	}
	return decimal.Zero, false
}

type ProductType string

const (
	ProductTokens  ProductType = "tokens"
	ProductBooster ProductType = "booster"
)

type BoosterColor string

const (
	BoosterRed   BoosterColor = "red"
	BoosterBlue  BoosterColor = "blue"
	BoosterBlack BoosterColor = "black"
)

// BoosterColors lists the colors in their canonical order.
var BoosterColors = []BoosterColor{BoosterRed, BoosterBlue, BoosterBlack}

func ParseBoosterColor(s string) (BoosterColor, error) {
	c := BoosterColor(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range BoosterColors {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown booster color %q", s)
}

// TokenPresets are the quick-pick amounts offered by the token form.
var TokenPresets = []int64{
	100_000, 200_000, 300_000, 500_000, 825_000,
	1_000_000, 2_000_000, 3_000_000, 5_000_000, 10_000_000,
}

// QuoteRequest is the will-charge payload.
type QuoteRequest struct {
	Product     ProductType  `json:"product"`
	Amount      int64        `json:"amount"`
	BoosterType BoosterColor `json:"booster_type,omitempty"`
}

// ChargeQuote is the backend's authoritative price and affordability check.
type ChargeQuote struct {
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	Currency     string          `json:"currency"`
	Wallet       Wallet          `json:"wallet"`
	WillDeduct   decimal.Decimal `json:"will_deduct"`
	AfterBalance decimal.Decimal `json:"after_balance"`
	CanCharge    bool            `json:"can_charge"`
	Missing      decimal.Decimal `json:"missing"`
}

// UnmarshalJSON accepts the unit price at the top level or nested under
// "pricing", both of which the backend has been seen to send.
func (q *ChargeQuote) UnmarshalJSON(b []byte) error {
	type plain ChargeQuote
	var wire struct {
		plain
		Pricing *struct {
			UnitPrice *decimal.Decimal `json:"unit_price"`
		} `json:"pricing"`
	}
	if err := json.Unmarshal(b, &wire); err != nil {
		return err
	}
	*q = ChargeQuote(wire.plain)
	if q.UnitPrice.IsZero() && wire.Pricing != nil && wire.Pricing.UnitPrice != nil {
		q.UnitPrice = *wire.Pricing.UnitPrice
	}
	return nil
}

// Receipt is what a successful mutation returns.
type Receipt struct {
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// TokenTransferRequest is the canonical token transfer payload.
type TokenTransferRequest struct {
	RecipientID       string `json:"recipient_id"`
	RecipientPublicID string `json:"recipient_public_id,omitempty"`
	RecipientName     string `json:"recipient_name,omitempty"`
	Amount            int64  `json:"amount"`
}

// BoosterTransferRequest is the canonical booster transfer payload.
type BoosterTransferRequest struct {
	RecipientID       string       `json:"recipient_id"`
	RecipientPublicID string       `json:"recipient_public_id,omitempty"`
	Type              BoosterColor `json:"type"`
	Amount            int64        `json:"amount"`
}

type OfferPurchaseRequest struct {
	RecipientID     string `json:"recipient_id"`
	ExternalOfferID string `json:"external_offer_id"`
}
