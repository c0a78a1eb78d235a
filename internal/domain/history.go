package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

type Pagination struct {
	CurrentPage int    `json:"current_page"`
	LastPage    int    `json:"last_page"`
	PerPage     int    `json:"per_page"`
	Total       int    `json:"total"`
	NextPageURL string `json:"next_page_url,omitempty"`
	PrevPageURL string `json:"prev_page_url,omitempty"`
}

// Offer is a Jawaker promotional offer with a fixed, published price.
type Offer struct {
	ID               ID              `json:"id"`
	ExternalOfferID  ID              `json:"external_offer_id"`
	Description      string          `json:"description"`
	Image            string          `json:"image,omitempty"`
	SellerPrice      decimal.Decimal `json:"seller_price"`
	SellerPriceMoney string          `json:"seller_price_money,omitempty"`
	Currency         string          `json:"currency,omitempty"`
	MaxPerUser       int             `json:"max_per_user"`
	EndsAt           string          `json:"ends_at"`
}

type OfferPage struct {
	Offers     []Offer    `json:"offers"`
	Pagination Pagination `json:"pagination"`
}

const (
	StatusDone   = "Done"
	StatusFailed = "Failed"
)

func normalizeStatus(s string) string {
	if s == "done" {
		return StatusDone
	}
	return StatusFailed
}

// TokenTransfer is one row of the token transfer history.
type TokenTransfer struct {
	ID            ID              `json:"id"`
	RecipientID   ID              `json:"recipient_id"`
	RecipientName string          `json:"recipient_name,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Type          string          `json:"type"`
	Status        string          `json:"status"`
	CreatedAt     string          `json:"created_at"`
}

// Normalize rewrites the wire values into their display form.
func (t *TokenTransfer) Normalize() {
	if t.RecipientName == "" {
		t.RecipientName = t.RecipientID.String()
	}
	if t.Type == "normal" {
		t.Type = string(ProductTokens)
	}
	t.Status = normalizeStatus(t.Status)
}

type TokenTransferFilter struct {
	Page int
	From string
	To   string
	On   string
	Q    string
}

type TokenTransferPage struct {
	Transfers  []TokenTransfer `json:"transfers"`
	Pagination Pagination      `json:"pagination"`
}

// BoosterTransfer is one row of the booster history.
type BoosterTransfer struct {
	ID            ID              `json:"id"`
	RecipientID   ID              `json:"recipient_id"`
	RecipientName string          `json:"recipient_name,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	BoosterType   string          `json:"booster_type"`
	Status        string          `json:"status"`
	CreatedAt     string          `json:"created_at"`
}

func (b *BoosterTransfer) Normalize() {
	if b.RecipientName == "" {
		b.RecipientName = b.RecipientID.String()
	}
	if _, err := ParseBoosterColor(b.BoosterType); err != nil {
		b.BoosterType = "unknown"
	}
	b.Status = normalizeStatus(b.Status)
}

type BoosterBalances struct {
	Red   int64 `json:"red"`
	Blue  int64 `json:"blue"`
	Black int64 `json:"black"`
}

type BoosterFilter struct {
	Page int
	From string
	To   string
}

type BoosterPage struct {
	Balances   BoosterBalances   `json:"balances"`
	Transfers  []BoosterTransfer `json:"transfers"`
	Pagination Pagination        `json:"pagination"`
}

// BalanceEntry is one movement of the seller wallet.
type BalanceEntry struct {
	ID                ID              `json:"id"`
	Type              string          `json:"type"`
	Amount            decimal.Decimal `json:"amount"`
	BalanceBefore     decimal.Decimal `json:"balance_before"`
	BalanceAfter      decimal.Decimal `json:"balance_after"`
	Note              string          `json:"note"`
	CreatedAt         string          `json:"created_at"`
	RecipientUsername string          `json:"recipient_username,omitempty"`
}

const (
	arabicTransferNote  = "تحويل توكن للاعب #"
	englishTransferNote = "Token transfer to recipient:"
)

// RecipientFromNote extracts the recipient username embedded in a wallet
// movement note. It returns "" when the note names no recipient.
func RecipientFromNote(note string) string {
	switch {
	case strings.Contains(note, arabicTransferNote):
		_, after, _ := strings.Cut(note, "#")
		return strings.TrimSpace(after)
	case strings.Contains(note, englishTransferNote):
		_, after, _ := strings.Cut(note, "recipient:")
		return strings.TrimSpace(after)
	}
	return ""
}

func (e *BalanceEntry) Normalize() {
	if e.Type == "" {
		e.Type = "unknown"
	}
	e.RecipientUsername = RecipientFromNote(e.Note)
}

type BalancePage struct {
	Entries    []BalanceEntry `json:"entries"`
	Pagination Pagination     `json:"pagination"`
}
