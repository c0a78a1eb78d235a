package seller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"unicode/utf8"

	"github.com/punchamoorthee/sellerdash/internal/domain"
)

// MinSearchLength is the shortest name the search endpoint is asked about.
const MinSearchLength = 2

func (c *Client) Me(ctx context.Context) (*domain.SellerProfile, error) {
	var resp struct {
		Data domain.SellerProfile `json:"data"`
	}
	err := c.do(ctx, call{
		op: "seller_me", method: http.MethodGet, path: "/seller/me",
		fallback: "failed to load the seller profile",
	}, &resp)
	if err != nil {
		return nil, err
	}
	resp.Data.ApplyDefaults()
	return &resp.Data, nil
}

// SearchPlayers looks players up by name. Names shorter than
// MinSearchLength yield no candidates without touching the network.
func (c *Client) SearchPlayers(ctx context.Context, name string) ([]domain.Player, error) {
	if utf8.RuneCountInString(name) < MinSearchLength {
		return nil, nil
	}
	var resp struct {
		Success bool            `json:"success"`
		Players []domain.Player `json:"players"`
	}
	err := c.do(ctx, call{
		op: "search_players", method: http.MethodGet, path: "/seller/search-players",
		query:    url.Values{"name": {name}},
		fallback: "failed to search players",
	}, &resp)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, nil
	}
	return resp.Players, nil
}

// PlayerByPublicID resolves an exact public id. A nil player with a nil
// error means no player carries that id. The endpoint answers either with
// a {success, player} envelope or with the bare player object.
func (c *Client) PlayerByPublicID(ctx context.Context, id string) (*domain.Player, error) {
	if id == "" {
		return nil, nil
	}
	var raw json.RawMessage
	err := c.do(ctx, call{
		op: "player_by_public_id", method: http.MethodGet, path: "/seller/get-player-by-public-id",
		query:    url.Values{"id": {id}},
		fallback: "failed to load the player",
	}, &raw)
	var ae *APIError
	if errors.As(err, &ae) && ae.Status == http.StatusNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Success *bool          `json:"success"`
		Player  *domain.Player `json:"player"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("player_by_public_id: decode response: %w", err)
	}
	if envelope.Success != nil {
		if !*envelope.Success || envelope.Player == nil || envelope.Player.ID == "" {
			return nil, nil
		}
		return envelope.Player, nil
	}

	var direct domain.Player
	if err := json.Unmarshal(raw, &direct); err != nil {
		return nil, fmt.Errorf("player_by_public_id: decode response: %w", err)
	}
	if direct.ID == "" {
		return nil, nil
	}
	return &direct, nil
}

// PlayerProfile loads the details shown for a player. It returns nil, nil
// when the backend has no profile for id.
func (c *Client) PlayerProfile(ctx context.Context, id domain.ID) (*domain.Player, error) {
	if id == "" {
		return nil, nil
	}
	var resp struct {
		Success bool           `json:"success"`
		Profile *domain.Player `json:"profile"`
	}
	err := c.do(ctx, call{
		op: "player_profile", method: http.MethodGet, path: "/seller/get-player-profile",
		query:    url.Values{"id": {id.String()}},
		fallback: "failed to load the player profile",
	}, &resp)
	if err != nil {
		return nil, err
	}
	if !resp.Success || resp.Profile == nil {
		return nil, nil
	}
	return resp.Profile, nil
}

func (c *Client) WillCharge(ctx context.Context, req domain.QuoteRequest) (*domain.ChargeQuote, error) {
	var resp struct {
		Data domain.ChargeQuote `json:"data"`
	}
	err := c.do(ctx, call{
		op: "will_charge", method: http.MethodPost, path: "/seller/will-charge",
		body: req, fallback: "failed to fetch pricing details",
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

func (c *Client) TransferTokens(ctx context.Context, req domain.TokenTransferRequest) (*domain.Receipt, error) {
	var receipt domain.Receipt
	err := c.do(ctx, call{
		op: "token_transfer", method: http.MethodPost, path: "/seller/token-transfers",
		body: req, fallback: "token transfer failed",
	}, &receipt)
	if err != nil {
		return nil, err
	}
	return &receipt, nil
}

func (c *Client) SendBoosters(ctx context.Context, req domain.BoosterTransferRequest) (*domain.Receipt, error) {
	var receipt domain.Receipt
	err := c.do(ctx, call{
		op: "booster_transfer", method: http.MethodPost, path: "/seller/boosters/send",
		body: req, fallback: "failed to send boosters",
	}, &receipt)
	if err != nil {
		return nil, err
	}
	return &receipt, nil
}

func (c *Client) PurchaseOffer(ctx context.Context, req domain.OfferPurchaseRequest) (*domain.Receipt, error) {
	var receipt domain.Receipt
	err := c.do(ctx, call{
		op: "offer_purchase", method: http.MethodPost, path: "/seller/jawaker-offers/purchase",
		body: req, fallback: "failed to purchase the offer",
	}, &receipt)
	if err != nil {
		return nil, err
	}
	return &receipt, nil
}

func (c *Client) Offers(ctx context.Context, page int) (*domain.OfferPage, error) {
	var resp struct {
		Data []domain.Offer   `json:"data"`
		Meta domain.Pagination `json:"meta"`
	}
	err := c.do(ctx, call{
		op: "offers", method: http.MethodGet, path: "/seller/jawaker-offers",
		query:    url.Values{"page": {strconv.Itoa(pageOrFirst(page))}},
		fallback: "failed to load jawaker offers",
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Data == nil {
		resp.Data = []domain.Offer{}
	}
	return &domain.OfferPage{Offers: resp.Data, Pagination: resp.Meta}, nil
}

type paginated[T any] struct {
	Data        []T    `json:"data"`
	CurrentPage int    `json:"current_page"`
	LastPage    int    `json:"last_page"`
	PerPage     int    `json:"per_page"`
	Total       int    `json:"total"`
	NextPageURL string `json:"next_page_url"`
	PrevPageURL string `json:"prev_page_url"`
}

func (p paginated[T]) pagination() domain.Pagination {
	return domain.Pagination{
		CurrentPage: p.CurrentPage,
		LastPage:    p.LastPage,
		PerPage:     p.PerPage,
		Total:       p.Total,
		NextPageURL: p.NextPageURL,
		PrevPageURL: p.PrevPageURL,
	}
}

func (c *Client) TokenTransfers(ctx context.Context, f domain.TokenTransferFilter) (*domain.TokenTransferPage, error) {
	q := url.Values{"page": {strconv.Itoa(pageOrFirst(f.Page))}}
	setIf(q, "from", f.From)
	setIf(q, "to", f.To)
	setIf(q, "on", f.On)
	setIf(q, "q", f.Q)

	var resp struct {
		Data paginated[domain.TokenTransfer] `json:"data"`
	}
	err := c.do(ctx, call{
		op: "token_transfer_history", method: http.MethodGet, path: "/seller/token-transfers",
		query: q, fallback: "failed to load the transfer history",
	}, &resp)
	if err != nil {
		return nil, err
	}
	rows := make([]domain.TokenTransfer, len(resp.Data.Data))
	for i, t := range resp.Data.Data {
		t.Normalize()
		rows[i] = t
	}
	return &domain.TokenTransferPage{Transfers: rows, Pagination: resp.Data.pagination()}, nil
}

func (c *Client) Boosters(ctx context.Context, f domain.BoosterFilter) (*domain.BoosterPage, error) {
	q := url.Values{"page": {strconv.Itoa(pageOrFirst(f.Page))}}
	setIf(q, "from", f.From)
	setIf(q, "to", f.To)

	var resp struct {
		Data struct {
			Balances *domain.BoosterBalances          `json:"balances"`
			History  paginated[domain.BoosterTransfer] `json:"history"`
		} `json:"data"`
	}
	err := c.do(ctx, call{
		op: "booster_history", method: http.MethodGet, path: "/seller/boosters",
		query: q, fallback: "failed to load the booster history",
	}, &resp)
	if err != nil {
		return nil, err
	}
	page := &domain.BoosterPage{
		Transfers:  make([]domain.BoosterTransfer, len(resp.Data.History.Data)),
		Pagination: resp.Data.History.pagination(),
	}
	if resp.Data.Balances != nil {
		page.Balances = *resp.Data.Balances
	}
	for i, b := range resp.Data.History.Data {
		b.Normalize()
		page.Transfers[i] = b
	}
	return page, nil
}

// BalanceHistory lists wallet movements. The endpoint is not paginated, so
// the result is reported as a single page.
func (c *Client) BalanceHistory(ctx context.Context, page int) (*domain.BalancePage, error) {
	var resp struct {
		Data []domain.BalanceEntry `json:"data"`
	}
	err := c.do(ctx, call{
		op: "balance_history", method: http.MethodGet, path: "/seller/balance-history",
		query:    url.Values{"page": {strconv.Itoa(pageOrFirst(page))}},
		fallback: "failed to load the balance history",
	}, &resp)
	if err != nil {
		return nil, err
	}
	entries := make([]domain.BalanceEntry, len(resp.Data))
	for i, e := range resp.Data {
		e.Normalize()
		entries[i] = e
	}
	return &domain.BalancePage{
		Entries: entries,
		Pagination: domain.Pagination{
			CurrentPage: 1,
			LastPage:    1,
			PerPage:     len(entries),
			Total:       len(entries),
		},
	}, nil
}

func (c *Client) SendOTP(ctx context.Context, phone string) (*domain.Receipt, error) {
	var receipt domain.Receipt
	err := c.do(ctx, call{
		op: "send_otp", method: http.MethodPost, path: "/seller/send-otp",
		body: map[string]string{"phone": phone}, public: true,
		fallback: "failed to send the verification code",
	}, &receipt)
	if err != nil {
		return nil, err
	}
	return &receipt, nil
}

// VerifyOTP exchanges a one-time code for an auth token.
func (c *Client) VerifyOTP(ctx context.Context, phone, otp string) (string, error) {
	var resp struct {
		Token   string `json:"token"`
		Message string `json:"message"`
	}
	err := c.do(ctx, call{
		op: "verify_otp", method: http.MethodPost, path: "/seller/verify-otp",
		body: map[string]string{"phone": phone, "otp": otp}, public: true,
		fallback: "failed to verify the code",
	}, &resp)
	if err != nil {
		return "", err
	}
	if resp.Token == "" {
		msg := resp.Message
		if msg == "" {
			msg = "verification did not return a token"
		}
		return "", &APIError{Status: http.StatusOK, Message: msg}
	}
	return resp.Token, nil
}

func pageOrFirst(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

func setIf(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}
