package transfer

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/punchamoorthee/sellerdash/internal/domain"
)

type TokenSender interface {
	TransferTokens(ctx context.Context, req domain.TokenTransferRequest) (*domain.Receipt, error)
}

type BoosterSender interface {
	SendBoosters(ctx context.Context, req domain.BoosterTransferRequest) (*domain.Receipt, error)
}

type (
	TokenWorkflow   = Workflow[int64]
	BoosterWorkflow = Workflow[BoosterSelection]
)

// Tokens describes a token transfer: a single positive integer amount that
// resets to zero.
func Tokens(s TokenSender) Product[int64] {
	return Product[int64]{
		Type:  domain.ProductTokens,
		Reset: func(int64) int64 { return 0 },
		Validate: func(n int64) error {
			if n <= 0 {
				return domain.Invalid("amount", "enter a valid token amount")
			}
			return nil
		},
		Quote: func(n int64) domain.QuoteRequest {
			return domain.QuoteRequest{Product: domain.ProductTokens, Amount: n}
		},
		Submit: func(ctx context.Context, to domain.RecipientRef, n int64) (*domain.Receipt, error) {
			return s.TransferTokens(ctx, domain.TokenTransferRequest{
				RecipientID:       to.ID.String(),
				RecipientPublicID: to.PublicID,
				RecipientName:     to.Name,
				Amount:            n,
			})
		},
		Describe: func(to domain.RecipientRef, n int64, q *domain.ChargeQuote) string {
			return fmt.Sprintf("transferred %s tokens (%s) to %s",
				groupThousands(n), domain.Price{Amount: q.Subtotal, Currency: q.Currency}, recipientName(to))
		},
		Estimate: func(g *domain.GroupPricing, n int64) (domain.Price, bool) {
			amount, ok := g.Estimate(domain.ProductTokens, "", n)
			if !ok {
				return domain.Price{}, false
			}
			return domain.Price{Amount: amount, Currency: g.Currency}, true
		},
		ResetOnCancel: true,
	}
}

func NewTokens(q Quoter, s TokenSender, deps Deps) *TokenWorkflow {
	deps.Quotes = q
	return New(Tokens(s), 0, deps)
}

// BoosterSelection is the booster form: one count per color and the color
// being sent. Only the selected color's count is transferred.
type BoosterSelection struct {
	Color  domain.BoosterColor
	Counts [3]int64
}

func colorIndex(c domain.BoosterColor) int {
	for i, known := range domain.BoosterColors {
		if known == c {
			return i
		}
	}
	return -1
}

func (b BoosterSelection) Count(c domain.BoosterColor) int64 {
	if i := colorIndex(c); i >= 0 {
		return b.Counts[i]
	}
	return 0
}

// Amount is the count of the selected color.
func (b BoosterSelection) Amount() int64 { return b.Count(b.Color) }

func (b BoosterSelection) MarshalJSON() ([]byte, error) {
	counts := make(map[domain.BoosterColor]int64, len(domain.BoosterColors))
	for i, c := range domain.BoosterColors {
		counts[c] = b.Counts[i]
	}
	return json.Marshal(struct {
		Color  domain.BoosterColor           `json:"color"`
		Counts map[domain.BoosterColor]int64 `json:"counts"`
	}{b.Color, counts})
}

// SelectColor switches the color being sent.
func SelectColor(c domain.BoosterColor) func(BoosterSelection) (BoosterSelection, error) {
	return func(b BoosterSelection) (BoosterSelection, error) {
		if colorIndex(c) < 0 {
			return b, domain.Invalid("color", "unknown booster color")
		}
		b.Color = c
		return b, nil
	}
}

// SetCount replaces the count of one color.
func SetCount(c domain.BoosterColor, n int64) func(BoosterSelection) (BoosterSelection, error) {
	return func(b BoosterSelection) (BoosterSelection, error) {
		i := colorIndex(c)
		if i < 0 {
			return b, domain.Invalid("color", "unknown booster color")
		}
		if n < 0 {
			return b, domain.Invalid("count", "count cannot be negative")
		}
		b.Counts[i] = n
		return b, nil
	}
}

// AdjustCount moves one color's count by delta, never below zero and
// saturating at math.MaxInt64.
func AdjustCount(c domain.BoosterColor, delta int64) func(BoosterSelection) (BoosterSelection, error) {
	return func(b BoosterSelection) (BoosterSelection, error) {
		i := colorIndex(c)
		if i < 0 {
			return b, domain.Invalid("color", "unknown booster color")
		}
		if delta > 0 && b.Counts[i] > math.MaxInt64-delta {
			b.Counts[i] = math.MaxInt64
		} else {
			b.Counts[i] = max(0, b.Counts[i]+delta)
		}
		return b, nil
	}
}

// Boosters describes a booster transfer. Finishing or cancelling zeroes
// every color and keeps the selected one.
func Boosters(s BoosterSender) Product[BoosterSelection] {
	return Product[BoosterSelection]{
		Type: domain.ProductBooster,
		Reset: func(b BoosterSelection) BoosterSelection {
			return BoosterSelection{Color: b.Color}
		},
		Validate: func(b BoosterSelection) error {
			if colorIndex(b.Color) < 0 {
				return domain.Invalid("color", "choose a booster color")
			}
			if b.Amount() <= 0 {
				return domain.Invalid("amount", "choose a valid number of boosters")
			}
			return nil
		},
		Quote: func(b BoosterSelection) domain.QuoteRequest {
			return domain.QuoteRequest{Product: domain.ProductBooster, Amount: b.Amount(), BoosterType: b.Color}
		},
		Submit: func(ctx context.Context, to domain.RecipientRef, b BoosterSelection) (*domain.Receipt, error) {
			return s.SendBoosters(ctx, domain.BoosterTransferRequest{
				RecipientID:       to.ID.String(),
				RecipientPublicID: to.PublicID,
				Type:              b.Color,
				Amount:            b.Amount(),
			})
		},
		Describe: func(to domain.RecipientRef, b BoosterSelection, q *domain.ChargeQuote) string {
			return fmt.Sprintf("sent %d %s boosters (%s) to %s",
				b.Amount(), b.Color, domain.Price{Amount: q.Subtotal, Currency: q.Currency}, recipientName(to))
		},
		Estimate: func(g *domain.GroupPricing, b BoosterSelection) (domain.Price, bool) {
			amount, ok := g.Estimate(domain.ProductBooster, b.Color, b.Amount())
			if !ok {
				return domain.Price{}, false
			}
			return domain.Price{Amount: amount, Currency: g.Currency}, true
		},
		ResetOnCancel: true,
	}
}

func NewBoosters(q Quoter, s BoosterSender, deps Deps) *BoosterWorkflow {
	deps.Quotes = q
	return New(Boosters(s), BoosterSelection{Color: domain.BoosterRed}, deps)
}

func recipientName(to domain.RecipientRef) string {
	if to.Name != "" {
		return to.Name
	}
	return "the player"
}

func groupThousands(n int64) string {
	s := fmt.Sprint(n)
	neg := n < 0
	if neg {
		s = s[1:]
	}
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	if neg {
		s = "-" + s
	}
	return s
}
