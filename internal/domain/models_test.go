package domain

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDAcceptsNumbersAndStrings(t *testing.T) {
	var p struct {
		A ID `json:"a"`
		B ID `json:"b"`
		C ID `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a": 12345, "b": "abc-1", "c": null}`), &p))
	assert.Equal(t, ID("12345"), p.A)
	assert.Equal(t, ID("abc-1"), p.B)
	assert.Equal(t, ID(""), p.C)
}

func TestChargeQuoteUnitPriceLocations(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"top level", `{"unit_price": 2, "subtotal": "10", "can_charge": true}`},
		{"nested", `{"pricing": {"unit_price": "2"}, "subtotal": 10, "can_charge": true}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var q ChargeQuote
			require.NoError(t, json.Unmarshal([]byte(tt.body), &q))
			assert.True(t, q.UnitPrice.Equal(decimal.NewFromInt(2)))
			assert.True(t, q.Subtotal.Equal(decimal.NewFromInt(10)))
			assert.True(t, q.CanCharge)
		})
	}
}

func TestGroupPricingEstimate(t *testing.T) {
	g := &GroupPricing{
		Currency: "USD",
		Prices: map[string]decimal.Decimal{
			"tokens_million": decimal.NewFromFloat(1.5),
			"booster_red":    decimal.NewFromInt(2),
		},
	}

	price, ok := g.Estimate(ProductTokens, "", 500_000)
	require.True(t, ok)
	assert.Equal(t, "0.75", price.StringFixed(2))

	price, ok = g.Estimate(ProductBooster, BoosterRed, 5)
	require.True(t, ok)
	assert.Equal(t, "10.00", price.StringFixed(2))

	_, ok = g.Estimate(ProductBooster, BoosterBlue, 5)
	assert.False(t, ok)

	var missing *GroupPricing
	_, ok = missing.Estimate(ProductTokens, "", 10)
	assert.False(t, ok)
}

func TestParseBoosterColor(t *testing.T) {
	c, err := ParseBoosterColor(" Red ")
	require.NoError(t, err)
	assert.Equal(t, BoosterRed, c)

	_, err = ParseBoosterColor("green")
	assert.Error(t, err)
}

func TestSellerProfileDefaults(t *testing.T) {
	var p SellerProfile
	p.ApplyDefaults()
	assert.Equal(t, DefaultAvatar, p.Image)
	assert.Equal(t, "USD", p.Wallet.Currency)
	assert.Equal(t, "USD", p.Pricing.Currency)
	assert.NotNil(t, p.Pricing.JawakerOffers)
	assert.True(t, p.Wallet.Balance.IsZero())
}

func TestRecipientFromNote(t *testing.T) {
	assert.Equal(t, "ahmed", RecipientFromNote("تحويل توكن للاعب #ahmed"))
	assert.Equal(t, "sara", RecipientFromNote("Token transfer to recipient: sara"))
	assert.Equal(t, "", RecipientFromNote("manual top-up"))
	assert.Equal(t, "", RecipientFromNote(""))
}

func TestHistoryNormalize(t *testing.T) {
	tt := TokenTransfer{RecipientID: "77", Type: "normal", Status: "done"}
	tt.Normalize()
	assert.Equal(t, "77", tt.RecipientName)
	assert.Equal(t, "tokens", tt.Type)
	assert.Equal(t, StatusDone, tt.Status)

	bt := BoosterTransfer{RecipientName: "x", BoosterType: "purple", Status: "pending"}
	bt.Normalize()
	assert.Equal(t, "unknown", bt.BoosterType)
	assert.Equal(t, StatusFailed, bt.Status)
}
