package catalog_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/punchamoorthee/sellerdash/internal/catalog"
	"github.com/punchamoorthee/sellerdash/internal/domain"
	"github.com/punchamoorthee/sellerdash/internal/notify"
	"github.com/punchamoorthee/sellerdash/internal/profile"
	"github.com/punchamoorthee/sellerdash/internal/seller"
	"github.com/punchamoorthee/sellerdash/internal/sellertest"
	"github.com/punchamoorthee/sellerdash/internal/transfer"
)

const ordersPath = "/seller/multi-provider/orders"

var (
	ucPack = domain.Variant{
		ID: "10", Name: "60 UC", Price: decimal.NewFromFloat(0.99), ProductType: domain.VariantPackage,
		RequiredData: []domain.DeliveryField{{Key: "player_id", Label: "Player ID", Required: true}},
	}
	diamonds = domain.Variant{
		ID: "20", Name: "Diamonds", Price: decimal.NewFromInt(2), ProductType: domain.VariantAmount,
		BaseAmount:     100,
		QtyConstraints: &domain.QtyConstraints{Min: 100, Max: 5000, Step: 50},
		RequiredData:   []domain.DeliveryField{
			{Key: "player_id", Required: true},
			{Key: "server", Label: "Server"},
		},
	}
)

type harness struct {
	fake    *sellertest.Fake
	browser *catalog.Browser
	profile *profile.Cache
	notes   *notify.Center
	form    *catalog.Form
}

func setup(t *testing.T) *harness {
	f := sellertest.New(t)
	f.AddCategory(domain.Category{ID: "1", Name: "Games"}, domain.CatalogProduct{ID: "7", Name: "PUBG"})
	f.SetVariants("7", ucPack, diamonds)

	client := seller.New(f.URL, f.Token)
	h := &harness{
		fake:    f,
		browser: catalog.NewBrowser(client, 0, nil),
		profile: profile.New(client, nil),
		notes:   notify.New(0, nil),
	}
	h.form = catalog.NewForm(h.browser, client, h.profile, h.notes, nil)
	return h
}

func TestVariantPricing(t *testing.T) {
	assert.Equal(t, "2.97", ucPack.Total(3).StringFixed(2))
	assert.Equal(t, "5.00", diamonds.Total(250).StringFixed(2))
}

func TestVariantQuantityConstraints(t *testing.T) {
	cases := []struct {
		v   domain.Variant
		qty int64
		ok  bool
	}{
		{ucPack, 0, false},
		{ucPack, 9999, true},
		{diamonds, 50, false},
		{diamonds, 100, true},
		{diamonds, 125, false},
		{diamonds, 150, true},
		{diamonds, 5050, false},
	}
	for _, tc := range cases {
		err := tc.v.CheckQuantity(tc.qty)
		if tc.ok {
			assert.NoError(t, err, "%s x%d", tc.v.Name, tc.qty)
		} else {
			assert.Error(t, err, "%s x%d", tc.v.Name, tc.qty)
		}
	}
}

func TestChooseInitialisesDeliveryData(t *testing.T) {
	h := setup(t)
	require.NoError(t, h.form.Choose(context.Background(), "7", "20"))

	s := h.form.Snapshot()
	assert.Equal(t, map[string]string{"player_id": "", "server": ""}, s.DeliveryData)
	assert.Equal(t, domain.ID("7"), s.ProductID)
	require.NotNil(t, s.Variant)
	assert.Equal(t, "Diamonds", s.Variant.Name)

	err := h.form.SetField("email", "x@y.z")
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "email", ve.Field)
}

func TestSubmitValidatesLocally(t *testing.T) {
	h := setup(t)
	ctx := context.Background()
	var ve *domain.ValidationError

	_, err := h.form.Submit(ctx)
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "variant", ve.Field)

	require.NoError(t, h.form.Choose(ctx, "7", "20"))
	require.NoError(t, h.form.SetQuantity(125))
	_, err = h.form.Submit(ctx)
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "quantity", ve.Field)

	s := h.form.Snapshot()
	assert.Contains(t, s.Errors, "quantity")
	assert.Equal(t, "player_id is required", s.Errors["player_id"])
	assert.NotContains(t, s.Errors, "server")
	assert.Zero(t, h.fake.Count(http.MethodPost, ordersPath))

	require.NoError(t, h.form.SetField("player_id", "5123"))
	assert.NotContains(t, h.form.Snapshot().Errors, "player_id")
}

func TestSubmitPlacesOrderAndResets(t *testing.T) {
	h := setup(t)
	ctx := context.Background()
	_, err := h.profile.Get(ctx)
	require.NoError(t, err)

	require.NoError(t, h.form.Choose(ctx, "7", "10"))
	require.NoError(t, h.form.SetQuantity(3))
	require.NoError(t, h.form.SetField("player_id", "5123"))
	assert.Equal(t, "2.97 USD", h.form.Snapshot().Total.String())

	receipt, err := h.form.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, "order created successfully", receipt.Message)

	sent := h.fake.Requests(http.MethodPost, ordersPath)
	require.Len(t, sent, 1)
	assert.Equal(t, float64(10), sent[0].Body["product_variant_id"])
	assert.Equal(t, float64(3), sent[0].Body["quantity"])
	assert.Equal(t, map[string]any{"player_id": "5123"}, sent[0].Body["delivery_data"])

	s := h.form.Snapshot()
	assert.Equal(t, transfer.StateSucceeded, s.State)
	assert.Nil(t, s.Variant)
	assert.Equal(t, int64(1), s.Quantity)
	_, cached := h.profile.Peek()
	assert.False(t, cached)

	notes := h.notes.Drain()
	require.Len(t, notes, 1)
	assert.Equal(t, notify.LevelSuccess, notes[0].Level)
	assert.Len(t, h.fake.Orders(), 1)
}

func TestSubmitFailureKeepsForm(t *testing.T) {
	h := setup(t)
	ctx := context.Background()
	h.fake.Respond(http.MethodPost, ordersPath, http.StatusUnprocessableEntity, map[string]any{
		"errors": map[string][]string{
			"quantity":      {"The quantity is too large."},
			"delivery_data": {"The player id is invalid."},
		},
	})

	require.NoError(t, h.form.Choose(ctx, "7", "10"))
	require.NoError(t, h.form.SetField("player_id", "0"))
	_, err := h.form.Submit(ctx)
	var ae *seller.APIError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "The player id is invalid., The quantity is too large.", ae.Message)

	s := h.form.Snapshot()
	assert.Equal(t, transfer.StateFailed, s.State)
	assert.Equal(t, ae.Message, s.Error)
	require.NotNil(t, s.Variant)
	assert.Equal(t, "0", s.DeliveryData["player_id"])

	notes := h.notes.Drain()
	require.Len(t, notes, 1)
	assert.Equal(t, notify.LevelError, notes[0].Level)
}

func TestCancelResetsForm(t *testing.T) {
	h := setup(t)
	require.NoError(t, h.form.Choose(context.Background(), "7", "10"))
	require.NoError(t, h.form.Cancel())

	s := h.form.Snapshot()
	assert.Equal(t, transfer.StateIdle, s.State)
	assert.Nil(t, s.Variant)
	assert.Empty(t, s.DeliveryData)
}
