package offer_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/punchamoorthee/sellerdash/internal/domain"
	"github.com/punchamoorthee/sellerdash/internal/notify"
	"github.com/punchamoorthee/sellerdash/internal/offer"
	"github.com/punchamoorthee/sellerdash/internal/profile"
	"github.com/punchamoorthee/sellerdash/internal/recipient"
	"github.com/punchamoorthee/sellerdash/internal/seller"
	"github.com/punchamoorthee/sellerdash/internal/sellertest"
	"github.com/punchamoorthee/sellerdash/internal/transfer"
)

const pathPurchase = "/seller/jawaker-offers/purchase"

type harness struct {
	fake     *sellertest.Fake
	resolver *recipient.Resolver
	notes    *notify.Center
	purchase *offer.Purchase
}

func setup(t *testing.T) *harness {
	f := sellertest.New(t)
	f.AddPlayers(domain.Player{ID: "4", Username: "sara"})
	f.SetOffers(
		domain.Offer{ID: "1", ExternalOfferID: "ext-1", Description: "Weekend pack", SellerPrice: decimal.NewFromInt(500_000)},
		domain.Offer{ID: "2", ExternalOfferID: "ext-2", Description: "Gold pack", SellerPrice: decimal.NewFromInt(2_000_000)},
	)
	client := seller.New(f.URL, f.Token)
	h := &harness{fake: f, resolver: recipient.New(client, nil), notes: notify.New(0, nil)}
	h.purchase = offer.New(client, transfer.Deps{
		Recipients: h.resolver,
		Profile:    profile.New(client, nil),
		Notify:     h.notes,
	})
	return h
}

func TestPurchaseFlow(t *testing.T) {
	h := setup(t)
	ctx := context.Background()

	page, err := h.purchase.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, page.Offers, 2)

	require.NoError(t, h.resolver.EditName(ctx, "sara"))
	require.NoError(t, h.resolver.Select("4"))

	o, err := h.purchase.Select("ext-2")
	require.NoError(t, err)
	assert.Equal(t, "Gold pack", o.Description)
	assert.Equal(t, transfer.StateAwaitingConfirmation, h.purchase.Snapshot().State)

	receipt, err := h.purchase.Confirm(ctx)
	require.NoError(t, err)
	assert.Equal(t, "offer purchased", receipt.Message)

	reqs := h.fake.Requests(http.MethodPost, pathPurchase)
	require.Len(t, reqs, 1)
	assert.Equal(t, "4", reqs[0].Body["recipient_id"])
	assert.Equal(t, "ext-2", reqs[0].Body["external_offer_id"])

	s := h.purchase.Snapshot()
	assert.Equal(t, transfer.StateSucceeded, s.State)
	assert.Nil(t, s.Selected)
	assert.Nil(t, s.Recipient)
	assert.True(t, h.resolver.Selected().Empty())

	notes := h.notes.Drain()
	require.Len(t, notes, 1)
	assert.Equal(t, "offer purchased", notes[0].Message)
}

func TestSelectNeedsRecipientAndListedOffer(t *testing.T) {
	h := setup(t)
	ctx := context.Background()
	_, err := h.purchase.List(ctx, 1)
	require.NoError(t, err)

	var ve *domain.ValidationError
	_, err = h.purchase.Select("ext-1")
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "recipient", ve.Field)

	require.NoError(t, h.resolver.EditName(ctx, "sara"))
	require.NoError(t, h.resolver.Select("4"))
	_, err = h.purchase.Select("missing")
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "offer", ve.Field)
}

func TestConfirmWithoutSelection(t *testing.T) {
	h := setup(t)
	_, err := h.purchase.Confirm(context.Background())
	require.ErrorIs(t, err, transfer.ErrIllegalTransition)
}

func TestFailedPurchaseKeepsSelection(t *testing.T) {
	h := setup(t)
	ctx := context.Background()
	_, err := h.purchase.List(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, h.resolver.EditName(ctx, "sara"))
	require.NoError(t, h.resolver.Select("4"))
	_, err = h.purchase.Select("ext-1")
	require.NoError(t, err)

	h.fake.Respond(http.MethodPost, pathPurchase, http.StatusUnprocessableEntity, map[string]any{"message": "limit reached"})
	_, err = h.purchase.Confirm(ctx)
	require.Error(t, err)

	s := h.purchase.Snapshot()
	assert.Equal(t, transfer.StateFailed, s.State)
	assert.Equal(t, "limit reached", s.Error)
	assert.NotNil(t, s.Recipient)
	assert.Equal(t, notify.LevelError, h.notes.Drain()[0].Level)

	require.NoError(t, h.purchase.Cancel())
	assert.Equal(t, transfer.StateIdle, h.purchase.Snapshot().State)
}

func TestConcurrentConfirmIsBusy(t *testing.T) {
	h := setup(t)
	ctx := context.Background()
	_, err := h.purchase.List(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, h.resolver.EditName(ctx, "sara"))
	require.NoError(t, h.resolver.Select("4"))
	_, err = h.purchase.Select("ext-1")
	require.NoError(t, err)

	entered, release := h.fake.Hold(http.MethodPost, pathPurchase)
	done := make(chan error, 1)
	go func() {
		_, err := h.purchase.Confirm(ctx)
		done <- err
	}()
	<-entered

	_, err = h.purchase.Confirm(ctx)
	require.ErrorIs(t, err, transfer.ErrBusy)
	release()
	require.NoError(t, <-done)
	assert.Equal(t, 1, h.fake.Count(http.MethodPost, pathPurchase))
}
