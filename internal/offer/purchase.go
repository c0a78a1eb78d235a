// Package offer implements buying a listed Jawaker offer for a player.
// Offer prices are published with the listing, so there is no quote step:
// the seller picks an offer, confirms, and the purchase is submitted.
package offer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/punchamoorthee/sellerdash/internal/domain"
	"github.com/punchamoorthee/sellerdash/internal/seller"
	"github.com/punchamoorthee/sellerdash/internal/transfer"
)

type Store interface {
	Offers(ctx context.Context, page int) (*domain.OfferPage, error)
	PurchaseOffer(ctx context.Context, req domain.OfferPurchaseRequest) (*domain.Receipt, error)
}

type Snapshot struct {
	State     transfer.State          `json:"state"`
	Selected  *domain.Offer           `json:"selected,omitempty"`
	Recipient *transfer.RecipientView `json:"recipient,omitempty"`
	Error     string                  `json:"error,omitempty"`
}

// Purchase is the offer purchase dialog of one seller session.
type Purchase struct {
	store  Store
	deps   transfer.Deps
	logger *zap.Logger

	mu       sync.Mutex
	state    transfer.State
	listed   map[domain.ID]domain.Offer
	selected *domain.Offer
	lastErr  string
}

func New(store Store, deps transfer.Deps) *Purchase {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Purchase{
		store:  store,
		deps:   deps,
		logger: logger.With(zap.String("product", "jawaker_offer")),
		state:  transfer.StateIdle,
		listed: map[domain.ID]domain.Offer{},
	}
}

// List fetches one page of offers and remembers them for Select.
func (p *Purchase) List(ctx context.Context, page int) (*domain.OfferPage, error) {
	res, err := p.store.Offers(ctx, page)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	for _, o := range res.Offers {
		p.listed[o.ExternalOfferID] = o
	}
	p.mu.Unlock()
	return res, nil
}

// Select opens the confirmation for a listed offer.
func (p *Purchase) Select(externalID domain.ID) (*domain.Offer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == transfer.StateSubmitting {
		return nil, transfer.ErrBusy
	}
	o, ok := p.listed[externalID]
	if !ok {
		return nil, domain.Invalid("offer", "pick one of the listed offers")
	}
	if p.deps.Recipients.Selected().Empty() {
		p.lastErr = "select a player first"
		return nil, domain.Invalid("recipient", p.lastErr)
	}
	p.selected = &o
	p.lastErr = ""
	p.state = transfer.StateAwaitingConfirmation
	cp := o
	return &cp, nil
}

// Confirm buys the selected offer for the selected player. Only one
// purchase can be in flight.
func (p *Purchase) Confirm(ctx context.Context) (*domain.Receipt, error) {
	p.mu.Lock()
	if p.state == transfer.StateSubmitting {
		p.mu.Unlock()
		return nil, transfer.ErrBusy
	}
	if p.state != transfer.StateAwaitingConfirmation || p.selected == nil {
		p.mu.Unlock()
		return nil, transfer.ErrIllegalTransition
	}
	to := p.deps.Recipients.Selected()
	if to.Empty() {
		p.state = transfer.StateIdle
		p.selected = nil
		p.mu.Unlock()
		return nil, domain.Invalid("recipient", "select a player first")
	}
	o := *p.selected
	p.state = transfer.StateSubmitting
	p.mu.Unlock()

	receipt, err := p.store.PurchaseOffer(context.WithoutCancel(ctx), domain.OfferPurchaseRequest{
		RecipientID:     to.ID.String(),
		ExternalOfferID: o.ExternalOfferID.String(),
	})
	if err != nil {
		msg := seller.UserMessage(err)
		p.mu.Lock()
		p.state = transfer.StateFailed
		p.lastErr = msg
		p.mu.Unlock()
		p.logger.Warn("offer purchase failed", zap.String("offer", o.ExternalOfferID.String()), zap.Error(err))
		if !errors.Is(err, seller.ErrSession) {
			p.deps.Notify.Error(msg)
		}
		return nil, err
	}

	p.mu.Lock()
	p.state = transfer.StateSucceeded
	p.selected = nil
	p.lastErr = ""
	p.mu.Unlock()

	p.logger.Info("offer purchased", zap.String("offer", o.ExternalOfferID.String()), zap.String("recipient", to.ID.String()))
	p.deps.Recipients.Clear()
	p.deps.Profile.Invalidate()
	msg := receipt.Message
	if msg == "" {
		msg = fmt.Sprintf("purchased %s for %s", o.Description, to.Name)
	}
	p.deps.Notify.Success(msg)
	return receipt, nil
}

// Cancel closes the confirmation without buying.
func (p *Purchase) Cancel() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == transfer.StateSubmitting {
		return transfer.ErrBusy
	}
	p.state = transfer.StateIdle
	p.selected = nil
	p.lastErr = ""
	return nil
}

func (p *Purchase) Snapshot() Snapshot {
	to := p.deps.Recipients.Selected()
	p.mu.Lock()
	defer p.mu.Unlock()
	s := Snapshot{State: p.state, Error: p.lastErr}
	if p.selected != nil {
		o := *p.selected
		s.Selected = &o
	}
	if !to.Empty() {
		s.Recipient = &transfer.RecipientView{ID: to.ID, PublicID: to.PublicID, Name: to.Name}
	}
	return s
}
