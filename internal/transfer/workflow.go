// Package transfer implements the quoted transfer workflow shared by token
// and booster transfers: validate, ask the backend for a quote, wait for
// the seller's confirmation, submit exactly once, then reset.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/punchamoorthee/sellerdash/internal/domain"
	"github.com/punchamoorthee/sellerdash/internal/seller"
)

var (
	ErrBusy                = errors.New("a request for this transfer is already in progress")
	ErrIllegalTransition   = errors.New("action not allowed in the current transfer state")
	ErrStaleQuote          = errors.New("the transfer changed after it was priced, confirm again")
	ErrInsufficientBalance = errors.New("wallet balance does not cover this transfer")
)

var (
	transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transfer_workflow_transitions_total",
		Help: "State transitions of the transfer workflow",
	}, []string{"product", "from", "to"})

	submissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transfer_submissions_total",
		Help: "Transfer submissions, labeled by product and outcome",
	}, []string{"product", "outcome"})
)

type State string

const (
	StateIdle                 State = "idle"
	StateValidating           State = "validating"
	StateQuoteRequested       State = "quote_requested"
	StateAwaitingConfirmation State = "awaiting_confirmation"
	StateSubmitting           State = "submitting"
	StateSucceeded            State = "succeeded"
	StateFailed               State = "failed"
)

// resting reports whether s accepts new input. Succeeded and Failed behave
// like Idle.
func (s State) resting() bool {
	return s == StateIdle || s == StateSucceeded || s == StateFailed
}

type Quoter interface {
	WillCharge(ctx context.Context, req domain.QuoteRequest) (*domain.ChargeQuote, error)
}

// Recipients is the selected-player source, normally a *recipient.Resolver.
type Recipients interface {
	Selected() domain.RecipientRef
	Clear()
	OnSelectionChange(fn func(domain.RecipientRef))
}

// Profile is the shared seller profile cache.
type Profile interface {
	Peek() (*domain.SellerProfile, bool)
	Invalidate()
}

type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// Product describes what a workflow transfers. A is the amount shape.
type Product[A comparable] struct {
	Type domain.ProductType
	// Reset returns the amount a finished or cancelled transfer starts
	// over from.
	Reset func(A) A
	// Validate rejects amounts that must not be quoted.
	Validate func(A) error
	Quote    func(A) domain.QuoteRequest
	Submit   func(ctx context.Context, to domain.RecipientRef, amount A) (*domain.Receipt, error)
	// Describe renders the realized transfer for the success notification.
	Describe func(to domain.RecipientRef, amount A, q *domain.ChargeQuote) string
	Estimate func(prices *domain.GroupPricing, amount A) (domain.Price, bool)
	// ResetOnCancel also drops amount and recipient when the seller
	// cancels.
	ResetOnCancel bool
}

type Deps struct {
	Quotes     Quoter
	Recipients Recipients
	Profile    Profile
	Notify     Notifier
	Logger     *zap.Logger
}

type intent[A comparable] struct {
	recipient domain.ID
	amount    A
}

// Snapshot is a read-only view of a workflow.
type Snapshot[A comparable] struct {
	Product   domain.ProductType  `json:"product"`
	State     State               `json:"state"`
	Amount    A                   `json:"amount"`
	Recipient *RecipientView      `json:"recipient,omitempty"`
	Quote     *domain.ChargeQuote `json:"quote,omitempty"`
	CanSubmit bool                `json:"can_submit"`
	Preview   *domain.Price       `json:"preview,omitempty"`
	Error     string              `json:"error,omitempty"`
	Notice    string              `json:"notice,omitempty"`
}

type RecipientView struct {
	ID       domain.ID `json:"id"`
	PublicID string    `json:"public_id,omitempty"`
	Name     string    `json:"name"`
}

// Workflow is one seller's transfer form for a single product. All methods
// are safe for concurrent use; network calls are made without the lock
// held.
type Workflow[A comparable] struct {
	product Product[A]
	deps    Deps
	logger  *zap.Logger

	mu        sync.Mutex
	state     State
	amount    A
	quote     *domain.ChargeQuote
	quotedFor intent[A]
	gen       uint64
	lastErr   string
}

func New[A comparable](p Product[A], initial A, deps Deps) *Workflow[A] {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &Workflow[A]{
		product: p,
		deps:    deps,
		logger:  logger.With(zap.String("product", string(p.Type))),
		state:   StateIdle,
		amount:  initial,
	}
	deps.Recipients.OnSelectionChange(w.recipientChanged)
	return w
}

func (w *Workflow[A]) Product() domain.ProductType { return w.product.Type }

// Update applies fn to the current amount. Any quote is discarded and an
// in-flight quote request is ignored when it lands.
func (w *Workflow[A]) Update(fn func(A) (A, error)) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == StateSubmitting {
		return ErrBusy
	}
	next, err := fn(w.amount)
	if err != nil {
		return err
	}
	if next == w.amount {
		return nil
	}
	w.amount = next
	w.lastErr = ""
	w.discardLocked()
	return nil
}

func (w *Workflow[A]) SetAmount(a A) error {
	return w.Update(func(A) (A, error) { return a, nil })
}

// Confirm validates the intent and prices it. On success the workflow waits
// for the seller's confirmation even when the wallet cannot cover the
// quote; Submit then refuses.
func (w *Workflow[A]) Confirm(ctx context.Context) (*domain.ChargeQuote, error) {
	w.mu.Lock()
	switch w.state {
	case StateSubmitting, StateQuoteRequested, StateValidating:
		w.mu.Unlock()
		return nil, ErrBusy
	}
	w.quote = nil
	w.transitionLocked(StateValidating)

	to := w.deps.Recipients.Selected()
	if err := w.validateLocked(to); err != nil {
		w.lastErr = seller.UserMessage(err)
		w.transitionLocked(StateIdle)
		w.mu.Unlock()
		return nil, err
	}

	w.transitionLocked(StateQuoteRequested)
	w.gen++
	gen := w.gen
	amount := w.amount
	req := w.product.Quote(amount)
	w.mu.Unlock()

	q, err := w.deps.Quotes.WillCharge(ctx, req)

	w.mu.Lock()
	if gen != w.gen {
		w.mu.Unlock()
		return nil, ErrStaleQuote
	}
	if err != nil {
		msg := seller.UserMessage(err)
		w.lastErr = msg
		w.transitionLocked(StateIdle)
		w.mu.Unlock()
		if !errors.Is(err, seller.ErrSession) {
			w.deps.Notify.Error(msg)
		}
		return nil, err
	}
	w.quote = q
	w.quotedFor = intent[A]{recipient: to.ID, amount: amount}
	w.lastErr = ""
	w.transitionLocked(StateAwaitingConfirmation)
	w.mu.Unlock()

	cp := *q
	return &cp, nil
}

func (w *Workflow[A]) validateLocked(to domain.RecipientRef) error {
	if to.Empty() {
		return domain.Invalid("recipient", "select a player first")
	}
	return w.product.Validate(w.amount)
}

// Submit sends the confirmed transfer. It is only legal while a quote that
// can be charged exists for the exact current recipient and amount, and
// it issues at most one mutation at a time.
func (w *Workflow[A]) Submit(ctx context.Context) (*domain.Receipt, error) {
	w.mu.Lock()
	if w.state == StateSubmitting {
		w.mu.Unlock()
		return nil, ErrBusy
	}
	if w.state != StateAwaitingConfirmation || w.quote == nil {
		w.mu.Unlock()
		return nil, ErrIllegalTransition
	}
	to := w.deps.Recipients.Selected()
	if (intent[A]{recipient: to.ID, amount: w.amount}) != w.quotedFor {
		w.discardLocked()
		w.mu.Unlock()
		return nil, ErrStaleQuote
	}
	if !w.quote.CanCharge {
		w.mu.Unlock()
		return nil, ErrInsufficientBalance
	}
	quote := w.quote
	amount := w.amount
	w.transitionLocked(StateSubmitting)
	w.mu.Unlock()

	// The mutation is not abandoned when the caller goes away.
	receipt, err := w.product.Submit(context.WithoutCancel(ctx), to, amount)

	if err != nil {
		msg := seller.UserMessage(err)
		w.mu.Lock()
		w.quote = nil
		w.lastErr = msg
		w.transitionLocked(StateFailed)
		w.mu.Unlock()
		submissionsTotal.WithLabelValues(string(w.product.Type), "failed").Inc()
		w.logger.Warn("transfer failed", zap.String("recipient", to.ID.String()), zap.Error(err))
		if !errors.Is(err, seller.ErrSession) {
			w.deps.Notify.Error(msg)
		}
		return nil, err
	}

	w.mu.Lock()
	w.quote = nil
	w.lastErr = ""
	w.amount = w.product.Reset(amount)
	w.gen++
	w.transitionLocked(StateSucceeded)
	w.mu.Unlock()

	submissionsTotal.WithLabelValues(string(w.product.Type), "succeeded").Inc()
	w.logger.Info("transfer completed", zap.String("recipient", to.ID.String()))
	w.deps.Recipients.Clear()
	w.deps.Profile.Invalidate()
	w.deps.Notify.Success(w.product.Describe(to, amount, quote))
	return receipt, nil
}

// Cancel abandons the current cycle. Products with ResetOnCancel also drop
// the amount and the recipient.
func (w *Workflow[A]) Cancel() error {
	w.mu.Lock()
	if w.state == StateSubmitting {
		w.mu.Unlock()
		return ErrBusy
	}
	w.discardLocked()
	w.lastErr = ""
	w.transitionLocked(StateIdle)
	reset := w.product.ResetOnCancel
	if reset {
		w.amount = w.product.Reset(w.amount)
	}
	w.mu.Unlock()

	if reset {
		w.deps.Recipients.Clear()
	}
	return nil
}

func (w *Workflow[A]) Snapshot() Snapshot[A] {
	to := w.deps.Recipients.Selected()

	w.mu.Lock()
	defer w.mu.Unlock()
	s := Snapshot[A]{
		Product: w.product.Type,
		State:   w.state,
		Amount:  w.amount,
		Error:   w.lastErr,
	}
	if !to.Empty() {
		s.Recipient = &RecipientView{ID: to.ID, PublicID: to.PublicID, Name: to.Name}
	}
	if w.quote != nil {
		q := *w.quote
		s.Quote = &q
		current := intent[A]{recipient: to.ID, amount: w.amount} == w.quotedFor
		s.CanSubmit = w.state == StateAwaitingConfirmation && q.CanCharge && current
		if !q.CanCharge {
			s.Notice = fmt.Sprintf("insufficient balance, %s %s more is needed", q.Missing.String(), q.Currency)
		}
	}
	if s.Quote == nil && w.product.Estimate != nil && w.deps.Profile != nil {
		if p, ok := w.deps.Profile.Peek(); ok {
			if price, ok := w.product.Estimate(p.Pricing.GroupPricing, w.amount); ok {
				s.Preview = &price
			}
		}
	}
	return s
}

func (w *Workflow[A]) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *Workflow[A]) recipientChanged(to domain.RecipientRef) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == StateSubmitting {
		return
	}
	if w.quote != nil && w.quotedFor.recipient == to.ID {
		return
	}
	if w.quote != nil || w.state == StateQuoteRequested {
		w.discardLocked()
	}
}

// discardLocked drops the quote and returns an in-progress cycle to Idle.
func (w *Workflow[A]) discardLocked() {
	w.quote = nil
	w.quotedFor = intent[A]{}
	w.gen++
	if !w.state.resting() {
		w.transitionLocked(StateIdle)
	}
}

func (w *Workflow[A]) transitionLocked(to State) {
	from := w.state
	if from == to {
		return
	}
	w.state = to
	transitionsTotal.WithLabelValues(string(w.product.Type), string(from), string(to)).Inc()
	w.logger.Debug("transfer state", zap.String("from", string(from)), zap.String("to", string(to)))
}
