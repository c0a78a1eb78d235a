package catalog

import (
	"context"
	"errors"
	"maps"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/punchamoorthee/sellerdash/internal/domain"
	"github.com/punchamoorthee/sellerdash/internal/seller"
	"github.com/punchamoorthee/sellerdash/internal/transfer"
)

var ordersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "catalog_orders_total",
	Help: "Multi-provider orders submitted, labeled by outcome",
}, []string{"outcome"})

const msgOrderCreated = "order created"

type Placer interface {
	CreateOrder(ctx context.Context, req domain.CreateOrderRequest) (*domain.Receipt, error)
}

type FormSnapshot struct {
	State        transfer.State    `json:"state"`
	ProductID    domain.ID         `json:"product_id,omitempty"`
	Variant      *domain.Variant   `json:"variant,omitempty"`
	Quantity     int64             `json:"quantity"`
	DeliveryData map[string]string `json:"delivery_data"`
	Total        *domain.Price     `json:"total,omitempty"`
	Errors       map[string]string `json:"errors"`
	Error        string            `json:"error,omitempty"`
}

// Form is the create-order form of one seller session. The total it shows
// is an estimate from the variant price; the backend charges the order.
type Form struct {
	browser *Browser
	placer  Placer
	profile transfer.Profile
	notify  transfer.Notifier
	logger  *zap.Logger

	mu        sync.Mutex
	state     transfer.State
	productID domain.ID
	variant   *domain.Variant
	quantity  int64
	data      map[string]string
	errs      map[string]string
	lastErr   string
	gen       uint64
}

func NewForm(b *Browser, placer Placer, profile transfer.Profile, notify transfer.Notifier, logger *zap.Logger) *Form {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Form{
		browser:  b,
		placer:   placer,
		profile:  profile,
		notify:   notify,
		logger:   logger.With(zap.String("product", "multi_provider_order")),
		state:    transfer.StateIdle,
		quantity: 1,
		data:     map[string]string{},
		errs:     map[string]string{},
	}
}

// Choose selects a variant of a product. The delivery data starts over
// with one empty value per field the variant asks for; the quantity is
// kept.
func (f *Form) Choose(ctx context.Context, productID, variantID domain.ID) error {
	f.mu.Lock()
	if f.state == transfer.StateSubmitting {
		f.mu.Unlock()
		return transfer.ErrBusy
	}
	f.gen++
	gen := f.gen
	f.mu.Unlock()

	v, err := f.browser.Variant(ctx, productID, variantID)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if gen != f.gen {
		return nil
	}
	if f.state == transfer.StateSubmitting {
		return transfer.ErrBusy
	}
	f.productID = productID
	f.variant = v
	f.data = make(map[string]string, len(v.RequiredData))
	for _, field := range v.RequiredData {
		f.data[field.Key] = ""
	}
	f.errs = map[string]string{}
	f.lastErr = ""
	f.state = transfer.StateIdle
	return nil
}

func (f *Form) SetQuantity(n int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == transfer.StateSubmitting {
		return transfer.ErrBusy
	}
	f.quantity = n
	delete(f.errs, "quantity")
	return nil
}

// SetField fills one delivery field of the chosen variant.
func (f *Form) SetField(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == transfer.StateSubmitting {
		return transfer.ErrBusy
	}
	if f.variant == nil {
		return domain.Invalid("variant", "choose a product variant first")
	}
	if _, ok := f.data[key]; !ok {
		return domain.Invalid(key, "the variant does not ask for "+key)
	}
	f.data[key] = value
	delete(f.errs, key)
	return nil
}

// validateLocked records every problem with the form and returns the
// first one.
func (f *Form) validateLocked() error {
	f.errs = map[string]string{}
	if f.variant == nil {
		f.errs["variant"] = "choose a product variant"
		return domain.Invalid("variant", f.errs["variant"])
	}

	var first error
	if err := f.variant.CheckQuantity(f.quantity); err != nil {
		var ve *domain.ValidationError
		errors.As(err, &ve)
		f.errs[ve.Field] = ve.Message
		first = err
	}
	missing := f.variant.CheckDeliveryData(f.data)
	maps.Copy(f.errs, missing)
	if first == nil {
		for _, field := range f.variant.RequiredData {
			if msg, ok := missing[field.Key]; ok {
				first = domain.Invalid(field.Key, msg)
				break
			}
		}
	}
	return first
}

// Submit places the order. Only one order can be in flight per form.
func (f *Form) Submit(ctx context.Context) (*domain.Receipt, error) {
	f.mu.Lock()
	if f.state == transfer.StateSubmitting {
		f.mu.Unlock()
		return nil, transfer.ErrBusy
	}
	if err := f.validateLocked(); err != nil {
		f.mu.Unlock()
		return nil, err
	}
	req := domain.CreateOrderRequest{
		ProductVariantID: f.variant.ID,
		Quantity:         f.quantity,
		DeliveryData:     maps.Clone(f.data),
	}
	f.state = transfer.StateSubmitting
	f.lastErr = ""
	f.mu.Unlock()

	receipt, err := f.placer.CreateOrder(context.WithoutCancel(ctx), req)
	if err != nil {
		msg := seller.UserMessage(err)
		f.mu.Lock()
		f.state = transfer.StateFailed
		f.lastErr = msg
		f.mu.Unlock()
		ordersTotal.WithLabelValues("failed").Inc()
		f.logger.Warn("order failed", zap.String("variant", req.ProductVariantID.String()), zap.Error(err))
		if !errors.Is(err, seller.ErrSession) {
			f.notify.Error(msg)
		}
		return nil, err
	}

	f.mu.Lock()
	f.state = transfer.StateSucceeded
	f.resetLocked()
	f.mu.Unlock()

	ordersTotal.WithLabelValues("succeeded").Inc()
	f.logger.Info("order created", zap.String("variant", req.ProductVariantID.String()), zap.Int64("quantity", req.Quantity))
	f.profile.Invalidate()
	msg := receipt.Message
	if msg == "" {
		msg = msgOrderCreated
	}
	f.notify.Success(msg)
	return receipt, nil
}

func (f *Form) Cancel() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == transfer.StateSubmitting {
		return transfer.ErrBusy
	}
	f.state = transfer.StateIdle
	f.resetLocked()
	return nil
}

func (f *Form) resetLocked() {
	f.productID = ""
	f.variant = nil
	f.quantity = 1
	f.data = map[string]string{}
	f.errs = map[string]string{}
	f.lastErr = ""
	f.gen++
}

func (f *Form) Snapshot() FormSnapshot {
	currency := domain.DefaultCurrency
	if p, ok := f.profile.Peek(); ok && p.Wallet.Currency != "" {
		currency = p.Wallet.Currency
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	s := FormSnapshot{
		State:        f.state,
		ProductID:    f.productID,
		Quantity:     f.quantity,
		DeliveryData: maps.Clone(f.data),
		Errors:       maps.Clone(f.errs),
		Error:        f.lastErr,
	}
	if f.variant != nil {
		v := *f.variant
		s.Variant = &v
		if f.quantity > 0 {
			s.Total = &domain.Price{Amount: v.Total(f.quantity), Currency: currency}
		}
	}
	return s
}
