// Package catalog browses the multi-provider catalog (categories, products
// and their variants) and places orders against it. The same short-lived
// cache serves player details.
package catalog

import (
	"context"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/punchamoorthee/sellerdash/internal/domain"
	"github.com/punchamoorthee/sellerdash/internal/seller"
)

// DefaultTTL is how long catalog listings are served from memory.
const DefaultTTL = 5 * time.Minute

// Source is the part of the seller API the catalog reads.
type Source interface {
	Categories(ctx context.Context) ([]domain.Category, error)
	Products(ctx context.Context, categoryID domain.ID) ([]domain.CatalogProduct, error)
	Variants(ctx context.Context, productID domain.ID) ([]domain.Variant, error)
	PlayerProfile(ctx context.Context, id domain.ID) (*domain.Player, error)
}

type entry struct {
	value   any
	expires time.Time
}

// Browser serves catalog listings from a short-lived cache. Concurrent
// misses for the same listing share one upstream request; errors are not
// cached.
type Browser struct {
	src    Source
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
	group  singleflight.Group

	mu      sync.Mutex
	entries map[string]entry
}

func NewBrowser(src Source, ttl time.Duration, logger *zap.Logger) *Browser {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Browser{src: src, ttl: ttl, logger: logger, now: time.Now, entries: map[string]entry{}}
}

func (b *Browser) Categories(ctx context.Context) ([]domain.Category, error) {
	return load(ctx, b, "categories", func(ctx context.Context) ([]domain.Category, error) {
		return b.src.Categories(ctx)
	}, slices.Clone)
}

func (b *Browser) Products(ctx context.Context, categoryID domain.ID) ([]domain.CatalogProduct, error) {
	return load(ctx, b, "products/"+categoryID.String(), func(ctx context.Context) ([]domain.CatalogProduct, error) {
		return b.src.Products(ctx, categoryID)
	}, slices.Clone)
}

func (b *Browser) Variants(ctx context.Context, productID domain.ID) ([]domain.Variant, error) {
	return load(ctx, b, "variants/"+productID.String(), func(ctx context.Context) ([]domain.Variant, error) {
		return b.src.Variants(ctx, productID)
	}, slices.Clone)
}

// Variant finds one variant of a product.
func (b *Browser) Variant(ctx context.Context, productID, variantID domain.ID) (*domain.Variant, error) {
	variants, err := b.Variants(ctx, productID)
	if err != nil {
		return nil, err
	}
	for _, v := range variants {
		if v.ID == variantID {
			return &v, nil
		}
	}
	return nil, domain.Invalid("variant", "choose one of the product's variants")
}

// PlayerProfile returns the details of a player, or nil when the backend
// has none. Unknown players are cached like known ones.
func (b *Browser) PlayerProfile(ctx context.Context, id domain.ID) (*domain.Player, error) {
	if id == "" {
		return nil, domain.Invalid("id", "enter a player id")
	}
	return load(ctx, b, "player/"+id.String(), func(ctx context.Context) (*domain.Player, error) {
		return b.src.PlayerProfile(ctx, id)
	}, clonePlayer)
}

func clonePlayer(p *domain.Player) *domain.Player {
	if p == nil {
		return nil
	}
	cp := *p
	return &cp
}

// Flush empties the cache.
func (b *Browser) Flush() {
	b.mu.Lock()
	clear(b.entries)
	b.mu.Unlock()
}

func load[T any](ctx context.Context, b *Browser, key string, fetch func(context.Context) (T, error), clone func(T) T) (T, error) {
	var zero T
	b.mu.Lock()
	e, ok := b.entries[key]
	b.mu.Unlock()
	if ok && b.now().Before(e.expires) {
		return clone(e.value.(T)), nil
	}

	ch := b.group.DoChan(key, func() (any, error) {
		v, err := fetch(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		b.mu.Lock()
		b.entries[key] = entry{value: v, expires: b.now().Add(b.ttl)}
		b.mu.Unlock()
		b.logger.Debug("listing cached", zap.String("key", key))
		return v, nil
	})

	select {
	case <-ctx.Done():
		return zero, &seller.TransportError{Op: key, Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return clone(res.Val.(T)), nil
	}
}
