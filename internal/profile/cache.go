// Package profile caches the authenticated seller's profile for the
// lifetime of a session. It has a single writer (the fetch) and any number
// of readers; successful mutations invalidate it instead of editing the
// balance in place.
package profile

import (
	"context"
	"maps"
	"strconv"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/punchamoorthee/sellerdash/internal/domain"
	"github.com/punchamoorthee/sellerdash/internal/seller"
)

// Fetcher loads the current profile from the remote API.
type Fetcher interface {
	Me(ctx context.Context) (*domain.SellerProfile, error)
}

type Cache struct {
	fetcher Fetcher
	logger  *zap.Logger
	group   singleflight.Group

	mu          sync.RWMutex
	profile     *domain.SellerProfile
	version     uint64
	subscribers []func(*domain.SellerProfile)
}

func New(f Fetcher, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{fetcher: f, logger: logger}
}

// Get returns the cached profile, fetching it when the cache is empty.
// Concurrent callers share one upstream request. A fetch that was started
// before an Invalidate is returned to its callers but not stored.
func (c *Cache) Get(ctx context.Context) (*domain.SellerProfile, error) {
	c.mu.RLock()
	p, version := c.profile, c.version
	c.mu.RUnlock()
	if p != nil {
		return clone(p), nil
	}

	ch := c.group.DoChan(strconv.FormatUint(version, 10), func() (any, error) {
		fetched, err := c.fetcher.Me(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		c.store(version, fetched)
		return fetched, nil
	})

	select {
	case <-ctx.Done():
		return nil, &seller.TransportError{Op: "me", Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return clone(res.Val.(*domain.SellerProfile)), nil
	}
}

// Peek returns the cached profile without fetching.
func (c *Cache) Peek() (*domain.SellerProfile, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.profile == nil {
		return nil, false
	}
	return clone(c.profile), true
}

// Invalidate drops the cached profile; the next Get refetches it.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.profile = nil
	c.version++
	c.mu.Unlock()
	c.logger.Debug("seller profile invalidated")
}

// Refresh invalidates the cache and fetches the profile again, as the
// dashboard's reload button does.
func (c *Cache) Refresh(ctx context.Context) (*domain.SellerProfile, error) {
	c.Invalidate()
	return c.Get(ctx)
}

// Subscribe registers fn to be called with every freshly stored profile.
func (c *Cache) Subscribe(fn func(*domain.SellerProfile)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribers = append(c.subscribers, fn)
}

func (c *Cache) store(version uint64, p *domain.SellerProfile) {
	c.mu.Lock()
	if c.version != version {
		c.mu.Unlock()
		c.logger.Debug("discarding profile fetched before invalidation")
		return
	}
	c.profile = p
	subs := append([]func(*domain.SellerProfile){}, c.subscribers...)
	c.mu.Unlock()

	for _, fn := range subs {
		fn(clone(p))
	}
}

func clone(p *domain.SellerProfile) *domain.SellerProfile {
	cp := *p
	if p.Pricing.GroupPricing != nil {
		gp := *p.Pricing.GroupPricing
		gp.Prices = maps.Clone(gp.Prices)
		cp.Pricing.GroupPricing = &gp
	}
	return &cp
}
