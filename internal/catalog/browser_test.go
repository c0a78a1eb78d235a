package catalog

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/punchamoorthee/sellerdash/internal/domain"
	"github.com/punchamoorthee/sellerdash/internal/seller"
)

type countingSource struct {
	calls   atomic.Int32
	fail    atomic.Bool
	release chan struct{}
}

func (s *countingSource) Categories(ctx context.Context) ([]domain.Category, error) {
	s.calls.Add(1)
	if s.release != nil {
		<-s.release
	}
	if s.fail.Load() {
		return nil, errors.New("boom")
	}
	return []domain.Category{{ID: "1", Name: "Games"}}, nil
}

func (s *countingSource) Products(ctx context.Context, categoryID domain.ID) ([]domain.CatalogProduct, error) {
	s.calls.Add(1)
	return []domain.CatalogProduct{{ID: "p-" + categoryID, Name: "PUBG UC"}}, nil
}

func (s *countingSource) Variants(ctx context.Context, productID domain.ID) ([]domain.Variant, error) {
	s.calls.Add(1)
	return []domain.Variant{{ID: "10", Name: "60 UC"}, {ID: "11", Name: "325 UC"}}, nil
}

func (s *countingSource) PlayerProfile(ctx context.Context, id domain.ID) (*domain.Player, error) {
	s.calls.Add(1)
	if s.release != nil {
		<-s.release
	}
	if id == "404" {
		return nil, nil
	}
	return &domain.Player{ID: id, Username: "ahmed", Level: 12}, nil
}

func TestBrowserCachesUntilExpiry(t *testing.T) {
	src := &countingSource{}
	b := NewBrowser(src, time.Minute, nil)
	now := time.Now()
	b.now = func() time.Time { return now }
	ctx := context.Background()

	first, err := b.Categories(ctx)
	require.NoError(t, err)
	first[0].Name = "changed"

	again, err := b.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Games", again[0].Name)
	assert.EqualValues(t, 1, src.calls.Load())

	now = now.Add(2 * time.Minute)
	_, err = b.Categories(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, src.calls.Load())
}

func TestBrowserKeysByParent(t *testing.T) {
	src := &countingSource{}
	b := NewBrowser(src, 0, nil)
	ctx := context.Background()

	a, err := b.Products(ctx, "1")
	require.NoError(t, err)
	c, err := b.Products(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, domain.ID("p-1"), a[0].ID)
	assert.Equal(t, domain.ID("p-2"), c[0].ID)
	assert.EqualValues(t, 2, src.calls.Load())

	b.Flush()
	_, err = b.Products(ctx, "1")
	require.NoError(t, err)
	assert.EqualValues(t, 3, src.calls.Load())
}

func TestBrowserSharesConcurrentMisses(t *testing.T) {
	src := &countingSource{release: make(chan struct{})}
	b := NewBrowser(src, time.Minute, nil)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := b.Categories(context.Background())
			assert.NoError(t, err)
		}()
	}
	require.Eventually(t, func() bool { return src.calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	close(src.release)
	wg.Wait()
	assert.EqualValues(t, 1, src.calls.Load())
}

func TestBrowserDoesNotCacheErrors(t *testing.T) {
	src := &countingSource{}
	src.fail.Store(true)
	b := NewBrowser(src, time.Minute, nil)

	_, err := b.Categories(context.Background())
	require.Error(t, err)

	src.fail.Store(false)
	cats, err := b.Categories(context.Background())
	require.NoError(t, err)
	assert.Len(t, cats, 1)
	assert.EqualValues(t, 2, src.calls.Load())
}

func TestBrowserVariantLookup(t *testing.T) {
	b := NewBrowser(&countingSource{}, time.Minute, nil)

	v, err := b.Variant(context.Background(), "5", "11")
	require.NoError(t, err)
	assert.Equal(t, "325 UC", v.Name)

	_, err = b.Variant(context.Background(), "5", "99")
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "variant", ve.Field)
}

func TestBrowserPlayerProfile(t *testing.T) {
	src := &countingSource{}
	b := NewBrowser(src, time.Minute, nil)
	ctx := context.Background()

	p, err := b.PlayerProfile(ctx, "9")
	require.NoError(t, err)
	p.Username = "changed"
	p, err = b.PlayerProfile(ctx, "9")
	require.NoError(t, err)
	assert.Equal(t, "ahmed", p.Username)
	assert.Equal(t, 12, p.Level)

	missing, err := b.PlayerProfile(ctx, "404")
	require.NoError(t, err)
	assert.Nil(t, missing)
	_, err = b.PlayerProfile(ctx, "404")
	require.NoError(t, err)
	assert.EqualValues(t, 2, src.calls.Load())

	_, err = b.PlayerProfile(ctx, "")
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.EqualValues(t, 2, src.calls.Load())
}

func TestBrowserCancelledWaitIsTransportError(t *testing.T) {
	src := &countingSource{release: make(chan struct{})}
	defer close(src.release)
	b := NewBrowser(src, time.Minute, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := b.PlayerProfile(ctx, "9")
	var te *seller.TransportError
	require.ErrorAs(t, err, &te)
	assert.ErrorIs(t, err, context.Canceled)
}
