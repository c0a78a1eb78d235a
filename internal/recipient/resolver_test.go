package recipient_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/punchamoorthee/sellerdash/internal/domain"
	"github.com/punchamoorthee/sellerdash/internal/recipient"
	"github.com/punchamoorthee/sellerdash/internal/seller"
	"github.com/punchamoorthee/sellerdash/internal/sellertest"
)

func newResolver(t *testing.T) (*recipient.Resolver, *sellertest.Fake) {
	f := sellertest.New(t)
	f.AddPlayers(
		domain.Player{ID: "1", Username: "ahmed"},
		domain.Player{ID: "2", Username: "ahmed_jo"},
		domain.Player{ID: "3", Username: "ahmed99"},
		domain.Player{ID: "4", Username: "sara"},
	)
	f.SetPublicID("777", domain.Player{ID: "4", Username: "sara"})
	return recipient.New(seller.New(f.URL, f.Token), nil), f
}

func TestSearchAndSelectCollapsesCandidates(t *testing.T) {
	r, _ := newResolver(t)
	ctx := context.Background()

	require.NoError(t, r.EditName(ctx, "ahmed"))
	s := r.Snapshot()
	assert.Equal(t, recipient.StateResults, s.State)
	require.Len(t, s.Candidates, 3)

	require.NoError(t, r.Select(s.Candidates[1].ID))
	s = r.Snapshot()
	assert.Equal(t, recipient.StateSelected, s.State)
	require.Len(t, s.Candidates, 1)
	assert.Equal(t, "ahmed_jo", s.Candidates[0].Username)
	assert.Equal(t, domain.RecipientRef{ID: "2", Name: "ahmed_jo"}, r.Selected())
}

func TestShortNameDoesNotSearch(t *testing.T) {
	r, f := newResolver(t)

	require.NoError(t, r.EditName(context.Background(), "a"))
	assert.Equal(t, recipient.StateIdle, r.Snapshot().State)
	assert.Zero(t, f.Count(http.MethodGet, "/seller/search-players"))
}

func TestNoNameMatchesIsInformational(t *testing.T) {
	r, _ := newResolver(t)

	require.NoError(t, r.EditName(context.Background(), "nobody"))
	s := r.Snapshot()
	assert.Equal(t, recipient.StateNoResults, s.State)
	assert.Equal(t, "no players found", s.Message)
}

func TestCandidatesAreTruncatedForDisplay(t *testing.T) {
	r, f := newResolver(t)
	for i := 0; i < 6; i++ {
		f.AddPlayers(domain.Player{ID: domain.ID(fmt.Sprint(100 + i)), Username: fmt.Sprintf("zed%d", i)})
	}

	require.NoError(t, r.EditName(context.Background(), "zed"))
	s := r.Snapshot()
	assert.Len(t, s.Candidates, recipient.DisplayLimit)
	assert.Equal(t, 1, s.Hidden)
}

func TestEditingInputClearsSelection(t *testing.T) {
	r, _ := newResolver(t)
	ctx := context.Background()

	var changes []domain.RecipientRef
	r.OnSelectionChange(func(ref domain.RecipientRef) { changes = append(changes, ref) })

	require.NoError(t, r.EditName(ctx, "sara"))
	require.NoError(t, r.Select("4"))
	require.NoError(t, r.EditName(ctx, "sar"))

	assert.True(t, r.Selected().Empty())
	require.Len(t, changes, 2)
	assert.Equal(t, domain.ID("4"), changes[0].ID)
	assert.True(t, changes[1].Empty())
}

func TestIDLookupAutoSelects(t *testing.T) {
	r, _ := newResolver(t)
	r.SetMode(recipient.ModeID)

	require.NoError(t, r.EditID(context.Background(), "777"))
	s := r.Snapshot()
	assert.Equal(t, recipient.StateSelected, s.State)
	require.NotNil(t, s.Selected)
	assert.Equal(t, domain.RecipientRef{ID: "4", PublicID: "777", Name: "sara"}, r.Selected())
}

func TestUnknownIDIsInformational(t *testing.T) {
	r, _ := newResolver(t)
	r.SetMode(recipient.ModeID)

	require.NoError(t, r.EditID(context.Background(), "12345"))
	s := r.Snapshot()
	assert.Equal(t, recipient.StateNoResults, s.State)
	assert.Equal(t, "player not found", s.Message)
	assert.Nil(t, s.Selected)
	assert.True(t, r.Selected().Empty())
}

func TestNonNumericIDIsRejectedLocally(t *testing.T) {
	r, f := newResolver(t)
	r.SetMode(recipient.ModeID)

	err := r.EditID(context.Background(), "12a")
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "id", ve.Field)
	assert.Zero(t, f.Count(http.MethodGet, "/seller/get-player-by-public-id"))
}

func TestModeSwitchWithoutSelectionClearsEverything(t *testing.T) {
	r, _ := newResolver(t)
	ctx := context.Background()

	require.NoError(t, r.EditName(ctx, "ahmed"))
	r.SetMode(recipient.ModeID)
	s := r.Snapshot()
	assert.Empty(t, s.NameInput)
	assert.Empty(t, s.IDInput)
	assert.Empty(t, s.Candidates)
	assert.Equal(t, recipient.StateIdle, s.State)

	r.SetMode(recipient.ModeName)
	assert.Empty(t, r.Snapshot().Candidates)
}

func TestModeSwitchKeepsSelectionInBothLists(t *testing.T) {
	r, _ := newResolver(t)
	ctx := context.Background()

	require.NoError(t, r.EditName(ctx, "ahmed"))
	require.NoError(t, r.Select("3"))

	r.SetMode(recipient.ModeID)
	s := r.Snapshot()
	assert.Equal(t, recipient.StateSelected, s.State)
	require.Len(t, s.Candidates, 1)
	assert.Equal(t, domain.ID("3"), s.Candidates[0].ID)
	assert.Empty(t, s.NameInput)

	r.SetMode(recipient.ModeName)
	s = r.Snapshot()
	require.Len(t, s.Candidates, 1)
	assert.Equal(t, domain.ID("3"), s.Candidates[0].ID)
	assert.Equal(t, domain.ID("3"), r.Selected().ID)
}

func TestPublicIDDroppedAfterLeavingIDMode(t *testing.T) {
	r, _ := newResolver(t)
	r.SetMode(recipient.ModeID)
	require.NoError(t, r.EditID(context.Background(), "777"))

	r.SetMode(recipient.ModeName)
	assert.Equal(t, domain.RecipientRef{ID: "4", Name: "sara"}, r.Selected())
}

func TestWrongModeEditIsRejected(t *testing.T) {
	r, _ := newResolver(t)
	var ve *domain.ValidationError
	require.ErrorAs(t, r.EditID(context.Background(), "1"), &ve)
}

func TestSelectUnknownCandidate(t *testing.T) {
	r, _ := newResolver(t)
	require.NoError(t, r.EditName(context.Background(), "ahmed"))

	var ve *domain.ValidationError
	require.ErrorAs(t, r.Select("4"), &ve)
	assert.True(t, r.Selected().Empty())
}

func TestSessionErrorSurfaces(t *testing.T) {
	f := sellertest.New(t)
	r := recipient.New(seller.New(f.URL, "expired"), nil)

	err := r.EditName(context.Background(), "ahmed")
	require.ErrorIs(t, err, seller.ErrSession)
	assert.Equal(t, recipient.StateError, r.Snapshot().State)
}

func TestClear(t *testing.T) {
	r, _ := newResolver(t)
	r.SetMode(recipient.ModeID)
	require.NoError(t, r.EditID(context.Background(), "777"))

	r.Clear()
	s := r.Snapshot()
	assert.Equal(t, recipient.ModeID, s.Mode)
	assert.Equal(t, recipient.StateIdle, s.State)
	assert.Empty(t, s.IDInput)
	assert.Nil(t, s.Selected)
}
