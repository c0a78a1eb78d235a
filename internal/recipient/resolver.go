// Package recipient turns what the seller types into a selected player,
// either by searching names or by looking up an exact public id.
package recipient

import (
	"context"
	"strings"
	"sync"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/punchamoorthee/sellerdash/internal/domain"
	"github.com/punchamoorthee/sellerdash/internal/seller"
)

type Mode string

const (
	ModeName Mode = "name"
	ModeID   Mode = "id"
)

func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeName, ModeID:
		return m, nil
	}
	return "", domain.Invalid("mode", "mode must be name or id")
}

type State string

const (
	StateIdle      State = "idle"
	StateSearching State = "searching"
	StateResults   State = "results"
	StateNoResults State = "no_results"
	StateError     State = "error"
	StateSelected  State = "selected"
)

// DisplayLimit is how many candidates are shown; the rest are only counted.
const DisplayLimit = 5

const (
	msgNoPlayers      = "no players found"
	msgPlayerNotFound = "player not found"
)

// Directory is the part of the seller API the resolver consults.
type Directory interface {
	SearchPlayers(ctx context.Context, name string) ([]domain.Player, error)
	PlayerByPublicID(ctx context.Context, id string) (*domain.Player, error)
}

// Snapshot is a read-only view of the resolver.
type Snapshot struct {
	Mode       Mode            `json:"mode"`
	State      State           `json:"state"`
	NameInput  string          `json:"name_input"`
	IDInput    string          `json:"id_input"`
	Candidates []domain.Player `json:"candidates"`
	Hidden     int             `json:"hidden"`
	Selected   *domain.Player  `json:"selected,omitempty"`
	Message    string          `json:"message,omitempty"`
}

// Resolver holds the recipient input of one seller session. Lookups run
// without the lock held; a generation counter drops results that arrive
// after the input they were issued for has changed.
type Resolver struct {
	dir    Directory
	logger *zap.Logger

	mu           sync.Mutex
	mode         Mode
	state        State
	nameInput    string
	idInput      string
	byName       []domain.Player
	byID         []domain.Player
	selected     *domain.Player
	selectedFrom Mode
	message      string
	gen          uint64
	listeners    []func(domain.RecipientRef)
}

func New(dir Directory, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{dir: dir, logger: logger, mode: ModeName, state: StateIdle}
}

// OnSelectionChange registers fn to run whenever the selected recipient
// changes. Listeners are called without the resolver lock held.
func (r *Resolver) OnSelectionChange(fn func(domain.RecipientRef)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

// EditName replaces the name input and searches when it is long enough.
// Any previous selection is dropped.
func (r *Resolver) EditName(ctx context.Context, raw string) error {
	r.mu.Lock()
	if r.mode != ModeName {
		r.mu.Unlock()
		return domain.Invalid("name", "switch to name mode to search by name")
	}
	before := r.refLocked()
	r.nameInput = raw
	r.selected = nil
	r.byName = nil
	r.message = ""
	r.gen++
	gen := r.gen

	name := strings.TrimSpace(raw)
	if utf8.RuneCountInString(name) < seller.MinSearchLength {
		r.state = StateIdle
		after := r.refLocked()
		r.mu.Unlock()
		r.emit(before, after)
		return nil
	}
	r.state = StateSearching
	after := r.refLocked()
	r.mu.Unlock()
	r.emit(before, after)

	players, err := r.dir.SearchPlayers(ctx, name)
	return r.finish(gen, ModeName, players, err)
}

// EditID replaces the id input and looks the player up. A single match is
// selected automatically.
func (r *Resolver) EditID(ctx context.Context, raw string) error {
	r.mu.Lock()
	if r.mode != ModeID {
		r.mu.Unlock()
		return domain.Invalid("id", "switch to id mode to look a player up by id")
	}
	before := r.refLocked()
	r.idInput = raw
	r.selected = nil
	r.byID = nil
	r.message = ""
	r.gen++
	gen := r.gen

	id := strings.TrimSpace(raw)
	if id == "" || !digitsOnly(id) {
		r.state = StateIdle
		after := r.refLocked()
		r.mu.Unlock()
		r.emit(before, after)
		if id != "" {
			return domain.Invalid("id", "player id must contain digits only")
		}
		return nil
	}
	r.state = StateSearching
	after := r.refLocked()
	r.mu.Unlock()
	r.emit(before, after)

	p, err := r.dir.PlayerByPublicID(ctx, id)
	var players []domain.Player
	if p != nil {
		players = []domain.Player{*p}
	}
	return r.finish(gen, ModeID, players, err)
}

func (r *Resolver) finish(gen uint64, mode Mode, players []domain.Player, err error) error {
	r.mu.Lock()
	if gen != r.gen {
		r.mu.Unlock()
		r.logger.Debug("discarding stale lookup result", zap.String("mode", string(mode)))
		return nil
	}
	before := r.refLocked()

	switch {
	case err != nil:
		r.state = StateError
		r.message = seller.UserMessage(err)
	case len(players) == 0:
		r.state = StateNoResults
		r.message = msgNoPlayers
		if mode == ModeID {
			r.message = msgPlayerNotFound
		}
	case mode == ModeID && len(players) == 1:
		p := players[0]
		r.byID = []domain.Player{p}
		r.selected = &p
		r.selectedFrom = ModeID
		r.state = StateSelected
	default:
		if mode == ModeName {
			r.byName = players
		} else {
			r.byID = players
		}
		r.state = StateResults
	}
	after := r.refLocked()
	r.mu.Unlock()

	r.emit(before, after)
	return err
}

// Select picks one of the listed candidates. The candidate list collapses
// to the chosen player.
func (r *Resolver) Select(id domain.ID) error {
	r.mu.Lock()
	list := r.listLocked()
	idx := -1
	for i, p := range list {
		if p.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		r.mu.Unlock()
		return domain.Invalid("recipient", "pick one of the listed players")
	}
	before := r.refLocked()
	p := list[idx]
	r.selected = &p
	r.selectedFrom = r.mode
	r.setListLocked([]domain.Player{p})
	r.state = StateSelected
	r.message = ""
	after := r.refLocked()
	r.mu.Unlock()

	r.emit(before, after)
	return nil
}

// SetMode switches the lookup strategy. Both raw inputs are cleared; a
// selected player survives the switch and stays listed in both modes.
func (r *Resolver) SetMode(m Mode) {
	r.mu.Lock()
	if m == r.mode {
		r.mu.Unlock()
		return
	}
	r.mode = m
	r.nameInput = ""
	r.idInput = ""
	r.message = ""
	r.gen++
	if r.selected != nil {
		r.byName = []domain.Player{*r.selected}
		r.byID = []domain.Player{*r.selected}
		r.state = StateSelected
	} else {
		r.byName = nil
		r.byID = nil
		r.state = StateIdle
	}
	r.mu.Unlock()
}

// Clear drops the selection together with all search state. The mode is
// kept.
func (r *Resolver) Clear() {
	r.mu.Lock()
	before := r.refLocked()
	r.nameInput = ""
	r.idInput = ""
	r.byName = nil
	r.byID = nil
	r.selected = nil
	r.selectedFrom = ""
	r.message = ""
	r.state = StateIdle
	r.gen++
	r.mu.Unlock()

	r.emit(before, domain.RecipientRef{})
}

// Selected returns the transfer target. PublicID is only filled while the
// id the player was resolved from is still entered.
func (r *Resolver) Selected() domain.RecipientRef {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.refLocked()
}

func (r *Resolver) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.listLocked()
	shown := list
	if len(shown) > DisplayLimit {
		shown = shown[:DisplayLimit]
	}
	s := Snapshot{
		Mode:       r.mode,
		State:      r.state,
		NameInput:  r.nameInput,
		IDInput:    r.idInput,
		Candidates: append([]domain.Player{}, shown...),
		Hidden:     len(list) - len(shown),
		Message:    r.message,
	}
	if r.selected != nil {
		p := *r.selected
		s.Selected = &p
	}
	return s
}

func (r *Resolver) refLocked() domain.RecipientRef {
	if r.selected == nil {
		return domain.RecipientRef{}
	}
	ref := domain.RecipientRef{ID: r.selected.ID, Name: r.selected.Username}
	if r.selectedFrom == ModeID && r.mode == ModeID {
		ref.PublicID = strings.TrimSpace(r.idInput)
	}
	return ref
}

func (r *Resolver) listLocked() []domain.Player {
	if r.mode == ModeID {
		return r.byID
	}
	return r.byName
}

func (r *Resolver) setListLocked(ps []domain.Player) {
	if r.mode == ModeID {
		r.byID = ps
	} else {
		r.byName = ps
	}
}

func (r *Resolver) emit(before, after domain.RecipientRef) {
	if before == after {
		return
	}
	r.mu.Lock()
	listeners := append([]func(domain.RecipientRef){}, r.listeners...)
	r.mu.Unlock()
	for _, fn := range listeners {
		fn(after)
	}
}

func digitsOnly(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
