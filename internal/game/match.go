package game

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spellforge/spellforge-server/internal/game/costs"
	"github.com/spellforge/spellforge-server/internal/game/counters"
	"github.com/spellforge/spellforge-server/internal/game/mana"
	"github.com/spellforge/spellforge-server/internal/game/resolution"
	"github.com/spellforge/spellforge-server/internal/game/rules"
)

// Zone names used by cost filters.
const (
	ZoneBattlefield = "BATTLEFIELD"
	ZoneHand        = "HAND"
	ZoneGraveyard   = "GRAVEYARD"
	ZoneExile       = "EXILE"
)

// Card is a card or permanent tracked by match state.
type Card struct {
	ID           string
	Name         string
	CardType     string
	ControllerID string
	OwnerID      string
	Tapped       bool
	Counters     *counters.Counters
}

// NewCard builds a card with an empty counter collection.
func NewCard(id, name, cardType, ownerID string) *Card {
	return &Card{
		ID:           id,
		Name:         name,
		CardType:     cardType,
		ControllerID: ownerID,
		OwnerID:      ownerID,
		Counters:     counters.NewCounters(),
	}
}

type playerState struct {
	PlayerID  string
	Life      int
	Pool      *mana.ManaPool
	Hand      []*Card
	Graveyard []*Card
	Exile     []*Card
}

// inflight is the persisted state of one suspended activation, keyed by
// the correlation carried on its resolution step. It holds everything
// needed to resume: the request, the stage reached, and the step id.
type inflight struct {
	Request ActivationRequest
	Stage   Stage
	StepID  string

	// Selections already collected, keyed by index into the non-mana
	// component list produced by costs.Split.
	Selections map[int][]string
	// Steps opened for this activation, keyed the same way. Answered
	// steps stay pending in the queue until the commit consumes them,
	// and cancelling any one of them aborts the whole activation.
	Steps map[int]string
	// Component index the current step is collecting for.
	PendingComponent int
}

// matchState is the state arena entry for one game. The mana pools,
// resolution queue and stack belong here and are mutated only by the
// engine while holding mu; each game advances single-threaded.
type matchState struct {
	mu sync.Mutex

	gameID      string
	players     map[string]*playerState
	battlefield []*Card
	stack       *rules.StackManager
	queue       *resolution.Queue

	// Suspended activations by step id.
	inflight map[string]*inflight

	// Per-turn activation bookkeeping.
	activationsThisTurn map[string]int // ability id -> count
	loyaltyThisTurn     map[string]int // source id -> count

	// An uncounterable-spell lock or similar effect forbidding new
	// activations while active.
	stackLocked bool
}

func newMatchState(gameID string, queue *resolution.Queue) *matchState {
	return &matchState{
		gameID:              gameID,
		players:             make(map[string]*playerState),
		battlefield:         make([]*Card, 0, 16),
		stack:               rules.NewStackManager(),
		queue:               queue,
		inflight:            make(map[string]*inflight),
		activationsThisTurn: make(map[string]int),
		loyaltyThisTurn:     make(map[string]int),
	}
}

func (m *matchState) player(playerID string) (*playerState, bool) {
	p, ok := m.players[playerID]
	return p, ok
}

func (m *matchState) findOnBattlefield(cardID string) (*Card, bool) {
	for _, c := range m.battlefield {
		if c.ID == cardID {
			return c, true
		}
	}
	return nil, false
}

func (m *matchState) findInHand(p *playerState, cardID string) (*Card, bool) {
	for _, c := range p.Hand {
		if c.ID == cardID {
			return c, true
		}
	}
	return nil, false
}

// eligibleObjects enumerates the objects that can satisfy a selection
// cost component for the paying player.
func (m *matchState) eligibleObjects(p *playerState, comp costs.Component) []string {
	var pool []*Card
	zone := comp.Filter.Zone
	if zone == "" {
		switch comp.Kind {
		case costs.KindDiscard, costs.KindExile:
			zone = ZoneHand
		default:
			zone = ZoneBattlefield
		}
	}

	switch zone {
	case ZoneHand:
		pool = p.Hand
	case ZoneGraveyard:
		pool = p.Graveyard
	default:
		pool = m.battlefield
	}

	out := make([]string, 0, len(pool))
	for _, c := range pool {
		if comp.Filter.ControllerOnly || zone == ZoneBattlefield {
			if c.ControllerID != p.PlayerID {
				continue
			}
		}
		if comp.Filter.CardType != "" && !strings.Contains(c.CardType, comp.Filter.CardType) {
			continue
		}
		if (comp.Filter.UntappedOnly || comp.Kind == costs.KindTap) && c.Tapped {
			continue
		}
		if comp.Kind == costs.KindUntap && !c.Tapped {
			continue
		}
		if comp.Filter.ExcludeSourceID != "" && c.ID == comp.Filter.ExcludeSourceID {
			continue
		}
		if comp.Kind == costs.KindRemoveCounter && comp.CounterType != "" {
			if c.Counters.Count(comp.CounterType) < comp.CounterCount {
				continue
			}
		}
		out = append(out, c.ID)
	}
	return out
}

// validateComponent checks that a non-mana component can be paid with
// the given selections against pre-mutation state. Everything must be
// validated here; commit-time failures after the mana debit are
// invariant violations.
func (m *matchState) validateComponent(p *playerState, comp costs.Component, selections []string) error {
	switch comp.Kind {
	case costs.KindTap:
		for _, id := range selections {
			c, ok := m.findOnBattlefield(id)
			if !ok {
				return fmt.Errorf("permanent %s is not on the battlefield", id)
			}
			if c.Tapped {
				return fmt.Errorf("permanent %s is already tapped", id)
			}
		}
	case costs.KindUntap:
		for _, id := range selections {
			c, ok := m.findOnBattlefield(id)
			if !ok {
				return fmt.Errorf("permanent %s is not on the battlefield", id)
			}
			if !c.Tapped {
				return fmt.Errorf("permanent %s is not tapped", id)
			}
		}
	case costs.KindSacrifice, costs.KindReturnToHand:
		for _, id := range selections {
			c, ok := m.findOnBattlefield(id)
			if !ok {
				return fmt.Errorf("permanent %s is not on the battlefield", id)
			}
			if c.ControllerID != p.PlayerID {
				return fmt.Errorf("permanent %s is not controlled by %s", id, p.PlayerID)
			}
		}
	case costs.KindDiscard, costs.KindExile:
		for _, id := range selections {
			if _, ok := m.findInHand(p, id); !ok {
				return fmt.Errorf("card %s is not in hand", id)
			}
		}
	case costs.KindRemoveCounter:
		for _, id := range selections {
			c, ok := m.findOnBattlefield(id)
			if !ok {
				return fmt.Errorf("permanent %s is not on the battlefield", id)
			}
			if c.Counters.Count(comp.CounterType) < comp.CounterCount {
				return fmt.Errorf("permanent %s has %d %s counters, need %d",
					id, c.Counters.Count(comp.CounterType), comp.CounterType, comp.CounterCount)
			}
		}
	case costs.KindLife:
		// Rule 119.4: life can be paid only down to zero. A payment of
		// zero life is always legal.
		if comp.LifeAmount > 0 && p.Life < comp.LifeAmount {
			return fmt.Errorf("life payment of %d exceeds life total %d", comp.LifeAmount, p.Life)
		}
	}
	return nil
}

// applyComponent pays one validated non-mana component. It only runs
// inside the commit sequence, after the mana debit.
func (m *matchState) applyComponent(p *playerState, comp costs.Component, selections []string) error {
	switch comp.Kind {
	case costs.KindTap:
		for _, id := range selections {
			c, ok := m.findOnBattlefield(id)
			if !ok || c.Tapped {
				return fmt.Errorf("tap target %s invalid at commit", id)
			}
			c.Tapped = true
		}
	case costs.KindUntap:
		for _, id := range selections {
			c, ok := m.findOnBattlefield(id)
			if !ok || !c.Tapped {
				return fmt.Errorf("untap target %s invalid at commit", id)
			}
			c.Tapped = false
		}
	case costs.KindSacrifice:
		for _, id := range selections {
			if err := m.moveToGraveyard(p, id); err != nil {
				return err
			}
		}
	case costs.KindReturnToHand:
		for _, id := range selections {
			c, ok := m.findOnBattlefield(id)
			if !ok {
				return fmt.Errorf("return target %s invalid at commit", id)
			}
			m.removeFromBattlefield(id)
			c.Tapped = false
			owner := m.players[c.OwnerID]
			if owner == nil {
				owner = p
			}
			owner.Hand = append(owner.Hand, c)
		}
	case costs.KindDiscard:
		for _, id := range selections {
			c, ok := m.findInHand(p, id)
			if !ok {
				return fmt.Errorf("discard card %s invalid at commit", id)
			}
			m.removeFromHand(p, id)
			p.Graveyard = append(p.Graveyard, c)
		}
	case costs.KindExile:
		for _, id := range selections {
			c, ok := m.findInHand(p, id)
			if !ok {
				return fmt.Errorf("exile card %s invalid at commit", id)
			}
			m.removeFromHand(p, id)
			p.Exile = append(p.Exile, c)
		}
	case costs.KindRemoveCounter:
		for _, id := range selections {
			c, ok := m.findOnBattlefield(id)
			if !ok || !c.Counters.Remove(comp.CounterType, comp.CounterCount) {
				return fmt.Errorf("counter removal from %s invalid at commit", id)
			}
		}
	case costs.KindLife:
		if comp.LifeAmount > 0 {
			if p.Life < comp.LifeAmount {
				return fmt.Errorf("life payment invalid at commit")
			}
			p.Life -= comp.LifeAmount
		}
	}
	return nil
}

func (m *matchState) moveToGraveyard(p *playerState, cardID string) error {
	c, ok := m.findOnBattlefield(cardID)
	if !ok {
		return fmt.Errorf("permanent %s not on battlefield", cardID)
	}
	m.removeFromBattlefield(cardID)
	c.Tapped = false
	owner := m.players[c.OwnerID]
	if owner == nil {
		owner = p
	}
	owner.Graveyard = append(owner.Graveyard, c)
	return nil
}

func (m *matchState) removeFromBattlefield(cardID string) {
	for i, c := range m.battlefield {
		if c.ID == cardID {
			m.battlefield = append(m.battlefield[:i], m.battlefield[i+1:]...)
			return
		}
	}
}

func (m *matchState) removeFromHand(p *playerState, cardID string) {
	for i, c := range p.Hand {
		if c.ID == cardID {
			p.Hand = append(p.Hand[:i], p.Hand[i+1:]...)
			return
		}
	}
}
