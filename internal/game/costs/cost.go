package costs

import (
	"github.com/spellforge/spellforge-server/internal/game/mana"
)

// Kind represents the different kinds of costs that can be paid.
type Kind string

const (
	// KindMana is a mana cost
	KindMana Kind = "MANA"
	// KindTap taps the source or another permanent
	KindTap Kind = "TAP"
	// KindUntap untaps a permanent
	KindUntap Kind = "UNTAP"
	// KindSacrifice sacrifices permanents
	KindSacrifice Kind = "SACRIFICE"
	// KindDiscard discards cards
	KindDiscard Kind = "DISCARD"
	// KindExile exiles cards
	KindExile Kind = "EXILE"
	// KindLife pays life
	KindLife Kind = "LIFE"
	// KindRemoveCounter removes counters from a permanent
	KindRemoveCounter Kind = "REMOVE_COUNTER"
	// KindReturnToHand returns a permanent to its owner's hand
	KindReturnToHand Kind = "RETURN_TO_HAND"
	// KindOther is any other cost
	KindOther Kind = "OTHER"
)

// Filter restricts which objects can satisfy a selection cost
// ("sacrifice a creature you control", "exile a card from your hand").
type Filter struct {
	Zone            string // BATTLEFIELD, HAND, GRAVEYARD
	CardType        string // Creature, Land, ... (empty = any)
	ControllerOnly  bool   // Only objects the paying player controls
	UntappedOnly    bool   // Only untapped permanents
	ExcludeSourceID string // Object that can never satisfy the cost (usually the source)
}

// Component is one component of an activation or casting cost.
// A Component is immutable once constructed; paying it mutates game
// state, never the component.
type Component struct {
	Kind        Kind
	Description string
	Optional    bool
	Mandatory   bool

	// Mana component
	Mana *mana.Cost

	// Life component
	LifeAmount int

	// Selection components: either explicit object ids, or a count plus
	// a filter the player selects against.
	ObjectIDs []string
	Count     int
	Filter    Filter

	// Counter removal
	CounterType  string
	CounterCount int
}

// NeedsSelection reports whether this component requires a player
// decision before it can be paid.
func (c Component) NeedsSelection() bool {
	switch c.Kind {
	case KindTap, KindUntap, KindSacrifice, KindDiscard, KindExile, KindReturnToHand:
		return len(c.ObjectIDs) == 0
	case KindRemoveCounter:
		return len(c.ObjectIDs) == 0 && c.CounterCount > 0
	default:
		return false
	}
}

// SelectionCount returns how many objects the component requires.
func (c Component) SelectionCount() int {
	if c.Count > 0 {
		return c.Count
	}
	return 1
}

// CompositeKind distinguishes additional from alternative costs.
type CompositeKind string

const (
	// CompositeAdditional costs are paid on top of the base cost
	// (e.g. kicker, "as an additional cost to cast").
	CompositeAdditional CompositeKind = "ADDITIONAL"
	// CompositeAlternative costs replace the base cost entirely
	// (e.g. flashback, "you may pay ... rather than pay").
	CompositeAlternative CompositeKind = "ALTERNATIVE"
)

// Composite bundles cost components that apply together.
type Composite struct {
	Kind       CompositeKind
	Components []Component
}

// Split partitions components into the mana component and the non-mana
// components, preserving order. A nil mana cost is returned when no
// mana component exists.
func Split(components []Component) (*mana.Cost, []Component) {
	var manaCost *mana.Cost
	nonMana := make([]Component, 0, len(components))
	for _, c := range components {
		if c.Kind == KindMana && c.Mana != nil {
			if manaCost == nil {
				manaCost = c.Mana.Copy()
			} else {
				merged := manaCost
				merged.Generic += c.Mana.Generic
				merged.White += c.Mana.White
				merged.Blue += c.Mana.Blue
				merged.Black += c.Mana.Black
				merged.Red += c.Mana.Red
				merged.Green += c.Mana.Green
				merged.Colorless += c.Mana.Colorless
				merged.X = merged.X || c.Mana.X
				merged.Symbols = append(merged.Symbols, c.Mana.Symbols...)
			}
			continue
		}
		nonMana = append(nonMana, c)
	}
	return manaCost, nonMana
}
