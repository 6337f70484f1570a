package costs

import (
	"fmt"

	"github.com/spellforge/spellforge-server/internal/game/mana"
)

// ParsedCostComponent is the inbound contract from the oracle-text
// parser. It arrives already validated; FromParsed only shapes it into
// immutable components.
type ParsedCostComponent struct {
	Type            Kind
	ManaCost        string
	SacrificeFilter *Filter
	DiscardCount    int
	ExileCount      int
	ExileFilter     *Filter
	LifeAmount      int
	CounterType     string
	CounterCount    int
	ObjectIDs       []string
	Description     string
	Optional        bool
}

// AbilityFlags carries ability-level flags alongside the parsed cost.
type AbilityFlags struct {
	RequiresTap   bool
	SorcerySpeed  bool
	OncePerTurn   bool
	IsManaAbility bool
	IsLoyalty     bool
}

// FromParsed builds immutable cost components from parser output.
func FromParsed(parsed []ParsedCostComponent) ([]Component, error) {
	components := make([]Component, 0, len(parsed))
	for i, p := range parsed {
		c := Component{
			Kind:        p.Type,
			Description: p.Description,
			Optional:    p.Optional,
			Mandatory:   !p.Optional,
			ObjectIDs:   append([]string(nil), p.ObjectIDs...),
		}

		switch p.Type {
		case KindMana:
			parsedCost, err := mana.ParseCost(p.ManaCost)
			if err != nil {
				return nil, fmt.Errorf("component %d: %w", i, err)
			}
			c.Mana = parsedCost
		case KindLife:
			c.LifeAmount = p.LifeAmount
		case KindSacrifice:
			if p.SacrificeFilter != nil {
				c.Filter = *p.SacrificeFilter
			}
			c.Count = 1
		case KindDiscard:
			c.Count = p.DiscardCount
			if c.Count == 0 {
				c.Count = 1
			}
			c.Filter = Filter{Zone: "HAND", ControllerOnly: true}
		case KindExile:
			c.Count = p.ExileCount
			if c.Count == 0 {
				c.Count = 1
			}
			if p.ExileFilter != nil {
				c.Filter = *p.ExileFilter
			}
		case KindRemoveCounter:
			c.CounterType = p.CounterType
			c.CounterCount = p.CounterCount
		}

		components = append(components, c)
	}
	return components, nil
}
