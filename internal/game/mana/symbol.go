package mana

import (
	"fmt"
	"strconv"
	"strings"
)

// SymbolKind distinguishes the hybrid symbol variants.
type SymbolKind string

const (
	// SymbolColorOrColor is a two-color hybrid like {W/U}.
	SymbolColorOrColor SymbolKind = "COLOR_OR_COLOR"
	// SymbolGenericOrColor is a monocolored hybrid like {2/W}.
	SymbolGenericOrColor SymbolKind = "GENERIC_OR_COLOR"
	// SymbolPhyrexian is a Phyrexian symbol like {W/P}.
	SymbolPhyrexian SymbolKind = "PHYREXIAN"
)

// PhyrexianLifeCost is the life paid in place of one mana (Rule 107.4f).
const PhyrexianLifeCost = 2

// PaymentOption is one of the two ways a hybrid/Phyrexian symbol can be paid.
type PaymentOption struct {
	Type    ManaType // Mana type to spend (unset for a life payment)
	Amount  int      // Mana amount (the generic number for {2/W} style symbols)
	PayLife int      // Life paid instead of mana (Phyrexian only)
}

// IsLife reports whether this option pays life instead of mana.
func (po PaymentOption) IsLife() bool {
	return po.PayLife > 0
}

// Symbol is a hybrid or Phyrexian mana symbol. The controller chooses
// exactly one of its two payment options at cast time; the choice is
// fixed for the object's lifetime on the stack and preserved by copies.
type Symbol struct {
	Kind    SymbolKind
	Options [2]PaymentOption
}

// ManaValue returns the symbol's contribution to mana value:
// 1 for color/color and Phyrexian symbols, the generic number for
// generic/color symbols (Rule 202.3e-f).
func (s Symbol) ManaValue() int {
	if s.Kind == SymbolGenericOrColor {
		return s.Options[0].Amount
	}
	return 1
}

// String renders the symbol in oracle notation.
func (s Symbol) String() string {
	left := optionSymbol(s.Options[0])
	right := optionSymbol(s.Options[1])
	if s.Kind == SymbolPhyrexian {
		right = "P"
	}
	return fmt.Sprintf("{%s/%s}", left, right)
}

func optionSymbol(po PaymentOption) string {
	if po.Type == ManaGeneric {
		return strconv.Itoa(po.Amount)
	}
	return colorLetter(po.Type)
}

func colorLetter(mt ManaType) string {
	switch mt {
	case ManaWhite:
		return "W"
	case ManaBlue:
		return "U"
	case ManaBlack:
		return "B"
	case ManaRed:
		return "R"
	case ManaGreen:
		return "G"
	case ManaColorless:
		return "C"
	default:
		return "?"
	}
}

// ParseSymbol parses the inside of a hybrid/Phyrexian brace pair,
// e.g. "W/U", "2/B" or "G/P".
func ParseSymbol(body string) (Symbol, error) {
	parts := strings.Split(strings.ToUpper(strings.TrimSpace(body)), "/")
	if len(parts) != 2 {
		return Symbol{}, fmt.Errorf("malformed hybrid symbol: {%s}", body)
	}
	left, right := parts[0], parts[1]

	if right == "P" {
		color, ok := letterColor(left)
		if !ok {
			return Symbol{}, fmt.Errorf("malformed Phyrexian symbol: {%s}", body)
		}
		return Symbol{
			Kind: SymbolPhyrexian,
			Options: [2]PaymentOption{
				{Type: color, Amount: 1},
				{PayLife: PhyrexianLifeCost},
			},
		}, nil
	}

	if generic, err := strconv.Atoi(left); err == nil {
		color, ok := letterColor(right)
		if !ok {
			return Symbol{}, fmt.Errorf("malformed hybrid symbol: {%s}", body)
		}
		return Symbol{
			Kind: SymbolGenericOrColor,
			Options: [2]PaymentOption{
				{Type: ManaGeneric, Amount: generic},
				{Type: color, Amount: 1},
			},
		}, nil
	}

	leftColor, okL := letterColor(left)
	rightColor, okR := letterColor(right)
	if !okL || !okR {
		return Symbol{}, fmt.Errorf("malformed hybrid symbol: {%s}", body)
	}
	return Symbol{
		Kind: SymbolColorOrColor,
		Options: [2]PaymentOption{
			{Type: leftColor, Amount: 1},
			{Type: rightColor, Amount: 1},
		},
	}, nil
}

func letterColor(s string) (ManaType, bool) {
	switch s {
	case "W":
		return ManaWhite, true
	case "U":
		return ManaBlue, true
	case "B":
		return ManaBlack, true
	case "R":
		return ManaRed, true
	case "G":
		return ManaGreen, true
	case "C":
		return ManaColorless, true
	default:
		return "", false
	}
}

// SymbolChoice records which option of a symbol the controller picked.
// OptionIndex is 0 or 1, positional against the cost's symbol list.
type SymbolChoice struct {
	OptionIndex int
}

// ChoiceCheck is the result of validating a symbol choice list.
type ChoiceCheck struct {
	Valid  bool
	Reason string
	// Life total paid across all chosen Phyrexian life options.
	LifePayment int
}

// ValidateChoices checks a player-supplied choice list against the
// symbols: exactly one entry per symbol, positionally, and any life
// payments legal against the current life total. The life option of a
// Phyrexian symbol is never disallowed by mana availability; a life
// payment is legal exactly when currentLife >= amount (a zero amount is
// always legal).
func ValidateChoices(symbols []Symbol, choices []SymbolChoice, currentLife int) ChoiceCheck {
	if len(choices) != len(symbols) {
		return ChoiceCheck{
			Reason: fmt.Sprintf("need exactly %d symbol choices, got %d", len(symbols), len(choices)),
		}
	}

	lifePayment := 0
	for i, choice := range choices {
		if choice.OptionIndex < 0 || choice.OptionIndex > 1 {
			return ChoiceCheck{
				Reason: fmt.Sprintf("symbol %d: option index %d out of range", i, choice.OptionIndex),
			}
		}
		option := symbols[i].Options[choice.OptionIndex]
		if option.IsLife() {
			lifePayment += option.PayLife
		}
	}

	if lifePayment > 0 && currentLife < lifePayment {
		return ChoiceCheck{
			Reason: fmt.Sprintf("life payment of %d exceeds life total %d", lifePayment, currentLife),
		}
	}

	return ChoiceCheck{Valid: true, LifePayment: lifePayment}
}

// ApplyChoices folds chosen symbol options into a flat cost: each mana
// option adds to its color (or to generic), life options contribute
// nothing to the mana requirement. Symbol list order is preserved so a
// failed validation reports positionally.
func ApplyChoices(base *Cost, choices []SymbolChoice) *Cost {
	resolved := base.Copy()
	resolved.Symbols = nil

	for i, choice := range choices {
		if i >= len(base.Symbols) {
			break
		}
		option := base.Symbols[i].Options[choice.OptionIndex]
		if option.IsLife() {
			continue
		}
		if option.Type == ManaGeneric {
			resolved.Generic += option.Amount
			continue
		}
		resolved.addColor(option.Type, option.Amount)
	}
	return resolved
}
