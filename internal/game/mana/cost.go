package mana

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Cost represents a parsed mana cost.
type Cost struct {
	Generic   int
	White     int
	Blue      int
	Black     int
	Red       int
	Green     int
	Colorless int
	X         bool // X in cost (e.g., {X}{R})
	Symbols   []Symbol
}

var symbolPattern = regexp.MustCompile(`\{([^}]+)\}`)

// ParseCost parses a mana cost string (e.g., "{1}{G}", "{2}{R}{R}", "{X}{R}").
// Supports:
// - Generic: {1}, {2}, {3}, etc.
// - Colored: {W}, {U}, {B}, {R}, {G}, {C}
// - X costs: {X}
// - Hybrid: {W/U}, {2/B}
// - Phyrexian: {W/P}
func ParseCost(costStr string) (*Cost, error) {
	if costStr == "" {
		return &Cost{}, nil
	}

	cost := &Cost{}
	matches := symbolPattern.FindAllStringSubmatch(costStr, -1)

	for _, match := range matches {
		if len(match) < 2 {
			continue
		}
		symbol := strings.ToUpper(strings.TrimSpace(match[1]))

		switch symbol {
		case "X":
			cost.X = true
		case "W":
			cost.White++
		case "U":
			cost.Blue++
		case "B":
			cost.Black++
		case "R":
			cost.Red++
		case "G":
			cost.Green++
		case "C":
			cost.Colorless++
		default:
			if num, err := strconv.Atoi(symbol); err == nil {
				cost.Generic += num
			} else if strings.Contains(symbol, "/") {
				hybrid, err := ParseSymbol(symbol)
				if err != nil {
					return nil, err
				}
				cost.Symbols = append(cost.Symbols, hybrid)
			} else {
				return nil, fmt.Errorf("unknown mana symbol: {%s}", symbol)
			}
		}
	}

	return cost, nil
}

func (mc *Cost) addColor(manaType ManaType, amount int) {
	switch manaType {
	case ManaWhite:
		mc.White += amount
	case ManaBlue:
		mc.Blue += amount
	case ManaBlack:
		mc.Black += amount
	case ManaRed:
		mc.Red += amount
	case ManaGreen:
		mc.Green += amount
	case ManaColorless:
		mc.Colorless += amount
	}
}

// ColorAmount returns the required amount of one color.
func (mc *Cost) ColorAmount(manaType ManaType) int {
	switch manaType {
	case ManaWhite:
		return mc.White
	case ManaBlue:
		return mc.Blue
	case ManaBlack:
		return mc.Black
	case ManaRed:
		return mc.Red
	case ManaGreen:
		return mc.Green
	case ManaColorless:
		return mc.Colorless
	default:
		return 0
	}
}

// ColoredTotal returns the total of all required colored and colorless mana,
// excluding generic and unresolved symbols.
func (mc *Cost) ColoredTotal() int {
	return mc.White + mc.Blue + mc.Black + mc.Red + mc.Green + mc.Colorless
}

// ManaValue returns the cost's mana value. X counts as the chosen value
// only while the object is on the stack and 0 everywhere else
// (Rule 202.3b); callers pass xValue accordingly.
func (mc *Cost) ManaValue(xValue int) int {
	total := mc.Generic + mc.ColoredTotal()
	if mc.X {
		total += xValue
	}
	for _, sym := range mc.Symbols {
		total += sym.ManaValue()
	}
	return total
}

// Copy returns a deep copy of the cost.
func (mc *Cost) Copy() *Cost {
	cpy := *mc
	cpy.Symbols = make([]Symbol, len(mc.Symbols))
	copy(cpy.Symbols, mc.Symbols)
	return &cpy
}

// String returns the cost in oracle notation.
func (mc *Cost) String() string {
	var parts []string

	if mc.X {
		parts = append(parts, "{X}")
	}
	if mc.Generic > 0 {
		parts = append(parts, fmt.Sprintf("{%d}", mc.Generic))
	}
	for i := 0; i < mc.White; i++ {
		parts = append(parts, "{W}")
	}
	for i := 0; i < mc.Blue; i++ {
		parts = append(parts, "{U}")
	}
	for i := 0; i < mc.Black; i++ {
		parts = append(parts, "{B}")
	}
	for i := 0; i < mc.Red; i++ {
		parts = append(parts, "{R}")
	}
	for i := 0; i < mc.Green; i++ {
		parts = append(parts, "{G}")
	}
	for i := 0; i < mc.Colorless; i++ {
		parts = append(parts, "{C}")
	}
	for _, sym := range mc.Symbols {
		parts = append(parts, sym.String())
	}

	return strings.Join(parts, "")
}
