package mana

import (
	"sync"
)

// ManaType represents a type of mana.
type ManaType string

const (
	ManaWhite     ManaType = "WHITE"
	ManaBlue      ManaType = "BLUE"
	ManaBlack     ManaType = "BLACK"
	ManaRed       ManaType = "RED"
	ManaGreen     ManaType = "GREEN"
	ManaColorless ManaType = "COLORLESS"
	ManaGeneric   ManaType = "GENERIC" // Generic mana can be paid with any type
)

// ColoredTypes lists the five colors in WUBRG order.
var ColoredTypes = []ManaType{ManaWhite, ManaBlue, ManaBlack, ManaRed, ManaGreen}

// RestrictedMana is mana that may only be spent on certain objects
// (e.g. "Spend this mana only to cast creature spells").
type RestrictedMana struct {
	Type          ManaType
	Amount        int
	Restriction   string // Restriction tag from the producing effect
	SpendOnlyOnID string // If set, only spendable on this object
	SourceID      string // Permanent that produced this mana
}

// ManaPool represents a player's mana pool.
// Per Rule 106.4 the pool empties at the end of each step and phase;
// a "doesn't empty" effect instead converts colored mana to colorless.
type ManaPool struct {
	mu sync.RWMutex

	White     int
	Blue      int
	Black     int
	Red       int
	Green     int
	Colorless int

	restricted []RestrictedMana

	// Sources of active "mana pool doesn't empty" effects.
	doesNotEmpty map[string]bool
}

// NewManaPool creates a new empty mana pool.
func NewManaPool() *ManaPool {
	return &ManaPool{
		doesNotEmpty: make(map[string]bool),
	}
}

// Add adds mana to the pool.
func (mp *ManaPool) Add(manaType ManaType, amount int) {
	if amount <= 0 {
		return
	}
	mp.mu.Lock()
	defer mp.mu.Unlock()
	mp.add(manaType, amount)
}

func (mp *ManaPool) add(manaType ManaType, amount int) {
	switch manaType {
	case ManaWhite:
		mp.White += amount
	case ManaBlue:
		mp.Blue += amount
	case ManaBlack:
		mp.Black += amount
	case ManaRed:
		mp.Red += amount
	case ManaGreen:
		mp.Green += amount
	case ManaColorless:
		mp.Colorless += amount
	}
}

// AddRestricted appends a restricted mana entry to the ledger.
func (mp *ManaPool) AddRestricted(entry RestrictedMana) {
	if entry.Amount <= 0 {
		return
	}
	mp.mu.Lock()
	defer mp.mu.Unlock()
	mp.restricted = append(mp.restricted, entry)
}

// RestrictedEntries returns a copy of the restricted mana ledger.
func (mp *ManaPool) RestrictedEntries() []RestrictedMana {
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	cpy := make([]RestrictedMana, len(mp.restricted))
	copy(cpy, mp.restricted)
	return cpy
}

// GetTotal returns the unrestricted amount of a mana type.
func (mp *ManaPool) GetTotal(manaType ManaType) int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return mp.get(manaType)
}

func (mp *ManaPool) get(manaType ManaType) int {
	switch manaType {
	case ManaWhite:
		return mp.White
	case ManaBlue:
		return mp.Blue
	case ManaBlack:
		return mp.Black
	case ManaRed:
		return mp.Red
	case ManaGreen:
		return mp.Green
	case ManaColorless:
		return mp.Colorless
	default:
		return 0
	}
}

// GetTotalFor returns the amount of a mana type spendable on the given
// object, including eligible restricted entries.
func (mp *ManaPool) GetTotalFor(manaType ManaType, objectID string) int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	total := mp.get(manaType)
	for _, entry := range mp.restricted {
		if entry.Type == manaType && restrictedEligible(entry, objectID) {
			total += entry.Amount
		}
	}
	return total
}

func restrictedEligible(entry RestrictedMana, objectID string) bool {
	if entry.SpendOnlyOnID == "" {
		return true
	}
	return objectID != "" && entry.SpendOnlyOnID == objectID
}

// Spend removes unrestricted mana from the pool.
// Returns false (and changes nothing) if insufficient.
func (mp *ManaPool) Spend(manaType ManaType, amount int) bool {
	return mp.SpendFor(manaType, amount, "")
}

// SpendFor removes mana spendable on the given object, preferring
// unrestricted mana so restricted entries stay available longest.
func (mp *ManaPool) SpendFor(manaType ManaType, amount int, objectID string) bool {
	if amount <= 0 {
		return true
	}
	mp.mu.Lock()
	defer mp.mu.Unlock()

	available := mp.get(manaType)
	for _, entry := range mp.restricted {
		if entry.Type == manaType && restrictedEligible(entry, objectID) {
			available += entry.Amount
		}
	}
	if available < amount {
		return false
	}

	fromUnrestricted := amount
	if fromUnrestricted > mp.get(manaType) {
		fromUnrestricted = mp.get(manaType)
	}
	mp.add(manaType, -fromUnrestricted)
	remaining := amount - fromUnrestricted

	for i := range mp.restricted {
		if remaining <= 0 {
			break
		}
		entry := &mp.restricted[i]
		if entry.Type != manaType || !restrictedEligible(*entry, objectID) {
			continue
		}
		spend := remaining
		if spend > entry.Amount {
			spend = entry.Amount
		}
		entry.Amount -= spend
		remaining -= spend
	}
	mp.compactRestricted()
	return true
}

func (mp *ManaPool) compactRestricted() {
	kept := mp.restricted[:0]
	for _, entry := range mp.restricted {
		if entry.Amount > 0 {
			kept = append(kept, entry)
		}
	}
	mp.restricted = kept
}

// SetDoesNotEmpty marks the pool as persisting past step/phase boundaries
// for the given source (e.g. Omnath, Locus of Mana style effects).
func (mp *ManaPool) SetDoesNotEmpty(sourceID string, active bool) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	if active {
		mp.doesNotEmpty[sourceID] = true
	} else {
		delete(mp.doesNotEmpty, sourceID)
	}
}

// DoesNotEmpty reports whether a persistence effect is active.
func (mp *ManaPool) DoesNotEmpty() bool {
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return len(mp.doesNotEmpty) > 0
}

// Empty empties the mana pool at a step/phase boundary.
// While a persistence effect is active, colored mana converts to
// colorless instead of being lost.
func (mp *ManaPool) Empty() {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if len(mp.doesNotEmpty) > 0 {
		mp.Colorless += mp.White + mp.Blue + mp.Black + mp.Red + mp.Green
		mp.White, mp.Blue, mp.Black, mp.Red, mp.Green = 0, 0, 0, 0, 0
		return
	}

	mp.White, mp.Blue, mp.Black, mp.Red, mp.Green, mp.Colorless = 0, 0, 0, 0, 0, 0
	mp.restricted = mp.restricted[:0]
}

// GetTotalMana returns the total unrestricted mana count across all types.
func (mp *ManaPool) GetTotalMana() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return mp.White + mp.Blue + mp.Black + mp.Red + mp.Green + mp.Colorless
}

// GetTotalManaFor returns the total mana spendable on the given object,
// including eligible restricted entries.
func (mp *ManaPool) GetTotalManaFor(objectID string) int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	total := mp.White + mp.Blue + mp.Black + mp.Red + mp.Green + mp.Colorless
	for _, entry := range mp.restricted {
		if restrictedEligible(entry, objectID) {
			total += entry.Amount
		}
	}
	return total
}

// Copy creates a deep copy of the mana pool.
func (mp *ManaPool) Copy() *ManaPool {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	cpy := &ManaPool{
		White:        mp.White,
		Blue:         mp.Blue,
		Black:        mp.Black,
		Red:          mp.Red,
		Green:        mp.Green,
		Colorless:    mp.Colorless,
		restricted:   make([]RestrictedMana, len(mp.restricted)),
		doesNotEmpty: make(map[string]bool, len(mp.doesNotEmpty)),
	}
	copy(cpy.restricted, mp.restricted)
	for k, v := range mp.doesNotEmpty {
		cpy.doesNotEmpty[k] = v
	}
	return cpy
}
