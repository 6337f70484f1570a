package counters

// CounterType represents a type of counter.
type CounterType string

const (
	CounterTypeLoyalty CounterType = "loyalty"
	CounterTypeCharge  CounterType = "charge"
	CounterTypeStorage CounterType = "storage"
	CounterTypeP1P1    CounterType = "+1/+1"
	CounterTypeM1M1    CounterType = "-1/-1"
)

// Counters manages the counters on a permanent. Counts never go below
// zero; a counter at zero is removed from the collection.
type Counters struct {
	counts map[string]int
}

// NewCounters creates an empty counter collection.
func NewCounters() *Counters {
	return &Counters{counts: make(map[string]int)}
}

// Add adds the specified amount of a counter type.
func (cs *Counters) Add(name string, amount int) {
	if amount <= 0 {
		return
	}
	cs.counts[name] += amount
}

// Remove removes up to amount counters of the given type.
// Returns false (and removes nothing) if fewer than amount exist.
func (cs *Counters) Remove(name string, amount int) bool {
	if amount <= 0 {
		return true
	}
	if cs.counts[name] < amount {
		return false
	}
	cs.counts[name] -= amount
	if cs.counts[name] == 0 {
		delete(cs.counts, name)
	}
	return true
}

// Count returns the count of counters with the given name.
func (cs *Counters) Count(name string) int {
	return cs.counts[name]
}

// Has returns true if there are any counters with the given name.
func (cs *Counters) Has(name string) bool {
	return cs.counts[name] > 0
}

// Total returns the total number of all counters.
func (cs *Counters) Total() int {
	total := 0
	for _, n := range cs.counts {
		total += n
	}
	return total
}

// All returns a copy of the counter map.
func (cs *Counters) All() map[string]int {
	out := make(map[string]int, len(cs.counts))
	for name, n := range cs.counts {
		out[name] = n
	}
	return out
}

// Copy creates a deep copy of the collection.
func (cs *Counters) Copy() *Counters {
	cpy := NewCounters()
	for name, n := range cs.counts {
		cpy.counts[name] = n
	}
	return cpy
}
