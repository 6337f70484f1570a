package rules

import (
	"errors"
	"sync"
	"time"
)

// StackObjectKind describes the type of object on the stack.
type StackObjectKind string

const (
	// StackObjectSpell represents a spell cast by a player.
	StackObjectSpell StackObjectKind = "SPELL"
	// StackObjectAbility represents an activated ability.
	StackObjectAbility StackObjectKind = "ABILITY"
)

// StackObject is a single spell or ability awaiting resolution. It is
// created only after its full cost has been committed; the timestamp
// breaks resolution-order ties and anchors identity across copies.
type StackObject struct {
	ID         string
	AbilityID  string
	SourceID   string
	Controller string
	CardName   string
	Kind       StackObjectKind
	Targets    []string
	// Hybrid/Phyrexian payment options chosen at cast time; fixed for
	// the object's lifetime on the stack and preserved by copies.
	SymbolChoices []int
	XValue        int
	Timestamp     time.Time
}

// StackManager manages the game stack.
type StackManager struct {
	mu      sync.Mutex
	objects []StackObject
}

// NewStackManager creates a new stack manager.
func NewStackManager() *StackManager {
	return &StackManager{
		objects: make([]StackObject, 0, 16),
	}
}

// Push adds an object to the top of the stack.
func (sm *StackManager) Push(obj StackObject) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if obj.Timestamp.IsZero() {
		obj.Timestamp = time.Now()
	}
	sm.objects = append(sm.objects, obj)
}

// Pop removes the top object from the stack.
func (sm *StackManager) Pop() (StackObject, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if len(sm.objects) == 0 {
		return StackObject{}, errors.New("stack empty")
	}

	idx := len(sm.objects) - 1
	obj := sm.objects[idx]
	sm.objects = sm.objects[:idx]
	return obj, nil
}

// Peek returns the top object without removing it.
func (sm *StackManager) Peek() (StackObject, bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if len(sm.objects) == 0 {
		return StackObject{}, false
	}
	return sm.objects[len(sm.objects)-1], true
}

// Remove deletes an object from anywhere in the stack by ID.
func (sm *StackManager) Remove(id string) (StackObject, bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	for idx := len(sm.objects) - 1; idx >= 0; idx-- {
		if sm.objects[idx].ID == id {
			obj := sm.objects[idx]
			sm.objects = append(sm.objects[:idx], sm.objects[idx+1:]...)
			return obj, true
		}
	}
	return StackObject{}, false
}

// List returns a copy of all stack objects (topmost last).
func (sm *StackManager) List() []StackObject {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	cpy := make([]StackObject, len(sm.objects))
	copy(cpy, sm.objects)
	return cpy
}

// Len returns the number of objects on the stack.
func (sm *StackManager) Len() int {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return len(sm.objects)
}

// IsEmpty returns whether the stack is empty.
func (sm *StackManager) IsEmpty() bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return len(sm.objects) == 0
}
