package resolution

import (
	"time"

	"github.com/google/uuid"
)

// StepKind names the player decision a step asks for.
type StepKind string

const (
	// StepSelectTapTarget picks a permanent to tap as a cost.
	StepSelectTapTarget StepKind = "SELECT_TAP_TARGET"
	// StepSelectUntapTarget picks a permanent to untap as a cost.
	StepSelectUntapTarget StepKind = "SELECT_UNTAP_TARGET"
	// StepSelectSacrifice picks permanents to sacrifice.
	StepSelectSacrifice StepKind = "SELECT_SACRIFICE"
	// StepSelectDiscard picks cards to discard.
	StepSelectDiscard StepKind = "SELECT_DISCARD"
	// StepSelectExile picks cards to exile.
	StepSelectExile StepKind = "SELECT_EXILE"
	// StepSelectReturnToHand picks a permanent to return to hand.
	StepSelectReturnToHand StepKind = "SELECT_RETURN_TO_HAND"
	// StepSelectCounterTarget picks the permanent to remove counters from.
	StepSelectCounterTarget StepKind = "SELECT_COUNTER_TARGET"
	// StepChooseColor picks a mana color (mana abilities with a color choice).
	StepChooseColor StepKind = "CHOOSE_COLOR"
)

// StepState is the lifecycle state of a resolution step.
type StepState string

const (
	// StatePending means the step awaits a player response.
	StatePending StepState = "PENDING"
	// StateCompleted means the response was validated and committed.
	StateCompleted StepState = "COMPLETED"
	// StateCancelled means the player cancelled the step and its activation.
	StateCancelled StepState = "CANCELLED"
)

// Correlation ties a step to its in-flight activation so the
// orchestrator can resume from the step alone and reuse an open step
// instead of duplicating a prompt.
type Correlation struct {
	SourceID  string
	AbilityID string
	CostKind  string
}

// Step is a queued unit of player interaction blocking an in-flight
// activation until answered or cancelled.
type Step struct {
	ID        string
	GameID    string
	PlayerID  string
	Kind      StepKind
	Prompt    string
	Mandatory bool

	// Candidate object ids the player may pick from.
	Options       []string
	MinSelections int
	MaxSelections int

	Correlation Correlation

	// Payload carries everything needed to resume the activation:
	// ability id, source id, known targets, cost-so-far.
	Payload map[string]string

	State     StepState
	Response  []string
	CreatedAt time.Time
}

// NewStep builds a pending step with a fresh opaque id.
func NewStep(gameID, playerID string, kind StepKind, prompt string) Step {
	return Step{
		ID:            uuid.NewString(),
		GameID:        gameID,
		PlayerID:      playerID,
		Kind:          kind,
		Prompt:        prompt,
		Mandatory:     true,
		MinSelections: 1,
		MaxSelections: 1,
		Payload:       make(map[string]string),
		State:         StatePending,
		CreatedAt:     time.Now(),
	}
}
