package game

import (
	"context"
	"time"

	"github.com/spellforge/spellforge-server/internal/game/costs"
	"github.com/spellforge/spellforge-server/internal/game/mana"
	"github.com/spellforge/spellforge-server/internal/game/rules"
)

// ManaProduction describes what a mana ability adds to the pool.
type ManaProduction struct {
	Type   mana.ManaType
	Amount int
	// AnyColor means the controller chooses the color on activation.
	AnyColor bool
	// Restriction, when set, produces restricted mana instead of
	// freely spendable mana.
	Restriction   string
	SpendOnlyOnID string
}

// Ability is a structured activated ability or spell, as assembled from
// the oracle-text parser's output and static ability tables.
type Ability struct {
	ID           string
	SourceID     string
	ControllerID string
	CardName     string
	Description  string
	Kind         rules.StackObjectKind

	Costs        []costs.Component
	Flags        costs.AbilityFlags
	Restrictions []rules.Restriction

	// Modes for modal abilities; empty for non-modal ones.
	Modes []string

	// Targets chosen for the effect (not cost targets).
	Targets []string

	// Mana production, for mana abilities only.
	Produces []ManaProduction
}

// ActivationRequest is one attempt to cast a spell or activate an
// ability. The context snapshot comes from the turn/priority layer.
type ActivationRequest struct {
	Ability       Ability
	Context       rules.ActivationContext
	ChosenMode    string
	XValue        int
	SymbolChoices []mana.SymbolChoice
}

// Stage tracks an in-flight activation through the payment state machine.
type Stage string

const (
	StageAnnounced      Stage = "ANNOUNCED"
	StageModesChosen    Stage = "MODES_CHOSEN"
	StageTargetsChosen  Stage = "TARGETS_CHOSEN"
	StageCostDetermined Stage = "COST_DETERMINED"
	StageAwaitingSteps  Stage = "AWAITING_INTERACTIVE_COMPONENTS"
	StageManaValidated  Stage = "MANA_VALIDATED"
	StageCommitted      Stage = "COMMITTED"
	StageAborted        Stage = "ABORTED"
)

// ActivationResult is the orchestrator's answer to an activation
// attempt or step response.
type ActivationResult struct {
	Success bool
	// Pending means the activation is suspended on a resolution step.
	Pending bool
	StepID  string

	ErrorCode rules.ErrorCode
	Message   string

	StackObjectID string
	ManaPoolAfter *mana.ManaPool
}

func rejected(code rules.ErrorCode, message string) ActivationResult {
	return ActivationResult{ErrorCode: code, Message: message}
}

// ActivationEvent is one committed activation appended to the per-game
// event log. Rejections and rollbacks append nothing.
type ActivationEvent struct {
	GameID      string
	PlayerID    string
	PermanentID string
	AbilityID   string
	CardName    string
	ManaCost    string
	CreatedAt   time.Time
}

// ActivationLog is the append-only event log consumed by the
// orchestrator. The persistent store behind it is owned elsewhere.
type ActivationLog interface {
	Append(ctx context.Context, event ActivationEvent) error
}

// NopActivationLog discards events; used when no database is configured
// and in tests.
type NopActivationLog struct{}

// Append implements ActivationLog.
func (NopActivationLog) Append(context.Context, ActivationEvent) error { return nil }
