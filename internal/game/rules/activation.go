package rules

import (
	"fmt"
)

// ActivationContext is an immutable snapshot of the game situation an
// activation attempt is judged against. The turn/priority layer builds
// one per attempt.
type ActivationContext struct {
	PlayerID                   string
	HasPriority                bool
	IsMainPhase                bool
	IsOwnTurn                  bool
	StackEmpty                 bool
	IsCombat                   bool
	ActivationsThisTurn        int
	LoyaltyActivationsThisTurn int
	SourceTapped               bool
	SourceOnBattlefield        bool
	PayingCost                 bool // Inside a cost payment window (Rule 605.3a)
}

// RestrictionKind tags the restriction variants.
type RestrictionKind string

const (
	// RestrictionSorcerySpeed requires priority, main phase, own turn
	// and an empty stack simultaneously.
	RestrictionSorcerySpeed RestrictionKind = "SORCERY_SPEED"
	// RestrictionPerTurn caps activations per turn.
	RestrictionPerTurn RestrictionKind = "PER_TURN"
	// RestrictionCombatOnly requires the combat phase.
	RestrictionCombatOnly RestrictionKind = "COMBAT_ONLY"
	// RestrictionOwnTurnOnly requires the controller's own turn.
	RestrictionOwnTurnOnly RestrictionKind = "OWN_TURN_ONLY"
)

// Restriction is one timing/frequency/condition restriction on an
// activated ability.
type Restriction struct {
	Kind       RestrictionKind
	PerTurnCap int // Used by RestrictionPerTurn
}

// Violation is a single failed restriction with a specific reason.
type Violation struct {
	Code   ErrorCode
	Reason string
}

// ActivationCheck is the outcome of validating an activation attempt.
// Every restriction is evaluated, not just the first failure.
type ActivationCheck struct {
	Legal      bool
	Violations []Violation
}

// First returns the first violation, or a zero Violation when legal.
func (ac ActivationCheck) First() Violation {
	if len(ac.Violations) == 0 {
		return Violation{}
	}
	return ac.Violations[0]
}

func (ac *ActivationCheck) fail(code ErrorCode, reason string) {
	ac.Legal = false
	ac.Violations = append(ac.Violations, Violation{Code: code, Reason: reason})
}

// AbilityProfile describes the timing class of the ability being checked.
type AbilityProfile struct {
	IsManaAbility bool
	IsLoyalty     bool
	RequiresTap   bool
	Restrictions  []Restriction
}

// CheckActivation validates an activation attempt against its
// restriction list and context snapshot.
//
// Mana abilities bypass timing checks entirely: they may be activated
// any time the player has priority, or without priority while paying a
// cost (Rule 605.3a), subject only to their own constraints such as the
// source already being tapped.
//
// Loyalty abilities carry an implicit, non-overridable restriction:
// main phase, own turn, empty stack, and at most one loyalty activation
// per turn (Rule 606.3 as modified by this engine's once-per-turn rule).
func CheckActivation(profile AbilityProfile, ctx ActivationContext) ActivationCheck {
	check := ActivationCheck{Legal: true}

	if profile.IsManaAbility {
		if !ctx.HasPriority && !ctx.PayingCost {
			check.fail(ErrNoPriority, "mana abilities require priority or an open payment window")
		}
		if profile.RequiresTap && ctx.SourceTapped {
			check.fail(ErrAlreadyTapped, "source is already tapped")
		}
		return check
	}

	if !ctx.HasPriority {
		check.fail(ErrNoPriority, "player does not have priority")
	}
	if profile.RequiresTap && ctx.SourceTapped {
		check.fail(ErrAlreadyTapped, "source is already tapped")
	}

	restrictions := profile.Restrictions
	if profile.IsLoyalty {
		restrictions = append([]Restriction{
			{Kind: RestrictionSorcerySpeed},
		}, restrictions...)
	}

	for _, r := range restrictions {
		checkRestriction(r, ctx, &check)
	}

	if profile.IsLoyalty && ctx.LoyaltyActivationsThisTurn >= 1 {
		check.fail(ErrOncePerTurn, "a loyalty ability of this permanent was already activated this turn")
	}

	return check
}

func checkRestriction(r Restriction, ctx ActivationContext, check *ActivationCheck) {
	switch r.Kind {
	case RestrictionSorcerySpeed:
		// Each failing sub-condition yields its own reason.
		if !ctx.IsOwnTurn {
			check.fail(ErrNotYourTurn, "sorcery-speed ability requires your own turn")
		}
		if !ctx.IsMainPhase {
			check.fail(ErrWrongTiming, "sorcery-speed ability requires a main phase")
		}
		if !ctx.StackEmpty {
			check.fail(ErrWrongTiming, "sorcery-speed ability requires an empty stack")
		}
	case RestrictionPerTurn:
		limit := r.PerTurnCap
		if limit <= 0 {
			limit = 1
		}
		if ctx.ActivationsThisTurn >= limit {
			check.fail(ErrOncePerTurn, fmt.Sprintf("ability already activated %d of %d times this turn", ctx.ActivationsThisTurn, limit))
		}
	case RestrictionCombatOnly:
		if !ctx.IsCombat {
			check.fail(ErrWrongTiming, "ability can only be activated during combat")
		}
	case RestrictionOwnTurnOnly:
		if !ctx.IsOwnTurn {
			check.fail(ErrNotYourTurn, "ability can only be activated during your turn")
		}
	}
}
