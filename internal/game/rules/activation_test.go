package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sorceryCtx() ActivationContext {
	return ActivationContext{
		PlayerID:            "p1",
		HasPriority:         true,
		IsMainPhase:         true,
		IsOwnTurn:           true,
		StackEmpty:          true,
		SourceOnBattlefield: true,
	}
}

func TestSorcerySpeedEvaluatesEverySubCondition(t *testing.T) {
	profile := AbilityProfile{
		Restrictions: []Restriction{{Kind: RestrictionSorcerySpeed}},
	}

	ctx := sorceryCtx()
	ctx.IsOwnTurn = false
	ctx.StackEmpty = false

	check := CheckActivation(profile, ctx)
	require.False(t, check.Legal)
	// Both failing sub-conditions report their own reason.
	assert.Len(t, check.Violations, 2)
	assert.Equal(t, ErrNotYourTurn, check.Violations[0].Code)
	assert.Equal(t, ErrWrongTiming, check.Violations[1].Code)
}

func TestSorcerySpeedLegal(t *testing.T) {
	profile := AbilityProfile{
		Restrictions: []Restriction{{Kind: RestrictionSorcerySpeed}},
	}
	check := CheckActivation(profile, sorceryCtx())
	assert.True(t, check.Legal)
	assert.Empty(t, check.Violations)
}

func TestNoPriority(t *testing.T) {
	ctx := sorceryCtx()
	ctx.HasPriority = false

	check := CheckActivation(AbilityProfile{}, ctx)
	require.False(t, check.Legal)
	assert.Equal(t, ErrNoPriority, check.First().Code)
}

func TestPerTurnCap(t *testing.T) {
	profile := AbilityProfile{
		Restrictions: []Restriction{{Kind: RestrictionPerTurn, PerTurnCap: 1}},
	}

	ctx := sorceryCtx()
	check := CheckActivation(profile, ctx)
	assert.True(t, check.Legal)

	ctx.ActivationsThisTurn = 1
	check = CheckActivation(profile, ctx)
	require.False(t, check.Legal)
	assert.Equal(t, ErrOncePerTurn, check.First().Code)
}

func TestCombatOnly(t *testing.T) {
	profile := AbilityProfile{
		Restrictions: []Restriction{{Kind: RestrictionCombatOnly}},
	}

	ctx := sorceryCtx()
	check := CheckActivation(profile, ctx)
	require.False(t, check.Legal)
	assert.Equal(t, ErrWrongTiming, check.First().Code)

	ctx.IsCombat = true
	check = CheckActivation(profile, ctx)
	assert.True(t, check.Legal)
}

func TestLoyaltyImplicitRestriction(t *testing.T) {
	profile := AbilityProfile{IsLoyalty: true}

	// Loyalty abilities are sorcery speed even with no declared restrictions.
	ctx := sorceryCtx()
	ctx.StackEmpty = false
	check := CheckActivation(profile, ctx)
	require.False(t, check.Legal)
	assert.Equal(t, ErrWrongTiming, check.First().Code)

	// Once per turn regardless of other counters.
	ctx = sorceryCtx()
	ctx.LoyaltyActivationsThisTurn = 1
	check = CheckActivation(profile, ctx)
	require.False(t, check.Legal)
	assert.Equal(t, ErrOncePerTurn, check.First().Code)
}

func TestManaAbilityBypassesTiming(t *testing.T) {
	profile := AbilityProfile{
		IsManaAbility: true,
		RequiresTap:   true,
		Restrictions:  []Restriction{{Kind: RestrictionSorcerySpeed}},
	}

	// Not main phase, not own turn, stack occupied: still legal with priority.
	ctx := ActivationContext{HasPriority: true}
	check := CheckActivation(profile, ctx)
	assert.True(t, check.Legal)

	// Legal without priority while paying a cost.
	ctx = ActivationContext{PayingCost: true}
	check = CheckActivation(profile, ctx)
	assert.True(t, check.Legal)

	// Still subject to its own constraints.
	ctx = ActivationContext{HasPriority: true, SourceTapped: true}
	check = CheckActivation(profile, ctx)
	require.False(t, check.Legal)
	assert.Equal(t, ErrAlreadyTapped, check.First().Code)

	// No priority and no open payment window: illegal.
	check = CheckActivation(profile, ActivationContext{})
	require.False(t, check.Legal)
	assert.Equal(t, ErrNoPriority, check.First().Code)
}

func TestStackManagerLIFO(t *testing.T) {
	sm := NewStackManager()
	sm.Push(StackObject{ID: "a", Kind: StackObjectSpell})
	sm.Push(StackObject{ID: "b", Kind: StackObjectAbility})

	require.Equal(t, 2, sm.Len())

	top, ok := sm.Peek()
	require.True(t, ok)
	assert.Equal(t, "b", top.ID)
	assert.False(t, top.Timestamp.IsZero())

	popped, err := sm.Pop()
	require.NoError(t, err)
	assert.Equal(t, "b", popped.ID)

	popped, err = sm.Pop()
	require.NoError(t, err)
	assert.Equal(t, "a", popped.ID)

	_, err = sm.Pop()
	assert.Error(t, err)
}
