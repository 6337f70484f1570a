package game

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spellforge/spellforge-server/internal/game/costs"
	"github.com/spellforge/spellforge-server/internal/game/mana"
	"github.com/spellforge/spellforge-server/internal/game/rules"
)

type recordingLog struct {
	mu     sync.Mutex
	events []ActivationEvent
}

func (l *recordingLog) Append(_ context.Context, event ActivationEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
	return nil
}

func (l *recordingLog) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

func newTestEngine(t *testing.T, log ActivationLog) (*Engine, string) {
	t.Helper()
	e := NewEngine(nil, log, nil)
	gameID := e.CreateGame("game-1")
	require.NoError(t, e.AddPlayer(gameID, "alice", 20))
	require.NoError(t, e.AddPlayer(gameID, "bob", 20))
	return e, gameID
}

func openContext() rules.ActivationContext {
	return rules.ActivationContext{
		HasPriority: true,
		IsMainPhase: true,
		IsOwnTurn:   true,
	}
}

func manaCostComponent(t *testing.T, text string) costs.Component {
	t.Helper()
	cost, err := mana.ParseCost(text)
	require.NoError(t, err)
	return costs.Component{Kind: costs.KindMana, Mana: cost, Mandatory: true}
}

func tapCreatureAbility(t *testing.T, manaText string) Ability {
	return Ability{
		ID:           "ab-1",
		SourceID:     "src-1",
		ControllerID: "alice",
		CardName:     "Trainer of Hounds",
		Kind:         rules.StackObjectAbility,
		Costs: []costs.Component{
			manaCostComponent(t, manaText),
			{
				Kind:      costs.KindTap,
				Mandatory: true,
				Filter:    costs.Filter{CardType: "Creature", ControllerOnly: true},
			},
		},
	}
}

func TestActivationSuspendsAndCommitsAtomically(t *testing.T) {
	log := &recordingLog{}
	e, gameID := newTestEngine(t, log)
	require.NoError(t, e.PutOnBattlefield(gameID, NewCard("src-1", "Trainer of Hounds", "Creature", "alice")))
	require.NoError(t, e.PutOnBattlefield(gameID, NewCard("hound-1", "Loyal Hound", "Creature", "alice")))

	req := ActivationRequest{Ability: tapCreatureAbility(t, "{U}"), Context: openContext()}

	res := e.Activate(context.Background(), gameID, req)
	require.True(t, res.Pending)
	require.NotEmpty(t, res.StepID)

	// No blue mana: the response is rejected but the step stays pending
	// and nothing was paid.
	res = e.SubmitStepResponse(context.Background(), gameID, "alice", res.StepID, []string{"hound-1"})
	assert.True(t, res.Pending)
	assert.Equal(t, rules.ErrInsufficientMana, res.ErrorCode)

	steps, err := e.PendingSteps(gameID, "alice")
	require.NoError(t, err)
	require.Len(t, steps, 1)

	stack, err := e.Stack(gameID)
	require.NoError(t, err)
	assert.Empty(t, stack)
	assert.Zero(t, log.count())

	// Float the mana and answer again on the same step.
	require.NoError(t, e.AddMana(gameID, "alice", mana.ManaBlue, 1))
	res = e.SubmitStepResponse(context.Background(), gameID, "alice", steps[0].ID, []string{"hound-1"})
	require.True(t, res.Success, res.Message)
	require.NotEmpty(t, res.StackObjectID)
	assert.Zero(t, res.ManaPoolAfter.GetTotalMana())

	stack, err = e.Stack(gameID)
	require.NoError(t, err)
	require.Len(t, stack, 1)
	assert.Equal(t, "ab-1", stack[0].AbilityID)

	steps, err = e.PendingSteps(gameID, "alice")
	require.NoError(t, err)
	assert.Empty(t, steps)
	assert.Equal(t, 1, log.count())
}

func TestDuplicateStepResponseRejectedAfterCommit(t *testing.T) {
	e, gameID := newTestEngine(t, nil)
	require.NoError(t, e.PutOnBattlefield(gameID, NewCard("src-1", "Trainer of Hounds", "Creature", "alice")))
	require.NoError(t, e.PutOnBattlefield(gameID, NewCard("hound-1", "Loyal Hound", "Creature", "alice")))
	require.NoError(t, e.AddMana(gameID, "alice", mana.ManaBlue, 1))

	req := ActivationRequest{Ability: tapCreatureAbility(t, "{U}"), Context: openContext()}
	res := e.Activate(context.Background(), gameID, req)
	require.True(t, res.Pending)
	stepID := res.StepID

	res = e.SubmitStepResponse(context.Background(), gameID, "alice", stepID, []string{"hound-1"})
	require.True(t, res.Success)

	res = e.SubmitStepResponse(context.Background(), gameID, "alice", stepID, []string{"hound-1"})
	assert.False(t, res.Success)
	assert.Equal(t, rules.ErrStepNotFound, res.ErrorCode)
}

func TestRepeatActivationReusesOpenStep(t *testing.T) {
	e, gameID := newTestEngine(t, nil)
	require.NoError(t, e.PutOnBattlefield(gameID, NewCard("src-1", "Trainer of Hounds", "Creature", "alice")))
	require.NoError(t, e.PutOnBattlefield(gameID, NewCard("hound-1", "Loyal Hound", "Creature", "alice")))

	req := ActivationRequest{Ability: tapCreatureAbility(t, "{U}"), Context: openContext()}

	first := e.Activate(context.Background(), gameID, req)
	require.True(t, first.Pending)
	second := e.Activate(context.Background(), gameID, req)
	require.True(t, second.Pending)
	assert.Equal(t, first.StepID, second.StepID)

	steps, err := e.PendingSteps(gameID, "alice")
	require.NoError(t, err)
	assert.Len(t, steps, 1)
}

func TestInsufficientCostTargetsRejectsWithoutStep(t *testing.T) {
	e, gameID := newTestEngine(t, nil)
	require.NoError(t, e.AddMana(gameID, "alice", mana.ManaBlack, 1))

	ability := Ability{
		ID:           "ab-sac",
		SourceID:     "src-2",
		ControllerID: "alice",
		CardName:     "Altar of Dismay",
		Kind:         rules.StackObjectAbility,
		Costs: []costs.Component{
			manaCostComponent(t, "{B}"),
			{
				Kind:      costs.KindSacrifice,
				Mandatory: true,
				Filter:    costs.Filter{CardType: "Creature", ControllerOnly: true},
			},
		},
	}

	res := e.Activate(context.Background(), gameID, ActivationRequest{Ability: ability, Context: openContext()})
	assert.False(t, res.Success)
	assert.False(t, res.Pending)
	assert.Equal(t, rules.ErrInsufficientCostTargets, res.ErrorCode)

	steps, err := e.PendingSteps(gameID, "alice")
	require.NoError(t, err)
	assert.Empty(t, steps)

	// The mana check never ran; the pool is untouched either way.
	pool, err := e.Pool(gameID, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, pool.GetTotal(mana.ManaBlack))
}

func TestGenericDoesNotStealRequiredColor(t *testing.T) {
	e, gameID := newTestEngine(t, nil)

	ability := Ability{
		ID:           "ab-w",
		SourceID:     "src-3",
		ControllerID: "alice",
		CardName:     "Sunlit Charm",
		Kind:         rules.StackObjectSpell,
		Costs:        []costs.Component{manaCostComponent(t, "{1}{W}")},
	}

	// {W} + {C} pays {1}{W}.
	require.NoError(t, e.AddMana(gameID, "alice", mana.ManaWhite, 1))
	require.NoError(t, e.AddMana(gameID, "alice", mana.ManaColorless, 1))
	res := e.Activate(context.Background(), gameID, ActivationRequest{Ability: ability, Context: openContext()})
	require.True(t, res.Success, res.Message)
	assert.Zero(t, res.ManaPoolAfter.GetTotalMana())

	// {W} + {B} must not spend the white on the generic component and
	// then fail the colored one; it pays with black on generic.
	require.NoError(t, e.AddMana(gameID, "alice", mana.ManaWhite, 1))
	require.NoError(t, e.AddMana(gameID, "alice", mana.ManaBlack, 1))
	res = e.Activate(context.Background(), gameID, ActivationRequest{Ability: ability, Context: openContext()})
	require.True(t, res.Success, res.Message)

	// A single {W} cannot pay {1}{W}.
	require.NoError(t, e.AddMana(gameID, "alice", mana.ManaWhite, 1))
	res = e.Activate(context.Background(), gameID, ActivationRequest{Ability: ability, Context: openContext()})
	assert.False(t, res.Success)
	assert.Equal(t, rules.ErrInsufficientMana, res.ErrorCode)
}

func TestLoyaltyOncePerTurn(t *testing.T) {
	e, gameID := newTestEngine(t, nil)
	walker := NewCard("pw-1", "Ezrel, Tide Caller", "Planeswalker", "alice")
	walker.Counters.Add("loyalty", 3)
	require.NoError(t, e.PutOnBattlefield(gameID, walker))

	ability := Ability{
		ID:           "ab-loy",
		SourceID:     "pw-1",
		ControllerID: "alice",
		CardName:     "Ezrel, Tide Caller",
		Kind:         rules.StackObjectAbility,
		Flags:        costs.AbilityFlags{IsLoyalty: true},
		Costs: []costs.Component{
			{
				Kind:         costs.KindRemoveCounter,
				Mandatory:    true,
				ObjectIDs:    []string{"pw-1"},
				CounterType:  "loyalty",
				CounterCount: 1,
			},
		},
	}

	ctx := rules.ActivationContext{HasPriority: true, IsMainPhase: true, IsOwnTurn: true}

	res := e.Activate(context.Background(), gameID, ActivationRequest{Ability: ability, Context: ctx})
	require.True(t, res.Success, res.Message)
	assert.Equal(t, 2, walker.Counters.Count("loyalty"))

	// Pop the ability so the stack is empty again; the second attempt
	// still fails on the per-turn cap.
	stack, err := e.Stack(gameID)
	require.NoError(t, err)
	require.Len(t, stack, 1)
	m, err := e.game(gameID)
	require.NoError(t, err)
	_, err = m.stack.Pop()
	require.NoError(t, err)

	res = e.Activate(context.Background(), gameID, ActivationRequest{Ability: ability, Context: ctx})
	assert.False(t, res.Success)
	assert.Equal(t, rules.ErrOncePerTurn, res.ErrorCode)
	assert.Equal(t, 2, walker.Counters.Count("loyalty"))

	require.NoError(t, e.EndTurn(gameID))
	res = e.Activate(context.Background(), gameID, ActivationRequest{Ability: ability, Context: ctx})
	require.True(t, res.Success, res.Message)
	assert.Equal(t, 1, walker.Counters.Count("loyalty"))
}

func TestLoyaltyRequiresSorcerySpeed(t *testing.T) {
	e, gameID := newTestEngine(t, nil)
	walker := NewCard("pw-1", "Ezrel, Tide Caller", "Planeswalker", "alice")
	walker.Counters.Add("loyalty", 3)
	require.NoError(t, e.PutOnBattlefield(gameID, walker))

	ability := Ability{
		ID:           "ab-loy",
		SourceID:     "pw-1",
		ControllerID: "alice",
		CardName:     "Ezrel, Tide Caller",
		Kind:         rules.StackObjectAbility,
		Flags:        costs.AbilityFlags{IsLoyalty: true},
	}

	res := e.Activate(context.Background(), gameID, ActivationRequest{
		Ability: ability,
		Context: rules.ActivationContext{HasPriority: true, IsMainPhase: true, IsOwnTurn: false},
	})
	assert.False(t, res.Success)
	assert.Equal(t, rules.ErrNotYourTurn, res.ErrorCode)
}

func TestPhyrexianLifePayment(t *testing.T) {
	e, gameID := newTestEngine(t, nil)

	ability := Ability{
		ID:           "ab-phy",
		SourceID:     "src-4",
		ControllerID: "alice",
		CardName:     "Surgical Insight",
		Kind:         rules.StackObjectSpell,
		Costs:        []costs.Component{manaCostComponent(t, "{W/P}")},
	}

	// Life option with no white mana at all.
	res := e.Activate(context.Background(), gameID, ActivationRequest{
		Ability:       ability,
		Context:       openContext(),
		SymbolChoices: []mana.SymbolChoice{{OptionIndex: 1}},
	})
	require.True(t, res.Success, res.Message)

	life, err := e.Life(gameID, "alice")
	require.NoError(t, err)
	assert.Equal(t, 18, life)

	// The life option is illegal below the payment amount.
	m, gerr := e.game(gameID)
	require.NoError(t, gerr)
	m.players["alice"].Life = 1
	res = e.Activate(context.Background(), gameID, ActivationRequest{
		Ability:       ability,
		Context:       openContext(),
		SymbolChoices: []mana.SymbolChoice{{OptionIndex: 1}},
	})
	assert.False(t, res.Success)
	assert.Equal(t, rules.ErrLifePayment, res.ErrorCode)
	assert.Equal(t, 1, m.players["alice"].Life)
}

func TestCancelLeavesStateUntouched(t *testing.T) {
	e, gameID := newTestEngine(t, nil)
	require.NoError(t, e.PutOnBattlefield(gameID, NewCard("src-1", "Trainer of Hounds", "Creature", "alice")))
	require.NoError(t, e.PutOnBattlefield(gameID, NewCard("hound-1", "Loyal Hound", "Creature", "alice")))
	require.NoError(t, e.AddMana(gameID, "alice", mana.ManaBlue, 1))

	req := ActivationRequest{Ability: tapCreatureAbility(t, "{U}"), Context: openContext()}
	res := e.Activate(context.Background(), gameID, req)
	require.True(t, res.Pending)

	res = e.CancelStep(gameID, "alice", res.StepID)
	require.True(t, res.Success)

	pool, err := e.Pool(gameID, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, pool.GetTotal(mana.ManaBlue))

	steps, err := e.PendingSteps(gameID, "alice")
	require.NoError(t, err)
	assert.Empty(t, steps)

	stack, err := e.Stack(gameID)
	require.NoError(t, err)
	assert.Empty(t, stack)
}

func TestManaAbilityBypassesPriorityDuringPayment(t *testing.T) {
	e, gameID := newTestEngine(t, nil)
	require.NoError(t, e.PutOnBattlefield(gameID, NewCard("forest-1", "Forest", "Land", "alice")))

	ability := Ability{
		ID:           "ab-forest",
		SourceID:     "forest-1",
		ControllerID: "alice",
		CardName:     "Forest",
		Kind:         rules.StackObjectAbility,
		Flags:        costs.AbilityFlags{IsManaAbility: true, RequiresTap: true},
		Produces:     []ManaProduction{{Type: mana.ManaGreen, Amount: 1}},
	}

	// Without priority but inside a payment window.
	res := e.Activate(context.Background(), gameID, ActivationRequest{
		Ability: ability,
		Context: rules.ActivationContext{HasPriority: false, PayingCost: true},
	})
	require.True(t, res.Success, res.Message)
	assert.Equal(t, 1, res.ManaPoolAfter.GetTotal(mana.ManaGreen))

	// Mana abilities skip the stack.
	stack, err := e.Stack(gameID)
	require.NoError(t, err)
	assert.Empty(t, stack)

	// The source tapped; a second activation fails.
	res = e.Activate(context.Background(), gameID, ActivationRequest{
		Ability: ability,
		Context: rules.ActivationContext{HasPriority: true},
	})
	assert.False(t, res.Success)
	assert.Equal(t, rules.ErrAlreadyTapped, res.ErrorCode)

	// Neither priority nor a payment window fails.
	res = e.Activate(context.Background(), gameID, ActivationRequest{
		Ability: ability,
		Context: rules.ActivationContext{},
	})
	assert.False(t, res.Success)
	assert.Equal(t, rules.ErrNoPriority, res.ErrorCode)
}

func TestManaAbilityColorChoice(t *testing.T) {
	e, gameID := newTestEngine(t, nil)
	require.NoError(t, e.PutOnBattlefield(gameID, NewCard("shrine-1", "Prismatic Shrine", "Land", "alice")))

	ability := Ability{
		ID:           "ab-shrine",
		SourceID:     "shrine-1",
		ControllerID: "alice",
		CardName:     "Prismatic Shrine",
		Kind:         rules.StackObjectAbility,
		Flags:        costs.AbilityFlags{IsManaAbility: true, RequiresTap: true},
		Produces:     []ManaProduction{{AnyColor: true, Amount: 1}},
	}

	res := e.Activate(context.Background(), gameID, ActivationRequest{
		Ability: ability,
		Context: rules.ActivationContext{HasPriority: true},
	})
	require.True(t, res.Pending)
	require.NotEmpty(t, res.StepID)

	res = e.SubmitStepResponse(context.Background(), gameID, "alice", res.StepID, []string{string(mana.ManaRed)})
	require.True(t, res.Success, res.Message)
	assert.Equal(t, 1, res.ManaPoolAfter.GetTotal(mana.ManaRed))

	card, ok := func() (*Card, bool) {
		m, err := e.game(gameID)
		require.NoError(t, err)
		m.mu.Lock()
		defer m.mu.Unlock()
		return m.findOnBattlefield("shrine-1")
	}()
	require.True(t, ok)
	assert.True(t, card.Tapped)
}

func TestRestrictedManaOnlySpendsOnItsObject(t *testing.T) {
	e, gameID := newTestEngine(t, nil)
	require.NoError(t, e.PutOnBattlefield(gameID, NewCard("tomb-1", "Ancient Vault", "Land", "alice")))

	produce := Ability{
		ID:           "ab-vault",
		SourceID:     "tomb-1",
		ControllerID: "alice",
		CardName:     "Ancient Vault",
		Kind:         rules.StackObjectAbility,
		Flags:        costs.AbilityFlags{IsManaAbility: true, RequiresTap: true},
		Produces: []ManaProduction{{
			Type:          mana.ManaColorless,
			Amount:        2,
			Restriction:   "activated abilities",
			SpendOnlyOnID: "src-5",
		}},
	}
	res := e.Activate(context.Background(), gameID, ActivationRequest{
		Ability: produce,
		Context: rules.ActivationContext{HasPriority: true},
	})
	require.True(t, res.Success, res.Message)

	spend := Ability{
		ID:           "ab-spend",
		SourceID:     "src-5",
		ControllerID: "alice",
		CardName:     "Keyed Construct",
		Kind:         rules.StackObjectAbility,
		Costs:        []costs.Component{manaCostComponent(t, "{2}")},
	}
	res = e.Activate(context.Background(), gameID, ActivationRequest{Ability: spend, Context: openContext()})
	require.True(t, res.Success, res.Message)

	// The same mana cannot pay for a different object.
	res = e.Activate(context.Background(), gameID, ActivationRequest{
		Ability: produce,
		Context: rules.ActivationContext{HasPriority: true},
	})
	assert.Equal(t, rules.ErrAlreadyTapped, res.ErrorCode)

	other := spend
	other.ID = "ab-other"
	other.SourceID = "src-6"
	res = e.Activate(context.Background(), gameID, ActivationRequest{Ability: other, Context: openContext()})
	assert.False(t, res.Success)
	assert.Equal(t, rules.ErrInsufficientMana, res.ErrorCode)
}

func TestStackLockRejectsNonManaActivations(t *testing.T) {
	e, gameID := newTestEngine(t, nil)
	require.NoError(t, e.AddMana(gameID, "alice", mana.ManaWhite, 1))
	require.NoError(t, e.SetStackLocked(gameID, true))

	ability := Ability{
		ID:           "ab-w",
		SourceID:     "src-3",
		ControllerID: "alice",
		CardName:     "Sunlit Charm",
		Kind:         rules.StackObjectSpell,
		Costs:        []costs.Component{manaCostComponent(t, "{W}")},
	}
	res := e.Activate(context.Background(), gameID, ActivationRequest{Ability: ability, Context: openContext()})
	assert.False(t, res.Success)
	assert.Equal(t, rules.ErrStackLocked, res.ErrorCode)

	require.NoError(t, e.SetStackLocked(gameID, false))
	res = e.Activate(context.Background(), gameID, ActivationRequest{Ability: ability, Context: openContext()})
	assert.True(t, res.Success, res.Message)
}

func TestEventLogAppendsOncePerCommit(t *testing.T) {
	log := &recordingLog{}
	e, gameID := newTestEngine(t, log)

	ability := Ability{
		ID:           "ab-w",
		SourceID:     "src-3",
		ControllerID: "alice",
		CardName:     "Sunlit Charm",
		Kind:         rules.StackObjectSpell,
		Costs:        []costs.Component{manaCostComponent(t, "{W}")},
	}

	// Rejection appends nothing.
	res := e.Activate(context.Background(), gameID, ActivationRequest{Ability: ability, Context: openContext()})
	require.False(t, res.Success)
	assert.Zero(t, log.count())

	require.NoError(t, e.AddMana(gameID, "alice", mana.ManaWhite, 1))
	res = e.Activate(context.Background(), gameID, ActivationRequest{Ability: ability, Context: openContext()})
	require.True(t, res.Success)
	assert.Equal(t, 1, log.count())
	assert.Equal(t, "alice", log.events[0].PlayerID)
	assert.Equal(t, "{W}", log.events[0].ManaCost)
}

func TestAtomicityAcrossCostKinds(t *testing.T) {
	kinds := []struct {
		name  string
		comp  costs.Component
		setup func(t *testing.T, e *Engine, gameID string) string // returns the selection
		check func(t *testing.T, e *Engine, gameID string)
	}{
		{
			name: "sacrifice",
			comp: costs.Component{Kind: costs.KindSacrifice, Mandatory: true, Filter: costs.Filter{CardType: "Creature", ControllerOnly: true}},
			setup: func(t *testing.T, e *Engine, gameID string) string {
				require.NoError(t, e.PutOnBattlefield(gameID, NewCard("victim", "Sacrificial Lamb", "Creature", "alice")))
				return "victim"
			},
			check: func(t *testing.T, e *Engine, gameID string) {
				m, err := e.game(gameID)
				require.NoError(t, err)
				_, onField := m.findOnBattlefield("victim")
				assert.True(t, onField, "creature must stay on the battlefield")
				assert.Empty(t, m.players["alice"].Graveyard)
			},
		},
		{
			name: "exile from hand",
			comp: costs.Component{Kind: costs.KindExile, Mandatory: true, Count: 1, Filter: costs.Filter{Zone: ZoneHand, ControllerOnly: true}},
			setup: func(t *testing.T, e *Engine, gameID string) string {
				require.NoError(t, e.PutInHand(gameID, "alice", NewCard("held", "Stashed Relic", "Artifact", "alice")))
				return "held"
			},
			check: func(t *testing.T, e *Engine, gameID string) {
				m, err := e.game(gameID)
				require.NoError(t, err)
				assert.Len(t, m.players["alice"].Hand, 1, "card must stay in hand")
				assert.Empty(t, m.players["alice"].Exile)
			},
		},
		{
			name: "remove counters",
			comp: costs.Component{Kind: costs.KindRemoveCounter, Mandatory: true, CounterType: "charge", CounterCount: 2},
			setup: func(t *testing.T, e *Engine, gameID string) string {
				battery := NewCard("battery", "Charge Battery", "Artifact", "alice")
				battery.Counters.Add("charge", 3)
				require.NoError(t, e.PutOnBattlefield(gameID, battery))
				return "battery"
			},
			check: func(t *testing.T, e *Engine, gameID string) {
				m, err := e.game(gameID)
				require.NoError(t, err)
				c, _ := m.findOnBattlefield("battery")
				assert.Equal(t, 3, c.Counters.Count("charge"), "counters must be untouched")
			},
		},
		{
			name: "return to hand",
			comp: costs.Component{Kind: costs.KindReturnToHand, Mandatory: true, Filter: costs.Filter{CardType: "Land", ControllerOnly: true}},
			setup: func(t *testing.T, e *Engine, gameID string) string {
				require.NoError(t, e.PutOnBattlefield(gameID, NewCard("isle", "Misty Isle", "Land", "alice")))
				return "isle"
			},
			check: func(t *testing.T, e *Engine, gameID string) {
				m, err := e.game(gameID)
				require.NoError(t, err)
				_, onField := m.findOnBattlefield("isle")
				assert.True(t, onField, "land must stay on the battlefield")
				assert.Empty(t, m.players["alice"].Hand)
			},
		},
	}

	for _, tc := range kinds {
		t.Run(tc.name, func(t *testing.T) {
			e, gameID := newTestEngine(t, nil)
			selection := tc.setup(t, e, gameID)

			ability := Ability{
				ID:           "ab-atomic",
				SourceID:     "src-9",
				ControllerID: "alice",
				CardName:     "Costly Engine",
				Kind:         rules.StackObjectAbility,
				Costs: []costs.Component{
					manaCostComponent(t, "{U}"),
					tc.comp,
				},
			}

			res := e.Activate(context.Background(), gameID, ActivationRequest{Ability: ability, Context: openContext()})
			require.True(t, res.Pending, res.Message)

			// The pool holds no blue mana, so the selection validates but
			// the combined cost does not.
			res = e.SubmitStepResponse(context.Background(), gameID, "alice", res.StepID, []string{selection})
			assert.True(t, res.Pending)
			assert.Equal(t, rules.ErrInsufficientMana, res.ErrorCode)

			tc.check(t, e, gameID)

			stack, err := e.Stack(gameID)
			require.NoError(t, err)
			assert.Empty(t, stack)

			steps, err := e.PendingSteps(gameID, "alice")
			require.NoError(t, err)
			assert.Len(t, steps, 1, "the step must remain queued")
		})
	}
}

func TestOverlappingSelectionsRejectedBeforeDebit(t *testing.T) {
	e, gameID := newTestEngine(t, nil)
	require.NoError(t, e.PutOnBattlefield(gameID, NewCard("c1", "Lone Hound", "Creature", "alice")))
	require.NoError(t, e.AddMana(gameID, "alice", mana.ManaBlue, 1))

	ability := Ability{
		ID:           "ab-twin",
		SourceID:     "src-8",
		ControllerID: "alice",
		CardName:     "Twin Demands",
		Kind:         rules.StackObjectAbility,
		Costs: []costs.Component{
			manaCostComponent(t, "{U}"),
			{Kind: costs.KindSacrifice, Mandatory: true, Filter: costs.Filter{CardType: "Creature", ControllerOnly: true}},
			{Kind: costs.KindReturnToHand, Mandatory: true, Filter: costs.Filter{CardType: "Creature", ControllerOnly: true}},
		},
	}

	res := e.Activate(context.Background(), gameID, ActivationRequest{Ability: ability, Context: openContext()})
	require.True(t, res.Pending)

	res = e.SubmitStepResponse(context.Background(), gameID, "alice", res.StepID, []string{"c1"})
	require.True(t, res.Pending)

	// The same creature cannot pay both the sacrifice and the return.
	res = e.SubmitStepResponse(context.Background(), gameID, "alice", res.StepID, []string{"c1"})
	assert.True(t, res.Pending)
	assert.Equal(t, rules.ErrInvalidSelection, res.ErrorCode)

	// Nothing was paid: mana intact, creature on the battlefield,
	// graveyard empty, no stack object.
	pool, err := e.Pool(gameID, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, pool.GetTotal(mana.ManaBlue))

	m, err := e.game(gameID)
	require.NoError(t, err)
	_, onField := m.findOnBattlefield("c1")
	assert.True(t, onField)
	assert.Empty(t, m.players["alice"].Graveyard)
	assert.Empty(t, m.players["alice"].Hand)

	stack, err := e.Stack(gameID)
	require.NoError(t, err)
	assert.Empty(t, stack)

	steps, err := e.PendingSteps(gameID, "alice")
	require.NoError(t, err)
	assert.Len(t, steps, 2, "both steps stay pending for a corrected answer")
}

func TestMultiStepActivationCompletesAllSteps(t *testing.T) {
	e, gameID := newTestEngine(t, nil)
	require.NoError(t, e.PutOnBattlefield(gameID, NewCard("c1", "Lone Hound", "Creature", "alice")))
	require.NoError(t, e.PutInHand(gameID, "alice", NewCard("h1", "Spare Thought", "Sorcery", "alice")))

	ability := Ability{
		ID:           "ab-double",
		SourceID:     "src-8",
		ControllerID: "alice",
		CardName:     "Grim Bargain",
		Kind:         rules.StackObjectAbility,
		Costs: []costs.Component{
			{Kind: costs.KindSacrifice, Mandatory: true, Filter: costs.Filter{CardType: "Creature", ControllerOnly: true}},
			{Kind: costs.KindDiscard, Mandatory: true, Count: 1, Filter: costs.Filter{Zone: ZoneHand, ControllerOnly: true}},
		},
	}

	res := e.Activate(context.Background(), gameID, ActivationRequest{Ability: ability, Context: openContext()})
	require.True(t, res.Pending)
	firstStep := res.StepID

	res = e.SubmitStepResponse(context.Background(), gameID, "alice", firstStep, []string{"c1"})
	require.True(t, res.Pending)
	require.NotEqual(t, firstStep, res.StepID)

	// The answered sacrifice step stays pending until the commit.
	steps, err := e.PendingSteps(gameID, "alice")
	require.NoError(t, err)
	assert.Len(t, steps, 2)

	res = e.SubmitStepResponse(context.Background(), gameID, "alice", res.StepID, []string{"h1"})
	require.True(t, res.Success, res.Message)

	// Both steps are consumed by the commit, none left pending.
	steps, err = e.PendingSteps(gameID, "alice")
	require.NoError(t, err)
	assert.Empty(t, steps)

	m, err := e.game(gameID)
	require.NoError(t, err)
	assert.Len(t, m.players["alice"].Graveyard, 2)
	assert.Empty(t, m.players["alice"].Hand)

	stack, err := e.Stack(gameID)
	require.NoError(t, err)
	assert.Len(t, stack, 1)

	// Consumed steps idempotently reject late answers.
	res = e.SubmitStepResponse(context.Background(), gameID, "alice", firstStep, []string{"c1"})
	assert.Equal(t, rules.ErrStepNotFound, res.ErrorCode)
}

func TestCancelAbortsSiblingSteps(t *testing.T) {
	e, gameID := newTestEngine(t, nil)
	require.NoError(t, e.PutOnBattlefield(gameID, NewCard("c1", "Lone Hound", "Creature", "alice")))
	require.NoError(t, e.PutInHand(gameID, "alice", NewCard("h1", "Spare Thought", "Sorcery", "alice")))

	ability := Ability{
		ID:           "ab-double",
		SourceID:     "src-8",
		ControllerID: "alice",
		CardName:     "Grim Bargain",
		Kind:         rules.StackObjectAbility,
		Costs: []costs.Component{
			{Kind: costs.KindSacrifice, Mandatory: true, Filter: costs.Filter{CardType: "Creature", ControllerOnly: true}},
			{Kind: costs.KindDiscard, Mandatory: true, Count: 1, Filter: costs.Filter{Zone: ZoneHand, ControllerOnly: true}},
		},
	}

	res := e.Activate(context.Background(), gameID, ActivationRequest{Ability: ability, Context: openContext()})
	require.True(t, res.Pending)
	firstStep := res.StepID

	res = e.SubmitStepResponse(context.Background(), gameID, "alice", firstStep, []string{"c1"})
	require.True(t, res.Pending)

	// Cancelling the already-answered step aborts the activation and
	// the still-open discard step with it.
	res = e.CancelStep(gameID, "alice", firstStep)
	require.True(t, res.Success)

	steps, err := e.PendingSteps(gameID, "alice")
	require.NoError(t, err)
	assert.Empty(t, steps)

	m, err := e.game(gameID)
	require.NoError(t, err)
	_, onField := m.findOnBattlefield("c1")
	assert.True(t, onField)
	assert.Len(t, m.players["alice"].Hand, 1)
}

func TestXCostSpendsChosenAmount(t *testing.T) {
	e, gameID := newTestEngine(t, nil)
	require.NoError(t, e.AddMana(gameID, "alice", mana.ManaRed, 4))

	ability := Ability{
		ID:           "ab-x",
		SourceID:     "src-7",
		ControllerID: "alice",
		CardName:     "Cinder Surge",
		Kind:         rules.StackObjectSpell,
		Costs:        []costs.Component{manaCostComponent(t, "{X}{R}")},
	}

	res := e.Activate(context.Background(), gameID, ActivationRequest{
		Ability: ability,
		Context: openContext(),
		XValue:  3,
	})
	require.True(t, res.Success, res.Message)
	assert.Zero(t, res.ManaPoolAfter.GetTotalMana())

	stack, err := e.Stack(gameID)
	require.NoError(t, err)
	require.Len(t, stack, 1)
	assert.Equal(t, 3, stack[0].XValue)
}
