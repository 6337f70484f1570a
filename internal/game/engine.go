package game

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spellforge/spellforge-server/internal/game/costs"
	"github.com/spellforge/spellforge-server/internal/game/mana"
	"github.com/spellforge/spellforge-server/internal/game/resolution"
	"github.com/spellforge/spellforge-server/internal/game/rules"
)

// Engine is the cost payment and activation orchestrator. It owns the
// per-game state arena; all activation attempts and step responses for
// a game serialize on that game's lock.
type Engine struct {
	mu       sync.RWMutex
	games    map[string]*matchState
	logger   *zap.Logger
	log      ActivationLog
	notifier resolution.Notifier
}

// NewEngine creates an engine. A nil log discards events; a nil
// notifier suppresses step notifications.
func NewEngine(logger *zap.Logger, log ActivationLog, notifier resolution.Notifier) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if log == nil {
		log = NopActivationLog{}
	}
	return &Engine{
		games:    make(map[string]*matchState),
		logger:   logger,
		log:      log,
		notifier: notifier,
	}
}

// CreateGame registers a new game and returns its id.
func (e *Engine) CreateGame(gameID string) string {
	if gameID == "" {
		gameID = uuid.NewString()
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.games[gameID]; !exists {
		queue := resolution.NewQueue(gameID, e.notifier, e.logger)
		e.games[gameID] = newMatchState(gameID, queue)
		e.logger.Info("game created", zap.String("game_id", gameID))
	}
	return gameID
}

// AddPlayer registers a player with a starting life total.
func (e *Engine) AddPlayer(gameID, playerID string, life int) error {
	m, err := e.game(gameID)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.players[playerID]; exists {
		return fmt.Errorf("player %s already in game %s", playerID, gameID)
	}
	m.players[playerID] = &playerState{
		PlayerID: playerID,
		Life:     life,
		Pool:     mana.NewManaPool(),
	}
	return nil
}

// PutOnBattlefield places a card onto the battlefield.
func (e *Engine) PutOnBattlefield(gameID string, card *Card) error {
	m, err := e.game(gameID)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.battlefield = append(m.battlefield, card)
	return nil
}

// PutInHand places a card into a player's hand.
func (e *Engine) PutInHand(gameID, playerID string, card *Card) error {
	m, err := e.game(gameID)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[playerID]
	if !ok {
		return fmt.Errorf("player %s not in game %s", playerID, gameID)
	}
	p.Hand = append(p.Hand, card)
	return nil
}

// Pool returns a copy of a player's mana pool.
func (e *Engine) Pool(gameID, playerID string) (*mana.ManaPool, error) {
	m, err := e.game(gameID)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[playerID]
	if !ok {
		return nil, fmt.Errorf("player %s not in game %s", playerID, gameID)
	}
	return p.Pool.Copy(), nil
}

// AddMana credits a player's pool directly (test setup, effects outside
// the activation path).
func (e *Engine) AddMana(gameID, playerID string, manaType mana.ManaType, amount int) error {
	m, err := e.game(gameID)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[playerID]
	if !ok {
		return fmt.Errorf("player %s not in game %s", playerID, gameID)
	}
	p.Pool.Add(manaType, amount)
	return nil
}

// Life returns a player's current life total.
func (e *Engine) Life(gameID, playerID string) (int, error) {
	m, err := e.game(gameID)
	if err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[playerID]
	if !ok {
		return 0, fmt.Errorf("player %s not in game %s", playerID, gameID)
	}
	return p.Life, nil
}

// Stack returns the game's stack contents, topmost last.
func (e *Engine) Stack(gameID string) ([]rules.StackObject, error) {
	m, err := e.game(gameID)
	if err != nil {
		return nil, err
	}
	return m.stack.List(), nil
}

// PendingSteps returns a player's pending resolution steps in enqueue order.
func (e *Engine) PendingSteps(gameID, playerID string) ([]resolution.Step, error) {
	m, err := e.game(gameID)
	if err != nil {
		return nil, err
	}
	return m.queue.GetStepsForPlayer(playerID), nil
}

// SetStackLocked toggles the effect that forbids new non-mana
// activations while active.
func (e *Engine) SetStackLocked(gameID string, locked bool) error {
	m, err := e.game(gameID)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stackLocked = locked
	return nil
}

// EndStep empties every player's mana pool at a step or phase boundary
// (Rule 106.4; pools under a persistence effect convert instead).
func (e *Engine) EndStep(gameID string) error {
	m, err := e.game(gameID)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.players {
		p.Pool.Empty()
	}
	return nil
}

// EndTurn resets per-turn activation counters and empties pools.
func (e *Engine) EndTurn(gameID string) error {
	m, err := e.game(gameID)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activationsThisTurn = make(map[string]int)
	m.loyaltyThisTurn = make(map[string]int)
	for _, p := range m.players {
		p.Pool.Empty()
	}
	return nil
}

func (e *Engine) game(gameID string) (*matchState, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	m, ok := e.games[gameID]
	if !ok {
		return nil, fmt.Errorf("game %s not found", gameID)
	}
	return m, nil
}

// Activate attempts to cast a spell or activate an ability. The result
// is either a rejection with a typed code, a suspension on a resolution
// step, or a committed activation.
func (e *Engine) Activate(ctx context.Context, gameID string, req ActivationRequest) ActivationResult {
	m, err := e.game(gameID)
	if err != nil {
		return rejected(rules.ErrGameNotFound, err.Error())
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.players[req.Ability.ControllerID]
	if !ok {
		return rejected(rules.ErrGameNotFound, fmt.Sprintf("player %s not in game %s", req.Ability.ControllerID, gameID))
	}

	actx := e.snapshotContext(m, req)
	profile := rules.AbilityProfile{
		IsManaAbility: req.Ability.Flags.IsManaAbility,
		IsLoyalty:     req.Ability.Flags.IsLoyalty,
		RequiresTap:   req.Ability.Flags.RequiresTap,
		Restrictions:  req.Ability.Restrictions,
	}
	if check := rules.CheckActivation(profile, actx); !check.Legal {
		v := check.First()
		e.logger.Debug("activation rejected",
			zap.String("game_id", gameID),
			zap.String("ability_id", req.Ability.ID),
			zap.String("code", string(v.Code)),
		)
		return rejected(v.Code, v.Reason)
	}

	if req.Ability.Flags.IsManaAbility {
		return e.activateManaAbilityLocked(ctx, m, p, req)
	}

	if m.stackLocked {
		return rejected(rules.ErrStackLocked, "the stack is locked against new activations")
	}

	if len(req.Ability.Modes) > 0 {
		valid := false
		for _, mode := range req.Ability.Modes {
			if mode == req.ChosenMode {
				valid = true
				break
			}
		}
		if !valid {
			return rejected(rules.ErrInvalidSelection, fmt.Sprintf("mode %q is not one of the ability's modes", req.ChosenMode))
		}
	}

	inf := &inflight{
		Request:          req,
		Stage:            StageCostDetermined,
		Selections:       make(map[int][]string),
		Steps:            make(map[int]string),
		PendingComponent: -1,
	}

	// Explicit object lists count as pre-supplied selections.
	_, nonMana := costs.Split(req.Ability.Costs)
	for i, comp := range nonMana {
		if len(comp.ObjectIDs) > 0 {
			inf.Selections[i] = comp.ObjectIDs
		}
	}

	return e.advanceLocked(ctx, m, p, inf)
}

// SubmitStepResponse resumes a suspended activation with the player's
// selections for its pending step.
func (e *Engine) SubmitStepResponse(ctx context.Context, gameID, playerID, stepID string, selections []string) ActivationResult {
	m, err := e.game(gameID)
	if err != nil {
		return rejected(rules.ErrGameNotFound, err.Error())
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	step, qerr := m.queue.ValidateResponse(stepID, selections)
	if qerr != nil {
		return rejected(qerr.Code, qerr.Message)
	}
	if step.PlayerID != playerID {
		return rejected(rules.ErrInvalidSelection, "step belongs to another player")
	}

	inf, ok := m.inflight[stepID]
	if !ok {
		return rejected(rules.ErrStepNotFound, fmt.Sprintf("no in-flight activation for step %s", stepID))
	}
	p, ok := m.players[inf.Request.Ability.ControllerID]
	if !ok {
		return rejected(rules.ErrGameNotFound, "controller left the game")
	}

	if step.Kind == resolution.StepChooseColor {
		return e.finishManaAbilityLocked(ctx, m, p, inf, stepID, selections)
	}

	_, nonMana := costs.Split(inf.Request.Ability.Costs)
	idx := inf.PendingComponent
	if idx < 0 || idx >= len(nonMana) {
		return rejected(rules.ErrInternal, "step is not bound to a cost component")
	}

	// A selection that went stale since the step was queued leaves the
	// step pending so the player can pick again.
	if err := m.validateComponent(p, nonMana[idx], selections); err != nil {
		return ActivationResult{
			Pending:   true,
			StepID:    stepID,
			ErrorCode: rules.ErrInvalidSelection,
			Message:   err.Error(),
		}
	}

	inf.Selections[idx] = append([]string(nil), selections...)
	return e.advanceLocked(ctx, m, p, inf)
}

// CancelStep aborts the suspended activation a step belongs to. Nothing
// was reserved, so game state is untouched.
func (e *Engine) CancelStep(gameID, playerID, stepID string) ActivationResult {
	m, err := e.game(gameID)
	if err != nil {
		return rejected(rules.ErrGameNotFound, err.Error())
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	step, ok := m.queue.Get(stepID)
	if ok && step.PlayerID != playerID {
		return rejected(rules.ErrInvalidSelection, "step belongs to another player")
	}

	cancelled, qerr := m.queue.CancelStep(stepID)
	if qerr != nil {
		return rejected(qerr.Code, qerr.Message)
	}

	// Cancelling one step aborts the whole activation, including any
	// sibling steps already answered but not yet committed.
	if inf, found := m.inflight[stepID]; found {
		for _, sibling := range inf.Steps {
			if sibling == stepID {
				continue
			}
			m.queue.CancelStep(sibling)
			delete(m.inflight, sibling)
		}
		inf.Stage = StageAborted
	}
	delete(m.inflight, stepID)

	e.logger.Info("activation aborted",
		zap.String("game_id", gameID),
		zap.String("step_id", cancelled.ID),
		zap.String("player_id", playerID),
	)
	return ActivationResult{Success: true, Message: "activation cancelled"}
}

// advanceLocked drives an in-flight activation forward: queue the next
// selection step if one is owed, otherwise validate everything and
// commit atomically.
func (e *Engine) advanceLocked(ctx context.Context, m *matchState, p *playerState, inf *inflight) ActivationResult {
	req := inf.Request
	_, nonMana := costs.Split(req.Ability.Costs)

	for i, comp := range nonMana {
		if _, have := inf.Selections[i]; have {
			continue
		}
		if !comp.NeedsSelection() {
			continue
		}

		eligible := m.eligibleObjects(p, comp)
		if len(eligible) < comp.SelectionCount() {
			// All or nothing: a cost with no legal payment never starts.
			e.abortLocked(m, inf)
			return rejected(rules.ErrInsufficientCostTargets,
				fmt.Sprintf("no legal objects to pay %s cost", comp.Kind))
		}

		return e.suspendLocked(m, p, inf, i, comp, eligible)
	}

	return e.commitLocked(ctx, m, p, inf, nonMana)
}

func (e *Engine) suspendLocked(m *matchState, p *playerState, inf *inflight, idx int, comp costs.Component, eligible []string) ActivationResult {
	req := inf.Request
	correlation := resolution.Correlation{
		SourceID:  req.Ability.SourceID,
		AbilityID: req.Ability.ID,
		CostKind:  string(comp.Kind),
	}

	// Reuse an open step for the same activation instead of stacking
	// duplicate prompts.
	if open, found := m.queue.FindOpen(correlation); found {
		inf.StepID = open.ID
		inf.PendingComponent = idx
		inf.Steps[idx] = open.ID
		inf.Stage = StageAwaitingSteps
		m.inflight[open.ID] = inf
		return ActivationResult{Pending: true, StepID: open.ID, Message: open.Prompt}
	}

	step := resolution.NewStep(m.gameID, p.PlayerID, stepKindFor(comp.Kind), promptFor(comp))
	step.Options = eligible
	step.MinSelections = comp.SelectionCount()
	step.MaxSelections = comp.SelectionCount()
	step.Mandatory = !comp.Optional
	step.Correlation = correlation
	step.Payload["ability_id"] = req.Ability.ID
	step.Payload["source_id"] = req.Ability.SourceID

	queued := m.queue.AddStep(step)

	// Earlier answered steps stay registered: they are consumed at
	// commit, and cancelling any of them aborts the activation.
	inf.StepID = queued.ID
	inf.PendingComponent = idx
	inf.Steps[idx] = queued.ID
	inf.Stage = StageAwaitingSteps
	m.inflight[queued.ID] = inf

	return ActivationResult{Pending: true, StepID: queued.ID, Message: queued.Prompt}
}

// commitLocked runs the final validation and, if everything holds, the
// atomic commit: debit mana, pay non-mana components, push the stack
// object, consume the step, append the event. Any failure after the
// mana debit is an invariant violation.
func (e *Engine) commitLocked(ctx context.Context, m *matchState, p *playerState, inf *inflight, nonMana []costs.Component) ActivationResult {
	req := inf.Request
	manaCost, _ := costs.Split(req.Ability.Costs)

	// Life owed by fixed components, so symbol choices are checked
	// against what would remain.
	componentLife := 0
	for _, comp := range nonMana {
		if comp.Kind == costs.KindLife {
			componentLife += comp.LifeAmount
		}
	}
	if componentLife > 0 && p.Life < componentLife {
		return e.failOrSuspend(inf, rules.ErrLifePayment,
			fmt.Sprintf("life payment of %d exceeds life total %d", componentLife, p.Life))
	}

	resolvedCost := manaCost
	if manaCost != nil && len(manaCost.Symbols) > 0 {
		check := mana.ValidateChoices(manaCost.Symbols, req.SymbolChoices, p.Life-componentLife)
		if !check.Valid {
			return e.failOrSuspend(inf, rules.ErrLifePayment, check.Reason)
		}
		resolvedCost = mana.ApplyChoices(manaCost, req.SymbolChoices)
	}

	xValue := 0
	if resolvedCost != nil && resolvedCost.X {
		if req.XValue < 0 {
			return e.failOrSuspend(inf, rules.ErrInsufficientMana, "X cost requires a chosen value")
		}
		xValue = req.XValue
	}

	var plan *mana.PaymentPlan
	if resolvedCost != nil {
		payment := mana.CalculatePayment(resolvedCost, p.Pool, req.Ability.SourceID, xValue)
		if !payment.Success {
			// The step (if any) stays pending; the player can float more
			// mana and answer again.
			return e.failOrSuspend(inf, rules.ErrInsufficientMana, payment.Reason)
		}
		plan = payment.Plan
	}

	symbolLife := 0
	if manaCost != nil {
		for i, choice := range req.SymbolChoices {
			if i < len(manaCost.Symbols) && manaCost.Symbols[i].Options[choice.OptionIndex].IsLife() {
				symbolLife += manaCost.Symbols[i].Options[choice.OptionIndex].PayLife
			}
		}
	}

	// Final pre-commit validation of every non-mana component. The
	// selection sets are also checked jointly: one object can pay at
	// most one component, since per-component validation runs against
	// pre-mutation state and cannot see a conflicting earlier payment.
	used := make(map[string]costs.Kind)
	for i, comp := range nonMana {
		for _, id := range inf.Selections[i] {
			if prior, dup := used[id]; dup {
				return e.failOrSuspend(inf, rules.ErrInvalidSelection,
					fmt.Sprintf("object %s cannot pay both the %s and %s components", id, prior, comp.Kind))
			}
			used[id] = comp.Kind
		}
		if err := m.validateComponent(p, comp, inf.Selections[i]); err != nil {
			return e.failOrSuspend(inf, rules.ErrInvalidSelection, err.Error())
		}
	}

	// Point of no return.
	if plan != nil {
		if !mana.ExecutePayment(plan, p.Pool, req.Ability.SourceID) {
			return rejected(rules.ErrInternal, "mana debit failed after affordability check")
		}
	}
	if symbolLife > 0 {
		p.Life -= symbolLife
	}
	for i, comp := range nonMana {
		if err := m.applyComponent(p, comp, inf.Selections[i]); err != nil {
			e.logger.Error("cost component failed after mana debit",
				zap.String("game_id", m.gameID),
				zap.String("ability_id", req.Ability.ID),
				zap.Error(err),
			)
			return rejected(rules.ErrInternal, err.Error())
		}
	}

	choices := make([]int, len(req.SymbolChoices))
	for i, c := range req.SymbolChoices {
		choices[i] = c.OptionIndex
	}
	obj := rules.StackObject{
		ID:            uuid.NewString(),
		AbilityID:     req.Ability.ID,
		SourceID:      req.Ability.SourceID,
		Controller:    req.Ability.ControllerID,
		CardName:      req.Ability.CardName,
		Kind:          req.Ability.Kind,
		Targets:       req.Ability.Targets,
		SymbolChoices: choices,
		XValue:        xValue,
	}
	m.stack.Push(obj)

	// Every step opened for this activation is consumed now, with the
	// selection it collected.
	for idx, stepID := range inf.Steps {
		if _, qerr := m.queue.CompleteStep(stepID, inf.Selections[idx]); qerr != nil {
			e.logger.Error("step completion failed after commit",
				zap.String("game_id", m.gameID),
				zap.String("step_id", stepID),
				zap.String("code", string(qerr.Code)),
			)
		}
		delete(m.inflight, stepID)
	}

	m.activationsThisTurn[req.Ability.ID]++
	if req.Ability.Flags.IsLoyalty {
		m.loyaltyThisTurn[req.Ability.SourceID]++
	}
	inf.Stage = StageCommitted

	e.appendEvent(ctx, m, p, req, resolvedCost)

	e.logger.Info("activation committed",
		zap.String("game_id", m.gameID),
		zap.String("ability_id", req.Ability.ID),
		zap.String("player_id", p.PlayerID),
		zap.String("stack_object_id", obj.ID),
	)
	return ActivationResult{
		Success:       true,
		StackObjectID: obj.ID,
		ManaPoolAfter: p.Pool.Copy(),
	}
}

// abortLocked cancels every step opened for an in-flight activation and
// drops its registrations. Nothing was paid, so game state is untouched.
func (e *Engine) abortLocked(m *matchState, inf *inflight) {
	for _, stepID := range inf.Steps {
		m.queue.CancelStep(stepID)
		delete(m.inflight, stepID)
	}
	if inf.StepID != "" {
		delete(m.inflight, inf.StepID)
	}
	inf.Stage = StageAborted
}

// failOrSuspend reports a validation failure. When the activation is
// suspended on a step, the step stays pending and the result points
// back at it; otherwise it is a plain rejection.
func (e *Engine) failOrSuspend(inf *inflight, code rules.ErrorCode, message string) ActivationResult {
	if inf.StepID != "" {
		return ActivationResult{
			Pending:   true,
			StepID:    inf.StepID,
			ErrorCode: code,
			Message:   message,
		}
	}
	return rejected(code, message)
}

// activateManaAbilityLocked handles the fast path: mana abilities skip
// the stack and resolve immediately (Rule 605.3b). A production with a
// color choice suspends on a CHOOSE_COLOR step first.
func (e *Engine) activateManaAbilityLocked(ctx context.Context, m *matchState, p *playerState, req ActivationRequest) ActivationResult {
	source, onField := m.findOnBattlefield(req.Ability.SourceID)
	if !onField {
		return rejected(rules.ErrNoValidTargets, "source is not on the battlefield")
	}
	if req.Ability.Flags.RequiresTap && source.Tapped {
		return rejected(rules.ErrAlreadyTapped, "source is already tapped")
	}

	needsColor := false
	for _, prod := range req.Ability.Produces {
		if prod.AnyColor {
			needsColor = true
			break
		}
	}
	if needsColor {
		correlation := resolution.Correlation{
			SourceID:  req.Ability.SourceID,
			AbilityID: req.Ability.ID,
			CostKind:  string(resolution.StepChooseColor),
		}
		if open, found := m.queue.FindOpen(correlation); found {
			return ActivationResult{Pending: true, StepID: open.ID, Message: open.Prompt}
		}
		step := resolution.NewStep(m.gameID, p.PlayerID, resolution.StepChooseColor, "Choose a color of mana to add")
		step.Options = []string{
			string(mana.ManaWhite), string(mana.ManaBlue), string(mana.ManaBlack),
			string(mana.ManaRed), string(mana.ManaGreen),
		}
		step.Correlation = correlation
		queued := m.queue.AddStep(step)
		m.inflight[queued.ID] = &inflight{
			Request:          req,
			Stage:            StageAwaitingSteps,
			StepID:           queued.ID,
			Selections:       make(map[int][]string),
			Steps:            make(map[int]string),
			PendingComponent: -1,
		}
		return ActivationResult{Pending: true, StepID: queued.ID, Message: queued.Prompt}
	}

	return e.resolveManaAbilityLocked(ctx, m, p, req, source, "")
}

func (e *Engine) finishManaAbilityLocked(ctx context.Context, m *matchState, p *playerState, inf *inflight, stepID string, selections []string) ActivationResult {
	req := inf.Request
	source, onField := m.findOnBattlefield(req.Ability.SourceID)
	if !onField {
		return ActivationResult{
			Pending:   true,
			StepID:    stepID,
			ErrorCode: rules.ErrNoValidTargets,
			Message:   "source left the battlefield",
		}
	}
	if req.Ability.Flags.RequiresTap && source.Tapped {
		m.queue.CancelStep(stepID)
		delete(m.inflight, stepID)
		return rejected(rules.ErrAlreadyTapped, "source was tapped while the choice was pending")
	}

	chosen := mana.ManaType(selections[0])
	result := e.resolveManaAbilityLocked(ctx, m, p, req, source, chosen)
	if result.Success {
		if _, qerr := m.queue.CompleteStep(stepID, selections); qerr != nil {
			e.logger.Error("color step completion failed after resolution",
				zap.String("game_id", m.gameID),
				zap.String("step_id", stepID),
			)
		}
		delete(m.inflight, stepID)
	}
	return result
}

func (e *Engine) resolveManaAbilityLocked(ctx context.Context, m *matchState, p *playerState, req ActivationRequest, source *Card, chosenColor mana.ManaType) ActivationResult {
	manaCost, _ := costs.Split(req.Ability.Costs)
	var plan *mana.PaymentPlan
	if manaCost != nil {
		payment := mana.CalculatePayment(manaCost, p.Pool, req.Ability.SourceID, 0)
		if !payment.Success {
			return rejected(rules.ErrInsufficientMana, payment.Reason)
		}
		plan = payment.Plan
	}

	if plan != nil {
		if !mana.ExecutePayment(plan, p.Pool, req.Ability.SourceID) {
			return rejected(rules.ErrInternal, "mana debit failed after affordability check")
		}
	}
	if req.Ability.Flags.RequiresTap {
		source.Tapped = true
	}

	for _, prod := range req.Ability.Produces {
		manaType := prod.Type
		if prod.AnyColor {
			manaType = chosenColor
		}
		if prod.Restriction != "" || prod.SpendOnlyOnID != "" {
			p.Pool.AddRestricted(mana.RestrictedMana{
				Type:          manaType,
				Amount:        prod.Amount,
				Restriction:   prod.Restriction,
				SpendOnlyOnID: prod.SpendOnlyOnID,
				SourceID:      req.Ability.SourceID,
			})
		} else {
			p.Pool.Add(manaType, prod.Amount)
		}
	}

	m.activationsThisTurn[req.Ability.ID]++
	e.appendEvent(ctx, m, p, req, manaCost)

	e.logger.Debug("mana ability resolved",
		zap.String("game_id", m.gameID),
		zap.String("ability_id", req.Ability.ID),
		zap.String("source_id", req.Ability.SourceID),
	)
	return ActivationResult{Success: true, ManaPoolAfter: p.Pool.Copy()}
}

func (e *Engine) appendEvent(ctx context.Context, m *matchState, p *playerState, req ActivationRequest, cost *mana.Cost) {
	costStr := ""
	if cost != nil {
		costStr = cost.String()
	}
	event := ActivationEvent{
		GameID:      m.gameID,
		PlayerID:    p.PlayerID,
		PermanentID: req.Ability.SourceID,
		AbilityID:   req.Ability.ID,
		CardName:    req.Ability.CardName,
		ManaCost:    costStr,
		CreatedAt:   time.Now(),
	}
	if err := e.log.Append(ctx, event); err != nil {
		// The commit already happened; a log failure is observability
		// loss, not a rollback.
		e.logger.Error("activation event append failed",
			zap.String("game_id", m.gameID),
			zap.String("ability_id", req.Ability.ID),
			zap.Error(err),
		)
	}
}

// snapshotContext merges the caller's turn/priority snapshot with the
// engine's own bookkeeping: per-turn counters and source state.
func (e *Engine) snapshotContext(m *matchState, req ActivationRequest) rules.ActivationContext {
	actx := req.Context
	actx.PlayerID = req.Ability.ControllerID
	actx.ActivationsThisTurn = m.activationsThisTurn[req.Ability.ID]
	actx.LoyaltyActivationsThisTurn = m.loyaltyThisTurn[req.Ability.SourceID]
	actx.StackEmpty = m.stack.IsEmpty()
	if source, ok := m.findOnBattlefield(req.Ability.SourceID); ok {
		actx.SourceOnBattlefield = true
		actx.SourceTapped = source.Tapped
	} else {
		actx.SourceOnBattlefield = false
	}
	return actx
}

func stepKindFor(kind costs.Kind) resolution.StepKind {
	switch kind {
	case costs.KindTap:
		return resolution.StepSelectTapTarget
	case costs.KindUntap:
		return resolution.StepSelectUntapTarget
	case costs.KindSacrifice:
		return resolution.StepSelectSacrifice
	case costs.KindDiscard:
		return resolution.StepSelectDiscard
	case costs.KindExile:
		return resolution.StepSelectExile
	case costs.KindReturnToHand:
		return resolution.StepSelectReturnToHand
	case costs.KindRemoveCounter:
		return resolution.StepSelectCounterTarget
	default:
		return resolution.StepSelectTapTarget
	}
}

func promptFor(comp costs.Component) string {
	if comp.Description != "" {
		return comp.Description
	}
	switch comp.Kind {
	case costs.KindTap:
		return "Choose a permanent to tap"
	case costs.KindUntap:
		return "Choose a permanent to untap"
	case costs.KindSacrifice:
		return "Choose a permanent to sacrifice"
	case costs.KindDiscard:
		return "Choose a card to discard"
	case costs.KindExile:
		return "Choose a card to exile"
	case costs.KindReturnToHand:
		return "Choose a permanent to return to its owner's hand"
	case costs.KindRemoveCounter:
		return "Choose a permanent to remove counters from"
	default:
		return "Choose an object"
	}
}
