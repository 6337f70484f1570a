package resolution

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/spellforge/spellforge-server/internal/game/rules"
)

// Notifier receives step lifecycle notifications for the transport layer.
type Notifier interface {
	StepAdded(step Step)
	StepCompleted(step Step)
	StepCancelled(step Step)
}

// QueueError pairs a typed code with a human-readable message.
type QueueError struct {
	Code    rules.ErrorCode
	Message string
}

func (e *QueueError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func queueErr(code rules.ErrorCode, format string, args ...interface{}) *QueueError {
	return &QueueError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Queue is the per-game ordered collection of pending interactive
// steps. It belongs to per-game match state and is exclusively mutated
// by the cost payment orchestrator.
type Queue struct {
	mu       sync.Mutex
	gameID   string
	steps    []Step
	consumed map[string]StepState // step id -> terminal state, for idempotent rejection
	notifier Notifier
	logger   *zap.Logger
}

// NewQueue creates an empty queue for one game.
func NewQueue(gameID string, notifier Notifier, logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{
		gameID:   gameID,
		steps:    make([]Step, 0, 8),
		consumed: make(map[string]StepState),
		notifier: notifier,
		logger:   logger,
	}
}

// AddStep appends a step to the queue and returns it.
func (q *Queue) AddStep(step Step) Step {
	q.mu.Lock()
	step.GameID = q.gameID
	step.State = StatePending
	q.steps = append(q.steps, step)
	q.mu.Unlock()

	q.logger.Debug("resolution step queued",
		zap.String("game_id", q.gameID),
		zap.String("step_id", step.ID),
		zap.String("player_id", step.PlayerID),
		zap.String("kind", string(step.Kind)),
	)
	if q.notifier != nil {
		q.notifier.StepAdded(step)
	}
	return step
}

// GetStepsForPlayer returns the player's pending steps in enqueue order.
func (q *Queue) GetStepsForPlayer(playerID string) []Step {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Step, 0, len(q.steps))
	for _, s := range q.steps {
		if s.PlayerID == playerID && s.State == StatePending {
			out = append(out, s)
		}
	}
	return out
}

// Get returns a pending step by id.
func (q *Queue) Get(stepID string) (Step, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, s := range q.steps {
		if s.ID == stepID {
			return s, true
		}
	}
	return Step{}, false
}

// FindOpen returns an unconsumed step matching the correlation fields,
// so the orchestrator reuses the existing prompt for the same in-flight
// activation rather than duplicating it.
func (q *Queue) FindOpen(c Correlation) (Step, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, s := range q.steps {
		if s.State == StatePending && s.Correlation == c {
			return s, true
		}
	}
	return Step{}, false
}

// ValidateResponse checks a response against the step's declared
// constraints without consuming the step.
func (q *Queue) ValidateResponse(stepID string, response []string) (Step, *QueueError) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.validateLocked(stepID, response)
}

func (q *Queue) validateLocked(stepID string, response []string) (Step, *QueueError) {
	if state, done := q.consumed[stepID]; done {
		return Step{}, queueErr(rules.ErrStepNotFound, "step %s already %s", stepID, state)
	}

	idx := -1
	for i, s := range q.steps {
		if s.ID == stepID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Step{}, queueErr(rules.ErrStepNotFound, "step %s not found", stepID)
	}
	step := q.steps[idx]
	if step.State != StatePending {
		return Step{}, queueErr(rules.ErrStepNotFound, "step %s is not pending", stepID)
	}

	if len(response) < step.MinSelections {
		return Step{}, queueErr(rules.ErrInvalidSelection, "need at least %d selections, got %d", step.MinSelections, len(response))
	}
	if step.MaxSelections > 0 && len(response) > step.MaxSelections {
		return Step{}, queueErr(rules.ErrInvalidSelection, "at most %d selections allowed, got %d", step.MaxSelections, len(response))
	}
	if len(step.Options) > 0 {
		allowed := make(map[string]bool, len(step.Options))
		for _, o := range step.Options {
			allowed[o] = true
		}
		seen := make(map[string]bool, len(response))
		for _, r := range response {
			if !allowed[r] {
				return Step{}, queueErr(rules.ErrInvalidSelection, "selection %q is not a legal option", r)
			}
			if seen[r] {
				return Step{}, queueErr(rules.ErrInvalidSelection, "selection %q repeated", r)
			}
			seen[r] = true
		}
	}

	return step, nil
}

// CompleteStep validates the response and consumes the step. On a
// validation error the step stays queued. Duplicate or stale responses
// are idempotently rejected once a step is consumed.
func (q *Queue) CompleteStep(stepID string, response []string) (Step, *QueueError) {
	q.mu.Lock()
	step, err := q.validateLocked(stepID, response)
	if err != nil {
		q.mu.Unlock()
		return Step{}, err
	}

	step.State = StateCompleted
	step.Response = append([]string(nil), response...)
	q.removeLocked(stepID)
	q.consumed[stepID] = StateCompleted
	q.mu.Unlock()

	q.logger.Debug("resolution step completed",
		zap.String("game_id", q.gameID),
		zap.String("step_id", stepID),
	)
	if q.notifier != nil {
		q.notifier.StepCompleted(step)
	}
	return step, nil
}

// CancelStep marks a pending step cancelled and consumes it. The
// orchestrator aborts the whole in-flight activation; game state is
// untouched because nothing is reserved before the atomic commit.
func (q *Queue) CancelStep(stepID string) (Step, *QueueError) {
	q.mu.Lock()
	if state, done := q.consumed[stepID]; done {
		q.mu.Unlock()
		return Step{}, queueErr(rules.ErrStepNotFound, "step %s already %s", stepID, state)
	}

	idx := -1
	for i, s := range q.steps {
		if s.ID == stepID && s.State == StatePending {
			idx = i
			break
		}
	}
	if idx < 0 {
		q.mu.Unlock()
		return Step{}, queueErr(rules.ErrStepNotFound, "step %s not found", stepID)
	}

	step := q.steps[idx]
	step.State = StateCancelled
	q.removeLocked(stepID)
	q.consumed[stepID] = StateCancelled
	q.mu.Unlock()

	q.logger.Debug("resolution step cancelled",
		zap.String("game_id", q.gameID),
		zap.String("step_id", stepID),
	)
	if q.notifier != nil {
		q.notifier.StepCancelled(step)
	}
	return step, nil
}

// Len returns the number of pending steps.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for _, s := range q.steps {
		if s.State == StatePending {
			n++
		}
	}
	return n
}

func (q *Queue) removeLocked(stepID string) {
	for i, s := range q.steps {
		if s.ID == stepID {
			q.steps = append(q.steps[:i], q.steps[i+1:]...)
			return
		}
	}
}
