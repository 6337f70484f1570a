package rules

// ErrorCode is a typed rejection code surfaced to clients.
type ErrorCode string

const (
	// ErrInsufficientMana means the combined cost exceeds the pool.
	ErrInsufficientMana ErrorCode = "INSUFFICIENT_MANA"
	// ErrInsufficientCostTargets means no object can satisfy a
	// selection cost ("sacrifice a creature" with no creatures).
	ErrInsufficientCostTargets ErrorCode = "INSUFFICIENT_COST_TARGETS"
	// ErrAlreadyTapped means the source is tapped and the cost requires tapping it.
	ErrAlreadyTapped ErrorCode = "ALREADY_TAPPED"
	// ErrNotYourTurn means the restriction requires the player's own turn.
	ErrNotYourTurn ErrorCode = "NOT_YOUR_TURN"
	// ErrWrongTiming means a timing restriction failed (sorcery speed, combat only).
	ErrWrongTiming ErrorCode = "WRONG_TIMING"
	// ErrNoValidTargets means the ability's targets cannot be satisfied.
	ErrNoValidTargets ErrorCode = "NO_VALID_TARGETS"
	// ErrNoPriority means the controller does not hold priority.
	ErrNoPriority ErrorCode = "NO_PRIORITY"
	// ErrOncePerTurn means a per-turn activation cap was reached.
	ErrOncePerTurn ErrorCode = "ONCE_PER_TURN"
	// ErrStackLocked means a stack lock effect forbids new activations.
	ErrStackLocked ErrorCode = "STACK_LOCKED"
	// ErrLifePayment means a life payment exceeds the player's life total.
	ErrLifePayment ErrorCode = "LIFE_PAYMENT"
	// ErrInvalidSelection means a step response failed its constraints.
	ErrInvalidSelection ErrorCode = "INVALID_SELECTION"
	// ErrStepNotFound means the referenced resolution step does not exist
	// or was already consumed.
	ErrStepNotFound ErrorCode = "STEP_NOT_FOUND"
	// ErrGameNotFound means the referenced game does not exist.
	ErrGameNotFound ErrorCode = "GAME_NOT_FOUND"
	// ErrInternal marks an invariant violation; never expected in play.
	ErrInternal ErrorCode = "INTERNAL"
)
