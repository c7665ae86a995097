package apperror

import "errors"

// Recoverable command failures. The session state is unchanged when one of these is returned.
var (
	ErrWrongTurn          = errors.New("player has no authority for this action")
	ErrAlreadyUsed        = errors.New("question is already used")
	ErrOutOfRange         = errors.New("topic or question index is out of range")
	ErrUnknownPlayer      = errors.New("unknown player")
	ErrDuplicatePlayer    = errors.New("player id is already registered")
	ErrInvalidPlayer      = errors.New("invalid player")
	ErrOperationForbidden = errors.New("operation forbidden for this game state")
	ErrUnknownCommand     = errors.New("unknown command")
	ErrInvalidPayload     = errors.New("invalid command payload")
	ErrNotEnoughPlayers   = errors.New("not enough players for game")
	ErrNoActivePlayers    = errors.New("no active players left")
	ErrNoPack             = errors.New("game pack is not loaded")
	ErrWindowClosed       = errors.New("arbitration window is closed")
)

// Fatal failures.
var (
	ErrInvariantViolation = errors.New("session invariant violated")
	ErrSessionHalted      = errors.New("session is halted")
)
