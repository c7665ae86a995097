package websocket

import (
	"encoding/json"
	"errors"

	"github.com/rocketscienceinc/buzzer-backend/internal/apperror"
	"github.com/rocketscienceinc/buzzer-backend/internal/entity"
	"github.com/rocketscienceinc/buzzer-backend/internal/pack"
)

const actionError = "error"

// Message represents a WebSocket message with an action type and a payload.
// Inbound actions are command names, outbound actions are command names
// (responses) or event names (broadcasts).
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type ResponsePayload struct {
	State *entity.GameStateSnapshot `json:"state,omitempty"`
	Error string                    `json:"error,omitempty"`
	Code  string                    `json:"code,omitempty"`
}

var errorCodes = []struct {
	err  error
	code string
}{
	{apperror.ErrSessionHalted, "SessionHalted"},
	{apperror.ErrInvariantViolation, "InvariantViolation"},
	{apperror.ErrWrongTurn, "WrongTurn"},
	{apperror.ErrAlreadyUsed, "AlreadyUsed"},
	{apperror.ErrOutOfRange, "OutOfRange"},
	{apperror.ErrUnknownPlayer, "UnknownPlayer"},
	{apperror.ErrDuplicatePlayer, "DuplicatePlayer"},
	{apperror.ErrInvalidPlayer, "InvalidPlayer"},
	{apperror.ErrOperationForbidden, "OperationForbidden"},
	{apperror.ErrUnknownCommand, "UnknownCommand"},
	{apperror.ErrInvalidPayload, "InvalidPayload"},
	{apperror.ErrNotEnoughPlayers, "NotEnoughPlayers"},
	{apperror.ErrNoActivePlayers, "NoActivePlayers"},
	{apperror.ErrNoPack, "NoPack"},
	{pack.ErrInvalidPack, "InvalidPack"},
	{pack.ErrOutsideLibrary, "PackOutsideLibrary"},
	{apperror.ErrWindowClosed, "WindowClosed"},
}

// errorCode maps a command failure to the code sent to clients.
func errorCode(err error) string {
	for _, known := range errorCodes {
		if errors.Is(err, known.err) {
			return known.code
		}
	}

	return "Internal"
}

func encode(action string, payload any) ([]byte, error) {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return json.Marshal(Message{Action: action, Payload: payloadJSON})
}
