package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/DoyleJ11/valorant-veto/internal/engine"
	"github.com/DoyleJ11/valorant-veto/internal/hub"
	"github.com/DoyleJ11/valorant-veto/internal/lobby"
	"github.com/DoyleJ11/valorant-veto/internal/store"
	"github.com/DoyleJ11/valorant-veto/internal/types"
)

// Code is a machine-readable error code.
type Code string

const (
	CodeBadRequest      Code = "BAD_REQUEST"
	CodeRoomNotFound    Code = "ROOM_NOT_FOUND"
	CodeUnauthenticated Code = "UNAUTHENTICATED"
	CodeForbidden       Code = "FORBIDDEN"
	CodeInternal        Code = "INTERNAL"
	CodeUnavailable     Code = "UNAVAILABLE"

	// Veto errors
	CodeWrongTurn       Code = "WRONG_TURN"
	CodeMapUnavailable  Code = "MAP_UNAVAILABLE"
	CodeVetoNotStarted  Code = "VETO_NOT_STARTED"
	CodeVetoComplete    Code = "VETO_COMPLETE"
	CodePlayersMissing  Code = "PLAYERS_MISSING"
	CodeSideUnavailable Code = "SIDE_UNAVAILABLE"
	CodeInvalidSide     Code = "INVALID_SIDE"
	CodeUnknownTeam     Code = "UNKNOWN_TEAM"
	CodeNotParticipant  Code = "NOT_PARTICIPANT"
	CodeBadPasskey      Code = "BAD_PASSKEY"
)

var engineCodes = []struct {
	err    error
	status int
	code   Code
}{
	{engine.ErrWrongTurn, http.StatusConflict, CodeWrongTurn},
	{engine.ErrIllegalBan, http.StatusConflict, CodeMapUnavailable},
	{engine.ErrVetoNotStarted, http.StatusConflict, CodeVetoNotStarted},
	{engine.ErrVetoComplete, http.StatusConflict, CodeVetoComplete},
	{engine.ErrPlayersMissing, http.StatusConflict, CodePlayersMissing},
	{engine.ErrSideUnavailable, http.StatusConflict, CodeSideUnavailable},
	{engine.ErrIllegalSide, http.StatusBadRequest, CodeInvalidSide},
	{engine.ErrUnknownTeam, http.StatusBadRequest, CodeUnknownTeam},
	{engine.ErrUnsupportedCommand, http.StatusBadRequest, CodeBadRequest},
	{engine.ErrNotParticipant, http.StatusForbidden, CodeNotParticipant},
	{engine.ErrBadPasskey, http.StatusForbidden, CodeBadPasskey},
}

// statusFor maps domain errors to an HTTP status and code.
func statusFor(err error) (int, Code) {
	for _, c := range engineCodes {
		if errors.Is(err, c.err) {
			return c.status, c.code
		}
	}
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, lobby.ErrClosed):
		return http.StatusNotFound, CodeRoomNotFound
	case errors.Is(err, hub.ErrClosed), errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, CodeUnavailable
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

func writeDomainError(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	writeError(w, status, code, msg)
}

func writeError(w http.ResponseWriter, status int, code Code, msg string) {
	writeJSON(w, status, types.ErrorResponse{Error: msg, Code: string(code)})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
