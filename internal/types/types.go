package types

import (
	"strings"

	"github.com/DoyleJ11/valorant-veto/internal/engine"
)

// NormalizeCode upper-cases and trims a room code or passkey as typed by a user.
func NormalizeCode(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

type CaptainInput struct {
	TeamID          string `json:"teamId"`
	TeamName        string `json:"teamName"`
	CaptainID       string `json:"captainId"`
	CaptainUsername string `json:"captainUsername"`
}

type CreateRoomRequest struct {
	MatchID       string       `json:"matchId"`
	AdminID       string       `json:"adminId"`
	AdminUsername string       `json:"adminUsername"`
	Team1         CaptainInput `json:"team1"`
	Team2         CaptainInput `json:"team2"`
}

type JoinRoomRequest struct {
	RoomCode    string `json:"roomCode"`
	RoomPasskey string `json:"roomPasskey"`
	UserID      string `json:"userId"`
}

type JoinRoomResponse struct {
	Authorized bool         `json:"authorized"`
	Room       *engine.Room `json:"room,omitempty"`
}

type StartVetoRequest struct {
	FirstPickTeam string `json:"firstPickTeam,omitempty"`
}

type BanMapRequest struct {
	MapID        string `json:"mapId"`
	ActingTeamID string `json:"actingTeamId"`
}

type SelectSideRequest struct {
	ActingTeamID string      `json:"actingTeamId"`
	Side         engine.Side `json:"side"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"` // machine-readable, see httpapi codes
}
