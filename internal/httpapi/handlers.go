package httpapi

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"io"
	"math/big"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/DoyleJ11/valorant-veto/internal/engine"
	"github.com/DoyleJ11/valorant-veto/internal/hub"
	"github.com/DoyleJ11/valorant-veto/internal/lobby"
	"github.com/DoyleJ11/valorant-veto/internal/types"
)

const (
	codeLength    = 6
	maxCodeTries  = 10
	maxBodyLength = 1 << 16
)

func GenerateCode() (string, error) {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	code := make([]byte, codeLength)
	for i := 0; i < codeLength; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}

func CreateRoom(h *hub.Hub, g guard) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.CreateRoomRequest
		if !decode(w, r, &req) {
			return
		}
		if msg := validateCreate(req); msg != "" {
			writeError(w, http.StatusBadRequest, CodeBadRequest, msg)
			return
		}
		if !g.allow(w, r, req.AdminID) {
			return
		}

		passkey, err := GenerateCode()
		if err != nil {
			writeError(w, http.StatusInternalServerError, CodeInternal, "failed to generate passkey")
			return
		}

		for i := 0; i < maxCodeTries; i++ {
			code, err := GenerateCode()
			if err != nil {
				writeError(w, http.StatusInternalServerError, CodeInternal, "failed to generate code")
				return
			}
			room := newRoom(code, passkey, req)
			lb, created, err := h.Create(r.Context(), room)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			if !created {
				continue // collision on code, regenerate
			}
			view, err := lb.Snapshot(r.Context())
			if err != nil {
				writeDomainError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, view.Room)
			return
		}
		writeError(w, http.StatusServiceUnavailable, CodeUnavailable, "could not allocate a room code")
	}
}

func validateCreate(req types.CreateRoomRequest) string {
	switch {
	case req.AdminID == "":
		return "adminId is required"
	case req.Team1.TeamID == "" || req.Team2.TeamID == "":
		return "both teams need a teamId"
	case req.Team1.TeamID == req.Team2.TeamID:
		return "teams must differ"
	case req.Team1.CaptainID == "" || req.Team2.CaptainID == "":
		return "both teams need a captain"
	}
	return ""
}

func newRoom(code, passkey string, req types.CreateRoomRequest) engine.Room {
	slot := func(c types.CaptainInput) engine.TeamSlot {
		return engine.TeamSlot{
			TeamID:          c.TeamID,
			TeamName:        c.TeamName,
			CaptainID:       c.CaptainID,
			CaptainUsername: c.CaptainUsername,
		}
	}
	return engine.Room{
		RoomCode:      code,
		RoomPasskey:   passkey,
		MatchID:       req.MatchID,
		AdminID:       req.AdminID,
		AdminUsername: req.AdminUsername,
		Team1:         slot(req.Team1),
		Team2:         slot(req.Team2),
		CreatedAt:     time.Now().UTC(),
	}
}

func ListRooms(h *hub.Hub, g guard) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		all, err := h.List(r.Context())
		if err != nil {
			writeDomainError(w, err)
			return
		}
		rooms := make([]engine.Room, 0, len(all))
		for _, lb := range all {
			view, err := lb.Snapshot(r.Context())
			if errors.Is(err, lobby.ErrClosed) {
				continue // deleted while listing
			}
			if err != nil {
				writeDomainError(w, err)
				return
			}
			rooms = append(rooms, g.visible(r, view.Room))
		}
		writeJSON(w, http.StatusOK, rooms)
	}
}

func GetRoom(h *hub.Hub, g guard) http.HandlerFunc {
	return withLobby(h, func(w http.ResponseWriter, r *http.Request, lb *lobby.Lobby) {
		view, err := lb.Snapshot(r.Context())
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, g.visible(r, view.Room))
	})
}

func DeleteRoom(h *hub.Hub, g guard) http.HandlerFunc {
	return withLobby(h, func(w http.ResponseWriter, r *http.Request, lb *lobby.Lobby) {
		view, err := lb.Snapshot(r.Context())
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if !g.allow(w, r, view.Room.AdminID) {
			return
		}
		if err := h.Remove(r.Context(), view.Room.RoomCode); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

// JoinRoom answers authorized=false for a wrong passkey or a stranger, as the
// front-end shows that as a message rather than an error.
func JoinRoom(h *hub.Hub, g guard) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.JoinRoomRequest
		if !decode(w, r, &req) {
			return
		}
		if req.RoomCode == "" || req.UserID == "" {
			writeError(w, http.StatusBadRequest, CodeBadRequest, "roomCode and userId are required")
			return
		}
		if !g.allow(w, r, req.UserID) {
			return
		}

		lb, err := h.Get(r.Context(), types.NormalizeCode(req.RoomCode))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if lb == nil {
			writeError(w, http.StatusNotFound, CodeRoomNotFound, "room not found")
			return
		}

		res, err := lb.Do(r.Context(), engine.Command{
			Type:    engine.CmdJoin,
			UserID:  req.UserID,
			Passkey: types.NormalizeCode(req.RoomPasskey),
		})
		switch {
		case errors.Is(err, engine.ErrBadPasskey), errors.Is(err, engine.ErrNotParticipant):
			writeJSON(w, http.StatusOK, types.JoinRoomResponse{Authorized: false})
		case err != nil:
			writeDomainError(w, err)
		default:
			room := g.visible(r, res.Room)
			writeJSON(w, http.StatusOK, types.JoinRoomResponse{Authorized: true, Room: &room})
		}
	}
}

func StartVeto(h *hub.Hub, g guard) http.HandlerFunc {
	return withLobby(h, func(w http.ResponseWriter, r *http.Request, lb *lobby.Lobby) {
		var req types.StartVetoRequest
		if !decodeOptional(w, r, &req) {
			return
		}
		if !allowAdmin(w, r, g, lb) {
			return
		}
		do(w, r, g, lb, engine.Command{Type: engine.CmdStartVeto, TeamID: req.FirstPickTeam})
	})
}

func ResetVeto(h *hub.Hub, g guard) http.HandlerFunc {
	return withLobby(h, func(w http.ResponseWriter, r *http.Request, lb *lobby.Lobby) {
		if !allowAdmin(w, r, g, lb) {
			return
		}
		do(w, r, g, lb, engine.Command{Type: engine.CmdResetVeto})
	})
}

func BanMap(h *hub.Hub, g guard) http.HandlerFunc {
	return withLobby(h, func(w http.ResponseWriter, r *http.Request, lb *lobby.Lobby) {
		var req types.BanMapRequest
		if !decode(w, r, &req) {
			return
		}
		if req.MapID == "" || req.ActingTeamID == "" {
			writeError(w, http.StatusBadRequest, CodeBadRequest, "mapId and actingTeamId are required")
			return
		}
		if !allowCaptain(w, r, g, lb, req.ActingTeamID) {
			return
		}
		do(w, r, g, lb, engine.Command{Type: engine.CmdBanMap, TeamID: req.ActingTeamID, MapID: req.MapID})
	})
}

func SelectSide(h *hub.Hub, g guard) http.HandlerFunc {
	return withLobby(h, func(w http.ResponseWriter, r *http.Request, lb *lobby.Lobby) {
		var req types.SelectSideRequest
		if !decode(w, r, &req) {
			return
		}
		if req.ActingTeamID == "" {
			writeError(w, http.StatusBadRequest, CodeBadRequest, "actingTeamId is required")
			return
		}
		if !allowCaptain(w, r, g, lb, req.ActingTeamID) {
			return
		}
		do(w, r, g, lb, engine.Command{Type: engine.CmdSelectSide, TeamID: req.ActingTeamID, Side: req.Side})
	})
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func withLobby(h *hub.Hub, next func(http.ResponseWriter, *http.Request, *lobby.Lobby)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := types.NormalizeCode(chi.URLParam(r, "code"))
		if code == "" {
			writeError(w, http.StatusBadRequest, CodeBadRequest, "missing code")
			return
		}
		lb, err := h.Get(r.Context(), code)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if lb == nil {
			writeError(w, http.StatusNotFound, CodeRoomNotFound, "room not found")
			return
		}
		next(w, r, lb)
	}
}

func allowAdmin(w http.ResponseWriter, r *http.Request, g guard, lb *lobby.Lobby) bool {
	if !g.enabled {
		return true
	}
	view, err := lb.Snapshot(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return false
	}
	return g.allow(w, r, view.Room.AdminID)
}

func allowCaptain(w http.ResponseWriter, r *http.Request, g guard, lb *lobby.Lobby, teamID string) bool {
	if !g.enabled {
		return true
	}
	view, err := lb.Snapshot(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return false
	}
	team, ok := view.Room.Team(teamID)
	if !ok {
		writeDomainError(w, engine.ErrUnknownTeam)
		return false
	}
	return g.allow(w, r, team.CaptainID)
}

func do(w http.ResponseWriter, r *http.Request, g guard, lb *lobby.Lobby, cmd engine.Command) {
	res, err := lb.Do(r.Context(), cmd)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g.visible(r, res.Room))
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyLength))
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "bad json")
		return false
	}
	return true
}

// decodeOptional accepts an empty body.
func decodeOptional(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyLength))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "bad json")
		return false
	}
	return true
}
