package engine

import (
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/DoyleJ11/valorant-veto/internal/maps"
)

var ErrWrongTurn = errors.New("not this team's turn")
var ErrIllegalBan = errors.New("map is not available")
var ErrUnsupportedCommand = errors.New("unsupported command")
var ErrVetoNotStarted = errors.New("veto has not started")
var ErrVetoComplete = errors.New("veto already completed")
var ErrPlayersMissing = errors.New("not all participants have joined")
var ErrSideUnavailable = errors.New("side selection is not open")
var ErrIllegalSide = errors.New("unknown side")
var ErrUnknownTeam = errors.New("team is not part of this room")
var ErrNotParticipant = errors.New("user is not a participant of this room")
var ErrBadPasskey = errors.New("wrong room passkey")

type MapStatus string

const (
	StatusAvailable MapStatus = "available"
	StatusPicked    MapStatus = "picked"
	StatusBanned    MapStatus = "banned"
)

type Side string

const (
	SideAttack Side = "attack"
	SideDefend Side = "defend"
)

func (s Side) Valid() bool {
	return s == SideAttack || s == SideDefend
}

// Opposite returns the side the other team starts on.
func (s Side) Opposite() Side {
	if s == SideAttack {
		return SideDefend
	}
	return SideAttack
}

type MapRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type TeamSlot struct {
	TeamID          string `json:"teamId"`
	TeamName        string `json:"teamName"`
	CaptainID       string `json:"captainId"`
	CaptainUsername string `json:"captainUsername"`
	Joined          bool   `json:"joined"`
}

type SideChoice struct {
	TeamID string `json:"teamId"`
	Side   Side   `json:"side"`
}

// PickBanState is the veto sub-machine embedded in a room.
type PickBanState struct {
	IsStarted     bool                 `json:"isStarted"`
	FirstPickTeam string               `json:"firstPickTeam,omitempty"`
	CurrentTurn   string               `json:"currentTurn,omitempty"`
	RemainingMaps []MapRef             `json:"remainingMaps"`
	MapStatuses   map[string]MapStatus `json:"mapStatuses"`
	SelectedMap   *MapRef              `json:"selectedMap,omitempty"`
	SelectedSide  *SideChoice          `json:"selectedSide,omitempty"`
}

// Room is the server-authoritative coordination session for one match.
type Room struct {
	RoomCode      string       `json:"roomCode"`
	RoomPasskey   string       `json:"roomPasskey,omitempty"`
	MatchID       string       `json:"matchId,omitempty"`
	AdminID       string       `json:"adminId"`
	AdminUsername string       `json:"adminUsername"`
	AdminJoined   bool         `json:"adminJoined"`
	Team1         TeamSlot     `json:"team1"`
	Team2         TeamSlot     `json:"team2"`
	PickBan       PickBanState `json:"pickBanState"`
	CreatedAt     time.Time    `json:"createdAt"`
}

type CommandType string

const (
	CmdJoin       CommandType = "Join"
	CmdStartVeto  CommandType = "StartVeto"
	CmdBanMap     CommandType = "BanMap"
	CmdSelectSide CommandType = "SelectSide"
	CmdResetVeto  CommandType = "ResetVeto"
)

/*
	CmdJoin       -> EvtParticipantJoined
	CmdStartVeto  -> EvtVetoStarted (nothing when already started)
	CmdBanMap     -> EvtMapBanned -> EvtTurnAdvanced
	              -> EvtMapBanned -> EvtMapSelected   (last map standing)
	CmdSelectSide -> EvtSideSelected -> EvtVetoCompleted
	CmdResetVeto  -> EvtVetoReset
*/

type Command struct {
	Type    CommandType
	TeamID  string
	MapID   string
	Side    Side
	UserID  string
	Passkey string
}

type EventType string

const (
	EvtParticipantJoined EventType = "ParticipantJoined"
	EvtVetoStarted       EventType = "VetoStarted"
	EvtMapBanned         EventType = "MapBanned"
	EvtTurnAdvanced      EventType = "TurnAdvanced"
	EvtMapSelected       EventType = "MapSelected"
	EvtSideSelected      EventType = "SideSelected"
	EvtVetoCompleted     EventType = "VetoCompleted"
	EvtVetoReset         EventType = "VetoReset"
)

type Event struct {
	Type   EventType
	TeamID string
	MapID  string
	Side   Side
	UserID string
}

// Apply validates cmd against r and returns the resulting events and room.
// On error the original room is returned untouched.
func Apply(r Room, cmd Command) ([]Event, Room, error) {
	switch cmd.Type {
	case CmdJoin:
		if !strings.EqualFold(r.RoomPasskey, cmd.Passkey) {
			return nil, r, ErrBadPasskey
		}

		newRoom := r.Clone()
		matched := false
		if cmd.UserID != "" && cmd.UserID == r.AdminID {
			newRoom.AdminJoined = true
			matched = true
		}
		if cmd.UserID != "" && cmd.UserID == r.Team1.CaptainID {
			newRoom.Team1.Joined = true
			matched = true
		}
		if cmd.UserID != "" && cmd.UserID == r.Team2.CaptainID {
			newRoom.Team2.Joined = true
			matched = true
		}
		if !matched {
			return nil, r, ErrNotParticipant
		}
		return []Event{{Type: EvtParticipantJoined, UserID: cmd.UserID}}, newRoom, nil

	case CmdStartVeto:
		// Starting twice must never reset progress.
		if r.PickBan.IsStarted {
			return nil, r, nil
		}
		if !r.AllJoined() {
			return nil, r, ErrPlayersMissing
		}

		first := cmd.TeamID
		if first == "" {
			first = r.Team1.TeamID
		}
		if !r.IsTeam(first) {
			return nil, r, ErrUnknownTeam
		}

		newRoom := r.Clone()
		newRoom.PickBan = startedState(first)
		return []Event{{Type: EvtVetoStarted, TeamID: first}}, newRoom, nil

	case CmdBanMap:
		if !r.PickBan.IsStarted {
			return nil, r, ErrVetoNotStarted
		}
		if r.PickBan.SelectedMap != nil {
			return nil, r, ErrVetoComplete
		}
		if !r.IsTeam(cmd.TeamID) {
			return nil, r, ErrUnknownTeam
		}
		if cmd.TeamID != r.PickBan.CurrentTurn {
			return nil, r, ErrWrongTurn
		}
		if !canBan(r.PickBan, cmd.MapID) {
			return nil, r, ErrIllegalBan
		}

		newRoom := r.Clone()
		pb := &newRoom.PickBan
		pb.MapStatuses[cmd.MapID] = StatusBanned
		pb.RemainingMaps = slices.DeleteFunc(pb.RemainingMaps, func(m MapRef) bool { return m.ID == cmd.MapID })

		events := []Event{{Type: EvtMapBanned, TeamID: cmd.TeamID, MapID: cmd.MapID}}

		// Last map standing becomes the selected map; side choice goes to first pick.
		if len(pb.RemainingMaps) == 1 {
			last := pb.RemainingMaps[0]
			pb.SelectedMap = &last
			pb.MapStatuses[last.ID] = StatusPicked
			pb.CurrentTurn = pb.FirstPickTeam
			events = append(events, Event{Type: EvtMapSelected, MapID: last.ID})
			return events, newRoom, nil
		}

		pb.CurrentTurn = newRoom.OtherTeam(cmd.TeamID)
		events = append(events, Event{Type: EvtTurnAdvanced, TeamID: pb.CurrentTurn})
		return events, newRoom, nil

	case CmdSelectSide:
		if !r.PickBan.IsStarted {
			return nil, r, ErrVetoNotStarted
		}
		if r.PickBan.SelectedMap == nil {
			return nil, r, ErrSideUnavailable
		}
		if r.PickBan.SelectedSide != nil {
			return nil, r, ErrVetoComplete
		}
		if !cmd.Side.Valid() {
			return nil, r, ErrIllegalSide
		}
		if !r.IsTeam(cmd.TeamID) {
			return nil, r, ErrUnknownTeam
		}
		if cmd.TeamID != r.PickBan.FirstPickTeam {
			return nil, r, ErrWrongTurn
		}

		newRoom := r.Clone()
		newRoom.PickBan.SelectedSide = &SideChoice{TeamID: cmd.TeamID, Side: cmd.Side}
		events := []Event{
			{Type: EvtSideSelected, TeamID: cmd.TeamID, Side: cmd.Side},
			{Type: EvtVetoCompleted, MapID: newRoom.PickBan.SelectedMap.ID},
		}
		return events, newRoom, nil

	case CmdResetVeto:
		newRoom := r.Clone()
		newRoom.PickBan = PickBanState{}
		return []Event{{Type: EvtVetoReset}}, newRoom, nil

	default:
		return nil, r, ErrUnsupportedCommand
	}
}

func startedState(first string) PickBanState {
	catalog := maps.Catalog()
	s := PickBanState{
		IsStarted:     true,
		FirstPickTeam: first,
		CurrentTurn:   first,
		RemainingMaps: make([]MapRef, 0, len(catalog)),
		MapStatuses:   make(map[string]MapStatus, len(catalog)),
	}
	for _, m := range catalog {
		s.RemainingMaps = append(s.RemainingMaps, MapRef{ID: m.ID, Name: m.Name})
		s.MapStatuses[m.ID] = StatusAvailable
	}
	return s
}

func canBan(s PickBanState, mapID string) bool {
	if s.MapStatuses[mapID] != StatusAvailable {
		return false
	}
	return slices.ContainsFunc(s.RemainingMaps, func(m MapRef) bool { return m.ID == mapID })
}
