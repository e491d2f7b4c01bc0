// Package resolver decides what the current viewer may do in a room.
package resolver

import (
	"github.com/DoyleJ11/valorant-veto/internal/engine"
	"github.com/DoyleJ11/valorant-veto/internal/identity"
)

type Role string

const (
	RoleCaptain   Role = "captain"
	RoleAdmin     Role = "admin"
	RoleSpectator Role = "spectator"
	// RolePending means the viewer's identity has not loaded yet.
	RolePending Role = "pending"
)

type Authorization struct {
	Role          Role
	ViewerTeamID  string
	MayBan        bool
	MaySelectSide bool
}

// MayAct reports whether any veto control should be offered.
func (a Authorization) MayAct() bool { return a.MayBan || a.MaySelectSide }

// Resolve gates the controls offered to viewer. ok is false while identity is
// still loading. The server stays authoritative; this only decides what to show.
func Resolve(room *engine.Room, viewer identity.Viewer, ok bool) Authorization {
	if !ok || viewer.UserID == "" {
		return Authorization{Role: RolePending}
	}
	if room == nil {
		return Authorization{Role: RoleSpectator}
	}

	a := Authorization{ViewerTeamID: viewerTeam(room, viewer.UserID)}
	switch {
	case a.ViewerTeamID != "":
		a.Role = RoleCaptain
	case viewer.UserID == room.AdminID:
		a.Role = RoleAdmin
	default:
		a.Role = RoleSpectator
	}
	if a.ViewerTeamID == "" {
		return a
	}

	pb := room.PickBan
	_, settled := pb.ResolvedMap()
	a.MayBan = pb.IsStarted && !settled && a.ViewerTeamID == pb.CurrentTurn
	a.MaySelectSide = pb.SelectedMap != nil && pb.SelectedSide == nil && a.ViewerTeamID == pb.FirstPickTeam
	return a
}

// Team 1 wins when one user captains both sides.
func viewerTeam(room *engine.Room, userID string) string {
	switch userID {
	case room.Team1.CaptainID:
		return room.Team1.TeamID
	case room.Team2.CaptainID:
		return room.Team2.TeamID
	}
	return ""
}
