// Package mappool turns a room snapshot into what a viewer sees of the map
// veto, and sends the viewer's ban and side choices to the server.
package mappool

import (
	"fmt"

	"github.com/DoyleJ11/valorant-veto/internal/engine"
	"github.com/DoyleJ11/valorant-veto/internal/maps"
	"github.com/DoyleJ11/valorant-veto/internal/resolver"
)

const (
	HeadlineYourBan      = "Your turn to ban a map"
	HeadlineOpponentBan  = "Waiting for opponent to ban a map"
	HeadlineYourSide     = "Your turn to select side"
	HeadlineOpponentSide = "Waiting for opponent to select side"
	HeadlineWaiting      = "Waiting for all players to join..."
	HeadlineReady        = "Waiting for the admin to start the veto"
)

type Tile struct {
	Map        maps.Map
	Status     engine.MapStatus
	Selected   bool
	Selectable bool
}

type SideOption struct {
	Side       engine.Side
	Label      string
	Selectable bool
}

// Presence is one participant card.
type Presence struct {
	Label string
	Name  string
	Ready bool
}

// Summary describes a finished veto.
type Summary struct {
	MapName      string
	TeamName     string
	Side         engine.Side
	OpponentName string
	OpponentSide engine.Side
}

func (s Summary) String() string {
	return fmt.Sprintf("%s: %s starts on %s, %s starts on %s",
		s.MapName, s.TeamName, s.Side, s.OpponentName, s.OpponentSide)
}

type View struct {
	RoomCode string
	Started  bool
	Presence []Presence

	Headline string
	Tiles    []Tile
	BansLeft int

	SelectedMap  *maps.Map
	SideHeadline string
	SideOptions  []SideOption

	Summary *Summary
}

// Actionable reports whether anything in the view can be clicked.
func (v View) Actionable() bool {
	for _, t := range v.Tiles {
		if t.Selectable {
			return true
		}
	}
	for _, o := range v.SideOptions {
		if o.Selectable {
			return true
		}
	}
	return false
}

// Present builds the view of room for a viewer holding auth. Tiles follow
// catalog order. Nothing is selectable once the veto is over.
func Present(room engine.Room, auth resolver.Authorization, catalog []maps.Map) View {
	pb := room.PickBan
	v := View{
		RoomCode: room.RoomCode,
		Started:  pb.IsStarted,
		Presence: []Presence{
			{Label: "Team 1", Name: teamLabel(room.Team1), Ready: room.Team1.Joined},
			{Label: "Admin", Name: room.AdminUsername, Ready: room.AdminJoined},
			{Label: "Team 2", Name: teamLabel(room.Team2), Ready: room.Team2.Joined},
		},
		BansLeft: pb.BansUntilSelection(),
	}

	if !pb.IsStarted {
		v.Headline = HeadlineWaiting
		if room.AllJoined() {
			v.Headline = HeadlineReady
		}
		v.Tiles = tiles(pb, catalog, false, "")
		return v
	}

	selected, settled := pb.ResolvedMap()
	v.Tiles = tiles(pb, catalog, auth.MayBan && !settled, selected.ID)
	if !settled {
		v.Headline = banHeadline(room, auth)
		return v
	}

	m := mapFor(selected, catalog)
	v.SelectedMap = &m
	v.Headline = "Selected map: " + m.Name

	if pb.SelectedSide != nil {
		s := summarize(room, m)
		v.Summary = &s
		return v
	}

	v.SideHeadline = HeadlineOpponentSide
	if auth.MaySelectSide {
		v.SideHeadline = HeadlineYourSide
	} else if auth.ViewerTeamID == "" {
		v.SideHeadline = "Side choice: " + teamName(room, pb.FirstPickTeam)
	}
	v.SideOptions = []SideOption{
		{Side: engine.SideAttack, Label: "Start on attacking side", Selectable: auth.MaySelectSide},
		{Side: engine.SideDefend, Label: "Start on defending side", Selectable: auth.MaySelectSide},
	}
	return v
}

func tiles(pb engine.PickBanState, catalog []maps.Map, mayBan bool, selectedID string) []Tile {
	out := make([]Tile, 0, len(catalog))
	for _, m := range catalog {
		st, ok := pb.MapStatuses[m.ID]
		if !ok {
			st = engine.StatusAvailable
		}
		t := Tile{Map: m, Status: st}
		if m.ID == selectedID {
			t.Selected = true
			t.Status = engine.StatusPicked
		}
		t.Selectable = mayBan && t.Status == engine.StatusAvailable
		out = append(out, t)
	}
	return out
}

func banHeadline(room engine.Room, auth resolver.Authorization) string {
	if auth.ViewerTeamID == "" {
		return "Current Turn: " + teamName(room, room.PickBan.CurrentTurn)
	}
	if auth.MayBan {
		return HeadlineYourBan
	}
	return HeadlineOpponentBan
}

func summarize(room engine.Room, m maps.Map) Summary {
	choice := *room.PickBan.SelectedSide
	return Summary{
		MapName:      m.Name,
		TeamName:     teamName(room, choice.TeamID),
		Side:         choice.Side,
		OpponentName: teamName(room, room.OtherTeam(choice.TeamID)),
		OpponentSide: choice.Side.Opposite(),
	}
}

// mapFor prefers the catalog entry so the image comes along.
func mapFor(ref engine.MapRef, catalog []maps.Map) maps.Map {
	for _, m := range catalog {
		if m.ID == ref.ID {
			return m
		}
	}
	return maps.Map{ID: ref.ID, Name: ref.Name}
}

func teamName(room engine.Room, teamID string) string {
	if t, ok := room.Team(teamID); ok && t.TeamName != "" {
		return t.TeamName
	}
	return teamID
}

func teamLabel(t engine.TeamSlot) string {
	if t.CaptainUsername == "" {
		return t.TeamName
	}
	return fmt.Sprintf("%s (%s)", t.TeamName, t.CaptainUsername)
}
