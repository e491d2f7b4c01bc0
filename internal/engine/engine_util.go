package engine

import (
	"fmt"
	"maps"
	"slices"

	catalog "github.com/DoyleJ11/valorant-veto/internal/maps"
)

// Clone returns a deep copy so snapshots never share maps or slices.
func (r Room) Clone() Room {
	c := r
	c.PickBan.RemainingMaps = slices.Clone(r.PickBan.RemainingMaps)
	c.PickBan.MapStatuses = maps.Clone(r.PickBan.MapStatuses)
	if r.PickBan.SelectedMap != nil {
		m := *r.PickBan.SelectedMap
		c.PickBan.SelectedMap = &m
	}
	if r.PickBan.SelectedSide != nil {
		s := *r.PickBan.SelectedSide
		c.PickBan.SelectedSide = &s
	}
	return c
}

// Public returns r without its passkey.
func (r Room) Public() Room {
	r.RoomPasskey = ""
	return r
}

func (r Room) AllJoined() bool {
	return r.AdminJoined && r.Team1.Joined && r.Team2.Joined
}

func (r Room) IsTeam(teamID string) bool {
	return teamID != "" && (teamID == r.Team1.TeamID || teamID == r.Team2.TeamID)
}

// Team returns the slot for teamID.
func (r Room) Team(teamID string) (TeamSlot, bool) {
	switch {
	case teamID == "":
		return TeamSlot{}, false
	case teamID == r.Team1.TeamID:
		return r.Team1, true
	case teamID == r.Team2.TeamID:
		return r.Team2, true
	}
	return TeamSlot{}, false
}

// Terminal reports whether both map and side are settled.
func (r Room) Terminal() bool {
	return r.PickBan.SelectedMap != nil && r.PickBan.SelectedSide != nil
}

// ResolvedMap is the map to display as selected. A single remaining map counts
// even before the server has filled SelectedMap.
func (s PickBanState) ResolvedMap() (MapRef, bool) {
	if s.SelectedMap != nil {
		return *s.SelectedMap, true
	}
	if s.IsStarted && len(s.RemainingMaps) == 1 {
		return s.RemainingMaps[0], true
	}
	return MapRef{}, false
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}

// CheckInvariants reports the first structural violation in r, if any.
func CheckInvariants(r Room) error {
	pb := r.PickBan
	if !pb.IsStarted {
		if pb.SelectedMap != nil || pb.SelectedSide != nil {
			return fmt.Errorf("selection present before veto started")
		}
		return nil
	}

	ids := catalog.IDs()
	if len(pb.MapStatuses) != len(ids) {
		return fmt.Errorf("map statuses cover %d maps, catalog has %d", len(pb.MapStatuses), len(ids))
	}
	picked := 0
	for _, id := range ids {
		st, ok := pb.MapStatuses[id]
		if !ok {
			return fmt.Errorf("map %q missing from statuses", id)
		}
		switch st {
		case StatusAvailable, StatusBanned:
		case StatusPicked:
			picked++
		default:
			return fmt.Errorf("map %q has unknown status %q", id, st)
		}
	}
	for _, m := range pb.RemainingMaps {
		if pb.MapStatuses[m.ID] == StatusBanned {
			return fmt.Errorf("banned map %q still remaining", m.ID)
		}
	}

	if !r.IsTeam(pb.CurrentTurn) {
		return fmt.Errorf("current turn %q is not a room team", pb.CurrentTurn)
	}
	if !r.IsTeam(pb.FirstPickTeam) {
		return fmt.Errorf("first pick %q is not a room team", pb.FirstPickTeam)
	}

	if pb.SelectedMap != nil {
		if picked != 1 || pb.MapStatuses[pb.SelectedMap.ID] != StatusPicked {
			return fmt.Errorf("selected map %q is not the single picked map", pb.SelectedMap.ID)
		}
		for id, st := range pb.MapStatuses {
			if id != pb.SelectedMap.ID && st != StatusBanned {
				return fmt.Errorf("map %q still %s after selection", id, st)
			}
		}
	} else if picked != 0 {
		return fmt.Errorf("picked map without a selection")
	}

	if pb.SelectedSide != nil {
		if pb.SelectedMap == nil {
			return fmt.Errorf("side selected before map")
		}
		if !r.IsTeam(pb.SelectedSide.TeamID) {
			return fmt.Errorf("side chosen by unknown team %q", pb.SelectedSide.TeamID)
		}
		if !pb.SelectedSide.Side.Valid() {
			return fmt.Errorf("unknown side %q", pb.SelectedSide.Side)
		}
	}
	return nil
}
