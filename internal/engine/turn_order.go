package engine

// Bans alternate strictly between the two teams, starting with FirstPickTeam.
// Whoever banned last never bans twice in a row.

// OtherTeam returns the opponent of teamID, or "" when teamID is not in the room.
func (r Room) OtherTeam(teamID string) string {
	switch teamID {
	case r.Team1.TeamID:
		return r.Team2.TeamID
	case r.Team2.TeamID:
		return r.Team1.TeamID
	default:
		return ""
	}
}

// BansUntilSelection is how many bans remain before the last map is left.
func (s PickBanState) BansUntilSelection() int {
	if !s.IsStarted || s.SelectedMap != nil || len(s.RemainingMaps) == 0 {
		return 0
	}
	return len(s.RemainingMaps) - 1
}
