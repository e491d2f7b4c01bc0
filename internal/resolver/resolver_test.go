package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/valorant-veto/internal/engine"
	"github.com/DoyleJ11/valorant-veto/internal/identity"
	"github.com/DoyleJ11/valorant-veto/internal/maps"
)

var (
	admin     = identity.Viewer{UserID: "admin", Username: "ref"}
	cap1      = identity.Viewer{UserID: "cap1", Username: "alpha_cap"}
	cap2      = identity.Viewer{UserID: "cap2", Username: "beta_cap"}
	spectator = identity.Viewer{UserID: "someone"}
)

func readyRoom() engine.Room {
	return engine.Room{
		RoomCode:    "ZED123",
		RoomPasskey: "PASS42",
		AdminID:     "admin",
		AdminJoined: true,
		Team1:       engine.TeamSlot{TeamID: "T1", TeamName: "Alpha", CaptainID: "cap1", Joined: true},
		Team2:       engine.TeamSlot{TeamID: "T2", TeamName: "Beta", CaptainID: "cap2", Joined: true},
	}
}

func apply(t *testing.T, r engine.Room, cmd engine.Command) engine.Room {
	t.Helper()
	_, next, err := engine.Apply(r, cmd)
	require.NoError(t, err)
	return next
}

func TestResolve_Roles(t *testing.T) {
	r := readyRoom()
	tests := []struct {
		name   string
		viewer identity.Viewer
		ok     bool
		role   Role
		team   string
	}{
		{"team1 captain", cap1, true, RoleCaptain, "T1"},
		{"team2 captain", cap2, true, RoleCaptain, "T2"},
		{"admin", admin, true, RoleAdmin, ""},
		{"stranger", spectator, true, RoleSpectator, ""},
		{"identity loading", cap1, false, RolePending, ""},
		{"empty viewer", identity.Viewer{}, true, RolePending, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Resolve(&r, tt.viewer, tt.ok)
			assert.Equal(t, tt.role, a.Role)
			assert.Equal(t, tt.team, a.ViewerTeamID)
			assert.False(t, a.MayAct(), "nothing is actionable before the veto starts")
		})
	}
}

func TestResolve_NilRoom(t *testing.T) {
	a := Resolve(nil, cap1, true)
	assert.Equal(t, RoleSpectator, a.Role)
	assert.False(t, a.MayAct())
}

func TestResolve_TurnScenario(t *testing.T) {
	r := apply(t, readyRoom(), engine.Command{Type: engine.CmdStartVeto, TeamID: "T1"})

	a := Resolve(&r, cap1, true)
	assert.True(t, a.MayBan)
	assert.False(t, a.MaySelectSide)
	assert.False(t, Resolve(&r, cap2, true).MayBan)

	r = apply(t, r, engine.Command{Type: engine.CmdBanMap, TeamID: "T1", MapID: "ascent"})
	assert.Equal(t, engine.StatusBanned, r.PickBan.MapStatuses["ascent"])
	assert.False(t, Resolve(&r, cap1, true).MayBan)
	assert.True(t, Resolve(&r, cap2, true).MayBan)
}

// Every state reachable through a full veto gates controls the same way.
func TestResolve_GatingHoldsThroughVeto(t *testing.T) {
	r := apply(t, readyRoom(), engine.Command{Type: engine.CmdStartVeto, TeamID: "T2"})
	states := []engine.Room{r}
	for _, id := range maps.IDs() {
		if id == "lotus" {
			continue
		}
		r = apply(t, r, engine.Command{Type: engine.CmdBanMap, TeamID: r.PickBan.CurrentTurn, MapID: id})
		states = append(states, r)
	}
	require.NotNil(t, r.PickBan.SelectedMap)
	r = apply(t, r, engine.Command{Type: engine.CmdSelectSide, TeamID: "T2", Side: engine.SideDefend})
	states = append(states, r)

	viewers := []struct {
		v  identity.Viewer
		ok bool
	}{{cap1, true}, {cap2, true}, {admin, true}, {spectator, true}, {cap1, false}}

	for i := range states {
		s := states[i]
		for _, vw := range viewers {
			a := Resolve(&s, vw.v, vw.ok)
			if a.ViewerTeamID == "" {
				assert.False(t, a.MayAct(), "state %d viewer %q has no team", i, vw.v.UserID)
			}
			if a.MayBan {
				assert.Equal(t, s.PickBan.CurrentTurn, a.ViewerTeamID, "state %d", i)
			}
			if a.MaySelectSide {
				assert.Equal(t, s.PickBan.FirstPickTeam, a.ViewerTeamID, "state %d", i)
			}
			if s.Terminal() {
				assert.False(t, a.MayAct(), "terminal state offers controls to %q", vw.v.UserID)
			}
		}
	}
}

func TestResolve_SideSelection(t *testing.T) {
	r := apply(t, readyRoom(), engine.Command{Type: engine.CmdStartVeto, TeamID: "T1"})
	r.PickBan.SelectedMap = &engine.MapRef{ID: "bind", Name: "Bind"}

	assert.True(t, Resolve(&r, cap1, true).MaySelectSide)
	assert.False(t, Resolve(&r, cap2, true).MaySelectSide)
	assert.False(t, Resolve(&r, cap1, false).MaySelectSide)

	r.PickBan.SelectedSide = &engine.SideChoice{TeamID: "T1", Side: engine.SideAttack}
	assert.False(t, Resolve(&r, cap1, true).MaySelectSide)
}

func TestResolve_LastMapStandingDisablesBans(t *testing.T) {
	r := apply(t, readyRoom(), engine.Command{Type: engine.CmdStartVeto, TeamID: "T1"})
	// A server that leaves the last map unpromoted.
	r.PickBan.RemainingMaps = []engine.MapRef{{ID: "bind", Name: "Bind"}}

	for _, v := range []identity.Viewer{cap1, cap2} {
		a := Resolve(&r, v, true)
		assert.False(t, a.MayBan)
		// Side choice waits for the server to record the map.
		assert.False(t, a.MaySelectSide)
	}
}
