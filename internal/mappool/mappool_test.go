package mappool

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/valorant-veto/internal/api"
	"github.com/DoyleJ11/valorant-veto/internal/engine"
	"github.com/DoyleJ11/valorant-veto/internal/identity"
	"github.com/DoyleJ11/valorant-veto/internal/maps"
	"github.com/DoyleJ11/valorant-veto/internal/resolver"
)

var (
	cap1  = identity.Viewer{UserID: "cap1"}
	cap2  = identity.Viewer{UserID: "cap2"}
	admin = identity.Viewer{UserID: "admin"}
)

func startedRoom(t *testing.T) engine.Room {
	t.Helper()
	r := engine.Room{
		RoomCode:      "ZED123",
		AdminID:       "admin",
		AdminUsername: "ref",
		AdminJoined:   true,
		Team1:         engine.TeamSlot{TeamID: "T1", TeamName: "Alpha", CaptainID: "cap1", CaptainUsername: "a", Joined: true},
		Team2:         engine.TeamSlot{TeamID: "T2", TeamName: "Beta", CaptainID: "cap2", CaptainUsername: "b", Joined: true},
	}
	_, r, err := engine.Apply(r, engine.Command{Type: engine.CmdStartVeto, TeamID: "T1"})
	require.NoError(t, err)
	return r
}

func ban(t *testing.T, r engine.Room, ids ...string) engine.Room {
	t.Helper()
	for _, id := range ids {
		var err error
		_, r, err = engine.Apply(r, engine.Command{Type: engine.CmdBanMap, TeamID: r.PickBan.CurrentTurn, MapID: id})
		require.NoError(t, err)
	}
	return r
}

func view(r engine.Room, v identity.Viewer) (View, resolver.Authorization) {
	auth := resolver.Resolve(&r, v, true)
	return Present(r, auth, maps.Catalog()), auth
}

type call struct {
	Code, MapID, TeamID string
	Side                engine.Side
}

type fakeActions struct {
	mu      sync.Mutex
	calls   []call
	err     error
	entered chan struct{}
	release chan struct{}
}

func (f *fakeActions) wait() {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
}

func (f *fakeActions) BanMap(ctx context.Context, code, mapID, team string) (engine.Room, error) {
	f.wait()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{Code: code, MapID: mapID, TeamID: team})
	return engine.Room{}, f.err
}

func (f *fakeActions) SelectSide(ctx context.Context, code, team string, side engine.Side) (engine.Room, error) {
	f.wait()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{Code: code, TeamID: team, Side: side})
	return engine.Room{}, f.err
}

func notices() (*[]Notice, Notifier) {
	var got []Notice
	return &got, NotifierFunc(func(n Notice) { got = append(got, n) })
}

func TestPresent_NotStarted(t *testing.T) {
	r := startedRoom(t)
	r.PickBan = engine.PickBanState{}
	r.Team2.Joined = false

	v, _ := view(r, cap1)
	assert.Equal(t, HeadlineWaiting, v.Headline)
	assert.False(t, v.Actionable())
	require.Len(t, v.Presence, 3)
	assert.True(t, v.Presence[0].Ready)
	assert.False(t, v.Presence[2].Ready)

	r.Team2.Joined = true
	v, _ = view(r, cap1)
	assert.Equal(t, HeadlineReady, v.Headline)
}

func TestPresent_BanTurn(t *testing.T) {
	r := startedRoom(t)

	v, _ := view(r, cap1)
	assert.Equal(t, HeadlineYourBan, v.Headline)
	assert.Equal(t, 6, v.BansLeft)
	require.Len(t, v.Tiles, len(maps.Catalog()))
	for i, tile := range v.Tiles {
		assert.Equal(t, maps.Catalog()[i].ID, tile.Map.ID)
		assert.True(t, tile.Selectable, tile.Map.ID)
	}

	v, _ = view(r, cap2)
	assert.Equal(t, HeadlineOpponentBan, v.Headline)
	assert.False(t, v.Actionable())

	v, _ = view(r, admin)
	assert.Equal(t, "Current Turn: Alpha", v.Headline)
	assert.False(t, v.Actionable())
}

func TestPresent_BannedTileNotSelectable(t *testing.T) {
	r := ban(t, startedRoom(t), "ascent", "bind")

	v, _ := view(r, cap1)
	for _, tile := range v.Tiles {
		switch tile.Map.ID {
		case "ascent", "bind":
			assert.Equal(t, engine.StatusBanned, tile.Status)
			assert.False(t, tile.Selectable)
		default:
			assert.True(t, tile.Selectable)
		}
	}
}

func TestDispatcher_BanScenario(t *testing.T) {
	r := startedRoom(t)
	before := r.Clone()
	fa := &fakeActions{}
	got, n := notices()
	d := NewDispatcher(fa, n)

	_, auth := view(r, cap1)
	require.NoError(t, d.SelectMap(context.Background(), r, auth, "ascent"))
	require.Equal(t, []call{{Code: "ZED123", MapID: "ascent", TeamID: "T1"}}, fa.calls)
	assert.Equal(t, before, r, "dispatch must not touch the held room")
	assert.Empty(t, *got)

	// The next poll carries the server's answer.
	polled := ban(t, r, "ascent")
	assert.Equal(t, engine.StatusBanned, polled.PickBan.MapStatuses["ascent"])
	assert.Equal(t, "T2", polled.PickBan.CurrentTurn)
	v, auth := view(polled, cap1)
	assert.False(t, auth.MayBan)
	assert.False(t, v.Actionable())
}

func TestDispatcher_Preconditions(t *testing.T) {
	r := ban(t, startedRoom(t), "ascent")
	fa := &fakeActions{}
	got, n := notices()
	d := NewDispatcher(fa, n)

	_, auth := view(r, cap1)
	assert.ErrorIs(t, d.SelectMap(context.Background(), r, auth, "bind"), ErrNotAllowed)

	_, auth = view(r, cap2)
	assert.ErrorIs(t, d.SelectMap(context.Background(), r, auth, "ascent"), ErrMapUnavailable)
	assert.ErrorIs(t, d.SelectSide(context.Background(), r, auth, engine.SideAttack), ErrNotAllowed)

	assert.Empty(t, fa.calls)
	assert.Len(t, *got, 3)
}

func TestDispatcher_RejectionBecomesNotice(t *testing.T) {
	r := startedRoom(t)
	fa := &fakeActions{err: &api.StatusError{Status: http.StatusConflict, Code: "WRONG_TURN", Message: "not this team's turn"}}
	got, n := notices()
	d := NewDispatcher(fa, n)

	_, auth := view(r, cap1)
	err := d.SelectMap(context.Background(), r, auth, "ascent")
	require.ErrorIs(t, err, api.ErrRejected)
	require.Len(t, *got, 1)
	assert.Equal(t, LevelInfo, (*got)[0].Level)
	assert.Equal(t, "not this team's turn", (*got)[0].Message)

	fa.err = errors.New("dial tcp: connection refused")
	err = d.SelectMap(context.Background(), r, auth, "ascent")
	require.Error(t, err)
	require.Len(t, *got, 2)
	assert.Equal(t, LevelError, (*got)[1].Level)
	assert.Equal(t, "Could not reach the server, try again", (*got)[1].Message)
}

func TestDispatcher_NoticeKinds(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		level Level
		msg   string
	}{
		{"gone", &api.StatusError{Status: http.StatusNotFound}, LevelError, "This room no longer exists"},
		{"bad gateway", &api.StatusError{Status: http.StatusBadGateway, Message: "upstream"}, LevelError, "Could not reach the server, try again"},
		{"rejected without message", &api.StatusError{Status: http.StatusForbidden}, LevelInfo, "The server refused that action"},
		{"rejected", &api.StatusError{Status: http.StatusBadRequest, Message: "unknown map"}, LevelInfo, "unknown map"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := startedRoom(t)
			got, n := notices()
			d := NewDispatcher(&fakeActions{err: tt.err}, n)

			_, auth := view(r, cap1)
			require.Error(t, d.SelectMap(context.Background(), r, auth, "ascent"))
			require.Len(t, *got, 1)
			assert.Equal(t, tt.level, (*got)[0].Level)
			assert.Equal(t, tt.msg, (*got)[0].Message)
		})
	}
}

func TestDispatcher_OneActionAtATime(t *testing.T) {
	r := startedRoom(t)
	fa := &fakeActions{entered: make(chan struct{}, 1), release: make(chan struct{})}
	d := NewDispatcher(fa, nil)
	_, auth := view(r, cap1)

	errc := make(chan error, 1)
	go func() { errc <- d.SelectMap(context.Background(), r, auth, "ascent") }()
	<-fa.entered

	assert.ErrorIs(t, d.SelectMap(context.Background(), r, auth, "bind"), ErrActionInFlight)

	close(fa.release)
	select {
	case err := <-errc:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatalf("first action never finished")
	}
	assert.Len(t, fa.calls, 1)
}

func TestPresent_LastMapStanding(t *testing.T) {
	r := startedRoom(t)
	// A server that has not promoted the final map yet.
	r.PickBan.RemainingMaps = []engine.MapRef{{ID: "bind", Name: "Bind"}}
	for id := range r.PickBan.MapStatuses {
		if id != "bind" {
			r.PickBan.MapStatuses[id] = engine.StatusBanned
		}
	}

	for _, viewer := range []identity.Viewer{cap1, cap2} {
		v, auth := view(r, viewer)
		require.NotNil(t, v.SelectedMap)
		assert.Equal(t, "Bind", v.SelectedMap.Name)
		assert.False(t, auth.MayBan)
		for _, tile := range v.Tiles {
			assert.False(t, tile.Selectable, tile.Map.ID)
		}
		assert.Equal(t, 0, v.BansLeft)

		err := NewDispatcher(&fakeActions{}, nil).SelectMap(context.Background(), r, auth, "bind")
		assert.ErrorIs(t, err, ErrNotAllowed)
	}
}

func TestSideSelectionScenario(t *testing.T) {
	r := ban(t, startedRoom(t), "abyss", "ascent", "haven", "icebox", "lotus", "sunset")
	require.NotNil(t, r.PickBan.SelectedMap)

	v, auth := view(r, cap1)
	require.True(t, auth.MaySelectSide)
	assert.Equal(t, HeadlineYourSide, v.SideHeadline)
	require.Len(t, v.SideOptions, 2)
	assert.True(t, v.SideOptions[0].Selectable)

	v2, _ := view(r, cap2)
	assert.Equal(t, HeadlineOpponentSide, v2.SideHeadline)
	assert.False(t, v2.Actionable())

	fa := &fakeActions{}
	require.NoError(t, NewDispatcher(fa, nil).SelectSide(context.Background(), r, auth, engine.SideAttack))
	assert.Equal(t, []call{{Code: "ZED123", TeamID: "T1", Side: engine.SideAttack}}, fa.calls)

	_, done, err := engine.Apply(r, engine.Command{Type: engine.CmdSelectSide, TeamID: "T1", Side: engine.SideAttack})
	require.NoError(t, err)

	for _, viewer := range []identity.Viewer{cap1, cap2, admin} {
		v, auth := view(done, viewer)
		require.NotNil(t, v.Summary)
		assert.Equal(t, "Bind: Alpha starts on attack, Beta starts on defend", v.Summary.String())
		assert.False(t, auth.MayAct())
		assert.False(t, v.Actionable())
		assert.Empty(t, v.SideOptions)
	}
}

func TestTerminal_RepeatedPollsStayInert(t *testing.T) {
	r := ban(t, startedRoom(t), "abyss", "ascent", "haven", "icebox", "lotus", "sunset")
	_, r, err := engine.Apply(r, engine.Command{Type: engine.CmdSelectSide, TeamID: "T1", Side: engine.SideDefend})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		polled := r.Clone()
		for _, viewer := range []identity.Viewer{cap1, cap2} {
			v, auth := view(polled, viewer)
			assert.False(t, auth.MayBan)
			assert.False(t, auth.MaySelectSide)
			assert.False(t, v.Actionable())
		}
	}
}
