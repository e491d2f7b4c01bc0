package store

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/valorant-veto/internal/engine"
)

func sampleRoom(code string) engine.Room {
	return engine.Room{
		RoomCode:    code,
		RoomPasskey: "PASS42",
		MatchID:     "m-" + code,
		AdminID:     "admin",
		Team1:       engine.TeamSlot{TeamID: "T1", TeamName: "Alpha", CaptainID: "cap1"},
		Team2:       engine.TeamSlot{TeamID: "T2", TeamName: "Beta", CaptainID: "cap2"},
		PickBan: engine.PickBanState{
			IsStarted:     true,
			FirstPickTeam: "T1",
			CurrentTurn:   "T2",
			RemainingMaps: []engine.MapRef{{ID: "bind", Name: "Bind"}},
			MapStatuses:   map[string]engine.MapStatus{"bind": engine.StatusAvailable, "ascent": engine.StatusBanned},
		},
	}
}

// exercise runs the shared contract against any Store.
func exercise(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Load(ctx, "NOPE00")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Save(ctx, sampleRoom("BBB222")))
	require.NoError(t, s.Save(ctx, sampleRoom("AAA111")))

	got, err := s.Load(ctx, "AAA111")
	require.NoError(t, err)
	assert.Equal(t, "m-AAA111", got.MatchID)
	assert.Equal(t, engine.StatusBanned, got.PickBan.MapStatuses["ascent"])

	updated := sampleRoom("AAA111")
	updated.PickBan.CurrentTurn = "T1"
	require.NoError(t, s.Save(ctx, updated))
	got, err = s.Load(ctx, "AAA111")
	require.NoError(t, err)
	assert.Equal(t, "T1", got.PickBan.CurrentTurn)

	all, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "AAA111", all[0].RoomCode)
	assert.Equal(t, "BBB222", all[1].RoomCode)

	require.NoError(t, s.Delete(ctx, "AAA111"))
	require.ErrorIs(t, s.Delete(ctx, "AAA111"), ErrNotFound)
	_, err = s.Load(ctx, "AAA111")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemory(t *testing.T) {
	exercise(t, NewMemory())
}

func TestMemory_StoresCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	r := sampleRoom("AAA111")
	require.NoError(t, m.Save(ctx, r))

	r.PickBan.MapStatuses["bind"] = engine.StatusBanned
	got, err := m.Load(ctx, "AAA111")
	require.NoError(t, err)
	assert.Equal(t, engine.StatusAvailable, got.PickBan.MapStatuses["bind"])
}

func TestGorm(t *testing.T) {
	dsn := os.Getenv("VETO_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("VETO_TEST_DATABASE_URL not set")
	}
	g, err := OpenPostgres(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = g.Close() })
	require.NoError(t, g.db.Exec("DELETE FROM veto_rooms").Error)

	exercise(t, g)
}
