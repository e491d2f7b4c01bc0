package poller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/DoyleJ11/valorant-veto/internal/api"
	"github.com/DoyleJ11/valorant-veto/internal/engine"
)

type step struct {
	room engine.Room
	err  error
}

// scripted answers reads from a fixed list, repeating the last entry.
type scripted struct {
	mu    sync.Mutex
	steps []step
	calls int
	codes []string
}

func (f *scripted) GetRoom(ctx context.Context, code string) (engine.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codes = append(f.codes, code)
	i := min(f.calls, len(f.steps)-1)
	f.calls++
	return f.steps[i].room, f.steps[i].err
}

func room(turn string) engine.Room {
	return engine.Room{
		RoomCode: "ZED123",
		Team1:    engine.TeamSlot{TeamID: "T1"},
		Team2:    engine.TeamSlot{TeamID: "T2"},
		PickBan:  engine.PickBanState{IsStarted: true, CurrentTurn: turn},
	}
}

func collect(t *testing.T) (chan Snapshot, func(Snapshot)) {
	t.Helper()
	ch := make(chan Snapshot, 32)
	return ch, func(s Snapshot) { ch <- s }
}

func next(t *testing.T, ch <-chan Snapshot) Snapshot {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(time.Second):
		t.Fatalf("no snapshot delivered")
		return Snapshot{}
	}
}

// refresh retries while the initial tick still holds the read slot.
func refresh(t *testing.T, s *Subscription) (engine.Room, error) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for {
		r, err := s.Refresh(context.Background())
		if !errors.Is(err, ErrRefreshInFlight) || time.Now().After(deadline) {
			return r, err
		}
		time.Sleep(time.Millisecond)
	}
}

func TestStart_FetchesImmediately(t *testing.T) {
	f := &scripted{steps: []step{{room: room("T1")}}}
	ch, cb := collect(t)

	sub := Start(context.Background(), f, " zed123 ", cb, WithInterval(time.Hour), WithLogger(zaptest.NewLogger(t)))
	defer sub.Stop()

	s := next(t, ch)
	require.NoError(t, s.Err)
	assert.True(t, s.HasRoom)
	assert.Equal(t, "T1", s.Room.PickBan.CurrentTurn)
	assert.Equal(t, uint64(1), s.Seq)
	assert.False(t, s.FetchedAt.IsZero())

	f.mu.Lock()
	assert.Equal(t, "ZED123", f.codes[0])
	f.mu.Unlock()
}

func TestRefresh_FailureKeepsLastGoodRoom(t *testing.T) {
	boom := errors.New("connection reset")
	f := &scripted{steps: []step{
		{room: room("T1")},
		{err: boom},
		{room: room("T2")},
	}}
	ch, cb := collect(t)
	sub := Start(context.Background(), f, "ZED123", cb, WithInterval(time.Hour))
	defer sub.Stop()

	first := next(t, ch)
	require.True(t, first.HasRoom)

	_, err := refresh(t, sub)
	require.ErrorIs(t, err, boom)

	failed := next(t, ch)
	assert.ErrorIs(t, failed.Err, boom)
	assert.True(t, failed.HasRoom)
	assert.False(t, failed.Gone)
	assert.Equal(t, first.Room, failed.Room)
	assert.Equal(t, first.FetchedAt, failed.FetchedAt)

	got, err := refresh(t, sub)
	require.NoError(t, err)
	assert.Equal(t, "T2", got.PickBan.CurrentTurn)

	recovered := next(t, ch)
	assert.NoError(t, recovered.Err)
	assert.Equal(t, "T2", recovered.Room.PickBan.CurrentTurn)
	assert.Equal(t, uint64(3), recovered.Seq)
}

func TestNotFound_StopsSubscription(t *testing.T) {
	f := &scripted{steps: []step{
		{room: room("T1")},
		{err: &api.StatusError{Status: 404, Code: "ROOM_NOT_FOUND"}},
	}}
	ch, cb := collect(t)
	sub := Start(context.Background(), f, "ZED123", cb, WithInterval(10*time.Millisecond))
	defer sub.Stop()

	require.True(t, next(t, ch).HasRoom)
	gone := next(t, ch)
	assert.True(t, gone.Gone)
	assert.True(t, gone.HasRoom)

	select {
	case <-sub.Done():
	case <-time.After(time.Second):
		t.Fatalf("subscription kept polling after 404")
	}

	_, err := sub.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrStopped)
	assert.True(t, sub.Current().Gone)
}

func TestStop_NoDeliveryAfterReturn(t *testing.T) {
	f := &scripted{steps: []step{{room: room("T1")}}}

	var mu sync.Mutex
	stopped := false
	late := false
	sub := Start(context.Background(), f, "ZED123", func(Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		if stopped {
			late = true
		}
	}, WithInterval(time.Millisecond))

	time.Sleep(20 * time.Millisecond)
	sub.Stop()
	mu.Lock()
	stopped = true
	mu.Unlock()

	time.Sleep(20 * time.Millisecond)
	sub.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.False(t, late)

	select {
	case <-sub.Done():
	default:
		t.Fatalf("done not closed after Stop")
	}
}

// blocking holds every read until released.
type blocking struct {
	started chan struct{}
	release chan struct{}
}

func (b *blocking) GetRoom(ctx context.Context, code string) (engine.Room, error) {
	b.started <- struct{}{}
	select {
	case <-b.release:
		return room("T1"), nil
	case <-ctx.Done():
		return engine.Room{}, ctx.Err()
	}
}

func TestRefresh_SkipsWhileInFlight(t *testing.T) {
	b := &blocking{started: make(chan struct{}, 1), release: make(chan struct{})}
	sub := Start(context.Background(), b, "ZED123", nil, WithInterval(time.Hour))
	defer sub.Stop()

	<-b.started
	_, err := sub.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrRefreshInFlight)

	close(b.release)
}

func TestRefresh_CallerCancelLeavesSnapshot(t *testing.T) {
	b := &blocking{started: make(chan struct{}, 1), release: make(chan struct{}, 1)}
	ch, cb := collect(t)
	sub := Start(context.Background(), b, "ZED123", cb, WithInterval(time.Hour))
	defer sub.Stop()

	<-b.started
	b.release <- struct{}{}
	first := next(t, ch)
	require.True(t, first.HasRoom)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-b.started
		cancel()
	}()
	var err error
	for deadline := time.Now().Add(time.Second); time.Now().Before(deadline); time.Sleep(time.Millisecond) {
		if _, err = sub.Refresh(ctx); !errors.Is(err, ErrRefreshInFlight) {
			break
		}
	}
	require.ErrorIs(t, err, context.Canceled)

	select {
	case s := <-ch:
		t.Fatalf("cancelled read was delivered: %+v", s)
	case <-time.After(50 * time.Millisecond):
	}
	cur := sub.Current()
	assert.NoError(t, cur.Err)
	assert.Equal(t, first.Seq, cur.Seq)

	select {
	case <-sub.Done():
		t.Fatalf("subscription ended on a caller cancel")
	default:
	}
}

func TestParentCancel_EndsPolling(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := &scripted{steps: []step{{room: room("T1")}}}
	sub := Start(ctx, f, "ZED123", nil, WithInterval(time.Millisecond))

	cancel()
	select {
	case <-sub.Done():
	case <-time.After(time.Second):
		t.Fatalf("poll loop ignored parent cancellation")
	}
	sub.Stop()
}
