package mappool

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/DoyleJ11/valorant-veto/internal/api"
	"github.com/DoyleJ11/valorant-veto/internal/engine"
	"github.com/DoyleJ11/valorant-veto/internal/resolver"
)

var (
	ErrActionInFlight = errors.New("another action is still in flight")
	ErrNotAllowed     = errors.New("action not available to this viewer")
	ErrMapUnavailable = errors.New("map is not available")
)

// Actions is the part of the server API the dispatcher drives.
type Actions interface {
	BanMap(ctx context.Context, code, mapID, actingTeamID string) (engine.Room, error)
	SelectSide(ctx context.Context, code, actingTeamID string, side engine.Side) (engine.Room, error)
}

type Level string

const (
	LevelInfo  Level = "info"
	LevelError Level = "error"
)

// Notice is a short, non-blocking message for the viewer.
type Notice struct {
	Level   Level
	Message string
	Err     error
}

type Notifier interface {
	Notify(Notice)
}

type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

type DispatcherOption func(*Dispatcher)

func WithLogger(log *zap.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.log = log }
}

// Dispatcher sends at most one veto action at a time. It never edits the
// room it is given: the next poll shows the outcome.
type Dispatcher struct {
	api    Actions
	notify Notifier
	sem    *semaphore.Weighted
	log    *zap.Logger
}

func NewDispatcher(a Actions, n Notifier, opts ...DispatcherOption) *Dispatcher {
	if n == nil {
		n = NotifierFunc(func(Notice) {})
	}
	d := &Dispatcher{
		api:    a,
		notify: n,
		sem:    semaphore.NewWeighted(1),
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SelectMap bans mapID for the viewer's team.
func (d *Dispatcher) SelectMap(ctx context.Context, room engine.Room, auth resolver.Authorization, mapID string) error {
	if !auth.MayBan {
		return d.fail(LevelInfo, "It is not your turn to ban", ErrNotAllowed)
	}
	if _, settled := room.PickBan.ResolvedMap(); settled {
		return d.fail(LevelInfo, "The map has already been decided", ErrNotAllowed)
	}
	if room.PickBan.MapStatuses[mapID] != engine.StatusAvailable {
		return d.fail(LevelInfo, fmt.Sprintf("%s cannot be banned", mapID), ErrMapUnavailable)
	}
	return d.run(ctx, "ban map", func(ctx context.Context) error {
		_, err := d.api.BanMap(ctx, room.RoomCode, mapID, auth.ViewerTeamID)
		return err
	})
}

// SelectSide picks the starting side for the viewer's team.
func (d *Dispatcher) SelectSide(ctx context.Context, room engine.Room, auth resolver.Authorization, side engine.Side) error {
	if !auth.MaySelectSide {
		return d.fail(LevelInfo, "It is not your turn to select a side", ErrNotAllowed)
	}
	if !side.Valid() {
		return d.fail(LevelInfo, fmt.Sprintf("Unknown side %q", side), engine.ErrIllegalSide)
	}
	return d.run(ctx, "select side", func(ctx context.Context) error {
		_, err := d.api.SelectSide(ctx, room.RoomCode, auth.ViewerTeamID, side)
		return err
	})
}

func (d *Dispatcher) run(ctx context.Context, action string, call func(context.Context) error) error {
	if !d.sem.TryAcquire(1) {
		return ErrActionInFlight
	}
	defer d.sem.Release(1)

	err := call(ctx)
	if err == nil {
		d.log.Debug("action sent", zap.String("action", action))
		return nil
	}
	d.log.Warn("action failed", zap.String("action", action), zap.Error(err))

	var serr *api.StatusError
	switch {
	case api.IsTransient(err):
		d.notify.Notify(Notice{Level: LevelError, Message: "Could not reach the server, try again", Err: err})
	case errors.Is(err, api.ErrNotFound):
		d.notify.Notify(Notice{Level: LevelError, Message: "This room no longer exists", Err: err})
	default:
		msg := "The server refused that action"
		if errors.As(err, &serr) && serr.Message != "" {
			msg = serr.Message
		}
		d.notify.Notify(Notice{Level: LevelInfo, Message: msg, Err: err})
	}
	return fmt.Errorf("%s: %w", action, err)
}

func (d *Dispatcher) fail(level Level, msg string, err error) error {
	d.notify.Notify(Notice{Level: level, Message: msg, Err: err})
	return err
}
