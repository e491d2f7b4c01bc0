package lobby

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/valorant-veto/internal/engine"
)

var ErrClosed = errors.New("room closed")

type Msg interface{ isLobbyMsg() }

type FromClient struct {
	Cmd   engine.Command
	Reply chan Result // buffered; the lobby never blocks on it
}

func (FromClient) isLobbyMsg() {}

type Shutdown struct{}

func (Shutdown) isLobbyMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isLobbyMsg() {}

type Result struct {
	Version int
	Room    engine.Room
	Events  []engine.Event
	Err     error
}

type View struct {
	Version int
	Room    engine.Room
}

// Saver persists a room after every accepted command.
type Saver interface {
	Save(ctx context.Context, r engine.Room) error
}

type Option func(*Lobby)

func WithSaver(s Saver) Option {
	return func(l *Lobby) { l.saver = s }
}

func WithLogger(log *zap.Logger) Option {
	return func(l *Lobby) { l.log = log }
}

// Lobby owns one room. All commands are serialized through its inbox, which
// makes it the single authority for that room's veto.
type Lobby struct {
	inbox   chan Msg
	room    engine.Room
	version int
	saver   Saver
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewLobby(parent context.Context, initial engine.Room, opts ...Option) *Lobby {
	ctx, cancel := context.WithCancel(parent)

	l := &Lobby{
		inbox:  make(chan Msg, 64), // Small buffer
		room:   initial.Clone(),
		log:    zap.NewNop(),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.log = l.log.With(zap.String("room", initial.RoomCode))

	go l.loop()
	return l
}

func (l *Lobby) loop() {
	defer close(l.done)
	for {
		select {
		case <-l.ctx.Done():
			return

		case m := <-l.inbox:
			switch msg := m.(type) {
			case FromClient:
				msg.Reply <- l.apply(msg.Cmd)

			case GetState:
				msg.Reply <- View{Version: l.version, Room: l.room.Clone()}

			case Shutdown:
				l.cancel()
				return
			}
		}
	}
}

func (l *Lobby) apply(cmd engine.Command) Result {
	events, next, err := engine.Apply(l.room, cmd)
	if err != nil {
		l.log.Debug("command rejected", zap.String("cmd", string(cmd.Type)), zap.String("team", cmd.TeamID), zap.Error(err))
		return Result{Version: l.version, Room: l.room.Clone(), Err: err}
	}
	if len(events) == 0 {
		return Result{Version: l.version, Room: l.room.Clone()}
	}

	if err := engine.CheckInvariants(next); err != nil {
		l.log.Error("invariant violated", zap.String("cmd", string(cmd.Type)), zap.Error(err))
	}

	if l.saver != nil {
		ctx, cancel := context.WithTimeout(l.ctx, 5*time.Second)
		err := l.saver.Save(ctx, next)
		cancel()
		if err != nil {
			// Keep memory and storage in step: the command did not happen.
			l.log.Error("persist room", zap.Error(err))
			return Result{Version: l.version, Room: l.room.Clone(), Err: fmt.Errorf("persist room: %w", err)}
		}
	}

	l.room = next
	l.version++
	for _, e := range events {
		l.log.Info("veto event",
			zap.String("event", string(e.Type)),
			zap.String("team", e.TeamID),
			zap.String("map", e.MapID),
			zap.String("side", string(e.Side)),
			zap.Int("version", l.version),
		)
	}
	if engine.ContainsEvent(events, engine.EvtVetoCompleted) {
		side := l.room.PickBan.SelectedSide
		l.log.Info("veto completed",
			zap.String("map", l.room.PickBan.SelectedMap.ID),
			zap.String("team", side.TeamID),
			zap.String("side", string(side.Side)),
		)
	}
	return Result{Version: l.version, Room: l.room.Clone(), Events: events}
}

// Do sends cmd to the lobby and waits for its outcome. Result.Err is also
// returned as the error.
func (l *Lobby) Do(ctx context.Context, cmd engine.Command) (Result, error) {
	reply := make(chan Result, 1)
	select {
	case l.inbox <- FromClient{Cmd: cmd, Reply: reply}:
	case <-l.done:
		return Result{}, ErrClosed
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}

	select {
	case res := <-reply:
		return res, res.Err
	case <-l.done:
		return Result{}, ErrClosed
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Snapshot returns the current version and a copy of the room.
func (l *Lobby) Snapshot(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	select {
	case l.inbox <- GetState{Reply: reply}:
	case <-l.done:
		return View{}, ErrClosed
	case <-ctx.Done():
		return View{}, ctx.Err()
	}

	select {
	case v := <-reply:
		return v, nil
	case <-l.done:
		return View{}, ErrClosed
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
}

// Expose the inbox so tests or the hub can send messages.
func (l *Lobby) Inbox() chan<- Msg { return l.inbox }

// Done is closed once the lobby loop has exited.
func (l *Lobby) Done() <-chan struct{} { return l.done }
