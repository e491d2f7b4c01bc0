package hub

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/valorant-veto/internal/engine"
	"github.com/DoyleJ11/valorant-veto/internal/lobby"
	"github.com/DoyleJ11/valorant-veto/internal/store"
)

var ErrClosed = errors.New("hub closed")

type HubMsg interface{ isHubMsg() }

type CreateLobby struct {
	Room  engine.Room
	Reply chan CreateReply
}

type CreateReply struct {
	Lobby   *lobby.Lobby
	Created bool // false when the code was already taken
	Err     error
}

type GetLobby struct {
	Code  string
	Reply chan *lobby.Lobby
}

type ListLobbies struct {
	Reply chan []*lobby.Lobby
}

type RemoveLobby struct {
	Code  string
	Reply chan error
}

type ShutdownHub struct{}

func (CreateLobby) isHubMsg() {}
func (GetLobby) isHubMsg()    {}
func (ListLobbies) isHubMsg() {}
func (RemoveLobby) isHubMsg() {}
func (ShutdownHub) isHubMsg() {}

type Option func(*Hub)

// WithStore backs the hub with durable storage. Lobbies are saved through it
// and rooms missing from memory are loaded from it on lookup.
func WithStore(s store.Store) Option {
	return func(h *Hub) { h.store = s }
}

func WithLogger(log *zap.Logger) Option {
	return func(h *Hub) { h.log = log }
}

type Hub struct {
	inbox   chan HubMsg
	lobbies map[string]*lobby.Lobby
	store   store.Store
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewHub(parent context.Context, opts ...Option) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:   make(chan HubMsg, 64),
		lobbies: make(map[string]*lobby.Lobby),
		log:     zap.NewNop(),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	defer close(h.done)
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateLobby:
				msg.Reply <- h.create(msg.Room)

			case GetLobby:
				msg.Reply <- h.lookup(msg.Code) // May be nil

			case ListLobbies:
				msg.Reply <- h.list()

			case RemoveLobby:
				msg.Reply <- h.remove(msg.Code)

			case ShutdownHub:
				h.shutdown()
				h.cancel()
				return
			}
		}
	}
}

func (h *Hub) create(r engine.Room) CreateReply {
	if lb := h.lookup(r.RoomCode); lb != nil {
		return CreateReply{Lobby: lb}
	}
	if h.store != nil {
		if err := h.io(func(ctx context.Context) error { return h.store.Save(ctx, r) }); err != nil {
			return CreateReply{Err: fmt.Errorf("save room: %w", err)}
		}
	}
	lb := h.spawn(r)
	h.log.Info("room created", zap.String("room", r.RoomCode), zap.String("match", r.MatchID))
	return CreateReply{Lobby: lb, Created: true}
}

func (h *Hub) lookup(code string) *lobby.Lobby {
	if lb := h.lobbies[code]; lb != nil {
		return lb
	}
	if h.store == nil {
		return nil
	}
	var r engine.Room
	err := h.io(func(ctx context.Context) (err error) {
		r, err = h.store.Load(ctx, code)
		return err
	})
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			h.log.Warn("load room", zap.String("room", code), zap.Error(err))
		}
		return nil
	}
	return h.spawn(r)
}

func (h *Hub) list() []*lobby.Lobby {
	if h.store != nil {
		var stored []engine.Room
		err := h.io(func(ctx context.Context) (err error) {
			stored, err = h.store.List(ctx)
			return err
		})
		if err != nil {
			h.log.Warn("list rooms", zap.Error(err))
		}
		for _, r := range stored {
			if h.lobbies[r.RoomCode] == nil {
				h.spawn(r)
			}
		}
	}

	codes := make([]string, 0, len(h.lobbies))
	for code := range h.lobbies {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	out := make([]*lobby.Lobby, 0, len(codes))
	for _, code := range codes {
		out = append(out, h.lobbies[code])
	}
	return out
}

func (h *Hub) remove(code string) error {
	lb := h.lookup(code)
	if lb == nil {
		return store.ErrNotFound
	}
	if h.store != nil {
		err := h.io(func(ctx context.Context) error { return h.store.Delete(ctx, code) })
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("delete room: %w", err)
		}
	}
	select {
	case lb.Inbox() <- lobby.Shutdown{}:
	case <-lb.Done():
	}
	delete(h.lobbies, code)
	h.log.Info("room deleted", zap.String("room", code))
	return nil
}

func (h *Hub) spawn(r engine.Room) *lobby.Lobby {
	opts := []lobby.Option{lobby.WithLogger(h.log)}
	if h.store != nil {
		opts = append(opts, lobby.WithSaver(h.store))
	}
	lb := lobby.NewLobby(h.ctx, r, opts...)
	h.lobbies[r.RoomCode] = lb
	return lb
}

func (h *Hub) shutdown() {
	for _, lb := range h.lobbies {
		select {
		case lb.Inbox() <- lobby.Shutdown{}:
		default:
			// Inbox full; the cancelled context stops it anyway.
		}
	}
	clear(h.lobbies)
}

// io bounds a store call made from inside the loop so one slow query
// cannot wedge every room.
func (h *Hub) io(fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(h.ctx, 5*time.Second)
	defer cancel()
	return fn(ctx)
}

// Create registers a new room. Created is false when the code already exists.
func (h *Hub) Create(ctx context.Context, r engine.Room) (*lobby.Lobby, bool, error) {
	reply := make(chan CreateReply, 1)
	if err := h.send(ctx, CreateLobby{Room: r, Reply: reply}); err != nil {
		return nil, false, err
	}
	res, err := recv(ctx, h.done, reply)
	if err != nil {
		return nil, false, err
	}
	return res.Lobby, res.Created, res.Err
}

// Get returns the lobby for code, or nil when no such room exists.
func (h *Hub) Get(ctx context.Context, code string) (*lobby.Lobby, error) {
	reply := make(chan *lobby.Lobby, 1)
	if err := h.send(ctx, GetLobby{Code: code, Reply: reply}); err != nil {
		return nil, err
	}
	return recv(ctx, h.done, reply)
}

func (h *Hub) List(ctx context.Context) ([]*lobby.Lobby, error) {
	reply := make(chan []*lobby.Lobby, 1)
	if err := h.send(ctx, ListLobbies{Reply: reply}); err != nil {
		return nil, err
	}
	return recv(ctx, h.done, reply)
}

// Remove deletes a room; store.ErrNotFound when it does not exist.
func (h *Hub) Remove(ctx context.Context, code string) error {
	reply := make(chan error, 1)
	if err := h.send(ctx, RemoveLobby{Code: code, Reply: reply}); err != nil {
		return err
	}
	err, recvErr := recv(ctx, h.done, reply)
	if recvErr != nil {
		return recvErr
	}
	return err
}

func (h *Hub) send(ctx context.Context, msg HubMsg) error {
	select {
	case h.inbox <- msg:
		return nil
	case <-h.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func recv[T any](ctx context.Context, done <-chan struct{}, reply <-chan T) (T, error) {
	var zero T
	select {
	case v := <-reply:
		return v, nil
	case <-done:
		return zero, ErrClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
