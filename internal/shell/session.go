// Package shell holds the admin and captain room views. Each owns one
// polling subscription for as long as it is open and rebuilds its frame
// from every snapshot.
package shell

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/valorant-veto/internal/api"
	"github.com/DoyleJ11/valorant-veto/internal/identity"
	"github.com/DoyleJ11/valorant-veto/internal/mappool"
	"github.com/DoyleJ11/valorant-veto/internal/maps"
	"github.com/DoyleJ11/valorant-veto/internal/poller"
	"github.com/DoyleJ11/valorant-veto/internal/resolver"
	"github.com/DoyleJ11/valorant-veto/internal/types"
)

var (
	ErrAlreadyOpen = errors.New("view already open")
	ErrNotOpen     = errors.New("view not open")
	ErrNoRoom      = errors.New("room not loaded yet")
	ErrNotAllowed  = errors.New("action not available")
)

// Frame is everything a view shows at one moment.
type Frame struct {
	Snapshot poller.Snapshot
	Auth     resolver.Authorization
	View     mappool.View
	CanStart bool // admin only
}

type Option func(*session)

func WithPollInterval(d time.Duration) Option {
	return func(s *session) { s.interval = d }
}

func WithLogger(log *zap.Logger) Option {
	return func(s *session) { s.log = log }
}

// WithNotifier receives rejected and failed actions.
func WithNotifier(n mappool.Notifier) Option {
	return func(s *session) { s.notify = n }
}

// OnChange is called with a fresh frame after every poll.
func OnChange(fn func(Frame)) Option {
	return func(s *session) { s.onChange = fn }
}

type session struct {
	api      api.RoomAPI
	code     string
	ident    identity.Source
	interval time.Duration
	log      *zap.Logger
	notify   mappool.Notifier
	onChange func(Frame)
	catalog  []maps.Map

	// canStart is filled in by the admin shell.
	canStart func(Frame) bool

	mu   sync.Mutex
	snap poller.Snapshot
	sub  *poller.Subscription

	gone     chan struct{}
	goneOnce sync.Once
}

func newSession(a api.RoomAPI, code string, ident identity.Source, opts []Option) *session {
	s := &session{
		api:      a,
		code:     types.NormalizeCode(code),
		ident:    ident,
		interval: poller.DefaultInterval,
		log:      zap.NewNop(),
		notify:   mappool.NotifierFunc(func(mappool.Notice) {}),
		onChange: func(Frame) {},
		catalog:  maps.Catalog(),
		canStart: func(Frame) bool { return false },
		gone:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *session) open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sub != nil {
		return ErrAlreadyOpen
	}
	s.sub = poller.Start(ctx, s.api, s.code, s.onSnapshot,
		poller.WithInterval(s.interval),
		poller.WithLogger(s.log),
	)
	return nil
}

func (s *session) close() {
	s.mu.Lock()
	sub := s.sub
	s.mu.Unlock()
	if sub != nil {
		sub.Stop()
	}
}

func (s *session) onSnapshot(snap poller.Snapshot) {
	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()

	if snap.Gone {
		s.goneOnce.Do(func() { close(s.gone) })
	}
	s.onChange(s.frame())
}

// frame builds the current frame. Identity is read on every call since it
// may resolve after the view opened.
func (s *session) frame() Frame {
	s.mu.Lock()
	snap := s.snap
	s.mu.Unlock()

	viewer, ok := s.ident.Current()
	f := Frame{Snapshot: snap}
	if !snap.HasRoom {
		f.Auth = resolver.Resolve(nil, viewer, ok)
		return f
	}
	room := snap.Room
	f.Auth = resolver.Resolve(&room, viewer, ok)
	f.View = mappool.Present(room, f.Auth, s.catalog)
	f.CanStart = s.canStart(f)
	return f
}

// refresh pulls the room right after an action instead of waiting a tick.
func (s *session) refresh(ctx context.Context) {
	s.mu.Lock()
	sub := s.sub
	s.mu.Unlock()
	if sub == nil {
		return
	}
	if _, err := sub.Refresh(ctx); err != nil && !errors.Is(err, poller.ErrRefreshInFlight) {
		s.log.Debug("refresh after action", zap.Error(err))
	}
}

func (s *session) opened() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sub != nil
}
