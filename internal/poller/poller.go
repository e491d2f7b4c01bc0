// Package poller keeps a client's view of one room fresh by re-reading it
// from the server on a fixed period.
//
// The held snapshot is only ever replaced by a successful read. A failed read
// keeps the last good room and reports the error alongside it; a 404 ends the
// subscription.
package poller

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/DoyleJ11/valorant-veto/internal/api"
	"github.com/DoyleJ11/valorant-veto/internal/engine"
	"github.com/DoyleJ11/valorant-veto/internal/types"
)

const DefaultInterval = 3 * time.Second

var (
	ErrRefreshInFlight = errors.New("refresh already in flight")
	ErrStopped         = errors.New("subscription stopped")
)

// Fetcher reads the authoritative room.
type Fetcher interface {
	GetRoom(ctx context.Context, code string) (engine.Room, error)
}

// Snapshot is what a subscriber sees after each read attempt.
type Snapshot struct {
	Room      engine.Room // last good room; zero until HasRoom
	HasRoom   bool
	Err       error // error of this attempt, nil on success
	Gone      bool  // the room no longer exists
	Seq       uint64
	FetchedAt time.Time // time of the last successful read
}

type Option func(*Subscription)

func WithInterval(d time.Duration) Option {
	return func(s *Subscription) {
		if d > 0 {
			s.interval = d
		}
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(s *Subscription) { s.log = log }
}

type Subscription struct {
	fetcher  Fetcher
	code     string
	notify   func(Snapshot)
	interval time.Duration
	log      *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	sem    *semaphore.Weighted
	wg     sync.WaitGroup
	done   chan struct{}
	once   sync.Once

	mu   sync.Mutex
	snap Snapshot
}

// Start reads the room immediately and then every interval until Stop, parent
// cancellation or a 404. onSnapshot runs on the polling goroutine and must not
// call Stop.
func Start(parent context.Context, f Fetcher, roomCode string, onSnapshot func(Snapshot), opts ...Option) *Subscription {
	ctx, cancel := context.WithCancel(parent)
	s := &Subscription{
		fetcher:  f,
		code:     types.NormalizeCode(roomCode),
		notify:   onSnapshot,
		interval: DefaultInterval,
		log:      zap.NewNop(),
		ctx:      ctx,
		cancel:   cancel,
		sem:      semaphore.NewWeighted(1),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.notify == nil {
		s.notify = func(Snapshot) {}
	}

	s.wg.Add(1)
	go s.loop()
	return s
}

func (s *Subscription) loop() {
	defer s.wg.Done()
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.tick()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

func (s *Subscription) tick() {
	_, err := s.Refresh(s.ctx)
	if errors.Is(err, ErrRefreshInFlight) {
		s.log.Debug("poll skipped", zap.String("room", s.code))
	}
}

// Refresh performs one read now. It returns ErrRefreshInFlight instead of
// queueing behind a read that is already running. A read abandoned because
// ctx ended is neither recorded nor delivered.
func (s *Subscription) Refresh(ctx context.Context) (engine.Room, error) {
	if s.ctx.Err() != nil {
		return engine.Room{}, ErrStopped
	}
	if !s.sem.TryAcquire(1) {
		return engine.Room{}, ErrRefreshInFlight
	}
	defer s.sem.Release(1)

	fctx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	room, err := s.fetcher.GetRoom(fctx, s.code)
	if s.ctx.Err() != nil {
		return engine.Room{}, ErrStopped
	}
	if err != nil && ctx.Err() != nil {
		// Caller gave up; says nothing about the room.
		return engine.Room{}, err
	}

	snap := s.record(room, err)
	if snap.Gone {
		s.log.Info("room gone, stopping poll", zap.String("room", s.code))
		s.cancel()
	} else if err != nil {
		s.log.Warn("poll failed", zap.String("room", s.code), zap.Error(err))
	}
	s.notify(snap)

	if err != nil {
		return engine.Room{}, err
	}
	return room.Clone(), nil
}

func (s *Subscription) record(room engine.Room, err error) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snap.Seq++
	s.snap.Err = err
	switch {
	case err == nil:
		s.snap.Room = room.Clone()
		s.snap.HasRoom = true
		s.snap.FetchedAt = time.Now()
	case errors.Is(err, api.ErrNotFound):
		s.snap.Gone = true
	}
	return s.copyLocked()
}

// Current returns the latest snapshot.
func (s *Subscription) Current() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyLocked()
}

func (s *Subscription) copyLocked() Snapshot {
	out := s.snap
	out.Room = s.snap.Room.Clone()
	return out
}

// Done is closed once polling has ended for any reason.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Stop ends the subscription and waits for the loop and any read in flight.
// No snapshot is delivered after Stop returns. Safe to call more than once.
func (s *Subscription) Stop() {
	s.once.Do(func() {
		s.cancel()
		s.wg.Wait()
		// Wait out a Refresh started by another goroutine.
		_ = s.sem.Acquire(context.Background(), 1)
		s.sem.Release(1)
	})
}
