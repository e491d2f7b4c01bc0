package shell

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/DoyleJ11/valorant-veto/internal/api"
	"github.com/DoyleJ11/valorant-veto/internal/engine"
	"github.com/DoyleJ11/valorant-veto/internal/identity"
	"github.com/DoyleJ11/valorant-veto/internal/mappool"
)

// Admin mirrors the room read-only. Its only veto action is starting it,
// once, after everyone has joined.
type Admin struct {
	*session
	sem *semaphore.Weighted

	startMu   sync.Mutex
	startSent bool
}

func NewAdmin(a api.RoomAPI, code string, ident identity.Source, opts ...Option) *Admin {
	ad := &Admin{
		session: newSession(a, code, ident, opts),
		sem:     semaphore.NewWeighted(1),
	}
	ad.canStart = ad.startable
	return ad
}

func (a *Admin) Open(ctx context.Context) error { return a.open(ctx) }
func (a *Admin) Close()                         { a.close() }
func (a *Admin) Gone() <-chan struct{}          { return a.gone }
func (a *Admin) Frame() Frame                   { return a.frame() }

func (a *Admin) startable(f Frame) bool {
	a.startMu.Lock()
	sent := a.startSent
	a.startMu.Unlock()
	room := f.Snapshot.Room
	return !sent &&
		f.Snapshot.HasRoom &&
		a.isAdmin(room) &&
		room.AllJoined() &&
		!room.PickBan.IsStarted
}

// StartVeto asks the server to begin the veto. It succeeds at most once per
// view; the room itself changes on the next poll.
func (a *Admin) StartVeto(ctx context.Context) error {
	if !a.opened() {
		return ErrNotOpen
	}
	if !a.frame().CanStart {
		return a.reject("The veto cannot be started right now")
	}
	if !a.sem.TryAcquire(1) {
		return mappool.ErrActionInFlight
	}
	defer a.sem.Release(1)

	if _, err := a.api.StartVeto(ctx, a.code, ""); err != nil {
		return a.failed("start veto", err)
	}
	a.startMu.Lock()
	a.startSent = true
	a.startMu.Unlock()
	a.log.Info("veto started", zap.String("room", a.code))
	a.refresh(ctx)
	return nil
}

// Reset clears the veto so it can be run again.
func (a *Admin) Reset(ctx context.Context) error {
	if err := a.requireAdmin(); err != nil {
		return err
	}
	if !a.sem.TryAcquire(1) {
		return mappool.ErrActionInFlight
	}
	defer a.sem.Release(1)

	if _, err := a.api.ResetVeto(ctx, a.code); err != nil {
		return a.failed("reset veto", err)
	}
	a.startMu.Lock()
	a.startSent = false
	a.startMu.Unlock()
	a.refresh(ctx)
	return nil
}

// Delete removes the room. Open views see it as gone on their next poll.
func (a *Admin) Delete(ctx context.Context) error {
	if err := a.requireAdmin(); err != nil {
		return err
	}
	if !a.sem.TryAcquire(1) {
		return mappool.ErrActionInFlight
	}
	defer a.sem.Release(1)

	if err := a.api.DeleteRoom(ctx, a.code); err != nil {
		return a.failed("delete room", err)
	}
	a.log.Info("room deleted", zap.String("room", a.code))
	a.refresh(ctx)
	return nil
}

func (a *Admin) requireAdmin() error {
	if !a.opened() {
		return ErrNotOpen
	}
	f := a.frame()
	if !f.Snapshot.HasRoom {
		return ErrNoRoom
	}
	if !a.isAdmin(f.Snapshot.Room) {
		return a.reject("Only the room admin can do that")
	}
	return nil
}

// isAdmin checks the room's admin id directly. The resolver reports a
// captain role first when the admin also captains a team.
func (a *Admin) isAdmin(room engine.Room) bool {
	v, ok := a.ident.Current()
	return ok && v.UserID != "" && v.UserID == room.AdminID
}

func (a *Admin) reject(msg string) error {
	a.notify.Notify(mappool.Notice{Level: mappool.LevelInfo, Message: msg, Err: ErrNotAllowed})
	return ErrNotAllowed
}

func (a *Admin) failed(action string, err error) error {
	msg := "Could not reach the server, try again"
	level := mappool.LevelError
	var serr *api.StatusError
	if errors.As(err, &serr) && api.IsRejection(serr.Status) {
		msg, level = serr.Message, mappool.LevelInfo
	}
	a.notify.Notify(mappool.Notice{Level: level, Message: msg, Err: err})
	return fmt.Errorf("%s: %w", action, err)
}
