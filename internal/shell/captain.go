package shell

import (
	"context"

	"github.com/DoyleJ11/valorant-veto/internal/api"
	"github.com/DoyleJ11/valorant-veto/internal/engine"
	"github.com/DoyleJ11/valorant-veto/internal/identity"
	"github.com/DoyleJ11/valorant-veto/internal/mappool"
)

// Captain is a team captain's view: map bans in turn, then the side choice
// for the first-pick team.
type Captain struct {
	*session
	dispatch *mappool.Dispatcher
}

func NewCaptain(a api.RoomAPI, code string, ident identity.Source, opts ...Option) *Captain {
	s := newSession(a, code, ident, opts)
	return &Captain{
		session:  s,
		dispatch: mappool.NewDispatcher(a, s.notify, mappool.WithLogger(s.log)),
	}
}

func (c *Captain) Open(ctx context.Context) error { return c.open(ctx) }
func (c *Captain) Close()                         { c.close() }
func (c *Captain) Gone() <-chan struct{}          { return c.gone }
func (c *Captain) Frame() Frame                   { return c.frame() }

// Status is the line shown above the map pool.
func (c *Captain) Status() string {
	f := c.frame()
	if f.View.SideHeadline != "" {
		return f.View.SideHeadline
	}
	if f.View.Summary != nil {
		return f.View.Summary.String()
	}
	return f.View.Headline
}

func (c *Captain) BanMap(ctx context.Context, mapID string) error {
	f, err := c.loaded()
	if err != nil {
		return err
	}
	if err := c.dispatch.SelectMap(ctx, f.Snapshot.Room, f.Auth, mapID); err != nil {
		return err
	}
	c.refresh(ctx)
	return nil
}

func (c *Captain) SelectSide(ctx context.Context, side engine.Side) error {
	f, err := c.loaded()
	if err != nil {
		return err
	}
	if err := c.dispatch.SelectSide(ctx, f.Snapshot.Room, f.Auth, side); err != nil {
		return err
	}
	c.refresh(ctx)
	return nil
}

func (c *Captain) loaded() (Frame, error) {
	if !c.opened() {
		return Frame{}, ErrNotOpen
	}
	f := c.frame()
	if !f.Snapshot.HasRoom {
		return Frame{}, ErrNoRoom
	}
	return f, nil
}
