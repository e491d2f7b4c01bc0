package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/DoyleJ11/valorant-veto/internal/config"
	"github.com/DoyleJ11/valorant-veto/internal/engine"
	"github.com/DoyleJ11/valorant-veto/internal/identity"
	"github.com/DoyleJ11/valorant-veto/internal/mappool"
	"github.com/DoyleJ11/valorant-veto/internal/shell"
)

var (
	errRoomGone = errors.New("room no longer exists")
	errUsage    = errors.New("unknown command")
)

type roomView interface {
	Open(ctx context.Context) error
	Close()
	Gone() <-chan struct{}
	Frame() shell.Frame
}

// lockedWriter serializes output from the poll goroutine and the prompt.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

func cmdWatch(ctx context.Context, cfg config.Client, args []string, in io.Reader, out io.Writer) error {
	var code, as string
	fset := flag.NewFlagSet("watch", flag.ContinueOnError)
	cfg.BindFlags(fset)
	fset.StringVar(&code, "code", "", "room code")
	fset.StringVar(&as, "as", "captain", "view to open: captain or admin")
	if err := fset.Parse(args); err != nil {
		return err
	}
	s, err := newSession(cfg)
	if err != nil {
		return err
	}
	if code == "" {
		return errors.New("-code is required")
	}

	w := &lockedWriter{w: out}
	opts := []shell.Option{
		shell.WithPollInterval(cfg.PollInterval),
		shell.WithLogger(s.log),
		shell.WithNotifier(mappool.NotifierFunc(func(n mappool.Notice) {
			fmt.Fprintf(w, "! %s\n", n.Message)
		})),
		shell.OnChange(func(f shell.Frame) {
			_ = shell.Render(w, f)
		}),
	}

	ident := identity.Static(s.viewer)
	var deleted bool // set once this session deletes the room
	var view roomView
	var handle func(context.Context, []string) error
	switch as {
	case "captain":
		c := shell.NewCaptain(s.client, code, ident, opts...)
		view, handle = c, captainCommands(c)
	case "admin":
		a := shell.NewAdmin(s.client, code, ident, opts...)
		view, handle = a, adminCommands(a, &deleted)
	default:
		return fmt.Errorf("-as must be captain or admin, got %q", as)
	}

	if err := view.Open(ctx); err != nil {
		return err
	}
	defer view.Close()

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-view.Gone():
			if deleted {
				fmt.Fprintf(w, "room %s deleted\n", view.Frame().Snapshot.Room.RoomCode)
				return nil
			}
			return errRoomGone
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			fields := strings.Fields(line)
			if len(fields) == 0 {
				continue
			}
			switch fields[0] {
			case "quit", "exit":
				return nil
			case "show":
				_ = shell.Render(w, view.Frame())
				continue
			}
			if err := handle(ctx, fields); err != nil && !notified(err) {
				fmt.Fprintf(w, "! %v\n", err)
			}
		}
	}
}

func captainCommands(c *shell.Captain) func(context.Context, []string) error {
	return func(ctx context.Context, f []string) error {
		switch {
		case f[0] == "ban" && len(f) == 2:
			return c.BanMap(ctx, strings.ToLower(f[1]))
		case f[0] == "side" && len(f) == 2:
			return c.SelectSide(ctx, engine.Side(strings.ToLower(f[1])))
		}
		return fmt.Errorf("%w; try: ban <map>, side attack|defend, show, quit", errUsage)
	}
}

func adminCommands(a *shell.Admin, deleted *bool) func(context.Context, []string) error {
	return func(ctx context.Context, f []string) error {
		switch f[0] {
		case "start":
			return a.StartVeto(ctx)
		case "reset":
			return a.Reset(ctx)
		case "delete":
			err := a.Delete(ctx)
			*deleted = err == nil
			return err
		}
		return fmt.Errorf("%w; try: start, reset, delete, show, quit", errUsage)
	}
}

// notified reports whether the shell already told the user about err.
func notified(err error) bool {
	return !errors.Is(err, errUsage) &&
		!errors.Is(err, shell.ErrNoRoom) &&
		!errors.Is(err, shell.ErrNotOpen) &&
		!errors.Is(err, mappool.ErrActionInFlight)
}
