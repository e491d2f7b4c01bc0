// Command vetoctl joins and follows map veto rooms from a terminal.
//
//	vetoctl rooms
//	vetoctl create -match M1 -admin ref -team1 T1:Alpha:cap1 -team2 T2:Beta:cap2
//	vetoctl join   -code ZED123 -passkey PASS42 -user cap1
//	vetoctl watch  -code ZED123 -user cap1 [-as admin|captain]
//	vetoctl token  -secret s3cret -user cap1
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/valorant-veto/internal/api"
	"github.com/DoyleJ11/valorant-veto/internal/config"
	"github.com/DoyleJ11/valorant-veto/internal/identity"
	"github.com/DoyleJ11/valorant-veto/internal/logging"
	"github.com/DoyleJ11/valorant-veto/internal/types"
)

const usage = `usage: vetoctl <command> [flags]

commands:
  rooms    list rooms
  create   create a room for a match
  join     join a room with its code and passkey
  watch    follow a room and act on it
  token    issue a development token`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "vetoctl:", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, in io.Reader, out io.Writer) error {
	if len(args) == 0 {
		fmt.Fprintln(out, usage)
		return flag.ErrHelp
	}
	cfg, err := config.LoadClient()
	if err != nil {
		return err
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "rooms":
		return cmdRooms(ctx, cfg, rest, out)
	case "create":
		return cmdCreate(ctx, cfg, rest, out)
	case "join":
		return cmdJoin(ctx, cfg, rest, out)
	case "watch":
		return cmdWatch(ctx, cfg, rest, in, out)
	case "token":
		return cmdToken(rest, out)
	default:
		fmt.Fprintln(out, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// session is what every server-facing command needs after flag parsing.
type session struct {
	client *api.Client
	viewer identity.Viewer
	log    *zap.Logger
}

func newSession(cfg config.Client) (*session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log, err := logging.New(cfg.LogLevel, true)
	if err != nil {
		return nil, err
	}
	v, err := viewerFor(cfg)
	if err != nil {
		return nil, err
	}
	opts := []api.Option{api.WithLogger(log)}
	if cfg.Token != "" {
		opts = append(opts, api.WithToken(cfg.Token))
	}
	return &session{
		client: api.New(cfg.ServerURL, opts...),
		viewer: v,
		log:    log,
	}, nil
}

// viewerFor takes the user from -user, falling back to the token subject.
func viewerFor(cfg config.Client) (identity.Viewer, error) {
	v := identity.Viewer{UserID: cfg.UserID, Username: cfg.Username}
	if v.UserID != "" || cfg.Token == "" {
		return v, nil
	}
	tv, err := identity.Unverified(cfg.Token)
	if err != nil {
		return identity.Viewer{}, err
	}
	if v.Username == "" {
		v.Username = tv.Username
	}
	v.UserID = tv.UserID
	return v, nil
}

func cmdRooms(ctx context.Context, cfg config.Client, args []string, out io.Writer) error {
	fset := flag.NewFlagSet("rooms", flag.ContinueOnError)
	cfg.BindFlags(fset)
	if err := fset.Parse(args); err != nil {
		return err
	}
	s, err := newSession(cfg)
	if err != nil {
		return err
	}

	rooms, err := s.client.ListRooms(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tMATCH\tTEAMS\tSTATUS")
	for _, r := range rooms {
		status := "yet to start"
		switch {
		case r.Terminal():
			status = "completed"
		case r.PickBan.IsStarted:
			status = "started"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s vs %s\t%s\n", r.RoomCode, r.MatchID, r.Team1.TeamName, r.Team2.TeamName, status)
	}
	return tw.Flush()
}

func cmdCreate(ctx context.Context, cfg config.Client, args []string, out io.Writer) error {
	var req types.CreateRoomRequest
	var team1, team2 string
	fset := flag.NewFlagSet("create", flag.ContinueOnError)
	cfg.BindFlags(fset)
	fset.StringVar(&req.MatchID, "match", "", "match id")
	fset.StringVar(&req.AdminID, "admin", "", "admin user id (defaults to -user)")
	fset.StringVar(&team1, "team1", "", "team 1 as teamId:teamName:captainId[:captainName]")
	fset.StringVar(&team2, "team2", "", "team 2 as teamId:teamName:captainId[:captainName]")
	if err := fset.Parse(args); err != nil {
		return err
	}
	s, err := newSession(cfg)
	if err != nil {
		return err
	}

	if req.AdminID == "" {
		req.AdminID, req.AdminUsername = s.viewer.UserID, s.viewer.Username
	}
	if req.Team1, err = parseTeam(team1); err != nil {
		return fmt.Errorf("-team1: %w", err)
	}
	if req.Team2, err = parseTeam(team2); err != nil {
		return fmt.Errorf("-team2: %w", err)
	}

	room, err := s.client.CreateRoom(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "room %s created, passkey %s\n", room.RoomCode, room.RoomPasskey)
	return nil
}

func parseTeam(v string) (types.CaptainInput, error) {
	parts := strings.Split(v, ":")
	if len(parts) < 3 || len(parts) > 4 {
		return types.CaptainInput{}, errors.New("want teamId:teamName:captainId[:captainName]")
	}
	c := types.CaptainInput{TeamID: parts[0], TeamName: parts[1], CaptainID: parts[2]}
	if len(parts) == 4 {
		c.CaptainUsername = parts[3]
	}
	return c, nil
}

func cmdJoin(ctx context.Context, cfg config.Client, args []string, out io.Writer) error {
	var code, passkey string
	fset := flag.NewFlagSet("join", flag.ContinueOnError)
	cfg.BindFlags(fset)
	fset.StringVar(&code, "code", "", "room code")
	fset.StringVar(&passkey, "passkey", "", "room passkey")
	if err := fset.Parse(args); err != nil {
		return err
	}
	s, err := newSession(cfg)
	if err != nil {
		return err
	}
	if code == "" || passkey == "" || s.viewer.UserID == "" {
		return errors.New("-code, -passkey and -user (or -token) are required")
	}

	res, err := s.client.JoinRoom(ctx, code, passkey, s.viewer.UserID)
	if err != nil {
		return err
	}
	if !res.Authorized {
		return errors.New("not authorized for this room")
	}
	fmt.Fprintf(out, "joined room %s\n", types.NormalizeCode(code))
	return nil
}

func cmdToken(args []string, out io.Writer) error {
	var secret, user, name string
	var ttl time.Duration
	fset := flag.NewFlagSet("token", flag.ContinueOnError)
	fset.StringVar(&secret, "secret", os.Getenv("VETO_JWT_SECRET"), "signing secret")
	fset.StringVar(&user, "user", "", "user id")
	fset.StringVar(&name, "name", "", "display name")
	fset.DurationVar(&ttl, "ttl", 12*time.Hour, "token lifetime")
	if err := fset.Parse(args); err != nil {
		return err
	}
	if secret == "" || user == "" {
		return errors.New("-secret and -user are required")
	}

	tok, err := identity.Issue(identity.Viewer{UserID: user, Username: name}, []byte(secret), ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, tok)
	return nil
}
