// Package api is the HTTP client for the veto room server.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/valorant-veto/internal/engine"
	"github.com/DoyleJ11/valorant-veto/internal/types"
)

const defaultTimeout = 10 * time.Second

// RoomAPI is what the client-side components need from the server.
type RoomAPI interface {
	GetRoom(ctx context.Context, code string) (engine.Room, error)
	StartVeto(ctx context.Context, code, firstPickTeam string) (engine.Room, error)
	BanMap(ctx context.Context, code, mapID, actingTeamID string) (engine.Room, error)
	SelectSide(ctx context.Context, code, actingTeamID string, side engine.Side) (engine.Room, error)
	ResetVeto(ctx context.Context, code string) (engine.Room, error)
	DeleteRoom(ctx context.Context, code string) error
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithToken sends a bearer token on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.log = log }
}

type Client struct {
	base  string
	http  *http.Client
	token string
	log   *zap.Logger
}

var _ RoomAPI = (*Client)(nil)

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: defaultTimeout},
		log:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func roomPath(code string, suffix string) string {
	return "/rooms/" + url.PathEscape(types.NormalizeCode(code)) + suffix
}

func (c *Client) GetRoom(ctx context.Context, code string) (engine.Room, error) {
	var room engine.Room
	err := c.do(ctx, http.MethodGet, roomPath(code, ""), nil, &room)
	return room, err
}

// StartVeto asks the server to begin the veto. An empty firstPickTeam lets the
// server pick its default.
func (c *Client) StartVeto(ctx context.Context, code, firstPickTeam string) (engine.Room, error) {
	var room engine.Room
	err := c.do(ctx, http.MethodPost, roomPath(code, "/start"), types.StartVetoRequest{FirstPickTeam: firstPickTeam}, &room)
	return room, err
}

func (c *Client) BanMap(ctx context.Context, code, mapID, actingTeamID string) (engine.Room, error) {
	var room engine.Room
	err := c.do(ctx, http.MethodPost, roomPath(code, "/ban"), types.BanMapRequest{MapID: mapID, ActingTeamID: actingTeamID}, &room)
	return room, err
}

func (c *Client) SelectSide(ctx context.Context, code, actingTeamID string, side engine.Side) (engine.Room, error) {
	var room engine.Room
	err := c.do(ctx, http.MethodPost, roomPath(code, "/side"), types.SelectSideRequest{ActingTeamID: actingTeamID, Side: side}, &room)
	return room, err
}

func (c *Client) ResetVeto(ctx context.Context, code string) (engine.Room, error) {
	var room engine.Room
	err := c.do(ctx, http.MethodPost, roomPath(code, "/reset"), nil, &room)
	return room, err
}

func (c *Client) DeleteRoom(ctx context.Context, code string) error {
	return c.do(ctx, http.MethodDelete, roomPath(code, ""), nil, nil)
}

// JoinRoom checks the passkey and marks userID as present. A wrong passkey or
// a stranger comes back as Authorized=false, not as an error.
func (c *Client) JoinRoom(ctx context.Context, code, passkey, userID string) (types.JoinRoomResponse, error) {
	var res types.JoinRoomResponse
	err := c.do(ctx, http.MethodPost, "/rooms/join", types.JoinRoomRequest{
		RoomCode:    types.NormalizeCode(code),
		RoomPasskey: types.NormalizeCode(passkey),
		UserID:      userID,
	}, &res)
	return res, err
}

func (c *Client) ListRooms(ctx context.Context) ([]engine.Room, error) {
	var rooms []engine.Room
	err := c.do(ctx, http.MethodGet, "/rooms", nil, &rooms)
	return rooms, err
}

func (c *Client) CreateRoom(ctx context.Context, req types.CreateRoomRequest) (engine.Room, error) {
	var room engine.Room
	err := c.do(ctx, http.MethodPost, "/rooms", req, &room)
	return room, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		rd = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		serr := readStatusError(resp)
		c.log.Debug("request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", serr.Status),
			zap.String("code", serr.Code),
		)
		return serr
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func readStatusError(resp *http.Response) *StatusError {
	serr := &StatusError{Status: resp.StatusCode}
	var body types.ErrorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&body); err == nil {
		serr.Code = body.Code
		serr.Message = body.Error
	}
	if serr.Message == "" {
		serr.Message = http.StatusText(resp.StatusCode)
	}
	return serr
}
