package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"funfriday-client/internal/domain"
	"github.com/rs/zerolog"
)

// Client talks to the quiz server's REST endpoints: lobby listing, user
// registration, party creation and joining, and party metadata. Failures are
// local to the call that triggered them; they never tear down a running
// session.
type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

func NewClient(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
}

// Categories lists the question categories available for new parties.
func (c *Client) Categories(ctx context.Context) ([]string, error) {
	var out struct {
		Categories []string `json:"categories"`
	}
	if err := c.get(ctx, "/api/categories", &out); err != nil {
		return nil, err
	}
	return out.Categories, nil
}

// CreateUser registers a player name and returns the server-assigned user id.
func (c *Client) CreateUser(ctx context.Context, name string) (string, error) {
	in := map[string]string{"user_name": name}
	var out struct {
		UserID string `json:"user_id"`
	}
	if err := c.post(ctx, "/api/user/create", in, &out); err != nil {
		return "", err
	}
	return out.UserID, nil
}

// Parties lists the open parties in the lobby.
func (c *Client) Parties(ctx context.Context) ([]domain.PartySummary, error) {
	var out struct {
		Parties []domain.PartySummary `json:"parties"`
	}
	if err := c.get(ctx, "/api/parties", &out); err != nil {
		return nil, err
	}
	return out.Parties, nil
}

// InitParty creates a party owned by playerID and returns its id.
func (c *Client) InitParty(ctx context.Context, playerID string, settings domain.PartySettings) (string, error) {
	in := struct {
		PlayerID string `json:"player_id"`
		Category string `json:"category"`
		Rounds   int    `json:"rounds"`
		Timeout  int    `json:"timeout"`
	}{playerID, settings.Category, settings.Rounds, settings.Timeout}
	var out struct {
		PartyID string `json:"party_id"`
	}
	if err := c.post(ctx, "/api/party/init", in, &out); err != nil {
		return "", err
	}
	return out.PartyID, nil
}

// JoinParty adds userID to the party's participants.
func (c *Client) JoinParty(ctx context.Context, partyID, userID string) error {
	in := map[string]string{"user_id": userID}
	return c.post(ctx, "/api/party/"+partyID+"/join", in, nil)
}

// PartyMeta fetches a party's metadata document. The session controller uses
// it to resolve the creator id.
func (c *Client) PartyMeta(ctx context.Context, partyID string) (domain.PartyMeta, error) {
	var meta domain.PartyMeta
	if err := c.get(ctx, "/api/party/"+partyID, &meta); err != nil {
		return domain.PartyMeta{}, err
	}
	return meta, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	c.log.Debug().Str("method", req.Method).Str("path", req.URL.Path).Msg("api request")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s %s: status %d: %s", req.Method, req.URL.Path, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", req.Method, req.URL.Path, err)
	}
	return nil
}
