package tournament

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spinforge/platform/internal/domain"
)

const (
	authPath       = "/auth"
	commitWinsPath = "/commitWins"

	// tokens this close to expiry are refreshed before use
	tokenExpirySlack = 30 * time.Second
)

type tokenOp struct {
	// drop invalidates this token before answering, so a 401 observed by
	// one caller forces a re-auth for everyone.
	drop  string
	reply chan tokenAnswer
}

type tokenAnswer struct {
	token string
	err   error
}

// Client posts payout confirmations to the tournament server. The bearer
// token lives in a single holder goroutine; callers never race on it.
type Client struct {
	http     *http.Client
	baseURL  string
	name     string
	password string
	logger   *slog.Logger
	ops      chan tokenOp
}

// NewClient builds the outbound tournament client.
func NewClient(baseURL, name, password string, logger *slog.Logger) *Client {
	return &Client{
		http:     &http.Client{Timeout: 15 * time.Second},
		baseURL:  baseURL,
		name:     name,
		password: password,
		logger:   logger,
		ops:      make(chan tokenOp),
	}
}

// Start runs the token holder until ctx is cancelled.
func (c *Client) Start(ctx context.Context) {
	go func() {
		var token string
		for {
			select {
			case <-ctx.Done():
				return
			case op := <-c.ops:
				if op.drop != "" && op.drop == token {
					token = ""
				}
				if token == "" || expiringSoon(token) {
					fresh, err := c.authenticate(ctx)
					if err != nil {
						op.reply <- tokenAnswer{err: err}
						continue
					}
					token = fresh
				}
				op.reply <- tokenAnswer{token: token}
			}
		}
	}()
}

// expiringSoon inspects the unverified exp claim. Opaque tokens are kept
// until the server rejects them.
func expiringSoon(token string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return time.Until(exp.Time) < tokenExpirySlack
}

func (c *Client) token(ctx context.Context, drop string) (string, error) {
	reply := make(chan tokenAnswer, 1)
	select {
	case c.ops <- tokenOp{drop: drop, reply: reply}:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	select {
	case ans := <-reply:
		return ans.token, ans.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (c *Client) authenticate(ctx context.Context) (string, error) {
	body, err := json.Marshal(map[string]string{
		"name":     c.name,
		"password": c.password,
	})
	if err != nil {
		return "", fmt.Errorf("marshal auth: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+authPath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("tournament auth: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("tournament auth: status %d", resp.StatusCode)
	}

	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode auth response: %w", err)
	}
	if out.Token == "" {
		return "", fmt.Errorf("tournament auth: empty token")
	}
	return out.Token, nil
}

// CommitWins confirms already-paid gains with the tournament server. One
// auth retry is attempted when the server rejects the bearer token; other
// failures are logged and abandoned, the next batch retries naturally.
func (c *Client) CommitWins(ctx context.Context, gains []domain.TournamentGain) {
	if len(gains) == 0 {
		return
	}
	token, err := c.token(ctx, "")
	if err != nil {
		c.logger.Error("commit wins: no token", "error", err)
		return
	}
	status, err := c.post(ctx, token, gains)
	if err == nil && (status == http.StatusUnauthorized || status == http.StatusForbidden) {
		if token, err = c.token(ctx, token); err == nil {
			status, err = c.post(ctx, token, gains)
		}
	}
	if err != nil {
		c.logger.Error("commit wins", "count", len(gains), "error", err)
		return
	}
	if status != http.StatusOK {
		c.logger.Error("commit wins rejected", "count", len(gains), "status", status)
		return
	}
	c.logger.Info("commit wins", "count", len(gains))
}

func (c *Client) post(ctx context.Context, token string, gains []domain.TournamentGain) (int, error) {
	body, err := json.Marshal(gains)
	if err != nil {
		return 0, fmt.Errorf("marshal gains: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+commitWinsPath, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("build commit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("commit wins post: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}
