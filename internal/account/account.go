// Package account performs the HTTP login handshake against the
// authentication endpoint. It is the only part of the bot that talks HTTP
// to the outside; the resulting trust command goes back out over the
// websocket.
package account

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirebot/internal/state"
)

// ErrNoAssertion is returned when the endpoint answered but did not hand
// out a login assertion. Fatal to the session.
var ErrNoAssertion = errors.New("login response carried no assertion")

// Client issues login requests against one authentication endpoint.
type Client struct {
	http     *http.Client
	endpoint string
	log      *zerolog.Logger
}

// New builds a login client for the given endpoint URL.
func New(endpoint string, logger *zerolog.Logger) *Client {
	return &Client{
		http:     &http.Client{Timeout: 30 * time.Second},
		endpoint: endpoint,
		log:      logger,
	}
}

// LoginCommand exchanges the server challenge for a signed assertion and
// returns the trust command to send over the transport. An empty password
// requests an unregistered-name assertion instead of a full login.
func (c *Client) LoginCommand(ctx context.Context, username, password, challstr string) (string, error) {
	form := url.Values{}
	if password == "" {
		form.Set("act", "getassertion")
		form.Set("userid", state.Normalize(username))
	} else {
		form.Set("act", "login")
		form.Set("name", username)
		form.Set("pass", password)
	}
	form.Set("challstr", challstr)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("post login: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login endpoint returned %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read login response: %w", err)
	}

	assertion, err := parseAssertion(body)
	if err != nil {
		return "", err
	}

	c.log.Info().Str("user", username).Msg("login assertion obtained")
	return fmt.Sprintf("|/trn %s,0,%s", username, assertion), nil
}

// parseAssertion extracts the assertion from a response body. The body is
// a JSON object preceded by one throwaway character.
func parseAssertion(body []byte) (string, error) {
	if len(body) < 2 {
		return "", ErrNoAssertion
	}

	var payload struct {
		Assertion string `json:"assertion"`
	}
	if err := json.Unmarshal(body[1:], &payload); err != nil {
		return "", fmt.Errorf("decode login response: %w", err)
	}
	if payload.Assertion == "" {
		return "", ErrNoAssertion
	}
	return payload.Assertion, nil
}
