package scoreclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	constants "github.com/nadmetry/scorerelay/internal/constants"
)

// Signer produces a personal-sign signature for the login message. The
// embedding application supplies it; the SDK never sees the wallet key.
type Signer func(message string) (string, error)

type Config struct {
	BaseURL    string
	HTTPClient *http.Client
	Signer     Signer
	// Origin is sent on write requests; the relay only accepts origins on
	// its allow-list.
	Origin        string
	ExplorerTxURL string
}

// Client talks to the relay API on behalf of one game instance.
type Client struct {
	baseURL  string
	http     *http.Client
	signer   Signer
	origin   string
	explorer string
}

type SubmitResult struct {
	Success         bool   `json:"success"`
	TransactionHash string `json:"transactionHash"`
	Message         string `json:"message"`
	Error           string `json:"error"`
}

type sessionTokenResult struct {
	Success      bool   `json:"success"`
	SessionToken string `json:"sessionToken"`
	ExpiresAt    int64  `json:"expiresAt"`
	Error        string `json:"error"`
}

type PlayerData struct {
	Success           bool   `json:"success"`
	PlayerAddress     string `json:"playerAddress"`
	TotalScore        string `json:"totalScore"`
	TotalTransactions string `json:"totalTransactions"`
	Error             string `json:"error"`
}

type PlayerGameData struct {
	Success       bool   `json:"success"`
	PlayerAddress string `json:"playerAddress"`
	GameAddress   string `json:"gameAddress"`
	Score         string `json:"score"`
	Transactions  string `json:"transactions"`
	Error         string `json:"error"`
}

func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:  cfg.BaseURL,
		http:     httpClient,
		signer:   cfg.Signer,
		origin:   cfg.Origin,
		explorer: cfg.ExplorerTxURL,
	}
}

// GetSessionToken signs the login message and exchanges it for a token.
func (c *Client) GetSessionToken(ctx context.Context, playerAddress string) (string, error) {
	if c.signer == nil {
		return "", fmt.Errorf("scoreclient: no signer configured")
	}
	message := constants.AuthMessagePrefix + playerAddress
	signature, err := c.signer(message)
	if err != nil {
		return "", fmt.Errorf("scoreclient: signing auth message: %w", err)
	}

	var res sessionTokenResult
	err = c.postJSON(ctx, constants.RouteSessionToken, map[string]string{
		"playerAddress": playerAddress,
		"message":       message,
		"signedMessage": signature,
	}, &res)
	if err != nil {
		return "", err
	}
	if !res.Success {
		return "", fmt.Errorf("scoreclient: session token refused: %s", res.Error)
	}
	return res.SessionToken, nil
}

// SubmitScore posts one score delta. A non-success response comes back as
// a SubmitResult with Error set, not a Go error; transport failures are
// the only hard errors.
func (c *Client) SubmitScore(ctx context.Context, playerAddress string, scoreAmount, transactionAmount int64, sessionToken string) (SubmitResult, error) {
	if sessionToken == "" {
		token, err := c.GetSessionToken(ctx, playerAddress)
		if err != nil {
			return SubmitResult{Error: "Failed to authenticate. Please try again."}, err
		}
		sessionToken = token
	}

	var res SubmitResult
	err := c.postJSON(ctx, constants.RouteUpdatePlayerData, map[string]any{
		"playerAddress":     playerAddress,
		"scoreAmount":       scoreAmount,
		"transactionAmount": transactionAmount,
		"sessionToken":      sessionToken,
	}, &res)
	if err != nil {
		return SubmitResult{Error: err.Error()}, err
	}
	return res, nil
}

func (c *Client) PlayerData(ctx context.Context, playerAddress string) (PlayerData, error) {
	var res PlayerData
	path := constants.RoutePlayerData + "?address=" + url.QueryEscape(playerAddress)
	if err := c.getJSON(ctx, path, &res); err != nil {
		return PlayerData{}, err
	}
	return res, nil
}

func (c *Client) PlayerGameData(ctx context.Context, playerAddress, gameAddress string) (PlayerGameData, error) {
	var res PlayerGameData
	path := constants.RoutePlayerDataPerGame +
		"?playerAddress=" + url.QueryEscape(playerAddress) +
		"&gameAddress=" + url.QueryEscape(gameAddress)
	if err := c.getJSON(ctx, path, &res); err != nil {
		return PlayerGameData{}, err
	}
	return res, nil
}

// ExplorerLink renders the chain explorer URL for a transaction hash, or
// "" when no explorer is configured.
func (c *Client) ExplorerLink(txHash string) string {
	if c.explorer == "" || txHash == "" {
		return ""
	}
	return c.explorer + txHash
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.origin != "" {
		req.Header.Set("Origin", c.origin)
	}
	return c.do(req, out)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// Error statuses still carry a JSON body with the reason; surface that
	// through the decoded result rather than failing the decode.
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("scoreclient: decoding response (%s): %w", resp.Status, err)
	}
	return nil
}
