package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// APIError is returned for any non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("miner API error %d: %s", e.StatusCode, e.Message)
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

// Ledger is the daemon's view of the rewards ledger.
type Ledger struct {
	Points            float64         `json:"points"`
	DisplayPoints     int64           `json:"display_points"`
	Tier              int             `json:"tier"`
	TierMultiplier    float64         `json:"tier_multiplier"`
	IsStaked          bool            `json:"is_staked"`
	StakeAmount       float64         `json:"stake_amount"`
	StakeMultiplier   float64         `json:"stake_multiplier"`
	StakeUnlockTime   *time.Time      `json:"stake_unlock_time,omitempty"`
	MiningActive      bool            `json:"mining_active"`
	SessionStart      *time.Time      `json:"session_start,omitempty"`
	RatePerSecond     float64         `json:"rate_per_second"`
	SessionRemaining  string          `json:"session_remaining"`
	SessionProgress   float64         `json:"session_progress"`
	ProjectedEarnings float64         `json:"projected_session_earnings"`
	CompletedTasks    map[string]bool `json:"completed_tasks"`
	TotalSwapped      int64           `json:"total_swapped"`
	Degraded          bool            `json:"degraded"`
	At                time.Time       `json:"at"`
}

// Task is a claimable task and whether it has been completed.
type Task struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Platform  string  `json:"platform"`
	Reward    float64 `json:"reward"`
	Completed bool    `json:"completed"`
}

// Tier is a purchasable mining tier.
type Tier struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	PriceSignal int64   `json:"price_signal"`
	Multiplier  float64 `json:"multiplier"`
	Current     bool    `json:"current"`
	Owned       bool    `json:"owned"`
}

// SwapQuote prices a points-to-SIGNAL swap.
type SwapQuote struct {
	Points          int64   `json:"points"`
	StakeMultiplier float64 `json:"stake_multiplier"`
	BaseSignal      int64   `json:"base_signal"`
	Signal          int64   `json:"signal"`
}

// StakeOption is a lock period and its multiplier.
type StakeOption struct {
	Days       int     `json:"days"`
	Multiplier float64 `json:"multiplier"`
}

// Receipt records a completed spend.
type Receipt struct {
	ID     string    `json:"id"`
	Kind   string    `json:"kind"`
	TxHash string    `json:"tx_hash,omitempty"`
	Points float64   `json:"points,omitempty"`
	Signal int64     `json:"signal,omitempty"`
	Tier   int       `json:"tier,omitempty"`
	URL    string    `json:"url,omitempty"`
	Token  string    `json:"token,omitempty"`
	Amount int64     `json:"amount,omitempty"`
	At     time.Time `json:"at"`
}

// SpendResult is a receipt with the ledger state after the spend.
type SpendResult struct {
	Receipt Receipt `json:"receipt"`
	Ledger  Ledger  `json:"ledger"`
}

// BoostPrice is the price of one boost in a token's base units.
type BoostPrice struct {
	Token    string `json:"token"`
	Amount   int64  `json:"amount"`
	Decimals int    `json:"decimals"`
	Display  string `json:"display"`
}

// BoostedPost is an entry of the boost history.
type BoostedPost struct {
	URL      string    `json:"url"`
	Platform string    `json:"platform"`
	Host     string    `json:"host"`
	Token    string    `json:"token,omitempty"`
	TxHash   string    `json:"tx_hash,omitempty"`
	At       time.Time `json:"at"`
}

// BoostResult is a boost receipt with the updated history.
type BoostResult struct {
	Receipt Receipt       `json:"receipt"`
	Boosts  []BoostedPost `json:"boosts"`
}

// Client talks to a miner daemon.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	bearerToken string
}

// Option is a functional option for configuring a Client.
type Option func(*Client) error

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		if hc == nil {
			return errors.New("http client must not be nil")
		}
		c.httpClient = hc
		return nil
	}
}

// WithBearerToken attaches a device token to every request.
func WithBearerToken(token string) Option {
	return func(c *Client) error {
		c.bearerToken = token
		return nil
	}
}

// New creates a Client for the daemon at baseURL.
//
//	c, err := client.New("http://localhost:8080", client.WithBearerToken(tok))
func New(baseURL string, opts ...Option) (*Client, error) {
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid daemon URL %q: %w", baseURL, err)
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		if err := o(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// MustNew is like New but panics on error. Useful in tests and program init.
func MustNew(baseURL string, opts ...Option) *Client {
	c, err := New(baseURL, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// Ledger returns the current ledger state, settled up to now.
func (c *Client) Ledger(ctx context.Context) (*Ledger, error) {
	var out Ledger
	if err := c.call(ctx, http.MethodGet, "/api/v1/ledger", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Settle credits accrued points and returns the amount credited.
func (c *Client) Settle(ctx context.Context) (float64, *Ledger, error) {
	var out struct {
		Earned float64 `json:"earned"`
		Ledger Ledger  `json:"ledger"`
	}
	if err := c.call(ctx, http.MethodPost, "/api/v1/ledger/settle", nil, &out); err != nil {
		return 0, nil, err
	}
	return out.Earned, &out.Ledger, nil
}

// StartSession opens a new 24-hour mining session.
func (c *Client) StartSession(ctx context.Context) (*Ledger, error) {
	var out Ledger
	if err := c.call(ctx, http.MethodPost, "/api/v1/session/start", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Tasks lists the task catalog with completion state.
func (c *Client) Tasks(ctx context.Context) ([]Task, error) {
	var out struct {
		Tasks []Task `json:"tasks"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/v1/tasks", nil, &out); err != nil {
		return nil, err
	}
	return out.Tasks, nil
}

// ClaimTask claims the reward of taskID.
func (c *Client) ClaimTask(ctx context.Context, taskID string) (*Ledger, error) {
	var out struct {
		Ledger Ledger `json:"ledger"`
	}
	path := "/api/v1/tasks/" + url.PathEscape(taskID) + "/claim"
	if err := c.call(ctx, http.MethodPost, path, nil, &out); err != nil {
		return nil, err
	}
	return &out.Ledger, nil
}

// Tiers lists the tier catalog.
func (c *Client) Tiers(ctx context.Context) ([]Tier, error) {
	var out struct {
		Tiers []Tier `json:"tiers"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/v1/tiers", nil, &out); err != nil {
		return nil, err
	}
	return out.Tiers, nil
}

// PurchaseTier buys tier.
func (c *Client) PurchaseTier(ctx context.Context, tier int) (*SpendResult, error) {
	var out SpendResult
	path := "/api/v1/tiers/" + strconv.Itoa(tier) + "/purchase"
	if err := c.call(ctx, http.MethodPost, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// QuoteSwap prices a swap of points.
func (c *Client) QuoteSwap(ctx context.Context, points int64) (*SwapQuote, error) {
	var out SwapQuote
	path := "/api/v1/swap/quote?points=" + strconv.FormatInt(points, 10)
	if err := c.call(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Swap converts points to SIGNAL.
func (c *Client) Swap(ctx context.Context, points int64) (*SpendResult, error) {
	var out SpendResult
	body := map[string]int64{"points": points}
	if err := c.call(ctx, http.MethodPost, "/api/v1/swap", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// StakeOptions lists the lock periods.
func (c *Client) StakeOptions(ctx context.Context) ([]StakeOption, error) {
	var out struct {
		Options []StakeOption `json:"options"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/v1/stake/options", nil, &out); err != nil {
		return nil, err
	}
	return out.Options, nil
}

// Stake locks amount SIGNAL for lockDays.
func (c *Client) Stake(ctx context.Context, amount int64, lockDays int) (*SpendResult, error) {
	var out SpendResult
	body := map[string]any{"amount": amount, "lock_days": lockDays}
	if err := c.call(ctx, http.MethodPost, "/api/v1/stake", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Unstake releases an expired stake.
func (c *Client) Unstake(ctx context.Context) (*SpendResult, error) {
	var out SpendResult
	if err := c.call(ctx, http.MethodDelete, "/api/v1/stake", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// BoostPrices lists the accepted boost payments.
func (c *Client) BoostPrices(ctx context.Context) ([]BoostPrice, error) {
	var out struct {
		Prices []BoostPrice `json:"prices"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/v1/boosts/prices", nil, &out); err != nil {
		return nil, err
	}
	return out.Prices, nil
}

// Boosts returns the recent boosts, newest first.
func (c *Client) Boosts(ctx context.Context) ([]BoostedPost, error) {
	var out struct {
		Boosts []BoostedPost `json:"boosts"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/v1/boosts", nil, &out); err != nil {
		return nil, err
	}
	return out.Boosts, nil
}

// Boost pays to boost the post at postURL. token is "eth" or "usdc"; empty
// selects ETH.
func (c *Client) Boost(ctx context.Context, postURL, token string) (*BoostResult, error) {
	var out BoostResult
	body := map[string]string{"url": postURL, "token": token}
	if err := c.call(ctx, http.MethodPost, "/api/v1/boosts", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// call sends a JSON request and decodes a JSON response into out.
func (c *Client) call(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	data, err := c.do(req)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	if c.bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearerToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(body))
		if json.Unmarshal(body, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	return body, nil
}
