package provider

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
	"github.com/shopspring/decimal"
)

const quotesPath = "/data/quotes"

// Options parameterise the HTTP quote client.
type Options struct {
	BaseURL     string
	ClientID    string
	AccessToken string
	Timeout     time.Duration
	UserAgent   string
}

// Client talks to the Fyers data API over HTTP.
type Client struct {
	opts    Options
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewClient constructs a quote client.
func NewClient(opts Options, logger zerolog.Logger) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.fyers.in"
	}

	return &Client{
		opts:    opts,
		logger:  logger.With().Str("component", "quote_client").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

type quoteResponse struct {
	S       string `json:"s"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	D       []struct {
		N string `json:"n"`
		V struct {
			LP *float64 `json:"lp"`
		} `json:"v"`
	} `json:"d"`
}

// Quotes fetches last-traded prices for the given symbols in one call.
func (c *Client) Quotes(ctx context.Context, symbols []string) ([]Entry, error) {
	if len(symbols) == 0 {
		return nil, errors.New("no symbols requested")
	}
	if c.opts.ClientID == "" || c.opts.AccessToken == "" {
		return nil, errors.New("provider credentials not configured")
	}

	endpoint := c.baseURL + quotesPath + "?symbols=" + url.QueryEscape(strings.Join(symbols, ","))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", c.opts.ClientID+":"+c.opts.AccessToken)
	if ua := strings.TrimSpace(c.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrRateLimited
	}

	if resp.StatusCode != http.StatusOK {
		var decoded quoteResponse
		_ = json.Unmarshal(payload, &decoded)
		// The API reports throttling in-band as well as via the status line.
		if decoded.Code == http.StatusTooManyRequests {
			return nil, ErrRateLimited
		}
		return nil, parseHTTPError(resp.StatusCode, decoded, payload)
	}

	var decoded quoteResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, &MalformedError{Reason: fmt.Sprintf("invalid json: %v", err)}
	}

	if decoded.Code == http.StatusTooManyRequests {
		return nil, ErrRateLimited
	}

	if len(decoded.D) == 0 {
		return nil, &MalformedError{Reason: "empty quote array"}
	}

	entries := make([]Entry, 0, len(decoded.D))
	for _, item := range decoded.D {
		entry := Entry{Name: item.N}
		if item.V.LP != nil {
			entry.LastPrice = decimal.NewFromFloat(*item.V.LP)
			entry.HasPrice = true
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

func parseHTTPError(status int, decoded quoteResponse, payload []byte) error {
	if decoded.Message != "" {
		return fmt.Errorf("quote api error (%d): %s", status, decoded.Message)
	}
	if len(payload) > 0 {
		return fmt.Errorf("quote api error (%d): %s", status, strings.TrimSpace(string(payload)))
	}
	return fmt.Errorf("quote api error (%d)", status)
}

var _ QuoteProvider = (*Client)(nil)
