package bitget

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Client talks to the Bitget spot REST API. An absent or malformed body
// is reported as empty data, not as an error: readers treat "no data" the
// same way and the caller's state stays untouched.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a REST client with a bounded per-request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultRestURL
	}
	if timeout <= 0 {
		timeout = 6 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
	}
}

// FetchOrderBook returns the depth snapshot for symbol as raw
// [price, qty] string pairs, bids and asks.
func (c *Client) FetchOrderBook(ctx context.Context, symbol string, limit int) ([][]string, [][]string, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("type", "step0")
	q.Set("limit", strconv.Itoa(limit))

	var resp bookResponse
	if err := c.getJSON(ctx, orderBookPath, q, &resp); err != nil {
		return nil, nil, err
	}
	return resp.Data.Bids, resp.Data.Asks, nil
}

// FetchTicker returns the last traded price string for symbol, or ""
// when the response carries no usable entry.
func (c *Client) FetchTicker(ctx context.Context, symbol string) (string, error) {
	q := url.Values{}
	q.Set("symbol", symbol)

	var resp tickerResponse
	if err := c.getJSON(ctx, tickerPath, q, &resp); err != nil {
		return "", err
	}
	if len(resp.Data) == 0 {
		return "", nil
	}
	return resp.Data[0].lastPrice(), nil
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "bookwatch/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		// Malformed body is "no data", not a failure to escalate.
		return nil
	}
	return nil
}
