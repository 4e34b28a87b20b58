// Package vela provides a Go client for the vela backtesting API.
package vela

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"vela/internal/backtest"
	"vela/internal/httpapi"
	"vela/internal/store"
)

// Client talks to a running vela server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// apiError is the JSON error envelope returned by the server.
type apiError struct {
	Error string `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: %s (status %d)", method, path, apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// RunBacktest runs a backtest and returns the result with its stored id.
func (c *Client) RunBacktest(ctx context.Context, req httpapi.BacktestRequest) (*httpapi.BacktestResponse, error) {
	var out httpapi.BacktestResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/backtests", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Sweep runs the same backtest across several risk percentages.
func (c *Client) Sweep(ctx context.Context, req httpapi.SweepRequest) (*httpapi.SweepResponse, error) {
	var out httpapi.SweepResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/backtests/sweep", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Compare runs several strategy configurations over the same range.
func (c *Client) Compare(ctx context.Context, req httpapi.CompareRequest) (*httpapi.CompareResponse, error) {
	var out httpapi.CompareResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/backtests/compare", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// History lists stored result summaries, newest first. An empty symbol
// matches all symbols; limit <= 0 uses the server default.
func (c *Client) History(ctx context.Context, symbol string, limit int) ([]store.ResultSummary, error) {
	q := url.Values{}
	if symbol != "" {
		q.Set("symbol", symbol)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/api/v1/backtests"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out httpapi.HistoryResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

// GetBacktest retrieves a stored result by id.
func (c *Client) GetBacktest(ctx context.Context, id int64) (*backtest.Result, error) {
	var out backtest.Result
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/backtests/%d", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Strategies lists the strategy names registered on the server.
func (c *Client) Strategies(ctx context.Context) ([]string, error) {
	var out httpapi.StrategiesResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/strategies", nil, &out); err != nil {
		return nil, err
	}
	return out.Strategies, nil
}

// Symbols lists symbols with local bar data at the given interval. An empty
// interval uses the server default.
func (c *Client) Symbols(ctx context.Context, interval string) ([]string, error) {
	path := "/api/v1/symbols"
	if interval != "" {
		path += "?interval=" + url.QueryEscape(interval)
	}
	var out httpapi.SymbolsResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Symbols, nil
}
