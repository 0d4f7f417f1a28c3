// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package query

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/holiman/uint256"
	"github.com/luxfi/ids"

	"github.com/luxfi/transform"
	"github.com/luxfi/transform/api"
	"github.com/luxfi/transform/payload"
)

// DefaultRequestTimeout bounds a single client round trip
const DefaultRequestTimeout = 10 * time.Second

var errUnexpectedStatus = errors.New("unexpected response status")

// Client calls the query and execute endpoints of a transform daemon
type Client struct {
	uri  string
	http *http.Client
}

// NewClient returns a client for the daemon listening at uri
func NewClient(uri string) *Client {
	return &Client{
		uri:  strings.TrimSuffix(uri, "/"),
		http: &http.Client{Timeout: DefaultRequestTimeout},
	}
}

// Nonce returns the nonce the next proof for addr must carry
func (c *Client) Nonce(ctx context.Context, addr ids.ShortID) (uint64, error) {
	var resp api.NonceResponse
	err := c.do(ctx, http.MethodGet, expand(api.NoncePath, addr, ""), nil, &resp)
	return resp.Nonce, err
}

// WrappedBalance returns the wrapped balance of addr
func (c *Client) WrappedBalance(ctx context.Context, addr ids.ShortID) (*uint256.Int, error) {
	var resp api.BalanceResponse
	if err := c.do(ctx, http.MethodGet, expand(api.BalancePath, addr, ""), nil, &resp); err != nil {
		return nil, err
	}
	return uint256.FromDecimal(resp.Amount)
}

// BackingBalance returns the backing custody of addr in denom
func (c *Client) BackingBalance(ctx context.Context, addr ids.ShortID, denom string) (*uint256.Int, error) {
	var resp api.BalanceResponse
	if err := c.do(ctx, http.MethodGet, expand(api.BackingPath, addr, denom), nil, &resp); err != nil {
		return nil, err
	}
	return uint256.FromDecimal(resp.Amount)
}

// Execute submits msg as sender through wallet
func (c *Client) Execute(ctx context.Context, sender, wallet ids.ShortID, msg *payload.ExecuteMsg) (*api.Receipt, error) {
	body, err := json.Marshal(api.ExecuteRequest{
		Sender: sender,
		Wallet: wallet,
		Msg:    *msg,
	})
	if err != nil {
		return nil, err
	}
	resp := &api.Receipt{}
	if err := c.do(ctx, http.MethodPost, api.ExecutePath, body, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.uri+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		apiErr := &transform.Error{}
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil {
			return fmt.Errorf("%w: %d", errUnexpectedStatus, resp.StatusCode)
		}
		return apiErr
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func expand(path string, addr ids.ShortID, denom string) string {
	return strings.NewReplacer(
		"{address}", addr.String(),
		"{denom}", url.PathEscape(denom),
	).Replace(path)
}
