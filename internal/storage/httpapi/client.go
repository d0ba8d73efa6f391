// Package httpapi implements storage.DocumentStore over a JSON HTTP
// API, for clients that sync against a remote Fundwise backend instead
// of the embedded database.
package httpapi

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/http2"

	"github.com/fundwise/fundwise/internal/auth"
	"github.com/fundwise/fundwise/internal/models"
	"github.com/fundwise/fundwise/internal/storage"
)

var _ storage.DocumentStore = (*Client)(nil)

// Client talks to a remote document store over JSON HTTP.
type Client struct {
	base string
	http *http.Client
}

// New creates a client for the API rooted at baseURL. With h2c enabled
// the client speaks HTTP/2 cleartext, which the reference backend
// serves.
func New(baseURL string, h2c bool) *Client {
	httpClient := &http.Client{Timeout: 15 * time.Second}
	if h2c {
		httpClient.Transport = &http2.Transport{
			AllowHTTP: true,
			DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, network, addr)
			},
		}
	}
	return &Client{base: baseURL, http: httpClient}
}

// do issues a JSON request and decodes the response into out (when
// non-nil). A 404 is reported as errNotFound so callers can map it to
// the interface's nil-result convention.
var errNotFound = fmt.Errorf("not found")

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body *bytes.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) GetUserFunds(ctx context.Context, userID string) ([]models.Fund, error) {
	var funds []models.Fund
	err := c.do(ctx, http.MethodGet, "/api/users/"+url.PathEscape(userID)+"/funds", nil, &funds)
	if err != nil {
		return nil, err
	}
	return funds, nil
}

func (c *Client) GetFundByID(ctx context.Context, id string) (*models.Fund, error) {
	var fund models.Fund
	err := c.do(ctx, http.MethodGet, "/api/funds/"+url.PathEscape(id), nil, &fund)
	if err == errNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &fund, nil
}

func (c *Client) CreateFund(ctx context.Context, draft storage.FundDraft, ownerID string) (*models.Fund, error) {
	payload := struct {
		storage.FundDraft
		OwnerID string `json:"ownerId"`
	}{FundDraft: draft, OwnerID: ownerID}

	var fund models.Fund
	if err := c.do(ctx, http.MethodPost, "/api/funds", payload, &fund); err != nil {
		return nil, err
	}
	return &fund, nil
}

func (c *Client) UpdateFund(ctx context.Context, id string, patch storage.FundPatch) error {
	return c.do(ctx, http.MethodPatch, "/api/funds/"+url.PathEscape(id), patch, nil)
}

func (c *Client) DeleteFund(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/funds/"+url.PathEscape(id), nil, nil)
}

func (c *Client) GetFundTransactions(ctx context.Context, fundID string) ([]models.Transaction, error) {
	var txns []models.Transaction
	err := c.do(ctx, http.MethodGet, "/api/funds/"+url.PathEscape(fundID)+"/transactions", nil, &txns)
	if err != nil {
		return nil, err
	}
	return txns, nil
}

func (c *Client) CreateTransaction(ctx context.Context, txn *models.Transaction) (*models.Transaction, error) {
	var created models.Transaction
	if err := c.do(ctx, http.MethodPost, "/api/transactions", txn, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) DeleteTransaction(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/transactions/"+url.PathEscape(id), nil, nil)
}

func (c *Client) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := c.do(ctx, http.MethodGet, "/api/users/lookup?email="+url.QueryEscape(email), nil, &user)
	if err == errNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) GetUsersByIDs(ctx context.Context, ids []string) (map[string]*models.User, error) {
	payload := struct {
		IDs []string `json:"ids"`
	}{IDs: ids}

	users := make(map[string]*models.User)
	if len(ids) == 0 {
		return users, nil
	}
	if err := c.do(ctx, http.MethodPost, "/api/users/batch", payload, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) SyncUser(ctx context.Context, ident auth.Identity) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, http.MethodPost, "/api/users/sync", ident, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) AddUserToFundByEmail(ctx context.Context, fundID, email string) (bool, error) {
	payload := struct {
		Email string `json:"email"`
	}{Email: email}

	err := c.do(ctx, http.MethodPost, "/api/funds/"+url.PathEscape(fundID)+"/members", payload, nil)
	if err == errNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Close satisfies storage.DocumentStore; the HTTP client holds no
// resources beyond pooled connections.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}
