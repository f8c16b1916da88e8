// Package syncclient talks to the ledger API and reconciles the local cache
// with the server. The server is always authoritative for balances; the
// client only ever replays raw events.
package syncclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"creditbook/models"
	"creditbook/services"

	"github.com/google/uuid"
)

// NetworkError marks transport failures and transient 5xx responses; the
// scheduler retries them on the next cycle. Everything else is terminal.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return "network error: " + e.Err.Error() }
func (e *NetworkError) Unwrap() error { return e.Err }

// IsRetryable reports whether a failure should be retried by the scheduler
// rather than surfaced as terminal.
func IsRetryable(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// Client is the HTTP client for the ledger API. Token is called per request
// so session rotation is the caller's concern.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Token   func(ctx context.Context) (string, error)
}

func NewClient(baseURL string, token func(ctx context.Context) (string, error)) *Client {
	return &Client{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
		Token:   token,
	}
}

type CreateCustomerRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
}

type CreateTransactionRequest struct {
	CustomerID  uuid.UUID `json:"customerId"`
	Amount      float64   `json:"amount"`
	Type        string    `json:"type"`
	Description string    `json:"description,omitempty"`
}

// CreatedTransaction is the apply response: the stored entry plus the
// post-apply balance the server computed.
type CreatedTransaction struct {
	Transaction      models.Transaction `json:"transaction"`
	CustomerTotalDue float64            `json:"customerTotalDue"`
}

func (c *Client) ListCustomers(ctx context.Context, deleted bool) ([]models.Customer, error) {
	var customers []models.Customer
	path := fmt.Sprintf("/api/customers?deleted=%t", deleted)
	if err := c.do(ctx, http.MethodGet, path, nil, &customers); err != nil {
		return nil, err
	}
	return customers, nil
}

func (c *Client) ListTransactions(ctx context.Context, customerID uuid.UUID) ([]models.Transaction, error) {
	var entries []models.Transaction
	path := fmt.Sprintf("/api/customers/%s/transactions", customerID)
	if err := c.do(ctx, http.MethodGet, path, nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *Client) CreateCustomer(ctx context.Context, req CreateCustomerRequest) (*models.Customer, error) {
	var customer models.Customer
	if err := c.do(ctx, http.MethodPost, "/api/customers", req, &customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

func (c *Client) CreateTransaction(ctx context.Context, req CreateTransactionRequest) (*CreatedTransaction, error) {
	var created CreatedTransaction
	if err := c.do(ctx, http.MethodPost, "/api/transactions", req, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) Summary(ctx context.Context) (*services.DashboardSummary, error) {
	var summary services.DashboardSummary
	if err := c.do(ctx, http.MethodGet, "/api/dashboard/summary", nil, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// UploadBackup replaces the owner's backup blob on the server.
func (c *Client) UploadBackup(ctx context.Context, data []byte) error {
	req, err := c.newRequest(ctx, http.MethodPut, "/api/backup", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	return c.send(req, nil)
}

// DownloadBackup fetches the owner's backup blob.
func (c *Client) DownloadBackup(ctx context.Context) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/backup", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp.StatusCode); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	return data, nil
}

// BackupExists checks blob presence without downloading it.
func (c *Client) BackupExists(ctx context.Context) (bool, error) {
	req, err := c.newRequest(ctx, http.MethodHead, "/api/backup", nil)
	if err != nil {
		return false, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return false, &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if err := classifyStatus(resp.StatusCode); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := c.newRequest(ctx, method, path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, err
	}
	if c.Token != nil {
		token, err := c.Token(ctx)
		if err != nil {
			return nil, &services.AuthError{Msg: "no session token: " + err.Error()}
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func (c *Client) send(req *http.Request, out interface{}) error {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp.StatusCode); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &NetworkError{Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// classifyStatus maps HTTP statuses back onto the server's error taxonomy:
// transient failures are retryable, client mistakes are terminal.
func classifyStatus(status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &services.AuthError{Msg: fmt.Sprintf("server returned %d", status)}
	case status == http.StatusNotFound:
		return &services.NotFoundError{Msg: fmt.Sprintf("server returned %d", status)}
	case status == http.StatusConflict:
		return &services.ConflictError{Msg: fmt.Sprintf("server returned %d", status)}
	case status >= 400 && status < 500:
		return &services.ValidationError{Msg: fmt.Sprintf("server returned %d", status)}
	default:
		return &NetworkError{Err: fmt.Errorf("server returned %d", status)}
	}
}
