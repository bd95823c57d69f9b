package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultBaseURL = "https://sandbox.plaid.com"
	defaultTimeout = 60 * time.Second
	syncPath       = "/transactions/sync"
)

// Client handles communication with the provider's transactions sync API.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// Ensure Client implements ClientInterface
var _ ClientInterface = (*Client)(nil)

// NewClient creates a new provider API client. An empty baseURL selects the
// provider's default endpoint.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
	}
}

// SyncOptions enumerates provider request flags for one sync page.
type SyncOptions struct {
	// IncludePersonalFinanceCategory asks the provider to populate the
	// detailed category taxonomy on each transaction.
	IncludePersonalFinanceCategory bool `json:"include_personal_finance_category"`
}

// syncRequest is the wire body for the sync endpoint. Cursor is omitted
// entirely when empty, which the provider interprets as "from the beginning".
type syncRequest struct {
	AccessToken string      `json:"access_token"`
	Cursor      string      `json:"cursor,omitempty"`
	Options     SyncOptions `json:"options"`
}

// SyncPage is one page of provider changes.
type SyncPage struct {
	Added      []Transaction        `json:"added"`
	Modified   []Transaction        `json:"modified"`
	Removed    []RemovedTransaction `json:"removed"`
	NextCursor string               `json:"next_cursor"`
	HasMore    bool                 `json:"has_more"`
}

// Transaction is the provider's native representation of an added or
// modified transaction. Optional fields come back as JSON null and stay nil.
type Transaction struct {
	TransactionID           string                   `json:"transaction_id"`
	AccountID               string                   `json:"account_id"`
	Amount                  float64                  `json:"amount"`
	ISOCurrencyCode         *string                  `json:"iso_currency_code"`
	UnofficialCurrencyCode  *string                  `json:"unofficial_currency_code"`
	Date                    string                   `json:"date"` // "2021-03-24" format
	AuthorizedDate          *string                  `json:"authorized_date"`
	Name                    string                   `json:"name"`
	MerchantName            *string                  `json:"merchant_name"`
	Category                []string                 `json:"category"`
	PersonalFinanceCategory *PersonalFinanceCategory `json:"personal_finance_category"`
	CheckNumber             *string                  `json:"check_number"`
	Pending                 bool                     `json:"pending"`
	PendingTransactionID    *string                  `json:"pending_transaction_id"`
	PaymentChannel          string                   `json:"payment_channel"`
}

// PersonalFinanceCategory is the provider's detailed category taxonomy.
type PersonalFinanceCategory struct {
	Primary  string `json:"primary"`
	Detailed string `json:"detailed"`
}

// RemovedTransaction identifies a transaction deleted on the provider side.
// Removes carry only the identifier.
type RemovedTransaction struct {
	TransactionID string `json:"transaction_id"`
}

// Error is a structured provider API error. The sync engine maps it onto its
// own failure taxonomy via Transient/CredentialRevoked.
type Error struct {
	StatusCode int    `json:"-"`
	ErrorType  string `json:"error_type"`
	ErrorCode  string `json:"error_code"`
	Message    string `json:"error_message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider error (status %d): %s/%s: %s", e.StatusCode, e.ErrorType, e.ErrorCode, e.Message)
}

// Transient reports whether retrying the whole request later is reasonable:
// rate limits, provider-side faults, and gateway errors.
func (e *Error) Transient() bool {
	switch e.ErrorType {
	case "RATE_LIMIT_EXCEEDED", "API_ERROR":
		return true
	}
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// CredentialRevoked reports whether the item's access token is no longer
// usable and the item needs re-linking.
func (e *Error) CredentialRevoked() bool {
	switch e.ErrorCode {
	case "INVALID_ACCESS_TOKEN", "ITEM_LOGIN_REQUIRED", "ITEM_NOT_FOUND", "ACCESS_NOT_GRANTED":
		return true
	}
	return e.ErrorType == "INVALID_INPUT" && e.StatusCode == http.StatusUnauthorized
}

// IsTransient reports whether err (or anything it wraps) is a transient
// provider failure. Plain network faults and timeouts count as transient.
func IsTransient(err error) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Transient()
	}
	// No structured provider error means we never got a response:
	// connection refused, timeout, context deadline.
	return err != nil
}

// IsCredentialRevoked reports whether err indicates a dead access token.
func IsCredentialRevoked(err error) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.CredentialRevoked()
	}
	return false
}

// SyncTransactions fetches one page of transaction changes since cursor.
// An empty cursor requests a full resync from the beginning of the item's
// history. The call does not retry; retry policy belongs to the caller.
func (c *Client) SyncTransactions(ctx context.Context, accessToken, cursor string, opts SyncOptions) (*SyncPage, error) {
	url := c.baseURL + syncPath

	payload, err := json.Marshal(syncRequest{
		AccessToken: accessToken,
		Cursor:      cursor,
		Options:     opts,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal sync request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr Error
		if err := json.Unmarshal(body, &apiErr); err != nil || apiErr.ErrorType == "" {
			return nil, &Error{
				StatusCode: resp.StatusCode,
				ErrorType:  "API_ERROR",
				ErrorCode:  "UNPARSEABLE_RESPONSE",
				Message:    string(body),
			}
		}
		apiErr.StatusCode = resp.StatusCode
		return nil, &apiErr
	}

	var page SyncPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("failed to unmarshal sync page: %w", err)
	}

	return &page, nil
}
