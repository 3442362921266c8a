// Package akahu provides a client for the Akahu data API.
package akahu

import (
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

	apperrors "github.com/jrsteele09/moneyguard/internal/errors"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL   = "https://api.akahu.io/v1"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 5 // requests per second

	// DefaultPageSize matches what the app requests for a transaction list.
	DefaultPageSize = 100

	dateLayout = "2006-01-02"
)

// Credentials supplies the bearer token for each request.
type Credentials interface {
	Token(ctx context.Context) (*oauth2.Token, error)
	Clear(ctx context.Context) error
}

// Client is a rate limited Akahu API client.
type Client struct {
	baseURL     string
	credentials Credentials
	httpClient  *http.Client
	logger      zerolog.Logger
	limiter     *rate.Limiter
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithLogger sets the logger
func WithLogger(logger zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit. Non-positive values are ignored.
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
		}
	}
}

// WithHTTPClient sets the HTTP client
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// NewClient creates a new Akahu client reading its token from creds.
func NewClient(creds Credentials, opts ...ClientOption) (*Client, error) {
	if creds == nil {
		return nil, errors.New("[NewClient] credentials are required")
	}
	c := &Client{
		baseURL:     DefaultBaseURL,
		credentials: creds,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// APIError represents an API error
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Akahu API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// Rejected reports whether the API refused the credential.
func (e *APIError) Rejected() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// get performs a rate-limited, authenticated GET request
func (c *Client) get(ctx context.Context, path string, result interface{}) error {
	token, err := c.credentials.Token(ctx)
	if err != nil {
		return fmt.Errorf("[Client.get] %w", err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	token.SetAuthHeader(req)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().Str("url", path).Msg("Akahu API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
			Endpoint:   path,
		}
		if apiErr.Rejected() {
			return c.rejected(ctx, apiErr)
		}
		return apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// rejected clears a credential the API refused so the app falls back to the
// not-connected state. A failed clear is joined onto the rejection.
func (c *Client) rejected(ctx context.Context, apiErr *APIError) error {
	err := fmt.Errorf("%w: %w", apperrors.ErrUnauthenticated, apiErr)
	c.logger.Warn().Int("status", apiErr.StatusCode).Str("endpoint", apiErr.Endpoint).Msg("Access token rejected, clearing credential")
	if clearErr := c.credentials.Clear(ctx); clearErr != nil {
		c.logger.Error().Err(clearErr).Msg("Failed to clear rejected credential")
		return errors.Join(err, fmt.Errorf("[Client.get] clearing credential: %w", clearErr))
	}
	return err
}

// GetMe retrieves the user who authorized the app.
func (c *Client) GetMe(ctx context.Context) (*User, error) {
	var resp meResponse
	if err := c.get(ctx, "/me", &resp); err != nil {
		return nil, err
	}
	return &User{
		ID:            resp.Item.ID,
		Email:         resp.Item.Email,
		PreferredName: resp.Item.PreferredName,
		FirstName:     resp.Item.FirstName,
		LastName:      resp.Item.LastName,
	}, nil
}

// GetAccounts retrieves all connected accounts.
func (c *Client) GetAccounts(ctx context.Context) ([]Account, error) {
	var resp accountsResponse
	if err := c.get(ctx, "/accounts", &resp); err != nil {
		return nil, err
	}

	accounts := make([]Account, len(resp.Items))
	for i, a := range resp.Items {
		accounts[i] = a.toAccount()
	}
	return accounts, nil
}

// TransactionQuery filters a transaction listing. Zero fields are omitted.
type TransactionQuery struct {
	AccountID string
	Start     time.Time
	End       time.Time
	Size      int
}

// LastDays returns the query the app uses for its transaction list: the
// given number of days up to now, one page of DefaultPageSize.
func LastDays(accountID string, days int, now time.Time) TransactionQuery {
	return TransactionQuery{
		AccountID: accountID,
		Start:     now.AddDate(0, 0, -days),
		End:       now,
		Size:      DefaultPageSize,
	}
}

func (q TransactionQuery) values() url.Values {
	v := url.Values{}
	if q.AccountID != "" {
		v.Set("account", q.AccountID)
	}
	if !q.Start.IsZero() {
		v.Set("start", q.Start.UTC().Format(dateLayout))
	}
	if !q.End.IsZero() {
		v.Set("end", q.End.UTC().Format(dateLayout))
	}
	if q.Size > 0 {
		v.Set("size", strconv.Itoa(q.Size))
	}
	return v
}

// GetTransactions retrieves transactions matching q.
func (c *Client) GetTransactions(ctx context.Context, q TransactionQuery) ([]Transaction, error) {
	path := "/transactions"
	if v := q.values(); len(v) > 0 {
		path += "?" + v.Encode()
	}

	var resp transactionsResponse
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}

	transactions := make([]Transaction, len(resp.Items))
	for i, t := range resp.Items {
		transactions[i] = t.toTransaction()
	}
	return transactions, nil
}

// IsConnected checks the API with the stored credential. A missing or
// rejected credential reports false; a rejected one has already been cleared.
func (c *Client) IsConnected(ctx context.Context) (bool, error) {
	_, err := c.GetMe(ctx)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, apperrors.ErrUnauthenticated) && !errors.Is(err, apperrors.ErrStorage) {
		return false, nil
	}
	return false, err
}
