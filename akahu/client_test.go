package akahu_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/moneyguard/akahu"
	"github.com/jrsteele09/moneyguard/credentials"
	apperrors "github.com/jrsteele09/moneyguard/internal/errors"
	"github.com/jrsteele09/moneyguard/vault/memory"
	"github.com/stretchr/testify/require"
)

// api is a scripted data API that records the requests it receives.
type api struct {
	mu      sync.Mutex
	status  int
	body    string
	paths   []string
	headers []string
}

func (a *api) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	a.paths = append(a.paths, r.URL.RequestURI())
	a.headers = append(a.headers, r.Header.Get("Authorization"))
	status, body := a.status, a.body
	a.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func (a *api) respond(status int, body string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.status, a.body = status, body
}

func (a *api) last() (string, string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.paths) == 0 {
		return "", ""
	}
	return a.paths[len(a.paths)-1], a.headers[len(a.headers)-1]
}

func (a *api) calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.paths)
}

func setupTestFixture(t *testing.T) (*akahu.Client, *credentials.Store, *api) {
	t.Helper()
	fake := &api{status: http.StatusOK, body: `{}`}
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	creds, err := credentials.NewStore(memory.New())
	require.NoError(t, err)
	require.NoError(t, creds.Set(context.Background(), "user_token_1"))

	client, err := akahu.NewClient(creds,
		akahu.WithBaseURL(server.URL+"/v1/"),
		akahu.WithHTTPClient(server.Client()),
		akahu.WithRateLimit(1000),
	)
	require.NoError(t, err)
	return client, creds, fake
}

func TestNewClient_RequiresCredentials(t *testing.T) {
	_, err := akahu.NewClient(nil)
	require.Error(t, err)
}

func TestGetMe(t *testing.T) {
	client, _, fake := setupTestFixture(t)
	fake.respond(http.StatusOK, `{"success":true,"item":{"_id":"user_1","email":"kiri@example.nz","preferred_name":"Kiri"}}`)

	me, err := client.GetMe(context.Background())
	require.NoError(t, err)
	require.Equal(t, &akahu.User{ID: "user_1", Email: "kiri@example.nz", PreferredName: "Kiri"}, me)

	path, auth := fake.last()
	require.Equal(t, "/v1/me", path)
	require.Equal(t, "Bearer user_token_1", auth)
}

func TestGetAccounts_Mapping(t *testing.T) {
	client, _, fake := setupTestFixture(t)
	fake.respond(http.StatusOK, `{"success":true,"items":[
		{"_id":"acc_1","name":"Everyday","type":"CHECKING","formatted_account":"12-3456-0000001-00","connection":{"name":"ANZ"},"balance":{"current":1520.5}},
		{"_id":"acc_2","name":"Rainy Day","type":"SAVINGS","formatted_account":"12-3456-0000001-01","connection":{"name":"ANZ"},"balance":{"current":8000}},
		{"_id":"acc_3","name":"Visa","type":"CREDIT_CARD","formatted_account":"4111-****","connection":{"name":"ASB"}}
	]}`)

	accounts, err := client.GetAccounts(context.Background())
	require.NoError(t, err)
	require.Equal(t, []akahu.Account{
		{ID: "acc_1", Name: "Everyday", Bank: "ANZ", AccountNumber: "12-3456-0000001-00", Balance: 1520.5, Type: akahu.AccountChecking},
		{ID: "acc_2", Name: "Rainy Day", Bank: "ANZ", AccountNumber: "12-3456-0000001-01", Balance: 8000, Type: akahu.AccountSavings},
		{ID: "acc_3", Name: "Visa", Bank: "ASB", AccountNumber: "4111-****", Balance: 0, Type: akahu.AccountCredit},
	}, accounts)
}

func TestGetAccounts_NoItems(t *testing.T) {
	client, _, fake := setupTestFixture(t)
	fake.respond(http.StatusOK, `{"success":true}`)

	accounts, err := client.GetAccounts(context.Background())
	require.NoError(t, err)
	require.Empty(t, accounts)
}

func TestGetTransactions(t *testing.T) {
	client, _, fake := setupTestFixture(t)
	fake.respond(http.StatusOK, `{"items":[
		{"_id":"tx_1","_account":"acc_1","amount":-42.5,"description":"COUNTDOWN","date":"2025-03-01T00:00:00.000Z",
		 "category":{"groups":{"personal_finance":{"primary":"Groceries"}}}},
		{"_id":"tx_2","_account":"acc_1","amount":2000,"date":"2025-03-02T00:00:00Z","merchant":{"name":"Employer Ltd"}},
		{"_id":"tx_3","_account":"acc_1","amount":-1,"date":"2025-03-03T00:00:00Z"}
	]}`)

	now := time.Date(2025, 3, 31, 12, 0, 0, 0, time.UTC)
	txs, err := client.GetTransactions(context.Background(), akahu.LastDays("acc_1", 30, now))
	require.NoError(t, err)

	path, _ := fake.last()
	require.Equal(t, "/v1/transactions?account=acc_1&end=2025-03-31&size=100&start=2025-03-01", path)

	require.Equal(t, []akahu.Transaction{
		{ID: "tx_1", AccountID: "acc_1", Amount: 42.5, Description: "COUNTDOWN", Category: "Groceries",
			Date: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), Type: akahu.TransactionDebit},
		{ID: "tx_2", AccountID: "acc_1", Amount: 2000, Description: "Employer Ltd", Category: "Other",
			Date: time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC), Type: akahu.TransactionCredit},
		{ID: "tx_3", AccountID: "acc_1", Amount: 1, Description: "Unknown", Category: "Other",
			Date: time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC), Type: akahu.TransactionDebit},
	}, txs)
}

func TestGetTransactions_EmptyQuery(t *testing.T) {
	client, _, fake := setupTestFixture(t)
	fake.respond(http.StatusOK, `{"items":[]}`)

	_, err := client.GetTransactions(context.Background(), akahu.TransactionQuery{})
	require.NoError(t, err)
	path, _ := fake.last()
	require.Equal(t, "/v1/transactions", path)
}

func TestErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("no credential", func(t *testing.T) {
		client, creds, fake := setupTestFixture(t)
		require.NoError(t, creds.Clear(ctx))

		_, err := client.GetAccounts(ctx)
		require.ErrorIs(t, err, apperrors.ErrUnauthenticated)
		require.Equal(t, 0, fake.calls())
	})

	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			client, creds, fake := setupTestFixture(t)
			fake.respond(status, `{"success":false,"message":"Unauthorized"}`)

			_, err := client.GetAccounts(ctx)
			require.ErrorIs(t, err, apperrors.ErrUnauthenticated)
			var apiErr *akahu.APIError
			require.True(t, errors.As(err, &apiErr))
			require.Equal(t, status, apiErr.StatusCode)

			connected, err := creds.Connected(ctx)
			require.NoError(t, err)
			require.False(t, connected, "rejected credential must be cleared")

			_, err = client.GetTransactions(ctx, akahu.TransactionQuery{})
			require.ErrorIs(t, err, apperrors.ErrUnauthenticated)
			require.Equal(t, 1, fake.calls())
		})
	}

	t.Run("rejection with failed clear", func(t *testing.T) {
		fake := &api{status: http.StatusUnauthorized, body: `{}`}
		server := httptest.NewServer(fake)
		t.Cleanup(server.Close)

		store := memory.New()
		creds, err := credentials.NewStore(store)
		require.NoError(t, err)
		require.NoError(t, creds.Set(ctx, "user_token_1"))
		client, err := akahu.NewClient(creds, akahu.WithBaseURL(server.URL), akahu.WithHTTPClient(server.Client()))
		require.NoError(t, err)

		store.FailOn("delete", errors.New("keystore locked"))
		_, err = client.GetTransactions(ctx, akahu.TransactionQuery{})
		require.ErrorIs(t, err, apperrors.ErrUnauthenticated)
		require.ErrorIs(t, err, apperrors.ErrStorage)

		ok, err := client.IsConnected(ctx)
		require.ErrorIs(t, err, apperrors.ErrStorage)
		require.False(t, ok)
	})

	t.Run("server error", func(t *testing.T) {
		client, _, fake := setupTestFixture(t)
		fake.respond(http.StatusBadGateway, `upstream down`)

		_, err := client.GetAccounts(ctx)
		require.NotErrorIs(t, err, apperrors.ErrUnauthenticated)
		var apiErr *akahu.APIError
		require.True(t, errors.As(err, &apiErr))
		require.Equal(t, "/accounts", apiErr.Endpoint)
		require.Equal(t, "upstream down", apiErr.Message)
	})

	t.Run("token read per request", func(t *testing.T) {
		client, creds, fake := setupTestFixture(t)
		fake.respond(http.StatusOK, `{"item":{"_id":"u"}}`)

		_, err := client.GetMe(ctx)
		require.NoError(t, err)
		require.NoError(t, creds.Set(ctx, "rotated"))
		_, err = client.GetMe(ctx)
		require.NoError(t, err)
		_, auth := fake.last()
		require.Equal(t, "Bearer rotated", auth)
	})
}

func TestIsConnected(t *testing.T) {
	ctx := context.Background()

	t.Run("connected", func(t *testing.T) {
		client, _, fake := setupTestFixture(t)
		fake.respond(http.StatusOK, `{"item":{"_id":"u"}}`)

		ok, err := client.IsConnected(ctx)
		require.NoError(t, err)
		require.True(t, ok)
	})

	t.Run("rejected token is cleared", func(t *testing.T) {
		client, creds, fake := setupTestFixture(t)
		fake.respond(http.StatusUnauthorized, `{}`)

		ok, err := client.IsConnected(ctx)
		require.NoError(t, err)
		require.False(t, ok)

		connected, err := creds.Connected(ctx)
		require.NoError(t, err)
		require.False(t, connected)
	})

	t.Run("no token", func(t *testing.T) {
		client, creds, _ := setupTestFixture(t)
		require.NoError(t, creds.Clear(ctx))

		ok, err := client.IsConnected(ctx)
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("outage keeps token", func(t *testing.T) {
		client, creds, fake := setupTestFixture(t)
		fake.respond(http.StatusServiceUnavailable, `{}`)

		ok, err := client.IsConnected(ctx)
		require.Error(t, err)
		require.False(t, ok)

		connected, err := creds.Connected(ctx)
		require.NoError(t, err)
		require.True(t, connected)
	})
}
