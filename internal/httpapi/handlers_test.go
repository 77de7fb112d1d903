package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"bankrest.org/internal/auth"
	"bankrest.org/internal/ledger"
)

type stubRates struct {
	rates map[string]float64
	err   error
}

func (s *stubRates) Rates(ctx context.Context, codes []string) (map[string]float64, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.rates, nil
}

func newTestAPI(t *testing.T) *API {
	t.Helper()
	users := auth.NewInMemoryUserStore()
	tokens, err := auth.NewTokenService(users, "test-secret")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	eng := ledger.New(ledger.NewInMemory(), &stubRates{rates: map[string]float64{"EUR": 0.5}})
	return New(ReadyProbe{}, "test", eng, auth.NewService(users, auth.BcryptVerifier{}, tokens))
}

func doJSON(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func loginTestUser(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := doJSON(t, h, http.MethodPost, "/v1/auth/register", "", credentialsRequest{Name: "alice", Password: "pw"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: %d %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, h, http.MethodPost, "/v1/auth/token", "", credentialsRequest{Name: "alice", Password: "pw"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: %d %s", rec.Code, rec.Body.String())
	}
	return decodeBody[auth.TokenPair](t, rec).AccessToken
}

func TestHealthz(t *testing.T) {
	a := newTestAPI(t)
	rec := doJSON(t, a.Handler(), http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz: %d", rec.Code)
	}
}

func TestAccountLifecycle(t *testing.T) {
	a := newTestAPI(t)
	h := a.Handler()
	token := loginTestUser(t, h)

	rec := doJSON(t, h, http.MethodPost, "/v1/accounts", token, createAccountRequest{Name: "S"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	sender := decodeBody[ledger.Account](t, rec)

	rec = doJSON(t, h, http.MethodPost, "/v1/accounts", token, createAccountRequest{Name: "R"})
	recipient := decodeBody[ledger.Account](t, rec)

	rec = doJSON(t, h, http.MethodPost, "/v1/accounts/"+sender.ID+"/deposit", token, amountRequest{Amount: 100})
	if rec.Code != http.StatusOK {
		t.Fatalf("deposit: %d %s", rec.Code, rec.Body.String())
	}
	if got := decodeBody[ledger.Account](t, rec); got.Balance != 100 {
		t.Fatalf("balance after deposit = %d", got.Balance)
	}

	rec = doJSON(t, h, http.MethodPost, "/v1/transfers", token, transferRequest{
		SenderID: sender.ID, RecipientID: recipient.ID, Amount: 30,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("transfer: %d %s", rec.Code, rec.Body.String())
	}
	tr := decodeBody[transferResponse](t, rec)
	if tr.Sender.Balance != 70 || tr.Recipient.Balance != 30 {
		t.Fatalf("unexpected balances: %+v", tr)
	}

	rec = doJSON(t, h, http.MethodPost, "/v1/accounts/"+sender.ID+"/withdraw", token, amountRequest{Amount: 70})
	if rec.Code != http.StatusOK {
		t.Fatalf("withdraw: %d %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodGet, "/v1/accounts/"+sender.ID, token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: %d", rec.Code)
	}
	if got := decodeBody[ledger.Account](t, rec); got.Balance != 0 {
		t.Fatalf("final balance = %d", got.Balance)
	}

	rec = doJSON(t, h, http.MethodGet, "/v1/accounts?sort_by=name&page_size=1&page=2", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: %d", rec.Code)
	}
	list := decodeBody[listAccountsResponse](t, rec)
	if list.Page.TotalItemCount != 2 || len(list.Items) != 1 || list.Items[0].Name != "S" {
		t.Fatalf("unexpected list: %+v", list)
	}
}

func TestConvertEndpoint(t *testing.T) {
	a := newTestAPI(t)
	h := a.Handler()
	token := loginTestUser(t, h)

	rec := doJSON(t, h, http.MethodPost, "/v1/accounts", token, createAccountRequest{Name: "A"})
	acc := decodeBody[ledger.Account](t, rec)
	_ = doJSON(t, h, http.MethodPost, "/v1/accounts/"+acc.ID+"/deposit", token, amountRequest{Amount: 100})

	rec = doJSON(t, h, http.MethodPost, "/v1/accounts/"+acc.ID+"/convert", token, convertRequest{Currencies: []string{"EUR"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("convert: %d %s", rec.Code, rec.Body.String())
	}
	out := decodeBody[ledger.ConvertedBalances](t, rec)
	if out.Converted["EUR"] != 50 {
		t.Fatalf("unexpected conversion: %+v", out)
	}
}

func TestErrorStatusMapping(t *testing.T) {
	a := newTestAPI(t)
	h := a.Handler()
	token := loginTestUser(t, h)

	rec := doJSON(t, h, http.MethodPost, "/v1/accounts", token, createAccountRequest{Name: "  "})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty name: %d", rec.Code)
	}
	rec = doJSON(t, h, http.MethodGet, "/v1/accounts/ghost", token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing account: %d", rec.Code)
	}
	rec = doJSON(t, h, http.MethodPost, "/v1/transfers", token, transferRequest{SenderID: "x", RecipientID: "x", Amount: 1})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("duplicate ids: %d", rec.Code)
	}
}

func TestConvertGatewayErrors(t *testing.T) {
	users := auth.NewInMemoryUserStore()
	tokens, _ := auth.NewTokenService(users, "test-secret")
	gw := &stubRates{err: ledger.ErrInvalidCurrency}
	eng := ledger.New(ledger.NewInMemory(), gw)
	a := New(ReadyProbe{}, "test", eng, auth.NewService(users, auth.BcryptVerifier{}, tokens))
	h := a.Handler()
	token := loginTestUser(t, h)

	rec := doJSON(t, h, http.MethodPost, "/v1/accounts", token, createAccountRequest{Name: "A"})
	acc := decodeBody[ledger.Account](t, rec)

	rec = doJSON(t, h, http.MethodPost, "/v1/accounts/"+acc.ID+"/convert", token, convertRequest{Currencies: []string{"XXX"}})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid currency: %d", rec.Code)
	}

	gw.err = fmt.Errorf("%w: status 502", ledger.ErrUpstreamUnavailable)
	rec = doJSON(t, h, http.MethodPost, "/v1/accounts/"+acc.ID+"/convert", token, convertRequest{Currencies: []string{"EUR"}})
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("upstream failure: %d", rec.Code)
	}
}

func TestAccountsRequireAuth(t *testing.T) {
	a := newTestAPI(t)
	h := a.Handler()

	rec := doJSON(t, h, http.MethodGet, "/v1/accounts", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: %d", rec.Code)
	}
	rec = doJSON(t, h, http.MethodGet, "/v1/accounts", "garbage", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: %d", rec.Code)
	}
}

func TestRefreshAndRevokeEndpoints(t *testing.T) {
	a := newTestAPI(t)
	h := a.Handler()

	rec := doJSON(t, h, http.MethodPost, "/v1/auth/register", "", credentialsRequest{Name: "bob", Password: "pw"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: %d", rec.Code)
	}
	rec = doJSON(t, h, http.MethodPost, "/v1/auth/token", "", credentialsRequest{Name: "bob", Password: "pw"})
	pair := decodeBody[auth.TokenPair](t, rec)

	rec = doJSON(t, h, http.MethodPost, "/v1/auth/refresh", "", refreshRequest{Name: "bob", RefreshToken: pair.RefreshToken})
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh: %d %s", rec.Code, rec.Body.String())
	}
	rotated := decodeBody[auth.TokenPair](t, rec)

	// The consumed token is spent.
	rec = doJSON(t, h, http.MethodPost, "/v1/auth/refresh", "", refreshRequest{Name: "bob", RefreshToken: pair.RefreshToken})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("spent token: %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPost, "/v1/auth/revoke", "", refreshRequest{Name: "bob", RefreshToken: rotated.RefreshToken})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("revoke: %d %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, h, http.MethodPost, "/v1/auth/refresh", "", refreshRequest{Name: "bob", RefreshToken: rotated.RefreshToken})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("revoked token: %d", rec.Code)
	}
}
