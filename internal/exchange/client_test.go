package exchange

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"bankrest.org/internal/ledger"
)

func TestRates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("apikey"); got != "k" {
			t.Errorf("apikey header = %q", got)
		}
		if got := r.URL.Query().Get("currencies"); got != "EUR,GBP" {
			t.Errorf("currencies = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"EUR":0.93,"GBP":0.79}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k")
	rates, err := c.Rates(context.Background(), []string{"EUR", "GBP"})
	if err != nil {
		t.Fatal(err)
	}
	if rates["EUR"] != 0.93 || rates["GBP"] != 0.79 {
		t.Fatalf("unexpected rates: %v", rates)
	}
}

func TestRatesEmptyCodeList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("currencies"); got != "" {
			t.Errorf("currencies = %q, want empty", got)
		}
		_, _ = w.Write([]byte(`{"data":{"EUR":0.93}}`))
	}))
	defer srv.Close()

	if _, err := NewClient(srv.URL, "k").Rates(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
}

func TestRatesInvalidCurrency(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "k").Rates(context.Background(), []string{"XXX"})
	if !errors.Is(err, ledger.ErrInvalidCurrency) {
		t.Fatalf("expected ErrInvalidCurrency, got %v", err)
	}
}

func TestRatesUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "k").Rates(context.Background(), []string{"EUR"})
	if !errors.Is(err, ledger.ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}

	// Transport errors classify the same way.
	srv.Close()
	_, err = NewClient(srv.URL, "k").Rates(context.Background(), []string{"EUR"})
	if !errors.Is(err, ledger.ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
}
