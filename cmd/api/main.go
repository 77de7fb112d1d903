package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bankrest.org/internal/auth"
	"bankrest.org/internal/exchange"
	"bankrest.org/internal/httpapi"
	"bankrest.org/internal/ledger"
	"bankrest.org/internal/obs"
	"bankrest.org/internal/store/pg"
)

var version = "0.3.0"

const defaultExchangeURL = "https://api.freecurrencyapi.com/v1/latest"

func main() {
	obs.Init()
	obs.InitBuildInfo(version, os.Getenv("BANKREST_COMMIT"))

	secret := os.Getenv("BANKREST_AUTH_SECRET")
	if secret == "" {
		log.Fatal("BANKREST_AUTH_SECRET is required")
	}

	// Storage: PostgreSQL when a DSN is set, in-memory otherwise.
	var (
		accounts ledger.Store
		users    auth.UserStore
		db       *sql.DB
	)
	if dsn := os.Getenv("BANKREST_PG_DSN"); dsn != "" {
		pgStore, err := pg.Open(dsn)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		db = pgStore.DB()
		accounts = pgStore
		users = auth.NewPGUserStore(db)
	} else {
		log.Println("BANKREST_PG_DSN not set, using in-memory storage")
		accounts = ledger.NewInMemory()
		users = auth.NewInMemoryUserStore()
	}

	exchangeURL := os.Getenv("BANKREST_EXCHANGE_URL")
	if exchangeURL == "" {
		exchangeURL = defaultExchangeURL
	}
	rates := exchange.NewClient(exchangeURL, os.Getenv("BANKREST_EXCHANGE_APIKEY"))

	engine := ledger.New(accounts, rates)

	tokens, err := auth.NewTokenService(users, secret)
	if err != nil {
		log.Fatalf("token service: %v", err)
	}
	authSvc := auth.NewService(users, auth.BcryptVerifier{}, tokens)

	api := httpapi.New(httpapi.ReadyProbe{DB: db}, version, engine, authSvc)

	addr := os.Getenv("BANKREST_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting bankrest-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if db != nil {
		_ = db.Close()
	}
	log.Println("Stopped")
}
