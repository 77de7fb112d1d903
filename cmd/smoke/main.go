// Smoke test against a running bankrest-api instance: registers a user,
// creates two accounts, moves money between them and checks conservation.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"time"
)

type account struct {
	ID      string `json:"id"`
	Balance int64  `json:"balance"`
}

type tokenPair struct {
	AccessToken string `json:"access_token"`
}

type transferResult struct {
	Sender    account `json:"sender"`
	Recipient account `json:"recipient"`
}

type client struct {
	base  string
	token string
	http  *http.Client
}

func (c *client) do(method, path string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequest(method, c.base+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func main() {
	base := os.Getenv("BANKREST_API_URL")
	if base == "" {
		base = "http://localhost:8080"
	}
	c := &client{base: base, http: &http.Client{Timeout: 5 * time.Second}}

	creds := map[string]string{
		"name":     fmt.Sprintf("smoke-%d", rand.New(rand.NewSource(time.Now().UnixNano())).Int()),
		"password": "smoke-secret-1",
	}
	if err := c.do("POST", "/v1/auth/register", creds, nil); err != nil {
		log.Fatalf("register: %v", err)
	}
	var pair tokenPair
	if err := c.do("POST", "/v1/auth/token", creds, &pair); err != nil {
		log.Fatalf("login: %v", err)
	}
	c.token = pair.AccessToken

	var src, dst account
	if err := c.do("POST", "/v1/accounts", map[string]string{"name": "smoke-src"}, &src); err != nil {
		log.Fatalf("create source account: %v", err)
	}
	if err := c.do("POST", "/v1/accounts", map[string]string{"name": "smoke-dst"}, &dst); err != nil {
		log.Fatalf("create destination account: %v", err)
	}

	const funded, moved = int64(1_000), int64(420)
	if err := c.do("POST", "/v1/accounts/"+src.ID+"/deposit", map[string]int64{"amount": funded}, &src); err != nil {
		log.Fatalf("deposit: %v", err)
	}

	var result transferResult
	if err := c.do("POST", "/v1/transfers", map[string]any{
		"sender_id":    src.ID,
		"recipient_id": dst.ID,
		"amount":       moved,
	}, &result); err != nil {
		log.Fatalf("transfer: %v", err)
	}

	if result.Sender.Balance+result.Recipient.Balance != funded {
		log.Fatalf("conservation failed: %d + %d", result.Sender.Balance, result.Recipient.Balance)
	}
	if result.Sender.Balance != funded-moved || result.Recipient.Balance != moved {
		log.Fatalf("unexpected balances: sender=%d recipient=%d", result.Sender.Balance, result.Recipient.Balance)
	}

	fmt.Printf("✅ bankrest smoke test passed: accounts=%s,%s\n", src.ID, dst.ID)
}
