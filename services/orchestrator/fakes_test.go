package orchestrator

import (
	// Go Internal Packages
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	// Local Packages
	models "bgmock-twin/models"
)

// fakeBank serves the subset of the bank API the harness calls.
type fakeBank struct {
	mu              sync.Mutex
	accounts        map[string]models.Account
	deleted         []string
	transactions    int
	outgoing        int
	finalStatus     models.TransactionStatus
	failAccounts    bool
	failTransaction bool
}

func newFakeBank(t *testing.T) (*fakeBank, *httptest.Server) {
	t.Helper()
	b := &fakeBank{accounts: make(map[string]models.Account), finalStatus: models.StatusSuccess}
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)
	return b, srv
}

func (b *fakeBank) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/health":
		w.WriteHeader(http.StatusOK)

	case r.Method == http.MethodPost && r.URL.Path == "/api/accounts":
		if b.failAccounts {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		var account models.Account
		if err := json.NewDecoder(r.Body).Decode(&account); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		account.AccountID = "acc-" + account.AccountNumber
		b.accounts[account.AccountNumber] = account
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(account)

	case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/bank/account/"):
		b.deleted = append(b.deleted, strings.TrimPrefix(r.URL.Path, "/bank/account/"))
		w.WriteHeader(http.StatusNoContent)

	case r.Method == http.MethodPost && r.URL.Path == "/api/transactions":
		if b.failTransaction {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		b.transactions++
		_ = json.NewEncoder(w).Encode(map[string]any{"transactionId": body["transactionId"], "status": "PENDING"})

	case r.Method == http.MethodPost && r.URL.Path == "/bank/transaction/outgoing":
		b.outgoing++
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(map[string]any{"transactionId": fmt.Sprintf("out-%d", b.outgoing), "status": "PENDING"})

	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/bank/transaction/outgoing/"):
		id := strings.TrimPrefix(r.URL.Path, "/bank/transaction/outgoing/")
		_ = json.NewEncoder(w).Encode(map[string]any{"transactionId": id, "status": b.finalStatus})

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (b *fakeBank) accountCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.accounts)
}

// fakeClearing records mapping calls.
type fakeClearing struct {
	mu       sync.Mutex
	mappings map[string]models.BankMapping
	deleted  []string
}

func newFakeClearing(t *testing.T) (*fakeClearing, *httptest.Server) {
	t.Helper()
	c := &fakeClearing{mappings: make(map[string]models.BankMapping)}
	srv := httptest.NewServer(c)
	t.Cleanup(srv.Close)
	return c, srv
}

func (c *fakeClearing) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/health":
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodPost && r.URL.Path == "/clearing/bank-mapping":
		var mapping models.BankMapping
		_ = json.NewDecoder(r.Body).Decode(&mapping)
		c.mappings[mapping.BankgoodNumber] = mapping
		w.WriteHeader(http.StatusCreated)
	case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/clearing/bank-mapping/"):
		c.deleted = append(c.deleted, strings.TrimPrefix(r.URL.Path, "/clearing/bank-mapping/"))
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type fakePublisher struct {
	mu        sync.Mutex
	available bool
	ack       bool
	sent      []string
}

func (p *fakePublisher) Available() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.available
}

func (p *fakePublisher) Publish(_ context.Context, topic, key string, _ any) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.available || !p.ack {
		return false
	}
	p.sent = append(p.sent, topic+"/"+key)
	return true
}

// fakeSubscription blocks in Poll until stopped or canceled.
type fakeSubscription struct {
	started chan struct{}
	stop    chan struct{}
	once    sync.Once
}

func newFakeSubscription() *fakeSubscription {
	return &fakeSubscription{started: make(chan struct{}), stop: make(chan struct{})}
}

func (s *fakeSubscription) Poll(ctx context.Context) error {
	close(s.started)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.stop:
		return nil
	}
}

func (s *fakeSubscription) Stop() {
	s.once.Do(func() { close(s.stop) })
}

// fakeClock is a settable wall clock.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// Sleep advances the clock instead of blocking.
func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.Advance(d)
	return ctx.Err()
}

func (b *fakeBank) outgoingCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.outgoing
}

func (b *fakeBank) deletedAccounts() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.deleted...)
}

func (c *fakeClearing) mapping(bankgood string) (models.BankMapping, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.mappings[bankgood]
	return m, ok
}

func (c *fakeClearing) deletedMappings() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.deleted...)
}
