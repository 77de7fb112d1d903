package ledger

import (
	"context"
	"strings"
)

const (
	defaultPageSize = 5
	maxPageSize     = 32
)

// Store describes the persistence operations required by the ledger engine.
// Every call is a single transactional unit; Transfer applies both legs
// atomically or not at all.
type Store interface {
	Create(ctx context.Context, name string) (Account, error)
	Get(ctx context.Context, id string) (Account, error)
	List(ctx context.Context, f ListFilter) ([]Account, int, error)
	// ApplyDelta adjusts a balance by a signed amount. Implementations must
	// reject a result below zero with ErrInsufficientFunds even under
	// concurrent callers.
	ApplyDelta(ctx context.Context, id string, delta int64) (Account, error)
	// Transfer debits sender and credits recipient as one atomic unit and
	// returns both updated accounts in that order.
	Transfer(ctx context.Context, senderID, recipientID string, amount int64) (Account, Account, error)
}

// RateGateway resolves exchange rates relative to the home unit.
// An empty code list means "all supported currencies".
type RateGateway interface {
	Rates(ctx context.Context, codes []string) (map[string]float64, error)
}

// Engine enforces balance invariants over a Store. It holds no state of
// its own; concurrent use is bounded only by the store.
type Engine struct {
	store Store
	rates RateGateway
}

// New constructs an Engine. The gateway may be nil if ConvertBalances is
// never used (e.g., smoke tooling).
func New(store Store, rates RateGateway) *Engine {
	return &Engine{store: store, rates: rates}
}

// Create opens an account with a zero balance.
func (e *Engine) Create(ctx context.Context, name string) (Account, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Account{}, ErrEmptyName
	}
	return e.store.Create(ctx, name)
}

// Get returns the account or ErrNotFound.
func (e *Engine) Get(ctx context.Context, id string) (Account, error) {
	return e.store.Get(ctx, id)
}

// List returns one page of accounts plus pagination metadata. The total
// count reflects the filtered set before paging.
//
// Descending reverses only the already-paged window, not the whole result
// set. That matches the behavior callers depend on; see DESIGN.md.
func (e *Engine) List(ctx context.Context, q ListQuery) ([]Account, PageMeta, error) {
	page := q.PageNumber
	if page < 1 {
		page = 1
	}
	size := q.PageSize
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	f := ListFilter{
		Name:   strings.TrimSpace(q.Name),
		SortBy: normalizeSortKey(q.SortBy),
		Skip:   size * (page - 1),
		Take:   size,
	}
	items, total, err := e.store.List(ctx, f)
	if err != nil {
		return nil, PageMeta{}, err
	}
	if q.Descending {
		for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
			items[i], items[j] = items[j], items[i]
		}
	}
	meta := PageMeta{TotalItemCount: total, PageSize: size, PageNumber: page}
	return items, meta, nil
}

// Deposit adds amount to the account balance.
func (e *Engine) Deposit(ctx context.Context, id string, amount int64) (Account, error) {
	if amount <= 0 {
		return Account{}, ErrNonpositiveAmount
	}
	if _, err := e.store.Get(ctx, id); err != nil {
		return Account{}, err
	}
	return e.store.ApplyDelta(ctx, id, amount)
}

// Withdraw subtracts amount from the account balance. The store re-validates
// the balance inside its own transaction; the read here fixes the error
// ordering (NotFound before InsufficientFunds).
func (e *Engine) Withdraw(ctx context.Context, id string, amount int64) (Account, error) {
	if amount <= 0 {
		return Account{}, ErrNonpositiveAmount
	}
	acc, err := e.store.Get(ctx, id)
	if err != nil {
		return Account{}, err
	}
	if amount > acc.Balance {
		return Account{}, ErrInsufficientFunds
	}
	return e.store.ApplyDelta(ctx, id, -amount)
}

// Transfer moves amount from sender to recipient as one atomic unit.
// The duplicate-id check runs before any other validation, existence
// included; a transfer between two equal unknown ids reports ErrDuplicateID.
func (e *Engine) Transfer(ctx context.Context, senderID, recipientID string, amount int64) (Account, Account, error) {
	if senderID == recipientID {
		return Account{}, Account{}, ErrDuplicateID
	}
	if amount <= 0 {
		return Account{}, Account{}, ErrNonpositiveAmount
	}
	sender, err := e.store.Get(ctx, senderID)
	if err != nil {
		return Account{}, Account{}, err
	}
	if _, err := e.store.Get(ctx, recipientID); err != nil {
		return Account{}, Account{}, err
	}
	if amount > sender.Balance {
		return Account{}, Account{}, ErrInsufficientFunds
	}
	return e.store.Transfer(ctx, senderID, recipientID, amount)
}

// ConvertBalances projects the home balance into the requested currencies.
// An empty code list asks the gateway for all supported currencies.
// Gateway errors are surfaced verbatim, classification included.
func (e *Engine) ConvertBalances(ctx context.Context, id string, codes []string) (ConvertedBalances, error) {
	acc, err := e.store.Get(ctx, id)
	if err != nil {
		return ConvertedBalances{}, err
	}
	rates, err := e.rates.Rates(ctx, codes)
	if err != nil {
		return ConvertedBalances{}, err
	}
	converted := make(map[string]float64, len(rates))
	for code, rate := range rates {
		converted[code] = rate * float64(acc.Balance)
	}
	return ConvertedBalances{
		AccountID: acc.ID,
		Name:      acc.Name,
		Balance:   acc.Balance,
		Converted: converted,
	}, nil
}

func normalizeSortKey(k SortKey) SortKey {
	switch SortKey(strings.ToLower(strings.TrimSpace(string(k)))) {
	case SortName:
		return SortName
	case SortBalance:
		return SortBalance
	default:
		return SortNone
	}
}
