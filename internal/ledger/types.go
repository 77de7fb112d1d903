package ledger

import (
	"errors"
	"time"
)

// Account is a named, balance-holding ledger entity.
// Balance is represented in minor units (e.g., cents). No floats.
type Account struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Balance   int64     `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
}

// SortKey selects the account list ordering.
type SortKey string

const (
	SortNone    SortKey = ""
	SortName    SortKey = "name"
	SortBalance SortKey = "balance"
)

// ListQuery carries caller-facing filter, sort and page parameters.
// Out-of-range values are normalized by the engine (page 1, size 5).
type ListQuery struct {
	Name       string
	SortBy     SortKey
	Descending bool
	PageNumber int
	PageSize   int
}

// ListFilter is the normalized query handed to the store. Stores always
// return items in ascending sort order; the engine owns the descending
// presentation of the page.
type ListFilter struct {
	Name   string
	SortBy SortKey
	Skip   int
	Take   int
}

// PageMeta describes the full result set a page was cut from.
// Derived on every List call, never stored.
type PageMeta struct {
	TotalItemCount int `json:"total_item_count"`
	PageSize       int `json:"page_size"`
	PageNumber     int `json:"page_number"`
}

// ConvertedBalances is a home balance projected into foreign currencies.
type ConvertedBalances struct {
	AccountID string             `json:"account_id"`
	Name      string             `json:"name"`
	Balance   int64              `json:"balance"`
	Converted map[string]float64 `json:"converted"`
}

var (
	ErrNotFound            = errors.New("no account found with that id")
	ErrNonpositiveAmount   = errors.New("amount must be greater than zero")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrEmptyName           = errors.New("name cannot be empty or whitespace")
	ErrDuplicateID         = errors.New("duplicate ids given for sender and recipient")
	ErrInvalidCurrency     = errors.New("invalid currencies inputted")
	ErrUpstreamUnavailable = errors.New("exchange rate provider unavailable")
	ErrConflict            = errors.New("concurrent update detected")
)
