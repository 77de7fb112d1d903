package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"bankrest.org/internal/ledger"
)

type createAccountRequest struct {
	Name string `json:"name"`
}

type amountRequest struct {
	Amount int64 `json:"amount"`
}

type transferRequest struct {
	SenderID    string `json:"sender_id"`
	RecipientID string `json:"recipient_id"`
	Amount      int64  `json:"amount"`
}

type transferResponse struct {
	Sender    ledger.Account `json:"sender"`
	Recipient ledger.Account `json:"recipient"`
}

type convertRequest struct {
	Currencies []string `json:"currencies"`
}

type listAccountsResponse struct {
	Items []ledger.Account `json:"items"`
	Page  ledger.PageMeta  `json:"page"`
}

func (a *API) handleAccountsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.createAccount(w, r)
	case http.MethodGet:
		a.listAccounts(w, r)
	default:
		methodNotAllowed(w, "GET, POST")
	}
}

func (a *API) handleAccountResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/accounts/")
	if path == "" {
		writeError(w, http.StatusNotFound, "resource not found")
		return
	}

	id, action, _ := strings.Cut(path, "/")
	if id == "" || strings.Contains(action, "/") {
		writeError(w, http.StatusNotFound, "resource not found")
		return
	}

	switch action {
	case "":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		a.getAccount(w, r, id)
	case "deposit":
		a.applyAmount(w, r, id, a.ledger.Deposit)
	case "withdraw":
		a.applyAmount(w, r, id, a.ledger.Withdraw)
	case "convert":
		a.convertBalances(w, r, id)
	default:
		writeError(w, http.StatusNotFound, "resource not found")
	}
}

func (a *API) handleTransfers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	var req transferRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sender, recipient, err := a.ledger.Transfer(r.Context(), req.SenderID, req.RecipientID, req.Amount)
	if err != nil {
		handleLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, transferResponse{Sender: sender, Recipient: recipient})
}

func (a *API) createAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	acc, err := a.ledger.Create(r.Context(), req.Name)
	if err != nil {
		handleLedgerError(w, err)
		return
	}
	w.Header().Set("Location", "/v1/accounts/"+acc.ID)
	writeJSON(w, http.StatusCreated, acc)
}

func (a *API) getAccount(w http.ResponseWriter, r *http.Request, id string) {
	acc, err := a.ledger.Get(r.Context(), id)
	if err != nil {
		handleLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, acc)
}

func (a *API) listAccounts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := ledger.ListQuery{
		Name:       q.Get("name"),
		SortBy:     ledger.SortKey(q.Get("sort_by")),
		Descending: q.Get("desc") == "true",
	}
	// Out-of-range values are normalized by the engine.
	query.PageNumber, _ = strconv.Atoi(q.Get("page"))
	query.PageSize, _ = strconv.Atoi(q.Get("page_size"))

	items, meta, err := a.ledger.List(r.Context(), query)
	if err != nil {
		handleLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listAccountsResponse{Items: items, Page: meta})
}

func (a *API) applyAmount(w http.ResponseWriter, r *http.Request, id string, op func(context.Context, string, int64) (ledger.Account, error)) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	var req amountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	acc, err := op(r.Context(), id, req.Amount)
	if err != nil {
		handleLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, acc)
}

func (a *API) convertBalances(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	var req convertRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := a.ledger.ConvertBalances(r.Context(), id, req.Currencies)
	if err != nil {
		handleLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
