package http

import (
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"cashflow/internal/core"
)

type accountRequest struct {
	Name string `json:"name"`
}

type categoryRequest struct {
	Name     string `json:"name"`
	ParentID *int64 `json:"parent"`
}

type transactionRequest struct {
	Date       core.Date  `json:"date"`
	Type       string     `json:"type"`
	Amount     core.Money `json:"amount"`
	AccountID  int64      `json:"account"`
	CategoryID int64      `json:"category"`
	Note       string     `json:"note"`
	CreatedBy  string     `json:"created_by"`
}

type monthConfigRequest struct {
	AccountID      int64      `json:"account"`
	Month          core.Month `json:"month"`
	IncomeBase     core.Money `json:"income_base"`
	OpeningBalance core.Money `json:"opening_balance"`
}

type budgetRequest struct {
	CategoryID int64           `json:"category"`
	Month      core.Month      `json:"month"`
	RuleType   string          `json:"rule_type"`
	Value      decimal.Decimal `json:"value"`
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.ledger.ListAccounts(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(nonNil(accounts)).Write(w)
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	a, err := s.ledger.CreateAccount(r.Context(), sanitizeInput(req.Name))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/accounts/"+strconv.FormatInt(a.ID, 10)).
		Body(a).
		Write(w)
}

func (s *Server) handleRenameAccount(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req accountRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	a, err := s.ledger.RenameAccount(r.Context(), id, sanitizeInput(req.Name))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(a).Write(w)
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.ledger.DeleteAccount(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.ledger.ListCategories(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(nonNil(cats)).Write(w)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := s.ledger.CreateCategory(r.Context(), sanitizeInput(req.Name), req.ParentID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(c).Write(w)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	f, err := ParseTransactionFilter(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	txs, err := s.ledger.ListTransactions(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(nonNil(txs)).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	txType, err := core.ParseTransactionType(req.Type)
	if err != nil {
		writeError(w, r, err)
		return
	}
	tx, err := s.ledger.RecordTransaction(r.Context(), core.Transaction{
		Date:       req.Date,
		Type:       txType,
		Amount:     req.Amount,
		AccountID:  req.AccountID,
		CategoryID: req.CategoryID,
		Note:       sanitizeInput(req.Note),
		CreatedBy:  sanitizeInput(req.CreatedBy),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/transactions/"+strconv.FormatInt(tx.ID, 10)).
		Body(tx).
		Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.ledger.DeleteTransaction(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleListMonthConfigs(w http.ResponseWriter, r *http.Request) {
	month, err := ParseMonthParam(r.URL.Query(), "month", s.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	configs, err := s.ledger.ListMonthConfigs(r.Context(), month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(nonNil(configs)).Write(w)
}

func (s *Server) handleSaveMonthConfig(w http.ResponseWriter, r *http.Request) {
	var req monthConfigRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	saved, err := s.ledger.SaveMonthConfig(r.Context(), core.MonthConfig(req))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(saved).Write(w)
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	month, err := ParseMonthParam(r.URL.Query(), "month", s.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	budgets, err := s.ledger.ListBudgets(r.Context(), month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(nonNil(budgets)).Write(w)
}

func (s *Server) handleUpsertBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	saved, err := s.ledger.UpsertBudget(r.Context(), core.Budget{
		CategoryID: req.CategoryID,
		Month:      req.Month,
		RuleType:   core.RuleType(req.RuleType),
		Value:      req.Value,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(saved).Write(w)
}

// nonNil keeps empty lists encoding as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
