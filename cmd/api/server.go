package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/accountstreams/account-cqrs-go/account/command"
	"github.com/accountstreams/account-cqrs-go/account/core"
	"github.com/accountstreams/account-cqrs-go/eventstore"
	"github.com/accountstreams/account-cqrs-go/projection/accounts"
)

var json = jsoniter.ConfigFastest

type server struct {
	dispatcher command.Dispatcher
	readStore  accounts.ReadStore
	logger     *slog.Logger
}

func newServer(dispatcher command.Dispatcher, readStore accounts.ReadStore, logger *slog.Logger) *server {
	return &server{
		dispatcher: dispatcher,
		readStore:  readStore,
		logger:     logger,
	}
}

func (s *server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /accounts", s.handleCreateAccount)
	mux.HandleFunc("POST /accounts/{id}/deposit", s.handleDepositMoney)
	mux.HandleFunc("POST /accounts/{id}/withdraw", s.handleWithdrawMoney)
	mux.HandleFunc("GET /accounts", s.handleListAccounts)

	return mux
}

type createAccountRequest struct {
	Owner          string `json:"owner"`
	InitialBalance int64  `json:"initialBalance"`
}

type amountRequest struct {
	Amount int64 `json:"amount"`
}

type accountIDResponse struct {
	ID uuid.UUID `json:"id"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Owner == "" {
		s.writeError(w, http.StatusBadRequest, "owner must not be empty")
		return
	}

	var accountID uuid.UUID

	err := retryOnConflict(r.Context(), func(ctx context.Context) error {
		cmd := command.BuildCreateAccount(req.Owner, req.InitialBalance, time.Now())

		id, dispatchErr := s.dispatcher.Dispatch(ctx, cmd)
		if dispatchErr != nil {
			return dispatchErr
		}

		accountID = id

		return nil
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, accountIDResponse{ID: accountID})
}

func (s *server) handleDepositMoney(w http.ResponseWriter, r *http.Request) {
	accountID, req, ok := s.decodeAmountRequest(w, r)
	if !ok {
		return
	}

	err := retryOnConflict(r.Context(), func(ctx context.Context) error {
		cmd := command.BuildDepositMoney(accountID, req.Amount, time.Now())
		_, dispatchErr := s.dispatcher.Dispatch(ctx, cmd)

		return dispatchErr
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, accountIDResponse{ID: accountID})
}

func (s *server) handleWithdrawMoney(w http.ResponseWriter, r *http.Request) {
	accountID, req, ok := s.decodeAmountRequest(w, r)
	if !ok {
		return
	}

	err := retryOnConflict(r.Context(), func(ctx context.Context) error {
		cmd := command.BuildWithdrawMoney(accountID, req.Amount, time.Now())
		_, dispatchErr := s.dispatcher.Dispatch(ctx, cmd)

		return dispatchErr
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, accountIDResponse{ID: accountID})
}

func (s *server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	rows, err := s.readStore.ListAccounts(r.Context())
	if err != nil {
		s.logger.Error("listing accounts failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "internal error")

		return
	}

	if rows == nil {
		rows = []accounts.AccountRow{}
	}

	s.writeJSON(w, http.StatusOK, rows)
}

func (s *server) decodeAmountRequest(w http.ResponseWriter, r *http.Request) (uuid.UUID, amountRequest, bool) {
	accountID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid account id")
		return uuid.Nil, amountRequest{}, false
	}

	var req amountRequest
	if decodeErr := json.NewDecoder(r.Body).Decode(&req); decodeErr != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return uuid.Nil, amountRequest{}, false
	}

	return accountID, req, true
}

// writeDomainError maps domain and infrastructure errors to HTTP status codes.
func (s *server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrInvalidAmount):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, core.ErrAccountNotActive):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, core.ErrAccountAlreadyExists),
		errors.Is(err, core.ErrInsufficientFunds),
		errors.Is(err, eventstore.ErrConcurrencyConflict):
		s.writeError(w, http.StatusConflict, err.Error())
	default:
		s.logger.Error("command failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("writing response failed", "error", err)
	}
}

func (s *server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, errorResponse{Error: message})
}
