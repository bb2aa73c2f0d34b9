package rpc

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Mardiprk/token-escrow/crypto"
	"github.com/Mardiprk/token-escrow/native/escrow"
	"github.com/Mardiprk/token-escrow/observability"
)

const (
	codeEscrowInvalidParams = -32021
	codeEscrowNotFound      = -32022
	codeEscrowForbidden     = -32023
	codeEscrowConflict      = -32024
	codeEscrowInternal      = -32025
	codeEscrowFunds         = -32026
)

type escrowCreateParams struct {
	Buyer    string `json:"buyer"`
	Seller   string `json:"seller"`
	Amount   string `json:"amount"`
	ItemName string `json:"itemName"`
}

type escrowActorParams struct {
	ID     string `json:"id"`
	Caller string `json:"caller"`
}

type escrowIDParams struct {
	ID string `json:"id"`
}

type balanceParams struct {
	Address string `json:"address"`
}

type escrowCreateResult struct {
	ID    string `json:"id"`
	Vault string `json:"vault"`
}

type escrowJSON struct {
	ID          string `json:"id"`
	Buyer       string `json:"buyer"`
	Seller      string `json:"seller"`
	Amount      string `json:"amount"`
	ItemName    string `json:"itemName"`
	IsCompleted bool   `json:"isCompleted"`
	Vault       string `json:"vault"`
}

type balanceResult struct {
	Address string `json:"address"`
	Balance string `json:"balance"`
}

func (s *Server) handleEscrowCreate(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	start := time.Now()
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params escrowCreateParams
	if !decodeParams(w, req, &params) {
		return
	}
	buyer, err := parseIdentity(params.Buyer)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}
	seller, err := parseIdentity(params.Seller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}

	esc, err := s.engine.Create(buyer, seller, amount, params.ItemName)
	if err != nil {
		observability.Escrow().Observe("create", "error", time.Since(start).Seconds())
		s.writeEscrowError(w, req, err)
		return
	}
	observability.Escrow().Observe("create", "ok", time.Since(start).Seconds())
	key := esc.Key()
	vault := escrow.VaultKey(key)
	s.log.Info("escrow created",
		"id", hex.EncodeToString(key[:]),
		"buyer", params.Buyer,
		"seller", params.Seller,
		"amount", amount,
		"item", esc.ItemName,
	)
	writeResult(w, req.ID, escrowCreateResult{
		ID:    "0x" + hex.EncodeToString(key[:]),
		Vault: "0x" + hex.EncodeToString(vault[:]),
	})
}

func (s *Server) handleEscrowComplete(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.handleSettlement(w, r, req, "complete", s.engine.Complete)
}

func (s *Server) handleEscrowCancel(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.handleSettlement(w, r, req, "cancel", s.engine.Cancel)
}

func (s *Server) handleSettlement(w http.ResponseWriter, r *http.Request, req *RPCRequest, op string, transition func([32]byte, [32]byte) error) {
	start := time.Now()
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params escrowActorParams
	if !decodeParams(w, req, &params) {
		return
	}
	id, err := parseEscrowID(params.ID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseIdentity(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := transition(id, caller); err != nil {
		observability.Escrow().Observe(op, "error", time.Since(start).Seconds())
		s.writeEscrowError(w, req, err)
		return
	}
	observability.Escrow().Observe(op, "ok", time.Since(start).Seconds())
	s.log.Info("escrow settled", "op", op, "id", params.ID, "caller", params.Caller)
	writeResult(w, req.ID, map[string]bool{"ok": true})
}

func (s *Server) handleEscrowGet(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params escrowIDParams
	if !decodeParams(w, req, &params) {
		return
	}
	id, err := parseEscrowID(params.ID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}
	esc, err := s.engine.Get(id)
	if err != nil {
		s.writeEscrowError(w, req, err)
		return
	}
	vault := escrow.VaultKey(id)
	writeResult(w, req.ID, escrowJSON{
		ID:          "0x" + hex.EncodeToString(id[:]),
		Buyer:       crypto.NewAddress(crypto.TokenPrefix, esc.Buyer[:]).String(),
		Seller:      crypto.NewAddress(crypto.TokenPrefix, esc.Seller[:]).String(),
		Amount:      strconv.FormatUint(esc.Amount, 10),
		ItemName:    esc.ItemName,
		IsCompleted: esc.IsCompleted,
		Vault:       "0x" + hex.EncodeToString(vault[:]),
	})
}

func (s *Server) handleTokenBalance(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params balanceParams
	if !decodeParams(w, req, &params) {
		return
	}
	id, err := parseIdentity(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}
	account, err := s.state.GetAccount(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, req.ID, codeEscrowInternal, "internal_error", err.Error())
		return
	}
	balance := big.NewInt(0)
	if account != nil && account.Balance != nil {
		balance = account.Balance
	}
	writeResult(w, req.ID, balanceResult{Address: params.Address, Balance: balance.String()})
}

func decodeParams(w http.ResponseWriter, req *RPCRequest, out interface{}) bool {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", "exactly one parameter object expected")
		return false
	}
	if err := json.Unmarshal(req.Params[0], out); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return false
	}
	return true
}

func (s *Server) writeEscrowError(w http.ResponseWriter, req *RPCRequest, err error) {
	switch {
	case errors.Is(err, escrow.ErrNotFound):
		writeError(w, http.StatusNotFound, req.ID, codeEscrowNotFound, "not_found", err.Error())
	case errors.Is(err, escrow.ErrAlreadyExists), errors.Is(err, escrow.ErrAlreadyCompleted):
		writeError(w, http.StatusConflict, req.ID, codeEscrowConflict, "conflict", err.Error())
	case errors.Is(err, escrow.ErrUnauthorizedCancel),
		errors.Is(err, escrow.ErrUnauthorizedComplete),
		errors.Is(err, escrow.ErrAuthorityMismatch):
		writeError(w, http.StatusForbidden, req.ID, codeEscrowForbidden, "forbidden", err.Error())
	case errors.Is(err, escrow.ErrInsufficientFunds):
		writeError(w, http.StatusUnprocessableEntity, req.ID, codeEscrowFunds, "insufficient_funds", err.Error())
	case errors.Is(err, escrow.ErrInvalidAmount), errors.Is(err, escrow.ErrItemNameTooLong):
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
	default:
		s.log.Error("escrow transition failed", "err", err)
		writeError(w, http.StatusInternalServerError, req.ID, codeEscrowInternal, "internal_error", err.Error())
	}
}

func parseIdentity(value string) ([32]byte, error) {
	var id [32]byte
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return id, fmt.Errorf("identity required")
	}
	addr, err := crypto.DecodeAddress(trimmed)
	if err != nil {
		return id, err
	}
	if addr.Prefix() != crypto.TokenPrefix {
		return id, fmt.Errorf("identity must use %q prefix, got %q", crypto.TokenPrefix, addr.Prefix())
	}
	return addr.ID(), nil
}

// parseEscrowID normalises a 0x-prefixed 32-byte hex handle.
func parseEscrowID(value string) ([32]byte, error) {
	var id [32]byte
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return id, fmt.Errorf("escrow id required")
	}
	if strings.HasPrefix(trimmed, "0x") || strings.HasPrefix(trimmed, "0X") {
		trimmed = trimmed[2:]
	}
	if len(trimmed) != 64 {
		return id, fmt.Errorf("escrow id must be 32 bytes (got %d hex chars)", len(trimmed))
	}
	decoded, err := hex.DecodeString(trimmed)
	if err != nil {
		return id, fmt.Errorf("decode escrow id: %w", err)
	}
	copy(id[:], decoded)
	return id, nil
}

func parseAmount(value string) (uint64, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, fmt.Errorf("amount required")
	}
	amount, err := strconv.ParseUint(trimmed, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("amount must be an unsigned decimal: %w", err)
	}
	return amount, nil
}
