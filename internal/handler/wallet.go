package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"freeswap/internal/ledger"
	"freeswap/internal/middleware"
	"freeswap/internal/wallet"
	"freeswap/pkg/logger"
	"freeswap/pkg/validator"
)

// WalletHandler serves balance, address, transfer, and history endpoints for
// the authenticated session.
type WalletHandler struct {
	wallets   *wallet.Service
	hrp       string
	validator *validator.Validator
	logger    logger.Logger
}

func NewWalletHandler(wallets *wallet.Service, hrp string, val *validator.Validator, log logger.Logger) *WalletHandler {
	return &WalletHandler{
		wallets:   wallets,
		hrp:       hrp,
		validator: val,
		logger:    log,
	}
}

// SendRequest transfers amount micro-units to recipient. A token_id switches
// the transfer to that native token.
type SendRequest struct {
	Recipient string `json:"recipient" validate:"required"`
	Amount    int64  `json:"amount" validate:"required,gt=0"`
	TokenID   string `json:"token_id,omitempty"`
	Metadata  string `json:"metadata,omitempty"`
}

// Balance returns the available balance in micro-units. ?token_id= selects a
// native token instead of the base coin.
func (h *WalletHandler) Balance(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	available, err := h.wallets.AvailableBalance(r.Context(), sess.Account, r.URL.Query().Get("token_id"))
	if err != nil {
		h.logger.Error("Balance lookup failed", map[string]interface{}{
			"account": sess.AccountName,
			"error":   err.Error(),
		})
		respondError(w, statusFor(err), "Failed to fetch balance: "+err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]int64{"available": available})
}

// Address returns the account's bech32 receive address.
func (h *WalletHandler) Address(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	addr := sess.Account.Address()
	if addr == "" {
		respondError(w, http.StatusNotFound, "Address not found")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"address": addr})
}

// Send validates and submits a transfer. Malformed recipients and
// non-positive amounts are rejected before the wallet is touched.
func (h *WalletHandler) Send(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req SendRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		if err == io.EOF {
			respondError(w, http.StatusBadRequest, "Request body is required")
			return
		}
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Amount <= 0 {
		respondError(w, http.StatusBadRequest, "Amount must be > 0 (micro-units)")
		return
	}
	if err := ledger.ValidateAddress(h.hrp, req.Recipient); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid recipient address format")
		return
	}

	transfer, err := h.wallets.Send(r.Context(), sess.Account, req.Recipient, req.Amount, req.TokenID, req.Metadata)
	if err != nil {
		respondError(w, statusFor(err), "Transaction failed: "+err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"txid":   transfer.ID,
		"amount": transfer.Amount,
	})
}

// Transactions lists incoming transfers for the account.
func (h *WalletHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	transfers, err := h.wallets.Transactions(r.Context(), sess.Account, limit)
	if err != nil {
		respondError(w, statusFor(err), "Failed to fetch transactions: "+err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": transfers,
		"count":        len(transfers),
	})
}
