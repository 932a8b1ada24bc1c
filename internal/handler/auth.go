package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"freeswap/internal/middleware"
	"freeswap/internal/session"
	"freeswap/internal/wallet"
	"freeswap/pkg/logger"
	"freeswap/pkg/validator"
)

// AuthHandler handles account lifecycle and session endpoints.
type AuthHandler struct {
	wallets   *wallet.Service
	sessions  *session.Store
	validator *validator.Validator
	logger    logger.Logger
}

func NewAuthHandler(wallets *wallet.Service, sessions *session.Store, val *validator.Validator, log logger.Logger) *AuthHandler {
	return &AuthHandler{
		wallets:   wallets,
		sessions:  sessions,
		validator: val,
		logger:    log,
	}
}

// LoginRequest carries sign-in credentials.
type LoginRequest struct {
	AccountName string `json:"account_name" validate:"required,min=1"`
	Pin         string `json:"pin" validate:"required,min=1"`
	Password    string `json:"password" validate:"required,min=1"`
}

// RecoverRequest restores a wallet from a mnemonic.
type RecoverRequest struct {
	AccountName string `json:"account_name" validate:"required,min=1"`
	Pin         string `json:"pin" validate:"required,min=1"`
	Password    string `json:"password" validate:"required,min=1"`
	Mnemonic    string `json:"mnemonic" validate:"required,min=1"`
}

// CreateRequest provisions a brand-new wallet.
type CreateRequest struct {
	AccountName string `json:"account_name" validate:"required,min=1"`
	Password    string `json:"password" validate:"required,min=1"`
}

// Login opens the vault and issues a bearer token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !h.decode(w, r, &req) {
		return
	}

	acct, err := h.wallets.SignIn(r.Context(), req.AccountName, req.Pin, req.Password)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Invalid credentials or account not found")
		return
	}

	sess, err := h.sessions.Create(acct)
	if err != nil {
		h.logger.Error("Session creation failed", map[string]interface{}{
			"account": req.AccountName,
			"error":   err.Error(),
		})
		respondError(w, http.StatusInternalServerError, "Failed to create session")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"token":   sess.Token,
		"account": acct.Name,
		"address": acct.Address(),
	})
}

// Recover restores a wallet from a mnemonic. The account still has to log in
// afterwards.
func (h *AuthHandler) Recover(w http.ResponseWriter, r *http.Request) {
	var req RecoverRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.wallets.Recover(r.Context(), req.AccountName, req.Pin, req.Password, req.Mnemonic); err != nil {
		respondError(w, statusFor(err), "Wallet recovery failed: "+err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Create provisions a new wallet and returns the generated mnemonic once.
func (h *AuthHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if !h.decode(w, r, &req) {
		return
	}

	mnemonic, err := h.wallets.Create(r.Context(), req.AccountName, req.Password)
	if err != nil {
		respondError(w, statusFor(err), "Create account failed: "+err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"mnemonic": mnemonic})
}

// Logout invalidates the presented bearer token. Always succeeds so clients
// can clear state unconditionally.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token, ok := middleware.BearerToken(r); ok {
		h.sessions.Delete(token)
	}
	respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *AuthHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if err == io.EOF {
			respondError(w, http.StatusBadRequest, "Request body is required")
			return false
		}
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if err := h.validator.Validate(dst); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}
