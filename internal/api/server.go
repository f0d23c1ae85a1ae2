// Package api exposes the vault service over HTTP JSON plus a websocket
// event stream.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"tokenized-vault/internal/domain"
	"tokenized-vault/internal/events"
	"tokenized-vault/internal/observability"
	"tokenized-vault/internal/storage"
	"tokenized-vault/internal/vault"
)

// Server handles the HTTP surface of the vault service.
type Server struct {
	svc     *vault.Service
	bus     *events.Bus
	metrics *observability.Metrics
	logger  *log.Logger
}

// NewServer creates a Server. bus may be nil to disable the event stream;
// metrics may be nil.
func NewServer(svc *vault.Service, bus *events.Bus, metrics *observability.Metrics, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{svc: svc, bus: bus, metrics: metrics, logger: logger}
}

// Handler returns the route mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/vaults", s.handleInitialize)
	mux.HandleFunc("GET /v1/vaults", s.handleListVaults)
	mux.HandleFunc("GET /v1/vaults/{vault}", s.handleGetVault)
	mux.HandleFunc("POST /v1/vaults/{vault}/deposit", s.handleDeposit)
	mux.HandleFunc("GET /v1/vaults/{vault}/value", s.handleValue)
	mux.HandleFunc("POST /v1/vaults/{vault}/invest", s.handleInvest)
	mux.HandleFunc("GET /v1/vaults/{vault}/protocols", s.handleGetProtocols)
	mux.HandleFunc("POST /v1/vaults/{vault}/protocols", s.handleAddProtocol)
	mux.HandleFunc("POST /v1/vaults/{vault}/protocols/toggle", s.handleToggleProtocol)
	mux.HandleFunc("POST /v1/vaults/{vault}/withdraw", s.handleWithdraw)
	mux.HandleFunc("GET /v1/events", s.handleEvents)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return mux
}

// Request and response shapes. Token amounts travel as decimal strings,
// matching how Solana RPC reports u64 amounts.

type initializeRequest struct {
	Authority string `json:"authority"`
	AssetMint string `json:"asset_mint"`
}

type depositRequest struct {
	Depositor string `json:"depositor"`
	Amount    string `json:"amount"`
}

type investRequest struct {
	Authority string `json:"authority"`
	Target    string `json:"target"`
	Amount    string `json:"amount"`
}

type addProtocolRequest struct {
	Authority string `json:"authority"`
	Target    string `json:"target"`
	Name      string `json:"name"`
}

type toggleProtocolRequest struct {
	Authority string `json:"authority"`
	Target    string `json:"target"`
	Enabled   bool   `json:"enabled"`
}

type vaultView struct {
	VaultID      string `json:"vault_id"`
	Authority    string `json:"authority"`
	AssetMint    string `json:"asset_mint"`
	ShareMint    string `json:"share_mint"`
	TokenAccount string `json:"token_account"`
	TotalAssets  string `json:"total_assets"`
	TotalShares  string `json:"total_shares"`
}

type protocolView struct {
	Target         string `json:"target"`
	Enabled        bool   `json:"enabled"`
	InvestedAmount string `json:"invested_amount"`
	Name           string `json:"name"`
}

type depositResponse struct {
	SharesMinted string `json:"shares_minted"`
	TotalAssets  string `json:"total_assets"`
	TotalShares  string `json:"total_shares"`
}

type investResponse struct {
	Target         string `json:"target"`
	Amount         string `json:"amount"`
	InvestedAmount string `json:"invested_amount"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func newVaultView(v *domain.VaultState) vaultView {
	return vaultView{
		VaultID:      v.VaultID,
		Authority:    v.Authority,
		AssetMint:    v.AssetMint,
		ShareMint:    v.ShareMint,
		TokenAccount: v.TokenAccount,
		TotalAssets:  strconv.FormatUint(v.TotalAssets, 10),
		TotalShares:  strconv.FormatUint(v.TotalShares, 10),
	}
}

func (s *Server) handleInitialize(w http.ResponseWriter, r *http.Request) {
	var req initializeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, "POST /v1/vaults", http.StatusBadRequest, "bad_request", err)
		return
	}

	state, err := s.svc.Initialize(r.Context(), req.Authority, req.AssetMint)
	if err != nil {
		s.writeServiceError(w, r, "POST /v1/vaults", err)
		return
	}
	s.writeJSON(w, r, "POST /v1/vaults", http.StatusCreated, newVaultView(state))
}

func (s *Server) handleListVaults(w http.ResponseWriter, r *http.Request) {
	const route = "GET /v1/vaults"
	vaults, err := s.svc.ListVaults(r.Context())
	if err != nil {
		s.writeServiceError(w, r, route, err)
		return
	}

	views := make([]vaultView, 0, len(vaults))
	for _, v := range vaults {
		views = append(views, newVaultView(v))
	}
	s.writeJSON(w, r, route, http.StatusOK, map[string]any{"vaults": views})
}

func (s *Server) handleGetVault(w http.ResponseWriter, r *http.Request) {
	const route = "GET /v1/vaults/{vault}"
	state, err := s.svc.GetVault(r.Context(), r.PathValue("vault"))
	if err != nil {
		s.writeServiceError(w, r, route, err)
		return
	}
	s.writeJSON(w, r, route, http.StatusOK, newVaultView(state))
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	const route = "POST /v1/vaults/{vault}/deposit"
	var req depositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, route, http.StatusBadRequest, "bad_request", err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		s.writeServiceError(w, r, route, err)
		return
	}

	result, err := s.svc.Deposit(r.Context(), r.PathValue("vault"), req.Depositor, amount)
	if err != nil {
		s.writeServiceError(w, r, route, err)
		return
	}
	s.writeJSON(w, r, route, http.StatusOK, depositResponse{
		SharesMinted: strconv.FormatUint(result.SharesMinted, 10),
		TotalAssets:  strconv.FormatUint(result.TotalAssets, 10),
		TotalShares:  strconv.FormatUint(result.TotalShares, 10),
	})
}

func (s *Server) handleValue(w http.ResponseWriter, r *http.Request) {
	const route = "GET /v1/vaults/{vault}/value"
	shares, err := parseAmount(r.URL.Query().Get("shares"))
	if err != nil {
		s.writeServiceError(w, r, route, err)
		return
	}

	assets, err := s.svc.ValueOfShares(r.Context(), r.PathValue("vault"), shares)
	if err != nil {
		s.writeServiceError(w, r, route, err)
		return
	}
	s.writeJSON(w, r, route, http.StatusOK, map[string]string{
		"assets": strconv.FormatUint(assets, 10),
	})
}

func (s *Server) handleInvest(w http.ResponseWriter, r *http.Request) {
	const route = "POST /v1/vaults/{vault}/invest"
	var req investRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, route, http.StatusBadRequest, "bad_request", err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		s.writeServiceError(w, r, route, err)
		return
	}

	result, err := s.svc.Invest(r.Context(), r.PathValue("vault"), req.Authority, req.Target, amount)
	if err != nil {
		s.writeServiceError(w, r, route, err)
		return
	}
	s.writeJSON(w, r, route, http.StatusOK, investResponse{
		Target:         result.Target,
		Amount:         strconv.FormatUint(result.Amount, 10),
		InvestedAmount: strconv.FormatUint(result.InvestedAmount, 10),
	})
}

func (s *Server) handleGetProtocols(w http.ResponseWriter, r *http.Request) {
	const route = "GET /v1/vaults/{vault}/protocols"
	registry, err := s.svc.GetRegistry(r.Context(), r.PathValue("vault"))
	if err != nil {
		s.writeServiceError(w, r, route, err)
		return
	}

	views := make([]protocolView, 0, len(registry.Protocols))
	for _, p := range registry.Protocols {
		views = append(views, protocolView{
			Target:         p.Target,
			Enabled:        p.Enabled,
			InvestedAmount: strconv.FormatUint(p.InvestedAmount, 10),
			Name:           p.Name,
		})
	}
	s.writeJSON(w, r, route, http.StatusOK, map[string]any{
		"vault_id":  registry.VaultID,
		"protocols": views,
	})
}

func (s *Server) handleAddProtocol(w http.ResponseWriter, r *http.Request) {
	const route = "POST /v1/vaults/{vault}/protocols"
	var req addProtocolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, route, http.StatusBadRequest, "bad_request", err)
		return
	}

	err := s.svc.AddProtocol(r.Context(), r.PathValue("vault"), req.Authority, req.Target, req.Name)
	if err != nil {
		s.writeServiceError(w, r, route, err)
		return
	}
	s.writeJSON(w, r, route, http.StatusCreated, map[string]string{"target": req.Target})
}

func (s *Server) handleToggleProtocol(w http.ResponseWriter, r *http.Request) {
	const route = "POST /v1/vaults/{vault}/protocols/toggle"
	var req toggleProtocolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, route, http.StatusBadRequest, "bad_request", err)
		return
	}

	err := s.svc.ToggleProtocol(r.Context(), r.PathValue("vault"), req.Authority, req.Target, req.Enabled)
	if err != nil {
		s.writeServiceError(w, r, route, err)
		return
	}
	s.writeJSON(w, r, route, http.StatusOK, map[string]any{
		"target":  req.Target,
		"enabled": req.Enabled,
	})
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	const route = "POST /v1/vaults/{vault}/withdraw"
	err := s.svc.Withdraw(r.Context(), r.PathValue("vault"), "", 0)
	s.writeServiceError(w, r, route, err)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// parseAmount parses a decimal string into a u64 token amount. Negative and
// non-numeric inputs are invalid amounts.
func parseAmount(s string) (uint64, error) {
	if s == "" || strings.HasPrefix(s, "-") {
		return 0, vault.ErrInvalidAmount
	}
	amount, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", vault.ErrInvalidAmount, s)
	}
	return amount, nil
}

// errorStatus maps a service error to an HTTP status and stable code. The
// two whitelist denials share one external code on purpose.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, vault.ErrInvalidAmount):
		return http.StatusBadRequest, "invalid_amount"
	case errors.Is(err, vault.ErrInvalidPubkey):
		return http.StatusBadRequest, "invalid_pubkey"
	case errors.Is(err, vault.ErrNameTooLong):
		return http.StatusBadRequest, "name_too_long"
	case errors.Is(err, vault.ErrUnauthorized):
		return http.StatusForbidden, "unauthorized"
	case errors.Is(err, vault.ErrProtocolNotApproved):
		return http.StatusForbidden, "protocol_not_approved"
	case errors.Is(err, vault.ErrProtocolAlreadyApproved):
		return http.StatusConflict, "protocol_already_approved"
	case errors.Is(err, vault.ErrProtocolNotFound):
		return http.StatusNotFound, "protocol_not_found"
	case errors.Is(err, vault.ErrRegistryFull):
		return http.StatusConflict, "registry_full"
	case errors.Is(err, vault.ErrInsufficientBalance):
		return http.StatusConflict, "insufficient_balance"
	case errors.Is(err, vault.ErrInvestTooLarge):
		return http.StatusConflict, "invest_too_large"
	case errors.Is(err, vault.ErrMathOverflow):
		return http.StatusUnprocessableEntity, "math_overflow"
	case errors.Is(err, vault.ErrDivisionByZero):
		return http.StatusInternalServerError, "division_by_zero"
	case errors.Is(err, vault.ErrNotImplemented):
		return http.StatusNotImplemented, "not_implemented"
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, storage.ErrDuplicateKey):
		return http.StatusConflict, "already_exists"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, route string, err error) {
	status, code := errorStatus(err)
	s.writeError(w, r, route, status, code, err)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, route string, status int, code string, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Printf("%s %s: %v", r.Method, r.URL.Path, err)
	}
	s.writeJSON(w, r, route, status, errorResponse{Error: code, Message: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, _ *http.Request, route string, status int, body any) {
	if s.metrics != nil {
		s.metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Printf("encode response: %v", err)
	}
}
