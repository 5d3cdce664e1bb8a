// Package rpc exposes the ledger's query and administrative surfaces over
// HTTP. The surface is read-only: trade creation and completion stay on the
// Go API, driven by the platform's own services.
package rpc

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"walletd/ledger"
)

// Server serves balance, trade and admin queries for one ledger.
type Server struct {
	ledger *ledger.Ledger
	log    *slog.Logger
}

// NewServer builds the query server.
func NewServer(l *ledger.Ledger, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{ledger: l, log: logger}
}

// Router wires the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Route("/v1", func(r chi.Router) {
		r.Get("/assets", s.handleAssets)
		r.Get("/accounts/{account}/balances", s.handleBalances)
		r.Get("/accounts/{account}/trades", s.handleTrades)
		r.Get("/admin/approvals", s.handleApprovals)
		r.Get("/admin/warnings", s.handleWarnings)
	})
	return r
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Error("encode response", slog.Any("error", err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}

type assetResponse struct {
	ID   uint32 `json:"id"`
	Name string `json:"name"`
}

func (s *Server) handleAssets(w http.ResponseWriter, r *http.Request) {
	assets := s.ledger.Registry().Assets()
	out := make([]assetResponse, 0, len(assets))
	for _, a := range assets {
		out = append(out, assetResponse{ID: uint32(a.ID), Name: a.Name})
	}
	s.writeJSON(w, http.StatusOK, out)
}

type balanceResponse struct {
	Asset     string `json:"asset"`
	Available uint64 `json:"available"`
	Locked    uint64 `json:"locked"`
}

func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")
	amounts, ok := s.ledger.GetAmount(account)
	if !ok {
		s.writeError(w, http.StatusNotFound, "unknown account")
		return
	}
	assets := s.ledger.Registry().Assets()
	out := make([]balanceResponse, 0, len(assets))
	for _, a := range assets {
		bal := amounts[a.ID]
		out = append(out, balanceResponse{Asset: a.Name, Available: bal.Available, Locked: bal.Locked})
	}
	s.writeJSON(w, http.StatusOK, out)
}

type gasResponse struct {
	Asset  string `json:"asset"`
	Amount uint64 `json:"amount"`
	To     string `json:"to"`
}

type tradeResponse struct {
	ID        string        `json:"id"`
	Type      string        `json:"type"`
	Status    string        `json:"status"`
	Amount    uint64        `json:"amount"`
	From      string        `json:"from"`
	To        string        `json:"to"`
	Hash      string        `json:"hash,omitempty"`
	Gas       []gasResponse `json:"gas,omitempty"`
	CreatedAt int64         `json:"createdAt"`
	UpdatedAt int64         `json:"updatedAt"`
}

func (s *Server) tradeResponse(id string, t ledger.Trade) tradeResponse {
	out := tradeResponse{
		ID:        id,
		Type:      t.Type.String(),
		Status:    t.Status.String(),
		Amount:    t.Amount,
		From:      t.From,
		To:        t.To,
		Hash:      t.Hash,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
	for _, g := range t.Gas {
		out.Gas = append(out.Gas, gasResponse{Asset: s.ledger.Registry().Name(g.Asset), Amount: g.Amount, To: g.To})
	}
	return out
}

func (s *Server) lookupAsset(w http.ResponseWriter, r *http.Request) (ledger.AssetID, bool) {
	name := r.URL.Query().Get("asset")
	if name == "" {
		s.writeError(w, http.StatusBadRequest, "missing asset parameter")
		return 0, false
	}
	asset, err := s.ledger.Registry().Lookup(name)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "unknown asset")
		return 0, false
	}
	return asset, true
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")
	asset, ok := s.lookupAsset(w, r)
	if !ok {
		return
	}
	entries := s.ledger.GetTrades(asset, account)
	out := make([]tradeResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, s.tradeResponse(e.ID, e.Trade))
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleApprovals(w http.ResponseWriter, r *http.Request) {
	asset, ok := s.lookupAsset(w, r)
	if !ok {
		return
	}
	ids := s.ledger.PendingApproval(asset)
	if ids == nil {
		ids = []string{}
	}
	s.writeJSON(w, http.StatusOK, ids)
}

type warningResponse struct {
	Asset   string `json:"asset"`
	Account string `json:"account"`
}

func (s *Server) handleWarnings(w http.ResponseWriter, r *http.Request) {
	warnings := s.ledger.Warnings()
	out := make([]warningResponse, 0, len(warnings))
	for _, warn := range warnings {
		out = append(out, warningResponse{Asset: s.ledger.Registry().Name(warn.Asset), Account: warn.Account})
	}
	s.writeJSON(w, http.StatusOK, out)
}
