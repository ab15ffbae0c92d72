// Package httpapp exposes the JSON API. Handlers stay thin; everything with
// semantics lives in internal/app.
package httpapp

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/dkessler/cratekeeper/internal/app"
	"github.com/dkessler/cratekeeper/internal/auth"
	"github.com/dkessler/cratekeeper/internal/logger"
	"github.com/dkessler/cratekeeper/internal/pricing"
)

type Handler struct {
	Library  *app.Library
	Sync     *app.SyncService
	Annotate *app.AnnotateService
	Sessions *app.SessionService
	Prices   *pricing.Cache
	Resolver *auth.Resolver
	Accounts *app.AccountService
	Login    *auth.LoginFlow
	Phases   *app.PhaseMachine
	Logger   *logger.Logger

	mu            sync.Mutex
	lastSyncError string
}

func NewHandler(lib *app.Library, syncSvc *app.SyncService, annotate *app.AnnotateService, sessions *app.SessionService, prices *pricing.Cache, resolver *auth.Resolver, accounts *app.AccountService, login *auth.LoginFlow, phases *app.PhaseMachine, log *logger.Logger) *Handler {
	return &Handler{
		Library:  lib,
		Sync:     syncSvc,
		Annotate: annotate,
		Sessions: sessions,
		Prices:   prices,
		Resolver: resolver,
		Accounts: accounts,
		Login:    login,
		Phases:   phases,
		Logger:   log.WithComponent("http"),
	}
}

func (h *Handler) setSyncError(msg string) {
	h.mu.Lock()
	h.lastSyncError = msg
	h.mu.Unlock()
}

func (h *Handler) syncError() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastSyncError
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			h.Logger.Error("Failed to encode response", "error", err)
		}
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, msg string) {
	h.respondJSON(w, status, map[string]string{"error": msg})
}

func decodeBody(r *http.Request, out interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(out)
}
