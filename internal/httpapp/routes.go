package httpapp

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dkessler/cratekeeper/internal/domain"
)

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/token", h.SetToken)
		r.Post("/auth/login", h.StartLogin)
		r.Post("/auth/callback", h.CompleteLogin)
		r.Post("/auth/cancel", h.CancelLogin)
		r.Post("/auth/signout", h.SignOut)

		r.Post("/sync", h.TriggerSync)
		r.Get("/sync/status", h.SyncStatus)

		r.Get("/collection", h.GetCollection)
		r.Put("/collection/{id}/purge", h.SetPurgeTag)
		r.Post("/collection/{id}/play", h.RecordPlay)
		r.Get("/value", h.GetValue)

		r.Get("/wantlist", h.GetWantlist)
		r.Post("/wantlist", h.AddWant)
		r.Put("/wantlist/{id}/priority", h.SetPriority)

		r.Get("/sessions", h.GetSessions)
		r.Post("/sessions", h.CreateSession)
		r.Put("/sessions/{id}", h.RenameSession)
		r.Delete("/sessions/{id}", h.DeleteSession)
		r.Post("/sessions/{id}/items", h.AddSessionItem)
		r.Delete("/sessions/{id}/items/{itemID}", h.RemoveSessionItem)
		r.Put("/sessions/{id}/order", h.ReorderSession)
		r.Post("/bookmark", h.Bookmark)

		r.Get("/prices/{releaseID}", h.GetPrice)
		r.Post("/prices/batch", h.BatchPrices)
	})
}

// SetToken verifies a personal token against the identity endpoint and
// persists it, so the account survives a restart.
func (h *Handler) SetToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := decodeBody(r, &req); err != nil || req.Token == "" {
		h.respondError(w, http.StatusBadRequest, "token is required")
		return
	}
	username, err := h.Accounts.AdoptManualToken(r.Context(), req.Token)
	if err != nil {
		h.respondError(w, http.StatusUnauthorized, err.Error())
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"username": username})
}

// StartLogin begins the delegated authorization handshake and returns the
// URL the user must authorize at.
func (h *Handler) StartLogin(w http.ResponseWriter, r *http.Request) {
	if h.Login == nil {
		h.respondError(w, http.StatusServiceUnavailable, "delegated login is not configured")
		return
	}
	var req struct {
		CallbackURL string `json:"callback_url"`
	}
	if err := decodeBody(r, &req); err != nil || req.CallbackURL == "" {
		h.respondError(w, http.StatusBadRequest, "callback_url is required")
		return
	}
	authorizeURL, err := h.Login.Start(r.Context(), req.CallbackURL)
	if err != nil {
		h.respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	h.Phases.LoginRedirectStarted()
	h.respondJSON(w, http.StatusOK, map[string]string{"authorize_url": authorizeURL})
}

// CompleteLogin exchanges the verifier for the access pair and installs the
// account it belongs to.
func (h *Handler) CompleteLogin(w http.ResponseWriter, r *http.Request) {
	if h.Login == nil {
		h.respondError(w, http.StatusServiceUnavailable, "delegated login is not configured")
		return
	}
	var req struct {
		Verifier string `json:"verifier"`
	}
	if err := decodeBody(r, &req); err != nil || req.Verifier == "" {
		h.respondError(w, http.StatusBadRequest, "verifier is required")
		return
	}
	res, err := h.Login.Complete(r.Context(), req.Verifier)
	if err != nil {
		h.respondError(w, http.StatusUnauthorized, err.Error())
		return
	}
	username := h.Accounts.AdoptDelegated(res)
	h.Phases.LoginRedirectCleared()
	h.respondJSON(w, http.StatusOK, map[string]string{"username": username})
}

// CancelLogin abandons an in-flight handshake, typically when the user backs
// out of the external authorization page.
func (h *Handler) CancelLogin(w http.ResponseWriter, r *http.Request) {
	if h.Login != nil {
		h.Login.Cancel()
	}
	h.Phases.Foregrounded()
	h.respondJSON(w, http.StatusNoContent, nil)
}

func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.Accounts.SignOut(); err != nil {
		h.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.respondJSON(w, http.StatusNoContent, nil)
}

// TriggerSync starts a sync pass in the background and reports acceptance.
// This is the single place a fatal sync error is caught: it lands in the
// status payload and the loading UI stops instead of spinning forever.
func (h *Handler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	if h.Sync.Running() {
		h.respondError(w, http.StatusConflict, "sync already running")
		return
	}
	full := r.URL.Query().Get("full") == "1"

	go func() {
		ctx := context.Background()
		var err error
		if full {
			_, err = h.Sync.DevSync(ctx)
		} else {
			_, err = h.Sync.PerformSync(ctx)
		}
		if err != nil {
			h.Logger.Error("Sync failed", "error", err)
			h.setSyncError(err.Error())
			return
		}
		h.setSyncError("")
	}()

	h.respondJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

func (h *Handler) SyncStatus(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"phase":      h.Phases.Phase(),
		"running":    h.Sync.Running(),
		"progress":   h.Sync.Progress(),
		"last_error": h.syncError(),
	})
}

func (h *Handler) GetCollection(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"items":   h.Library.Collection(),
		"folders": h.Library.Folders(),
	})
}

func (h *Handler) SetPurgeTag(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Tag domain.PurgeTag `json:"tag"`
	}
	if err := decodeBody(r, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if err := h.Annotate.SetPurgeTag(chi.URLParam(r, "id"), req.Tag); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.respondJSON(w, http.StatusNoContent, nil)
}

func (h *Handler) RecordPlay(w http.ResponseWriter, r *http.Request) {
	if err := h.Annotate.RecordPlay(chi.URLParam(r, "id")); err != nil {
		h.respondError(w, http.StatusNotFound, err.Error())
		return
	}
	h.respondJSON(w, http.StatusNoContent, nil)
}

func (h *Handler) GetValue(w http.ResponseWriter, r *http.Request) {
	value := h.Library.Value()
	if value == nil {
		h.respondError(w, http.StatusNotFound, "no valuation yet")
		return
	}
	h.respondJSON(w, http.StatusOK, value)
}

func (h *Handler) GetWantlist(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]interface{}{"items": h.Library.Wants()})
}

func (h *Handler) AddWant(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ReleaseID int    `json:"release_id"`
		Title     string `json:"title"`
		Artist    string `json:"artist"`
		Year      int    `json:"year"`
		CoverURL  string `json:"cover_url"`
	}
	if err := decodeBody(r, &req); err != nil || req.ReleaseID == 0 {
		h.respondError(w, http.StatusBadRequest, "release_id is required")
		return
	}
	want := h.Annotate.AddToWantlist(req.ReleaseID, req.Title, req.Artist, req.Year, req.CoverURL)
	h.respondJSON(w, http.StatusOK, want)
}

func (h *Handler) SetPriority(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Priority bool `json:"priority"`
	}
	if err := decodeBody(r, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if err := h.Annotate.SetPriority(chi.URLParam(r, "id"), req.Priority); err != nil {
		h.respondError(w, http.StatusNotFound, err.Error())
		return
	}
	h.respondJSON(w, http.StatusNoContent, nil)
}

func (h *Handler) GetSessions(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]interface{}{"sessions": h.Library.Sessions()})
}

func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeBody(r, &req); err != nil || req.Name == "" {
		h.respondError(w, http.StatusBadRequest, "name is required")
		return
	}
	h.respondJSON(w, http.StatusCreated, h.Sessions.Create(req.Name))
}

func (h *Handler) RenameSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeBody(r, &req); err != nil || req.Name == "" {
		h.respondError(w, http.StatusBadRequest, "name is required")
		return
	}
	if err := h.Sessions.Rename(chi.URLParam(r, "id"), req.Name); err != nil {
		h.respondError(w, http.StatusNotFound, err.Error())
		return
	}
	h.respondJSON(w, http.StatusNoContent, nil)
}

func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.Sessions.Delete(chi.URLParam(r, "id")); err != nil {
		h.respondError(w, http.StatusNotFound, err.Error())
		return
	}
	h.respondJSON(w, http.StatusNoContent, nil)
}

func (h *Handler) AddSessionItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ItemID string `json:"item_id"`
	}
	if err := decodeBody(r, &req); err != nil || req.ItemID == "" {
		h.respondError(w, http.StatusBadRequest, "item_id is required")
		return
	}
	if err := h.Sessions.AddItem(chi.URLParam(r, "id"), req.ItemID); err != nil {
		h.respondError(w, http.StatusNotFound, err.Error())
		return
	}
	h.respondJSON(w, http.StatusNoContent, nil)
}

func (h *Handler) RemoveSessionItem(w http.ResponseWriter, r *http.Request) {
	if err := h.Sessions.RemoveItem(chi.URLParam(r, "id"), chi.URLParam(r, "itemID")); err != nil {
		h.respondError(w, http.StatusNotFound, err.Error())
		return
	}
	h.respondJSON(w, http.StatusNoContent, nil)
}

func (h *Handler) ReorderSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ItemIDs []string `json:"item_ids"`
	}
	if err := decodeBody(r, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if err := h.Sessions.Reorder(chi.URLParam(r, "id"), req.ItemIDs); err != nil {
		h.respondError(w, http.StatusNotFound, err.Error())
		return
	}
	h.respondJSON(w, http.StatusNoContent, nil)
}

func (h *Handler) Bookmark(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ItemID string `json:"item_id"`
	}
	if err := decodeBody(r, &req); err != nil || req.ItemID == "" {
		h.respondError(w, http.StatusBadRequest, "item_id is required")
		return
	}
	session, err := h.Sessions.Bookmark(req.ItemID)
	if err != nil {
		h.respondError(w, http.StatusNotFound, err.Error())
		return
	}
	h.respondJSON(w, http.StatusOK, session)
}

func (h *Handler) GetPrice(w http.ResponseWriter, r *http.Request) {
	releaseID, err := strconv.Atoi(chi.URLParam(r, "releaseID"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid release id")
		return
	}
	force := r.URL.Query().Get("refresh") == "1"
	entry, err := h.Prices.Fetch(r.Context(), h.Resolver.Credential(), releaseID, force)
	if err != nil {
		h.respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	h.respondJSON(w, http.StatusOK, entry)
}

func (h *Handler) BatchPrices(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ReleaseIDs []int `json:"release_ids"`
	}
	if err := decodeBody(r, &req); err != nil || len(req.ReleaseIDs) == 0 {
		h.respondError(w, http.StatusBadRequest, "release_ids is required")
		return
	}
	results := h.Prices.FetchBatch(r.Context(), h.Resolver.Credential(), req.ReleaseIDs)
	h.respondJSON(w, http.StatusOK, map[string]interface{}{"prices": results})
}
