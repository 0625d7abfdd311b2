package api

import (
	"net/http"

	"github.com/go-chi/render"

	"github.com/starbank/recommender/internal/logger"
)

// handleClearCaches processes POST /management/clear-caches.
func (a *API) handleClearCaches(w http.ResponseWriter, r *http.Request) {
	a.recommender.FlushCaches(r.Context())
	logger.FromContext(r.Context()).Info("aggregate caches flushed on request")
	w.WriteHeader(http.StatusOK)
}

// handleInfo processes GET /management/info.
func (a *API) handleInfo(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, InfoResponse{Name: a.info.Name, Version: a.info.Version})
}
