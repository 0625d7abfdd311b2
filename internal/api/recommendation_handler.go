package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/starbank/recommender/internal/logger"
)

// handleRecommend processes GET /recommendation/{user_id}.
func (a *API) handleRecommend(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	userID, err := uuid.Parse(chi.URLParam(r, "user_id"))
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_INVALID_INPUT",
			Message: "user_id must be a UUID",
		})
		return
	}

	result, err := a.recommender.Recommendations(r.Context(), userID)
	if err != nil {
		log.Error("failed to compute recommendations",
			slog.String("user_id", userID.String()),
			slog.String("error", err.Error()),
		)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_INTERNAL",
			Message: "Failed to compute recommendations",
		})
		return
	}

	resp := RecommendationsResponse{
		UserID:          result.UserID.String(),
		Recommendations: make([]Recommendation, len(result.Recommendations)),
	}
	for i, rec := range result.Recommendations {
		resp.Recommendations[i] = Recommendation{
			ID:   rec.ProductID.String(),
			Name: rec.ProductName,
			Text: rec.ProductText,
		}
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, resp)
}
