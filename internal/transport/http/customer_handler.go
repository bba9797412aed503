package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/mall/internal/domain"
	"github.com/vladislavdragonenkov/mall/internal/service/auth"
)

type customerHandler struct {
	auth   *auth.Service
	logger *log.Entry
}

type updateProfileRequest struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type profileResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Admin    bool   `json:"is_admin"`
}

func (h *customerHandler) register(r chi.Router) {
	r.Get("/me", h.handleProfile)
	r.Put("/me", h.handleUpdateProfile)
}

// handleProfile отдаёт учётную запись текущего покупателя.
func (h *customerHandler) handleProfile(w http.ResponseWriter, r *http.Request) {
	customer, err := h.auth.Profile(r.Context(), customerID(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfileResponse(customer))
}

// handleUpdateProfile меняет контактные данные текущего покупателя.
// Логин и пароль этим маршрутом не трогаются.
func (h *customerHandler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json"})
		return
	}

	customer, err := h.auth.UpdateProfile(r.Context(), customerID(r.Context()), req.Email, req.Phone)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfileResponse(customer))
}

func toProfileResponse(customer domain.Customer) profileResponse {
	return profileResponse{
		ID:       customer.ID,
		Username: customer.Username,
		Email:    customer.Email,
		Phone:    customer.Phone,
		Admin:    customer.Admin,
	}
}
