package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/mall/internal/service/cart"
)

type cartHandler struct {
	cart   *cart.Service
	logger *log.Entry
}

type addToCartRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int32 `json:"quantity"`
}

type updateCartRequest struct {
	Quantity int32 `json:"quantity"`
}

type cartLineResponse struct {
	LineID      int64           `json:"line_id"`
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int32           `json:"quantity"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

func (h *cartHandler) register(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/", h.handleAdd)
	r.Put("/{lineID}", h.handleUpdate)
	r.Delete("/{lineID}", h.handleRemove)
}

func (h *cartHandler) handleList(w http.ResponseWriter, r *http.Request) {
	views, err := h.cart.List(r.Context(), customerID(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	resp := make([]cartLineResponse, 0, len(views))
	for _, v := range views {
		resp = append(resp, cartLineResponse{
			LineID:      v.LineID,
			ProductID:   v.ProductID,
			ProductName: v.ProductName,
			UnitPrice:   v.UnitPrice,
			Quantity:    v.Quantity,
			Subtotal:    v.Subtotal,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *cartHandler) handleAdd(w http.ResponseWriter, r *http.Request) {
	var req addToCartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json"})
		return
	}

	if err := h.cart.Add(r.Context(), customerID(r.Context()), req.ProductID, req.Quantity); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *cartHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	lineID, err := pathID(r, "lineID")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid line id"})
		return
	}

	var req updateCartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json"})
		return
	}

	if err := h.cart.UpdateQuantity(r.Context(), customerID(r.Context()), lineID, req.Quantity); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *cartHandler) handleRemove(w http.ResponseWriter, r *http.Request) {
	lineID, err := pathID(r, "lineID")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid line id"})
		return
	}

	if err := h.cart.Remove(r.Context(), customerID(r.Context()), lineID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
