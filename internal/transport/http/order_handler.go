package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/mall/internal/domain"
	"github.com/vladislavdragonenkov/mall/internal/service/checkout"
	"github.com/vladislavdragonenkov/mall/internal/service/orders"
)

type orderHandler struct {
	checkout    *checkout.Coordinator
	orders      *orders.Service
	statusCache StatusCache
	logger      *log.Entry
}

type placeOrderRequest struct {
	ShippingAddress string  `json:"shipping_address"`
	CartLineIDs     []int64 `json:"cart_line_ids"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type orderLineResponse struct {
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int32           `json:"quantity"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

type orderResponse struct {
	ID              int64               `json:"id"`
	CustomerID      int64               `json:"customer_id"`
	CustomerName    string              `json:"customer_name,omitempty"`
	TotalAmount     decimal.Decimal     `json:"total_amount"`
	ShippingAddress string              `json:"shipping_address"`
	Status          string              `json:"status"`
	CreatedAt       time.Time           `json:"created_at"`
	Lines           []orderLineResponse `json:"lines,omitempty"`
}

func (h *orderHandler) register(r chi.Router) {
	r.Post("/", h.handlePlaceOrder)
	r.Get("/", h.handleListMine)
	r.Get("/{id}", h.handleGet)
	r.Get("/{id}/status", h.handleGetStatus)
	r.Delete("/{id}", h.handleDelete)
}

func (h *orderHandler) registerAdmin(r chi.Router) {
	r.Get("/", h.handleListAll)
	r.Put("/{id}/status", h.handleUpdateStatus)
}

// handlePlaceOrder — оформление заказа: одна атомарная единица работы
// над остатками, заказом и корзиной.
func (h *orderHandler) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json"})
		return
	}

	order, err := h.checkout.PlaceOrder(r.Context(), checkout.Request{
		CustomerID:      customerID(r.Context()),
		ShippingAddress: req.ShippingAddress,
		CartLineIDs:     req.CartLineIDs,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(order))
}

func (h *orderHandler) handleListMine(w http.ResponseWriter, r *http.Request) {
	list, err := h.orders.ListByCustomer(r.Context(), customerID(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponses(list))
}

func (h *orderHandler) handleListAll(w http.ResponseWriter, r *http.Request) {
	list, err := h.orders.ListAll(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponses(list))
}

func (h *orderHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid order id"})
		return
	}

	order, err := h.orders.Get(r.Context(), id, customerID(r.Context()), isAdmin(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

// handleGetStatus отдаёт только статус заказа, сперва спрашивая кэш.
func (h *orderHandler) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid order id"})
		return
	}

	// Проверка владельца работает и на закэшированном значении:
	// кэш не должен показывать чужой заказ.
	if status, ownerID, hit := h.statusCache.Get(r.Context(), id); hit {
		if ownerID != customerID(r.Context()) && !isAdmin(r.Context()) {
			writeError(w, h.logger, domain.ErrPermissionDenied)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": string(status)})
		return
	}

	order, err := h.orders.Get(r.Context(), id, customerID(r.Context()), isAdmin(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.statusCache.Set(r.Context(), id, order.CustomerID, order.Status)
	writeJSON(w, http.StatusOK, map[string]string{"status": string(order.Status)})
}

func (h *orderHandler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid order id"})
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json"})
		return
	}
	if req.Status == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "status is required"})
		return
	}

	if err := h.orders.UpdateStatus(r.Context(), id, domain.OrderStatus(req.Status)); err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.statusCache.Invalidate(r.Context(), id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *orderHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid order id"})
		return
	}

	if err := h.orders.Delete(r.Context(), id, customerID(r.Context()), isAdmin(r.Context())); err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.statusCache.Invalidate(r.Context(), id)
	w.WriteHeader(http.StatusNoContent)
}

func toOrderResponse(order domain.Order) orderResponse {
	lines := make([]orderLineResponse, 0, len(order.Lines))
	for _, l := range order.Lines {
		lines = append(lines, orderLineResponse{
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			UnitPrice:   l.UnitPrice,
			Quantity:    l.Quantity,
			Subtotal:    l.Extension(),
		})
	}
	return orderResponse{
		ID:              order.ID,
		CustomerID:      order.CustomerID,
		CustomerName:    order.CustomerName,
		TotalAmount:     order.TotalAmount,
		ShippingAddress: order.ShippingAddress,
		Status:          string(order.Status),
		CreatedAt:       order.CreatedAt,
		Lines:           lines,
	}
}

func toOrderResponses(list []domain.Order) []orderResponse {
	resp := make([]orderResponse, 0, len(list))
	for _, order := range list {
		resp = append(resp, toOrderResponse(order))
	}
	return resp
}
