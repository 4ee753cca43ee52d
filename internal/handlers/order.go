package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopfront/apiserver/internal/invoice"
	"github.com/shopfront/apiserver/internal/services"
	"github.com/shopfront/apiserver/types"
)

// OrderHandler provides HTTP handlers for orders.
type OrderHandler struct {
	orderService *services.OrderService
}

func NewOrderHandler(orderService *services.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// OrderRouter registers order routes on the given router. Administrators
// manage every order; other callers must not be banned and only reach
// their own orders.
func OrderRouter(r chi.Router, orderService *services.OrderService, gate *Gate) {
	handler := NewOrderHandler(orderService)

	r.With(gate.Admin()...).Get("/", handler.ListOrders)
	r.With(gate.NotBanned()...).Post("/", handler.CreateOrder)
	r.With(gate.NotBanned()...).Get("/my-order", handler.ListMyOrders)
	r.With(gate.NotBanned()...).Put("/update-my-order/{orderId}", handler.UpdateMyOrder)
	r.With(gate.NotBanned()...).Delete("/my-order/delete/{orderId}", handler.DeleteMyOrder)
	r.Route("/{orderId}", func(r chi.Router) {
		r.With(gate.Admin()...).Get("/", handler.GetOrder)
		r.With(gate.NotBanned()...).Post("/", handler.AddProduct)
		r.With(gate.Admin()...).Put("/", handler.UpdateOrder)
		r.With(gate.Admin()...).Delete("/", handler.DeleteOrder)
		r.With(gate.NotBanned()...).Get("/invoice", handler.Invoice)
	})
}

type OrderRequest struct {
	Payment    string      `json:"payment" validate:"max=200"`
	ProductIDs []uuid.UUID `json:"productIds" validate:"required,min=1"`
}

type AddProductRequest struct {
	ProductID uuid.UUID `json:"productId" validate:"required"`
}

type OrderUpdateRequest struct {
	Status  *types.OrderStatus `json:"status"`
	Payment *string            `json:"payment" validate:"omitempty,max=200"`
}

func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	params, err := parseListParams(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	page, err := h.orderService.List(r.Context(), params)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "orders returned", page)
}

func (h *OrderHandler) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromContext(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	params, err := parseListParams(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	page, err := h.orderService.ListMine(r.Context(), actor, params)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "orders returned", page)
}

func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "orderId")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	order, err := h.orderService.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "order returned", order)
}

func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromContext(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	var req OrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	created, err := h.orderService.Create(r.Context(), actor, services.OrderInput{
		Payment:    req.Payment,
		ProductIDs: req.ProductIDs,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "order created", created)
}

func (h *OrderHandler) AddProduct(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromContext(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	id, err := parseUUIDParam(r, "orderId")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	var req AddProductRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	updated, err := h.orderService.AddProduct(r.Context(), actor, id, req.ProductID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "product added to order", updated)
}

func (h *OrderHandler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "orderId")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	var req OrderUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	updated, err := h.orderService.Update(r.Context(), id, services.OrderPatch{Status: req.Status, Payment: req.Payment})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "order updated", updated)
}

func (h *OrderHandler) UpdateMyOrder(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromContext(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	id, err := parseUUIDParam(r, "orderId")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	var req OrderUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	updated, err := h.orderService.UpdateMine(r.Context(), actor, id, services.OrderPatch{Status: req.Status, Payment: req.Payment})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "order updated", updated)
}

func (h *OrderHandler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "orderId")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	removed, err := h.orderService.Delete(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "order deleted", removed)
}

func (h *OrderHandler) DeleteMyOrder(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromContext(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	id, err := parseUUIDParam(r, "orderId")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	removed, err := h.orderService.DeleteMine(r.Context(), actor, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "order deleted", removed)
}

// Invoice returns the order invoice as a PDF attachment.
func (h *OrderHandler) Invoice(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromContext(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	id, err := parseUUIDParam(r, "orderId")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	pdf, order, err := h.orderService.Invoice(r.Context(), actor, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", invoice.Number(order)+".pdf"))
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}
