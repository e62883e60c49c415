package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"tableside/internal/common/logger"
	"tableside/internal/domain"
)

// Handler exposes the backend's REST surface plus the kitchen push stream.
type Handler struct {
	svc   *Service
	hub   *Hub
	log   *logger.Logger
	token string // optional bearer token; empty disables the check
}

func NewHandler(svc *Service, hub *Hub, lg *logger.Logger, token string) *Handler {
	return &Handler{svc: svc, hub: hub, log: lg, token: token}
}

func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /orders", h.createOrder)
	mux.HandleFunc("GET /orders", h.listOrders)
	mux.HandleFunc("GET /orders/{id}", h.getOrder)
	mux.HandleFunc("PATCH /orders/{id}/status", h.updateOrderStatus)
	mux.HandleFunc("DELETE /orders/{id}", h.deleteOrder)

	mux.HandleFunc("GET /tables", h.listTables)
	mux.HandleFunc("PATCH /tables/{id}/status", h.updateTableStatus)

	mux.HandleFunc("POST /customers", h.addCustomer)
	mux.HandleFunc("GET /customers", h.findCustomer)
	mux.HandleFunc("PATCH /customers/{id}", h.updateCustomer)
	mux.HandleFunc("POST /customers/{id}/loyalty", h.awardLoyalty)
	mux.HandleFunc("POST /customers/{id}/redeem", h.redeemReferral)

	mux.HandleFunc("GET /kitchen/stream", h.kitchenStream)

	return h.withAuth(mux)
}

func (h *Handler) withAuth(next http.Handler) http.Handler {
	if h.token == "" {
		return next
	}
	want := "Bearer " + h.token
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != want {
			writeProblem(w, http.StatusUnauthorized, "unauthorized", "missing or invalid credential")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	o, err := h.svc.CreateOrder(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	var f domain.OrderFilter
	if v := r.URL.Query().Get("table_number"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeProblem(w, http.StatusBadRequest, "bad_request", "table_number must be an integer")
			return
		}
		f.TableNumber = &n
	}
	if v := r.URL.Query().Get("status"); v != "" {
		st := domain.OrderStatus(v)
		f.Status = &st
	}
	orders, err := h.svc.ListOrders(r.Context(), f)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.svc.GetOrder(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status domain.OrderStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeProblem(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	o, err := h.svc.UpdateOrderStatus(r.Context(), r.PathValue("id"), body.Status)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteOrder(r.Context(), r.PathValue("id")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listTables(w http.ResponseWriter, r *http.Request) {
	tables, err := h.svc.ListTables(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	if tables == nil {
		tables = []domain.Table{}
	}
	writeJSON(w, http.StatusOK, tables)
}

func (h *Handler) updateTableStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status  domain.TableStatus `json:"status"`
		OrderID *string            `json:"order_id,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeProblem(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	t, err := h.svc.UpdateTableStatus(r.Context(), r.PathValue("id"), body.Status, body.OrderID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handler) addCustomer(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateCustomerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	c, err := h.svc.AddCustomer(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) findCustomer(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.FindCustomerByPhone(r.Context(), r.URL.Query().Get("phone"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) updateCustomer(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateCustomerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	c, err := h.svc.UpdateCustomer(r.Context(), r.PathValue("id"), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) awardLoyalty(w http.ResponseWriter, r *http.Request) {
	h.loyaltyOp(w, r, h.svc.AwardLoyaltyPoints)
}

func (h *Handler) redeemReferral(w http.ResponseWriter, r *http.Request) {
	h.loyaltyOp(w, r, h.svc.RedeemReferral)
}

func (h *Handler) loyaltyOp(w http.ResponseWriter, r *http.Request,
	op func(ctx context.Context, id string, points int) (domain.Customer, error)) {
	var body struct {
		Points int `json:"points"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeProblem(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	c, err := op(r.Context(), r.PathValue("id"), body.Points)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// kitchenStream holds the response open and writes one JSON frame per order
// event, newline-delimited.
func (h *Handler) kitchenStream(w http.ResponseWriter, r *http.Request) {
	fl, ok := w.(http.Flusher)
	if !ok {
		writeProblem(w, http.StatusInternalServerError, "stream_unsupported", "response writer cannot stream")
		return
	}

	events, cancel := h.hub.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	fl.Flush()

	enc := json.NewEncoder(w)
	for {
		select {
		case ev, open := <-events:
			if !open {
				return
			}
			if err := enc.Encode(ev); err != nil {
				return
			}
			fl.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch domain.KindOf(err) {
	case domain.KindNotFound:
		code = http.StatusNotFound
	case domain.KindValidation:
		code = http.StatusUnprocessableEntity
	case domain.KindUnauthorized:
		code = http.StatusUnauthorized
	}
	if code == http.StatusInternalServerError {
		h.log.Error("request_failed", err, nil)
	}
	writeProblem(w, code, string(domain.KindOf(err)), err.Error())
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeProblem(w http.ResponseWriter, code int, typ, detail string) {
	writeJSON(w, code, map[string]any{
		"type":   typ,
		"title":  http.StatusText(code),
		"status": code,
		"detail": detail,
	})
}
