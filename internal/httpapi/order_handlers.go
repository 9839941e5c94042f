package httpapi

import (
	"net/http"
	"strings"

	"smallcrm.org/internal/auth"
	"smallcrm.org/internal/crm"
)

type placeOrderRequest struct {
	ProductID  string `json:"product_id" validate:"required"`
	CustomerID string `json:"customer_id" validate:"required"`
	Quantity   int    `json:"quantity" validate:"required,gt=0"`
}

type updateOrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

func (a *API) handleOrders(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		// The full order book is admin-only; regular users read /my.
		a.requireRole(auth.RoleAdmin, func(w http.ResponseWriter, r *http.Request) {
			limit, offset, err := parsePage(r)
			if err != nil {
				writeError(w, r, http.StatusBadRequest, err.Error())
				return
			}
			orders, total, err := a.orders.List(r.Context(), limit, offset)
			if err != nil {
				handleCRMError(w, r, err)
				return
			}
			writeData(w, http.StatusOK, listPage{Items: orders, Total: total, Limit: limit, Offset: offset})
		})(w, r)
	case http.MethodPost:
		var req placeOrderRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		if err := a.validate.Struct(req); err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid order payload")
			return
		}
		order, err := a.orders.Place(r.Context(), crm.PlaceOrderInput{
			ProductID:  req.ProductID,
			CustomerID: req.CustomerID,
			Quantity:   req.Quantity,
		})
		if err != nil {
			handleCRMError(w, r, err)
			return
		}
		writeData(w, http.StatusCreated, order)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleOrderResource(w http.ResponseWriter, r *http.Request) {
	parts := pathTail(r.URL.Path, "/api/orders/")
	switch {
	case len(parts) == 1 && parts[0] == "my":
		a.handleMyOrders(w, r)
	case len(parts) == 1:
		a.handleOrderByID(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "status":
		a.handleOrderStatus(w, r, parts[0])
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) handleMyOrders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	limit, offset, err := parsePage(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	orders, total, err := a.orders.ListMine(r.Context(), limit, offset)
	if err != nil {
		handleCRMError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, listPage{Items: orders, Total: total, Limit: limit, Offset: offset})
}

func (a *API) handleOrderByID(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	order, err := a.orders.Get(r.Context(), id)
	if err != nil {
		handleCRMError(w, r, err)
		return
	}
	// Admins see any order; everyone else only their own.
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok || (!principal.HasRole(auth.RoleAdmin) && order.CreatedBy != principal.Username) {
		writeError(w, r, http.StatusForbidden, "insufficient role")
		return
	}
	writeData(w, http.StatusOK, order)
}

func (a *API) handleOrderStatus(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w, r, http.MethodPut)
		return
	}
	var req updateOrderStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	status := crm.OrderStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	order, err := a.orders.UpdateStatus(r.Context(), id, status)
	if err != nil {
		handleCRMError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, order)
}
