package httpapi

import (
	"errors"
	"net/http"

	"smallcrm.org/internal/auth"
	"smallcrm.org/internal/crm"
)

type createCustomerRequest struct {
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
	Email     string `json:"email" validate:"omitempty,email"`
	Phone     string `json:"phone" validate:"max=50"`
	Address   string `json:"address" validate:"max=300"`
}

type updateCustomerRequest struct {
	FirstName *string `json:"first_name" validate:"omitempty,max=100"`
	LastName  *string `json:"last_name" validate:"omitempty,max=100"`
	Email     *string `json:"email" validate:"omitempty,email"`
	Phone     *string `json:"phone" validate:"omitempty,max=50"`
	Address   *string `json:"address" validate:"omitempty,max=300"`
}

func (a *API) handleCustomers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		limit, offset, err := parsePage(r)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		customers, total, err := a.customers.List(r.Context(), limit, offset)
		if err != nil {
			handleCRMError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, listPage{Items: customers, Total: total, Limit: limit, Offset: offset})
	case http.MethodPost:
		var req createCustomerRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		if err := a.validate.Struct(req); err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid customer payload")
			return
		}
		customer, err := a.customers.Create(r.Context(), &crm.Customer{
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Email:     req.Email,
			Phone:     req.Phone,
			Address:   req.Address,
		})
		if err != nil {
			handleCRMError(w, r, err)
			return
		}
		writeData(w, http.StatusCreated, customer)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleCustomerResource(w http.ResponseWriter, r *http.Request) {
	parts := pathTail(r.URL.Path, "/api/customers/")
	switch {
	case len(parts) == 1:
		a.handleCustomerByID(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "orders":
		a.handleCustomerOrders(w, r, parts[0])
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) handleCustomerByID(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		customer, err := a.customers.Get(r.Context(), id)
		if err != nil {
			handleCRMError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, customer)
	case http.MethodPut:
		var req updateCustomerRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		if err := a.validate.Struct(req); err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid customer payload")
			return
		}
		customer, err := a.customers.Update(r.Context(), id, crm.CustomerUpdate{
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Email:     req.Email,
			Phone:     req.Phone,
			Address:   req.Address,
		})
		if err != nil {
			handleCRMError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, customer)
	case http.MethodDelete:
		if err := a.customers.Delete(r.Context(), id); err != nil {
			handleCRMError(w, r, err)
			return
		}
		writeMessage(w, http.StatusOK, "customer deleted")
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func (a *API) handleCustomerOrders(w http.ResponseWriter, r *http.Request, customerID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	// A customer's order history spans all creators, so it is admin-only;
	// regular users list their own orders via /api/orders/my.
	a.requireRole(auth.RoleAdmin, func(w http.ResponseWriter, r *http.Request) {
		limit, offset, err := parsePage(r)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		orders, total, err := a.orders.ListByCustomer(r.Context(), customerID, limit, offset)
		if err != nil {
			handleCRMError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, listPage{Items: orders, Total: total, Limit: limit, Offset: offset})
	})(w, r)
}

func handleCRMError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, crm.ErrCustomerNotFound),
		errors.Is(err, crm.ErrProductNotFound),
		errors.Is(err, crm.ErrOrderNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, crm.ErrEmailTaken):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, crm.ErrInsufficientStock):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, crm.ErrInvalidStatus), errors.Is(err, crm.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
