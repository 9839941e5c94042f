package httpapi

import (
	"net/http"

	"smallcrm.org/internal/auth"
	"smallcrm.org/internal/crm"
)

type createProductRequest struct {
	Name        string  `json:"name" validate:"required,max=200"`
	Price       float64 `json:"price" validate:"required,gt=0"`
	Stock       int     `json:"stock" validate:"gte=0"`
	Status      string  `json:"status" validate:"max=50"`
	Category    string  `json:"category" validate:"max=100"`
	Description string  `json:"description" validate:"max=1000"`
}

type updateProductRequest struct {
	Name        *string  `json:"name" validate:"omitempty,max=200"`
	Price       *float64 `json:"price" validate:"omitempty,gt=0"`
	Stock       *int     `json:"stock" validate:"omitempty,gte=0"`
	Status      *string  `json:"status" validate:"omitempty,max=50"`
	Category    *string  `json:"category" validate:"omitempty,max=100"`
	Description *string  `json:"description" validate:"omitempty,max=1000"`
}

func (a *API) handleProducts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		// Product catalogue reads are public.
		limit, offset, err := parsePage(r)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		products, total, err := a.products.List(r.Context(), limit, offset)
		if err != nil {
			handleCRMError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, listPage{Items: products, Total: total, Limit: limit, Offset: offset})
	case http.MethodPost:
		a.requireRole(auth.RoleAdmin, a.createProduct)(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) createProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.validate.Struct(req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid product payload")
		return
	}
	product, err := a.products.Create(r.Context(), &crm.Product{
		Name:        req.Name,
		Price:       req.Price,
		Stock:       req.Stock,
		Status:      req.Status,
		Category:    req.Category,
		Description: req.Description,
	})
	if err != nil {
		handleCRMError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, product)
}

func (a *API) handleProductResource(w http.ResponseWriter, r *http.Request) {
	parts := pathTail(r.URL.Path, "/api/products/")
	if len(parts) != 1 {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	id := parts[0]
	switch r.Method {
	case http.MethodGet:
		product, err := a.products.Get(r.Context(), id)
		if err != nil {
			handleCRMError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, product)
	case http.MethodPut:
		a.requireRole(auth.RoleAdmin, func(w http.ResponseWriter, r *http.Request) {
			a.updateProduct(w, r, id)
		})(w, r)
	case http.MethodDelete:
		a.requireRole(auth.RoleAdmin, func(w http.ResponseWriter, r *http.Request) {
			if err := a.products.Delete(r.Context(), id); err != nil {
				handleCRMError(w, r, err)
				return
			}
			writeMessage(w, http.StatusOK, "product deleted")
		})(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func (a *API) updateProduct(w http.ResponseWriter, r *http.Request, id string) {
	var req updateProductRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.validate.Struct(req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid product payload")
		return
	}
	product, err := a.products.Update(r.Context(), id, crm.ProductUpdate{
		Name:        req.Name,
		Price:       req.Price,
		Stock:       req.Stock,
		Status:      req.Status,
		Category:    req.Category,
		Description: req.Description,
	})
	if err != nil {
		handleCRMError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, product)
}
