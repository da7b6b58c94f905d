package recordsapi

import (
	"errors"
	"net/http"

	"github.com/c360studio/specgen/entity"
	"github.com/c360studio/specgen/storage"
)

type userRequest struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

func (h *Handler) handleUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		users, err := h.store.Users.List(ctx)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"users": users})
	case http.MethodPost:
		var req userRequest
		if !h.decode(w, r, &req) {
			return
		}
		u := &entity.User{
			Username: trimmed(req.Username, ""),
			Email:    trimmed(req.Email, ""),
			Password: or(req.Password, ""),
		}
		if err := u.Validate(); err != nil {
			h.fail(w, r, err)
			return
		}
		if err := h.store.Users.Create(ctx, u); err != nil {
			h.fail(w, r, err)
			return
		}
		writeCreated(w, http.StatusCreated, u.ID)
	default:
		writeMethodNotAllowed(w)
	}
}

func (h *Handler) handleUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		u, err := h.store.Users.Get(ctx, id)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, u)
	case http.MethodPut:
		u, err := h.store.Users.Get(ctx, id)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		var req userRequest
		if !h.decode(w, r, &req) {
			return
		}
		u.Username = trimmed(req.Username, u.Username)
		u.Email = trimmed(req.Email, u.Email)
		u.Password = or(req.Password, u.Password)
		if err := u.Validate(); err != nil {
			h.fail(w, r, err)
			return
		}
		if err := h.store.Users.Update(ctx, u); err != nil {
			h.fail(w, r, err)
			return
		}
		writeUpdated(w)
	case http.MethodDelete:
		if err := h.store.Users.Delete(ctx, id); err != nil {
			h.fail(w, r, err)
			return
		}
		writeDeleted(w, http.StatusNoContent)
	default:
		_, err := h.store.Users.Get(ctx, id)
		h.rejectMethod(w, r, err)
	}
}

type orderRequest struct {
	UserID      *int64  `json:"user_id"`
	ProductName *string `json:"product_name"`
	Amount      *int    `json:"amount"`
	Status      *string `json:"status"`
}

// checkUser writes a 404 and returns false when the user does not exist.
func (h *Handler) checkUser(w http.ResponseWriter, r *http.Request, id int64) bool {
	_, err := h.store.Users.Get(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "User not found")
		return false
	}
	if err != nil {
		h.fail(w, r, err)
		return false
	}
	return true
}

func (h *Handler) handleOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		orders, err := h.store.Orders.List(ctx)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
	case http.MethodPost:
		var req orderRequest
		if !h.decode(w, r, &req) {
			return
		}
		if req.UserID == nil {
			writeError(w, http.StatusBadRequest, "user_id is required")
			return
		}
		if !h.checkUser(w, r, *req.UserID) {
			return
		}
		o := &entity.Order{
			UserID:      *req.UserID,
			ProductName: trimmed(req.ProductName, ""),
			Amount:      or(req.Amount, 0),
			Status:      or(req.Status, entity.OrderPending),
		}
		if err := o.Validate(); err != nil {
			h.fail(w, r, err)
			return
		}
		if err := h.store.Orders.Create(ctx, o); err != nil {
			h.fail(w, r, err)
			return
		}
		writeCreated(w, http.StatusCreated, o.ID)
	default:
		writeMethodNotAllowed(w)
	}
}

func (h *Handler) handleOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		o, err := h.store.Orders.Get(ctx, id)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, o)
	case http.MethodPut:
		o, err := h.store.Orders.Get(ctx, id)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		var req orderRequest
		if !h.decode(w, r, &req) {
			return
		}
		if req.UserID != nil && *req.UserID != o.UserID {
			if !h.checkUser(w, r, *req.UserID) {
				return
			}
			o.UserID = *req.UserID
		}
		o.ProductName = trimmed(req.ProductName, o.ProductName)
		o.Amount = or(req.Amount, o.Amount)
		o.Status = or(req.Status, o.Status)
		if err := o.Validate(); err != nil {
			h.fail(w, r, err)
			return
		}
		if err := h.store.Orders.Update(ctx, o); err != nil {
			h.fail(w, r, err)
			return
		}
		writeUpdated(w)
	case http.MethodDelete:
		if err := h.store.Orders.Delete(ctx, id); err != nil {
			h.fail(w, r, err)
			return
		}
		writeDeleted(w, http.StatusNoContent)
	default:
		_, err := h.store.Orders.Get(ctx, id)
		h.rejectMethod(w, r, err)
	}
}
