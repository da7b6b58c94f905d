package recordsapi

import (
	"errors"
	"net/http"

	"github.com/c360studio/specgen/entity"
	"github.com/c360studio/specgen/storage"
)

type weightRequest struct {
	Name   *string  `json:"name"`
	ScoreA *float64 `json:"score_a"`
	ScoreB *float64 `json:"score_b"`
	ScoreC *float64 `json:"score_c"`
	ScoreD *float64 `json:"score_d"`
}

func (req weightRequest) apply(wc *entity.WeightConfiguration) {
	wc.Name = trimmed(req.Name, wc.Name)
	wc.ScoreA = or(req.ScoreA, wc.ScoreA)
	wc.ScoreB = or(req.ScoreB, wc.ScoreB)
	wc.ScoreC = or(req.ScoreC, wc.ScoreC)
	wc.ScoreD = or(req.ScoreD, wc.ScoreD)
}

func (h *Handler) handleWeightConfigs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		configs, err := h.store.Weights.List(ctx)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"configs": configs})
	case http.MethodPost:
		var req weightRequest
		if !h.decode(w, r, &req) {
			return
		}
		wc := entity.NewWeightConfiguration("")
		req.apply(wc)
		if err := wc.Validate(); err != nil {
			h.fail(w, r, err)
			return
		}
		if err := h.store.Weights.Create(ctx, wc); err != nil {
			h.fail(w, r, err)
			return
		}
		writeCreated(w, http.StatusOK, wc.ID)
	default:
		writeMethodNotAllowed(w)
	}
}

func (h *Handler) handleWeightConfig(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		wc, err := h.store.Weights.Get(ctx, id)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, wc)
	case http.MethodPut:
		wc, err := h.store.Weights.Get(ctx, id)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		var req weightRequest
		if !h.decode(w, r, &req) {
			return
		}
		req.apply(wc)
		if err := wc.Validate(); err != nil {
			h.fail(w, r, err)
			return
		}
		if err := h.store.Weights.Update(ctx, wc); err != nil {
			h.fail(w, r, err)
			return
		}
		writeUpdated(w)
	case http.MethodDelete:
		if err := h.store.Weights.Delete(ctx, id); err != nil {
			h.fail(w, r, err)
			return
		}
		writeDeleted(w, http.StatusOK)
	default:
		_, err := h.store.Weights.Get(ctx, id)
		h.rejectMethod(w, r, err)
	}
}

type ticketRequest struct {
	Title          *string  `json:"title"`
	Desc           *string  `json:"desc"`
	ValueA         *float64 `json:"value_a"`
	ValueB         *float64 `json:"value_b"`
	ValueC         *float64 `json:"value_c"`
	ValueD         *float64 `json:"value_d"`
	WeightConfigID *int64   `json:"weight_config_id"`
}

func (req ticketRequest) apply(t *entity.Ticket) {
	t.Title = trimmed(req.Title, t.Title)
	t.Desc = or(req.Desc, t.Desc)
	t.ValueA = or(req.ValueA, t.ValueA)
	t.ValueB = or(req.ValueB, t.ValueB)
	t.ValueC = or(req.ValueC, t.ValueC)
	t.ValueD = or(req.ValueD, t.ValueD)
	if req.WeightConfigID != nil {
		t.WeightConfigID = req.WeightConfigID
	}
}

// saveTicket reports a missing weight configuration as 404 naming its id.
func (h *Handler) saveTicket(w http.ResponseWriter, r *http.Request, err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return false
	}
	h.fail(w, r, err)
	return false
}

func (h *Handler) handleTickets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		tickets, err := h.store.Tickets.List(ctx)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"tickets": tickets})
	case http.MethodPost:
		var req ticketRequest
		if !h.decode(w, r, &req) {
			return
		}
		t := &entity.Ticket{}
		req.apply(t)
		if err := t.Validate(); err != nil {
			h.fail(w, r, err)
			return
		}
		if !h.saveTicket(w, r, h.store.Tickets.Create(ctx, t)) {
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"result": "created", "id": t.ID, "score": t.Score})
	default:
		writeMethodNotAllowed(w)
	}
}

func (h *Handler) handleTicket(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		t, err := h.store.Tickets.Get(ctx, id)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, t)
	case http.MethodPut:
		t, err := h.store.Tickets.Get(ctx, id)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		var req ticketRequest
		if !h.decode(w, r, &req) {
			return
		}
		req.apply(t)
		if err := t.Validate(); err != nil {
			h.fail(w, r, err)
			return
		}
		if !h.saveTicket(w, r, h.store.Tickets.Update(ctx, t)) {
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"result": "updated", "score": t.Score})
	case http.MethodDelete:
		if err := h.store.Tickets.Delete(ctx, id); err != nil {
			h.fail(w, r, err)
			return
		}
		writeDeleted(w, http.StatusNoContent)
	default:
		_, err := h.store.Tickets.Get(ctx, id)
		h.rejectMethod(w, r, err)
	}
}

type priorityRequest struct {
	Name       *string   `json:"name"`
	FieldOrder *[]string `json:"field_order"`
}

func (h *Handler) handleFieldPriorities(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		configs, err := h.store.Priorities.List(ctx)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"configs": configs})
	case http.MethodPost:
		var req priorityRequest
		if !h.decode(w, r, &req) {
			return
		}
		f := &entity.FieldPriorityConfiguration{
			Name:       trimmed(req.Name, ""),
			FieldOrder: or(req.FieldOrder, nil),
		}
		if err := f.Validate(); err != nil {
			h.fail(w, r, err)
			return
		}
		if err := h.store.Priorities.Create(ctx, f); err != nil {
			h.fail(w, r, err)
			return
		}
		writeCreated(w, http.StatusOK, f.ID)
	default:
		writeMethodNotAllowed(w)
	}
}

func (h *Handler) handleFieldPriority(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		f, err := h.store.Priorities.Get(ctx, id)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, f)
	case http.MethodPut:
		f, err := h.store.Priorities.Get(ctx, id)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		var req priorityRequest
		if !h.decode(w, r, &req) {
			return
		}
		f.Name = trimmed(req.Name, f.Name)
		f.FieldOrder = or(req.FieldOrder, f.FieldOrder)
		if err := f.Validate(); err != nil {
			h.fail(w, r, err)
			return
		}
		if err := h.store.Priorities.Update(ctx, f); err != nil {
			h.fail(w, r, err)
			return
		}
		writeUpdated(w)
	case http.MethodDelete:
		if err := h.store.Priorities.Delete(ctx, id); err != nil {
			h.fail(w, r, err)
			return
		}
		writeDeleted(w, http.StatusOK)
	default:
		_, err := h.store.Priorities.Get(ctx, id)
		h.rejectMethod(w, r, err)
	}
}
