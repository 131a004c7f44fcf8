package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/navigation/internal/model"
	"github.com/sakif/navigation/internal/service"
)

// CategoryHandler serves /categories.
type CategoryHandler struct {
	service *service.CategoryService
	logger  *slog.Logger
}

func NewCategoryHandler(svc *service.CategoryService, logger *slog.Logger) *CategoryHandler {
	return &CategoryHandler{service: svc, logger: logger}
}

// HandleList returns every category; signed-in callers also get the
// virtual Mine entry first.
//
// HTTP: GET /categories
func (h *CategoryHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	views, err := h.service.List(r.Context(), callerOf(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

// HandleGet answers null for an unknown id.
//
// HTTP: GET /categories/{id}
func (h *CategoryHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	category, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, category)
}

// HTTP: POST /categories
// REQUEST BODY: {"name": "AI", "icon": "🤖", "sortOrder": 1}
func (h *CategoryHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in model.CategoryInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	category, err := h.service.Create(r.Context(), callerOf(r), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, category)
}

// HTTP: PUT /categories/{id}
// Only the fields present in the body change.
func (h *CategoryHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var patch model.CategoryPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, err)
		return
	}

	category, err := h.service.Update(r.Context(), callerOf(r), id, patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, category)
}

// HTTP: DELETE /categories/{id}
func (h *CategoryHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.service.Delete(r.Context(), callerOf(r), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
