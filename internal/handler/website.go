package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/sakif/navigation/internal/apperror"
	"github.com/sakif/navigation/internal/model"
	"github.com/sakif/navigation/internal/service"
)

// WebsiteHandler serves /websites, including clicks and favorites.
type WebsiteHandler struct {
	websites  *service.WebsiteService
	favorites *service.FavoriteService
	logger    *slog.Logger
}

func NewWebsiteHandler(websites *service.WebsiteService, favorites *service.FavoriteService, logger *slog.Logger) *WebsiteHandler {
	return &WebsiteHandler{websites: websites, favorites: favorites, logger: logger}
}

// FavoriteStatus is the body of GET /websites/{id}/favorite.
type FavoriteStatus struct {
	IsFavorite bool `json:"isFavorite"`
}

// HandleList lists websites visible to the caller.
//
// HTTP: GET /websites?categoryId=3
//
// categoryId=-1 is the caller's "Mine" view and needs a signed-in caller.
func (h *WebsiteHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	categoryID, err := queryCategoryID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	websites, err := h.websites.List(r.Context(), callerOf(r), categoryID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, websites)
}

// HandleGet answers null for an unknown id and 403 for a private website
// the caller may not see.
//
// HTTP: GET /websites/{id}
func (h *WebsiteHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	website, err := h.websites.GetByID(r.Context(), callerOf(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, website)
}

// HTTP: POST /websites
// REQUEST BODY: {"title": "...", "url": "...", "description": "...", "icon": "...", "categoryId": 3}
func (h *WebsiteHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in model.WebsiteInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	website, err := h.websites.Create(r.Context(), callerOf(r), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, website)
}

// HTTP: PUT /websites/{id}
func (h *WebsiteHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var patch model.WebsitePatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, err)
		return
	}

	website, err := h.websites.Update(r.Context(), callerOf(r), id, patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, website)
}

// HTTP: DELETE /websites/{id}
func (h *WebsiteHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.websites.Delete(r.Context(), callerOf(r), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HTTP: POST /websites/{id}/click
func (h *WebsiteHandler) HandleClick(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.websites.Click(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HTTP: GET /websites/{id}/favorite
func (h *WebsiteHandler) HandleFavoriteStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	ok, err := h.favorites.IsFavorite(r.Context(), callerOf(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, FavoriteStatus{IsFavorite: ok})
}

// HTTP: POST /websites/{id}/favorite
func (h *WebsiteHandler) HandleAddFavorite(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.favorites.Add(r.Context(), callerOf(r), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, MessageResponse{Message: "favorite added"})
}

// HTTP: DELETE /websites/{id}/favorite
func (h *WebsiteHandler) HandleRemoveFavorite(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.favorites.Remove(r.Context(), callerOf(r), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "favorite removed"})
}

// queryCategoryID reads the optional categoryId query parameter. An empty
// value means no filter.
func queryCategoryID(r *http.Request) (*int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("categoryId"))
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, apperror.ValidationFailed("categoryId", fmt.Sprintf("invalid categoryId %q", raw))
	}
	return &id, nil
}
