package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/pastename/internal/apperr"
	"github.com/starford/pastename/internal/journal"
	"github.com/starford/pastename/internal/models"
	"github.com/starford/pastename/internal/renamer"
	"github.com/starford/pastename/internal/settings"
	"github.com/starford/pastename/internal/workspace"
)

const maxJSONBytes = 1 << 20

// Handler holds API route handlers.
type Handler struct {
	settings  *settings.Store
	workspace *workspace.Service
	renamer   *renamer.Service
	journal   journal.Store
}

// NewHandler creates a new Handler.
func NewHandler(deps Deps) *Handler {
	return &Handler{
		settings:  deps.Settings,
		workspace: deps.Workspace,
		renamer:   deps.Renamer,
		journal:   deps.Journal,
	}
}

// writeError maps domain errors to HTTP status codes.
func writeError(w http.ResponseWriter, op string, err error) {
	var verr validation.Errors
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrAlreadyExists),
		errors.Is(err, apperr.ErrNoActiveDocument),
		errors.Is(err, apperr.ErrNoEditor):
		writeJSON(w, http.StatusConflict, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrInvalidTemplate),
		errors.Is(err, apperr.ErrNotPastedImage),
		errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrRenameFailed):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody(err.Error()))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	return true
}

// GetSettings handles GET /api/settings.
//
//	@Summary		Get the rename settings
//	@Tags			settings
//	@Produce		json
//	@Success		200	{object}	settings.Settings
//	@Security		BearerAuth
//	@Router			/settings [get]
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.settings.Get())
}

// UpdateSettings handles PUT /api/settings.
//
//	@Summary		Replace the rename template
//	@Tags			settings
//	@Accept			json
//	@Produce		json
//	@Param			body	body		UpdateSettingsRequest	true	"New template"
//	@Success		200		{object}	settings.Settings
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/settings [put]
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req UpdateSettingsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	updated, err := h.settings.SetTemplate(req.Template)
	if err != nil {
		writeError(w, "update settings", err)
		return
	}
	slog.Info("settings: template changed", slog.String("template", updated.Template))
	writeJSON(w, http.StatusOK, updated)
}

// GetSession handles GET /api/session.
//
//	@Summary		Get the active document
//	@Tags			session
//	@Produce		json
//	@Success		200	{object}	SessionResponse
//	@Failure		409	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/session [get]
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	doc, err := h.workspace.Active(r.Context())
	if err != nil {
		writeError(w, "get session", err)
		return
	}
	writeJSON(w, http.StatusOK, SessionResponse{Document: doc})
}

// SetSession handles PUT /api/session.
//
//	@Summary		Report the focused document and cursor
//	@Tags			session
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SessionRequest	true	"Editor focus"
//	@Success		200		{object}	SessionResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/session [put]
func (h *Handler) SetSession(w http.ResponseWriter, r *http.Request) {
	var req SessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	doc, err := h.workspace.SetFocus(r.Context(), req)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody(err.Error()))
		} else {
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		}
		return
	}
	writeJSON(w, http.StatusOK, SessionResponse{Document: doc})
}

// ClearSession handles DELETE /api/session.
//
//	@Summary		Forget the active document
//	@Tags			session
//	@Success		204	"Focus cleared"
//	@Security		BearerAuth
//	@Router			/session [delete]
func (h *Handler) ClearSession(w http.ResponseWriter, r *http.Request) {
	h.workspace.ClearFocus()
	w.WriteHeader(http.StatusNoContent)
}

// Preview handles POST /api/preview.
//
//	@Summary		Render the name a pasted image would get
//	@Tags			rename
//	@Accept			json
//	@Produce		json
//	@Param			body	body		PreviewRequest	true	"Extension and optional template"
//	@Success		200		{object}	PreviewResponse
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/preview [post]
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	var req PreviewRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Ext == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("ext is required"))
		return
	}
	name, err := h.renamer.Preview(r.Context(), req.Template, req.Ext)
	if err != nil {
		writeError(w, "preview", err)
		return
	}
	writeJSON(w, http.StatusOK, PreviewResponse{Name: name})
}

// Rename handles POST /api/rename.
//
//	@Summary		Rename a pasted image now
//	@Description	Runs the rename pipeline for an existing vault file, skipping the age check.
//	@Tags			rename
//	@Accept			json
//	@Produce		json
//	@Param			body	body		RenameRequest	true	"Vault-relative image path"
//	@Success		200		{object}	RenameResult
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/rename [post]
func (h *Handler) Rename(w http.ResponseWriter, r *http.Request) {
	var req RenameRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	res, err := h.renamer.RenamePath(r.Context(), req.Path)
	if err != nil {
		writeError(w, "rename", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Activity handles GET /api/activity.
//
//	@Summary		List recent notices
//	@Tags			activity
//	@Produce		json
//	@Param			limit	query		int		false	"Max notices"
//	@Param			level	query		string	false	"Filter by level"	Enums(info, warn, error)
//	@Success		200		{object}	ActivityResponse
//	@Security		BearerAuth
//	@Router			/activity [get]
func (h *Handler) Activity(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	notices, err := h.journal.Recent(r.Context(), limit, q.Get("level"))
	if err != nil {
		writeError(w, "activity", err)
		return
	}
	if notices == nil {
		notices = []models.Notice{}
	}
	writeJSON(w, http.StatusOK, ActivityResponse{Notices: notices})
}
