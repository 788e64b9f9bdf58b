package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path"

	"github.com/starford/pastename/internal/apperr"
	"github.com/starford/pastename/internal/paste"
)

// AttachmentHandler accepts pasted image uploads.
type AttachmentHandler struct {
	saver *paste.Saver
}

// NewAttachmentHandler creates a handler writing through saver.
func NewAttachmentHandler(saver *paste.Saver) *AttachmentHandler {
	return &AttachmentHandler{saver: saver}
}

// Upload handles POST /api/attachments (multipart/form-data, field "file").
//
// The client's file name only contributes its extension. The file is stored
// under the host's default pasted-image name, with an embed inserted at the
// active cursor, so the watcher renames it like a clipboard paste.
func (h *AttachmentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, paste.MaxSize+1<<20)

	if err := r.ParseMultipartForm(paste.MaxSize); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, paste.MaxSize+1))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read file"))
		return
	}

	res, err := h.saver.Paste(r.Context(), data, path.Ext(header.Filename))
	if err != nil {
		if errors.Is(err, apperr.ErrAlreadyExists) {
			writeJSON(w, http.StatusConflict, errorBody(err.Error()))
			return
		}
		slog.Warn("attachments: upload rejected",
			slog.String("filename", header.Filename),
			slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	writeJSON(w, http.StatusCreated, res)
}
