package api

import (
	"github.com/starford/pastename/internal/models"
	"github.com/starford/pastename/internal/paste"
	"github.com/starford/pastename/internal/workspace"
)

// UpdateSettingsRequest is the request body for changing the rename template.
type UpdateSettingsRequest struct {
	Template string `json:"template" example:"{{fileName}}-{{DATE:YYYYMMDDHHmmss}}" validate:"required"`
}

// SessionRequest reports the editor focus.
type SessionRequest = workspace.Focus

// SessionResponse describes the active document.
type SessionResponse struct {
	Document *models.ActiveDocument `json:"document"`
}

// PreviewRequest asks which name a pasted file would get.
type PreviewRequest struct {
	Ext string `json:"ext" example:"png" validate:"required"`
	// Template overrides the saved template when non-empty.
	Template string `json:"template,omitempty" example:"{{DATE:YYYY.MM.DD-hhmmss}}"`
}

// PreviewResponse carries the generated name.
type PreviewResponse struct {
	Name string `json:"name" example:"2024.03.09-020506.png" validate:"required"`
}

// RenameRequest runs the rename pipeline on an existing vault file.
type RenameRequest struct {
	Path string `json:"path" example:"attachments/Pasted image 20240309140506.png" validate:"required"`
}

// RenameResult is the rename outcome (aliased from the domain layer).
type RenameResult = models.RenameResult

// ActivityResponse wraps recent notices, newest first.
type ActivityResponse struct {
	Notices []models.Notice `json:"notices" validate:"required"`
}

// AttachmentUploadResponse is returned after a successful paste upload.
type AttachmentUploadResponse = paste.Result
