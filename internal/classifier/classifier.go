// Package classifier decides whether a newly created vault file is a pasted image.
package classifier

import (
	"strings"
	"time"

	"github.com/starford/pastename/internal/models"
)

const (
	// PastedImagePrefix is the host's default name for pasted images.
	PastedImagePrefix = "Pasted image "
	// MarkdownExt is never treated as a pasted asset.
	MarkdownExt = "md"
	// MaxAge is how old a file may be and still count as freshly pasted.
	MaxAge = 1000 * time.Millisecond
)

var imageExtensions = map[string]struct{}{
	"png":  {},
	"jpg":  {},
	"jpeg": {},
	"gif":  {},
}

// IsCandidate reports whether file looks like an image that was just pasted.
// now is the reference time for the age check.
func IsCandidate(file models.ObservedFile, now time.Time) bool {
	ext := strings.ToLower(file.Ext)
	if ext == MarkdownExt {
		return false
	}
	if now.Sub(file.CreatedAt) > MaxAge {
		return false
	}
	return IsPastedImage(file)
}

// IsPastedImage applies the name and extension heuristic only, without the age check.
func IsPastedImage(file models.ObservedFile) bool {
	if strings.ToLower(file.Ext) == MarkdownExt {
		return false
	}
	if strings.HasPrefix(file.Name, PastedImagePrefix) {
		return true
	}
	_, ok := imageExtensions[strings.ToLower(file.Ext)]
	return ok
}
