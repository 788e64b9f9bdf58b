// Package paste stores uploaded clipboard images in the vault under the
// host's default pasted-image name, so the watcher treats them like a paste.
package paste

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/starford/pastename/internal/apperr"
	"github.com/starford/pastename/internal/classifier"
	"github.com/starford/pastename/internal/linkrewrite"
	"github.com/starford/pastename/internal/models"
	"github.com/starford/pastename/internal/storage"
)

// MaxSize caps a single pasted image.
const MaxSize = 10 << 20 // 10 MB

// StampLayout is the timestamp the host appends to pasted-image names.
const StampLayout = "20060102150405"

var (
	allowedExtensions = map[string]bool{
		"png": true, "jpg": true, "jpeg": true, "gif": true, "webp": true,
	}

	mimeToExt = map[string]string{
		"image/png":  "png",
		"image/jpeg": "jpg",
		"image/gif":  "gif",
		"image/webp": "webp",
	}
)

// Editor is the active-document access a paste needs to embed its link.
type Editor interface {
	Active(ctx context.Context) (*models.ActiveDocument, error)
	Line(ctx context.Context, docPath string, line int) (string, error)
	ReplaceLine(ctx context.Context, docPath string, line int, text string) error
}

// LinkStyleSource reports the vault's link syntax.
type LinkStyleSource interface {
	LinkStyle() models.LinkStyle
}

// Saver writes pasted images into a vault folder.
type Saver struct {
	store  storage.Provider
	dir    string
	editor Editor
	links  LinkStyleSource
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Saver.
type Option func(*Saver)

// WithEditor makes Paste embed a link at the active cursor before the image
// is written, the way the host does on a clipboard paste.
func WithEditor(editor Editor, links LinkStyleSource) Option {
	return func(s *Saver) {
		s.editor = editor
		s.links = links
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Saver) { s.logger = logger }
}

// NewSaver creates a Saver writing under dir (vault-relative, "" for the root).
func NewSaver(store storage.Provider, dir string, opts ...Option) *Saver {
	s := &Saver{
		store:  store,
		dir:    strings.Trim(strings.ReplaceAll(dir, "\\", "/"), "/"),
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Result describes a completed paste.
type Result struct {
	Path string `json:"path"`
	Size int64  `json:"size"`
	// Link and Document are set when the embed was inserted into a note.
	Link     string `json:"link,omitempty"`
	Document string `json:"document,omitempty"`
}

// Paste stores data like Save and, when an editor is attached and a document
// is active, first inserts an embed of the new file at the cursor. The watcher
// then renames the file and rewrites that embed.
func (s *Saver) Paste(ctx context.Context, data []byte, ext string) (*Result, error) {
	rel, err := s.prepare(data, ext)
	if err != nil {
		return nil, err
	}
	res := &Result{Path: rel, Size: int64(len(data))}

	var undo func()
	if s.editor != nil {
		undo = s.embed(ctx, res)
	}

	if err := s.store.Write(rel, data); err != nil {
		if undo != nil {
			undo()
		}
		return nil, fmt.Errorf("paste: save: %w", err)
	}
	return res, nil
}

// embed inserts the link at the cursor and returns a func restoring the line.
// Without an active editor it does nothing and returns nil.
func (s *Saver) embed(ctx context.Context, res *Result) func() {
	doc, err := s.editor.Active(ctx)
	if err != nil || doc.Cursor == nil {
		return nil
	}
	at := *doc.Cursor
	orig, err := s.editor.Line(ctx, doc.Path, at.Line)
	if err != nil {
		s.logger.Warn("paste: cursor line unavailable",
			slog.String("document", doc.Path),
			slog.String("error", err.Error()))
		return nil
	}

	style := s.links.LinkStyle()
	target := res.Path
	if style == models.LinkStyleMarkdown {
		target = linkrewrite.EncodeURI(target)
	}
	link := linkrewrite.Link(target, style)
	if err := s.editor.ReplaceLine(ctx, doc.Path, at.Line, insertAt(orig, at.Ch, link)); err != nil {
		s.logger.Warn("paste: embed failed",
			slog.String("document", doc.Path),
			slog.String("error", err.Error()))
		return nil
	}
	res.Link = link
	res.Document = doc.Path
	return func() {
		res.Link, res.Document = "", ""
		_ = s.editor.ReplaceLine(ctx, doc.Path, at.Line, orig)
	}
}

// insertAt inserts text at rune offset ch, clamped to the line.
func insertAt(line string, ch int, text string) string {
	r := []rune(line)
	if ch < 0 {
		ch = 0
	}
	if ch > len(r) {
		ch = len(r)
	}
	return string(r[:ch]) + text + string(r[ch:])
}

// Dir returns the vault-relative folder pastes are written to.
func (s *Saver) Dir() string { return s.dir }

// Save validates data against ext and writes it as
// "Pasted image <stamp>.<ext>". It returns the vault-relative path.
func (s *Saver) Save(data []byte, ext string) (string, error) {
	rel, err := s.prepare(data, ext)
	if err != nil {
		return "", err
	}
	if err := s.store.Write(rel, data); err != nil {
		return "", fmt.Errorf("paste: save: %w", err)
	}
	return rel, nil
}

// prepare validates the upload and picks a free destination.
func (s *Saver) prepare(data []byte, ext string) (string, error) {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if ext == "" {
		ext = DetectExt(data)
	}
	if !allowedExtensions[ext] {
		return "", fmt.Errorf("unsupported file extension: %q (allowed: png, jpg, jpeg, gif, webp)", ext)
	}
	if len(data) > MaxSize {
		return "", fmt.Errorf("file too large: %d bytes (max %d)", len(data), MaxSize)
	}
	if err := ValidateContent(data, ext); err != nil {
		return "", err
	}

	rel := path.Join(s.dir, Name(s.now(), ext))
	if s.exists(rel) {
		// Two pastes within the same second.
		rel = path.Join(s.dir, fmt.Sprintf("%s%s %s.%s",
			classifier.PastedImagePrefix, s.now().Format(StampLayout), uuid.New().String()[:8], ext))
	}
	if s.exists(rel) {
		return "", fmt.Errorf("paste: %s: %w", rel, apperr.ErrAlreadyExists)
	}
	return rel, nil
}

func (s *Saver) exists(rel string) bool {
	_, err := s.store.Stat(rel)
	return err == nil
}

// Name returns the host's default name for an image pasted at t.
func Name(t time.Time, ext string) string {
	return classifier.PastedImagePrefix + t.Format(StampLayout) + "." + ext
}

// DecodeDataURI parses a data:<mediatype>;base64,<data> URI and returns the
// payload with the extension implied by its media type.
func DecodeDataURI(uri string) ([]byte, string, error) {
	rest := strings.TrimPrefix(uri, "data:")
	if rest == uri {
		return nil, "", fmt.Errorf("invalid data URI: missing data: scheme")
	}
	commaIdx := strings.Index(rest, ",")
	if commaIdx < 0 {
		return nil, "", fmt.Errorf("invalid data URI: missing comma separator")
	}

	meta := rest[:commaIdx]
	encoded := rest[commaIdx+1:]

	if !strings.Contains(meta, ";base64") {
		return nil, "", fmt.Errorf("only base64 data URIs are supported")
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, "", fmt.Errorf("invalid base64 data: %w", err)
		}
	}

	mime := strings.Split(strings.TrimSuffix(meta, ";base64"), ";")[0]
	ext := mimeToExt[mime]
	if ext == "" {
		return nil, "", fmt.Errorf("unsupported MIME type in data URI: %s", mime)
	}
	return data, ext, nil
}

// DetectExt sniffs the image type of data, "" when unknown.
func DetectExt(data []byte) string {
	return mimeToExt[strings.Split(http.DetectContentType(data), ";")[0]]
}

// ValidateContent verifies that data is an image of type ext.
func ValidateContent(data []byte, ext string) error {
	detected := DetectExt(data)
	switch ext {
	case "jpg", "jpeg":
		if detected != "jpg" {
			return fmt.Errorf("content does not match extension %s (detected: %s)", ext, http.DetectContentType(data))
		}
	default:
		if detected != ext {
			return fmt.Errorf("content does not match extension %s (detected: %s)", ext, http.DetectContentType(data))
		}
	}
	return nil
}
