// Package workspace tracks the note being edited and applies line edits to it.
//
// An editor client reports focus changes (document path and cursor) over the
// HTTP or MCP surface. The document itself is always read from the vault, so
// frontmatter and line text reflect what is on disk at rename time.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"sync"

	"github.com/starford/pastename/internal/apperr"
	"github.com/starford/pastename/internal/models"
	"github.com/starford/pastename/internal/parser"
	"github.com/starford/pastename/internal/storage"
)

// ImageNameKeyField is the frontmatter key feeding {{imageNameKey}}.
const ImageNameKeyField = "imageNameKey"

// Focus is the editor state reported by the client.
type Focus struct {
	Path   string         `json:"path"`
	Cursor *models.Cursor `json:"cursor,omitempty"`
}

// Service coordinates the focus session and note storage.
type Service struct {
	store storage.Provider

	mu    sync.RWMutex
	focus *Focus
}

// NewService creates a workspace service over the given vault storage.
func NewService(store storage.Provider) *Service {
	return &Service{store: store}
}

// SetFocus records path as the active document. The note must exist and be
// Markdown. A nil cursor means the document is open without an editor.
func (s *Service) SetFocus(_ context.Context, f Focus) (*models.ActiveDocument, error) {
	p := cleanPath(f.Path)
	if p == "" || !strings.EqualFold(path.Ext(p), ".md") {
		return nil, fmt.Errorf("workspace: %q is not a markdown document", f.Path)
	}
	if f.Cursor != nil && (f.Cursor.Line < 0 || f.Cursor.Ch < 0) {
		return nil, fmt.Errorf("workspace: negative cursor position")
	}
	doc, err := s.load(p, f.Cursor)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.focus = &Focus{Path: p, Cursor: copyCursor(f.Cursor)}
	s.mu.Unlock()
	return doc, nil
}

// ClearFocus forgets the active document.
func (s *Service) ClearFocus() {
	s.mu.Lock()
	s.focus = nil
	s.mu.Unlock()
}

// Focus returns the current focus, or nil.
func (s *Service) Focus() *Focus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.focus == nil {
		return nil
	}
	return &Focus{Path: s.focus.Path, Cursor: copyCursor(s.focus.Cursor)}
}

// Active returns the focused document with its frontmatter freshly read from disk.
func (s *Service) Active(_ context.Context) (*models.ActiveDocument, error) {
	f := s.Focus()
	if f == nil {
		return nil, apperr.ErrNoActiveDocument
	}
	doc, err := s.load(f.Path, f.Cursor)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", apperr.ErrNoActiveDocument, err)
	}
	return doc, err
}

// Line returns the text of line (zero-based) in the document at docPath.
func (s *Service) Line(_ context.Context, docPath string, line int) (string, error) {
	data, err := s.read(docPath)
	if err != nil {
		return "", err
	}
	lines := splitLines(string(data))
	if line < 0 || line >= len(lines) {
		return "", fmt.Errorf("%w: line %d out of range (%d lines)", apperr.ErrNoEditor, line, len(lines))
	}
	return lines[line].text, nil
}

// ReplaceLine swaps the text of a single line, leaving every other byte of
// the document untouched.
func (s *Service) ReplaceLine(_ context.Context, docPath string, line int, text string) error {
	data, err := s.read(docPath)
	if err != nil {
		return err
	}
	lines := splitLines(string(data))
	if line < 0 || line >= len(lines) {
		return fmt.Errorf("%w: line %d out of range (%d lines)", apperr.ErrNoEditor, line, len(lines))
	}
	if lines[line].text == text {
		return nil
	}
	lines[line].text = text
	if err := s.store.Write(docPath, []byte(joinLines(lines))); err != nil {
		return fmt.Errorf("workspace: write %s: %w", docPath, err)
	}
	return nil
}

func (s *Service) load(docPath string, cursor *models.Cursor) (*models.ActiveDocument, error) {
	data, err := s.read(docPath)
	if err != nil {
		return nil, err
	}
	res, err := parser.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("workspace: parse %s: %w", docPath, err)
	}
	base := path.Base(docPath)
	return &models.ActiveDocument{
		Path:         docPath,
		BaseName:     strings.TrimSuffix(base, path.Ext(base)),
		Frontmatter:  res.Frontmatter,
		ImageNameKey: res.String(ImageNameKeyField),
		Cursor:       copyCursor(cursor),
	}, nil
}

func (s *Service) read(docPath string) ([]byte, error) {
	data, err := s.store.Read(docPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("workspace: %s: %w", docPath, apperr.ErrNotFound)
		}
		return nil, err
	}
	return data, nil
}

func cleanPath(p string) string {
	p = strings.TrimSpace(strings.ReplaceAll(p, "\\", "/"))
	if p == "" {
		return ""
	}
	return strings.TrimPrefix(path.Clean("/"+p), "/")
}

func copyCursor(c *models.Cursor) *models.Cursor {
	if c == nil {
		return nil
	}
	cc := *c
	return &cc
}
