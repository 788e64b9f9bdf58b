// Package renamer runs the pasted-image pipeline: classify the new file,
// generate its name, rename it, then fix the link on the cursor line.
package renamer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/starford/pastename/internal/apperr"
	"github.com/starford/pastename/internal/classifier"
	"github.com/starford/pastename/internal/linkrewrite"
	"github.com/starford/pastename/internal/models"
	"github.com/starford/pastename/internal/naming"
)

// producedTTL bounds how long a destination we created is ignored by Handle.
const producedTTL = 5 * time.Second

// Workspace reads the active document and edits single lines in it.
type Workspace interface {
	Active(ctx context.Context) (*models.ActiveDocument, error)
	Line(ctx context.Context, docPath string, line int) (string, error)
	ReplaceLine(ctx context.Context, docPath string, line int, text string) error
}

// Vault performs the file-system side of a rename.
type Vault interface {
	Stat(path string) (fs.FileInfo, error)
	Move(oldPath, newPath string) error
}

// TemplateSource supplies the current rename template.
type TemplateSource interface {
	Template() string
}

// LinkStyleSource reports the vault's link syntax.
type LinkStyleSource interface {
	LinkStyle() models.LinkStyle
}

// Notifier delivers user-visible notices.
type Notifier interface {
	Notify(ctx context.Context, n models.Notice)
}

// Service runs rename operations.
type Service struct {
	ws       Workspace
	vault    Vault
	settings TemplateSource
	links    LinkStyleSource
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time

	mu       sync.Mutex
	produced map[string]time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// New creates a rename service.
func New(ws Workspace, vault Vault, settings TemplateSource, links LinkStyleSource, notifier Notifier, opts ...Option) *Service {
	s := &Service{
		ws:       ws,
		vault:    vault,
		settings: settings,
		links:    links,
		notifier: notifier,
		logger:   slog.Default(),
		now:      time.Now,
		produced: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handle is the watcher callback for a newly created file. It returns true
// when the file was accepted and a rename was attempted.
func (s *Service) Handle(ctx context.Context, file models.ObservedFile) bool {
	if s.consumeProduced(file.Path) {
		s.logger.Debug("renamer: skip own rename", slog.String("path", file.Path))
		return false
	}
	if !classifier.IsCandidate(file, s.now()) {
		return false
	}
	s.logger.Debug("renamer: pasted image detected", slog.String("path", file.Path))
	_, _ = s.Rename(ctx, file)
	return true
}

// RenamePath renames the vault file at rel on demand. The age check is
// skipped, the name heuristic is not.
func (s *Service) RenamePath(ctx context.Context, rel string) (*models.RenameResult, error) {
	info, err := s.vault.Stat(rel)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("renamer: %s: %w", rel, apperr.ErrNotFound)
		}
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("renamer: %s is a directory: %w", rel, apperr.ErrNotPastedImage)
	}
	file := models.NewObservedFile(rel, info.ModTime())
	if !classifier.IsPastedImage(file) {
		return nil, fmt.Errorf("renamer: %s: %w", rel, apperr.ErrNotPastedImage)
	}
	return s.Rename(ctx, file)
}

// Preview returns the name a file with extension ext would get for the
// active document, without touching anything. An empty tmpl means the
// current template.
func (s *Service) Preview(ctx context.Context, tmpl, ext string) (string, error) {
	if tmpl == "" {
		tmpl = s.settings.Template()
	} else if err := naming.ValidateTemplate(tmpl); err != nil {
		return "", err
	}
	doc, err := s.ws.Active(ctx)
	if err != nil {
		return "", err
	}
	name := naming.Generate(tmpl, s.nameContext(doc), strings.TrimPrefix(ext, "."))
	if err := naming.ValidateName(name); err != nil {
		return "", err
	}
	return name, nil
}

// Rename moves file to its generated name and rewrites the reference on the
// active document's cursor line. Failures are reported through the notifier
// as well as returned.
func (s *Service) Rename(ctx context.Context, file models.ObservedFile) (*models.RenameResult, error) {
	doc, err := s.ws.Active(ctx)
	if err != nil {
		if !errors.Is(err, apperr.ErrNoActiveDocument) {
			err = fmt.Errorf("%w: %w", apperr.ErrNoActiveDocument, err)
		}
		s.notify(ctx, models.Notice{Level: models.NoticeError, Message: "Error: No active file found.", OldName: file.Name})
		return nil, err
	}
	if doc.Cursor == nil {
		s.notify(ctx, models.Notice{
			Level:    models.NoticeError,
			Message:  fmt.Sprintf("Failed to rename %s: no active editor", file.Name),
			OldName:  file.Name,
			Document: doc.Path,
		})
		return nil, apperr.ErrNoEditor
	}

	newName := naming.Generate(s.settings.Template(), s.nameContext(doc), file.Ext)
	if err := naming.ValidateName(newName); err != nil {
		s.notify(ctx, models.Notice{
			Level:    models.NoticeError,
			Message:  fmt.Sprintf("Failed to rename %s: %v", file.Name, err),
			OldName:  file.Name,
			Document: doc.Path,
		})
		return nil, err
	}
	newPath := path.Join(file.Dir, newName)
	res := &models.RenameResult{
		OldName:  file.Name,
		NewName:  newName,
		NewPath:  newPath,
		Document: doc.Path,
	}

	s.markProduced(newPath)
	if err := s.vault.Move(file.Path, newPath); err != nil {
		s.forgetProduced(newPath)
		err = fmt.Errorf("%w: %s: %w", apperr.ErrRenameFailed, newName, err)
		s.notify(ctx, models.Notice{
			Level:    models.NoticeError,
			Message:  fmt.Sprintf("Failed to rename %s: %v", newName, err),
			OldName:  file.Name,
			NewName:  newName,
			Document: doc.Path,
		})
		return nil, err
	}

	if err := s.rewriteCursorLine(ctx, doc, file, newName, res); err != nil {
		res.LinkError = err.Error()
		s.notify(ctx, models.Notice{
			Level:    models.NoticeWarn,
			Message:  fmt.Sprintf("Renamed %s to %s, but the link was not updated: %v", file.Name, newName, err),
			OldName:  file.Name,
			NewName:  newName,
			Document: doc.Path,
		})
		return res, nil
	}

	s.notify(ctx, models.Notice{
		Level:    models.NoticeInfo,
		Message:  fmt.Sprintf("Renamed %s to %s", file.Name, newName),
		OldName:  file.Name,
		NewName:  newName,
		Document: doc.Path,
	})
	return res, nil
}

func (s *Service) rewriteCursorLine(ctx context.Context, doc *models.ActiveDocument, file models.ObservedFile, newName string, res *models.RenameResult) error {
	line, err := s.ws.Line(ctx, doc.Path, doc.Cursor.Line)
	if err != nil {
		return err
	}
	newStem, _ := naming.SplitName(newName)
	rewritten, ok := linkrewrite.RewriteLine(line, file.Stem(), file.Ext, newStem, s.links.LinkStyle())
	if !ok {
		s.logger.Debug("renamer: no link on cursor line",
			slog.String("document", doc.Path),
			slog.Int("line", doc.Cursor.Line))
		return nil
	}
	if err := s.ws.ReplaceLine(ctx, doc.Path, doc.Cursor.Line, rewritten); err != nil {
		return err
	}
	res.NewLine = rewritten
	res.LineChanged = true
	return nil
}

func (s *Service) nameContext(doc *models.ActiveDocument) naming.Context {
	return naming.Context{
		Now:          s.now(),
		FileName:     doc.BaseName,
		ImageNameKey: doc.ImageNameKey,
	}
}

func (s *Service) notify(ctx context.Context, n models.Notice) {
	if n.At.IsZero() {
		n.At = s.now()
	}
	if s.notifier != nil {
		s.notifier.Notify(ctx, n)
	}
}

func (s *Service) markProduced(p string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for k, at := range s.produced {
		if now.Sub(at) > producedTTL {
			delete(s.produced, k)
		}
	}
	s.produced[p] = now
}

func (s *Service) forgetProduced(p string) {
	s.mu.Lock()
	delete(s.produced, p)
	s.mu.Unlock()
}

// consumeProduced reports whether p is a destination this service just
// created, and forgets it.
func (s *Service) consumeProduced(p string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	at, ok := s.produced[p]
	if !ok {
		return false
	}
	delete(s.produced, p)
	return s.now().Sub(at) <= producedTTL
}
