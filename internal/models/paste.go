// Package models defines the domain types for pastename.
package models

import (
	"path"
	"strings"
	"time"
)

// ObservedFile is a file reported by the vault watcher.
type ObservedFile struct {
	Path      string    `json:"path"` // vault-relative, forward slashes
	Name      string    `json:"name"`
	Ext       string    `json:"ext"` // without the leading dot
	Dir       string    `json:"dir"` // "" for the vault root
	CreatedAt time.Time `json:"created_at"`
}

// Stem returns the file name without its extension.
func (f ObservedFile) Stem() string {
	if f.Ext == "" {
		return f.Name
	}
	return strings.TrimSuffix(f.Name, "."+f.Ext)
}

// NewObservedFile builds an ObservedFile from a vault-relative path.
func NewObservedFile(rel string, createdAt time.Time) ObservedFile {
	rel = strings.TrimPrefix(path.Clean(strings.ReplaceAll(rel, "\\", "/")), "/")
	name := path.Base(rel)
	dir := path.Dir(rel)
	if dir == "." {
		dir = ""
	}
	return ObservedFile{
		Path:      rel,
		Name:      name,
		Ext:       strings.TrimPrefix(path.Ext(name), "."),
		Dir:       dir,
		CreatedAt: createdAt,
	}
}

// Cursor is a zero-based position inside a document.
type Cursor struct {
	Line int `json:"line"`
	Ch   int `json:"ch"`
}

// ActiveDocument is the note currently focused for editing.
type ActiveDocument struct {
	Path        string         `json:"path"`
	BaseName    string         `json:"base_name"`
	Frontmatter map[string]any `json:"frontmatter,omitempty"`
	// ImageNameKey is the "imageNameKey" frontmatter value, "" when absent.
	ImageNameKey string  `json:"image_name_key,omitempty"`
	Cursor       *Cursor `json:"cursor,omitempty"` // nil when no editor is attached
}

// LinkStyle selects the syntax used to embed images in notes.
type LinkStyle int

const (
	LinkStyleWiki     LinkStyle = iota // ![[path/name.png]]
	LinkStyleMarkdown                  // ![](path/name.png)
)

func (s LinkStyle) String() string {
	if s == LinkStyleMarkdown {
		return "markdown"
	}
	return "wikilink"
}

// RenameResult is the outcome of a single rename operation.
type RenameResult struct {
	OldName     string `json:"old_name"`
	NewName     string `json:"new_name"`
	NewPath     string `json:"new_path"`
	Document    string `json:"document"`
	NewLine     string `json:"new_line,omitempty"`
	LineChanged bool   `json:"line_changed"`
	// LinkError is set when the file was renamed but the line edit failed.
	LinkError string `json:"link_error,omitempty"`
}

// Notice levels.
const (
	NoticeInfo  = "info"
	NoticeWarn  = "warn"
	NoticeError = "error"
)

// Notice is a transient user-facing status message.
type Notice struct {
	ID       int64     `json:"id,omitempty"`
	Level    string    `json:"level"`
	Message  string    `json:"message"`
	OldName  string    `json:"old_name,omitempty"`
	NewName  string    `json:"new_name,omitempty"`
	Document string    `json:"document,omitempty"`
	At       time.Time `json:"at"`
}
