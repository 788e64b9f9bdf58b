// Package naming expands rename templates into new file names.
package naming

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/starford/pastename/internal/apperr"
)

// DefaultTemplate is used when no template has been saved yet.
const DefaultTemplate = "{{DATE:YYYY.MM.DD-hhmmss}}"

// Placeholder names recognised inside {{...}}.
const (
	TokenDate         = "DATE"
	TokenFileName     = "fileName"
	TokenImageNameKey = "imageNameKey"
)

var placeholderRe = regexp.MustCompile(`\{\{([^{}]*)\}\}`)

// Context carries the values a template may refer to.
type Context struct {
	Now          time.Time
	FileName     string // active document base name
	ImageNameKey string // "" when the frontmatter has no imageNameKey
}

// Render expands every recognised placeholder in tmpl. Unknown placeholders
// are left as they are.
func Render(tmpl string, ctx Context) string {
	return placeholderRe.ReplaceAllStringFunc(tmpl, func(m string) string {
		inner := strings.TrimSpace(m[2 : len(m)-2])
		switch {
		case inner == TokenDate:
			return FormatDate(ctx.Now, DefaultDateFormat)
		case strings.HasPrefix(inner, TokenDate+":"):
			return FormatDate(ctx.Now, strings.TrimPrefix(inner, TokenDate+":"))
		case inner == TokenFileName:
			return ctx.FileName
		case inner == TokenImageNameKey:
			return ctx.ImageNameKey
		}
		return m
	})
}

// Generate returns the rendered template joined with ext.
func Generate(tmpl string, ctx Context, ext string) string {
	return Render(tmpl, ctx) + "." + ext
}

// SplitName splits a file name at its last dot. A name without a dot has an
// empty extension.
func SplitName(name string) (stem, ext string) {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return name, ""
	}
	return name[:i], name[i+1:]
}

// ValidateTemplate rejects templates that cannot produce a plain file name.
func ValidateTemplate(tmpl string) error {
	if strings.TrimSpace(tmpl) == "" {
		return fmt.Errorf("%w: template is empty", apperr.ErrInvalidTemplate)
	}
	if strings.ContainsAny(tmpl, "/\\\x00") {
		return fmt.Errorf("%w: template must not contain path separators", apperr.ErrInvalidTemplate)
	}
	return nil
}

// ValidateName rejects a generated name that would not be a visible file in
// the same folder. Placeholder values come from front matter, so a valid
// template can still render one.
func ValidateName(name string) error {
	stem, _ := SplitName(name)
	switch {
	case strings.TrimSpace(stem) == "":
		return fmt.Errorf("%w: template rendered an empty name", apperr.ErrInvalidTemplate)
	case strings.ContainsAny(name, "/\\\x00"):
		return fmt.Errorf("%w: name %q contains a path separator", apperr.ErrInvalidTemplate, name)
	case strings.HasPrefix(stem, "."):
		return fmt.Errorf("%w: name %q would be hidden", apperr.ErrInvalidTemplate, name)
	}
	return nil
}
