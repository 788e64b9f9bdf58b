// Package linkrewrite replaces an embedded image reference inside one line of
// Markdown after the image file has been renamed.
package linkrewrite

import (
	"regexp"
	"strings"

	"github.com/starford/pastename/internal/models"
)

// prefixPattern captures an optional folder path ending in '/'.
const prefixPattern = `([^\[\]]*/)?`

// Pattern builds the regexp that finds a reference to stem.ext in the given style.
// Group 1 holds the folder prefix, if any.
func Pattern(stem, ext string, style models.LinkStyle) *regexp.Regexp {
	variants := stemVariants(stem)
	quoted := make([]string, len(variants))
	for i, v := range variants {
		quoted[i] = regexp.QuoteMeta(v)
	}
	name := `(?:` + strings.Join(quoted, "|") + `)\.` + regexp.QuoteMeta(ext)

	if style == models.LinkStyleMarkdown {
		return regexp.MustCompile(`!\[\]\(` + prefixPattern + name + `\)`)
	}
	return regexp.MustCompile(`!\[\[` + prefixPattern + name + `\]\]`)
}

// RewriteLine replaces the first reference to originalStem.ext in line with a
// reference to newStem.ext, keeping any folder prefix. It returns the line
// unchanged and false when nothing matched.
func RewriteLine(line, originalStem, ext, newStem string, style models.LinkStyle) (string, bool) {
	loc := Pattern(originalStem, ext, style).FindStringSubmatchIndex(line)
	if loc == nil {
		return line, false
	}
	prefix := ""
	if loc[2] >= 0 {
		prefix = line[loc[2]:loc[3]]
	}
	return line[:loc[0]] + Link(prefix+newStem+"."+ext, style) + line[loc[1]:], true
}

// Link formats an embed of target in the given style.
func Link(target string, style models.LinkStyle) string {
	if style == models.LinkStyleMarkdown {
		return "![](" + target + ")"
	}
	return "![[" + target + "]]"
}
