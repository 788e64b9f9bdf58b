package linkrewrite

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

const upperHex = "0123456789ABCDEF"

// EncodeURI escapes s the way editors escape file names inside Markdown image
// links: every byte outside the URI reserved and unreserved sets is
// percent-encoded, so a space becomes %20 while '/' and '(' are kept.
func EncodeURI(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if keepInURI(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperHex[c>>4])
		b.WriteByte(upperHex[c&0x0f])
	}
	return b.String()
}

func keepInURI(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte(";,/?:@&=+$-_.!~*'()#", c) >= 0
}

// stemVariants lists the spellings of stem that may appear in a link:
// composed and decomposed Unicode, each raw and URI-escaped.
func stemVariants(stem string) []string {
	seen := make(map[string]struct{}, 6)
	var out []string
	add := func(s string) {
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	for _, form := range []string{stem, norm.NFC.String(stem), norm.NFD.String(stem)} {
		add(form)
		add(EncodeURI(form))
	}
	return out
}
