package workspace

import "strings"

type line struct {
	text string
	cr   bool // line ended with "\r\n"
}

// splitLines splits content on '\n', remembering CRLF endings. A trailing
// newline produces a final empty line, the way editors number lines.
func splitLines(content string) []line {
	parts := strings.Split(content, "\n")
	out := make([]line, len(parts))
	for i, p := range parts {
		if i < len(parts)-1 && strings.HasSuffix(p, "\r") {
			out[i] = line{text: strings.TrimSuffix(p, "\r"), cr: true}
			continue
		}
		out[i] = line{text: p}
	}
	return out
}

func joinLines(lines []line) string {
	var b strings.Builder
	for i, l := range lines {
		b.WriteString(l.text)
		if i == len(lines)-1 {
			break
		}
		if l.cr {
			b.WriteByte('\r')
		}
		b.WriteByte('\n')
	}
	return b.String()
}
