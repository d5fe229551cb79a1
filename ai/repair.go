package ai

import "strings"

// repairResponse rewrites the usual chat model mistakes into decodable JSON.
// Text around the payload (prose, markdown fences) is cut away, trailing
// commas are dropped, and object keys missing one or both quotes are quoted.
// Text inside string literals is never changed.
func repairResponse(s string) string {
	return fixSyntax(extractPayload(s))
}

// extractPayload returns the span from the first opening bracket to the
// last closing one.
func extractPayload(s string) string {
	start := strings.IndexAny(s, "[{")
	end := strings.LastIndexAny(s, "]}")
	if start < 0 || end < start {
		return strings.TrimSpace(s)
	}
	return s[start : end+1]
}

func fixSyntax(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 16)

	inString, escaped := false, false
	// set after { or , where an object key may start
	keyPos := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			b.WriteByte(c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch {
		case c == '"':
			inString, keyPos = true, false
			b.WriteByte(c)
		case c == ',':
			if next := nextSignificant(s, i+1); next == ']' || next == '}' {
				continue
			}
			keyPos = true
			b.WriteByte(c)
		case c == '{':
			keyPos = true
			b.WriteByte(c)
		case isSpace(c):
			b.WriteByte(c)
		case keyPos && isKeyStart(c):
			j := i
			for j < len(s) && isKeyByte(s[j]) {
				j++
			}
			key := s[i:j]
			switch {
			case j < len(s) && s[j] == '"' && nextSignificant(s, j+1) == ':':
				// name": is missing its opening quote
				b.WriteString(`"` + key + `"`)
				i = j
			case nextSignificant(s, j) == ':':
				b.WriteString(`"` + key + `"`)
				i = j - 1
			default:
				b.WriteString(key)
				i = j - 1
			}
			keyPos = false
		default:
			keyPos = false
			b.WriteByte(c)
		}
	}
	return b.String()
}

// nextSignificant returns the first non-space byte at or after i, or 0.
func nextSignificant(s string, i int) byte {
	for ; i < len(s); i++ {
		if !isSpace(s[i]) {
			return s[i]
		}
	}
	return 0
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isKeyStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKeyByte(c byte) bool {
	return isKeyStart(c) || c == '-' || (c >= '0' && c <= '9')
}
