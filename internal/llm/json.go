package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var errNoJSON = errors.New("no balanced JSON value in response")

// Decoded is the outcome of decoding model output. Exactly one of Value
// (Malformed false) or Err (Malformed true) is meaningful.
type Decoded[T any] struct {
	Value     T
	Malformed bool
	Err       error
}

// OK reports whether the value decoded cleanly.
func (d Decoded[T]) OK() bool {
	return !d.Malformed
}

// DecodeObject decodes the first balanced {...} in text into T.
func DecodeObject[T any](text string) Decoded[T] {
	return decodeBalanced[T](text, '{', '}')
}

// DecodeArray decodes the first balanced [...] in text into T.
func DecodeArray[T any](text string) Decoded[T] {
	return decodeBalanced[T](text, '[', ']')
}

func decodeBalanced[T any](text string, open, close byte) Decoded[T] {
	raw, ok := ExtractBalanced(text, open, close)
	if !ok {
		return Decoded[T]{Malformed: true, Err: errNoJSON}
	}

	var v T
	err := json.Unmarshal([]byte(raw), &v)
	if err != nil {
		// Models often leave a trailing comma before a closer.
		fixed := strings.NewReplacer(",]", "]", ",}", "}", ", ]", "]", ", }", "}").Replace(raw)
		var retry T
		if err2 := json.Unmarshal([]byte(fixed), &retry); err2 != nil {
			return Decoded[T]{Malformed: true, Err: fmt.Errorf("decode json: %w (content: %s)", err, truncate(raw, 200))}
		}
		v = retry
	}
	return Decoded[T]{Value: v}
}

// ExtractBalanced returns the first substring of s that starts with open and
// ends at its matching close, ignoring brackets inside JSON strings. Code
// fences and surrounding prose are skipped implicitly.
func ExtractBalanced(s string, open, close byte) (string, bool) {
	start := strings.IndexByte(s, open)
	for start != -1 {
		if end, ok := matchClose(s, start, open, close); ok {
			return s[start : end+1], true
		}
		next := strings.IndexByte(s[start+1:], open)
		if next == -1 {
			break
		}
		start += next + 1
	}
	return "", false
}

func matchClose(s string, start int, open, close byte) (int, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
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
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}
