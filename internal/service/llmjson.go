package service

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

var errNoJSONObject = errors.New("no JSON object in model output")

// greedyObject is the fallback when no balanced object can be found.
var greedyObject = regexp.MustCompile(`(?s)\{.*\}`)

// ExtractJSONObject returns the first brace-delimited object found anywhere
// in text. Models often wrap JSON in prose or code fences, so the whole
// response is never parsed directly.
func ExtractJSONObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	for start >= 0 {
		if end := matchBrace(text, start); end > 0 {
			return text[start : end+1], true
		}
		next := strings.IndexByte(text[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}

	if m := greedyObject.FindString(text); m != "" {
		return m, true
	}
	return "", false
}

// matchBrace returns the index of the brace closing the one at open, or -1.
func matchBrace(text string, open int) int {
	depth := 0
	inString := false
	escaped := false

	for i := open; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// decodeModelJSON extracts the first object from text and unmarshals it into v.
func decodeModelJSON(text string, v any) error {
	obj, ok := ExtractJSONObject(text)
	if !ok {
		return errNoJSONObject
	}
	return json.Unmarshal([]byte(obj), v)
}
