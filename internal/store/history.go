package store

import (
	"github.com/goccy/go-json"
)

// rotate returns a new history with entry first, followed by at most
// limit-1 of the previous entries in their existing order. Older entries
// beyond the limit are dropped. prev is never modified.
func rotate[T any](entry T, prev []T, limit int) []T {
	if limit < 1 {
		limit = 1
	}
	keep := len(prev)
	if keep > limit-1 {
		keep = limit - 1
	}

	out := make([]T, 0, keep+1)
	out = append(out, entry)
	out = append(out, prev[:keep]...)
	return out
}

// decodeHistory parses a stored collection. Entries are kept as raw JSON so
// they are carried into the next rewrite unchanged.
func decodeHistory(data []byte) ([]json.RawMessage, error) {
	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// isObject reports whether a raw JSON value is an object.
func isObject(raw json.RawMessage) bool {
	for _, c := range raw {
		switch c {
		case ' ', '\t', '\r', '\n':
			continue
		case '{':
			return true
		default:
			return false
		}
	}
	return false
}
