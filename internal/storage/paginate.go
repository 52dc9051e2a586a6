package storage

import (
	"encoding/base64"
	"fmt"
	"sort"
	"strings"
)

// EncodeCursor turns the last entry of a page into an opaque cursor.
func EncodeCursor(last string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(last))
}

// DecodeCursor reverses EncodeCursor.
func DecodeCursor(cursor string) (string, error) {
	if cursor == "" {
		return "", nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil || len(raw) == 0 {
		return "", fmt.Errorf("%w: %q", ErrInvalidCursor, cursor)
	}
	return string(raw), nil
}

// ClampLimit bounds a requested page size to (0, MaxListLimit].
func ClampLimit(limit int) int {
	if limit <= 0 || limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

type page struct {
	keys      []string
	prefixes  []string
	truncated bool
	cursor    string
}

// paginate selects one page from keys. Keys need not be sorted. Common
// prefixes produced by the delimiter count toward the limit.
func paginate(keys []string, opts ListOptions) (page, error) {
	after, err := DecodeCursor(opts.Cursor)
	if err != nil {
		return page{}, err
	}
	limit := ClampLimit(opts.Limit)

	sorted := make([]string, 0, len(keys))
	for _, k := range keys {
		if strings.HasPrefix(k, opts.Prefix) {
			sorted = append(sorted, k)
		}
	}
	sort.Strings(sorted)

	var (
		p    page
		last string
		seen = map[string]bool{}
	)
	for _, k := range sorted {
		if after != "" {
			if k <= after {
				continue
			}
			if opts.Delimiter != "" && strings.HasSuffix(after, opts.Delimiter) && strings.HasPrefix(k, after) {
				continue
			}
		}

		entry, isPrefix := k, false
		if opts.Delimiter != "" {
			rest := k[len(opts.Prefix):]
			if i := strings.Index(rest, opts.Delimiter); i >= 0 {
				entry, isPrefix = opts.Prefix+rest[:i+len(opts.Delimiter)], true
			}
		}
		if isPrefix && seen[entry] {
			continue
		}

		if len(p.keys)+len(p.prefixes) == limit {
			p.truncated = true
			p.cursor = EncodeCursor(last)
			break
		}

		if isPrefix {
			seen[entry] = true
			p.prefixes = append(p.prefixes, entry)
		} else {
			p.keys = append(p.keys, k)
		}
		last = entry
	}

	return p, nil
}
