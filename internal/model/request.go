package model

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// Request is a normalized (assets, start, end) triple. Build it with NewRequest.
type Request struct {
	Symbols []string
	Start   time.Time
	End     time.Time
}

// NewRequest deduplicates and sorts symbols, truncates dates to calendar days and validates the range.
func NewRequest(symbols []string, start, end time.Time) (Request, error) {
	start, end = Day(start), Day(end)
	if len(symbols) == 0 {
		return Request{}, &RequestError{Kind: ErrInvalidRange, Start: start, End: end, Err: errEmptyAssets}
	}
	seen := make(map[string]bool, len(symbols))
	uniq := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if strings.TrimSpace(s) == "" {
			return Request{}, &RequestError{Kind: ErrInvalidRange, Start: start, End: end, Err: errBlankAsset}
		}
		if !seen[s] {
			seen[s] = true
			uniq = append(uniq, s)
		}
	}
	sort.Strings(uniq)
	if start.After(end) {
		return Request{}, &RequestError{Kind: ErrInvalidRange, Key: key(uniq, start, end), Start: start, End: end, Err: errStartAfterEnd}
	}
	return Request{Symbols: uniq, Start: start, End: end}, nil
}

// Key is the exact cache key for the request. Each symbol is quoted, so
// identifiers containing the separators cannot collide with other sets.
func (r Request) Key() string {
	return key(r.Symbols, r.Start, r.End)
}

func key(symbols []string, start, end time.Time) string {
	quoted := make([]string, len(symbols))
	for i, s := range symbols {
		quoted[i] = strconv.Quote(s)
	}
	return strings.Join(quoted, ",") + "|" + start.Format(DateLayout) + "|" + end.Format(DateLayout)
}
