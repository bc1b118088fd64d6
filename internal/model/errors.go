package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrInvalidRange rejects a request before any fetch: start after end, no assets, or a blank asset.
	ErrInvalidRange = errors.New("invalid range")
	// ErrFetchFailed reports an external data-source error or timeout.
	ErrFetchFailed = errors.New("fetch failed")
	// ErrInsufficientData reports fewer bars than the longest lookback.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrDataAnomaly reports a zero or negative price where a positive one is required.
	ErrDataAnomaly = errors.New("data anomaly")
)

// RequestError carries the request context of a failure so callers can decide whether to retry.
type RequestError struct {
	Kind   error
	Key    string
	Symbol string
	Start  time.Time
	End    time.Time
	Err    error
}

func (e *RequestError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Key != "" {
		fmt.Fprintf(&b, " key=%s", e.Key)
	}
	if e.Symbol != "" {
		fmt.Fprintf(&b, " symbol=%s", e.Symbol)
	}
	if !e.Start.IsZero() || !e.End.IsZero() {
		fmt.Fprintf(&b, " range=%s..%s", e.Start.Format(DateLayout), e.End.Format(DateLayout))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap exposes both the taxonomy sentinel and the underlying cause to errors.Is.
func (e *RequestError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

var (
	errEmptyAssets   = errors.New("no assets requested")
	errBlankAsset    = errors.New("blank asset identifier")
	errStartAfterEnd = errors.New("start date is after end date")
)
