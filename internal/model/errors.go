package model

import (
	"fmt"
	"time"
)

// DataError marks a symbol's data as unusable (insufficient history, malformed
// bars, missing data). Recoverable: the symbol is excluded, the batch continues.
type DataError struct {
	Symbol string
	Reason string
	Bar    int // offending bar index, -1 if not bar-specific
	Err    error
}

func (e *DataError) Error() string {
	if e.Symbol != "" {
		return fmt.Sprintf("data error for %s: %s", e.Symbol, e.Reason)
	}
	return "data error: " + e.Reason
}

func (e *DataError) Unwrap() error { return e.Err }

// BrokerError is a per-order failure (rejected, market closed, insufficient
// buying power). Recoverable: logged, remaining orders still attempted.
type BrokerError struct {
	Symbol string
	Code   int // HTTP status or broker-specific code, 0 if unknown
	Reason string
	Err    error
}

func (e *BrokerError) Error() string {
	if e.Symbol != "" {
		return fmt.Sprintf("broker error for %s: %s", e.Symbol, e.Reason)
	}
	return "broker error: " + e.Reason
}

func (e *BrokerError) Unwrap() error { return e.Err }

// RateLimitError signals an exhausted external quota. Callers retry with
// backoff; once retries are spent it is downgraded to a DataError or
// BrokerError for that unit of work.
type RateLimitError struct {
	RetryAfter time.Duration // provider hint, 0 if none
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
	}
	return "rate limited"
}
