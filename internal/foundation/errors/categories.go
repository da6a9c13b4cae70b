package errors

import (
	"maps"
	"slices"
)

// ErrorCategory says which part of daytrack an error came from. Adapters
// map categories to exit codes and HTTP statuses.
type ErrorCategory string

const (
	// Caller input: bad config, arguments, day ids or timezones.
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"
	CategoryTimezone   ErrorCategory = "timezone"
	CategoryNotFound   ErrorCategory = "not_found"

	// Collaborators of the tracker service.
	CategoryStore      ErrorCategory = "store"
	CategoryEventStore ErrorCategory = "eventstore"
	CategoryNotify     ErrorCategory = "notify"

	// Process-level failures.
	CategoryRuntime  ErrorCategory = "runtime"
	CategoryDaemon   ErrorCategory = "daemon"
	CategoryInternal ErrorCategory = "internal"
)

// ErrorSeverity is how far an error reaches.
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // process cannot continue
	SeverityError   ErrorSeverity = "error"   // the operation failed
	SeverityWarning ErrorSeverity = "warning" // the operation succeeded without a side effect
)

// RetryStrategy tells callers such as retry.Policy whether trying again can help.
type RetryStrategy string

const (
	RetryNever      RetryStrategy = "never"
	RetryBackoff    RetryStrategy = "backoff"
	RetryUserAction RetryStrategy = "user"
)

// ErrorContext holds the identifiers an error is about, keyed like the
// matching log fields (user, metric, day, ...).
type ErrorContext map[string]any

// Set adds or replaces key, allocating the map when needed.
func (c ErrorContext) Set(key string, value any) ErrorContext {
	if c == nil {
		c = make(ErrorContext)
	}
	c[key] = value
	return c
}

// Get looks up key.
func (c ErrorContext) Get(key string) (any, bool) {
	value, ok := c[key]
	return value, ok
}

// String looks up key and returns it only when it holds a string.
func (c ErrorContext) String(key string) string {
	s, _ := c[key].(string)
	return s
}

// Keys returns the context keys in sorted order.
func (c ErrorContext) Keys() []string {
	return slices.Sorted(maps.Keys(c))
}

// Merge returns a new context with the entries of c and other; other wins
// on conflicts. Neither input is modified.
func (c ErrorContext) Merge(other ErrorContext) ErrorContext {
	result := make(ErrorContext, len(c)+len(other))
	maps.Copy(result, c)
	maps.Copy(result, other)
	return result
}
