// Package errors provides classified error primitives used across daytrack.
//
// A ClassifiedError carries a category (config, validation, timezone, store,
// ...), a severity and a retry strategy next to the message and cause, so
// adapters can decide exit codes, HTTP status codes and log levels without
// string matching.
//
// Example usage:
//
//	err := errors.TimezoneError("unknown timezone").
//		WithContext("timezone", tz).
//		WithCause(loadErr).
//		Build()
package errors
