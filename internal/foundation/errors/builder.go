package errors

import "git.home.luguber.info/inful/daytrack/internal/logfields"

// ErrorBuilder assembles a ClassifiedError.
type ErrorBuilder struct {
	err ClassifiedError
}

// NewError starts an error of category with severity error and no retry.
func NewError(category ErrorCategory, message string) *ErrorBuilder {
	return &ErrorBuilder{err: ClassifiedError{
		category: category,
		severity: SeverityError,
		retry:    RetryNever,
		message:  message,
		context:  make(ErrorContext),
	}}
}

// WrapError starts an error of category caused by err.
func WrapError(err error, category ErrorCategory, message string) *ErrorBuilder {
	return NewError(category, message).WithCause(err)
}

func (b *ErrorBuilder) WithSeverity(severity ErrorSeverity) *ErrorBuilder {
	b.err.severity = severity
	return b
}

func (b *ErrorBuilder) WithRetry(strategy RetryStrategy) *ErrorBuilder {
	b.err.retry = strategy
	return b
}

func (b *ErrorBuilder) WithCause(err error) *ErrorBuilder {
	b.err.cause = err
	return b
}

func (b *ErrorBuilder) WithContext(key string, value any) *ErrorBuilder {
	b.err.context = b.err.context.Set(key, value)
	return b
}

// Context shorthands keyed like the log fields of the same name.
func (b *ErrorBuilder) ForUser(user string) *ErrorBuilder {
	return b.WithContext(logfields.KeyUser, user)
}
func (b *ErrorBuilder) ForMetric(m string) *ErrorBuilder {
	return b.WithContext(logfields.KeyMetric, m)
}
func (b *ErrorBuilder) ForDay(day string) *ErrorBuilder { return b.WithContext(logfields.KeyDay, day) }
func (b *ErrorBuilder) ForTimezone(tz string) *ErrorBuilder {
	return b.WithContext(logfields.KeyTimezone, tz)
}

func (b *ErrorBuilder) Fatal() *ErrorBuilder      { return b.WithSeverity(SeverityFatal) }
func (b *ErrorBuilder) Warning() *ErrorBuilder    { return b.WithSeverity(SeverityWarning) }
func (b *ErrorBuilder) Retryable() *ErrorBuilder  { return b.WithRetry(RetryBackoff) }
func (b *ErrorBuilder) UserAction() *ErrorBuilder { return b.WithRetry(RetryUserAction) }

// Build returns the error. The builder may be reused; each Build gets its
// own context map.
func (b *ErrorBuilder) Build() *ClassifiedError {
	e := b.err
	e.context = b.err.context.Merge(nil)
	return &e
}

// Constructors with the default severity and retry strategy per category.

func ConfigError(message string) *ErrorBuilder {
	return NewError(CategoryConfig, message).Fatal()
}

func ValidationError(message string) *ErrorBuilder {
	return NewError(CategoryValidation, message).UserAction()
}

// TimezoneError reports a timezone the date primitive could not load.
func TimezoneError(message string) *ErrorBuilder {
	return NewError(CategoryTimezone, message).UserAction()
}

func NotFoundError(message string) *ErrorBuilder {
	return NewError(CategoryNotFound, message)
}

// StoreError reports a state file that could not be read or written.
func StoreError(message string) *ErrorBuilder {
	return NewError(CategoryStore, message).Retryable()
}

func EventStoreError(message string) *ErrorBuilder {
	return NewError(CategoryEventStore, message).Retryable()
}

// NotifyError is a warning: a mutation is never failed by its notification.
func NotifyError(message string) *ErrorBuilder {
	return NewError(CategoryNotify, message).Warning().Retryable()
}

func DaemonError(message string) *ErrorBuilder {
	return NewError(CategoryDaemon, message).Fatal()
}

func InternalError(message string) *ErrorBuilder {
	return NewError(CategoryInternal, message).Fatal()
}
