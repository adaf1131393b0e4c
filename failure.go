// Package respenvelope turns request outcomes into one canonical JSON
// response envelope for HTTP APIs.
//
// Handlers return a value or an error. A Classifier maps the error onto a
// closed set of kinds using an ordered, type-based rule table, and Build
// renders the envelope. Internal detail (message, source location, stack)
// is attached only outside production.
package respenvelope

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"
)

// ErrRouteNotFound signals that no handler matched the request.
var ErrRouteNotFound = errors.New("route not found")

// ErrorCoder is implemented by failures that carry a domain-specific
// code, reported as error_code in the envelope.
type ErrorCoder interface {
	ErrorCode() int
}

// HTTPStatusError is implemented by failures that carry their own HTTP
// status.
type HTTPStatusError interface {
	error
	HTTPStatus() int
}

// PayloadTooLargeError reports a request body above the upload limit.
type PayloadTooLargeError struct {
	// Limit is the limit that was exceeded, in bytes. Zero if unknown.
	Limit int64
	stack
}

// PayloadTooLarge creates a PayloadTooLargeError for the given limit.
func PayloadTooLarge(limit int64) *PayloadTooLargeError {
	return &PayloadTooLargeError{Limit: limit, stack: callers(1)}
}

func (e *PayloadTooLargeError) Error() string {
	if e.Limit > 0 {
		return fmt.Sprintf("request body exceeds %d bytes", e.Limit)
	}
	return "request body too large"
}

// AuthenticationError reports a missing or expired credential.
type AuthenticationError struct {
	Reason string
	stack
}

// Unauthenticated creates an AuthenticationError.
func Unauthenticated(reason string) *AuthenticationError {
	return &AuthenticationError{Reason: reason, stack: callers(1)}
}

func (e *AuthenticationError) Error() string {
	if e.Reason == "" {
		return "unauthenticated"
	}
	return "unauthenticated: " + e.Reason
}

// RateLimitError reports that the client exceeded its request budget.
type RateLimitError struct {
	// RetryAfter is how long the client should wait. Zero if unknown.
	RetryAfter time.Duration
	stack
}

// RateLimited creates a RateLimitError.
func RateLimited(retryAfter time.Duration) *RateLimitError {
	return &RateLimitError{RetryAfter: retryAfter, stack: callers(1)}
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limit exceeded, retry after %s", e.RetryAfter)
	}
	return "rate limit exceeded"
}

// ModelNotFoundError reports that a record lookup found nothing.
type ModelNotFoundError struct {
	// Model is the fully qualified type tag of the entity, e.g.
	// "App\Models\Product" or "*catalog.Product".
	Model string
	IDs   []any
	stack
}

// ModelNotFound creates a ModelNotFoundError. model is either a type tag
// string or a value of the entity type, whose Go type name is used.
func ModelNotFound(model any, ids ...any) *ModelNotFoundError {
	tag, ok := model.(string)
	if !ok {
		tag = typeTag(model)
	}
	return &ModelNotFoundError{Model: tag, IDs: ids, stack: callers(1)}
}

func (e *ModelNotFoundError) Error() string {
	if len(e.IDs) == 0 {
		return fmt.Sprintf("no query results for model [%s]", e.Model)
	}
	ids := make([]string, len(e.IDs))
	for i, id := range e.IDs {
		ids[i] = fmt.Sprint(id)
	}
	return fmt.Sprintf("no query results for model [%s] %s", e.Model, strings.Join(ids, ", "))
}

// Entity returns the model name without its namespace.
func (e *ModelNotFoundError) Entity() string {
	return EntityName(e.Model)
}

// EntityName strips the namespace prefix from a type tag.
// "App\Models\Product", "catalog/models.Product" and "*models.Product"
// all yield "Product".
func EntityName(tag string) string {
	tag = strings.TrimLeft(tag, "*[]")
	if i := strings.LastIndexAny(tag, `\/.`); i >= 0 {
		tag = tag[i+1:]
	}
	return tag
}

func typeTag(v any) string {
	if v == nil {
		return ""
	}
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Pointer || t.Kind() == reflect.Slice {
		t = t.Elem()
	}
	if t.PkgPath() == "" {
		return t.Name()
	}
	return t.PkgPath() + "." + t.Name()
}

// QueryError reports a failed persistence query.
type QueryError struct {
	Query string
	Err   error
	stack
}

// Query wraps a persistence failure for the given query.
func Query(query string, err error) *QueryError {
	return &QueryError{Query: query, Err: err, stack: callers(1)}
}

func (e *QueryError) Error() string {
	if e.Err == nil {
		return "query failed: " + e.Query
	}
	return fmt.Sprintf("query failed: %v (%s)", e.Err, e.Query)
}

func (e *QueryError) Unwrap() error { return e.Err }

// HTTPError is a failure with an explicit status and message.
type HTTPError struct {
	Status  int
	Message string
	Code    int
	stack
}

// Abort creates an HTTPError. An empty message uses the status text.
func Abort(status int, msg string) *HTTPError {
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &HTTPError{Status: status, Message: msg, stack: callers(1)}
}

// Abortf is like Abort with a formatted message.
func Abortf(status int, format string, args ...any) *HTTPError {
	return &HTTPError{Status: status, Message: fmt.Sprintf(format, args...), stack: callers(1)}
}

// WithCode sets the domain error code.
func (e *HTTPError) WithCode(code int) *HTTPError {
	e.Code = code
	return e
}

func (e *HTTPError) Error() string { return e.Message }

func (e *HTTPError) HTTPStatus() int { return e.Status }

func (e *HTTPError) ErrorCode() int { return e.Code }

// PanicError is a recovered panic.
type PanicError struct {
	Value any
	stack
}

// Recovered wraps a value obtained from recover(). It must be called from
// the deferred function so the captured stack includes the panic site.
func Recovered(v any) *PanicError {
	return &PanicError{Value: v, stack: callers(1)}
}

func (e *PanicError) Error() string {
	if err, ok := e.Value.(error); ok {
		return err.Error()
	}
	return fmt.Sprint(e.Value)
}

// Unwrap exposes the panic value when it is an error, so runtime.Error
// faults stay reachable through errors.As.
func (e *PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}
