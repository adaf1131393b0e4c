package respenvelope

import (
	"fmt"
	"net/http"
)

// Kind is the closed classification of a failure. It picks the status
// code and default message of the envelope.
//
// The zero value means "no kind" and is only meaningful on success.
type Kind int

const (
	kindNone Kind = iota

	KindValidation
	KindNotFound
	KindUnauthenticated
	KindForbidden
	KindRateLimited
	KindPayloadTooLarge
	KindDataQueryFailure
	KindHTTPStatus
	KindInternalFault
)

// Kinds returns every failure kind in declaration order.
func Kinds() []Kind {
	return []Kind{
		KindValidation,
		KindNotFound,
		KindUnauthenticated,
		KindForbidden,
		KindRateLimited,
		KindPayloadTooLarge,
		KindDataQueryFailure,
		KindHTTPStatus,
		KindInternalFault,
	}
}

// Status returns the canonical HTTP status for the kind. KindHTTPStatus
// reports 400; the failure that produced it normally supplies the real one.
func (k Kind) Status() int {
	switch k {
	case kindNone:
		return 0
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindPayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case KindDataQueryFailure:
		return http.StatusInternalServerError
	case KindHTTPStatus:
		return http.StatusBadRequest
	case KindInternalFault:
		return http.StatusInternalServerError
	}
	panic(fmt.Sprintf("respenvelope: unknown kind %d", int(k)))
}

// DefaultMessage returns the human-readable message used when a failure
// does not supply its own.
func (k Kind) DefaultMessage() string {
	switch k {
	case kindNone:
		return ""
	case KindValidation:
		return "The given data was invalid."
	case KindNotFound:
		return MessageRouteNotFound
	case KindUnauthenticated:
		return MessageUnauthenticated
	case KindForbidden:
		return "Forbidden"
	case KindRateLimited:
		return MessageTooManyRequests
	case KindPayloadTooLarge:
		return "Payload Too Large"
	case KindDataQueryFailure:
		return MessageQueryFailure
	case KindHTTPStatus:
		return "There was an error"
	case KindInternalFault:
		return "There was an internal error, please try again later"
	}
	panic(fmt.Sprintf("respenvelope: unknown kind %d", int(k)))
}

// String returns a stable snake_case name, used for log attributes and
// metric labels.
func (k Kind) String() string {
	switch k {
	case kindNone:
		return "none"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindRateLimited:
		return "rate_limited"
	case KindPayloadTooLarge:
		return "payload_too_large"
	case KindDataQueryFailure:
		return "data_query_failure"
	case KindHTTPStatus:
		return "http_status"
	case KindInternalFault:
		return "internal_fault"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Fixed messages the classifier emits.
const (
	MessageRouteNotFound   = "The specified URL cannot be found"
	MessageUnauthenticated = "Unauthenticated or Token Expired, Please Login"
	MessageTooManyRequests = "Too Many Requests, Please Slow Down"
	MessageQueryFailure    = "There was an issue with the query"
)
