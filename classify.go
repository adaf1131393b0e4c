package respenvelope

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Classification is the result of mapping a failure onto a Kind, plus the
// details the envelope needs.
type Classification struct {
	Kind    Kind
	Status  int
	Message string
	// Fields is set only for KindValidation.
	Fields FieldErrors
	// ErrorCode is the domain error code, zero for the default.
	ErrorCode int
	// RetryAfter is set for KindRateLimited when known.
	RetryAfter time.Duration
	// Raw is the failure attached for possible disclosure.
	Raw error
	// Rule names the rule that matched.
	Rule string
}

// LogValue implements slog.LogValuer.
func (c Classification) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("kind", c.Kind.String()),
		slog.Int("status", c.Status),
		slog.String("message", c.Message),
		slog.String("rule", c.Rule),
	}
	if c.ErrorCode != 0 {
		attrs = append(attrs, slog.Int("error_code", c.ErrorCode))
	}
	if c.RetryAfter > 0 {
		attrs = append(attrs, slog.Duration("retry_after", c.RetryAfter))
	}
	if c.Raw != nil {
		attrs = append(attrs, slog.String("cause", c.Raw.Error()))
	}
	return slog.GroupValue(attrs...)
}

// Rule is one entry of the classification table. Match reports whether
// the rule applies to err and, if so, the classification.
type Rule struct {
	Name  string
	Match func(err error, s Settings) (Classification, bool)
}

// Classifier maps failures onto kinds. Rules are evaluated in order and
// the first structural match wins; anything unmatched is an internal
// fault. A Classifier is safe for concurrent use.
type Classifier struct {
	rules []Rule
}

// ClassifierOption configures a Classifier.
type ClassifierOption func(*Classifier)

// WithRules adds rules after the built-in ones and before the
// internal-fault fallback.
func WithRules(rules ...Rule) ClassifierOption {
	return func(c *Classifier) {
		c.rules = append(c.rules, rules...)
	}
}

// NewClassifier returns a Classifier with the built-in rules.
func NewClassifier(opts ...ClassifierOption) *Classifier {
	c := &Classifier{rules: builtinRules()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Rules returns the rule names in evaluation order, the fallback last.
func (c *Classifier) Rules() []string {
	names := make([]string, 0, len(c.rules)+1)
	for _, r := range c.rules {
		names = append(names, r.Name)
	}
	return append(names, ruleInternalFault)
}

// Classify maps err onto a Classification. It never fails; a nil err is
// classified as an internal fault since a failure was expected.
func (c *Classifier) Classify(err error, s Settings) Classification {
	if err == nil {
		err = errors.New(KindInternalFault.DefaultMessage())
	}
	for _, r := range c.rules {
		if cl, ok := r.Match(err, s); ok {
			cl.Rule = r.Name
			return finish(cl)
		}
	}
	return finish(internalFault(err))
}

// finish fills in defaults a rule left empty.
func finish(cl Classification) Classification {
	if cl.Status == 0 {
		cl.Status = cl.Kind.Status()
	}
	if cl.Message == "" {
		cl.Message = cl.Kind.DefaultMessage()
	}
	if cl.ErrorCode == 0 && cl.Raw != nil {
		var coder ErrorCoder
		if errors.As(cl.Raw, &coder) {
			cl.ErrorCode = coder.ErrorCode()
		}
	}
	return cl
}

const (
	ruleRouteNotFound   = "route_not_found"
	rulePayloadTooLarge = "payload_too_large"
	ruleAuthentication  = "authentication"
	ruleRateLimit       = "rate_limit"
	ruleModelNotFound   = "model_not_found"
	ruleValidation      = "validation"
	ruleQuery           = "query"
	ruleHTTPStatus      = "http_status"
	ruleInternalFault   = "internal_fault"
)

func builtinRules() []Rule {
	return []Rule{
		{Name: ruleRouteNotFound, Match: matchRouteNotFound},
		{Name: rulePayloadTooLarge, Match: matchPayloadTooLarge},
		{Name: ruleAuthentication, Match: matchAuthentication},
		{Name: ruleRateLimit, Match: matchRateLimit},
		{Name: ruleModelNotFound, Match: matchModelNotFound},
		{Name: ruleValidation, Match: matchValidation},
		{Name: ruleQuery, Match: matchQuery},
		{Name: ruleHTTPStatus, Match: matchHTTPStatus},
	}
}

func matchRouteNotFound(err error, _ Settings) (Classification, bool) {
	if !errors.Is(err, ErrRouteNotFound) {
		return Classification{}, false
	}
	return Classification{Kind: KindNotFound, Message: MessageRouteNotFound, Raw: err}, true
}

func matchPayloadTooLarge(err error, s Settings) (Classification, bool) {
	var tooLarge *PayloadTooLargeError
	var maxBytes *http.MaxBytesError
	if !errors.As(err, &tooLarge) && !errors.As(err, &maxBytes) {
		return Classification{}, false
	}
	return Classification{
		Kind:    KindPayloadTooLarge,
		Message: PayloadTooLargeMessage(s.MaxUploadSize),
		Raw:     err,
	}, true
}

// PayloadTooLargeMessage renders the oversized-upload message for limit.
func PayloadTooLargeMessage(limit ByteSize) string {
	return fmt.Sprintf("Size of attached file should be less than %sB", limit)
}

func matchAuthentication(err error, _ Settings) (Classification, bool) {
	var authErr *AuthenticationError
	if !errors.As(err, &authErr) {
		return Classification{}, false
	}
	return Classification{Kind: KindUnauthenticated, Message: MessageUnauthenticated, Raw: err}, true
}

func matchRateLimit(err error, _ Settings) (Classification, bool) {
	var rl *RateLimitError
	if !errors.As(err, &rl) {
		return Classification{}, false
	}
	return Classification{
		Kind:       KindRateLimited,
		Message:    MessageTooManyRequests,
		RetryAfter: rl.RetryAfter,
		Raw:        err,
	}, true
}

func matchModelNotFound(err error, _ Settings) (Classification, bool) {
	var nf *ModelNotFoundError
	if !errors.As(err, &nf) {
		return Classification{}, false
	}
	return Classification{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("Entry for %s not found", nf.Entity()),
		Raw:     err,
	}, true
}

func matchValidation(err error, _ Settings) (Classification, bool) {
	ve, ok := asValidation(err)
	if !ok {
		return Classification{}, false
	}
	return Classification{
		Kind:    KindValidation,
		Message: ve.Error(),
		Fields:  ve.Fields.clone(),
		Raw:     err,
	}, true
}

func matchQuery(err error, _ Settings) (Classification, bool) {
	var qe *QueryError
	if !errors.As(err, &qe) {
		return Classification{}, false
	}
	return Classification{
		Kind:    KindDataQueryFailure,
		Message: MessageQueryFailure,
		Raw:     err,
	}, true
}

func matchHTTPStatus(err error, _ Settings) (Classification, bool) {
	var he HTTPStatusError
	if !errors.As(err, &he) {
		return Classification{}, false
	}
	status := he.HTTPStatus()
	msg := he.Error()
	if msg == "" {
		msg = http.StatusText(status)
	}
	return Classification{
		Kind:    KindHTTPStatus,
		Status:  status,
		Message: msg,
		Raw:     err,
	}, true
}

func internalFault(err error) Classification {
	return Classification{
		Kind:    KindInternalFault,
		Status:  http.StatusInternalServerError,
		Message: err.Error(),
		Raw:     err,
		Rule:    ruleInternalFault,
	}
}
