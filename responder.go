package respenvelope

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
)

// State is the terminal state of a request outcome.
type State int

const (
	StateSuccess State = iota + 1
	StateClassifiedFailure
	StateUnclassifiedFailure
)

func (s State) String() string {
	switch s {
	case StateSuccess:
		return "success"
	case StateClassifiedFailure:
		return "classified_failure"
	case StateUnclassifiedFailure:
		return "unclassified_failure"
	}
	return "unknown"
}

// Outcome is the resolved result of one request.
type Outcome struct {
	State State
	// Classification is the zero value on success.
	Classification Classification
	Envelope       Envelope
	Status         int
}

// Result lets a handler choose the message and status of a success
// envelope.
type Result struct {
	Data    any
	Message string
	Status  int
}

// HandlerFunc is a handler whose outcome is rendered by a Responder.
// Returning a Result or *Result sets the success message and status.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) (any, error)

// Observer is notified of every outcome before it is written.
type Observer func(r *http.Request, o Outcome)

// FormatError reports that an envelope could not be encoded. It means the
// formatter or its input is broken and is never itself turned into an
// envelope.
type FormatError struct {
	Err error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("respenvelope: encode envelope: %v", e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

// Responder is the seam between handlers and the wire: it classifies
// failures, builds the envelope and writes it. A Responder holds no
// per-request state and is safe for concurrent use.
type Responder struct {
	classifier *Classifier
	settings   SettingsSource
	logger     *slog.Logger
	observers  []Observer
}

// Option configures a Responder.
type Option func(*Responder)

// WithClassifier replaces the default classifier.
func WithClassifier(c *Classifier) Option {
	return func(rs *Responder) { rs.classifier = c }
}

// WithSettings sets the settings source, read on every request.
func WithSettings(src SettingsSource) Option {
	return func(rs *Responder) { rs.settings = src }
}

// WithLogger sets the logger for failures.
func WithLogger(l *slog.Logger) Option {
	return func(rs *Responder) { rs.logger = l }
}

// WithObserver registers an observer.
func WithObserver(o Observer) Option {
	return func(rs *Responder) { rs.observers = append(rs.observers, o) }
}

// New returns a Responder. Without options it uses the built-in
// classifier, DefaultSettings and slog.Default().
func New(opts ...Option) *Responder {
	rs := &Responder{
		classifier: NewClassifier(),
		settings:   StaticSettings(DefaultSettings()),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(rs)
	}
	return rs
}

// Settings returns the settings currently in effect.
func (rs *Responder) Settings() Settings {
	return rs.settings()
}

// Classifier returns the classifier in use.
func (rs *Responder) Classifier() *Classifier {
	return rs.classifier
}

// Dispatch resolves a handler's value or error into an Outcome without
// writing anything.
func (rs *Responder) Dispatch(data any, err error) Outcome {
	if err != nil {
		return rs.failure(err)
	}
	switch res := data.(type) {
	case Result:
		return rs.success(res)
	case *Result:
		if res != nil {
			return rs.success(*res)
		}
		return rs.success(Result{})
	}
	return rs.success(Result{Data: data})
}

func (rs *Responder) success(res Result) Outcome {
	env, status := Build(Params{
		Success: true,
		Data:    res.Data,
		Message: res.Message,
		Status:  res.Status,
	}, rs.settings().Environment)
	return Outcome{State: StateSuccess, Envelope: env, Status: status}
}

func (rs *Responder) failure(err error) Outcome {
	s := rs.settings()
	cl := rs.classifier.Classify(err, s)

	state := StateClassifiedFailure
	if cl.Rule == ruleInternalFault {
		state = StateUnclassifiedFailure
	}

	env, status := Build(ParamsFor(cl), s.Environment)
	return Outcome{State: state, Classification: cl, Envelope: env, Status: status}
}

// Write encodes o and writes it to w. It returns a *FormatError if the
// envelope cannot be encoded, in which case nothing is written.
func (rs *Responder) Write(w http.ResponseWriter, r *http.Request, o Outcome) error {
	body, err := json.Marshal(o.Envelope)
	if err != nil {
		return &FormatError{Err: err}
	}

	for _, obs := range rs.observers {
		obs(r, o)
	}
	if o.State != StateSuccess {
		rs.log(r, o)
	}

	h := w.Header()
	h.Set("Content-Type", "application/json")
	if id := TraceIDFromRequest(r); id != "" {
		h.Set(HeaderTraceID, id)
	}
	if ra := o.Classification.RetryAfter; ra > 0 {
		seconds := int(math.Ceil(ra.Seconds()))
		h.Set("Retry-After", strconv.Itoa(seconds))
	}

	w.WriteHeader(o.Status)
	_, _ = w.Write(append(body, '\n'))
	return nil
}

func (rs *Responder) log(r *http.Request, o Outcome) {
	level := slog.LevelWarn
	if o.Status >= http.StatusInternalServerError {
		level = slog.LevelError
	}

	ctx := context.Background()
	attrs := []any{
		slog.String("state", o.State.String()),
		slog.Any("failure", o.Classification),
	}
	if r != nil {
		ctx = r.Context()
		attrs = append(attrs,
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
		if id := TraceIDFromRequest(r); id != "" {
			attrs = append(attrs, slog.String("trace_id", id))
		}
	}
	rs.logger.Log(ctx, level, "request failed", attrs...)
}

// Respond dispatches data or err and writes the envelope.
func (rs *Responder) Respond(w http.ResponseWriter, r *http.Request, data any, err error) error {
	return rs.Write(w, r, rs.Dispatch(data, err))
}

// OK writes a 200 success envelope.
func (rs *Responder) OK(w http.ResponseWriter, r *http.Request, data any, message string) error {
	return rs.Write(w, r, rs.success(Result{Data: data, Message: message}))
}

// Created writes a 201 success envelope.
func (rs *Responder) Created(w http.ResponseWriter, r *http.Request, data any, message string) error {
	return rs.Write(w, r, rs.success(Result{Data: data, Message: message, Status: http.StatusCreated}))
}

// Fail classifies err and writes the failure envelope.
func (rs *Responder) Fail(w http.ResponseWriter, r *http.Request, err error) error {
	return rs.Write(w, r, rs.failure(err))
}

// Abort writes a failure of the given kind without classification. An
// empty message uses the kind's default. No debug detail is attached.
func (rs *Responder) Abort(w http.ResponseWriter, r *http.Request, kind Kind, message string) error {
	cl := finish(Classification{Kind: kind, Message: message, Rule: "abort"})
	env, status := Build(ParamsFor(cl), rs.settings().Environment)
	return rs.Write(w, r, Outcome{State: StateClassifiedFailure, Classification: cl, Envelope: env, Status: status})
}

// NotFound is the handler for requests no route matched.
func (rs *Responder) NotFound(w http.ResponseWriter, r *http.Request) {
	must(rs.Abort(w, r, KindNotFound, MessageRouteNotFound))
}

// MethodNotAllowed is the handler for a matched path with an unsupported
// method.
func (rs *Responder) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	must(rs.Fail(w, r, Abort(http.StatusMethodNotAllowed, "")))
}

// Handle adapts fn to http.Handler. Formatting failures panic so they
// reach the server's own panic reporting.
func (rs *Responder) Handle(fn HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := fn(w, r)
		must(rs.Respond(w, r, data, err))
	})
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
