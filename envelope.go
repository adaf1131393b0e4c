package respenvelope

import (
	"encoding/json"
	"errors"
	"net/http"
)

// DefaultErrorCode is reported as error_code when a failure has no
// domain-specific code.
const DefaultErrorCode = 1

// Params are the inputs of Build.
type Params struct {
	Success bool
	// Kind is the failure kind; ignored on success.
	Kind    Kind
	Message string
	// Data is the success payload; ignored on failure.
	Data any
	// Fields are the validation messages; only used for KindValidation.
	Fields FieldErrors
	// Raw is the failure, attached as debug detail when disclosure allows.
	Raw error
	// Status overrides the status derived from Kind.
	Status int
	// ErrorCode overrides DefaultErrorCode.
	ErrorCode int
}

// ParamsFor converts a Classification into failure Params.
func ParamsFor(cl Classification) Params {
	return Params{
		Kind:      cl.Kind,
		Message:   cl.Message,
		Fields:    cl.Fields,
		Raw:       cl.Raw,
		Status:    cl.Status,
		ErrorCode: cl.ErrorCode,
	}
}

// Debug is the internal detail attached to failures outside production.
type Debug struct {
	Message        string  `json:"message"`
	SourceLocation string  `json:"source_location,omitempty"`
	FailureCode    int     `json:"failure_code"`
	Trace          []Frame `json:"trace,omitempty"`
}

// Envelope is the canonical response document. It is built once by Build
// and not modified afterwards.
type Envelope struct {
	success    bool
	message    *string
	data       any
	errors     FieldErrors
	errorCode  int
	debug      *Debug
	statusCode int
}

func (e Envelope) Success() bool { return e.success }

// Message returns the message and whether one is set.
func (e Envelope) Message() (string, bool) {
	if e.message == nil {
		return "", false
	}
	return *e.message, true
}

func (e Envelope) Data() any { return e.data }

// Errors returns a copy of the field errors, nil unless validation failed.
func (e Envelope) Errors() FieldErrors { return e.errors.clone() }

// ErrorCode returns the error code, zero on success.
func (e Envelope) ErrorCode() int { return e.errorCode }

// Debug returns a copy of the debug payload, nil when not disclosed.
func (e Envelope) Debug() *Debug {
	if e.debug == nil {
		return nil
	}
	d := *e.debug
	d.Trace = append([]Frame(nil), e.debug.Trace...)
	return &d
}

func (e Envelope) StatusCode() int { return e.statusCode }

type successBody struct {
	Success    bool    `json:"success"`
	Message    *string `json:"message"`
	Data       any     `json:"data"`
	StatusCode int     `json:"status_code"`
}

type failureBody struct {
	Success    bool         `json:"success"`
	Message    *string      `json:"message"`
	Errors     *FieldErrors `json:"errors,omitempty"`
	StatusCode int          `json:"status_code"`
	ErrorCode  int          `json:"error_code"`
	Debug      *Debug       `json:"debug,omitempty"`
}

// MarshalJSON renders the wire shape: data only on success, error_code
// and the optional errors and debug members only on failure.
func (e Envelope) MarshalJSON() ([]byte, error) {
	if e.success {
		return json.Marshal(successBody{
			Success:    true,
			Message:    e.message,
			Data:       e.data,
			StatusCode: e.statusCode,
		})
	}
	var fields *FieldErrors
	if e.errors != nil {
		fields = &e.errors
	}
	return json.Marshal(failureBody{
		Success:    false,
		Message:    e.message,
		Errors:     fields,
		StatusCode: e.statusCode,
		ErrorCode:  e.errorCode,
		Debug:      e.debug,
	})
}

// Build renders p into an envelope and the transport status code, which
// always equals the envelope's status_code.
//
// Status resolves to p.Status, then the kind's default, then 200 on
// success or 400 on failure. A failure is always sent with a 4xx or 5xx
// status; anything else becomes 500. Debug detail is attached only to failures
// with a raw error, and only when ShouldDisclose(env).
func Build(p Params, env Environment) (Envelope, int) {
	e := Envelope{success: p.Success}
	if p.Message != "" {
		msg := p.Message
		e.message = &msg
	}

	status := p.Status
	if status == 0 && !p.Success {
		status = p.Kind.Status()
	}
	if status == 0 {
		if p.Success {
			status = http.StatusOK
		} else {
			status = http.StatusBadRequest
		}
	}

	if p.Success {
		e.data = p.Data
		e.statusCode = status
		return e, status
	}

	if status < 400 || status > 599 {
		status = http.StatusInternalServerError
	}
	e.statusCode = status

	if p.Kind == KindValidation {
		e.errors = p.Fields.clone()
		if e.errors == nil {
			e.errors = FieldErrors{}
		}
	}

	e.errorCode = p.ErrorCode
	if e.errorCode == 0 {
		e.errorCode = DefaultErrorCode
	}

	if p.Raw != nil && ShouldDisclose(env) {
		e.debug = debugFor(p.Raw)
	}
	return e, status
}

func debugFor(err error) *Debug {
	d := &Debug{Message: err.Error()}

	var coder ErrorCoder
	if errors.As(err, &coder) {
		d.FailureCode = coder.ErrorCode()
	}

	var tracer StackTracer
	if errors.As(err, &tracer) {
		if frames := tracer.StackTrace(); len(frames) > 0 {
			d.Trace = append([]Frame(nil), frames...)
			d.SourceLocation = frames[0].String()
		}
	}
	return d
}
