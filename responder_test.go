package respenvelope

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatchStates(t *testing.T) {
	t.Parallel()

	rs := testResponder(EnvProduction)

	tests := []struct {
		name   string
		data   any
		err    error
		state  State
		status int
	}{
		{"plain value", map[string]int{"id": 1}, nil, StateSuccess, http.StatusOK},
		{"result", Result{Data: 1, Status: http.StatusCreated}, nil, StateSuccess, http.StatusCreated},
		{"result pointer", &Result{Data: 1, Message: "ok"}, nil, StateSuccess, http.StatusOK},
		{"nil result pointer", (*Result)(nil), nil, StateSuccess, http.StatusOK},
		{"classified", nil, ModelNotFound("Product"), StateClassifiedFailure, http.StatusNotFound},
		{"unclassified", nil, errors.New("division by zero"), StateUnclassifiedFailure, http.StatusInternalServerError},
		{"error wins over data", "ignored", Unauthenticated(""), StateClassifiedFailure, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			o := rs.Dispatch(tt.data, tt.err)
			assert.Equal(t, tt.state, o.State)
			assert.Equal(t, tt.status, o.Status)
			assert.Equal(t, o.Status, o.Envelope.StatusCode())
			assert.Equal(t, tt.state == StateSuccess, o.Envelope.Success())
		})
	}
}

func TestDispatchResultMessage(t *testing.T) {
	t.Parallel()

	o := testResponder(EnvProduction).Dispatch(Result{Data: []int{1}, Message: "Products retrieved successfully"}, nil)
	msg, ok := o.Envelope.Message()
	assert.True(t, ok)
	assert.Equal(t, "Products retrieved successfully", msg)
	assert.Equal(t, []int{1}, o.Envelope.Data())
}

func TestStateString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "success", StateSuccess.String())
	assert.Equal(t, "classified_failure", StateClassifiedFailure.String())
	assert.Equal(t, "unclassified_failure", StateUnclassifiedFailure.String())
	assert.Equal(t, "unknown", State(0).String())
}

func TestRespondWritesEnvelope(t *testing.T) {
	t.Parallel()

	rs := testResponder(EnvProduction)
	r := httptest.NewRequest(http.MethodGet, "/products/9", nil)
	r.Header.Set(HeaderTraceID, "req-123")
	w := httptest.NewRecorder()

	require.NoError(t, rs.Respond(w, r, nil, ModelNotFound(`App\Models\Product`, 9)))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "req-123", w.Header().Get(HeaderTraceID))
	assert.True(t, strings.HasSuffix(w.Body.String(), "\n"))

	body := decodeBytes(t, w.Body.Bytes())
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Entry for Product not found", body["message"])
	assert.Equal(t, float64(w.Code), body["status_code"])
	assert.NotContains(t, body, "debug")
}

func TestRespondBodyStatusMatchesTransport(t *testing.T) {
	t.Parallel()

	rs := testResponder(EnvLocal)
	failures := []error{
		Validation(FieldErrors{"name": {"required"}}),
		PayloadTooLarge(10),
		Unauthenticated(""),
		RateLimited(time.Second),
		Query("select 1", errors.New("gone")),
		Abort(http.StatusTeapot, ""),
		Abort(http.StatusOK, "not really"),
		errors.New("anything"),
	}
	for _, err := range failures {
		w := httptest.NewRecorder()
		require.NoError(t, rs.Fail(w, httptest.NewRequest(http.MethodGet, "/", nil), err))
		body := decodeBytes(t, w.Body.Bytes())
		assert.Equal(t, float64(w.Code), body["status_code"], err.Error())
		assert.NotEqual(t, http.StatusOK, w.Code, err.Error())
		assert.NotContains(t, body, "data", err.Error())
	}
}

func TestRespondRetryAfter(t *testing.T) {
	t.Parallel()

	rs := testResponder(EnvProduction)
	tests := []struct {
		wait time.Duration
		want string
	}{
		{3 * time.Second, "3"},
		{1500 * time.Millisecond, "2"},
		{200 * time.Millisecond, "1"},
		{0, ""},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		require.NoError(t, rs.Fail(w, httptest.NewRequest(http.MethodGet, "/", nil), RateLimited(tt.wait)))
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, tt.want, w.Header().Get("Retry-After"), tt.wait.String())
	}
}

func TestOKAndCreated(t *testing.T) {
	t.Parallel()

	rs := testResponder(EnvProduction)

	w := httptest.NewRecorder()
	require.NoError(t, rs.OK(w, httptest.NewRequest(http.MethodGet, "/", nil), []string{"a"}, "fine"))
	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBytes(t, w.Body.Bytes())
	assert.Equal(t, "fine", body["message"])
	assert.Equal(t, []any{"a"}, body["data"])

	w = httptest.NewRecorder()
	require.NoError(t, rs.Created(w, httptest.NewRequest(http.MethodPost, "/", nil), map[string]int{"id": 3}, ""))
	assert.Equal(t, http.StatusCreated, w.Code)
	body = decodeBytes(t, w.Body.Bytes())
	assert.Nil(t, body["message"])
	assert.Equal(t, float64(201), body["status_code"])
}

func TestWriteFormatError(t *testing.T) {
	t.Parallel()

	var observed int
	rs := testResponder(EnvLocal, WithObserver(func(*http.Request, Outcome) { observed++ }))
	w := httptest.NewRecorder()

	err := rs.Respond(w, httptest.NewRequest(http.MethodGet, "/", nil), make(chan int), nil)

	var fe *FormatError
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, fe.Error(), "encode envelope")
	assert.Zero(t, w.Body.Len())
	assert.Empty(t, w.Header().Get("Content-Type"))
	assert.Zero(t, observed)
}

func TestHandlePanicsOnFormatError(t *testing.T) {
	t.Parallel()

	rs := testResponder(EnvLocal)
	h := rs.Handle(func(http.ResponseWriter, *http.Request) (any, error) {
		return func() {}, nil
	})

	var recovered any
	func() {
		defer func() { recovered = recover() }()
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	}()

	err, ok := recovered.(error)
	require.True(t, ok, "panic value %v", recovered)
	var fe *FormatError
	assert.ErrorAs(t, err, &fe)
}

func TestHandle(t *testing.T) {
	t.Parallel()

	rs := testResponder(EnvProduction)
	h := rs.Handle(func(w http.ResponseWriter, r *http.Request) (any, error) {
		if r.URL.Query().Get("fail") != "" {
			return nil, Abort(http.StatusConflict, "Already exists")
		}
		return Result{Data: "made", Status: http.StatusCreated}, nil
	})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "made", decodeBytes(t, w.Body.Bytes())["data"])

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/?fail=1", nil))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Already exists", decodeBytes(t, w.Body.Bytes())["message"])
}

func TestObservers(t *testing.T) {
	t.Parallel()

	var (
		mu       sync.Mutex
		outcomes []Outcome
	)
	rs := testResponder(EnvProduction, WithObserver(func(_ *http.Request, o Outcome) {
		mu.Lock()
		defer mu.Unlock()
		outcomes = append(outcomes, o)
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	require.NoError(t, rs.Respond(httptest.NewRecorder(), r, "ok", nil))
	require.NoError(t, rs.Respond(httptest.NewRecorder(), r, nil, errors.New("boom")))

	require.Len(t, outcomes, 2)
	assert.Equal(t, StateSuccess, outcomes[0].State)
	assert.Equal(t, StateUnclassifiedFailure, outcomes[1].State)
	assert.Equal(t, KindInternalFault, outcomes[1].Classification.Kind)
}

func TestFailureLogging(t *testing.T) {
	t.Parallel()

	var buf strings.Builder
	rs := New(
		WithSettings(StaticSettings(DefaultSettings())),
		WithLogger(slog.New(slog.NewTextHandler(&buf, nil))),
	)

	r := httptest.NewRequest(http.MethodGet, "/products/1", nil)
	r.Header.Set(HeaderTraceID, "trace-1")

	require.NoError(t, rs.Respond(httptest.NewRecorder(), r, "fine", nil))
	assert.Empty(t, buf.String())

	require.NoError(t, rs.Fail(httptest.NewRecorder(), r, ModelNotFound("Product")))
	out := buf.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "state=classified_failure")
	assert.Contains(t, out, "failure.kind=not_found")
	assert.Contains(t, out, "path=/products/1")
	assert.Contains(t, out, "trace_id=trace-1")

	buf.Reset()
	require.NoError(t, rs.Fail(httptest.NewRecorder(), r, errors.New("boom")))
	assert.Contains(t, buf.String(), "level=ERROR")
	assert.Contains(t, buf.String(), "state=unclassified_failure")
}

func TestAbortKind(t *testing.T) {
	t.Parallel()

	rs := testResponder(EnvLocal)
	w := httptest.NewRecorder()

	require.NoError(t, rs.Abort(w, httptest.NewRequest(http.MethodDelete, "/products/1", nil), KindForbidden, ""))

	assert.Equal(t, http.StatusForbidden, w.Code)
	body := decodeBytes(t, w.Body.Bytes())
	assert.Equal(t, "Forbidden", body["message"])
	assert.Equal(t, float64(1), body["error_code"])
	assert.NotContains(t, body, "debug")
}

func TestNotFoundHandler(t *testing.T) {
	t.Parallel()

	rs := testResponder(EnvLocal)
	w := httptest.NewRecorder()
	rs.NotFound(w, httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	body := decodeBytes(t, w.Body.Bytes())
	assert.Equal(t, "The specified URL cannot be found", body["message"])
	assert.NotContains(t, body, "debug")
}

func TestMethodNotAllowedHandler(t *testing.T) {
	t.Parallel()

	rs := testResponder(EnvProduction)
	w := httptest.NewRecorder()
	rs.MethodNotAllowed(w, httptest.NewRequest(http.MethodPatch, "/products", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, "Method Not Allowed", decodeBytes(t, w.Body.Bytes())["message"])
}

func TestSettingsReadPerRequest(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	s := DefaultSettings()
	rs := New(
		WithLogger(quietLogger()),
		WithSettings(func() Settings {
			mu.Lock()
			defer mu.Unlock()
			return s
		}),
	)

	fail := func() map[string]any {
		w := httptest.NewRecorder()
		require.NoError(t, rs.Fail(w, httptest.NewRequest(http.MethodGet, "/", nil), errors.New("boom")))
		return decodeBytes(t, w.Body.Bytes())
	}

	assert.NotContains(t, fail(), "debug")

	mu.Lock()
	s.Environment = EnvStaging
	mu.Unlock()

	assert.Contains(t, fail(), "debug")
	assert.Equal(t, EnvStaging, rs.Settings().Environment)
}

func TestNewDefaults(t *testing.T) {
	t.Parallel()

	rs := New()
	assert.Equal(t, DefaultSettings(), rs.Settings())
	require.NotNil(t, rs.Classifier())
	assert.Equal(t, NewClassifier().Rules(), rs.Classifier().Rules())

	c := NewClassifier(WithRules(Rule{Name: "custom", Match: func(error, Settings) (Classification, bool) {
		return Classification{}, false
	}}))
	assert.Same(t, c, New(WithClassifier(c)).Classifier())
}

func TestHandleOutOfRangeStatusOverHTTP(t *testing.T) {
	t.Parallel()

	rs := testResponder(EnvProduction)
	srv := httptest.NewServer(rs.Handle(func(_ http.ResponseWriter, r *http.Request) (any, error) {
		switch r.URL.Query().Get("status") {
		case "103":
			return nil, Abort(http.StatusEarlyHints, "boom")
		case "302":
			return nil, Abort(http.StatusFound, "boom")
		}
		return nil, Abort(1000, "boom")
	}))
	defer srv.Close()

	for _, status := range []string{"103", "302", "1000"} {
		resp, err := srv.Client().Get(srv.URL + "/?status=" + status)
		require.NoError(t, err, status)
		raw, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		require.NoError(t, err, status)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode, status)
		body := decodeBytes(t, raw)
		assert.Equal(t, float64(resp.StatusCode), body["status_code"], status)
		assert.Equal(t, "boom", body["message"], status)
	}
}
