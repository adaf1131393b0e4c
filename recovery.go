package respenvelope

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
)

// Recover turns panics in next into internal-fault envelopes.
//
// Two panics are re-raised untouched: http.ErrAbortHandler, and a
// *FormatError, which means the envelope itself could not be rendered.
// A panic after next has started the response cannot be answered with an
// envelope; it is logged and the response is aborted with
// http.ErrAbortHandler.
func (rs *Responder) Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tw := &trackingWriter{ResponseWriter: w}
		defer func() {
			v := recover()
			if v == nil {
				return
			}
			if err, ok := v.(error); ok {
				var fe *FormatError
				if errors.Is(err, http.ErrAbortHandler) || errors.As(err, &fe) {
					panic(v)
				}
			}

			perr := Recovered(v)
			rs.logger.ErrorContext(r.Context(), "panic recovered",
				slog.String("panic", perr.Error()),
				slog.String("stack", string(debug.Stack())),
				slog.String("trace_id", TraceIDFromRequest(r)),
				slog.Bool("committed", tw.committed()),
			)
			if tw.committed() {
				panic(http.ErrAbortHandler)
			}
			must(rs.Fail(w, r, perr))
		}()

		next.ServeHTTP(tw, r)
	})
}

// trackingWriter records whether the response has been started.
type trackingWriter struct {
	http.ResponseWriter
	wrote bool
}

func (w *trackingWriter) WriteHeader(code int) {
	w.wrote = true
	w.ResponseWriter.WriteHeader(code)
}

func (w *trackingWriter) Write(b []byte) (int, error) {
	w.wrote = true
	return w.ResponseWriter.Write(b)
}

func (w *trackingWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		w.wrote = true
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *trackingWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// committed also consults writers that track writes themselves, such as
// gin's.
func (w *trackingWriter) committed() bool {
	if w.wrote {
		return true
	}
	if ww, ok := w.ResponseWriter.(interface{ Written() bool }); ok {
		return ww.Written()
	}
	return false
}

// LimitBody rejects request bodies above limit. A limit of zero uses the
// MaxUploadSize in effect for each request.
//
// A declared Content-Length above the limit is rejected before next runs;
// otherwise the body is wrapped with http.MaxBytesReader and reading past
// the limit fails with *http.MaxBytesError, which handlers return as-is.
func (rs *Responder) LimitBody(limit ByteSize) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			size := limit
			if size <= 0 {
				size = rs.settings().MaxUploadSize
			}
			if size <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			if r.ContentLength > int64(size) {
				must(rs.Fail(w, r, PayloadTooLarge(int64(size))))
				return
			}
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, int64(size))
			}
			next.ServeHTTP(w, r)
		})
	}
}
