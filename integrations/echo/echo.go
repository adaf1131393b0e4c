// Package echo provides adapters for using resp-envelope with Echo.
package echo

import (
	"errors"
	"fmt"
	"net/http"

	respenvelope "github.com/blackwell-systems/resp-envelope"
	echofw "github.com/labstack/echo/v4"
)

// Trace adapts trace id propagation to Echo's middleware interface.
//
// Example:
//
//	e := echo.New()
//	e.Use(Trace)
//	e.GET("/user", func(c echo.Context) error {
//	    traceID := respenvelope.TraceIDFromRequest(c.Request())
//	    // ...
//	    return nil
//	})
func Trace(next echofw.HandlerFunc) echofw.HandlerFunc {
	return func(c echofw.Context) error {
		var err error
		handler := respenvelope.TraceMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c.SetRequest(r)
			err = next(c)
		}))

		handler.ServeHTTP(c.Response().Writer, c.Request())
		return err
	}
}

// Write sends the envelope for data or err.
//
// Example:
//
//	e.GET("/products/:id", func(c echo.Context) error {
//	    p, err := store.Find(c.Param("id"))
//	    return Write(c, rs, p, err)
//	})
func Write(c echofw.Context, rs *respenvelope.Responder, data any, err error) error {
	return rs.Write(c.Response(), c.Request(), rs.Dispatch(data, Translate(err)))
}

// HTTPErrorHandler returns an echo.HTTPErrorHandler rendering every error
// that reaches Echo as an envelope.
//
// Example:
//
//	e := echo.New()
//	e.HTTPErrorHandler = HTTPErrorHandler(rs)
func HTTPErrorHandler(rs *respenvelope.Responder) echofw.HTTPErrorHandler {
	return func(err error, c echofw.Context) {
		if c.Response().Committed {
			return
		}
		if werr := Write(c, rs, nil, err); werr != nil {
			panic(werr)
		}
	}
}

// Translate maps Echo's own errors onto the failure vocabulary so they
// classify like their net/http counterparts. Other errors pass through.
func Translate(err error) error {
	if err == nil {
		return nil
	}

	var he *echofw.HTTPError
	if !errors.As(err, &he) {
		return err
	}

	switch he.Code {
	case http.StatusNotFound:
		if errors.Is(err, echofw.ErrNotFound) {
			return fmt.Errorf("%w: %v", respenvelope.ErrRouteNotFound, err)
		}
	case http.StatusRequestEntityTooLarge:
		return respenvelope.PayloadTooLarge(0)
	case http.StatusTooManyRequests:
		return respenvelope.RateLimited(0)
	case http.StatusUnauthorized:
		return respenvelope.Unauthenticated(message(he))
	case http.StatusMethodNotAllowed:
		return respenvelope.Abort(http.StatusMethodNotAllowed, "")
	}
	return respenvelope.Abort(he.Code, message(he))
}

func message(he *echofw.HTTPError) string {
	if he.Message == nil {
		return ""
	}
	return fmt.Sprint(he.Message)
}
