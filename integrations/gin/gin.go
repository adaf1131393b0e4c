// Package gin provides adapters for using resp-envelope with Gin.
package gin

import (
	"net/http"

	respenvelope "github.com/blackwell-systems/resp-envelope"
	"github.com/gin-gonic/gin"
)

// Trace wires trace id propagation into Gin's middleware chain.
//
// The id is available via respenvelope.TraceIDFromRequest(c.Request).
//
// Example:
//
//	r := gin.New()
//	r.Use(Trace())
func Trace() gin.HandlerFunc {
	return func(c *gin.Context) {
		handler := respenvelope.TraceMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c.Request = r
			c.Next()
		}))

		handler.ServeHTTP(c.Writer, c.Request)
	}
}

// Respond writes the envelope for data or err and ends the chain.
//
// Example:
//
//	r.POST("/products", func(c *gin.Context) {
//	    var in ProductInput
//	    if err := c.ShouldBindJSON(&in); err != nil {
//	        Respond(c, rs, nil, err)
//	        return
//	    }
//	    Respond(c, rs, respenvelope.Result{Data: in, Status: http.StatusCreated}, nil)
//	})
func Respond(c *gin.Context, rs *respenvelope.Responder, data any, err error) {
	write(c, rs, rs.Dispatch(data, err))
}

// Handle adapts a respenvelope.HandlerFunc to a Gin handler.
func Handle(rs *respenvelope.Responder, fn respenvelope.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		data, err := fn(c.Writer, c.Request)
		Respond(c, rs, data, err)
	}
}

// Errors renders the last error handlers attached with c.Error, when no
// response has been written yet.
func Errors(rs *respenvelope.Responder) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		write(c, rs, rs.Dispatch(nil, c.Errors.Last().Err))
	}
}

// Recovery turns panics into internal-fault envelopes. See
// respenvelope.Responder.Recover for the panics it re-raises.
func Recovery(rs *respenvelope.Responder) gin.HandlerFunc {
	return func(c *gin.Context) {
		handler := rs.Recover(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c.Request = r
			c.Next()
		}))
		handler.ServeHTTP(c.Writer, c.Request)
	}
}

// NoRoute is the handler for r.NoRoute.
func NoRoute(rs *respenvelope.Responder) gin.HandlerFunc {
	return func(c *gin.Context) {
		rs.NotFound(c.Writer, c.Request)
		c.Abort()
	}
}

// NoMethod is the handler for r.NoMethod. Gin only calls it when
// HandleMethodNotAllowed is enabled on the engine.
func NoMethod(rs *respenvelope.Responder) gin.HandlerFunc {
	return func(c *gin.Context) {
		rs.MethodNotAllowed(c.Writer, c.Request)
		c.Abort()
	}
}

// Mount installs Trace, Recovery, Errors and the not-found handlers on
// the engine.
func Mount(r *gin.Engine, rs *respenvelope.Responder) {
	r.HandleMethodNotAllowed = true
	r.Use(Trace(), Recovery(rs), Errors(rs))
	r.NoRoute(NoRoute(rs))
	r.NoMethod(NoMethod(rs))
}

func write(c *gin.Context, rs *respenvelope.Responder, o respenvelope.Outcome) {
	if err := rs.Write(c.Writer, c.Request, o); err != nil {
		panic(err)
	}
	c.Abort()
}
