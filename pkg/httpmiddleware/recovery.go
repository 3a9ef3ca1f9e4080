package httpmiddleware

import (
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/sales-api/pkg/problem"
)

// Recovery returns a middleware that recovers from panics, logs them with a
// stack trace, and responds with a 500 problem document.
func Recovery() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				zctx.From(r.Context()).Error("Panic recovered",
					zap.Any("panic", rec),
					zap.String("path", r.URL.Path),
					zap.Stack("stack"),
				)
				w.Header().Set("Connection", "close")
				p := problem.New(http.StatusInternalServerError, "An unexpected error occurred").
					WithCode(problem.CodeInternal)
				p.RequestID = RequestIDFromContext(r.Context())
				problem.Write(w, r, p)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
