package middleware

import (
	"context"
	"net/http"
	"time"
)

// TimeoutMiddleware gives each request a wall-clock budget by attaching a
// context deadline. It does not write a response itself: the handler sees
// the expired deadline on its upstream call and reports it through its
// normal error path, so there is never a second writer on the
// ResponseWriter.
//
//	handler = TimeoutMiddleware(30 * time.Second)(handler)
func TimeoutMiddleware(budget time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if budget <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			ctx, cancel := context.WithTimeout(r.Context(), budget)
			defer cancel()

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Detach returns a context that keeps ctx's values and deadline but is not
// cancelled when the client goes away. The upstream call runs on it so a
// disconnect does not abort a compile already in flight.
func Detach(ctx context.Context) (context.Context, context.CancelFunc) {
	detached := context.WithoutCancel(ctx)
	if deadline, ok := ctx.Deadline(); ok {
		return context.WithDeadline(detached, deadline)
	}
	return context.WithCancel(detached)
}
