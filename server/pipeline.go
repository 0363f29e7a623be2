package server

import (
	"context"
	"net/http"
)

// Step is one stage of a protected request. It returns the context for the next stage or an
// error that ends the request.
type Step func(r *http.Request) (context.Context, error)

// Pipeline runs steps in order before handler. The first failing step writes the error
// response and nothing after it runs.
func Pipeline(handler http.HandlerFunc, steps ...Step) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		for _, step := range steps {
			ctx, err := step(r)
			if err != nil {
				writeError(w, r, err)
				return
			}
			r = r.WithContext(ctx)
		}
		handler(w, r)
	}
}
