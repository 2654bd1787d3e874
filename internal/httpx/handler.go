// Package httpx is a convenience wrapper around the http.ServeMux type that
// allows us to return errors from our handlers.
// see https://blog.questionable.services/article/http-handler-error-handling-revisited/ for more details.
package httpx

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-json-experiment/json"
)

// Error is a convenience function for returning an error with an associated
// HTTP status code and a stable snake_case error code for the response body.
func Error(status int, code string, err error) error {
	return &StatusError{Status: status, Code: code, Err: err}
}

// StatusError represents an error with an associated HTTP status code and a
// stable machine-readable error code.
type StatusError struct {
	Status int
	Code   string
	Err    error
}

// Allows StatusError to satisfy the error interface.
func (se *StatusError) Error() string {
	if se.Err == nil {
		return se.Code
	}
	return se.Err.Error()
}

// Unwrap exposes the underlying error for errors.Is/As.
func (se *StatusError) Unwrap() error {
	return se.Err
}

// HandlerFunc adapts a function that returns an error to an http.HandlerFunc.
// The body of any error response is {"error": "<code>"}; the underlying error
// is logged but never sent to the caller.
func HandlerFunc[E any](envFn func(r *http.Request) *E, fn func(*E, http.ResponseWriter, *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		env := envFn(r)
		err := fn(env, w, r)
		if err != nil {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			if se := new(StatusError); errors.As(err, &se) {
				log.Printf("HTTP: method: %s, path: %s, status: %d, code: %s, error: %s", r.Method, r.URL.Path, se.Status, se.Code, err)
				w.WriteHeader(se.Status)
				json.MarshalFull(w, map[string]any{
					"error": se.Code,
				})
				return
			}
			log.Printf("HTTP: method: %s, path: %s, status: %d, error: %s", r.Method, r.URL.Path, http.StatusInternalServerError, err)
			w.WriteHeader(http.StatusInternalServerError)
			json.MarshalFull(w, map[string]any{
				"error": "internal_error",
			})
		}
	}
}
