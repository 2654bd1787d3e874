package httpx

import (
	"io"
	"net/http"
)

// CORS adds permissive cross-origin headers to every response and answers
// preflight requests directly, before any authentication runs.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Headers", "authorization, x-client-info, apikey, content-type")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PATCH, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			io.WriteString(w, "ok")
			return
		}
		next.ServeHTTP(w, r)
	})
}
