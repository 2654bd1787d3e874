package httpx

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-json-experiment/json"
	"github.com/gorilla/schema"
)

// Params decodes the request parameters into the given struct based on the
// request method and Content-Type header. It returns an error if the
// Content-Type is not supported.
func Params(r *http.Request, v interface{}) error {
	switch r.Method {
	case "GET", "HEAD":
		values, err := url.ParseQuery(r.URL.RawQuery)
		if err != nil {
			return Error(http.StatusBadRequest, "invalid_request", err)
		}
		if err := decoder().Decode(v, values); err != nil {
			return Error(http.StatusBadRequest, "invalid_request", err)
		}
	case "POST", "PATCH":
		switch MediaType(r) {
		case "application/json":
			if err := json.UnmarshalFull(r.Body, v); err != nil {
				return Error(http.StatusBadRequest, "invalid_request", err)
			}
		case "application/octet-stream":
			// some clients post credentials with no Content-Type at all,
			// treat the query string as the body
			values, err := url.ParseQuery(r.URL.RawQuery)
			if err != nil {
				return Error(http.StatusBadRequest, "invalid_request", err)
			}
			if err := decoder().Decode(v, values); err != nil {
				return Error(http.StatusBadRequest, "invalid_request", err)
			}
		case "application/x-www-form-urlencoded":
			if err := r.ParseForm(); err != nil {
				return Error(http.StatusBadRequest, "invalid_request", err)
			}
			if err := decoder().Decode(v, r.Form); err != nil {
				return Error(http.StatusBadRequest, "invalid_request", err)
			}
		case "multipart/form-data":
			if err := r.ParseMultipartForm(0); err != nil {
				return Error(http.StatusBadRequest, "invalid_request", err)
			}
			if err := decoder().Decode(v, r.PostForm); err != nil {
				return Error(http.StatusBadRequest, "invalid_request", err)
			}
		default:
			return Error(http.StatusUnsupportedMediaType, "unsupported_media_type", fmt.Errorf("unsupported media type: %q", r.Header.Get("Content-Type")))
		}
	default:
		return Error(http.StatusMethodNotAllowed, "method_not_allowed", errors.New("unsupported method: "+r.Method))
	}
	return nil
}

func decoder() *schema.Decoder {
	dec := schema.NewDecoder()
	dec.IgnoreUnknownKeys(true)
	return dec
}

// MediaType returns the media type of the request.
func MediaType(req *http.Request) string {
	typ := strings.Split(req.Header.Get("Content-Type"), ";")[0]
	if typ == "" {
		typ = "application/octet-stream"
	}
	return typ
}
