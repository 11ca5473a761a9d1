package middleware

import (
	"net/http"
	"strings"
)

// ContentType requires a JSON body on POST/PUT/PATCH, except on the paths
// given in multipartPaths which take multipart/form-data instead
func ContentType(multipartPaths ...string) func(http.Handler) http.Handler {
	multipart := make(map[string]bool, len(multipartPaths))
	for _, p := range multipartPaths {
		multipart[p] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost || r.Method == http.MethodPatch || r.Method == http.MethodPut {
				contentType := strings.ToLower(r.Header.Get("Content-Type"))
				if contentType == "" {
					RespondError(w, r, http.StatusBadRequest, "Content-Type header is required", nil)
					return
				}

				want := "application/json"
				if multipart[r.URL.Path] {
					want = "multipart/form-data"
				}
				if !strings.HasPrefix(contentType, want) {
					RespondError(w, r, http.StatusUnsupportedMediaType, "Content-Type must be "+want, nil)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}
