package i18n

import (
	"net/http"
)

// Middleware extracts the Accept-Language header and injects a printer and
// the matched language into the request context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tag := MatchLanguage(r.Header.Get("Accept-Language"))

		ctx := WithLanguage(r.Context(), tag)
		ctx = WithPrinter(ctx, NewPrinter(tag))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
