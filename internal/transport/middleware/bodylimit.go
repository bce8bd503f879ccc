package middleware

import "net/http"

// DefaultMaxBodyBytes caps request bodies at 1 MiB.
const DefaultMaxBodyBytes int64 = 1 << 20

// BodyLimit wraps request bodies so reads fail past limit bytes.
func BodyLimit(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil && r.Body != http.NoBody {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}
