package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	filtered     = "[FILTERED]"
	maxLoggedLen = 4096
)

// sensitiveKeys are matched as substrings of lowercased header names and
// JSON keys.
var sensitiveKeys = []string{
	"password",
	"token",
	"authorization",
	"secret",
	"cookie",
	"api_key",
	"apikey",
	"credential",
}

func isSensitive(name string) bool {
	lower := strings.ToLower(name)
	for _, s := range sensitiveKeys {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// LoggingMiddleware logs each request and its response with credentials
// masked. Bodies longer than maxLoggedLen are truncated.
func LoggingMiddleware(lg *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqID := GetRequestID(r.Context())

			var reqBody []byte
			if r.Body != nil && r.Body != http.NoBody {
				var err error
				reqBody, err = io.ReadAll(r.Body)
				if err != nil {
					// keep the read error visible to the handler, e.g. a body over the limit
					r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(reqBody), r.Body))
				} else {
					r.Body = io.NopCloser(bytes.NewReader(reqBody))
				}
			}

			lg.LogAttrs(r.Context(), slog.LevelInfo, "incoming request",
				slog.String("request_id", reqID),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("query", r.URL.RawQuery),
				slog.String("remote_addr", r.RemoteAddr),
				slog.Any("headers", filterHeaders(r.Header)),
				slog.String("body", filterBody(reqBody)),
			)

			ww := &capturingWriter{ResponseWriter: w}
			next.ServeHTTP(ww, r)

			status := ww.status
			if status == 0 {
				status = http.StatusOK
			}
			level := slog.LevelInfo
			switch {
			case status >= 500:
				level = slog.LevelError
			case status >= 400:
				level = slog.LevelWarn
			}

			lg.LogAttrs(r.Context(), level, "response",
				slog.String("request_id", reqID),
				slog.Int("status_code", status),
				slog.Int64("duration_ms", time.Since(start).Milliseconds()),
				slog.Int("response_size", ww.size),
				slog.String("body", filterBody(ww.body.Bytes())),
			)
		})
	}
}

type capturingWriter struct {
	http.ResponseWriter
	status int
	size   int
	body   bytes.Buffer
}

func (cw *capturingWriter) WriteHeader(code int) {
	if cw.status == 0 {
		cw.status = code
	}
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *capturingWriter) Write(b []byte) (int, error) {
	if room := maxLoggedLen - cw.body.Len(); room > 0 {
		if len(b) < room {
			room = len(b)
		}
		cw.body.Write(b[:room])
	}
	n, err := cw.ResponseWriter.Write(b)
	cw.size += n
	return n, err
}

func filterHeaders(headers http.Header) map[string]string {
	out := make(map[string]string, len(headers))
	for name, values := range headers {
		if isSensitive(name) {
			out[name] = filtered
			continue
		}
		out[name] = strings.Join(values, ", ")
	}
	return out
}

func filterBody(body []byte) string {
	if len(body) == 0 {
		return ""
	}

	var data interface{}
	if err := json.Unmarshal(body, &data); err != nil {
		if isSensitive(string(body)) {
			return "[FILTERED - contains sensitive data]"
		}
		return truncate(string(body))
	}

	masked, err := json.Marshal(maskJSON(data))
	if err != nil {
		return "[unloggable body]"
	}
	return truncate(string(masked))
}

func maskJSON(data interface{}) interface{} {
	switch v := data.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, value := range v {
			if isSensitive(key) {
				out[key] = filtered
				continue
			}
			out[key] = maskJSON(value)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = maskJSON(item)
		}
		return out
	default:
		return v
	}
}

func truncate(s string) string {
	if len(s) <= maxLoggedLen {
		return s
	}
	return s[:maxLoggedLen] + "...(truncated)"
}
