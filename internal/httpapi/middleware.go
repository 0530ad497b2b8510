package httpapi

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// responseWriter ステータスコードを記録する
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (h *Handler) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", wrapped.statusCode),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		}
		if r.URL.RawQuery != "" {
			fields = append(fields, zap.String("query", r.URL.RawQuery))
		}

		switch {
		case wrapped.statusCode >= 500:
			h.Logger.Error("HTTP request completed", fields...)
		case wrapped.statusCode >= 400:
			h.Logger.Warn("HTTP request completed", fields...)
		default:
			h.Logger.Info("HTTP request completed", fields...)
		}
	})
}
