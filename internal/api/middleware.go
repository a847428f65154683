package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"photobatch/internal/logger"
	"photobatch/internal/util"
)

// LoggerMiddleware кладёт в контекст запроса логгер с trace_id и пишет
// начало и конец каждого запроса. Входящий X-Trace-ID используется, если
// это корректный UUID.
func LoggerMiddleware(base logger.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			traceID := r.Header.Get("X-Trace-ID")
			if !util.IsID(traceID) {
				traceID = util.GenerateID()
			}

			coreLogger := base.WithFields(logger.Fields{"trace_id": traceID})
			httpLogger := coreLogger.WithFields(logger.Fields{
				"http_method": r.Method,
				"http_path":   r.URL.Path,
				"remote_addr": r.RemoteAddr,
			})

			ctx := contextWithLogger(r.Context(), coreLogger)
			ctx = contextWithTraceID(ctx, traceID)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			ww.Header().Set("X-Trace-ID", traceID)
			start := time.Now()

			httpLogger.Debug("request started", nil)
			next.ServeHTTP(ww, r.WithContext(ctx))
			httpLogger.Info("request finished", logger.Fields{
				"status_code":   ww.Status(),
				"bytes_written": ww.BytesWritten(),
				"duration_ms":   time.Since(start).Milliseconds(),
			})
		})
	}
}
