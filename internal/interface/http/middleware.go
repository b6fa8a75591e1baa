package httpapi

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// requestLogger 為每個請求建立帶 request_id / method / path 欄位的 log span，
// 掛進 request context 供 handler 與錯誤對應層取用，完成時記錄狀態碼與耗時。
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		reqID := middleware.GetReqID(r.Context())
		if reqID == "" {
			reqID = "unknown"
		}
		w.Header().Set("X-Request-Id", reqID)

		logger := s.logger.With().
			Str("request_id", reqID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Logger()

		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r.WithContext(logger.WithContext(r.Context())))

		logger.Info().
			Int("status", ww.status).
			Dur("elapsed", time.Since(start)).
			Msg("request completed")
	})
}

// recoverer 攔截 handler panic，記錄堆疊後回覆統一的 500 內容，
// 讓單一請求的失敗不影響行程與其他進行中的請求。
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				zerolog.Ctx(r.Context()).Error().
					Interface("panic", rec).
					Bytes("stack", debug.Stack()).
					Msg("handler panicked")

				internal := &Error{kind: kindInternal}
				writeJSON(w, internal.status(), internal.body())
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// statusWriter 攔截回應狀態碼供 log span 使用。
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
