package httpapi

import (
	"database/sql"
	"net/http"

	"base-api/internal/infrastructure/config"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Server 封裝 HTTP 路由與共用依賴。cfg 與連線池在啟動時注入一次，
// 之後所有 handler 共用同一份，不再變動。
type Server struct {
	cfg     config.Config
	db      *sql.DB
	logger  zerolog.Logger
	limiter *rateLimiter
	router  chi.Router
}

// NewServer 建立 API 伺服器並組裝 middleware 與路由。
// middleware 全部排在路由之前，被限流拒絕的請求不會進到任何 handler。
func NewServer(cfg config.Config, pool *sql.DB, logger zerolog.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		db:      pool,
		logger:  logger,
		limiter: newRateLimiter(ratePerSecond, rateBurst),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(s.recoverer)
	r.Use(s.rateLimit)

	r.Get("/", s.handleHealthCheck)
	r.NotFound(apiHandler(s.handleNotFound).ServeHTTP)

	s.router = r
	return s
}

// handleNotFound 把所有未匹配的路由導進錯誤對應層。
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) error {
	return ErrNotFound
}

// Handler 回傳組裝完成的 http.Handler；測試與正式啟動共用同一條路徑。
func (s *Server) Handler() http.Handler {
	return s.router
}
