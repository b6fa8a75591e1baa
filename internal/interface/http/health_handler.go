package httpapi

import "net/http"

// handleHealthCheck 回報行程存活。固定回 200 / ok，
// 不碰資料庫也沒有失敗路徑，適合接 liveness probe。
func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
