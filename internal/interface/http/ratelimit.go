package httpapi

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// 速率限制策略：每個來源 IP 持續 2 req/s，突發上限 5。
const (
	ratePerSecond = 2
	rateBurst     = 5

	// 超過這段時間沒出現的來源會在掃除時移除
	visitorTTL = 3 * time.Minute
)

// rateLimiter 依來源 IP 配發 token bucket。策略在伺服器建構時建立一次，
// 與行程同生命週期；所有請求共用同一份狀態，以互斥鎖保護。
type rateLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	limit     rate.Limit
	burst     int
	lastSweep time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newRateLimiter(perSecond float64, burst int) *rateLimiter {
	return &rateLimiter{
		visitors:  make(map[string]*visitor),
		limit:     rate.Limit(perSecond),
		burst:     burst,
		lastSweep: time.Now(),
	}
}

// allow 回報 source 在 now 這個時點是否可再送出請求；
// 被拒絕時一併回傳建議的重試等待時間。
func (rl *rateLimiter) allow(source string, now time.Time) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.sweepLocked(now)

	v, ok := rl.visitors[source]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[source] = v
	}
	v.lastSeen = now

	res := v.limiter.ReserveN(now, 1)
	if delay := res.DelayFrom(now); delay > 0 {
		// 不排隊等待，取消保留以歸還 token
		res.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// sweepLocked 順著請求路徑清掉久未出現的來源，
// 不另開背景 goroutine。
func (rl *rateLimiter) sweepLocked(now time.Time) {
	if now.Sub(rl.lastSweep) < visitorTTL {
		return
	}
	rl.lastSweep = now
	for source, v := range rl.visitors {
		if now.Sub(v.lastSeen) > visitorTTL {
			delete(rl.visitors, source)
		}
	}
}

// rateLimit 在進入路由前套用 token bucket；被拒絕的請求不會碰到任何 handler。
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, retryAfter := s.limiter.allow(clientIP(r), time.Now())
		if !ok {
			seconds := int(math.Ceil(retryAfter.Seconds()))
			if seconds < 1 {
				seconds = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(seconds))
			writeJSON(w, http.StatusTooManyRequests, errorBody{
				Title:   "Too Many Requests",
				Status:  http.StatusTooManyRequests,
				Message: "rate limit exceeded",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP 取出來源 IP 作為限流的 key；拿不到 port 時整個 RemoteAddr 當 key。
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
