package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// 連線池上限固定為 10；超出的請求由 database/sql 自行排隊。
const maxOpenConns = 10

// Connect 建立 PostgreSQL 連線池並以 ping 確認資料庫可達。
// 連不上時關閉 handle 並回傳錯誤，由呼叫端決定是否中止啟動。
func Connect(ctx context.Context, databaseURL string) (*sql.DB, error) {
	pool, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	pool.SetMaxOpenConns(maxOpenConns)
	pool.SetConnMaxIdleTime(15 * time.Minute)

	pingCtx := ctx
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}
	if err := pool.PingContext(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}
