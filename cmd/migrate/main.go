package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"base-api/internal/infrastructure/db"
)

func main() {
	databaseURL := flag.String("database-url", "", "postgres connection string (defaults to DATABASE_URL)")
	migrationsPath := flag.String("dir", "", "path to a migrations directory (defaults to the embedded set)")
	flag.Parse()

	// .env 只在本機開發時存在，找不到就略過
	_ = godotenv.Load()

	url := os.Getenv("DATABASE_URL")
	if url == "" {
		url = *databaseURL
	}
	if url == "" {
		log.Fatal("DATABASE_URL 未設定，無法執行 migration")
	}

	fsys := fs.FS(db.Migrations)
	if *migrationsPath != "" {
		absDir, err := filepath.Abs(*migrationsPath)
		if err != nil {
			log.Fatalf("解析 migrations 路徑失敗: %v", err)
		}
		if _, err := os.Stat(absDir); err != nil {
			log.Fatalf("migrations 目錄不存在: %v", err)
		}
		fsys = os.DirFS(absDir)
		log.Printf("使用 migrations 目錄: %s", absDir)
	}

	pool, err := sql.Open("postgres", url)
	if err != nil {
		log.Fatalf("連線資料庫失敗: %v", err)
	}
	defer pool.Close()

	if err := db.Migrate(context.Background(), pool, fsys); err != nil {
		log.Fatalf("執行 migration 失敗: %v", err)
	}

	fmt.Println("Migration 完成")
	os.Exit(0)
}
