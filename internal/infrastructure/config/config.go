package config

import (
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config 儲存伺服器啟動所需的設定，載入完成後視為唯讀。
type Config struct {
	DatabaseURL string `yaml:"database_url"`
	Port        uint   `yaml:"port"`
	Address     string `yaml:"address"`
}

// Load 依序套用組態檔、命令列旗標與環境變數後回傳設定。
//
// 優先順序由低至高：預設值 < 組態檔 < 旗標 < 環境變數。開發時可在
// 工作目錄放 .env 檔（參考 .env.example），內容會以環境變數身分生效，
// 但不會覆蓋已存在的環境變數。
func Load(args []string) (Config, error) {
	// 嘗試載入 .env 檔案（如果存在）
	_ = godotenv.Load()

	fs := flag.NewFlagSet("api", flag.ContinueOnError)
	cfgPath := fs.String("config", "config.yaml", "path to an optional YAML config file")
	databaseURL := fs.String("database-url", "", "database connection string (env DATABASE_URL)")
	port := fs.Uint("port", 0, "bind port (env PORT)")
	address := fs.String("address", "", "bind address (env ADDRESS)")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg, err := loadFile(*cfgPath)
	if err != nil {
		return Config{}, err
	}

	// 旗標覆蓋組態檔
	if *databaseURL != "" {
		cfg.DatabaseURL = *databaseURL
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *address != "" {
		cfg.Address = *address
	}

	cfg, err = applyEnv(cfg)
	if err != nil {
		return Config{}, err
	}
	cfg = applyDefaults(cfg)

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("database_url is required (set DATABASE_URL or pass -database-url)")
	}
	return cfg, nil
}

// Addr 回傳 HTTP listener 綁定用的 host:port 字串。
func (c Config) Addr() string {
	return net.JoinHostPort(c.Address, strconv.FormatUint(uint64(c.Port), 10))
}

func loadFile(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config yaml: %w", err)
	}
	return cfg, nil
}

func applyDefaults(cfg Config) Config {
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.Address == "" {
		cfg.Address = "127.0.0.1"
	}
	return cfg
}

func applyEnv(cfg Config) (Config, error) {
	if val := os.Getenv("PORT"); val != "" {
		p, err := strconv.ParseUint(val, 10, 0)
		if err != nil {
			return Config{}, fmt.Errorf("parse PORT: %w", err)
		}
		cfg.Port = uint(p)
	}
	if val := os.Getenv("DATABASE_URL"); val != "" {
		cfg.DatabaseURL = val
	}
	if val := os.Getenv("ADDRESS"); val != "" {
		cfg.Address = val
	}
	return cfg, nil
}
