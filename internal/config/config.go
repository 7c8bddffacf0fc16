package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Configはアプリ全体の設定
type Config struct {
	Port string // サーバーポート（8080）

	DatabaseURL      string // あればDSNを丸ごと使う
	PostgresUser     string // DBユーザー
	PostgresPassword string // DBパスワード
	PostgresDB       string // DB名
	PostgresHost     string // DBホスト（localhost）
	PostgresPort     int    // DBポート（5432）
	PostgresSSLMode  string // disable/require

	RedisAddr string // カートキャッシュ用（localhost:6379）

	JWTSecret string // JWT署名シークレット

	StripeKey      string        // 決済ゲートウェイのAPIキー
	GatewayTimeout time.Duration // ゲートウェイ呼び出しの上限（既定10秒）

	GoEnv string // dev/prod
}

// Loadは環境変数
func Load() (Config, error) {
	cfg := Config{
		Port: getenv("PORT", "8080"),

		DatabaseURL:      os.Getenv("DATABASE_URL"),
		PostgresUser:     getenv("POSTGRES_USER", "postgres"),
		PostgresPassword: getenv("POSTGRES_PASSWORD", "postgres"),
		PostgresDB:       getenv("POSTGRES_DB", "shop"),
		PostgresHost:     getenv("POSTGRES_HOST", "localhost"),
		PostgresSSLMode:  getenv("POSTGRES_SSLMODE", "disable"),

		RedisAddr: getenv("REDIS_ADDR", "localhost:6379"),

		JWTSecret: os.Getenv("JWT_SECRET"),
		StripeKey: os.Getenv("STRIPE_KEY"),

		GoEnv: getenv("GO_ENV", "dev"),
	}

	pgPort, err := atoiEnv("POSTGRES_PORT", 5432)
	if err != nil {
		return Config{}, err
	}
	cfg.PostgresPort = pgPort

	timeoutSec, err := atoiEnv("GATEWAY_TIMEOUT_SEC", 10)
	if err != nil {
		return Config{}, err
	}
	cfg.GatewayTimeout = time.Duration(timeoutSec) * time.Second

	//必須チェック
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.StripeKey == "" {
		return Config{}, fmt.Errorf("STRIPE_KEY is required")
	}

	return cfg, nil
}

func getenv(key string, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func atoiEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}
