package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config はサーバー全体の設定パラメータです。環境変数から読み込みます。
// 開発環境では cmd/api/main.go が先に .env を読み込みます。
type Config struct {
	AppEnv string `env:"APP_ENV" envDefault:"development"`
	Port   string `env:"PORT" envDefault:"8080"`

	// Supabase 関連。認証（GoTrue）は常に Supabase を利用します。
	SupabaseURL        string `env:"SUPABASE_URL"`
	SupabaseServiceKey string `env:"SUPABASE_SERVICE_ROLE_KEY"`
	SupabaseJWTSecret  string `env:"SUPABASE_JWT_SECRET"`

	// DATABASE_URL が設定されている場合、レコードストアは PostgREST ではなく
	// Postgres へ直接接続します。
	DatabaseURL string `env:"DATABASE_URL"`

	// ローカルミラー（BadgerDB）の保存先ディレクトリ。
	MirrorPath string `env:"MIRROR_PATH" envDefault:"data/mirror"`

	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
}

// NewConfig は環境変数から設定を読み込みます。
func NewConfig() (*Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("設定の読み込みに失敗しました: %w", err)
	}
	return &cfg, nil
}
