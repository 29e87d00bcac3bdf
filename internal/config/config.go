// Package config は環境変数から設定を読み込み、アプリケーション全体で使用する設定を提供します。
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config はアプリケーションの設定を保持する構造体です。
type Config struct {
	// サーバー設定
	Port    string // APIサーバーのポート番号
	GinMode string // Ginの実行モード (debug, release, test)

	// CORS設定
	CORSAllowedOrigins string // CORS許可オリジン（カンマ区切り）

	// R2（S3互換オブジェクトストア）設定
	R2AccountID       string // Cloudflare R2 アカウントID
	R2BucketName      string // バケット名
	R2AccessKeyID     string // アクセスキーID
	R2SecretAccessKey string // シークレットアクセスキー
	R2Endpoint        string // エンドポイントの上書き（空なら R2 標準ホストを使用）

	// ファイル制限
	MaxFileSize int64 // 単一アップロードファイルの最大サイズ（バイト）

	// ジョブ設定
	JobTTLMinutes        int    // 放置されたジョブを回収するまでの時間（分）
	PresignExpireSeconds int    // 署名付きダウンロードURLの有効期限（秒）
	TempDir              string // 作業ディレクトリのベース（空なら os.TempDir()）
}

// Load は環境変数から設定を読み込みます。
// .env.local ファイルが存在する場合はそこから読み込みます。
func Load() (*Config, error) {
	// .env.local ファイルを読み込む（存在しない場合はスキップ）
	loadEnvFile()

	config := &Config{
		// サーバー設定
		Port:    getEnv("PORT", "8080"),
		GinMode: getEnv("GIN_MODE", "debug"),

		// CORS設定
		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),

		// R2設定
		R2AccountID:       getEnv("R2_ACCOUNT_ID", ""),
		R2BucketName:      getEnv("R2_BUCKET_NAME", ""),
		R2AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
		R2SecretAccessKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2Endpoint:        getEnv("R2_ENDPOINT", ""),

		// ファイル制限
		MaxFileSize: getEnvAsInt64("MAX_FILE_SIZE", 20971520), // 20MB

		// ジョブ設定
		JobTTLMinutes:        getEnvAsInt("JOB_TTL_MINUTES", 30),
		PresignExpireSeconds: getEnvAsInt("PRESIGN_EXPIRE_SECONDS", 900),
		TempDir:              getEnv("TEMP_DIR", ""),
	}

	// 必須設定のバリデーション
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func loadEnvFile() {
	if err := godotenv.Load(".env.local"); err == nil {
		return
	}

	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	parent := filepath.Dir(cwd)
	if parent == "" || parent == cwd {
		return
	}

	_ = godotenv.Load(filepath.Join(parent, ".env.local"))
}

// Validate は設定の妥当性を検証します。
// R2の資格情報はストレージ操作の前提となるため、モードに関わらず必須です。
func (c *Config) Validate() error {
	required := []struct {
		key   string
		value string
	}{
		{"R2_ACCOUNT_ID", c.R2AccountID},
		{"R2_BUCKET_NAME", c.R2BucketName},
		{"R2_ACCESS_KEY_ID", c.R2AccessKeyID},
		{"R2_SECRET_ACCESS_KEY", c.R2SecretAccessKey},
	}
	for _, entry := range required {
		if entry.value == "" {
			return fmt.Errorf("%s is required", entry.key)
		}
	}

	if c.GinMode == "release" {
		if c.CORSAllowedOrigins == "" {
			return fmt.Errorf("CORS_ALLOWED_ORIGINS is required in release mode")
		}
	}

	return nil
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します。
func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt は環境変数を整数として取得します。
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsInt64 は環境変数を64ビット整数として取得します。
func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return defaultValue
	}
	return value
}
