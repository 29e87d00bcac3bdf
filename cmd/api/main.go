// Package main はAPIサーバーのエントリーポイントです。
package main

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/Haisyam/SertifGenerator/internal/config"
	"github.com/Haisyam/SertifGenerator/internal/pdf"
)

func main() {
	// 設定の読み込み
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Ginのモードを設定
	gin.SetMode(cfg.GinMode)

	// Ginルーターの初期化（デフォルトミドルウェア: Logger, Recovery）
	router := gin.Default()

	// CORSミドルウェアの設定
	corsConfig := cors.DefaultConfig()
	// CORS許可オリジンを設定（カンマ区切りの文字列を配列に変換）
	origins := strings.Split(cfg.CORSAllowedOrigins, ",")
	corsConfig.AllowOrigins = origins
	corsConfig.AllowHeaders = []string{
		"Origin",
		"Content-Type",
		"Accept",
	}
	router.Use(cors.New(corsConfig))

	// 生成サービスの構築（ストア・ジョブレジストリ・回収ループ）
	service, err := setupService(cfg)
	if err != nil {
		log.Fatalf("Failed to set up generate service: %v", err)
	}

	// ルーティングの設定
	setupRoutes(router, cfg, service)

	// サーバーの起動
	addr := ":" + cfg.Port
	log.Printf("Starting API server on %s (mode: %s)", addr, cfg.GinMode)
	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// handleHealth はヘルスチェックエンドポイントのハンドラーです。
func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "sertif-generator-api",
		"version": "0.1.0",
	})
}

// setupRoutes は API グループの配線を行います。
func setupRoutes(router *gin.Engine, cfg *config.Config, service *pdf.Service) {
	// まずは誰でも叩けるヘルスチェックを登録
	router.GET("/health", handleHealth)

	api := router.Group("/api")
	{
		api.POST("/upload", pdf.UploadHandler(cfg, service.Store()))
		api.POST("/generate", pdf.GenerateHandler(service))
		api.GET("/generate/status", pdf.StatusHandler(service.Registry()))
		api.GET("/generate/download", pdf.DownloadHandler(service))
		api.POST("/font-preview", pdf.FontPreviewHandler(cfg, service.Store()))
		api.POST("/excel-info", pdf.ExcelInfoHandler(cfg))
	}
}
