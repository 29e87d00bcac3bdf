package main

import (
	"context"
	"log"
	"time"

	"github.com/Haisyam/SertifGenerator/internal/config"
	"github.com/Haisyam/SertifGenerator/internal/jobs"
	"github.com/Haisyam/SertifGenerator/internal/pdf"
	"github.com/Haisyam/SertifGenerator/internal/storage"
)

// setupService はオブジェクトストアとジョブレジストリを組み立てて
// 生成サービスを返し、放置ジョブの回収ループを起動します。
func setupService(cfg *config.Config) (*pdf.Service, error) {
	store, err := storage.NewClient(cfg)
	if err != nil {
		return nil, err
	}

	registry := jobs.NewRegistry()
	service := pdf.NewService(cfg, store, registry, log.Default())

	ttlMinutes := cfg.JobTTLMinutes
	if ttlMinutes <= 0 {
		ttlMinutes = 30
	}
	go runReaper(registry, store, time.Duration(ttlMinutes)*time.Minute, log.Default())

	return service, nil
}

// runReaper は一定間隔でレジストリを掃除します。期限切れジョブの
// 成果物ZIPが残っていればストアからも削除します。
func runReaper(registry *jobs.Registry, store pdf.ObjectStore, ttl time.Duration, logger *log.Logger) {
	interval := ttl / 2
	if interval < time.Minute {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		for _, job := range registry.Sweep(ttl) {
			logger.Printf("reaped stale job %s (status: %s)", job.ID, job.Status)
			if job.ZipKey == "" {
				continue
			}
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if err := store.Delete(ctx, job.ZipKey); err != nil {
				logger.Printf("failed to delete archive %s: %v", job.ZipKey, err)
			}
			cancel()
		}
	}
}
