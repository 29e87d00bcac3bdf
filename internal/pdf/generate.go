package pdf

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/Haisyam/SertifGenerator/internal/config"
	"github.com/Haisyam/SertifGenerator/internal/excel"
	"github.com/Haisyam/SertifGenerator/internal/jobs"
)

const archiveFilename = "sertifikat.zip"

// ObjectStore は生成パイプラインが利用するオブジェクトストアの操作群です。
type ObjectStore interface {
	Save(ctx context.Context, key string, data []byte, contentType string) error
	Load(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	GenerateSignedURL(key string, expiry time.Duration) (string, error)
}

// GenerateRequest は POST /api/generate のリクエストボディです。
type GenerateRequest struct {
	TemplateKey    string    `json:"templateKey" binding:"required"`
	ExcelKey       string    `json:"excelKey" binding:"required"`
	FontNamaKey    string    `json:"fontNamaKey" binding:"required"`
	FontSebagaiKey string    `json:"fontSebagaiKey"`
	Positions      Positions `json:"positions"`
}

// Service は証明書生成ジョブのオーケストレーションを担います。
type Service struct {
	cfg      *config.Config
	store    ObjectStore
	registry *jobs.Registry
	logger   *log.Logger

	// テスト時に差し替え可能な描画関数
	render func(assets *renderAssets, row excel.Row, positions Positions) ([]byte, error)
}

// NewService は Service を初期化します。
func NewService(cfg *config.Config, store ObjectStore, registry *jobs.Registry, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		cfg:      cfg,
		store:    store,
		registry: registry,
		logger:   logger,
		render:   renderCertificate,
	}
}

// Registry はジョブレジストリを返します。
func (s *Service) Registry() *jobs.Registry {
	return s.registry
}

// Store はオブジェクトストアを返します。
func (s *Service) Store() ObjectStore {
	return s.store
}

// PresignExpiry は署名付きダウンロードURLの有効期限を返します。
func (s *Service) PresignExpiry() time.Duration {
	return presignExpiry(s.cfg)
}

func presignExpiry(cfg *config.Config) time.Duration {
	seconds := 900
	if cfg != nil && cfg.PresignExpireSeconds > 0 {
		seconds = cfg.PresignExpireSeconds
	}
	return time.Duration(seconds) * time.Second
}

// StartGenerate はリクエストを検証してジョブを登録し、バックグラウンドで
// 生成パイプラインを起動します。呼び出し元にはただちにジョブを返します。
func (s *Service) StartGenerate(ctx context.Context, req *GenerateRequest) (*jobs.Job, error) {
	if req.Positions.Nama == nil {
		return nil, newError("INVALID_INPUT", "Payload tidak lengkap.", nil)
	}
	if req.Positions.EnableSebagai {
		if req.Positions.Sebagai == nil {
			return nil, newError("INVALID_INPUT", "Posisi Sebagai wajib saat fitur Sebagai aktif.", nil)
		}
		if req.FontSebagaiKey == "" {
			return nil, newError("INVALID_INPUT", "Font Sebagai wajib diupload saat fitur Sebagai aktif.", nil)
		}
	}

	excelData, err := s.store.Load(ctx, req.ExcelKey)
	if err != nil {
		return nil, err
	}
	rows, err := excel.Parse(excelData, req.Positions.EnableSebagai)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, newError("INVALID_INPUT", "Data Excel kosong.", nil)
	}

	job := s.registry.Create(len(rows))

	// リクエストのキャンセルに巻き込まれないよう、独立したコンテキストで実行する
	go s.runGenerate(context.Background(), job.ID, req, rows)

	return job, nil
}

// runGenerate は生成パイプラインの本体です。レコードを順に描画し、
// ZIPにまとめてストアへ保存します。途中で失敗した場合は残りを中断し、
// ジョブを error 状態にします。作業領域と入力オブジェクトは成否に
// かかわらず終了時に削除します（エラーは握りつぶします）。
func (s *Service) runGenerate(ctx context.Context, jobID string, req *GenerateRequest, rows []excel.Row) {
	workDir, err := os.MkdirTemp(s.tempBase(), "sertif-output-")
	if err != nil {
		s.failJob(jobID, err)
		return
	}

	cleanupKeys := []string{req.TemplateKey, req.ExcelKey, req.FontNamaKey}
	if req.FontSebagaiKey != "" {
		cleanupKeys = append(cleanupKeys, req.FontSebagaiKey)
	}
	defer func() {
		_ = os.RemoveAll(workDir)
		for _, key := range cleanupKeys {
			if err := s.store.Delete(ctx, key); err != nil {
				s.logger.Printf("failed to delete input object %s: %v", key, err)
			}
		}
	}()

	assets, err := s.loadAssets(ctx, req)
	if err != nil {
		s.failJob(jobID, err)
		return
	}

	usedNames := make(map[string]struct{}, len(rows))
	archiveFiles := make([]archiveFile, 0, len(rows))
	for i, row := range rows {
		pdfBytes, err := s.render(assets, row, req.Positions)
		if err != nil {
			s.failJob(jobID, err)
			return
		}

		baseName := row.Nama
		if baseName == "" {
			baseName = fmt.Sprintf("peserta_%d", i+1)
		}
		filename := uniqueFilename(usedNames, sanitizeFilename(baseName))
		path := filepath.Join(workDir, filename)
		if err := os.WriteFile(path, pdfBytes, 0o640); err != nil {
			s.failJob(jobID, err)
			return
		}
		archiveFiles = append(archiveFiles, archiveFile{path: path, name: filename})

		current := i + 1
		s.registry.Update(jobID, func(j *jobs.Job) {
			j.Current = current
		})
	}

	zipPath := filepath.Join(workDir, archiveFilename)
	if err := createZip(zipPath, archiveFiles); err != nil {
		s.failJob(jobID, err)
		return
	}
	zipBytes, err := os.ReadFile(zipPath)
	if err != nil {
		s.failJob(jobID, err)
		return
	}

	zipKey := "results/" + jobID + "/" + archiveFilename
	if err := s.store.Save(ctx, zipKey, zipBytes, "application/zip"); err != nil {
		s.failJob(jobID, err)
		return
	}

	s.registry.Update(jobID, func(j *jobs.Job) {
		j.Status = jobs.StatusDone
		j.ZipKey = zipKey
	})
}

// loadAssets はテンプレートとフォントをストアから取得して検証します。
func (s *Service) loadAssets(ctx context.Context, req *GenerateRequest) (*renderAssets, error) {
	template, err := s.store.Load(ctx, req.TemplateKey)
	if err != nil {
		return nil, err
	}
	imageType, width, height, err := detectTemplate(template)
	if err != nil {
		return nil, err
	}

	fontNama, err := s.store.Load(ctx, req.FontNamaKey)
	if err != nil {
		return nil, err
	}

	var fontSebagai []byte
	if req.Positions.EnableSebagai && req.FontSebagaiKey != "" {
		fontSebagai, err = s.store.Load(ctx, req.FontSebagaiKey)
		if err != nil {
			return nil, err
		}
	}

	return &renderAssets{
		template:     template,
		templateType: imageType,
		width:        width,
		height:       height,
		fontNama:     fontNama,
		fontSebagai:  fontSebagai,
	}, nil
}

func (s *Service) failJob(jobID string, err error) {
	message := "Generate gagal."
	if err != nil {
		var apiErr *Error
		if errors.As(err, &apiErr) {
			message = apiErr.Message
		} else {
			message = err.Error()
		}
	}
	s.logger.Printf("generate job %s failed: %v", jobID, err)
	s.registry.Update(jobID, func(j *jobs.Job) {
		j.Status = jobs.StatusError
		j.Error = message
	})
}

func (s *Service) tempBase() string {
	if s.cfg != nil && s.cfg.TempDir != "" {
		return s.cfg.TempDir
	}
	return os.TempDir()
}
