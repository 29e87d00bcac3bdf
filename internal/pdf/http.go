package pdf

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"

	"github.com/Haisyam/SertifGenerator/internal/config"
	"github.com/Haisyam/SertifGenerator/internal/excel"
	"github.com/Haisyam/SertifGenerator/internal/jobs"
	"github.com/Haisyam/SertifGenerator/internal/storage"
)

// GenerateStarter は生成ジョブを開始できるサービスが実装します。
type GenerateStarter interface {
	StartGenerate(ctx context.Context, req *GenerateRequest) (*jobs.Job, error)
}

// UploadHandler は POST /api/upload のハンドラーを返します。
// template と excel は必須、フォントは任意です。受け付けたファイルは
// ストアに保存され、オブジェクトキーが返されます。
func UploadHandler(cfg *config.Config, store ObjectStore) gin.HandlerFunc {
	fields := []struct {
		name     string
		prefix   string
		required bool
	}{
		{name: "template", prefix: "uploads/template", required: true},
		{name: "excel", prefix: "uploads/excel", required: true},
		{name: "font_nama", prefix: "uploads/font", required: false},
		{name: "font_sebagai", prefix: "uploads/font", required: false},
	}

	return func(c *gin.Context) {
		form, err := c.MultipartForm()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    "INVALID_INPUT",
				"message": "Kirim file dengan multipart/form-data.",
			})
			return
		}
		defer form.RemoveAll()

		keys := gin.H{}
		for _, field := range fields {
			headers := form.File[field.name]
			if len(headers) == 0 {
				if field.required {
					c.JSON(http.StatusBadRequest, gin.H{
						"code":    "INVALID_INPUT",
						"message": fmt.Sprintf("File %s wajib diupload.", field.name),
					})
					return
				}
				continue
			}

			data, err := readMultipartFile(headers[0], cfg.MaxFileSize)
			if err != nil {
				respondWithError(c, err)
				return
			}

			key := storage.ObjectKey(field.prefix, headers[0].Filename)
			contentType := mimetype.Detect(data).String()
			if err := store.Save(c.Request.Context(), key, data, contentType); err != nil {
				respondWithError(c, err)
				return
			}
			keys[field.name] = key
		}

		c.JSON(http.StatusOK, gin.H{"files": keys})
	}
}

// GenerateHandler は POST /api/generate のハンドラーを返します。
// 検証が通ればジョブIDをただちに返し、生成はバックグラウンドで進みます。
func GenerateHandler(svc GenerateStarter) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req GenerateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    "INVALID_INPUT",
				"message": "Payload tidak lengkap.",
			})
			return
		}

		job, err := svc.StartGenerate(c.Request.Context(), &req)
		if err != nil {
			respondWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"jobId": job.ID,
			"total": job.Total,
		})
	}
}

// StatusHandler は GET /api/generate/status のハンドラーを返します。
func StatusHandler(registry *jobs.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		jobID := strings.TrimSpace(c.Query("jobId"))
		if jobID == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    "INVALID_INPUT",
				"message": "jobId wajib.",
			})
			return
		}

		job, ok := registry.Get(jobID)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{
				"code":    "JOB_NOT_FOUND",
				"message": "Job tidak ditemukan.",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":  job.Status,
			"total":   job.Total,
			"current": job.Current,
			"error":   job.Error,
		})
	}
}

// DownloadHandler は GET /api/generate/download のハンドラーを返します。
// 完了済みジョブの成果物への署名付きURLを返し、ジョブを削除します。
// 2回目の呼び出しは 404 になります（ワンショット）。
func DownloadHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		jobID := strings.TrimSpace(c.Query("jobId"))
		if jobID == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    "INVALID_INPUT",
				"message": "jobId wajib.",
			})
			return
		}

		job, ok := svc.Registry().Get(jobID)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{
				"code":    "JOB_NOT_FOUND",
				"message": "Job tidak ditemukan.",
			})
			return
		}
		if job.Status != jobs.StatusDone || job.ZipKey == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    "INVALID_INPUT",
				"message": "ZIP belum siap.",
			})
			return
		}

		url, err := svc.Store().GenerateSignedURL(job.ZipKey, svc.PresignExpiry())
		if err != nil {
			respondWithError(c, err)
			return
		}

		svc.Registry().Remove(jobID)
		c.JSON(http.StatusOK, gin.H{"url": url})
	}
}

// FontPreviewHandler は POST /api/font-preview のハンドラーを返します。
// フォント本体または .ttf/.otf を含むzipを受け取り、アセント比の算出と
// ストアへのアップロードを行います。
func FontPreviewHandler(cfg *config.Config, store ObjectStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		header, err := c.FormFile("font")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    "INVALID_INPUT",
				"message": "File font tidak ditemukan.",
			})
			return
		}

		data, err := readMultipartFile(header, cfg.MaxFileSize)
		if err != nil {
			respondWithError(c, err)
			return
		}

		fontBytes := data
		fontName := header.Filename
		switch {
		case mimetype.Detect(data).Is("application/zip"):
			fontBytes, fontName, err = extractFontFromZip(data)
			if err != nil {
				respondWithError(c, err)
				return
			}
		case isFontData(data) || isFontFilename(header.Filename):
			// そのまま利用する
		default:
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    "UNSUPPORTED_FORMAT",
				"message": "Format font harus .ttf, .otf, atau .zip.",
			})
			return
		}

		ratio := ascentRatio(fontBytes)

		fontKey := storage.ObjectKey("uploads/font", fontName)
		contentType := mimetype.Detect(fontBytes).String()
		if err := store.Save(c.Request.Context(), fontKey, fontBytes, contentType); err != nil {
			respondWithError(c, err)
			return
		}

		fontURL, err := store.GenerateSignedURL(fontKey, presignExpiry(cfg))
		if err != nil {
			respondWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"fontKey":     fontKey,
			"fontUrl":     fontURL,
			"ascentRatio": ratio,
		})
	}
}

// ExcelInfoHandler は POST /api/excel-info のハンドラーを返します。
func ExcelInfoHandler(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		header, err := c.FormFile("excel")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    "INVALID_INPUT",
				"message": "File Excel tidak ditemukan.",
			})
			return
		}

		data, err := readMultipartFile(header, cfg.MaxFileSize)
		if err != nil {
			respondWithError(c, err)
			return
		}

		rows, err := excel.Parse(data, false)
		if err != nil {
			respondWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"count": len(rows)})
	}
}

func readMultipartFile(header *multipart.FileHeader, maxSize int64) ([]byte, error) {
	if maxSize > 0 && header.Size > maxSize {
		return nil, newError("LIMIT_EXCEEDED", "Ukuran file melebihi batas.", nil)
	}
	file, err := header.Open()
	if err != nil {
		return nil, newError("INVALID_INPUT", "File tidak dapat dibaca.", err)
	}
	defer file.Close()
	return io.ReadAll(file)
}

func respondWithError(c *gin.Context, err error) {
	var apiErr *Error
	var validationErr *excel.ValidationError
	var storeErr *storage.StoreError
	switch {
	case errors.As(err, &apiErr):
		status := http.StatusBadRequest
		switch apiErr.Code {
		case "JOB_NOT_FOUND":
			status = http.StatusNotFound
		case "STORE_ERROR":
			status = http.StatusInternalServerError
		case "LIMIT_EXCEEDED":
			status = http.StatusRequestEntityTooLarge
		}
		c.JSON(status, gin.H{
			"code":    apiErr.Code,
			"message": apiErr.Message,
		})
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "INVALID_INPUT",
			"message": validationErr.Message,
		})
	case errors.As(err, &storeErr):
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "STORE_ERROR",
			"message": fmt.Sprintf("Operasi penyimpanan gagal (%d).", storeErr.Status),
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "INTERNAL_ERROR",
			"message": "Terjadi kesalahan pada server.",
		})
	}
}
