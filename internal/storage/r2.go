// Package storage はS3互換オブジェクトストア（Cloudflare R2）への
// 署名付きアクセスを提供します。SDKは使用せず、SigV4署名を自前で行います。
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Haisyam/SertifGenerator/internal/config"
)

// StoreError はオブジェクトストアからの非2xx応答を表します。
type StoreError struct {
	Op     string // 失敗した操作 (PUT, GET, DELETE)
	Key    string
	Status int
	Body   string // レスポンスボディの抜粋
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("r2 %s %s failed (%d): %s", e.Op, e.Key, e.Status, e.Body)
}

// Client はR2バケットへの操作を提供します。
type Client struct {
	httpClient *http.Client
	endpoint   string // スキーム付きエンドポイント (https://host)
	host       string // 署名対象のホスト（ポート含む）
	bucket     string
	accessKey  string
	secretKey  string
	now        func() time.Time
}

// NewClient は設定からクライアントを作成します。
// 資格情報が不足している場合はネットワークアクセスの前にエラーを返します。
func NewClient(cfg *config.Config) (*Client, error) {
	var missing []string
	if cfg.R2AccountID == "" && cfg.R2Endpoint == "" {
		missing = append(missing, "R2_ACCOUNT_ID")
	}
	if cfg.R2BucketName == "" {
		missing = append(missing, "R2_BUCKET_NAME")
	}
	if cfg.R2AccessKeyID == "" {
		missing = append(missing, "R2_ACCESS_KEY_ID")
	}
	if cfg.R2SecretAccessKey == "" {
		missing = append(missing, "R2_SECRET_ACCESS_KEY")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("R2 env belum lengkap: %s", strings.Join(missing, ", "))
	}

	endpoint := cfg.R2Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.R2AccountID)
	}
	parsed, err := url.Parse(endpoint)
	if err != nil || parsed.Host == "" {
		return nil, fmt.Errorf("invalid R2 endpoint: %s", endpoint)
	}

	return &Client{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		endpoint:   strings.TrimRight(endpoint, "/"),
		host:       parsed.Host,
		bucket:     cfg.R2BucketName,
		accessKey:  cfg.R2AccessKeyID,
		secretKey:  cfg.R2SecretAccessKey,
		now:        time.Now,
	}, nil
}

func (c *Client) objectURL(key string) string {
	return c.endpoint + canonicalURI(c.bucket, key)
}

// Save はオブジェクトをアップロードします。
func (c *Client) Save(ctx context.Context, key string, data []byte, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	payloadHash := sha256Hex(data)
	now := amzDate(c.now())
	authorization := signRequest(c.accessKey, c.secretKey, http.MethodPut, c.host, c.bucket, key, payloadHash, now)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.objectURL(key), bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", authorization)
	req.Header.Set("x-amz-date", now.full)
	req.Header.Set("x-amz-content-sha256", payloadHash)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StoreError{Op: "PUT", Key: key, Status: resp.StatusCode, Body: readBodyExcerpt(resp.Body)}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Load はオブジェクトをダウンロードします。
func (c *Client) Load(ctx context.Context, key string) ([]byte, error) {
	payloadHash := sha256Hex(nil)
	now := amzDate(c.now())
	authorization := signRequest(c.accessKey, c.secretKey, http.MethodGet, c.host, c.bucket, key, payloadHash, now)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.objectURL(key), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", authorization)
	req.Header.Set("x-amz-date", now.full)
	req.Header.Set("x-amz-content-sha256", payloadHash)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StoreError{Op: "GET", Key: key, Status: resp.StatusCode, Body: readBodyExcerpt(resp.Body)}
	}
	return io.ReadAll(resp.Body)
}

// Delete はオブジェクトを削除します。存在しないキーでもR2は2xxを返します。
func (c *Client) Delete(ctx context.Context, key string) error {
	payloadHash := sha256Hex(nil)
	now := amzDate(c.now())
	authorization := signRequest(c.accessKey, c.secretKey, http.MethodDelete, c.host, c.bucket, key, payloadHash, now)

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.objectURL(key), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", authorization)
	req.Header.Set("x-amz-date", now.full)
	req.Header.Set("x-amz-content-sha256", payloadHash)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StoreError{Op: "DELETE", Key: key, Status: resp.StatusCode, Body: readBodyExcerpt(resp.Body)}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// GenerateSignedURL は追加の認証なしで利用できる期限付きダウンロードURLを生成します。
func (c *Client) GenerateSignedURL(key string, expiry time.Duration) (string, error) {
	expiresIn := int(expiry / time.Second)
	if expiresIn <= 0 {
		return "", fmt.Errorf("expiry must be positive")
	}
	now := amzDate(c.now())
	query := presignQuery(c.accessKey, c.secretKey, c.host, c.bucket, key, expiresIn, now)
	return c.objectURL(key) + "?" + query, nil
}

var unsafeKeyChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// ObjectKey は衝突しないオブジェクトキーを生成します。
func ObjectKey(prefix, filename string) string {
	if filename == "" {
		filename = "file.bin"
	}
	safe := unsafeKeyChars.ReplaceAllString(filename, "-")
	key := prefix + "/" + uuid.NewString() + "-" + safe
	for strings.Contains(key, "//") {
		key = strings.ReplaceAll(key, "//", "/")
	}
	return key
}

func readBodyExcerpt(r io.Reader) string {
	excerpt, err := io.ReadAll(io.LimitReader(r, 512))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(excerpt))
}
