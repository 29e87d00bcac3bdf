package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
	"time"
)

// SigV4署名の固定パラメータ。R2はリージョン "auto"、サービス "s3" で署名します。
const (
	signAlgorithm   = "AWS4-HMAC-SHA256"
	signRegion      = "auto"
	signService     = "s3"
	signedHeaders   = "host"
	unsignedPayload = "UNSIGNED-PAYLOAD"
)

// amzTime は署名に使用する2種類のタイムスタンプ表現を保持します。
type amzTime struct {
	full  string // 20060102T150405Z 形式
	short string // 20060102 形式（日付スタンプ）
}

func amzDate(t time.Time) amzTime {
	full := t.UTC().Format("20060102T150405Z")
	return amzTime{full: full, short: full[:8]}
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func hmacSHA256(key []byte, data string) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(data))
	return mac.Sum(nil)
}

// signingKey は秘密鍵から日付・リージョン・サービスを順に畳み込んだ署名鍵を導出します。
func signingKey(secret, dateStamp string) []byte {
	kDate := hmacSHA256([]byte("AWS4"+secret), dateStamp)
	kRegion := hmacSHA256(kDate, signRegion)
	kService := hmacSHA256(kRegion, signService)
	return hmacSHA256(kService, "aws4_request")
}

// encodeRFC3986 は RFC 3986 に従ってパーセントエンコードします。
// 非予約文字以外（!*'() を含む）はすべてエスケープします。
func encodeRFC3986(value string) string {
	var b strings.Builder
	for _, c := range []byte(value) {
		switch {
		case c >= 'A' && c <= 'Z',
			c >= 'a' && c <= 'z',
			c >= '0' && c <= '9',
			c == '-', c == '_', c == '.', c == '~':
			b.WriteByte(c)
		default:
			b.WriteByte('%')
			b.WriteString(strings.ToUpper(hex.EncodeToString([]byte{c})))
		}
	}
	return b.String()
}

// encodeKeyPath はオブジェクトキーをセグメント単位でエンコードします。
func encodeKeyPath(key string) string {
	segments := strings.Split(key, "/")
	for i, segment := range segments {
		segments[i] = encodeRFC3986(segment)
	}
	return strings.Join(segments, "/")
}

// canonicalQueryString はクエリをキー昇順で正規化します。
func canonicalQueryString(query map[string]string) string {
	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, encodeRFC3986(k)+"="+encodeRFC3986(query[k]))
	}
	return strings.Join(pairs, "&")
}

func credentialScope(dateStamp string) string {
	return dateStamp + "/" + signRegion + "/" + signService + "/aws4_request"
}

func canonicalURI(bucket, key string) string {
	return "/" + bucket + "/" + encodeKeyPath(key)
}

// canonicalRequest はSigV4のカノニカルリクエスト文字列を構築します。
// 署名対象ヘッダーは host のみです。
func canonicalRequest(method, uri, query, host, payloadHash string) string {
	return strings.Join([]string{
		method,
		uri,
		query,
		"host:" + host + "\n",
		signedHeaders,
		payloadHash,
	}, "\n")
}

func stringToSign(now amzTime, request string) string {
	return strings.Join([]string{
		signAlgorithm,
		now.full,
		credentialScope(now.short),
		sha256Hex([]byte(request)),
	}, "\n")
}

// signRequest はヘッダー認証用の Authorization 値を計算します。
func signRequest(accessKeyID, secret, method, host, bucket, key, payloadHash string, now amzTime) string {
	request := canonicalRequest(method, canonicalURI(bucket, key), "", host, payloadHash)
	signature := hex.EncodeToString(hmacSHA256(
		signingKey(secret, now.short),
		stringToSign(now, request),
	))
	return strings.Join([]string{
		signAlgorithm + " Credential=" + accessKeyID + "/" + credentialScope(now.short),
		"SignedHeaders=" + signedHeaders,
		"Signature=" + signature,
	}, ", ")
}

// presignQuery は署名付きGET URLのクエリ文字列を構築します。
// ペイロードは UNSIGNED-PAYLOAD として署名されます。
func presignQuery(accessKeyID, secret, host, bucket, key string, expiresIn int, now amzTime) string {
	query := map[string]string{
		"X-Amz-Algorithm":     signAlgorithm,
		"X-Amz-Credential":    accessKeyID + "/" + credentialScope(now.short),
		"X-Amz-Date":          now.full,
		"X-Amz-Expires":       strconv.Itoa(expiresIn),
		"X-Amz-SignedHeaders": signedHeaders,
	}
	canonicalQuery := canonicalQueryString(query)
	request := canonicalRequest("GET", canonicalURI(bucket, key), canonicalQuery, host, unsignedPayload)
	signature := hex.EncodeToString(hmacSHA256(
		signingKey(secret, now.short),
		stringToSign(now, request),
	))
	return canonicalQuery + "&X-Amz-Signature=" + signature
}
