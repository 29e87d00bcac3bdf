package pdf

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	forbiddenFilenameChars = regexp.MustCompile(`[/\\?%*:|"<>]`)
	whitespaceRuns         = regexp.MustCompile(`\s+`)
)

// sanitizeFilename はファイルシステムで使えない文字を除去し、
// 空白の連続を1つにまとめ、120文字に切り詰めます。空になった場合は
// "sertifikat" を返します。
func sanitizeFilename(value string) string {
	s := strings.TrimSpace(value)
	s = forbiddenFilenameChars.ReplaceAllString(s, "-")
	s = whitespaceRuns.ReplaceAllString(s, " ")
	if runes := []rune(s); len(runes) > 120 {
		s = string(runes[:120])
	}
	if s == "" {
		return "sertifikat"
	}
	return s
}

// uniqueFilename は used に存在しない "<base>.pdf" 形式の名前を返し、
// used に登録します。衝突時は "_2", "_3", … を付与します。
func uniqueFilename(used map[string]struct{}, base string) string {
	filename := base + ".pdf"
	counter := 1
	for {
		if _, exists := used[filename]; !exists {
			break
		}
		counter++
		filename = fmt.Sprintf("%s_%d.pdf", base, counter)
	}
	used[filename] = struct{}{}
	return filename
}
