package pdf

import (
	"archive/zip"
	"bytes"
	"io"
	"math"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

func isFontFilename(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".ttf" || ext == ".otf"
}

// isFontData はバイト列がTTF/OTFフォントかを判定します。
func isFontData(data []byte) bool {
	mime := mimetype.Detect(data)
	return mime.Is("font/ttf") || mime.Is("font/otf")
}

// extractFontFromZip はzip内の最初の .ttf/.otf エントリを取り出します。
func extractFontFromZip(data []byte) ([]byte, string, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, "", newError("INVALID_INPUT", "File zip tidak dapat dibaca.", err)
	}

	for _, entry := range reader.File {
		if entry.FileInfo().IsDir() || !isFontFilename(entry.Name) {
			continue
		}
		rc, err := entry.Open()
		if err != nil {
			return nil, "", newError("INVALID_INPUT", "File zip tidak dapat dibaca.", err)
		}
		fontBytes, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, "", newError("INVALID_INPUT", "File zip tidak dapat dibaca.", err)
		}
		return fontBytes, filepath.Base(entry.Name), nil
	}

	return nil, "", newError("INVALID_INPUT", "File zip tidak berisi .ttf atau .otf.", nil)
}

// ascentRatio はフォントのアセント比（ascent / unitsPerEm）を返します。
// エディタ側でベースライン座標を上端基準のボックスに変換するために使います。
// 解析できない場合や比が [0.4, 1.2] を外れる場合は nil を返します。
func ascentRatio(fontBytes []byte) *float64 {
	parsed, err := sfnt.Parse(fontBytes)
	if err != nil {
		return nil
	}

	units := int(parsed.UnitsPerEm())
	if units == 0 {
		units = 1000
	}

	var buf sfnt.Buffer
	// ppem = unitsPerEm で測ることで、アセントをフォント単位のまま取り出す
	metrics, err := parsed.Metrics(&buf, fixed.I(units), font.HintingNone)
	if err != nil {
		return nil
	}

	ratio := float64(metrics.Ascent) / 64 / float64(units)
	if math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return nil
	}
	if ratio < 0.4 || ratio > 1.2 {
		return nil
	}
	return &ratio
}
