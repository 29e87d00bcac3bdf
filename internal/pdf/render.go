package pdf

import (
	"bytes"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-pdf/fpdf"

	"github.com/Haisyam/SertifGenerator/internal/excel"
)

// Position は1フィールドの描画設定を表します。
// X/Y はテンプレート画像のピクセル座標で、Y は上端からの距離です。
type Position struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	FontSize    float64 `json:"fontSize"`
	Color       string  `json:"color"`
	StrokeWidth float64 `json:"strokeWidth"`
	StrokeColor string  `json:"strokeColor"`
	AlignCenter bool    `json:"alignCenter"`
}

// Positions は生成リクエストの全フィールド設定を表します。
type Positions struct {
	Nama          *Position `json:"nama" binding:"required"`
	Sebagai       *Position `json:"sebagai"`
	EnableSebagai bool      `json:"enableSebagai"`
}

// renderAssets は1ジョブ内で共有される描画素材を保持します。
// ジョブ実行中は読み取り専用です。
type renderAssets struct {
	template     []byte
	templateType string // fpdf の画像種別 (PNG, JPG)
	width        float64
	height       float64
	fontNama     []byte
	fontSebagai  []byte
}

// detectTemplate はテンプレート画像の形式と実寸（ピクセル）を判定します。
// PNG と JPEG のみを受け付けます。
func detectTemplate(template []byte) (string, float64, float64, error) {
	mime := mimetype.Detect(template)
	var imageType string
	switch {
	case mime.Is("image/png"):
		imageType = "PNG"
	case mime.Is("image/jpeg"):
		imageType = "JPG"
	default:
		return "", 0, 0, newError("UNSUPPORTED_FORMAT", "Template harus berformat PNG atau JPEG.", nil)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(template))
	if err != nil {
		return "", 0, 0, newError("UNSUPPORTED_FORMAT", "Template gambar tidak dapat dibaca.", err)
	}
	return imageType, float64(cfg.Width), float64(cfg.Height), nil
}

// renderCertificate は1レコード分の証明書PDFを生成します。
// ページはテンプレートのピクセル寸法と等しいポイント寸法で作られ、
// 配置Yはそのままベースラインとして使われます（PDF座標では高さ−Y）。
func renderCertificate(assets *renderAssets, row excel.Row, positions Positions) ([]byte, error) {
	doc := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: assets.width, Ht: assets.height},
	})
	doc.SetAutoPageBreak(false, 0)
	doc.AddPage()

	opts := fpdf.ImageOptions{ImageType: assets.templateType, ReadDpi: false}
	doc.RegisterImageOptionsReader("template", opts, bytes.NewReader(assets.template))
	doc.ImageOptions("template", 0, 0, assets.width, assets.height, false, opts, 0, "")

	doc.AddUTF8FontFromBytes("nama", "", assets.fontNama)

	shouldRenderSebagai := positions.EnableSebagai && row.Sebagai != "" && positions.Sebagai != nil
	if shouldRenderSebagai {
		if len(assets.fontSebagai) == 0 {
			return nil, newError("CONFIG_ERROR", "Font Sebagai belum diupload.", nil)
		}
		doc.AddUTF8FontFromBytes("sebagai", "", assets.fontSebagai)
	}

	drawField(doc, "nama", row.Nama, positions.Nama, assets.width)
	if shouldRenderSebagai {
		drawField(doc, "sebagai", row.Sebagai, positions.Sebagai, assets.width)
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, newError("UNSUPPORTED_FORMAT", "Gagal membuat PDF dari template dan font yang diberikan.", err)
	}
	return buf.Bytes(), nil
}

// drawField は1フィールドを描画します。縁取りが指定されている場合は、
// 同心円状に半径を変えた文字の重ね描きで輪郭を近似してから本体を描きます。
func drawField(doc *fpdf.Fpdf, family, text string, pos *Position, pageWidth float64) {
	doc.SetFont(family, "", pos.FontSize)

	x := pos.X
	if pos.AlignCenter {
		x = (pageWidth - doc.GetStringWidth(text)) / 2
	}
	y := pos.Y

	if pos.StrokeWidth > 0 {
		strokeColor := pos.StrokeColor
		if strokeColor == "" {
			strokeColor = "#ffffff"
		}
		sr, sg, sb := hexToRGB(strokeColor)
		doc.SetTextColor(sr, sg, sb)
		for _, radius := range strokeLayers(pos.StrokeWidth) {
			steps := strokeSteps(radius)
			for i := 0; i < steps; i++ {
				angle := 2 * math.Pi * float64(i) / float64(steps)
				doc.Text(x+math.Cos(angle)*radius, y-math.Sin(angle)*radius, text)
			}
		}
	}

	r, g, b := hexToRGB(pos.Color)
	doc.SetTextColor(r, g, b)
	doc.Text(x, y, text)
}

// strokeLayers は縁取り半径の列を返します。半径2以上で0.6倍、
// 4以上で0.3倍の内側リングを追加します。
func strokeLayers(width float64) []float64 {
	layers := []float64{width}
	if width >= 2 {
		layers = append(layers, width*0.6)
	}
	if width >= 4 {
		layers = append(layers, width*0.3)
	}
	return layers
}

// strokeSteps は1リングあたりの描画回数を返します（最低8回、半径×8回）。
func strokeSteps(radius float64) int {
	steps := int(math.Ceil(radius * 8))
	if steps < 8 {
		steps = 8
	}
	return steps
}

// hexToRGB は "#rrggbb" を 0〜255 のRGBに変換します。
// 解釈できない値は既定の文字色 (18, 23, 38) になります。
func hexToRGB(value string) (int, int, int) {
	hex := strings.Replace(value, "#", "", 1)
	if len(hex) != 6 {
		return 18, 23, 38
	}
	n, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 18, 23, 38
	}
	return int(n >> 16 & 255), int(n >> 8 & 255), int(n & 255)
}
