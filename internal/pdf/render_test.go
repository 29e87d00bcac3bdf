package pdf

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"testing"

	"github.com/go-pdf/fpdf"
	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/Haisyam/SertifGenerator/internal/excel"
)

func buildPNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: 240, G: 240, B: 220, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

func buildJPEG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("failed to encode jpeg: %v", err)
	}
	return buf.Bytes()
}

func TestDetectTemplate(t *testing.T) {
	imageType, width, height, err := detectTemplate(buildPNG(t, 400, 300))
	if err != nil {
		t.Fatalf("detectTemplate returned error: %v", err)
	}
	if imageType != "PNG" || width != 400 || height != 300 {
		t.Fatalf("unexpected result: %s %fx%f", imageType, width, height)
	}

	imageType, _, _, err = detectTemplate(buildJPEG(t, 200, 100))
	if err != nil {
		t.Fatalf("detectTemplate returned error for jpeg: %v", err)
	}
	if imageType != "JPG" {
		t.Fatalf("unexpected image type: %s", imageType)
	}
}

func TestDetectTemplateUnsupported(t *testing.T) {
	_, _, _, err := detectTemplate([]byte("GIF89a not really"))
	if err == nil {
		t.Fatal("expected error for unsupported format")
	}
	apiErr, ok := err.(*Error)
	if !ok || apiErr.Code != "UNSUPPORTED_FORMAT" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func testAssets(t *testing.T, withSebagai bool) *renderAssets {
	t.Helper()
	template := buildPNG(t, 842, 595)
	fontData := loadTestFont(t)
	assets := &renderAssets{
		template:     template,
		templateType: "PNG",
		width:        842,
		height:       595,
		fontNama:     fontData,
	}
	if withSebagai {
		assets.fontSebagai = fontData
	}
	return assets
}

func TestRenderCertificate(t *testing.T) {
	assets := testAssets(t, false)
	positions := Positions{
		Nama: &Position{X: 100, Y: 300, FontSize: 36, Color: "#112233", AlignCenter: true},
	}

	pdfBytes, err := renderCertificate(assets, excel.Row{Nama: "Budi Santoso"}, positions)
	if err != nil {
		t.Fatalf("renderCertificate returned error: %v", err)
	}

	count, err := pdfapi.PageCount(bytes.NewReader(pdfBytes), nil)
	if err != nil {
		t.Fatalf("output is not a readable PDF: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 page, got %d", count)
	}

	dims, err := pdfapi.PageDims(bytes.NewReader(pdfBytes), nil)
	if err != nil {
		t.Fatalf("failed to read page dims: %v", err)
	}
	if math.Abs(dims[0].Width-842) > 0.5 || math.Abs(dims[0].Height-595) > 0.5 {
		t.Fatalf("unexpected page size: %fx%f", dims[0].Width, dims[0].Height)
	}
}

func TestRenderCertificateWithSebagai(t *testing.T) {
	assets := testAssets(t, true)
	positions := Positions{
		Nama:          &Position{X: 100, Y: 250, FontSize: 36, Color: "#112233"},
		Sebagai:       &Position{X: 100, Y: 320, FontSize: 20, Color: "#445566", AlignCenter: true},
		EnableSebagai: true,
	}

	pdfBytes, err := renderCertificate(assets, excel.Row{Nama: "Budi", Sebagai: "Peserta"}, positions)
	if err != nil {
		t.Fatalf("renderCertificate returned error: %v", err)
	}
	if count, err := pdfapi.PageCount(bytes.NewReader(pdfBytes), nil); err != nil || count != 1 {
		t.Fatalf("unexpected output: count=%d err=%v", count, err)
	}
}

func TestRenderCertificateWithStroke(t *testing.T) {
	assets := testAssets(t, false)
	positions := Positions{
		Nama: &Position{
			X: 100, Y: 300, FontSize: 36,
			Color: "#112233", StrokeWidth: 3, StrokeColor: "#ffffff",
		},
	}

	pdfBytes, err := renderCertificate(assets, excel.Row{Nama: "Budi"}, positions)
	if err != nil {
		t.Fatalf("renderCertificate returned error: %v", err)
	}
	if _, err := pdfapi.PageCount(bytes.NewReader(pdfBytes), nil); err != nil {
		t.Fatalf("output is not a readable PDF: %v", err)
	}
}

func TestRenderCertificateMissingSebagaiFont(t *testing.T) {
	assets := testAssets(t, false)
	positions := Positions{
		Nama:          &Position{X: 100, Y: 250, FontSize: 36},
		Sebagai:       &Position{X: 100, Y: 320, FontSize: 20},
		EnableSebagai: true,
	}

	_, err := renderCertificate(assets, excel.Row{Nama: "Budi", Sebagai: "Peserta"}, positions)
	if err == nil {
		t.Fatal("expected error when sebagai font is missing")
	}
	apiErr, ok := err.(*Error)
	if !ok || apiErr.Code != "CONFIG_ERROR" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRenderCertificateSkipsEmptySebagai(t *testing.T) {
	// sebagai 列が空の行は sebagai フォントが無くても描画できる
	assets := testAssets(t, false)
	positions := Positions{
		Nama:          &Position{X: 100, Y: 250, FontSize: 36},
		Sebagai:       &Position{X: 100, Y: 320, FontSize: 20},
		EnableSebagai: true,
	}

	if _, err := renderCertificate(assets, excel.Row{Nama: "Budi"}, positions); err != nil {
		t.Fatalf("renderCertificate returned error: %v", err)
	}
}

// placementMarker は非圧縮PDFのコンテンツに現れるテキスト配置演算子を返します。
// fpdf は "BT <x> <y> Td" 形式で出力し、y はPDF座標（下端基準）です。
func placementMarker(x, y float64) []byte {
	return []byte(fmt.Sprintf("BT %.2f %.2f Td", x, y))
}

func TestDrawFieldPlacement(t *testing.T) {
	const pageW, pageH = 842.0, 595.0
	doc := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: pageW, Ht: pageH},
	})
	doc.SetCompression(false)
	doc.SetAutoPageBreak(false, 0)
	doc.AddPage()
	doc.AddUTF8FontFromBytes("nama", "", loadTestFont(t))

	// 左寄せ: 配置Yはそのままベースラインになり、PDF座標では H−y になる
	drawField(doc, "nama", "Budi", &Position{X: 100, Y: 300, FontSize: 36}, pageW)

	// 中央寄せ: x は実測幅から求める
	drawField(doc, "nama", "Budi Santoso", &Position{Y: 150, FontSize: 36, AlignCenter: true}, pageW)
	doc.SetFont("nama", "", 36)
	centeredX := (pageW - doc.GetStringWidth("Budi Santoso")) / 2

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		t.Fatalf("failed to produce PDF: %v", err)
	}

	if !bytes.Contains(buf.Bytes(), placementMarker(100, pageH-300)) {
		t.Fatal("left-aligned text was not placed at (x, H-y)")
	}
	if !bytes.Contains(buf.Bytes(), placementMarker(centeredX, pageH-150)) {
		t.Fatalf("centered text was not placed at ((W-w)/2, H-y), expected x=%.2f", centeredX)
	}
}

func TestStrokeLayers(t *testing.T) {
	if got := strokeLayers(1); len(got) != 1 || got[0] != 1 {
		t.Fatalf("unexpected layers for width 1: %#v", got)
	}
	if got := strokeLayers(2); len(got) != 2 || got[1] != 1.2 {
		t.Fatalf("unexpected layers for width 2: %#v", got)
	}
	got := strokeLayers(4)
	if len(got) != 3 || got[0] != 4 || got[1] != 2.4 || math.Abs(got[2]-1.2) > 1e-9 {
		t.Fatalf("unexpected layers for width 4: %#v", got)
	}
}

func TestStrokeSteps(t *testing.T) {
	if got := strokeSteps(0.5); got != 8 {
		t.Fatalf("expected minimum 8 steps, got %d", got)
	}
	if got := strokeSteps(3); got != 24 {
		t.Fatalf("expected 24 steps, got %d", got)
	}
}

func TestHexToRGB(t *testing.T) {
	cases := []struct {
		input   string
		r, g, b int
	}{
		{"#ffffff", 255, 255, 255},
		{"#000000", 0, 0, 0},
		{"#1a2b3c", 26, 43, 60},
		{"1a2b3c", 26, 43, 60},
		{"", 18, 23, 38},
		{"#fff", 18, 23, 38},
		{"#zzzzzz", 18, 23, 38},
	}
	for _, tc := range cases {
		r, g, b := hexToRGB(tc.input)
		if r != tc.r || g != tc.g || b != tc.b {
			t.Fatalf("hexToRGB(%q) = (%d,%d,%d), want (%d,%d,%d)", tc.input, r, g, b, tc.r, tc.g, tc.b)
		}
	}
}
