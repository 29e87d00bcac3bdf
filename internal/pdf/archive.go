package pdf

import (
	"archive/zip"
	"compress/flate"
	"fmt"
	"io"
	"os"
)

// archiveFile はZIPに追加する1ファイルを表します。
type archiveFile struct {
	path string
	name string
}

// createZip は生成済みPDFを1つのZIPにまとめます。圧縮率は最大です。
// エントリ順は追加順（＝レコード順）を保持します。
func createZip(outputPath string, files []archiveFile) error {
	outFile, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
	if err != nil {
		return fmt.Errorf("gagal membuat file zip: %w", err)
	}
	defer outFile.Close()

	zipWriter := zip.NewWriter(outFile)
	zipWriter.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestCompression)
	})

	for _, entry := range files {
		file, err := os.Open(entry.path)
		if err != nil {
			zipWriter.Close()
			return fmt.Errorf("gagal membuka file untuk zip: %w", err)
		}

		info, err := file.Stat()
		if err != nil {
			file.Close()
			zipWriter.Close()
			return fmt.Errorf("gagal membaca info file untuk zip: %w", err)
		}

		header, err := zip.FileInfoHeader(info)
		if err != nil {
			file.Close()
			zipWriter.Close()
			return fmt.Errorf("gagal membuat header zip: %w", err)
		}
		header.Name = entry.name
		header.Method = zip.Deflate

		writer, err := zipWriter.CreateHeader(header)
		if err != nil {
			file.Close()
			zipWriter.Close()
			return fmt.Errorf("gagal menulis header zip: %w", err)
		}

		if _, err := io.Copy(writer, file); err != nil {
			file.Close()
			zipWriter.Close()
			return fmt.Errorf("gagal menulis isi zip: %w", err)
		}
		file.Close()
	}

	return zipWriter.Close()
}
